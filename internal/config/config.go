package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

var ErrMissingRequired = errors.New("missing required configuration")

type Config struct {
	// Upstream collaborators
	SearxURL       string `envconfig:"SEARX_URL" default:"http://searxng:8080/search"`
	CrawlURL       string `envconfig:"CRAWL_URL" default:"http://crawl4ai:11235/crawl"`
	WeaviateHost   string `envconfig:"WEAVIATE_HOST" default:"weaviate:8080"`
	WeaviateScheme string `envconfig:"WEAVIATE_SCHEME" default:"http"`
	GeminiAPIKey   string `envconfig:"GEMINI_API_KEY"`

	// History persistence
	DBHost        string `envconfig:"DB_HOST" default:"postgres"`
	DBPort        int    `envconfig:"DB_PORT" default:"5432"`
	DBUser        string `envconfig:"DB_USER" default:"lookout"`
	DBPass        string `envconfig:"DB_PASS" default:"password"`
	DBName        string `envconfig:"DB_NAME" default:"lookout"`
	MigrationPath string `envconfig:"MIGRATION_PATH" default:"file://migrations"`

	// NSQ (background index maintenance)
	NSQDHost   string `envconfig:"NSQD_HOST" default:"nsqd:4150"`
	NSQDHTTP   string `envconfig:"NSQD_HTTP" default:"nsqd:4151"`
	NSQLookupd string `envconfig:"NSQ_LOOKUPD" default:"nsqlookupd:4161"`

	// Timeouts
	SearchTimeout        time.Duration `envconfig:"SEARCH_TIMEOUT" default:"15s"`
	SearchConnectTimeout time.Duration `envconfig:"SEARCH_CONNECT_TIMEOUT" default:"3s"`
	CrawlTimeout         time.Duration `envconfig:"CRAWL_TIMEOUT" default:"30s"`
	CrawlConnectTimeout  time.Duration `envconfig:"CRAWL_CONNECT_TIMEOUT" default:"5s"`

	// Crawl admission
	CrawlConcurrency int     `envconfig:"CRAWL_CONCURRENCY" default:"5"`
	CrawlMaxConns    int     `envconfig:"CRAWL_MAX_CONNS" default:"10"`
	CrawlRate        float64 `envconfig:"CRAWL_RATE" default:"5"`
	CrawlTopN        int     `envconfig:"CRAWL_TOP_N" default:"5"`

	// Pipeline shape
	SearchResults    int `envconfig:"SEARCH_RESULTS" default:"6"`
	ChunkSize        int `envconfig:"CHUNK_SIZE" default:"1000"`
	ChunkOverlap     int `envconfig:"CHUNK_OVERLAP" default:"150"`
	MinChunkChars    int `envconfig:"MIN_CHUNK_CHARS" default:"200"`
	MinDocumentChars int `envconfig:"MIN_DOCUMENT_CHARS" default:"300"`
	RetrievalTopK    int `envconfig:"RETRIEVAL_TOP_K" default:"8"`
	MaxCitedSources  int `envconfig:"MAX_CITED_SOURCES" default:"8"`

	// Embedding worker pool
	EmbedWorkers int `envconfig:"EMBED_WORKERS" default:"4"`
	EmbedQueue   int `envconfig:"EMBED_QUEUE" default:"64"`

	// Index maintenance
	EvictionThreshold   int `envconfig:"EVICTION_THRESHOLD" default:"10000"`
	EvictionMaxAgeHours int `envconfig:"EVICTION_MAX_AGE_HOURS" default:"24"`

	// Server
	ServerPort   int    `envconfig:"SERVER_PORT" default:"8080"`
	QueryLogPath string `envconfig:"QUERY_LOG_PATH" default:"data/logs/query.log"`

	// Resilience
	BootstrapRetryAttempts     int `envconfig:"BOOTSTRAP_RETRY_ATTEMPTS" default:"10"`
	BootstrapRetryDelaySeconds int `envconfig:"BOOTSTRAP_RETRY_DELAY_SECONDS" default:"2"`
}

func Load() (*Config, error) {
	// Env vars may already be set in the shell; .env is best-effort.
	_ = godotenv.Load(".env")

	cwd, _ := os.Getwd()
	_ = godotenv.Load(filepath.Join(cwd, "../.env"))

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.SearxURL == "" {
		return fmt.Errorf("%w: SEARX_URL", ErrMissingRequired)
	}
	if c.CrawlURL == "" {
		return fmt.Errorf("%w: CRAWL_URL", ErrMissingRequired)
	}
	if c.WeaviateHost == "" {
		return fmt.Errorf("%w: WEAVIATE_HOST", ErrMissingRequired)
	}
	if c.CrawlConcurrency < 1 {
		return errors.New("CRAWL_CONCURRENCY must be at least 1")
	}
	if c.EmbedWorkers < 1 {
		return errors.New("EMBED_WORKERS must be at least 1")
	}
	if c.ChunkOverlap >= c.ChunkSize {
		return errors.New("CHUNK_OVERLAP must be smaller than CHUNK_SIZE")
	}
	return nil
}

func (c *Config) EvictionMaxAge() time.Duration {
	return time.Duration(c.EvictionMaxAgeHours) * time.Hour
}
