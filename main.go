package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"lookout/features/history"
	"lookout/features/search"
	"lookout/features/stats"
	"lookout/internal/adapter/crawl4ai"
	"lookout/internal/adapter/gemini"
	"lookout/internal/adapter/searx"
	wstore "lookout/internal/adapter/weaviate"
	"lookout/internal/config"
	"lookout/internal/crawl"
	"lookout/internal/index"
	"lookout/internal/logger"
	"lookout/internal/middleware"
	"lookout/internal/text"
	"lookout/internal/vector"
	"lookout/internal/worker"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"github.com/nsqio/go-nsq"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
)

// runRecorder bridges the orchestrator's run trace to the history table.
type runRecorder struct {
	repo *history.PostgresRepo
}

func (r *runRecorder) Save(ctx context.Context, rec search.RunRecord) error {
	return r.repo.Save(ctx, &history.Record{
		QueryID:     rec.QueryID,
		Query:       rec.Query,
		SourceCount: rec.SourceCount,
		ChunkCount:  rec.ChunkCount,
		Degraded:    rec.Degraded,
		LatencyMs:   rec.LatencyMs,
	})
}

func main() {
	// Structured logger stamping the request correlation id on every record
	slogHandler := logger.NewContextHandler(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(slog.New(slogHandler))

	// 1. Load Config
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// 2. Database Connection
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPass, cfg.DBName)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		slog.Error("failed to open db connection", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	retryDelay := time.Duration(cfg.BootstrapRetryDelaySeconds) * time.Second
	for i := 0; i < cfg.BootstrapRetryAttempts; i++ {
		if err := db.Ping(); err == nil {
			break
		}
		slog.Warn("failed to ping db, retrying...", "attempt", i+1, "max_attempts", cfg.BootstrapRetryAttempts)
		time.Sleep(retryDelay)
	}
	if err := db.Ping(); err != nil {
		slog.Error("failed to ping db after retries", "error", err)
		os.Exit(1)
	}

	// 3. Run Migrations
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		slog.Error("failed to create migration driver", "error", err)
		os.Exit(1)
	}
	m, err := migrate.NewWithDatabaseInstance(cfg.MigrationPath, "postgres", driver)
	if err != nil {
		slog.Error("failed to create migration instance", "error", err)
		os.Exit(1)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("migrations applied successfully")

	// 4. Weaviate Connection & Schema
	wCfg := weaviate.Config{
		Host:   cfg.WeaviateHost,
		Scheme: cfg.WeaviateScheme,
	}
	wClient, err := weaviate.NewClient(wCfg)
	if err != nil {
		slog.Error("failed to create weaviate client", "error", err)
		os.Exit(1)
	}

	wAdapter := vector.NewWeaviateClientAdapter(wClient)
	for i := 0; i < cfg.BootstrapRetryAttempts; i++ {
		if err := vector.EnsureSchema(context.Background(), wAdapter); err == nil {
			slog.Info("weaviate schema ensured")
			break
		}
		slog.Warn("failed to ensure weaviate schema, retrying...", "attempt", i+1, "error", err)
		time.Sleep(retryDelay)
	}
	if err := vector.EnsureSchema(context.Background(), wAdapter); err != nil {
		slog.Error("failed to ensure weaviate schema after retries", "error", err)
		os.Exit(1)
	}

	// 5. Adapters
	vecStore := wstore.NewStore(wClient)

	embedder, err := gemini.NewEmbedder(context.Background(), cfg.GeminiAPIKey)
	if err != nil {
		slog.Error("failed to create gemini embedder", "error", err)
		os.Exit(1)
	}
	defer embedder.Close()

	generator, err := gemini.NewGenerator(context.Background(), cfg.GeminiAPIKey)
	if err != nil {
		slog.Error("failed to create gemini generator", "error", err)
		os.Exit(1)
	}
	defer generator.Close()

	// Embedding runs on a dedicated pool so model calls never block request
	// admission.
	embedPool := worker.NewEmbedPool(embedder, cfg.EmbedWorkers, cfg.EmbedQueue)
	defer embedPool.Close()

	indexService := index.NewService(embedPool, vecStore)

	searxClient := searx.NewClient(cfg.SearxURL, cfg.SearchTimeout, cfg.SearchConnectTimeout)
	crawlClient := crawl4ai.NewClient(cfg.CrawlURL, cfg.CrawlConnectTimeout, cfg.CrawlMaxConns, cfg.CrawlRate)
	// The admission gate is global: one cap shared by every concurrent
	// request, protecting the crawl backend.
	coordinator := crawl.NewCoordinator(crawlClient, cfg.CrawlConcurrency, cfg.CrawlTimeout)

	// NSQ Producer (background index maintenance)
	nsqCfg := nsq.NewConfig()
	nsqProducer, err := nsq.NewProducer(cfg.NSQDHost, nsqCfg)
	if err != nil {
		slog.Error("failed to create NSQ producer", "error", err)
		os.Exit(1)
	}

	// NSQ creates topics lazily on publish, but consumers querying lookupd
	// fail 404 until then; pre-create over the nsqd http api.
	topicURL := fmt.Sprintf("http://%s/topic/create?topic=%s", cfg.NSQDHTTP, config.TopicIndexMaintenance)
	go func() {
		time.Sleep(retryDelay)
		resp, err := http.Post(topicURL, "application/json", nil)
		if err != nil {
			slog.Warn("failed to pre-create maintenance topic", "error", err, "url", topicURL)
			return
		}
		defer resp.Body.Close()
		if resp.StatusCode == 200 {
			slog.Info("maintenance topic pre-created successfully")
		}
	}()

	// Feature: History
	historyRepo := history.NewPostgresRepo(db)
	historyHandler := history.NewHandler(historyRepo)

	// Feature: Search
	queryLogger, err := search.NewFileQueryLogger(cfg.QueryLogPath)
	if err != nil {
		slog.Warn("failed to create query logger, falling back to stdout", "error", err)
		queryLogger = search.NewQueryLogger(os.Stdout)
	}

	chunker := text.NewChunker(cfg.ChunkSize, cfg.ChunkOverlap)
	searchService := search.NewService(
		searxClient,
		coordinator,
		indexService,
		generator,
		nsqProducer,
		&runRecorder{repo: historyRepo},
		chunker,
		queryLogger,
		search.Options{
			SearchResults:    cfg.SearchResults,
			CrawlTopN:        cfg.CrawlTopN,
			MinDocumentChars: cfg.MinDocumentChars,
			MinChunkChars:    cfg.MinChunkChars,
			RetrievalTopK:    cfg.RetrievalTopK,
			MaxCitedSources:  cfg.MaxCitedSources,
		},
	)
	searchHandler := search.NewHandler(searchService)

	// Feature: Stats
	statsHandler := stats.NewHandler(indexService)

	// Worker (Maintenance Consumer)
	maintenance := worker.NewMaintenanceConsumer(indexService, cfg.EvictionThreshold, cfg.EvictionMaxAge())
	consumer, err := nsq.NewConsumer(config.TopicIndexMaintenance, "backend", nsq.NewConfig())
	if err != nil {
		slog.Error("failed to create NSQ maintenance consumer", "error", err)
	} else {
		consumer.AddHandler(nsq.HandlerFunc(func(m *nsq.Message) error {
			return maintenance.HandleMessage(m)
		}))
		if err := consumer.ConnectToNSQLookupd(cfg.NSQLookupd); err != nil {
			slog.Error("failed to connect to NSQLookupd", "error", err)
		} else {
			slog.Info("NSQ maintenance consumer connected")
		}
	}

	// Middleware: CORS
	enableCORS := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}
			next(w, r)
		}
	}

	// Routes
	http.Handle("POST /search", middleware.CorrelationID(enableCORS(searchHandler.Search)))
	http.Handle("POST /search/context", middleware.CorrelationID(enableCORS(searchHandler.SearchContext)))
	http.Handle("GET /stats", middleware.CorrelationID(enableCORS(statsHandler.GetStats)))
	http.Handle("POST /cleanup", middleware.CorrelationID(enableCORS(statsHandler.Cleanup)))
	http.Handle("GET /searches", middleware.CorrelationID(enableCORS(historyHandler.List)))

	http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	slog.Info("server starting", "port", cfg.ServerPort)
	if err := http.ListenAndServe(fmt.Sprintf(":%d", cfg.ServerPort), nil); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}
