package search

import (
	"encoding/json"
	"regexp"
	"strings"
)

var (
	urlPattern        = regexp.MustCompile(`https?://[^\s)\]>"'` + "`" + `]+`)
	sourceLinePattern = regexp.MustCompile(`(?m)^\s*\*\s+<?https?://\S+>?\s*$`)
)

// unwrapContent handles models that wrap their answer in a JSON object even
// when asked for plain text.
func unwrapContent(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "{") {
		return trimmed
	}
	var wrapped struct {
		Content string `json:"content"`
	}
	if err := json.Unmarshal([]byte(trimmed), &wrapped); err == nil && wrapped.Content != "" {
		return strings.TrimSpace(wrapped.Content)
	}
	return trimmed
}

// verifyCitations parses the raw model output for URL-shaped citations and
// keeps only those present in contextURLs, in order of first appearance,
// capped at maxSources. The returned summary has the trailing source-list
// lines stripped; an output citing nothing verifiable yields an empty source
// list, which is not an error.
func verifyCitations(raw string, contextURLs map[string]bool, maxSources int) (string, []string) {
	content := unwrapContent(raw)

	cited := make([]string, 0, maxSources)
	seen := make(map[string]bool)
	for _, match := range urlPattern.FindAllString(content, -1) {
		url := strings.TrimRight(match, ".,;:!?>")
		if !contextURLs[url] || seen[url] {
			continue
		}
		seen[url] = true
		cited = append(cited, url)
		if len(cited) == maxSources {
			break
		}
	}

	summary := sourceLinePattern.ReplaceAllString(content, "")
	return strings.TrimSpace(summary), cited
}
