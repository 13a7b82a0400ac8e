package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"
	"github.com/mkale/sleuth/config"
	"github.com/rs/zerolog"
)

const (
	searchTimeout   = 30 * time.Second
	scrapeTimeout   = 60 * time.Second
	downloadTimeout = 90 * time.Second

	// scrapeContentLimit bounds the extracted text fed back to the model.
	scrapeContentLimit = 12000
)

var binaryExtensions = []string{".pdf", ".xlsx", ".xls"}

// BrightData is the shared client behind the three capabilities. All calls
// go through the Bright Data request API with a zone per product.
type BrightData struct {
	httpClient *http.Client
	apiBase    string
	token      string
	cfg        config.BrightDataConfig
	download   config.DownloadConfig
	logger     zerolog.Logger
}

// NewBrightData builds the client. The API token comes from the
// BRIGHT_DATA_API_TOKEN environment variable.
func NewBrightData(cfg *config.Config, logger zerolog.Logger) *BrightData {
	return &BrightData{
		httpClient: &http.Client{},
		apiBase:    cfg.BrightData.APIBase,
		token:      os.Getenv("BRIGHT_DATA_API_TOKEN"),
		cfg:        cfg.BrightData,
		download:   cfg.Download,
		logger:     logger.With().Str("component", "brightdata").Logger(),
	}
}

// request proxies one URL through the named zone and returns the raw body
// and content type.
func (bd *BrightData) request(ctx context.Context, zone, targetURL string, timeout time.Duration) ([]byte, string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	payload, err := json.Marshal(map[string]any{
		"zone":   zone,
		"url":    targetURL,
		"format": "raw",
	})
	if err != nil {
		return nil, "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, bd.apiBase, bytes.NewReader(payload))
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("Authorization", "Bearer "+bd.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := bd.httpClient.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", err
	}
	if resp.StatusCode >= 400 {
		return nil, "", fmt.Errorf("bright data API returned status %d", resp.StatusCode)
	}
	return body, resp.Header.Get("Content-Type"), nil
}

// ── search ──────────────────────────────────────────────────────────────

// SearchTool runs a SERP query and returns organic results.
type SearchTool struct {
	bd *BrightData
}

func (t *SearchTool) Name() string { return "search" }
func (t *SearchTool) Description() string {
	return "Searches Google and returns organic results. Args: query (string)."
}

func (t *SearchTool) Execute(ctx context.Context, args map[string]any) (map[string]any, error) {
	query, _ := args["query"].(string)
	target := fmt.Sprintf("https://www.google.com/search?q=%s&num=10", url.QueryEscape(query))

	body, contentType, err := t.bd.request(ctx, t.bd.cfg.SerpZone, target, searchTimeout)
	if err != nil {
		t.bd.logger.Error().Err(err).Str("query", query).Msg("SERP search failed")
		return map[string]any{"error": err.Error(), "results": []any{}}, nil
	}

	var data struct {
		Organic []struct {
			Title       string `json:"title"`
			Link        string `json:"link"`
			URL         string `json:"url"`
			Description string `json:"description"`
			Snippet     string `json:"snippet"`
		} `json:"organic"`
	}
	if strings.HasPrefix(contentType, "application/json") {
		if err := json.Unmarshal(body, &data); err != nil {
			data.Organic = nil
		}
	}

	results := make([]map[string]any, 0, 10)
	for i, item := range data.Organic {
		if i >= 10 {
			break
		}
		link := item.Link
		if link == "" {
			link = item.URL
		}
		snippet := item.Description
		if snippet == "" {
			snippet = item.Snippet
		}
		results = append(results, map[string]any{"title": item.Title, "url": link, "snippet": snippet})
	}

	if len(results) == 0 && len(body) > 0 {
		return map[string]any{
			"results": []any{},
			"note":    "SERP returned HTML instead of structured data. Try a different query.",
		}, nil
	}
	return map[string]any{"results": results}, nil
}

// ── scrape_page ─────────────────────────────────────────────────────────

// ScrapePageTool fetches a page through the Web Unlocker and reduces HTML
// to readable text.
type ScrapePageTool struct {
	bd *BrightData
}

func (t *ScrapePageTool) Name() string { return "scrape_page" }
func (t *ScrapePageTool) Description() string {
	return "Fetches a web page as clean readable text. Args: url (string)."
}

func (t *ScrapePageTool) Execute(ctx context.Context, args map[string]any) (map[string]any, error) {
	pageURL, _ := args["url"].(string)

	body, contentType, err := t.bd.request(ctx, t.bd.cfg.WebUnlockerZone, pageURL, scrapeTimeout)
	if err != nil {
		t.bd.logger.Error().Err(err).Str("url", pageURL).Msg("scrape failed")
		return map[string]any{"error": err.Error(), "url": pageURL, "content": ""}, nil
	}

	content := string(body)
	if strings.Contains(contentType, "html") || strings.HasPrefix(strings.TrimSpace(content), "<") {
		content = extractReadableText(body, pageURL)
	}
	if len(content) > scrapeContentLimit {
		content = content[:scrapeContentLimit]
	}
	return map[string]any{"url": pageURL, "content": content, "content_type": contentType}, nil
}

// extractReadableText strips markup, scripts, and navigation chrome.
// Falls back to the raw body when article extraction fails.
func extractReadableText(body []byte, pageURL string) string {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		parsed = &url.URL{}
	}
	article, err := readability.FromReader(bytes.NewReader(body), parsed)
	if err != nil || article.TextContent == "" {
		return string(body)
	}
	lines := strings.Split(article.TextContent, "\n")
	kept := lines[:0]
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

// ── download_file ───────────────────────────────────────────────────────

// DownloadFileTool fetches a file through the Web Unlocker and saves it
// under the configured download dir, then runs content inspection.
type DownloadFileTool struct {
	bd *BrightData
}

func (t *DownloadFileTool) Name() string { return "download_file" }
func (t *DownloadFileTool) Description() string {
	return "Downloads a file to disk and returns its metadata. Args: url (string), filename (string)."
}

func (t *DownloadFileTool) Execute(ctx context.Context, args map[string]any) (map[string]any, error) {
	fileURL, _ := args["url"].(string)
	filename, _ := args["filename"].(string)

	requested := strings.TrimSpace(filename)
	if requested == "" {
		return map[string]any{
			"url": fileURL, "filename": filename,
			"error":   "Filename is required.",
			"success": false,
		}, nil
	}
	// Bare filenames only, never paths.
	if filepath.Base(requested) != requested || requested == "." || requested == ".." {
		return map[string]any{
			"url": fileURL, "filename": filename,
			"error":   "Invalid filename. Provide a basename only, without directories.",
			"success": false,
		}, nil
	}

	if err := os.MkdirAll(t.bd.download.BaseDir, 0o755); err != nil {
		return nil, err
	}
	destPath := filepath.Join(t.bd.download.BaseDir, requested)

	// Filename embedded in the URL, kept for the model's verification.
	urlFilename := ""
	if parsed, err := url.Parse(fileURL); err == nil && parsed.Path != "" {
		urlFilename = filepath.Base(parsed.Path)
	}

	body, contentType, err := t.bd.request(ctx, t.bd.cfg.WebUnlockerZone, fileURL, downloadTimeout)
	if err != nil {
		t.bd.logger.Error().Err(err).Str("url", fileURL).Msg("download failed")
		return map[string]any{
			"url": fileURL, "filename": requested,
			"error":   err.Error(),
			"success": false,
		}, nil
	}

	// An HTML response where a binary file was expected means the URL
	// points at a page, not the document.
	if hasBinaryExtension(requested) && strings.Contains(strings.ToLower(contentType), "html") {
		return map[string]any{
			"url": fileURL, "filename": requested,
			"error": fmt.Sprintf("URL returned HTML (content-type: %s) instead of the expected file. "+
				"This URL likely points to a web page, not a downloadable file. "+
				"Try finding the direct download link.", contentType),
			"success": false,
		}, nil
	}

	if err := os.WriteFile(destPath, body, 0o644); err != nil {
		return nil, err
	}

	result := map[string]any{
		"url":          fileURL,
		"filename":     requested,
		"path":         destPath,
		"size_bytes":   int64(len(body)),
		"content_type": contentType,
		"url_filename": urlFilename,
		"success":      true,
	}
	inspectDownload(destPath, requested, result)
	return result, nil
}

func hasBinaryExtension(name string) bool {
	lower := strings.ToLower(name)
	for _, ext := range binaryExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}
