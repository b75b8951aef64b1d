package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/personaforge/personad/internal/common"
)

const (
	// Per-URL content cap; responses larger than this are rejected.
	maxContentSize = 1 << 20
	fetchTimeout   = 10 * time.Second
	userAgent      = "personad/1.0"

	batchSeparator = "\n\n---\n\n"
)

// ErrAllFetchesFailed is returned by FetchAll when no URL in the batch
// yielded any text.
var ErrAllFetchesFailed = errors.New("failed to fetch content from all URLs")

// Fetcher retrieves web pages and reduces them to plain text. Fetches are
// bounded by a per-request timeout and a per-URL content size cap.
type Fetcher struct {
	client *http.Client
}

func New() *Fetcher {
	return &Fetcher{client: &http.Client{Timeout: fetchTimeout}}
}

// FetchURL downloads one URL and extracts readable text from its HTML.
func (f *Fetcher) FetchURL(ctx context.Context, url string) (string, error) {
	logger := common.Logger()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("build request for %s: %w", url, err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch %s: HTTP %d", url, resp.StatusCode)
	}

	// Read one byte past the cap so oversized bodies are detectable.
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxContentSize+1))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", url, err)
	}
	if len(body) > maxContentSize {
		return "", fmt.Errorf("fetch %s: content exceeds %d byte limit", url, maxContentSize)
	}

	text := ExtractText(string(body))
	logger.Info("fetcher: url fetched", "url", url, "chars", len(text))
	return text, nil
}

// FetchAll downloads a batch of URLs and combines their extracted text with
// a separator. One URL failing is non-fatal as long as at least one
// succeeds; only a fully failed batch is an error.
func (f *Fetcher) FetchAll(ctx context.Context, urls []string) (string, error) {
	logger := common.Logger()
	var contents []string
	var failures []string
	for _, url := range urls {
		text, err := f.FetchURL(ctx, url)
		if err != nil {
			logger.Warn("fetcher: url failed", "url", url, "error", err)
			failures = append(failures, fmt.Sprintf("%s: %v", url, err))
			continue
		}
		if strings.TrimSpace(text) != "" {
			contents = append(contents, text)
		}
	}
	if len(contents) == 0 {
		return "", fmt.Errorf("%w (%d attempted): %s", ErrAllFetchesFailed, len(urls), strings.Join(failures, "; "))
	}
	logger.Info("fetcher: batch complete", "succeeded", len(contents), "attempted", len(urls))
	return strings.Join(contents, batchSeparator), nil
}

// ExtractText strips markup from an HTML document and returns its visible
// text, one non-empty line per text run. Script and style subtrees are
// skipped entirely. Inputs that fail to parse yield an empty string rather
// than an error; html.Parse is lenient, so this is rare.
func ExtractText(htmlSrc string) string {
	doc, err := html.Parse(strings.NewReader(htmlSrc))
	if err != nil {
		common.Logger().Warn("fetcher: html parse failed", "error", err)
		return ""
	}
	var lines []string
	var traverse func(*html.Node)
	traverse = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		if n.Type == html.TextNode {
			if trimmed := strings.TrimSpace(n.Data); trimmed != "" {
				lines = append(lines, trimmed)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			traverse(c)
		}
	}
	traverse(doc)
	return strings.Join(lines, "\n")
}
