package enrichment

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// URLBuilder derives the article URL for a place deterministically from its
// name and country. First-match strategy: no fallback for redirected or
// disambiguation pages; seed files can pin an explicit article title instead.
type URLBuilder struct {
	baseURL string
}

func NewURLBuilder(baseURL string) *URLBuilder {
	return &URLBuilder{baseURL: strings.TrimRight(baseURL, "/")}
}

func (b *URLBuilder) Run(name, country, titleOverride string) string {
	title := titleOverride
	if title == "" {
		title = fmt.Sprintf("%s, %s", name, country)
	}

	title = foldDiacritics(title)
	title = strings.ReplaceAll(title, " ", "_")

	return b.baseURL + "/" + url.PathEscape(title)
}

// foldDiacritics strips combining marks so accented place names produce
// ASCII-safe article titles
func foldDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return folded
}

// PageFetcher retrieves article HTML with a bounded timeout. HTTP status
// codes that map to enrichment error codes are tagged here so the classifier
// does not depend on message text for provider failures.
type PageFetcher struct {
	httpClient *http.Client
	userAgent  string
	timeout    time.Duration
}

func NewPageFetcher(httpClient *http.Client, userAgent string, timeout time.Duration) *PageFetcher {
	return &PageFetcher{
		httpClient: httpClient,
		userAgent:  userAgent,
		timeout:    timeout,
	}
}

func (f *PageFetcher) Run(ctx context.Context, pageURL string) ([]byte, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		if timeoutCtx.Err() == context.DeadlineExceeded {
			return nil, WithCode(CodeTimeout, fmt.Errorf("fetch timed out after %s: %w", f.timeout, err))
		}
		return nil, WithCode(CodeNetworkError, fmt.Errorf("failed to fetch page: %w", err))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusNotFound:
		return nil, WithCode(CodeWikipediaNotFound, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status))
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, WithCode(CodeRateLimited, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status))
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, WithCode(CodeAuthFailed, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status))
	default:
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.Contains(strings.ToLower(contentType), "text/html") {
		return nil, fmt.Errorf("content type is not HTML: %s", contentType)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, WithCode(CodeNetworkError, fmt.Errorf("failed to read response body: %w", err))
	}

	return data, nil
}
