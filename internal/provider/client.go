package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/singleflight"

	"github.com/pders01/pixl/internal/config"
	"github.com/pders01/pixl/internal/debuglog"
)

const (
	defaultUserAgent = "pixl/1.0 (image search; github.com/pders01/pixl)"
	defaultTimeout   = 15 * time.Second

	// MaxQueryLength is the provider's limit on the q parameter.
	MaxQueryLength = 100

	minPerPage = 3
	maxPerPage = 200

	errorBodyLimit = 512
)

// Fetcher is the remote fetch contract the gallery depends on. The page
// size is fixed by the implementation's configuration.
type Fetcher interface {
	FetchImages(ctx context.Context, query string, page int) (*Result, error)
}

// Client talks to a Pixabay-compatible search endpoint.
type Client struct {
	client  *http.Client
	cfg     config.ProviderConfig
	perPage int
	group   singleflight.Group
}

func NewClient(cfg config.ProviderConfig) *Client {
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}

	return &Client{
		client: &http.Client{
			Timeout: timeout,
		},
		cfg:     cfg,
		perPage: clampPerPage(cfg.PerPage),
	}
}

// PerPage reports the page size sent with every request.
func (c *Client) PerPage() int {
	return c.perPage
}

func clampPerPage(n int) int {
	switch {
	case n <= 0:
		return 12
	case n < minPerPage:
		return minPerPage
	case n > maxPerPage:
		return maxPerPage
	default:
		return n
	}
}

// FetchImages requests one page of hits for query. Concurrent calls for
// the same query and page share a single HTTP round trip.
func (c *Client) FetchImages(ctx context.Context, query string, page int) (*Result, error) {
	query = strings.TrimSpace(query)
	switch {
	case query == "":
		return nil, &Error{Kind: KindProvider, Message: "query cannot be empty"}
	case utf8.RuneCountInString(query) > MaxQueryLength:
		return nil, &Error{Kind: KindProvider, Message: fmt.Sprintf("query too long (max %d characters)", MaxQueryLength)}
	case page < 1:
		return nil, &Error{Kind: KindProvider, Message: fmt.Sprintf("invalid page %d", page)}
	case c.cfg.APIKey == "":
		return nil, &Error{Kind: KindProvider, Message: "missing API key (set provider.api_key or " + config.APIKeyEnv + ")"}
	}

	key := query + "\x00" + strconv.Itoa(page)
	ch := c.group.DoChan(key, func() (interface{}, error) {
		return c.fetch(ctx, query, page)
	})

	select {
	case <-ctx.Done():
		return nil, &Error{Kind: KindNetwork, Message: "request canceled", Err: ctx.Err()}
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		shared := res.Val.(*Result)
		out := *shared
		out.Hits = append([]Hit(nil), shared.Hits...)
		return &out, nil
	}
}

func (c *Client) requestURL(query string, page int) (string, error) {
	base, err := url.Parse(c.cfg.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parsing base URL: %w", err)
	}

	q := base.Query()
	q.Set("key", c.cfg.APIKey)
	q.Set("q", query)
	q.Set("page", strconv.Itoa(page))
	q.Set("per_page", strconv.Itoa(c.perPage))
	if c.cfg.ImageType != "" {
		q.Set("image_type", c.cfg.ImageType)
	}
	if c.cfg.Orientation != "" {
		q.Set("orientation", c.cfg.Orientation)
	}
	q.Set("safesearch", strconv.FormatBool(c.cfg.SafeSearch))
	base.RawQuery = q.Encode()

	return base.String(), nil
}

func (c *Client) fetch(ctx context.Context, query string, page int) (*Result, error) {
	log := debuglog.WithFields(map[string]interface{}{
		"component": "provider",
		"query":     query,
		"page":      page,
	})

	reqURL, err := c.requestURL(query, page)
	if err != nil {
		return nil, &Error{Kind: KindProvider, Message: "invalid provider URL", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, &Error{Kind: KindProvider, Message: "creating request", Err: err}
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		log.Warnf("fetch failed: %v", err)
		return nil, &Error{Kind: KindNetwork, Message: "fetching images", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
		perr := &Error{
			Kind:       KindHTTP,
			StatusCode: resp.StatusCode,
			Message:    httpErrorMessage(resp.StatusCode, body),
			RetryAfter: retryAfter(resp),
		}
		log.Warnf("provider returned %d", resp.StatusCode)
		return nil, perr
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &Error{Kind: KindDecode, Message: "decoding response", Err: err}
	}
	if result.TotalHits < 0 {
		return nil, &Error{Kind: KindDecode, Message: fmt.Sprintf("negative totalHits %d", result.TotalHits)}
	}

	log.Debugf("fetched %d hits of %d in %s", len(result.Hits), result.TotalHits, time.Since(start))
	return &result, nil
}

func httpErrorMessage(status int, body []byte) string {
	msg := strings.TrimSpace(string(body))
	if msg == "" || !utf8.Valid(body) {
		return http.StatusText(status)
	}
	return msg
}

// retryAfter parses a Retry-After header given in seconds. Zero means absent.
func retryAfter(resp *http.Response) time.Duration {
	if v := resp.Header.Get("Retry-After"); v != "" {
		if seconds, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && seconds > 0 {
			return time.Duration(seconds) * time.Second
		}
	}
	return 0
}

// IsKind reports whether err is a provider Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var perr *Error
	return errors.As(err, &perr) && perr.Kind == kind
}
