package goodreads

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Client scrapes public book pages for the two fields the site exposes
// nowhere else: the ratings count and the shelved genre slugs. The site is
// burst-intolerant, so every request goes through the limiter.
type Client struct {
	httpClient *http.Client
	userAgent  string
	baseURL    string
	limiter    *rate.Limiter
}

var (
	ratingsRe = regexp.MustCompile(`ratings">([0-9,]+)`)
	genresRe  = regexp.MustCompile(`genres/([a-z-]+)`)
)

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

func NewClient(userAgent string, interval time.Duration, opts ...Option) *Client {
	if interval <= 0 {
		interval = 200 * time.Millisecond
	}
	c := &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		userAgent:  userAgent,
		baseURL:    "https://www.goodreads.com",
		limiter:    rate.NewLimiter(rate.Every(interval), 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NumRatings returns the ratings count for a book page, or 0 when the page
// is missing or the pattern is gone.
func (c *Client) NumRatings(ctx context.Context, bookID string) (int, error) {
	html, err := c.fetchBookPage(ctx, bookID)
	if err != nil {
		return 0, err
	}
	m := ratingsRe.FindStringSubmatch(html)
	if m == nil {
		return 0, nil
	}
	n, err := strconv.Atoi(strings.ReplaceAll(m[1], ",", ""))
	if err != nil {
		return 0, nil
	}
	return n, nil
}

// Genres returns the distinct genre slugs linked from a book page, in
// first-seen order.
func (c *Client) Genres(ctx context.Context, bookID string) ([]string, error) {
	html, err := c.fetchBookPage(ctx, bookID)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var genres []string
	for _, m := range genresRe.FindAllStringSubmatch(html, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			genres = append(genres, m[1])
		}
	}
	return genres, nil
}

func (c *Client) fetchBookPage(ctx context.Context, bookID string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/book/show/%s", c.baseURL, bookID), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(body), nil
}
