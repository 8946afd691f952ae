package openlibrary

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

type Client struct {
	httpClient *http.Client
	userAgent  string
	baseURL    string
	limiter    *rate.Limiter
	maxRetries int
}

func NewClient(userAgent string, rps int, maxRetries int) *Client {
	if rps < 1 {
		rps = 1
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		userAgent:  userAgent,
		baseURL:    "https://openlibrary.org",
		limiter:    rate.NewLimiter(rate.Every(time.Second/time.Duration(rps)), 1),
		maxRetries: maxRetries,
	}
}

// SearchResponse matches search.json
type SearchResponse struct {
	NumFound int `json:"numFound"`
	Docs     []struct {
		Key              string   `json:"key"`
		Title            string   `json:"title"`
		AuthorNames      []string `json:"author_name"`
		ISBN             []string `json:"isbn"`
		FirstPublishYear int      `json:"first_publish_year"`
		Language         []string `json:"language"`
	} `json:"docs"`
}

// BookDetails matches api/books?jscmd=data
type BookDetails struct {
	Title       string `json:"title"`
	Subtitle    string `json:"subtitle"`
	PublishDate string `json:"publish_date"`
	ByStatement string `json:"by_statement"`
	Notes       string `json:"notes"`
	Authors     []struct {
		URL  string `json:"url"`
		Name string `json:"name"`
	} `json:"authors"`
}

// BookSummary is the resolved subset used when adding a book by hand.
type BookSummary struct {
	Title       string
	Author      string
	ISBN        string
	ISBN13      string
	PublishYear int
}

var yearRe = regexp.MustCompile(`\d{4}`)

// "translated by John Woods", "translated from the German by ..."
var translatorRe = regexp.MustCompile(`(?i)translated (?:from [^;,.]+? )?by ([^;,.(]+)`)

// LookupISBN resolves a single ISBN into a book summary, or nil when Open
// Library has no record for it.
func (c *Client) LookupISBN(ctx context.Context, isbn string) (*BookSummary, error) {
	details, err := c.GetBookByISBN(ctx, isbn)
	if err != nil {
		return nil, err
	}
	if details == nil {
		return nil, nil
	}

	summary := &BookSummary{
		Title:  details.Title,
		Author: "Unknown Author",
	}
	if summary.Title == "" {
		summary.Title = "Unknown Title"
	}
	if len(details.Authors) > 0 {
		summary.Author = details.Authors[0].Name
	}
	switch len(isbn) {
	case 13:
		summary.ISBN13 = isbn
	case 10:
		summary.ISBN = isbn
	}
	if m := yearRe.FindString(details.PublishDate); m != "" {
		summary.PublishYear, _ = strconv.Atoi(m)
	}
	return summary, nil
}

// LookupKeyword resolves a free-text query into the top search hit, or nil
// when nothing matches.
func (c *Client) LookupKeyword(ctx context.Context, keyword string) (*BookSummary, error) {
	u := fmt.Sprintf("%s/search.json?q=%s&limit=1", c.baseURL, url.QueryEscape(keyword))

	var res SearchResponse
	if err := c.get(ctx, u, &res); err != nil {
		return nil, err
	}
	if len(res.Docs) == 0 {
		return nil, nil
	}

	doc := res.Docs[0]
	summary := &BookSummary{
		Title:       doc.Title,
		Author:      "Unknown Author",
		PublishYear: doc.FirstPublishYear,
	}
	if summary.Title == "" {
		summary.Title = "Unknown Title"
	}
	if len(doc.AuthorNames) > 0 {
		summary.Author = doc.AuthorNames[0]
	}
	for _, isbn := range doc.ISBN {
		if len(isbn) == 13 && summary.ISBN13 == "" {
			summary.ISBN13 = isbn
		}
		if len(isbn) == 10 && summary.ISBN == "" {
			summary.ISBN = isbn
		}
	}
	return summary, nil
}

// FirstPublishYear returns the first publish year for a title/author pair,
// or 0 when unknown.
func (c *Client) FirstPublishYear(ctx context.Context, title, author string) (int, error) {
	u := fmt.Sprintf("%s/search.json?q=%s&limit=1", c.baseURL, url.QueryEscape(title+" "+author))

	var res SearchResponse
	if err := c.get(ctx, u, &res); err != nil {
		return 0, err
	}
	if len(res.Docs) == 0 {
		return 0, nil
	}
	return res.Docs[0].FirstPublishYear, nil
}

// Translator extracts a translator name from the edition's by-statement or
// notes via the "translated by ..." phrase. Best effort: "" when absent.
func (c *Client) Translator(ctx context.Context, isbn string) (string, error) {
	details, err := c.GetBookByISBN(ctx, isbn)
	if err != nil {
		return "", err
	}
	if details == nil {
		return "", nil
	}
	for _, text := range []string{details.ByStatement, details.Notes} {
		if m := translatorRe.FindStringSubmatch(text); m != nil {
			return strings.TrimSpace(m[1]), nil
		}
	}
	return "", nil
}

// GetBookByISBN fetches edition data for one ISBN; nil when unknown.
func (c *Client) GetBookByISBN(ctx context.Context, isbn string) (*BookDetails, error) {
	u := fmt.Sprintf("%s/api/books?bibkeys=ISBN:%s&jscmd=data&format=json", c.baseURL, url.QueryEscape(isbn))

	var res map[string]BookDetails
	if err := c.get(ctx, u, &res); err != nil {
		return nil, err
	}
	details, ok := res["ISBN:"+isbn]
	if !ok {
		return nil, nil
	}
	return &details, nil
}

func (c *Client) get(ctx context.Context, url string, target any) error {
	var lastErr error
	for i := 0; i <= c.maxRetries; i++ {
		if i > 0 {
			// Backoff: 1s, 2s, 4s...
			backoff := time.Duration(1<<uint(i-1)) * time.Second
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		req.Header.Set("User-Agent", c.userAgent)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
				lastErr = fmt.Errorf("unexpected status code: %d", resp.StatusCode)
				continue
			}
			return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
		}

		err = json.NewDecoder(resp.Body).Decode(target)
		resp.Body.Close()
		return err
	}
	return fmt.Errorf("after %d retries: %w", c.maxRetries, lastErr)
}
