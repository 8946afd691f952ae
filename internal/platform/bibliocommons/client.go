package bibliocommons

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"
)

const userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36"

const defaultSessionTTL = 30 * time.Minute

// TranslatorSource looks up a best-effort translator name for an ISBN.
// Lookups are pure enrichment; any failure degrades to "".
type TranslatorSource interface {
	Translator(ctx context.Context, isbn string) (string, error)
}

// Client talks to a BiblioCommons-hosted library: the public gateway API for
// search/availability and the patron-facing portal for login and holds.
type Client struct {
	baseURL    string // patron portal, e.g. https://acl.bibliocommons.com
	gatewayURL string // gateway API, e.g. https://gateway.bibliocommons.com/v2/libraries/acl

	branchName      string // branch the availability flag is tracked for
	defaultBranchID string // pickup branch for holds

	httpClient *http.Client
	// Login POSTs must not follow the redirect: the Set-Cookie headers of
	// the 302 carry the tokens.
	noRedirect *http.Client

	translators TranslatorSource

	sessionTTL time.Duration
	mu         sync.Mutex
	sessions   map[string]cachedSession
}

type cachedSession struct {
	session *Session
	expiry  time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTranslatorSource enables translator enrichment on edition searches.
func WithTranslatorSource(ts TranslatorSource) Option {
	return func(c *Client) { c.translators = ts }
}

// WithSessionTTL overrides the 30-minute session cache TTL.
func WithSessionTTL(ttl time.Duration) Option {
	return func(c *Client) {
		if ttl > 0 {
			c.sessionTTL = ttl
		}
	}
}

// WithBranch sets the branch name used for the branch-availability flag and
// the default pickup branch id for holds.
func WithBranch(name, branchID string) Option {
	return func(c *Client) {
		if name != "" {
			c.branchName = name
		}
		if branchID != "" {
			c.defaultBranchID = branchID
		}
	}
}

// New creates a catalog client for one library system.
func New(baseURL, gatewayURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:         strings.TrimRight(baseURL, "/"),
		gatewayURL:      strings.TrimRight(gatewayURL, "/"),
		branchName:      "Squirrel Hill (CLP)",
		defaultBranchID: "YQ",
		httpClient:      &http.Client{Timeout: 15 * time.Second},
		sessionTTL:      defaultSessionTTL,
		sessions:        make(map[string]cachedSession),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.noRedirect = &http.Client{
		Timeout:   c.httpClient.Timeout,
		Transport: c.httpClient.Transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return c
}
