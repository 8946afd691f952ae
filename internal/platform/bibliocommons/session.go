package bibliocommons

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// GetSession returns a cached session for the credentials, logging in if the
// cache is empty, expired, or forceRefresh is set. Sessions are keyed by
// barcode and live at most the configured TTL; the vendor may still
// invalidate one earlier, which callers handle via the single-retry policy.
func (c *Client) GetSession(ctx context.Context, creds Credentials, forceRefresh bool) (*Session, error) {
	c.mu.Lock()
	cached, ok := c.sessions[creds.Barcode]
	c.mu.Unlock()
	if !forceRefresh && ok && time.Now().Before(cached.expiry) {
		return cached.session, nil
	}

	token, cookies, err := c.fetchLoginPage(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch login page: %w", err)
	}
	session, err := c.login(ctx, token, cookies, creds.Barcode, creds.PIN)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.sessions[creds.Barcode] = cachedSession{session: session, expiry: time.Now().Add(c.sessionTTL)}
	c.mu.Unlock()
	return session, nil
}

// ClearSession evicts the cached session for the credentials. Called after
// any vendor call rejected with an auth error.
func (c *Client) ClearSession(creds Credentials) {
	c.mu.Lock()
	delete(c.sessions, creds.Barcode)
	c.mu.Unlock()
}

// fetchLoginPage loads the login form and returns the authenticity token
// plus the initial cookies.
func (c *Client) fetchLoginPage(ctx context.Context) (token, cookies string, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/user/login?destination=%2Fv2%2Fholds", nil)
	if err != nil {
		return "", "", err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", "", err
	}

	token = extractAuthenticityToken(string(body))
	if token == "" {
		return "", "", errors.New("no authenticity token on login page")
	}
	return token, joinSetCookies(resp.Header.Values("Set-Cookie")), nil
}

// login POSTs the credential form with redirects suppressed and extracts the
// access token and session id from the Set-Cookie headers of the response.
func (c *Client) login(ctx context.Context, token, cookies, barcode, pin string) (*Session, error) {
	form := url.Values{
		"utf8":               {"✓"},
		"authenticity_token": {token},
		"name":               {barcode},
		"user_pin":           {pin},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/user/login?destination=%2Fv2%2Fholds", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Cookie", cookies)
	req.Header.Set("Referer", c.baseURL+"/user/login")

	resp, err := c.noRedirect.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	setCookies := resp.Header.Values("Set-Cookie")
	session := &Session{
		Cookies:   cookies + "; " + joinSetCookies(setCookies),
		ExpiresAt: time.Now().Add(c.sessionTTL),
	}
	for _, sc := range setCookies {
		if v, ok := strings.CutPrefix(sc, "bc_access_token="); ok {
			session.AccessToken = cookieValue(v)
		}
		if v, ok := strings.CutPrefix(sc, "session_id="); ok {
			session.SessionID = cookieValue(v)
		}
	}
	if session.AccessToken == "" {
		// The portal re-rendered the login form instead of redirecting.
		return nil, &AuthError{Status: resp.StatusCode}
	}
	return session, nil
}

// DiscoverAccountID performs a trial login and reads the vendor account id
// from the holds page. Rejected credentials surface as an *AuthError.
func (c *Client) DiscoverAccountID(ctx context.Context, barcode, pin string) (string, error) {
	token, cookies, err := c.fetchLoginPage(ctx)
	if err != nil {
		return "", err
	}
	session, err := c.login(ctx, token, cookies, barcode, pin)
	if err != nil {
		return "", err
	}
	html, err := c.fetchHoldsPage(ctx, session)
	if err != nil {
		return "", err
	}
	if isLoginPage(html) {
		return "", &AuthError{}
	}
	return extractAccountID(html), nil
}

// withAuthRetry runs fn with a cached session and, on an auth rejection,
// clears the cache and retries exactly once with a fresh login. A second
// rejection propagates.
func (c *Client) withAuthRetry(ctx context.Context, creds Credentials, fn func(*Session) error) error {
	session, err := c.GetSession(ctx, creds, false)
	if err != nil {
		return err
	}
	err = fn(session)
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		return err
	}
	c.ClearSession(creds)
	session, err = c.GetSession(ctx, creds, true)
	if err != nil {
		return err
	}
	return fn(session)
}

func joinSetCookies(setCookies []string) string {
	pairs := make([]string, 0, len(setCookies))
	for _, sc := range setCookies {
		pairs = append(pairs, strings.SplitN(sc, ";", 2)[0])
	}
	return strings.Join(pairs, "; ")
}

func cookieValue(rest string) string {
	return strings.SplitN(rest, ";", 2)[0]
}
