package bibliocommons

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// portalServer simulates the patron portal login flow: GET serves the login
// form, POST with the right PIN answers with token cookies.
func portalServer(t *testing.T, logins *atomic.Int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/user/login" && r.Method == http.MethodGet:
			http.SetCookie(w, &http.Cookie{Name: "bcfd_s", Value: "guest"})
			_, _ = w.Write([]byte(sampleLoginPage))
		case r.URL.Path == "/user/login" && r.Method == http.MethodPost:
			logins.Add(1)
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "tok-abc123==", r.PostForm.Get("authenticity_token"))
			if r.PostForm.Get("user_pin") != "1234" {
				_, _ = w.Write([]byte(sampleLoginPage))
				return
			}
			http.SetCookie(w, &http.Cookie{Name: "bc_access_token", Value: "atok"})
			http.SetCookie(w, &http.Cookie{Name: "session_id", Value: "sid-1"})
			w.Header().Set("Location", "/v2/holds")
			w.WriteHeader(http.StatusFound)
		case r.URL.Path == "/v2/holds":
			_, _ = w.Write([]byte(sampleHoldsPage))
		default:
			http.NotFound(w, r)
		}
	}))
}

func TestGetSession_LoginAndCache(t *testing.T) {
	var logins atomic.Int32
	srv := portalServer(t, &logins)
	defer srv.Close()

	c := New(srv.URL, srv.URL)
	creds := Credentials{Barcode: "23456000012345", PIN: "1234"}

	session, err := c.GetSession(context.Background(), creds, false)
	require.NoError(t, err)
	assert.Equal(t, "atok", session.AccessToken)
	assert.Equal(t, "sid-1", session.SessionID)
	assert.Contains(t, session.Cookies, "bcfd_s=guest")
	assert.Contains(t, session.Cookies, "bc_access_token=atok")

	// Second call hits the cache, no new login.
	again, err := c.GetSession(context.Background(), creds, false)
	require.NoError(t, err)
	assert.Same(t, session, again)
	assert.Equal(t, int32(1), logins.Load())

	// forceRefresh always logs in again.
	_, err = c.GetSession(context.Background(), creds, true)
	require.NoError(t, err)
	assert.Equal(t, int32(2), logins.Load())
}

func TestGetSession_ExpiredTTLRelogs(t *testing.T) {
	var logins atomic.Int32
	srv := portalServer(t, &logins)
	defer srv.Close()

	c := New(srv.URL, srv.URL, WithSessionTTL(time.Nanosecond))
	creds := Credentials{Barcode: "23456000012345", PIN: "1234"}

	_, err := c.GetSession(context.Background(), creds, false)
	require.NoError(t, err)
	time.Sleep(time.Millisecond)
	_, err = c.GetSession(context.Background(), creds, false)
	require.NoError(t, err)
	assert.Equal(t, int32(2), logins.Load())
}

func TestGetSession_BadPIN(t *testing.T) {
	var logins atomic.Int32
	srv := portalServer(t, &logins)
	defer srv.Close()

	c := New(srv.URL, srv.URL)
	_, err := c.GetSession(context.Background(), Credentials{Barcode: "23456000012345", PIN: "0000"}, false)

	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
}

func TestDiscoverAccountID(t *testing.T) {
	var logins atomic.Int32
	srv := portalServer(t, &logins)
	defer srv.Close()

	c := New(srv.URL, srv.URL)
	accountID, err := c.DiscoverAccountID(context.Background(), "23456000012345", "1234")
	require.NoError(t, err)
	assert.Equal(t, "987654", accountID)

	_, err = c.DiscoverAccountID(context.Background(), "23456000012345", "0000")
	var authErr *AuthError
	assert.ErrorAs(t, err, &authErr)
}

func TestWithAuthRetry_RetriesExactlyOnce(t *testing.T) {
	var logins atomic.Int32
	srv := portalServer(t, &logins)
	defer srv.Close()

	c := New(srv.URL, srv.URL)
	creds := Credentials{Barcode: "23456000012345", PIN: "1234"}

	calls := 0
	err := c.withAuthRetry(context.Background(), creds, func(s *Session) error {
		calls++
		return &AuthError{Status: 401}
	})

	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, 2, calls)
	assert.Equal(t, int32(2), logins.Load())
}

func TestWithAuthRetry_NonAuthErrorNotRetried(t *testing.T) {
	var logins atomic.Int32
	srv := portalServer(t, &logins)
	defer srv.Close()

	c := New(srv.URL, srv.URL)
	creds := Credentials{Barcode: "23456000012345", PIN: "1234"}

	boom := errors.New("network down")
	calls := 0
	err := c.withAuthRetry(context.Background(), creds, func(s *Session) error {
		calls++
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
	assert.Equal(t, int32(1), logins.Load())
}

func TestWithAuthRetry_SuccessAfterRefresh(t *testing.T) {
	var logins atomic.Int32
	srv := portalServer(t, &logins)
	defer srv.Close()

	c := New(srv.URL, srv.URL)
	creds := Credentials{Barcode: "23456000012345", PIN: "1234"}

	calls := 0
	err := c.withAuthRetry(context.Background(), creds, func(s *Session) error {
		calls++
		if calls == 1 {
			return &AuthError{Status: 401}
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestClearSession(t *testing.T) {
	var logins atomic.Int32
	srv := portalServer(t, &logins)
	defer srv.Close()

	c := New(srv.URL, srv.URL)
	creds := Credentials{Barcode: "23456000012345", PIN: "1234"}

	_, err := c.GetSession(context.Background(), creds, false)
	require.NoError(t, err)
	c.ClearSession(creds)
	_, err = c.GetSession(context.Background(), creds, false)
	require.NoError(t, err)
	assert.Equal(t, int32(2), logins.Load())
}
