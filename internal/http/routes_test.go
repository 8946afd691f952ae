package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"libtrack/internal/auth"
	"libtrack/internal/entity"
	"libtrack/internal/testutil"
)

func newTestRouter(t *testing.T) *http.ServeMux {
	t.Helper()
	users := &testutil.FakeUserRepository{
		GetByIDFn: func(ctx context.Context, id string) (entity.User, error) {
			return testutil.TestUser, nil
		},
	}
	h := Handlers{
		Users:           NewUserHandler(users, &testutil.FakeSessionRepository{}, &fakeLibraryAuth{}, testSecret),
		Books:           newBookHandler(nil, nil, nil),
		Library:         NewLibraryHandler(&fakeCatalogGateway{}, users),
		Recommendations: NewRecommendationHandler(&fakeRecommendationRepo{}),
		Finished:        NewFinishedHandler(&fakeFinishedRepo{}),
		Plank:           NewPlankHandler(&fakePlankRepo{}),
	}
	return NewRouter(h, testSecret)
}

func bearerToken(t *testing.T) string {
	t.Helper()
	token, err := auth.GenerateToken(testSecret, testutil.TestUser.ID, "USER", time.Minute)
	require.NoError(t, err)
	return "Bearer " + token
}

func TestRouter_ProtectedRoutesRequireToken(t *testing.T) {
	router := newTestRouter(t)

	for _, target := range []string{"/me", "/books", "/library/holds", "/recommendations", "/finished"} {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, target)
	}
}

func TestRouter_RejectsBadToken(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_GetCurrentUser(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", bearerToken(t))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	data := successData(t, rec)
	assert.Equal(t, testutil.TestUser.ID, data["id"])
	assert.Equal(t, testutil.TestUser.Email, data["email"])
}

func TestRouter_PlankRoutesAreOpen(t *testing.T) {
	router := newTestRouter(t)

	for _, target := range []string{"/plank/users", "/plank/leaderboard", "/plank/history"} {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, target)
	}
}

func TestRouter_MethodNotAllowed(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodDelete, "/users/login", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "METHOD_NOT_ALLOWED", decodeError(t, rec).Error.Code)
}

func TestRouter_BookSubroutes(t *testing.T) {
	router := newTestRouter(t)

	tests := []struct {
		method string
		target string
		status int
	}{
		{http.MethodGet, "/books/genres", http.StatusOK},
		{http.MethodPost, "/books/genres", http.StatusMethodNotAllowed},
		{http.MethodPost, "/books/12345/pin", http.StatusOK},
		{http.MethodGet, "/books/12345/pin", http.StatusMethodNotAllowed},
		{http.MethodGet, "/books/12345/unknown", http.StatusNotFound},
		{http.MethodDelete, "/books/12345", http.StatusNoContent},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(tt.method, tt.target, nil)
		req.Header.Set("Authorization", bearerToken(t))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, tt.status, rec.Code, "%s %s", tt.method, tt.target)
	}
}

func TestRouter_IntIDParsing(t *testing.T) {
	router := newTestRouter(t)

	for _, target := range []string{"/finished/abc", "/finished/0", "/finished/-1", "/recommendations/x"} {
		req := httptest.NewRequest(http.MethodDelete, target, nil)
		req.Header.Set("Authorization", bearerToken(t))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code, target)
	}

	req := httptest.NewRequest(http.MethodDelete, "/finished/3", nil)
	req.Header.Set("Authorization", bearerToken(t))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRouter_CancelHoldRoute(t *testing.T) {
	router := newTestRouter(t)

	// TestUser has no library card on file.
	req := httptest.NewRequest(http.MethodDelete, "/library/holds/h7?bib_id=b42", nil)
	req.Header.Set("Authorization", bearerToken(t))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "NO_LIBRARY_CARD", decodeError(t, rec).Error.Code)
}
