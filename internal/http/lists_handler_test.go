package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"libtrack/internal/entity"
	"libtrack/internal/testutil"
	"libtrack/internal/usecase"
)

type fakeRecommendationRepo struct {
	ListFn   func(ctx context.Context, userID string) ([]entity.Recommendation, error)
	AddFn    func(ctx context.Context, rec *entity.Recommendation) error
	DeleteFn func(ctx context.Context, userID string, id int) error
}

func (f *fakeRecommendationRepo) List(ctx context.Context, userID string) ([]entity.Recommendation, error) {
	if f.ListFn != nil {
		return f.ListFn(ctx, userID)
	}
	return nil, nil
}

func (f *fakeRecommendationRepo) Add(ctx context.Context, rec *entity.Recommendation) error {
	if f.AddFn != nil {
		return f.AddFn(ctx, rec)
	}
	rec.ID = 1
	return nil
}

func (f *fakeRecommendationRepo) Delete(ctx context.Context, userID string, id int) error {
	if f.DeleteFn != nil {
		return f.DeleteFn(ctx, userID, id)
	}
	return nil
}

type fakeFinishedRepo struct {
	ListFn   func(ctx context.Context, userID string) ([]entity.FinishedBook, error)
	AddFn    func(ctx context.Context, fb *entity.FinishedBook) error
	UpdateFn func(ctx context.Context, userID string, id int, rating *int, review string) error
	DeleteFn func(ctx context.Context, userID string, id int) error
}

func (f *fakeFinishedRepo) List(ctx context.Context, userID string) ([]entity.FinishedBook, error) {
	if f.ListFn != nil {
		return f.ListFn(ctx, userID)
	}
	return nil, nil
}

func (f *fakeFinishedRepo) Add(ctx context.Context, fb *entity.FinishedBook) error {
	if f.AddFn != nil {
		return f.AddFn(ctx, fb)
	}
	fb.ID = 1
	return nil
}

func (f *fakeFinishedRepo) Update(ctx context.Context, userID string, id int, rating *int, review string) error {
	if f.UpdateFn != nil {
		return f.UpdateFn(ctx, userID, id, rating, review)
	}
	return nil
}

func (f *fakeFinishedRepo) Delete(ctx context.Context, userID string, id int) error {
	if f.DeleteFn != nil {
		return f.DeleteFn(ctx, userID, id)
	}
	return nil
}

func TestAddRecommendation(t *testing.T) {
	var saved *entity.Recommendation
	repo := &fakeRecommendationRepo{
		AddFn: func(ctx context.Context, rec *entity.Recommendation) error {
			rec.ID = 7
			saved = rec
			return nil
		},
	}
	h := NewRecommendationHandler(repo)

	rec := httptest.NewRecorder()
	h.Add(rec, authedRequest(t, http.MethodPost, "/recommendations", map[string]string{
		"title":          "  The Savage Detectives ",
		"author":         "Roberto Bolaño",
		"recommended_by": "Ana",
	}, testutil.TestUser.ID))

	require.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, saved)
	assert.Equal(t, testutil.TestUser.ID, saved.UserID)
	assert.Equal(t, "The Savage Detectives", saved.Title, "title is trimmed")
	assert.Equal(t, "Ana", saved.RecommendedBy)
	assert.EqualValues(t, 7, successData(t, rec)["id"])
}

func TestAddRecommendation_MissingRecommender(t *testing.T) {
	h := NewRecommendationHandler(&fakeRecommendationRepo{})

	rec := httptest.NewRecorder()
	h.Add(rec, authedRequest(t, http.MethodPost, "/recommendations", map[string]string{
		"title": "Some Book",
	}, testutil.TestUser.ID))

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteRecommendation_NotFound(t *testing.T) {
	repo := &fakeRecommendationRepo{
		DeleteFn: func(ctx context.Context, userID string, id int) error {
			return usecase.ErrNotFound
		},
	}
	h := NewRecommendationHandler(repo)

	rec := httptest.NewRecorder()
	h.Delete(rec, authedRequest(t, http.MethodDelete, "/recommendations/9", nil, testutil.TestUser.ID), 9)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAddFinishedBook(t *testing.T) {
	var saved *entity.FinishedBook
	repo := &fakeFinishedRepo{
		AddFn: func(ctx context.Context, fb *entity.FinishedBook) error {
			fb.ID = 3
			saved = fb
			return nil
		},
	}
	h := NewFinishedHandler(repo)

	rec := httptest.NewRecorder()
	h.Add(rec, authedRequest(t, http.MethodPost, "/finished", map[string]any{
		"title":  "Trust",
		"author": "Hernan Diaz",
		"rating": 5,
		"review": "Four narratives, one fortune.",
	}, testutil.TestUser.ID))

	require.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, saved)
	require.NotNil(t, saved.Rating)
	assert.Equal(t, 5, *saved.Rating)
}

func TestAddFinishedBook_NoRating(t *testing.T) {
	var saved *entity.FinishedBook
	repo := &fakeFinishedRepo{
		AddFn: func(ctx context.Context, fb *entity.FinishedBook) error {
			saved = fb
			return nil
		},
	}
	h := NewFinishedHandler(repo)

	rec := httptest.NewRecorder()
	h.Add(rec, authedRequest(t, http.MethodPost, "/finished", map[string]any{
		"title": "Trust",
	}, testutil.TestUser.ID))

	require.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, saved)
	assert.Nil(t, saved.Rating, "rating stays unset, not zero")
}

func TestAddFinishedBook_RatingOutOfRange(t *testing.T) {
	h := NewFinishedHandler(&fakeFinishedRepo{})

	for _, rating := range []int{0, 6} {
		rec := httptest.NewRecorder()
		h.Add(rec, authedRequest(t, http.MethodPost, "/finished", map[string]any{
			"title":  "Trust",
			"rating": rating,
		}, testutil.TestUser.ID))
		assert.Equal(t, http.StatusBadRequest, rec.Code, "rating=%d", rating)
	}
}

func TestUpdateFinishedBook(t *testing.T) {
	var gotRating *int
	var gotReview string
	repo := &fakeFinishedRepo{
		UpdateFn: func(ctx context.Context, userID string, id int, rating *int, review string) error {
			assert.Equal(t, 3, id)
			gotRating = rating
			gotReview = review
			return nil
		},
	}
	h := NewFinishedHandler(repo)

	rec := httptest.NewRecorder()
	h.Update(rec, authedRequest(t, http.MethodPut, "/finished/3", map[string]any{
		"rating": 4,
		"review": "Better on a reread.",
	}, testutil.TestUser.ID), 3)

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.NotNil(t, gotRating)
	assert.Equal(t, 4, *gotRating)
	assert.Equal(t, "Better on a reread.", gotReview)
}

func TestUpdateFinishedBook_NotFound(t *testing.T) {
	repo := &fakeFinishedRepo{
		UpdateFn: func(ctx context.Context, userID string, id int, rating *int, review string) error {
			return usecase.ErrNotFound
		},
	}
	h := NewFinishedHandler(repo)

	rec := httptest.NewRecorder()
	h.Update(rec, authedRequest(t, http.MethodPut, "/finished/99", map[string]any{
		"rating": 4,
	}, testutil.TestUser.ID), 99)

	require.Equal(t, http.StatusNotFound, rec.Code)
}
