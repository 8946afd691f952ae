package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"libtrack/internal/entity"
	"libtrack/internal/usecase"
)

type RecommendationHandler struct {
	repo usecase.RecommendationRepository
}

func NewRecommendationHandler(repo usecase.RecommendationRepository) *RecommendationHandler {
	return &RecommendationHandler{repo: repo}
}

// @Summary List recommendations
// @Tags recommendations
// @Produce json
// @Security Bearer
// @Success 200 {object} SuccessResponse
// @Router /recommendations [get]
func (h *RecommendationHandler) List(w http.ResponseWriter, r *http.Request) {
	recs, err := h.repo.List(r.Context(), UserIDFrom(r))
	if err != nil {
		JSONError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", nil)
		return
	}
	if recs == nil {
		recs = []entity.Recommendation{}
	}
	JSONSuccess(w, recs, nil)
}

type addRecommendationReq struct {
	Title         string `json:"title" validate:"required,max=300"`
	Author        string `json:"author" validate:"max=200"`
	RecommendedBy string `json:"recommended_by" validate:"required,max=100"`
}

// @Summary Add a recommendation
// @Tags recommendations
// @Accept json
// @Produce json
// @Security Bearer
// @Success 201 {object} SuccessResponse
// @Failure 400 {object} ErrorResponse
// @Router /recommendations [post]
func (h *RecommendationHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req addRecommendationReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body", nil)
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	req.RecommendedBy = strings.TrimSpace(req.RecommendedBy)
	if details := ValidateStruct(req); len(details) > 0 {
		JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid input", details)
		return
	}

	rec := &entity.Recommendation{
		UserID:        UserIDFrom(r),
		Title:         req.Title,
		Author:        strings.TrimSpace(req.Author),
		RecommendedBy: req.RecommendedBy,
	}
	if err := h.repo.Add(r.Context(), rec); err != nil {
		JSONError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", nil)
		return
	}
	JSONSuccessCreated(w, rec)
}

// @Summary Delete a recommendation
// @Tags recommendations
// @Security Bearer
// @Success 204 "No Content"
// @Failure 404 {object} ErrorResponse
// @Router /recommendations/{id} [delete]
func (h *RecommendationHandler) Delete(w http.ResponseWriter, r *http.Request, id int) {
	if err := h.repo.Delete(r.Context(), UserIDFrom(r), id); err != nil {
		if errors.Is(err, usecase.ErrNotFound) {
			JSONError(w, http.StatusNotFound, "NOT_FOUND", "Recommendation not found", nil)
			return
		}
		JSONError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", nil)
		return
	}
	JSONSuccessNoContent(w)
}
