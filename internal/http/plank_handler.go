package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"libtrack/internal/entity"
	"libtrack/internal/usecase"
)

// The plank leaderboard rides along on the same server but has its own
// user list, so none of its routes go through the auth middleware.
type PlankHandler struct {
	repo usecase.PlankRepository
}

func NewPlankHandler(repo usecase.PlankRepository) *PlankHandler {
	return &PlankHandler{repo: repo}
}

// @Summary List plank users
// @Tags plank
// @Produce json
// @Success 200 {object} SuccessResponse
// @Router /plank/users [get]
func (h *PlankHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.repo.ListUsers(r.Context())
	if err != nil {
		JSONError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", nil)
		return
	}
	if users == nil {
		users = []entity.PlankUser{}
	}
	JSONSuccess(w, users, nil)
}

type addPlankUserReq struct {
	Name   string `json:"name" validate:"required,max=50"`
	Avatar string `json:"avatar" validate:"max=10"`
}

// @Summary Add a plank user
// @Tags plank
// @Accept json
// @Produce json
// @Success 201 {object} SuccessResponse
// @Failure 400 {object} ErrorResponse
// @Router /plank/users [post]
func (h *PlankHandler) AddUser(w http.ResponseWriter, r *http.Request) {
	var req addPlankUserReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body", nil)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if details := ValidateStruct(req); len(details) > 0 {
		JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid input", details)
		return
	}

	user, err := h.repo.AddUser(r.Context(), req.Name, req.Avatar)
	if err != nil {
		JSONError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", nil)
		return
	}
	JSONSuccessCreated(w, user)
}

type recordTimeReq struct {
	UserID  int `json:"user_id" validate:"required"`
	Seconds int `json:"seconds" validate:"required,gte=1,lte=3600"`
}

// @Summary Record a plank time
// @Tags plank
// @Accept json
// @Produce json
// @Success 201 {object} SuccessResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /plank/times [post]
func (h *PlankHandler) RecordTime(w http.ResponseWriter, r *http.Request) {
	var req recordTimeReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body", nil)
		return
	}
	if details := ValidateStruct(req); len(details) > 0 {
		JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid input", details)
		return
	}

	id, err := h.repo.RecordTime(r.Context(), req.UserID, req.Seconds)
	if err != nil {
		if errors.Is(err, usecase.ErrNotFound) {
			JSONError(w, http.StatusNotFound, "NOT_FOUND", "Plank user not found", nil)
			return
		}
		JSONError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", nil)
		return
	}
	JSONSuccessCreated(w, map[string]any{"id": id})
}

// @Summary Leaderboard
// @Description Best time per user, best overall first
// @Tags plank
// @Produce json
// @Success 200 {object} SuccessResponse
// @Router /plank/leaderboard [get]
func (h *PlankHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	entries, err := h.repo.Leaderboard(r.Context())
	if err != nil {
		JSONError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", nil)
		return
	}
	if entries == nil {
		entries = []entity.PlankLeaderboardEntry{}
	}
	JSONSuccess(w, entries, nil)
}

// @Summary Recent times
// @Tags plank
// @Produce json
// @Success 200 {object} SuccessResponse
// @Router /plank/history [get]
func (h *PlankHandler) History(w http.ResponseWriter, r *http.Request) {
	times, err := h.repo.History(r.Context())
	if err != nil {
		JSONError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", nil)
		return
	}
	if times == nil {
		times = []entity.PlankTime{}
	}
	JSONSuccess(w, times, nil)
}
