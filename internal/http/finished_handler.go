package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"libtrack/internal/entity"
	"libtrack/internal/usecase"
)

type FinishedHandler struct {
	repo usecase.FinishedBookRepository
}

func NewFinishedHandler(repo usecase.FinishedBookRepository) *FinishedHandler {
	return &FinishedHandler{repo: repo}
}

// @Summary List finished books
// @Tags finished
// @Produce json
// @Security Bearer
// @Success 200 {object} SuccessResponse
// @Router /finished [get]
func (h *FinishedHandler) List(w http.ResponseWriter, r *http.Request) {
	books, err := h.repo.List(r.Context(), UserIDFrom(r))
	if err != nil {
		JSONError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", nil)
		return
	}
	if books == nil {
		books = []entity.FinishedBook{}
	}
	JSONSuccess(w, books, nil)
}

type finishedReq struct {
	Title  string `json:"title" validate:"required,max=300"`
	Author string `json:"author" validate:"max=200"`
	Rating *int   `json:"rating" validate:"omitempty,gte=1,lte=5"`
	Review string `json:"review" validate:"max=5000"`
}

// @Summary Add a finished book
// @Tags finished
// @Accept json
// @Produce json
// @Security Bearer
// @Success 201 {object} SuccessResponse
// @Failure 400 {object} ErrorResponse
// @Router /finished [post]
func (h *FinishedHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req finishedReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body", nil)
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	if details := ValidateStruct(req); len(details) > 0 {
		JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid input", details)
		return
	}

	fb := &entity.FinishedBook{
		UserID: UserIDFrom(r),
		Title:  req.Title,
		Author: strings.TrimSpace(req.Author),
		Rating: req.Rating,
		Review: req.Review,
	}
	if err := h.repo.Add(r.Context(), fb); err != nil {
		JSONError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", nil)
		return
	}
	JSONSuccessCreated(w, fb)
}

type updateFinishedReq struct {
	Rating *int   `json:"rating" validate:"omitempty,gte=1,lte=5"`
	Review string `json:"review" validate:"max=5000"`
}

// @Summary Update rating or review
// @Tags finished
// @Accept json
// @Security Bearer
// @Success 204 "No Content"
// @Failure 404 {object} ErrorResponse
// @Router /finished/{id} [put]
func (h *FinishedHandler) Update(w http.ResponseWriter, r *http.Request, id int) {
	var req updateFinishedReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body", nil)
		return
	}
	if details := ValidateStruct(req); len(details) > 0 {
		JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid input", details)
		return
	}

	if err := h.repo.Update(r.Context(), UserIDFrom(r), id, req.Rating, req.Review); err != nil {
		if errors.Is(err, usecase.ErrNotFound) {
			JSONError(w, http.StatusNotFound, "NOT_FOUND", "Finished book not found", nil)
			return
		}
		JSONError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", nil)
		return
	}
	JSONSuccessNoContent(w)
}

// @Summary Delete a finished book
// @Tags finished
// @Security Bearer
// @Success 204 "No Content"
// @Failure 404 {object} ErrorResponse
// @Router /finished/{id} [delete]
func (h *FinishedHandler) Delete(w http.ResponseWriter, r *http.Request, id int) {
	if err := h.repo.Delete(r.Context(), UserIDFrom(r), id); err != nil {
		if errors.Is(err, usecase.ErrNotFound) {
			JSONError(w, http.StatusNotFound, "NOT_FOUND", "Finished book not found", nil)
			return
		}
		JSONError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", nil)
		return
	}
	JSONSuccessNoContent(w)
}
