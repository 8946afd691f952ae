package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"libtrack/internal/entity"
	"libtrack/internal/platform/bibliocommons"
	"libtrack/internal/usecase"
)

// CatalogGateway is the slice of the library catalog client the web layer
// needs: edition search plus the holds workflow.
type CatalogGateway interface {
	SearchEditions(ctx context.Context, query string) ([]bibliocommons.Edition, error)
	GetHolds(ctx context.Context, creds bibliocommons.Credentials) ([]bibliocommons.Hold, error)
	PlaceHold(ctx context.Context, bibID string, creds bibliocommons.Credentials, branchID string) (bibliocommons.HoldResult, error)
	CancelHold(ctx context.Context, holdID, bibID string, creds bibliocommons.Credentials) (bibliocommons.HoldResult, error)
}

type LibraryHandler struct {
	catalog  CatalogGateway
	userRepo usecase.UserRepository
}

func NewLibraryHandler(catalog CatalogGateway, userRepo usecase.UserRepository) *LibraryHandler {
	return &LibraryHandler{catalog: catalog, userRepo: userRepo}
}

// @Summary Search editions
// @Description List up to ten physical editions of a work, available first
// @Tags library
// @Produce json
// @Security Bearer
// @Param query query string true "Title or title and author"
// @Success 200 {object} SuccessResponse
// @Failure 400 {object} ErrorResponse
// @Router /library/editions [get]
func (h *LibraryHandler) Editions(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("query"))
	if query == "" {
		JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "query is required", nil)
		return
	}

	editions, err := h.catalog.SearchEditions(r.Context(), query)
	if err != nil {
		if errors.Is(err, bibliocommons.ErrNotFound) {
			JSONSuccess(w, []bibliocommons.Edition{}, nil)
			return
		}
		JSONError(w, http.StatusBadGateway, "LIBRARY_UNAVAILABLE", "Could not reach the library catalog", nil)
		return
	}
	if editions == nil {
		editions = []bibliocommons.Edition{}
	}
	JSONSuccess(w, editions, nil)
}

// @Summary List holds
// @Description List the user's current holds at the library
// @Tags library
// @Produce json
// @Security Bearer
// @Success 200 {object} SuccessResponse
// @Failure 401 {object} ErrorResponse
// @Router /library/holds [get]
func (h *LibraryHandler) ListHolds(w http.ResponseWriter, r *http.Request) {
	creds, ok := h.credentials(w, r)
	if !ok {
		return
	}

	holds, err := h.catalog.GetHolds(r.Context(), creds)
	if err != nil {
		h.catalogError(w, err)
		return
	}
	if holds == nil {
		holds = []bibliocommons.Hold{}
	}
	JSONSuccess(w, holds, nil)
}

type placeHoldReq struct {
	BibID    string `json:"bib_id" validate:"required"`
	BranchID string `json:"branch_id"`
}

// @Summary Place a hold
// @Tags library
// @Accept json
// @Produce json
// @Security Bearer
// @Success 200 {object} SuccessResponse
// @Failure 400 {object} ErrorResponse
// @Router /library/holds [post]
func (h *LibraryHandler) PlaceHold(w http.ResponseWriter, r *http.Request) {
	creds, ok := h.credentials(w, r)
	if !ok {
		return
	}

	var req placeHoldReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body", nil)
		return
	}
	if details := ValidateStruct(req); len(details) > 0 {
		JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid input", details)
		return
	}

	result, err := h.catalog.PlaceHold(r.Context(), req.BibID, creds, req.BranchID)
	if err != nil {
		h.catalogError(w, err)
		return
	}
	JSONSuccess(w, result, nil)
}

// @Summary Cancel a hold
// @Tags library
// @Produce json
// @Security Bearer
// @Param id path string true "Hold ID"
// @Param bib_id query string true "Bib ID of the held title"
// @Success 200 {object} SuccessResponse
// @Failure 400 {object} ErrorResponse
// @Router /library/holds/{id} [delete]
func (h *LibraryHandler) CancelHold(w http.ResponseWriter, r *http.Request, holdID string) {
	creds, ok := h.credentials(w, r)
	if !ok {
		return
	}

	bibID := strings.TrimSpace(r.URL.Query().Get("bib_id"))
	if bibID == "" {
		JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "bib_id is required", nil)
		return
	}

	result, err := h.catalog.CancelHold(r.Context(), holdID, bibID, creds)
	if err != nil {
		h.catalogError(w, err)
		return
	}
	JSONSuccess(w, result, nil)
}

// credentials loads the caller's library card, writing the error response
// itself when the user has no card on file.
func (h *LibraryHandler) credentials(w http.ResponseWriter, r *http.Request) (bibliocommons.Credentials, bool) {
	user, err := h.userRepo.GetByID(r.Context(), UserIDFrom(r))
	if err != nil {
		JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
		return bibliocommons.Credentials{}, false
	}
	if !user.HasLibraryCard() {
		JSONError(w, http.StatusBadRequest, "NO_LIBRARY_CARD", "No library card on file for this account", nil)
		return bibliocommons.Credentials{}, false
	}
	return credsFor(user), true
}

func credsFor(user entity.User) bibliocommons.Credentials {
	return bibliocommons.Credentials{
		Barcode:   user.LibraryBarcode,
		PIN:       user.LibraryPIN,
		AccountID: user.LibraryAccountID,
	}
}

func (h *LibraryHandler) catalogError(w http.ResponseWriter, err error) {
	var authErr *bibliocommons.AuthError
	if errors.As(err, &authErr) {
		JSONError(w, http.StatusUnauthorized, "LIBRARY_AUTH_FAILED", "Library card number or PIN was rejected", nil)
		return
	}
	JSONError(w, http.StatusBadGateway, "LIBRARY_UNAVAILABLE", "Could not reach the library catalog", nil)
}
