package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"libtrack/internal/entity"
	"libtrack/internal/importer"
	"libtrack/internal/platform/openlibrary"
	"libtrack/internal/usecase"
)

// MetadataClient resolves a manual add into bibliographic fields.
type MetadataClient interface {
	LookupISBN(ctx context.Context, isbn string) (*openlibrary.BookSummary, error)
	LookupKeyword(ctx context.Context, keyword string) (*openlibrary.BookSummary, error)
}

// BookRefresher re-checks one book against the library catalog and the
// ratings source.
type BookRefresher interface {
	RefreshBook(ctx context.Context, b entity.Book) error
}

const maxImportSize = 10 << 20 // 10 MiB

type BookHandler struct {
	repo      usecase.BookRepository
	metadata  MetadataClient
	refresher BookRefresher
	importer  *importer.Importer
}

func NewBookHandler(repo usecase.BookRepository, metadata MetadataClient, refresher BookRefresher, imp *importer.Importer) *BookHandler {
	return &BookHandler{
		repo:      repo,
		metadata:  metadata,
		refresher: refresher,
		importer:  imp,
	}
}

// @Summary List books
// @Description List the user's reading list with collection stats
// @Tags books
// @Produce json
// @Security Bearer
// @Success 200 {object} SuccessResponse
// @Router /books [get]
func (h *BookHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := UserIDFrom(r)

	books, err := h.repo.ListByUser(r.Context(), userID)
	if err != nil {
		JSONError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", nil)
		return
	}
	stats, err := h.repo.Stats(r.Context(), userID)
	if err != nil {
		JSONError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", nil)
		return
	}
	if books == nil {
		books = []entity.Book{}
	}
	JSONSuccess(w, books, map[string]any{"stats": stats})
}

// @Summary Genre counts
// @Tags books
// @Produce json
// @Security Bearer
// @Success 200 {object} SuccessResponse
// @Router /books/genres [get]
func (h *BookHandler) GenreCounts(w http.ResponseWriter, r *http.Request) {
	counts, err := h.repo.GenreCounts(r.Context(), UserIDFrom(r))
	if err != nil {
		JSONError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", nil)
		return
	}
	if counts == nil {
		counts = []entity.GenreCount{}
	}
	JSONSuccess(w, counts, nil)
}

type addBookReq struct {
	Title  string `json:"title"`
	Author string `json:"author"`
	ISBN   string `json:"isbn" validate:"omitempty,isbn"`
}

// @Summary Add a book
// @Description Add one book by ISBN or title, resolving metadata from Open Library
// @Tags books
// @Accept json
// @Produce json
// @Security Bearer
// @Success 201 {object} SuccessResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /books [post]
func (h *BookHandler) Add(w http.ResponseWriter, r *http.Request) {
	userID := UserIDFrom(r)

	var req addBookReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body", nil)
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	req.Author = strings.TrimSpace(req.Author)
	req.ISBN = strings.ReplaceAll(strings.TrimSpace(req.ISBN), "-", "")

	if req.Title == "" && req.ISBN == "" {
		JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Either title or isbn is required", nil)
		return
	}
	if details := ValidateStruct(req); len(details) > 0 {
		JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid input", details)
		return
	}

	summary, err := h.resolveMetadata(r.Context(), req)
	if err != nil {
		JSONError(w, http.StatusBadGateway, "METADATA_UNAVAILABLE", "Could not reach Open Library", nil)
		return
	}

	book := entity.Book{
		BookID:    uuid.NewString(),
		UserID:    userID,
		Title:     req.Title,
		Author:    req.Author,
		ISBN:      req.ISBN,
		DateAdded: time.Now(),
	}
	if len(req.ISBN) == 13 {
		book.ISBN13 = req.ISBN
		book.ISBN = ""
	}
	if summary != nil {
		if book.Title == "" {
			book.Title = summary.Title
		}
		if book.Author == "" {
			book.Author = summary.Author
		}
		if book.ISBN == "" {
			book.ISBN = summary.ISBN
		}
		if book.ISBN13 == "" {
			book.ISBN13 = summary.ISBN13
		}
		if summary.PublishYear > 0 {
			year := summary.PublishYear
			book.PublishYear = &year
		}
	}
	if book.Title == "" {
		JSONError(w, http.StatusNotFound, "NOT_FOUND", "No book found for that ISBN", nil)
		return
	}

	if err := h.repo.Upsert(r.Context(), &book); err != nil {
		JSONError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", nil)
		return
	}
	JSONSuccessCreated(w, book)
}

// resolveMetadata tries the strongest lookup first: ISBN, then title plus
// author, then bare title. A nil summary with nil error means no match.
func (h *BookHandler) resolveMetadata(ctx context.Context, req addBookReq) (*openlibrary.BookSummary, error) {
	if req.ISBN != "" {
		summary, err := h.metadata.LookupISBN(ctx, req.ISBN)
		if err != nil || summary != nil {
			return summary, err
		}
	}
	if req.Title == "" {
		return nil, nil
	}
	query := req.Title
	if req.Author != "" {
		query += " " + req.Author
	}
	summary, err := h.metadata.LookupKeyword(ctx, query)
	if err != nil || summary != nil {
		return summary, err
	}
	if req.Author != "" {
		return h.metadata.LookupKeyword(ctx, req.Title)
	}
	return nil, nil
}

// @Summary Import Goodreads CSV
// @Description Import the to-read shelf from a Goodreads library export
// @Tags books
// @Accept mpfd
// @Produce json
// @Security Bearer
// @Success 200 {object} SuccessResponse
// @Failure 400 {object} ErrorResponse
// @Router /books/import [post]
func (h *BookHandler) ImportCSV(w http.ResponseWriter, r *http.Request) {
	userID := UserIDFrom(r)

	if err := r.ParseMultipartForm(maxImportSize); err != nil {
		JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "Expected a multipart upload", nil)
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "Missing file field", nil)
		return
	}
	defer file.Close()

	summary, err := h.importer.Import(r.Context(), userID, file)
	if err != nil {
		JSONError(w, http.StatusBadRequest, "IMPORT_FAILED", err.Error(), nil)
		return
	}
	JSONSuccess(w, summary, nil)
}

// @Summary Delete a book
// @Tags books
// @Security Bearer
// @Success 204 "No Content"
// @Failure 404 {object} ErrorResponse
// @Router /books/{id} [delete]
func (h *BookHandler) Delete(w http.ResponseWriter, r *http.Request, bookID string) {
	if err := h.repo.Delete(r.Context(), UserIDFrom(r), bookID); err != nil {
		if errors.Is(err, usecase.ErrNotFound) {
			JSONError(w, http.StatusNotFound, "NOT_FOUND", "Book not found", nil)
			return
		}
		JSONError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", nil)
		return
	}
	JSONSuccessNoContent(w)
}

// @Summary Toggle pin
// @Tags books
// @Produce json
// @Security Bearer
// @Success 200 {object} SuccessResponse
// @Failure 404 {object} ErrorResponse
// @Router /books/{id}/pin [post]
func (h *BookHandler) TogglePin(w http.ResponseWriter, r *http.Request, bookID string) {
	pinned, err := h.repo.TogglePin(r.Context(), UserIDFrom(r), bookID)
	if err != nil {
		if errors.Is(err, usecase.ErrNotFound) {
			JSONError(w, http.StatusNotFound, "NOT_FOUND", "Book not found", nil)
			return
		}
		JSONError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", nil)
		return
	}
	JSONSuccess(w, map[string]any{"pinned": pinned}, nil)
}

type notesReq struct {
	Notes string `json:"notes" validate:"max=2000"`
}

// @Summary Update notes
// @Tags books
// @Accept json
// @Security Bearer
// @Success 204 "No Content"
// @Router /books/{id}/notes [put]
func (h *BookHandler) UpdateNotes(w http.ResponseWriter, r *http.Request, bookID string) {
	var req notesReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body", nil)
		return
	}
	if details := ValidateStruct(req); len(details) > 0 {
		JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid input", details)
		return
	}

	if err := h.repo.UpdateNotes(r.Context(), UserIDFrom(r), bookID, req.Notes); err != nil {
		if errors.Is(err, usecase.ErrNotFound) {
			JSONError(w, http.StatusNotFound, "NOT_FOUND", "Book not found", nil)
			return
		}
		JSONError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", nil)
		return
	}
	JSONSuccessNoContent(w)
}

type cultureReq struct {
	Culture string `json:"culture" validate:"max=100"`
}

// @Summary Update culture tag
// @Description Set the author-culture label shown on the book card
// @Tags books
// @Accept json
// @Security Bearer
// @Success 204 "No Content"
// @Router /books/{id}/culture [patch]
func (h *BookHandler) UpdateCulture(w http.ResponseWriter, r *http.Request, bookID string) {
	var req cultureReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body", nil)
		return
	}
	if details := ValidateStruct(req); len(details) > 0 {
		JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid input", details)
		return
	}

	if err := h.repo.UpdateCulture(r.Context(), UserIDFrom(r), bookID, strings.TrimSpace(req.Culture)); err != nil {
		if errors.Is(err, usecase.ErrNotFound) {
			JSONError(w, http.StatusNotFound, "NOT_FOUND", "Book not found", nil)
			return
		}
		JSONError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", nil)
		return
	}
	JSONSuccessNoContent(w)
}

// @Summary Refresh a book
// @Description Re-check catalog availability and backfill ratings and genres
// @Tags books
// @Produce json
// @Security Bearer
// @Success 200 {object} SuccessResponse
// @Failure 404 {object} ErrorResponse
// @Router /books/{id}/refresh [post]
func (h *BookHandler) Refresh(w http.ResponseWriter, r *http.Request, bookID string) {
	userID := UserIDFrom(r)

	book, err := h.repo.GetByID(r.Context(), userID, bookID)
	if err != nil {
		if errors.Is(err, usecase.ErrNotFound) {
			JSONError(w, http.StatusNotFound, "NOT_FOUND", "Book not found", nil)
			return
		}
		JSONError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", nil)
		return
	}

	if err := h.refresher.RefreshBook(r.Context(), book); err != nil {
		JSONError(w, http.StatusBadGateway, "REFRESH_FAILED", "Could not refresh book data", nil)
		return
	}

	book, err = h.repo.GetByID(r.Context(), userID, bookID)
	if err != nil {
		JSONError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", nil)
		return
	}
	JSONSuccess(w, book, nil)
}
