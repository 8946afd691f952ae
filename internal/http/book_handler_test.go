package http

import (
	"bytes"
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"libtrack/internal/entity"
	"libtrack/internal/importer"
	"libtrack/internal/platform/openlibrary"
	"libtrack/internal/testutil"
	"libtrack/internal/usecase"
)

type fakeMetadata struct {
	LookupISBNFn    func(ctx context.Context, isbn string) (*openlibrary.BookSummary, error)
	LookupKeywordFn func(ctx context.Context, keyword string) (*openlibrary.BookSummary, error)
}

func (f *fakeMetadata) LookupISBN(ctx context.Context, isbn string) (*openlibrary.BookSummary, error) {
	if f.LookupISBNFn != nil {
		return f.LookupISBNFn(ctx, isbn)
	}
	return nil, nil
}

func (f *fakeMetadata) LookupKeyword(ctx context.Context, keyword string) (*openlibrary.BookSummary, error) {
	if f.LookupKeywordFn != nil {
		return f.LookupKeywordFn(ctx, keyword)
	}
	return nil, nil
}

type fakeRefresher struct {
	RefreshBookFn func(ctx context.Context, b entity.Book) error
}

func (f *fakeRefresher) RefreshBook(ctx context.Context, b entity.Book) error {
	if f.RefreshBookFn != nil {
		return f.RefreshBookFn(ctx, b)
	}
	return nil
}

func newBookHandler(repo *testutil.FakeBookRepository, metadata *fakeMetadata, refresher *fakeRefresher) *BookHandler {
	if repo == nil {
		repo = &testutil.FakeBookRepository{}
	}
	if metadata == nil {
		metadata = &fakeMetadata{}
	}
	if refresher == nil {
		refresher = &fakeRefresher{}
	}
	return NewBookHandler(repo, metadata, refresher, importer.New(repo))
}

func TestListBooks(t *testing.T) {
	repo := &testutil.FakeBookRepository{
		ListByUserFn: func(ctx context.Context, userID string) ([]entity.Book, error) {
			assert.Equal(t, testutil.TestUser.ID, userID)
			return []entity.Book{testutil.TestBook}, nil
		},
		StatsFn: func(ctx context.Context, userID string) (entity.Stats, error) {
			return entity.Stats{Total: 1}, nil
		},
	}
	h := newBookHandler(repo, nil, nil)

	rec := httptest.NewRecorder()
	h.List(rec, authedRequest(t, http.MethodGet, "/books", nil, testutil.TestUser.ID))

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeSuccess(t, rec)
	books, ok := resp.Data.([]any)
	require.True(t, ok)
	require.Len(t, books, 1)
	meta, ok := resp.Meta.(map[string]any)
	require.True(t, ok)
	assert.Contains(t, meta, "stats")
}

func TestListBooks_EmptyListNotNull(t *testing.T) {
	h := newBookHandler(nil, nil, nil)

	rec := httptest.NewRecorder()
	h.List(rec, authedRequest(t, http.MethodGet, "/books", nil, testutil.TestUser.ID))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"data":[]`)
}

func TestAddBook_ByISBN(t *testing.T) {
	metadata := &fakeMetadata{
		LookupISBNFn: func(ctx context.Context, isbn string) (*openlibrary.BookSummary, error) {
			assert.Equal(t, "9780749386429", isbn)
			return &openlibrary.BookSummary{
				Title:       "The Magic Mountain",
				Author:      "Thomas Mann",
				ISBN13:      "9780749386429",
				PublishYear: 1924,
			}, nil
		},
	}
	var saved *entity.Book
	repo := &testutil.FakeBookRepository{
		UpsertFn: func(ctx context.Context, b *entity.Book) error {
			saved = b
			return nil
		},
	}
	h := newBookHandler(repo, metadata, nil)

	rec := httptest.NewRecorder()
	h.Add(rec, authedRequest(t, http.MethodPost, "/books", map[string]string{
		"isbn": "978-0-7493-8642-9",
	}, testutil.TestUser.ID))

	require.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, saved)
	assert.Equal(t, "The Magic Mountain", saved.Title)
	assert.Equal(t, "Thomas Mann", saved.Author)
	assert.Equal(t, "9780749386429", saved.ISBN13, "13-digit number lands in the isbn13 field")
	assert.Empty(t, saved.ISBN)
	require.NotNil(t, saved.PublishYear)
	assert.Equal(t, 1924, *saved.PublishYear)
	assert.NotEmpty(t, saved.BookID)
}

func TestAddBook_TitleFallsBackToBareTitleSearch(t *testing.T) {
	var queries []string
	metadata := &fakeMetadata{
		LookupKeywordFn: func(ctx context.Context, keyword string) (*openlibrary.BookSummary, error) {
			queries = append(queries, keyword)
			if keyword == "The Idiot" {
				return &openlibrary.BookSummary{Title: "The Idiot", Author: "Elif Batuman"}, nil
			}
			return nil, nil
		},
	}
	h := newBookHandler(nil, metadata, nil)

	rec := httptest.NewRecorder()
	h.Add(rec, authedRequest(t, http.MethodPost, "/books", map[string]string{
		"title":  "The Idiot",
		"author": "Batuman",
	}, testutil.TestUser.ID))

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, []string{"The Idiot Batuman", "The Idiot"}, queries)
}

func TestAddBook_UnknownISBN(t *testing.T) {
	h := newBookHandler(nil, nil, nil)

	rec := httptest.NewRecorder()
	h.Add(rec, authedRequest(t, http.MethodPost, "/books", map[string]string{
		"isbn": "9780000000000",
	}, testutil.TestUser.ID))

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", decodeError(t, rec).Error.Code)
}

func TestAddBook_NoTitleNoISBN(t *testing.T) {
	h := newBookHandler(nil, nil, nil)

	rec := httptest.NewRecorder()
	h.Add(rec, authedRequest(t, http.MethodPost, "/books", map[string]string{
		"author": "Somebody",
	}, testutil.TestUser.ID))

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAddBook_MetadataUnavailable(t *testing.T) {
	metadata := &fakeMetadata{
		LookupISBNFn: func(ctx context.Context, isbn string) (*openlibrary.BookSummary, error) {
			return nil, errors.New("open library down")
		},
	}
	h := newBookHandler(nil, metadata, nil)

	rec := httptest.NewRecorder()
	h.Add(rec, authedRequest(t, http.MethodPost, "/books", map[string]string{
		"isbn": "9780749386429",
	}, testutil.TestUser.ID))

	require.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "METADATA_UNAVAILABLE", decodeError(t, rec).Error.Code)
}

func TestImportCSV(t *testing.T) {
	var upserts int
	repo := &testutil.FakeBookRepository{
		UpsertFn: func(ctx context.Context, b *entity.Book) error {
			upserts++
			return nil
		},
	}
	h := newBookHandler(repo, nil, nil)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "goodreads_library_export.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte("Book Id,Title,Author,Exclusive Shelf\n" +
		"111,Keeper,A,to-read\n" +
		"222,Skipper,B,read\n"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/books/import", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	ctx := context.WithValue(req.Context(), userIDKey, testutil.TestUser.ID)

	rec := httptest.NewRecorder()
	h.ImportCSV(rec, req.WithContext(ctx))

	require.Equal(t, http.StatusOK, rec.Code)
	data := successData(t, rec)
	assert.EqualValues(t, 1, data["imported"])
	assert.EqualValues(t, 1, data["skipped"])
	assert.Equal(t, 1, upserts)
}

func TestImportCSV_NotMultipart(t *testing.T) {
	h := newBookHandler(nil, nil, nil)

	rec := httptest.NewRecorder()
	h.ImportCSV(rec, authedRequest(t, http.MethodPost, "/books/import", map[string]string{"file": "nope"}, testutil.TestUser.ID))

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTogglePin(t *testing.T) {
	repo := &testutil.FakeBookRepository{
		TogglePinFn: func(ctx context.Context, userID, bookID string) (bool, error) {
			assert.Equal(t, "12345", bookID)
			return true, nil
		},
	}
	h := newBookHandler(repo, nil, nil)

	rec := httptest.NewRecorder()
	h.TogglePin(rec, authedRequest(t, http.MethodPost, "/books/12345/pin", nil, testutil.TestUser.ID), "12345")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, successData(t, rec)["pinned"])
}

func TestTogglePin_NotFound(t *testing.T) {
	repo := &testutil.FakeBookRepository{
		TogglePinFn: func(ctx context.Context, userID, bookID string) (bool, error) {
			return false, usecase.ErrNotFound
		},
	}
	h := newBookHandler(repo, nil, nil)

	rec := httptest.NewRecorder()
	h.TogglePin(rec, authedRequest(t, http.MethodPost, "/books/zzz/pin", nil, testutil.TestUser.ID), "zzz")

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateNotes(t *testing.T) {
	var gotNotes string
	repo := &testutil.FakeBookRepository{
		UpdateNotesFn: func(ctx context.Context, userID, bookID, notes string) error {
			gotNotes = notes
			return nil
		},
	}
	h := newBookHandler(repo, nil, nil)

	rec := httptest.NewRecorder()
	h.UpdateNotes(rec, authedRequest(t, http.MethodPut, "/books/12345/notes", map[string]string{
		"notes": "hold after the Batuman",
	}, testutil.TestUser.ID), "12345")

	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "hold after the Batuman", gotNotes)
}

func TestUpdateCulture(t *testing.T) {
	var gotCulture string
	repo := &testutil.FakeBookRepository{
		UpdateCultureFn: func(ctx context.Context, userID, bookID, culture string) error {
			gotCulture = culture
			return nil
		},
	}
	h := newBookHandler(repo, nil, nil)

	rec := httptest.NewRecorder()
	h.UpdateCulture(rec, authedRequest(t, http.MethodPatch, "/books/12345/culture", map[string]string{
		"culture": "German",
	}, testutil.TestUser.ID), "12345")

	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "German", gotCulture)
}

func TestRefreshBookEndpoint(t *testing.T) {
	fresh := testutil.TestBook
	fresh.LibraryStatus = entity.LibraryStatusAvailable
	calls := 0
	repo := &testutil.FakeBookRepository{
		GetByIDFn: func(ctx context.Context, userID, bookID string) (entity.Book, error) {
			calls++
			if calls == 1 {
				return testutil.TestBook, nil
			}
			return fresh, nil
		},
	}
	refresher := &fakeRefresher{
		RefreshBookFn: func(ctx context.Context, b entity.Book) error {
			assert.Equal(t, testutil.TestBook.BookID, b.BookID)
			return nil
		},
	}
	h := newBookHandler(repo, nil, refresher)

	rec := httptest.NewRecorder()
	h.Refresh(rec, authedRequest(t, http.MethodPost, "/books/12345/refresh", nil, testutil.TestUser.ID), "12345")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), entity.LibraryStatusAvailable)
	assert.Equal(t, 2, calls, "book is re-read after the refresh")
}

func TestRefreshBookEndpoint_RefreshFailure(t *testing.T) {
	repo := &testutil.FakeBookRepository{
		GetByIDFn: func(ctx context.Context, userID, bookID string) (entity.Book, error) {
			return testutil.TestBook, nil
		},
	}
	refresher := &fakeRefresher{
		RefreshBookFn: func(ctx context.Context, b entity.Book) error {
			return errors.New("catalog down")
		},
	}
	h := newBookHandler(repo, nil, refresher)

	rec := httptest.NewRecorder()
	h.Refresh(rec, authedRequest(t, http.MethodPost, "/books/12345/refresh", nil, testutil.TestUser.ID), "12345")

	require.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "REFRESH_FAILED", decodeError(t, rec).Error.Code)
}

func TestDeleteBook_NotFound(t *testing.T) {
	repo := &testutil.FakeBookRepository{
		DeleteFn: func(ctx context.Context, userID, bookID string) error {
			return usecase.ErrNotFound
		},
	}
	h := newBookHandler(repo, nil, nil)

	rec := httptest.NewRecorder()
	h.Delete(rec, authedRequest(t, http.MethodDelete, "/books/zzz", nil, testutil.TestUser.ID), "zzz")

	require.Equal(t, http.StatusNotFound, rec.Code)
}
