package testutil

import (
	"context"
	"time"

	"libtrack/internal/entity"
	"libtrack/internal/usecase"
)

// TestUser is a fixture account used across handler tests.
var TestUser = entity.User{
	ID:        "test-user-id-123",
	Username:  "testuser",
	Email:     "test@example.com",
	Password:  "hashedpassword",
	Role:      "USER",
	CreatedAt: time.Now(),
	UpdatedAt: time.Now(),
}

// TestCardUser is TestUser with a verified library card.
var TestCardUser = entity.User{
	ID:               "test-user-id-123",
	Username:         "testuser",
	Email:            "test@example.com",
	Password:         "hashedpassword",
	Role:             "USER",
	LibraryBarcode:   "23456000012345",
	LibraryPIN:       "1234",
	LibraryAccountID: "987654",
}

// TestBook is a fixture book positioned as never checked against the catalog.
var TestBook = entity.Book{
	BookID:    "12345",
	UserID:    TestUser.ID,
	Title:     "The Magic Mountain",
	Author:    "Thomas Mann",
	ISBN13:    "9780749386429",
	AvgRating: 4.14,
	DateAdded: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
}

// FakeBookRepository implements usecase.BookRepository with overridable
// function fields. Unset fields return zero values.
type FakeBookRepository struct {
	UpsertFn             func(ctx context.Context, b *entity.Book) error
	GetByIDFn            func(ctx context.Context, userID, bookID string) (entity.Book, error)
	ListByUserFn         func(ctx context.Context, userID string) ([]entity.Book, error)
	ListStaleFn          func(ctx context.Context, userID string, cutoff time.Time, limit int, oldestFirst bool) ([]entity.Book, error)
	ListMissingRatingsFn func(ctx context.Context, userID string, limit int) ([]entity.Book, error)
	ListMissingGenresFn  func(ctx context.Context, userID string, limit int) ([]entity.Book, error)
	ListMissingYearsFn   func(ctx context.Context, userID string, limit int) ([]entity.Book, error)
	UpdateCatalogFn      func(ctx context.Context, userID, bookID string, u usecase.CatalogUpdate) error
	UpdateNumRatingsFn   func(ctx context.Context, userID, bookID string, numRatings int) error
	UpdateGenresFn       func(ctx context.Context, userID, bookID string, genres []string) error
	UpdatePublishYearFn  func(ctx context.Context, userID, bookID string, year int) error
	UpdateCultureFn      func(ctx context.Context, userID, bookID, culture string) error
	UpdateNotesFn        func(ctx context.Context, userID, bookID, notes string) error
	TogglePinFn          func(ctx context.Context, userID, bookID string) (bool, error)
	DeleteFn             func(ctx context.Context, userID, bookID string) error
	StatsFn              func(ctx context.Context, userID string) (entity.Stats, error)
	GenreCountsFn        func(ctx context.Context, userID string) ([]entity.GenreCount, error)
}

func (f *FakeBookRepository) Upsert(ctx context.Context, b *entity.Book) error {
	if f.UpsertFn != nil {
		return f.UpsertFn(ctx, b)
	}
	return nil
}

func (f *FakeBookRepository) GetByID(ctx context.Context, userID, bookID string) (entity.Book, error) {
	if f.GetByIDFn != nil {
		return f.GetByIDFn(ctx, userID, bookID)
	}
	return entity.Book{}, usecase.ErrNotFound
}

func (f *FakeBookRepository) ListByUser(ctx context.Context, userID string) ([]entity.Book, error) {
	if f.ListByUserFn != nil {
		return f.ListByUserFn(ctx, userID)
	}
	return nil, nil
}

func (f *FakeBookRepository) ListStale(ctx context.Context, userID string, cutoff time.Time, limit int, oldestFirst bool) ([]entity.Book, error) {
	if f.ListStaleFn != nil {
		return f.ListStaleFn(ctx, userID, cutoff, limit, oldestFirst)
	}
	return nil, nil
}

func (f *FakeBookRepository) ListMissingRatings(ctx context.Context, userID string, limit int) ([]entity.Book, error) {
	if f.ListMissingRatingsFn != nil {
		return f.ListMissingRatingsFn(ctx, userID, limit)
	}
	return nil, nil
}

func (f *FakeBookRepository) ListMissingGenres(ctx context.Context, userID string, limit int) ([]entity.Book, error) {
	if f.ListMissingGenresFn != nil {
		return f.ListMissingGenresFn(ctx, userID, limit)
	}
	return nil, nil
}

func (f *FakeBookRepository) ListMissingPublishYears(ctx context.Context, userID string, limit int) ([]entity.Book, error) {
	if f.ListMissingYearsFn != nil {
		return f.ListMissingYearsFn(ctx, userID, limit)
	}
	return nil, nil
}

func (f *FakeBookRepository) UpdateCatalog(ctx context.Context, userID, bookID string, u usecase.CatalogUpdate) error {
	if f.UpdateCatalogFn != nil {
		return f.UpdateCatalogFn(ctx, userID, bookID, u)
	}
	return nil
}

func (f *FakeBookRepository) UpdateNumRatings(ctx context.Context, userID, bookID string, numRatings int) error {
	if f.UpdateNumRatingsFn != nil {
		return f.UpdateNumRatingsFn(ctx, userID, bookID, numRatings)
	}
	return nil
}

func (f *FakeBookRepository) UpdateGenres(ctx context.Context, userID, bookID string, genres []string) error {
	if f.UpdateGenresFn != nil {
		return f.UpdateGenresFn(ctx, userID, bookID, genres)
	}
	return nil
}

func (f *FakeBookRepository) UpdatePublishYear(ctx context.Context, userID, bookID string, year int) error {
	if f.UpdatePublishYearFn != nil {
		return f.UpdatePublishYearFn(ctx, userID, bookID, year)
	}
	return nil
}

func (f *FakeBookRepository) UpdateCulture(ctx context.Context, userID, bookID, culture string) error {
	if f.UpdateCultureFn != nil {
		return f.UpdateCultureFn(ctx, userID, bookID, culture)
	}
	return nil
}

func (f *FakeBookRepository) UpdateNotes(ctx context.Context, userID, bookID, notes string) error {
	if f.UpdateNotesFn != nil {
		return f.UpdateNotesFn(ctx, userID, bookID, notes)
	}
	return nil
}

func (f *FakeBookRepository) TogglePin(ctx context.Context, userID, bookID string) (bool, error) {
	if f.TogglePinFn != nil {
		return f.TogglePinFn(ctx, userID, bookID)
	}
	return false, nil
}

func (f *FakeBookRepository) Delete(ctx context.Context, userID, bookID string) error {
	if f.DeleteFn != nil {
		return f.DeleteFn(ctx, userID, bookID)
	}
	return nil
}

func (f *FakeBookRepository) Stats(ctx context.Context, userID string) (entity.Stats, error) {
	if f.StatsFn != nil {
		return f.StatsFn(ctx, userID)
	}
	return entity.Stats{}, nil
}

func (f *FakeBookRepository) GenreCounts(ctx context.Context, userID string) ([]entity.GenreCount, error) {
	if f.GenreCountsFn != nil {
		return f.GenreCountsFn(ctx, userID)
	}
	return nil, nil
}

// FakeUserRepository implements usecase.UserRepository.
type FakeUserRepository struct {
	CreateFn                   func(ctx context.Context, u *entity.User) error
	GetByEmailFn               func(ctx context.Context, email string) (entity.User, error)
	GetByIDFn                  func(ctx context.Context, id string) (entity.User, error)
	UpdateLibraryCredentialsFn func(ctx context.Context, userID, barcode, pin, accountID string) error
}

func (f *FakeUserRepository) Create(ctx context.Context, u *entity.User) error {
	if f.CreateFn != nil {
		return f.CreateFn(ctx, u)
	}
	u.ID = "new-user-id"
	return nil
}

func (f *FakeUserRepository) GetByEmail(ctx context.Context, email string) (entity.User, error) {
	if f.GetByEmailFn != nil {
		return f.GetByEmailFn(ctx, email)
	}
	return entity.User{}, usecase.ErrNotFound
}

func (f *FakeUserRepository) GetByID(ctx context.Context, id string) (entity.User, error) {
	if f.GetByIDFn != nil {
		return f.GetByIDFn(ctx, id)
	}
	return entity.User{}, usecase.ErrNotFound
}

func (f *FakeUserRepository) UpdateLibraryCredentials(ctx context.Context, userID, barcode, pin, accountID string) error {
	if f.UpdateLibraryCredentialsFn != nil {
		return f.UpdateLibraryCredentialsFn(ctx, userID, barcode, pin, accountID)
	}
	return nil
}

// FakeSessionRepository implements usecase.SessionRepository.
type FakeSessionRepository struct {
	CreateFn            func(ctx context.Context, session *entity.Session) error
	GetByTokenHashFn    func(ctx context.Context, tokenHash string) (entity.Session, error)
	DeleteFn            func(ctx context.Context, sessionID string) error
	DeleteByTokenHashFn func(ctx context.Context, tokenHash string) error
	CleanupExpiredFn    func(ctx context.Context) error
}

func (f *FakeSessionRepository) Create(ctx context.Context, session *entity.Session) error {
	if f.CreateFn != nil {
		return f.CreateFn(ctx, session)
	}
	session.ID = "new-session-id"
	return nil
}

func (f *FakeSessionRepository) GetByTokenHash(ctx context.Context, tokenHash string) (entity.Session, error) {
	if f.GetByTokenHashFn != nil {
		return f.GetByTokenHashFn(ctx, tokenHash)
	}
	return entity.Session{}, usecase.ErrNotFound
}

func (f *FakeSessionRepository) Delete(ctx context.Context, sessionID string) error {
	if f.DeleteFn != nil {
		return f.DeleteFn(ctx, sessionID)
	}
	return nil
}

func (f *FakeSessionRepository) DeleteByTokenHash(ctx context.Context, tokenHash string) error {
	if f.DeleteByTokenHashFn != nil {
		return f.DeleteByTokenHashFn(ctx, tokenHash)
	}
	return nil
}

func (f *FakeSessionRepository) CleanupExpired(ctx context.Context) error {
	if f.CleanupExpiredFn != nil {
		return f.CleanupExpiredFn(ctx)
	}
	return nil
}
