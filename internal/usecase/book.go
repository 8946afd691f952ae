package usecase

import (
	"context"
	"time"

	"libtrack/internal/entity"
)

// CatalogUpdate is the availability snapshot written back after a catalog
// check. A NOT_FOUND result carries nil copy counts.
type CatalogUpdate struct {
	Status          string
	AvailableCopies *int
	TotalCopies     *int
	HeldCopies      *int
	Format          string
	CatalogURL      string
	BranchAvailable bool
	CheckedAt       time.Time
}

type BookRepository interface {
	Upsert(ctx context.Context, b *entity.Book) error
	GetByID(ctx context.Context, userID, bookID string) (entity.Book, error)
	ListByUser(ctx context.Context, userID string) ([]entity.Book, error)
	// ListStale returns books never checked against the catalog or checked
	// before the cutoff, oldest-added last unless oldestFirst is set.
	ListStale(ctx context.Context, userID string, cutoff time.Time, limit int, oldestFirst bool) ([]entity.Book, error)
	ListMissingRatings(ctx context.Context, userID string, limit int) ([]entity.Book, error)
	ListMissingGenres(ctx context.Context, userID string, limit int) ([]entity.Book, error)
	ListMissingPublishYears(ctx context.Context, userID string, limit int) ([]entity.Book, error)
	UpdateCatalog(ctx context.Context, userID, bookID string, u CatalogUpdate) error
	UpdateNumRatings(ctx context.Context, userID, bookID string, numRatings int) error
	UpdateGenres(ctx context.Context, userID, bookID string, genres []string) error
	UpdatePublishYear(ctx context.Context, userID, bookID string, year int) error
	UpdateCulture(ctx context.Context, userID, bookID, culture string) error
	UpdateNotes(ctx context.Context, userID, bookID, notes string) error
	TogglePin(ctx context.Context, userID, bookID string) (bool, error)
	Delete(ctx context.Context, userID, bookID string) error
	Stats(ctx context.Context, userID string) (entity.Stats, error)
	GenreCounts(ctx context.Context, userID string) ([]entity.GenreCount, error)
}
