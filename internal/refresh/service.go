package refresh

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"libtrack/internal/entity"
	"libtrack/internal/platform/bibliocommons"
	"libtrack/internal/usecase"
)

const (
	windowSize  = 5
	windowDelay = 300 * time.Millisecond
)

type Config struct {
	BatchSize     int
	FreshnessDays int
	OldestFirst   bool
}

type CatalogClient interface {
	SearchByISBN(ctx context.Context, isbn string) (*bibliocommons.CatalogRecord, error)
	SearchByTitleAuthor(ctx context.Context, title, author string) (*bibliocommons.CatalogRecord, error)
}

type RatingsClient interface {
	NumRatings(ctx context.Context, bookID string) (int, error)
	Genres(ctx context.Context, bookID string) ([]string, error)
}

type YearsClient interface {
	FirstPublishYear(ctx context.Context, title, author string) (int, error)
}

// Service re-checks stored books against the library catalog and backfills
// ratings and genres. Catalog lookups run in windows of five with a pause
// between windows so the vendor never sees a burst.
type Service struct {
	catalog  CatalogClient
	ratings  RatingsClient
	years    YearsClient
	bookRepo usecase.BookRepository
	cfg      Config
}

func NewService(catalog CatalogClient, ratings RatingsClient, years YearsClient, bookRepo usecase.BookRepository, cfg Config) *Service {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.FreshnessDays <= 0 {
		cfg.FreshnessDays = 1
	}
	return &Service{
		catalog:  catalog,
		ratings:  ratings,
		years:    years,
		bookRepo: bookRepo,
		cfg:      cfg,
	}
}

// RefreshLibrary checks up to BatchSize stale books for a user. Every book
// in the batch ends the run either updated or deliberately skipped; a
// transient lookup failure leaves the book stale so the next run retries it.
func (s *Service) RefreshLibrary(ctx context.Context, userID string) (int, error) {
	cutoff := time.Now().AddDate(0, 0, -s.cfg.FreshnessDays)
	books, err := s.bookRepo.ListStale(ctx, userID, cutoff, s.cfg.BatchSize, s.cfg.OldestFirst)
	if err != nil {
		return 0, err
	}
	if len(books) == 0 {
		return 0, nil
	}

	var (
		mu      sync.Mutex
		updated int
	)
	for start := 0; start < len(books); start += windowSize {
		if err := ctx.Err(); err != nil {
			return updated, err
		}

		end := start + windowSize
		if end > len(books) {
			end = len(books)
		}

		var wg sync.WaitGroup
		for _, b := range books[start:end] {
			wg.Add(1)
			go func(b entity.Book) {
				defer wg.Done()
				if s.refreshOne(ctx, b) {
					mu.Lock()
					updated++
					mu.Unlock()
				}
			}(b)
		}
		wg.Wait()

		if end < len(books) {
			time.Sleep(windowDelay)
		}
	}
	return updated, nil
}

func (s *Service) refreshOne(ctx context.Context, b entity.Book) bool {
	rec, err := s.lookup(ctx, b)
	if errors.Is(err, bibliocommons.ErrNotFound) {
		// Not in the catalog at all. Terminal: record the verdict so the
		// book stops showing up as stale.
		u := usecase.CatalogUpdate{
			Status:    entity.LibraryStatusNotFound,
			CheckedAt: time.Now(),
		}
		if err := s.bookRepo.UpdateCatalog(ctx, b.UserID, b.BookID, u); err != nil {
			log.Printf("refresh: mark not found %q: %v", b.Title, err)
			return false
		}
		return true
	}
	if err != nil {
		log.Printf("refresh: catalog lookup %q: %v", b.Title, err)
		return false
	}

	u := usecase.CatalogUpdate{
		Status:          rec.Status,
		AvailableCopies: &rec.AvailableCopies,
		TotalCopies:     &rec.TotalCopies,
		HeldCopies:      &rec.HeldCopies,
		Format:          rec.Format,
		CatalogURL:      rec.CatalogURL,
		BranchAvailable: rec.BranchAvailable,
		CheckedAt:       time.Now(),
	}
	if err := s.bookRepo.UpdateCatalog(ctx, b.UserID, b.BookID, u); err != nil {
		log.Printf("refresh: store catalog %q: %v", b.Title, err)
		return false
	}
	return true
}

// lookup tries the strongest identifier first and falls back to a
// title/author search before conceding the book is not in the catalog.
func (s *Service) lookup(ctx context.Context, b entity.Book) (*bibliocommons.CatalogRecord, error) {
	isbn := b.ISBN13
	if isbn == "" {
		isbn = b.ISBN
	}
	if isbn != "" {
		rec, err := s.catalog.SearchByISBN(ctx, isbn)
		if err == nil {
			return rec, nil
		}
		if !errors.Is(err, bibliocommons.ErrNotFound) {
			return nil, err
		}
	}
	return s.catalog.SearchByTitleAuthor(ctx, b.Title, b.Author)
}

// RefreshBook re-checks a single book on demand, fetching catalog state and
// any missing ratings or genres concurrently. Only the catalog check decides
// the outcome: scrape failures are logged and the fields stay unfilled until
// the next batch run.
func (s *Service) RefreshBook(ctx context.Context, b entity.Book) error {
	var wg sync.WaitGroup
	var catalogErr error

	wg.Add(1)
	go func() {
		defer wg.Done()
		if !s.refreshOne(ctx, b) {
			catalogErr = fmt.Errorf("catalog check failed for %q", b.Title)
		}
	}()

	if b.NumRatings == nil && hasScrapeID(b.BookID) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := s.ratings.NumRatings(ctx, b.BookID)
			if err != nil {
				log.Printf("refresh: ratings %q: %v", b.Title, err)
				return
			}
			if err := s.bookRepo.UpdateNumRatings(ctx, b.UserID, b.BookID, n); err != nil {
				log.Printf("refresh: store ratings %q: %v", b.Title, err)
			}
		}()
	}

	if len(b.Genres) == 0 && hasScrapeID(b.BookID) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			genres, err := s.ratings.Genres(ctx, b.BookID)
			if err != nil {
				log.Printf("refresh: genres %q: %v", b.Title, err)
				return
			}
			if len(genres) == 0 {
				return
			}
			if err := s.bookRepo.UpdateGenres(ctx, b.UserID, b.BookID, genres); err != nil {
				log.Printf("refresh: store genres %q: %v", b.Title, err)
			}
		}()
	}

	wg.Wait()
	return catalogErr
}

// hasScrapeID reports whether the book id is a numeric ratings-site id.
// Hand-added books carry generated ids the site knows nothing about, so
// scraping them would only ever 404.
func hasScrapeID(id string) bool {
	if id == "" {
		return false
	}
	for _, r := range id {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// RefreshRatings backfills the ratings count for books that lack one. The
// scraper degrades to zero on missing pages, which is stored as-is so the
// book is not retried forever.
func (s *Service) RefreshRatings(ctx context.Context, userID string) (int, error) {
	books, err := s.bookRepo.ListMissingRatings(ctx, userID, s.cfg.BatchSize)
	if err != nil {
		return 0, err
	}

	updated := 0
	for _, b := range books {
		if err := ctx.Err(); err != nil {
			return updated, err
		}
		if !hasScrapeID(b.BookID) {
			continue
		}
		n, err := s.ratings.NumRatings(ctx, b.BookID)
		if err != nil {
			log.Printf("refresh: ratings %q: %v", b.Title, err)
			continue
		}
		if err := s.bookRepo.UpdateNumRatings(ctx, b.UserID, b.BookID, n); err != nil {
			log.Printf("refresh: store ratings %q: %v", b.Title, err)
			continue
		}
		updated++
	}
	return updated, nil
}

// RefreshGenres backfills genre slugs for books that have none.
func (s *Service) RefreshGenres(ctx context.Context, userID string) (int, error) {
	books, err := s.bookRepo.ListMissingGenres(ctx, userID, s.cfg.BatchSize)
	if err != nil {
		return 0, err
	}

	updated := 0
	for _, b := range books {
		if err := ctx.Err(); err != nil {
			return updated, err
		}
		if !hasScrapeID(b.BookID) {
			continue
		}
		genres, err := s.ratings.Genres(ctx, b.BookID)
		if err != nil {
			log.Printf("refresh: genres %q: %v", b.Title, err)
			continue
		}
		if len(genres) == 0 {
			continue
		}
		if err := s.bookRepo.UpdateGenres(ctx, b.UserID, b.BookID, genres); err != nil {
			log.Printf("refresh: store genres %q: %v", b.Title, err)
			continue
		}
		updated++
	}
	return updated, nil
}

// RefreshPublishYears backfills the first-publication year for books that
// lack one. A lookup that finds nothing is skipped, not stored, so a later
// run can try again once the index catches up.
func (s *Service) RefreshPublishYears(ctx context.Context, userID string) (int, error) {
	books, err := s.bookRepo.ListMissingPublishYears(ctx, userID, s.cfg.BatchSize)
	if err != nil {
		return 0, err
	}

	updated := 0
	for _, b := range books {
		if err := ctx.Err(); err != nil {
			return updated, err
		}
		year, err := s.years.FirstPublishYear(ctx, b.Title, b.Author)
		if err != nil {
			log.Printf("refresh: publish year %q: %v", b.Title, err)
			continue
		}
		if year == 0 {
			continue
		}
		if err := s.bookRepo.UpdatePublishYear(ctx, b.UserID, b.BookID, year); err != nil {
			log.Printf("refresh: store publish year %q: %v", b.Title, err)
			continue
		}
		updated++
	}
	return updated, nil
}
