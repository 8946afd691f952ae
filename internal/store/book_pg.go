package store

import (
	"context"
	"errors"
	"time"

	"libtrack/internal/entity"
	"libtrack/internal/usecase"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const bookColumns = `
	book_id, user_id, title, author, isbn, isbn13, date_added, avg_rating,
	num_ratings, genres, publish_year, culture, pinned, notes,
	library_status, available_copies, total_copies, held_copies,
	library_format, catalog_url, branch_available, library_checked_at,
	created_at, updated_at`

type BookPG struct {
	db *pgxpool.Pool
}

func NewBookPG(db *pgxpool.Pool) *BookPG {
	return &BookPG{db: db}
}

func (r *BookPG) Upsert(ctx context.Context, b *entity.Book) error {
	// Re-imports refresh the bibliographic fields only. Catalog state,
	// genres and notes accumulated since the first import survive, and a
	// resolved publish year is kept when the incoming row has none.
	const query = `
	INSERT INTO books (book_id, user_id, title, author, isbn, isbn13, date_added, avg_rating, publish_year)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	ON CONFLICT (user_id, book_id) DO UPDATE SET
		title = EXCLUDED.title,
		author = EXCLUDED.author,
		isbn = EXCLUDED.isbn,
		isbn13 = EXCLUDED.isbn13,
		date_added = EXCLUDED.date_added,
		avg_rating = EXCLUDED.avg_rating,
		publish_year = COALESCE(EXCLUDED.publish_year, books.publish_year),
		updated_at = now()
	RETURNING created_at, updated_at
	`
	return r.db.QueryRow(ctx, query,
		b.BookID,
		b.UserID,
		b.Title,
		b.Author,
		b.ISBN,
		b.ISBN13,
		b.DateAdded,
		b.AvgRating,
		b.PublishYear,
	).Scan(&b.CreatedAt, &b.UpdatedAt)
}

func (r *BookPG) GetByID(ctx context.Context, userID, bookID string) (entity.Book, error) {
	query := `SELECT` + bookColumns + `
	FROM books
	WHERE user_id = $1 AND book_id = $2
	LIMIT 1
	`
	b, err := scanBook(r.db.QueryRow(ctx, query, userID, bookID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return entity.Book{}, usecase.ErrNotFound
		}
		return entity.Book{}, err
	}
	return b, nil
}

func (r *BookPG) ListByUser(ctx context.Context, userID string) ([]entity.Book, error) {
	query := `SELECT` + bookColumns + `
	FROM books
	WHERE user_id = $1
	ORDER BY pinned DESC, date_added DESC
	`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectBooks(rows)
}

func (r *BookPG) ListStale(ctx context.Context, userID string, cutoff time.Time, limit int, oldestFirst bool) ([]entity.Book, error) {
	order := "date_added DESC"
	if oldestFirst {
		order = "date_added ASC"
	}
	query := `SELECT` + bookColumns + `
	FROM books
	WHERE user_id = $1
	AND (library_checked_at IS NULL OR library_checked_at < $2)
	AND (library_status IS DISTINCT FROM 'NOT_FOUND')
	ORDER BY ` + order + `
	LIMIT $3
	`
	rows, err := r.db.Query(ctx, query, userID, cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectBooks(rows)
}

func (r *BookPG) ListMissingRatings(ctx context.Context, userID string, limit int) ([]entity.Book, error) {
	query := `SELECT` + bookColumns + `
	FROM books
	WHERE user_id = $1 AND num_ratings IS NULL
	ORDER BY date_added DESC
	LIMIT $2
	`
	rows, err := r.db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectBooks(rows)
}

func (r *BookPG) ListMissingGenres(ctx context.Context, userID string, limit int) ([]entity.Book, error) {
	query := `SELECT` + bookColumns + `
	FROM books
	WHERE user_id = $1 AND (genres IS NULL OR cardinality(genres) = 0)
	ORDER BY date_added DESC
	LIMIT $2
	`
	rows, err := r.db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectBooks(rows)
}

func (r *BookPG) ListMissingPublishYears(ctx context.Context, userID string, limit int) ([]entity.Book, error) {
	query := `SELECT` + bookColumns + `
	FROM books
	WHERE user_id = $1 AND publish_year IS NULL
	ORDER BY date_added DESC
	LIMIT $2
	`
	rows, err := r.db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectBooks(rows)
}

func (r *BookPG) UpdateCatalog(ctx context.Context, userID, bookID string, u usecase.CatalogUpdate) error {
	const query = `
	UPDATE books SET
		library_status = $3,
		available_copies = $4,
		total_copies = $5,
		held_copies = $6,
		library_format = $7,
		catalog_url = $8,
		branch_available = $9,
		library_checked_at = $10,
		updated_at = now()
	WHERE user_id = $1 AND book_id = $2
	`
	return r.exec(ctx, query, userID, bookID,
		u.Status,
		u.AvailableCopies,
		u.TotalCopies,
		u.HeldCopies,
		u.Format,
		u.CatalogURL,
		u.BranchAvailable,
		u.CheckedAt,
	)
}

func (r *BookPG) UpdateNumRatings(ctx context.Context, userID, bookID string, numRatings int) error {
	const query = `
	UPDATE books SET num_ratings = $3, updated_at = now()
	WHERE user_id = $1 AND book_id = $2
	`
	return r.exec(ctx, query, userID, bookID, numRatings)
}

func (r *BookPG) UpdateGenres(ctx context.Context, userID, bookID string, genres []string) error {
	const query = `
	UPDATE books SET genres = $3, updated_at = now()
	WHERE user_id = $1 AND book_id = $2
	`
	return r.exec(ctx, query, userID, bookID, genres)
}

func (r *BookPG) UpdatePublishYear(ctx context.Context, userID, bookID string, year int) error {
	const query = `
	UPDATE books SET publish_year = $3, updated_at = now()
	WHERE user_id = $1 AND book_id = $2
	`
	return r.exec(ctx, query, userID, bookID, year)
}

func (r *BookPG) UpdateCulture(ctx context.Context, userID, bookID, culture string) error {
	const query = `
	UPDATE books SET culture = $3, updated_at = now()
	WHERE user_id = $1 AND book_id = $2
	`
	return r.exec(ctx, query, userID, bookID, culture)
}

func (r *BookPG) UpdateNotes(ctx context.Context, userID, bookID, notes string) error {
	const query = `
	UPDATE books SET notes = $3, updated_at = now()
	WHERE user_id = $1 AND book_id = $2
	`
	return r.exec(ctx, query, userID, bookID, notes)
}

func (r *BookPG) TogglePin(ctx context.Context, userID, bookID string) (bool, error) {
	const query = `
	UPDATE books SET pinned = NOT pinned, updated_at = now()
	WHERE user_id = $1 AND book_id = $2
	RETURNING pinned
	`
	var pinned bool
	err := r.db.QueryRow(ctx, query, userID, bookID).Scan(&pinned)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, usecase.ErrNotFound
		}
		return false, err
	}
	return pinned, nil
}

func (r *BookPG) Delete(ctx context.Context, userID, bookID string) error {
	const query = `DELETE FROM books WHERE user_id = $1 AND book_id = $2`
	tag, err := r.db.Exec(ctx, query, userID, bookID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return usecase.ErrNotFound
	}
	return nil
}

func (r *BookPG) Stats(ctx context.Context, userID string) (entity.Stats, error) {
	const query = `
	SELECT
		count(*),
		count(*) FILTER (WHERE library_status = 'AVAILABLE'),
		count(*) FILTER (WHERE library_status = 'UNAVAILABLE'),
		count(*) FILTER (WHERE library_status = 'NOT_FOUND'),
		count(*) FILTER (WHERE library_status IS NULL OR library_status = '')
	FROM books
	WHERE user_id = $1
	`
	var s entity.Stats
	err := r.db.QueryRow(ctx, query, userID).Scan(&s.Total, &s.Available, &s.Unavailable, &s.NotFound, &s.Unchecked)
	if err != nil {
		return entity.Stats{}, err
	}
	return s, nil
}

func (r *BookPG) GenreCounts(ctx context.Context, userID string) ([]entity.GenreCount, error) {
	const query = `
	SELECT g, count(*)
	FROM books, unnest(genres) AS g
	WHERE user_id = $1
	GROUP BY g
	ORDER BY count(*) DESC, g
	`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counts []entity.GenreCount
	for rows.Next() {
		var gc entity.GenreCount
		if err := rows.Scan(&gc.Genre, &gc.Count); err != nil {
			return nil, err
		}
		counts = append(counts, gc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return counts, nil
}

func (r *BookPG) exec(ctx context.Context, query, userID, bookID string, args ...any) error {
	tag, err := r.db.Exec(ctx, query, append([]any{userID, bookID}, args...)...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return usecase.ErrNotFound
	}
	return nil
}

func scanBook(row pgx.Row) (entity.Book, error) {
	var b entity.Book
	err := row.Scan(
		&b.BookID,
		&b.UserID,
		&b.Title,
		&b.Author,
		&b.ISBN,
		&b.ISBN13,
		&b.DateAdded,
		&b.AvgRating,
		&b.NumRatings,
		&b.Genres,
		&b.PublishYear,
		&b.Culture,
		&b.Pinned,
		&b.Notes,
		&b.LibraryStatus,
		&b.AvailableCopies,
		&b.TotalCopies,
		&b.HeldCopies,
		&b.LibraryFormat,
		&b.CatalogURL,
		&b.BranchAvailable,
		&b.LibraryCheckedAt,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	return b, err
}

func collectBooks(rows pgx.Rows) ([]entity.Book, error) {
	var books []entity.Book
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		books = append(books, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return books, nil
}
