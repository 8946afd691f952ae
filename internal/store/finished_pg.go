package store

import (
	"context"

	"libtrack/internal/entity"
	"libtrack/internal/usecase"

	"github.com/jackc/pgx/v5/pgxpool"
)

type FinishedPG struct {
	db *pgxpool.Pool
}

func NewFinishedPG(db *pgxpool.Pool) *FinishedPG {
	return &FinishedPG{db: db}
}

func (r *FinishedPG) List(ctx context.Context, userID string) ([]entity.FinishedBook, error) {
	const query = `
	SELECT id, user_id, title, author, rating, review, created_at, updated_at
	FROM finished_books
	WHERE user_id = $1
	ORDER BY created_at DESC
	`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var books []entity.FinishedBook
	for rows.Next() {
		var fb entity.FinishedBook
		if err := rows.Scan(&fb.ID, &fb.UserID, &fb.Title, &fb.Author, &fb.Rating, &fb.Review, &fb.CreatedAt, &fb.UpdatedAt); err != nil {
			return nil, err
		}
		books = append(books, fb)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return books, nil
}

func (r *FinishedPG) Add(ctx context.Context, fb *entity.FinishedBook) error {
	const query = `
	INSERT INTO finished_books (user_id, title, author, rating, review)
	VALUES ($1, $2, $3, $4, $5)
	RETURNING id, created_at, updated_at
	`
	return r.db.QueryRow(ctx, query, fb.UserID, fb.Title, fb.Author, fb.Rating, fb.Review).Scan(&fb.ID, &fb.CreatedAt, &fb.UpdatedAt)
}

func (r *FinishedPG) Update(ctx context.Context, userID string, id int, rating *int, review string) error {
	const query = `
	UPDATE finished_books SET rating = $3, review = $4, updated_at = now()
	WHERE user_id = $1 AND id = $2
	`
	tag, err := r.db.Exec(ctx, query, userID, id, rating, review)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return usecase.ErrNotFound
	}
	return nil
}

func (r *FinishedPG) Delete(ctx context.Context, userID string, id int) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM finished_books WHERE user_id = $1 AND id = $2`, userID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return usecase.ErrNotFound
	}
	return nil
}
