package store

import (
	"context"

	"libtrack/internal/entity"
	"libtrack/internal/usecase"

	"github.com/jackc/pgx/v5/pgxpool"
)

type RecommendationPG struct {
	db *pgxpool.Pool
}

func NewRecommendationPG(db *pgxpool.Pool) *RecommendationPG {
	return &RecommendationPG{db: db}
}

func (r *RecommendationPG) List(ctx context.Context, userID string) ([]entity.Recommendation, error) {
	const query = `
	SELECT id, user_id, title, author, recommended_by, created_at
	FROM recommendations
	WHERE user_id = $1
	ORDER BY created_at DESC
	`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []entity.Recommendation
	for rows.Next() {
		var rec entity.Recommendation
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.Title, &rec.Author, &rec.RecommendedBy, &rec.CreatedAt); err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return recs, nil
}

func (r *RecommendationPG) Add(ctx context.Context, rec *entity.Recommendation) error {
	const query = `
	INSERT INTO recommendations (user_id, title, author, recommended_by)
	VALUES ($1, $2, $3, $4)
	RETURNING id, created_at
	`
	return r.db.QueryRow(ctx, query, rec.UserID, rec.Title, rec.Author, rec.RecommendedBy).Scan(&rec.ID, &rec.CreatedAt)
}

func (r *RecommendationPG) Delete(ctx context.Context, userID string, id int) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM recommendations WHERE user_id = $1 AND id = $2`, userID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return usecase.ErrNotFound
	}
	return nil
}
