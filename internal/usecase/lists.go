package usecase

import (
	"context"

	"libtrack/internal/entity"
)

type RecommendationRepository interface {
	List(ctx context.Context, userID string) ([]entity.Recommendation, error)
	Add(ctx context.Context, rec *entity.Recommendation) error
	Delete(ctx context.Context, userID string, id int) error
}

type FinishedBookRepository interface {
	List(ctx context.Context, userID string) ([]entity.FinishedBook, error)
	Add(ctx context.Context, fb *entity.FinishedBook) error
	Update(ctx context.Context, userID string, id int, rating *int, review string) error
	Delete(ctx context.Context, userID string, id int) error
}

type PlankRepository interface {
	ListUsers(ctx context.Context) ([]entity.PlankUser, error)
	AddUser(ctx context.Context, name, avatar string) (entity.PlankUser, error)
	RecordTime(ctx context.Context, userID, seconds int) (int, error)
	Leaderboard(ctx context.Context) ([]entity.PlankLeaderboardEntry, error)
	History(ctx context.Context) ([]entity.PlankTime, error)
}
