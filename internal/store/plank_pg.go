package store

import (
	"context"
	"errors"

	"libtrack/internal/entity"
	"libtrack/internal/usecase"

	"github.com/jackc/pgx/v5/pgxpool"
)

type PlankPG struct {
	db *pgxpool.Pool
}

func NewPlankPG(db *pgxpool.Pool) *PlankPG {
	return &PlankPG{db: db}
}

func (r *PlankPG) ListUsers(ctx context.Context) ([]entity.PlankUser, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name, avatar FROM plank_users ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []entity.PlankUser
	for rows.Next() {
		var u entity.PlankUser
		if err := rows.Scan(&u.ID, &u.Name, &u.Avatar); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (r *PlankPG) AddUser(ctx context.Context, name, avatar string) (entity.PlankUser, error) {
	const query = `
	INSERT INTO plank_users (name, avatar)
	VALUES ($1, $2)
	RETURNING id
	`
	u := entity.PlankUser{Name: name, Avatar: avatar}
	if err := r.db.QueryRow(ctx, query, name, avatar).Scan(&u.ID); err != nil {
		return entity.PlankUser{}, err
	}
	return u, nil
}

func (r *PlankPG) RecordTime(ctx context.Context, userID, seconds int) (int, error) {
	const query = `
	INSERT INTO plank_times (user_id, seconds)
	VALUES ($1, $2)
	RETURNING id
	`
	var id int
	if err := r.db.QueryRow(ctx, query, userID, seconds).Scan(&id); err != nil {
		var pgErr interface{ SQLState() string }
		if errors.As(err, &pgErr) && pgErr.SQLState() == "23503" {
			return 0, usecase.ErrNotFound
		}
		return 0, err
	}
	return id, nil
}

func (r *PlankPG) Leaderboard(ctx context.Context) ([]entity.PlankLeaderboardEntry, error) {
	const query = `
	SELECT u.id, u.name, u.avatar, max(t.seconds)
	FROM plank_users u
	LEFT JOIN plank_times t ON t.user_id = u.id
	GROUP BY u.id, u.name, u.avatar
	ORDER BY max(t.seconds) DESC NULLS LAST, u.name
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []entity.PlankLeaderboardEntry
	for rows.Next() {
		var e entity.PlankLeaderboardEntry
		if err := rows.Scan(&e.ID, &e.Name, &e.Avatar, &e.BestTime); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *PlankPG) History(ctx context.Context) ([]entity.PlankTime, error) {
	const query = `
	SELECT t.id, t.user_id, u.name, u.avatar, t.seconds, t.recorded_at
	FROM plank_times t
	JOIN plank_users u ON u.id = t.user_id
	ORDER BY t.recorded_at DESC
	LIMIT 100
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var times []entity.PlankTime
	for rows.Next() {
		var t entity.PlankTime
		if err := rows.Scan(&t.ID, &t.UserID, &t.Name, &t.Avatar, &t.Seconds, &t.RecordedAt); err != nil {
			return nil, err
		}
		times = append(times, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return times, nil
}
