package entity

import "time"

// The plank leaderboard is a small sub-app that shares the server process
// but has its own users, unrelated to book accounts.

type PlankUser struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
}

type PlankTime struct {
	ID         int       `json:"id"`
	UserID     int       `json:"user_id"`
	Name       string    `json:"name"`
	Avatar     string    `json:"avatar,omitempty"`
	Seconds    int       `json:"seconds"`
	RecordedAt time.Time `json:"recorded_at"`
}

type PlankLeaderboardEntry struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Avatar   string `json:"avatar,omitempty"`
	BestTime *int   `json:"best_time"`
}
