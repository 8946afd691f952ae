package entity

import "time"

type Recommendation struct {
	ID            int       `json:"id"`
	UserID        string    `json:"user_id"`
	Title         string    `json:"title"`
	Author        string    `json:"author,omitempty"`
	RecommendedBy string    `json:"recommended_by"`
	CreatedAt     time.Time `json:"created_at"`
}
