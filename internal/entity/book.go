package entity

import "time"

// Library availability statuses as stored on a book. An empty string means
// the book has never been checked against the catalog.
const (
	LibraryStatusAvailable   = "AVAILABLE"
	LibraryStatusUnavailable = "UNAVAILABLE"
	LibraryStatusNotFound    = "NOT_FOUND"
)

type Book struct {
	BookID      string    `json:"book_id"`
	UserID      string    `json:"user_id"`
	Title       string    `json:"title"`
	Author      string    `json:"author"`
	ISBN        string    `json:"isbn"`
	ISBN13      string    `json:"isbn13"`
	DateAdded   time.Time `json:"date_added"`
	AvgRating   float64   `json:"avg_rating"`
	NumRatings  *int      `json:"num_ratings"`
	Genres      []string  `json:"genres"`
	PublishYear *int      `json:"publish_year"`
	Culture     string    `json:"culture,omitempty"`
	Pinned      bool      `json:"pinned"`
	Notes       string    `json:"notes,omitempty"`

	// Catalog snapshot, merged in on each refresh.
	LibraryStatus    string     `json:"library_status,omitempty"`
	AvailableCopies  *int       `json:"available_copies"`
	TotalCopies      *int       `json:"total_copies"`
	HeldCopies       *int       `json:"held_copies"`
	LibraryFormat    string     `json:"library_format,omitempty"`
	CatalogURL       string     `json:"catalog_url,omitempty"`
	BranchAvailable  bool       `json:"branch_available"`
	LibraryCheckedAt *time.Time `json:"library_checked_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Stats summarizes a user's collection by library status.
type Stats struct {
	Total       int `json:"total"`
	Available   int `json:"available"`
	Unavailable int `json:"unavailable"`
	NotFound    int `json:"not_found"`
	Unchecked   int `json:"unchecked"`
}

// GenreCount is one entry of the aggregated genre listing.
type GenreCount struct {
	Genre string `json:"genre"`
	Count int    `json:"count"`
}
