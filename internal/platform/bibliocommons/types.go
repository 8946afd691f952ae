package bibliocommons

import "time"

// Credentials identify a library patron. AccountID is the vendor-side
// numeric account, discovered once via DiscoverAccountID.
type Credentials struct {
	Barcode   string
	PIN       string
	AccountID string
}

// Session is an authenticated browser-style session against the vendor
// portal: the accumulated cookie string plus the two tokens the gateway API
// expects as custom headers.
type Session struct {
	Cookies     string
	AccessToken string
	SessionID   string
	ExpiresAt   time.Time
}

// Catalog availability statuses.
const (
	StatusAvailable   = "AVAILABLE"
	StatusUnavailable = "UNAVAILABLE"
	StatusNotFound    = "NOT_FOUND"
)

// CatalogRecord is a point-in-time availability snapshot for a single work.
type CatalogRecord struct {
	BibID           string `json:"bib_id"`
	Title           string `json:"title"`
	Author          string `json:"author"`
	Format          string `json:"format"`
	Status          string `json:"status"` // AVAILABLE | UNAVAILABLE
	AvailableCopies int    `json:"available_copies"`
	TotalCopies     int    `json:"total_copies"`
	HeldCopies      int    `json:"held_copies"`
	CatalogURL      string `json:"catalog_url"`
	BranchAvailable bool   `json:"branch_available"`
}

// BranchStatus is the per-branch availability of one item.
type BranchStatus struct {
	Branch string `json:"branch"`
	Status string `json:"status"`
}

// Edition is one physical variant of a work, produced transiently for
// hold-placement decisions.
type Edition struct {
	CatalogRecord
	Subtitle   string         `json:"subtitle,omitempty"`
	Year       string         `json:"year,omitempty"`
	Series     string         `json:"series,omitempty"`
	Translator string         `json:"translator,omitempty"`
	Branches   []BranchStatus `json:"branches,omitempty"`
}

// Hold statuses. Anything the vendor sends that we do not recognize maps to
// HoldStatusUnknown with the raw text preserved in StatusText.
const (
	HoldStatusInTransit       = "in_transit"
	HoldStatusNotYetAvailable = "not_yet_available"
	HoldStatusReady           = "ready"
	HoldStatusUnknown         = "unknown"
)

type Hold struct {
	HoldID     string `json:"hold_id"`
	BibID      string `json:"bib_id"`
	Title      string `json:"title"`
	Author     string `json:"author"`
	Format     string `json:"format"`
	Year       string `json:"year"`
	Status     string `json:"status"`
	StatusText string `json:"status_text"`
	TotalHolds *int   `json:"total_holds,omitempty"`
	DueDate    string `json:"due_date,omitempty"`
	PickupBy   string `json:"pickup_by,omitempty"`
}

// HoldResult is the user-facing outcome of a place or cancel call.
type HoldResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
