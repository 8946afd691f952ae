package entity

import "time"

type User struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"-"` // bcrypt hash
	Role     string `json:"role"`

	// Library card credentials. AccountID is discovered by a trial login
	// at registration; all three are empty for users without a card.
	LibraryBarcode   string `json:"-"`
	LibraryPIN       string `json:"-"`
	LibraryAccountID string `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasLibraryCard reports whether hold operations are possible for the user.
func (u User) HasLibraryCard() bool {
	return u.LibraryBarcode != "" && u.LibraryPIN != "" && u.LibraryAccountID != ""
}
