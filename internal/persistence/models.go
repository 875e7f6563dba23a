package persistence

import "time"

// Member represents a family member account.
type Member struct {
	ID           string
	Email        string
	DisplayName  string
	Color        string
	PasswordHash string
	IsAdmin      bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Event represents a calendar entry stored in persistence. Occurrences
// expanded from one recurrence request share a SeriesID equal to the first
// occurrence's own ID; SeriesID is nil for non-recurring events.
type Event struct {
	ID          string
	SeriesID    *string
	CreatorID   string
	Title       string
	Description string
	Color       string
	Completed   bool
	MemberIDs   []string
	Start       time.Time
	End         time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Note represents a family bulletin note.
type Note struct {
	ID        string
	AuthorID  string
	Title     string
	Body      string
	Pinned    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Session represents an authentication session persisted for a member.
type Session struct {
	ID        string
	MemberID  string
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
	RevokedAt *time.Time
}
