package persistence

import (
	"context"
	"time"
)

// MemberRepository exposes CRUD operations for family members.
type MemberRepository interface {
	CreateMember(ctx context.Context, member Member) error
	UpdateMember(ctx context.Context, member Member) error
	GetMember(ctx context.Context, id string) (Member, error)
	GetMemberByEmail(ctx context.Context, email string) (Member, error)
	ListMembers(ctx context.Context) ([]Member, error)
	DeleteMember(ctx context.Context, id string) error
}

// EventFilter narrows event queries. StartsAfter/EndsBefore select events
// overlapping the half-open range; MemberIDs selects events tagged with any
// of the given members.
type EventFilter struct {
	MemberIDs   []string
	StartsAfter *time.Time
	EndsBefore  *time.Time
}

// EventRepository stores calendar events. CreateEvents persists a whole
// series atomically: either every row is written or none is.
type EventRepository interface {
	CreateEvents(ctx context.Context, events []Event) error
	UpdateEvent(ctx context.Context, event Event) error
	GetEvent(ctx context.Context, id string) (Event, error)
	ListEvents(ctx context.Context, filter EventFilter) ([]Event, error)
	DeleteEvent(ctx context.Context, id string) error
	DeleteSeries(ctx context.Context, seriesID string) error
}

// NoteRepository stores bulletin notes.
type NoteRepository interface {
	CreateNote(ctx context.Context, note Note) error
	UpdateNote(ctx context.Context, note Note) error
	GetNote(ctx context.Context, id string) (Note, error)
	ListNotes(ctx context.Context) ([]Note, error)
	DeleteNote(ctx context.Context, id string) error
}

// SessionRepository stores authentication session state.
type SessionRepository interface {
	CreateSession(ctx context.Context, session Session) (Session, error)
	GetSession(ctx context.Context, token string) (Session, error)
	RevokeSession(ctx context.Context, token string, revokedAt time.Time) (Session, error)
	DeleteExpiredSessions(ctx context.Context, reference time.Time) error
}
