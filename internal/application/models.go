package application

import "time"

// Principal represents the authenticated member invoking a service method.
type Principal struct {
	MemberID string
	IsAdmin  bool
}

// EventInput captures caller provided event fields.
type EventInput struct {
	CreatorID   string
	Title       string
	Description string
	Color       string
	Completed   bool
	Start       time.Time
	End         time.Time
	MemberIDs   []string
}

// RecurrenceInput captures an optional repetition request attached to event
// creation. Count and Until are mutually exclusive; when both are absent the
// series continues until the expansion caps apply.
type RecurrenceInput struct {
	Frequency string
	Count     int
	Until     *time.Time
}

// Event represents a persisted calendar event. Events expanded from one
// recurrence request share a SeriesID.
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

// CreateEventParams wraps the data required to create an event or series.
type CreateEventParams struct {
	Principal  Principal
	Input      EventInput
	Recurrence *RecurrenceInput
}

// CreateEventResult reports the stored occurrences and whether the series was
// cut short by the expansion caps.
type CreateEventResult struct {
	Events    []Event
	Truncated bool
}

// UpdateEventParams wraps the data required to update an existing event.
type UpdateEventParams struct {
	Principal Principal
	EventID   string
	Input     EventInput
}

// DeleteScope selects how much of a series a delete removes.
type DeleteScope string

const (
	// DeleteScopeSingle removes only the addressed occurrence.
	DeleteScopeSingle DeleteScope = "single"
	// DeleteScopeSeries removes every occurrence sharing the series.
	DeleteScopeSeries DeleteScope = "series"
)

// DeleteEventParams wraps the data required to delete an event.
type DeleteEventParams struct {
	Principal Principal
	EventID   string
	Scope     DeleteScope
}

// ListPeriod identifies the range preset requested for event listings.
type ListPeriod string

const (
	// ListPeriodNone indicates no preset; caller supplied explicit bounds.
	ListPeriodNone ListPeriod = ""
	// ListPeriodDay constrains results to a single day.
	ListPeriodDay ListPeriod = "day"
	// ListPeriodWeek constrains results to the Monday-start week containing the reference time.
	ListPeriodWeek ListPeriod = "week"
	// ListPeriodMonth constrains results to the month containing the reference time.
	ListPeriodMonth ListPeriod = "month"
)

// ListEventsParams wraps the data required to list events.
type ListEventsParams struct {
	Principal       Principal
	MemberIDs       []string
	StartsAfter     *time.Time
	EndsBefore      *time.Time
	Period          ListPeriod
	PeriodReference time.Time
}

// MemberInput captures caller provided member attributes.
type MemberInput struct {
	Email       string
	DisplayName string
	Color       string
	Password    string
	IsAdmin     bool
}

// Member represents a family member account exposed by the application services.
type Member struct {
	ID          string
	Email       string
	DisplayName string
	Color       string
	IsAdmin     bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CreateMemberParams wraps the data required to create a member.
type CreateMemberParams struct {
	Principal Principal
	Input     MemberInput
}

// UpdateMemberParams wraps the data required to update a member.
type UpdateMemberParams struct {
	Principal Principal
	MemberID  string
	Input     MemberInput
}

// NoteInput captures caller provided note fields.
type NoteInput struct {
	Title  string
	Body   string
	Pinned bool
}

// Note represents a bulletin note exposed by the application services.
type Note struct {
	ID        string
	AuthorID  string
	Title     string
	Body      string
	Pinned    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CreateNoteParams wraps the data required to create a note.
type CreateNoteParams struct {
	Principal Principal
	Input     NoteInput
}

// UpdateNoteParams wraps the data required to update an existing note.
type UpdateNoteParams struct {
	Principal Principal
	NoteID    string
	Input     NoteInput
}

// Session represents an authenticated session issued to a member.
type Session struct {
	ID        string
	MemberID  string
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
	RevokedAt *time.Time
}

// AuthenticateParams captures the data required to authenticate a member.
type AuthenticateParams struct {
	Email    string
	Password string
}

// AuthenticateResult captures the outcome of a successful authentication attempt.
type AuthenticateResult struct {
	Member  Member
	Session Session
}
