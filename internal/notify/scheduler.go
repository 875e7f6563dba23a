package notify

import (
	"sync"
	"time"
)

// Defaults for the notification window and tick cadences. The cadences are
// tunable; the lead time is the product-defined notification window.
const (
	DefaultLeadTime      = 10 * time.Minute
	DefaultEvaluateEvery = 30 * time.Second
	DefaultCleanupEvery  = 5 * time.Minute
)

// Anytime pseudo-events are stored with a reserved start at local 23:58 and
// are exempt from notification scheduling.
const (
	anytimeHour   = 23
	anytimeMinute = 58
)

// Event is the view of a calendar event the scheduler evaluates. The payload
// fields are carried through to the due-signal untouched.
type Event struct {
	ID          string
	SeriesID    string
	Title       string
	Description string
	Color       string
	MemberIDs   []string
	Start       time.Time
	End         time.Time
}

// IsAnytime reports whether the start carries the "anytime today" marker.
// The marker is defined in local wall-clock terms, so the start is converted
// to the local zone first; persisted timestamps come back in UTC.
func IsAnytime(start time.Time) bool {
	local := start.In(time.Local)
	return local.Hour() == anytimeHour && local.Minute() == anytimeMinute
}

// Scheduler decides, per evaluation tick, which events just entered the lead
// window before their start, emitting at most one due-signal per event for
// the lifetime of the scheduler. State is in-memory only; a restart forgets
// everything, which is acceptable because the state only suppresses duplicate
// alerts within one live session.
//
// Both tick paths mutate the fired set, so access is serialized with a mutex;
// the scheduler never mutates input events and never performs I/O.
type Scheduler struct {
	mu    sync.Mutex
	lead  time.Duration
	fired map[string]time.Time // event id -> event start, kept until the start passes
}

// NewScheduler constructs a Scheduler with the given lead window. A
// non-positive lead falls back to DefaultLeadTime.
func NewScheduler(lead time.Duration) *Scheduler {
	if lead <= 0 {
		lead = DefaultLeadTime
	}
	return &Scheduler{
		lead:  lead,
		fired: make(map[string]time.Time),
	}
}

// Evaluate runs one evaluation tick over the current event set and returns
// every event that newly entered the lead window, in input order.
//
// An event fires when 0 < start-now <= lead and it has not fired before.
// Events first observed after their own start never fire: the scheduler only
// announces events discovered before they begin. Events with a zero start are
// skipped for the tick rather than aborting it, and anytime pseudo-events are
// never evaluated.
func (s *Scheduler) Evaluate(events []Event, now time.Time) []Event {
	if s == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var due []Event
	for _, event := range events {
		if event.ID == "" || event.Start.IsZero() || IsAnytime(event.Start) {
			continue
		}
		if _, already := s.fired[event.ID]; already {
			continue
		}
		lead := event.Start.Sub(now)
		if lead <= 0 || lead > s.lead {
			continue
		}

		s.fired[event.ID] = event.Start
		due = append(due, event)
	}

	return due
}

// Cleanup runs one cleanup tick, purging fired entries whose event start has
// passed. Purging is a memory bound, not a re-arm: a purged id seen again is
// treated as unseen, and an event that already started can no longer fire.
func (s *Scheduler) Cleanup(now time.Time) {
	if s == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for id, start := range s.fired {
		if now.After(start) {
			delete(s.fired, id)
		}
	}
}

// Tracked returns the number of fired entries currently retained.
func (s *Scheduler) Tracked() int {
	if s == nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.fired)
}
