package application

import (
	"sync"
	"time"
)

// DefaultFeedCapacity bounds the number of undelivered notifications kept in
// memory before the oldest are dropped.
const DefaultFeedCapacity = 128

// Notification is a due-signal for an event whose start is imminent.
type Notification struct {
	EventID   string
	SeriesID  *string
	Title     string
	Color     string
	MemberIDs []string
	Start     time.Time
	EmittedAt time.Time
}

// NotificationFeed buffers due-signals between the background runner and the
// clients polling for them. The buffer is bounded; when full, the oldest
// entry is dropped to make room.
type NotificationFeed struct {
	mu       sync.Mutex
	capacity int
	pending  []Notification
}

// NewNotificationFeed constructs a feed with the given capacity. A
// non-positive capacity falls back to DefaultFeedCapacity.
func NewNotificationFeed(capacity int) *NotificationFeed {
	if capacity <= 0 {
		capacity = DefaultFeedCapacity
	}
	return &NotificationFeed{capacity: capacity}
}

// Push appends a notification, evicting the oldest entry when full.
func (f *NotificationFeed) Push(notification Notification) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.pending) >= f.capacity {
		f.pending = f.pending[1:]
	}
	f.pending = append(f.pending, notification)
}

// Drain returns all pending notifications in emission order and clears the
// buffer.
func (f *NotificationFeed) Drain() []Notification {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.pending) == 0 {
		return nil
	}
	out := f.pending
	f.pending = nil
	return out
}

// Pending reports the number of undelivered notifications.
func (f *NotificationFeed) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pending)
}
