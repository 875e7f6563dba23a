// Package testfixtures holds small deterministic helpers shared by tests.
package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"
)

// ReferenceTime returns the fixed instant tests agree on when they do not
// care about a specific date.
func ReferenceTime() time.Time {
	return time.Date(2026, time.March, 2, 8, 0, 0, 0, time.UTC)
}

// IDSequence returns a generator producing "<prefix>-1", "<prefix>-2", ...
// so tests can predict the identifiers a service will assign.
func IDSequence(prefix string) func() string {
	var counter atomic.Uint64
	return func() string {
		return fmt.Sprintf("%s-%d", prefix, counter.Add(1))
	}
}
