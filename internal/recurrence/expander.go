package recurrence

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Frequency represents supported recurrence intervals.
type Frequency int

const (
	// FrequencyUnspecified indicates the rule frequency is not set.
	FrequencyUnspecified Frequency = iota
	// FrequencyDaily advances occurrences by one day.
	FrequencyDaily
	// FrequencyWeekly advances occurrences by seven days.
	FrequencyWeekly
	// FrequencyBiweekly advances occurrences by fourteen days.
	FrequencyBiweekly
	// FrequencyMonthly advances occurrences to the same day of the next month,
	// clamped to the last valid day of short months.
	FrequencyMonthly
	// FrequencyYearly advances occurrences to the same month and day of the
	// next year; Feb 29 seeds clamp to Feb 28 on non-leap years.
	FrequencyYearly
)

// String returns the wire representation of the frequency.
func (f Frequency) String() string {
	switch f {
	case FrequencyDaily:
		return "daily"
	case FrequencyWeekly:
		return "weekly"
	case FrequencyBiweekly:
		return "biweekly"
	case FrequencyMonthly:
		return "monthly"
	case FrequencyYearly:
		return "yearly"
	default:
		return "unspecified"
	}
}

// ParseFrequency maps a wire value to a Frequency.
func ParseFrequency(value string) (Frequency, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "daily":
		return FrequencyDaily, nil
	case "weekly":
		return FrequencyWeekly, nil
	case "biweekly":
		return FrequencyBiweekly, nil
	case "monthly":
		return FrequencyMonthly, nil
	case "yearly":
		return FrequencyYearly, nil
	default:
		return FrequencyUnspecified, fmt.Errorf("%w: %q", ErrInvalidFrequency, value)
	}
}

// Safety caps applied to every expansion regardless of the rule's own end
// condition, so a misconfigured rule can never produce unbounded writes.
const (
	// MaxOccurrences bounds the total number of generated occurrences.
	MaxOccurrences = 500
	// HorizonYears bounds how far past the seed start the series may extend.
	HorizonYears = 2
)

var (
	// ErrInvalidFrequency indicates the recurrence frequency is not supported.
	ErrInvalidFrequency = errors.New("recurrence: invalid frequency")
	// ErrInvalidTimeRange indicates the seed's end precedes its start.
	ErrInvalidTimeRange = errors.New("recurrence: end must not precede start")
	// ErrInvalidEndCondition indicates the rule's end condition is malformed.
	ErrInvalidEndCondition = errors.New("recurrence: invalid end condition")
)

// Rule describes how a seed event repeats and when the series ends.
//
// At most one of Count and Until may be set. Count > 0 ends the series after
// exactly Count occurrences; a non-nil Until ends it before the first
// occurrence starting after Until (inclusive boundary). When neither is set
// the series is bounded only by the safety caps.
type Rule struct {
	Frequency Frequency
	Count     int
	Until     *time.Time
}

// Seed carries the user-authored event an expansion starts from. The
// non-temporal fields are opaque payload copied verbatim onto every
// occurrence.
type Seed struct {
	Title       string
	Description string
	Color       string
	Completed   bool
	MemberIDs   []string
	Start       time.Time
	End         time.Time
}

// Occurrence is one concrete event record ready for persistence. Every
// occurrence of a series shares the SeriesID of the first occurrence, which
// equals that occurrence's own ID.
type Occurrence struct {
	ID          string
	SeriesID    string
	Title       string
	Description string
	Color       string
	Completed   bool
	MemberIDs   []string
	Start       time.Time
	End         time.Time
}

// Series is the ordered result of one expansion. Truncated reports that a
// safety cap ended the series before the rule's own end condition; callers
// should surface that the series was shortened.
type Series struct {
	Occurrences []Occurrence
	Truncated   bool
}

// Expander turns one seed event plus a rule into an ordered, capped series.
// It performs no I/O and is safe for concurrent use.
type Expander struct {
	newID func() string
}

// NewExpander constructs an Expander using the provided id generator for
// occurrence ids.
func NewExpander(newID func() string) *Expander {
	if newID == nil {
		newID = func() string { return "" }
	}
	return &Expander{newID: newID}
}

// Expand produces the full series for the seed under the rule.
//
// Occurrence #1 is the seed itself and is always included, even when Until
// precedes the seed start. Validation is all-or-nothing: any rejection
// happens before the first occurrence is generated.
func (e *Expander) Expand(seed Seed, rule Rule) (Series, error) {
	if err := validate(seed, rule); err != nil {
		return Series{}, err
	}

	duration := seed.End.Sub(seed.Start)
	horizon := seed.Start.AddDate(HorizonYears, 0, 0)

	series := Series{Occurrences: make([]Occurrence, 0, initialCapacity(rule))}
	seriesID := ""

	for k := 0; ; k++ {
		if rule.Count > 0 && k >= rule.Count {
			break
		}

		start := advance(seed.Start, rule.Frequency, k)
		if k > 0 {
			if rule.Until != nil && start.After(*rule.Until) {
				break
			}
			if len(series.Occurrences) >= MaxOccurrences || start.After(horizon) {
				series.Truncated = true
				break
			}
		}

		id := e.newID()
		if k == 0 {
			seriesID = id
		}

		series.Occurrences = append(series.Occurrences, Occurrence{
			ID:          id,
			SeriesID:    seriesID,
			Title:       seed.Title,
			Description: seed.Description,
			Color:       seed.Color,
			Completed:   seed.Completed,
			MemberIDs:   append([]string(nil), seed.MemberIDs...),
			Start:       start,
			End:         start.Add(duration),
		})
	}

	return series, nil
}

func validate(seed Seed, rule Rule) error {
	switch rule.Frequency {
	case FrequencyDaily, FrequencyWeekly, FrequencyBiweekly, FrequencyMonthly, FrequencyYearly:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidFrequency, rule.Frequency)
	}

	if seed.Start.IsZero() || seed.End.IsZero() || seed.End.Before(seed.Start) {
		return ErrInvalidTimeRange
	}

	if rule.Count < 0 {
		return fmt.Errorf("%w: count %d", ErrInvalidEndCondition, rule.Count)
	}
	if rule.Count > 0 && rule.Until != nil {
		return fmt.Errorf("%w: count and until are mutually exclusive", ErrInvalidEndCondition)
	}
	if rule.Until != nil && rule.Until.IsZero() {
		return fmt.Errorf("%w: until is unset", ErrInvalidEndCondition)
	}

	return nil
}

func initialCapacity(rule Rule) int {
	if rule.Count > 0 && rule.Count <= MaxOccurrences {
		return rule.Count
	}
	return 8
}

// advance returns the seed start moved forward by steps periods. Calendar
// clamping always derives from the seed's own day, never from a previously
// clamped occurrence, so Jan 31 monthly yields Feb 28 then Mar 31.
func advance(start time.Time, freq Frequency, steps int) time.Time {
	if steps == 0 {
		return start
	}
	switch freq {
	case FrequencyDaily:
		return start.AddDate(0, 0, steps)
	case FrequencyWeekly:
		return start.AddDate(0, 0, 7*steps)
	case FrequencyBiweekly:
		return start.AddDate(0, 0, 14*steps)
	case FrequencyMonthly:
		return addMonthsClamped(start, steps)
	case FrequencyYearly:
		return addMonthsClamped(start, 12*steps)
	default:
		return start
	}
}

func addMonthsClamped(t time.Time, months int) time.Time {
	year, month, day := t.Date()
	total := int(month) - 1 + months
	year += total / 12
	month = time.Month(total%12 + 1)
	if last := daysInMonth(year, month); day > last {
		day = last
	}
	return time.Date(year, month, day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func daysInMonth(year int, month time.Month) int {
	// Day zero of the following month is the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
