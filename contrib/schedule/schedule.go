package schedule

import (
	"iter"
	"math/rand/v2"
	"time"

	"github.com/byte4ever/contribgen/contrib/message"
)

// Source supplies uniform random draws. *rand.Rand from
// math/rand/v2 satisfies it.
type Source interface {
	// IntN returns a uniform value in [0, n).
	IntN(n int) int
}

// sharedSource delegates to the process-wide generator.
type sharedSource struct{}

// IntN returns a uniform value in [0, n) from the shared
// generator.
func (sharedSource) IntN(n int) int {
	return rand.IntN(n)
}

// Walker enumerates the calendar days of a backdating
// range in ascending order.
type Walker struct {
	// Today anchors the range; only its date part is
	// used.
	Today time.Time
	// DaysBefore is the number of days before Today to
	// include.
	DaysBefore int
	// DaysAfter is the number of days after Today to
	// include.
	DaysAfter int
	// SkipWeekends drops Saturdays and Sundays from the
	// sequence entirely.
	SkipWeekends bool
}

// Days returns a lazy ascending sequence of days from
// Today-DaysBefore through Today+DaysAfter inclusive.
// Weekend days never appear when SkipWeekends is set; the
// filter runs before any activation decision so skipped
// days cannot influence neighboring draws.
func (w Walker) Days() iter.Seq[time.Time] {
	return func(yield func(time.Time) bool) {
		day := truncateToDay(w.Today).
			AddDate(0, 0, -w.DaysBefore)
		end := truncateToDay(w.Today).
			AddDate(0, 0, w.DaysAfter)

		for !day.After(end) {
			if w.SkipWeekends && isWeekend(day) {
				day = day.AddDate(0, 0, 1)

				continue
			}

			if !yield(day) {
				return
			}

			day = day.AddDate(0, 0, 1)
		}
	}
}

// CommitEvent is one planned backdated commit.
type CommitEvent struct {
	// When is the full author/committer timestamp.
	When time.Time
	// Message is the generated commit message.
	Message string
}

// Planner decides per day whether commits happen and
// generates the commit events for active days.
type Planner struct {
	// MaxCommits bounds the commit count of an active
	// day (inclusive, minimum 1).
	MaxCommits int
	// Frequency is the percentage chance (0-100) that a
	// day is active.
	Frequency int
	// Template renders commit messages; empty selects
	// message.DefaultCommitTemplate.
	Template string
	// Rand supplies uniform draws; nil selects the
	// shared process-wide generator.
	Rand Source
}

// Plan returns the commit events for day, empty when the
// activation draw exceeds Frequency. Activation draws in
// [1,100]; an active day gets a uniform count in
// [1,MaxCommits], each commit a uniform second of the day.
func (p Planner) Plan(day time.Time) []CommitEvent {
	src := p.Rand
	if src == nil {
		src = sharedSource{}
	}

	if src.IntN(100)+1 > p.Frequency {
		return nil
	}

	maxCommits := p.MaxCommits
	if maxCommits < 1 {
		maxCommits = 1
	}

	count := src.IntN(maxCommits) + 1

	events := make([]CommitEvent, 0, count)

	for range count {
		at := time.Date(
			day.Year(), day.Month(), day.Day(),
			src.IntN(24), src.IntN(60), src.IntN(60),
			0, day.Location(),
		)

		events = append(events, CommitEvent{
			When:    at,
			Message: message.Commit(p.Template, at),
		})
	}

	return events
}

// truncateToDay strips the time-of-day part.
func truncateToDay(t time.Time) time.Time {
	return time.Date(
		t.Year(), t.Month(), t.Day(),
		0, 0, 0, 0, t.Location(),
	)
}

// isWeekend reports whether t falls on a Saturday or
// Sunday.
func isWeekend(t time.Time) bool {
	wd := t.Weekday()

	return wd == time.Saturday || wd == time.Sunday
}
