// Package streak owns the set of calendar days on which the user read
// and derives streak metrics from it. Days are plain YYYY-MM-DD keys;
// no time-of-day or timezone component participates in comparisons.
package streak

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/evzhu/readtrack/internal/prefs"
)

const (
	readingDaysKey = "reading_days"
	dayFormat      = "2006-01-02"
)

// DayKey reduces a timestamp to its calendar-day key.
func DayKey(t time.Time) string {
	return t.Format(dayFormat)
}

// ParseDay parses a YYYY-MM-DD key back into a calendar day.
func ParseDay(key string) (time.Time, error) {
	t, err := time.Parse(dayFormat, key)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid day %q: %w", key, err)
	}
	return t, nil
}

// Tracker keeps the reading-day set in memory and writes it through to
// the preferences store on every change. Reads may run concurrently
// with writes.
type Tracker struct {
	prefs *prefs.Store

	mu   sync.RWMutex
	days map[string]struct{}
}

func NewTracker(store *prefs.Store) (*Tracker, error) {
	t := &Tracker{
		prefs: store,
		days:  make(map[string]struct{}),
	}

	var stored []string
	if _, err := store.GetJSON(readingDaysKey, &stored); err != nil {
		return nil, fmt.Errorf("load reading days: %w", err)
	}
	for _, day := range stored {
		t.days[day] = struct{}{}
	}
	return t, nil
}

// MarkRead adds the date's calendar day to the set. Marking a day that
// is already present is a no-op.
func (t *Tracker) MarkRead(date time.Time) error {
	key := DayKey(date)

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.days[key]; ok {
		return nil
	}
	t.days[key] = struct{}{}
	return t.save()
}

// UnmarkRead removes the date's calendar day if present.
func (t *Tracker) UnmarkRead(date time.Time) error {
	key := DayKey(date)

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.days[key]; !ok {
		return nil
	}
	delete(t.days, key)
	return t.save()
}

func (t *Tracker) IsRead(date time.Time) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.days[DayKey(date)]
	return ok
}

// CurrentStreak walks backward one calendar day at a time starting at
// today and counts consecutive present days. It is recomputed from the
// set on every call, so it stays correct when days are marked out of
// order or retroactively. An absent today yields 0.
func (t *Tracker) CurrentStreak(today time.Time) int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	streak := 0
	day := today
	for {
		if _, ok := t.days[DayKey(day)]; !ok {
			return streak
		}
		streak++
		day = day.AddDate(0, 0, -1)
	}
}

// LongestStreak returns the longest run of consecutive days anywhere in
// the set, recomputed from scratch.
func (t *Tracker) LongestStreak() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	longest := 0
	for key := range t.days {
		day, err := ParseDay(key)
		if err != nil {
			continue
		}
		// Only count runs from their first day.
		if _, ok := t.days[DayKey(day.AddDate(0, 0, -1))]; ok {
			continue
		}
		run := 0
		for {
			if _, ok := t.days[DayKey(day)]; !ok {
				break
			}
			run++
			day = day.AddDate(0, 0, 1)
		}
		if run > longest {
			longest = run
		}
	}
	return longest
}

// TotalReadingDays is the cardinality of the set; the days need not be
// contiguous.
func (t *Tracker) TotalReadingDays() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.days)
}

// AllReadingDays returns every marked day key in ascending order.
func (t *Tracker) AllReadingDays() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	days := make([]string, 0, len(t.days))
	for key := range t.days {
		days = append(days, key)
	}
	sort.Strings(days)
	return days
}

// save persists the set; callers hold the write lock.
func (t *Tracker) save() error {
	days := make([]string, 0, len(t.days))
	for key := range t.days {
		days = append(days, key)
	}
	sort.Strings(days)

	if err := t.prefs.SetJSON(readingDaysKey, days); err != nil {
		return fmt.Errorf("save reading days: %w", err)
	}
	return nil
}
