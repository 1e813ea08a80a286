package streak

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evzhu/readtrack/internal/prefs"
)

func newTestTracker(t *testing.T) (*Tracker, *prefs.Store) {
	t.Helper()
	store, err := prefs.Open(filepath.Join(t.TempDir(), "prefs"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	tracker, err := NewTracker(store)
	require.NoError(t, err)
	return tracker, store
}

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestMarkReadIdempotent(t *testing.T) {
	tracker, _ := newTestTracker(t)

	d := day("2024-01-15")
	require.NoError(t, tracker.MarkRead(d))
	require.NoError(t, tracker.MarkRead(d))
	require.NoError(t, tracker.MarkRead(d.Add(10*time.Hour))) // same calendar day

	assert.Equal(t, 1, tracker.TotalReadingDays())
	assert.True(t, tracker.IsRead(d))
}

func TestCurrentStreak(t *testing.T) {
	tracker, _ := newTestTracker(t)

	today := day("2024-01-15")
	for _, d := range []string{"2024-01-13", "2024-01-14", "2024-01-15"} {
		require.NoError(t, tracker.MarkRead(day(d)))
	}
	// A gap before the run must not extend it.
	require.NoError(t, tracker.MarkRead(day("2024-01-10")))

	assert.Equal(t, 3, tracker.CurrentStreak(today))
}

func TestCurrentStreakZeroWhenTodayAbsent(t *testing.T) {
	tracker, _ := newTestTracker(t)

	require.NoError(t, tracker.MarkRead(day("2024-01-14")))
	assert.Equal(t, 0, tracker.CurrentStreak(day("2024-01-15")))
}

func TestCurrentStreakAcrossMonthAndYear(t *testing.T) {
	tracker, _ := newTestTracker(t)

	for _, d := range []string{"2023-12-30", "2023-12-31", "2024-01-01", "2024-01-02"} {
		require.NoError(t, tracker.MarkRead(day(d)))
	}

	assert.Equal(t, 4, tracker.CurrentStreak(day("2024-01-02")))
}

func TestRetroactiveMarkExtendsStreak(t *testing.T) {
	tracker, _ := newTestTracker(t)

	require.NoError(t, tracker.MarkRead(day("2024-01-13")))
	require.NoError(t, tracker.MarkRead(day("2024-01-15")))
	assert.Equal(t, 1, tracker.CurrentStreak(day("2024-01-15")))

	// Filling the gap retroactively joins the runs.
	require.NoError(t, tracker.MarkRead(day("2024-01-14")))
	assert.Equal(t, 3, tracker.CurrentStreak(day("2024-01-15")))
}

func TestLongestStreak(t *testing.T) {
	tracker, _ := newTestTracker(t)

	assert.Equal(t, 0, tracker.LongestStreak())

	for _, d := range []string{
		"2024-01-01", "2024-01-02", // run of 2
		"2024-01-10", "2024-01-11", "2024-01-12", "2024-01-13", // run of 4
		"2024-02-01", // run of 1
	} {
		require.NoError(t, tracker.MarkRead(day(d)))
	}

	assert.Equal(t, 4, tracker.LongestStreak())
	assert.Equal(t, 7, tracker.TotalReadingDays())
}

func TestUnmarkRead(t *testing.T) {
	tracker, _ := newTestTracker(t)

	require.NoError(t, tracker.MarkRead(day("2024-01-14")))
	require.NoError(t, tracker.MarkRead(day("2024-01-15")))

	require.NoError(t, tracker.UnmarkRead(day("2024-01-14")))
	require.NoError(t, tracker.UnmarkRead(day("2024-01-14"))) // absent, no-op

	assert.False(t, tracker.IsRead(day("2024-01-14")))
	assert.Equal(t, 1, tracker.CurrentStreak(day("2024-01-15")))
}

func TestTrackerPersistsAcrossReload(t *testing.T) {
	tracker, store := newTestTracker(t)

	require.NoError(t, tracker.MarkRead(day("2024-01-14")))
	require.NoError(t, tracker.MarkRead(day("2024-01-15")))

	reloaded, err := NewTracker(store)
	require.NoError(t, err)

	assert.Equal(t, []string{"2024-01-14", "2024-01-15"}, reloaded.AllReadingDays())
	assert.Equal(t, 2, reloaded.CurrentStreak(day("2024-01-15")))
}

func TestDayKeyParseDay(t *testing.T) {
	d := day("2024-01-15")
	assert.Equal(t, "2024-01-15", DayKey(d.Add(23*time.Hour)))

	parsed, err := ParseDay("2024-01-15")
	require.NoError(t, err)
	assert.Equal(t, d, parsed)

	_, err = ParseDay("15/01/2024")
	assert.Error(t, err)
}
