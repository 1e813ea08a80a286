package legacy

import (
	"fmt"
	"sort"
	"sync"

	"github.com/evzhu/readtrack/internal/prefs"
)

const recordsKey = "legacy_records"

// Store holds the legacy text blocks, keyed by YYYY-MM-DD save date.
// The same block is never stored twice under one date. Once migration
// has run the store is read-only in practice; Add remains for tests and
// for tooling that inspects old installations.
type Store struct {
	prefs *prefs.Store

	mu      sync.RWMutex
	records map[string][]string
}

func NewStore(store *prefs.Store) (*Store, error) {
	s := &Store{
		prefs:   store,
		records: make(map[string][]string),
	}

	var stored map[string][]string
	if _, err := store.GetJSON(recordsKey, &stored); err != nil {
		return nil, fmt.Errorf("load legacy records: %w", err)
	}
	for date, blocks := range stored {
		s.records[date] = dedup(blocks)
	}
	return s, nil
}

// Add appends a block under the date key unless an identical block is
// already there.
func (s *Store) Add(dateKey, block string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.records[dateKey] {
		if existing == block {
			return nil
		}
	}
	s.records[dateKey] = append(s.records[dateKey], block)
	return s.save()
}

// RecordsForDate returns the blocks stored under a date key, in insert
// order.
func (s *Store) RecordsForDate(dateKey string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	blocks := s.records[dateKey]
	out := make([]string, len(blocks))
	copy(out, blocks)
	return out
}

// Dates returns every date key holding at least one block, ascending.
func (s *Store) Dates() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	dates := make([]string, 0, len(s.records))
	for date, blocks := range s.records {
		if len(blocks) > 0 {
			dates = append(dates, date)
		}
	}
	sort.Strings(dates)
	return dates
}

func (s *Store) save() error {
	if err := s.prefs.SetJSON(recordsKey, s.records); err != nil {
		return fmt.Errorf("save legacy records: %w", err)
	}
	return nil
}

func dedup(blocks []string) []string {
	seen := make(map[string]struct{}, len(blocks))
	out := blocks[:0]
	for _, b := range blocks {
		if _, ok := seen[b]; ok {
			continue
		}
		seen[b] = struct{}{}
		out = append(out, b)
	}
	return out
}
