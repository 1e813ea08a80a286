package legacy

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/evzhu/readtrack/internal/book"
	"github.com/evzhu/readtrack/internal/prefs"
	"github.com/evzhu/readtrack/internal/streak"
)

const migrationDoneKey = "legacy_migration_done"

// Ledger is the slice of the book service the migrator needs.
type Ledger interface {
	AddBook(ctx context.Context, b *book.Book) (int64, error)
}

// Migrator imports every legacy text block into the canonical model,
// at most once per installation. The import is best-effort: a block
// that yields no usable fields, or that the ledger rejects, is skipped
// and counted, and migration still completes and marks itself done. A
// fully-failed run therefore never retries on the next start; that
// data loss is accepted rather than surfaced as an error.
type Migrator struct {
	ledger Ledger
	store  *Store
	prefs  *prefs.Store
	log    *slog.Logger
}

type Result struct {
	AlreadyDone bool `json:"already_done"`
	Imported    int  `json:"imported"`
	Skipped     int  `json:"skipped"`
}

func NewMigrator(ledger Ledger, store *Store, prefStore *prefs.Store) *Migrator {
	return &Migrator{
		ledger: ledger,
		store:  store,
		prefs:  prefStore,
		log:    slog.Default().With("component", "migrator"),
	}
}

func (m *Migrator) Migrate(ctx context.Context) (Result, error) {
	done, err := m.prefs.GetBool(migrationDoneKey, false)
	if err != nil {
		return Result{}, fmt.Errorf("read migration flag: %w", err)
	}
	if done {
		return Result{AlreadyDone: true}, nil
	}

	var result Result
	for _, dateKey := range m.store.Dates() {
		date, err := streak.ParseDay(dateKey)
		if err != nil {
			n := len(m.store.RecordsForDate(dateKey))
			result.Skipped += n
			m.log.Warn("skipping records under unparseable date key", "date", dateKey, "records", n)
			continue
		}

		for _, block := range m.store.RecordsForDate(dateKey) {
			record := Decode(block)
			if record.Empty() {
				result.Skipped++
				m.log.Warn("skipping undecodable legacy record", "date", dateKey)
				continue
			}

			status := book.Status(record.Status)
			if !status.IsValid() {
				status = book.StatusNotStarted
			}

			b := &book.Book{
				Title:         record.Title,
				Author:        record.Author,
				TotalPages:    record.TotalPages,
				CurrentPage:   record.CurrentPage,
				Status:        status,
				Rating:        record.Rating,
				Review:        record.Review,
				Description:   record.Description,
				CoverImageURL: record.CoverImageURL,
				DateAdded:     date,
				LastReadDate:  date,
			}

			if _, err := m.ledger.AddBook(ctx, b); err != nil {
				result.Skipped++
				m.log.Warn("skipping legacy record rejected by ledger", "date", dateKey, "title", record.Title, "error", err)
				continue
			}
			result.Imported++
		}
	}

	// Mark complete even when every record was skipped, so a broken
	// archive does not trigger a retry storm on every start.
	if err := m.prefs.SetBool(migrationDoneKey, true); err != nil {
		return result, fmt.Errorf("set migration flag: %w", err)
	}

	m.log.Info("legacy migration complete", "imported", result.Imported, "skipped", result.Skipped)
	return result, nil
}
