package book

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"
)

type Repository interface {
	CreateWithSnapshot(ctx context.Context, b *Book, snap *Snapshot) error
	GetByID(ctx context.Context, id int64) (*Book, error)
	GetAll(ctx context.Context) ([]Book, error)
	GetByStatus(ctx context.Context, status Status) ([]Book, error)
	GetReadBetween(ctx context.Context, start, end time.Time) ([]Book, error)
	Search(ctx context.Context, query string) ([]Book, error)
	UpdateWithSnapshot(ctx context.Context, b *Book, snap *Snapshot) error
	Delete(ctx context.Context, id int64) error
	History(ctx context.Context, bookID int64) ([]Snapshot, error)
	Count(ctx context.Context) (int, error)
	DistinctProgressDates(ctx context.Context, start, end time.Time) ([]time.Time, error)
}

// ReadingTracker marks calendar days on which reading happened. The
// marking is deliberately not part of the storage transaction; a
// failure is logged and the progress write stands.
type ReadingTracker interface {
	MarkRead(date time.Time) error
}

// ErrNotFound is returned when an operation references a book id that
// does not exist. The operation has no side effects in that case.
var ErrNotFound = errors.New("book not found")

// InvalidProgressError is returned when a write would leave the current
// page beyond a known total page count.
type InvalidProgressError struct {
	Page  int
	Total int
}

func (e *InvalidProgressError) Error() string {
	return fmt.Sprintf("invalid progress: current page %d exceeds total pages %d", e.Page, e.Total)
}

// ProgressUpdate carries the mutable fields for UpdateProgress. Rating 0
// and an empty Review mean "leave unchanged"; a zero Date means now.
type ProgressUpdate struct {
	CurrentPage int
	Status      Status
	Rating      float64
	Review      string
	Note        string
	Date        time.Time
}

type Service struct {
	repo    Repository
	tracker ReadingTracker
	log     *slog.Logger
}

func NewService(repo Repository, tracker ReadingTracker) *Service {
	return &Service{
		repo:    repo,
		tracker: tracker,
		log:     slog.Default().With("component", "ledger"),
	}
}

// AddBook validates and creates a book together with its initial
// progress snapshot in one transaction, then returns the new id.
func (s *Service) AddBook(ctx context.Context, b *Book) (int64, error) {
	if strings.TrimSpace(b.Title) == "" {
		return 0, fmt.Errorf("title is required")
	}
	if b.Status == "" {
		b.Status = StatusNotStarted
	}
	if !b.Status.IsValid() {
		return 0, fmt.Errorf("invalid status: %s", b.Status)
	}
	if b.TotalPages < 0 || b.CurrentPage < 0 {
		return 0, fmt.Errorf("page counts must not be negative")
	}
	if b.TotalPages > 0 && b.CurrentPage > b.TotalPages {
		return 0, &InvalidProgressError{Page: b.CurrentPage, Total: b.TotalPages}
	}
	if b.Status == StatusCompleted && b.TotalPages > 0 {
		b.CurrentPage = b.TotalPages
	}

	now := time.Now()
	if b.DateAdded.IsZero() {
		b.DateAdded = now
	}
	if b.LastReadDate.IsZero() {
		b.LastReadDate = b.DateAdded
	}

	snap := &Snapshot{
		CurrentPage: b.CurrentPage,
		Status:      b.Status,
		Date:        b.LastReadDate,
	}
	if err := s.repo.CreateWithSnapshot(ctx, b, snap); err != nil {
		return 0, fmt.Errorf("create book: %w", err)
	}

	s.markRead(b.LastReadDate)
	return b.ID, nil
}

// UpdateProgress appends exactly one snapshot and moves the book's
// mutable projection to match it. Validation happens before any write.
func (s *Service) UpdateProgress(ctx context.Context, id int64, upd ProgressUpdate) (*Book, error) {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if upd.Status == "" {
		upd.Status = b.Status
	}
	if !upd.Status.IsValid() {
		return nil, fmt.Errorf("invalid status: %s", upd.Status)
	}
	if upd.CurrentPage < 0 {
		return nil, fmt.Errorf("current page must not be negative")
	}
	if b.TotalPages > 0 && upd.CurrentPage > b.TotalPages {
		return nil, &InvalidProgressError{Page: upd.CurrentPage, Total: b.TotalPages}
	}

	// Completing a book always reflects full progress, whatever page
	// was last typed in.
	if upd.Status == StatusCompleted && b.TotalPages > 0 {
		upd.CurrentPage = b.TotalPages
	}

	date := upd.Date
	if date.IsZero() {
		date = time.Now()
	}

	b.CurrentPage = upd.CurrentPage
	b.Status = upd.Status
	b.LastReadDate = date
	if upd.Rating > 0 {
		b.Rating = upd.Rating
	}
	if upd.Review != "" {
		b.Review = upd.Review
	}

	snap := &Snapshot{
		BookID:      b.ID,
		CurrentPage: b.CurrentPage,
		Status:      b.Status,
		Date:        date,
		Note:        upd.Note,
	}
	if err := s.repo.UpdateWithSnapshot(ctx, b, snap); err != nil {
		return nil, fmt.Errorf("update progress: %w", err)
	}

	s.markRead(date)
	return b, nil
}

// DeleteBook removes the book and all of its progress history.
func (s *Service) DeleteBook(ctx context.Context, id int64) error {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete book: %w", err)
	}
	return nil
}

func (s *Service) Get(ctx context.Context, id int64) (*Book, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]Book, error) {
	return s.repo.GetAll(ctx)
}

func (s *Service) ListByStatus(ctx context.Context, status Status) ([]Book, error) {
	return s.repo.GetByStatus(ctx, status)
}

// History returns a book's progress snapshots, newest first.
func (s *Service) History(ctx context.Context, bookID int64) ([]Snapshot, error) {
	return s.repo.History(ctx, bookID)
}

// RecentlyRead returns books with recorded progress in the last 30 days.
func (s *Service) RecentlyRead(ctx context.Context) ([]Book, error) {
	end := time.Now()
	return s.repo.GetReadBetween(ctx, end.AddDate(0, 0, -30), end)
}

// Library groups books by title, case-insensitively, keeping the most
// recently updated entry per title. Duplicate capture paths (legacy
// import next to direct entry) collapse to one row with HasHistory set,
// so a client can offer a "view history" affordance. Storage is never
// merged; this is display-side only.
func (s *Service) Library(ctx context.Context) ([]LibraryEntry, error) {
	books, err := s.repo.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	byTitle := make(map[string]*LibraryEntry)
	for _, b := range books {
		key := strings.ToLower(strings.TrimSpace(b.Title))
		entry, ok := byTitle[key]
		if !ok {
			byTitle[key] = &LibraryEntry{Book: b, EntryCount: 1}
			continue
		}
		entry.EntryCount++
		entry.HasHistory = true
		if b.LastReadDate.After(entry.Book.LastReadDate) {
			entry.Book = b
		}
	}

	entries := make([]LibraryEntry, 0, len(byTitle))
	for _, e := range byTitle {
		entries = append(entries, *e)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Book.LastReadDate.After(entries[j].Book.LastReadDate)
	})
	return entries, nil
}

// Reviews returns completed books that carry a rating or review text,
// latest entry per distinct title, newest first.
func (s *Service) Reviews(ctx context.Context) ([]Book, error) {
	books, err := s.repo.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	latest := make(map[string]Book)
	for _, b := range books {
		if b.Status != StatusCompleted || (b.Rating == 0 && b.Review == "") {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(b.Title))
		if prev, ok := latest[key]; !ok || b.LastReadDate.After(prev.LastReadDate) {
			latest[key] = b
		}
	}

	reviews := make([]Book, 0, len(latest))
	for _, b := range latest {
		reviews = append(reviews, b)
	}
	sort.Slice(reviews, func(i, j int) bool {
		return reviews[i].LastReadDate.After(reviews[j].LastReadDate)
	})
	return reviews, nil
}

func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	books, err := s.repo.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	stats := &Stats{Total: len(books)}
	for _, b := range books {
		switch b.Status {
		case StatusNotStarted:
			stats.NotStarted++
		case StatusInProgress:
			stats.InProgress++
		case StatusCompleted:
			stats.Completed++
		}
	}

	end := time.Now()
	dates, err := s.repo.DistinctProgressDates(ctx, end.AddDate(0, 0, -30), end)
	if err != nil {
		return nil, fmt.Errorf("count reading days: %w", err)
	}
	stats.ReadingDays = len(dates)

	return stats, nil
}

func (s *Service) markRead(date time.Time) {
	if s.tracker == nil {
		return
	}
	if err := s.tracker.MarkRead(date); err != nil {
		s.log.Warn("mark reading day failed", "date", date.Format("2006-01-02"), "error", err)
	}
}
