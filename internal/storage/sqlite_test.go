package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/evzhu/readtrack/internal/book"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "books.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func seedBook(t *testing.T, repo *SQLiteRepository, b *book.Book) *book.Book {
	t.Helper()
	if b.DateAdded.IsZero() {
		b.DateAdded = time.Now()
	}
	if b.LastReadDate.IsZero() {
		b.LastReadDate = b.DateAdded
	}
	if b.Status == "" {
		b.Status = book.StatusNotStarted
	}
	snap := &book.Snapshot{CurrentPage: b.CurrentPage, Status: b.Status, Date: b.LastReadDate}
	if err := repo.CreateWithSnapshot(context.Background(), b, snap); err != nil {
		t.Fatalf("seed book: %v", err)
	}
	return b
}

func TestCreateAssignsIDs(t *testing.T) {
	repo := newTestRepo(t)

	b := seedBook(t, repo, &book.Book{Title: "Dune", Author: "Frank Herbert", TotalPages: 412})
	if b.ID == 0 {
		t.Fatal("book ID not assigned")
	}

	snaps, err := repo.History(context.Background(), b.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(snaps) != 1 {
		t.Fatalf("want 1 snapshot, got %d", len(snaps))
	}
	if snaps[0].BookID != b.ID {
		t.Errorf("snapshot book_id = %d, want %d", snaps[0].BookID, b.ID)
	}
}

func TestGetByIDNotFound(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.GetByID(context.Background(), 42)
	if !errors.Is(err, book.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestUpdateWithSnapshotAppends(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	b := seedBook(t, repo, &book.Book{Title: "Dune", TotalPages: 412})

	b.CurrentPage = 200
	b.Status = book.StatusInProgress
	snap := &book.Snapshot{BookID: b.ID, CurrentPage: 200, Status: b.Status, Date: time.Now(), Note: "chapter 12"}
	if err := repo.UpdateWithSnapshot(ctx, b, snap); err != nil {
		t.Fatal(err)
	}

	got, err := repo.GetByID(ctx, b.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.CurrentPage != 200 || got.Status != book.StatusInProgress {
		t.Errorf("projection not updated: page=%d status=%s", got.CurrentPage, got.Status)
	}

	snaps, err := repo.History(ctx, b.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(snaps) != 2 {
		t.Fatalf("want 2 snapshots, got %d", len(snaps))
	}
	if snaps[0].Note != "chapter 12" {
		t.Errorf("newest snapshot first, got note %q", snaps[0].Note)
	}
}

func TestHistoryOrderNewestFirst(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	b := seedBook(t, repo, &book.Book{Title: "Dune", TotalPages: 412})

	sameDay := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)
	for _, page := range []int{50, 100} {
		b.CurrentPage = page
		snap := &book.Snapshot{BookID: b.ID, CurrentPage: page, Status: book.StatusInProgress, Date: sameDay}
		if err := repo.UpdateWithSnapshot(ctx, b, snap); err != nil {
			t.Fatal(err)
		}
	}

	snaps, err := repo.History(ctx, b.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(snaps) != 3 {
		t.Fatalf("want 3 snapshots, got %d", len(snaps))
	}
	// Equal dates fall back to insertion order, newest first.
	if snaps[0].CurrentPage != 100 || snaps[1].CurrentPage != 50 {
		t.Errorf("unexpected order: %d, %d", snaps[0].CurrentPage, snaps[1].CurrentPage)
	}
}

func TestDeleteCascadesToSnapshots(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	b := seedBook(t, repo, &book.Book{Title: "Dune"})

	if err := repo.Delete(ctx, b.ID); err != nil {
		t.Fatal(err)
	}

	var n int
	if err := repo.db.QueryRow("SELECT COUNT(*) FROM book_progress WHERE book_id = ?", b.ID).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("snapshots survived delete: %d", n)
	}
}

func TestGetByStatus(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	seedBook(t, repo, &book.Book{Title: "A", Status: book.StatusCompleted})
	seedBook(t, repo, &book.Book{Title: "B", Status: book.StatusInProgress})
	seedBook(t, repo, &book.Book{Title: "C", Status: book.StatusCompleted})

	books, err := repo.GetByStatus(ctx, book.StatusCompleted)
	if err != nil {
		t.Fatal(err)
	}
	if len(books) != 2 {
		t.Fatalf("want 2 completed, got %d", len(books))
	}
}

func TestSearchMatchesTitleAndAuthor(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	seedBook(t, repo, &book.Book{Title: "Dune", Author: "Frank Herbert"})
	seedBook(t, repo, &book.Book{Title: "Hyperion", Author: "Dan Simmons"})

	books, err := repo.Search(ctx, "herbert")
	if err != nil {
		t.Fatal(err)
	}
	if len(books) != 1 || books[0].Title != "Dune" {
		t.Fatalf("author search failed: %v", books)
	}

	books, err = repo.Search(ctx, "hyper")
	if err != nil {
		t.Fatal(err)
	}
	if len(books) != 1 || books[0].Title != "Hyperion" {
		t.Fatalf("title search failed: %v", books)
	}
}

func TestDistinctProgressDates(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	base := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	b := seedBook(t, repo, &book.Book{Title: "Dune", TotalPages: 412, DateAdded: base, LastReadDate: base})

	// Two snapshots on the same day and one on the next.
	for _, snap := range []book.Snapshot{
		{BookID: b.ID, CurrentPage: 50, Status: book.StatusInProgress, Date: base.Add(2 * time.Hour)},
		{BookID: b.ID, CurrentPage: 80, Status: book.StatusInProgress, Date: base.Add(26 * time.Hour)},
	} {
		s := snap
		if err := repo.UpdateWithSnapshot(ctx, b, &s); err != nil {
			t.Fatal(err)
		}
	}

	dates, err := repo.DistinctProgressDates(ctx, base.AddDate(0, 0, -1), base.AddDate(0, 0, 2))
	if err != nil {
		t.Fatal(err)
	}
	if len(dates) != 2 {
		t.Fatalf("want 2 distinct days, got %d: %v", len(dates), dates)
	}
}

func TestCount(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	n, err := repo.Count(ctx)
	if err != nil || n != 0 {
		t.Fatalf("empty count: %d, %v", n, err)
	}

	seedBook(t, repo, &book.Book{Title: "A"})
	seedBook(t, repo, &book.Book{Title: "B"})

	n, err = repo.Count(ctx)
	if err != nil || n != 2 {
		t.Fatalf("count after seed: %d, %v", n, err)
	}
}
