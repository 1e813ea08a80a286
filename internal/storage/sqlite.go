package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/evzhu/readtrack/internal/book"
	_ "github.com/mattn/go-sqlite3"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	repo := &SQLiteRepository{db: db}
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return repo, nil
}

func (r *SQLiteRepository) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS books (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		author TEXT NOT NULL,
		total_pages INTEGER NOT NULL DEFAULT 0,
		current_page INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'Not Started',
		rating REAL NOT NULL DEFAULT 0,
		review TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		cover_image_url TEXT NOT NULL DEFAULT '',
		language TEXT NOT NULL DEFAULT '',
		date_added DATETIME NOT NULL,
		last_read_date DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS book_progress (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		book_id INTEGER NOT NULL REFERENCES books(id) ON DELETE CASCADE,
		current_page INTEGER NOT NULL,
		status TEXT NOT NULL,
		date DATETIME NOT NULL,
		note TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_books_status ON books(status);
	CREATE INDEX IF NOT EXISTS idx_books_last_read ON books(last_read_date);
	CREATE INDEX IF NOT EXISTS idx_progress_book ON book_progress(book_id);
	CREATE INDEX IF NOT EXISTS idx_progress_date ON book_progress(date);
	`
	_, err := r.db.Exec(schema)
	return err
}

func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

const bookColumns = `id, title, author, total_pages, current_page, status, rating, review, description, cover_image_url, language, date_added, last_read_date`

// CreateWithSnapshot inserts the book and its initial progress snapshot
// in a single transaction, so a half-created book is never observable.
func (r *SQLiteRepository) CreateWithSnapshot(ctx context.Context, b *book.Book, snap *book.Snapshot) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		INSERT INTO books (title, author, total_pages, current_page, status, rating, review, description, cover_image_url, language, date_added, last_read_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, b.Title, b.Author, b.TotalPages, b.CurrentPage, b.Status, b.Rating, b.Review, b.Description, b.CoverImageURL, b.Language, b.DateAdded, b.LastReadDate)
	if err != nil {
		return fmt.Errorf("insert book: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}
	b.ID = id
	snap.BookID = id

	snapID, err := r.insertSnapshot(ctx, tx, snap)
	if err != nil {
		return err
	}
	snap.ID = snapID

	return tx.Commit()
}

// UpdateWithSnapshot writes the book's mutable projection and appends
// one snapshot atomically.
func (r *SQLiteRepository) UpdateWithSnapshot(ctx context.Context, b *book.Book, snap *book.Snapshot) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		UPDATE books SET
			title = ?, author = ?, total_pages = ?, current_page = ?, status = ?,
			rating = ?, review = ?, description = ?, cover_image_url = ?, language = ?, last_read_date = ?
		WHERE id = ?
	`, b.Title, b.Author, b.TotalPages, b.CurrentPage, b.Status, b.Rating, b.Review, b.Description, b.CoverImageURL, b.Language, b.LastReadDate, b.ID)
	if err != nil {
		return fmt.Errorf("update book: %w", err)
	}

	snapID, err := r.insertSnapshot(ctx, tx, snap)
	if err != nil {
		return err
	}
	snap.ID = snapID

	return tx.Commit()
}

func (r *SQLiteRepository) insertSnapshot(ctx context.Context, tx *sql.Tx, snap *book.Snapshot) (int64, error) {
	result, err := tx.ExecContext(ctx, `
		INSERT INTO book_progress (book_id, current_page, status, date, note)
		VALUES (?, ?, ?, ?, ?)
	`, snap.BookID, snap.CurrentPage, snap.Status, snap.Date, snap.Note)
	if err != nil {
		return 0, fmt.Errorf("insert snapshot: %w", err)
	}
	return result.LastInsertId()
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id int64) (*book.Book, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+bookColumns+` FROM books WHERE id = ?
	`, id)

	b, err := r.scanBook(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("book %d: %w", id, book.ErrNotFound)
	}
	return b, err
}

func (r *SQLiteRepository) GetAll(ctx context.Context) ([]book.Book, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+bookColumns+` FROM books ORDER BY last_read_date DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	return r.scanBooks(rows)
}

func (r *SQLiteRepository) GetByStatus(ctx context.Context, status book.Status) ([]book.Book, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+bookColumns+` FROM books WHERE status = ? ORDER BY last_read_date DESC
	`, status)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	return r.scanBooks(rows)
}

func (r *SQLiteRepository) GetReadBetween(ctx context.Context, start, end time.Time) ([]book.Book, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+bookColumns+` FROM books WHERE last_read_date BETWEEN ? AND ? ORDER BY last_read_date DESC
	`, start, end)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	return r.scanBooks(rows)
}

// Search matches title or author by substring, case-insensitively.
func (r *SQLiteRepository) Search(ctx context.Context, query string) ([]book.Book, error) {
	pattern := "%" + query + "%"
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+bookColumns+` FROM books
		WHERE title LIKE ? OR author LIKE ?
		ORDER BY last_read_date DESC
	`, pattern, pattern)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	return r.scanBooks(rows)
}

// Delete removes the book row; snapshots go with it via ON DELETE CASCADE.
func (r *SQLiteRepository) Delete(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM books WHERE id = ?", id)
	return err
}

func (r *SQLiteRepository) History(ctx context.Context, bookID int64) ([]book.Snapshot, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, book_id, current_page, status, date, note
		FROM book_progress WHERE book_id = ? ORDER BY date DESC, id DESC
	`, bookID)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	var snaps []book.Snapshot
	for rows.Next() {
		var s book.Snapshot
		if err := rows.Scan(&s.ID, &s.BookID, &s.CurrentPage, &s.Status, &s.Date, &s.Note); err != nil {
			return nil, err
		}
		snaps = append(snaps, s)
	}
	return snaps, rows.Err()
}

func (r *SQLiteRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM books").Scan(&n)
	return n, err
}

// DistinctProgressDates returns the calendar days carrying at least one
// progress snapshot within [start, end].
func (r *SQLiteRepository) DistinctProgressDates(ctx context.Context, start, end time.Time) ([]time.Time, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT strftime('%Y-%m-%d', date) FROM book_progress
		WHERE date BETWEEN ? AND ? ORDER BY 1
	`, start, end)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	var dates []time.Time
	for rows.Next() {
		var day string
		if err := rows.Scan(&day); err != nil {
			return nil, err
		}
		t, err := time.Parse("2006-01-02", day)
		if err != nil {
			return nil, fmt.Errorf("parse date %q: %w", day, err)
		}
		dates = append(dates, t)
	}
	return dates, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func (r *SQLiteRepository) scanBook(s scanner) (*book.Book, error) {
	var b book.Book
	err := s.Scan(
		&b.ID, &b.Title, &b.Author, &b.TotalPages, &b.CurrentPage, &b.Status,
		&b.Rating, &b.Review, &b.Description, &b.CoverImageURL, &b.Language,
		&b.DateAdded, &b.LastReadDate,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *SQLiteRepository) scanBooks(rows *sql.Rows) ([]book.Book, error) {
	var books []book.Book
	for rows.Next() {
		b, err := r.scanBook(rows)
		if err != nil {
			return nil, err
		}
		books = append(books, *b)
	}
	return books, rows.Err()
}
