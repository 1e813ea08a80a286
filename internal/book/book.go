package book

import "time"

type Book struct {
	ID            int64     `json:"id"`
	Title         string    `json:"title"`
	Author        string    `json:"author"`
	TotalPages    int       `json:"total_pages"` // 0 = unknown
	CurrentPage   int       `json:"current_page"`
	Status        Status    `json:"status"`
	Rating        float64   `json:"rating,omitempty"` // 0-5, 0 = unrated
	Review        string    `json:"review,omitempty"`
	Description   string    `json:"description,omitempty"`
	CoverImageURL string    `json:"cover_image_url,omitempty"`
	Language      string    `json:"language,omitempty"`
	DateAdded     time.Time `json:"date_added"`
	LastReadDate  time.Time `json:"last_read_date"`
}

// PercentComplete returns reading progress as 0-100, or 0 when the
// total page count is unknown.
func (b Book) PercentComplete() int {
	if b.TotalPages <= 0 {
		return 0
	}
	return b.CurrentPage * 100 / b.TotalPages
}

type Status string

const (
	StatusNotStarted Status = "Not Started"
	StatusInProgress Status = "In Progress"
	StatusCompleted  Status = "Completed"
)

func (s Status) String() string {
	return string(s)
}

func (s Status) IsValid() bool {
	switch s {
	case StatusNotStarted, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// Snapshot is one append-only entry in a book's progress history.
// The book row always mirrors the most recent snapshot.
type Snapshot struct {
	ID          int64     `json:"id"`
	BookID      int64     `json:"book_id"`
	CurrentPage int       `json:"current_page"`
	Status      Status    `json:"status"`
	Date        time.Time `json:"date"`
	Note        string    `json:"note,omitempty"`
}

// LibraryEntry is the read-side grouped view: one entry per distinct
// title (case-insensitive), carrying the most recently updated book.
// HasHistory is set when more than one stored book shares the title.
type LibraryEntry struct {
	Book       Book `json:"book"`
	EntryCount int  `json:"entry_count"`
	HasHistory bool `json:"has_history"`
}

type Stats struct {
	Total       int `json:"total"`
	NotStarted  int `json:"not_started"`
	InProgress  int `json:"in_progress"`
	Completed   int `json:"completed"`
	ReadingDays int `json:"reading_days_30d"` // distinct progress dates over the last 30 days
}
