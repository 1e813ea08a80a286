// Package web exposes the reading tracker over JSON. Screens stay on
// the other side of this boundary; every handler maps a core operation
// plus a short human-readable message for its failures.
package web

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/evzhu/readtrack/internal/book"
	"github.com/evzhu/readtrack/internal/legacy"
	"github.com/evzhu/readtrack/internal/prefs"
	"github.com/evzhu/readtrack/internal/scraper"
	"github.com/evzhu/readtrack/internal/search"
	"github.com/evzhu/readtrack/internal/streak"
)

type Server struct {
	echo     *echo.Echo
	books    *book.Service
	tracker  *streak.Tracker
	engine   *search.Engine
	remote   *scraper.GoogleBooksClient
	migrator *legacy.Migrator
	prefs    *prefs.Store
	log      *slog.Logger
}

func NewServer(books *book.Service, tracker *streak.Tracker, engine *search.Engine, remote *scraper.GoogleBooksClient, migrator *legacy.Migrator, prefStore *prefs.Store) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	s := &Server{
		echo:     e,
		books:    books,
		tracker:  tracker,
		engine:   engine,
		remote:   remote,
		migrator: migrator,
		prefs:    prefStore,
		log:      slog.Default().With("component", "web"),
	}

	s.routes()
	return s
}

func (s *Server) Start(addr string) error {
	return s.echo.Start(addr)
}

// Echo returns the underlying router, mainly for tests.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

func (s *Server) routes() {
	api := s.echo.Group("/api")

	api.GET("/books", s.handleListBooks)
	api.POST("/books", s.handleAddBook)
	api.GET("/books/:id", s.handleGetBook)
	api.DELETE("/books/:id", s.handleDeleteBook)
	api.PUT("/books/:id/progress", s.handleUpdateProgress)
	api.GET("/books/:id/history", s.handleHistory)

	api.GET("/library", s.handleLibrary)
	api.GET("/reviews", s.handleReviews)
	api.GET("/stats", s.handleStats)
	api.GET("/find", s.handleFind)
	api.GET("/search", s.handleRemoteSearch)

	api.GET("/streak", s.handleStreak)
	api.POST("/streak/:date", s.handleMarkDay)
	api.DELETE("/streak/:date", s.handleUnmarkDay)

	api.GET("/settings", s.handleGetSettings)
	api.PUT("/settings", s.handleSaveSettings)

	api.POST("/migrate", s.handleMigrate)
}

type addBookReq struct {
	Title         string  `json:"title"`
	Author        string  `json:"author"`
	TotalPages    int     `json:"total_pages"`
	CurrentPage   int     `json:"current_page"`
	Status        string  `json:"status"`
	Rating        float64 `json:"rating"`
	Review        string  `json:"review"`
	Description   string  `json:"description"`
	CoverImageURL string  `json:"cover_image_url"`
	Language      string  `json:"language"`
}

func (s *Server) handleAddBook(c echo.Context) error {
	var req addBookReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid json"})
	}

	b := &book.Book{
		Title:         req.Title,
		Author:        req.Author,
		TotalPages:    req.TotalPages,
		CurrentPage:   req.CurrentPage,
		Status:        book.Status(req.Status),
		Rating:        req.Rating,
		Review:        req.Review,
		Description:   req.Description,
		CoverImageURL: req.CoverImageURL,
		Language:      req.Language,
	}

	id, err := s.books.AddBook(c.Request().Context(), b)
	if err != nil {
		return s.domainError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"id": id})
}

func (s *Server) handleListBooks(c echo.Context) error {
	ctx := c.Request().Context()

	var (
		books []book.Book
		err   error
	)
	if status := c.QueryParam("status"); status != "" {
		st := book.Status(status)
		if !st.IsValid() {
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid status"})
		}
		books, err = s.books.ListByStatus(ctx, st)
	} else {
		books, err = s.books.List(ctx)
	}
	if err != nil {
		return s.domainError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"data": books})
}

func (s *Server) handleGetBook(c echo.Context) error {
	id, err := bookID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}

	b, err := s.books.Get(c.Request().Context(), id)
	if err != nil {
		return s.domainError(c, err)
	}
	return c.JSON(http.StatusOK, b)
}

type updateProgressReq struct {
	CurrentPage int     `json:"current_page"`
	Status      string  `json:"status"`
	Rating      float64 `json:"rating"`
	Review      string  `json:"review"`
	Note        string  `json:"note"`
	Date        string  `json:"date"` // YYYY-MM-DD, empty = today
}

func (s *Server) handleUpdateProgress(c echo.Context) error {
	id, err := bookID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}

	var req updateProgressReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid json"})
	}

	var date time.Time
	if req.Date != "" {
		date, err = streak.ParseDay(req.Date)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid date, want YYYY-MM-DD"})
		}
	}

	b, err := s.books.UpdateProgress(c.Request().Context(), id, book.ProgressUpdate{
		CurrentPage: req.CurrentPage,
		Status:      book.Status(req.Status),
		Rating:      req.Rating,
		Review:      req.Review,
		Note:        req.Note,
		Date:        date,
	})
	if err != nil {
		return s.domainError(c, err)
	}
	return c.JSON(http.StatusOK, b)
}

func (s *Server) handleDeleteBook(c echo.Context) error {
	id, err := bookID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}

	if err := s.books.DeleteBook(c.Request().Context(), id); err != nil {
		return s.domainError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleHistory(c echo.Context) error {
	id, err := bookID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}

	snaps, err := s.books.History(c.Request().Context(), id)
	if err != nil {
		return s.domainError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"data": snaps})
}

func (s *Server) handleLibrary(c echo.Context) error {
	entries, err := s.books.Library(c.Request().Context())
	if err != nil {
		return s.domainError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"data": entries})
}

func (s *Server) handleReviews(c echo.Context) error {
	reviews, err := s.books.Reviews(c.Request().Context())
	if err != nil {
		return s.domainError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"data": reviews})
}

func (s *Server) handleStats(c echo.Context) error {
	stats, err := s.books.Stats(c.Request().Context())
	if err != nil {
		return s.domainError(c, err)
	}
	return c.JSON(http.StatusOK, stats)
}

func (s *Server) handleFind(c echo.Context) error {
	query := c.QueryParam("q")
	if query == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "missing query"})
	}

	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	results, err := s.engine.Search(c.Request().Context(), query, limit)
	if err != nil {
		return s.domainError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"data": results})
}

func (s *Server) handleRemoteSearch(c echo.Context) error {
	query := c.QueryParam("q")
	if query == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "missing query"})
	}

	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	books, err := s.remote.Search(c.Request().Context(), query, limit)
	if err != nil {
		s.log.Error("remote search failed", "error", err)
		return c.JSON(http.StatusBadGateway, echo.Map{"message": "book search unavailable"})
	}
	return c.JSON(http.StatusOK, echo.Map{"data": books})
}

func (s *Server) handleStreak(c echo.Context) error {
	today := time.Now()
	return c.JSON(http.StatusOK, echo.Map{
		"current_streak": s.tracker.CurrentStreak(today),
		"longest_streak": s.tracker.LongestStreak(),
		"total_days":     s.tracker.TotalReadingDays(),
		"days":           s.tracker.AllReadingDays(),
	})
}

func (s *Server) handleMarkDay(c echo.Context) error {
	date, err := streak.ParseDay(c.Param("date"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid date, want YYYY-MM-DD"})
	}
	if err := s.tracker.MarkRead(date); err != nil {
		return s.domainError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleUnmarkDay(c echo.Context) error {
	date, err := streak.ParseDay(c.Param("date"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid date, want YYYY-MM-DD"})
	}
	if err := s.tracker.UnmarkRead(date); err != nil {
		return s.domainError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleGetSettings(c echo.Context) error {
	settings, err := s.prefs.UserSettings()
	if err != nil {
		return s.domainError(c, err)
	}
	return c.JSON(http.StatusOK, settings)
}

func (s *Server) handleSaveSettings(c echo.Context) error {
	var settings prefs.UserSettings
	if err := c.Bind(&settings); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid json"})
	}
	if err := s.prefs.SaveUserSettings(settings); err != nil {
		return s.domainError(c, err)
	}
	return c.JSON(http.StatusOK, settings)
}

func (s *Server) handleMigrate(c echo.Context) error {
	result, err := s.migrator.Migrate(c.Request().Context())
	if err != nil {
		return s.domainError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

func bookID(c echo.Context) (int64, error) {
	return strconv.ParseInt(c.Param("id"), 10, 64)
}

// domainError translates core errors into status codes and short
// messages. Unknown errors are logged and reported as internal.
func (s *Server) domainError(c echo.Context, err error) error {
	var invalid *book.InvalidProgressError
	switch {
	case errors.Is(err, book.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"message": "book not found"})
	case errors.As(err, &invalid):
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"message": invalid.Error()})
	default:
		s.log.Error("request failed", "path", c.Path(), "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
}
