package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/evzhu/readtrack/internal/book"
	"github.com/evzhu/readtrack/internal/config"
	"github.com/evzhu/readtrack/internal/legacy"
	"github.com/evzhu/readtrack/internal/prefs"
	"github.com/evzhu/readtrack/internal/scraper"
	"github.com/evzhu/readtrack/internal/search"
	"github.com/evzhu/readtrack/internal/storage"
	"github.com/evzhu/readtrack/internal/streak"
)

var dataDir string

func main() {
	rootCmd := &cobra.Command{
		Use:   "readtrack",
		Short: "Personal reading tracker - books, progress, streaks",
		Long: `readtrack keeps your book library, page-by-page reading history,
ratings and reviews, and a daily reading streak, all stored locally.`,
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "data directory (default ~/.readtrack)")

	rootCmd.AddCommand(
		addCmd(),
		listCmd(),
		showCmd(),
		updateCmd(),
		deleteCmd(),
		historyCmd(),
		readCmd(),
		unreadCmd(),
		streakCmd(),
		statsCmd(),
		findCmd(),
		searchCmd(),
		importCmd(),
		migrateCmd(),
		exportCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type services struct {
	cfg      *config.Config
	books    *book.Service
	tracker  *streak.Tracker
	engine   *search.Engine
	migrator *legacy.Migrator
	legacy   *legacy.Store
	prefs    *prefs.Store
}

func initServices() (*services, func(), error) {
	cfg, err := config.Load(dataDir)
	if err != nil {
		return nil, nil, err
	}

	repo, err := storage.NewSQLiteRepository(cfg.DatabasePath)
	if err != nil {
		return nil, nil, fmt.Errorf("init repository: %w", err)
	}

	prefStore, err := prefs.Open(cfg.PrefsPath)
	if err != nil {
		repo.Close()
		return nil, nil, fmt.Errorf("init prefs: %w", err)
	}

	tracker, err := streak.NewTracker(prefStore)
	if err != nil {
		repo.Close()
		prefStore.Close()
		return nil, nil, fmt.Errorf("init streak tracker: %w", err)
	}

	legacyStore, err := legacy.NewStore(prefStore)
	if err != nil {
		repo.Close()
		prefStore.Close()
		return nil, nil, fmt.Errorf("init legacy store: %w", err)
	}

	svc := book.NewService(repo, tracker)

	s := &services{
		cfg:      cfg,
		books:    svc,
		tracker:  tracker,
		engine:   search.NewEngine(repo),
		migrator: legacy.NewMigrator(svc, legacyStore, prefStore),
		legacy:   legacyStore,
		prefs:    prefStore,
	}

	cleanup := func() {
		repo.Close()
		prefStore.Close()
	}

	return s, cleanup, nil
}

func addCmd() *cobra.Command {
	var author, status, review, description, cover string
	var pages, page int
	var rating float64

	cmd := &cobra.Command{
		Use:   "add [title]",
		Short: "Add a new book to your library",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, cleanup, err := initServices()
			if err != nil {
				return err
			}
			defer cleanup()

			bookStatus := book.StatusNotStarted
			if status != "" {
				bookStatus = book.Status(status)
				if !bookStatus.IsValid() {
					return fmt.Errorf("invalid status: %s (use: \"Not Started\", \"In Progress\", \"Completed\")", status)
				}
			}

			b := &book.Book{
				Title:         strings.Join(args, " "),
				Author:        author,
				TotalPages:    pages,
				CurrentPage:   page,
				Status:        bookStatus,
				Rating:        rating,
				Review:        review,
				Description:   description,
				CoverImageURL: cover,
			}

			id, err := s.books.AddBook(context.Background(), b)
			if err != nil {
				return err
			}

			fmt.Printf("Added: %s by %s (ID: %d)\n", b.Title, b.Author, id)
			return nil
		},
	}

	cmd.Flags().StringVarP(&author, "author", "a", "", "book author")
	cmd.Flags().IntVarP(&pages, "pages", "p", 0, "total page count (0 = unknown)")
	cmd.Flags().IntVar(&page, "page", 0, "current page")
	cmd.Flags().StringVarP(&status, "status", "s", "", "reading status")
	cmd.Flags().Float64VarP(&rating, "rating", "r", 0, "your rating (0-5)")
	cmd.Flags().StringVar(&review, "review", "", "your review")
	cmd.Flags().StringVarP(&description, "description", "d", "", "book description")
	cmd.Flags().StringVar(&cover, "cover", "", "cover image URL")

	return cmd
}

func listCmd() *cobra.Command {
	var status string
	var grouped bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List books in your library",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, cleanup, err := initServices()
			if err != nil {
				return err
			}
			defer cleanup()

			ctx := context.Background()

			if grouped {
				entries, err := s.books.Library(ctx)
				if err != nil {
					return err
				}
				if len(entries) == 0 {
					fmt.Println("No books found.")
					return nil
				}
				for _, e := range entries {
					printBookShort(e.Book)
					if e.HasHistory {
						fmt.Printf("      (%d earlier entries - see 'readtrack history %d')\n", e.EntryCount-1, e.Book.ID)
					}
				}
				return nil
			}

			var books []book.Book
			if status != "" {
				st := book.Status(status)
				if !st.IsValid() {
					return fmt.Errorf("invalid status: %s", status)
				}
				books, err = s.books.ListByStatus(ctx, st)
			} else {
				books, err = s.books.List(ctx)
			}
			if err != nil {
				return err
			}

			if len(books) == 0 {
				fmt.Println("No books found.")
				return nil
			}

			for _, b := range books {
				printBookShort(b)
			}

			fmt.Printf("\nTotal: %d books\n", len(books))
			return nil
		},
	}

	cmd.Flags().StringVarP(&status, "status", "s", "", "filter by status")
	cmd.Flags().BoolVarP(&grouped, "grouped", "g", false, "collapse duplicate titles to the latest entry")
	return cmd
}

func showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [book-id]",
		Short: "Show details of a specific book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, cleanup, err := initServices()
			if err != nil {
				return err
			}
			defer cleanup()

			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid book ID: %s", args[0])
			}

			b, err := s.books.Get(context.Background(), id)
			if err != nil {
				return err
			}

			printBookFull(*b)
			return nil
		},
	}
}

func updateCmd() *cobra.Command {
	var status, review, note, date string
	var page int
	var rating float64

	cmd := &cobra.Command{
		Use:   "update [book-id]",
		Short: "Record reading progress for a book",
		Long: `Record a new progress snapshot. The day is also marked as a reading
day for streak purposes.

Examples:
  readtrack update 3 --page 120
  readtrack update 3 --page 412 --status Completed --rating 4.5 --review "Loved it"
  readtrack update 3 --page 80 --date 2024-01-10`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, cleanup, err := initServices()
			if err != nil {
				return err
			}
			defer cleanup()

			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid book ID: %s", args[0])
			}

			var day time.Time
			if date != "" {
				day, err = streak.ParseDay(date)
				if err != nil {
					return err
				}
			}

			b, err := s.books.UpdateProgress(context.Background(), id, book.ProgressUpdate{
				CurrentPage: page,
				Status:      book.Status(status),
				Rating:      rating,
				Review:      review,
				Note:        note,
				Date:        day,
			})
			if err != nil {
				return err
			}

			fmt.Printf("Updated: %s by %s - page %d/%d (%s)\n", b.Title, b.Author, b.CurrentPage, b.TotalPages, b.Status)
			return nil
		},
	}

	cmd.Flags().IntVarP(&page, "page", "p", 0, "current page")
	cmd.Flags().StringVarP(&status, "status", "s", "", "new status (default: unchanged)")
	cmd.Flags().Float64VarP(&rating, "rating", "r", 0, "new rating, 0 leaves unchanged")
	cmd.Flags().StringVar(&review, "review", "", "new review, empty leaves unchanged")
	cmd.Flags().StringVarP(&note, "note", "n", "", "note for this snapshot")
	cmd.Flags().StringVar(&date, "date", "", "snapshot date YYYY-MM-DD (default: today)")

	return cmd
}

func deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [book-id]",
		Short: "Delete a book and its progress history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, cleanup, err := initServices()
			if err != nil {
				return err
			}
			defer cleanup()

			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid book ID: %s", args[0])
			}

			ctx := context.Background()
			b, err := s.books.Get(ctx, id)
			if err != nil {
				return err
			}

			if err := s.books.DeleteBook(ctx, id); err != nil {
				return err
			}

			fmt.Printf("Deleted: %s by %s\n", b.Title, b.Author)
			return nil
		},
	}
}

func historyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history [book-id]",
		Short: "Show a book's progress history, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, cleanup, err := initServices()
			if err != nil {
				return err
			}
			defer cleanup()

			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid book ID: %s", args[0])
			}

			ctx := context.Background()
			b, err := s.books.Get(ctx, id)
			if err != nil {
				return err
			}

			snaps, err := s.books.History(ctx, id)
			if err != nil {
				return err
			}

			fmt.Printf("%s by %s - %d entries\n\n", b.Title, b.Author, len(snaps))
			for _, snap := range snaps {
				fmt.Printf("%s  page %d  %s", snap.Date.Format("2006-01-02"), snap.CurrentPage, snap.Status)
				if snap.Note != "" {
					fmt.Printf("  (%s)", snap.Note)
				}
				fmt.Println()
			}
			return nil
		},
	}
}

func readCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "read [date]",
		Short: "Mark a day as a reading day (default: today)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, cleanup, err := initServices()
			if err != nil {
				return err
			}
			defer cleanup()

			day := time.Now()
			if len(args) == 1 {
				day, err = streak.ParseDay(args[0])
				if err != nil {
					return err
				}
			}

			if err := s.tracker.MarkRead(day); err != nil {
				return err
			}

			fmt.Printf("Marked %s as a reading day. Current streak: %d\n",
				streak.DayKey(day), s.tracker.CurrentStreak(time.Now()))
			return nil
		},
	}
}

func unreadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unread [date]",
		Short: "Unmark a reading day",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, cleanup, err := initServices()
			if err != nil {
				return err
			}
			defer cleanup()

			day, err := streak.ParseDay(args[0])
			if err != nil {
				return err
			}

			if err := s.tracker.UnmarkRead(day); err != nil {
				return err
			}

			fmt.Printf("Unmarked %s.\n", streak.DayKey(day))
			return nil
		},
	}
}

func streakCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "streak",
		Short: "Show your reading streak",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, cleanup, err := initServices()
			if err != nil {
				return err
			}
			defer cleanup()

			fmt.Printf("Current streak: %d day(s)\n", s.tracker.CurrentStreak(time.Now()))
			fmt.Printf("Longest streak: %d day(s)\n", s.tracker.LongestStreak())
			fmt.Printf("Total reading days: %d\n", s.tracker.TotalReadingDays())

			if all {
				fmt.Println()
				for _, day := range s.tracker.AllReadingDays() {
					fmt.Println(day)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "list every reading day")
	return cmd
}

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show reading statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, cleanup, err := initServices()
			if err != nil {
				return err
			}
			defer cleanup()

			ctx := context.Background()
			stats, err := s.books.Stats(ctx)
			if err != nil {
				return err
			}

			fmt.Println("=== Library Stats ===")
			fmt.Printf("Total books: %d\n", stats.Total)
			fmt.Println()
			fmt.Println("By status:")
			fmt.Printf("  Not Started: %d\n", stats.NotStarted)
			fmt.Printf("  In Progress: %d\n", stats.InProgress)
			fmt.Printf("  Completed:   %d\n", stats.Completed)
			fmt.Println()
			fmt.Printf("Reading days (last 30): %d\n", stats.ReadingDays)
			fmt.Printf("Current streak: %d day(s)\n", s.tracker.CurrentStreak(time.Now()))

			recent, err := s.books.RecentlyRead(ctx)
			if err != nil {
				return err
			}
			if len(recent) > 0 {
				fmt.Println("\nRecently read:")
				for i, b := range recent {
					if i >= 5 {
						break
					}
					printBookShort(b)
				}
			}
			return nil
		},
	}
}

func findCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "find [query]",
		Short: "Search your own library",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, cleanup, err := initServices()
			if err != nil {
				return err
			}
			defer cleanup()

			query := strings.Join(args, " ")
			results, err := s.engine.Search(context.Background(), query, limit)
			if err != nil {
				return err
			}

			if len(results) == 0 {
				fmt.Println("No matching books found.")
				return nil
			}

			for _, r := range results {
				printBookShort(r.Book)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "l", 10, "max results to show")
	return cmd
}

func searchCmd() *cobra.Command {
	var limit int
	var add bool

	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search Google Books and optionally add a result",
		Long: `Search the Google Books API for new books.

Examples:
  readtrack search "Project Hail Mary"
  readtrack search "Dune" --add`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, cleanup, err := initServices()
			if err != nil {
				return err
			}
			defer cleanup()

			query := strings.Join(args, " ")
			client := scraper.NewGoogleBooksClient(s.cfg.GoogleBooksAPIKey)
			ctx := context.Background()

			books, err := client.Search(ctx, query, limit)
			if err != nil {
				return err
			}

			if len(books) == 0 {
				fmt.Println("No books found.")
				return nil
			}

			for i, b := range books {
				fmt.Printf("[%d] %s by %s", i+1, b.Title, b.Author)
				if b.TotalPages > 0 {
					fmt.Printf(" (%d pages)", b.TotalPages)
				}
				fmt.Println()
			}

			if add {
				b := books[0]
				id, err := s.books.AddBook(ctx, &b)
				if err != nil {
					return err
				}
				fmt.Printf("\nAdded: %s by %s (ID: %d)\n", b.Title, b.Author, id)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "l", 10, "max results to show")
	cmd.Flags().BoolVar(&add, "add", false, "add the first result to your library")
	return cmd
}

func importCmd() *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "import [isbn...]",
		Short: "Import books by ISBN from OpenLibrary",
		Long: `Fetch book metadata from OpenLibrary by ISBN and add to your library.
Examples:
  readtrack import 9780593135204
  readtrack import 978-0-593-13520-4 9780316769488 --status "In Progress"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, cleanup, err := initServices()
			if err != nil {
				return err
			}
			defer cleanup()

			bookStatus := book.StatusNotStarted
			if status != "" {
				bookStatus = book.Status(status)
				if !bookStatus.IsValid() {
					return fmt.Errorf("invalid status: %s", status)
				}
			}

			client := scraper.NewOpenLibraryClient()
			ctx := context.Background()

			for _, isbn := range args {
				fmt.Printf("Fetching ISBN %s...\n", isbn)

				b, err := client.FetchByISBN(ctx, isbn)
				if err != nil {
					fmt.Printf("  Error: %v\n", err)
					continue
				}

				b.Status = bookStatus
				fmt.Printf("  Found: %s by %s\n", b.Title, b.Author)

				id, err := s.books.AddBook(ctx, b)
				if err != nil {
					fmt.Printf("  Error saving: %v\n", err)
					continue
				}

				fmt.Printf("  Added with ID %d\n", id)

				// Be nice to the OpenLibrary API
				time.Sleep(500 * time.Millisecond)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&status, "status", "s", "", "reading status for imported books")
	return cmd
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Import legacy text records (runs at most once)",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, cleanup, err := initServices()
			if err != nil {
				return err
			}
			defer cleanup()

			result, err := s.migrator.Migrate(context.Background())
			if err != nil {
				return err
			}

			if result.AlreadyDone {
				fmt.Println("Legacy migration already completed, nothing to do.")
				return nil
			}

			fmt.Printf("Migration complete. Imported: %d, Skipped: %d\n", result.Imported, result.Skipped)
			return nil
		},
	}
}

func exportCmd() *cobra.Command {
	var format string
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export your library to JSON or CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, cleanup, err := initServices()
			if err != nil {
				return err
			}
			defer cleanup()

			books, err := s.books.List(context.Background())
			if err != nil {
				return err
			}

			if len(books) == 0 {
				fmt.Println("No books to export.")
				return nil
			}

			var out *os.File
			if output == "" {
				out = os.Stdout
			} else {
				out, err = os.Create(output)
				if err != nil {
					return fmt.Errorf("create output file: %w", err)
				}
				defer out.Close()
			}

			switch format {
			case "json":
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(books); err != nil {
					return fmt.Errorf("encode JSON: %w", err)
				}

			case "csv":
				w := csv.NewWriter(out)
				defer w.Flush()

				w.Write([]string{"ID", "Title", "Author", "TotalPages", "CurrentPage", "Status", "Rating", "Review", "DateAdded", "LastReadDate"})
				for _, b := range books {
					w.Write([]string{
						strconv.FormatInt(b.ID, 10),
						b.Title,
						b.Author,
						strconv.Itoa(b.TotalPages),
						strconv.Itoa(b.CurrentPage),
						string(b.Status),
						strconv.FormatFloat(b.Rating, 'f', -1, 64),
						b.Review,
						b.DateAdded.Format("2006-01-02"),
						b.LastReadDate.Format("2006-01-02"),
					})
				}

			default:
				return fmt.Errorf("unknown format: %s (use json or csv)", format)
			}

			if output != "" {
				fmt.Printf("Exported %d books to %s\n", len(books), output)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "json", "output format (json, csv)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: stdout)")
	return cmd
}

func printBookShort(b book.Book) {
	fmt.Printf("[%d] %s by %s", b.ID, b.Title, b.Author)
	if b.TotalPages > 0 {
		fmt.Printf(" - page %d/%d (%d%%)", b.CurrentPage, b.TotalPages, b.PercentComplete())
	}
	fmt.Printf(" (%s)\n", b.Status)
}

func printBookFull(b book.Book) {
	fmt.Printf("ID:           %d\n", b.ID)
	fmt.Printf("Title:        %s\n", b.Title)
	fmt.Printf("Author:       %s\n", b.Author)
	if b.TotalPages > 0 {
		fmt.Printf("Progress:     %d/%d pages (%d%%)\n", b.CurrentPage, b.TotalPages, b.PercentComplete())
	} else if b.CurrentPage > 0 {
		fmt.Printf("Progress:     page %d\n", b.CurrentPage)
	}
	fmt.Printf("Status:       %s\n", b.Status)
	if b.Rating > 0 {
		fmt.Printf("Rating:       %.1f/5\n", b.Rating)
	}
	if b.Review != "" {
		fmt.Printf("Review:       %s\n", b.Review)
	}
	if b.Description != "" {
		fmt.Printf("Description:  %s\n", b.Description)
	}
	if b.CoverImageURL != "" {
		fmt.Printf("Cover:        %s\n", b.CoverImageURL)
	}
	fmt.Printf("Added:        %s\n", b.DateAdded.Format("2006-01-02"))
	fmt.Printf("Last read:    %s\n", b.LastReadDate.Format("2006-01-02"))
}
