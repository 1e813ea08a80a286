package main

import (
	"context"
	"flag"
	"log"

	"github.com/evzhu/readtrack/internal/book"
	"github.com/evzhu/readtrack/internal/config"
	"github.com/evzhu/readtrack/internal/legacy"
	"github.com/evzhu/readtrack/internal/prefs"
	"github.com/evzhu/readtrack/internal/scraper"
	"github.com/evzhu/readtrack/internal/search"
	"github.com/evzhu/readtrack/internal/storage"
	"github.com/evzhu/readtrack/internal/streak"
	"github.com/evzhu/readtrack/internal/web"
)

func main() {
	// Flags
	dataDir := flag.String("data-dir", "", "data directory (default ~/.readtrack)")
	addr := flag.String("addr", "", "listen address (default from config)")
	flag.Parse()

	cfg, err := config.Load(*dataDir)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize services
	repo, err := storage.NewSQLiteRepository(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer repo.Close()

	prefStore, err := prefs.Open(cfg.PrefsPath)
	if err != nil {
		log.Fatalf("Failed to open preferences store: %v", err)
	}
	defer prefStore.Close()

	tracker, err := streak.NewTracker(prefStore)
	if err != nil {
		log.Fatalf("Failed to initialize streak tracker: %v", err)
	}

	legacyStore, err := legacy.NewStore(prefStore)
	if err != nil {
		log.Fatalf("Failed to open legacy record store: %v", err)
	}

	bookService := book.NewService(repo, tracker)
	searchEngine := search.NewEngine(repo)
	remote := scraper.NewGoogleBooksClient(cfg.GoogleBooksAPIKey)
	migrator := legacy.NewMigrator(bookService, legacyStore, prefStore)

	// One-shot legacy import on startup; failures are logged, not fatal.
	if result, err := migrator.Migrate(context.Background()); err != nil {
		log.Printf("Warning: legacy migration failed: %v", err)
	} else if !result.AlreadyDone {
		log.Printf("Legacy migration: imported %d, skipped %d", result.Imported, result.Skipped)
	}

	server := web.NewServer(bookService, tracker, searchEngine, remote, migrator, prefStore)

	listenAddr := cfg.ListenAddr
	if *addr != "" {
		listenAddr = *addr
	}

	log.Printf("Starting readtrack web server on http://localhost%s", listenAddr)
	log.Printf("Database: %s", cfg.DatabasePath)

	if err := server.Start(listenAddr); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
