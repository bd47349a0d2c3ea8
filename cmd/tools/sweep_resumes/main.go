package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"cv-intake/internal/cv"
	"cv-intake/internal/storage"
)

// sweep_resumes removes uploaded resumes that no application references,
// such as files left behind when a record was deleted but its file was not.
func main() {
	var dryRun bool
	var limit int
	var minAge time.Duration
	flag.BoolVar(&dryRun, "dry-run", true, "If true, only print the files that would be removed")
	flag.IntVar(&limit, "limit", 500, "Max number of files to remove in one run")
	flag.DurationVar(&minAge, "min-age", time.Hour, "Skip files modified more recently than this")
	flag.Parse()

	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is required")
	}
	driver := os.Getenv("DB_DRIVER")
	uploadsDir := os.Getenv("UPLOADS_DIR")

	log.Printf("Connecting to DB...")
	db, err := storage.NewDB(storage.Options{Driver: driver, DSN: dbURL, PingTimeout: 10 * time.Second}, nil)
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}
	defer db.Close()

	store, err := cv.NewStore(uploadsDir, 0, nil)
	if err != nil {
		log.Fatalf("failed to open uploads dir: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	known, err := storage.NewApplicationRepository(db).ResumeURLs(ctx)
	if err != nil {
		log.Fatalf("query failed: %v", err)
	}

	orphans, err := store.Orphans(known, minAge)
	if err != nil {
		log.Fatalf("scan uploads: %v", err)
	}
	log.Printf("Found %d orphaned resumes in %s (%d referenced)", len(orphans), store.Dir(), len(known))

	removed := 0
	for _, u := range orphans {
		if removed >= limit {
			log.Printf("Limit %d reached, stopping", limit)
			break
		}
		if dryRun {
			log.Printf("[dry-run] Would remove %s", u)
			continue
		}
		if err := store.Remove(u); err != nil {
			log.Printf("failed to remove %s: %v", u, err)
			continue
		}
		removed++
	}

	log.Printf("Sweep complete: %d removed", removed)
}
