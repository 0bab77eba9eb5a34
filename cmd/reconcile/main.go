// Command reconcile recomputes denormalized like, bookmark and comment
// counters once and reports how many rows drifted.
package main

import (
	"context"
	"log"
	"os"

	"inkwell/internal/config"
	"inkwell/internal/database"
	"inkwell/internal/repository"
	"inkwell/internal/service"

	"github.com/goccy/go-json"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	reconciler := service.NewCounterReconciler(repository.NewEngagementRepository(db), 0)
	report, err := reconciler.Reconcile(context.Background())
	if err != nil {
		log.Fatalf("Reconcile failed: %v", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		log.Fatalf("Failed to write report: %v", err)
	}
	if report.Total() > 0 {
		log.Printf("Corrected %d drifted counters", report.Total())
	}
}
