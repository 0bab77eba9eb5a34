// Command seed fills the database with generated users, content and engagement.
package main

import (
	"context"
	"flag"
	"log"
	"strings"

	"inkwell/internal/bootstrap"
	"inkwell/internal/config"
	"inkwell/internal/seed"
)

func main() {
	preset := flag.String("preset", "small", "Seeder preset to apply")
	shouldClean := flag.Bool("clean", true, "Clean engagement data before seeding")
	randSeed := flag.Int64("seed", 0, "Random seed for reproducible runs (0 = random)")
	flag.Parse()

	catalog, err := seed.LoadCatalog()
	if err != nil {
		log.Fatalf("Failed to load seed presets: %v", err)
	}
	p, err := catalog.Preset(*preset)
	if err != nil {
		log.Fatalf("Unknown preset %q (available: %s)", *preset, strings.Join(catalog.Names(), ", "))
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, _, err := bootstrap.InitRuntime(cfg, bootstrap.Options{SkipRedis: true})
	if err != nil {
		log.Fatalf("Failed to initialize runtime: %v", err)
	}

	log.Printf("Seeding preset %s (clean=%v)", *preset, *shouldClean)
	summary, err := seed.NewSeeder(db, catalog, *randSeed).Run(context.Background(), seed.Options{
		Preset:   p,
		Clean:    *shouldClean,
		RandSeed: *randSeed,
	})
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Printf("Created %d users, %d contents (%d drafts), %d comments",
		summary.Users, summary.Contents, summary.DraftContents, summary.Comments)
	log.Printf("Engagement: %d content likes, %d comment likes, %d bookmarks",
		summary.ContentLikes, summary.CommentLikes, summary.Bookmarks)
	log.Printf("All seeded users have the password: %s", seed.DefaultPassword)
}
