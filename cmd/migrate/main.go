// Command migrate runs the embedded SQL migrations with goose.
package main

import (
	"flag"
	"fmt"
	"log"
	"strings"

	"inkwell/internal/config"
	"inkwell/internal/database"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func usage() error {
	return fmt.Errorf("usage: go run ./cmd/migrate <up|down|status>")
}

func run() error {
	flag.Parse()
	if flag.NArg() < 1 {
		return usage()
	}

	cmd := strings.ToLower(strings.TrimSpace(flag.Arg(0)))
	switch cmd {
	case database.MigrateUp, database.MigrateDown, database.MigrateStatus:
	default:
		return usage()
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := database.OpenSQL(database.DSN(cfg))
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer func() { _ = db.Close() }()

	if err := database.Migrate(db, cmd); err != nil {
		return err
	}
	log.Printf("migrate %s done", cmd)
	return nil
}
