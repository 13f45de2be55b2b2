// Package main contains the one-time store initialization utility. It
// creates the persistence file and applies the schema migrations; the bot
// itself never creates the store.
package main

import (
	"flag"
	"os"
	"path/filepath"

	"github.com/wtfconf/workflowybot/internal/config"
	"github.com/wtfconf/workflowybot/internal/database"
	"github.com/wtfconf/workflowybot/internal/logger"
)

func main() {
	os.Exit(run())
}

func run() int {
	flag.Parse()

	log := logger.NewLogger("info", false)

	// Optional positional argument overrides the default output path.
	path := config.DefaultDatabasePath
	if flag.NArg() > 0 {
		path = flag.Arg(0)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Error("Failed to create store directory", "dir", dir, "error", err)
			return 1
		}
	}

	db, err := database.OpenDB(path)
	if err != nil {
		log.Error("Failed to open store", "path", path, "error", err)
		return 1
	}
	defer database.CloseDB(db)

	if err := database.ApplyMigrations(db.DB, path); err != nil {
		log.Error("Failed to apply migrations", "path", path, "error", err)
		return 1
	}

	log.Info("Store initialized", "path", path)
	return 0
}
