// Package seed parses seed command flags and loads deck fixtures into the
// study store.
package seed

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sparkcards/sparkcards/internal/platform/discovery"
	"github.com/sparkcards/sparkcards/internal/services/study/app"
	studyseed "github.com/sparkcards/sparkcards/internal/services/study/seed"
)

// Config holds seed command configuration.
type Config struct {
	Store app.RuntimeConfig
	// File is a YAML fixture path. Empty loads the built-in demo fixture.
	File    string
	DryRun  bool
	Verbose bool
}

// EnvLookup returns the value for a key when present.
type EnvLookup func(string) (string, bool)

// ParseConfig parses flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string, lookup EnvLookup) (Config, error) {
	cfg := Config{Store: app.RuntimeConfig{
		DBDriver:    envOrDefault(lookup, []string{"SPARKCARDS_STUDY_DB_DRIVER"}, app.DriverSQLite),
		DBPath:      envOrDefault(lookup, []string{"SPARKCARDS_STUDY_DB_PATH"}, "data/study.db"),
		PostgresDSN: envOrDefault(lookup, []string{"SPARKCARDS_STUDY_POSTGRES_DSN"}, ""),
	}}

	fs.StringVar(&cfg.Store.DBDriver, "db-driver", cfg.Store.DBDriver, "Storage driver (sqlite, postgres)")
	fs.StringVar(&cfg.Store.DBPath, "db-path", cfg.Store.DBPath, "SQLite database path")
	fs.StringVar(&cfg.Store.PostgresDSN, "postgres-dsn", cfg.Store.PostgresDSN, "PostgreSQL DSN (default: in-network postgres)")
	fs.StringVar(&cfg.File, "file", "", "YAML deck fixture (default: built-in demo decks)")
	fs.BoolVar(&cfg.DryRun, "dry-run", false, "validate the fixture without writing")
	fs.BoolVar(&cfg.Verbose, "v", false, "verbose output")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	if cfg.Store.DBDriver == app.DriverPostgres {
		cfg.Store.PostgresDSN = discovery.PostgresDSN(cfg.Store.PostgresDSN, "sparkcards")
	}
	return cfg, nil
}

// Run executes the seed command.
func Run(ctx context.Context, cfg Config, out io.Writer, errOut io.Writer) error {
	if out == nil {
		out = io.Discard
	}
	if errOut == nil {
		errOut = io.Discard
	}

	file, err := loadFixture(cfg.File)
	if err != nil {
		return err
	}
	if cfg.Verbose {
		for _, deck := range file.Decks {
			fmt.Fprintf(errOut, "deck %q: %d cards\n", deck.Title, len(deck.Cards))
		}
	}
	if cfg.DryRun {
		fmt.Fprintf(out, "fixture ok: %d decks\n", len(file.Decks))
		return nil
	}

	store, err := app.OpenStore(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer store.Close()

	result, err := studyseed.Loader{}.Load(ctx, store, file)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "seeded %d decks, %d cards, %d selected\n", result.Decks, result.Cards, result.Selected)
	return nil
}

func loadFixture(path string) (studyseed.File, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return studyseed.Demo()
	}
	f, err := os.Open(path)
	if err != nil {
		return studyseed.File{}, fmt.Errorf("open fixture: %w", err)
	}
	defer f.Close()
	return studyseed.Parse(f)
}

func envOrDefault(lookup EnvLookup, keys []string, fallback string) string {
	for _, key := range keys {
		if lookup == nil {
			break
		}
		value, ok := lookup(key)
		if ok {
			trimmed := strings.TrimSpace(value)
			if trimmed != "" {
				return trimmed
			}
		}
	}
	return fallback
}
