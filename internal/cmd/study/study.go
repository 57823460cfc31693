// Package study parses study service flags and launches the service.
package study

import (
	"context"
	"flag"

	entrypoint "github.com/sparkcards/sparkcards/internal/platform/cmd"
	"github.com/sparkcards/sparkcards/internal/platform/discovery"
	"github.com/sparkcards/sparkcards/internal/services/study/app"
)

// Config holds study command configuration.
type Config struct {
	GRPCAddr      string `env:"SPARKCARDS_STUDY_GRPC_ADDR" envDefault:":8095"`
	HTTPAddr      string `env:"SPARKCARDS_STUDY_HTTP_ADDR" envDefault:":8096"`
	DBDriver      string `env:"SPARKCARDS_STUDY_DB_DRIVER" envDefault:"sqlite"`
	DBPath        string `env:"SPARKCARDS_STUDY_DB_PATH" envDefault:"data/study.db"`
	PostgresDSN   string `env:"SPARKCARDS_STUDY_POSTGRES_DSN"`
	SparksPerDeck int    `env:"SPARKCARDS_STUDY_SPARKS_PER_DECK" envDefault:"50"`
	FeedCapacity  int    `env:"SPARKCARDS_STUDY_FEED_CAPACITY" envDefault:"50"`
	MaxHTTPConns  int    `env:"SPARKCARDS_STUDY_MAX_HTTP_CONNS" envDefault:"0"`
}

// ParseConfig parses environment and flags into Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.GRPCAddr, "grpc-addr", cfg.GRPCAddr, "The study gRPC health listen address")
	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "The study HTTP listen address")
	fs.StringVar(&cfg.DBDriver, "db-driver", cfg.DBDriver, "Storage driver (sqlite, postgres)")
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "SQLite database path")
	fs.StringVar(&cfg.PostgresDSN, "postgres-dsn", cfg.PostgresDSN, "PostgreSQL DSN (default: in-network postgres)")
	fs.IntVar(&cfg.SparksPerDeck, "sparks-per-deck", cfg.SparksPerDeck, "Sparks granted per completed deck")
	fs.IntVar(&cfg.FeedCapacity, "feed-capacity", cfg.FeedCapacity, "Notifications kept in the toast feed")
	fs.IntVar(&cfg.MaxHTTPConns, "max-http-conns", cfg.MaxHTTPConns, "Concurrent HTTP connection cap (0 = unlimited)")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Runtime converts the command config into the study runtime config.
func (c Config) Runtime() app.RuntimeConfig {
	cfg := app.RuntimeConfig{
		GRPCAddr:      c.GRPCAddr,
		HTTPAddr:      c.HTTPAddr,
		DBDriver:      c.DBDriver,
		DBPath:        c.DBPath,
		SparksPerDeck: c.SparksPerDeck,
		FeedCapacity:  c.FeedCapacity,
		MaxHTTPConns:  c.MaxHTTPConns,
	}
	if cfg.DBDriver == app.DriverPostgres {
		cfg.PostgresDSN = discovery.PostgresDSN(c.PostgresDSN, "sparkcards")
	}
	return cfg
}

// Run starts the study service.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceStudy, func(ctx context.Context) error {
		return app.Run(ctx, cfg.Runtime())
	})
}
