// Package healthcheck probes a running study service for container health checks.
package healthcheck

import (
	"context"
	"flag"
	"fmt"
	"io"

	entrypoint "github.com/sparkcards/sparkcards/internal/platform/cmd"
	"github.com/sparkcards/sparkcards/internal/platform/discovery"
	platformgrpc "github.com/sparkcards/sparkcards/internal/platform/grpc"
	"github.com/sparkcards/sparkcards/internal/platform/timeouts"
	"github.com/sparkcards/sparkcards/internal/services/study/app"
)

// Config holds healthcheck command configuration.
type Config struct {
	Addr    string `env:"SPARKCARDS_STUDY_HEALTH_ADDR"`
	Service string `env:"SPARKCARDS_STUDY_HEALTH_SERVICE"`
}

// ParseConfig parses environment and flags into Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "Study gRPC address (default: in-network study service)")
	fs.StringVar(&cfg.Service, "service", cfg.Service, "gRPC health service name (default: study.session)")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	cfg.Addr = discovery.OrDefaultGRPCAddr(cfg.Addr, discovery.ServiceStudy)
	if cfg.Service == "" {
		cfg.Service = app.HealthService
	}
	return cfg, nil
}

// Run probes the configured address once and reports the result on out.
func Run(ctx context.Context, cfg Config, out io.Writer) error {
	if out == nil {
		out = io.Discard
	}
	if err := platformgrpc.Probe(ctx, cfg.Addr, cfg.Service, timeouts.HealthProbe); err != nil {
		return fmt.Errorf("%s at %s: %w", cfg.Service, cfg.Addr, err)
	}
	fmt.Fprintf(out, "%s at %s: serving\n", cfg.Service, cfg.Addr)
	return nil
}
