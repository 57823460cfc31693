package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	platformgrpc "github.com/sparkcards/sparkcards/internal/platform/grpc"
	"github.com/sparkcards/sparkcards/internal/platform/timeouts"
	"github.com/sparkcards/sparkcards/internal/services/study/api/httpapi"
	"github.com/sparkcards/sparkcards/internal/services/study/rewards"
	"github.com/sparkcards/sparkcards/internal/services/study/service"
	"github.com/sparkcards/sparkcards/internal/services/study/storage"
	studypostgres "github.com/sparkcards/sparkcards/internal/services/study/storage/postgres"
	studysqlite "github.com/sparkcards/sparkcards/internal/services/study/storage/sqlite"
	"golang.org/x/net/netutil"
	gogrpc "google.golang.org/grpc"
	"google.golang.org/grpc/health"
)

// Storage drivers accepted by RuntimeConfig.DBDriver.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// HealthService is the gRPC health service name of the study session.
const HealthService = "study.session"

const (
	defaultGRPCAddr = ":8095"
	defaultHTTPAddr = ":8096"
	defaultDBPath   = "data/study.db"
)

// RuntimeConfig controls study startup and dependencies.
type RuntimeConfig struct {
	GRPCAddr      string
	HTTPAddr      string
	DBDriver      string
	DBPath        string
	PostgresDSN   string
	SparksPerDeck int
	FeedCapacity  int
	// MaxHTTPConns caps concurrent HTTP connections, websocket streams
	// included. Zero means unlimited.
	MaxHTTPConns int
}

// Runtime is a started study service awaiting Serve.
type Runtime struct {
	store        storage.Store
	study        *service.Study
	grpcListener net.Listener
	httpListener net.Listener
	grpcServer   *gogrpc.Server
	healthServer *health.Server
	httpServer   *http.Server

	closeOnce sync.Once
	closeErr  error
}

// Run starts the study service and blocks until ctx ends.
func Run(ctx context.Context, cfg RuntimeConfig) error {
	if ctx == nil {
		ctx = context.Background()
	}
	runtime, err := NewRuntime(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := runtime.Close(); closeErr != nil {
			log.Printf("close study runtime: %v", closeErr)
		}
	}()
	return runtime.Serve(ctx)
}

// NewRuntime opens storage, loads the session and binds both listeners.
func NewRuntime(ctx context.Context, cfg RuntimeConfig) (*Runtime, error) {
	cfg = cfg.normalized()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	rt := &Runtime{store: store}

	ledger := rewards.NewLedger(store, cfg.SparksPerDeck)
	rt.study, err = service.New(ctx, service.Config{
		Decks:         store,
		Selections:    store,
		Ledger:        ledger,
		Feed:          service.NewFeed(cfg.FeedCapacity),
		SparksPerDeck: cfg.SparksPerDeck,
	})
	if err != nil {
		_ = rt.Close()
		return nil, fmt.Errorf("load study session: %w", err)
	}

	rt.grpcListener, err = net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		_ = rt.Close()
		return nil, fmt.Errorf("listen on study gRPC addr %s: %w", cfg.GRPCAddr, err)
	}
	rt.httpListener, err = net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		_ = rt.Close()
		return nil, fmt.Errorf("listen on study HTTP addr %s: %w", cfg.HTTPAddr, err)
	}
	if cfg.MaxHTTPConns > 0 {
		rt.httpListener = netutil.LimitListener(rt.httpListener, cfg.MaxHTTPConns)
	}

	rt.grpcServer, rt.healthServer = platformgrpc.NewHealthServer(HealthService)
	rt.httpServer = &http.Server{
		Handler:           httpapi.NewHandler(rt.study),
		ReadHeaderTimeout: timeouts.ReadHeader,
	}
	return rt, nil
}

// GRPCAddr returns the bound gRPC health address.
func (rt *Runtime) GRPCAddr() string {
	return rt.grpcListener.Addr().String()
}

// HTTPAddr returns the bound HTTP address.
func (rt *Runtime) HTTPAddr() string {
	return rt.httpListener.Addr().String()
}

// Serve runs both servers until ctx ends or one of them fails, then shuts
// both down. Open toast streams end with ctx.
func (rt *Runtime) Serve(ctx context.Context) error {
	rt.httpServer.BaseContext = func(net.Listener) context.Context { return ctx }

	grpcErr := make(chan error, 1)
	go func() {
		grpcErr <- rt.grpcServer.Serve(rt.grpcListener)
	}()
	httpErr := make(chan error, 1)
	go func() {
		httpErr <- rt.httpServer.Serve(rt.httpListener)
	}()
	log.Printf("study gRPC health listening at %v", rt.grpcListener.Addr())
	log.Printf("study HTTP listening at %v", rt.httpListener.Addr())

	var serveErr error
	select {
	case <-ctx.Done():
	case err := <-grpcErr:
		serveErr = fmt.Errorf("serve study gRPC: %w", err)
		grpcErr <- nil
	case err := <-httpErr:
		if !errors.Is(err, http.ErrServerClosed) {
			serveErr = fmt.Errorf("serve study HTTP: %w", err)
		}
		httpErr <- nil
	}

	rt.healthServer.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeouts.Shutdown)
	defer cancel()
	if err := rt.httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown study HTTP: %v", err)
	}
	rt.grpcServer.GracefulStop()
	<-grpcErr
	<-httpErr
	return serveErr
}

// Close releases the store and any listener Serve did not take over.
func (rt *Runtime) Close() error {
	rt.closeOnce.Do(func() {
		for _, listener := range []net.Listener{rt.grpcListener, rt.httpListener} {
			if listener != nil {
				_ = listener.Close()
			}
		}
		if rt.store != nil {
			rt.closeErr = rt.store.Close()
		}
	})
	return rt.closeErr
}

func (cfg RuntimeConfig) normalized() RuntimeConfig {
	if strings.TrimSpace(cfg.GRPCAddr) == "" {
		cfg.GRPCAddr = defaultGRPCAddr
	}
	if strings.TrimSpace(cfg.HTTPAddr) == "" {
		cfg.HTTPAddr = defaultHTTPAddr
	}
	cfg.DBDriver = strings.ToLower(strings.TrimSpace(cfg.DBDriver))
	if cfg.DBDriver == "" {
		cfg.DBDriver = DriverSQLite
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		cfg.DBPath = defaultDBPath
	}
	if cfg.FeedCapacity <= 0 {
		cfg.FeedCapacity = service.DefaultFeedCapacity
	}
	return cfg
}

// OpenStore opens the configured study store. Callers close it.
func OpenStore(ctx context.Context, cfg RuntimeConfig) (storage.Store, error) {
	return openStore(ctx, cfg.normalized())
}

func openStore(ctx context.Context, cfg RuntimeConfig) (storage.Store, error) {
	switch cfg.DBDriver {
	case DriverSQLite:
		if dir := filepath.Dir(cfg.DBPath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create study storage dir: %w", err)
			}
		}
		store, err := studysqlite.Open(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("open study sqlite store: %w", err)
		}
		return store, nil
	case DriverPostgres:
		store, err := studypostgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open study postgres store: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported study storage driver %q", cfg.DBDriver)
	}
}
