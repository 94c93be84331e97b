package daemon

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/windvault/windvault/internal/config"
	"github.com/windvault/windvault/internal/db"
	"github.com/windvault/windvault/internal/secrets"
)

const (
	shutdownTimeout = 5 * time.Second
	socketPerms     = 0o660
	runDirPerms     = 0o750
)

// Service wires the control socket listener and the optional metrics listener.
type Service struct {
	cfg             config.Config
	store           *db.Store
	registry        *WindowRegistry
	ledger          *OrderLedger
	arbiter         *RequestArbiter
	syncer          *Syncer
	metrics         *Metrics
	unixListener    net.Listener
	metricsListener net.Listener
	unixServer      *http.Server
	metricsServer   *http.Server
}

// Run loads the token bundle, binds listeners, and serves until ctx is canceled.
func Run(ctx context.Context, cfg config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	bundle, err := secrets.Store{
		Dir:            cfg.TokensDir,
		AgeKeyPath:     cfg.AgeKeyPath,
		AllowPlaintext: cfg.AllowPlaintextTokens,
	}.Load(cfg.TokensBundle)
	if err != nil {
		return err
	}
	store, err := db.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	service, err := NewService(cfg, store, bundle)
	if err != nil {
		_ = store.Close()
		return err
	}
	log.Printf("windvaultd: loaded %d tokens from bundle %s", len(bundle.Tokens), cfg.TokensBundle)
	return service.Serve(ctx)
}

// NewService constructs a service with bound listeners.
func NewService(cfg config.Config, store *db.Store, bundle secrets.Bundle) (*Service, error) {
	if err := ensureDir(cfg.RunDir, runDirPerms); err != nil {
		return nil, err
	}
	unixListener, err := listenUnix(cfg.SocketPath)
	if err != nil {
		return nil, err
	}
	var metricsListener net.Listener
	if cfg.MetricsListen != "" {
		metricsListener, err = net.Listen("tcp", cfg.MetricsListen)
		if err != nil {
			_ = unixListener.Close()
			return nil, fmt.Errorf("listen metrics %s: %w", cfg.MetricsListen, err)
		}
	}

	var metrics *Metrics
	if metricsListener != nil {
		metrics = NewMetrics()
	}
	registry := NewWindowRegistry(store, log.Default()).WithMetrics(metrics)
	ledger := NewOrderLedger(store, registry, log.Default()).WithMetrics(metrics)
	arbiter := NewRequestArbiter(store, registry, log.Default()).WithMetrics(metrics)
	syncer := NewSyncer(store, log.Default(), time.Duration(cfg.SyncIntervalSeconds)*time.Second).WithMetrics(metrics)

	auth, err := NewControlAuth(bundle)
	if err != nil {
		if metricsListener != nil {
			_ = metricsListener.Close()
		}
		_ = unixListener.Close()
		return nil, err
	}

	localMux := http.NewServeMux()
	localMux.HandleFunc("/healthz", healthHandler)
	NewControlAPI(store, registry, ledger, arbiter, syncer, log.Default()).WithMetrics(metrics).Register(localMux)

	unixServer := &http.Server{
		Handler:           auth.Wrap(localMux),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	var metricsServer *http.Server
	if metricsListener != nil {
		metricsMux := http.NewServeMux()
		metricsMux.HandleFunc("/healthz", healthHandler)
		metricsMux.Handle("/metrics", metrics.Handler())
		metricsServer = &http.Server{
			Handler:           metricsMux,
			ReadHeaderTimeout: 5 * time.Second,
			IdleTimeout:       2 * time.Minute,
		}
	}

	return &Service{
		cfg:             cfg,
		store:           store,
		registry:        registry,
		ledger:          ledger,
		arbiter:         arbiter,
		syncer:          syncer,
		metrics:         metrics,
		unixListener:    unixListener,
		metricsListener: metricsListener,
		unixServer:      unixServer,
		metricsServer:   metricsServer,
	}, nil
}

// Serve blocks until shutdown or a listener error occurs.
func (s *Service) Serve(ctx context.Context) error {
	log.Printf("windvaultd: listening on unix=%s", s.cfg.SocketPath)
	if s.metricsListener != nil {
		log.Printf("windvaultd: listening on metrics=%s", s.cfg.MetricsListen)
	}

	servers := 1
	errCh := make(chan error, 2)
	go func() { errCh <- s.unixServer.Serve(s.unixListener) }()
	if s.metricsServer != nil {
		servers = 2
		go func() { errCh <- s.metricsServer.Serve(s.metricsListener) }()
	}

	remaining := servers
	var serveErr error

	select {
	case <-ctx.Done():
		// graceful shutdown
	case err := <-errCh:
		remaining = servers - 1
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr = err
		}
	}

	s.shutdown()
	for i := 0; i < remaining; i++ {
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) && serveErr == nil {
			serveErr = err
		}
	}

	_ = os.Remove(s.cfg.SocketPath)
	return serveErr
}

func (s *Service) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	_ = s.unixServer.Shutdown(ctx)
	if s.metricsServer != nil {
		_ = s.metricsServer.Shutdown(ctx)
	}
	if s.syncer != nil {
		s.syncer.SetTenant(context.Background(), "")
	}
	if s.store != nil {
		_ = s.store.Close()
	}
}

func ensureDir(path string, perms os.FileMode) error {
	if path == "" {
		return errors.New("run_dir is required")
	}
	if err := os.MkdirAll(path, perms); err != nil {
		return fmt.Errorf("create dir %s: %w", path, err)
	}
	return nil
}

func listenUnix(socketPath string) (net.Listener, error) {
	if socketPath == "" {
		return nil, errors.New("socket_path is required")
	}
	if err := os.MkdirAll(filepath.Dir(socketPath), runDirPerms); err != nil {
		return nil, fmt.Errorf("create socket dir %s: %w", filepath.Dir(socketPath), err)
	}
	if err := os.Remove(socketPath); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("remove stale socket %s: %w", socketPath, err)
	}
	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("listen unix %s: %w", socketPath, err)
	}
	if err := os.Chmod(socketPath, socketPerms); err != nil {
		_ = listener.Close()
		return nil, fmt.Errorf("chmod socket %s: %w", socketPath, err)
	}
	return listener, nil
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
