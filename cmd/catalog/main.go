package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"MiniCatalog/internal/catalog"
	"MiniCatalog/internal/config"
	"MiniCatalog/pkg/kit"
	"MiniCatalog/pkg/messaging"
)

const (
	service     = "catalog"
	natsTimeout = 5 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := kit.NewLogger(service, cfg.Log.Level)
	logger.Info("config loaded", zap.Stringer("config", cfg))

	err = run(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("catalog stopped", zap.Error(err))
	}
	_ = logger.Sync()
	if err != nil {
		os.Exit(1)
	}
}

// run wires the service and blocks until the HTTP server stops. Resources
// opened here are released before it returns.
func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	reg := prometheus.NewRegistry()

	backend, closeBackend, err := openBackend(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open %s backend: %w", cfg.Store.Driver, err)
	}
	defer closeBackend()

	store, status := catalog.Open(ctx, catalog.InstrumentBackend(backend, reg))
	logLoadStatus(logger, backend.Target(), status)

	s := &catalog.Server{Store: store, Log: logger}
	if cfg.Events.NatsURL != "" {
		pub, closeNats, err := openPublisher(cfg)
		if err != nil {
			return err
		}
		defer closeNats()
		s.Events = pub
	}

	deps := catalog.HTTPDeps{
		Log:              logger,
		Service:          service,
		Registry:         reg,
		MetricsEnabled:   cfg.Metrics.Enabled,
		MetricsToken:     cfg.Metrics.Token,
		WriteLimitPerMin: cfg.RateLimit.WritesPerMin,
	}
	if cfg.Auth.JWTSecret != "" {
		deps.JWT = kit.NewTokenMaker(cfg.Auth.JWTSecret)
	} else {
		logger.Warn("auth.jwtsecret not set, product writes are unauthenticated")
	}

	h := catalog.NewHandler(s, deps)

	opts := kit.ServerOptions{
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
		ShutdownTimeout:   cfg.HTTP.ShutdownTimeout,
	}
	if err := kit.RunHTTPServer(fmt.Sprintf(":%d", cfg.HTTP.Port), h, logger, opts); err != nil {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

func logLoadStatus(logger *zap.Logger, target string, st catalog.LoadStatus) {
	fields := []zap.Field{
		zap.String("target", target),
		zap.Stringer("state", st.State),
		zap.Int("records", st.Records),
	}

	switch st.State {
	case catalog.LoadOK, catalog.LoadAbsent:
		logger.Info("catalog loaded", fields...)
	default:
		logger.Warn("catalog snapshot unusable, starting empty", append(fields, zap.Error(st.Err))...)
	}
}

func openPublisher(cfg *config.Config) (messaging.Publisher, func(), error) {
	nc, err := messaging.NewNatsConn(cfg.Events.NatsURL, natsTimeout)
	if err != nil {
		return nil, nil, err
	}
	js, err := messaging.NewJetStream(nc)
	if err != nil {
		nc.Close()
		return nil, nil, err
	}
	return messaging.NewNatsPublisher(js, cfg.Events.SubjectPrefix), func() { _ = nc.Drain() }, nil
}
