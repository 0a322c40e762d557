// Command agritrack runs the agricultural traceability service: an HTTP API
// over the product/stage store with trace exports, Prometheus metrics, and
// expvar debug state.
package main

import (
	"context"
	"errors"
	"expvar"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"agritrack/internal/adapters/traces"
	"agritrack/internal/blob"
	"agritrack/internal/config"
	"agritrack/internal/core"
	infraS3 "agritrack/internal/infra/blob/s3"
	"agritrack/internal/logging"
	"agritrack/pkg/domain"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}
	logger, flush, err := logging.NewProduction(cfg.Debug)
	if err != nil {
		os.Stderr.WriteString("logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer flush()

	if err := run(cfg, logger); err != nil {
		logger.Error("agritrack exited", "error", err)
		flush()
		os.Exit(1)
	}
}

func run(cfg config.Config, logger domain.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine := core.NewDefaultRulesEngine()
	storageCfg := core.StorageConfig{
		Driver:      core.StorageDriver(cfg.Storage.Driver),
		SQLitePath:  cfg.Storage.SQLitePath,
		PostgresDSN: cfg.Storage.PostgresDSN,
		Logger:      logger,
	}
	if cfg.SeedDemo {
		storageCfg.Seed = core.SeedSnapshot(time.Now().UTC())
	}
	store, err := core.OpenPersistentStore(storageCfg, engine)
	if err != nil {
		return err
	}
	if closer, ok := store.(io.Closer); ok {
		defer closer.Close()
	}

	metrics, err := core.NewPrometheusMetricsRecorder(nil)
	if err != nil {
		return err
	}
	opts := []core.ServiceOption{
		core.WithLogger(logger),
		core.WithIdentityGate(domain.ContextGate(cfg.AuthToken)),
		core.WithMetricsRecorder(metrics),
		core.WithAuditRecorder(core.NewMemoryAuditLog()),
	}
	if cfg.TraceLog {
		opts = append(opts, core.WithTracer(core.NewJSONTracer(os.Stdout)))
	}
	service := core.NewService(store, opts...)

	blobStore, err := blob.Open(ctx, blob.Options{
		Driver: blob.Driver(cfg.Blob.Driver),
		FSRoot: cfg.Blob.FSRoot,
		S3: infraS3.Config{
			Region:          cfg.Blob.S3Region,
			Bucket:          cfg.Blob.S3Bucket,
			Endpoint:        cfg.Blob.S3Endpoint,
			AccessKeyID:     cfg.Blob.S3AccessKeyID,
			SecretAccessKey: cfg.Blob.S3SecretAccessKey,
			SessionToken:    cfg.Blob.S3SessionToken,
			PathStyle:       cfg.Blob.S3PathStyle,
		},
	})
	if err != nil {
		return err
	}

	worker := traces.NewWorker(service, blobStore, logger)
	worker.Start()
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := worker.Stop(stopCtx); err != nil {
			logger.Warn("export worker stop", "error", err)
		}
	}()

	handler := traces.NewHandler(service)
	handler.Exports = worker

	mux := http.NewServeMux()
	mux.Handle("/api/v1/", traces.BearerMiddleware(handler))
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/debug/vars", expvar.Handler())

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("agritrack listening",
			"addr", cfg.ListenAddr,
			"storage", cfg.Storage.Driver,
			"blob", cfg.Blob.Driver)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
