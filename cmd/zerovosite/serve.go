package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/zerovo-site/internal/api"
	"github.com/JakeFAU/zerovo-site/internal/config"
	"github.com/JakeFAU/zerovo-site/internal/metricstore"
	"github.com/JakeFAU/zerovo-site/internal/perf"
	"github.com/JakeFAU/zerovo-site/internal/reporting"
	"github.com/JakeFAU/zerovo-site/internal/reporting/sinks"
	"github.com/JakeFAU/zerovo-site/internal/scheduling"
	"github.com/JakeFAU/zerovo-site/internal/session"
	"github.com/JakeFAU/zerovo-site/internal/site"
	"github.com/JakeFAU/zerovo-site/internal/tracing"
)

const sweepInterval = time.Minute

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the marketing site",
		Long: `Starts the HTTP server for the site pages, the loader stream, the
scheduling widget API and the widget metrics endpoint. SIGINT or SIGTERM
marks the instance unready and drains in-flight requests.`,
		RunE: runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	a, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := buildServices(ctx, a.cfg, a.logger, prometheus.DefaultRegisterer)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:           rt.server.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go rt.registry.Run(ctx, sweepInterval)

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("http server started", zap.Int("port", a.cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			stop()
		}
	}()

	<-ctx.Done()
	a.logger.Info("shutdown initiated")
	rt.server.SetReady(false)

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.cfg.Server.ShutdownTimeout())
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("server shutdown error", zap.Error(err))
	}
	rt.close(shutdownCtx)
	a.logger.Info("shutdown complete")

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	default:
		return nil
	}
}

// services is the wired service graph behind serve.
type services struct {
	server   *api.Server
	store    *metricstore.Store
	hub      *reporting.Hub
	recorder *perf.Recorder
	registry *scheduling.Registry
	tracing  *tracing.Provider
	logger   *zap.Logger
}

func buildServices(ctx context.Context, cfg config.Config, logger *zap.Logger, reg prometheus.Registerer) (*services, error) {
	tp, err := tracing.Init(ctx, cfg.Tracing)
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}
	catalog, err := site.NewCatalog(site.DefaultPages()...)
	if err != nil {
		return nil, fmt.Errorf("build page catalog: %w", err)
	}
	renderer, err := site.NewRenderer()
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	store := metricstore.New(metricstore.Options{
		Capacity:      cfg.Metrics.Capacity,
		SlowThreshold: cfg.Metrics.SlowThreshold(),
		Logger:        logger.Named("metricstore"),
	})
	sinkList, err := buildSinks(ctx, cfg, store, logger, reg)
	if err != nil {
		_ = tp.Shutdown(ctx)
		return nil, err
	}
	hub := reporting.NewHub(reporting.Config{
		BufferSize:  cfg.Reporting.BufferSize,
		MaxBatch:    cfg.Reporting.MaxBatch,
		MaxWait:     time.Duration(cfg.Reporting.MaxWaitMillis) * time.Millisecond,
		SinkTimeout: time.Duration(cfg.Reporting.SinkTimeoutSec) * time.Second,
		BaseContext: context.WithoutCancel(ctx),
		Logger:      logger.Named("reporting"),
	}, sinkList...)

	hooks := tracing.NewSpanHooks(logger.Named("widget"))
	recorder := perf.NewRecorder(perf.Options{
		Forwarder: hub,
		Analytics: hooks,
		Errors:    hooks,
		Logger:    logger.Named("perf"),
	})

	embed := scheduling.NewEmbedClient(cfg.Scheduling.EmbedScriptURL, &http.Client{Timeout: 15 * time.Second}, logger.Named("embed"))
	ui := scheduling.DefaultUIConfig(cfg.Scheduling.BrandColor, cfg.Scheduling.Layout)
	registry := scheduling.NewRegistry(scheduling.RegistryOptions{
		Factory: func(sessionID, namespace string, lock *scheduling.ScrollLock) *scheduling.Controller {
			return scheduling.NewController(scheduling.Options{
				Namespace:      namespace,
				TimerID:        scheduling.SessionTimerID(sessionID, namespace),
				DefaultLink:    cfg.Scheduling.DefaultLink,
				IframeBaseURL:  cfg.Scheduling.IframeBaseURL,
				UI:             ui,
				Client:         embed,
				Timer:          recorder,
				ScrollLock:     lock,
				PreloadTimeout: cfg.Scheduling.PreloadTimeout(),
				Logger:         logger.Named("scheduling"),
			})
		},
		Logger: logger.Named("registry"),
	})

	server, err := api.NewServer(api.Deps{
		Config:   cfg,
		Logger:   logger.Named("api"),
		Catalog:  catalog,
		Renderer: renderer,
		Gate:     session.NewGate(cfg.Loader.SessionKey, logger.Named("session")),
		Store:    store,
		Registry: registry,
		Tracing:  tp,
	})
	if err != nil {
		_ = hub.Close(ctx)
		_ = tp.Shutdown(ctx)
		return nil, fmt.Errorf("build api server: %w", err)
	}

	return &services{
		server:   server,
		store:    store,
		hub:      hub,
		recorder: recorder,
		registry: registry,
		tracing:  tp,
		logger:   logger,
	}, nil
}

// close releases the services in dependency order: controllers first so their
// last samples reach the hub, then the hub, then the exporter.
func (rt *services) close(ctx context.Context) {
	if err := rt.registry.Close(ctx); err != nil {
		rt.logger.Warn("scheduling registry close", zap.Error(err))
	}
	if err := rt.hub.Close(ctx); err != nil {
		rt.logger.Warn("reporting hub close", zap.Error(err))
	}
	if err := rt.tracing.Shutdown(ctx); err != nil {
		rt.logger.Warn("tracing shutdown", zap.Error(err))
	}
}

// buildSinks always includes the store, log and Prometheus sinks; the HTTP
// collector and Pub/Sub sinks are added when configured.
func buildSinks(ctx context.Context, cfg config.Config, store *metricstore.Store, logger *zap.Logger, reg prometheus.Registerer) ([]reporting.Sink, error) {
	out := []reporting.Sink{sinks.NewStoreSink(store, "zerovo-recorder", logger.Named("sink.store"))}
	if cfg.Reporting.LogPayloads {
		out = append(out, sinks.NewLogSink(logger.Named("sink.log")))
	}
	promSink, err := sinks.NewPrometheusSink(reg)
	if err != nil {
		return nil, fmt.Errorf("prometheus sink: %w", err)
	}
	out = append(out, promSink)

	if cfg.Reporting.CollectorURL != "" {
		client := &http.Client{Timeout: time.Duration(cfg.Reporting.SinkTimeoutSec) * time.Second}
		out = append(out, sinks.NewHTTPSink(cfg.Reporting.CollectorURL, "zerovo-recorder", client, logger.Named("sink.http")))
	}
	if cfg.PubSub.TopicName != "" {
		pub, err := sinks.NewTopicPublisher(ctx, cfg.PubSub.ProjectID, cfg.PubSub.TopicName)
		if err != nil {
			return nil, fmt.Errorf("pubsub publisher: %w", err)
		}
		out = append(out, sinks.NewPubSubSink(pub))
	}
	return out, nil
}
