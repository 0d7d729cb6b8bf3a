package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kailas-cloud/solrfacet/internal/config"
	"github.com/kailas-cloud/solrfacet/internal/db"
	dbRedis "github.com/kailas-cloud/solrfacet/internal/db/goredis"
	dbMemory "github.com/kailas-cloud/solrfacet/internal/db/memory"
	dbValkey "github.com/kailas-cloud/solrfacet/internal/db/valkey"
	"github.com/kailas-cloud/solrfacet/internal/domain/facet"
	logpkg "github.com/kailas-cloud/solrfacet/internal/logger"
	"github.com/kailas-cloud/solrfacet/internal/metrics"
	sessionrepo "github.com/kailas-cloud/solrfacet/internal/repository/session"
	chiTransport "github.com/kailas-cloud/solrfacet/internal/transport/chi"
	kafkaTransport "github.com/kailas-cloud/solrfacet/internal/transport/kafka"
	solrTransport "github.com/kailas-cloud/solrfacet/internal/transport/solr"
	healthuc "github.com/kailas-cloud/solrfacet/internal/usecase/health"
	searchuc "github.com/kailas-cloud/solrfacet/internal/usecase/search"
	"github.com/kailas-cloud/solrfacet/internal/version"
)

// eventSink is a selection event publisher that must be flushed on shutdown.
type eventSink interface {
	searchuc.EventPublisher
	Close() error
}

func main() {
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting solrfacet API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.String("solr", cfg.Solr.BaseURL),
		zap.String("core", cfg.Solr.Core),
	)

	store, err := newStore(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to session store")

	metrics.Register()

	solr, err := solrTransport.New(solrTransport.Config{
		BaseURL: cfg.Solr.BaseURL,
		Core:    cfg.Solr.Core,
		Timeout: time.Duration(cfg.Solr.TimeoutSec) * time.Second,
	}, nil, logger)
	if err != nil {
		logger.Fatal("Failed to create solr client", zap.Error(err))
	}

	events, err := newEventSink(cfg.Kafka, logger)
	if err != nil {
		logger.Fatal("Failed to create event publisher", zap.Error(err))
	}
	defer func() {
		if err := events.Close(); err != nil {
			logger.Error("Error flushing selection events", zap.Error(err))
		}
	}()

	widgets, err := buildWidgets(cfg.Widgets)
	if err != nil {
		logger.Fatal("Invalid widget configuration", zap.Error(err))
	}
	defaults := make([]searchuc.Default, len(cfg.Defaults))
	for i, d := range cfg.Defaults {
		defaults[i] = searchuc.Default{Name: d.Name, Value: d.Value}
	}

	sessionTTL := time.Duration(cfg.Session.TTLSec) * time.Second
	sessions := sessionrepo.New(store, cfg.Session.KeyPrefix, sessionTTL)
	searchSvc, err := searchuc.New(searchuc.Config{Widgets: widgets, Defaults: defaults}, solr, sessions, events, logger)
	if err != nil {
		logger.Fatal("Failed to create search service", zap.Error(err))
	}
	evictCtx, stopEvictor := context.WithCancel(context.Background())
	defer stopEvictor()
	go searchSvc.RunEvictor(evictCtx, sessionTTL)
	logger.Info("Widgets configured", zap.Int("count", len(widgets)))

	healthSvc := healthuc.New(store, solr)

	server := chiTransport.NewServer(searchSvc, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(chiTransport.JSONRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(chiTransport.WideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	chiTransport.HandlerWithOptions(server, chiTransport.ServerOptions{BaseRouter: r})

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadTimeout:       time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		ReadHeaderTimeout: time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout:      time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

func newStore(cfg config.DatabaseConfig) (db.Store, error) {
	switch cfg.Driver {
	case "valkey":
		return dbValkey.NewStore(dbValkey.Config{
			Addrs:    cfg.Addrs,
			Username: cfg.Username,
			Password: cfg.Password,
			DB:       cfg.DB,
		})
	case "redis":
		var addr string
		if len(cfg.Addrs) > 0 {
			addr = cfg.Addrs[0]
		}
		return dbRedis.NewStore(dbRedis.Config{
			URL:      cfg.URL,
			Addr:     addr,
			Username: cfg.Username,
			Password: cfg.Password,
			DB:       cfg.DB,
		})
	case "memory":
		return dbMemory.NewStore(), nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

// newEventSink returns a Kafka publisher, or a no-op one when no brokers are set.
func newEventSink(cfg config.KafkaConfig, logger *zap.Logger) (eventSink, error) {
	var brokers []string
	for _, b := range cfg.Brokers {
		if b != "" {
			brokers = append(brokers, b)
		}
	}
	if len(brokers) == 0 {
		logger.Info("Selection events disabled: no kafka brokers")
		return kafkaTransport.Nop{}, nil
	}
	return kafkaTransport.NewPublisher(kafkaTransport.Config{
		Brokers:      brokers,
		Topic:        cfg.Topic,
		BatchTimeout: time.Duration(cfg.BatchTimeoutMs) * time.Millisecond,
	}, logger)
}

func buildWidgets(cfgs []config.WidgetConfig) ([]facet.Widget, error) {
	widgets := make([]facet.Widget, 0, len(cfgs))
	for _, wc := range cfgs {
		fc, err := wc.Facet()
		if err != nil {
			return nil, err
		}
		w, err := facet.New(fc)
		if err != nil {
			return nil, err
		}
		widgets = append(widgets, w)
	}
	return widgets, nil
}
