package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/AsfandAhmad/Study-ChatBot/internal/adapter/llm"
	"github.com/AsfandAhmad/Study-ChatBot/internal/artifact"
	"github.com/AsfandAhmad/Study-ChatBot/internal/config"
	"github.com/AsfandAhmad/Study-ChatBot/internal/gateway"
	"github.com/AsfandAhmad/Study-ChatBot/internal/logging"
	"github.com/AsfandAhmad/Study-ChatBot/internal/metrics"
	"github.com/AsfandAhmad/Study-ChatBot/internal/policy"
	"github.com/AsfandAhmad/Study-ChatBot/internal/repository"
	"github.com/AsfandAhmad/Study-ChatBot/internal/service"
	httptransport "github.com/AsfandAhmad/Study-ChatBot/internal/transport/http"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(cfgPath *string) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the tutor HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.HTTPPort = port
			}
			return runServe(cmd.Context(), cfg)
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "HTTP port (overrides HTTP_PORT)")
	return cmd
}

func runServe(ctx context.Context, cfg *config.Config) error {
	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	log.WithFields(logrus.Fields{
		"port":     cfg.HTTPPort,
		"database": cfg.DatabaseDriver,
		"llm":      cfg.LLMProvider,
		"redis":    cfg.RedisURL != "",
	}).Info("starting tutor")

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	broker, err := openBroker(cfg, log, m)
	if err != nil {
		store.Close()
		return err
	}
	observed := repository.NewObserved(store, broker, log)
	defer observed.Close()

	client, err := llm.NewLLMClient(ctx, llmOptions(cfg), log)
	if err != nil {
		return fmt.Errorf("failed to initialize llm client: %w", err)
	}
	gw := gateway.New(client, cfg.StudyPlanMaxMinutes, m)

	engine, err := policy.NewEngine(ctx, policy.DefaultPolicy)
	if err != nil {
		return fmt.Errorf("failed to initialize policy engine: %w", err)
	}

	svc := service.New(observed, gw,
		artifact.NewGenerator(gw, m, log),
		artifact.NewAuthor(observed, engine),
		m, log,
		service.Options{
			ThreadListLimit:    cfg.ThreadListLimit,
			SessionIdleTimeout: cfg.SessionIdleTimeout,
		})

	e := httptransport.NewServer(svc, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), log)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		log.Infof("tutor API listening on %s", addr)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		svc.RunSessionSweeper(gctx)
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down tutor")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("failed to shutdown server gracefully")
		}
		svc.Close(shutdownCtx)
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("tutor stopped")
	return nil
}

func openStore(ctx context.Context, cfg *config.Config) (repository.Store, error) {
	switch strings.ToLower(cfg.DatabaseDriver) {
	case "postgres", "postgresql":
		store, err := repository.NewPostgresStore(ctx, cfg.DatabaseURL, cfg.DBMaxConns)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize postgres store: %w", err)
		}
		return store, nil
	case "sqlite", "sqlite3", "":
		store, err := repository.NewSQLiteStore(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize sqlite store: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.DatabaseDriver)
	}
}

func openBroker(cfg *config.Config, log logrus.FieldLogger, m *metrics.Metrics) (repository.Broker, error) {
	if cfg.RedisURL == "" {
		return repository.NewMemoryBroker(m.DroppedEvent), nil
	}
	broker, err := repository.NewRedisBroker(cfg.RedisURL, log, m.DroppedEvent)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return broker, nil
}

func llmOptions(cfg *config.Config) llm.Options {
	apiKey := cfg.LLMAPIKey
	if strings.EqualFold(cfg.LLMProvider, llm.ProviderGemini) {
		apiKey = cfg.GeminiAPIKey
	}
	model := cfg.LLMModel
	if model == "" {
		model = llm.DefaultModel(cfg.LLMProvider)
	}
	return llm.Options{
		Provider: cfg.LLMProvider,
		BaseURL:  cfg.LLMBaseURL,
		APIKey:   apiKey,
		Model:    model,
		Timeout:  cfg.LLMTimeout,
	}
}
