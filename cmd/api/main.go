package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"

	"github.com/zhouzirui/empathai/backend/internal/config"
	"github.com/zhouzirui/empathai/backend/internal/handler"
	"github.com/zhouzirui/empathai/backend/internal/health"
	"github.com/zhouzirui/empathai/backend/internal/observe"
	"github.com/zhouzirui/empathai/backend/internal/service/ai"
	"github.com/zhouzirui/empathai/backend/internal/service/companion"
	"github.com/zhouzirui/empathai/backend/internal/service/vision"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	var metricsHandler http.Handler
	if cfg.Observability.MetricsEnabled {
		shutdownOTel, err := observe.InitProvider(ctx, observe.ProviderConfig{
			ServiceName:    cfg.Observability.ServiceName,
			ServiceVersion: version,
		})
		if err != nil {
			log.Fatalf("failed to initialize telemetry: %v", err)
		}
		defer func() {
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdownOTel(flushCtx); err != nil {
				log.Printf("warning: telemetry shutdown: %v", err)
			}
		}()
		metricsHandler = promhttp.Handler()
	}

	metrics, err := observe.NewMetrics(otel.GetMeterProvider())
	if err != nil {
		log.Fatalf("failed to create metrics: %v", err)
	}

	classifier, responder, err := companion.NewCollaborators(ctx, cfg.AI)
	if err != nil {
		log.Fatalf("failed to initialize AI collaborators: %v", err)
	}

	companionSvc := companion.NewService(
		companion.NewPipeline(classifier, responder, metrics),
		companion.Config{
			HistoryLimit: cfg.History.Limit,
			Camera: vision.SimulatorConfig{
				Enabled:  cfg.Vision.SimulatorEnabled,
				Interval: cfg.Vision.Interval,
			},
		},
		metrics,
	)

	aiCfg := cfg.AI
	healthHandler := health.New(health.Checker{
		Name: "ai",
		Check: func(context.Context) error {
			if !aiCfg.Enabled() {
				return ai.ErrNotConfigured
			}
			return nil
		},
	})

	router := handler.NewRouter(handler.Dependencies{
		Companion:      companionSvc,
		Health:         healthHandler,
		Metrics:        metrics,
		MetricsHandler: metricsHandler,
	})

	if err := startServer(ctx, cfg.Server, router); err != nil {
		log.Printf("server error: %v", err)
	}

	closeCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	companionSvc.Close(closeCtx)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) error {
	srv := &http.Server{
		Addr:              serverCfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("EmpathAI backend listening on %s", serverCfg.Addr)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), serverCfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
