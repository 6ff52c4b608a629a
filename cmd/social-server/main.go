package main

import (
	"context"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	_ "go.uber.org/automaxprocs"

	"github.com/hsabouri/the-social-network/internal/config"
	"github.com/hsabouri/the-social-network/internal/event"
	"github.com/hsabouri/the-social-network/internal/logging"
	"github.com/hsabouri/the-social-network/internal/metrics"
	"github.com/hsabouri/the-social-network/internal/server"
	"github.com/hsabouri/the-social-network/internal/store"
	"github.com/hsabouri/the-social-network/internal/task"
	"github.com/hsabouri/the-social-network/internal/timeline"
)

const metricsShutdownGrace = 5 * time.Second

func main() {
	configPath := flag.String("config", "./config/config.dev.json", "path to the JSON configuration file")
	flag.Parse()

	// Bootstrap logger until the configured one exists.
	boot := zerolog.New(os.Stderr).With().Timestamp().Logger()

	cfg, err := config.Load(*configPath)
	if err != nil {
		boot.Fatal().Err(err).Str("path", *configPath).Msg("configuration failed to load")
	}

	log := logging.New(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Int("gomaxprocs", runtime.GOMAXPROCS(0)).
		Str("addr", cfg.ListeningAddr).
		Msg("starting social-server")

	ctx := context.Background()
	conns, err := server.Dial(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("backend dial failed")
	}
	defer conns.Close()

	users := store.NewUserStore(conns.Pool, log)
	messages := store.NewMessageStore(conns.Session, log)
	bus := event.NewBus(conns.NATS, log)
	engine := timeline.NewEngine(users, messages, bus, log)
	tasks := task.NewManager(log)

	svc := server.NewService(users, messages, bus, engine, tasks, log)
	grpcSrv := server.NewGRPC(svc, log)

	lis, err := net.Listen("tcp", cfg.ListeningAddr)
	if err != nil {
		log.Fatal().Err(err).Str("addr", cfg.ListeningAddr).Msg("listen failed")
	}

	var metricsSrv *http.Server
	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		metricsSrv = &http.Server{Addr: cfg.MetricsAddr, Handler: mux}
		go func() {
			log.Info().Str("addr", cfg.MetricsAddr).Msg("metrics listening")
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error().Err(err).Msg("metrics server failed")
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.ListeningAddr).Msg("grpc listening")
		errCh <- grpcSrv.Serve(lis)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	case err := <-errCh:
		log.Error().Err(err).Msg("grpc server stopped")
	}

	// Streams end when their clients drop; pending unary writes finish
	// through the task manager before connections close.
	grpcSrv.GracefulStop()
	tasks.Close()

	if metricsSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), metricsShutdownGrace)
		defer cancel()
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("metrics shutdown failed")
		}
	}

	log.Info().Msg("bye")
}
