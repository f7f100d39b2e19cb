package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/trustscan/backend/config"
	"github.com/trustscan/backend/internal/bootstrap"
	httpDelivery "github.com/trustscan/backend/internal/delivery/http"
	"github.com/trustscan/backend/internal/logger"
	"github.com/trustscan/backend/internal/metrics"
)

const shutdownTimeout = 15 * time.Second

func main() {
	configFile := flag.String("config", "", "path to config file")
	flag.Parse()

	if err := run(*configFile); err != nil {
		fmt.Fprintf(os.Stderr, "trustscan: %v\n", err)
		os.Exit(1)
	}
}

func run(configFile string) error {
	// Load configuration
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := bootstrap.NewLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer log.Sync()

	log.Info("starting TrustScan backend",
		logger.String("environment", cfg.Server.Environment),
		logger.String("port", cfg.Server.Port),
		logger.String("cache", cfg.Cache.Type),
		logger.String("model", cfg.Classifier.ModelPath),
		logger.Float64("credibility_threshold", cfg.Display.CredibilityThreshold))

	m := metrics.New()

	services, err := bootstrap.NewServices(cfg, log, m)
	if err != nil {
		return err
	}
	defer services.Close()

	handler := httpDelivery.NewHandler(services.Products, services.Scoring, services.Images, cfg.Display.CredibilityThreshold, log)
	router := httpDelivery.SetupRouter(cfg, handler, log, m)

	server := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", logger.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
