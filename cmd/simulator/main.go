package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/invisible-tech/incident-sim/internal/config"
	"github.com/invisible-tech/incident-sim/internal/controller"
	"github.com/invisible-tech/incident-sim/internal/server"
	"github.com/invisible-tech/incident-sim/internal/version"
	"github.com/invisible-tech/incident-sim/pkg/scenario"
)

func main() {
	cfg := config.DefaultSimulatorConfig()

	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.WithError(err).WithField("level", cfg.LogLevel).Warn("Invalid LOG_LEVEL, using info")
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	registry := scenario.NewRegistry()
	if cfg.ScenarioDir != "" {
		if err := registry.Reload(cfg.ScenarioDir, log); err != nil {
			log.WithError(err).WithField("dir", cfg.ScenarioDir).Warn("Failed to load scenarios, using built-in only")
		}
		if cfg.ScenarioWatch {
			watcher, err := scenario.NewWatcher(cfg.ScenarioDir, registry, log)
			if err != nil {
				log.WithError(err).Warn("Scenario hot reload disabled")
			} else {
				go watcher.Start(ctx)
			}
		}
	}

	ctrl, err := controller.New(cfg, registry, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to create controller")
	}

	srv := server.New(cfg, ctrl, log)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("Simulator server failed")
		}
	}()
	log.WithFields(logrus.Fields{
		"version":   version.Version,
		"scenarios": registry.Len(),
		"analytics": cfg.AnalyticsEnabled,
		"realtime":  cfg.RealtimeEvents,
	}).Info("Simulator started")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Info("Shutting down simulator")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)
}
