package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"chorus/internal/config"
	"chorus/internal/daemon"
	"chorus/internal/interview"
	"chorus/internal/logging"
	"chorus/internal/notifications"
	"chorus/internal/workflow"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("validate config: %v", err)
	}

	logger, err := logging.NewForDir(cfg.Paths.LogDir, cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	store, err := interview.Open(cfg)
	if err != nil {
		logger.Error("open interview store", logging.Error(err))
		return
	}

	notifier := notifications.NewService(cfg)
	manager := workflow.NewManagerWithNotifier(cfg, store, logger, notifier)
	registerStages(manager, cfg, store, logger)

	d, err := daemon.New(cfg, store, logger, manager, notifier)
	if err != nil {
		logger.Error("create daemon", logging.Error(err))
		return
	}
	defer d.Close()

	if err := d.Start(ctx); err != nil {
		logger.Error("daemon start", logging.Error(err))
		return
	}

	<-ctx.Done()
	logger.Info("chorusd shutting down")
}
