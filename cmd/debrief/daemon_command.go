package main

import (
	"context"
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"debrief/internal/config"
	"debrief/internal/coord"
	"debrief/internal/daemon"
	"debrief/internal/jobs"
	"debrief/internal/logging"
	"debrief/internal/notifications"
	"debrief/internal/oracle"
	"debrief/internal/pipeline"
	"debrief/internal/services/gemini"
	"debrief/internal/storage"
)

func newDaemonCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "daemon",
		Short: "Run the ingest daemon in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return fmt.Errorf("ensure directories: %w", err)
			}
			return runDaemonProcess(cmd, cfg)
		},
	}
}

func runDaemonProcess(cmd *cobra.Command, cfg *config.Config) error {
	signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger, err := logging.New(logging.Options{
		Level:    cfg.Logging.Level,
		Format:   cfg.Logging.Format,
		Output:   cmd.OutOrStdout(),
		FilePath: filepath.Join(cfg.Paths.LogDir, "debrief.log"),
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	coordStore, err := coord.Open(cfg.Paths.DataDir)
	if err != nil {
		return fmt.Errorf("open coordination store: %w", err)
	}
	defer coordStore.Close()

	blobs, err := storage.NewDisk(cfg.Paths.UploadDir)
	if err != nil {
		return fmt.Errorf("open blob storage: %w", err)
	}

	queue, err := jobs.Open(cfg.Paths.DataDir)
	if err != nil {
		return fmt.Errorf("open job queue: %w", err)
	}

	client := gemini.NewClient(gemini.Config{
		APIKey:         cfg.Gemini.APIKey,
		BaseURL:        cfg.Gemini.BaseURL,
		Model:          cfg.Gemini.Model,
		TimeoutSeconds: cfg.Gemini.TimeoutSeconds,
	})
	if cfg.Gemini.APIKey != "" {
		checkCtx, checkCancel := context.WithTimeout(signalCtx, 15*time.Second)
		if err := client.HealthCheck(checkCtx); err != nil {
			logger.Warn("gemini health check failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "transcription jobs will retry until the API is reachable"))
		}
		checkCancel()
	}
	analyst := oracle.NewGemini(client, cfg.Gemini.TranscriptionModel, cfg.Gemini.Model, logger)
	notifier := notifications.NewService(cfg)

	pipe := pipeline.New(pipeline.Options{
		Coord:       coordStore,
		Blobs:       blobs,
		Queue:       queue,
		Oracle:      analyst,
		Notifier:    notifier,
		Logger:      logger,
		MaxAttempts: cfg.Workflow.MaxAttempts,
	})

	d, err := daemon.New(cfg, pipe, queue, notifier, logger)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		return fmt.Errorf("start daemon: %w", err)
	}

	<-signalCtx.Done()
	logger.Info("debrief daemon shutting down")
	d.Stop()
	return nil
}
