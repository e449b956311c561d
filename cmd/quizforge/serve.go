package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/dgallion1/quizforge/internal/api"
	"github.com/dgallion1/quizforge/internal/config"
	"github.com/dgallion1/quizforge/internal/pipeline"
)

var servePort string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the quizforge HTTP server",
	Long: `Start the HTTP API and the conversion worker pool.

The server provides:
  - /health                   - Basic health check
  - POST /api/convert         - Upload a DOCX (file, category, questionType)
  - /api/jobs/{id}            - Job status
  - /api/jobs/{id}/download   - Zip of the job's outputs
  - /api/stats/tools          - Subprocess latency per tool

Changes to log.level in the config file apply without a restart.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg := cfgMgr.Get()
		if servePort != "" {
			cfg.Server.Port = servePort
		}
		log := logger

		if err := os.MkdirAll(cfg.Jobs.WorkDir, 0o755); err != nil {
			return err
		}
		runner, stats, err := buildRunner(cfg, log)
		if err != nil {
			return err
		}

		// Initialize pipeline.
		orch := pipeline.NewOrchestrator(cfg, runner, log)
		orch.Start(ctx)

		cfgMgr.OnChange(func(c config.Config) {
			log.Info("config reloaded", "log_level", c.Log.Level)
			logLevelVar.Set(parseLevel(c.Log.Level))
		})
		cfgMgr.WatchConfig(func(err error) { log.Warn("config reload rejected", "error", err) })

		// Initialize HTTP server.
		srv := api.NewServer(orch, stats, log, cfg)
		httpServer := &http.Server{
			Addr:         ":" + cfg.Server.Port,
			Handler:      srv,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
			IdleTimeout:  60 * time.Second,
		}

		// Graceful shutdown.
		errCh := make(chan error, 1)
		go func() {
			log.Info("starting quizforge", "port", cfg.Server.Port, "workers", cfg.Workers.Count)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case <-ctx.Done():
			log.Info("shutting down...")
		case err := <-errCh:
			orch.Stop()
			return err
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		err = httpServer.Shutdown(shutdownCtx)
		orch.Stop()
		return err
	},
}

func init() {
	serveCmd.Flags().StringVar(&servePort, "port", "", "port to listen on (default from config)")

	rootCmd.AddCommand(serveCmd)
}
