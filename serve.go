package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"poem-mood/server"
	"poem-mood/services"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// cronLogger leitet die Meldungen des Schedulers an zap weiter.
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Infow(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}

// startScheduler startet die zeitgesteuerte Anreicherung. Ein Lauf wird
// übersprungen, solange der vorige noch arbeitet.
func startScheduler(ctx context.Context, a *app) (*cron.Cron, error) {
	logger := cronLogger{s: a.log.Named("cron").Sugar()}
	c := cron.New(cron.WithLogger(logger), cron.WithChain(cron.SkipIfStillRunning(logger)))

	pipe := newPipeline(a)
	backend, extractor := a.backend(), a.extractor()
	_, err := c.AddFunc(a.cfg.EnrichSchedule, func() {
		a.log.Info("Running scheduled enrichment...")
		reports, err := pipe.Enrich(ctx, backend, extractor, 0)
		if err != nil {
			a.log.Error("Scheduled enrichment failed", zap.Error(err))
			return
		}
		for _, r := range reports {
			a.log.Info("Scheduled pass completed",
				zap.String("pass", r.Pass),
				zap.Int("processed", r.Processed),
				zap.Int("errors", r.Errors))
		}
	})
	if err != nil {
		return nil, err
	}
	c.Start()
	return c, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()
	ctx := cmd.Context()

	jobs, err := services.NewJobRunner("", a.cfg.JobTimeout, a.log)
	if err != nil {
		return err
	}

	srv := server.New(server.Options{
		Store:       a.store,
		Backend:     a.backend(),
		Recommender: services.NewRecommender(a.store, a.log),
		Jobs:        jobs,
		Logger:      a.log,
		APIKey:      a.cfg.APISecretKey,
		CORSOrigins: a.cfg.Origins(),
		CSVPath:     a.cfg.CSVPath,
	})

	if a.cfg.EnrichSchedule != "" {
		scheduler, err := startScheduler(ctx, a)
		if err != nil {
			return err
		}
		defer func() { <-scheduler.Stop().Done() }()
		a.log.Info("Scheduled enrichment enabled", zap.String("schedule", a.cfg.EnrichSchedule))
	}

	httpServer := &http.Server{
		Addr:              ":" + a.cfg.HTTPPort,
		Handler:           srv.Router(),
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		// Admin-Jobs laufen synchron bis JOB_TIMEOUT
		WriteTimeout: a.cfg.JobTimeout + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Info("Starting server", zap.String("port", a.cfg.HTTPPort))
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("Failed to run server", zap.Error(err))
			return err
		}
	case <-ctx.Done():
		a.log.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			a.log.Warn("Graceful shutdown failed", zap.Error(err))
		}
	}
	srv.Wait()
	return nil
}
