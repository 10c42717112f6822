package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"poem-mood/config"
	"poem-mood/keywords"
	"poem-mood/sentiment"
	"poem-mood/storage"
)

// rootCmd ist der Einstieg der CLI. Jeder Pass ist ein eigener Unterbefehl,
// damit der Server ihn als separaten Prozess starten kann.
var rootCmd = &cobra.Command{
	Use:           "poem-mood",
	Short:         "Gedichtempfehlung nach Stimmung",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// app hält die Ressourcen eines Befehls; Close gibt sie wieder frei.
type app struct {
	cfg   *config.Config
	log   *zap.Logger
	store *storage.GormStore
}

func newLogger(development bool) *zap.Logger {
	var (
		logger *zap.Logger
		err    error
	)
	if development {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	return logger
}

func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}
	logger := newLogger(cfg.LogDevelopment)
	zap.ReplaceGlobals(logger)

	store, err := storage.Open(cfg, logger)
	if err != nil {
		logger.Error("Failed to connect to poems database", zap.Error(err))
		_ = logger.Sync()
		return nil, err
	}
	return &app{cfg: cfg, log: logger, store: store}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.log.Warn("Closing database failed", zap.Error(err))
	}
	_ = a.log.Sync()
}

// backend erstellt das konfigurierte Sentiment-Backend.
func (a *app) backend() sentiment.Backend {
	if a.cfg.SentimentBackend == "inference" {
		a.log.Info("Using inference sentiment backend", zap.String("url", a.cfg.InferenceURL))
		return sentiment.NewInference(sentiment.InferenceOptions{
			URL:           a.cfg.InferenceURL,
			Token:         a.cfg.InferenceToken,
			MaxInputChars: a.cfg.InferenceMaxChars,
			Timeout:       a.cfg.InferenceTimeout,
			RateLimit:     a.cfg.InferenceRateLimit,
			Logger:        a.log,
		})
	}
	return sentiment.MustDefaultLexicon()
}

func (a *app) extractor() keywords.Extractor {
	return keywords.NewLexical(a.cfg.KeywordLimit)
}

func (a *app) s3Client(ctx context.Context) (*s3.Client, error) {
	return storage.NewS3Client(ctx, storage.S3Settings{
		URL:    a.cfg.S3URL,
		Region: a.cfg.S3Region,
		Key:    a.cfg.S3Key,
		Secret: a.cfg.S3Secret,
	})
}

// printJSON schreibt das Ergebnis auf stdout, wo der Admin-Endpunkt es abholt.
func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}
