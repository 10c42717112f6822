package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config enthält alle Konfigurationsparameter aus Umgebungsvariablen.
type Config struct {
	// Datenbank: "postgres" für den Betrieb, "sqlite" für lokale Läufe
	DBDriver   string `envconfig:"DB_DRIVER" default:"postgres"`
	DBHost     string `envconfig:"DB_HOST" default:"localhost"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER"`
	DBPassword string `envconfig:"DB_PASSWORD"`
	DBName     string `envconfig:"DB_NAME" default:"projeto_poesia_db"`
	DBSSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`
	DBPath     string `envconfig:"DB_PATH" default:"poems.db"`

	HTTPPort       string `envconfig:"HTTP_PORT" default:"5000"`
	APISecretKey   string `envconfig:"API_SECRET_KEY"`
	CORSOrigins    string `envconfig:"CORS_ORIGINS" default:"*"`
	LogDevelopment bool   `envconfig:"LOG_DEVELOPMENT" default:"false"`

	// Sentiment-Backend: "lexicon" (lokal) oder "inference" (Transformer über HTTP)
	SentimentBackend   string        `envconfig:"SENTIMENT_BACKEND" default:"lexicon"`
	InferenceURL       string        `envconfig:"INFERENCE_URL" default:"https://api-inference.huggingface.co/models/nlptown/bert-base-multilingual-uncased-sentiment"`
	InferenceToken     string        `envconfig:"HF_TOKEN"`
	InferenceMaxChars  int           `envconfig:"INFERENCE_MAX_CHARS" default:"512"`
	InferenceTimeout   time.Duration `envconfig:"INFERENCE_TIMEOUT" default:"30s"`
	InferenceRateLimit float64       `envconfig:"INFERENCE_RATE_LIMIT" default:"5"`

	KeywordLimit  int `envconfig:"KEYWORD_LIMIT" default:"5"`
	ProgressEvery int `envconfig:"PROGRESS_EVERY" default:"100"`

	CSVPath         string `envconfig:"CSV_PATH" default:"portuguese-poems.csv"`
	ImportBatchSize int    `envconfig:"IMPORT_BATCH_SIZE" default:"1000"`

	// Leer = Pässe laufen nur auf Anforderung
	EnrichSchedule string        `envconfig:"ENRICH_SCHEDULE"`
	JobTimeout     time.Duration `envconfig:"JOB_TIMEOUT" default:"5m"`

	// Optionaler S3-Zugang für den CSV-Import (s3://bucket/key)
	S3URL    string `envconfig:"S3_URL"`
	S3Region string `envconfig:"S3_REGION" default:"us-east-1"`
	S3Key    string `envconfig:"S3_KEY"`
	S3Secret string `envconfig:"S3_SECRET"`
}

// DSN gibt den Data Source Name für die PostgreSQL-Verbindung zurück.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=%s",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort, c.DBSSLMode)
}

// Origins zerlegt CORS_ORIGINS in einzelne Einträge.
func (c *Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// Validate prüft treiber- und backendabhängige Pflichtfelder.
func (c *Config) Validate() error {
	switch c.DBDriver {
	case "postgres":
		if c.DBUser == "" || c.DBName == "" {
			return fmt.Errorf("DB_USER and DB_NAME are required for postgres")
		}
	case "sqlite":
		if c.DBPath == "" {
			return fmt.Errorf("DB_PATH is required for sqlite")
		}
	default:
		return fmt.Errorf("unknown DB_DRIVER %q", c.DBDriver)
	}

	switch c.SentimentBackend {
	case "lexicon":
	case "inference":
		if c.InferenceURL == "" {
			return fmt.Errorf("INFERENCE_URL is required for the inference backend")
		}
	default:
		return fmt.Errorf("unknown SENTIMENT_BACKEND %q", c.SentimentBackend)
	}

	if c.KeywordLimit <= 0 {
		return fmt.Errorf("KEYWORD_LIMIT must be positive")
	}
	return nil
}

// Load lädt die Konfiguration aus den Umgebungsvariablen.
func Load() (*Config, error) {
	_ = godotenv.Load()
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}
