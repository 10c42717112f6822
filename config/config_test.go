package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_PATH", "test.db")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "5000", cfg.HTTPPort)
	assert.Equal(t, "lexicon", cfg.SentimentBackend)
	assert.Equal(t, 512, cfg.InferenceMaxChars)
	assert.Equal(t, 5, cfg.KeywordLimit)
	assert.Equal(t, 100, cfg.ProgressEvery)
	assert.Equal(t, 1000, cfg.ImportBatchSize)
	assert.Equal(t, 5*time.Minute, cfg.JobTimeout)
	assert.Empty(t, cfg.EnrichSchedule)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"sqlite ok", Config{DBDriver: "sqlite", DBPath: "x.db", SentimentBackend: "lexicon", KeywordLimit: 5}, false},
		{"postgres without user", Config{DBDriver: "postgres", DBName: "poems", SentimentBackend: "lexicon", KeywordLimit: 5}, true},
		{"unknown driver", Config{DBDriver: "mongo", SentimentBackend: "lexicon", KeywordLimit: 5}, true},
		{"unknown backend", Config{DBDriver: "sqlite", DBPath: "x.db", SentimentBackend: "gpu", KeywordLimit: 5}, true},
		{"inference without url", Config{DBDriver: "sqlite", DBPath: "x.db", SentimentBackend: "inference", KeywordLimit: 5}, true},
		{"zero keyword limit", Config{DBDriver: "sqlite", DBPath: "x.db", SentimentBackend: "lexicon"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestOriginsAndDSN(t *testing.T) {
	cfg := Config{
		CORSOrigins: " http://a.example , ,http://b.example",
		DBHost:      "db", DBUser: "u", DBPassword: "p", DBName: "poems", DBPort: 5433, DBSSLMode: "require",
	}

	assert.Equal(t, []string{"http://a.example", "http://b.example"}, cfg.Origins())
	assert.Equal(t, "host=db user=u password=p dbname=poems port=5433 sslmode=require", cfg.DSN())
}
