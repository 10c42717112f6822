package storage

import (
	"context"
	"errors"

	"poem-mood/models"
)

// ErrNotFound wird zurückgegeben, wenn ein Dokument mit der ID nicht existiert.
var ErrNotFound = errors.New("poem not found")

// Filter beschreibt eine Auswahl von Gedichten. Alle gesetzten Bedingungen werden UND-verknüpft.
type Filter struct {
	IDs []uint

	// Sentiment-Pass noch nicht gelaufen / schon gelaufen
	PrimaryUnset bool
	PrimarySet   bool

	// secondary_sentiment ist NULL
	SecondaryUnset bool

	// Schlagwort-Extraktion noch nicht gelaufen
	KeywordsPending bool

	// Mengen-Zugehörigkeit in good_for_feeling bzw. keywords
	Feeling string
	Keyword string
}

// Fields ist ein partielles Update: Spaltenname -> neuer Wert.
type Fields map[string]any

// Store ist die Dokumentenablage, die Pipeline und Empfehlung verwenden.
type Store interface {
	Find(ctx context.Context, filter Filter, limit int) ([]models.Poem, error)
	FindIDs(ctx context.Context, filter Filter, limit int) ([]uint, error)
	Get(ctx context.Context, id uint) (*models.Poem, error)
	Count(ctx context.Context, filter Filter) (int64, error)
	UpdateFields(ctx context.Context, id uint, fields Fields) error
	SampleRandom(ctx context.Context, filter Filter, n int) ([]models.Poem, error)
	InsertMany(ctx context.Context, poems []models.Poem) error
	DeleteAll(ctx context.Context) (int64, error)

	RecordInteraction(ctx context.Context, entry *models.Interaction) error
	IncrementRecommended(ctx context.Context, id uint) error

	Ping(ctx context.Context) error
	Close() error
}
