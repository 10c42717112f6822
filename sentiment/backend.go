// Package sentiment enthält die austauschbaren Sentiment-Backends und die
// Abbildung ihrer Rohwerte auf das gespeicherte Schema.
package sentiment

import (
	"context"
	"errors"

	"poem-mood/models"
)

// ErrEmptyText meldet ein Backend, wenn es keinen Text zum Analysieren bekommt.
var ErrEmptyText = errors.New("empty text")

// Result ist die Rohausgabe eines Backends auf gemeinsamer Skala.
// Label ist leer, wenn das Backend nur eine Polarität liefert; dann entscheidet LabelFor.
// Subjectivity ist nil, wenn das Backend keine Subjektivität kennt.
type Result struct {
	Label        models.Sentiment
	Polarity     float64
	Subjectivity *float64
}

// Backend analysiert einen Text.
type Backend interface {
	Name() string
	Analyze(ctx context.Context, text string) (Result, error)
}
