package sentiment

import (
	"strings"

	"poem-mood/models"
)

// Schwellen der Abbildung. Nicht ändern: bestehende Datensätze wurden damit berechnet.
const (
	PositiveThreshold = 0.05
	NegativeThreshold = -0.05

	HighSubjectivity   = 0.66
	MediumSubjectivity = 0.33

	// Schwelle für die Stimmung der Nutzereingabe im Empfehlungsendpunkt
	QueryThreshold = 0.1
)

// Schlagworte für secondary_sentiment.
const (
	TagSubjective = "Subjetivo"
	TagReflective = "Reflexivo"
	TagObjective  = "Objetivo"
	TagUndefined  = "Indefinido"
)

// moodTable: Label x Subjektivitätsstufe (hoch, mittel, niedrig).
var moodTable = map[models.Sentiment][3]string{
	models.Positive: {"Apaixonado", "Esperançoso", "Sereno"},
	models.Negative: {"Melancólico", "Sombrio", "Crítico"},
	models.Neutral:  {"Introspectivo", "Contemplativo", "Contemplativo"},
}

// LabelFor ordnet eine Polarität einem Label zu.
func LabelFor(polarity float64) models.Sentiment {
	switch {
	case polarity >= PositiveThreshold:
		return models.Positive
	case polarity <= NegativeThreshold:
		return models.Negative
	default:
		return models.Neutral
	}
}

// StarsToSentiment übersetzt "1 star" ... "5 stars" in Label und Polarität.
func StarsToSentiment(label string, confidence float64) (models.Sentiment, float64) {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "1 star", "2 stars":
		return models.Negative, -confidence
	case "3 stars":
		return models.Neutral, confidence * 0.1
	case "4 stars", "5 stars":
		return models.Positive, confidence
	default:
		return models.Neutral, 0
	}
}

func tier(subjectivity float64) int {
	switch {
	case subjectivity > HighSubjectivity:
		return 0
	case subjectivity > MediumSubjectivity:
		return 1
	default:
		return 2
	}
}

// SubjectivityTag ordnet eine Subjektivität einem Schlagwort zu.
func SubjectivityTag(subjectivity float64) string {
	return [3]string{TagSubjective, TagReflective, TagObjective}[tier(subjectivity)]
}

// MoodTag liefert die kombinierte Stimmung aus Label und Subjektivität.
func MoodTag(label models.Sentiment, subjectivity float64) string {
	row, ok := moodTable[label]
	if !ok {
		row = moodTable[models.Neutral]
	}
	return row[tier(subjectivity)]
}

// SecondaryTags bildet die deduplizierte Menge {Subjektivität, Stimmung}.
func SecondaryTags(label models.Sentiment, subjectivity *float64) models.TagSet {
	if subjectivity == nil {
		return models.TagSet{TagUndefined}
	}
	tags := models.TagSet{SubjectivityTag(*subjectivity)}
	if mood := MoodTag(label, *subjectivity); !tags.Contains(mood) {
		tags = append(tags, mood)
	}
	return tags
}

// Mapped sind die Schemafelder, die aus einem Result entstehen.
type Mapped struct {
	Label          models.Sentiment
	Score          float64
	Subjectivity   *float64
	Secondary      models.TagSet
	GoodForFeeling models.TagSet
}

// Map übersetzt ein Result. Ein vom Backend geliefertes Label hat Vorrang vor den Schwellen.
func Map(r Result) Mapped {
	label := r.Label
	if label == "" {
		label = LabelFor(r.Polarity)
	}
	var subj *float64
	if r.Subjectivity != nil {
		s := clamp(*r.Subjectivity, 0, 1)
		subj = &s
	}
	return Mapped{
		Label:          label,
		Score:          clamp(r.Polarity, -1, 1),
		Subjectivity:   subj,
		Secondary:      SecondaryTags(label, subj),
		GoodForFeeling: models.TagSet{label.Feeling()},
	}
}

// Neutral ist der sichere Standardwert für leere Texte und Fehler.
func Neutral() Mapped {
	zero := 0.0
	return Mapped{
		Label:          models.Neutral,
		Score:          0,
		Subjectivity:   &zero,
		Secondary:      models.TagSet{TagUndefined},
		GoodForFeeling: models.TagSet{models.Neutral.Feeling()},
	}
}

// Mood ist die erkannte Stimmung einer Nutzereingabe.
type Mood struct {
	Feeling string // positive, negative, neutral
	Display string // Positivo, Negativo, Neutro
}

// DetectMood bewertet eine Nutzereingabe mit den gröberen Schwellen des Endpunkts.
func DetectMood(r Result) Mood {
	switch {
	case r.Polarity >= QueryThreshold:
		return moodFromLabel(models.Positive)
	case r.Polarity <= -QueryThreshold:
		return moodFromLabel(models.Negative)
	default:
		return moodFromLabel(models.Neutral)
	}
}

func moodFromLabel(label models.Sentiment) Mood {
	switch label {
	case models.Positive:
		return Mood{Feeling: "positive", Display: "Positivo"}
	case models.Negative:
		return Mood{Feeling: "negative", Display: "Negativo"}
	default:
		return Mood{Feeling: "neutral", Display: "Neutro"}
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
