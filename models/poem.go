package models

import (
	"time"
)

// Sentiment ist das primäre Sentiment-Label eines Gedichts.
type Sentiment string

const (
	Positive Sentiment = "POSITIVE"
	Negative Sentiment = "NEGATIVE"
	Neutral  Sentiment = "NEUTRAL"
)

// Feeling gibt das Label in der Form zurück, nach der good_for_feeling filtert.
func (s Sentiment) Feeling() string {
	switch s {
	case Positive:
		return "positive"
	case Negative:
		return "negative"
	default:
		return "neutral"
	}
}

// DefaultIntensity wird beim Import gesetzt und von keinem Pass berechnet.
const DefaultIntensity = "media"

// Spaltennamen der verschachtelten Felder. Pässe aktualisieren nur ihre eigenen Spalten.
const (
	ColPrimarySentiment   = "sentiment_primary"
	ColScore              = "sentiment_score"
	ColSubjectivity       = "sentiment_subjectivity_score"
	ColSecondarySentiment = "sentiment_secondary"
	ColKeywords           = "sentiment_keywords"
	ColEvokes             = "tags_evokes"
	ColGoodForFeeling     = "tags_good_for_feeling"
	ColIntensity          = "tags_intensity"
	ColTimesRecommended   = "meta_times_recommended"
)

// Poem repräsentiert ein importiertes Gedicht samt aller abgeleiteten Felder.
type Poem struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Title    string `json:"title" gorm:"not null"`
	Author   string `json:"author" gorm:"index"`
	FullText string `json:"full_text" gorm:"type:text"`

	Sentiment SentimentAnalysis  `json:"sentiment_analysis" gorm:"embedded;embeddedPrefix:sentiment_"`
	Tags      RecommendationTags `json:"recommendation_tags" gorm:"embedded;embeddedPrefix:tags_"`
	Metadata  Metadata           `json:"metadata" gorm:"embedded;embeddedPrefix:meta_"`
}

// SentimentAnalysis bündelt die Ergebnisse der Anreicherungspässe.
// Primary == nil heißt: noch kein Pass war erfolgreich.
type SentimentAnalysis struct {
	Primary      *Sentiment `json:"primary_sentiment" gorm:"column:primary;index"`
	Score        *float64   `json:"score" gorm:"column:score"`
	Subjectivity *float64   `json:"subjectivity_score" gorm:"column:subjectivity_score"`
	Secondary    TagSet     `json:"secondary_sentiment" gorm:"column:secondary"`
	Keywords     TagSet     `json:"keywords" gorm:"column:keywords"`
}

// RecommendationTags sind abgeleitete Felder für die Empfehlung.
type RecommendationTags struct {
	Evokes         TagSet `json:"evokes" gorm:"column:evokes"`
	GoodForFeeling TagSet `json:"good_for_feeling" gorm:"column:good_for_feeling"`
	Intensity      string `json:"intensity" gorm:"column:intensity;default:'media'"`
}

// Metadata stammt aus dem Import; Zähler werden außerhalb der Pässe erhöht.
type Metadata struct {
	ViewsCSV         int     `json:"views_csv" gorm:"column:views_csv"`
	TimesRecommended int     `json:"times_recommended" gorm:"column:times_recommended;default:0"`
	AverageRating    float64 `json:"average_rating" gorm:"column:average_rating;default:0"`
}

// TableName gibt explizit den Tabellennamen an.
func (Poem) TableName() string {
	return "poems"
}

// NewPoem erzeugt einen frisch importierten Datensatz ohne abgeleitete Felder.
func NewPoem(title, author, text string, views int) Poem {
	return Poem{
		Title:    title,
		Author:   author,
		FullText: text,
		Tags:     RecommendationTags{Intensity: DefaultIntensity},
		Metadata: Metadata{ViewsCSV: views},
	}
}

// Enriched meldet, ob der Sentiment-Pass schon gelaufen ist.
func (p *Poem) Enriched() bool {
	return p.Sentiment.Primary != nil
}

// PrimaryLabel liefert das Label oder "" wenn es noch nicht gesetzt ist.
func (p *Poem) PrimaryLabel() Sentiment {
	if p.Sentiment.Primary == nil {
		return ""
	}
	return *p.Sentiment.Primary
}
