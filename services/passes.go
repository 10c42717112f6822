package services

import (
	"context"
	"slices"
	"strings"

	"poem-mood/keywords"
	"poem-mood/models"
	"poem-mood/sentiment"
	"poem-mood/storage"
)

// Namen der Pässe, auch als Label der Metriken.
const (
	PassSentiment   = "sentiment"
	PassRefine      = "refine"
	PassKeywords    = "keywords"
	PassConsolidate = "consolidate"
)

// SentimentPass setzt das primäre Sentiment und alle daraus abgeleiteten Felder.
type SentimentPass struct {
	Backend sentiment.Backend
}

func (SentimentPass) Name() string { return PassSentiment }

func (SentimentPass) Selection() storage.Filter {
	return storage.Filter{PrimaryUnset: true}
}

// Apply ruft das Backend nicht auf, wenn der Text leer ist.
func (s SentimentPass) Apply(ctx context.Context, poem *models.Poem) (storage.Fields, error) {
	if strings.TrimSpace(poem.FullText) == "" {
		return sentimentFields(sentiment.Neutral()), nil
	}
	r, err := s.Backend.Analyze(ctx, poem.FullText)
	if err != nil {
		return nil, err
	}
	return sentimentFields(sentiment.Map(r)), nil
}

func (SentimentPass) Fallback(*models.Poem) storage.Fields {
	return sentimentFields(sentiment.Neutral())
}

func sentimentFields(m sentiment.Mapped) storage.Fields {
	var subj any
	if m.Subjectivity != nil {
		subj = *m.Subjectivity
	}
	return storage.Fields{
		models.ColPrimarySentiment:   string(m.Label),
		models.ColScore:              m.Score,
		models.ColSubjectivity:       subj,
		models.ColSecondarySentiment: m.Secondary,
		models.ColGoodForFeeling:     m.GoodForFeeling,
	}
}

// RefinePass berechnet secondary_sentiment aus gespeichertem Label und
// gespeicherter Subjektivität neu. Ohne All nur dort, wo es fehlt.
type RefinePass struct {
	All bool
}

func (RefinePass) Name() string { return PassRefine }

func (r RefinePass) Selection() storage.Filter {
	if r.All {
		return storage.Filter{}
	}
	return storage.Filter{SecondaryUnset: true}
}

func (RefinePass) Apply(_ context.Context, poem *models.Poem) (storage.Fields, error) {
	tags := models.TagSet{sentiment.TagUndefined}
	if poem.Sentiment.Primary != nil && poem.Sentiment.Subjectivity != nil {
		tags = sentiment.SecondaryTags(*poem.Sentiment.Primary, poem.Sentiment.Subjectivity)
	}
	if poem.Sentiment.Secondary != nil && slices.Equal(tags, poem.Sentiment.Secondary) {
		return nil, nil
	}
	return storage.Fields{models.ColSecondarySentiment: tags}, nil
}

func (RefinePass) Fallback(*models.Poem) storage.Fields {
	return storage.Fields{models.ColSecondarySentiment: models.TagSet{sentiment.TagUndefined}}
}

// KeywordPass extrahiert Schlagworte für Gedichte mit Sentiment, aber ohne Schlagworte.
// Ein leeres Ergebnis wird als [] gespeichert und gilt damit als erledigt.
type KeywordPass struct {
	Extractor keywords.Extractor
}

func (KeywordPass) Name() string { return PassKeywords }

func (KeywordPass) Selection() storage.Filter {
	return storage.Filter{PrimarySet: true, KeywordsPending: true}
}

func (k KeywordPass) Apply(ctx context.Context, poem *models.Poem) (storage.Fields, error) {
	if strings.TrimSpace(poem.FullText) == "" {
		return storage.Fields{models.ColKeywords: models.TagSet{}}, nil
	}
	words, err := k.Extractor.Extract(ctx, poem.FullText)
	if err != nil {
		return nil, err
	}
	tags := models.TagSet(words)
	if tags == nil {
		tags = models.TagSet{}
	}
	return storage.Fields{models.ColKeywords: tags}, nil
}

func (KeywordPass) Fallback(*models.Poem) storage.Fields {
	return storage.Fields{models.ColKeywords: models.TagSet{}}
}

// ConsolidatePass leitet evokes für die ganze Sammlung ab. Ein leeres
// Ergebnis überschreibt nie ein vorhandenes evokes.
type ConsolidatePass struct{}

func (ConsolidatePass) Name() string { return PassConsolidate }

func (ConsolidatePass) Selection() storage.Filter { return storage.Filter{} }

func (ConsolidatePass) Apply(_ context.Context, poem *models.Poem) (storage.Fields, error) {
	tags := Consolidate(poem)
	if len(tags) == 0 || slices.Equal(tags, poem.Tags.Evokes) {
		return nil, nil
	}
	return storage.Fields{models.ColEvokes: tags}, nil
}

func (ConsolidatePass) Fallback(*models.Poem) storage.Fields { return nil }

// Enrich führt Sentiment, Schlagworte und Konsolidierung nacheinander aus.
// Beim ersten Fehler wird abgebrochen; die bisherigen Reports bleiben erhalten.
func (p *Pipeline) Enrich(ctx context.Context, backend sentiment.Backend, extractor keywords.Extractor, limit int) ([]Report, error) {
	passes := []Pass{
		SentimentPass{Backend: backend},
		KeywordPass{Extractor: extractor},
		ConsolidatePass{},
	}
	reports := make([]Report, 0, len(passes))
	for _, pass := range passes {
		rep, err := p.RunPass(ctx, pass, limit)
		reports = append(reports, rep)
		if err != nil {
			return reports, err
		}
	}
	return reports, nil
}
