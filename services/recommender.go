package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"poem-mood/models"
	"poem-mood/storage"
)

// Tier benennt die Stufe der Fallback-Kaskade, die getroffen hat.
type Tier string

const (
	TierMoodKeyword Tier = "mood+keyword"
	TierMood        Tier = "mood"
	TierKeyword     Tier = "keyword"
	TierRandom      Tier = "random"
)

// Match ist eine Empfehlung samt Stufe.
type Match struct {
	Poem models.Poem
	Tier Tier
}

// Recommender wählt zufällig ein passendes Gedicht. Er liest nur.
type Recommender struct {
	Store  storage.Store
	Logger *zap.Logger
}

// NewRecommender erstellt einen Recommender.
func NewRecommender(store storage.Store, logger *zap.Logger) *Recommender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recommender{Store: store, Logger: logger}
}

type tierQuery struct {
	tier   Tier
	filter storage.Filter
}

// cascade baut die Stufen von streng nach locker. Die ungefilterte Stufe kommt immer zuletzt.
func cascade(mood, keyword string) []tierQuery {
	var tiers []tierQuery
	switch {
	case mood != "" && keyword != "":
		tiers = append(tiers,
			tierQuery{TierMoodKeyword, storage.Filter{Feeling: mood, Keyword: keyword}},
			tierQuery{TierMood, storage.Filter{Feeling: mood}},
		)
	case mood != "":
		tiers = append(tiers, tierQuery{TierMood, storage.Filter{Feeling: mood}})
	case keyword != "":
		tiers = append(tiers, tierQuery{TierKeyword, storage.Filter{Keyword: keyword}})
	}
	return append(tiers, tierQuery{TierRandom, storage.Filter{}})
}

// Recommend liefert ein Gedicht oder nil, nil wenn die Sammlung leer ist.
// Stimmung und Schlagwort werden vor dem Filtern kleingeschrieben.
func (r *Recommender) Recommend(ctx context.Context, mood, keyword string) (*Match, error) {
	mood = strings.ToLower(strings.TrimSpace(mood))
	keyword = strings.ToLower(strings.TrimSpace(keyword))

	for _, q := range cascade(mood, keyword) {
		poems, err := r.Store.SampleRandom(ctx, q.filter, 1)
		if err != nil {
			return nil, fmt.Errorf("recommend (%s): %w", q.tier, err)
		}
		if len(poems) == 0 {
			continue
		}
		recommendations.WithLabelValues(string(q.tier)).Inc()
		r.Logger.Debug("Recommendation found",
			zap.String("tier", string(q.tier)),
			zap.Uint("poem_id", poems[0].ID))
		return &Match{Poem: poems[0], Tier: q.tier}, nil
	}
	return nil, nil
}
