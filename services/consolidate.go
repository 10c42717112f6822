package services

import (
	"sort"
	"strings"

	"poem-mood/models"
)

// evokesStoplist enthält Schlagworte ohne Aussagekraft für die Empfehlung.
var evokesStoplist = map[string]struct{}{
	"indefinido":       {},
	"não-identificado": {},
	"vazio":            {},
	"subjetivo":        {},
	"objetivo":         {},
	"reflexivo":        {},
}

// Consolidate bildet evokes = keywords ∪ secondary_sentiment, kleingeschrieben,
// ohne Stoppliste, dedupliziert und sortiert.
func Consolidate(poem *models.Poem) models.TagSet {
	seen := make(map[string]struct{})
	out := models.TagSet{}
	for _, src := range []models.TagSet{poem.Sentiment.Keywords, poem.Sentiment.Secondary} {
		for _, tag := range src {
			tag = strings.ToLower(strings.TrimSpace(tag))
			if tag == "" {
				continue
			}
			if _, stop := evokesStoplist[tag]; stop {
				continue
			}
			if _, dup := seen[tag]; dup {
				continue
			}
			seen[tag] = struct{}{}
			out = append(out, tag)
		}
	}
	sort.Strings(out)
	return out
}
