package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"poem-mood/models"
)

func TestConsolidate(t *testing.T) {
	tests := []struct {
		name      string
		keywords  models.TagSet
		secondary models.TagSet
		want      models.TagSet
	}{
		{"union lowercased and sorted", models.TagSet{"Mar", "lua"}, models.TagSet{"Sereno"}, models.TagSet{"lua", "mar", "sereno"}},
		{"stoplist removed", nil, models.TagSet{"Indefinido", "Objetivo", "Reflexivo", "Subjetivo", "vazio", "não-identificado"}, models.TagSet{}},
		{"duplicates merged", models.TagSet{"amor", "AMOR"}, models.TagSet{"amor"}, models.TagSet{"amor"}},
		{"legacy scalar secondary", models.TagSet{}, models.TagSet{"Melancólico"}, models.TagSet{"melancólico"}},
		{"blank entries ignored", models.TagSet{" ", ""}, nil, models.TagSet{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := models.NewPoem("t", "a", "x", 0)
			p.Sentiment.Keywords = tt.keywords
			p.Sentiment.Secondary = tt.secondary
			assert.Equal(t, tt.want, Consolidate(&p))
		})
	}
}
