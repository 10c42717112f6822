package keywords

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokens(t *testing.T) {
	got := Tokens("O Mar, o MAR! 1984 beija-flor -- saudade.")
	assert.Equal(t, []string{"o", "mar", "o", "mar", "beija-flor", "saudade"}, got)
}

func TestTokensNormalizesDecomposedAccents(t *testing.T) {
	decomposed := "corac\u0327a\u0303o"
	assert.Equal(t, []string{"coração"}, Tokens(decomposed))
}

func TestLemma(t *testing.T) {
	tests := map[string]string{
		"corações": "coração",
		"pães":     "pão",
		"mães":     "mãe",
		"animais":  "animal",
		"papéis":   "papel",
		"azuis":    "azul",
		"flores":   "flor",
		"amores":   "amor",
		"vozes":    "voz",
		"homens":   "homem",
		"jardins":  "jardim",
		"noites":   "noite",
		"estrelas": "estrela",
		"olhos":    "olho",
		"deus":     "deus",
		"mês":      "mês",
		"mar":      "mar",
		"amor":     "amor",
	}
	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			assert.Equal(t, want, Lemma(in))
		})
	}
}

func TestExtractRanksByFrequencyThenFirstOccurrence(t *testing.T) {
	l := NewLexical(3)
	text := "A noite cai sobre o mar. O mar guarda a lua, e a lua guarda o mar e a noite."
	got, err := l.Extract(context.Background(), text)
	require.NoError(t, err)
	// mar x3; noite, guarda und lua je x2, noite tritt zuerst auf
	assert.Equal(t, []string{"mar", "noite", "guarda"}, got)
}

func TestExtractMergesPluralsAndDropsStopwords(t *testing.T) {
	l := NewLexical(5)
	got, err := l.Extract(context.Background(), "Flores e mais flores, a flor do meu jardim")
	require.NoError(t, err)
	require.NotEmpty(t, got)
	assert.Equal(t, "flor", got[0])
	assert.NotContains(t, got, "mais")
	assert.NotContains(t, got, "meu")
	assert.Contains(t, got, "jardim")
}

func TestExtractDropsVerbLikeForms(t *testing.T) {
	l := NewLexical(5)
	got, err := l.Extract(context.Background(), "cantando e sonhavam com o mundo")
	require.NoError(t, err)
	assert.Equal(t, []string{"mundo"}, got)
}

func TestExtractNoContentWords(t *testing.T) {
	l := NewLexical(5)
	for _, text := range []string{"", "   ", "e o de", "123 !!"} {
		got, err := l.Extract(context.Background(), text)
		require.NoError(t, err)
		assert.NotNil(t, got, "empty result must be an empty list, not nil")
		assert.Empty(t, got)
	}
}

func TestExtractHonorsLimitDefault(t *testing.T) {
	l := &Lexical{}
	got, err := l.Extract(context.Background(), "amor saudade tristeza alegria esperança silêncio distância")
	require.NoError(t, err)
	assert.Len(t, got, DefaultLimit)
}

func TestExtractCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewLexical(5).Extract(ctx, "mar")
	assert.ErrorIs(t, err, context.Canceled)
}
