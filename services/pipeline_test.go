package services

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"poem-mood/keywords"
	"poem-mood/models"
	"poem-mood/sentiment"
	"poem-mood/storage"
)

func setupStore(t *testing.T) *storage.GormStore {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "poems.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "Failed to create test database")
	s := storage.NewGormStore(db, nil)
	require.NoError(t, s.Migrate())
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seed(t *testing.T, s storage.Store, poems ...models.Poem) []models.Poem {
	t.Helper()
	require.NoError(t, s.InsertMany(context.Background(), poems))
	return poems
}

func get(t *testing.T, s storage.Store, id uint) *models.Poem {
	t.Helper()
	p, err := s.Get(context.Background(), id)
	require.NoError(t, err)
	return p
}

// fakeBackend antwortet mit result und schlägt für Texte mit "boom" fehl.
type fakeBackend struct {
	result sentiment.Result
	calls  int
	onCall func()
}

func (f *fakeBackend) Name() string { return "fake" }

func (f *fakeBackend) Analyze(_ context.Context, text string) (sentiment.Result, error) {
	f.calls++
	if f.onCall != nil {
		f.onCall()
	}
	if strings.Contains(text, "boom") {
		return sentiment.Result{}, errors.New("backend exploded")
	}
	return f.result, nil
}

func positiveBackend() *fakeBackend {
	subj := 0.8
	return &fakeBackend{result: sentiment.Result{Polarity: 0.6, Subjectivity: &subj}}
}

func TestSentimentPassWritesMappedFields(t *testing.T) {
	s := setupStore(t)
	poems := seed(t, s, models.NewPoem("A", "x", "um dia feliz", 3))

	rep, err := NewPipeline(s, nil, 0).RunPass(context.Background(), SentimentPass{Backend: positiveBackend()}, 0)
	require.NoError(t, err)
	assert.Equal(t, PassSentiment, rep.Pass)
	assert.Equal(t, 1, rep.Selected)
	assert.Equal(t, 1, rep.Processed)
	assert.Equal(t, 1, rep.Updated)
	assert.Zero(t, rep.Errors)

	got := get(t, s, poems[0].ID)
	assert.Equal(t, models.Positive, got.PrimaryLabel())
	assert.InDelta(t, 0.6, *got.Sentiment.Score, 1e-9)
	assert.InDelta(t, 0.8, *got.Sentiment.Subjectivity, 1e-9)
	assert.Equal(t, models.TagSet{sentiment.TagSubjective, "Apaixonado"}, got.Sentiment.Secondary)
	assert.Equal(t, models.TagSet{"positive"}, got.Tags.GoodForFeeling)
	assert.Nil(t, got.Sentiment.Keywords, "sentiment pass must not touch keywords")
	assert.Equal(t, 3, got.Metadata.ViewsCSV)
}

func TestSentimentPassBackendErrorAppliesDefault(t *testing.T) {
	s := setupStore(t)
	poems := seed(t, s,
		models.NewPoem("A", "x", "um dia feliz", 0),
		models.NewPoem("B", "x", "boom", 0),
		models.NewPoem("C", "x", "outro dia", 0),
	)

	rep, err := NewPipeline(s, nil, 0).RunPass(context.Background(), SentimentPass{Backend: positiveBackend()}, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, rep.Processed)
	assert.GreaterOrEqual(t, rep.Errors, 1)

	failed := get(t, s, poems[1].ID)
	require.True(t, failed.Enriched(), "failed document must not stay unset")
	assert.Equal(t, models.Neutral, failed.PrimaryLabel())
	assert.Zero(t, *failed.Sentiment.Score)
	assert.Equal(t, models.TagSet{sentiment.TagUndefined}, failed.Sentiment.Secondary)
	assert.Equal(t, models.TagSet{"neutral"}, failed.Tags.GoodForFeeling)

	assert.Equal(t, models.Positive, get(t, s, poems[2].ID).PrimaryLabel())
}

func TestSentimentPassSurvivesBrokenTagList(t *testing.T) {
	s := setupStore(t)
	poems := seed(t, s,
		models.NewPoem("A", "x", "um dia feliz", 0),
		models.NewPoem("B", "x", "outro dia feliz", 0),
	)
	require.NoError(t, s.DB.Exec("UPDATE poems SET sentiment_secondary = ? WHERE id = ?", "[Melancólico", poems[0].ID).Error)

	rep, err := NewPipeline(s, nil, 0).RunPass(context.Background(), SentimentPass{Backend: positiveBackend()}, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Processed)

	for _, p := range poems {
		got := get(t, s, p.ID)
		assert.Equal(t, models.Positive, got.PrimaryLabel())
		assert.Equal(t, models.TagSet{sentiment.TagSubjective, "Apaixonado"}, got.Sentiment.Secondary)
	}
}

func TestSentimentPassEmptyTextSkipsBackend(t *testing.T) {
	s := setupStore(t)
	poems := seed(t, s, models.NewPoem("A", "x", "  \n\t ", 0), models.NewPoem("B", "x", "", 0))
	backend := positiveBackend()

	rep, err := NewPipeline(s, nil, 0).RunPass(context.Background(), SentimentPass{Backend: backend}, 0)
	require.NoError(t, err)
	assert.Zero(t, backend.calls)
	assert.Zero(t, rep.Errors)

	for _, p := range poems {
		got := get(t, s, p.ID)
		assert.Equal(t, models.Neutral, got.PrimaryLabel())
		assert.Zero(t, *got.Sentiment.Score)
	}
}

func TestSentimentPassIsIdempotent(t *testing.T) {
	s := setupStore(t)
	poems := seed(t, s, models.NewPoem("A", "x", "um dia feliz", 0))
	pipe := NewPipeline(s, nil, 0)

	_, err := pipe.RunPass(context.Background(), SentimentPass{Backend: positiveBackend()}, 0)
	require.NoError(t, err)
	first := get(t, s, poems[0].ID)

	other := &fakeBackend{result: sentiment.Result{Polarity: -0.9}}
	rep, err := pipe.RunPass(context.Background(), SentimentPass{Backend: other}, 0)
	require.NoError(t, err)
	assert.Zero(t, rep.Selected)
	assert.Zero(t, other.calls)

	second := get(t, s, poems[0].ID)
	assert.Equal(t, first.Sentiment, second.Sentiment)
	assert.Equal(t, first.Tags, second.Tags)
}

func TestRunPassLimitAndResume(t *testing.T) {
	s := setupStore(t)
	seed(t, s,
		models.NewPoem("A", "x", "a", 0),
		models.NewPoem("B", "x", "b", 0),
		models.NewPoem("C", "x", "c", 0),
	)
	pipe := NewPipeline(s, nil, 0)
	pass := SentimentPass{Backend: positiveBackend()}

	rep, err := pipe.RunPass(context.Background(), pass, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Processed)

	rep, err = pipe.RunPass(context.Background(), pass, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Processed)

	n, err := s.Count(context.Background(), storage.Filter{PrimaryUnset: true})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRunPassProgress(t *testing.T) {
	s := setupStore(t)
	for i := 0; i < 5; i++ {
		seed(t, s, models.NewPoem("P", "x", "texto", 0))
	}
	pipe := NewPipeline(s, nil, 2)
	pipe.ChunkSize = 3

	var seen []int
	pipe.Progress = func(r Report) { seen = append(seen, r.Processed) }

	rep, err := pipe.RunPass(context.Background(), SentimentPass{Backend: positiveBackend()}, 0)
	require.NoError(t, err)
	assert.Equal(t, 5, rep.Processed)
	assert.Equal(t, []int{2, 4}, seen)
}

func TestRunPassCancelledLeavesDocumentsUntouched(t *testing.T) {
	s := setupStore(t)
	seed(t, s,
		models.NewPoem("A", "x", "a", 0),
		models.NewPoem("B", "x", "b", 0),
		models.NewPoem("C", "x", "c", 0),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	backend := positiveBackend()
	backend.onCall = cancel

	rep, err := NewPipeline(s, nil, 0).RunPass(ctx, SentimentPass{Backend: backend}, 0)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, rep.Updated)

	n, err := s.Count(context.Background(), storage.Filter{PrimaryUnset: true})
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestKeywordPassUsesExplicitPendingMarker(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	poems := seed(t, s,
		models.NewPoem("A", "x", "O mar, o mar e a lua sobre o mar", 0),
		models.NewPoem("B", "x", "e o de", 0),
		models.NewPoem("C", "x", "sem sentimento ainda", 0),
	)
	for _, p := range poems[:2] {
		require.NoError(t, s.UpdateFields(ctx, p.ID, storage.Fields{
			models.ColPrimarySentiment: string(models.Neutral),
			models.ColScore:            0.0,
		}))
	}

	pipe := NewPipeline(s, nil, 0)
	pass := KeywordPass{Extractor: keywords.NewLexical(5)}

	rep, err := pipe.RunPass(ctx, pass, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Processed, "documents without a primary sentiment are not selected")

	a := get(t, s, poems[0].ID)
	assert.Equal(t, models.TagSet{"mar", "lua"}, a.Sentiment.Keywords)
	assert.Equal(t, models.Neutral, a.PrimaryLabel(), "keyword pass must not touch sentiment")

	b := get(t, s, poems[1].ID)
	assert.NotNil(t, b.Sentiment.Keywords)
	assert.Empty(t, b.Sentiment.Keywords)

	assert.Nil(t, get(t, s, poems[2].ID).Sentiment.Keywords)

	rep, err = pipe.RunPass(ctx, pass, 0)
	require.NoError(t, err)
	assert.Zero(t, rep.Selected, "an empty extraction result counts as processed")
}

func TestRefinePass(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	poems := seed(t, s,
		models.NewPoem("A", "x", "a", 0),
		models.NewPoem("B", "x", "b", 0),
	)
	require.NoError(t, s.UpdateFields(ctx, poems[0].ID, storage.Fields{
		models.ColPrimarySentiment: string(models.Negative),
		models.ColSubjectivity:     0.5,
	}))

	pipe := NewPipeline(s, nil, 0)
	rep, err := pipe.RunPass(ctx, RefinePass{}, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Updated)

	assert.Equal(t, models.TagSet{sentiment.TagReflective, "Sombrio"}, get(t, s, poems[0].ID).Sentiment.Secondary)
	assert.Equal(t, models.TagSet{sentiment.TagUndefined}, get(t, s, poems[1].ID).Sentiment.Secondary)

	rep, err = pipe.RunPass(ctx, RefinePass{All: true}, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Processed)
	assert.Zero(t, rep.Updated, "unchanged tags are not rewritten")
}

func TestConsolidatePass(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	poems := seed(t, s,
		models.NewPoem("A", "x", "a", 0),
		models.NewPoem("B", "x", "b", 0),
	)
	require.NoError(t, s.UpdateFields(ctx, poems[0].ID, storage.Fields{
		models.ColKeywords:           models.TagSet{"mar", "Amor"},
		models.ColSecondarySentiment: models.TagSet{"Subjetivo", "Apaixonado"},
	}))
	require.NoError(t, s.UpdateFields(ctx, poems[1].ID, storage.Fields{
		models.ColSecondarySentiment: models.TagSet{"Indefinido"},
		models.ColEvokes:             models.TagSet{"antigo"},
	}))

	pipe := NewPipeline(s, nil, 0)
	rep, err := pipe.RunPass(ctx, ConsolidatePass{}, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Processed)
	assert.Equal(t, 1, rep.Updated)

	assert.Equal(t, models.TagSet{"amor", "apaixonado", "mar"}, get(t, s, poems[0].ID).Tags.Evokes)
	assert.Equal(t, models.TagSet{"antigo"}, get(t, s, poems[1].ID).Tags.Evokes, "empty result must not overwrite evokes")

	rep, err = pipe.RunPass(ctx, ConsolidatePass{}, 0)
	require.NoError(t, err)
	assert.Zero(t, rep.Updated)
}

func TestEnrichRunsAllPasses(t *testing.T) {
	s := setupStore(t)
	poems := seed(t, s, models.NewPoem("A", "x", "Triste noite de saudade, triste mar", 0))

	reports, err := NewPipeline(s, nil, 0).Enrich(context.Background(), sentiment.MustDefaultLexicon(), keywords.NewLexical(5), 0)
	require.NoError(t, err)
	require.Len(t, reports, 3)
	assert.Equal(t, []string{PassSentiment, PassKeywords, PassConsolidate},
		[]string{reports[0].Pass, reports[1].Pass, reports[2].Pass})

	got := get(t, s, poems[0].ID)
	assert.Equal(t, models.Negative, got.PrimaryLabel())
	assert.Equal(t, models.TagSet{"negative"}, got.Tags.GoodForFeeling)
	assert.Contains(t, got.Sentiment.Keywords, "triste")
	assert.Contains(t, got.Tags.Evokes, "triste")
	assert.Contains(t, got.Tags.Evokes, "sombrio")
}
