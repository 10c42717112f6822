package sentiment

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/jarcoal/httpmock"
	gobreaker "github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poem-mood/models"
)

const testInferenceURL = "https://inference.test/models/sentiment"

func newTestInference(t *testing.T, maxChars int) (*Inference, *httpmock.MockTransport) {
	t.Helper()
	transport := httpmock.NewMockTransport()
	b := NewInference(InferenceOptions{
		URL:           testInferenceURL,
		Token:         "hf_test",
		MaxInputChars: maxChars,
		HTTPClient:    &http.Client{Transport: transport},
	})
	return b, transport
}

func TestInferenceStars(t *testing.T) {
	b, transport := newTestInference(t, 0)
	transport.RegisterResponder(http.MethodPost, testInferenceURL,
		httpmock.NewStringResponder(http.StatusOK,
			`[[{"label":"1 star","score":0.05},{"label":"5 stars","score":0.8},{"label":"3 stars","score":0.15}]]`))

	r, err := b.Analyze(context.Background(), "Que lindo poema")
	require.NoError(t, err)
	assert.Equal(t, models.Positive, r.Label)
	assert.InDelta(t, 0.8, r.Polarity, 1e-9)
	assert.Nil(t, r.Subjectivity)
	assert.Equal(t, 1, transport.GetTotalCallCount())
}

func TestInferenceFlatLabels(t *testing.T) {
	b, transport := newTestInference(t, 0)
	transport.RegisterResponder(http.MethodPost, testInferenceURL,
		httpmock.NewStringResponder(http.StatusOK, `[{"label":"NEG","score":0.7},{"label":"NEU","score":0.2}]`))

	r, err := b.Analyze(context.Background(), "triste")
	require.NoError(t, err)
	assert.Equal(t, models.Negative, r.Label)
	assert.InDelta(t, -0.7, r.Polarity, 1e-9)

	m := Map(r)
	assert.Equal(t, models.TagSet{TagUndefined}, m.Secondary)
	assert.Equal(t, models.TagSet{"negative"}, m.GoodForFeeling)
}

func TestInferenceSendsTruncatedInputAndToken(t *testing.T) {
	b, transport := newTestInference(t, 10)
	assert.Equal(t, 10, b.MaxInputChars())

	var sent string
	transport.RegisterResponder(http.MethodPost, testInferenceURL,
		func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, "Bearer hf_test", req.Header.Get("Authorization"))
			var body map[string]string
			if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
				return nil, err
			}
			sent = body["inputs"]
			return httpmock.NewStringResponse(http.StatusOK, `[[{"label":"neutral","score":0.9}]]`), nil
		})

	text := strings.Repeat("ç", 25)
	r, err := b.Analyze(context.Background(), text)
	require.NoError(t, err)
	assert.Equal(t, 10, utf8.RuneCountInString(sent))
	assert.Equal(t, models.Neutral, r.Label)
	assert.InDelta(t, 0.09, r.Polarity, 1e-9)
}

func TestInferenceErrors(t *testing.T) {
	b, transport := newTestInference(t, 0)

	_, err := b.Analyze(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyText)
	assert.Zero(t, transport.GetTotalCallCount(), "empty text must not reach the endpoint")

	transport.RegisterResponder(http.MethodPost, testInferenceURL,
		httpmock.NewStringResponder(http.StatusServiceUnavailable, `{"error":"Model is loading"}`))
	_, err = b.Analyze(context.Background(), "texto")
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusServiceUnavailable, statusErr.Code)

	transport.RegisterResponder(http.MethodPost, testInferenceURL,
		httpmock.NewStringResponder(http.StatusOK, `[[{"label":"sarcastic","score":0.9}]]`))
	_, err = b.Analyze(context.Background(), "texto")
	assert.ErrorContains(t, err, "unknown inference label")
}

func TestInferenceCircuitOpensAfterConsecutiveFailures(t *testing.T) {
	b, transport := newTestInference(t, 0)
	transport.RegisterResponder(http.MethodPost, testInferenceURL,
		httpmock.NewStringResponder(http.StatusInternalServerError, "boom"))

	for i := 0; i < 5; i++ {
		_, err := b.Analyze(context.Background(), "texto")
		require.Error(t, err)
	}
	_, err := b.Analyze(context.Background(), "texto")
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 5, transport.GetTotalCallCount())
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "ab", truncateRunes("abc", 2))
	assert.Equal(t, "ãé", truncateRunes("ãéí", 2))
	assert.Equal(t, "abc", truncateRunes("abc", 10))
	assert.Equal(t, "abc", truncateRunes("abc", 0))
}
