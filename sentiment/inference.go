package sentiment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"poem-mood/models"
)

// DefaultMaxInputChars entspricht dem Eingabelimit der üblichen BERT-Modelle.
const DefaultMaxInputChars = 512

const userAgent = "poem-mood/1.0"

// InferenceOptions konfiguriert das Transformer-Backend.
type InferenceOptions struct {
	URL           string
	Token         string
	MaxInputChars int
	Timeout       time.Duration
	RateLimit     float64 // Anfragen pro Sekunde, <= 0 = unbegrenzt
	HTTPClient    *http.Client
	Logger        *zap.Logger
}

// Inference fragt einen Klassifikations-Endpunkt im Format der
// Hugging-Face-Inference-API ab: POST {"inputs": text} ->
// [[{"label","score"}, ...]] oder [{"label","score"}, ...].
type Inference struct {
	url      string
	token    string
	maxChars int
	client   *http.Client
	limiter  *rate.Limiter
	cb       *gobreaker.CircuitBreaker[[]prediction]
	logger   *zap.Logger
}

var _ Backend = (*Inference)(nil)

type prediction struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// StatusError ist eine Nicht-2xx-Antwort des Endpunkts.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("inference endpoint returned %d: %s", e.Code, e.Body)
}

// NewInference erstellt das Backend samt Circuit Breaker.
func NewInference(opts InferenceOptions) *Inference {
	if opts.MaxInputChars <= 0 {
		opts.MaxInputChars = DefaultMaxInputChars
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: opts.Timeout}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	limit := rate.Inf
	if opts.RateLimit > 0 {
		limit = rate.Limit(opts.RateLimit)
	}

	logger := opts.Logger.With(zap.String("backend", "inference"))
	cb := gobreaker.NewCircuitBreaker[[]prediction](gobreaker.Settings{
		Name:        "inference",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			// Abbrüche des Aufrufers sagen nichts über den Endpunkt aus
			return err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})

	return &Inference{
		url:      opts.URL,
		token:    opts.Token,
		maxChars: opts.MaxInputChars,
		client:   opts.HTTPClient,
		limiter:  rate.NewLimiter(limit, 1),
		cb:       cb,
		logger:   logger,
	}
}

func (b *Inference) Name() string { return "inference" }

// MaxInputChars ist die Anzahl Zeichen (Runen), die das Modell sieht.
func (b *Inference) MaxInputChars() int { return b.maxChars }

// Analyze klassifiziert text. Subjektivität liefert das Modell nicht.
func (b *Inference) Analyze(ctx context.Context, text string) (Result, error) {
	if strings.TrimSpace(text) == "" {
		return Result{}, ErrEmptyText
	}
	if err := b.limiter.Wait(ctx); err != nil {
		return Result{}, err
	}

	input := truncateRunes(text, b.maxChars)
	preds, err := b.cb.Execute(func() ([]prediction, error) {
		return b.post(ctx, input)
	})
	if err != nil {
		return Result{}, err
	}
	if len(preds) == 0 {
		return Result{}, errors.New("inference endpoint returned no predictions")
	}

	best := preds[0]
	for _, p := range preds[1:] {
		if p.Score > best.Score {
			best = p
		}
	}
	return resultFromPrediction(best)
}

func (b *Inference) post(ctx context.Context, input string) ([]prediction, error) {
	body, err := json.Marshal(map[string]string{"inputs": input})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build inference request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if b.token != "" {
		req.Header.Set("Authorization", "Bearer "+b.token)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("inference request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read inference response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Code: resp.StatusCode, Body: truncateRunes(string(raw), 200)}
	}
	return parsePredictions(raw)
}

// parsePredictions akzeptiert die verschachtelte und die flache Antwortform.
func parsePredictions(raw []byte) ([]prediction, error) {
	var nested [][]prediction
	if err := json.Unmarshal(raw, &nested); err == nil {
		if len(nested) == 0 {
			return nil, nil
		}
		return nested[0], nil
	}
	var flat []prediction
	if err := json.Unmarshal(raw, &flat); err != nil {
		return nil, fmt.Errorf("decode inference response: %w", err)
	}
	return flat, nil
}

func resultFromPrediction(p prediction) (Result, error) {
	label := strings.ToLower(strings.TrimSpace(p.Label))
	if strings.HasSuffix(label, "star") || strings.HasSuffix(label, "stars") {
		s, polarity := StarsToSentiment(label, p.Score)
		return Result{Label: s, Polarity: polarity}, nil
	}
	switch label {
	case "positive", "pos", "label_2":
		return Result{Label: models.Positive, Polarity: p.Score}, nil
	case "negative", "neg", "label_0":
		return Result{Label: models.Negative, Polarity: -p.Score}, nil
	case "neutral", "neu", "label_1":
		return Result{Label: models.Neutral, Polarity: p.Score * 0.1}, nil
	}
	return Result{}, fmt.Errorf("unknown inference label %q", p.Label)
}

func truncateRunes(s string, n int) string {
	if n <= 0 {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
