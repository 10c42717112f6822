package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"poem-mood/keywords"
	"poem-mood/models"
	"poem-mood/sentiment"
	"poem-mood/services"
)

const (
	errEmptyDescription = "Descrição vazia"
	errNoPoem           = "Banco de dados vazio ou erro de conexão"
)

// interactionTimeout begrenzt das Protokollieren im Hintergrund.
const interactionTimeout = 5 * time.Second

type recommendRequest struct {
	Description string `json:"description"`
}

type recommendDetails struct {
	Tags           models.TagSet `json:"tags"`
	MatchSentiment string        `json:"match_sentiment"`
}

type recommendResponse struct {
	OK        bool             `json:"ok"`
	Sentiment string           `json:"sentiment"`
	Poem      string           `json:"poem"`
	Details   recommendDetails `json:"details"`
}

func (s *Server) handleRecommend(c *gin.Context) {
	var req recommendRequest
	// ungültiges JSON wird wie eine leere Beschreibung behandelt
	_ = c.ShouldBindJSON(&req)
	desc := strings.TrimSpace(req.Description)
	if desc == "" {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": errEmptyDescription})
		return
	}

	ctx := c.Request.Context()
	log := s.logger.With(zap.String("request_id", c.GetString("request_id")))

	result, err := s.opts.Backend.Analyze(ctx, desc)
	if err != nil {
		log.Warn("Sentiment analysis of description failed, assuming neutral", zap.Error(err))
		result = sentiment.Result{}
	}
	mood := sentiment.DetectMood(result)
	keyword := GuessKeyword(desc)

	match, err := s.opts.Recommender.Recommend(ctx, mood.Feeling, keyword)
	if err != nil {
		log.Error("Recommendation query failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": errNoPoem})
		return
	}
	if match == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": errNoPoem})
		return
	}

	s.recordInteraction(models.Interaction{
		UserInput:         desc,
		DetectedSentiment: mood.Feeling,
		DetectedKeyword:   keyword,
		RecommendedPoemID: match.Poem.ID,
		Tier:              string(match.Tier),
		RequestID:         c.GetString("request_id"),
	})

	tags := match.Poem.Tags.Evokes
	if tags == nil {
		tags = models.TagSet{}
	}
	c.JSON(http.StatusOK, recommendResponse{
		OK:        true,
		Sentiment: fmt.Sprintf("Detectamos um tom %s. Recomendação:", mood.Display),
		Poem:      FormatPoem(&match.Poem),
		Details: recommendDetails{
			Tags:           tags,
			MatchSentiment: mood.Feeling,
		},
	})
}

// recordInteraction schreibt Protokoll und Zähler im Hintergrund. Fehler
// werden nur geloggt und erreichen den Aufrufer nie.
func (s *Server) recordInteraction(entry models.Interaction) {
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		ctx, cancel := context.WithTimeout(context.Background(), interactionTimeout)
		defer cancel()

		log := s.logger.With(zap.String("request_id", entry.RequestID))
		if err := s.opts.Store.RecordInteraction(ctx, &entry); err != nil {
			log.Warn("Failed to record interaction", zap.Error(err))
		}
		if err := s.opts.Store.IncrementRecommended(ctx, entry.RecommendedPoemID); err != nil {
			log.Warn("Failed to increment times_recommended", zap.Uint("poem_id", entry.RecommendedPoemID), zap.Error(err))
		}
	}()
}

// GuessKeyword nimmt das letzte Wort mit mehr als vier Buchstaben, auf
// dieselbe Grundform gebracht wie die gespeicherten Schlagworte.
func GuessKeyword(desc string) string {
	tokens := keywords.Tokens(desc)
	for i := len(tokens) - 1; i >= 0; i-- {
		if utf8.RuneCountInString(tokens[i]) > 4 {
			return keywords.Lemma(tokens[i])
		}
	}
	return ""
}

// FormatPoem rendert "TITEL\n\nTEXT\n\n-- AUTOR".
func FormatPoem(p *models.Poem) string {
	return fmt.Sprintf("%s\n\n%s\n\n-- %s", strings.ToUpper(p.Title), p.FullText, p.Author)
}

var _ Recommender = (*services.Recommender)(nil)
