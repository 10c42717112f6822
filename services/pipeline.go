package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"poem-mood/models"
	"poem-mood/storage"
)

const (
	DefaultChunkSize     = 200
	DefaultProgressEvery = 100
)

// Pass ist eine idempotente Anreicherung. Selection beschreibt die noch
// nicht verarbeiteten Dokumente, Apply berechnet die Felder, die der Pass
// besitzt, und Fallback liefert den sicheren Standard nach einem Fehler.
// Eine leere Feldmenge bedeutet: nichts schreiben.
type Pass interface {
	Name() string
	Selection() storage.Filter
	Apply(ctx context.Context, poem *models.Poem) (storage.Fields, error)
	Fallback(poem *models.Poem) storage.Fields
}

// Report fasst einen Pass zusammen.
type Report struct {
	Pass      string        `json:"pass"`
	Selected  int           `json:"selected"`
	Processed int           `json:"processed"`
	Updated   int           `json:"updated"`
	Errors    int           `json:"errors"`
	Elapsed   time.Duration `json:"elapsed"`
}

// ProgressFunc wird alle ProgressEvery Dokumente mit dem Zwischenstand aufgerufen.
type ProgressFunc func(Report)

// Pipeline führt Pässe gegen einen Store aus.
type Pipeline struct {
	Store         storage.Store
	Logger        *zap.Logger
	ChunkSize     int
	ProgressEvery int
	Progress      ProgressFunc
}

// NewPipeline erstellt eine Pipeline mit Standardwerten.
func NewPipeline(store storage.Store, logger *zap.Logger, progressEvery int) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	if progressEvery <= 0 {
		progressEvery = DefaultProgressEvery
	}
	return &Pipeline{
		Store:         store,
		Logger:        logger,
		ChunkSize:     DefaultChunkSize,
		ProgressEvery: progressEvery,
	}
}

// RunPass verarbeitet die zu Beginn ausgewählten Dokumente. limit <= 0 heißt alle.
//
// Fehler einzelner Dokumente werden gezählt und führen zum Fallback; sie
// brechen den Pass nicht ab. Ein Abbruch des Kontexts wird zwischen zwei
// Dokumenten geprüft; dann kommt der bisherige Report mit ctx.Err() zurück.
func (p *Pipeline) RunPass(ctx context.Context, pass Pass, limit int) (Report, error) {
	started := time.Now()
	rep := Report{Pass: pass.Name()}
	log := p.Logger.With(zap.String("pass", pass.Name()))

	ids, err := p.Store.FindIDs(ctx, pass.Selection(), limit)
	if err != nil {
		return rep, fmt.Errorf("select documents for %s: %w", pass.Name(), err)
	}
	rep.Selected = len(ids)
	log.Info("Starting pass", zap.Int("selected", rep.Selected))

	defer func() {
		passDuration.WithLabelValues(pass.Name()).Observe(time.Since(started).Seconds())
	}()

	chunk := p.ChunkSize
	if chunk <= 0 {
		chunk = DefaultChunkSize
	}

	for lo := 0; lo < len(ids); lo += chunk {
		if err := ctx.Err(); err != nil {
			return p.interrupted(log, rep, started, err)
		}
		hi := min(lo+chunk, len(ids))
		poems, err := p.Store.Find(ctx, storage.Filter{IDs: ids[lo:hi]}, 0)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return p.interrupted(log, rep, started, ctxErr)
			}
			return rep, fmt.Errorf("load documents for %s: %w", pass.Name(), err)
		}

		for i := range poems {
			if err := ctx.Err(); err != nil {
				return p.interrupted(log, rep, started, err)
			}
			if !p.handle(ctx, pass, &poems[i], &rep, log) {
				return p.interrupted(log, rep, started, ctx.Err())
			}
			if rep.Processed%p.progressEvery() == 0 {
				p.report(log, rep, started)
			}
		}
	}

	rep.Elapsed = time.Since(started)
	log.Info("Pass finished",
		zap.Int("processed", rep.Processed),
		zap.Int("updated", rep.Updated),
		zap.Int("errors", rep.Errors),
		zap.Duration("elapsed", rep.Elapsed))
	return rep, nil
}

// handle verarbeitet ein Dokument. false heißt: Kontext abgebrochen, Dokument unberührt.
func (p *Pipeline) handle(ctx context.Context, pass Pass, poem *models.Poem, rep *Report, log *zap.Logger) bool {
	fields, err := pass.Apply(ctx, poem)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		rep.Errors++
		enrichmentErrors.WithLabelValues(rep.Pass).Inc()
		log.Warn("Document failed, applying fallback", zap.Uint("id", poem.ID), zap.Error(err))
		fields = pass.Fallback(poem)
	}

	if len(fields) > 0 {
		if err := p.Store.UpdateFields(ctx, poem.ID, fields); err != nil {
			if ctx.Err() != nil {
				return false
			}
			rep.Errors++
			enrichmentErrors.WithLabelValues(rep.Pass).Inc()
			log.Error("Failed to write document", zap.Uint("id", poem.ID), zap.Error(err))
		} else {
			rep.Updated++
		}
	}

	rep.Processed++
	documentsProcessed.WithLabelValues(rep.Pass).Inc()
	return true
}

func (p *Pipeline) progressEvery() int {
	if p.ProgressEvery <= 0 {
		return DefaultProgressEvery
	}
	return p.ProgressEvery
}

func (p *Pipeline) report(log *zap.Logger, rep Report, started time.Time) {
	rep.Elapsed = time.Since(started)
	log.Info("Pass progress",
		zap.Int("processed", rep.Processed),
		zap.Int("selected", rep.Selected),
		zap.Int("errors", rep.Errors))
	if p.Progress != nil {
		p.Progress(rep)
	}
}

func (p *Pipeline) interrupted(log *zap.Logger, rep Report, started time.Time, err error) (Report, error) {
	rep.Elapsed = time.Since(started)
	log.Warn("Pass interrupted",
		zap.Int("processed", rep.Processed),
		zap.Int("selected", rep.Selected),
		zap.Error(err))
	return rep, err
}
