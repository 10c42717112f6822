package sentiment

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"poem-mood/keywords"
)

//go:embed lexicon_pt.yaml
var defaultLexicon []byte

type lexiconEntry struct {
	Polarity     float64 `yaml:"p"`
	Subjectivity float64 `yaml:"s"`
}

type lexiconFile struct {
	NegationFactor float64                 `yaml:"negation_factor"`
	Window         int                     `yaml:"window"`
	Negators       []string                `yaml:"negators"`
	Intensifiers   map[string]float64      `yaml:"intensifiers"`
	Words          map[string]lexiconEntry `yaml:"words"`
}

// Lexicon ist ein lokales, wortbasiertes Backend. Polarität und Subjektivität
// sind die Mittelwerte der bewerteten Wörter; Verneinungen und Verstärker
// wirken auf das nächste bewertete Wort innerhalb von Window Tokens.
type Lexicon struct {
	words          map[string]lexiconEntry
	negators       map[string]struct{}
	intensifiers   map[string]float64
	negationFactor float64
	window         int
}

var _ Backend = (*Lexicon)(nil)

// NewLexicon lädt ein Lexikon aus YAML.
func NewLexicon(data []byte) (*Lexicon, error) {
	var f lexiconFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse lexicon: %w", err)
	}
	if len(f.Words) == 0 {
		return nil, fmt.Errorf("lexicon has no words")
	}
	if f.NegationFactor == 0 {
		f.NegationFactor = -0.5
	}
	if f.Window <= 0 {
		f.Window = 3
	}

	l := &Lexicon{
		words:          make(map[string]lexiconEntry, len(f.Words)),
		negators:       make(map[string]struct{}, len(f.Negators)),
		intensifiers:   make(map[string]float64, len(f.Intensifiers)),
		negationFactor: f.NegationFactor,
		window:         f.Window,
	}
	for w, e := range f.Words {
		l.words[normalizeWord(w)] = e
	}
	for _, w := range f.Negators {
		l.negators[normalizeWord(w)] = struct{}{}
	}
	for w, v := range f.Intensifiers {
		l.intensifiers[normalizeWord(w)] = v
	}
	return l, nil
}

// MustDefaultLexicon liefert das eingebettete portugiesische Lexikon und panict bei defekten Daten.
func MustDefaultLexicon() *Lexicon {
	l, err := NewLexicon(defaultLexicon)
	if err != nil {
		panic(err)
	}
	return l
}

func normalizeWord(w string) string {
	if t := keywords.Tokens(w); len(t) == 1 {
		return t[0]
	}
	return strings.ToLower(strings.TrimSpace(w))
}

func (l *Lexicon) Name() string { return "lexicon" }

func (l *Lexicon) lookup(w string) (lexiconEntry, bool) {
	if e, ok := l.words[w]; ok {
		return e, true
	}
	e, ok := l.words[keywords.Lemma(w)]
	return e, ok
}

// Analyze bewertet text. Ohne bewertete Wörter ist das Ergebnis 0/0.
func (l *Lexicon) Analyze(ctx context.Context, text string) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if strings.TrimSpace(text) == "" {
		return Result{}, ErrEmptyText
	}

	var (
		sumP, sumS float64
		scored     int
		negate     bool
		intensity  = 1.0
		distance   = -1 // Tokens seit dem letzten Modifikator, -1 = keiner aktiv
	)
	reset := func() {
		negate, intensity, distance = false, 1.0, -1
	}

	for _, w := range keywords.Tokens(text) {
		if _, ok := l.negators[w]; ok {
			negate = !negate
			distance = 0
			continue
		}
		if v, ok := l.intensifiers[w]; ok {
			intensity *= v
			distance = 0
			continue
		}

		e, ok := l.lookup(w)
		if !ok {
			if distance >= 0 {
				distance++
				if distance >= l.window {
					reset()
				}
			}
			continue
		}

		p, s := e.Polarity*intensity, e.Subjectivity*intensity
		if negate {
			p *= l.negationFactor
		}
		sumP += clamp(p, -1, 1)
		sumS += clamp(s, 0, 1)
		scored++
		reset()
	}

	if scored == 0 {
		zero := 0.0
		return Result{Polarity: 0, Subjectivity: &zero}, nil
	}
	subj := sumS / float64(scored)
	return Result{
		Polarity:     clamp(sumP/float64(scored), -1, 1),
		Subjectivity: &subj,
	}, nil
}
