// Package keywords extrahiert inhaltstragende Schlagworte aus portugiesischem Text.
package keywords

import (
	"bufio"
	"context"
	_ "embed"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// DefaultLimit ist die Anzahl Schlagworte pro Gedicht.
const DefaultLimit = 5

// minRunes: kürzere Wörter tragen selten Inhalt.
const minRunes = 3

//go:embed stopwords_pt.txt
var stopwordsFile string

var stopwords = loadStopwords(stopwordsFile)

func loadStopwords(raw string) map[string]struct{} {
	set := make(map[string]struct{})
	sc := bufio.NewScanner(strings.NewReader(raw))
	for sc.Scan() {
		w := strings.TrimSpace(sc.Text())
		if w == "" || strings.HasPrefix(w, "#") {
			continue
		}
		set[norm.NFC.String(w)] = struct{}{}
	}
	return set
}

// IsStopword meldet, ob w (bereits normalisiert) ein Stoppwort ist.
func IsStopword(w string) bool {
	_, ok := stopwords[w]
	return ok
}

// Extractor liefert die Schlagworte eines Textes.
type Extractor interface {
	Extract(ctx context.Context, text string) ([]string, error)
}

// Lexical ist ein regelbasierter Extraktor ohne externes Modell.
type Lexical struct {
	Limit int
}

var _ Extractor = (*Lexical)(nil)

// NewLexical erstellt einen Extraktor; limit <= 0 ergibt DefaultLimit.
func NewLexical(limit int) *Lexical {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Lexical{Limit: limit}
}

// Extract liefert höchstens Limit Lemmata, nach Häufigkeit sortiert, bei
// Gleichstand in der Reihenfolge des ersten Auftretens. Ein Text ohne
// Inhaltswörter ergibt eine leere, nicht-nil Liste.
func (l *Lexical) Extract(ctx context.Context, text string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	type entry struct {
		lemma string
		count int
		first int
	}
	index := make(map[string]*entry)
	var order []*entry

	for i, w := range Tokens(text) {
		if !isContentWord(w) {
			continue
		}
		lemma := Lemma(w)
		if e, ok := index[lemma]; ok {
			e.count++
			continue
		}
		e := &entry{lemma: lemma, count: 1, first: i}
		index[lemma] = e
		order = append(order, e)
	}

	sort.SliceStable(order, func(i, j int) bool {
		if order[i].count != order[j].count {
			return order[i].count > order[j].count
		}
		return order[i].first < order[j].first
	})

	limit := l.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	out := make([]string, 0, limit)
	for _, e := range order {
		if len(out) == limit {
			break
		}
		out = append(out, e.lemma)
	}
	return out, nil
}

// Tokens zerlegt Text in kleingeschriebene Wörter (NFC). Zahlen und
// Satzzeichen trennen Wörter; Bindestriche innerhalb eines Wortes bleiben.
func Tokens(text string) []string {
	// Caser ist zustandsbehaftet, daher pro Aufruf
	text = cases.Lower(language.Portuguese).String(norm.NFC.String(text))
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && r != '-'
	})
	out := fields[:0]
	for _, f := range fields {
		f = strings.Trim(f, "-")
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

func isContentWord(w string) bool {
	if utf8.RuneCountInString(w) < minRunes {
		return false
	}
	if IsStopword(w) {
		return false
	}
	return !looksLikeVerb(w)
}

// Endungen, die fast nur bei konjugierten Verben oder Gerundien vorkommen.
var verbEndings = []string{
	"ando", "endo", "indo",
	"avam", "ávamos", "íamos", "aram", "eram", "iram",
	"assem", "essem", "issem", "aremos", "eremos", "iremos",
	"ava", "asse", "esse", "isse",
}

// Substantive mit verbähnlicher Endung.
var verbExceptions = map[string]struct{}{
	"mundo": {}, "segundo": {}, "fundo": {}, "lindo": {}, "vindo": {},
	"brando": {}, "bando": {}, "comando": {}, "orando": {},
	"lava": {}, "cava": {}, "trava": {}, "escrava": {}, "brava": {}, "oitava": {},
	"interesse": {}, "promessa": {}, "classe": {},
}

func looksLikeVerb(w string) bool {
	if _, ok := verbExceptions[w]; ok {
		return false
	}
	for _, suf := range verbEndings {
		if strings.HasSuffix(w, suf) && utf8.RuneCountInString(w) > utf8.RuneCountInString(suf)+1 {
			return true
		}
	}
	return false
}

// Wörter, deren Endung -s kein Plural ist, und unregelmäßige Formen.
var lemmaExceptions = map[string]string{
	"mães": "mãe", "pães": "pão", "cães": "cão", "alemães": "alemão",
	"deus": "deus", "lápis": "lápis", "pires": "pires", "vírus": "vírus",
	"país": "país", "través": "través", "através": "através", "simples": "simples",
	"mês": "mês", "três": "três", "vez": "vez", "voz": "voz", "luz": "luz",
	"atrás": "atrás", "adeus": "adeus", "pais": "pai", "jamais": "jamais", "demais": "demais",
}

// Lemma reduziert einen Plural auf den Singular.
func Lemma(w string) string {
	if l, ok := lemmaExceptions[w]; ok {
		return l
	}
	n := utf8.RuneCountInString(w)
	switch {
	case n <= 3:
		return w
	case strings.HasSuffix(w, "ões"):
		return strings.TrimSuffix(w, "ões") + "ão"
	case strings.HasSuffix(w, "ães"):
		return strings.TrimSuffix(w, "ães") + "ão"
	case strings.HasSuffix(w, "ais"):
		return strings.TrimSuffix(w, "ais") + "al"
	case strings.HasSuffix(w, "éis"):
		return strings.TrimSuffix(w, "éis") + "el"
	case strings.HasSuffix(w, "óis"):
		return strings.TrimSuffix(w, "óis") + "ol"
	case strings.HasSuffix(w, "uis"):
		return strings.TrimSuffix(w, "uis") + "ul"
	case strings.HasSuffix(w, "res"), strings.HasSuffix(w, "zes"):
		return strings.TrimSuffix(w, "es")
	case strings.HasSuffix(w, "ns"):
		return strings.TrimSuffix(w, "ns") + "m"
	case strings.HasSuffix(w, "s") && plainPlural(w):
		return strings.TrimSuffix(w, "s")
	}
	return w
}

// plainPlural: -s nach unbetontem a, e oder o.
func plainPlural(w string) bool {
	stem := strings.TrimSuffix(w, "s")
	last, _ := utf8.DecodeLastRuneInString(stem)
	return last == 'a' || last == 'e' || last == 'o'
}
