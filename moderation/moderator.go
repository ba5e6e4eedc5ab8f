// Package moderation masks blacklisted words in message bodies. The
// matcher normalizes leet speak and strips punctuation noise before
// searching, so "B.4.d word" still matches "bad word".
package moderation

import (
	"unicode"

	goahocorasick "github.com/anknown/ahocorasick"
	"github.com/abadojack/whatlanggo"
)

// Moderator holds one Aho-Corasick automaton per language plus a default
// automaton built from every known word. Censor detects the message
// language and applies the matching automaton, falling back to the
// default when the language is unknown or has no dedicated list.
type Moderator struct {
	machines     map[string]*goahocorasick.Machine
	fallback     *goahocorasick.Machine
	censoredChar rune
}

type textMapping struct {
	normalized []rune
	origIdx    []int
}

// NewModerator builds the automatons from per-language word lists keyed
// by ISO 639-1 code (e.g. "en", "fr").
func NewModerator(wordsByLang map[string][]string, censoredChar rune) (*Moderator, error) {
	machines := make(map[string]*goahocorasick.Machine, len(wordsByLang))
	var all [][]rune

	for lang, words := range wordsByLang {
		patterns := make([][]rune, len(words))
		for i, word := range words {
			patterns[i] = normalizeRunes([]rune(word))
		}
		all = append(all, patterns...)

		m := new(goahocorasick.Machine)
		if err := m.Build(patterns); err != nil {
			return nil, err
		}
		machines[lang] = m
	}

	fallback := new(goahocorasick.Machine)
	if err := fallback.Build(all); err != nil {
		return nil, err
	}
	return &Moderator{machines: machines, fallback: fallback, censoredChar: censoredChar}, nil
}

// Censor identifies forbidden patterns and replaces the original
// characters while preserving spacing and punctuation positions.
func (m *Moderator) Censor(original string) string {
	mapping := normalize(original)
	if len(mapping.normalized) == 0 {
		return original
	}

	matcher := m.matcherFor(original)
	origRunes := []rune(original)
	spans := matcher.MultiPatternSearch(mapping.normalized, false)
	if len(spans) == 0 {
		return original
	}

	for _, span := range spans {
		normStart := span.Pos
		normEnd := normStart + len(span.Word)
		if normStart < 0 || normEnd > len(mapping.origIdx) {
			continue
		}

		origStart := mapping.origIdx[normStart]
		origEnd := mapping.origIdx[normEnd-1] + 1
		for i := origStart; i < origEnd; i++ {
			origRunes[i] = m.censoredChar
		}
	}
	return string(origRunes)
}

// matcherFor picks the automaton for the detected language of the text.
func (m *Moderator) matcherFor(text string) *goahocorasick.Machine {
	info := whatlanggo.Detect(text)
	if machine, ok := m.machines[info.Lang.Iso6391()]; ok {
		return machine
	}
	return m.fallback
}

// normalize transforms the input string into a searchable format and
// tracks original rune positions.
func normalize(input string) textMapping {
	origRunes := []rune(input)
	norm := make([]rune, 0, len(origRunes))
	origIdx := make([]int, 0, len(origRunes))

	for i, r := range origRunes {
		clean := simplifyRune(r)
		if isNoise(clean) {
			continue
		}
		norm = append(norm, unicode.ToLower(clean))
		origIdx = append(origIdx, i)
	}
	return textMapping{normalized: norm, origIdx: origIdx}
}

func normalizeRunes(input []rune) []rune {
	out := make([]rune, 0, len(input))
	for _, r := range input {
		clean := simplifyRune(r)
		if isNoise(clean) {
			continue
		}
		out = append(out, unicode.ToLower(clean))
	}
	return out
}

// simplifyRune maps common leet speak characters back to their standard
// alphabet counterparts.
func simplifyRune(r rune) rune {
	switch r {
	case '4', '@':
		return 'a'
	case '3', '€':
		return 'e'
	case '1', '!', '|':
		return 'i'
	case '0':
		return 'o'
	case '5', '$':
		return 's'
	default:
		return r
	}
}

// isNoise identifies characters ignored during the pattern matching phase.
func isNoise(r rune) bool {
	return unicode.IsPunct(r) || unicode.IsSpace(r) || unicode.IsSymbol(r)
}
