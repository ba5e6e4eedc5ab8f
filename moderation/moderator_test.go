package moderation

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const replacementChar = '*'

// The dictionary uses specific words to avoid partial collisions (e.g., "he" inside "The")
func TestModerator_Censor(t *testing.T) {
	req := require.New(t)
	dictionary := map[string][]string{
		"en": {"badger", "snake", "mushroom"},
	}
	mod, err := NewModerator(dictionary, replacementChar)
	req.NoError(err)

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "Simple word and space preservation",
			input:    "The badger is here",
			expected: "The ****** is here",
		},
		{
			name:     "Multiple occurrences and preserved spacing",
			input:    "badger badger badger",
			expected: "****** ****** ******",
		},
		{
			name: "Leet speak and internal punctuation",
			// B (index 8) . 4 . d . g . € r (index 17) -> 10 characters
			input:    "Look at B.4.d.g.€r !",
			expected: "Look at ********** !",
		},
		{
			name:     "Uppercase and extreme noise",
			input:    "S-N-A-K-E is a B.A.D.G.E.R",
			expected: "********* is a ***********",
		},
		{
			name:     "Accents and special characters (UTF-8)",
			input:    "Un été avec un badger",
			expected: "Un été avec un ******",
		},
		{
			name:     "Word adjacent to trailing punctuation",
			input:    "I love badger!",
			expected: "I love ******!",
		},
		{
			name:     "Nothing to censor",
			input:    "This chat is amazing",
			expected: "This chat is amazing",
		},
		{
			name:     "Empty string",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req.Equal(tt.expected, mod.Censor(tt.input), "test=%s,", tt.name)
		})
	}
}

func TestModerator_Falls_Back_Across_Languages(t *testing.T) {
	req := require.New(t)
	dictionary := map[string][]string{
		"en": {"badger"},
		"fr": {"blaireau"},
	}
	mod, err := NewModerator(dictionary, replacementChar)
	req.NoError(err)

	// The fallback automaton knows every word, so a word from either list
	// is masked no matter which language the detector picks
	req.Equal("Le ******** traverse la route", mod.Censor("Le blaireau traverse la route"))
	req.Equal("The ****** crosses the road", mod.Censor("The badger crosses the road"))
}

func TestLoadWordlists_Parses_Embedded_Files(t *testing.T) {
	req := require.New(t)

	words, err := LoadWordlists()
	req.NoError(err)

	// One entry per embedded language file, none of them empty
	req.Contains(words, "en")
	req.Contains(words, "fr")
	for lang, list := range words {
		req.NotEmpty(list, "language %s has no words", lang)
	}
}
