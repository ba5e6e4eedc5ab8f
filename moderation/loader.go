package moderation

import (
	"bufio"
	"bytes"
	"chat-core/errors"
	"embed"
	"io/fs"
	"strings"
)

//go:embed wordlists/*
var wordlistFS embed.FS

// LoadWordlists parses the embedded blacklists into per-language word
// slices keyed by the file basename (e.g. "en.txt" -> "en").
func LoadWordlists() (map[string][]string, error) {
	entries, err := fs.ReadDir(wordlistFS, "wordlists")
	if err != nil {
		return nil, err
	}

	out := make(map[string][]string, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			return nil, errors.ErrOnlyCensoredFiles
		}

		lang := strings.TrimSuffix(entry.Name(), ".txt")
		data, err := wordlistFS.ReadFile("wordlists/" + entry.Name())
		if err != nil {
			return nil, err
		}

		// A scanner handles both \n and \r\n line endings correctly.
		var words []string
		seen := make(map[string]struct{})
		scanner := bufio.NewScanner(bytes.NewReader(data))
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			if _, dup := seen[line]; dup {
				continue
			}
			seen[line] = struct{}{}
			words = append(words, line)
		}
		if err := scanner.Err(); err != nil {
			return nil, err
		}
		out[lang] = words
	}

	if len(out) == 0 {
		return nil, errors.ErrEmptyWords
	}
	return out, nil
}
