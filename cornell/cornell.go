// Package cornell reads the Cornell Movie-Dialogs corpus.
package cornell

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/robot0102/Deep-Reinforcement-Learning-Hands-On/subtitles"
)

// Field separator used by every file in the corpus.
const Separator = " +++$+++ "

const (
	linesFile         = "movie_lines.txt"
	conversationsFile = "movie_conversations.txt"
	metadataFile      = "movie_titles_metadata.txt"
)

// LoadDialogues reads the corpus under dataDir. A non-empty genreFilter keeps
// only movies tagged with that genre; an empty filter loads everything.
func LoadDialogues(dataDir, genreFilter string) ([]subtitles.Dialogue, error) {
	movies, err := loadMovieSet(filepath.Join(dataDir, metadataFile), genreFilter)
	if err != nil {
		return nil, err
	}
	lines, err := loadLines(filepath.Join(dataDir, linesFile), movies)
	if err != nil {
		return nil, err
	}
	return loadConversations(filepath.Join(dataDir, conversationsFile), movies, lines)
}

// loadMovieSet returns the movie IDs passing the genre filter, or nil for
// "no filtering" when the filter is empty.
func loadMovieSet(path, genreFilter string) (map[string]bool, error) {
	if genreFilter == "" {
		return nil, nil
	}
	movies := make(map[string]bool)
	err := forEachRecord(path, func(fields []string) error {
		if len(fields) < 6 {
			return nil
		}
		for _, genre := range parseListField(fields[5]) {
			if genre == genreFilter {
				movies[fields[0]] = true
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(movies) == 0 {
		return nil, fmt.Errorf("no movies with genre %q", genreFilter)
	}
	return movies, nil
}

func loadLines(path string, movies map[string]bool) (map[string]subtitles.Phrase, error) {
	lines := make(map[string]subtitles.Phrase)
	err := forEachRecord(path, func(fields []string) error {
		if len(fields) < 5 {
			return nil
		}
		if movies != nil && !movies[fields[2]] {
			return nil
		}
		lines[fields[0]] = subtitles.Phrase{Words: subtitles.Tokenize(fields[4])}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return lines, nil
}

func loadConversations(path string, movies map[string]bool, lines map[string]subtitles.Phrase) ([]subtitles.Dialogue, error) {
	var dialogues []subtitles.Dialogue
	err := forEachRecord(path, func(fields []string) error {
		if len(fields) < 4 {
			return nil
		}
		if movies != nil && !movies[fields[2]] {
			return nil
		}
		var dialogue subtitles.Dialogue
		for _, lineID := range parseListField(fields[3]) {
			phrase, ok := lines[lineID]
			if !ok || len(phrase.Words) == 0 {
				continue
			}
			dialogue = append(dialogue, phrase)
		}
		if len(dialogue) > 1 {
			dialogues = append(dialogues, dialogue)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dialogues, nil
}

func forEachRecord(path string, fn func(fields []string) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1<<20), 1<<20)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r\n")
		if line == "" {
			continue
		}
		if err := fn(strings.Split(line, Separator)); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	return nil
}

// parseListField decodes the corpus's python-list fields, e.g.
// "['L194', 'L195']" -> [L194 L195].
func parseListField(field string) []string {
	field = strings.TrimSpace(field)
	field = strings.TrimPrefix(field, "[")
	field = strings.TrimSuffix(field, "]")
	if field == "" {
		return nil
	}
	parts := strings.Split(field, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.Trim(strings.TrimSpace(p), "'\"")
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
