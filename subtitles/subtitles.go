// Package subtitles loads OpenSubtitles dialogue files and derives
// phrase pairs for training.
package subtitles

import (
	"compress/gzip"
	"encoding/xml"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Consecutive subtitle entries further apart than this are treated as
// separate conversations.
const silenceSplitSeconds = 16.0

// A Phrase is one utterance, kept as its tokenized words.
type Phrase struct {
	Words []string
}

// A Dialogue is an ordered run of phrases forming one conversation.
type Dialogue []Phrase

// A PhrasePair is a (prompt, reply) tuple of consecutive dialogue turns.
type PhrasePair struct {
	First  Phrase
	Second Phrase
}

type xmlDocument struct {
	XMLName   xml.Name      `xml:"document"`
	Sentences []xmlSentence `xml:"s"`
}

type xmlSentence struct {
	Words []string  `xml:"w"`
	Times []xmlTime `xml:"time"`
}

type xmlTime struct {
	ID    string `xml:"id,attr"`
	Value string `xml:"value,attr"`
}

// ReadFile parses one gzipped OpenSubtitles XML file into dialogues,
// splitting a new dialogue wherever the subtitle track goes silent.
func ReadFile(path string) ([]Dialogue, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("gunzip %s: %w", path, err)
	}
	defer gz.Close()

	return readXML(gz, path)
}

func readXML(r io.Reader, path string) ([]Dialogue, error) {
	var doc xmlDocument
	dec := xml.NewDecoder(r)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	var dialogues []Dialogue
	var current Dialogue
	lastEnd := -1.0
	for _, s := range doc.Sentences {
		words := tokenizeSentence(s.Words)
		if len(words) == 0 {
			continue
		}
		start, end, hasTime := sentenceSpan(s.Times)
		if hasTime && lastEnd >= 0 && start-lastEnd > silenceSplitSeconds {
			if len(current) > 1 {
				dialogues = append(dialogues, current)
			}
			current = nil
		}
		if hasTime {
			lastEnd = end
		}
		current = append(current, Phrase{Words: words})
	}
	if len(current) > 1 {
		dialogues = append(dialogues, current)
	}
	return dialogues, nil
}

func tokenizeSentence(raw []string) []string {
	var words []string
	for _, w := range raw {
		words = append(words, Tokenize(w)...)
	}
	return words
}

// sentenceSpan extracts the first and last timestamps attached to a sentence.
func sentenceSpan(times []xmlTime) (start, end float64, ok bool) {
	if len(times) == 0 {
		return 0, 0, false
	}
	start, okStart := parseTimestamp(times[0].Value)
	end, okEnd := parseTimestamp(times[len(times)-1].Value)
	if !okStart {
		return 0, 0, false
	}
	if !okEnd {
		end = start
	}
	return start, end, true
}

// parseTimestamp reads the "HH:MM:SS,mmm" subtitle time format into seconds.
func parseTimestamp(v string) (float64, bool) {
	v = strings.TrimSpace(v)
	v = strings.ReplaceAll(v, ",", ".")
	parts := strings.Split(v, ":")
	if len(parts) != 3 {
		return 0, false
	}
	h, err1 := strconv.Atoi(parts[0])
	m, err2 := strconv.Atoi(parts[1])
	s, err3 := strconv.ParseFloat(parts[2], 64)
	if err1 != nil || err2 != nil || err3 != nil {
		return 0, false
	}
	return float64(h)*3600 + float64(m)*60 + s, true
}

// ReadDir walks a directory tree and loads every .xml.gz file found.
// Unreadable files fail the whole read; dialogue order follows the walk order.
func ReadDir(dir string) ([]Dialogue, error) {
	var dialogues []Dialogue
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".xml.gz") {
			return nil
		}
		fileDialogues, err := ReadFile(path)
		if err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		dialogues = append(dialogues, fileDialogues...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dialogues, nil
}

// DialoguesToPairs derives training pairs from consecutive turns, dropping
// pairs where either side has more than maxTokens words.
func DialoguesToPairs(dialogues []Dialogue, maxTokens int) []PhrasePair {
	var pairs []PhrasePair
	for _, dialogue := range dialogues {
		for i := 0; i+1 < len(dialogue); i++ {
			first, second := dialogue[i], dialogue[i+1]
			if len(first.Words) > maxTokens || len(second.Words) > maxTokens {
				continue
			}
			pairs = append(pairs, PhrasePair{First: first, Second: second})
		}
	}
	return pairs
}

// PhraseCount counts phrases across dialogues (for logging).
func PhraseCount(dialogues []Dialogue) int {
	n := 0
	for _, d := range dialogues {
		n += len(d)
	}
	return n
}
