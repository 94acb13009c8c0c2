package subtitles

import (
	"strings"
	"unicode"

	"github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/pretrained"
)

// Loaded by UseTokenizerFile; nil means the built-in splitter.
var hfTokenizer *tokenizer.Tokenizer

// UseTokenizerFile routes tokenization through a HuggingFace tokenizer.json
// instead of the built-in splitter.
func UseTokenizerFile(path string) error {
	tk, err := pretrained.FromFile(path)
	if err != nil {
		return err
	}
	hfTokenizer = tk
	return nil
}

// Tokenize lowercases an utterance and splits it into word tokens.
// Punctuation becomes its own token; empty tokens are dropped.
func Tokenize(s string) []string {
	if hfTokenizer != nil {
		if en, err := hfTokenizer.EncodeSingle(s); err == nil {
			out := make([]string, 0, len(en.Tokens))
			for _, tok := range en.Tokens {
				tok = strings.ToLower(strings.TrimSpace(tok))
				if tok != "" {
					out = append(out, tok)
				}
			}
			return out
		}
		// fall through to the built-in splitter on encode failure
	}

	s = strings.ToLower(s)
	var out []string
	var word strings.Builder
	flush := func() {
		if word.Len() > 0 {
			out = append(out, word.String())
			word.Reset()
		}
	}
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '\'':
			word.WriteRune(r)
		case unicode.IsSpace(r):
			flush()
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			flush()
			out = append(out, string(r))
		default:
			flush()
		}
	}
	flush()
	return out
}
