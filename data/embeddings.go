package data

import (
	"bufio"
	"bytes"
	"encoding/gob"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/robot0102/Deep-Reinforcement-Learning-Hands-On/subtitles"
	"github.com/robot0102/Deep-Reinforcement-Learning-Hands-On/utils"
)

// Fixed seed so re-running the builder on unchanged data reproduces the
// embedding matrix exactly.
const embeddingSeed = 1

const (
	dictFileName = "emb_dict.dat"
	embFileName  = "emb.dat"
)

// ReadEmbeddings builds the vocabulary and its (V x EmbeddingDim) embedding
// matrix from the observed phrase pairs. Rows are initialized from a seeded
// PRNG in index order; when gloveFile is non-empty, rows of words present in
// that GloVe-format text file are overridden with the pretrained vectors.
func ReadEmbeddings(pairs []subtitles.PhrasePair, dim int, gloveFile string) (Vocabulary, *mat.Dense, error) {
	vocab := BuildVocabulary(pairs)
	rng := rand.New(rand.NewSource(embeddingSeed))
	emb := mat.NewDense(vocab.Size(), dim, utils.RandomArrayRNG(rng, vocab.Size()*dim, float64(dim)))

	if gloveFile != "" {
		if err := overlayGlove(gloveFile, vocab, emb, dim); err != nil {
			return Vocabulary{}, nil, err
		}
	}
	return vocab, emb, nil
}

// overlayGlove copies pretrained vectors into rows of emb for every vocab
// word found in the file. Lines are "word v1 v2 ... vDim".
func overlayGlove(path string, vocab Vocabulary, emb *mat.Dense, dim int) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open embeddings file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1<<20), 1<<20)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) != dim+1 {
			continue
		}
		id, ok := vocab.TokenToID[fields[0]]
		if !ok {
			continue
		}
		for j := 0; j < dim; j++ {
			v, err := strconv.ParseFloat(fields[j+1], 64)
			if err != nil {
				return fmt.Errorf("embeddings file %s, word %q: %w", path, fields[0], err)
			}
			emb.Set(id, j, v)
		}
	}
	return scanner.Err()
}

type embData struct {
	Rows, Cols int
	Data       []float64
}

// SaveEmbeddings persists the vocabulary and matrix to dir so a run can be
// resumed or inspected with the exact indices it trained against.
func SaveEmbeddings(dir string, vocab Vocabulary, emb *mat.Dense) error {
	if err := encodeGobFile(filepath.Join(dir, dictFileName), vocab); err != nil {
		return err
	}
	r, c := emb.Dims()
	raw := mat.DenseCopyOf(emb).RawMatrix()
	return encodeGobFile(filepath.Join(dir, embFileName), embData{
		Rows: r,
		Cols: c,
		Data: raw.Data,
	})
}

// LoadEmbeddings reads back what SaveEmbeddings wrote.
func LoadEmbeddings(dir string) (Vocabulary, *mat.Dense, error) {
	var vocab Vocabulary
	if err := decodeGobFile(filepath.Join(dir, dictFileName), &vocab); err != nil {
		return Vocabulary{}, nil, err
	}
	var d embData
	if err := decodeGobFile(filepath.Join(dir, embFileName), &d); err != nil {
		return Vocabulary{}, nil, err
	}
	return vocab, mat.NewDense(d.Rows, d.Cols, d.Data), nil
}

func encodeGobFile(path string, v any) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return os.WriteFile(path, buf.Bytes(), 0644)
}

func decodeGobFile(path string, v any) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
