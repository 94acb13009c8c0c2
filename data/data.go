// Package data turns phrase pairs into the index sequences the model trains
// on: vocabulary construction, pair encoding, shuffling and batching.
package data

import (
	"iter"
	"math/rand"
	"sort"

	"github.com/robot0102/Deep-Reinforcement-Learning-Hands-On/subtitles"
)

// Special tokens kept at the start of the vocab.
const (
	BeginToken   = "#BEG"
	EndToken     = "#END"
	UnknownToken = "#UNK"
)

var special = []string{BeginToken, EndToken, UnknownToken}

// Vocabulary maps words to dense zero-based indices. Index assignment is
// deterministic for a given pair set: specials first, then words by
// descending frequency, ties broken lexicographically.
type Vocabulary struct {
	TokenToID map[string]int
	IDToToken []string
}

func BuildVocabulary(pairs []subtitles.PhrasePair) Vocabulary {
	counts := make(map[string]int)
	for _, p := range pairs {
		for _, w := range p.First.Words {
			counts[w]++
		}
		for _, w := range p.Second.Words {
			counts[w]++
		}
	}
	for _, s := range special {
		delete(counts, s)
	}

	type kv struct {
		k string
		v int
	}
	arr := make([]kv, 0, len(counts))
	for k, v := range counts {
		arr = append(arr, kv{k, v})
	}
	sort.Slice(arr, func(i, j int) bool {
		if arr[i].v == arr[j].v {
			return arr[i].k < arr[j].k
		}
		return arr[i].v > arr[j].v
	})

	idToToken := append([]string{}, special...)
	for _, p := range arr {
		idToToken = append(idToToken, p.k)
	}
	tokenToID := make(map[string]int, len(idToToken))
	for i, t := range idToToken {
		tokenToID[t] = i
	}
	return Vocabulary{TokenToID: tokenToID, IDToToken: idToToken}
}

// Lookup returns the index for tok, falling back to the unknown token.
func (v Vocabulary) Lookup(tok string) int {
	if id, ok := v.TokenToID[tok]; ok {
		return id
	}
	return v.TokenToID[UnknownToken]
}

func (v Vocabulary) Size() int {
	return len(v.IDToToken)
}

// EncodedPair is one training sample: both sides begin with #BEG and end
// with #END.
type EncodedPair struct {
	Input  []int
	Output []int
}

func EncodePhrasePairs(pairs []subtitles.PhrasePair, v Vocabulary) []EncodedPair {
	out := make([]EncodedPair, len(pairs))
	for i, p := range pairs {
		out[i] = EncodedPair{
			Input:  encodeWords(p.First.Words, v),
			Output: encodeWords(p.Second.Words, v),
		}
	}
	return out
}

func encodeWords(words []string, v Vocabulary) []int {
	ids := make([]int, 0, len(words)+2)
	ids = append(ids, v.Lookup(BeginToken))
	for _, w := range words {
		ids = append(ids, v.Lookup(w))
	}
	ids = append(ids, v.Lookup(EndToken))
	return ids
}

// ShufflePairs permutes the training set in place, uniformly and unseeded.
func ShufflePairs(pairs []EncodedPair) {
	rand.Shuffle(len(pairs), func(i, j int) {
		pairs[i], pairs[j] = pairs[j], pairs[i]
	})
}

// IterateBatches yields consecutive batches covering pairs exactly once in
// their current order. The final batch may be smaller than size.
func IterateBatches(pairs []EncodedPair, size int) iter.Seq[[]EncodedPair] {
	return func(yield func([]EncodedPair) bool) {
		for start := 0; start < len(pairs); start += size {
			end := start + size
			if end > len(pairs) {
				end = len(pairs)
			}
			if !yield(pairs[start:end]) {
				return
			}
		}
	}
}
