package model

import "math"

// Zero n-gram matches contribute this instead of collapsing the score to 0.
const bleuSmoothEpsilon = 0.1

// BLEU is sentence-level BLEU over unigrams and bigrams with uniform
// weights, epsilon-smoothed precisions and the standard brevity penalty.
func BLEU(candidate, reference []int) float64 {
	if len(candidate) == 0 || len(reference) == 0 {
		return 0
	}
	logSum := 0.0
	for n := 1; n <= 2; n++ {
		matches, total := ngramMatches(candidate, reference, n)
		if total == 0 {
			// candidate shorter than the n-gram order
			total = 1
		}
		p := float64(matches) / float64(total)
		if matches == 0 {
			p = bleuSmoothEpsilon / float64(total)
		}
		logSum += 0.5 * math.Log(p)
	}
	bp := 1.0
	if len(candidate) < len(reference) {
		bp = math.Exp(1.0 - float64(len(reference))/float64(len(candidate)))
	}
	return bp * math.Exp(logSum)
}

// ngramMatches returns clipped n-gram matches and the candidate n-gram count.
func ngramMatches(candidate, reference []int, n int) (matches, total int) {
	refCounts := make(map[[2]int]int)
	for i := 0; i+n <= len(reference); i++ {
		refCounts[ngramKey(reference, i, n)]++
	}
	candCounts := make(map[[2]int]int)
	for i := 0; i+n <= len(candidate); i++ {
		candCounts[ngramKey(candidate, i, n)]++
		total++
	}
	for key, count := range candCounts {
		matches += min(count, refCounts[key])
	}
	return matches, total
}

func ngramKey(seq []int, i, n int) [2]int {
	key := [2]int{seq[i], -1}
	if n == 2 {
		key[1] = seq[i+1]
	}
	return key
}
