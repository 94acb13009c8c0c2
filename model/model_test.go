package model

import (
	"path/filepath"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/robot0102/Deep-Reinforcement-Learning-Hands-On/utils"
)

func tinyModel() *PhraseModel {
	emb := mat.NewDense(5, 3, []float64{
		0.1, -0.2, 0.3,
		-0.1, 0.2, 0.05,
		0.4, 0.0, -0.3,
		-0.25, 0.15, 0.2,
		0.05, -0.05, 0.1,
	})
	return NewPhraseModel(emb, 4)
}

func TestDecodeTeacherShapes(t *testing.T) {
	m := tinyModel()
	in := []int{0, 2, 1}
	out := []int{0, 3, 4, 1}

	enc := m.Encode(in)
	if r, c := enc.H.Dims(); r != 4 || c != 1 {
		t.Fatalf("encoder state dims = (%d, %d), want (4, 1)", r, c)
	}

	dec := m.DecodeTeacher(enc, out)
	if r, c := dec.Logits.Dims(); r != 5 || c != 3 {
		t.Fatalf("logits dims = (%d, %d), want (5, 3)", r, c)
	}
}

func TestDecodeTeacherShortSequencePanics(t *testing.T) {
	m := tinyModel()
	enc := m.Encode([]int{0, 1})
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on single-token output sequence")
		}
	}()
	m.DecodeTeacher(enc, []int{0})
}

// pairLoss is the per-token mean cross entropy over one teacher-forced pair,
// with its logit gradients already scaled by 1/T.
func pairLoss(m *PhraseModel, in, out []int) (float64, *EncoderState, *DecodeResult, *mat.Dense) {
	enc := m.Encode(in)
	dec := m.DecodeTeacher(enc, out)
	T := len(out) - 1

	dLogits := mat.NewDense(m.VocabSize, T, nil)
	loss := 0.0
	for t := 0; t < T; t++ {
		col := mat.NewDense(m.VocabSize, 1, nil)
		for i := 0; i < m.VocabSize; i++ {
			col.Set(i, 0, dec.Logits.At(i, t))
		}
		l, g := utils.CrossEntropyWithIndex(col, out[t+1])
		loss += l
		for i := 0; i < m.VocabSize; i++ {
			dLogits.Set(i, t, g.At(i, 0)/float64(T))
		}
	}
	return loss / float64(T), enc, dec, dLogits
}

func TestBackwardFiniteDiff(t *testing.T) {
	m := tinyModel()
	in := []int{0, 2, 3, 1}
	out := []int{0, 4, 2, 1}

	forward := func() float64 {
		l, _, _, _ := pairLoss(m, in, out)
		return l
	}

	m.ZeroGrads()
	_, enc, dec, dLogits := pairLoss(m, in, out)
	m.Backward(enc, dec, dLogits)

	checks := []struct {
		name        string
		param, grad *mat.Dense
		i, j        int
	}{
		{"Enc.Wx", m.Enc.Wx, m.Enc.GWx, 0, 0},
		{"Enc.Wh", m.Enc.Wh, m.Enc.GWh, 5, 2},
		{"Enc.B", m.Enc.B, m.Enc.GB, 9, 0},
		{"Dec.Wx", m.Dec.Wx, m.Dec.GWx, 7, 1},
		{"Dec.Wh", m.Dec.Wh, m.Dec.GWh, 12, 3},
		{"Dec.B", m.Dec.B, m.Dec.GB, 3, 0},
		{"Wout", m.Wout, m.GWout, 2, 1},
		{"Bout", m.Bout, m.GBout, 4, 0},
	}
	for _, ck := range checks {
		finiteDiffCheck(t, ck.name, ck.param, ck.grad, forward, ck.i, ck.j)
	}
}

func TestEmbeddingStaysFrozen(t *testing.T) {
	m := tinyModel()
	before := mat.DenseCopyOf(m.Emb)

	_, enc, dec, dLogits := pairLoss(m, []int{0, 2, 1}, []int{0, 3, 1})
	m.Backward(enc, dec, dLogits)

	if !mat.EqualApprox(before, m.Emb, 0) {
		t.Fatal("embedding table changed during backward pass")
	}
	for _, p := range m.Params() {
		if p == m.Emb {
			t.Fatal("embedding table listed as a trainable parameter")
		}
	}
}

func TestSaveLoadWeightsRoundTrip(t *testing.T) {
	m := tinyModel()
	path := filepath.Join(t.TempDir(), "pre_bleu_0.100_01.dat")
	if err := m.SaveWeights(path); err != nil {
		t.Fatalf("SaveWeights: %v", err)
	}

	m2 := tinyModel()
	if err := m2.LoadWeights(path); err != nil {
		t.Fatalf("LoadWeights: %v", err)
	}
	for i, p := range m.Params() {
		if !mat.EqualApprox(p, m2.Params()[i], 0) {
			t.Fatalf("param %d differs after reload", i)
		}
	}
}

func TestLoadWeightsDimensionMismatch(t *testing.T) {
	m := tinyModel()
	path := filepath.Join(t.TempDir(), "pre_bleu_0.100_01.dat")
	if err := m.SaveWeights(path); err != nil {
		t.Fatalf("SaveWeights: %v", err)
	}

	other := NewPhraseModel(mat.NewDense(5, 3, nil), 6)
	if err := other.LoadWeights(path); err == nil {
		t.Fatal("expected error loading checkpoint into mismatched model")
	}
}
