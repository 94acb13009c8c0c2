// Package model implements the encoder/decoder phrase network: a frozen
// embedding lookup, an LSTM encoder, an LSTM decoder seeded with the
// encoder's final state, and a linear projection to vocabulary logits.
package model

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/robot0102/Deep-Reinforcement-Learning-Hands-On/utils"
)

type PhraseModel struct {
	// Emb is (V x E). It is a lookup table only: no gradient ever reaches it.
	Emb *mat.Dense

	VocabSize  int
	EmbDim     int
	HiddenSize int

	Enc, Dec *LSTM

	Wout, Bout   *mat.Dense // (V x H), (V x 1)
	GWout, GBout *mat.Dense
}

func NewPhraseModel(emb *mat.Dense, hiddenSize int) *PhraseModel {
	v, e := emb.Dims()
	return &PhraseModel{
		Emb:        emb,
		VocabSize:  v,
		EmbDim:     e,
		HiddenSize: hiddenSize,
		Enc:        NewLSTM(e, hiddenSize),
		Dec:        NewLSTM(e, hiddenSize),
		Wout:       mat.NewDense(v, hiddenSize, utils.RandomArray(v*hiddenSize, float64(hiddenSize))),
		Bout:       mat.NewDense(v, 1, nil),
		GWout:      mat.NewDense(v, hiddenSize, nil),
		GBout:      mat.NewDense(v, 1, nil),
	}
}

// embed copies row id of the embedding table into an (E x 1) input vector.
func (m *PhraseModel) embed(id int) *mat.Dense {
	out := mat.NewDense(m.EmbDim, 1, nil)
	for j := 0; j < m.EmbDim; j++ {
		out.Set(j, 0, m.Emb.At(id, j))
	}
	return out
}

// EncoderState is a pair's encoded representation plus the caches the
// backward pass needs.
type EncoderState struct {
	H, C  *mat.Dense
	steps []lstmStep
}

// Encode runs the encoder over one index sequence and returns its final
// hidden and cell state.
func (m *PhraseModel) Encode(seq []int) *EncoderState {
	h := mat.NewDense(m.HiddenSize, 1, nil)
	c := mat.NewDense(m.HiddenSize, 1, nil)
	steps := make([]lstmStep, 0, len(seq))
	for _, id := range seq {
		var st lstmStep
		h, c, st = m.Enc.Step(m.embed(id), h, c)
		steps = append(steps, st)
	}
	return &EncoderState{H: h, C: c, steps: steps}
}

// DecodeResult holds the teacher-forced logits for one pair: column t
// predicts outSeq[t+1] given outSeq[t] as input.
type DecodeResult struct {
	Logits *mat.Dense // (V x len(outSeq)-1)
	steps  []lstmStep
	hs     []*mat.Dense
}

// DecodeTeacher decodes one step per target token, feeding the ground-truth
// previous token at every step.
func (m *PhraseModel) DecodeTeacher(enc *EncoderState, outSeq []int) *DecodeResult {
	T := len(outSeq) - 1
	if T < 1 {
		panic(fmt.Sprintf("DecodeTeacher: output sequence too short (%d tokens)", len(outSeq)))
	}
	res := &DecodeResult{
		Logits: mat.NewDense(m.VocabSize, T, nil),
		steps:  make([]lstmStep, 0, T),
		hs:     make([]*mat.Dense, 0, T),
	}
	h, c := enc.H, enc.C
	for t := 0; t < T; t++ {
		var st lstmStep
		h, c, st = m.Dec.Step(m.embed(outSeq[t]), h, c)
		res.steps = append(res.steps, st)
		res.hs = append(res.hs, h)

		logits := utils.ToDense(utils.Dot(m.Wout, h))
		logits.Add(logits, m.Bout)
		for i := 0; i < m.VocabSize; i++ {
			res.Logits.Set(i, t, logits.At(i, 0))
		}
	}
	return res
}

// Backward propagates dLogits (V x T) for one pair back through the output
// projection, the decoder, the encoder's final state and the encoder.
// Gradients accumulate; the embedding table is skipped.
func (m *PhraseModel) Backward(enc *EncoderState, dec *DecodeResult, dLogits *mat.Dense) {
	dh := mat.NewDense(m.HiddenSize, 1, nil)
	dc := mat.NewDense(m.HiddenSize, 1, nil)

	for t := len(dec.steps) - 1; t >= 0; t-- {
		dlog := mat.NewDense(m.VocabSize, 1, nil)
		for i := 0; i < m.VocabSize; i++ {
			dlog.Set(i, 0, dLogits.At(i, t))
		}
		m.GWout.Add(m.GWout, utils.ToDense(utils.Dot(dlog, dec.hs[t].T())))
		m.GBout.Add(m.GBout, dlog)
		dh.Add(dh, utils.ToDense(utils.Dot(m.Wout.T(), dlog)))

		_, dhPrev, dcPrev := m.Dec.StepBackward(dec.steps[t], dh, dc)
		dh, dc = dhPrev, dcPrev
	}

	// dh/dc now carry the gradient wrt the encoder's final state.
	for t := len(enc.steps) - 1; t >= 0; t-- {
		_, dhPrev, dcPrev := m.Enc.StepBackward(enc.steps[t], dh, dc)
		dh, dc = dhPrev, dcPrev
	}
}

// Params lists every trainable parameter. The embedding table is excluded.
func (m *PhraseModel) Params() []*mat.Dense {
	out := append([]*mat.Dense{}, m.Enc.Params()...)
	out = append(out, m.Dec.Params()...)
	return append(out, m.Wout, m.Bout)
}

// Grads lists the accumulated gradients, parallel to Params.
func (m *PhraseModel) Grads() []*mat.Dense {
	out := append([]*mat.Dense{}, m.Enc.Grads()...)
	out = append(out, m.Dec.Grads()...)
	return append(out, m.GWout, m.GBout)
}

func (m *PhraseModel) ZeroGrads() {
	m.Enc.ZeroGrads()
	m.Dec.ZeroGrads()
	m.GWout.Zero()
	m.GBout.Zero()
}

// SeqBLEU scores the argmax decode of teacher-forced logits against the
// reference token indices.
func SeqBLEU(logits *mat.Dense, reference []int) float64 {
	_, T := logits.Dims()
	candidate := make([]int, T)
	for t := 0; t < T; t++ {
		candidate[t] = utils.ArgmaxCol(logits, t)
	}
	return BLEU(candidate, reference)
}
