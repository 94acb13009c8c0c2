package model

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"os"

	"gonum.org/v1/gonum/mat"
)

type matData struct {
	Rows, Cols int
	Data       []float64
}

type netData struct {
	VocabSize, EmbDim, HiddenSize int

	EncWx, EncWh, EncB matData
	DecWx, DecWh, DecB matData
	Wout, Bout         matData
}

func packMat(m *mat.Dense) matData {
	r, c := m.Dims()
	raw := mat.DenseCopyOf(m).RawMatrix()
	data := make([]float64, len(raw.Data))
	copy(data, raw.Data)
	return matData{Rows: r, Cols: c, Data: data}
}

func unpackMat(d matData, dst *mat.Dense) error {
	r, c := dst.Dims()
	if d.Rows != r || d.Cols != c {
		return fmt.Errorf("weight shape mismatch: have (%d x %d), checkpoint (%d x %d)", r, c, d.Rows, d.Cols)
	}
	dst.Copy(mat.NewDense(d.Rows, d.Cols, d.Data))
	return nil
}

// SaveWeights serializes every trainable weight to path. The frozen
// embedding table is persisted separately by the data layer and is not part
// of a checkpoint.
func (m *PhraseModel) SaveWeights(path string) error {
	data := netData{
		VocabSize:  m.VocabSize,
		EmbDim:     m.EmbDim,
		HiddenSize: m.HiddenSize,
		EncWx:      packMat(m.Enc.Wx),
		EncWh:      packMat(m.Enc.Wh),
		EncB:       packMat(m.Enc.B),
		DecWx:      packMat(m.Dec.Wx),
		DecWh:      packMat(m.Dec.Wh),
		DecB:       packMat(m.Dec.B),
		Wout:       packMat(m.Wout),
		Bout:       packMat(m.Bout),
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(data); err != nil {
		return fmt.Errorf("encode checkpoint: %w", err)
	}
	return os.WriteFile(path, buf.Bytes(), 0644)
}

// LoadWeights restores weights saved by SaveWeights into a model with
// matching dimensions.
func (m *PhraseModel) LoadWeights(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var data netData
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&data); err != nil {
		return fmt.Errorf("decode checkpoint %s: %w", path, err)
	}
	if data.VocabSize != m.VocabSize || data.EmbDim != m.EmbDim || data.HiddenSize != m.HiddenSize {
		return fmt.Errorf("checkpoint %s is for a (%d, %d, %d) model, have (%d, %d, %d)",
			path, data.VocabSize, data.EmbDim, data.HiddenSize, m.VocabSize, m.EmbDim, m.HiddenSize)
	}
	for _, pair := range []struct {
		src matData
		dst *mat.Dense
	}{
		{data.EncWx, m.Enc.Wx}, {data.EncWh, m.Enc.Wh}, {data.EncB, m.Enc.B},
		{data.DecWx, m.Dec.Wx}, {data.DecWh, m.Dec.Wh}, {data.DecB, m.Dec.B},
		{data.Wout, m.Wout}, {data.Bout, m.Bout},
	} {
		if err := unpackMat(pair.src, pair.dst); err != nil {
			return fmt.Errorf("checkpoint %s: %w", path, err)
		}
	}
	return nil
}
