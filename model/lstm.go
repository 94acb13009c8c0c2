package model

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/robot0102/Deep-Reinforcement-Learning-Hands-On/utils"
)

// LSTM is a single recurrent layer with combined gate weights in the order
// input, forget, cell, output. Wx is (4H x In), Wh is (4H x H), B is (4H x 1).
// Gradients accumulate into GWx/GWh/GB until ZeroGrads.
type LSTM struct {
	InputSize  int
	HiddenSize int

	Wx, Wh, B    *mat.Dense
	GWx, GWh, GB *mat.Dense
}

func NewLSTM(inputSize, hiddenSize int) *LSTM {
	return &LSTM{
		InputSize:  inputSize,
		HiddenSize: hiddenSize,
		Wx:         mat.NewDense(4*hiddenSize, inputSize, utils.RandomArray(4*hiddenSize*inputSize, float64(inputSize))),
		Wh:         mat.NewDense(4*hiddenSize, hiddenSize, utils.RandomArray(4*hiddenSize*hiddenSize, float64(hiddenSize))),
		B:          mat.NewDense(4*hiddenSize, 1, nil),
		GWx:        mat.NewDense(4*hiddenSize, inputSize, nil),
		GWh:        mat.NewDense(4*hiddenSize, hiddenSize, nil),
		GB:         mat.NewDense(4*hiddenSize, 1, nil),
	}
}

// lstmStep caches everything one timestep needs for the backward pass.
type lstmStep struct {
	x, hPrev, cPrev *mat.Dense
	i, f, g, o      *mat.Dense
	tanhC           *mat.Dense
}

func sigmoid(v float64) float64 {
	return 1.0 / (1.0 + math.Exp(-v))
}

// Step advances one timestep: x is (In x 1), hPrev/cPrev are (H x 1).
func (l *LSTM) Step(x, hPrev, cPrev *mat.Dense) (h, c *mat.Dense, st lstmStep) {
	H := l.HiddenSize
	z := utils.ToDense(utils.Dot(l.Wx, x))
	z.Add(z, utils.ToDense(utils.Dot(l.Wh, hPrev)))
	z.Add(z, l.B)

	st = lstmStep{
		x: x, hPrev: hPrev, cPrev: cPrev,
		i: mat.NewDense(H, 1, nil), f: mat.NewDense(H, 1, nil),
		g: mat.NewDense(H, 1, nil), o: mat.NewDense(H, 1, nil),
		tanhC: mat.NewDense(H, 1, nil),
	}
	h = mat.NewDense(H, 1, nil)
	c = mat.NewDense(H, 1, nil)
	for k := 0; k < H; k++ {
		iv := sigmoid(z.At(k, 0))
		fv := sigmoid(z.At(H+k, 0))
		gv := math.Tanh(z.At(2*H+k, 0))
		ov := sigmoid(z.At(3*H+k, 0))
		cv := fv*cPrev.At(k, 0) + iv*gv
		tc := math.Tanh(cv)

		st.i.Set(k, 0, iv)
		st.f.Set(k, 0, fv)
		st.g.Set(k, 0, gv)
		st.o.Set(k, 0, ov)
		st.tanhC.Set(k, 0, tc)
		c.Set(k, 0, cv)
		h.Set(k, 0, ov*tc)
	}
	return h, c, st
}

// StepBackward propagates (dh, dc) through a cached step, accumulating the
// weight gradients and returning the gradients for the step's inputs.
func (l *LSTM) StepBackward(st lstmStep, dh, dc *mat.Dense) (dx, dhPrev, dcPrev *mat.Dense) {
	H := l.HiddenSize
	dz := mat.NewDense(4*H, 1, nil)
	dcPrev = mat.NewDense(H, 1, nil)
	for k := 0; k < H; k++ {
		iv := st.i.At(k, 0)
		fv := st.f.At(k, 0)
		gv := st.g.At(k, 0)
		ov := st.o.At(k, 0)
		tc := st.tanhC.At(k, 0)

		dhv := dh.At(k, 0)
		dcv := dc.At(k, 0) + dhv*ov*(1.0-tc*tc)

		dz.Set(k, 0, dcv*gv*iv*(1.0-iv))
		dz.Set(H+k, 0, dcv*st.cPrev.At(k, 0)*fv*(1.0-fv))
		dz.Set(2*H+k, 0, dcv*iv*(1.0-gv*gv))
		dz.Set(3*H+k, 0, dhv*tc*ov*(1.0-ov))
		dcPrev.Set(k, 0, dcv*fv)
	}

	l.GWx.Add(l.GWx, utils.ToDense(utils.Dot(dz, st.x.T())))
	l.GWh.Add(l.GWh, utils.ToDense(utils.Dot(dz, st.hPrev.T())))
	l.GB.Add(l.GB, dz)

	dx = utils.ToDense(utils.Dot(l.Wx.T(), dz))
	dhPrev = utils.ToDense(utils.Dot(l.Wh.T(), dz))
	return dx, dhPrev, dcPrev
}

func (l *LSTM) Params() []*mat.Dense {
	return []*mat.Dense{l.Wx, l.Wh, l.B}
}

func (l *LSTM) Grads() []*mat.Dense {
	return []*mat.Dense{l.GWx, l.GWh, l.GB}
}

func (l *LSTM) ZeroGrads() {
	l.GWx.Zero()
	l.GWh.Zero()
	l.GB.Zero()
}
