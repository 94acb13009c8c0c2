package utils

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestColVectorSoftmaxSumsToOne(t *testing.T) {
	v := mat.NewDense(4, 1, []float64{1.5, -2.0, 0.0, 3.0})
	p := ColVectorSoftmax(v)
	sum := 0.0
	for i := 0; i < 4; i++ {
		if p.At(i, 0) <= 0 {
			t.Fatalf("probability %d not positive: %v", i, p.At(i, 0))
		}
		sum += p.At(i, 0)
	}
	if math.Abs(sum-1.0) > 1e-12 {
		t.Fatalf("softmax sums to %v, want 1", sum)
	}
}

func TestCrossEntropyWithIndex(t *testing.T) {
	logits := mat.NewDense(3, 1, []float64{0.0, 0.0, 0.0})
	loss, grad := CrossEntropyWithIndex(logits, 1)

	// uniform softmax: loss = ln 3, grad = p - onehot
	if math.Abs(loss-math.Log(3.0)) > 1e-9 {
		t.Fatalf("loss = %v, want ln 3", loss)
	}
	want := mat.NewDense(3, 1, []float64{1.0 / 3, 1.0 / 3, 1.0 / 3})
	want.Sub(want, OneHot(3, 1))
	if !mat.EqualApprox(grad, want, 1e-9) {
		t.Fatalf("grad = %v, want %v", mat.Formatted(grad), mat.Formatted(want))
	}
}

func TestClipGrads(t *testing.T) {
	tests := []struct {
		name     string
		maxNorm  float64
		data     []float64
		wantClip bool
	}{
		{name: "already within bound", maxNorm: 10.0, data: []float64{3.0, 4.0}, wantClip: false},
		{name: "clipped to bound", maxNorm: 1.0, data: []float64{3.0, 4.0}, wantClip: true},
		{name: "disabled", maxNorm: 0.0, data: []float64{30.0, 40.0}, wantClip: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := mat.NewDense(2, 1, append([]float64{}, tt.data...))
			scale := ClipGrads(tt.maxNorm, g)
			if tt.wantClip {
				if scale >= 1.0 {
					t.Fatalf("scale = %v, want < 1", scale)
				}
				if n := MatrixNorm(g); math.Abs(n-tt.maxNorm) > 1e-9 {
					t.Fatalf("norm after clip = %v, want %v", n, tt.maxNorm)
				}
			} else {
				if scale != 1.0 {
					t.Fatalf("scale = %v, want 1", scale)
				}
				for i, v := range tt.data {
					if g.At(i, 0) != v {
						t.Fatalf("grad modified without clipping")
					}
				}
			}
		})
	}
}

func TestClipGradsGlobalNorm(t *testing.T) {
	a := mat.NewDense(1, 1, []float64{3.0})
	b := mat.NewDense(1, 1, []float64{4.0})
	ClipGrads(1.0, a, b)
	global := math.Sqrt(a.At(0, 0)*a.At(0, 0) + b.At(0, 0)*b.At(0, 0))
	if math.Abs(global-1.0) > 1e-9 {
		t.Fatalf("global norm after clip = %v, want 1", global)
	}
	// direction preserved
	if math.Abs(a.At(0, 0)/b.At(0, 0)-3.0/4.0) > 1e-9 {
		t.Fatalf("clip changed gradient direction")
	}
}

func TestArgmaxCol(t *testing.T) {
	m := mat.NewDense(3, 2, []float64{
		0.1, 5.0,
		2.0, -1.0,
		0.5, 4.9,
	})
	if got := ArgmaxCol(m, 0); got != 1 {
		t.Fatalf("ArgmaxCol(.., 0) = %d, want 1", got)
	}
	if got := ArgmaxCol(m, 1); got != 0 {
		t.Fatalf("ArgmaxCol(.., 1) = %d, want 0", got)
	}
}
