package optimizations

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Adam keeps first/second moment estimates per parameter matrix and applies
// bias-corrected updates. The parameter list must stay in the same order on
// every Step call.
type Adam struct {
	LR    float64
	Beta1 float64
	Beta2 float64
	Eps   float64

	step int
	m, v []*mat.Dense
}

func NewAdam(lr, beta1, beta2, eps float64, params []*mat.Dense) *Adam {
	a := &Adam{LR: lr, Beta1: beta1, Beta2: beta2, Eps: eps}
	a.m = make([]*mat.Dense, len(params))
	a.v = make([]*mat.Dense, len(params))
	for i, p := range params {
		a.m[i] = zerosLike(p)
		a.v[i] = zerosLike(p)
	}
	return a
}

// Step applies one update to every parameter from its accumulated gradient.
func (a *Adam) Step(params, grads []*mat.Dense) {
	if len(params) != len(a.m) || len(grads) != len(a.m) {
		panic("adam: parameter list changed size")
	}
	a.step++
	for i, p := range params {
		AdamUpdateInPlace(p, grads[i], a.m[i], a.v[i], a.step, a.LR, a.Beta1, a.Beta2, a.Eps)
	}
}

// AdamUpdateInPlace performs p -= lr * mhat / (sqrt(vhat)+eps) with bias
// correction, updating the moment matrices in place.
func AdamUpdateInPlace(p, g, m, v *mat.Dense, t int, lr, beta1, beta2, eps float64) {
	pr, pc := p.Dims()
	if gr, gc := g.Dims(); gr != pr || gc != pc {
		panic("adamUpdateInPlace: grad shape mismatch")
	}
	if mr, mc := m.Dims(); mr != pr || mc != pc {
		panic("adamUpdateInPlace: m shape mismatch")
	}
	if vr, vc := v.Dims(); vr != pr || vc != pc {
		panic("adamUpdateInPlace: v shape mismatch")
	}
	b1t := math.Pow(beta1, float64(t))
	b2t := math.Pow(beta2, float64(t))
	c1 := 1.0 / (1.0 - b1t)
	c2 := 1.0 / (1.0 - b2t)
	for i := 0; i < pr; i++ {
		for j := 0; j < pc; j++ {
			gij := g.At(i, j)
			mij := beta1*m.At(i, j) + (1.0-beta1)*gij
			vij := beta2*v.At(i, j) + (1.0-beta2)*gij*gij
			mhat := mij * c1
			vhat := vij * c2
			p.Set(i, j, p.At(i, j)-lr*mhat/(math.Sqrt(vhat)+eps))
			m.Set(i, j, mij)
			v.Set(i, j, vij)
		}
	}
}

func zerosLike(a *mat.Dense) *mat.Dense {
	r, c := a.Dims()
	return mat.NewDense(r, c, nil)
}
