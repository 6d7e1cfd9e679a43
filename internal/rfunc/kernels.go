package rfunc

import (
	"math"

	"gonum.org/v1/gonum/mathext"

	"github.com/roach88/pastas/internal/param"
)

// Exponential is the response A(1 - exp(-t/a)).
type Exponential struct {
	Up     bool
	Cutoff float64
}

// NewExponential returns an exponential response with the default cutoff.
func NewExponential(up bool) *Exponential {
	return &Exponential{Up: up, Cutoff: DefaultCutoff}
}

func (e *Exponential) Kind() string { return "Exponential" }
func (e *Exponential) NParam() int  { return 2 }

func (e *Exponential) Parameters(component string, meanStress float64) param.Table {
	return param.Table{
		gain(component, e.Up, meanStress),
		param.New(component, "a", 10, 0.01, 5000),
	}
}

func (e *Exponential) tmax(a float64) float64 {
	return -a * math.Log(1-e.Cutoff)
}

func (e *Exponential) Step(p []float64, dt float64) []float64 {
	A, a := p[0], p[1]
	t := times(e.tmax(a), dt)
	s := make([]float64, len(t))
	for i, ti := range t {
		s[i] = A * (1 - math.Exp(-ti/a))
	}
	return s
}

func (e *Exponential) Block(p []float64, dt float64) []float64 {
	return blockFromStep(e.Step(p, dt))
}

func (e *Exponential) Dump() Dump {
	return Dump{Kind: e.Kind(), Up: boolPtr(e.Up), Cutoff: e.Cutoff}
}

// Gamma is the response A * P(n, t/a), with P the regularized lower
// incomplete gamma function.
type Gamma struct {
	Up     bool
	Cutoff float64
}

// NewGamma returns a gamma response with the default cutoff.
func NewGamma(up bool) *Gamma {
	return &Gamma{Up: up, Cutoff: DefaultCutoff}
}

func (g *Gamma) Kind() string { return "Gamma" }
func (g *Gamma) NParam() int  { return 3 }

func (g *Gamma) Parameters(component string, meanStress float64) param.Table {
	return param.Table{
		gain(component, g.Up, meanStress),
		param.New(component, "n", 1, 0.1, 10),
		param.New(component, "a", 10, 0.01, 5000),
	}
}

func (g *Gamma) tmax(n, a float64) float64 {
	return mathext.GammaIncRegInv(n, g.Cutoff) * a
}

func (g *Gamma) Step(p []float64, dt float64) []float64 {
	A, n, a := p[0], p[1], p[2]
	t := times(g.tmax(n, a), dt)
	s := make([]float64, len(t))
	for i, ti := range t {
		s[i] = A * mathext.GammaIncReg(n, ti/a)
	}
	return s
}

func (g *Gamma) Block(p []float64, dt float64) []float64 {
	return blockFromStep(g.Step(p, dt))
}

func (g *Gamma) Dump() Dump {
	return Dump{Kind: g.Kind(), Up: boolPtr(g.Up), Cutoff: g.Cutoff}
}

// One is an instantaneous response of size d with no memory.
type One struct {
	Up bool
}

// NewOne returns an instantaneous response.
func NewOne(up bool) *One {
	return &One{Up: up}
}

func (o *One) Kind() string { return "One" }
func (o *One) NParam() int  { return 1 }

func (o *One) Parameters(component string, meanStress float64) param.Table {
	m := gainScale(meanStress)
	if o.Up {
		return param.Table{param.New(component, "d", 1, 0, 100/m)}
	}
	return param.Table{param.New(component, "d", -1, -100/m, 0)}
}

func (o *One) Step(p []float64, dt float64) []float64 {
	return []float64{p[0]}
}

func (o *One) Block(p []float64, dt float64) []float64 {
	return []float64{p[0]}
}

func (o *One) Dump() Dump {
	return Dump{Kind: o.Kind(), Up: boolPtr(o.Up)}
}
