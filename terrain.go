/*
Copyright © 2026 the demgen authors.
This file is part of demgen.

demgen is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

demgen is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with demgen.  If not, see <http://www.gnu.org/licenses/>.*/

package demgen

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/Knetic/govaluate"
	"github.com/ojrac/opensimplex-go"
	"gonum.org/v1/gonum/stat/distuv"
)

// TerrainParams holds the parameters of the synthetic relief.
//
//	elevation(X, Y) = Base
//	    + HillAmplitude * sin(X/HillPeriod) * cos(Y/HillPeriod)
//	    + RidgeAmplitude * sin(X/RidgePeriod)
//	    + SlopeAmplitude * cos(Y/SlopePeriod)
//	    + RoughnessAmplitude * simplex(X/RoughnessScale, Y/RoughnessScale)
//	    + N(0, NoiseStdDev)
//
// where X runs along columns and Y along rows, both linearly spaced
// over [0, AxisExtent].
type TerrainParams struct {
	Base                        float64
	HillAmplitude, HillPeriod   float64
	RidgeAmplitude, RidgePeriod float64
	SlopeAmplitude, SlopePeriod float64
	NoiseStdDev                 float64
	AxisExtent                  float64

	// RoughnessAmplitude scales a seeded OpenSimplex noise layer.
	// Zero disables it.
	RoughnessAmplitude, RoughnessScale float64

	// Expression, if not empty, replaces the closed-form relief above
	// (but not the noise). It is evaluated with variables X and Y and
	// may call sin, cos, exp, sqrt and abs.
	Expression string
}

// DefaultTerrainParams returns gently rolling terrain around 100 m
// with 0.1 m of noise.
func DefaultTerrainParams() TerrainParams {
	return TerrainParams{
		Base:           100,
		HillAmplitude:  5,
		HillPeriod:     3,
		RidgeAmplitude: 3,
		RidgePeriod:    5,
		SlopeAmplitude: 2,
		SlopePeriod:    4,
		NoiseStdDev:    0.1,
		AxisExtent:     10,
		RoughnessScale: 1,
	}
}

// Validate checks that the parameters describe a finite surface.
func (p TerrainParams) Validate() error {
	for name, v := range map[string]float64{
		"HillPeriod":  p.HillPeriod,
		"RidgePeriod": p.RidgePeriod,
		"SlopePeriod": p.SlopePeriod,
	} {
		if v <= 0 {
			return fmt.Errorf("demgen: terrain parameter %s=%g but should be >0", name, v)
		}
	}
	if p.NoiseStdDev < 0 {
		return fmt.Errorf("demgen: terrain parameter NoiseStdDev=%g but should be >=0", p.NoiseStdDev)
	}
	if p.RoughnessAmplitude != 0 && !(p.RoughnessScale > 0) {
		return fmt.Errorf("demgen: terrain parameter RoughnessScale=%g but should be >0", p.RoughnessScale)
	}
	if p.AxisExtent < 0 {
		return fmt.Errorf("demgen: terrain parameter AxisExtent=%g but should be >=0", p.AxisExtent)
	}
	if p.Expression != "" {
		if _, err := p.relief(); err != nil {
			return err
		}
	}
	return nil
}

// reliefFunc returns the noise-free elevation at axis coordinates (x, y).
type reliefFunc func(x, y float64) (float64, error)

func (p TerrainParams) relief() (reliefFunc, error) {
	if p.Expression == "" {
		return func(x, y float64) (float64, error) {
			return p.Base +
				p.HillAmplitude*math.Sin(x/p.HillPeriod)*math.Cos(y/p.HillPeriod) +
				p.RidgeAmplitude*math.Sin(x/p.RidgePeriod) +
				p.SlopeAmplitude*math.Cos(y/p.SlopePeriod), nil
		}, nil
	}
	expr, err := govaluate.NewEvaluableExpressionWithFunctions(p.Expression, exprFunctions)
	if err != nil {
		return nil, fmt.Errorf("demgen: parsing terrain expression %q: %w", p.Expression, err)
	}
	return func(x, y float64) (float64, error) {
		r, err := expr.Evaluate(map[string]interface{}{"X": x, "Y": y})
		if err != nil {
			return math.NaN(), fmt.Errorf("demgen: evaluating terrain expression %q: %w", p.Expression, err)
		}
		v, ok := r.(float64)
		if !ok {
			return math.NaN(), fmt.Errorf("demgen: terrain expression %q returned %T, not a number", p.Expression, r)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return math.NaN(), fmt.Errorf("demgen: terrain expression %q is %g at X=%g, Y=%g", p.Expression, v, x, y)
		}
		return v, nil
	}, nil
}

var exprFunctions = map[string]govaluate.ExpressionFunction{
	"sin":  unary("sin", math.Sin),
	"cos":  unary("cos", math.Cos),
	"exp":  unary("exp", math.Exp),
	"sqrt": unary("sqrt", math.Sqrt),
	"abs":  unary("abs", math.Abs),
}

func unary(name string, f func(float64) float64) govaluate.ExpressionFunction {
	return func(args ...interface{}) (interface{}, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("%s takes 1 argument but got %d", name, len(args))
		}
		v, ok := args[0].(float64)
		if !ok {
			return nil, fmt.Errorf("%s: argument %v is not a number", name, args[0])
		}
		return f(v), nil
	}
}

// linspace returns n evenly spaced values from start to stop inclusive.
// A single sample is start.
func linspace(start, stop float64, n int) []float64 {
	o := make([]float64, n)
	if n == 1 {
		o[0] = start
		return o
	}
	step := (stop - start) / float64(n-1)
	for i := range o {
		o[i] = start + float64(i)*step
	}
	o[n-1] = stop
	return o
}

// GenerateTerrain creates a bare-earth elevation grid with the given
// number of rows and columns. Noise is drawn in row-major order from a
// normal distribution seeded with seed; if p.NoiseStdDev is zero no
// draws are made. The roughness layer, if any, is seeded with seed too.
func GenerateTerrain(rows, cols int, place Placement, p TerrainParams, seed uint64) (*Grid, error) {
	g, err := NewGrid(rows, cols, place)
	if err != nil {
		return nil, err
	}
	if err = p.Validate(); err != nil {
		return nil, err
	}
	f, err := p.relief()
	if err != nil {
		return nil, err
	}
	xs := linspace(0, p.AxisExtent, cols)
	ys := linspace(0, p.AxisExtent, rows)

	var noise *distuv.Normal
	if p.NoiseStdDev > 0 {
		noise = &distuv.Normal{
			Mu:    0,
			Sigma: p.NoiseStdDev,
			Src:   rand.NewPCG(seed, seed^pcgStream),
		}
	}
	var rough func(x, y float64) float64
	if p.RoughnessAmplitude != 0 {
		rough = opensimplex.New(int64(seed)).Eval2
	}
	for j, y := range ys {
		for i, x := range xs {
			v, err := f(x, y)
			if err != nil {
				return nil, err
			}
			if rough != nil {
				v += p.RoughnessAmplitude * rough(x/p.RoughnessScale, y/p.RoughnessScale)
			}
			if noise != nil {
				v += noise.Rand()
			}
			g.Data.Set(v, j, i)
		}
	}
	if err := g.checkFinite(); err != nil {
		return nil, err
	}
	return g, nil
}

// pcgStream separates the second PCG word from the seed.
const pcgStream = 0xda3e39cb94b95bdb
