package ds1000z

import (
	"math"

	"github.com/shopspring/decimal"
)

// The instrument only accepts settings on a 1-2-5 per decade ladder.
// Bounds are fixed properties of the DS1000Z family.
var stepMantissae = []int64{1, 2, 5}

const (
	probeRatioMin = 1e-2
	probeRatioMax = 1e3

	timebaseScaleMin = 5e-9
	timebaseScaleMax = 5e1

	channelScaleMin = 1e-3
	channelScaleMax = 1e1
)

// quantizedValues builds the ordered list of hardware-legal values
// between min and max: each mantissa in turn, stepping the decade
// exponent on wraparound.  The composition is done in decimal so the
// ladder does not accumulate binary rounding drift across decades.
func quantizedValues(min, max float64, mantissae []int64) []float64 {
	ten := decimal.NewFromInt(10)
	one := decimal.NewFromInt(1)
	hi := decimal.NewFromFloat(max)

	// normalize min to mantissa*10^exp with mantissa in [1, 10)
	d := decimal.NewFromFloat(min)
	exp := int32(0)
	for d.GreaterThanOrEqual(ten) {
		d = d.Div(ten)
		exp++
	}
	for d.LessThan(one) {
		d = d.Mul(ten)
		exp--
	}
	i := 0
	for i < len(mantissae)-1 && decimal.NewFromInt(mantissae[i]).LessThan(d) {
		i++
	}

	var out []float64
	for {
		v := decimal.New(mantissae[i], exp)
		if v.GreaterThan(hi) {
			break
		}
		f, _ := v.Float64()
		out = append(out, f)
		i++
		if i == len(mantissae) {
			i = 0
			exp++
		}
	}
	return out
}

// snap returns the candidate nearest to value.  Candidates are ordered
// ascending and the first minimum wins, so ties break toward the lower
// candidate.
func snap(value float64, candidates []float64) float64 {
	best := candidates[0]
	bestDist := math.Abs(value - candidates[0])
	for _, c := range candidates[1:] {
		if d := math.Abs(value - c); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}

func (s *Scope) probeLadder() []float64 {
	if s.probeSteps == nil {
		s.probeSteps = quantizedValues(probeRatioMin, probeRatioMax, stepMantissae)
	}
	return s.probeSteps
}

func (s *Scope) timebaseLadder() []float64 {
	if s.timebaseSteps == nil {
		s.timebaseSteps = quantizedValues(timebaseScaleMin, timebaseScaleMax, stepMantissae)
	}
	return s.timebaseSteps
}

func (s *Scope) scaleLadder() []float64 {
	if s.scaleSteps == nil {
		s.scaleSteps = quantizedValues(channelScaleMin, channelScaleMax, stepMantissae)
	}
	return s.scaleSteps
}
