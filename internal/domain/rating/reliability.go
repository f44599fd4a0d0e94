package rating

import "math"

// ReliabilityFromMatches maps a virtual match count n to a reliability score
// R(n) = 100 * (1 - e^(-n/tau))^gamma.
func ReliabilityFromMatches(n float64, p Params) float64 {
	switch {
	case math.IsInf(n, 1):
		return reliabilityCeiling
	case n <= 0 || math.IsNaN(n):
		return 0
	}
	return reliabilityCeiling * math.Pow(-math.Expm1(-n/p.RelTau), p.RelCurveGamma)
}

// MatchesFromReliability inverts ReliabilityFromMatches. A saturated
// reliability (>= 100) maps to +Inf.
func MatchesFromReliability(r float64, p Params) float64 {
	switch {
	case r >= reliabilityCeiling:
		return math.Inf(1)
	case r <= 0 || math.IsNaN(r):
		return 0
	}
	x := math.Pow(r/reliabilityCeiling, 1/p.RelCurveGamma)
	return -p.RelTau * math.Log1p(-x)
}

// AdvanceReliability returns the reliability after exactly one more rated
// match. The result never drops below r and is clamped to [RelMin, RelMax].
func AdvanceReliability(r float64, p Params) float64 {
	n := MatchesFromReliability(r, p)
	next := ReliabilityFromMatches(n+1, p)
	// The inverse round-trip loses a few ulps close to saturation.
	next = math.Max(next, r)
	return clamp(next, p.RelMin, p.RelMax)
}

// VolatilityMultiplier maps a player's reliability to the factor applied to
// their team's base delta: VMax at reliability 0, falling to 1 at 100.
func VolatilityMultiplier(reliability float64, p Params) float64 {
	r := clamp(reliability, 0, reliabilityCeiling)
	return 1 + (p.VMax-1)*math.Pow(1-r/reliabilityCeiling, p.VGamma)
}
