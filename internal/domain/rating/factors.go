package rating

import "math"

// ExpectedOutcome returns the logistic probability that team 1 beats team 2
// given their average ratings.
func ExpectedOutcome(teamPMR1, teamPMR2, eloScale float64) float64 {
	return 1 / (1 + math.Pow(10, -(teamPMR1-teamPMR2)/eloScale))
}

// MarginFactor scales the change by how lopsided the games were. The result
// lies in [MarginMin, 1].
func MarginFactor(games1, games2 int, p Params) float64 {
	diff := games1 - games2
	if diff < 0 {
		diff = -diff
	}
	total := max(1, games1+games2)
	m := float64(diff) / float64(total)
	return p.MarginMin + (1-p.MarginMin)*math.Pow(m, p.MarginGamma)
}

// UpsetFactor amplifies the change by how unlikely the actual winner was.
// It is never below 1.
func UpsetFactor(e1 float64, winner Team, p Params) float64 {
	surprise := e1
	if winner == Team1 {
		surprise = 1 - e1
	}
	return 1 + p.UpsetBeta*math.Pow(surprise, p.UpsetGamma)
}

// BaseDelta returns the team-level rating change before per-player
// volatility. team2 is always the exact negation of team1.
func BaseDelta(e1 float64, winner Team, fMargin, fUpset float64, p Params) (team1, team2 float64) {
	actual := 0.0
	if winner == Team1 {
		actual = 1
	}
	team1 = p.K * (actual - e1) * fMargin * fUpset
	return team1, -team1
}

// clamp bounds x to [lo, hi]. NaN maps to lo.
func clamp(x, lo, hi float64) float64 {
	if math.IsNaN(x) || x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
