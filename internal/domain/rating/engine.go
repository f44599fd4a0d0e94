// Package rating computes post-match PMR and reliability updates for doubles
// matches.
//
// The model is Elo-style: each team's expected result comes from its average
// PMR, and the base change is scaled by the game margin and by how surprising
// the winner was. Each player then receives the base change of their team
// multiplied by a volatility factor derived from their own reliability.
// Reliability itself grows along a saturating curve by exactly one match per
// rated match, regardless of the outcome.
//
// Everything here is pure: no I/O, no shared state, float64 throughout, so
// identical inputs always yield identical outputs.
package rating

// minPlayedSets is the number of played sets below which a match is not rated.
const minPlayedSets = 2

// PlayerSnapshot is a player's rating state before a match.
type PlayerSnapshot struct {
	ID          string
	PMR         float64
	Reliability float64
}

// Match is a completed best-of-three doubles match.
type Match struct {
	Team1 [2]PlayerSnapshot
	Team2 [2]PlayerSnapshot
	Sets  [3]SetScore
}

// players returns the four snapshots in result order.
func (m Match) players() [4]PlayerSnapshot {
	return [4]PlayerSnapshot{m.Team1[0], m.Team1[1], m.Team2[0], m.Team2[1]}
}

// Result is one player's rating change.
type Result struct {
	PlayerID            string  `json:"player_id"`
	PreviousPMR         float64 `json:"previous_pmr"`
	NewPMR              float64 `json:"new_pmr"`
	Delta               float64 `json:"delta"`
	PreviousReliability float64 `json:"previous_reliability"`
	NewReliability      float64 `json:"new_reliability"`
	DeltaReliability    float64 `json:"delta_reliability"`
}

// newResult is the only place results are built, so deltas always equal
// new minus previous.
func newResult(prev PlayerSnapshot, newPMR, newReliability float64) Result {
	return Result{
		PlayerID:            prev.ID,
		PreviousPMR:         prev.PMR,
		NewPMR:              newPMR,
		Delta:               newPMR - prev.PMR,
		PreviousReliability: prev.Reliability,
		NewReliability:      newReliability,
		DeltaReliability:    newReliability - prev.Reliability,
	}
}

// Outcome tells how a match was handled by the engine.
type Outcome int

// Outcomes.
const (
	OutcomeRejected Outcome = iota
	OutcomeRated
	OutcomeNoOp
)

func (o Outcome) String() string {
	switch o {
	case OutcomeRated:
		return "rated"
	case OutcomeNoOp:
		return "noop"
	default:
		return "rejected"
	}
}

// Engine applies one Params to matches. It is immutable and safe for
// concurrent use.
type Engine struct {
	params Params
}

// NewEngine returns an engine bound to p.
func NewEngine(p Params) *Engine {
	return &Engine{params: p}
}

// Params returns the engine's parameters.
func (e *Engine) Params() Params { return e.params }

// Update computes the post-match results for the four players of m, in the
// order team1[0], team1[1], team2[0], team2[1].
//
// Incoming ratings are clamped to the configured bounds first. A match with
// fewer than two played sets is not rated: every player keeps their values and
// the outcome is OutcomeNoOp. A match whose played sets are split evenly is
// rejected with ErrUndecidedMatch.
func (e *Engine) Update(m Match) ([4]Result, Outcome, error) {
	p := e.params
	players := clampPlayers(m.players(), p)

	res := ResolveSets(m.Sets)
	if res.Played < minPlayedSets {
		return noOp(players), OutcomeNoOp, nil
	}
	if !res.Decided() {
		return [4]Result{}, OutcomeRejected, ErrUndecidedMatch
	}

	team1 := (players[0].PMR + players[1].PMR) / 2
	team2 := (players[2].PMR + players[3].PMR) / 2
	e1 := ExpectedOutcome(team1, team2, p.EloScale)

	fMargin := MarginFactor(res.Games1, res.Games2, p)
	fUpset := UpsetFactor(e1, res.Winner, p)
	base1, base2 := BaseDelta(e1, res.Winner, fMargin, fUpset, p)

	var out [4]Result
	for i, pl := range players {
		base := base1
		if i >= 2 {
			base = base2
		}
		delta := base * VolatilityMultiplier(pl.Reliability, p)
		newPMR := clamp(pl.PMR+delta, p.PMRMin, p.PMRMax)
		newRel := AdvanceReliability(pl.Reliability, p)
		out[i] = newResult(pl, newPMR, newRel)
	}
	return out, OutcomeRated, nil
}

// NoOpResults returns the unchanged results the engine produces for a match
// it does not rate.
func NoOpResults(m Match, p Params) [4]Result {
	return noOp(clampPlayers(m.players(), p))
}

func noOp(players [4]PlayerSnapshot) [4]Result {
	var out [4]Result
	for i, pl := range players {
		out[i] = newResult(pl, pl.PMR, pl.Reliability)
	}
	return out
}

func clampPlayers(players [4]PlayerSnapshot, p Params) [4]PlayerSnapshot {
	for i := range players {
		players[i].PMR = clamp(players[i].PMR, p.PMRMin, p.PMRMax)
		players[i].Reliability = clamp(players[i].Reliability, p.RelMin, p.RelMax)
	}
	return players
}
