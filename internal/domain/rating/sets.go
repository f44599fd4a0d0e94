package rating

// Team identifies one side of a doubles match.
type Team int

// Teams.
const (
	Team1 Team = iota + 1
	Team2
)

func (t Team) String() string {
	switch t {
	case Team1:
		return "team1"
	case Team2:
		return "team2"
	default:
		return "none"
	}
}

// SetScore is either a played set with both game counts or an unplayed set.
// The zero value is an unplayed set.
type SetScore struct {
	played bool
	team1  int
	team2  int
}

// Played returns a played set. Negative game counts are treated as zero.
func Played(team1Games, team2Games int) SetScore {
	return SetScore{played: true, team1: max(0, team1Games), team2: max(0, team2Games)}
}

// NotPlayed returns an unplayed set.
func NotPlayed() SetScore { return SetScore{} }

// IsPlayed reports whether the set was played.
func (s SetScore) IsPlayed() bool { return s.played }

// Games returns the game counts of a played set, or zeros.
func (s SetScore) Games() (team1, team2 int) { return s.team1, s.team2 }

// Resolution summarises the played sets of a match.
type Resolution struct {
	Played int // number of played sets
	Wins1  int // sets won by team 1
	Wins2  int // sets won by team 2
	Games1 int // games won by team 1 over played sets
	Games2 int // games won by team 2 over played sets
	Winner Team
}

// Decided reports whether one team won strictly more sets than the other.
func (r Resolution) Decided() bool { return r.Wins1 != r.Wins2 }

// ResolveSets counts played sets and their games and names the team with the
// majority of set wins. A played set with equal games counts for neither team.
func ResolveSets(sets [3]SetScore) Resolution {
	var r Resolution
	for _, s := range sets {
		if !s.played {
			continue
		}
		r.Played++
		r.Games1 += s.team1
		r.Games2 += s.team2
		switch {
		case s.team1 > s.team2:
			r.Wins1++
		case s.team2 > s.team1:
			r.Wins2++
		}
	}
	switch {
	case r.Wins1 > r.Wins2:
		r.Winner = Team1
	case r.Wins2 > r.Wins1:
		r.Winner = Team2
	}
	return r
}
