package rating_test

import (
	"math"
	"testing"

	"github.com/okian/pmr/internal/domain/rating"
	. "github.com/smartystreets/goconvey/convey"
)

func snapshot(id string, pmr, rel float64) rating.PlayerSnapshot {
	return rating.PlayerSnapshot{ID: id, PMR: pmr, Reliability: rel}
}

func evenMatch(sets ...rating.SetScore) rating.Match {
	m := rating.Match{
		Team1: [2]rating.PlayerSnapshot{snapshot("a", 5, 50), snapshot("b", 5, 50)},
		Team2: [2]rating.PlayerSnapshot{snapshot("c", 5, 50), snapshot("d", 5, 50)},
	}
	copy(m.Sets[:], sets)
	return m
}

func TestEngine_ReferenceScenario(t *testing.T) {
	Convey("Given four players at 5.0 PMR and 50 reliability", t, func() {
		engine := rating.NewEngine(rating.DefaultParams())
		m := evenMatch(rating.Played(6, 3), rating.Played(6, 4), rating.NotPlayed())

		Convey("When team 1 wins 6-3 6-4", func() {
			results, outcome, err := engine.Update(m)

			Convey("Then the match is rated", func() {
				So(err, ShouldBeNil)
				So(outcome, ShouldEqual, rating.OutcomeRated)
			})

			Convey("And the intermediate factors match the model", func() {
				p := rating.DefaultParams()
				e1 := rating.ExpectedOutcome(5, 5, p.EloScale)
				So(e1, ShouldEqual, 0.5)

				fMargin := rating.MarginFactor(12, 7, p)
				So(fMargin, ShouldAlmostEqual, 0.382, 0.001)

				fUpset := rating.UpsetFactor(e1, rating.Team1, p)
				So(fUpset, ShouldAlmostEqual, 1.348, 0.001)

				base1, _ := rating.BaseDelta(e1, rating.Team1, fMargin, fUpset, p)
				So(base1, ShouldAlmostEqual, 0.0644, 0.0001)

				So(rating.VolatilityMultiplier(50, p), ShouldAlmostEqual, 1.871, 0.001)
			})

			Convey("And winners gain what losers lose", func() {
				for _, r := range results[:2] {
					So(r.Delta, ShouldAlmostEqual, 0.12, 0.005)
					So(r.NewPMR, ShouldAlmostEqual, 5.12, 0.005)
				}
				for _, r := range results[2:] {
					So(r.Delta, ShouldAlmostEqual, -0.12, 0.005)
					So(r.NewPMR, ShouldAlmostEqual, 4.88, 0.005)
				}
				So(results[0].Delta, ShouldAlmostEqual, -results[2].Delta, 1e-12)
			})

			Convey("And every player's reliability grows by the same amount", func() {
				for _, r := range results {
					So(r.PreviousReliability, ShouldEqual, 50)
					So(r.NewReliability, ShouldAlmostEqual, 50.9, 0.1)
					So(r.NewReliability, ShouldEqual, results[0].NewReliability)
				}
			})

			Convey("And results keep the input player order", func() {
				ids := []string{results[0].PlayerID, results[1].PlayerID, results[2].PlayerID, results[3].PlayerID}
				So(ids, ShouldResemble, []string{"a", "b", "c", "d"})
			})
		})
	})
}

func TestEngine_Properties(t *testing.T) {
	Convey("Given the default engine", t, func() {
		p := rating.DefaultParams()
		engine := rating.NewEngine(p)

		Convey("When ratings and reliabilities differ across players", func() {
			m := rating.Match{
				Team1: [2]rating.PlayerSnapshot{snapshot("a", 2.3, 0), snapshot("b", 7.1, 95)},
				Team2: [2]rating.PlayerSnapshot{snapshot("c", 4.4, 12.5), snapshot("d", 6.0, 100)},
				Sets:  [3]rating.SetScore{rating.Played(4, 6), rating.Played(7, 6), rating.Played(6, 0)},
			}
			results, outcome, err := engine.Update(m)
			So(err, ShouldBeNil)
			So(outcome, ShouldEqual, rating.OutcomeRated)

			Convey("Then every output stays within bounds", func() {
				for _, r := range results {
					So(r.NewPMR, ShouldBeBetweenOrEqual, p.PMRMin, p.PMRMax)
					So(r.NewReliability, ShouldBeBetweenOrEqual, p.RelMin, p.RelMax)
				}
			})

			Convey("And deltas are exactly new minus previous", func() {
				for _, r := range results {
					So(r.Delta, ShouldEqual, r.NewPMR-r.PreviousPMR)
					So(r.DeltaReliability, ShouldEqual, r.NewReliability-r.PreviousReliability)
				}
			})

			Convey("And reliability grows unless already saturated", func() {
				So(results[0].NewReliability, ShouldBeGreaterThan, results[0].PreviousReliability)
				So(results[1].NewReliability, ShouldBeGreaterThan, results[1].PreviousReliability)
				So(results[2].NewReliability, ShouldBeGreaterThan, results[2].PreviousReliability)
				So(results[3].NewReliability, ShouldEqual, 100)
				So(results[3].DeltaReliability, ShouldEqual, 0)
			})

			Convey("And the less reliable teammate moves further", func() {
				So(math.Abs(results[0].Delta), ShouldBeGreaterThan, math.Abs(results[1].Delta))
				So(math.Abs(results[2].Delta), ShouldBeGreaterThan, math.Abs(results[3].Delta))
			})

			Convey("And a second run yields identical results", func() {
				again, _, err := engine.Update(m)
				So(err, ShouldBeNil)
				So(again, ShouldResemble, results)
			})
		})

		Convey("When the underdog wins", func() {
			upset := rating.Match{
				Team1: [2]rating.PlayerSnapshot{snapshot("a", 2, 50), snapshot("b", 2, 50)},
				Team2: [2]rating.PlayerSnapshot{snapshot("c", 6, 50), snapshot("d", 6, 50)},
				Sets:  [3]rating.SetScore{rating.Played(6, 4), rating.Played(6, 4)},
			}
			expected := upset
			expected.Sets = [3]rating.SetScore{rating.Played(4, 6), rating.Played(4, 6)}

			upsetResults, _, err := engine.Update(upset)
			So(err, ShouldBeNil)
			expectedResults, _, err := engine.Update(expected)
			So(err, ShouldBeNil)

			Convey("Then the swing is larger than when the favourite wins", func() {
				So(upsetResults[0].Delta, ShouldBeGreaterThan, 0)
				So(expectedResults[0].Delta, ShouldBeLessThan, 0)
				So(upsetResults[0].Delta, ShouldBeGreaterThan, math.Abs(expectedResults[0].Delta))
			})
		})

		Convey("When a player is already at the rating ceiling and wins", func() {
			m := rating.Match{
				Team1: [2]rating.PlayerSnapshot{snapshot("a", 8.9, 0), snapshot("b", 8.9, 0)},
				Team2: [2]rating.PlayerSnapshot{snapshot("c", 8.0, 0), snapshot("d", 8.0, 0)},
				Sets:  [3]rating.SetScore{rating.Played(6, 0), rating.Played(6, 0)},
			}
			results, _, err := engine.Update(m)
			So(err, ShouldBeNil)

			Convey("Then the rating stays exactly at the ceiling", func() {
				So(results[0].NewPMR, ShouldEqual, 8.9)
				So(results[1].NewPMR, ShouldEqual, 8.9)
			})
		})

		Convey("When a player at the rating floor loses", func() {
			m := rating.Match{
				Team1: [2]rating.PlayerSnapshot{snapshot("a", 0.1, 0), snapshot("b", 0.1, 0)},
				Team2: [2]rating.PlayerSnapshot{snapshot("c", 3, 0), snapshot("d", 3, 0)},
				Sets:  [3]rating.SetScore{rating.Played(0, 6), rating.Played(0, 6)},
			}
			results, _, err := engine.Update(m)
			So(err, ShouldBeNil)

			Convey("Then the rating stays exactly at the floor", func() {
				So(results[0].NewPMR, ShouldEqual, 0.1)
				So(results[1].NewPMR, ShouldEqual, 0.1)
			})
		})

		Convey("When inputs are outside the valid ranges", func() {
			m := rating.Match{
				Team1: [2]rating.PlayerSnapshot{snapshot("a", 12, 140), snapshot("b", -3, -20)},
				Team2: [2]rating.PlayerSnapshot{snapshot("c", 5, 50), snapshot("d", math.NaN(), 50)},
				Sets:  [3]rating.SetScore{rating.Played(6, 2), rating.Played(6, 2)},
			}
			results, _, err := engine.Update(m)
			So(err, ShouldBeNil)

			Convey("Then they are clamped before use", func() {
				So(results[0].PreviousPMR, ShouldEqual, 8.9)
				So(results[0].PreviousReliability, ShouldEqual, 100)
				So(results[1].PreviousPMR, ShouldEqual, 0.1)
				So(results[1].PreviousReliability, ShouldEqual, 0)
				So(results[3].PreviousPMR, ShouldEqual, 0.1)
			})
		})
	})
}

func TestEngine_FailSafe(t *testing.T) {
	Convey("Given a match with fewer than two played sets", t, func() {
		engine := rating.NewEngine(rating.DefaultParams())

		for _, m := range []rating.Match{
			evenMatch(),
			evenMatch(rating.Played(6, 1)),
			evenMatch(rating.NotPlayed(), rating.NotPlayed(), rating.Played(7, 5)),
		} {
			results, outcome, err := engine.Update(m)

			So(err, ShouldBeNil)
			So(outcome, ShouldEqual, rating.OutcomeNoOp)
			So(results, ShouldResemble, rating.NoOpResults(m, rating.DefaultParams()))
			for _, r := range results {
				So(r.Delta, ShouldEqual, 0)
				So(r.DeltaReliability, ShouldEqual, 0)
				So(r.NewPMR, ShouldEqual, r.PreviousPMR)
				So(r.NewReliability, ShouldEqual, r.PreviousReliability)
			}
		}
	})
}

func TestEngine_UndecidedMatch(t *testing.T) {
	Convey("Given two played sets split one-all", t, func() {
		engine := rating.NewEngine(rating.DefaultParams())
		m := evenMatch(rating.Played(6, 3), rating.Played(3, 6), rating.NotPlayed())

		Convey("When the engine rates it", func() {
			_, outcome, err := engine.Update(m)

			Convey("Then it is rejected instead of awarded to either team", func() {
				So(err, ShouldEqual, rating.ErrUndecidedMatch)
				So(outcome, ShouldEqual, rating.OutcomeRejected)
			})
		})
	})
}

func TestBaseDelta_Symmetry(t *testing.T) {
	Convey("Given a range of expected outcomes and factors", t, func() {
		p := rating.DefaultParams()
		for _, e1 := range []float64{0.01, 0.2, 0.5, 0.73, 0.999} {
			for _, winner := range []rating.Team{rating.Team1, rating.Team2} {
				fUpset := rating.UpsetFactor(e1, winner, p)
				t1, t2 := rating.BaseDelta(e1, winner, 0.6, fUpset, p)

				So(t2, ShouldEqual, -t1)
				So(fUpset, ShouldBeGreaterThanOrEqualTo, 1)
				if winner == rating.Team1 {
					So(t1, ShouldBeGreaterThan, 0)
				} else {
					So(t1, ShouldBeLessThan, 0)
				}
			}
		}
	})
}

func TestMarginFactor(t *testing.T) {
	Convey("Given the default params", t, func() {
		p := rating.DefaultParams()

		Convey("Then a whitewash gives the full factor", func() {
			So(rating.MarginFactor(12, 0, p), ShouldEqual, 1)
		})

		Convey("And equal games give the floor", func() {
			So(rating.MarginFactor(13, 13, p), ShouldEqual, p.MarginMin)
		})

		Convey("And no recorded games do not divide by zero", func() {
			So(rating.MarginFactor(0, 0, p), ShouldEqual, p.MarginMin)
		})
	})
}
