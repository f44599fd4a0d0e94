package rating_test

import (
	"math"
	"testing"

	"github.com/okian/pmr/internal/domain/rating"
	. "github.com/smartystreets/goconvey/convey"
)

func TestReliabilityCurve(t *testing.T) {
	Convey("Given the default reliability curve", t, func() {
		p := rating.DefaultParams()

		Convey("Then zero matches means zero reliability", func() {
			So(rating.ReliabilityFromMatches(0, p), ShouldEqual, 0)
			So(rating.MatchesFromReliability(0, p), ShouldEqual, 0)
		})

		Convey("And a saturated reliability maps to infinitely many matches", func() {
			So(math.IsInf(rating.MatchesFromReliability(100, p), 1), ShouldBeTrue)
			So(math.IsInf(rating.MatchesFromReliability(120, p), 1), ShouldBeTrue)
			So(rating.ReliabilityFromMatches(math.Inf(1), p), ShouldEqual, 100)
		})

		Convey("And the inverse round-trips", func() {
			for _, n := range []float64{0.5, 1, 10, 23.57, 77, 300} {
				r := rating.ReliabilityFromMatches(n, p)
				So(rating.MatchesFromReliability(r, p), ShouldAlmostEqual, n, 1e-6)
			}
		})

		Convey("And the curve is increasing and saturating", func() {
			prev := 0.0
			for n := 1.0; n <= 1000; n *= 2 {
				r := rating.ReliabilityFromMatches(n, p)
				So(r, ShouldBeGreaterThan, prev)
				So(r, ShouldBeLessThanOrEqualTo, 100)
				prev = r
			}
		})
	})
}

func TestAdvanceReliability(t *testing.T) {
	Convey("Given the default params", t, func() {
		p := rating.DefaultParams()

		Convey("When advancing reliability below saturation", func() {
			Convey("Then it strictly increases", func() {
				for r := 0.0; r < 99.9; r += 0.37 {
					So(rating.AdvanceReliability(r, p), ShouldBeGreaterThan, r)
				}
			})

			Convey("And it equals the curve one match further", func() {
				r := 50.0
				n := rating.MatchesFromReliability(r, p)
				So(rating.AdvanceReliability(r, p), ShouldEqual, rating.ReliabilityFromMatches(n+1, p))
			})

			Convey("And the first rated match lands around ten points", func() {
				So(rating.AdvanceReliability(0, p), ShouldAlmostEqual, 10.4, 0.1)
			})
		})

		Convey("When reliability is already saturated", func() {
			Convey("Then it stays exactly at 100", func() {
				So(rating.AdvanceReliability(100, p), ShouldEqual, 100)
			})
		})

		Convey("When the ceiling is lowered", func() {
			capped := p.With(rating.Overrides{RelMax: rating.Float(60)})

			Convey("Then the result is clamped to it", func() {
				So(rating.AdvanceReliability(59.9, capped), ShouldEqual, 60)
			})
		})
	})
}

func TestVolatilityMultiplier(t *testing.T) {
	Convey("Given the default params", t, func() {
		p := rating.DefaultParams()

		Convey("Then a new player swings by VMax", func() {
			So(rating.VolatilityMultiplier(0, p), ShouldEqual, p.VMax)
		})

		Convey("And a fully reliable player swings by exactly one", func() {
			So(rating.VolatilityMultiplier(100, p), ShouldEqual, 1)
		})

		Convey("And the multiplier decreases with reliability", func() {
			prev := math.Inf(1)
			for r := 0.0; r <= 100; r += 5 {
				v := rating.VolatilityMultiplier(r, p)
				So(v, ShouldBeLessThan, prev)
				prev = v
			}
		})
	})
}
