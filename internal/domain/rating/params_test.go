package rating_test

import (
	"errors"
	"math"
	"testing"

	"github.com/okian/pmr/internal/domain/rating"
	. "github.com/smartystreets/goconvey/convey"
)

func TestParams(t *testing.T) {
	Convey("Given the default params", t, func() {
		p := rating.DefaultParams()

		Convey("Then they carry the documented values", func() {
			So(p.K, ShouldEqual, 0.25)
			So(p.EloScale, ShouldEqual, 1.25)
			So(p.MarginMin, ShouldEqual, 0.25)
			So(p.MarginGamma, ShouldEqual, 1.3)
			So(p.UpsetBeta, ShouldEqual, 0.8)
			So(p.UpsetGamma, ShouldEqual, 1.2)
			So(p.PMRMin, ShouldEqual, 0.1)
			So(p.PMRMax, ShouldEqual, 8.9)
			So(p.VMax, ShouldEqual, 3.0)
			So(p.VGamma, ShouldEqual, 1.2)
			So(p.RelTau, ShouldEqual, 77)
			So(p.RelCurveGamma, ShouldEqual, 0.52)
			So(p.RelMin, ShouldEqual, 0)
			So(p.RelMax, ShouldEqual, 100)
			So(p.Validate(), ShouldBeNil)
		})

		Convey("When merging a partial override", func() {
			merged := rating.NewParams(rating.Overrides{K: rating.Float(0.4), PMRMax: rating.Float(7)})

			Convey("Then only the named fields change", func() {
				So(merged.K, ShouldEqual, 0.4)
				So(merged.PMRMax, ShouldEqual, 7)
				So(merged.EloScale, ShouldEqual, p.EloScale)
				So(merged.RelTau, ShouldEqual, p.RelTau)
			})

			Convey("And the base is left untouched", func() {
				So(p.K, ShouldEqual, 0.25)
			})
		})

		Convey("When the override is empty", func() {
			Convey("Then the merge is the identity", func() {
				So(rating.Overrides{}.IsZero(), ShouldBeTrue)
				So(p.With(rating.Overrides{}), ShouldResemble, p)
			})
		})

		Convey("When params are invalid", func() {
			cases := []rating.Overrides{
				{EloScale: rating.Float(0)},
				{K: rating.Float(-1)},
				{MarginMin: rating.Float(1.5)},
				{PMRMin: rating.Float(9), PMRMax: rating.Float(1)},
				{VMax: rating.Float(0.5)},
				{RelTau: rating.Float(0)},
				{RelCurveGamma: rating.Float(-0.2)},
				{RelMax: rating.Float(120)},
				{UpsetGamma: rating.Float(math.NaN())},
			}

			Convey("Then Validate rejects each of them", func() {
				for _, o := range cases {
					err := p.With(o).Validate()
					So(err, ShouldNotBeNil)
					So(errors.Is(err, rating.ErrInvalidParams), ShouldBeTrue)
				}
			})
		})
	})
}

func TestResolveSets(t *testing.T) {
	Convey("Given set scores", t, func() {
		Convey("When team 2 wins in three", func() {
			r := rating.ResolveSets([3]rating.SetScore{rating.Played(6, 4), rating.Played(5, 7), rating.Played(2, 6)})

			Convey("Then totals cover every played set", func() {
				So(r.Played, ShouldEqual, 3)
				So(r.Wins1, ShouldEqual, 1)
				So(r.Wins2, ShouldEqual, 2)
				So(r.Games1, ShouldEqual, 13)
				So(r.Games2, ShouldEqual, 17)
				So(r.Winner, ShouldEqual, rating.Team2)
				So(r.Decided(), ShouldBeTrue)
			})
		})

		Convey("When the third set is unplayed", func() {
			r := rating.ResolveSets([3]rating.SetScore{rating.Played(6, 0), rating.Played(7, 6), rating.NotPlayed()})

			Convey("Then it contributes nothing", func() {
				So(r.Played, ShouldEqual, 2)
				So(r.Games1, ShouldEqual, 13)
				So(r.Games2, ShouldEqual, 6)
				So(r.Winner, ShouldEqual, rating.Team1)
			})
		})

		Convey("When the played sets are split", func() {
			r := rating.ResolveSets([3]rating.SetScore{rating.Played(6, 0), rating.Played(0, 6)})

			Convey("Then there is no winner", func() {
				So(r.Decided(), ShouldBeFalse)
				So(r.Winner.String(), ShouldEqual, "none")
			})
		})

		Convey("When a set is built with negative games", func() {
			s := rating.Played(-2, 6)

			Convey("Then the negative count is treated as zero", func() {
				g1, g2 := s.Games()
				So(g1, ShouldEqual, 0)
				So(g2, ShouldEqual, 6)
				So(s.IsPlayed(), ShouldBeTrue)
				So(rating.NotPlayed().IsPlayed(), ShouldBeFalse)
			})
		})
	})
}
