package rules_test

import (
	"errors"
	"testing"

	"github.com/okian/pmr/internal/domain/rating"
	"github.com/okian/pmr/internal/domain/rules"
	. "github.com/smartystreets/goconvey/convey"
)

func TestValidSet(t *testing.T) {
	Convey("Given single set scores", t, func() {
		Convey("Then finished sets are accepted in either direction", func() {
			for _, s := range [][2]int{{6, 0}, {6, 4}, {4, 6}, {7, 5}, {5, 7}, {7, 6}, {6, 7}} {
				So(rules.ValidSet(s[0], s[1]), ShouldBeTrue)
			}
		})

		Convey("And unfinished or impossible sets are rejected", func() {
			for _, s := range [][2]int{{6, 5}, {5, 4}, {7, 4}, {8, 6}, {6, 6}, {0, 0}, {-1, 6}, {7, 7}} {
				So(rules.ValidSet(s[0], s[1]), ShouldBeFalse)
			}
		})
	})
}

func TestValidate(t *testing.T) {
	Convey("Given submitted set scores", t, func() {
		Convey("When team 1 wins in straight sets", func() {
			sets, err := rules.Validate([3]rules.SetInput{rules.Set(6, 3), rules.Set(6, 4), {}})

			Convey("Then the sets convert with the third unplayed", func() {
				So(err, ShouldBeNil)
				So(sets[0], ShouldResemble, rating.Played(6, 3))
				So(sets[1], ShouldResemble, rating.Played(6, 4))
				So(sets[2].IsPlayed(), ShouldBeFalse)
			})
		})

		Convey("When the match goes to a deciding set", func() {
			sets, err := rules.Validate([3]rules.SetInput{rules.Set(6, 3), rules.Set(6, 7), rules.Set(5, 7)})

			Convey("Then all three sets are played", func() {
				So(err, ShouldBeNil)
				So(rating.ResolveSets(sets).Winner, ShouldEqual, rating.Team2)
			})
		})

		Convey("When the input is malformed", func() {
			seven := 7
			cases := map[string][3]rules.SetInput{
				"missing second set":      {rules.Set(6, 3), {}, {}},
				"half filled set":         {rules.Set(6, 3), {Team1: &seven}, {}},
				"split without decider":   {rules.Set(6, 3), rules.Set(3, 6), {}},
				"decider after a sweep":   {rules.Set(6, 3), rules.Set(6, 3), rules.Set(6, 3)},
				"unfinished set":          {rules.Set(6, 5), rules.Set(6, 3), {}},
				"missing first set":       {{}, rules.Set(6, 3), rules.Set(6, 3)},
				"out of range game count": {rules.Set(9, 3), rules.Set(6, 3), {}},
			}

			Convey("Then every case is rejected with ErrInvalidScore", func() {
				for _, sets := range cases {
					_, err := rules.Validate(sets)
					So(errors.Is(err, rules.ErrInvalidScore), ShouldBeTrue)
				}
			})
		})
	})
}
