package testmatches

import (
	"context"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestVerifyResults(t *testing.T) {
	Convey("Given consistent players and leaderboard", t, func() {
		ctx := context.Background()
		cfg := &Config{}
		players := []Entry{
			{Rank: 3, PlayerID: "c", PMR: 3.4, Reliability: 10, Matches: 1},
			{Rank: 1, PlayerID: "a", PMR: 3.6, Reliability: 10, Matches: 1},
			{Rank: 1, PlayerID: "b", PMR: 3.6, Reliability: 10, Matches: 1},
			{Rank: 3, PlayerID: "d", PMR: 3.4, Reliability: 10, Matches: 1},
		}
		leaderboard := []Entry{players[1], players[2], players[0], players[3]}
		expected := map[string]int{"a": 1, "b": 1, "c": 1, "d": 1}

		Convey("Then verification passes", func() {
			So(verifyResults(ctx, cfg, players, leaderboard, expected), ShouldBeNil)
		})

		Convey("When a match count is off", func() {
			expected["a"] = 2
			err := verifyResults(ctx, cfg, players, leaderboard, expected)
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "want 2")
		})

		Convey("When counts are unknown", func() {
			expected["a"] = 2
			So(verifyResults(ctx, cfg, players, leaderboard, nil), ShouldBeNil)
		})

		Convey("When a rating escapes its bounds", func() {
			players[0].PMR = 9.5
			So(verifyResults(ctx, cfg, players, nil, expected), ShouldNotBeNil)
		})

		Convey("When tied players have different ranks", func() {
			players[2].Rank = 2
			So(verifyCompetitionRanks(players), ShouldNotBeEmpty)
		})

		Convey("When the leaderboard is out of order", func() {
			leaderboard[0], leaderboard[2] = leaderboard[2], leaderboard[0]
			So(verifyLeaderboard(players, leaderboard), ShouldNotBeEmpty)
		})

		Convey("When there are no players", func() {
			So(verifyResults(ctx, cfg, nil, leaderboard, nil), ShouldNotBeNil)
		})
	})
}
