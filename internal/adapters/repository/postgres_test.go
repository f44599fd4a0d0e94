package repository

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/okian/pmr/internal/domain/model"
	"github.com/okian/pmr/internal/domain/rating"
	. "github.com/smartystreets/goconvey/convey"
)

// openTestPostgres connects to PMR_TEST_DATABASE_URL and empties the tables.
func openTestPostgres(t *testing.T) *PostgresStore {
	t.Helper()
	dsn := os.Getenv("PMR_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("PMR_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	s, err := OpenPostgres(ctx, dsn, WithInitialPMR(3))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := s.pool.Exec(ctx, `TRUNCATE rating_history, players`); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestPostgresStore(t *testing.T) {
	s := openTestPostgres(t)
	ctx := context.Background()

	seen := make([]float64, 0, 4)
	err := s.Transact(ctx, []string{"d", "c", "b", "a"}, func(players []model.Player) ([]model.Player, error) {
		pmrs := []float64{3, 5, 5, 7}
		for i := range players {
			seen = append(seen, players[i].PMR)
			players[i].PMR = pmrs[i]
			players[i].Matches++
			players[i].UpdatedAt = time.Now().UTC()
		}
		return players, nil
	})
	if err != nil {
		t.Fatalf("transact: %v", err)
	}
	for i, id := range []string{"m1", "m2"} {
		err := s.AppendHistory(ctx, []model.HistoryEntry{{
			MatchID: id,
			At:      time.Now().UTC(),
			Result:  rating.Result{PlayerID: "a", Delta: float64(i)},
		}})
		if err != nil {
			t.Fatalf("append history: %v", err)
		}
	}

	Convey("Given four rated players in postgres", t, func() {
		Convey("Then unknown players started at the initial PMR", func() {
			So(seen, ShouldResemble, []float64{3, 3, 3, 3})
		})

		Convey("And ranking uses competition ranks", func() {
			top, err := s.TopN(ctx, 10)
			So(err, ShouldBeNil)
			So(len(top), ShouldEqual, 4)
			So(top[0].ID, ShouldEqual, "a")
			So(top[1].Rank, ShouldEqual, 2)
			So(top[2].Rank, ShouldEqual, 2)
			So(top[3].Rank, ShouldEqual, 4)

			e, err := s.Rank(ctx, "c")
			So(err, ShouldBeNil)
			So(e.Rank, ShouldEqual, 2)
			So(e.Matches, ShouldEqual, 1)

			n, err := s.Count(ctx)
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 4)
		})

		Convey("And history comes back newest first", func() {
			h, err := s.History(ctx, "a", 5)
			So(err, ShouldBeNil)
			So(len(h), ShouldEqual, 2)
			So(h[0].MatchID, ShouldEqual, "m2")
		})

		Convey("And unknown players are not found", func() {
			_, err := s.Get(ctx, "ghost")
			So(errors.Is(err, ErrNotFound), ShouldBeTrue)
			_, err = s.Rank(ctx, "ghost")
			So(errors.Is(err, ErrNotFound), ShouldBeTrue)
		})
	})
}
