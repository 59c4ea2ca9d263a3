package ledger_test

import (
	"math/rand"
	"testing"

	"github.com/okian/clicker/internal/domain/ledger"
	"github.com/okian/clicker/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestRecordDelta(t *testing.T) {
	convey.Convey("Given an empty ledger", t, func() {
		l := ledger.New()

		convey.Convey("When recording clicks out of order", func() {
			l2 := l.RecordDelta(3.5, 1).RecordDelta(1.25, -1).RecordDelta(2, 1)

			convey.Convey("Then entries iterate in ascending order", func() {
				convey.So(l2.Entries(), convey.ShouldResemble, []model.Entry{
					{Timestamp: 1.25, Delta: -1},
					{Timestamp: 2, Delta: 1},
					{Timestamp: 3.5, Delta: 1},
				})
			})

			convey.Convey("Then the original ledger is untouched", func() {
				convey.So(l.Len(), convey.ShouldEqual, 0)
				convey.So(l2, convey.ShouldNotPointTo, l)
			})
		})

		convey.Convey("When recording the same instant twice", func() {
			l2 := l.RecordDelta(4, 1).RecordDelta(4, 1)

			convey.Convey("Then the deltas accumulate in one entry", func() {
				d, ok := l2.Get(4)
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(d, convey.ShouldEqual, 2)
				convey.So(l2.Len(), convey.ShouldEqual, 1)
			})
		})

		convey.Convey("When a click is cancelled at the same instant", func() {
			l2 := l.RecordDelta(7.1, 1).RecordDelta(7.1, -1)

			convey.Convey("Then no entry remains", func() {
				_, ok := l2.Get(7.1)
				convey.So(ok, convey.ShouldBeFalse)
				convey.So(l2.Len(), convey.ShouldEqual, 0)
			})
		})

		convey.Convey("When recording a zero delta on an empty instant", func() {
			l2 := l.RecordDelta(1, 0)

			convey.Convey("Then nothing is stored", func() {
				convey.So(l2.Len(), convey.ShouldEqual, 0)
			})
		})
	})
}

func TestRecordDeltaProperties(t *testing.T) {
	convey.Convey("Given random sequences of clicks", t, func() {
		rng := rand.New(rand.NewSource(44))

		convey.Convey("Then no zero entry survives and order is strictly ascending", func() {
			for round := 0; round < 200; round++ {
				l := ledger.New()
				for i := 0; i < 50; i++ {
					ts := float64(rng.Intn(20)) / 4
					delta := rng.Intn(5) - 2
					l = l.RecordDelta(ts, delta)
				}
				entries := l.Entries()
				for i, e := range entries {
					convey.So(e.Delta, convey.ShouldNotEqual, 0)
					if i > 0 {
						convey.So(entries[i-1].Timestamp, convey.ShouldBeLessThan, e.Timestamp)
					}
				}
			}
		})
	})
}

func TestDeleteAtAndReplaceAll(t *testing.T) {
	convey.Convey("Given a ledger with three entries", t, func() {
		l := ledger.ReplaceAll([]model.Entry{
			{Timestamp: 4, Delta: 1},
			{Timestamp: 1, Delta: 1},
			{Timestamp: 2.5, Delta: -1},
		})

		convey.Convey("Then ReplaceAll sorted the input", func() {
			first, _ := l.First()
			last, _ := l.Last()
			convey.So(first, convey.ShouldEqual, 1)
			convey.So(last, convey.ShouldEqual, 4)
			convey.So(l.At(1), convey.ShouldResemble, model.Entry{Timestamp: 2.5, Delta: -1})
		})

		convey.Convey("When deleting an existing entry", func() {
			l2 := l.DeleteAt(2.5)

			convey.Convey("Then it is gone", func() {
				convey.So(l2.Len(), convey.ShouldEqual, 2)
				_, ok := l2.Get(2.5)
				convey.So(ok, convey.ShouldBeFalse)
			})
		})

		convey.Convey("When deleting a missing entry", func() {
			l2 := l.DeleteAt(9)

			convey.Convey("Then the ledger is equal to before", func() {
				convey.So(l2.Equal(l), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When clearing", func() {
			convey.So(ledger.Clear().Len(), convey.ShouldEqual, 0)
		})
	})

	convey.Convey("Given shuffled input with duplicates and zeros", t, func() {
		l := ledger.ReplaceAll([]model.Entry{
			{Timestamp: 3, Delta: 1},
			{Timestamp: 1, Delta: 0},
			{Timestamp: 3, Delta: -2},
			{Timestamp: 2, Delta: 1},
		})

		convey.Convey("Then the last delta wins and zeros are dropped", func() {
			convey.So(l.Entries(), convey.ShouldResemble, []model.Entry{
				{Timestamp: 2, Delta: 1},
				{Timestamp: 3, Delta: -2},
			})
		})
	})

	convey.Convey("Given random permutations", t, func() {
		rng := rand.New(rand.NewSource(7))

		convey.Convey("Then ReplaceAll always iterates ascending", func() {
			for round := 0; round < 100; round++ {
				n := rng.Intn(30) + 1
				in := make([]model.Entry, n)
				for i := range in {
					in[i] = model.Entry{Timestamp: float64(i) * 0.37, Delta: 1}
				}
				rng.Shuffle(n, func(i, j int) { in[i], in[j] = in[j], in[i] })
				entries := ledger.ReplaceAll(in).Entries()
				convey.So(len(entries), convey.ShouldEqual, n)
				for i := 1; i < len(entries); i++ {
					convey.So(entries[i-1].Timestamp, convey.ShouldBeLessThan, entries[i].Timestamp)
				}
			}
		})
	})
}

func TestFirstAfter(t *testing.T) {
	convey.Convey("Given a ledger", t, func() {
		l := ledger.ReplaceAll([]model.Entry{
			{Timestamp: 1, Delta: 1},
			{Timestamp: 2.5, Delta: -1},
			{Timestamp: 4, Delta: 1},
		})

		convey.Convey("Then the search is strict", func() {
			convey.So(l.FirstAfter(0), convey.ShouldEqual, 0)
			convey.So(l.FirstAfter(1), convey.ShouldEqual, 1)
			convey.So(l.FirstAfter(2.49), convey.ShouldEqual, 1)
			convey.So(l.FirstAfter(2.5), convey.ShouldEqual, 2)
			convey.So(l.FirstAfter(4), convey.ShouldEqual, -1)
			convey.So(ledger.New().FirstAfter(0), convey.ShouldEqual, -1)
		})
	})

	convey.Convey("Given random ledgers and query times", t, func() {
		rng := rand.New(rand.NewSource(1))

		convey.Convey("Then binary search agrees with a linear scan", func() {
			for round := 0; round < 500; round++ {
				l := ledger.New()
				for i := rng.Intn(40); i > 0; i-- {
					l = l.RecordDelta(float64(rng.Intn(1000))/100, 1)
				}
				at := float64(rng.Intn(1100)-50) / 100
				convey.So(l.FirstAfter(at), convey.ShouldEqual, linearFirstAfter(l, at))
			}
		})
	})
}

func TestSummary(t *testing.T) {
	convey.Convey("Given a ledger with accumulated deltas", t, func() {
		l := ledger.ReplaceAll([]model.Entry{
			{Timestamp: 1, Delta: 2},
			{Timestamp: 2, Delta: -1},
			{Timestamp: 3, Delta: 1},
			{Timestamp: 5, Delta: -3},
		})

		convey.Convey("When summarising everything", func() {
			s := l.Summary(-1)

			convey.Convey("Then sums and span cover all entries", func() {
				convey.So(s.Count, convey.ShouldEqual, 4)
				convey.So(s.Positive, convey.ShouldEqual, 3)
				convey.So(s.Negative, convey.ShouldEqual, -4)
				convey.So(s.Total, convey.ShouldEqual, -1)
				convey.So(s.Span, convey.ShouldEqual, 4)
				convey.So(s.PositiveRate(), convey.ShouldEqual, 0.75)
				convey.So(s.NegativeRate(), convey.ShouldEqual, 1)
			})
		})

		convey.Convey("When summarising a played prefix", func() {
			s := l.Summary(2)

			convey.Convey("Then only the played entries count", func() {
				convey.So(s.Count, convey.ShouldEqual, 2)
				convey.So(s.Total, convey.ShouldEqual, 1)
				convey.So(s.Span, convey.ShouldEqual, 1)
			})
		})

		convey.Convey("When the prefix is past the end", func() {
			convey.So(l.Summary(4), convey.ShouldResemble, l.Summary(-1))
		})

		convey.Convey("When the prefix is zero", func() {
			s := l.Summary(0)

			convey.Convey("Then nothing is counted and rates are zero", func() {
				convey.So(s.Count, convey.ShouldEqual, 0)
				convey.So(s.PositiveRate(), convey.ShouldEqual, 0)
			})
		})
	})
}

func linearFirstAfter(l *ledger.Ledger, t float64) int {
	for i := 0; i < l.Len(); i++ {
		if l.At(i).Timestamp > t {
			return i
		}
	}
	return -1
}
