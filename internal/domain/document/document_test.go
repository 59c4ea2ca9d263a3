package document_test

import (
	"encoding/json"
	"errors"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/okian/clicker/internal/domain/document"
	"github.com/okian/clicker/internal/domain/ledger"
	"github.com/okian/clicker/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func sampleLedger() *ledger.Ledger {
	return ledger.New().RecordDelta(4, 1).RecordDelta(1, 1).RecordDelta(2.5, -1)
}

func TestBuild(t *testing.T) {
	convey.Convey("Given a ledger for a video", t, func() {
		now := time.UnixMilli(1_700_000_000_123)
		doc := document.Build("Hnn_-y59a84", "judge", sampleLedger(), now)

		convey.Convey("Then the document carries sorted scores and metadata", func() {
			convey.So(doc.VideoID, convey.ShouldEqual, "Hnn_-y59a84")
			convey.So(doc.JudgeName, convey.ShouldEqual, "judge")
			convey.So(doc.Date, convey.ShouldEqual, 1_700_000_000_123)
			convey.So(doc.Scores, convey.ShouldResemble, []document.Pair{{1, 1}, {2.5, -1}, {4, 1}})
			convey.So(len(doc.Hash), convey.ShouldEqual, 128)
		})

		convey.Convey("Then the JSON has exactly the exported field set", func() {
			b, err := json.Marshal(doc)
			convey.So(err, convey.ShouldBeNil)
			var fields map[string]json.RawMessage
			convey.So(json.Unmarshal(b, &fields), convey.ShouldBeNil)
			convey.So(len(fields), convey.ShouldEqual, 5)
			for _, k := range []string{"hash", "videoId", "judgeName", "date", "scores"} {
				_, ok := fields[k]
				convey.So(ok, convey.ShouldBeTrue)
			}
			convey.So(string(fields["scores"]), convey.ShouldEqual, "[[1,1],[2.5,-1],[4,1]]")
		})

		convey.Convey("When rebuilt by another judge at another time", func() {
			other := document.Build("Hnn_-y59a84", "someone else", sampleLedger(), now.Add(time.Hour))

			convey.Convey("Then the hash is unchanged", func() {
				convey.So(other.Hash, convey.ShouldEqual, doc.Hash)
			})
		})

		convey.Convey("When the video or scores differ", func() {
			otherVideo := document.Build("abc", "judge", sampleLedger(), now)
			otherScores := document.Build("Hnn_-y59a84", "judge", sampleLedger().RecordDelta(5, 1), now)

			convey.Convey("Then the hash changes", func() {
				convey.So(otherVideo.Hash, convey.ShouldNotEqual, doc.Hash)
				convey.So(otherScores.Hash, convey.ShouldNotEqual, doc.Hash)
			})
		})

		convey.Convey("Then Rehash matches the stored hash", func() {
			convey.So(doc.Rehash(), convey.ShouldEqual, doc.Hash)
		})
	})
}

func TestParseJSON(t *testing.T) {
	convey.Convey("Given import payloads", t, func() {
		convey.Convey("When the scores are unsorted", func() {
			doc, err := document.ParseJSON([]byte(`{"hash":"h","videoId":"v","judgeName":"j","date":5,"scores":[[3,1],[1,-1]]}`))

			convey.Convey("Then they come back sorted", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(doc.Scores, convey.ShouldResemble, []document.Pair{{1, -1}, {3, 1}})
				convey.So(doc.Date, convey.ShouldEqual, 5)
			})
		})

		bad := map[string]string{
			"not json":          `{"scores":`,
			"missing scores":    `{"videoId":"v"}`,
			"null scores":       `{"videoId":"v","scores":null}`,
			"scores not array":  `{"videoId":"v","scores":{"1":1}}`,
			"empty scores":      `{"videoId":"v","scores":[]}`,
			"short pair":        `{"videoId":"v","scores":[[1]]}`,
			"long pair":         `{"videoId":"v","scores":[[1,1,1]]}`,
			"string timestamp":  `{"videoId":"v","scores":[["1",1]]}`,
			"null delta":        `{"videoId":"v","scores":[[1,null]]}`,
			"bool delta":        `{"videoId":"v","scores":[[1,true]]}`,
			"fractional delta":  `{"videoId":"v","scores":[[1,0.5]]}`,
			"negative time":     `{"videoId":"v","scores":[[-1,1]]}`,
			"huge delta":        `{"videoId":"v","scores":[[1,1e300]]}`,
			"pair is an object": `{"videoId":"v","scores":[{"t":1}]}`,
		}
		for name, payload := range bad {
			name, payload := name, payload
			convey.Convey("When the payload has "+name, func() {
				_, err := document.ParseJSON([]byte(payload))

				convey.Convey("Then it is a format error", func() {
					convey.So(errors.Is(err, document.ErrFormat), convey.ShouldBeTrue)
				})
			})
		}
	})
}

func TestRoundTrip(t *testing.T) {
	convey.Convey("Given random non-empty ledgers", t, func() {
		rng := rand.New(rand.NewSource(44))

		convey.Convey("Then build, encode, parse and rebuild is lossless", func() {
			for round := 0; round < 100; round++ {
				l := ledger.New()
				for l.Len() == 0 {
					for i := rng.Intn(20) + 1; i > 0; i-- {
						l = l.RecordDelta(float64(rng.Intn(100000))/1000, rng.Intn(3)-1)
					}
				}
				doc := document.Build("vid", "j", l, time.Now())
				convey.So(document.Validate(doc), convey.ShouldBeNil)

				b, err := json.Marshal(doc)
				convey.So(err, convey.ShouldBeNil)
				parsed, err := document.ParseJSON(b)
				convey.So(err, convey.ShouldBeNil)
				convey.So(parsed.Ledger().Equal(l), convey.ShouldBeTrue)
				convey.So(parsed.Rehash(), convey.ShouldEqual, doc.Hash)
			}
		})
	})
}

func TestValidate(t *testing.T) {
	convey.Convey("Given decoded documents", t, func() {
		convey.So(errors.Is(document.Validate(document.Document{}), document.ErrFormat), convey.ShouldBeTrue)
		convey.So(document.Validate(document.Document{Scores: []document.Pair{{1, 1}}}), convey.ShouldBeNil)
		convey.So(errors.Is(document.Validate(document.Document{Scores: []document.Pair{{1, 1.5}}}), document.ErrFormat), convey.ShouldBeTrue)
		convey.So(errors.Is(document.Validate(document.Document{Scores: []document.Pair{{1, 1e300}}}), document.ErrFormat), convey.ShouldBeTrue)
		convey.So(errors.Is(document.Validate(document.Document{Scores: []document.Pair{{1, -(1 << 54)}}}), document.ErrFormat), convey.ShouldBeTrue)
		convey.So(document.Validate(document.Document{Scores: []document.Pair{{1, 1 << 53}}}), convey.ShouldBeNil)
	})
}

func TestNames(t *testing.T) {
	convey.Convey("Given an app name, video and hash", t, func() {
		convey.So(document.Filename("44clicker", "abc"), convey.ShouldEqual, "44clicker-scores_abc.json")
		convey.So(document.ShareURL("https://clicker.example/", "ab+c"), convey.ShouldEqual, "https://clicker.example/?id=ab%2Bc")
		convey.So(strings.HasPrefix(document.ShareURL("http://x", "h"), "http://x/?id="), convey.ShouldBeTrue)
	})

	convey.Convey("Given a document", t, func() {
		doc := document.Document{Scores: []document.Pair{{2, -1}, {1, 3}}}

		convey.Convey("Then Entries keeps document order", func() {
			convey.So(doc.Entries(), convey.ShouldResemble, []model.Entry{{Timestamp: 2, Delta: -1}, {Timestamp: 1, Delta: 3}})
		})
	})
}

func TestTruncateJudgeName(t *testing.T) {
	cases := []struct {
		in    string
		limit int
		want  string
	}{
		{"alice", 30, "alice"},
		{"abcdef", 3, "abc"},
		{"ééééé", 2, "éé"},
		{"", 5, ""},
		{"0123456789012345678901234567890123", 0, "012345678901234567890123456789"},
	}
	for _, c := range cases {
		if got := document.TruncateJudgeName(c.in, c.limit); got != c.want {
			t.Errorf("TruncateJudgeName(%q, %d) = %q, want %q", c.in, c.limit, got, c.want)
		}
	}
}
