// Package document converts ledgers to and from the exported score document
// and derives its content hash.
package document

import (
	"bytes"
	"cmp"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/okian/clicker/internal/domain/ledger"
	"github.com/okian/clicker/internal/domain/model"
)

// Pair is one [timestamp, delta] score as it appears on the wire.
type Pair [2]float64

// Document is the export/import unit.
type Document struct {
	Hash      string `json:"hash"`
	VideoID   string `json:"videoId"`
	JudgeName string `json:"judgeName"`
	Date      int64  `json:"date"` // epoch milliseconds
	Scores    []Pair `json:"scores"`
}

// hashInput is the canonical content the hash covers. Author and date are
// excluded so republishing the same scores for a video yields the same hash.
type hashInput struct {
	VideoID string `json:"videoId"`
	Scores  []Pair `json:"scores"`
}

// Build snapshots l into a document stamped with now.
func Build(videoID, judgeName string, l *ledger.Ledger, now time.Time) Document {
	entries := l.Entries()
	scores := make([]Pair, len(entries))
	for i, e := range entries {
		scores[i] = Pair{e.Timestamp, float64(e.Delta)}
	}
	return Document{
		Hash:      Hash(videoID, scores),
		VideoID:   videoID,
		JudgeName: judgeName,
		Date:      now.UnixMilli(),
		Scores:    scores,
	}
}

// Hash returns the hex SHA-512 digest of the canonical JSON of videoID and
// scores. Scores must already be sorted by timestamp.
func Hash(videoID string, scores []Pair) string {
	if scores == nil {
		scores = []Pair{}
	}
	// Marshal cannot fail: the input holds only strings and finite floats.
	b, _ := json.Marshal(hashInput{VideoID: videoID, Scores: scores})
	sum := sha512.Sum512(b)
	return hex.EncodeToString(sum[:])
}

// Rehash recomputes the hash of d from its content.
func (d Document) Rehash() string { return Hash(d.VideoID, d.Scores) }

// Entries converts the scores into ledger entries in document order.
func (d Document) Entries() []model.Entry {
	out := make([]model.Entry, len(d.Scores))
	for i, p := range d.Scores {
		out[i] = model.Entry{Timestamp: p[0], Delta: int(p[1])}
	}
	return out
}

// Ledger builds a ledger from the document scores.
func (d Document) Ledger() *ledger.Ledger { return ledger.ReplaceAll(d.Entries()) }

// Validate checks an already decoded document.
func Validate(d Document) error {
	if len(d.Scores) == 0 {
		return fmt.Errorf("%w: empty scores data", ErrFormat)
	}
	for i, p := range d.Scores {
		if err := checkPair(p[0], p[1]); err != nil {
			return fmt.Errorf("%w: score %d: %v", ErrFormat, i, err)
		}
	}
	return nil
}

// ParseJSON validates raw import bytes against the document schema and
// returns the decoded document with its scores sorted by timestamp. Nothing is
// trusted by field presence: scores must be an array of two-element numeric
// arrays.
func ParseJSON(data []byte) (Document, error) {
	var raw struct {
		Hash      string          `json:"hash"`
		VideoID   string          `json:"videoId"`
		JudgeName string          `json:"judgeName"`
		Date      json.RawMessage `json:"date"`
		Scores    json.RawMessage `json:"scores"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return Document{}, fmt.Errorf("%w: cannot understand scores: %v", ErrFormat, err)
	}

	scores, err := parseScores(raw.Scores)
	if err != nil {
		return Document{}, err
	}

	doc := Document{
		Hash:      raw.Hash,
		VideoID:   raw.VideoID,
		JudgeName: raw.JudgeName,
		Scores:    scores,
	}
	var date float64
	if json.Unmarshal(raw.Date, &date) == nil {
		doc.Date = int64(date)
	}
	SortScores(doc.Scores)
	return doc, nil
}

func parseScores(msg json.RawMessage) ([]Pair, error) {
	trimmed := bytes.TrimSpace(msg)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, fmt.Errorf("%w: missing scores", ErrFormat)
	}
	var items []json.RawMessage
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return nil, fmt.Errorf("%w: scores is not an array", ErrFormat)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: empty scores data", ErrFormat)
	}

	out := make([]Pair, 0, len(items))
	for i, item := range items {
		var pair []json.RawMessage
		if err := json.Unmarshal(item, &pair); err != nil || len(pair) != 2 {
			return nil, fmt.Errorf("%w: score %d is not a pair", ErrFormat, i)
		}
		ts, ok := number(pair[0])
		if !ok {
			return nil, fmt.Errorf("%w: score %d timestamp is not a number", ErrFormat, i)
		}
		delta, ok := number(pair[1])
		if !ok {
			return nil, fmt.Errorf("%w: score %d delta is not a number", ErrFormat, i)
		}
		if err := checkPair(ts, delta); err != nil {
			return nil, fmt.Errorf("%w: score %d: %v", ErrFormat, i, err)
		}
		out = append(out, Pair{ts, delta})
	}
	return out, nil
}

// number decodes a JSON number. Unmarshal accepts null into a float64 as a
// no-op, so null is rejected explicitly.
func number(msg json.RawMessage) (float64, bool) {
	if bytes.Equal(bytes.TrimSpace(msg), []byte("null")) {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(msg, &f); err != nil {
		return 0, false
	}
	return f, true
}

// maxDelta is the largest magnitude a float64 holds exactly as an integer.
const maxDelta = 1 << 53

func checkPair(ts, delta float64) error {
	switch {
	case math.IsNaN(ts) || math.IsInf(ts, 0):
		return fmt.Errorf("timestamp is not finite")
	case math.IsNaN(delta) || math.IsInf(delta, 0):
		return fmt.Errorf("delta is not finite")
	case ts < 0:
		return fmt.Errorf("timestamp is negative")
	case delta != math.Trunc(delta):
		return fmt.Errorf("delta is not an integer")
	case math.Abs(delta) > maxDelta:
		return fmt.Errorf("delta is out of range")
	}
	return nil
}

// SortScores orders scores by ascending timestamp in place.
func SortScores(scores []Pair) {
	slices.SortStableFunc(scores, func(a, b Pair) int { return cmp.Compare(a[0], b[0]) })
}

// Filename is the download name for a document of videoID.
func Filename(appName, videoID string) string {
	return fmt.Sprintf("%s-scores_%s.json", appName, videoID)
}

// ShareURL is the link that imports the document with hash on open.
func ShareURL(baseURL, hash string) string {
	return strings.TrimRight(baseURL, "/") + "/?id=" + url.QueryEscape(hash)
}
