package loadgen

import (
	"crypto/rand"
	"math"
	"math/big"
	"time"

	"github.com/google/uuid"

	"github.com/okian/clicker/internal/domain/document"
	"github.com/okian/clicker/internal/domain/ledger"
	"github.com/okian/clicker/internal/domain/model"
)

const (
	videoIDAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789_-"
	videoIDLength   = 11
	randomDivisor   = 1_000_000
)

// randomFloat returns a random float64 in [0, 1) using crypto/rand.
func randomFloat() float64 {
	n, _ := rand.Int(rand.Reader, big.NewInt(randomDivisor))
	return float64(n.Int64()) / randomDivisor
}

func randomVideoID() string {
	b := make([]byte, videoIDLength)
	for i := range b {
		n, _ := rand.Int(rand.Reader, big.NewInt(int64(len(videoIDAlphabet))))
		b[i] = videoIDAlphabet[n.Int64()]
	}
	return string(b)
}

// Generate builds one document with clicks random +1/-1 clicks on a random
// video, timestamps rounded to centiseconds.
func Generate(clicks int, maxTime float64, now time.Time) document.Document {
	entries := make([]model.Entry, 0, clicks)
	for range clicks {
		delta := 1
		if randomFloat() < 0.5 {
			delta = -1
		}
		ts := math.Round(randomFloat()*maxTime*100) / 100
		entries = append(entries, model.Entry{Timestamp: ts, Delta: delta})
	}
	judge := "load-" + uuid.NewString()[:8]
	return document.Build(randomVideoID(), judge, ledger.ReplaceAll(entries), now)
}

// GenerateAll builds cfg.Documents documents, skipping any whose clicks all
// cancelled out.
func GenerateAll(cfg Config, now time.Time) []document.Document {
	cfg = cfg.withDefaults()
	docs := make([]document.Document, 0, cfg.Documents)
	for len(docs) < cfg.Documents {
		doc := Generate(cfg.Clicks, cfg.MaxTime, now)
		if len(doc.Scores) == 0 {
			continue
		}
		docs = append(docs, doc)
	}
	return docs
}
