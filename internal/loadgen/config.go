// Package loadgen publishes generated score documents to a store
// concurrently, republishes a share of them to exercise conflicts and reads
// every one back to verify its hash.
package loadgen

import (
	"errors"
	"time"
)

// ErrVerify is returned when a published document does not read back intact.
var ErrVerify = errors.New("published document failed verification")

// Config holds configuration for a load run.
type Config struct {
	Documents int     // documents to generate and publish
	Clicks    int     // clicks per document
	Workers   int     // concurrent publishers
	Repeat    float64 // share of documents published a second time, in [0, 1]
	MaxTime   float64 // upper bound for click timestamps, in seconds
}

// Stats holds run statistics.
type Stats struct {
	Generated  int           `json:"generated"`
	Published  int           `json:"published"`
	Conflicts  int           `json:"conflicts"`
	Failed     int           `json:"failed"`
	Verified   int           `json:"verified"`
	Mismatched int           `json:"mismatched"`
	Duration   time.Duration `json:"duration"`
	P50        time.Duration `json:"p50"`
	P99        time.Duration `json:"p99"`
}

// PublishRate is the number of publish calls per second.
func (s Stats) PublishRate() float64 {
	if s.Duration <= 0 {
		return 0
	}
	return float64(s.Published+s.Conflicts+s.Failed) / s.Duration.Seconds()
}

func (c Config) withDefaults() Config {
	if c.Documents <= 0 {
		c.Documents = 100
	}
	if c.Clicks <= 0 {
		c.Clicks = 20
	}
	if c.Workers <= 0 {
		c.Workers = 4
	}
	if c.MaxTime <= 0 {
		c.MaxTime = 600
	}
	c.Repeat = min(max(c.Repeat, 0), 1)
	return c
}
