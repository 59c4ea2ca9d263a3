// Package ledger implements the sorted timestamp -> delta score mapping.
//
// A Ledger is immutable: every mutation returns a new *Ledger and leaves the
// receiver untouched, so holders can detect changes by pointer comparison and
// concurrent readers never see a half-applied update. Entries are kept in
// strictly ascending timestamp order and a delta that nets to zero removes
// its entry.
package ledger

import (
	"cmp"
	"slices"
	"sort"

	"github.com/okian/clicker/internal/domain/model"
)

// Ledger is an immutable, always-sorted set of score entries.
// The zero value and a nil *Ledger are both empty ledgers.
type Ledger struct {
	entries []model.Entry
}

// New returns an empty ledger.
func New() *Ledger { return &Ledger{} }

// Clear returns an empty ledger.
func Clear() *Ledger { return New() }

// ReplaceAll builds a fresh ledger from pairs in any order. Callers validate
// the pairs first. A repeated timestamp keeps the last delta seen for it and
// zero deltas are dropped.
func ReplaceAll(entries []model.Entry) *Ledger {
	byTime := make(map[float64]int, len(entries))
	for _, e := range entries {
		byTime[e.Timestamp] = e.Delta
	}
	out := make([]model.Entry, 0, len(byTime))
	for ts, d := range byTime {
		if d == 0 {
			continue
		}
		out = append(out, model.Entry{Timestamp: ts, Delta: d})
	}
	return build(out)
}

// RecordDelta adds delta to the entry at ts, creating it when absent. A sum of
// exactly zero removes the entry.
func (l *Ledger) RecordDelta(ts float64, delta int) *Ledger {
	cur := l.all()
	out := make([]model.Entry, 0, len(cur)+1)
	sum := delta
	for _, e := range cur {
		if e.Timestamp == ts {
			sum += e.Delta
			continue
		}
		out = append(out, e)
	}
	if sum != 0 {
		out = append(out, model.Entry{Timestamp: ts, Delta: sum})
	}
	return build(out)
}

// DeleteAt removes the entry at ts. Deleting a missing timestamp returns an
// equal ledger.
func (l *Ledger) DeleteAt(ts float64) *Ledger {
	cur := l.all()
	out := make([]model.Entry, 0, len(cur))
	for _, e := range cur {
		if e.Timestamp != ts {
			out = append(out, e)
		}
	}
	return build(out)
}

// Get returns the delta at ts and whether an entry exists.
func (l *Ledger) Get(ts float64) (int, bool) {
	cur := l.all()
	i, found := slices.BinarySearchFunc(cur, ts, func(e model.Entry, t float64) int {
		return cmp.Compare(e.Timestamp, t)
	})
	if !found {
		return 0, false
	}
	return cur[i].Delta, true
}

// Len returns the number of entries.
func (l *Ledger) Len() int { return len(l.all()) }

// At returns the i-th entry in ascending order. It panics when i is out of range.
func (l *Ledger) At(i int) model.Entry { return l.all()[i] }

// Entries returns a copy of the entries in ascending order.
func (l *Ledger) Entries() []model.Entry { return slices.Clone(l.all()) }

// First returns the earliest timestamp.
func (l *Ledger) First() (float64, bool) {
	cur := l.all()
	if len(cur) == 0 {
		return 0, false
	}
	return cur[0].Timestamp, true
}

// Last returns the latest timestamp.
func (l *Ledger) Last() (float64, bool) {
	cur := l.all()
	if len(cur) == 0 {
		return 0, false
	}
	return cur[len(cur)-1].Timestamp, true
}

// FirstAfter returns the index of the first entry whose timestamp is strictly
// greater than t, or -1 when there is none.
func (l *Ledger) FirstAfter(t float64) int {
	cur := l.all()
	i := sort.Search(len(cur), func(i int) bool { return cur[i].Timestamp > t })
	if i == len(cur) {
		return -1
	}
	return i
}

// Equal reports whether both ledgers hold the same timestamp -> delta pairs.
func (l *Ledger) Equal(other *Ledger) bool {
	return slices.Equal(l.all(), other.all())
}

func (l *Ledger) all() []model.Entry {
	if l == nil {
		return nil
	}
	return l.entries
}

func build(entries []model.Entry) *Ledger {
	slices.SortFunc(entries, func(a, b model.Entry) int {
		return cmp.Compare(a.Timestamp, b.Timestamp)
	})
	return &Ledger{entries: entries}
}
