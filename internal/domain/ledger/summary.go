package ledger

// Summary aggregates a ledger prefix for score display.
type Summary struct {
	Count    int     `json:"count"`
	Positive int     `json:"positive"` // sum of positive deltas
	Negative int     `json:"negative"` // sum of negative deltas, <= 0
	Total    int     `json:"total"`    // Positive + Negative
	Span     float64 `json:"span"`     // last - first timestamp, 0 when fewer than two entries
}

// Summary aggregates the first prefix entries. A prefix outside [0, Len)
// covers the whole ledger, so a replay that has not started or has finished
// shows the full score.
func (l *Ledger) Summary(prefix int) Summary {
	cur := l.all()
	if prefix >= 0 && prefix < len(cur) {
		cur = cur[:prefix]
	}

	var s Summary
	s.Count = len(cur)
	for _, e := range cur {
		if e.Delta > 0 {
			s.Positive += e.Delta
		} else {
			s.Negative += e.Delta
		}
	}
	s.Total = s.Positive + s.Negative
	if len(cur) > 1 {
		s.Span = cur[len(cur)-1].Timestamp - cur[0].Timestamp
	}
	return s
}

// PositiveRate returns positive clicks per second over the span.
func (s Summary) PositiveRate() float64 { return rate(s.Positive, s.Span) }

// NegativeRate returns negative clicks per second over the span, as a
// non-negative number.
func (s Summary) NegativeRate() float64 { return rate(-s.Negative, s.Span) }

func rate(n int, span float64) float64 {
	if span <= 0 {
		return 0
	}
	return float64(n) / span
}
