// Package model contains domain models passed between layers.
package model

// Entry is one scored click: a signed delta recorded at a video position.
type Entry struct {
	Timestamp float64 `json:"timestamp"` // seconds from the start of the video
	Delta     int     `json:"delta"`     // nonzero; typically +1 or -1
}

// Mode selects whether the session records clicks or replays them.
type Mode int

const (
	ModeScoring Mode = iota
	ModePlayback
)

func (m Mode) String() string {
	switch m {
	case ModeScoring:
		return "scoring"
	case ModePlayback:
		return "playback"
	default:
		return "unknown"
	}
}

// ParseMode maps the wire name of a mode back to its value.
func ParseMode(s string) (Mode, bool) {
	switch s {
	case "scoring":
		return ModeScoring, true
	case "playback":
		return ModePlayback, true
	}
	return ModeScoring, false
}

// PlayState is the discrete player state, using the provider's numeric codes.
type PlayState int

const (
	PlayStateUnstarted PlayState = -1
	PlayStateEnded     PlayState = 0
	PlayStatePlaying   PlayState = 1
	PlayStatePaused    PlayState = 2
	PlayStateBuffering PlayState = 3
	PlayStateCued      PlayState = 5
)

func (p PlayState) String() string {
	switch p {
	case PlayStateUnstarted:
		return "unstarted"
	case PlayStateEnded:
		return "ended"
	case PlayStatePlaying:
		return "playing"
	case PlayStatePaused:
		return "paused"
	case PlayStateBuffering:
		return "buffering"
	case PlayStateCued:
		return "cued"
	default:
		return "unknown"
	}
}

// Sign classifies a delta for flash feedback.
type Sign int

const (
	SignNone Sign = iota
	SignPositive
	SignNegative
)

// SignOf returns the flash sign of a delta. Only exact +1 and -1 flash.
func SignOf(delta int) Sign {
	switch delta {
	case 1:
		return SignPositive
	case -1:
		return SignNegative
	default:
		return SignNone
	}
}

func (s Sign) String() string {
	switch s {
	case SignPositive:
		return "positive"
	case SignNegative:
		return "negative"
	default:
		return "none"
	}
}

// PlaybackState is the player's externally owned state as last observed.
type PlaybackState struct {
	Ready       bool
	Duration    float64
	CurrentTime float64
	Playing     bool
}
