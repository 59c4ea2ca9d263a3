package ws

import (
	"math"
	"sync"
	"time"

	"github.com/okian/clicker/internal/domain/model"
)

// Report corrections while playing smaller than seekTolerance are eased in
// over convergeWindow so the clock the replay reads never runs backwards or
// jumps. Larger corrections are taken as seeks.
const (
	seekTolerance  = 0.5
	convergeWindow = time.Second
)

// RemotePlayer is the playback contract backed by the page's embedded
// player. Reads come from the last reported state, extrapolated while
// playing; commands are sent to the page.
type RemotePlayer struct {
	mu       sync.Mutex
	duration float64
	state    model.PlayState

	// While playing the position is anchor + elapsed, plus skew spread
	// linearly over convergeWindow.
	anchor   float64
	anchorAt time.Time
	skew     float64

	send func(ServerMessage)
	now  func() time.Time
}

// NewRemotePlayer returns an unstarted player that sends commands with send.
func NewRemotePlayer(send func(ServerMessage)) *RemotePlayer {
	return &RemotePlayer{
		state: model.PlayStateUnstarted,
		send:  send,
		now:   time.Now,
	}
}

// Update records a state report from the page. While playback continues, a
// small disagreement with the local estimate is absorbed gradually.
func (p *RemotePlayer) Update(duration, current float64, state model.PlayState) {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := p.now()
	p.duration = duration

	if state == model.PlayStatePlaying && p.state == model.PlayStatePlaying && !p.anchorAt.IsZero() {
		est := p.positionLocked(now)
		if drift := current - est; math.Abs(drift) < seekTolerance {
			p.anchor, p.anchorAt, p.skew = est, now, drift
			return
		}
	}
	p.anchor, p.anchorAt, p.skew = current, now, 0
	p.state = state
}

// positionLocked is the unclamped position at now.
func (p *RemotePlayer) positionLocked(now time.Time) float64 {
	if p.state != model.PlayStatePlaying || p.anchorAt.IsZero() {
		return p.anchor
	}
	elapsed := now.Sub(p.anchorAt)
	t := p.anchor + elapsed.Seconds()
	if elapsed >= convergeWindow {
		return t + p.skew
	}
	return t + p.skew*elapsed.Seconds()/convergeWindow.Seconds()
}

// CurrentTime implements player.Player.
func (p *RemotePlayer) CurrentTime() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	t := p.positionLocked(p.now())
	if p.duration > 0 && t > p.duration {
		t = p.duration
	}
	return t
}

// Duration implements player.Player.
func (p *RemotePlayer) Duration() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.duration
}

// PlayState implements player.Player.
func (p *RemotePlayer) PlayState() model.PlayState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// SeekTo implements player.Player.
func (p *RemotePlayer) SeekTo(seconds float64) {
	p.mu.Lock()
	p.anchor, p.anchorAt, p.skew = seconds, p.now(), 0
	p.mu.Unlock()
	p.send(ServerMessage{Type: OutSeek, Seconds: &seconds})
}

// Play implements player.Player.
func (p *RemotePlayer) Play() {
	p.setState(model.PlayStatePlaying)
	p.send(ServerMessage{Type: OutPlay})
}

// Pause implements player.Player.
func (p *RemotePlayer) Pause() {
	p.setState(model.PlayStatePaused)
	p.send(ServerMessage{Type: OutPause})
}

func (p *RemotePlayer) setState(s model.PlayState) {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := p.now()
	p.anchor, p.anchorAt, p.skew = p.positionLocked(now), now, 0
	p.state = s
}
