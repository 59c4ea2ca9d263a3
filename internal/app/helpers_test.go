package service_test

import (
	"sync"
	"time"

	service "github.com/okian/clicker/internal/app"
	"github.com/okian/clicker/internal/domain/document"
	"github.com/okian/clicker/internal/domain/ledger"
	"github.com/okian/clicker/internal/domain/model"
	"github.com/okian/clicker/internal/domain/types"
)

// observer records everything a session emits.
type observer struct {
	mu        sync.Mutex
	flashes   []model.Sign
	cursors   []int
	notices   []types.Notice
	publishes []types.PublishResult
	exports   []string
	states    []service.State
	entries   []model.Entry
}

func (o *observer) OnFlash(sign model.Sign) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.flashes = append(o.flashes, sign)
}

func (o *observer) OnCursor(c int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.cursors = append(o.cursors, c)
}

func (o *observer) OnLedger(entries []model.Entry, _ ledger.Summary) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.entries = entries
}

func (o *observer) OnState(st service.State) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.states = append(o.states, st)
}

func (o *observer) OnNotice(n types.Notice) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.notices = append(o.notices, n)
}

func (o *observer) OnPublish(r types.PublishResult) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.publishes = append(o.publishes, r)
}

func (o *observer) OnExport(name string, _ document.Document) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.exports = append(o.exports, name)
}

func (o *observer) flashCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.flashes)
}

func (o *observer) lastNotice() (types.Notice, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.notices) == 0 {
		return types.Notice{}, false
	}
	return o.notices[len(o.notices)-1], true
}

func (o *observer) lastPublish() (types.PublishResult, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.publishes) == 0 {
		return types.PublishResult{}, false
	}
	return o.publishes[len(o.publishes)-1], true
}

// eventually polls cond for up to two seconds.
func eventually(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

var fixedNow = time.UnixMilli(1_700_000_000_000)

func sampleDocument() document.Document {
	l := ledger.New().RecordDelta(10, 1).RecordDelta(11, -1).RecordDelta(12, 1)
	return document.Build("dQw4w9WgXcQ", "judge", l, fixedNow)
}
