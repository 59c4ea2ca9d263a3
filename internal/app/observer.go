package service

import (
	"github.com/okian/clicker/internal/domain/capture"
	"github.com/okian/clicker/internal/domain/document"
	"github.com/okian/clicker/internal/domain/ledger"
	"github.com/okian/clicker/internal/domain/model"
	"github.com/okian/clicker/internal/domain/types"
)

// Observer receives session output. Callbacks may run on the replay timer
// or a worker goroutine, and some run while a session operation is in
// progress, so they must not call Session mutators.
type Observer interface {
	OnFlash(sign model.Sign)
	OnCursor(cursor int)
	OnLedger(entries []model.Entry, summary ledger.Summary)
	OnState(st State)
	OnNotice(n types.Notice)
	OnPublish(r types.PublishResult)
	OnExport(name string, doc document.Document)
}

// NopObserver discards everything. Embed it to implement a subset.
type NopObserver struct{}

func (NopObserver) OnFlash(model.Sign)                     {}
func (NopObserver) OnCursor(int)                           {}
func (NopObserver) OnLedger([]model.Entry, ledger.Summary) {}
func (NopObserver) OnState(State)                          {}
func (NopObserver) OnNotice(types.Notice)                  {}
func (NopObserver) OnPublish(types.PublishResult)          {}
func (NopObserver) OnExport(string, document.Document)     {}

// State is a point-in-time view of a session.
type State struct {
	SessionID string           `json:"sessionId"`
	VideoID   string           `json:"videoId"`
	Link      string           `json:"link"`
	Mode      string           `json:"mode"`
	Ready     bool             `json:"ready"`
	Duration  float64          `json:"duration"`
	Bindings  capture.Bindings `json:"bindings"`
	Author    string           `json:"author"`
	Entries   []model.Entry    `json:"entries"`
	Cursor    int              `json:"cursor"`
	Summary   ledger.Summary   `json:"summary"`
}
