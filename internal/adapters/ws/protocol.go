// Package ws carries a live scoring session over a websocket: the page
// reports player state and input, the server answers with flashes, cursor
// moves, ledger updates, notices and player commands.
package ws

import (
	"encoding/json"

	service "github.com/okian/clicker/internal/app"
	"github.com/okian/clicker/internal/domain/capture"
	"github.com/okian/clicker/internal/domain/document"
	"github.com/okian/clicker/internal/domain/ledger"
	"github.com/okian/clicker/internal/domain/model"
	"github.com/okian/clicker/internal/domain/types"
)

// Inbound message types.
const (
	InState    = "state"
	InKey      = "key"
	InClick    = "click"
	InDelete   = "delete"
	InMode     = "mode"
	InBindings = "bindings"
	InAuthor   = "author"
	InVideo    = "video"
	InImport   = "import"
	InLookup   = "lookup"
	InExport   = "export"
	InPublish  = "publish"
	InReset    = "reset"
	InSnapshot = "snapshot"
)

// Outbound message types.
const (
	OutFlash   = "flash"
	OutCursor  = "cursor"
	OutLedger  = "ledger"
	OutState   = "session"
	OutNotice  = "notice"
	OutPublish = "published"
	OutExport  = "export"
	OutKey     = "key"
	OutSeek    = "seek"
	OutPlay    = "play"
	OutPause   = "pause"
)

// ClientMessage is the JSON structure received from the page.
type ClientMessage struct {
	Type string `json:"type"`

	// state
	Ready       bool    `json:"ready,omitempty"`
	Duration    float64 `json:"duration,omitempty"`
	CurrentTime float64 `json:"currentTime,omitempty"`
	PlayState   *int    `json:"playState,omitempty"`

	// key
	Key       string `json:"key,omitempty"`
	Repeat    bool   `json:"repeat,omitempty"`
	TargetTag string `json:"targetTag,omitempty"`
	Editable  bool   `json:"editable,omitempty"`

	Delta     int               `json:"delta,omitempty"`
	Timestamp float64           `json:"timestamp,omitempty"`
	Mode      string            `json:"mode,omitempty"`
	Bindings  *capture.Bindings `json:"bindings,omitempty"`
	Author    string            `json:"author,omitempty"`
	Link      string            `json:"link,omitempty"`
	Document  json.RawMessage   `json:"document,omitempty"`
	Hash      string            `json:"hash,omitempty"`
}

// ServerMessage is the JSON structure sent to the page.
type ServerMessage struct {
	Type string `json:"type"`

	Sign     string               `json:"sign,omitempty"`
	Cursor   *int                 `json:"cursor,omitempty"`
	Entries  []model.Entry        `json:"entries,omitempty"`
	Summary  *ledger.Summary      `json:"summary,omitempty"`
	State    *service.State       `json:"state,omitempty"`
	Notice   *types.Notice        `json:"notice,omitempty"`
	Publish  *types.PublishResult `json:"publish,omitempty"`
	Name     string               `json:"name,omitempty"`
	Document *document.Document   `json:"document,omitempty"`
	Seconds  *float64             `json:"seconds,omitempty"`
	Handled  bool                 `json:"handled,omitempty"`
	Recorded bool                 `json:"recorded,omitempty"`
}
