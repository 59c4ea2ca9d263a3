package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"

	"github.com/coder/websocket"

	service "github.com/okian/clicker/internal/app"
	"github.com/okian/clicker/internal/domain/capture"
	"github.com/okian/clicker/internal/domain/document"
	"github.com/okian/clicker/internal/domain/ledger"
	"github.com/okian/clicker/internal/domain/model"
	"github.com/okian/clicker/internal/domain/player"
	"github.com/okian/clicker/internal/domain/types"
	"github.com/okian/clicker/pkg/logger"
)

const defaultReadLimit = 4 << 20

// Sessions opens scoring sessions for new connections.
type Sessions interface {
	NewSession(ctx context.Context, p player.Player, obs service.Observer) *service.Session
}

// Handler upgrades requests to websocket connections, each driving its own
// session. A "?id=<hash>" query loads a published score on connect.
type Handler struct {
	sessions  Sessions
	hub       *Hub
	origins   []string
	readLimit int64
	log       logger.Logger
}

// Option configures a Handler.
type Option func(*Handler)

// WithOriginPatterns allows cross-origin pages matching the patterns.
func WithOriginPatterns(patterns ...string) Option {
	return func(h *Handler) { h.origins = append(h.origins, patterns...) }
}

// WithReadLimit bounds the size of an inbound message.
func WithReadLimit(n int64) Option {
	return func(h *Handler) {
		if n > 0 {
			h.readLimit = n
		}
	}
}

// WithHub shares a hub between handlers.
func WithHub(hub *Hub) Option {
	return func(h *Handler) {
		if hub != nil {
			h.hub = hub
		}
	}
}

// WithLogger sets the handler logger.
func WithLogger(l logger.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.log = l
		}
	}
}

// NewHandler returns a websocket handler opening sessions from sessions.
func NewHandler(sessions Sessions, opts ...Option) *Handler {
	h := &Handler{
		sessions:  sessions,
		hub:       NewHub(),
		readLimit: defaultReadLimit,
		log:       logger.Nop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Hub returns the connection hub.
func (h *Handler) Hub() *Hub { return h.hub }

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: h.origins})
	if err != nil {
		h.log.Warn(r.Context(), "websocket accept failed", logger.Error(err))
		return
	}
	conn.SetReadLimit(h.readLimit)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	obs := &observer{}
	remote := NewRemotePlayer(obs.send)
	sess := h.sessions.NewSession(ctx, remote, obs)
	client := NewClient(sess.ID().String(), conn)
	obs.client.Store(client)
	obs.sess.Store(sess)

	h.hub.Register(client)
	go client.WritePump(ctx)

	log := h.log.Named("conn")
	log.Debug(ctx, "client connected", logger.String("session_id", client.ID))

	st := sess.Snapshot()
	client.EnqueueMessage(ServerMessage{Type: OutState, State: &st})
	if id := r.URL.Query().Get("id"); id != "" {
		_ = sess.ImportByHash(ctx, id)
	}

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if status := websocket.CloseStatus(err); status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway {
				log.Debug(ctx, "read loop ended", logger.String("session_id", client.ID), logger.Error(err))
			}
			break
		}
		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			client.EnqueueMessage(noticeMessage(types.NoticeFormat, "Error: malformed message"))
			continue
		}
		if err := h.dispatch(ctx, sess, remote, client, msg); err != nil {
			log.Debug(ctx, "message rejected",
				logger.String("session_id", client.ID),
				logger.String("type", msg.Type),
				logger.Error(err))
			if errors.Is(err, ErrUnknownMessage) || errors.Is(err, ErrBadMessage) {
				client.EnqueueMessage(noticeMessage(types.NoticeFormat, "Error: "+err.Error()))
			}
		}
	}

	sess.Close()
	h.hub.Unregister(client.ID)
	cancel()
	_ = conn.Close(websocket.StatusNormalClosure, "")
	log.Debug(context.Background(), "client disconnected", logger.String("session_id", client.ID))
}

func (h *Handler) dispatch(ctx context.Context, sess *service.Session, remote *RemotePlayer, c *Client, msg ClientMessage) error {
	switch msg.Type {
	case InState:
		state := model.PlayStateUnstarted
		if msg.PlayState != nil {
			state = model.PlayState(*msg.PlayState)
		}
		remote.Update(msg.Duration, msg.CurrentTime, state)
		sess.SetReady(msg.Ready, msg.Duration)
		return nil
	case InKey:
		out := sess.HandleKey(ctx, capture.KeyEvent{
			Key:       msg.Key,
			Repeat:    msg.Repeat,
			TargetTag: msg.TargetTag,
			Editable:  msg.Editable,
		})
		c.EnqueueMessage(ServerMessage{Type: OutKey, Handled: out.Handled, Recorded: out.Recorded})
		return nil
	case InClick:
		if msg.Delta == 0 {
			return fmt.Errorf("click: %w", ErrBadMessage)
		}
		sess.Click(ctx, msg.Delta)
		return nil
	case InDelete:
		sess.DeleteClick(msg.Timestamp)
		return nil
	case InMode:
		m, ok := model.ParseMode(msg.Mode)
		if !ok {
			return fmt.Errorf("mode %q: %w", msg.Mode, ErrBadMessage)
		}
		sess.SetMode(m)
		return nil
	case InBindings:
		if msg.Bindings == nil {
			return fmt.Errorf("bindings: %w", ErrBadMessage)
		}
		if err := sess.SetBindings(ctx, *msg.Bindings); err != nil {
			c.EnqueueMessage(noticeMessage(types.NoticeFormat, "Error: invalid key bindings"))
			return err
		}
		return nil
	case InAuthor:
		sess.SetAuthor(ctx, msg.Author)
		return nil
	case InVideo:
		return sess.ChangeVideo(msg.Link)
	case InImport:
		return sess.ImportJSON(msg.Document)
	case InLookup:
		return sess.ImportByHash(ctx, msg.Hash)
	case InExport:
		return sess.Export(ctx)
	case InPublish:
		return sess.Publish(ctx)
	case InReset:
		sess.Reset()
		return nil
	case InSnapshot:
		st := sess.Snapshot()
		c.EnqueueMessage(ServerMessage{Type: OutState, State: &st})
		return nil
	default:
		return fmt.Errorf("%q: %w", msg.Type, ErrUnknownMessage)
	}
}

func noticeMessage(kind types.NoticeKind, text string) ServerMessage {
	return ServerMessage{Type: OutNotice, Notice: &types.Notice{Kind: kind, Message: text}}
}

// observer forwards session events to the connection. The client and
// session are attached after the session opens.
type observer struct {
	client atomic.Pointer[Client]
	sess   atomic.Pointer[service.Session]
}

func (o *observer) send(msg ServerMessage) {
	if c := o.client.Load(); c != nil {
		c.EnqueueMessage(msg)
	}
}

func (o *observer) OnFlash(s model.Sign) {
	o.send(ServerMessage{Type: OutFlash, Sign: s.String()})
}

func (o *observer) OnCursor(cursor int) {
	msg := ServerMessage{Type: OutCursor, Cursor: &cursor}
	if sess := o.sess.Load(); sess != nil {
		sum := sess.Ledger().Summary(cursor)
		msg.Summary = &sum
	}
	o.send(msg)
}

func (o *observer) OnLedger(entries []model.Entry, sum ledger.Summary) {
	o.send(ServerMessage{Type: OutLedger, Entries: entries, Summary: &sum})
}

func (o *observer) OnState(st service.State) {
	o.send(ServerMessage{Type: OutState, State: &st})
}

func (o *observer) OnNotice(n types.Notice) {
	o.send(ServerMessage{Type: OutNotice, Notice: &n})
}

func (o *observer) OnPublish(res types.PublishResult) {
	o.send(ServerMessage{Type: OutPublish, Publish: &res})
}

func (o *observer) OnExport(name string, doc document.Document) {
	o.send(ServerMessage{Type: OutExport, Name: name, Document: &doc})
}
