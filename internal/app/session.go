package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/okian/clicker/internal/adapters/mq/queue"
	"github.com/okian/clicker/internal/adapters/prefs"
	"github.com/okian/clicker/internal/adapters/repository"
	"github.com/okian/clicker/internal/domain/capture"
	"github.com/okian/clicker/internal/domain/document"
	"github.com/okian/clicker/internal/domain/ledger"
	videolink "github.com/okian/clicker/internal/domain/link"
	"github.com/okian/clicker/internal/domain/model"
	"github.com/okian/clicker/internal/domain/player"
	"github.com/okian/clicker/internal/domain/replay"
	"github.com/okian/clicker/internal/domain/types"
	"github.com/okian/clicker/pkg/logger"
	"github.com/okian/clicker/pkg/metrics"
)

// User-facing notice texts.
const (
	msgInvalidLink   = "Error: invalid video link"
	msgBadScores     = "Error: cannot understand scores!"
	msgNotFound      = "Error: unable to find score :["
	msgTransport     = "Error: score server unreachable"
	msgNothingToSave = "Error: no video or no clicks to export"
)

// Session is one judge's scoring workspace: a video, its ledger, the key
// listener and the replay runner. The ledger snapshot is swapped atomically
// and every fresh start bumps a generation so late async results are dropped.
type Session struct {
	id     uuid.UUID
	svc    *Service
	obs    Observer
	player player.Player
	log    logger.Logger

	ctx    context.Context
	cancel context.CancelFunc

	ledger atomic.Pointer[ledger.Ledger]
	gen    atomic.Uint64

	// opMu serializes mutators; mu guards the fields below.
	opMu     sync.Mutex
	mu       sync.Mutex
	closed   bool
	videoID  string
	link     string
	mode     model.Mode
	ready    bool
	duration float64
	bindings capture.Bindings
	author   string

	capturer *capture.Capturer
	listener *capture.Listener
	runner   *replay.Runner
}

// recorder lets the capturer write into the session ledger.
type recorder struct{ s *Session }

func (r recorder) RecordDelta(ts float64, delta int) {
	r.s.swapLedger(func(l *ledger.Ledger) *ledger.Ledger { return l.RecordDelta(ts, delta) })
}

// NewSession starts a session in scoring mode driving p. Preferences are
// loaded when the service has a preference file.
func (s *Service) NewSession(ctx context.Context, p player.Player, obs Observer) *Session {
	if obs == nil {
		obs = NopObserver{}
	}
	sctx, cancel := context.WithCancel(ctx)
	sess := &Session{
		id:       uuid.New(),
		svc:      s,
		obs:      obs,
		player:   p,
		log:      s.logger.Named("session"),
		ctx:      sctx,
		cancel:   cancel,
		mode:     model.ModeScoring,
		bindings: s.bindings,
	}
	sess.ledger.Store(ledger.New())

	if s.prefs != nil {
		if pr, err := s.prefs.Load(ctx); err != nil {
			sess.log.Warn(ctx, "failed to load preferences", logger.Error(err))
		} else {
			sess.bindings = pr.Bindings
			sess.author = pr.JudgeName
		}
	}

	flasher := player.FlasherFunc(obs.OnFlash)
	sess.capturer = capture.New(recorder{sess}, flasher, capture.WithLogger(sess.log))
	sess.listener = capture.NewListener(sess.capturer)

	ropts := append([]replay.Option{}, s.replayOpts...)
	ropts = append(ropts, replay.WithLogger(sess.log), replay.WithCursor(obs.OnCursor))
	sess.runner = replay.NewRunner(p, flasher, ropts...)

	s.sessions.Add(1)
	metrics.AddSessions(1)
	sess.log.Info(ctx, "session opened", logger.String("session_id", sess.id.String()))

	sess.opMu.Lock()
	sess.rearm(false)
	sess.opMu.Unlock()
	return sess
}

// ID returns the session id.
func (s *Session) ID() uuid.UUID { return s.id }

// Close stops replay, disarms capture and drops pending async results.
func (s *Session) Close() {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.listener.Disarm()
	s.runner.Stop()
	s.cancel()
	s.gen.Add(1)
	s.svc.sessions.Add(-1)
	metrics.AddSessions(-1)
	s.log.Info(context.Background(), "session closed", logger.String("session_id", s.id.String()))
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// rearm disarms the key listener and re-installs it with the current state.
// With restartReplay the replay runner is stopped and, in playback mode with
// a ready player, started again on the current ledger. Callers hold opMu.
func (s *Session) rearm(restartReplay bool) {
	s.mu.Lock()
	gate := s.gateLocked()
	bindings := s.bindings
	closed := s.closed
	s.mu.Unlock()

	s.listener.Disarm()
	if closed {
		return
	}
	s.listener.Arm(gate, bindings)

	if !restartReplay {
		return
	}
	s.runner.Stop()
	if gate.Mode != model.ModePlayback || !gate.Ready || gate.Duration <= 0 {
		return
	}
	if err := s.runner.Start(s.ctx, s.ledger.Load()); err != nil {
		s.log.Debug(s.ctx, "replay not started", logger.Error(err))
	}
}

func (s *Session) gateLocked() capture.Gate {
	return capture.Gate{Mode: s.mode, Ready: s.ready, Duration: s.duration, Player: s.player}
}

func (s *Session) gate() capture.Gate {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gateLocked()
}

func (s *Session) swapLedger(fn func(*ledger.Ledger) *ledger.Ledger) (old, cur *ledger.Ledger) {
	for {
		old = s.ledger.Load()
		cur = fn(old)
		if s.ledger.CompareAndSwap(old, cur) {
			break
		}
	}
	if old != cur {
		s.emitLedger(cur)
	}
	return old, cur
}

func (s *Session) emitLedger(l *ledger.Ledger) {
	s.obs.OnLedger(l.Entries(), l.Summary(s.runner.Cursor()))
}

func (s *Session) notify(kind types.NoticeKind, msg, url string) {
	s.obs.OnNotice(types.Notice{Kind: kind, Message: msg, URL: url})
}

// SetMode switches between scoring and playback.
func (s *Session) SetMode(m model.Mode) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.Lock()
	changed := s.mode != m
	s.mode = m
	s.mu.Unlock()
	if !changed {
		return
	}
	s.rearm(true)
	s.obs.OnState(s.Snapshot())
}

// SetReady records player readiness and duration, as reported by the page.
func (s *Session) SetReady(ready bool, duration float64) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.Lock()
	changed := s.ready != ready || s.duration != duration
	s.ready, s.duration = ready, duration
	s.mu.Unlock()
	if !changed {
		return
	}
	s.rearm(true)
	s.obs.OnState(s.Snapshot())
}

// SetBindings replaces the scoring keys and persists them.
func (s *Session) SetBindings(ctx context.Context, b capture.Bindings) error {
	if !b.Valid() {
		return fmt.Errorf("%w: %q/%q", capture.ErrInvalidBindings, b.Positive, b.Negative)
	}
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.Lock()
	s.bindings = b
	s.mu.Unlock()
	s.rearm(false)
	s.savePrefs(ctx)
	s.obs.OnState(s.Snapshot())
	return nil
}

// SetAuthor stores the judge name, truncated to the configured limit, and
// returns what was stored.
func (s *Session) SetAuthor(ctx context.Context, name string) string {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	name = document.TruncateJudgeName(name, s.svc.nameLimit)
	s.mu.Lock()
	s.author = name
	s.mu.Unlock()
	s.savePrefs(ctx)
	s.obs.OnState(s.Snapshot())
	return name
}

func (s *Session) savePrefs(ctx context.Context) {
	if s.svc.prefs == nil || s.svc.prefsReadOnly {
		return
	}
	s.mu.Lock()
	p := prefs.Prefs{Bindings: s.bindings, JudgeName: s.author}
	s.mu.Unlock()
	if err := s.svc.prefs.Save(ctx, p); err != nil {
		s.log.Warn(ctx, "failed to save preferences", logger.Error(err))
	}
}

// HandleKey feeds a key-down event to the listener.
func (s *Session) HandleKey(ctx context.Context, ev capture.KeyEvent) capture.Outcome {
	return s.listener.HandleKey(ctx, ev)
}

// Click records delta at the current video position when scoring is open.
func (s *Session) Click(ctx context.Context, delta int) bool {
	if s.isClosed() {
		return false
	}
	return s.capturer.HandleClick(ctx, s.gate(), delta)
}

// DeleteClick removes the entry at ts. Only allowed while scoring.
func (s *Session) DeleteClick(ts float64) bool {
	s.mu.Lock()
	scoring := s.mode == model.ModeScoring && !s.closed
	s.mu.Unlock()
	if !scoring {
		return false
	}
	old, cur := s.swapLedger(func(l *ledger.Ledger) *ledger.Ledger { return l.DeleteAt(ts) })
	if old.Len() == cur.Len() {
		return false
	}
	metrics.RecordClickDeleted()
	return true
}

// Reset clears the ledger and starts a fresh generation.
func (s *Session) Reset() {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.gen.Add(1)
	s.ledger.Store(ledger.Clear())
	s.rearm(true)
	s.emitLedger(s.ledger.Load())
}

// ChangeVideo loads the video named by a link. The ledger is always reset;
// readiness is only dropped when the video id actually changes.
func (s *Session) ChangeVideo(raw string) error {
	id, err := videolink.Parse(raw)
	if err != nil {
		s.notify(types.NoticeLink, msgInvalidLink, "")
		return err
	}

	s.opMu.Lock()
	defer s.opMu.Unlock()
	s.loadVideo(id, raw)
	s.ledger.Store(ledger.Clear())
	s.rearm(true)
	s.emitLedger(s.ledger.Load())
	s.obs.OnState(s.Snapshot())
	return nil
}

// loadVideo switches the video id. Callers hold opMu.
func (s *Session) loadVideo(id, raw string) {
	s.gen.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	if id != s.videoID {
		s.ready = false
		s.duration = 0
	}
	s.videoID = id
	s.link = raw
}

// ImportJSON validates and loads an exported document.
func (s *Session) ImportJSON(data []byte) error {
	doc, err := document.ParseJSON(data)
	if err != nil {
		metrics.RecordImport("format_error")
		s.notify(types.NoticeFormat, msgBadScores, "")
		return err
	}
	return s.ImportDocument(doc)
}

// ImportDocument loads doc: its video, judge name and scores.
func (s *Session) ImportDocument(doc document.Document) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	return s.importLocked(doc, model.ModeScoring, false)
}

// importLocked loads doc and, with switchMode, moves the session to mode in
// the same step. Callers hold opMu.
func (s *Session) importLocked(doc document.Document, mode model.Mode, switchMode bool) error {
	if err := document.Validate(doc); err != nil {
		metrics.RecordImport("format_error")
		s.notify(types.NoticeFormat, msgBadScores, "")
		return err
	}
	if !videolink.ValidID(doc.VideoID) {
		metrics.RecordImport("link_error")
		s.notify(types.NoticeLink, msgInvalidLink, "")
		return fmt.Errorf("%w: %q", videolink.ErrLinkParse, doc.VideoID)
	}

	s.loadVideo(doc.VideoID, videolink.WatchURL(doc.VideoID))
	s.mu.Lock()
	s.author = document.TruncateJudgeName(doc.JudgeName, s.svc.nameLimit)
	if switchMode {
		s.mode = mode
	}
	s.mu.Unlock()
	l := doc.Ledger()
	s.ledger.Store(l)
	s.rearm(true)

	metrics.RecordImport("ok")
	s.log.Debug(s.ctx, "imported scores",
		logger.String("video_id", doc.VideoID), logger.Int("entries", l.Len()))
	s.emitLedger(l)
	s.obs.OnState(s.Snapshot())
	return nil
}

// ImportByHash looks a published document up on a worker. On success it is
// imported and the session switches to playback; results arriving after the
// session moved on are dropped.
func (s *Session) ImportByHash(ctx context.Context, hash string) error {
	if s.isClosed() {
		return ErrSessionClosed
	}
	gen := s.gen.Load()
	var doc document.Document
	err := s.svc.submit(ctx, queue.KindQuery,
		func(ctx context.Context) error {
			var err error
			doc, err = s.svc.store.QueryByHash(ctx, hash)
			return err
		},
		func(err error) {
			// Staleness is checked under opMu, together with the import.
			s.opMu.Lock()
			defer s.opMu.Unlock()
			if s.gen.Load() != gen || s.ctx.Err() != nil {
				metrics.RecordQuery("stale")
				s.log.Debug(s.ctx, "dropping stale lookup", logger.String("hash", hash))
				return
			}
			metrics.RecordQuery(queryOutcome(err))
			if err != nil {
				s.log.Debug(s.ctx, "lookup failed", logger.String("hash", hash), logger.Error(err))
				s.notify(types.NoticeNotFound, msgNotFound+" ID: "+hash, "")
				return
			}
			_ = s.importLocked(doc, model.ModePlayback, true)
		})
	if err != nil {
		s.notify(types.NoticeTransport, msgTransport, "")
	}
	return err
}

// document snapshots the session into an export document.
func (s *Session) document() (document.Document, error) {
	s.mu.Lock()
	videoID, author := s.videoID, s.author
	s.mu.Unlock()
	l := s.ledger.Load()
	if videoID == "" || l.Len() == 0 {
		return document.Document{}, ErrNothingToExport
	}
	return document.Build(videoID, author, l, s.svc.now()), nil
}

// Export hands the document to the observer for download and writes it to
// the export sink on a worker.
func (s *Session) Export(ctx context.Context) error {
	doc, err := s.document()
	if err != nil {
		s.notify(types.NoticeInfo, msgNothingToSave, "")
		return err
	}
	name := document.Filename(s.svc.appName, doc.VideoID)
	s.obs.OnExport(name, doc)

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode export: %w", err)
	}
	sink := s.svc.sink
	var where string
	err = s.svc.submit(ctx, queue.KindExport,
		func(ctx context.Context) error {
			var err error
			where, err = sink.Put(ctx, name, data)
			return err
		},
		func(err error) {
			if err != nil {
				metrics.RecordExport(sink.Kind(), "error")
				s.log.Warn(s.ctx, "export failed", logger.String("name", name), logger.Error(err))
				s.notify(types.NoticeTransport, "Error: export failed", "")
				return
			}
			metrics.RecordExport(sink.Kind(), "ok")
			s.notify(types.NoticeInfo, "Scores exported", where)
		})
	if err != nil {
		s.notify(types.NoticeTransport, msgTransport, "")
	}
	return err
}

// Publish stores the current document on a worker and reports the share
// link. An already published document is reported as such, with its link.
func (s *Session) Publish(ctx context.Context) error {
	doc, err := s.document()
	if err != nil {
		s.notify(types.NoticeInfo, msgNothingToSave, "")
		return err
	}
	gen := s.gen.Load()
	err = s.svc.submit(ctx, queue.KindPublish,
		func(ctx context.Context) error { return s.svc.storePublish(ctx, doc) },
		func(err error) {
			if s.gen.Load() != gen || s.ctx.Err() != nil {
				s.log.Debug(s.ctx, "dropping stale publish result", logger.String("hash", doc.Hash))
				return
			}
			res, notice := s.svc.publishResult(doc.Hash, err)
			if err != nil && !errors.Is(err, repository.ErrConflict) {
				s.log.Warn(s.ctx, "publish failed", logger.Error(err))
			}
			s.obs.OnPublish(res)
			if notice != nil {
				s.obs.OnNotice(*notice)
			}
		})
	if err != nil {
		s.obs.OnPublish(types.PublishResult{Status: types.StatusPublishFailed})
		s.notify(types.NoticeTransport, msgTransport, "")
	}
	return err
}

// Cursor returns the replay cursor, or replay.NoCursor when idle.
func (s *Session) Cursor() int { return s.runner.Cursor() }

// Summary aggregates the ledger. While a replay runs only entries before the
// cursor count.
func (s *Session) Summary() ledger.Summary {
	return s.ledger.Load().Summary(s.runner.Cursor())
}

// Ledger returns the current ledger snapshot.
func (s *Session) Ledger() *ledger.Ledger { return s.ledger.Load() }

// Replaying reports whether the replay timer runs.
func (s *Session) Replaying() bool { return s.runner.Running() }

// Snapshot returns the session state.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	st := State{
		SessionID: s.id.String(),
		VideoID:   s.videoID,
		Link:      s.link,
		Mode:      s.mode.String(),
		Ready:     s.ready,
		Duration:  s.duration,
		Bindings:  s.bindings,
		Author:    s.author,
	}
	s.mu.Unlock()
	l := s.ledger.Load()
	st.Entries = l.Entries()
	st.Cursor = s.runner.Cursor()
	st.Summary = l.Summary(st.Cursor)
	return st
}
