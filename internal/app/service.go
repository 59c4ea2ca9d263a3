// Package service wires the document store, the async I/O worker pool,
// export sinks and preferences into scoring sessions and the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/clicker/internal/adapters/export"
	"github.com/okian/clicker/internal/adapters/mq/queue"
	"github.com/okian/clicker/internal/adapters/mq/worker"
	"github.com/okian/clicker/internal/adapters/prefs"
	"github.com/okian/clicker/internal/adapters/repository"
	"github.com/okian/clicker/internal/domain/capture"
	"github.com/okian/clicker/internal/domain/dedupe"
	"github.com/okian/clicker/internal/domain/document"
	"github.com/okian/clicker/internal/domain/link"
	"github.com/okian/clicker/internal/domain/replay"
	"github.com/okian/clicker/internal/domain/types"
	"github.com/okian/clicker/pkg/logger"
	"github.com/okian/clicker/pkg/metrics"
)

const stopTimeout = 10 * time.Second

// Service owns the shared infrastructure behind every session.
type Service struct {
	mu sync.RWMutex

	store         repository.Store
	queue         *queue.InMemoryQueue
	pool          *worker.Pool
	sink          export.Sink
	prefs         *prefs.File
	prefsReadOnly bool

	// published caches hashes the store has confirmed.
	published      dedupe.Deduper
	publishedCache int

	workerCount int
	queueSize   int
	appName     string
	baseURL     string
	nameLimit   int
	bindings    capture.Bindings
	replayOpts  []replay.Option
	now         func() time.Time

	started  bool
	sessions atomic.Int64

	logger logger.Logger
}

// New constructs a Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount: runtime.NumCPU(),
		queueSize:   1024,
		appName:     "44clicker",
		baseURL:     "http://localhost:9080",
		nameLimit:   document.DefaultJudgeNameLimit,
		bindings:    capture.DefaultBindings(),
		now:         time.Now,
		logger:      logger.Nop(),

		publishedCache: 10000,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.published = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.publishedCache))
	return s
}

// storePublish publishes doc, answering a hash already known to be stored
// with ErrConflict without touching the store.
func (s *Service) storePublish(ctx context.Context, doc document.Document) error {
	if s.published.Seen(ctx, doc.Hash) {
		return fmt.Errorf("%w: %s", repository.ErrConflict, doc.Hash)
	}
	err := s.store.Publish(ctx, doc)
	if err == nil || errors.Is(err, repository.ErrConflict) {
		s.published.Record(ctx, doc.Hash)
	}
	return err
}

// Start creates the queue and worker pool and fills in default adapters.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	s.logger.Info(ctx, "starting clicker service...")

	if s.store == nil {
		s.store = repository.NewMemoryStore(ctx)
		s.logger.Info(ctx, "using memory store")
	}
	if s.sink == nil {
		s.sink = export.NewDirSink(".")
	}
	s.queue = queue.NewInMemoryQueue(
		queue.WithCapacity(s.queueSize),
		queue.WithBufferSize(s.queueSize),
	)
	s.pool = worker.NewPool(s.workerCount, s.queue, worker.WithLogger(s.logger))
	s.pool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "clicker service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.String("export", s.sink.Kind()),
	)
	return nil
}

// Stop drains the worker pool and closes the store.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	s.logger.Info(ctx, "stopping clicker service...")

	if err := s.pool.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "worker pool shutdown", logger.Error(err))
	}
	if err := s.store.Close(); err != nil {
		s.logger.Warn(ctx, "store close", logger.Error(err))
	}

	s.started = false
	s.logger.Info(ctx, "clicker service stopped")
}

// submit enqueues an async job; done runs on a worker.
func (s *Service) submit(ctx context.Context, kind string, run func(context.Context) error, done func(error)) error {
	s.mu.RLock()
	q, started := s.queue, s.started
	s.mu.RUnlock()
	if !started {
		return ErrNotStarted
	}
	if err := q.Enqueue(ctx, queue.NewJob(kind, run, done)); err != nil {
		return fmt.Errorf("%w: %w", repository.ErrTransport, err)
	}
	return nil
}

// await runs a job on the pool and waits for it.
func (s *Service) await(ctx context.Context, kind string, run func(context.Context) error) error {
	ch := make(chan error, 1)
	if err := s.submit(ctx, kind, run, func(err error) { ch <- err }); err != nil {
		return err
	}
	select {
	case err := <-ch:
		return err
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", repository.ErrTransport, ctx.Err())
	}
}

// Publish stores doc under its recomputed content hash. A conflict is
// reported both in the result status and as ErrConflict.
func (s *Service) Publish(ctx context.Context, doc document.Document) (types.PublishResult, error) {
	if err := document.Validate(doc); err != nil {
		metrics.RecordPublish("invalid")
		return types.PublishResult{Status: types.StatusPublishFailed}, err
	}
	if !link.ValidID(doc.VideoID) {
		metrics.RecordPublish("invalid")
		return types.PublishResult{Status: types.StatusPublishFailed},
			fmt.Errorf("%w: invalid video id %q", document.ErrFormat, doc.VideoID)
	}
	// The stored hash is always computed here from sorted, merged scores.
	doc = document.Build(doc.VideoID,
		document.TruncateJudgeName(doc.JudgeName, s.nameLimit),
		doc.Ledger(), time.UnixMilli(doc.Date))
	if len(doc.Scores) == 0 {
		metrics.RecordPublish("invalid")
		return types.PublishResult{Status: types.StatusPublishFailed},
			fmt.Errorf("%w: empty scores data", document.ErrFormat)
	}

	err := s.await(ctx, queue.KindPublish, func(ctx context.Context) error {
		return s.storePublish(ctx, doc)
	})
	res, _ := s.publishResult(doc.Hash, err)
	return res, err
}

// publishResult maps a store outcome to the user-facing result, plus the
// notice to raise when the outcome is not a clean success.
func (s *Service) publishResult(hash string, err error) (types.PublishResult, *types.Notice) {
	url := document.ShareURL(s.baseURL, hash)
	switch {
	case err == nil:
		metrics.RecordPublish("ok")
		return types.PublishResult{URL: url, Status: types.StatusPublished, Hash: hash}, nil
	case errors.Is(err, repository.ErrConflict):
		metrics.RecordPublish("conflict")
		return types.PublishResult{URL: url, Status: types.StatusAlreadyPublished, Hash: hash},
			&types.Notice{Kind: types.NoticeConflict, Message: types.StatusAlreadyPublished, URL: url}
	default:
		metrics.RecordPublish("error")
		return types.PublishResult{Status: types.StatusPublishFailed, Hash: hash},
			&types.Notice{Kind: types.NoticeTransport, Message: types.StatusPublishFailed}
	}
}

// Query fetches a published document by hash.
func (s *Service) Query(ctx context.Context, hash string) (document.Document, error) {
	var doc document.Document
	err := s.await(ctx, queue.KindQuery, func(ctx context.Context) error {
		var err error
		doc, err = s.store.QueryByHash(ctx, hash)
		return err
	})
	metrics.RecordQuery(queryOutcome(err))
	return doc, err
}

func queryOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, repository.ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}

// Stats returns service statistics for monitoring.
func (s *Service) Stats(ctx context.Context) map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"sessions":    s.sessions.Load(),
		"published":   s.published.Size(),
	}
	if s.started {
		stats["queueLength"] = s.queue.Len(ctx)
		if n, err := s.store.Count(ctx); err == nil {
			stats["storedDocuments"] = n
		}
	}
	return stats
}
