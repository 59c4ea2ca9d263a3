package repository

import (
	"context"
	"fmt"
	"maps"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/clicker/internal/domain/document"
	"github.com/okian/clicker/pkg/metrics"
)

// record is a stored document plus the time it was published.
type record struct {
	doc         document.Document
	publishedAt time.Time
}

// MemoryStore keeps documents in a map. Writers copy the map and publish a
// new immutable snapshot, so readers never take a lock.
type MemoryStore struct {
	mu       sync.Mutex // serialises writers
	snapshot atomic.Pointer[map[string]record]

	now                   func() time.Time
	metricsUpdateInterval time.Duration
	stop                  context.CancelFunc
	wg                    sync.WaitGroup
}

// NewMemoryStore creates an empty store. Its background metrics updater
// stops when ctx is cancelled or Close is called.
func NewMemoryStore(ctx context.Context, opts ...Option) *MemoryStore {
	s := &MemoryStore{
		now:                   time.Now,
		metricsUpdateInterval: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	empty := map[string]record{}
	s.snapshot.Store(&empty)

	runCtx, cancel := context.WithCancel(ctx)
	s.stop = cancel
	s.wg.Add(1)
	go s.startMetricsUpdater(runCtx)
	return s
}

// QueryByHash implements Store.
func (s *MemoryStore) QueryByHash(ctx context.Context, hash string) (document.Document, error) {
	if err := ctx.Err(); err != nil {
		return document.Document{}, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	rec, ok := (*s.snapshot.Load())[hash]
	if !ok {
		return document.Document{}, fmt.Errorf("%w: %s", ErrNotFound, hash)
	}
	return cloneDoc(rec.doc), nil
}

// Publish implements Store.
func (s *MemoryStore) Publish(ctx context.Context, doc document.Document) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	if doc.Hash == "" {
		return ErrInvalidHash
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	cur := *s.snapshot.Load()
	if _, exists := cur[doc.Hash]; exists {
		return fmt.Errorf("%w: %s", ErrConflict, doc.Hash)
	}
	next := maps.Clone(cur)
	next[doc.Hash] = record{doc: cloneDoc(doc), publishedAt: s.now()}
	s.snapshot.Store(&next)
	return nil
}

// Count implements Store.
func (s *MemoryStore) Count(_ context.Context) (int, error) {
	return len(*s.snapshot.Load()), nil
}

// Close stops background goroutines.
func (s *MemoryStore) Close() error {
	s.stop()
	s.wg.Wait()
	return nil
}

func (s *MemoryStore) startMetricsUpdater(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.metricsUpdateInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			metrics.UpdateStoredDocuments(len(*s.snapshot.Load()))
		}
	}
}

func cloneDoc(d document.Document) document.Document {
	d.Scores = append([]document.Pair(nil), d.Scores...)
	return d
}
