package loadgen

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/okian/clicker/internal/adapters/repository"
	"github.com/okian/clicker/internal/domain/document"
	"github.com/okian/clicker/pkg/logger"
)

// Runner drives a load run against a store.
type Runner struct {
	store repository.Store
	cfg   Config
	log   logger.Logger
	now   func() time.Time
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the runner logger.
func WithLogger(l logger.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.log = l
		}
	}
}

// New returns a runner publishing into store.
func New(store repository.Store, cfg Config, opts ...Option) *Runner {
	r := &Runner{store: store, cfg: cfg.withDefaults(), log: logger.Nop(), now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type outcome struct {
	latency  time.Duration
	conflict bool
	err      error
}

// Run checks the store, publishes the generated documents, republishes the
// configured share and verifies every published document.
func (r *Runner) Run(ctx context.Context) (Stats, error) {
	start := r.now()
	var stats Stats

	if _, err := r.store.Count(ctx); err != nil {
		return stats, fmt.Errorf("store health check failed: %w", err)
	}

	docs := GenerateAll(r.cfg, start)
	stats.Generated = len(docs)
	r.log.Info(ctx, "publishing generated documents",
		logger.Int("documents", len(docs)),
		logger.Int("workers", r.cfg.Workers))

	jobs := slices.Clone(docs)
	repeats := int(float64(len(docs)) * r.cfg.Repeat)
	jobs = append(jobs, docs[:repeats]...)

	outcomes := r.publishAll(ctx, jobs)
	latencies := make([]time.Duration, 0, len(outcomes))
	published := make(map[string]bool, len(docs))
	for i, o := range outcomes {
		latencies = append(latencies, o.latency)
		switch {
		case o.err == nil:
			stats.Published++
			published[jobs[i].Hash] = true
		case o.conflict:
			stats.Conflicts++
		default:
			stats.Failed++
			r.log.Warn(ctx, "publish failed", logger.String("hash", jobs[i].Hash), logger.Error(o.err))
		}
	}
	if err := ctx.Err(); err != nil {
		return stats, err
	}

	for _, doc := range docs {
		if !published[doc.Hash] {
			continue
		}
		if err := r.verify(ctx, doc); err != nil {
			stats.Mismatched++
			r.log.Warn(ctx, "verification failed", logger.String("hash", doc.Hash), logger.Error(err))
			continue
		}
		stats.Verified++
	}

	stats.Duration = r.now().Sub(start)
	stats.P50, stats.P99 = percentile(latencies, 0.50), percentile(latencies, 0.99)
	r.log.Info(ctx, "load run finished",
		logger.Int("published", stats.Published),
		logger.Int("conflicts", stats.Conflicts),
		logger.Int("failed", stats.Failed),
		logger.Int("verified", stats.Verified),
		logger.Duration("duration", stats.Duration))

	if stats.Mismatched > 0 {
		return stats, fmt.Errorf("%w: %d documents", ErrVerify, stats.Mismatched)
	}
	return stats, nil
}

func (r *Runner) publishAll(ctx context.Context, jobs []document.Document) []outcome {
	outcomes := make([]outcome, len(jobs))
	idx := make(chan int, r.cfg.Workers*2)
	var wg sync.WaitGroup
	for range r.cfg.Workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range idx {
				t0 := time.Now()
				err := r.store.Publish(ctx, jobs[i])
				outcomes[i] = outcome{
					latency:  time.Since(t0),
					conflict: errors.Is(err, repository.ErrConflict),
					err:      err,
				}
			}
		}()
	}
	// Each repeated hash is published twice; the store lets exactly one win.
	for i := range jobs {
		select {
		case idx <- i:
		case <-ctx.Done():
			for j := i; j < len(jobs); j++ {
				outcomes[j] = outcome{err: ctx.Err()}
			}
			close(idx)
			wg.Wait()
			return outcomes
		}
	}
	close(idx)
	wg.Wait()
	return outcomes
}

func (r *Runner) verify(ctx context.Context, want document.Document) error {
	got, err := r.store.QueryByHash(ctx, want.Hash)
	if err != nil {
		return err
	}
	if got.Rehash() != want.Hash {
		return fmt.Errorf("%w: hash %s reads back as %s", ErrVerify, want.Hash, got.Rehash())
	}
	if !slices.Equal(got.Scores, want.Scores) {
		return fmt.Errorf("%w: scores differ for %s", ErrVerify, want.Hash)
	}
	return nil
}

func percentile(values []time.Duration, p float64) time.Duration {
	if len(values) == 0 {
		return 0
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	i := int(float64(len(sorted)-1) * p)
	return sorted[i]
}
