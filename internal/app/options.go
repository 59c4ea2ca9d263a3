package service

import (
	"time"

	"github.com/okian/clicker/internal/adapters/export"
	"github.com/okian/clicker/internal/adapters/prefs"
	"github.com/okian/clicker/internal/adapters/repository"
	"github.com/okian/clicker/internal/domain/capture"
	"github.com/okian/clicker/internal/domain/replay"
	"github.com/okian/clicker/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of async I/O workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithPublishedCacheSize bounds the cache of hashes known to be stored.
// Zero or less keeps every hash.
func WithPublishedCacheSize(n int) Option {
	return func(s *Service) {
		s.publishedCache = n
	}
}

// WithQueueSize sets the capacity of the async I/O queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithStore sets the document store. Without it Start uses a MemoryStore.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithSink sets where exports are written. Without it exports go to the
// working directory.
func WithSink(sink export.Sink) Option {
	return func(s *Service) {
		if sink != nil {
			s.sink = sink
		}
	}
}

// WithPrefs sets the preference file sessions load and save.
func WithPrefs(f *prefs.File) Option {
	return func(s *Service) {
		s.prefs = f
	}
}

// WithPrefsReadOnly makes sessions seed from the preference file without
// writing their changes back. Used when one file serves many clients.
func WithPrefsReadOnly() Option {
	return func(s *Service) {
		s.prefsReadOnly = true
	}
}

// WithAppName sets the export file name prefix.
func WithAppName(name string) Option {
	return func(s *Service) {
		if name != "" {
			s.appName = name
		}
	}
}

// WithPublicBaseURL sets the origin used for share links.
func WithPublicBaseURL(u string) Option {
	return func(s *Service) {
		if u != "" {
			s.baseURL = u
		}
	}
}

// WithJudgeNameLimit sets the judge name rune limit.
func WithJudgeNameLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.nameLimit = n
		}
	}
}

// WithDefaultBindings sets the bindings used when no preference overrides them.
func WithDefaultBindings(b capture.Bindings) Option {
	return func(s *Service) {
		if b.Valid() {
			s.bindings = b
		}
	}
}

// WithReplayOptions passes options to every session's replay runner.
func WithReplayOptions(opts ...replay.Option) Option {
	return func(s *Service) {
		s.replayOpts = append(s.replayOpts, opts...)
	}
}

// WithClock overrides the time source used to date documents.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
