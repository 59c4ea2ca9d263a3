// Package prefs persists judge preferences in a small JSON key-value file.
//
// Keys are KEY_POSITIVE, KEY_NEGATIVE and JUDGE_NAME. Every access holds an
// advisory lock on a sibling ".lock" file so a CLI and a running daemon can
// share one preference file.
package prefs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"github.com/okian/clicker/internal/domain/capture"
	"github.com/okian/clicker/internal/domain/document"
	"github.com/okian/clicker/pkg/logger"
)

const (
	KeyPositive = "KEY_POSITIVE"
	KeyNegative = "KEY_NEGATIVE"
	JudgeName   = "JUDGE_NAME"

	lockRetry = 20 * time.Millisecond
)

// Prefs is the persisted judge state.
type Prefs struct {
	Bindings  capture.Bindings `json:"bindings"`
	JudgeName string           `json:"judgeName"`
}

// File is a lock-guarded preference file.
type File struct {
	// mu serializes access within the process; the flock only excludes
	// other processes.
	mu sync.Mutex

	path      string
	lock      *flock.Flock
	defaults  capture.Bindings
	nameLimit int
	logger    logger.Logger
}

// Option configures a File.
type Option func(*File)

// WithDefaults sets the bindings used when the file holds none or invalid ones.
func WithDefaults(b capture.Bindings) Option {
	return func(f *File) {
		if b.Valid() {
			f.defaults = b
		}
	}
}

// WithNameLimit sets the judge name rune limit.
func WithNameLimit(n int) Option {
	return func(f *File) {
		if n > 0 {
			f.nameLimit = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(f *File) {
		if l != nil {
			f.logger = l
		}
	}
}

// Open returns a File for path. The file itself is created lazily on Save.
func Open(path string, opts ...Option) *File {
	f := &File{
		path:      path,
		lock:      flock.New(path + ".lock"),
		defaults:  capture.DefaultBindings(),
		nameLimit: document.DefaultJudgeNameLimit,
		logger:    logger.Nop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Path returns the preference file location.
func (f *File) Path() string { return f.path }

// Load reads preferences. Missing or invalid bindings are replaced with the
// defaults and written back; the judge name is truncated to the limit.
func (f *File) Load(ctx context.Context) (Prefs, error) {
	unlock, err := f.acquire(ctx)
	if err != nil {
		return Prefs{}, err
	}
	defer unlock()

	kv, err := f.read()
	if err != nil {
		return Prefs{}, err
	}

	p := Prefs{
		Bindings:  capture.Bindings{Positive: kv[KeyPositive], Negative: kv[KeyNegative]},
		JudgeName: document.TruncateJudgeName(kv[JudgeName], f.nameLimit),
	}
	if !p.Bindings.Valid() {
		f.logger.Info(ctx, "resetting key bindings to defaults",
			logger.String("positive", p.Bindings.Positive),
			logger.String("negative", p.Bindings.Negative),
		)
		p.Bindings = f.defaults
		if err := f.write(p); err != nil {
			return Prefs{}, err
		}
	}
	return p, nil
}

// Save writes preferences. Invalid bindings are rejected.
func (f *File) Save(ctx context.Context, p Prefs) error {
	if !p.Bindings.Valid() {
		return fmt.Errorf("%w: invalid key bindings", capture.ErrInvalidBindings)
	}
	p.JudgeName = document.TruncateJudgeName(p.JudgeName, f.nameLimit)

	unlock, err := f.acquire(ctx)
	if err != nil {
		return err
	}
	defer unlock()
	return f.write(p)
}

func (f *File) acquire(ctx context.Context) (func(), error) {
	if dir := filepath.Dir(f.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create prefs dir: %w", err)
		}
	}
	f.mu.Lock()
	ok, err := f.lock.TryLockContext(ctx, lockRetry)
	if err != nil {
		f.mu.Unlock()
		return nil, fmt.Errorf("%w: %w", ErrLocked, err)
	}
	if !ok {
		f.mu.Unlock()
		return nil, ErrLocked
	}
	return func() {
		if err := f.lock.Unlock(); err != nil {
			f.logger.Warn(context.Background(), "failed to release prefs lock", logger.Error(err))
		}
		f.mu.Unlock()
	}, nil
}

func (f *File) read() (map[string]string, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read prefs: %w", err)
	}
	kv := map[string]string{}
	if len(data) == 0 {
		return kv, nil
	}
	if err := json.Unmarshal(data, &kv); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	return kv, nil
}

func (f *File) write(p Prefs) error {
	data, err := json.MarshalIndent(map[string]string{
		KeyPositive: p.Bindings.Positive,
		KeyNegative: p.Bindings.Negative,
		JudgeName:   p.JudgeName,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode prefs: %w", err)
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write prefs: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("replace prefs: %w", err)
	}
	return nil
}
