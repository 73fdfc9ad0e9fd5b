package session

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"

	perrors "github.com/Iron-Ham/parley/internal/errors"
)

// lockDirName holds one advisory lock file per session name.
const lockDirName = ".locks"

const lockRetryDelay = 10 * time.Millisecond

// keyedMutex serializes goroutines per key. Entries are dropped once no
// goroutine holds or waits for them.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*refMutex)}
}

func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

// acquire takes the in-process lock for name, then the cross-process file
// lock. The returned release undoes both.
func (s *Store) acquire(ctx context.Context, name string) (func(), error) {
	unlock := s.keys.lock(name)

	dir := filepath.Join(s.dir, lockDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		unlock()
		return nil, perrors.NewIOError("mkdir", dir, err)
	}

	path := filepath.Join(dir, name+".lock")
	fl := flock.New(path)
	ok, err := fl.TryLockContext(ctx, lockRetryDelay)
	if err != nil || !ok {
		unlock()
		if ctx.Err() != nil {
			return nil, perrors.Wrapf(perrors.ErrCanceled, "lock session %s", name)
		}
		return nil, perrors.NewIOError("lock", path, err)
	}

	return func() {
		if err := fl.Unlock(); err != nil {
			s.logger.Warn("failed to release session lock", "session", name, "error", err.Error())
		}
		unlock()
	}, nil
}
