// Package session persists multi-turn conversations with one backend.
//
// Each session is one JSON document, <name>.json, in the store directory.
// Turns are only ever appended. Appends to the same name are serialized
// within the process by a keyed mutex and across processes by an advisory
// file lock; appends to different names proceed in parallel.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/sourcegraph/conc/pool"

	perrors "github.com/Iron-Ham/parley/internal/errors"
	"github.com/Iron-Ham/parley/internal/event"
	"github.com/Iron-Ham/parley/internal/logging"
	"github.com/Iron-Ham/parley/internal/prompt"
)

const fileExt = ".json"

// Roles of a turn.
const (
	RoleUser      = prompt.RoleUser
	RoleAssistant = prompt.RoleAssistant
)

// Turn is one message. Order is list order; Timestamp is informational.
type Turn struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Session is the persisted document.
type Session struct {
	Name              string    `json:"name"`
	Backend           string    `json:"backend"`
	Topic             string    `json:"topic"`
	CreatedAt         time.Time `json:"created_at"`
	LastInteractionAt time.Time `json:"last_interaction_at"`
	Turns             []Turn    `json:"turns"`
}

// Exchanges is the number of completed user/assistant pairs.
func (s *Session) Exchanges() int {
	n := 0
	for _, t := range s.Turns {
		if t.Role == RoleAssistant {
			n++
		}
	}
	return n
}

// BuildPrompt folds the session history ahead of current.
func (s *Session) BuildPrompt(current string, maxHistoryChars int) string {
	var history []prompt.Turn
	if s != nil {
		history = make([]prompt.Turn, len(s.Turns))
		for i, t := range s.Turns {
			history[i] = prompt.Turn{Role: t.Role, Content: t.Content}
		}
	}
	return prompt.Session(history, current, maxHistoryChars)
}

// Seed describes a session created by its first append.
type Seed struct {
	Backend string
	Topic   string
}

// Store is a directory of session documents. The zero value is not usable;
// create one with NewStore.
type Store struct {
	dir    string
	logger *logging.Logger
	bus    *event.Bus
	keys   *keyedMutex
	now    func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithBus publishes append events to b.
func WithBus(b *event.Bus) Option {
	return func(s *Store) { s.bus = b }
}

// NewStore creates the directory if needed.
func NewStore(dir string, opts ...Option) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, perrors.NewValidationError("sessions directory must not be empty").WithField("paths.sessions_dir")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, perrors.NewIOError("mkdir", dir, err)
	}
	s := &Store{
		dir:    dir,
		logger: logging.NopLogger(),
		keys:   newKeyedMutex(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Dir returns the store directory.
func (s *Store) Dir() string { return s.dir }

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, name+fileExt)
}

// Load returns the named session.
func (s *Store) Load(name string) (*Session, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	return s.read(name)
}

// Exists reports whether the named session is on disk.
func (s *Store) Exists(name string) (bool, error) {
	if err := ValidateName(name); err != nil {
		return false, err
	}
	_, err := os.Stat(s.path(name))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, os.ErrNotExist):
		return false, nil
	default:
		return false, perrors.NewIOError("stat", s.path(name), err)
	}
}

func (s *Store) read(name string) (*Session, error) {
	path := s.path(name)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, perrors.NewSessionError("session not found", perrors.ErrSessionNotFound).
				WithSessionName(name).WithSeverity(perrors.SeverityWarning)
		}
		return nil, perrors.NewIOError("read", path, err)
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, perrors.NewSessionError(fmt.Sprintf("decode %s: %v", path, err), perrors.ErrSessionCorrupted).
			WithSessionName(name)
	}
	if sess.Name != name {
		return nil, perrors.NewSessionError(fmt.Sprintf("file %s holds session %q", path, sess.Name), perrors.ErrSessionCorrupted).
			WithSessionName(name)
	}
	return &sess, nil
}

func (s *Store) write(sess *Session) error {
	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return perrors.NewSessionError("encode session", err).WithSessionName(sess.Name)
	}
	path := s.path(sess.Name)
	if err := atomicWriteFile(path, data, 0o644); err != nil {
		return perrors.NewIOError("write", path, err)
	}
	return nil
}

// AppendTurn appends one turn to an existing session and returns the
// committed session.
func (s *Store) AppendTurn(ctx context.Context, name, role, content string) (*Session, error) {
	if err := validateRole(role); err != nil {
		return nil, err
	}
	return s.append(ctx, name, nil, Turn{Role: role, Content: content})
}

// AppendExchange appends a user turn and its assistant reply in one commit,
// creating the session from seed if it does not exist yet.
func (s *Store) AppendExchange(ctx context.Context, name string, seed Seed, user, assistant string) (*Session, error) {
	return s.append(ctx, name, &seed,
		Turn{Role: RoleUser, Content: user},
		Turn{Role: RoleAssistant, Content: assistant})
}

// append is the only path that mutates a session. With a nil seed the
// session must already exist.
func (s *Store) append(ctx context.Context, name string, seed *Seed, turns ...Turn) (*Session, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}

	release, err := s.acquire(ctx, name)
	if err != nil {
		return nil, err
	}
	defer release()

	now := s.now()
	sess, err := s.read(name)
	switch {
	case err == nil:
	case seed != nil && errors.Is(err, perrors.ErrSessionNotFound):
		sess = &Session{
			Name:      name,
			Backend:   seed.Backend,
			Topic:     seed.Topic,
			CreatedAt: now,
		}
	default:
		return nil, err
	}

	for _, t := range turns {
		t.Timestamp = now
		sess.Turns = append(sess.Turns, t)
	}
	sess.LastInteractionAt = now

	if err := s.write(sess); err != nil {
		return nil, err
	}

	s.logger.WithSession(name).Debug("session turns appended", "added", len(turns), "total", len(sess.Turns))
	s.bus.Publish(event.NewSessionAppendedEvent(name, len(sess.Turns)))
	return sess, nil
}

func validateRole(role string) error {
	if role != RoleUser && role != RoleAssistant {
		return perrors.NewValidationError("role must be user or assistant").WithField("role").WithValue(role)
	}
	return nil
}

// List returns every readable session, most recently used first. Files
// that fail to decode are skipped and logged.
func (s *Store) List() ([]*Session, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, perrors.NewIOError("readdir", s.dir, err)
	}

	var out []*Session
	for _, e := range entries {
		name, ok := strings.CutSuffix(e.Name(), fileExt)
		if e.IsDir() || !ok || ValidateName(name) != nil {
			continue
		}
		sess, err := s.read(name)
		if err != nil {
			s.logger.Warn("skipping unreadable session", "session", name, "error", err.Error())
			continue
		}
		out = append(out, sess)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].LastInteractionAt.Equal(out[j].LastInteractionAt) {
			return out[i].LastInteractionAt.After(out[j].LastInteractionAt)
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// Delete removes the named session.
func (s *Store) Delete(ctx context.Context, name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}

	release, err := s.acquire(ctx, name)
	if err != nil {
		return err
	}
	defer release()

	path := s.path(name)
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return perrors.NewSessionError("session not found", perrors.ErrSessionNotFound).
				WithSessionName(name).WithSeverity(perrors.SeverityWarning)
		}
		return perrors.NewIOError("remove", path, err)
	}
	s.logger.WithSession(name).Info("session deleted")
	return nil
}

// DeleteAll removes every session and returns how many were deleted.
// Deletions run in parallel; every failure is reported.
func (s *Store) DeleteAll(ctx context.Context) (int, error) {
	sessions, err := s.List()
	if err != nil {
		return 0, err
	}

	var deleted atomic.Int64
	p := pool.New().WithErrors().WithMaxGoroutines(8)
	for _, sess := range sessions {
		p.Go(func() error {
			if err := s.Delete(ctx, sess.Name); err != nil {
				return err
			}
			deleted.Add(1)
			return nil
		})
	}
	err = p.Wait()
	return int(deleted.Load()), err
}

// atomicWriteFile writes data to a temp file in the same directory and
// renames it over path, so readers never see a partial document.
func atomicWriteFile(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)

	tmpFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return nil
}
