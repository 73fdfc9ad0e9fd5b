package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	perrors "github.com/Iron-Ham/parley/internal/errors"
	"github.com/Iron-Ham/parley/internal/event"
)

// newTestStore returns a store in a temp dir whose clock advances one
// second per call.
func newTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	s, err := NewStore(t.TempDir(), opts...)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	var mu sync.Mutex
	clock := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		clock = clock.Add(time.Second)
		return clock
	}
	return s
}

func TestValidateName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		ok    bool
	}{
		{"simple", "foo", true},
		{"mixed", "Auth-Review_2", true},
		{"empty", "", false},
		{"whitespace", "   ", false},
		{"dot dot", "..", false},
		{"traversal", "../etc/passwd", false},
		{"slash", "a/b", false},
		{"backslash", `a\b`, false},
		{"dot", "a.b", false},
		{"space", "a b", false},
		{"unicode", "café", false},
		{"too long", strings.Repeat("a", MaxNameLength+1), false},
		{"max length", strings.Repeat("a", MaxNameLength), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateName(tt.input)
			if tt.ok && err != nil {
				t.Errorf("ValidateName(%q) = %v, want nil", tt.input, err)
			}
			if !tt.ok {
				if err == nil {
					t.Fatalf("ValidateName(%q) = nil, want error", tt.input)
				}
				if !errors.Is(err, perrors.ErrInvalidInput) {
					t.Errorf("error should match ErrInvalidInput: %v", err)
				}
			}
		})
	}
}

func TestStore_RejectsTraversalBeforeFilesystem(t *testing.T) {
	parent := t.TempDir()
	dir := filepath.Join(parent, "sessions")
	s, err := NewStore(dir)
	if err != nil {
		t.Fatal(err)
	}

	victim := filepath.Join(parent, "victim.json")
	if err := os.WriteFile(victim, []byte(`{"name":"victim"}`), 0o644); err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	if _, err := s.Load("../victim"); perrors.KindOf(err) != perrors.KindValidation {
		t.Errorf("Load traversal kind = %q", perrors.KindOf(err))
	}
	if _, err := s.AppendExchange(ctx, "../victim", Seed{}, "u", "a"); perrors.KindOf(err) != perrors.KindValidation {
		t.Errorf("AppendExchange traversal kind = %q", perrors.KindOf(err))
	}
	if err := s.Delete(ctx, "../victim"); perrors.KindOf(err) != perrors.KindValidation {
		t.Errorf("Delete traversal kind = %q", perrors.KindOf(err))
	}
	if _, err := os.Stat(victim); err != nil {
		t.Errorf("victim file should be untouched: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, lockDirName)); !os.IsNotExist(err) {
		t.Error("no lock should be taken for an invalid name")
	}
}

func TestStore_LoadNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Load("missing")
	if !errors.Is(err, perrors.ErrSessionNotFound) {
		t.Fatalf("Load() error = %v, want ErrSessionNotFound", err)
	}

	_, err = s.AppendTurn(context.Background(), "missing", RoleUser, "hi")
	if !errors.Is(err, perrors.ErrSessionNotFound) {
		t.Errorf("AppendTurn() on missing session = %v, want ErrSessionNotFound", err)
	}
}

func TestStore_AppendExchangeCreates(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	sess, err := s.AppendExchange(ctx, "foo", Seed{Backend: "claude", Topic: "greetings"}, "hello", "hi")
	if err != nil {
		t.Fatalf("AppendExchange failed: %v", err)
	}
	if sess.Backend != "claude" || sess.Topic != "greetings" {
		t.Errorf("seed not applied: %+v", sess)
	}
	if len(sess.Turns) != 2 || sess.Turns[0].Role != RoleUser || sess.Turns[1].Role != RoleAssistant {
		t.Fatalf("unexpected turns: %+v", sess.Turns)
	}
	if sess.Exchanges() != 1 {
		t.Errorf("Exchanges() = %d, want 1", sess.Exchanges())
	}

	again, err := s.AppendExchange(ctx, "foo", Seed{Backend: "ignored", Topic: "ignored"}, "more", "sure")
	if err != nil {
		t.Fatal(err)
	}
	if again.Backend != "claude" || !again.CreatedAt.Equal(sess.CreatedAt) {
		t.Errorf("existing session metadata changed: %+v", again)
	}
	if len(again.Turns) != 4 {
		t.Errorf("len(Turns) = %d, want 4", len(again.Turns))
	}
	if !again.LastInteractionAt.After(sess.LastInteractionAt) {
		t.Error("LastInteractionAt should advance")
	}
}

func TestStore_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.AppendExchange(ctx, "rt", Seed{Backend: "codex", Topic: "t"}, "q1", "a1"); err != nil {
		t.Fatal(err)
	}
	written, err := s.AppendTurn(ctx, "rt", RoleUser, "q2 with \"quotes\" and ünïcode")
	if err != nil {
		t.Fatal(err)
	}

	loaded, err := s.Load("rt")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(written, loaded) {
		t.Errorf("round trip mismatch:\nwrote  %+v\nloaded %+v", written, loaded)
	}
}

func TestStore_DocumentLayout(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.AppendExchange(context.Background(), "layout", Seed{Backend: "gemini", Topic: "t"}, "u", "a"); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(s.Dir(), "layout.json"))
	if err != nil {
		t.Fatal(err)
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"name", "backend", "topic", "created_at", "last_interaction_at", "turns"} {
		if _, ok := doc[key]; !ok {
			t.Errorf("document missing key %q", key)
		}
	}

	var turns []map[string]any
	if err := json.Unmarshal(doc["turns"], &turns); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"role", "content", "timestamp"} {
		if _, ok := turns[0][key]; !ok {
			t.Errorf("turn missing key %q", key)
		}
	}
}

func TestStore_ConcurrentAppendsSameName(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.AppendExchange(ctx, "busy", Seed{Backend: "claude"}, "seed", "ok"); err != nil {
		t.Fatal(err)
	}

	const n = 40
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := range n {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := s.AppendTurn(ctx, "busy", RoleUser, fmt.Sprintf("msg-%d", i)); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("AppendTurn failed: %v", err)
	}

	sess, err := s.Load("busy")
	if err != nil {
		t.Fatal(err)
	}
	if len(sess.Turns) != n+2 {
		t.Fatalf("len(Turns) = %d, want %d", len(sess.Turns), n+2)
	}

	seen := make(map[string]int)
	for _, turn := range sess.Turns[2:] {
		seen[turn.Content]++
	}
	for i := range n {
		if c := seen[fmt.Sprintf("msg-%d", i)]; c != 1 {
			t.Errorf("msg-%d appears %d times, want 1", i, c)
		}
	}
}

func TestStore_ConcurrentDifferentNames(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := range 10 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := fmt.Sprintf("s%d", i)
			for j := range 3 {
				if _, err := s.AppendExchange(ctx, name, Seed{Backend: "claude"}, fmt.Sprint(j), "a"); err != nil {
					t.Errorf("append %s: %v", name, err)
				}
			}
		}(i)
	}
	wg.Wait()

	list, err := s.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 10 {
		t.Fatalf("List() returned %d sessions, want 10", len(list))
	}
	for _, sess := range list {
		if len(sess.Turns) != 6 {
			t.Errorf("%s has %d turns, want 6", sess.Name, len(sess.Turns))
		}
	}
}

func TestStore_ContextInjection(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.AppendExchange(context.Background(), "foo", Seed{Backend: "claude"}, "hello", "hi"); err != nil {
		t.Fatal(err)
	}
	sess, err := s.Load("foo")
	if err != nil {
		t.Fatal(err)
	}

	got := sess.BuildPrompt("more", 0)
	want := "[CONVERSATION HISTORY]\nUser: hello\n\nAssistant: hi\n[/CONVERSATION HISTORY]\n\n" +
		"[CURRENT REQUEST]\nmore\n[/CURRENT REQUEST]"
	if got != want {
		t.Errorf("BuildPrompt() =\n%s\nwant\n%s", got, want)
	}

	var fresh *Session
	if p := fresh.BuildPrompt("first", 0); p != "first" {
		t.Errorf("BuildPrompt on nil session = %q, want %q", p, "first")
	}
}

func TestStore_ListOrderAndCorruptFiles(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, name := range []string{"old", "mid", "new"} {
		if _, err := s.AppendExchange(ctx, name, Seed{Backend: "claude"}, "q", "a"); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := s.AppendTurn(ctx, "old", RoleUser, "bump"); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(s.Dir(), "broken.json"), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(s.Dir(), "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	list, err := s.List()
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, sess := range list {
		names = append(names, sess.Name)
	}
	want := []string{"old", "new", "mid"}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("List() order = %v, want %v", names, want)
	}

	_, err = s.Load("broken")
	if !errors.Is(err, perrors.ErrSessionCorrupted) {
		t.Errorf("Load(broken) = %v, want ErrSessionCorrupted", err)
	}
}

func TestStore_DeleteAndDeleteAll(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := range 5 {
		if _, err := s.AppendExchange(ctx, fmt.Sprintf("d%d", i), Seed{Backend: "claude"}, "q", "a"); err != nil {
			t.Fatal(err)
		}
	}

	if err := s.Delete(ctx, "d0"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := s.Delete(ctx, "d0"); !errors.Is(err, perrors.ErrSessionNotFound) {
		t.Errorf("second Delete = %v, want ErrSessionNotFound", err)
	}
	if ok, _ := s.Exists("d0"); ok {
		t.Error("d0 should not exist")
	}

	n, err := s.DeleteAll(ctx)
	if err != nil {
		t.Fatalf("DeleteAll failed: %v", err)
	}
	if n != 4 {
		t.Errorf("DeleteAll() = %d, want 4", n)
	}
	list, _ := s.List()
	if len(list) != 0 {
		t.Errorf("List() after DeleteAll returned %d sessions", len(list))
	}
}

func TestStore_CanceledLock(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.AppendExchange(context.Background(), "held", Seed{}, "q", "a"); err != nil {
		t.Fatal(err)
	}

	release, err := s.acquire(context.Background(), "held")
	if err != nil {
		t.Fatal(err)
	}
	defer release()

	// A second Store shares the file lock but not the in-process mutex.
	other, err := NewStore(s.Dir())
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = other.AppendTurn(ctx, "held", RoleUser, "blocked")
	if perrors.KindOf(err) != perrors.KindCanceled {
		t.Errorf("AppendTurn under held lock kind = %q (%v), want canceled", perrors.KindOf(err), err)
	}
}

func TestStore_RejectsUnknownRole(t *testing.T) {
	s := newTestStore(t)
	_, err := s.AppendTurn(context.Background(), "x", "system", "hi")
	if !errors.Is(err, perrors.ErrInvalidInput) {
		t.Errorf("AppendTurn(system) = %v, want ErrInvalidInput", err)
	}
}

func TestStore_PublishesAppendEvents(t *testing.T) {
	bus := event.NewBus(nil)
	var got []event.SessionAppendedEvent
	bus.Subscribe(event.TypeSessionAppended, func(e event.Event) {
		got = append(got, e.(event.SessionAppendedEvent))
	})

	s := newTestStore(t, WithBus(bus))
	if _, err := s.AppendExchange(context.Background(), "ev", Seed{}, "q", "a"); err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Session != "ev" || got[0].Turns != 2 {
		t.Errorf("events = %+v", got)
	}
}
