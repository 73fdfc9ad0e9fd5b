package render

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Iron-Ham/parley/internal/debate"
	perrors "github.com/Iron-Ham/parley/internal/errors"
	"github.com/Iron-Ham/parley/internal/session"
)

func sampleTranscript() *debate.Transcript {
	return &debate.Transcript{
		ID:    "d-1",
		Topic: "Tabs or spaces?",
		Participants: []debate.Participant{
			{Backend: "claude", Persona: "Architect", Label: "claude (Architect)"},
			{Backend: "codex", Label: "codex"},
		},
		Requested: 1,
		Rounds: []debate.RoundResult{{
			Round: 1,
			Entries: []debate.Entry{
				{Participant: "claude (Architect)", Backend: "claude", Persona: "Architect", Response: "Spaces."},
				{Participant: "codex", Backend: "codex", ErrorKind: perrors.KindTimeout, Error: "timed out after 1s"},
			},
		}},
		Synthesis: &debate.SynthesisResult{Backend: "claude", Text: "## Consensus\nNone."},
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatText, "TEXT": FormatText, "json": FormatJSON, "md": FormatMarkdown, "markdown": FormatMarkdown} {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseFormat("xml")
	assert.ErrorIs(t, err, perrors.ErrInvalidInput)
}

func TestTranscript_Text(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Transcript(&buf, sampleTranscript(), FormatText))
	out := buf.String()

	assert.NotContains(t, out, "\x1b[", "buffer output should carry no escape codes")
	assert.Contains(t, out, "Debate: Tabs or spaces?")
	assert.Contains(t, out, "1 of 1 round(s) recorded, outcome: degraded")
	assert.Contains(t, out, "━━ Round 1/1 ━━")
	assert.Contains(t, out, "claude (Architect)\nSpaces.\n")
	assert.Contains(t, out, "codex\n[timeout] timed out after 1s\n")
	assert.Contains(t, out, "━━ Synthesis (claude) ━━")
	assert.Less(t, strings.Index(out, "claude (Architect)\nSpaces."), strings.Index(out, "codex\n[timeout]"))
}

func TestTranscript_Markdown(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Transcript(&buf, sampleTranscript(), FormatMarkdown))

	want := "# Debate: Tabs or spaces?\n\n" +
		"**Participants:** claude (Architect), codex  \n" +
		"**Rounds:** 1 of 1  \n" +
		"**Outcome:** degraded\n" +
		"\n## Round 1\n" +
		"\n### claude (Architect)\n\nSpaces.\n" +
		"\n### codex\n\n> **Error (timeout):** timed out after 1s\n" +
		"\n## Synthesis\n\n_By claude_\n\n## Consensus\nNone.\n"
	assert.Equal(t, want, buf.String())
}

func TestTranscript_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Transcript(&buf, sampleTranscript(), FormatJSON))

	var doc struct {
		ID      string `json:"id"`
		Outcome string `json:"outcome"`
		Rounds  []struct {
			Entries []map[string]any `json:"entries"`
		} `json:"rounds"`
		Synthesis map[string]any `json:"synthesis"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, "d-1", doc.ID)
	assert.Equal(t, "degraded", doc.Outcome)
	require.Len(t, doc.Rounds, 1)
	require.Len(t, doc.Rounds[0].Entries, 2)
	assert.Equal(t, "Spaces.", doc.Rounds[0].Entries[0]["response"])
	assert.NotContains(t, doc.Rounds[0].Entries[0], "error_kind")
	assert.Equal(t, "timeout", doc.Rounds[0].Entries[1]["error_kind"])
	assert.Equal(t, "claude", doc.Synthesis["cli"])
}

func TestSessions(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	list := []*session.Session{
		{Name: "auth", Backend: "claude", Topic: "Auth redesign\nmore", LastInteractionAt: now.Add(-2 * time.Hour),
			Turns: []session.Turn{{Role: "user"}, {Role: "assistant"}}},
		{Name: "old", Backend: "gemini", Topic: strings.Repeat("x", 80), LastInteractionAt: now.Add(-72 * time.Hour)},
	}

	var buf bytes.Buffer
	require.NoError(t, Sessions(&buf, list, now))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "auth")
	assert.Contains(t, lines[0], "2 turn(s), 2h ago")
	assert.Contains(t, lines[0], "Auth redesign")
	assert.NotContains(t, lines[0], "more")
	assert.Contains(t, lines[1], "3d ago")
	assert.Contains(t, lines[1], "...")

	buf.Reset()
	require.NoError(t, Sessions(&buf, nil, now))
	assert.Equal(t, "No sessions.\n", buf.String())
}

func TestSession(t *testing.T) {
	s := &session.Session{
		Name: "foo", Backend: "claude", Topic: "greetings",
		Turns: []session.Turn{
			{Role: session.RoleUser, Content: "hello"},
			{Role: session.RoleAssistant, Content: "hi"},
		},
	}
	var buf bytes.Buffer
	require.NoError(t, Session(&buf, s))
	out := buf.String()
	assert.Contains(t, out, "Session: foo")
	assert.Contains(t, out, "User\nhello\n")
	assert.Contains(t, out, "Assistant\nhi\n")
}

func TestAgo(t *testing.T) {
	now := time.Now()
	assert.Equal(t, "just now", Ago(now, now.Add(-10*time.Second)))
	assert.Equal(t, "5m ago", Ago(now, now.Add(-5*time.Minute)))
	assert.Equal(t, "1d ago", Ago(now, now.Add(-30*time.Hour)))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "abcdefg...", Truncate("abcdefghijklmnop", 10))
	assert.Equal(t, "...", Truncate("abcdef", 2))
}
