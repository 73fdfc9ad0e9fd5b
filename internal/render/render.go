// Package render formats debate transcripts and session records for output.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Iron-Ham/parley/internal/debate"
	perrors "github.com/Iron-Ham/parley/internal/errors"
	"github.com/Iron-Ham/parley/internal/session"
)

// Format is an output format.
type Format string

const (
	FormatText     Format = "text"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
)

// ParseFormat accepts text, json, markdown or md.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	}
	return "", perrors.NewValidationError("output must be text, json or markdown").WithField("output").WithValue(s)
}

// Transcript writes t in format f.
func Transcript(w io.Writer, t *debate.Transcript, f Format) error {
	switch f {
	case FormatJSON:
		return transcriptJSON(w, t)
	case FormatMarkdown:
		_, err := io.WriteString(w, transcriptMarkdown(t))
		return err
	default:
		_, err := io.WriteString(w, transcriptText(t, NewStyles(w)))
		return err
	}
}

type transcriptDoc struct {
	*debate.Transcript
	Outcome debate.Outcome `json:"outcome"`
}

func transcriptJSON(w io.Writer, t *debate.Transcript) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(transcriptDoc{Transcript: t, Outcome: t.Outcome()})
}

func labels(t *debate.Transcript) string {
	names := make([]string, len(t.Participants))
	for i, p := range t.Participants {
		names[i] = p.Label
	}
	return strings.Join(names, ", ")
}

func failure(e debate.Entry) string {
	return fmt.Sprintf("[%s] %s", e.ErrorKind, e.Error)
}

func transcriptText(t *debate.Transcript, st Styles) string {
	var b strings.Builder

	b.WriteString(st.Title.Render("Debate: "+firstLine(t.Topic)) + "\n")
	b.WriteString(st.Subtitle.Render(fmt.Sprintf("%d participant(s): %s", len(t.Participants), labels(t))) + "\n")
	b.WriteString(st.Muted.Render(fmt.Sprintf("%d of %d round(s) recorded, outcome: %s", len(t.Rounds), t.Requested, t.Outcome())) + "\n")

	for _, r := range t.Rounds {
		b.WriteString("\n" + st.Heading.Render(fmt.Sprintf("━━ Round %d/%d ━━", r.Round, t.Requested)) + "\n")
		for _, e := range r.Entries {
			b.WriteString("\n" + st.Label.Render(e.Participant) + "\n")
			if e.OK() {
				b.WriteString(e.Response + "\n")
			} else {
				b.WriteString(st.Error.Render(failure(e)) + "\n")
			}
		}
	}

	if s := t.Synthesis; s != nil {
		b.WriteString("\n" + st.Heading.Render("━━ Synthesis ("+s.Backend+") ━━") + "\n\n")
		if s.Error != "" {
			b.WriteString(st.Error.Render(s.Error) + "\n")
		} else {
			b.WriteString(s.Text + "\n")
		}
	}
	return b.String()
}

func transcriptMarkdown(t *debate.Transcript) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Debate: %s\n\n", firstLine(t.Topic))
	if strings.Contains(t.Topic, "\n") {
		fmt.Fprintf(&b, "```\n%s\n```\n\n", t.Topic)
	}
	fmt.Fprintf(&b, "**Participants:** %s  \n", labels(t))
	fmt.Fprintf(&b, "**Rounds:** %d of %d  \n", len(t.Rounds), t.Requested)
	fmt.Fprintf(&b, "**Outcome:** %s\n", t.Outcome())

	for _, r := range t.Rounds {
		fmt.Fprintf(&b, "\n## Round %d\n", r.Round)
		for _, e := range r.Entries {
			fmt.Fprintf(&b, "\n### %s\n\n", e.Participant)
			if e.OK() {
				b.WriteString(e.Response + "\n")
			} else {
				fmt.Fprintf(&b, "> **Error (%s):** %s\n", e.ErrorKind, e.Error)
			}
		}
	}

	if s := t.Synthesis; s != nil {
		fmt.Fprintf(&b, "\n## Synthesis\n\n_By %s_\n\n", s.Backend)
		if s.Error != "" {
			fmt.Fprintf(&b, "> **Error:** %s\n", s.Error)
		} else {
			b.WriteString(s.Text + "\n")
		}
	}
	return b.String()
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	return line
}

// Sessions writes one line per session, most recent first.
func Sessions(w io.Writer, list []*session.Session, now time.Time) error {
	st := NewStyles(w)
	if len(list) == 0 {
		_, err := fmt.Fprintln(w, st.Muted.Render("No sessions."))
		return err
	}
	for _, s := range list {
		_, err := fmt.Fprintf(w, "%s  %s  %s  %s\n",
			st.Label.Render(fmt.Sprintf("%-24s", s.Name)),
			fmt.Sprintf("%-8s", s.Backend),
			st.Muted.Render(fmt.Sprintf("%3d turn(s), %s", len(s.Turns), Ago(now, s.LastInteractionAt))),
			Truncate(firstLine(s.Topic), 50))
		if err != nil {
			return err
		}
	}
	return nil
}

// Session writes a full session record.
func Session(w io.Writer, s *session.Session) error {
	st := NewStyles(w)
	var b strings.Builder
	b.WriteString(st.Title.Render("Session: "+s.Name) + "\n")
	b.WriteString(st.Muted.Render(fmt.Sprintf("backend %s, created %s, last used %s",
		s.Backend, s.CreatedAt.Format(time.RFC3339), s.LastInteractionAt.Format(time.RFC3339))) + "\n")
	if s.Topic != "" {
		b.WriteString(st.Subtitle.Render("Topic: "+s.Topic) + "\n")
	}
	for _, t := range s.Turns {
		role := "User"
		style := st.Label
		if t.Role == session.RoleAssistant {
			role = "Assistant"
			style = st.Heading
		}
		b.WriteString("\n" + style.Render(role) + "\n" + t.Content + "\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// Ago renders the age of t relative to now, coarsely.
func Ago(now, t time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}
