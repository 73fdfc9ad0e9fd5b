package prompt

import (
	"fmt"
	"strings"
)

// Roles of a session turn.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one message of a session's history.
type Turn struct {
	Role    string
	Content string
}

// Session folds history ahead of the current request. With no history the
// request is returned unchanged.
func Session(history []Turn, current string, maxHistoryChars int) string {
	if len(history) == 0 {
		return current
	}

	exchanges := pairTurns(history)
	blocks := make([]string, len(exchanges))
	for i, ex := range exchanges {
		var b strings.Builder
		for _, t := range ex {
			fmt.Fprintf(&b, "%s: %s\n\n", roleLabel(t.Role), t.Content)
		}
		blocks[i] = b.String()
	}
	kept, omitted := keepNewest(blocks, maxHistoryChars)

	var hist strings.Builder
	if omitted > 0 {
		fmt.Fprintf(&hist, "[%d earlier exchange(s) omitted]\n\n", omitted)
	}
	for _, blk := range kept {
		hist.WriteString(blk)
	}

	return Block("CONVERSATION HISTORY", strings.TrimRight(hist.String(), "\n")) +
		"\n\n" +
		Block("CURRENT REQUEST", current)
}

// pairTurns groups history into exchanges: a user turn with the assistant
// turns that answer it. Leading assistant turns form their own exchange.
func pairTurns(turns []Turn) [][]Turn {
	var out [][]Turn
	for _, t := range turns {
		if t.Role == RoleUser || len(out) == 0 {
			out = append(out, []Turn{t})
			continue
		}
		out[len(out)-1] = append(out[len(out)-1], t)
	}
	return out
}

func roleLabel(role string) string {
	if role == RoleUser {
		return "User"
	}
	return "Assistant"
}
