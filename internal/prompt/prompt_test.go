package prompt

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRounds() []Round {
	return []Round{
		{
			{Participant: "claude (CEO)", Response: "Ship it."},
			{Participant: "codex", Failure: "timeout"},
		},
		{
			{Participant: "claude (CEO)", Response: "Still ship it."},
			{Participant: "codex", Response: "Agree with claude (CEO)."},
		},
	}
}

func TestDebate_FirstRound(t *testing.T) {
	got := Debate{Topic: "Monorepo?", Round: 1}.Build()
	assert.Equal(t, "Topic: Monorepo?\n\nRound 1\n\n"+firstRoundAsk, got)
}

func TestDebate_RoleBlock(t *testing.T) {
	got := Debate{Topic: "T", Round: 1, Persona: "CEO", Instructions: "  Focus on ROI.  "}.Build()

	require.True(t, strings.HasPrefix(got, "[ROLE CONTEXT]\n"))
	assert.Contains(t, got, "as a CEO.")
	assert.Contains(t, got, "Instructions: Focus on ROI.\n[/ROLE CONTEXT]\n\nTopic: T")

	onlyInstr := Debate{Topic: "T", Round: 1, Instructions: "Be brief."}.Build()
	assert.Contains(t, onlyInstr, "[ROLE CONTEXT]\nInstructions: Be brief.\n[/ROLE CONTEXT]")
}

func TestDebate_FoldsPriorRoundsByLabel(t *testing.T) {
	got := Debate{Topic: "T", Round: 3, Prior: sampleRounds()}.Build()

	assert.Contains(t, got, "Round 3\n\nPrevious rounds:\n\n--- Round 1 ---\n")
	assert.Contains(t, got, "claude (CEO): Ship it.\n\n")
	assert.Contains(t, got, "codex: [no response: timeout]\n\n")
	assert.Contains(t, got, "--- Round 2 ---\nclaude (CEO): Still ship it.\n\ncodex: Agree with claude (CEO).\n\n")
	assert.True(t, strings.HasSuffix(got, laterRoundAsk))
	assert.Less(t, strings.Index(got, "--- Round 1 ---"), strings.Index(got, "--- Round 2 ---"))
}

func TestDebate_Deterministic(t *testing.T) {
	inputs := []Debate{
		{Topic: "A", Round: 1},
		{Topic: "B", Round: 2, Persona: "Skeptic", Prior: sampleRounds()[:1]},
		{Topic: "C", Round: 3, Instructions: "Be concrete about costs.", Prior: sampleRounds(), MaxPriorChars: 60},
	}
	want := make([]string, len(inputs))
	for i, in := range inputs {
		want[i] = in.Build()
	}

	r := rand.New(rand.NewSource(7))
	for range 50 {
		i := r.Intn(len(inputs))
		assert.Equal(t, want[i], inputs[i].Build())
	}
}

func TestDebate_TruncatesOldestFirst(t *testing.T) {
	rounds := []Round{
		{{Participant: "a", Response: strings.Repeat("1", 100)}},
		{{Participant: "a", Response: strings.Repeat("2", 100)}},
		{{Participant: "a", Response: strings.Repeat("3", 100)}},
	}
	blockLen := len([]rune(renderRound(1, rounds[0])))

	got := Debate{Topic: "T", Round: 4, Prior: rounds, MaxPriorChars: 2 * blockLen}.Build()
	assert.Contains(t, got, "[1 earlier round(s) omitted]")
	assert.NotContains(t, got, strings.Repeat("1", 100))
	assert.Contains(t, got, strings.Repeat("2", 100))
	assert.Contains(t, got, strings.Repeat("3", 100))

	tiny := Debate{Topic: "T", Round: 4, Prior: rounds, MaxPriorChars: 1}.Build()
	assert.Contains(t, tiny, "[2 earlier round(s) omitted]")
	assert.Contains(t, tiny, strings.Repeat("3", 100), "most recent round is always kept")
	assert.True(t, strings.HasPrefix(tiny, "Topic: T\n\nRound 4"))

	unbounded := Debate{Topic: "T", Round: 4, Prior: rounds}.Build()
	assert.NotContains(t, unbounded, "omitted")
}

func TestKeepNewest_CountsRunes(t *testing.T) {
	blocks := []string{"ééééé", "ü", "日本"}
	kept, omitted := keepNewest(blocks, 3)
	assert.Equal(t, []string{"ü", "日本"}, kept)
	assert.Equal(t, 1, omitted)
}

func TestSession_NoHistory(t *testing.T) {
	assert.Equal(t, "just this", Session(nil, "just this", 100))
}

func TestSession_FooScenario(t *testing.T) {
	history := []Turn{
		{Role: RoleUser, Content: "hello"},
		{Role: RoleAssistant, Content: "hi"},
	}
	got := Session(history, "more", 0)

	want := "[CONVERSATION HISTORY]\nUser: hello\n\nAssistant: hi\n[/CONVERSATION HISTORY]\n\n" +
		"[CURRENT REQUEST]\nmore\n[/CURRENT REQUEST]"
	assert.Equal(t, want, got)

	histEnd := strings.Index(got, "[/CONVERSATION HISTORY]")
	reqStart := strings.Index(got, "[CURRENT REQUEST]")
	assert.Less(t, strings.Index(got, "hello"), histEnd)
	assert.Greater(t, strings.Index(got, "more"), reqStart)
}

func TestSession_TruncatesOldestPairs(t *testing.T) {
	var history []Turn
	for _, n := range []string{"one", "two", "three"} {
		history = append(history,
			Turn{Role: RoleUser, Content: "q-" + n + strings.Repeat(".", 40)},
			Turn{Role: RoleAssistant, Content: "a-" + n + strings.Repeat(".", 40)},
		)
	}

	got := Session(history, "now", 10)
	assert.Contains(t, got, "[2 earlier exchange(s) omitted]")
	assert.NotContains(t, got, "q-one")
	assert.NotContains(t, got, "a-two")
	assert.Contains(t, got, "q-three")
	assert.Contains(t, got, "a-three")
	assert.True(t, strings.HasSuffix(got, "[CURRENT REQUEST]\nnow\n[/CURRENT REQUEST]"))
}

func TestPairTurns(t *testing.T) {
	turns := []Turn{
		{Role: RoleAssistant, Content: "orphan"},
		{Role: RoleUser, Content: "u1"},
		{Role: RoleAssistant, Content: "a1"},
		{Role: RoleUser, Content: "u2"},
	}
	pairs := pairTurns(turns)
	require.Len(t, pairs, 3)
	assert.Len(t, pairs[0], 1)
	assert.Len(t, pairs[1], 2)
	assert.Equal(t, "u2", pairs[2][0].Content)
}

func TestSynthesis(t *testing.T) {
	got := Synthesis("Monorepo?", sampleRounds())
	assert.Contains(t, got, "Topic: Monorepo?")
	assert.Contains(t, got, "[DEBATE TRANSCRIPT]\n--- Round 1 ---")
	assert.Contains(t, got, "codex: [no response: timeout]")
	for _, section := range []string{"## Consensus", "## Disagreements", "## Key Insights", "## Recommendation"} {
		assert.Contains(t, got, section)
	}
	assert.Equal(t, got, Synthesis("Monorepo?", sampleRounds()))
}

func TestAgentGeneration(t *testing.T) {
	got := AgentGeneration("Pricing", []string{"CEO", "CFO"})
	assert.Contains(t, got, `Topic: "Pricing"`)
	assert.Contains(t, got, "Create exactly 2 agent definition(s), one for each of these roles: CEO, CFO")
	assert.Contains(t, got, `"communication_style"`)
}

func TestBlock(t *testing.T) {
	assert.Equal(t, "[X]\nbody\n[/X]", Block("X", "body"))
}
