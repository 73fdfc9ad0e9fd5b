package template

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Iron-Ham/parley/internal/backend"
	perrors "github.com/Iron-Ham/parley/internal/errors"
)

func writeFile(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

func TestBuiltins(t *testing.T) {
	ts, err := Builtins()
	require.NoError(t, err)

	names := make([]string, len(ts))
	for i, tpl := range ts {
		names[i] = tpl.Name
		assert.True(t, tpl.Builtin)
		assert.NoError(t, tpl.Validate(backend.IsBuiltin), tpl.Name)
		assert.Len(t, tpl.Participants, 3, tpl.Name)
	}
	assert.ElementsMatch(t, []string{
		"code-review", "architecture-decision", "security-audit", "api-design", "incident-postmortem",
	}, names)
}

func TestApply(t *testing.T) {
	c, err := Load("", nil, nil)
	require.NoError(t, err)

	review, err := c.Get("code-review")
	require.NoError(t, err)
	assert.Equal(t, "Review the following code for issues and improvements:\n\nfunc f() {}\n\n"+
		"Provide specific line references where applicable.", review.Apply("func f() {}"))

	api, err := c.Get("api-design")
	require.NoError(t, err)
	assert.Equal(t, "Review the following API design:\n\nGET /users", api.Apply("GET /users"))

	arch, err := c.Get("architecture-decision")
	require.NoError(t, err)
	assert.Equal(t, "monolith?", arch.Apply("monolith?"))
	assert.Equal(t, 3, arch.DefaultRounds)
}

func TestToParticipants(t *testing.T) {
	c, err := Load("", nil, nil)
	require.NoError(t, err)
	tpl, err := c.Get("security-audit")
	require.NoError(t, err)

	ps := tpl.ToParticipants()
	require.Len(t, ps, 3)
	assert.Equal(t, "claude (CISO)", ps[0].Label)
	assert.Contains(t, ps[0].Instructions, "Areas of expertise: risk management, compliance")
}

func TestLoad_UserOverridesAndFormats(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "review.yaml", `
name: code-review
description: Team flavored review
default_rounds: 1
participants:
  - cli: codex
    persona: Staff Engineer
    instructions: Review for correctness above all else.
`)
	writeFile(t, dir, "pricing.toml", `
name = "pricing"
description = "Pricing debate"
default_rounds = 2

[[participants]]
cli = "gemini"
persona = "CFO"
instructions = "Focus on margins and unit economics."
expertise = ["finance"]

[context]
prefix = "Pricing question:"
`)
	writeFile(t, dir, "notes.txt", "ignored")

	c, err := Load(dir, backend.IsBuiltin, nil)
	require.NoError(t, err)
	assert.Empty(t, c.Skipped)

	review, err := c.Get("code-review")
	require.NoError(t, err)
	assert.False(t, review.Builtin)
	assert.Equal(t, "Team flavored review", review.Description)
	assert.Equal(t, filepath.Join(dir, "review.yaml"), review.Path)

	pricing, err := c.Get("pricing")
	require.NoError(t, err)
	assert.Equal(t, "Pricing question:\n\nX", pricing.Apply("X"))
	assert.Equal(t, []string{"finance"}, pricing.Participants[0].Expertise)

	assert.Len(t, c.List(), 6)
	assert.Equal(t, "api-design", c.List()[0].Name)
}

func TestLoad_SkipsInvalid(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a-short.yaml", `
name: short
default_rounds: 2
participants:
  - cli: claude
    persona: Reviewer
    instructions: "123456789"
`)
	writeFile(t, dir, "b-unknown.yaml", `
name: unknown
default_rounds: 2
participants:
  - cli: nope
    persona: Reviewer
    instructions: Long enough instructions here.
`)
	writeFile(t, dir, "c-garbage.toml", "name = ")
	writeFile(t, dir, "d-extra.yaml", "name: x\nbogus: true\n")

	c, err := Load(dir, backend.IsBuiltin, nil)
	require.NoError(t, err)
	assert.Len(t, c.Skipped, 4)
	for _, e := range c.Skipped {
		assert.ErrorIs(t, e, perrors.ErrInvalidInput)
	}
	assert.Len(t, c.List(), 5)
}

func TestLoad_DuplicateUserTemplate(t *testing.T) {
	dir := t.TempDir()
	body := `
name: dup
default_rounds: 1
participants:
  - cli: claude
    persona: Reviewer
    instructions: Long enough instructions here.
`
	writeFile(t, dir, "one.yaml", body)
	writeFile(t, dir, "two.yml", body)

	c, err := Load(dir, nil, nil)
	require.NoError(t, err)
	require.Len(t, c.Skipped, 1)

	dup, err := c.Get("dup")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "one.yaml"), dup.Path)
}

func TestGet_NotFound(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "missing"), nil, nil)
	require.NoError(t, err)

	_, err = c.Get("nope")
	assert.ErrorIs(t, err, &perrors.NotFoundError{})
	assert.Equal(t, perrors.KindValidation, perrors.KindOf(err))
}
