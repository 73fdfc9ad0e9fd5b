package plugin

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ollamaTOML = `
[plugin]
name = "ollama"
description = "Local models"
command = "ollama"

[invoke]
base_args = ["run", "llama3"]
prompt_mode = "arg_last"

[access]
readonly_args = ["--ro"]

[detection]
check_command = "ollama"
check_args = ["--version"]
`

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestParse(t *testing.T) {
	d, err := Parse([]byte(ollamaTOML))
	require.NoError(t, err)

	assert.Equal(t, "ollama", d.Name)
	assert.Equal(t, "Local models", d.Description)
	assert.Equal(t, []string{"run", "llama3"}, d.BaseArgs)
	assert.Equal(t, "arg_last", d.PromptMode)
	assert.Equal(t, []string{"--ro"}, d.ReadOnlyArgs)
	assert.Empty(t, d.WriteArgs)
	assert.Equal(t, []string{"--version"}, d.CheckArgs)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty", "   "},
		{"malformed", "[plugin\nname="},
		{"no name", "[plugin]\ncommand = \"x\""},
		{"no command", "[plugin]\nname = \"x\""},
		{"shadows builtin", "[plugin]\nname = \"gemini\"\ncommand = \"x\""},
		{"bad prompt mode", "[plugin]\nname = \"x\"\ncommand = \"x\"\n[invoke]\nprompt_mode = \"socket\""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.body))
			assert.Error(t, err)
		})
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b-ollama.toml", ollamaTOML)
	writeFile(t, dir, "a-aider.toml", "[plugin]\nname = \"aider\"\ncommand = \"aider\"\n[invoke]\nprompt_mode = \"arg\"\nprompt_arg = \"--message\"\n")
	writeFile(t, dir, "c-dupe.toml", ollamaTOML)
	writeFile(t, dir, "d-broken.toml", "[plugin]\nname = \"claude\"\ncommand = \"x\"\n")
	writeFile(t, dir, "notes.md", "ignored")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.toml"), 0o755))

	res, err := LoadDir(dir)
	require.NoError(t, err)

	require.Len(t, res.Descriptors, 2)
	assert.Equal(t, "aider", res.Descriptors[0].Name)
	assert.Equal(t, "ollama", res.Descriptors[1].Name)
	assert.Equal(t, filepath.Join(dir, "b-ollama.toml"), res.Descriptors[1].Path)
	assert.Len(t, res.Skipped, 2)
}

func TestLoadDir_Missing(t *testing.T) {
	res, err := LoadDir(filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	assert.Empty(t, res.Descriptors)

	res, err = LoadDir("  ")
	require.NoError(t, err)
	assert.Empty(t, res.Descriptors)
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "x.toml"))
	assert.Error(t, err)
}
