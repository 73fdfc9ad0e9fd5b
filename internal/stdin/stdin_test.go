package stdin

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	perrors "github.com/Iron-Ham/parley/internal/errors"
)

func TestParseMode(t *testing.T) {
	m, err := ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeAuto, m)

	m, err = ParseMode("Context")
	require.NoError(t, err)
	assert.Equal(t, ModeContext, m)

	_, err = ParseMode("always")
	assert.ErrorIs(t, err, perrors.ErrInvalidInput)
}

func TestRead(t *testing.T) {
	got, err := Read(strings.NewReader("  \n piped data \n\n"))
	require.NoError(t, err)
	assert.Equal(t, "piped data", got)

	got, err = Read(strings.NewReader(" \n\t"))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRead_SizeLimit(t *testing.T) {
	got, err := Read(strings.NewReader(strings.Repeat("a", MaxBytes)))
	require.NoError(t, err)
	assert.Len(t, got, MaxBytes)

	_, err = Read(strings.NewReader(strings.Repeat("a", MaxBytes+1)))
	require.Error(t, err)
	assert.Equal(t, perrors.KindValidation, perrors.KindOf(err))
	assert.Contains(t, err.Error(), "exceeds")
}

func TestReadIfPiped_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.txt")
	require.NoError(t, os.WriteFile(path, []byte("from file\n"), 0o644))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	assert.True(t, IsPiped(f), "a regular file is not a terminal")

	got, err := ReadIfPiped(f, ModeIgnore)
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = ReadIfPiped(f, ModeAuto)
	require.NoError(t, err)
	assert.Equal(t, "from file", got)
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "[PIPED CONTEXT]\nlog line\n[/PIPED CONTEXT]", Format("log line"))
}

func TestMerge(t *testing.T) {
	tests := []struct {
		name    string
		mode    Mode
		primary string
		piped   string
		want    string
		wantErr bool
	}{
		{"no piped", ModeAuto, "topic", "", "topic", false},
		{"auto becomes primary", ModeAuto, "", "diff", "diff", false},
		{"auto as context", ModeAuto, "review this", "diff", "[PIPED CONTEXT]\ndiff\n[/PIPED CONTEXT]\n\nreview this", false},
		{"context requires primary", ModeContext, "", "diff", "", true},
		{"context", ModeContext, "q", "diff", "[PIPED CONTEXT]\ndiff\n[/PIPED CONTEXT]\n\nq", false},
		{"ignore", ModeIgnore, "q", "diff", "q", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Merge(tt.mode, tt.primary, tt.piped)
			if tt.wantErr {
				assert.ErrorIs(t, err, perrors.ErrInvalidInput)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
