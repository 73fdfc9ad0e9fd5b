// Package plugin loads TOML plugin descriptors that add custom backends.
//
// A descriptor looks like:
//
//	[plugin]
//	name = "ollama"
//	description = "Local models via Ollama"
//	command = "ollama"
//
//	[invoke]
//	base_args = ["run", "llama3"]
//	prompt_mode = "arg_last"   # stdin | arg | arg_last
//	prompt_arg = ""            # flag used before the prompt in "arg" mode
//
//	[access]
//	readonly_args = []
//	write_args = []
//
//	[detection]
//	check_command = "ollama"
//	check_args = ["--version"]
package plugin

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/Iron-Ham/parley/internal/backend"
)

// File mirrors the on-disk TOML layout.
type File struct {
	Plugin struct {
		Name        string `toml:"name"`
		Description string `toml:"description"`
		Command     string `toml:"command"`
	} `toml:"plugin"`
	Invoke struct {
		BaseArgs   []string `toml:"base_args"`
		PromptMode string   `toml:"prompt_mode"`
		PromptArg  string   `toml:"prompt_arg"`
	} `toml:"invoke"`
	Access struct {
		ReadOnlyArgs []string `toml:"readonly_args"`
		WriteArgs    []string `toml:"write_args"`
	} `toml:"access"`
	Detection struct {
		CheckCommand string   `toml:"check_command"`
		CheckArgs    []string `toml:"check_args"`
	} `toml:"detection"`
}

// Descriptor converts the file into a backend descriptor.
func (f File) Descriptor() backend.Descriptor {
	return backend.Descriptor{
		Name:         strings.TrimSpace(f.Plugin.Name),
		Description:  f.Plugin.Description,
		Command:      f.Plugin.Command,
		BaseArgs:     f.Invoke.BaseArgs,
		PromptMode:   f.Invoke.PromptMode,
		PromptArg:    f.Invoke.PromptArg,
		ReadOnlyArgs: f.Access.ReadOnlyArgs,
		WriteArgs:    f.Access.WriteArgs,
		CheckCommand: f.Detection.CheckCommand,
		CheckArgs:    f.Detection.CheckArgs,
	}
}

// Parse decodes and validates a single descriptor payload.
func Parse(data []byte) (backend.Descriptor, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return backend.Descriptor{}, fmt.Errorf("plugin: descriptor is empty")
	}
	var f File
	if err := toml.Unmarshal(data, &f); err != nil {
		return backend.Descriptor{}, fmt.Errorf("plugin: decode descriptor: %w", err)
	}
	d := f.Descriptor()
	if _, err := backend.FromDescriptor(d); err != nil {
		return backend.Descriptor{}, fmt.Errorf("plugin: %w", err)
	}
	return d, nil
}

// LoadFile reads and validates one descriptor file.
func LoadFile(path string) (backend.Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return backend.Descriptor{}, fmt.Errorf("plugin: read %s: %w", path, err)
	}
	d, err := Parse(data)
	if err != nil {
		return backend.Descriptor{}, fmt.Errorf("%s: %w", path, err)
	}
	d.Path = filepath.Clean(path)
	return d, nil
}

// Result is the outcome of scanning a plugin directory.
type Result struct {
	Descriptors []backend.Descriptor
	// Skipped holds one error per file that failed to load.
	Skipped []error
}

// LoadDir scans dir for *.toml descriptors, sorted by path. A missing
// directory yields an empty Result. Invalid files are reported in Skipped
// and do not stop the scan.
func LoadDir(dir string) (Result, error) {
	trimmed := strings.TrimSpace(dir)
	if trimmed == "" {
		return Result{}, nil
	}
	entries, err := os.ReadDir(trimmed)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Result{}, nil
		}
		return Result{}, fmt.Errorf("plugin: read %s: %w", trimmed, err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(strings.ToLower(entry.Name()), ".toml") {
			continue
		}
		paths = append(paths, filepath.Join(trimmed, entry.Name()))
	}
	sort.Strings(paths)

	var res Result
	seen := make(map[string]string)
	for _, path := range paths {
		d, err := LoadFile(path)
		if err != nil {
			res.Skipped = append(res.Skipped, err)
			continue
		}
		if prev, dup := seen[d.Name]; dup {
			res.Skipped = append(res.Skipped, fmt.Errorf("%s: plugin: name %q already defined in %s", path, d.Name, prev))
			continue
		}
		seen[d.Name] = path
		res.Descriptors = append(res.Descriptors, d)
	}
	return res, nil
}
