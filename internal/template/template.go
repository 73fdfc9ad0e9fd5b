// Package template provides reusable debate setups: a participant roster,
// default round count and optional topic framing.
//
// Five templates are built in. User templates (YAML or TOML) in the
// templates directory override built-ins of the same name.
package template

import (
	"bytes"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/Iron-Ham/parley/internal/agentdef"
	"github.com/Iron-Ham/parley/internal/debate"
	perrors "github.com/Iron-Ham/parley/internal/errors"
	"github.com/Iron-Ham/parley/internal/logging"
)

//go:embed builtin/*.yaml
var builtinFS embed.FS

// Template is a debate setup.
type Template struct {
	Name          string        `yaml:"name" toml:"name"`
	Description   string        `yaml:"description" toml:"description"`
	DefaultRounds int           `yaml:"default_rounds" toml:"default_rounds"`
	Participants  []Participant `yaml:"participants" toml:"participants"`
	Context       *Context      `yaml:"context,omitempty" toml:"context,omitempty"`

	// Builtin is false for templates loaded from disk.
	Builtin bool `yaml:"-" toml:"-"`
	// Path is the file a user template came from.
	Path string `yaml:"-" toml:"-"`
}

// Participant is one roster entry.
type Participant struct {
	CLI          string   `yaml:"cli" toml:"cli"`
	Persona      string   `yaml:"persona" toml:"persona"`
	Instructions string   `yaml:"instructions" toml:"instructions"`
	Expertise    []string `yaml:"expertise,omitempty" toml:"expertise,omitempty"`
}

// Context frames the topic.
type Context struct {
	Prefix string `yaml:"prefix,omitempty" toml:"prefix,omitempty"`
	Suffix string `yaml:"suffix,omitempty" toml:"suffix,omitempty"`
}

func (p Participant) descriptor() agentdef.Descriptor {
	return agentdef.Descriptor{
		CLI:          p.CLI,
		Persona:      p.Persona,
		Instructions: p.Instructions,
	}.WithExpertise(p.Expertise)
}

// Validate applies the agent file participant rules to every entry.
func (t *Template) Validate(known func(string) bool) error {
	var errs perrors.ValidationErrors
	if strings.TrimSpace(t.Name) == "" {
		errs = append(errs, perrors.NewValidationError("must not be empty").WithField("name"))
	}
	if t.DefaultRounds < 1 {
		errs = append(errs, perrors.NewValidationError("must be at least 1").
			WithField("default_rounds").WithValue(t.DefaultRounds))
	}
	if len(t.Participants) == 0 {
		errs = append(errs, perrors.NewValidationError("at least one participant is required").WithField("participants"))
	}
	for i, p := range t.Participants {
		errs = append(errs, agentdef.ValidateDescriptor(fmt.Sprintf("participants[%d]", i), p.descriptor(), known)...)
	}
	return errs.ErrOrNil()
}

// ToParticipants converts the roster into labeled debate participants.
func (t *Template) ToParticipants() []debate.Participant {
	ps := make([]debate.Participant, len(t.Participants))
	for i, p := range t.Participants {
		ps[i] = p.descriptor().Participant()
	}
	return debate.AssignLabels(ps)
}

// Apply frames topic with the template's prefix and suffix.
func (t *Template) Apply(topic string) string {
	if t.Context == nil {
		return topic
	}
	var b strings.Builder
	if t.Context.Prefix != "" {
		b.WriteString(t.Context.Prefix)
		b.WriteString("\n\n")
	}
	b.WriteString(topic)
	if t.Context.Suffix != "" {
		b.WriteString("\n\n")
		b.WriteString(t.Context.Suffix)
	}
	return b.String()
}

// Parse decodes a template. format is "yaml" or "toml".
func Parse(data []byte, format string) (*Template, error) {
	var t Template
	switch format {
	case "yaml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&t); err != nil {
			return nil, perrors.NewValidationError(fmt.Sprintf("invalid YAML template: %v", err)).WithCause(err)
		}
	case "toml":
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&t); err != nil {
			return nil, perrors.NewValidationError(fmt.Sprintf("invalid TOML template: %v", err)).WithCause(err)
		}
	default:
		return nil, perrors.NewValidationError("unsupported template format").WithField("format").WithValue(format)
	}
	return &t, nil
}

func formatOf(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml"
	case ".toml":
		return "toml"
	}
	return ""
}

// Catalog is the merged set of built-in and user templates.
type Catalog struct {
	templates map[string]*Template
	// Skipped holds one error per user template that failed to load.
	Skipped []error
}

// Builtins returns the embedded templates.
func Builtins() ([]*Template, error) {
	entries, err := builtinFS.ReadDir("builtin")
	if err != nil {
		return nil, err
	}
	out := make([]*Template, 0, len(entries))
	for _, e := range entries {
		data, err := builtinFS.ReadFile("builtin/" + e.Name())
		if err != nil {
			return nil, err
		}
		t, err := Parse(data, "yaml")
		if err != nil {
			return nil, fmt.Errorf("builtin template %s: %w", e.Name(), err)
		}
		t.Builtin = true
		out = append(out, t)
	}
	return out, nil
}

// Load builds a catalog from the built-ins and the user templates in dir.
// A missing dir is not an error. User templates that fail to parse or
// validate are recorded in Skipped and logged.
func Load(dir string, known func(string) bool, logger *logging.Logger) (*Catalog, error) {
	if logger == nil {
		logger = logging.NopLogger()
	}

	builtins, err := Builtins()
	if err != nil {
		return nil, err
	}
	c := &Catalog{templates: make(map[string]*Template, len(builtins))}
	for _, t := range builtins {
		c.templates[t.Name] = t
	}

	if strings.TrimSpace(dir) == "" {
		return c, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return c, nil
		}
		return nil, perrors.NewIOError("readdir", dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && formatOf(e.Name()) != "" {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		path := filepath.Join(dir, name)
		t, err := loadFile(path, known)
		if err != nil {
			logger.Warn("skipping template", "path", path, "error", err.Error())
			c.Skipped = append(c.Skipped, err)
			continue
		}
		if prev, ok := c.templates[t.Name]; ok && !prev.Builtin {
			err := fmt.Errorf("template %q in %s is already defined in %s", t.Name, path, prev.Path)
			logger.Warn("skipping template", "path", path, "error", err.Error())
			c.Skipped = append(c.Skipped, err)
			continue
		}
		c.templates[t.Name] = t
	}
	return c, nil
}

func loadFile(path string, known func(string) bool) (*Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, perrors.NewIOError("read", path, err)
	}
	t, err := Parse(data, formatOf(path))
	if err != nil {
		return nil, perrors.Wrapf(err, "template %s", path)
	}
	if err := t.Validate(known); err != nil {
		return nil, perrors.Wrapf(err, "template %s", path)
	}
	t.Path = path
	return t, nil
}

// Get returns the named template.
func (c *Catalog) Get(name string) (*Template, error) {
	t, ok := c.templates[name]
	if !ok {
		return nil, perrors.NewNotFoundError("template", name).WithCause(perrors.ErrInvalidInput)
	}
	return t, nil
}

// List returns every template sorted by name.
func (c *Catalog) List() []*Template {
	out := make([]*Template, 0, len(c.templates))
	for _, t := range c.templates {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
