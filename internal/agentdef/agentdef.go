// Package agentdef loads and validates agent files: externally supplied
// participant lists for a debate.
//
// Validation always runs to completion and reports every problem at once.
// Nothing in a definition reaches a debate until Validate returns nil.
package agentdef

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/Iron-Ham/parley/internal/debate"
	perrors "github.com/Iron-Ham/parley/internal/errors"
)

// SchemaVersion is the only accepted schema_version.
const SchemaVersion = "1.0"

// File is an agent file document.
type File struct {
	SchemaVersion string       `json:"schema_version"`
	GeneratedBy   string       `json:"generated_by,omitempty"`
	Participants  []Descriptor `json:"participants"`
}

// Descriptor is one participant. Expertise and CommunicationStyle are kept
// raw so their shape can be checked instead of failing the whole decode.
type Descriptor struct {
	CLI                string          `json:"cli"`
	Persona            string          `json:"persona"`
	Instructions       string          `json:"instructions"`
	Expertise          json.RawMessage `json:"expertise,omitempty"`
	CommunicationStyle json.RawMessage `json:"communication_style,omitempty"`
}

// ExpertiseList returns the expertise entries. It is only meaningful after
// the descriptor has been validated.
func (d Descriptor) ExpertiseList() []string {
	var out []string
	if present(d.Expertise) {
		_ = json.Unmarshal(d.Expertise, &out)
	}
	return out
}

// Style returns the communication style, or "".
func (d Descriptor) Style() string {
	var out string
	if present(d.CommunicationStyle) {
		_ = json.Unmarshal(d.CommunicationStyle, &out)
	}
	return out
}

func present(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && !bytes.Equal(raw, []byte("null"))
}

// WithExpertise returns d with expertise set from a string list.
func (d Descriptor) WithExpertise(items []string) Descriptor {
	if len(items) == 0 {
		d.Expertise = nil
		return d
	}
	data, _ := json.Marshal(items)
	d.Expertise = data
	return d
}

// Parse decodes an agent file without validating it.
func Parse(data []byte) (*File, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, perrors.NewValidationError("agent file is empty")
	}
	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, perrors.NewValidationError(fmt.Sprintf("agent file is not valid JSON: %v", err)).WithCause(err)
	}
	return &f, nil
}

// Load reads and validates the agent file at path.
func Load(path string, known func(string) bool) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, perrors.NewIOError("read", path, err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, perrors.Wrapf(err, "agent file %s", path)
	}
	if err := Validate(f, known); err != nil {
		return nil, perrors.Wrapf(err, "agent file %s", path)
	}
	return f, nil
}

// Save writes f as indented JSON.
func Save(path string, f *File) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("encode agent file: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return perrors.NewIOError("write", path, err)
	}
	return nil
}

// ToParticipants converts validated descriptors into debate participants.
// Expertise and communication style are folded into the instructions.
func (f *File) ToParticipants() []debate.Participant {
	ps := make([]debate.Participant, len(f.Participants))
	for i, d := range f.Participants {
		ps[i] = d.Participant()
	}
	return debate.AssignLabels(ps)
}

// Participant converts one validated descriptor.
func (d Descriptor) Participant() debate.Participant {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(d.Instructions))
	if exp := d.ExpertiseList(); len(exp) > 0 {
		b.WriteString("\nAreas of expertise: ")
		b.WriteString(strings.Join(exp, ", "))
	}
	if style := strings.TrimSpace(d.Style()); style != "" {
		b.WriteString("\nCommunication style: ")
		b.WriteString(style)
	}
	return debate.Participant{
		Backend:      strings.TrimSpace(d.CLI),
		Persona:      strings.TrimSpace(d.Persona),
		Instructions: b.String(),
	}
}
