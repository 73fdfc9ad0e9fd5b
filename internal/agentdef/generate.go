package agentdef

import (
	"encoding/json"
	"fmt"
	"strings"

	perrors "github.com/Iron-Ham/parley/internal/errors"
)

// GeneratorPrefix prefixes generated_by for files written by generate-agents.
const GeneratorPrefix = "parley-"

// ParseGenerated extracts the JSON array of descriptors from a backend
// response. The array spans the first '[' to the last ']'; anything around
// it (prose, code fences) is ignored.
func ParseGenerated(response string, expected int) ([]Descriptor, error) {
	start := strings.Index(response, "[")
	end := strings.LastIndex(response, "]")
	if start < 0 || end < start {
		return nil, fmt.Errorf("no JSON array in response: %w", perrors.ErrInvocationFailed)
	}

	var ds []Descriptor
	if err := json.Unmarshal([]byte(response[start:end+1]), &ds); err != nil {
		return nil, fmt.Errorf("parse agent definitions: %v: %w", err, perrors.ErrInvocationFailed)
	}
	if len(ds) != expected {
		return nil, fmt.Errorf("expected %d agent definition(s), got %d: %w", expected, len(ds), perrors.ErrInvocationFailed)
	}
	return ds, nil
}

// NewGenerated wraps generated descriptors in a current-schema file.
func NewGenerated(cli string, ds []Descriptor) *File {
	return &File{
		SchemaVersion: SchemaVersion,
		GeneratedBy:   GeneratorPrefix + cli,
		Participants:  ds,
	}
}

// ParseRoles splits a comma-separated role list, dropping blanks.
func ParseRoles(s string) ([]string, error) {
	var roles []string
	for _, r := range strings.Split(s, ",") {
		if r = strings.TrimSpace(r); r != "" {
			roles = append(roles, r)
		}
	}
	if len(roles) == 0 {
		return nil, perrors.NewValidationError("no roles specified").WithField("roles").WithValue(s)
	}
	return roles, nil
}
