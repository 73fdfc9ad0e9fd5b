package agentdef

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/xeipuuv/gojsonschema"

	perrors "github.com/Iron-Ham/parley/internal/errors"
)

// MinInstructionsChars is the minimum instructions length in characters.
const MinInstructionsChars = 10

var (
	expertiseSchema = mustSchema(`{"type": "array", "items": {"type": "string"}}`)
	styleSchema     = mustSchema(`{"type": "string"}`)
)

func mustSchema(s string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(s))
	if err != nil {
		panic(fmt.Sprintf("agentdef: bad schema %s: %v", s, err))
	}
	return schema
}

// Validate checks every rule on f and returns all failures as
// perrors.ValidationErrors. known reports whether a backend identifier is a
// builtin or registered plugin; a nil known accepts any non-empty cli.
func Validate(f *File, known func(string) bool) error {
	var errs perrors.ValidationErrors
	add := func(field, msg string, value any) {
		errs = append(errs, perrors.NewValidationError(msg).WithField(field).WithValue(value))
	}

	if f == nil {
		return perrors.NewValidationError("agent file is missing")
	}

	if f.SchemaVersion != SchemaVersion {
		add("schema_version", fmt.Sprintf("must be %q", SchemaVersion), f.SchemaVersion)
	}
	if len(f.Participants) == 0 {
		errs = append(errs, perrors.NewValidationError("at least one participant is required").WithField("participants"))
	}

	for i, d := range f.Participants {
		errs = append(errs, ValidateDescriptor(fmt.Sprintf("participants[%d]", i), d, known)...)
	}
	return errs.ErrOrNil()
}

// ValidateDescriptor checks one descriptor. Field names are prefixed with
// prefix.
func ValidateDescriptor(prefix string, d Descriptor, known func(string) bool) perrors.ValidationErrors {
	var errs perrors.ValidationErrors
	add := func(field, msg string, value any) {
		errs = append(errs, perrors.NewValidationError(msg).WithField(prefix+"."+field).WithValue(value))
	}

	cli := strings.TrimSpace(d.CLI)
	switch {
	case cli == "":
		add("cli", "must not be empty", d.CLI)
	case known != nil && !known(cli):
		add("cli", "unknown backend", d.CLI)
	}

	if strings.TrimSpace(d.Persona) == "" {
		add("persona", "must not be empty", d.Persona)
	}

	if n := utf8.RuneCountInString(strings.TrimSpace(d.Instructions)); n < MinInstructionsChars {
		add("instructions", fmt.Sprintf("must be at least %d characters (got %d)", MinInstructionsChars, n), d.Instructions)
	}

	if present(d.Expertise) {
		if msg := checkShape(expertiseSchema, d.Expertise); msg != "" {
			add("expertise", "must be an array of strings: "+msg, string(d.Expertise))
		}
	}
	if present(d.CommunicationStyle) {
		if msg := checkShape(styleSchema, d.CommunicationStyle); msg != "" {
			add("communication_style", "must be a string: "+msg, string(d.CommunicationStyle))
		}
	}
	return errs
}

func checkShape(schema *gojsonschema.Schema, raw []byte) string {
	result, err := schema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return err.Error()
	}
	if result.Valid() {
		return ""
	}
	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return strings.Join(msgs, "; ")
}
