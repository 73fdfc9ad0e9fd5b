package backend

import (
	"fmt"
	"slices"
	"strings"

	"github.com/Iron-Ham/parley/internal/config"
	perrors "github.com/Iron-Ham/parley/internal/errors"
)

// Registry maps backend identifiers to resolved Specs. It is built once and
// read-only afterwards, so it is safe for concurrent use.
type Registry struct {
	specs map[string]Spec
	order []string
}

// NewRegistry resolves the builtin backends from cfg and the given plugin
// descriptors. Plugins that shadow a builtin or repeat a name are rejected.
func NewRegistry(backends map[string]config.BackendConfig, plugins []Descriptor) (*Registry, error) {
	r := &Registry{specs: make(map[string]Spec)}

	for _, kind := range BuiltinKinds() {
		bc, ok := backends[string(kind)]
		if !ok {
			bc = config.Default().Backends[string(kind)]
		}
		spec, err := FromBackendConfig(kind, bc)
		if err != nil {
			return nil, err
		}
		r.add(spec)
	}

	var errs perrors.ValidationErrors
	for _, d := range plugins {
		spec, err := FromDescriptor(d)
		if err != nil {
			errs = append(errs, perrors.NewValidationError(err.Error()).WithField("plugin").WithValue(d.Name))
			continue
		}
		if _, dup := r.specs[spec.ID]; dup {
			errs = append(errs, perrors.NewValidationError("duplicate backend name").WithField("plugin").WithValue(d.Name))
			continue
		}
		r.add(spec)
	}

	if err := errs.ErrOrNil(); err != nil {
		return r, err
	}
	return r, nil
}

func (r *Registry) add(spec Spec) {
	r.specs[spec.ID] = spec
	r.order = append(r.order, spec.ID)
}

// FromBackendConfig resolves a builtin backend.
func FromBackendConfig(kind Kind, bc config.BackendConfig) (Spec, error) {
	mode, err := ParseInputMode(bc.InputMode)
	if err != nil {
		return Spec{}, perrors.NewValidationError(err.Error()).WithField("backends." + string(kind) + ".input_mode")
	}
	command := bc.Command
	if command == "" {
		command = string(kind)
	}
	return Spec{
		ID:           string(kind),
		Command:      command,
		Args:         slices.Clone(bc.Args),
		InputMode:    mode,
		PromptFlag:   bc.PromptFlag,
		ModelFlag:    bc.ModelFlag,
		ReadOnlyArgs: slices.Clone(bc.ReadOnlyArgs),
		WriteArgs:    slices.Clone(bc.WriteArgs),
		Noise:        builtinNoise[kind],
		Source:       Builtin{Kind: kind},
	}, nil
}

// FromDescriptor resolves a plugin descriptor.
func FromDescriptor(d Descriptor) (Spec, error) {
	name := strings.TrimSpace(d.Name)
	if name == "" {
		return Spec{}, fmt.Errorf("plugin name cannot be empty")
	}
	if IsBuiltin(name) {
		return Spec{}, fmt.Errorf("plugin name %q conflicts with builtin backend", name)
	}
	if strings.TrimSpace(d.Command) == "" {
		return Spec{}, fmt.Errorf("plugin %q: command cannot be empty", name)
	}

	spec := Spec{
		ID:           name,
		Command:      d.Command,
		Args:         slices.Clone(d.BaseArgs),
		ReadOnlyArgs: slices.Clone(d.ReadOnlyArgs),
		WriteArgs:    slices.Clone(d.WriteArgs),
		CheckCommand: d.CheckCommand,
		CheckArgs:    slices.Clone(d.CheckArgs),
		Source:       Plugin{Descriptor: d},
	}

	switch d.PromptMode {
	case "", "stdin":
		spec.InputMode = InputStdin
	case "arg_last":
		spec.InputMode = InputArgLast
	case "arg":
		if d.PromptArg == "" {
			spec.InputMode = InputArgLast
		} else {
			spec.InputMode = InputFlag
			spec.PromptFlag = d.PromptArg
		}
	default:
		return Spec{}, fmt.Errorf("plugin %q: unknown prompt_mode %q", name, d.PromptMode)
	}
	return spec, nil
}

// Resolve returns the Spec for id. Builtin ids are case-insensitive.
func (r *Registry) Resolve(id string) (Spec, error) {
	if spec, ok := r.specs[id]; ok {
		return spec, nil
	}
	if spec, ok := r.specs[strings.ToLower(id)]; ok && IsBuiltin(id) {
		return spec, nil
	}
	return Spec{}, fmt.Errorf("%w: %s", perrors.ErrUnknownBackend, id)
}

// IsKnown reports whether id resolves.
func (r *Registry) IsKnown(id string) bool {
	_, err := r.Resolve(id)
	return err == nil
}

// IDs returns every identifier, builtins first, then plugins in load order.
func (r *Registry) IDs() []string {
	return slices.Clone(r.order)
}

// Plugins returns the plugin specs in load order.
func (r *Registry) Plugins() []Spec {
	var out []Spec
	for _, id := range r.order {
		if _, ok := r.specs[id].Source.(Plugin); ok {
			out = append(out, r.specs[id])
		}
	}
	return out
}
