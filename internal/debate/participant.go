package debate

import (
	"fmt"
	"strings"

	"github.com/Iron-Ham/parley/internal/backend"
	perrors "github.com/Iron-Ham/parley/internal/errors"
)

// DefaultInstances is the participant count for a single-backend debate.
const DefaultInstances = 3

// Participant binds a backend to an optional persona. It is never mutated
// once a debate starts.
type Participant struct {
	Backend      string `json:"cli"`
	Persona      string `json:"persona,omitempty"`
	Instructions string `json:"instructions,omitempty"`
	Model        string `json:"model,omitempty"`
	// Label is the unique display name; see AssignLabels.
	Label string `json:"label"`
}

// DisplayName is "cli" or "cli (persona)".
func (p Participant) DisplayName() string {
	if persona := strings.TrimSpace(p.Persona); persona != "" {
		return fmt.Sprintf("%s (%s)", p.Backend, persona)
	}
	return p.Backend
}

// AssignLabels returns a copy of ps with unique labels. Repeated display
// names are numbered "name #1", "name #2" in order.
func AssignLabels(ps []Participant) []Participant {
	counts := make(map[string]int, len(ps))
	for _, p := range ps {
		counts[p.DisplayName()]++
	}

	out := make([]Participant, len(ps))
	seen := make(map[string]int, len(ps))
	for i, p := range ps {
		name := p.DisplayName()
		if counts[name] > 1 {
			seen[name]++
			name = fmt.Sprintf("%s #%d", name, seen[name])
		}
		p.Label = name
		out[i] = p
	}
	return out
}

// DefaultParticipants is one participant per builtin backend.
func DefaultParticipants() []Participant {
	kinds := backend.BuiltinKinds()
	ps := make([]Participant, len(kinds))
	for i, k := range kinds {
		ps[i] = Participant{Backend: string(k)}
	}
	return AssignLabels(ps)
}

// Instances returns n unnamed participants on the same backend.
func Instances(backendID string, n int) ([]Participant, error) {
	if n < 1 {
		return nil, perrors.NewValidationError("instances must be at least 1").
			WithField("instances").WithValue(n)
	}
	ps := make([]Participant, n)
	for i := range ps {
		ps[i] = Participant{Backend: backendID}
	}
	return AssignLabels(ps), nil
}

// ParseList parses "cli:persona[:model],cli[:persona]..." into participants.
func ParseList(s string) ([]Participant, error) {
	var (
		ps   []Participant
		errs perrors.ValidationErrors
	)
	for i, raw := range strings.Split(s, ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		parts := strings.SplitN(raw, ":", 3)
		p := Participant{Backend: strings.TrimSpace(parts[0])}
		if len(parts) > 1 {
			p.Persona = strings.TrimSpace(parts[1])
		}
		if len(parts) > 2 {
			p.Model = strings.TrimSpace(parts[2])
		}
		if p.Backend == "" {
			errs = append(errs, perrors.NewValidationError("backend must not be empty").
				WithField(fmt.Sprintf("participants[%d]", i)).WithValue(raw))
			continue
		}
		ps = append(ps, p)
	}
	if len(errs) > 0 {
		return nil, errs
	}
	if len(ps) == 0 {
		return nil, perrors.NewValidationError("no participants given").WithField("participants")
	}
	return AssignLabels(ps), nil
}
