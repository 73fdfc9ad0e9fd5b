package session

import (
	"regexp"
	"strings"

	perrors "github.com/Iron-Ham/parley/internal/errors"
)

// MaxNameLength bounds a session name so its file name stays portable.
const MaxNameLength = 128

var namePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ValidateName rejects anything other than letters, digits, hyphens and
// underscores. It runs before any path is built from name.
func ValidateName(name string) error {
	invalid := func(msg string) error {
		return perrors.NewValidationError(msg).WithField("session").WithValue(name)
	}

	switch {
	case strings.TrimSpace(name) == "":
		return invalid("session name must not be empty")
	case strings.Contains(name, ".."), strings.ContainsAny(name, `/\`):
		return invalid("session name must not contain path separators or '..'")
	case len(name) > MaxNameLength:
		return invalid("session name is too long")
	case !namePattern.MatchString(name):
		return invalid("session name may only contain letters, digits, '-' and '_'")
	}
	return nil
}
