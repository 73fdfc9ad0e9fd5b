package cmd

import (
	"strconv"
	"strings"
	"time"

	perrors "github.com/Iron-Ham/parley/internal/errors"
)

// parseTimeout accepts a Go duration ("90s", "2m") or a bare number of seconds.
func parseTimeout(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	d, err := time.ParseDuration(s)
	if err != nil {
		secs, convErr := strconv.Atoi(s)
		if convErr != nil {
			return 0, perrors.NewValidationError("timeout must be a duration such as 90s").
				WithField("timeout").WithValue(s)
		}
		d = time.Duration(secs) * time.Second
	}
	if d <= 0 {
		return 0, perrors.NewValidationError("timeout must be positive").WithField("timeout").WithValue(s)
	}
	return d, nil
}
