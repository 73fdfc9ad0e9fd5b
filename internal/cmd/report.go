package cmd

import (
	"fmt"
	"io"

	perrors "github.com/Iron-Ham/parley/internal/errors"
	"github.com/Iron-Ham/parley/internal/render"
)

// Report writes err to w in the form a user sees it and returns the exit
// status for it. A nil error writes nothing.
func Report(w io.Writer, err error) int {
	if err == nil {
		return perrors.ExitOK
	}
	st := render.NewStyles(w)

	severity := perrors.GetSeverity(err)
	label := st.Error.Render("Error:")
	switch {
	case severity >= perrors.SeverityCritical:
		label = st.Error.Render("Fatal:")
	case severity <= perrors.SeverityWarning:
		label = st.Warning.Render("Error:")
	}
	fmt.Fprintln(w, label, err)

	switch {
	case perrors.IsRetryable(err):
		fmt.Fprintln(w, st.Muted.Render("This may be temporary; try again or raise --timeout."))
	case !perrors.IsUserFacing(err):
		fmt.Fprintln(w, st.Muted.Render("Run 'parley --help' for usage, or add --log-level debug for details."))
	}
	return perrors.ExitCode(perrors.KindOf(err))
}
