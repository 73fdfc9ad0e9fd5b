package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/Iron-Ham/parley/internal/backend"
	"github.com/Iron-Ham/parley/internal/render"
	"github.com/sourcegraph/conc/iter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show backend availability, defaults and sessions",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	w := cmd.OutOrStdout()
	st := render.NewStyles(w)

	specs := make([]backend.Spec, 0, len(a.registry.IDs()))
	for _, id := range a.registry.IDs() {
		spec, err := a.registry.Resolve(id)
		if err != nil {
			return err
		}
		specs = append(specs, spec)
	}
	available := iter.Map(specs, func(s *backend.Spec) bool {
		return s.Available(cmd.Context())
	})

	fmt.Fprintln(w, st.Title.Render("Backends"))
	for i, spec := range specs {
		mark := st.Success.Render("available")
		if !available[i] {
			mark = st.Error.Render("not found")
		}
		kind := "builtin"
		if p, ok := spec.Source.(backend.Plugin); ok {
			kind = "plugin " + p.Descriptor.Path
		}
		fmt.Fprintf(w, "  %-10s %s  %s\n", spec.ID, mark, st.Muted.Render(kind+": "+strings.Join(append([]string{spec.Command}, spec.Args...), " ")))
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, st.Title.Render("Defaults"))
	fmt.Fprintf(w, "  rounds       %d\n", a.cfg.Defaults.Rounds)
	fmt.Fprintf(w, "  timeout      %s\n", a.cfg.Defaults.Timeout)
	fmt.Fprintf(w, "  synthesizer  %s\n", a.cfg.Defaults.Synthesizer)
	if used := viper.ConfigFileUsed(); used != "" {
		fmt.Fprintf(w, "  config       %s\n", used)
	} else {
		fmt.Fprintf(w, "  config       %s\n", st.Muted.Render("(none - using defaults)"))
	}

	store, err := a.store()
	if err != nil {
		return err
	}
	list, err := store.List()
	if err != nil {
		return err
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, st.Title.Render(fmt.Sprintf("Sessions (%d)", len(list))))
	return render.Sessions(w, list, time.Now())
}
