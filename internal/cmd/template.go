package cmd

import (
	"fmt"
	"strings"

	"github.com/Iron-Ham/parley/internal/render"
	"github.com/spf13/cobra"
)

var templateCmd = &cobra.Command{
	Use:   "template",
	Short: "List and inspect debate templates",
	Long: `List and inspect debate templates.

Built-in templates ship with parley. YAML or TOML files in
paths.templates_dir add templates or replace a built-in of the same name.`,
}

var templateListCmd = &cobra.Command{
	Use:   "list",
	Short: "List available templates",
	Args:  cobra.NoArgs,
	RunE:  runTemplateList,
}

var templateShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show a template's participants and framing",
	Args:  cobra.ExactArgs(1),
	RunE:  runTemplateShow,
}

func init() {
	rootCmd.AddCommand(templateCmd)
	templateCmd.AddCommand(templateListCmd)
	templateCmd.AddCommand(templateShowCmd)
}

func runTemplateList(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	catalog, err := a.templates()
	if err != nil {
		return err
	}
	for _, skipped := range catalog.Skipped {
		cmd.PrintErrf("warning: %v\n", skipped)
	}

	w := cmd.OutOrStdout()
	st := render.NewStyles(w)
	for _, t := range catalog.List() {
		origin := "builtin"
		if !t.Builtin {
			origin = t.Path
		}
		fmt.Fprintf(w, "%s %s\n", st.Label.Render(fmt.Sprintf("%-22s", t.Name)), render.Truncate(t.Description, 60))
		fmt.Fprintf(w, "  %s\n", st.Muted.Render(fmt.Sprintf("%d participant(s), %d round(s), %s", len(t.Participants), t.DefaultRounds, origin)))
	}
	return nil
}

func runTemplateShow(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	catalog, err := a.templates()
	if err != nil {
		return err
	}
	t, err := catalog.Get(args[0])
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	st := render.NewStyles(w)
	fmt.Fprintln(w, st.Title.Render("Template: "+t.Name))
	if t.Description != "" {
		fmt.Fprintln(w, st.Subtitle.Render(t.Description))
	}
	fmt.Fprintf(w, "Default rounds: %d\n", t.DefaultRounds)
	if t.Context != nil {
		if t.Context.Prefix != "" {
			fmt.Fprintf(w, "Topic prefix: %s\n", t.Context.Prefix)
		}
		if t.Context.Suffix != "" {
			fmt.Fprintf(w, "Topic suffix: %s\n", t.Context.Suffix)
		}
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, st.Heading.Render("Participants"))
	for _, p := range t.Participants {
		fmt.Fprintf(w, "%s %s\n", st.Label.Render(p.Persona), st.Muted.Render("("+p.CLI+")"))
		fmt.Fprintf(w, "  %s\n", strings.TrimSpace(p.Instructions))
		if len(p.Expertise) > 0 {
			fmt.Fprintf(w, "  %s\n", st.Muted.Render("Expertise: "+strings.Join(p.Expertise, ", ")))
		}
	}
	return nil
}
