package cmd

import (
	"fmt"

	"github.com/Iron-Ham/parley/internal/backend"
	perrors "github.com/Iron-Ham/parley/internal/errors"
	"github.com/Iron-Ham/parley/internal/plugin"
	"github.com/Iron-Ham/parley/internal/render"
	"github.com/spf13/cobra"
)

var pluginCmd = &cobra.Command{
	Use:   "plugin",
	Short: "Inspect backend plugins",
	Long: `Inspect the TOML plugin descriptors that add custom backends.

Plugins are read from paths.plugins_dir (default ~/.config/parley/plugins).`,
}

var pluginListCmd = &cobra.Command{
	Use:   "list",
	Short: "List loaded plugins",
	Args:  cobra.NoArgs,
	RunE:  runPluginList,
}

var pluginValidateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Check a plugin descriptor without installing it",
	Args:  cobra.ExactArgs(1),
	RunE:  runPluginValidate,
}

func init() {
	rootCmd.AddCommand(pluginCmd)
	pluginCmd.AddCommand(pluginListCmd)
	pluginCmd.AddCommand(pluginValidateCmd)
}

func runPluginList(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	w := cmd.OutOrStdout()
	st := render.NewStyles(w)
	plugins := a.registry.Plugins()
	if len(plugins) == 0 {
		fmt.Fprintln(w, st.Muted.Render("No plugins in "+a.cfg.Paths.ResolvePluginsDir()))
		return nil
	}
	for _, spec := range plugins {
		d := spec.Source.(backend.Plugin).Descriptor
		fmt.Fprintf(w, "%s  %s\n", st.Label.Render(fmt.Sprintf("%-16s", d.Name)), d.Description)
		fmt.Fprintf(w, "  %s\n", st.Muted.Render(d.Path))
	}
	return nil
}

func runPluginValidate(cmd *cobra.Command, args []string) error {
	d, err := plugin.LoadFile(args[0])
	if err != nil {
		return perrors.NewValidationError("invalid plugin").WithField("plugin").WithValue(args[0]).WithCause(err)
	}
	spec, err := backend.FromDescriptor(d)
	if err != nil {
		return perrors.NewValidationError(err.Error()).WithField("plugin").WithValue(d.Name)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Plugin %q is valid (command %s, input %s)\n", spec.ID, spec.Command, spec.InputMode)
	return nil
}
