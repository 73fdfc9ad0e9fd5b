package cmd

import (
	"fmt"
	"time"

	perrors "github.com/Iron-Ham/parley/internal/errors"
	"github.com/Iron-Ham/parley/internal/render"
	"github.com/spf13/cobra"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage invoke sessions",
	Long: `Manage the named sessions created by "parley invoke --session".

Each session stores the conversation with one backend so that later calls
can replay it.`,
}

var sessionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List sessions, most recently used first",
	Args:  cobra.NoArgs,
	RunE:  runSessionList,
}

var sessionShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show a session's conversation",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionShow,
}

var sessionEndCmd = &cobra.Command{
	Use:   "end [name]",
	Short: "Delete a session, or every session with --all",
	RunE:  runSessionEnd,
}

var sessionEndAll bool

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionListCmd)
	sessionCmd.AddCommand(sessionShowCmd)
	sessionCmd.AddCommand(sessionEndCmd)

	sessionEndCmd.Flags().BoolVar(&sessionEndAll, "all", false, "delete every session")
}

func runSessionList(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	store, err := a.store()
	if err != nil {
		return err
	}
	list, err := store.List()
	if err != nil {
		return err
	}
	return render.Sessions(cmd.OutOrStdout(), list, time.Now())
}

func runSessionShow(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	store, err := a.store()
	if err != nil {
		return err
	}
	sess, err := store.Load(args[0])
	if err != nil {
		return err
	}
	return render.Session(cmd.OutOrStdout(), sess)
}

func runSessionEnd(cmd *cobra.Command, args []string) error {
	switch {
	case sessionEndAll && len(args) > 0:
		return perrors.NewValidationError("give a session name or --all, not both")
	case !sessionEndAll && len(args) != 1:
		return perrors.NewValidationError("a session name is required").WithField("session")
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	store, err := a.store()
	if err != nil {
		return err
	}

	if sessionEndAll {
		n, err := store.DeleteAll(cmd.Context())
		fmt.Fprintf(cmd.OutOrStdout(), "Ended %d session(s)\n", n)
		return err
	}
	if err := store.Delete(cmd.Context(), args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Ended session %s\n", args[0])
	return nil
}
