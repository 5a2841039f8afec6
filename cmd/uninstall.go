package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/go-pistonlauncher/pkg/engine"
	"github.com/go-pistonlauncher/pkg/progress"
)

func newUninstallCmd(a *app) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "uninstall",
		Short: "Delete the game directory and everything in it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			root := a.cfg.InstallRoot
			if !yes && !confirm(cmd.InOrStdin(), cmd.OutOrStdout(), fmt.Sprintf("Delete %s and all its contents?", root)) {
				fmt.Fprintln(cmd.OutOrStdout(), "Aborted")
				return nil
			}

			result, err := a.runWithProgress(cmd.Context(), cmd.ErrOrStderr(), "uninstall",
				func(ctx context.Context, reporter progress.Reporter) (*engine.Result, error) {
					opts := a.engineOptions(reporter)
					return engine.NewUninstallEngine(opts).Run(ctx)
				})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d entries from %s\n", result.Removed, root)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}
