package cmd

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/go-pistonlauncher/pkg/engine"
	"github.com/go-pistonlauncher/pkg/marker"
	"github.com/go-pistonlauncher/pkg/progress"
)

func newInstallCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "install",
		Short: "Download the latest release into the game directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if version, err := marker.Read(a.cfg.InstallRoot); err == nil {
				a.logger.Info("Version %s is already installed in %s; reinstalling", version, a.cfg.InstallRoot)
			}

			result, err := a.runWithProgress(cmd.Context(), cmd.ErrOrStderr(), "install",
				func(ctx context.Context, reporter progress.Reporter) (*engine.Result, error) {
					return engine.NewInstallEngine(a.engineOptions(reporter)).Run(ctx)
				})
			if err != nil {
				return err
			}
			return a.report(cmd, result)
		},
	}
}

func newVerifyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Check every installed file and re-download missing or corrupt ones",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !marker.Exists(a.cfg.InstallRoot) {
				return fmt.Errorf("nothing installed in %s; run install first", a.cfg.InstallRoot)
			}

			result, err := a.runWithProgress(cmd.Context(), cmd.ErrOrStderr(), "verify",
				func(ctx context.Context, reporter progress.Reporter) (*engine.Result, error) {
					return engine.NewVerifyEngine(a.engineOptions(reporter)).Run(ctx)
				})
			if err != nil {
				return err
			}
			return a.report(cmd, result)
		},
	}
}

// report prints the per-file failures and turns them into a non-zero exit
func (a *app) report(cmd *cobra.Command, result *engine.Result) error {
	if result == nil || result.Summary == nil {
		return nil
	}

	var buf bytes.Buffer
	for _, failure := range result.Summary.Failures() {
		fmt.Fprintf(&buf, "  %s: %v\n", failure.Path, failure.Err)
	}
	if a.client != nil {
		for _, kept := range a.client.KeptFailedFiles() {
			a.logger.Info("Kept partial download %s", kept)
		}
	}
	if buf.Len() == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "%s of %s finished in %v\n", result.Operation, result.Version, result.Duration.Round(time.Millisecond))
		return nil
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s of %s finished with %d problem(s):\n%s", result.Operation, result.Version, result.Problems(), buf.String())
	return fmt.Errorf("%d file(s) failed; run verify to retry", result.Problems())
}
