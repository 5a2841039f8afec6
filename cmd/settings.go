package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/go-pistonlauncher/pkg/config"
)

func newSettingsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or save the persisted settings",
	}

	var format string
	show := &cobra.Command{
		Use:   "show",
		Short: "Print the effective settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := config.EncodeSettings(a.cfg.Settings(), config.Format(format))
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	show.Flags().StringVar(&format, "format", string(config.FormatJSON), "Output format: json, yaml or plist")

	save := &cobra.Command{
		Use:   "save",
		Short: "Write the effective settings (including --root, --raw and --lzma-mem-cap) to the settings file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.SaveSettings(a.cfg.SettingsPath, a.cfg.Settings()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved settings to %s\n", a.cfg.SettingsPath)
			return nil
		},
	}

	cmd.AddCommand(show, save)
	return cmd
}
