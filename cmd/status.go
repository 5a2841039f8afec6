package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/go-pistonlauncher/pkg/marker"
)

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the installed version and the last operation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			root := a.cfg.InstallRoot

			fmt.Fprintf(out, "Game directory: %s\n", root)
			version, err := marker.Read(root)
			switch {
			case errors.Is(err, marker.ErrNotInstalled):
				fmt.Fprintln(out, "Not installed")
			case err != nil:
				return err
			default:
				fmt.Fprintf(out, "Installed version: %s\n", version)
				if files, size, err := diskUsage(root); err == nil {
					fmt.Fprintf(out, "Size on disk: %s in %d files\n", humanize.IBytes(uint64(size)), files)
				}
			}

			entry, err := a.journal().Last()
			if err != nil {
				a.logger.Warn("Could not read last run: %v", err)
				return nil
			}
			if entry == nil {
				return nil
			}
			outcome := "ok"
			switch {
			case entry.Error != "":
				outcome = "failed: " + entry.Error
			case entry.Problems > 0:
				outcome = fmt.Sprintf("%d problem(s)", entry.Problems)
			}
			fmt.Fprintf(out, "Last run: %s %s (%d/%d entries, %s)\n",
				entry.Operation, humanize.Time(entry.Finished), entry.Completed, entry.Total, outcome)
			for _, path := range entry.Failed {
				fmt.Fprintf(out, "  failed: %s\n", path)
			}
			return nil
		},
	}
}

func diskUsage(root string) (files int, size int64, err error) {
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			info, err := d.Info()
			if err != nil {
				return err
			}
			files++
			size += info.Size()
		}
		return nil
	})
	return files, size, err
}
