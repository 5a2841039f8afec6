package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/go-pistonlauncher/pkg/manifest"
	"github.com/go-pistonlauncher/pkg/marker"
	"github.com/go-pistonlauncher/pkg/utils"
)

func newManifestCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:         "manifest",
		Short:       "Manifest tooling",
		Annotations: map[string]string{skipSettings: "true"},
	}

	var (
		baseURL    string
		output     string
		withLZMA   bool
		payloadDir string
	)
	generate := &cobra.Command{
		Use:         "generate <dir>",
		Short:       "Write a manifest describing a local directory",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{skipSettings: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := args[0]
			opts := manifest.BuildOptions{
				BaseURL: baseURL,
				Skip:    []string{marker.FileName},
				Logger:  a.logger,
			}
			if withLZMA {
				opts.PayloadDir = payloadDir
				if opts.PayloadDir == "" {
					opts.PayloadDir = filepath.Join(filepath.Dir(output), "lzma")
				}
			}

			root, err := manifest.Build(dir, opts)
			if err != nil {
				return err
			}
			data, err := manifest.MarshalDocument(root)
			if err != nil {
				return err
			}

			if output == "-" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := utils.EnsureDirForFile(output); err != nil {
				return err
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return fmt.Errorf("error writing manifest to %s: %w", output, err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Manifest with %d files saved to %s\n", manifest.Files(root), output)
			if withLZMA {
				fmt.Fprintf(cmd.OutOrStdout(), "LZMA payloads written to %s\n", opts.PayloadDir)
			}
			return nil
		},
	}
	generate.Flags().StringVar(&baseURL, "base-url", "", "Required: URL the directory will be served from")
	generate.Flags().StringVar(&output, "output", "manifest.json", "Output file, or - for stdout")
	generate.Flags().BoolVar(&withLZMA, "lzma", false, "Also write .lzma payloads and add lzma variants")
	generate.Flags().StringVar(&payloadDir, "payload-dir", "", "Where to write .lzma payloads (default: <output dir>/lzma)")
	generate.MarkFlagRequired("base-url")

	cmd.AddCommand(generate)
	return cmd
}
