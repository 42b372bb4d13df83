package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/0xRadioAc7iv/go-prespec/core"
	"github.com/0xRadioAc7iv/go-prespec/internal/utils"
	"github.com/0xRadioAc7iv/go-prespec/pkg/builder"
)

var (
	buildOutput string
	buildForce  bool
)

var buildCmd = &cobra.Command{
	Use:   "build <manifest.yaml>",
	Short: "Build an image from a manifest",
	Long: `Build reads a YAML manifest of metadata keys and records and writes a
prespecialization image. The output defaults to the manifest path with a
` + core.ImageFileExt + ` extension.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		manifestPath := args[0]

		out := buildOutput
		if out == "" {
			out = utils.ReplaceExt(manifestPath, core.ImageFileExt)
		}
		if utils.PathExists(out) && !buildForce {
			return fmt.Errorf("%s already exists (use --force to overwrite)", out)
		}

		m, err := builder.LoadManifest(manifestPath)
		if err != nil {
			return err
		}
		b, err := m.Builder()
		if err != nil {
			return fmt.Errorf("%s: %w", manifestPath, err)
		}

		if err := b.WriteFile(out); err != nil {
			return err
		}

		log.Info("wrote image",
			zap.String("path", out),
			zap.Int("entries", b.Len()))
		fmt.Fprintln(cmd.OutOrStdout(), out)
		return nil
	},
}

func init() {
	buildCmd.Flags().StringVarP(&buildOutput, "output", "o", "", "output image path")
	buildCmd.Flags().BoolVar(&buildForce, "force", false, "overwrite an existing image")
}
