package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/0xRadioAc7iv/go-prespec/core"
	"github.com/0xRadioAc7iv/go-prespec/internal/image"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Describe an image and whether this build can use it",
	Long: `Info opens the image directly and reports the container header and the
exported directory. Unlike lookups, which treat every problem as a miss,
info reports why an image would be ignored.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireImage(); err != nil {
			return err
		}

		img, err := image.Open(cfg.Image)
		if err != nil {
			return err
		}
		defer img.Close()

		out := cmd.OutOrStdout()
		h := img.Header()
		fmt.Fprintf(out, "image:     %s\n", img.Path())
		fmt.Fprintf(out, "container: version %d, %d bytes, crc32 %08x\n", h.ContainerVersion, h.Size, h.Checksum)
		fmt.Fprintf(out, "layout:    %s\n", img.Layout())
		fmt.Fprintf(out, "symbol:    %s at %s\n", core.TopLevelSymbolName, img.Symbol())

		major, minor, err := core.ReadVersion(img)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "version:   %d.%d (this build reads %d.%d)\n",
			major, minor, core.CurrentMajorVersion, core.CurrentMinorVersion)

		data, err := core.ReadData(img, core.CurrentMajorVersion, core.CurrentMinorVersion)
		if err != nil {
			return fmt.Errorf("image unusable: %w", err)
		}

		m := data.MetadataMap()
		fmt.Fprintf(out, "metadata:  %d entries in %d slots at %s\n", m.Len(), m.Size(), data.MetadataMapPtr)
		if disabled := data.DisabledProcesses(); len(disabled) > 0 {
			fmt.Fprintf(out, "disabled:  %s\n", strings.Join(disabled, ", "))
		}
		if !cfg.Enable {
			fmt.Fprintf(out, "note:      lookups are disabled by %s\n", core.EnvEnable)
		}

		return nil
	},
}
