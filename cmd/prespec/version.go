package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/0xRadioAc7iv/go-prespec/core"
	"github.com/0xRadioAc7iv/go-prespec/internal/image"
)

const toolVersion = "v0.1.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the tool and format versions",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "prespec %s\n", toolVersion)
		fmt.Fprintf(out, "directory format %d.%d\n", core.CurrentMajorVersion, core.CurrentMinorVersion)
		fmt.Fprintf(out, "container format %d\n", image.ContainerVersion)
	},
}
