package main

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/0xRadioAc7iv/go-prespec/internal/layout"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the keys in the metadata map",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireImage(); err != nil {
			return err
		}

		d := openDirectory()
		defer d.Close()

		data, ok := d.Data()
		if !ok {
			return fmt.Errorf("%s: no usable prespecialization data (see prespec info)", cfg.Image)
		}

		type row struct {
			key string
			p   layout.Pointer
		}
		var rows []row
		data.MetadataMap().Range(func(key string, p layout.Pointer) bool {
			rows = append(rows, row{key, p})
			return true
		})
		slices.SortFunc(rows, func(a, b row) int {
			return strings.Compare(a.key, b.key)
		})

		out := cmd.OutOrStdout()
		for _, r := range rows {
			fmt.Fprintf(out, "%s\t%s\n", r.p, r.key)
		}
		return nil
	},
}
