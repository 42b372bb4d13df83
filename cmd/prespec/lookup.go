package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/0xRadioAc7iv/go-prespec/internal/layout"
	"github.com/0xRadioAc7iv/go-prespec/internal/mangle"
)

var lookupRaw bool

var lookupCmd = &cobra.Command{
	Use:   "lookup <type>...",
	Short: "Look up prebuilt metadata for generic instantiations",
	Long: `Lookup prints the record address for each type expression, or nil when
the caller would have to build the metadata itself. Expressions are parsed
and re-encoded canonically unless --raw is given.`,
	Example: `  prespec lookup 'Foo<Int>' 'Dictionary<String, Array<Int>>'`,
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d := openDirectory()
		defer d.Close()

		out := cmd.OutOrStdout()
		for _, arg := range args {
			p, ok, err := lookup(d, arg)
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintf(out, "%s\tnil\n", arg)
				continue
			}
			fmt.Fprintf(out, "%s\t%s\n", arg, p)
		}
		return nil
	},
}

type lookuper interface {
	Metadata(desc mangle.Descriptor, args []mangle.Type) (layout.Pointer, bool)
	LookupKey(key string) (layout.Pointer, bool)
}

func lookup(d lookuper, expr string) (layout.Pointer, bool, error) {
	if lookupRaw {
		p, ok := d.LookupKey(expr)
		return p, ok, nil
	}

	t, err := mangle.Parse(expr)
	if err != nil {
		return layout.Null, false, fmt.Errorf("%q: %w", expr, err)
	}
	p, ok := d.Metadata(mangle.Descriptor{Name: t.Name, Arity: len(t.Args)}, t.Args)
	return p, ok, nil
}

func init() {
	lookupCmd.Flags().BoolVar(&lookupRaw, "raw", false, "look keys up verbatim")
}
