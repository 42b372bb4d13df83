// Package main provides the prespec CLI, which builds prespecialization
// images from manifests, inspects them and serves lookups over TCP.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
