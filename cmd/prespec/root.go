package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/0xRadioAc7iv/go-prespec/core"
	"github.com/0xRadioAc7iv/go-prespec/internal"
	"github.com/0xRadioAc7iv/go-prespec/internal/logging"
)

var (
	// configFile is set by the --config flag.
	configFile string

	// cfg is resolved from defaults, the config file, PRESPEC_* variables
	// and flags before any subcommand runs.
	cfg *internal.Config

	log = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "prespec",
	Short: "Build and inspect prespecialization images",
	Long: `prespec builds prespecialization images from YAML manifests, inspects
the directory they export and serves metadata lookups over TCP.`,
	SilenceUsage:      true,
	PersistentPreRunE: initConfig,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = log.Sync()
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "config file (YAML)")
	flags.String("image", "", "prespecialization image (default $"+core.EnvImagePath+")")
	flags.Bool("enable", true, "consult the image at all (default $"+core.EnvEnable+")")
	flags.String("log-level", internal.DEFAULT_LOG_LEVEL, "log level: debug, info, warn, error")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(lookupCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(serveCmd)
}

// initConfig loads configuration and installs the logger.
func initConfig(cmd *cobra.Command, args []string) error {
	c, err := internal.LoadConfig(configFile, cmd.Flags())
	if err != nil {
		return err
	}
	cfg = c

	l, err := logging.New(cfg.LogLevel)
	if err != nil {
		return err
	}
	log = l
	logging.Install(l)

	return nil
}

// openDirectory returns a directory over the configured image.
func openDirectory() *core.Directory {
	return core.NewDirectory(
		core.WithLocator(core.FileLocator{Path: cfg.Image}),
		core.WithEnabled(cfg.Enable),
	)
}

func requireImage() error {
	if cfg.Image == "" {
		return fmt.Errorf("no image: pass --image or set %s", core.EnvImagePath)
	}
	return nil
}
