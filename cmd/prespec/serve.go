package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/0xRadioAc7iv/go-prespec/core"
	"github.com/0xRadioAc7iv/go-prespec/internal"
	"github.com/0xRadioAc7iv/go-prespec/internal/utils"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve metadata lookups over TCP",
	Long: `Serve answers lookup requests from prespec-cli and the prespec client
package until interrupted. When the port is taken the next free one is
used.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		d := openDirectory()
		defer d.Close()

		if _, ok := d.Data(); !ok {
			log.Warn("serving without prespecialization data", zap.String("image", cfg.Image))
		}

		svc := &core.Service{
			Directory:    d,
			ListenerHost: cfg.Host,
			ListenerPort: cfg.Port,
		}
		if err := svc.Start(); err != nil {
			return err
		}
		defer svc.Stop()

		log.Info("press Ctrl+C to exit")
		if sig := utils.WaitForInterruptOrKill(cmd.Context()); sig != nil {
			log.Info("shutting down", zap.Stringer("signal", sig))
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().String("host", internal.DEFAULT_HOST, "listen host")
	serveCmd.Flags().Int("port", core.DefaultListenerPort, "listen port")
}
