// Package app implements the main application commands.
package app

import (
	"github.com/spf13/cobra"

	"github.com/boxwatch/boxwatch/internal/config"
	"github.com/boxwatch/boxwatch/internal/logger"
)

var (
	configPath string // Path to the configuration file directory
	cfg        config.Config
)

var rootCmd = &cobra.Command{
	Use:   "boxwatch",
	Short: "boxwatch tracks shared storage boxes and their sensors",
	Long: `boxwatch tracks shared storage boxes (lockers) through status events and streams
sensor telemetry from each box over a websocket. The server keeps the event log, the
derived box status and the shared settings; the simulate command runs a client that
mirrors that state and streams synthetic readings.`,
	Args: cobra.OnlyValidArgs,
}

func init() { //nolint: gochecknoinits
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "./etc/", "directory containing main.toml")
}

// loadConfig reads the configuration and initializes the global logger.
func loadConfig() error {
	var err error

	if cfg, err = config.ReadConfig(configPath); err != nil {
		return err
	}

	return logger.Init(cfg.Log)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
