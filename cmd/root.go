package cmd

import (
	"os"
	"path/filepath"

	"github.com/bnema/wlcore/internal/config"
	"github.com/bnema/wlcore/internal/logger"
	"github.com/spf13/cobra"
)

var (
	// Version is set during build
	Version = "0.1.0-dev"

	configFlag string

	rootCmd = &cobra.Command{
		Use:   "wlcore",
		Short: "Wlcore - Wayland protocol client toolkit",
		Long: `Wlcore is a pure-Go Wayland client core. It speaks the wire protocol
directly over the display socket: registry discovery, seat and keyboard
binding, and XKB keymap resolution from raw key codes to keysyms and text.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if configFlag != "" {
				config.SetConfigPath(configFlag)
			}
			if err := config.Init(); err != nil {
				return err
			}
			cfg := config.Get()
			if lvl := cfg.Logging.LogLevel; lvl != "" {
				logger.SetLevel(lvl)
			}
			if cfg.Logging.FileLogging {
				if err := enableFileLogging(); err != nil {
					return err
				}
			}
			return nil
		},
	}
)

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.Version = Version
	rootCmd.SetVersionTemplate(`{{with .Name}}{{printf "%s " .}}{{end}}{{printf "version %s\n" .Version}}`)

	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "Path to config file")

	// Add commands
	rootCmd.AddCommand(globalsCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(keymapCmd)
	rootCmd.AddCommand(configCmd)
}

// enableFileLogging redirects log output to the state directory.
func enableFileLogging() error {
	stateDir := os.Getenv("XDG_STATE_HOME")
	if stateDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return err
		}
		stateDir = filepath.Join(home, ".local", "state")
	}
	dir := filepath.Join(stateDir, "wlcore")
	if err := os.MkdirAll(dir, 0750); err != nil {
		return err
	}
	f, err := os.OpenFile(filepath.Join(dir, "wlcore.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0640)
	if err != nil {
		return err
	}
	logger.SetOutput(f)
	return nil
}
