package cmd

import (
	"os"

	"github.com/bnema/wlcore/internal/config"
	"github.com/bnema/wlcore/internal/logger"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage wlcore configuration",
	Long:  `Manage wlcore configuration including display and keymap settings.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Get()

		logger.Info("Current Configuration:")
		logger.Infof("Config file: %s\n", config.GetConfigPath())

		logger.Info("[Display]")
		endpoint := cfg.Display.Endpoint
		if endpoint == "" {
			endpoint = "(from WAYLAND_DISPLAY)"
		}
		logger.Infof("  Endpoint: %s", endpoint)
		logger.Infof("  Dispatch Timeout: %d ms", cfg.Display.DispatchTimeout)
		logger.Infof("  Roundtrip Limit: %d", cfg.Display.RoundtripLimit)

		logger.Info("\n[Keyboard]")
		fallback := cfg.Keyboard.FallbackKeymap
		if fallback == "" {
			fallback = "(none)"
		}
		logger.Infof("  Fallback Keymap: %s", fallback)

		logger.Info("\n[Watch]")
		logger.Infof("  History Size: %d", cfg.Watch.HistorySize)
		logger.Infof("  Show Text: %v", cfg.Watch.ShowText)

		logger.Info("\n[Logging]")
		logger.Infof("  File Logging: %v", cfg.Logging.FileLogging)
		level := cfg.Logging.LogLevel
		if level == "" {
			level = "(from LOG_LEVEL env)"
		}
		logger.Infof("  Log Level: %s", level)

		return nil
	},
}

var configSaveCmd = &cobra.Command{
	Use:   "save",
	Short: "Save current configuration to file",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Save(); err != nil {
			return err
		}
		logger.Infof("Configuration saved to: %s", config.GetConfigPath())
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration file with defaults",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath := config.GetConfigPath()
		if _, err := os.Stat(configPath); err == nil {
			logger.Infof("Configuration file already exists at: %s", configPath)
			logger.Info("Use --force to overwrite")

			force, _ := cmd.Flags().GetBool("force")
			if !force {
				return nil
			}
		}

		if err := config.Save(); err != nil {
			return err
		}

		logger.Infof("Configuration initialized at: %s", configPath)
		logger.Info("\nYou can now:")
		logger.Info("  - Edit the configuration file directly")
		logger.Info("  - Use 'wlcore setup' for a guided walkthrough")
		logger.Info("  - Use 'wlcore config show' to view current settings")

		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSaveCmd)
	configCmd.AddCommand(configInitCmd)

	configInitCmd.Flags().Bool("force", false, "Force overwrite existing configuration")
}
