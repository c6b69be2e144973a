package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bnema/wlcore/internal/config"
	"github.com/bnema/wlcore/internal/logger"
	"github.com/bnema/wlcore/internal/ui"
	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Interactive configuration walkthrough",
	Long: `Walk through the wlcore configuration interactively: pick the display
socket, log level and watch options, then save the result.`,
	RunE: runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

// listDisplaySockets finds wayland sockets under XDG_RUNTIME_DIR.
func listDisplaySockets() []string {
	runDir := os.Getenv("XDG_RUNTIME_DIR")
	if runDir == "" {
		return nil
	}
	matches, err := filepath.Glob(filepath.Join(runDir, "wayland-*"))
	if err != nil {
		return nil
	}
	var sockets []string
	for _, m := range matches {
		if strings.HasSuffix(m, ".lock") {
			continue
		}
		sockets = append(sockets, filepath.Base(m))
	}
	return sockets
}

func runSetup(cmd *cobra.Command, args []string) error {
	fmt.Println(ui.TitleStyle.Render("wlcore setup"))
	fmt.Println()

	cfg := *config.Get()

	sockets := listDisplaySockets()
	if len(sockets) == 0 {
		fmt.Println(ui.WarningStyle.Render("No wayland sockets found under XDG_RUNTIME_DIR"))
		fmt.Println("   You can still configure an endpoint manually in the config file")
	}

	endpointOptions := []huh.Option[string]{
		huh.NewOption("Follow WAYLAND_DISPLAY (recommended)", ""),
	}
	for _, s := range sockets {
		endpointOptions = append(endpointOptions, huh.NewOption(s, s))
	}

	endpoint := cfg.Display.Endpoint
	logLevel := cfg.Logging.LogLevel
	showText := cfg.Watch.ShowText

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Display Socket").
				Description("Which display server socket to connect to").
				Options(endpointOptions...).
				Value(&endpoint),
			huh.NewSelect[string]().
				Title("Log Level").
				Description("Leave on default to follow the LOG_LEVEL env var").
				Options(
					huh.NewOption("default", ""),
					huh.NewOption("debug", "debug"),
					huh.NewOption("info", "info"),
					huh.NewOption("warn", "warn"),
					huh.NewOption("error", "error"),
				).
				Value(&logLevel),
			huh.NewConfirm().
				Title("Show typed text in watch?").
				Description("Display the decoded UTF-8 next to the keysyms").
				Value(&showText),
		),
	)

	if err := form.Run(); err != nil {
		return fmt.Errorf("setup cancelled: %w", err)
	}

	cfg.Display.Endpoint = endpoint
	cfg.Logging.LogLevel = logLevel
	cfg.Watch.ShowText = showText

	config.Update(&cfg)
	if err := config.Save(); err != nil {
		return err
	}

	fmt.Println(ui.SuccessStyle.Render("✓ Configuration saved"))
	logger.Infof("Configuration saved to: %s", config.GetConfigPath())
	return nil
}
