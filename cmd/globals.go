package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/bnema/wlcore/internal/config"
	"github.com/bnema/wlcore/internal/logger"
	"github.com/bnema/wlcore/internal/wlclient"
	"github.com/spf13/cobra"
)

var globalsDisplay string

var globalsCmd = &cobra.Command{
	Use:   "globals",
	Short: "List the globals the compositor advertises",
	Long: `Connect to the display server, wait for registry discovery to finish
and print every advertised global in announce order.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		endpoint := globalsDisplay
		if endpoint == "" {
			endpoint = config.Get().Display.Endpoint
		}

		conn, err := wlclient.Connect(endpoint)
		if err != nil {
			return err
		}
		defer func() {
			if err := conn.Close(); err != nil {
				logger.Errorf("Failed to close connection: %v", err)
			}
		}()

		globals := conn.Registry().Globals()
		logger.Infof("%d globals advertised", len(globals))

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		if _, err := fmt.Fprintln(w, "NAME\tINTERFACE\tVERSION"); err != nil {
			return err
		}
		for _, g := range globals {
			if _, err := fmt.Fprintf(w, "%d\t%s\t%d\n", g.Name, g.Interface, g.Version); err != nil {
				return err
			}
		}
		return w.Flush()
	},
}

func init() {
	globalsCmd.Flags().StringVar(&globalsDisplay, "display", "", "Display name or socket path (default from config / WAYLAND_DISPLAY)")
}
