package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/bnema/wlcore/internal/config"
	"github.com/bnema/wlcore/internal/logger"
	"github.com/bnema/wlcore/internal/wlclient"
	"github.com/bnema/wlcore/internal/xkb"
	"github.com/holoplot/go-evdev"
	"github.com/spf13/cobra"
)

var (
	keymapFile    string
	keymapDisplay string
	keymapGroup   int
	keymapShift   bool
)

var keymapCmd = &cobra.Command{
	Use:   "keymap [key...]",
	Short: "Inspect a compiled keymap",
	Long: `Load a keymap and print what it contains. Without --file the keymap is
fetched from the compositor's seat, the same way a focused client
receives it.

Key arguments are resolved to keysyms. A key is either a raw evdev
code (30) or a key name from the keymap's keycodes section (<AC01>).`,
	RunE: runKeymap,
}

func init() {
	keymapCmd.Flags().StringVar(&keymapFile, "file", "", "Read the keymap from an XKB text file instead of the compositor")
	keymapCmd.Flags().StringVar(&keymapDisplay, "display", "", "Display name or socket path (default from config / WAYLAND_DISPLAY)")
	keymapCmd.Flags().IntVar(&keymapGroup, "group", 0, "Symbol group to resolve against")
	keymapCmd.Flags().BoolVar(&keymapShift, "shift", false, "Resolve with Shift held")
}

func runKeymap(cmd *cobra.Command, args []string) error {
	resolver := xkb.NewResolver()

	if keymapFile != "" {
		data, err := os.ReadFile(keymapFile)
		if err != nil {
			return err
		}
		if err := resolver.LoadKeymap(xkb.FormatXKBv1, data); err != nil {
			return err
		}
	} else {
		if err := fetchSeatKeymap(resolver); err != nil {
			return err
		}
	}

	km := resolver.Keymap()
	if km == nil {
		return fmt.Errorf("no keymap available")
	}

	logger.Infof("keycodes: %d-%d", km.MinKeycode, km.MaxKeycode)
	logger.Infof("keys with symbols: %d", km.NumKeys())
	logger.Infof("groups: %d", km.NumGroups())

	var mods uint8
	if keymapShift {
		mods |= xkb.ModShift
	}

	for _, arg := range args {
		keycode, label, err := resolveKeyArg(km, arg)
		if err != nil {
			return err
		}
		syms := km.Syms(keycode, mods, keymapGroup)
		names := make([]string, len(syms))
		for i, s := range syms {
			names[i] = s.Name()
		}
		result := strings.Join(names, " ")
		if result == "" {
			result = "(nothing)"
		}
		logger.Infof("%s -> %s", label, result)
	}
	return nil
}

// resolveKeyArg turns a CLI key argument into a keymap keycode. Bare
// numbers are evdev codes; <NAME> forms look up the keycodes section.
func resolveKeyArg(km *xkb.Keymap, arg string) (uint32, string, error) {
	if strings.HasPrefix(arg, "<") && strings.HasSuffix(arg, ">") {
		name := strings.Trim(arg, "<>")
		code, ok := km.KeycodeByName(name)
		if !ok {
			return 0, "", fmt.Errorf("unknown key name %s", arg)
		}
		return code, arg, nil
	}
	n, err := strconv.ParseUint(arg, 10, 32)
	if err != nil {
		return 0, "", fmt.Errorf("key %q is neither an evdev code nor a <name>", arg)
	}
	label := evdev.CodeName(evdev.EV_KEY, evdev.EvCode(n))
	if label == "" || strings.HasPrefix(label, "UNKNOWN") {
		label = arg
	}
	return uint32(n) + xkb.EvdevOffset, label, nil
}

// fetchSeatKeymap pulls the keymap the compositor would hand a focused
// client: bind the seat, create the keyboard and wait for the keymap
// event.
func fetchSeatKeymap(resolver *xkb.Resolver) error {
	endpoint := keymapDisplay
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

	seat, err := conn.BindSeat()
	if err != nil {
		return err
	}

	var caps uint32
	seat.Capabilities = func(c uint32) { caps = c }
	if err := conn.Roundtrip(); err != nil {
		return err
	}
	if caps&wlclient.SeatCapabilityKeyboard == 0 {
		return fmt.Errorf("seat has no keyboard")
	}

	kb, err := seat.GetKeyboard()
	if err != nil {
		return err
	}
	var loadErr error
	kb.Keymap = func(format uint32, fd int, size uint32) {
		loadErr = resolver.LoadKeymapFD(format, fd, size)
	}
	// The keymap event is sent immediately after wl_seat.get_keyboard,
	// so one roundtrip is enough to observe it.
	if err := conn.Roundtrip(); err != nil {
		return err
	}
	if loadErr != nil {
		return loadErr
	}
	if resolver.Keymap() == nil {
		return fmt.Errorf("compositor sent no xkb_v1 keymap")
	}
	return nil
}
