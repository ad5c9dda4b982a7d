package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
)

const (
	ModeBooking      = "booking-service"
	ModeNotification = "notification-service"
	ModeDashboard    = "dashboard-service"
)

// DefaultConfigPath is where every service looks for its YAML config.
const DefaultConfigPath = "config/config.yaml"

// isKnownMode checks if the provided mode name is known.
func isKnownMode(s string) (string, bool) {
	switch s {
	case ModeBooking, "booking", "b":
		return ModeBooking, true
	case ModeNotification, "notification", "notify", "n":
		return ModeNotification, true
	case ModeDashboard, "dashboard", "supervisor", "d":
		return ModeDashboard, true
	default:
		return "", false
	}
}

// ParseMode supports:
//
//	--mode=<value>
//	<value> (subcommand shorthand), e.g., `booking-service --max-concurrent=150`
func ParseMode(args []string) (string, []string, error) {
	var mode string
	var out []string

	for i := range args {
		arg := args[i]
		if after, ok := strings.CutPrefix(arg, "--mode="); ok {
			mode = after
			continue
		}

		if mode == "" {
			if m, ok := isKnownMode(arg); ok {
				mode = m
				continue
			}
		}
		out = append(out, arg)
	}

	if mode == "" {
		return "", out, errors.New("no mode specified: use --mode=<service>")
	}

	m, ok := isKnownMode(mode)
	if !ok {
		return "", out, fmt.Errorf("unknown mode %q", mode)
	}

	return m, out, nil
}

// PrintUsage prints the usage information with examples.
func PrintUsage(w io.Writer) {
	fmt.Fprint(w, "\033[36m") // cyan

	fmt.Fprintln(w, `Usage:
  ./valet --mode=<service> [flags]

Services (modes):
  booking-service              HTTP API, lifecycle engine and WebSocket channels
  notification-service         Delivers queued SMS / email notifications
  dashboard-service            Supervisor stats, listing and live feed

Examples:
  ./valet --mode=booking-service --max-concurrent=150
  ./valet --mode=notification-service --prefetch=8
  ./valet --mode=dashboard-service --config=config/config.yaml`)

	fmt.Fprint(w, "\033[0m") // reset
}

// AttachUsage wires a concise per-mode usage to a FlagSet.
func AttachUsage(fs *flag.FlagSet, mode string) {
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: ./valet --mode=%s [flags]\n", mode)
		fs.PrintDefaults()
	}
}
