package cli

import (
	"flag"
	"fmt"
	"io"
	"strings"
)

const (
	ModePipeline = "event-pipeline"
	ModeWebhook  = "webhook-service"
)

// isKnownMode checks if the provided mode name is known.
func isKnownMode(s string) (string, bool) {
	switch s {
	case ModePipeline, "pipeline", "events":
		return ModePipeline, true
	case ModeWebhook, "webhook", "webhooks":
		return ModeWebhook, true
	default:
		return "", false
	}
}

// ParseMode supports:
//
//	--mode=<value>
//	<value> (subcommand shorthand), e.g., `webhook-service --port=3001`
func ParseMode(args []string) (string, []string, error) {
	var mode string
	var out []string

	for i := 0; i < len(args); i++ {
		arg := args[i]
		if strings.HasPrefix(arg, "--mode=") {
			mode = strings.TrimPrefix(arg, "--mode=")
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
		return "", out, nil
	}

	m, ok := isKnownMode(mode)
	if !ok {
		return "", out, fmt.Errorf("unknown mode %q", mode)
	}

	return m, out, nil
}

// PrintUsage prints the usage information with examples.
func PrintUsage(w io.Writer) {
	fmt.Fprint(w, "\033[36m") // switch the color to cyan

	fmt.Fprintln(w, `Usage:
  ./brew-events --mode=<service> [flags]

Services (modes):
  event-pipeline     RabbitMQ consumer: transaction changes -> lifecycle events -> analytics + push
  webhook-service    HTTP API for transaction webhooks and direct messages (OTP, order status)

Examples:
  ./brew-events --mode=event-pipeline --prefetch=10 --metrics-port=9090
  ./brew-events --mode=event-pipeline --skip-age-check
  ./brew-events --mode=webhook-service --port=3000`)

	fmt.Fprint(w, "\033[0m") // switch back to normal
}

// AttachUsage sets a per-mode usage printer on fs.
func AttachUsage(fs *flag.FlagSet, mode string) {
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: ./brew-events --mode=%s [flags]\n", mode)
		fs.PrintDefaults()
	}
}
