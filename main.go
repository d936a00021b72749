package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"git.platform.alem.school/amibragim/brew-events/cmd/eventpipeline"
	"git.platform.alem.school/amibragim/brew-events/cmd/webhookservice"
	"git.platform.alem.school/amibragim/brew-events/internal/cli"
)

func main() {
	// check for help flag first
	if len(os.Args) == 2 && (os.Args[1] == "--help" || os.Args[1] == "-h") {
		cli.PrintUsage(os.Stdout)
		os.Exit(0)
	}

	// parse all command-line arguments
	mode, svcArgs, err := cli.ParseMode(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		cli.PrintUsage(os.Stderr)
		os.Exit(2)
	}

	// ensure that mode is not empty
	if mode == "" {
		cli.PrintUsage(os.Stderr)
		os.Exit(2)
	}

	// create context cancelled on SIGINT/SIGTERM signals ensuring graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// run the service specified by the mode flag
	switch mode {
	case cli.ModePipeline:
		fs := flag.NewFlagSet(cli.ModePipeline, flag.ContinueOnError)
		prefetch := fs.Int("prefetch", 10, "RabbitMQ prefetch count")
		skipAge := fs.Bool("skip-age-check", false, "Notify regardless of order age (catch-up replays)")
		metricsPort := fs.Int("metrics-port", 9090, "HTTP port for /metrics (0 disables)")
		cli.AttachUsage(fs, cli.ModePipeline)

		if err := fs.Parse(svcArgs); err != nil {
			if err == flag.ErrHelp {
				os.Exit(0)
			}
			fmt.Fprintln(os.Stderr, "Error:", err)
			os.Exit(2)
		}

		if *prefetch <= 0 {
			fmt.Fprintln(os.Stderr, "Error: --prefetch must be > 0")
			fs.Usage()
			os.Exit(2)
		}
		if *metricsPort < 0 || *metricsPort > 65535 {
			fmt.Fprintln(os.Stderr, "Error: --metrics-port must be between 0 and 65535")
			fs.Usage()
			os.Exit(2)
		}

		if err := eventpipeline.Run(ctx, *prefetch, *skipAge, *metricsPort); err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			os.Exit(1)
		}

	case cli.ModeWebhook:
		fs := flag.NewFlagSet(cli.ModeWebhook, flag.ContinueOnError)
		port := fs.Int("port", 0, "HTTP port for the API (defaults to http.port from config)")
		cli.AttachUsage(fs, cli.ModeWebhook)

		if err := fs.Parse(svcArgs); err != nil {
			if err == flag.ErrHelp {
				os.Exit(0)
			}
			fmt.Fprintln(os.Stderr, "Error:", err)
			os.Exit(2)
		}

		if *port < 0 || *port > 65535 {
			fmt.Fprintln(os.Stderr, "Error: --port must be between 1 and 65535")
			fs.Usage()
			os.Exit(2)
		}

		if err := webhookservice.Run(ctx, *port); err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			os.Exit(1)
		}

	default:
		fmt.Fprintf(os.Stderr, "Error: unknown mode %q\n", mode)
		cli.PrintUsage(os.Stderr)
		os.Exit(2)
	}

	select {
	case <-ctx.Done():
	case <-time.After(10 * time.Millisecond):
	}
}
