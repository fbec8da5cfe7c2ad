package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	raceservice "racegap/cmd/race_service"
	"racegap/cmd/simulator"
	"racegap/internal/cli"
)

// exit codes
const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 1 && (args[0] == "--help" || args[0] == "-h") {
		cli.PrintUsage(os.Stdout)
		return exitOK
	}

	mode, modeArgs, err := cli.ParseMode(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		cli.PrintUsage(os.Stderr)
		return exitUsage
	}

	// cancelled on SIGINT/SIGTERM for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	switch mode {
	case cli.ModeRace:
		return runRaceService(ctx, modeArgs)
	case cli.ModeSimulator:
		return runSimulator(ctx, modeArgs)
	default:
		fmt.Fprintf(os.Stderr, "Error: mode %q has no runner\n", mode)
		return exitUsage
	}
}

func runRaceService(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet(cli.ModeRace, flag.ContinueOnError)
	maxConc := fs.Int("max-concurrent", 200, "Maximum number of concurrent HTTP requests to process")
	dotenv := fs.String("env-file", ".env", "Optional .env file loaded before reading the environment")
	cli.AttachUsage(fs, cli.ModeRace)

	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if *maxConc < 1 {
		return usageError(fs, "--max-concurrent must be >= 1")
	}
	return exitCode(raceservice.Run(ctx, *dotenv, *maxConc))
}

func runSimulator(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet(cli.ModeSimulator, flag.ContinueOnError)
	opts := simulator.DefaultOptions()
	fs.StringVar(&opts.URL, "url", opts.URL, "race-service WebSocket URL")
	fs.StringVar(&opts.RaceID, "race", opts.RaceID, "Race to join")
	fs.IntVar(&opts.Cars, "cars", opts.Cars, "Number of simulated cars")
	fs.DurationVar(&opts.Interval, "interval", opts.Interval, "Time between position updates")
	fs.IntVar(&opts.Steps, "steps", opts.Steps, "Updates per car before exiting (0 runs until interrupted)")
	fs.BoolVar(&opts.SetStartLine, "start-line", opts.SetStartLine, "Set the start line at the first car's position")
	cli.AttachUsage(fs, cli.ModeSimulator)

	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if opts.Cars < 1 || opts.Interval <= 0 || opts.Steps < 0 {
		return usageError(fs, "--cars must be >= 1, --interval > 0 and --steps >= 0")
	}
	opts.Out = os.Stdout
	return exitCode(simulator.Run(ctx, opts))
}

// parseFlags reports ok=false with the exit code to use when parsing stops.
func parseFlags(fs *flag.FlagSet, args []string) (int, bool) {
	err := fs.Parse(args)
	switch {
	case err == nil:
		return exitOK, true
	case errors.Is(err, flag.ErrHelp):
		return exitOK, false
	default:
		// flag already printed the error and usage
		return exitUsage, false
	}
}

func usageError(fs *flag.FlagSet, msg string) int {
	fmt.Fprintln(os.Stderr, "Error:", msg)
	fs.Usage()
	return exitUsage
}

func exitCode(err error) int {
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return exitError
	}
	return exitOK
}
