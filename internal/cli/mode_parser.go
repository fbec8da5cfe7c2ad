package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
)

const (
	ModeRace      = "race-service"
	ModeSimulator = "simulator"
)

type mode struct {
	name    string
	aliases []string
	summary string
	example string
}

var modes = []mode{
	{
		name:    ModeRace,
		aliases: []string{"race", "server", "r"},
		summary: "WebSocket telemetry gateway, live leaderboards and lap timing",
		example: "--mode=race-service --max-concurrent=200",
	},
	{
		name:    ModeSimulator,
		aliases: []string{"sim", "s"},
		summary: "Simulated cars driving against a running race-service",
		example: "--mode=simulator --url=ws://localhost:3000/ws --cars=4 --start-line",
	},
}

// resolveMode maps a mode name or alias to its canonical name.
func resolveMode(s string) (string, bool) {
	for _, m := range modes {
		if s == m.name {
			return m.name, true
		}
		for _, a := range m.aliases {
			if s == a {
				return m.name, true
			}
		}
	}
	return "", false
}

// ParseMode extracts the mode from args and returns the remaining flags.
// Accepted forms: --mode=<value>, --mode <value>, and a bare <value> as the
// first recognised word.
func ParseMode(args []string) (string, []string, error) {
	var (
		name string
		rest []string
	)
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if v, ok := strings.CutPrefix(arg, "--mode="); ok {
			name = v
			continue
		}
		if arg == "--mode" && i+1 < len(args) {
			name = args[i+1]
			i++
			continue
		}
		if name == "" {
			if m, ok := resolveMode(arg); ok {
				name = m
				continue
			}
		}
		rest = append(rest, arg)
	}

	if name == "" {
		return "", rest, errors.New("no mode specified: use --mode=<service>")
	}
	m, ok := resolveMode(name)
	if !ok {
		return "", rest, fmt.Errorf("unknown mode %q", name)
	}
	return m, rest, nil
}

// PrintUsage lists every mode with an example invocation.
func PrintUsage(w io.Writer) {
	var b strings.Builder
	b.WriteString("\033[36m") // cyan
	b.WriteString("Usage:\n  ./racegap --mode=<service> [flags]\n\nServices (modes):\n")
	for _, m := range modes {
		fmt.Fprintf(&b, "  %-16s %s (aliases: %s)\n", m.name, m.summary, strings.Join(m.aliases, ", "))
	}
	b.WriteString("\nExamples:\n")
	for _, m := range modes {
		fmt.Fprintf(&b, "  ./racegap %s\n", m.example)
	}
	b.WriteString("\033[0m") // reset
	_, _ = io.WriteString(w, b.String())
}

// AttachUsage wires a concise per-mode usage to a FlagSet.
func AttachUsage(fs *flag.FlagSet, mode string) {
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: ./racegap --mode=%s [flags]\n", mode)
		fs.PrintDefaults()
	}
}
