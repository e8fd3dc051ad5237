package app

import (
	"fmt"
	"os"
	"strings"
)

// Run executes the CLI command and returns a process exit code.
func Run(args []string) int {
	if len(args) == 0 {
		printUsage()
		return 2
	}

	switch strings.ToLower(strings.TrimSpace(args[0])) {
	case "help", "--help", "-h":
		printUsage()
		return 0
	case "health":
		return runHealth(args[1:])
	case "process", "run-once":
		return runOnce(args[1:])
	case "serve":
		return runServe(args[1:])
	case "match":
		return runMatch(args[1:])
	case "user-location":
		return runUserLocation(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", args[0])
		printUsage()
		return 2
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "newsalert CLI")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  newsalert <command> [flags]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  health         Verify database connectivity")
	fmt.Fprintln(os.Stderr, "  run-once       Fetch, dedup, classify, store and notify once")
	fmt.Fprintln(os.Stderr, "  process        Alias for run-once")
	fmt.Fprintln(os.Stderr, "  serve          Start the API server and the periodic pipeline")
	fmt.Fprintln(os.Stderr, "  match          Check whether an alert location concerns a user location")
	fmt.Fprintln(os.Stderr, "  user-location  Store a user's location and push token")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Use \"newsalert <command> -h\" for command-specific flags.")
}
