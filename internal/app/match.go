package app

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"horse.fit/newsalert/internal/cli"
	"horse.fit/newsalert/internal/location"
)

type matchOutput struct {
	AlertLocation string `json:"alert_location"`
	UserLocation  string `json:"user_location"`
	Relevant      bool   `json:"relevant"`
	Rule          string `json:"rule"`
}

// runMatch checks relevance offline. It needs no database.
func runMatch(args []string) int {
	fs := flag.NewFlagSet("match", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	alert := fs.String("alert", "", "Alert location")
	user := fs.String("user", "", "User location")
	format := fs.String("format", "text", "Output format: text or json")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if strings.TrimSpace(*alert) == "" || strings.TrimSpace(*user) == "" {
		fmt.Fprintln(os.Stderr, "--alert and --user are required")
		return 2
	}
	outFormat := strings.ToLower(strings.TrimSpace(*format))
	if outFormat != "text" && outFormat != "json" {
		fmt.Fprintln(os.Stderr, "--format must be text or json")
		return 2
	}

	cfg, _, code := loadRuntime(envLoader)
	if code != 0 {
		return code
	}
	_, matcher, err := buildMatcher(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load location tables: %v\n", err)
		return 1
	}

	if err := writeMatch(os.Stdout, matcher, *alert, *user, outFormat); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write output: %v\n", err)
		return 1
	}
	return 0
}

func writeMatch(w io.Writer, matcher *location.Matcher, alert, user, format string) error {
	rule := matcher.Explain(alert, user)
	out := matchOutput{
		AlertLocation: alert,
		UserLocation:  user,
		Relevant:      rule.Relevant(),
		Rule:          string(rule),
	}
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		return enc.Encode(out)
	}
	_, err := fmt.Fprintf(w, "relevant=%t rule=%s\n", out.Relevant, out.Rule)
	return err
}
