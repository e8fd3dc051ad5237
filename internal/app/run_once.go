package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"horse.fit/newsalert/internal/cli"
	"horse.fit/newsalert/internal/db"
)

func runOnce(args []string) int {
	fs := flag.NewFlagSet("run-once", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 5*time.Minute, "Command timeout")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if *timeout <= 0 {
		fmt.Fprintln(os.Stderr, "--timeout must be > 0")
		return 2
	}

	cfg, logger, code := loadRuntime(envLoader)
	if code != 0 {
		return code
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		logger.Error().Err(err).Msg("run-once failed to connect to database")
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		return 1
	}
	defer pool.Close()

	deps, err := buildPipeline(cfg, pool, nil, logger)
	if err != nil {
		logger.Error().Err(err).Msg("run-once setup failed")
		fmt.Fprintf(os.Stderr, "Setup failed: %v\n", err)
		return 1
	}
	defer deps.Close()

	result, err := deps.service.RunOnce(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("run-once failed")
		fmt.Fprintf(os.Stderr, "Run failed: %v\n", err)
		return 1
	}

	fmt.Printf(
		"run-once fetched=%d duplicates=%d classified=%d unclassified=%d inserted=%d security=%d notified=%d notify_failed=%d\n",
		result.Fetched,
		result.Duplicates,
		result.Classified,
		result.Unclassified,
		result.Inserted,
		result.SecurityEvents,
		result.Notify.Sent,
		result.Notify.Failed,
	)
	return 0
}
