package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"horse.fit/newsalert/internal/cli"
	"horse.fit/newsalert/internal/db"
	"horse.fit/newsalert/internal/news"
)

func runUserLocation(args []string) int {
	fs := flag.NewFlagSet("user-location", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 10*time.Second, "Command timeout")
	userID := fs.String("user", "", "User id")
	place := fs.String("location", "", "User location")
	pushToken := fs.String("push-token", "", "Push token (keeps the stored token when empty)")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if strings.TrimSpace(*userID) == "" {
		fmt.Fprintln(os.Stderr, "--user is required")
		return 2
	}
	if strings.TrimSpace(*place) == "" {
		fmt.Fprintln(os.Stderr, "--location is required")
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
		logger.Error().Err(err).Msg("user-location failed to connect to database")
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		return 1
	}
	defer pool.Close()

	profile := news.UserLocationProfile{
		UserID:    strings.TrimSpace(*userID),
		Location:  strings.TrimSpace(*place),
		PushToken: strings.TrimSpace(*pushToken),
	}
	if err := pool.UpsertUserProfile(ctx, profile); err != nil {
		logger.Error().Err(err).Str("user_id", profile.UserID).Msg("upsert user profile failed")
		fmt.Fprintf(os.Stderr, "Failed to store user location: %v\n", err)
		return 1
	}

	logger.Info().Str("user_id", profile.UserID).Str("location", profile.Location).Msg("user location stored")
	fmt.Printf("stored user=%s location=%s\n", profile.UserID, profile.Location)
	return 0
}
