package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"horse.fit/newsalert/internal/broadcast"
	"horse.fit/newsalert/internal/cli"
	"horse.fit/newsalert/internal/db"
	"horse.fit/newsalert/internal/httpapi"
	"horse.fit/newsalert/internal/logging"
	"horse.fit/newsalert/internal/metrics"
)

func runServe(args []string) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	host := fs.String("host", "0.0.0.0", "Host interface to bind")
	port := fs.Int("port", 8090, "HTTP port")
	readTimeout := fs.Duration("read-timeout", 10*time.Second, "HTTP read timeout")
	writeTimeout := fs.Duration("write-timeout", 30*time.Second, "HTTP write timeout")
	shutdownTimeout := fs.Duration("shutdown-timeout", 10*time.Second, "Graceful shutdown timeout")
	noPipeline := fs.Bool("no-pipeline", false, "Serve the API without running the periodic pipeline")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if *port <= 0 || *port > 65535 {
		fmt.Fprintln(os.Stderr, "--port must be between 1 and 65535")
		return 2
	}

	cfg, logger, code := loadRuntime(envLoader)
	if code != 0 {
		return code
	}

	dbCtx, dbCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer dbCancel()

	pool, err := db.NewPool(dbCtx, cfg)
	if err != nil {
		logger.Error().Err(err).Msg("serve failed to connect to database")
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		return 1
	}
	defer pool.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		<-sigCh
		cancel()
	}()

	m := metrics.New()
	hub := broadcast.NewHub(logging.Component(logger, "stream"), cfg.CORSAllowedOriginsList())
	defer hub.Close()

	deps, err := buildPipeline(cfg, pool, m, logger, hub)
	if err != nil {
		logger.Error().Err(err).Msg("serve setup failed")
		fmt.Fprintf(os.Stderr, "Setup failed: %v\n", err)
		return 1
	}
	defer deps.Close()

	var wg sync.WaitGroup
	if !*noPipeline {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := deps.service.Run(ctx, cfg.FetchInterval); err != nil {
				logger.Error().Err(err).Msg("pipeline loop stopped")
			}
		}()
	}

	srv := httpapi.NewServer(pool, deps.matcher, hub, m.Handler(), logging.Component(logger, "http"), httpapi.Options{
		Host:            *host,
		Port:            *port,
		ReadTimeout:     *readTimeout,
		WriteTimeout:    *writeTimeout,
		ShutdownTimeout: *shutdownTimeout,
		AllowedOrigins:  cfg.CORSAllowedOriginsList(),
	})

	serveErr := srv.Start(ctx)
	cancel()
	wg.Wait()

	if serveErr != nil {
		logger.Error().Err(serveErr).Str("host", *host).Int("port", *port).Msg("server failed")
		fmt.Fprintf(os.Stderr, "Server failed: %v\n", serveErr)
		return 1
	}
	return 0
}
