package app

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"horse.fit/newsalert/internal/broadcast"
	"horse.fit/newsalert/internal/classify"
	"horse.fit/newsalert/internal/cli"
	"horse.fit/newsalert/internal/config"
	"horse.fit/newsalert/internal/db"
	"horse.fit/newsalert/internal/dedup"
	"horse.fit/newsalert/internal/feed"
	"horse.fit/newsalert/internal/location"
	"horse.fit/newsalert/internal/logging"
	"horse.fit/newsalert/internal/metrics"
	"horse.fit/newsalert/internal/notify"
	"horse.fit/newsalert/internal/pipeline"
)

// loadRuntime loads .env, config and logger. A non-zero code means the
// command should exit with it.
func loadRuntime(envLoader *cli.EnvLoader) (*config.Config, zerolog.Logger, int) {
	if envLoader != nil {
		if _, err := envLoader.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return nil, zerolog.Nop(), 1
	}

	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return nil, zerolog.Nop(), 1
	}
	return cfg, logger, 0
}

func buildMatcher(cfg *config.Config) (location.Tables, *location.Matcher, error) {
	tables, err := location.LoadTables(cfg.LocationTablesFile)
	if err != nil {
		return location.Tables{}, nil, err
	}
	matcher := location.NewMatcher(tables, location.MatcherOptions{
		MinSubstringLength: cfg.MatchMinSubstringLength,
		Bidirectional:      cfg.MatchBidirectional,
	})
	return tables, matcher, nil
}

// pipelineDeps is everything a processing cycle needs besides the pool.
type pipelineDeps struct {
	service   *pipeline.Service
	publisher *broadcast.NATSPublisher
	matcher   *location.Matcher
}

func (d *pipelineDeps) Close() {
	if d != nil && d.publisher != nil {
		d.publisher.Close()
	}
}

// buildPipeline assembles the cycle. extra receives every new security alert
// in addition to NATS (the websocket hub in serve mode).
func buildPipeline(cfg *config.Config, pool *db.Pool, m *metrics.Pipeline, logger zerolog.Logger, extra ...broadcast.AlertPublisher) (*pipelineDeps, error) {
	tables, matcher, err := buildMatcher(cfg)
	if err != nil {
		return nil, fmt.Errorf("load location tables: %w", err)
	}

	chain, err := classify.Build(classify.Settings{
		Provider: cfg.ClassifierProviderName(),
		Hosted: classify.ProviderSettings{
			Endpoint: cfg.ClassifierEndpoint,
			Model:    cfg.ClassifierModel,
			APIKey:   cfg.ClassifierAPIKey,
			Timeout:  cfg.ClassifierTimeout,
		},
	}, tables, logging.Component(logger, "classify"))
	if err != nil {
		return nil, err
	}

	configured, err := cfg.FeedSourceList()
	if err != nil {
		return nil, err
	}
	sources := make([]feed.Source, 0, len(configured))
	for _, src := range configured {
		sources = append(sources, feed.Source{Name: src.Name, URL: src.URL})
	}

	deps := &pipelineDeps{matcher: matcher}

	var sender notify.Sender
	fanout := broadcast.Fanout{}
	if cfg.NATSURL != "" {
		publisher, err := broadcast.ConnectNATS(broadcast.NATSOptions{
			URL:           cfg.NATSURL,
			AlertSubject:  cfg.NATSAlertSubject,
			NotifySubject: cfg.NATSNotifySubject,
		}, logging.Component(logger, "nats"))
		if err != nil {
			return nil, err
		}
		deps.publisher = publisher
		sender = publisher
		fanout = append(fanout, publisher)
	} else {
		logSender := broadcast.NewLogSender(logging.Component(logger, "notify"))
		sender = logSender
		fanout = append(fanout, logSender)
	}
	fanout = append(fanout, extra...)

	dispatcher, err := notify.NewDispatcher(notify.Options{
		Profiles: pool,
		Recorder: pool,
		Sender:   sender,
		Matcher:  matcher,
		Metrics:  m,
		Logger:   logging.Component(logger, "notify"),
	})
	if err != nil {
		deps.Close()
		return nil, err
	}

	svc, err := pipeline.NewService(pipeline.Options{
		Sources: sources,
		Fetcher: feed.NewFetcher(cfg.FeedTimeout),
		Store:   pool,
		Dedup: dedup.New(dedup.Thresholds{
			High:   cfg.DedupHighThreshold,
			Medium: cfg.DedupMediumThreshold,
		}),
		Classifier:  classify.NewBatchClassifier(chain, cfg.ClassifierBatchSize, cfg.ClassifierBatchDelay, logging.Component(logger, "classify")),
		Broadcaster: fanout,
		Notifier:    dispatcher,
		Metrics:     m,
		Lookback:    cfg.LookbackWindow,
		Logger:      logging.Component(logger, "pipeline"),
	})
	if err != nil {
		deps.Close()
		return nil, err
	}
	deps.service = svc

	logger.Info().
		Str("classifier", chain.Name()).
		Int("sources", len(sources)).
		Bool("nats", deps.publisher != nil).
		Msg("pipeline configured")
	return deps, nil
}
