package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"horse.fit/newsalert/internal/broadcast"
	"horse.fit/newsalert/internal/classify"
	"horse.fit/newsalert/internal/dedup"
	"horse.fit/newsalert/internal/feed"
	"horse.fit/newsalert/internal/globaltime"
	"horse.fit/newsalert/internal/metrics"
	"horse.fit/newsalert/internal/news"
	"horse.fit/newsalert/internal/notify"
)

const DefaultLookback = 24 * time.Hour

type Fetcher interface {
	FetchAll(ctx context.Context, sources []feed.Source) feed.Result
}

type AlertStore interface {
	RecentAlertKeys(ctx context.Context, since time.Time) (map[string]struct{}, map[string]struct{}, error)
	InsertAlerts(ctx context.Context, alerts []news.Alert) ([]news.Alert, error)
}

type BatchClassifier interface {
	ClassifyAll(ctx context.Context, items []news.FeedItem) ([]classify.Outcome, error)
}

type Notifier interface {
	Dispatch(ctx context.Context, alerts []news.Alert) (notify.Result, error)
}

type Options struct {
	Sources    []feed.Source
	Fetcher    Fetcher
	Store      AlertStore
	Dedup      *dedup.Engine
	Classifier BatchClassifier
	// Broadcaster and Notifier are optional.
	Broadcaster broadcast.AlertPublisher
	Notifier    Notifier
	Metrics     *metrics.Pipeline
	Lookback    time.Duration
	Logger      zerolog.Logger
}

// Service runs processing cycles: fetch, dedup, classify, persist, then
// broadcast and notify.
type Service struct {
	sources     []feed.Source
	fetcher     Fetcher
	store       AlertStore
	dedup       *dedup.Engine
	classifier  BatchClassifier
	broadcaster broadcast.AlertPublisher
	notifier    Notifier
	metrics     *metrics.Pipeline
	lookback    time.Duration
	logger      zerolog.Logger
}

type CycleResult struct {
	Fetched        int
	SourceErrors   int
	Duplicates     int
	Classified     int
	Unclassified   int
	SecurityEvents int
	Inserted       int
	Broadcast      int
	Notify         notify.Result
}

func NewService(opts Options) (*Service, error) {
	if len(opts.Sources) == 0 {
		return nil, fmt.Errorf("at least one feed source is required")
	}
	if opts.Fetcher == nil {
		return nil, fmt.Errorf("fetcher is required")
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("alert store is required")
	}
	if opts.Classifier == nil {
		return nil, fmt.Errorf("classifier is required")
	}
	engine := opts.Dedup
	if engine == nil {
		engine = dedup.New(dedup.DefaultThresholds())
	}
	lookback := opts.Lookback
	if lookback <= 0 {
		lookback = DefaultLookback
	}

	return &Service{
		sources:     append([]feed.Source(nil), opts.Sources...),
		fetcher:     opts.Fetcher,
		store:       opts.Store,
		dedup:       engine,
		classifier:  opts.Classifier,
		broadcaster: opts.Broadcaster,
		notifier:    opts.Notifier,
		metrics:     opts.Metrics,
		lookback:    lookback,
		logger:      opts.Logger,
	}, nil
}

// RunOnce executes one cycle. Source, broadcast and notification failures are
// logged; store failures and cancellation abort the cycle.
func (s *Service) RunOnce(ctx context.Context) (CycleResult, error) {
	if s == nil {
		return CycleResult{}, fmt.Errorf("pipeline service is not initialized")
	}
	started := globaltime.Now()
	var result CycleResult

	fetched := s.fetcher.FetchAll(ctx, s.sources)
	result.Fetched = len(fetched.Items)
	result.SourceErrors = len(fetched.Errors)
	for _, srcErr := range fetched.Errors {
		s.metrics.FeedError(srcErr.Source)
		s.logger.Warn().Err(srcErr.Err).Str("source", srcErr.Source).Msg("feed fetch failed")
	}
	for source, n := range countBySource(fetched.Items) {
		s.metrics.FeedItems(source, n)
	}
	if err := ctx.Err(); err != nil {
		return result, err
	}
	if len(fetched.Items) == 0 {
		s.finish(started, result)
		return result, nil
	}

	links, titles, err := s.store.RecentAlertKeys(ctx, globaltime.WindowStart(s.lookback))
	if err != nil {
		return result, fmt.Errorf("load recent alert keys: %w", err)
	}

	evaluated := s.dedup.Evaluate(fetched.Items, links, titles)
	result.Duplicates = len(evaluated.Dropped)
	for _, drop := range evaluated.Dropped {
		s.metrics.DedupDrop(string(drop.Reason))
		s.logger.Debug().
			Str("reason", string(drop.Reason)).
			Str("title", drop.Item.Title).
			Str("against", drop.Against).
			Float64("score", drop.Score).
			Msg("duplicate dropped")
	}
	if len(evaluated.Accepted) == 0 {
		s.finish(started, result)
		return result, nil
	}

	outcomes, err := s.classifier.ClassifyAll(ctx, evaluated.Accepted)
	if err != nil {
		return result, fmt.Errorf("classify items: %w", err)
	}

	alerts := make([]news.Alert, 0, len(outcomes))
	for _, outcome := range outcomes {
		if outcome.Classification.Method == classify.MethodFailed {
			result.Unclassified++
			s.logger.Warn().
				Err(outcome.Err).
				Str("link", outcome.Item.Link).
				Msg("item left unclassified")
			continue
		}
		result.Classified++
		s.metrics.Classified(string(outcome.Classification.Method), outcome.Classification.IsSecurityEvent)
		alerts = append(alerts, BuildAlert(outcome.Item, outcome.Classification))
	}
	if len(alerts) == 0 {
		s.finish(started, result)
		return result, nil
	}

	inserted, err := s.store.InsertAlerts(ctx, alerts)
	if err != nil {
		return result, fmt.Errorf("insert alerts: %w", err)
	}
	result.Inserted = len(inserted)

	security := make([]news.Alert, 0, len(inserted))
	for _, alert := range inserted {
		s.metrics.AlertStored(alert.IsSecurityEvent)
		if alert.IsSecurityEvent {
			security = append(security, alert)
		}
	}
	result.SecurityEvents = len(security)

	if s.broadcaster != nil {
		for _, alert := range security {
			if err := s.broadcaster.PublishAlert(ctx, alert); err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return result, err
				}
				s.logger.Warn().Err(err).Str("alert_id", alert.ID).Msg("alert broadcast failed")
				continue
			}
			result.Broadcast++
		}
	}

	if s.notifier != nil && len(security) > 0 {
		notified, err := s.notifier.Dispatch(ctx, security)
		result.Notify = notified
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return result, ctxErr
			}
			s.logger.Error().Err(err).Msg("notification dispatch failed")
		}
	}

	s.finish(started, result)
	return result, nil
}

// Run executes a cycle immediately and then every interval until ctx ends.
func (s *Service) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("interval must be > 0")
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := s.RunOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.logger.Error().Err(err).Msg("pipeline cycle failed")
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (s *Service) finish(started time.Time, result CycleResult) {
	finished := globaltime.Now()
	s.metrics.CycleDone(started, finished)
	s.logger.Info().
		Int("fetched", result.Fetched).
		Int("source_errors", result.SourceErrors).
		Int("duplicates", result.Duplicates).
		Int("classified", result.Classified).
		Int("unclassified", result.Unclassified).
		Int("inserted", result.Inserted).
		Int("security_events", result.SecurityEvents).
		Int("broadcast", result.Broadcast).
		Int("notified", result.Notify.Sent).
		Int("notify_failed", result.Notify.Failed).
		Dur("elapsed", finished.Sub(started)).
		Msg("pipeline cycle complete")
}

// BuildAlert turns a classified item into an alert with a fresh ID. The
// timestamp is the item's publication time, or now when it cannot be parsed.
func BuildAlert(item news.FeedItem, c classify.Classification) news.Alert {
	location := strings.TrimSpace(c.Location)
	if location == "" {
		location = news.LocationUnknown
	}
	title := strings.TrimSpace(c.Title)
	if title == "" {
		title = item.Title
	}
	description := strings.TrimSpace(c.Description)
	if description == "" {
		description = item.Description
	}

	return news.Alert{
		ID:              uuid.NewString(),
		Title:           title,
		Description:     description,
		Location:        location,
		Timestamp:       parseTimestamp(item.PubDate),
		Source:          item.Source,
		Link:            item.Link,
		IsSecurityEvent: c.IsSecurityEvent,
		ImageURL:        item.ImageURL,
		Language:        c.Language,
		ClassifiedBy:    string(c.Method),
		FeedTitle:       item.Title,
	}
}

func parseTimestamp(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, time.RFC1123Z, time.RFC1123} {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts.UTC()
		}
	}
	return globaltime.UTC()
}

func countBySource(items []news.FeedItem) map[string]int {
	counts := make(map[string]int)
	for _, item := range items {
		counts[item.Source]++
	}
	return counts
}
