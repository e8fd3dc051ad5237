package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"horse.fit/newsalert/internal/db"
	"horse.fit/newsalert/internal/location"
	"horse.fit/newsalert/internal/metrics"
	"horse.fit/newsalert/internal/news"
)

// Message is one alert addressed to one user.
type Message struct {
	UserID    string     `json:"user_id"`
	PushToken string     `json:"push_token,omitempty"`
	Rule      string     `json:"rule"`
	Alert     news.Alert `json:"alert"`
}

type ProfileStore interface {
	ListUserLocations(ctx context.Context) ([]news.UserLocationProfile, error)
}

type Recorder interface {
	RecordNotification(ctx context.Context, rec db.NotificationRecord) error
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
}

type Result struct {
	Alerts   int
	Profiles int
	Matched  int
	Sent     int
	Failed   int
	Skipped  int
}

// Dispatcher fans security alerts out to users whose stored location the
// matcher finds relevant.
type Dispatcher struct {
	profiles ProfileStore
	recorder Recorder
	sender   Sender
	matcher  *location.Matcher
	metrics  *metrics.Pipeline
	logger   zerolog.Logger
}

type Options struct {
	Profiles ProfileStore
	Recorder Recorder
	Sender   Sender
	Matcher  *location.Matcher
	Metrics  *metrics.Pipeline
	Logger   zerolog.Logger
}

func NewDispatcher(opts Options) (*Dispatcher, error) {
	if opts.Profiles == nil {
		return nil, fmt.Errorf("profile store is required")
	}
	if opts.Sender == nil {
		return nil, fmt.Errorf("sender is required")
	}
	matcher := opts.Matcher
	if matcher == nil {
		matcher = location.NewMatcher(location.DefaultTables(), location.MatcherOptions{})
	}
	return &Dispatcher{
		profiles: opts.Profiles,
		recorder: opts.Recorder,
		sender:   opts.Sender,
		matcher:  matcher,
		metrics:  opts.Metrics,
		logger:   opts.Logger,
	}, nil
}

// Dispatch delivers every eligible alert to every matching profile. Delivery
// and recording failures are logged and counted, never returned. Only a
// failure to read profiles or a cancelled context is an error.
func (d *Dispatcher) Dispatch(ctx context.Context, alerts []news.Alert) (Result, error) {
	eligible := make([]news.Alert, 0, len(alerts))
	for _, alert := range alerts {
		if alert.IsSecurityEvent && alert.HasKnownLocation() {
			eligible = append(eligible, alert)
		}
	}

	result := Result{Alerts: len(eligible), Skipped: len(alerts) - len(eligible)}
	if len(eligible) == 0 {
		return result, nil
	}

	profiles, err := d.profiles.ListUserLocations(ctx)
	if err != nil {
		return result, fmt.Errorf("list user locations: %w", err)
	}
	result.Profiles = len(profiles)

	for _, alert := range eligible {
		for _, profile := range profiles {
			if err := ctx.Err(); err != nil {
				return result, err
			}

			rule := d.matcher.Explain(alert.Location, profile.Location)
			if !rule.Relevant() {
				continue
			}
			result.Matched++

			msg := Message{
				UserID:    profile.UserID,
				PushToken: profile.PushToken,
				Rule:      string(rule),
				Alert:     alert,
			}
			status := db.NotificationSent
			var errMessage *string
			if sendErr := d.sender.Send(ctx, msg); sendErr != nil {
				status = db.NotificationFailed
				text := strings.TrimSpace(sendErr.Error())
				errMessage = &text
				result.Failed++
				d.logger.Warn().
					Err(sendErr).
					Str("alert_id", alert.ID).
					Str("user_id", profile.UserID).
					Msg("notification send failed")
			} else {
				result.Sent++
			}
			d.metrics.Notification(status, string(rule))

			if d.recorder == nil {
				continue
			}
			rec := db.NotificationRecord{
				AlertID:      alert.ID,
				UserID:       profile.UserID,
				Status:       status,
				Rule:         string(rule),
				ErrorMessage: errMessage,
			}
			if recErr := d.recorder.RecordNotification(ctx, rec); recErr != nil {
				d.logger.Error().
					Err(recErr).
					Str("alert_id", alert.ID).
					Str("user_id", profile.UserID).
					Msg("record notification failed")
			}
		}
	}

	return result, nil
}
