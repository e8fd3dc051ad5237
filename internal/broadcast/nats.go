package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"horse.fit/newsalert/internal/news"
	"horse.fit/newsalert/internal/notify"
)

type NATSOptions struct {
	URL           string
	AlertSubject  string
	NotifySubject string
	ConnectName   string
	MaxReconnects int
	ReconnectWait time.Duration
	Timeout       time.Duration
}

// Publisher is the subset of *nats.Conn used for publishing.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// NATSPublisher puts new alerts and per-user push requests on NATS subjects.
// A downstream push worker consumes the notify subject.
type NATSPublisher struct {
	conn          Publisher
	closer        func()
	alertSubject  string
	notifySubject string
}

func ConnectNATS(opts NATSOptions, logger zerolog.Logger) (*NATSPublisher, error) {
	url := strings.TrimSpace(opts.URL)
	if url == "" {
		return nil, fmt.Errorf("nats url is required")
	}
	maxReconnects := opts.MaxReconnects
	if maxReconnects == 0 {
		maxReconnects = 10
	}
	reconnectWait := opts.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	name := strings.TrimSpace(opts.ConnectName)
	if name == "" {
		name = "newsalert"
	}

	nc, err := nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(maxReconnects),
		nats.ReconnectWait(reconnectWait),
		nats.Timeout(timeout),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn().Err(err).Msg("nats disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info().Str("url", nc.ConnectedUrl()).Msg("nats reconnected")
		}),
		nats.ClosedHandler(func(*nats.Conn) {
			logger.Info().Msg("nats connection closed")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}

	p, err := NewNATSPublisher(nc, opts.AlertSubject, opts.NotifySubject)
	if err != nil {
		nc.Close()
		return nil, err
	}
	p.closer = func() {
		if err := nc.Drain(); err != nil {
			nc.Close()
		}
	}
	return p, nil
}

func NewNATSPublisher(conn Publisher, alertSubject, notifySubject string) (*NATSPublisher, error) {
	if conn == nil {
		return nil, fmt.Errorf("nats connection is required")
	}
	alertSubject = strings.TrimSpace(alertSubject)
	notifySubject = strings.TrimSpace(notifySubject)
	if alertSubject == "" || notifySubject == "" {
		return nil, fmt.Errorf("nats alert and notify subjects are required")
	}
	return &NATSPublisher{
		conn:          conn,
		alertSubject:  alertSubject,
		notifySubject: notifySubject,
	}, nil
}

// PublishAlert publishes the alert as JSON on the alert subject.
func (p *NATSPublisher) PublishAlert(ctx context.Context, alert news.Alert) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("marshal alert %s: %w", alert.ID, err)
	}
	if err := p.conn.Publish(p.alertSubject, payload); err != nil {
		return fmt.Errorf("publish alert %s: %w", alert.ID, err)
	}
	return nil
}

// Send implements notify.Sender.
func (p *NATSPublisher) Send(ctx context.Context, msg notify.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal push request: %w", err)
	}
	if err := p.conn.Publish(p.notifySubject, payload); err != nil {
		return fmt.Errorf("publish push request user_id=%s: %w", msg.UserID, err)
	}
	return nil
}

func (p *NATSPublisher) Close() {
	if p != nil && p.closer != nil {
		p.closer()
	}
}

// LogSender stands in for a push transport when NATS is not configured.
type LogSender struct {
	logger zerolog.Logger
}

func NewLogSender(logger zerolog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(ctx context.Context, msg notify.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.logger.Info().
		Str("user_id", msg.UserID).
		Str("alert_id", msg.Alert.ID).
		Str("location", msg.Alert.Location).
		Str("rule", msg.Rule).
		Msg("notification")
	return nil
}

func (s *LogSender) PublishAlert(ctx context.Context, alert news.Alert) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.logger.Debug().Str("alert_id", alert.ID).Str("location", alert.Location).Msg("alert broadcast")
	return nil
}
