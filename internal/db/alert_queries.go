package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"horse.fit/newsalert/internal/news"
	"horse.fit/newsalert/internal/similarity"
)

const maxAlertListLimit = 500

// RecentAlertKeys returns the links and normalized titles of alerts stored
// since the given instant. They seed the dedup engine.
func (p *Pool) RecentAlertKeys(ctx context.Context, since time.Time) (map[string]struct{}, map[string]struct{}, error) {
	const q = `
SELECT link, normalized_title
FROM newsalert.alerts
WHERE created_at >= $1
`
	rows, err := p.Query(ctx, q, since.UTC())
	if err != nil {
		return nil, nil, fmt.Errorf("query recent alert keys: %w", err)
	}
	defer rows.Close()

	links := make(map[string]struct{})
	titles := make(map[string]struct{})
	for rows.Next() {
		var link, title string
		if err := rows.Scan(&link, &title); err != nil {
			return nil, nil, fmt.Errorf("scan recent alert key: %w", err)
		}
		links[link] = struct{}{}
		if title != "" {
			titles[title] = struct{}{}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate recent alert keys: %w", err)
	}
	return links, titles, nil
}

// InsertAlerts stores alerts in one transaction. Alerts whose link already
// exists are skipped; the alerts actually inserted are returned in order.
func (p *Pool) InsertAlerts(ctx context.Context, alerts []news.Alert) ([]news.Alert, error) {
	if len(alerts) == 0 {
		return nil, nil
	}

	const q = `
INSERT INTO newsalert.alerts (
	alert_id, title, normalized_title, description, location, published_at,
	source, link, is_security_event, image_url, language, classified_by, created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
ON CONFLICT (link) DO NOTHING
`
	inserted := make([]news.Alert, 0, len(alerts))
	err := p.WithTx(ctx, func(tx Tx) error {
		for _, alert := range alerts {
			rec := alertRecordFromNews(alert)
			tag, err := tx.Exec(ctx, q,
				rec.AlertID, rec.Title, rec.NormalizedTitle, rec.Description, rec.Location, rec.PublishedAt,
				rec.Source, rec.Link, rec.IsSecurityEvent, rec.ImageURL, rec.Language, rec.ClassifiedBy, rec.CreatedAt,
			)
			if err != nil {
				return fmt.Errorf("insert alert link=%s: %w", alert.Link, err)
			}
			if tag.RowsAffected() > 0 {
				inserted = append(inserted, alert)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return inserted, nil
}

// AlertListOptions filters ListRecentAlerts.
type AlertListOptions struct {
	Limit        int
	SecurityOnly bool
	Location     string
}

func (p *Pool) ListRecentAlerts(ctx context.Context, opts AlertListOptions) ([]news.Alert, error) {
	limit := opts.Limit
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be > 0")
	}
	if limit > maxAlertListLimit {
		limit = maxAlertListLimit
	}

	var (
		where []string
		args  []any
	)
	if opts.SecurityOnly {
		where = append(where, "is_security_event")
	}
	if loc := strings.TrimSpace(opts.Location); loc != "" {
		args = append(args, loc)
		where = append(where, fmt.Sprintf("location = $%d", len(args)))
	}
	args = append(args, limit)

	q := `
SELECT alert_id::text, title, description, location, published_at, source, link,
	is_security_event, image_url, language, classified_by
FROM newsalert.alerts`
	if len(where) > 0 {
		q += "\nWHERE " + strings.Join(where, " AND ")
	}
	q += fmt.Sprintf("\nORDER BY published_at DESC, created_at DESC\nLIMIT $%d", len(args))

	rows, err := p.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query alerts: %w", err)
	}
	defer rows.Close()

	out := make([]news.Alert, 0, limit)
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, alert)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate alerts: %w", err)
	}
	return out, nil
}

// GetAlert returns ErrNoRows when the id is unknown.
func (p *Pool) GetAlert(ctx context.Context, alertID string) (news.Alert, error) {
	const q = `
SELECT alert_id::text, title, description, location, published_at, source, link,
	is_security_event, image_url, language, classified_by
FROM newsalert.alerts
WHERE alert_id = $1
`
	return scanAlert(p.QueryRow(ctx, q, strings.TrimSpace(alertID)))
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAlert(row scanner) (news.Alert, error) {
	var (
		alert    news.Alert
		imageURL *string
		language *string
	)
	if err := row.Scan(
		&alert.ID, &alert.Title, &alert.Description, &alert.Location, &alert.Timestamp, &alert.Source, &alert.Link,
		&alert.IsSecurityEvent, &imageURL, &language, &alert.ClassifiedBy,
	); err != nil {
		if IsNoRows(err) {
			return news.Alert{}, ErrNoRows
		}
		return news.Alert{}, fmt.Errorf("scan alert: %w", err)
	}
	alert.Timestamp = alert.Timestamp.UTC()
	alert.ImageURL = derefString(imageURL)
	alert.Language = derefString(language)
	return alert, nil
}

func alertRecordFromNews(alert news.Alert) AlertRecord {
	return AlertRecord{
		AlertID:         alert.ID,
		Title:           alert.Title,
		NormalizedTitle: TitleKey(alert),
		Description:     alert.Description,
		Location:        alert.Location,
		PublishedAt:     alert.Timestamp.UTC(),
		Source:          alert.Source,
		Link:            alert.Link,
		IsSecurityEvent: alert.IsSecurityEvent,
		ImageURL:        nullableString(alert.ImageURL),
		Language:        nullableString(alert.Language),
		ClassifiedBy:    alert.ClassifiedBy,
		CreatedAt:       nowUTC(),
	}
}

// TitleKey is the normalized title stored for dedup. It uses the feed
// headline so later items can be compared against it as syndicated.
func TitleKey(alert news.Alert) string {
	if strings.TrimSpace(alert.FeedTitle) != "" {
		return similarity.Normalize(alert.FeedTitle)
	}
	return similarity.Normalize(alert.Title)
}

func nullableString(v string) *string {
	trimmed := strings.TrimSpace(v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func derefString(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
