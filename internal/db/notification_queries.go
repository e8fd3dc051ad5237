package db

import (
	"context"
	"fmt"
	"time"

	"horse.fit/newsalert/internal/globaltime"
)

const (
	NotificationSent   = "sent"
	NotificationFailed = "failed"
)

func (p *Pool) RecordNotification(ctx context.Context, rec NotificationRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = nowUTC()
	}

	const q = `
INSERT INTO newsalert.notifications (alert_id, user_id, status, rule, error_message, created_at)
VALUES ($1, $2, $3, $4, $5, $6)
`
	if _, err := p.Exec(ctx, q, rec.AlertID, rec.UserID, rec.Status, rec.Rule, rec.ErrorMessage, rec.CreatedAt.UTC()); err != nil {
		return fmt.Errorf("record notification alert_id=%s user_id=%s: %w", rec.AlertID, rec.UserID, err)
	}
	return nil
}

func nowUTC() time.Time {
	return globaltime.UTC()
}
