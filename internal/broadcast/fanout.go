package broadcast

import (
	"context"
	"errors"

	"horse.fit/newsalert/internal/news"
)

// AlertPublisher receives every newly stored security alert.
type AlertPublisher interface {
	PublishAlert(ctx context.Context, alert news.Alert) error
}

// Fanout publishes to each target and joins their errors.
type Fanout []AlertPublisher

func (f Fanout) PublishAlert(ctx context.Context, alert news.Alert) error {
	var errs []error
	for _, target := range f {
		if target == nil {
			continue
		}
		if err := target.PublishAlert(ctx, alert); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
