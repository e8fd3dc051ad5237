package classify

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"horse.fit/newsalert/internal/news"
)

// Chain tries the primary classifier and falls back on any error. When both
// fail the result carries MethodFailed and the joined errors.
type Chain struct {
	primary  Classifier
	fallback Classifier
	logger   zerolog.Logger
}

func NewChain(primary, fallback Classifier, logger zerolog.Logger) *Chain {
	return &Chain{primary: primary, fallback: fallback, logger: logger}
}

func (c *Chain) Name() string {
	switch {
	case c.primary != nil && c.fallback != nil:
		return c.primary.Name() + "+" + c.fallback.Name()
	case c.primary != nil:
		return c.primary.Name()
	case c.fallback != nil:
		return c.fallback.Name()
	default:
		return "none"
	}
}

func (c *Chain) Classify(ctx context.Context, item news.FeedItem) (Classification, error) {
	var errs []error

	if c.primary != nil {
		result, err := c.primary.Classify(ctx, item)
		if err == nil {
			return result, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return failed(item), ctxErr
		}
		errs = append(errs, fmt.Errorf("%s: %w", c.primary.Name(), err))
		c.logger.Warn().
			Err(err).
			Str("classifier", c.primary.Name()).
			Str("link", item.Link).
			Msg("primary classification failed; falling back")
	}

	if c.fallback != nil {
		result, err := c.fallback.Classify(ctx, item)
		if err == nil {
			return result, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", c.fallback.Name(), err))
	}

	if len(errs) == 0 {
		errs = append(errs, ErrNoProvider)
	}
	return failed(item), errors.Join(errs...)
}
