package classify

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"horse.fit/newsalert/internal/news"
)

// Outcome pairs an item with its classification. Err is set when the
// classification method is MethodFailed.
type Outcome struct {
	Item           news.FeedItem
	Classification Classification
	Err            error
}

// BatchClassifier classifies items in fixed-size concurrent batches and
// waits between batches to respect provider rate limits.
type BatchClassifier struct {
	classifier Classifier
	size       int
	limiter    *rate.Limiter
	logger     zerolog.Logger
}

func NewBatchClassifier(classifier Classifier, size int, delay time.Duration, logger zerolog.Logger) *BatchClassifier {
	if size < 1 {
		size = 1
	}
	var limiter *rate.Limiter
	if delay > 0 {
		limiter = rate.NewLimiter(rate.Every(delay), 1)
	}
	return &BatchClassifier{
		classifier: classifier,
		size:       size,
		limiter:    limiter,
		logger:     logger,
	}
}

// ClassifyAll returns one outcome per item in input order. It stops early
// only when ctx is cancelled.
func (b *BatchClassifier) ClassifyAll(ctx context.Context, items []news.FeedItem) ([]Outcome, error) {
	outcomes := make([]Outcome, len(items))
	for start := 0; start < len(items); start += b.size {
		if b.limiter != nil {
			if err := b.limiter.Wait(ctx); err != nil {
				return outcomes[:start], err
			}
		}
		end := min(start+b.size, len(items))

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				result, err := b.classifier.Classify(ctx, items[i])
				outcomes[i] = Outcome{Item: items[i], Classification: result, Err: err}
			}(i)
		}
		wg.Wait()

		b.logger.Debug().
			Int("batch_start", start).
			Int("batch_size", end-start).
			Int("total", len(items)).
			Msg("classified batch")

		if err := ctx.Err(); err != nil {
			return outcomes[:end], err
		}
	}
	return outcomes, nil
}
