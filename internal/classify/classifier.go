package classify

import (
	"context"
	"errors"
	"strings"

	"horse.fit/newsalert/internal/news"
)

// Method records which path produced a classification.
type Method string

const (
	MethodAI      Method = "ai"
	MethodKeyword Method = "keyword"
	MethodFailed  Method = "failed"
)

var (
	ErrNoProvider    = errors.New("classification provider not registered")
	ErrEmptyResponse = errors.New("classification response was empty")
)

// Classification is the verdict for one feed item. Location holds either a
// place name or news.LocationUnknown.
type Classification struct {
	IsSecurityEvent bool
	Location        string
	Title           string
	Description     string
	Language        string
	Method          Method
}

type Classifier interface {
	Name() string
	Classify(ctx context.Context, item news.FeedItem) (Classification, error)
}

func failed(item news.FeedItem) Classification {
	return Classification{
		Location:    news.LocationUnknown,
		Title:       item.Title,
		Description: item.Description,
		Method:      MethodFailed,
	}
}

func locationOrUnknown(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return news.LocationUnknown
	}
	return trimmed
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
