package dedup

import (
	"fmt"
	"sort"
	"strings"

	"horse.fit/newsalert/internal/news"
	"horse.fit/newsalert/internal/similarity"
)

const (
	DefaultHighThreshold   = 0.85
	DefaultMediumThreshold = 0.6
)

// Reason names the rule that dropped an item.
type Reason string

const (
	ReasonSeenLink             Reason = "seen_link"
	ReasonBatchTitle           Reason = "batch_title"
	ReasonExistingTitleSimilar Reason = "existing_title_similar"
	ReasonBatchSimilar         Reason = "batch_similar"
)

// Set is a string set as supplied by the persistence layer.
type Set map[string]struct{}

func NewSet(values ...string) Set {
	set := make(Set, len(values))
	for _, value := range values {
		set[value] = struct{}{}
	}
	return set
}

func (s Set) Has(value string) bool {
	_, ok := s[value]
	return ok
}

// Thresholds are strict lower bounds: a score must exceed them to count.
type Thresholds struct {
	High   float64
	Medium float64
}

func DefaultThresholds() Thresholds {
	return Thresholds{High: DefaultHighThreshold, Medium: DefaultMediumThreshold}
}

func (t Thresholds) Validate() error {
	if t.High <= 0 || t.High > 1 {
		return fmt.Errorf("high threshold must be in (0,1], got %v", t.High)
	}
	if t.Medium <= 0 || t.Medium > t.High {
		return fmt.Errorf("medium threshold must be in (0,high], got %v", t.Medium)
	}
	return nil
}

// Drop records why an item was removed from the batch.
type Drop struct {
	Item   news.FeedItem
	Reason Reason
	// Against is the link or title the item collided with.
	Against string
	Score   float64
}

type Result struct {
	Accepted []news.FeedItem
	Dropped  []Drop
}

type Engine struct {
	thresholds Thresholds
}

// New returns an engine using the given thresholds. Zero values fall back to
// the defaults.
func New(thresholds Thresholds) *Engine {
	if thresholds.High <= 0 {
		thresholds.High = DefaultHighThreshold
	}
	if thresholds.Medium <= 0 {
		thresholds.Medium = DefaultMediumThreshold
	}
	return &Engine{thresholds: thresholds}
}

func (e *Engine) Thresholds() Thresholds {
	return e.thresholds
}

// FilterDuplicates runs the default engine and returns the surviving items.
func FilterDuplicates(items []news.FeedItem, existingLinks, existingTitles Set) []news.FeedItem {
	return New(DefaultThresholds()).Filter(items, existingLinks, existingTitles)
}

func (e *Engine) Filter(items []news.FeedItem, existingLinks, existingTitles Set) []news.FeedItem {
	return e.Evaluate(items, existingLinks, existingTitles).Accepted
}

type candidate struct {
	item    news.FeedItem
	title   similarity.Document
	content similarity.Document
}

// Evaluate decides every item in input order. The first item of a duplicate
// group wins. Inputs are never modified.
func (e *Engine) Evaluate(items []news.FeedItem, existingLinks, existingTitles Set) Result {
	result := Result{Accepted: make([]news.FeedItem, 0, len(items))}
	if len(items) == 0 {
		return result
	}

	known := prepareExistingTitles(existingTitles)
	seenLinks := make(map[string]struct{}, len(items))
	seenTitles := make(map[string]string, len(items))
	accepted := make([]candidate, 0, len(items))

	for _, item := range items {
		link := strings.TrimSpace(item.Link)
		if link != "" {
			if existingLinks.Has(link) {
				result.Dropped = append(result.Dropped, Drop{Item: item, Reason: ReasonSeenLink, Against: link, Score: 1})
				continue
			}
			if _, ok := seenLinks[link]; ok {
				result.Dropped = append(result.Dropped, Drop{Item: item, Reason: ReasonSeenLink, Against: link, Score: 1})
				continue
			}
		}

		c := candidate{
			item:    item,
			title:   similarity.NewDocument(item.Title, similarity.Title),
			content: similarity.NewDocument(contentText(item), similarity.Content),
		}

		if !c.title.Empty() {
			if firstLink, ok := seenTitles[c.title.Normalized]; ok {
				result.Dropped = append(result.Dropped, Drop{Item: item, Reason: ReasonBatchTitle, Against: firstLink, Score: 1})
				continue
			}
		}

		if drop, ok := e.matchExisting(c, known); ok {
			result.Dropped = append(result.Dropped, drop)
			continue
		}
		if drop, ok := e.matchBatch(c, accepted); ok {
			result.Dropped = append(result.Dropped, drop)
			continue
		}

		if link != "" {
			seenLinks[link] = struct{}{}
		}
		if !c.title.Empty() {
			seenTitles[c.title.Normalized] = link
		}
		accepted = append(accepted, c)
		result.Accepted = append(result.Accepted, item)
	}
	return result
}

func (e *Engine) matchExisting(c candidate, known []similarity.Document) (Drop, bool) {
	for _, title := range known {
		if score := similarity.Compare(c.title, title); score > e.thresholds.High {
			return Drop{Item: c.item, Reason: ReasonExistingTitleSimilar, Against: title.Normalized, Score: score}, true
		}
	}
	return Drop{}, false
}

func (e *Engine) matchBatch(c candidate, accepted []candidate) (Drop, bool) {
	for _, prior := range accepted {
		titleScore := similarity.Compare(c.title, prior.title)
		if titleScore > e.thresholds.High {
			return Drop{Item: c.item, Reason: ReasonBatchSimilar, Against: prior.item.Link, Score: titleScore}, true
		}
		if titleScore <= e.thresholds.Medium {
			continue
		}
		if contentScore := similarity.Compare(c.content, prior.content); contentScore > e.thresholds.Medium {
			return Drop{Item: c.item, Reason: ReasonBatchSimilar, Against: prior.item.Link, Score: contentScore}, true
		}
	}
	return Drop{}, false
}

// contentText joins title and description. The "no details" placeholder
// carries no signal and is left out.
func contentText(item news.FeedItem) string {
	description := strings.TrimSpace(item.Description)
	if description == "" || description == news.NoDetailsDescription {
		return item.Title
	}
	return item.Title + " " + description
}

func prepareExistingTitles(titles Set) []similarity.Document {
	if len(titles) == 0 {
		return nil
	}
	keys := make([]string, 0, len(titles))
	for title := range titles {
		keys = append(keys, title)
	}
	sort.Strings(keys)

	docs := make([]similarity.Document, 0, len(keys))
	for _, title := range keys {
		doc := similarity.NewDocument(title, similarity.Title)
		if doc.Empty() {
			continue
		}
		docs = append(docs, doc)
	}
	return docs
}
