package classify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/newsalert/internal/location"
	"horse.fit/newsalert/internal/news"
)

type fakeClassifier struct {
	name   string
	result Classification
	err    error
	calls  atomic.Int32
}

func (f *fakeClassifier) Name() string { return f.name }

func (f *fakeClassifier) Classify(_ context.Context, item news.FeedItem) (Classification, error) {
	f.calls.Add(1)
	if f.err != nil {
		return failed(item), f.err
	}
	return f.result, nil
}

func TestChain_PrimaryWins(t *testing.T) {
	t.Parallel()

	primary := &fakeClassifier{name: "ai", result: Classification{Method: MethodAI, Location: "חיפה"}}
	fallback := &fakeClassifier{name: "keyword", result: Classification{Method: MethodKeyword}}

	got, err := NewChain(primary, fallback, zerolog.Nop()).Classify(context.Background(), news.FeedItem{Title: "x"})
	if err != nil {
		t.Fatalf("Classify returned error: %v", err)
	}
	if got.Method != MethodAI || fallback.calls.Load() != 0 {
		t.Fatalf("expected primary result without fallback, got %+v", got)
	}
}

func TestChain_FallsBackOnError(t *testing.T) {
	t.Parallel()

	primary := &fakeClassifier{name: "ai", err: errors.New("timeout")}
	fallback := &fakeClassifier{name: "keyword", result: Classification{Method: MethodKeyword, Location: news.LocationUnknown}}

	got, err := NewChain(primary, fallback, zerolog.Nop()).Classify(context.Background(), news.FeedItem{Title: "x"})
	if err != nil {
		t.Fatalf("Classify returned error: %v", err)
	}
	if got.Method != MethodKeyword {
		t.Fatalf("expected keyword fallback, got %+v", got)
	}
}

func TestChain_BothFail(t *testing.T) {
	t.Parallel()

	primary := &fakeClassifier{name: "ai", err: errors.New("bad json")}
	fallback := &fakeClassifier{name: "keyword", err: errors.New("broken")}

	got, err := NewChain(primary, fallback, zerolog.Nop()).Classify(context.Background(), news.FeedItem{Title: "x"})
	if err == nil {
		t.Fatalf("expected joined error")
	}
	if got.Method != MethodFailed || got.Location != news.LocationUnknown {
		t.Fatalf("unexpected failed result: %+v", got)
	}
}

func TestBuild_KeywordOnly(t *testing.T) {
	t.Parallel()

	chain, err := Build(Settings{Provider: " Keyword "}, location.DefaultTables(), zerolog.Nop())
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	if chain.Name() != "keyword" {
		t.Fatalf("unexpected chain name: %q", chain.Name())
	}
}

func TestBuild_HostedWithFallback(t *testing.T) {
	t.Parallel()

	chain, err := Build(Settings{Provider: "anthropic"}, location.DefaultTables(), zerolog.Nop())
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	if chain.Name() != "ai:anthropic+keyword" {
		t.Fatalf("unexpected chain name: %q", chain.Name())
	}
	if _, err := Build(Settings{Provider: "gemini"}, location.DefaultTables(), zerolog.Nop()); !errors.Is(err, ErrNoProvider) {
		t.Fatalf("expected ErrNoProvider, got %v", err)
	}
}

func TestRegistry_ProviderNames(t *testing.T) {
	t.Parallel()

	r := NewRegistryFromSettings("OpenAI", ProviderSettings{})
	if r.DefaultProvider() != "openai" {
		t.Fatalf("unexpected default: %q", r.DefaultProvider())
	}
	names := r.ProviderNames()
	if len(names) != 2 || names[0] != "anthropic" || names[1] != "openai" {
		t.Fatalf("unexpected provider names: %v", names)
	}
	p, err := r.Provider("")
	if err != nil || p.Name() != "openai" {
		t.Fatalf("expected default openai provider, got %v err=%v", p, err)
	}
}

type orderRecorder struct {
	mu     sync.Mutex
	starts []time.Time
}

func (o *orderRecorder) Name() string { return "recorder" }

func (o *orderRecorder) Classify(_ context.Context, item news.FeedItem) (Classification, error) {
	o.mu.Lock()
	o.starts = append(o.starts, time.Now())
	o.mu.Unlock()
	if item.Title == "bad" {
		return failed(item), fmt.Errorf("cannot classify %s", item.Link)
	}
	return Classification{Title: item.Title, Method: MethodKeyword}, nil
}

func TestBatchClassifier_PreservesOrderAndPaces(t *testing.T) {
	t.Parallel()

	items := []news.FeedItem{
		{Link: "1", Title: "a"}, {Link: "2", Title: "b"}, {Link: "3", Title: "bad"},
		{Link: "4", Title: "d"}, {Link: "5", Title: "e"},
	}
	rec := &orderRecorder{}
	delay := 40 * time.Millisecond
	batcher := NewBatchClassifier(rec, 2, delay, zerolog.Nop())

	started := time.Now()
	outcomes, err := batcher.ClassifyAll(context.Background(), items)
	if err != nil {
		t.Fatalf("ClassifyAll returned error: %v", err)
	}
	if len(outcomes) != len(items) {
		t.Fatalf("expected %d outcomes, got %d", len(items), len(outcomes))
	}
	for i, outcome := range outcomes {
		if outcome.Item.Link != items[i].Link {
			t.Fatalf("outcome %d out of order: %q", i, outcome.Item.Link)
		}
	}
	if outcomes[2].Err == nil || outcomes[2].Classification.Method != MethodFailed {
		t.Fatalf("expected failure to be carried in outcome: %+v", outcomes[2])
	}
	// Three batches need two waits between them.
	if elapsed := time.Since(started); elapsed < 2*delay-10*time.Millisecond {
		t.Fatalf("expected inter-batch pacing, finished in %s", elapsed)
	}
}

func TestBatchClassifier_CancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	batcher := NewBatchClassifier(&orderRecorder{}, 1, time.Hour, zerolog.Nop())
	_, err := batcher.ClassifyAll(ctx, []news.FeedItem{{Link: "1"}, {Link: "2"}})
	if err == nil {
		t.Fatalf("expected context error")
	}
}
