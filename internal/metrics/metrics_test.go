package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPipelineCounters(t *testing.T) {
	t.Parallel()

	m := New()
	m.FeedItems("ynet", 3)
	m.FeedItems("ynet", 0)
	m.DedupDrop("seen_link")
	m.DedupDrop("seen_link")
	m.Notification("sent", "exact")

	if got := testutil.ToFloat64(m.itemsFetched.WithLabelValues("ynet")); got != 3 {
		t.Fatalf("unexpected fetched count: %v", got)
	}
	if got := testutil.ToFloat64(m.dedupDrops.WithLabelValues("seen_link")); got != 2 {
		t.Fatalf("unexpected drop count: %v", got)
	}

	started := time.Unix(1700000000, 0)
	m.CycleDone(started, started.Add(2*time.Second))
	if got := testutil.ToFloat64(m.lastCycle); got != 1700000002 {
		t.Fatalf("unexpected last cycle gauge: %v", got)
	}
}

func TestPipelineHandlerExposesMetrics(t *testing.T) {
	t.Parallel()

	m := New()
	m.Classified("keyword", true)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `newsalert_classifications_total{method="keyword",security="true"} 1`) {
		t.Fatalf("expected classification counter in output:\n%s", body)
	}
}

func TestNilPipelineIsNoop(t *testing.T) {
	t.Parallel()

	var m *Pipeline
	m.FeedItems("x", 1)
	m.FeedError("x")
	m.DedupDrop("x")
	m.Classified("x", false)
	m.AlertStored(true)
	m.Notification("sent", "exact")
	m.CycleDone(time.Now(), time.Now())
}
