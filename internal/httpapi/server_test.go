package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/newsalert/internal/db"
	"horse.fit/newsalert/internal/news"
)

type fakeAlertStore struct {
	alerts   []news.Alert
	pingErr  error
	listErr  error
	lastOpts db.AlertListOptions
}

func (f *fakeAlertStore) Ping(context.Context) error {
	return f.pingErr
}

func (f *fakeAlertStore) ListRecentAlerts(_ context.Context, opts db.AlertListOptions) ([]news.Alert, error) {
	f.lastOpts = opts
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]news.Alert, 0, len(f.alerts))
	for _, alert := range f.alerts {
		if opts.SecurityOnly && !alert.IsSecurityEvent {
			continue
		}
		if len(out) == opts.Limit {
			break
		}
		out = append(out, alert)
	}
	return out, nil
}

func (f *fakeAlertStore) GetAlert(_ context.Context, alertID string) (news.Alert, error) {
	for _, alert := range f.alerts {
		if alert.ID == alertID {
			return alert, nil
		}
	}
	return news.Alert{}, db.ErrNoRows
}

type envelope struct {
	Status  string          `json:"status"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

func doGet(t *testing.T, srv *Server, target string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))

	var body envelope
	if rec.Header().Get("Content-Type") != "" && rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode response %q: %v", rec.Body.String(), err)
		}
	}
	return rec, body
}

func testAlerts() []news.Alert {
	ts := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	return []news.Alert{
		{ID: "11111111-1111-1111-1111-111111111111", Title: "נפילה ברמת גן", Location: "רמת גן", IsSecurityEvent: true, Timestamp: ts},
		{ID: "22222222-2222-2222-2222-222222222222", Title: "אזעקה באילת", Location: "אילת", IsSecurityEvent: true, Timestamp: ts},
		{ID: "33333333-3333-3333-3333-333333333333", Title: "תחזית", Location: news.LocationUnknown, Timestamp: ts},
	}
}

func TestHealth(t *testing.T) {
	t.Parallel()

	srv := NewServer(&fakeAlertStore{}, nil, nil, nil, zerolog.Nop(), Options{})
	rec, body := doGet(t, srv, "/api/v1/health")
	if rec.Code != http.StatusOK || body.Status != "success" {
		t.Fatalf("unexpected health response: %d %s", rec.Code, rec.Body.String())
	}

	down := NewServer(&fakeAlertStore{pingErr: errors.New("refused")}, nil, nil, nil, zerolog.Nop(), Options{})
	rec, body = doGet(t, down, "/api/v1/health")
	if rec.Code != http.StatusServiceUnavailable || body.Status != "error" {
		t.Fatalf("unexpected degraded health response: %d %s", rec.Code, rec.Body.String())
	}
}

func TestListAlertsFiltersByUserLocation(t *testing.T) {
	t.Parallel()

	store := &fakeAlertStore{alerts: testAlerts()}
	srv := NewServer(store, nil, nil, nil, zerolog.Nop(), Options{})

	rec, body := doGet(t, srv, "/api/v1/alerts?limit=10&security_only=true&user_location=%D7%AA%D7%9C%20%D7%90%D7%91%D7%99%D7%91")
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d %s", rec.Code, rec.Body.String())
	}
	if store.lastOpts.Limit != maxAlertLimit || !store.lastOpts.SecurityOnly {
		t.Fatalf("unexpected list options: %+v", store.lastOpts)
	}

	var data struct {
		Items []news.Alert `json:"items"`
		Count int          `json:"count"`
	}
	if err := json.Unmarshal(body.Data, &data); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if data.Count != 1 || data.Items[0].Location != "רמת גן" {
		t.Fatalf("expected only the adjacent alert, got %+v", data.Items)
	}
}

func TestListAlertsUserLocationFillsLimit(t *testing.T) {
	t.Parallel()

	ts := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	var alerts []news.Alert
	for i := 0; i < 20; i++ {
		alerts = append(alerts, news.Alert{Title: "אזעקה באילת", Location: "אילת", IsSecurityEvent: true, Timestamp: ts})
	}
	for _, loc := range []string{"חיפה", "נשר", "קריית ים"} {
		alerts = append(alerts, news.Alert{Title: "נפילה", Location: loc, IsSecurityEvent: true, Timestamp: ts})
	}
	store := &fakeAlertStore{alerts: alerts}
	srv := NewServer(store, nil, nil, nil, zerolog.Nop(), Options{})

	rec, body := doGet(t, srv, "/api/v1/alerts?limit=2&user_location=%D7%97%D7%99%D7%A4%D7%94")
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d %s", rec.Code, rec.Body.String())
	}

	var data struct {
		Items   []news.Alert `json:"items"`
		Count   int          `json:"count"`
		Scanned int          `json:"scanned"`
	}
	if err := json.Unmarshal(body.Data, &data); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if data.Count != 2 || data.Items[0].Location != "חיפה" || data.Items[1].Location != "נשר" {
		t.Fatalf("expected the two newest relevant alerts, got %+v", data.Items)
	}
	if data.Scanned != 23 {
		t.Fatalf("expected every stored alert to be scanned, got %d", data.Scanned)
	}

	rec, body = doGet(t, srv, "/api/v1/alerts?limit=2")
	if rec.Code != http.StatusOK || store.lastOpts.Limit != 2 {
		t.Fatalf("unfiltered request should pass the limit through, got %+v", store.lastOpts)
	}
	if err := json.Unmarshal(body.Data, &data); err != nil || data.Count != 2 {
		t.Fatalf("expected two unfiltered alerts, got %+v err=%v", data, err)
	}
}

func TestListAlertsValidatesLimit(t *testing.T) {
	t.Parallel()

	srv := NewServer(&fakeAlertStore{}, nil, nil, nil, zerolog.Nop(), Options{})
	rec, body := doGet(t, srv, "/api/v1/alerts?limit=0")
	if rec.Code != http.StatusBadRequest || body.Status != "fail" {
		t.Fatalf("unexpected response: %d %s", rec.Code, rec.Body.String())
	}
}

func TestListAlertsStoreError(t *testing.T) {
	t.Parallel()

	srv := NewServer(&fakeAlertStore{listErr: errors.New("boom")}, nil, nil, nil, zerolog.Nop(), Options{})
	rec, body := doGet(t, srv, "/api/v1/alerts")
	if rec.Code != http.StatusInternalServerError || body.Status != "error" {
		t.Fatalf("unexpected response: %d %s", rec.Code, rec.Body.String())
	}
}

func TestGetAlert(t *testing.T) {
	t.Parallel()

	srv := NewServer(&fakeAlertStore{alerts: testAlerts()}, nil, nil, nil, zerolog.Nop(), Options{})

	rec, body := doGet(t, srv, "/api/v1/alerts/22222222-2222-2222-2222-222222222222")
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	var alert news.Alert
	if err := json.Unmarshal(body.Data, &alert); err != nil {
		t.Fatalf("decode alert: %v", err)
	}
	if alert.Location != "אילת" {
		t.Fatalf("unexpected alert: %+v", alert)
	}

	rec, _ = doGet(t, srv, "/api/v1/alerts/44444444-4444-4444-4444-444444444444")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown alert, got %d", rec.Code)
	}

	rec, _ = doGet(t, srv, "/api/v1/alerts/not-a-uuid")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid id, got %d", rec.Code)
	}
}

func TestRelevanceExplains(t *testing.T) {
	t.Parallel()

	srv := NewServer(&fakeAlertStore{}, nil, nil, nil, zerolog.Nop(), Options{})
	rec, body := doGet(t, srv, "/api/v1/relevance?alert_location=Tel-Aviv&user_location=%D7%AA%D7%B4%D7%90")
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d %s", rec.Code, rec.Body.String())
	}
	var resp relevanceResponse
	if err := json.Unmarshal(body.Data, &resp); err != nil {
		t.Fatalf("decode relevance: %v", err)
	}
	if !resp.Relevant || resp.Rule != "exact" || resp.NormalizedAlert != "תל אביב-יפו" {
		t.Fatalf("unexpected relevance: %+v", resp)
	}

	rec, _ = doGet(t, srv, "/api/v1/relevance?alert_location=x")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without user_location, got %d", rec.Code)
	}
}

func TestOptionalRoutesMounted(t *testing.T) {
	t.Parallel()

	metricsHandler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("newsalert_up 1\n"))
	})
	srv := NewServer(&fakeAlertStore{}, nil, nil, metricsHandler, zerolog.Nop(), Options{})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "newsalert_up 1\n" {
		t.Fatalf("unexpected metrics response: %d %q", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/stream", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected stream route to be absent, got %d", rec.Code)
	}
}
