package broadcast

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"horse.fit/newsalert/internal/news"
	"horse.fit/newsalert/internal/notify"
)

type publishedMsg struct {
	subject string
	data    []byte
}

type fakeConn struct {
	published []publishedMsg
	err       error
}

func (f *fakeConn) Publish(subject string, data []byte) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, publishedMsg{subject: subject, data: data})
	return nil
}

func TestNATSPublisherSubjects(t *testing.T) {
	t.Parallel()

	conn := &fakeConn{}
	p, err := NewNATSPublisher(conn, "alerts.new", "alerts.notify")
	if err != nil {
		t.Fatalf("NewNATSPublisher returned error: %v", err)
	}

	alert := news.Alert{ID: "a1", Title: "אזעקה", Location: "חיפה", IsSecurityEvent: true}
	if err := p.PublishAlert(context.Background(), alert); err != nil {
		t.Fatalf("PublishAlert returned error: %v", err)
	}
	if err := p.Send(context.Background(), notify.Message{UserID: "u1", Rule: "exact", Alert: alert}); err != nil {
		t.Fatalf("Send returned error: %v", err)
	}

	if len(conn.published) != 2 {
		t.Fatalf("expected two publishes, got %d", len(conn.published))
	}
	if conn.published[0].subject != "alerts.new" || conn.published[1].subject != "alerts.notify" {
		t.Fatalf("unexpected subjects: %q, %q", conn.published[0].subject, conn.published[1].subject)
	}

	var decoded notify.Message
	if err := json.Unmarshal(conn.published[1].data, &decoded); err != nil {
		t.Fatalf("decode push request: %v", err)
	}
	if decoded.UserID != "u1" || decoded.Alert.Location != "חיפה" {
		t.Fatalf("unexpected push request: %+v", decoded)
	}
}

func TestNATSPublisherWrapsErrors(t *testing.T) {
	t.Parallel()

	p, err := NewNATSPublisher(&fakeConn{err: errors.New("nats: connection closed")}, "a", "b")
	if err != nil {
		t.Fatalf("NewNATSPublisher returned error: %v", err)
	}
	err = p.Send(context.Background(), notify.Message{UserID: "u1"})
	if err == nil || !strings.Contains(err.Error(), "user_id=u1") {
		t.Fatalf("expected wrapped send error, got %v", err)
	}
}

func TestNewNATSPublisherRequiresSubjects(t *testing.T) {
	t.Parallel()

	if _, err := NewNATSPublisher(&fakeConn{}, "alerts.new", " "); err == nil {
		t.Fatalf("expected error for empty notify subject")
	}
	if _, err := NewNATSPublisher(nil, "a", "b"); err == nil {
		t.Fatalf("expected error for nil connection")
	}
}

type recordingPublisher struct {
	ids []string
	err error
}

func (r *recordingPublisher) PublishAlert(_ context.Context, alert news.Alert) error {
	r.ids = append(r.ids, alert.ID)
	return r.err
}

func TestFanoutJoinsErrors(t *testing.T) {
	t.Parallel()

	ok := &recordingPublisher{}
	bad := &recordingPublisher{err: errors.New("down")}
	err := Fanout{bad, ok}.PublishAlert(context.Background(), news.Alert{ID: "a1"})
	if err == nil {
		t.Fatalf("expected joined error")
	}
	if len(ok.ids) != 1 || len(bad.ids) != 1 {
		t.Fatalf("expected every target to be called")
	}
}

func TestHubStreamsAlerts(t *testing.T) {
	t.Parallel()

	hub := NewHub(zerolog.Nop(), nil)
	srv := httptest.NewServer(hub)
	defer srv.Close()
	defer hub.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.Clients() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("client never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	alert := news.Alert{ID: "a1", Location: "ירושלים", IsSecurityEvent: true}
	if err := hub.PublishAlert(context.Background(), alert); err != nil {
		t.Fatalf("PublishAlert returned error: %v", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var event Event
	if err := conn.ReadJSON(&event); err != nil {
		t.Fatalf("read event: %v", err)
	}
	if event.Type != "alert" || event.Alert.ID != "a1" || event.Alert.Location != "ירושלים" {
		t.Fatalf("unexpected event: %+v", event)
	}
}

func TestHubRejectsUnknownOrigin(t *testing.T) {
	t.Parallel()

	hub := NewHub(zerolog.Nop(), []string{"https://alerts.example"})
	srv := httptest.NewServer(hub)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	header := map[string][]string{"Origin": {"https://evil.example"}}
	if _, _, err := websocket.DefaultDialer.Dial(wsURL, header); err == nil {
		t.Fatalf("expected handshake to fail for unlisted origin")
	}
}
