package sse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/starford/folio/internal/models"
)

func entryDoc(id string) *models.Document {
	return &models.Document{ID: id, Kind: models.KindEntry, Name: "hello"}
}

// drain collects every message currently buffered on ch.
func drain(ch chan []byte) []string {
	var out []string
	for {
		select {
		case msg := <-ch:
			out = append(out, string(msg))
		default:
			return out
		}
	}
}

func TestSubscribeUnsubscribe(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients")
	}
	ch := b.Subscribe()
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}
	b.Unsubscribe(ch)
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after unsub")
	}
}

func TestPublishDelivery(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.Publish(Event{Type: "custom", Data: map[string]string{"k": "v"}})

	select {
	case msg := <-ch:
		s := string(msg)
		if !strings.HasPrefix(s, "id: 1\nevent: custom\ndata: ") || !strings.HasSuffix(s, "\n\n") {
			t.Errorf("malformed frame %q", s)
		}
		if !strings.Contains(s, `"k":"v"`) {
			t.Errorf("missing data in %q", s)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestPublishChange_Payload(t *testing.T) {
	b := NewBroker(time.Minute)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishChange("created", entryDoc("/blog/2023/01/05/a.html"))
	time.Sleep(50 * time.Millisecond)

	msgs := drain(ch)
	if len(msgs) != 2 {
		t.Fatalf("messages = %d, want 2: %q", len(msgs), msgs)
	}
	want := "id: 1\n" + `event: entry.created` + "\n" + `data: {"url":"/blog/2023/01/05/a.html","name":"hello","kind":"entry"}` + "\n\n"
	if msgs[0] != want {
		t.Errorf("frame = %q, want %q", msgs[0], want)
	}
	wantWidgets := "id: 2\n" + `event: widgets.updated` + "\n" + `data: {"url":"/blog/2023/01/05/a.html"}` + "\n\n"
	if msgs[1] != wantWidgets {
		t.Errorf("second frame = %q, want %q", msgs[1], wantWidgets)
	}
}

func countWidgets(msgs []string) (widgets int, last string, changes int) {
	for _, m := range msgs {
		if strings.Contains(m, "widgets.updated") {
			widgets++
			last = m
		} else {
			changes++
		}
	}
	return widgets, last, changes
}

func TestPublishChange_WidgetsThrottle(t *testing.T) {
	b := NewBroker(300 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishChange("created", entryDoc("/a"))
	b.PublishChange("updated", entryDoc("/b"))
	b.PublishChange("deleted", entryDoc("/c"))
	time.Sleep(50 * time.Millisecond)

	widgets, _, changes := countWidgets(drain(ch))
	if changes != 3 {
		t.Errorf("change events = %d, want 3", changes)
	}
	if widgets != 1 {
		t.Errorf("widgets events = %d, want 1 (throttled)", widgets)
	}

	// The changes inside the window collapse into one trailing event.
	time.Sleep(500 * time.Millisecond)
	widgets, last, changes := countWidgets(drain(ch))
	if widgets != 1 || changes != 0 {
		t.Fatalf("trailing widgets = %d, changes = %d, want 1 and 0", widgets, changes)
	}
	if !strings.Contains(last, `"url":"/c"`) {
		t.Errorf("trailing event should name the last change: %q", last)
	}
}

func TestPublishChange_PagesSkipWidgets(t *testing.T) {
	b := NewBroker(time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishChange("updated", &models.Document{ID: "/about.html", Kind: models.KindPage})
	b.PublishChange("renamed", entryDoc("/ignored"))
	time.Sleep(50 * time.Millisecond)

	msgs := drain(ch)
	if len(msgs) != 1 || !strings.HasPrefix(msgs[0], "event: page.updated") {
		t.Errorf("messages = %q", msgs)
	}
}

func TestSSEHandler(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	req = req.WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		b.ServeHTTP(w, req)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client from handler")
	}

	b.PublishChange("deleted", entryDoc("/blog/2023/01/05/a.html"))
	time.Sleep(50 * time.Millisecond)

	cancel()
	<-done

	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("content type = %q", ct)
	}
	body := w.Body.String()
	if !strings.HasPrefix(body, "retry: 3000\n\n") {
		t.Errorf("handler output missing retry hint: %q", body)
	}
	if !strings.Contains(body, "event: entry.deleted") {
		t.Errorf("handler output missing event: %q", body)
	}

	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 0 {
		t.Errorf("client not cleaned up after disconnect")
	}
}

func TestSSEHandler_Heartbeat(t *testing.T) {
	b := NewBroker(time.Second, WithHeartbeat(20*time.Millisecond))
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/api/events", nil).WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		b.ServeHTTP(w, req)
		close(done)
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()
	<-done

	if !strings.Contains(w.Body.String(), ": ping\n\n") {
		t.Errorf("expected heartbeat comment, got %q", w.Body.String())
	}
}

func TestPublishDropsOnFullBuffer(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	// Client buffer holds 64; the rest must be dropped, not block.
	for range 70 {
		b.Publish(Event{Type: "test", Data: map[string]string{"i": "x"}})
	}
}

func TestCloseClosesSubscribersAndStopsOperations(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	ch := b.Subscribe()
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}

	b.Close()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected subscriber channel to be closed")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for channel close")
	}

	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after close")
	}

	// No-ops after close.
	b.Publish(Event{Type: "x"})
	b.PublishChange("updated", entryDoc("/x"))
	b.Close()
}
