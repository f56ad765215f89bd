// Package sse implements a Server-Sent Events broker announcing index
// changes.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/starford/folio/internal/models"
)

const (
	defaultWidgetsThrottle = 2 * time.Second
	defaultHeartbeat       = 30 * time.Second
	clientBuffer           = 64

	// retryMillis is the reconnect delay suggested to clients.
	retryMillis = 3000
)

// Event represents an SSE event to broadcast.
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// ChangeData is the payload of a document change event.
type ChangeData struct {
	URL  string `json:"url"`
	Name string `json:"name"`
	Kind string `json:"kind"`
}

// WidgetsData is the payload of widgets.updated. URL is the entry whose
// change last invalidated the widgets.
type WidgetsData struct {
	URL string `json:"url"`
}

type changeReq struct {
	change string
	doc    *models.Document
}

// Option configures a Broker.
type Option func(*Broker)

// WithHeartbeat sets how often idle connections receive a keep-alive
// comment.
func WithHeartbeat(d time.Duration) Option {
	return func(b *Broker) {
		if d > 0 {
			b.heartbeat = d
		}
	}
}

// Broker fans index change events out to SSE clients.
//
// A single event loop owns the client set, the event sequence and the
// widgets throttle. Public methods talk to it over channels.
type Broker struct {
	widgetsMin time.Duration
	heartbeat  time.Duration

	subscribeCh   chan chan []byte
	unsubscribeCh chan chan []byte
	publishCh     chan Event
	changeCh      chan changeReq
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker creates a new SSE broker. widgets.updated is sent at most once
// per widgetsThrottle; changes inside the window are coalesced into one
// trailing event.
func NewBroker(widgetsThrottle time.Duration, opts ...Option) *Broker {
	if widgetsThrottle <= 0 {
		widgetsThrottle = defaultWidgetsThrottle
	}

	b := &Broker{
		widgetsMin:    widgetsThrottle,
		heartbeat:     defaultHeartbeat,
		subscribeCh:   make(chan chan []byte),
		unsubscribeCh: make(chan chan []byte),
		publishCh:     make(chan Event, 256),
		changeCh:      make(chan changeReq, 256),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}

	go b.run()
	return b
}

// frame renders one SSE message.
func frame(id uint64, event Event) ([]byte, error) {
	payload, err := json.Marshal(event.Data)
	if err != nil {
		return nil, err
	}
	return fmt.Appendf(nil, "id: %d\nevent: %s\ndata: %s\n\n", id, event.Type, payload), nil
}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[chan []byte]struct{})
	var seq uint64

	var lastWidgets time.Time
	var pendingURL string
	var trailing *time.Timer
	var trailingCh <-chan time.Time

	broadcast := func(event Event) {
		raw, err := frame(seq+1, event)
		if err != nil {
			return
		}
		seq++
		for ch := range clients {
			select {
			case ch <- raw:
			default:
				// Slow client; drop rather than stall the loop.
			}
		}
	}

	sendWidgets := func(url string) {
		lastWidgets = time.Now()
		pendingURL = ""
		broadcast(Event{Type: "widgets.updated", Data: WidgetsData{URL: url}})
	}

	for {
		select {
		case <-b.stopCh:
			if trailing != nil {
				trailing.Stop()
			}
			for ch := range clients {
				close(ch)
			}
			return

		case ch := <-b.subscribeCh:
			clients[ch] = struct{}{}

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case event := <-b.publishCh:
			broadcast(event)

		case req := <-b.changeCh:
			switch req.change {
			case "created", "updated", "deleted":
			default:
				continue
			}
			broadcast(Event{
				Type: string(req.doc.Kind) + "." + req.change,
				Data: ChangeData{URL: req.doc.ID, Name: req.doc.Name, Kind: string(req.doc.Kind)},
			})

			// Pages do not feed the widgets.
			if req.doc.Kind != models.KindEntry {
				continue
			}
			wait := b.widgetsMin - time.Since(lastWidgets)
			if wait <= 0 {
				sendWidgets(req.doc.ID)
				continue
			}
			if pendingURL == "" {
				trailing = time.NewTimer(wait)
				trailingCh = trailing.C
			}
			pendingURL = req.doc.ID

		case <-trailingCh:
			trailingCh = nil
			if pendingURL != "" {
				sendWidgets(pendingURL)
			}

		case resp := <-b.countReqCh:
			resp <- len(clients)
		}
	}
}

// Close gracefully stops broker loop and closes all client channels.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe adds a new client and returns its channel.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, clientBuffer)
	if b.closed.Load() {
		close(ch)
		return ch
	}

	select {
	case b.subscribeCh <- ch:
	case <-b.stopped:
		close(ch)
	}

	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.unsubscribeCh <- ch:
	case <-b.stopped:
	}
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}

	resp := make(chan int, 1)
	select {
	case b.countReqCh <- resp:
	case <-b.stopped:
		return 0
	}

	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// Publish sends an event to all connected clients.
func (b *Broker) Publish(event Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- event:
	case <-b.stopped:
	}
}

// PublishChange publishes "<kind>.<change>" for doc (entry.created,
// page.deleted, ...) and, for entries, a throttled widgets.updated event.
// change is one of "created", "updated", "deleted"; anything else is
// ignored.
func (b *Broker) PublishChange(change string, doc *models.Document) {
	if b.closed.Load() || doc == nil {
		return
	}
	select {
	case b.changeCh <- changeReq{change: change, doc: doc}:
	case <-b.stopped:
	}
}

// ServeHTTP is the SSE endpoint handler (GET /api/events).
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "retry: %d\n\n", retryMillis)
	flusher.Flush()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	ping := time.NewTicker(b.heartbeat)
	defer ping.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ping.C:
			_, _ = w.Write([]byte(": ping\n\n"))
			flusher.Flush()
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
