// Package sse streams object changes to HTTP clients as Server-Sent Events.
//
// A client may narrow its stream to one subtree with ?prefix=. Object events
// go out as they happen; the directories they touch are batched into a single
// listing.updated per flush window.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"path"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/starford/fsdriver/internal/models"
	"github.com/starford/fsdriver/internal/storage"
)

// Stream event names.
const (
	EventCreated        = "object." + models.ChangeCreated
	EventUpdated        = "object." + models.ChangeUpdated
	EventDeleted        = "object." + models.ChangeDeleted
	EventListingUpdated = "listing.updated"
)

const clientBuffer = 64

// ListingUpdate is the payload of listing.updated. Dirs holds the deepest
// directories whose recursive listing changed since the last flush; their
// ancestors changed as well. The root is "".
type ListingUpdate struct {
	Dirs []string `json:"dirs"`
}

type subscription struct {
	prefix string
	ch     chan []byte
}

// Broker fans object changes out to SSE clients.
//
// One goroutine owns the client set, the event sequence and the pending
// directory batch. Public methods reach it over channels.
type Broker struct {
	provider   string
	flushEvery time.Duration

	subscribeCh   chan subscription
	unsubscribeCh chan chan []byte
	changeCh      chan models.ObjectChange
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker creates a broker for a store with the given provider tag.
// listing.updated is sent at most once per flushEvery.
func NewBroker(provider string, flushEvery time.Duration) *Broker {
	if flushEvery <= 0 {
		flushEvery = 2 * time.Second
	}

	b := &Broker{
		provider:      provider,
		flushEvery:    flushEvery,
		subscribeCh:   make(chan subscription),
		unsubscribeCh: make(chan chan []byte),
		changeCh:      make(chan models.ObjectChange, 256),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}

	go b.run()
	return b
}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[chan []byte]string)
	pending := make(map[string]struct{})
	var seq uint64
	var flushTimer *time.Timer
	var flushC <-chan time.Time

	for {
		select {
		case <-b.stopCh:
			if flushTimer != nil {
				flushTimer.Stop()
			}
			for ch := range clients {
				close(ch)
			}
			return

		case sub := <-b.subscribeCh:
			clients[sub.ch] = sub.prefix

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case c := <-b.changeCh:
			name, ok := eventName(c.Kind)
			if !ok {
				continue
			}
			if c.Provider == "" {
				c.Provider = b.provider
			}
			msg, err := frame(seq+1, name, c)
			if err != nil {
				continue
			}
			seq++
			for ch, prefix := range clients {
				if under(prefix, c.Path) || under(c.Path, prefix) {
					deliver(ch, msg)
				}
			}

			pending[parentDir(c.Path)] = struct{}{}
			if flushC == nil {
				flushTimer = time.NewTimer(b.flushEvery)
				flushC = flushTimer.C
			}

		case <-flushC:
			flushC = nil
			dirs := make([]string, 0, len(pending))
			for d := range pending {
				dirs = append(dirs, d)
			}
			clear(pending)
			sort.Strings(dirs)

			seq++
			for ch, prefix := range clients {
				var mine []string
				for _, d := range dirs {
					if under(prefix, d) {
						mine = append(mine, d)
					}
				}
				if len(mine) == 0 {
					continue
				}
				if msg, err := frame(seq, EventListingUpdated, ListingUpdate{Dirs: mine}); err == nil {
					deliver(ch, msg)
				}
			}

		case resp := <-b.countReqCh:
			resp <- len(clients)
		}
	}
}

// deliver drops the message when the client is not keeping up.
func deliver(ch chan []byte, msg []byte) {
	select {
	case ch <- msg:
	default:
	}
}

func frame(id uint64, name string, v any) ([]byte, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return []byte(fmt.Sprintf("id: %d\nevent: %s\ndata: %s\n\n", id, name, payload)), nil
}

func eventName(kind string) (string, bool) {
	switch kind {
	case models.ChangeCreated:
		return EventCreated, true
	case models.ChangeUpdated:
		return EventUpdated, true
	case models.ChangeDeleted:
		return EventDeleted, true
	}
	return "", false
}

// under reports whether p is prefix itself or lies below it.
func under(prefix, p string) bool {
	return prefix == "" || p == prefix || strings.HasPrefix(p, prefix+"/")
}

func parentDir(p string) string {
	d := path.Dir(p)
	if d == "." || d == "/" {
		return ""
	}
	return d
}

// Close stops the broker and closes every client channel.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe registers a client interested in changes at or below prefix
// ("" for the whole store) and returns its channel.
func (b *Broker) Subscribe(prefix string) chan []byte {
	ch := make(chan []byte, clientBuffer)
	if b.closed.Load() {
		close(ch)
		return ch
	}

	select {
	case b.subscribeCh <- subscription{prefix: storage.CleanName(prefix), ch: ch}:
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

// Notify queues a change for delivery. Unknown kinds are dropped; an empty
// Provider is filled with the broker's.
func (b *Broker) Notify(c models.ObjectChange) {
	if b.closed.Load() {
		return
	}
	select {
	case b.changeCh <- c:
	case <-b.stopped:
	}
}

// ServeHTTP is the SSE endpoint handler (GET /api/events[?prefix=dir]).
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Storage-Provider", b.provider)
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.Subscribe(r.URL.Query().Get("prefix"))
	defer b.Unsubscribe(ch)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
