// Package realtime relays "new-post" events between connected websocket clients.
package realtime

import (
	"encoding/json"
	"sync"
)

// EventNewPost is the only event the relay forwards.
const EventNewPost = "new-post"

// Message is the frame exchanged with clients. Data is forwarded untouched.
type Message struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type envelope struct {
	from    *Client
	payload []byte
}

// Hub keeps the registry of connected clients. The registry is owned by the Run goroutine;
// every other goroutine talks to it through channels.
type Hub struct {
	clients    map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan envelope
	count      chan chan int
	done       chan struct{}
	closeOnce  sync.Once
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan envelope, 256),
		count:      make(chan chan int),
		done:       make(chan struct{}),
	}
}

// Run fans messages out until Close is called.
func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.clients[c] = struct{}{}
		case c := <-h.unregister:
			h.drop(c)
		case m := <-h.broadcast:
			for c := range h.clients {
				if c == m.from {
					continue
				}
				select {
				case c.send <- m.payload:
				default:
					// slow consumer
					h.drop(c)
				}
			}
		case reply := <-h.count:
			reply <- len(h.clients)
		case <-h.done:
			for c := range h.clients {
				h.drop(c)
			}
			return
		}
	}
}

func (h *Hub) drop(c *Client) {
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// Close disconnects every client and stops Run.
func (h *Hub) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}

// Clients returns the number of registered clients, or 0 once the hub is closed.
func (h *Hub) Clients() int {
	reply := make(chan int, 1)
	select {
	case h.count <- reply:
		return <-reply
	case <-h.done:
		return 0
	}
}

func (h *Hub) join(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) leave(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// publish queues payload for every client except from.
func (h *Hub) publish(from *Client, payload []byte) {
	select {
	case h.broadcast <- envelope{from: from, payload: payload}:
	case <-h.done:
	}
}
