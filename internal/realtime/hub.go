package realtime

import (
	"encoding/json"
	"log"
)

// Hub owns the live subscriber set. Register, unregister and publish all
// funnel through the run loop, so the set itself needs no lock.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Publish serializes the event once and queues it for delivery to every
// live subscriber. It never blocks the caller: if the broadcast queue is
// full the event is dropped (clients recover via the poll endpoints).
func (h *Hub) Publish(evt Event) {
	msg, err := json.Marshal(evt)
	if err != nil {
		log.Printf("[hub] marshal %s failed: %v", evt.Type, err)
		return
	}
	select {
	case h.broadcast <- msg:
	default:
		log.Printf("[hub] broadcast queue full, dropped %s", evt.Type)
	}
}

func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.clients[c] = true
			log.Printf("[hub] client %s connected (%d total)", c.id, len(h.clients))
		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
				log.Printf("[hub] client %s disconnected (%d total)", c.id, len(h.clients))
			}
		case msg := <-h.broadcast:
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					// dead or too slow: drop it, delivery to the
					// rest must not stall
					delete(h.clients, c)
					close(c.send)
					log.Printf("[hub] client %s evicted (send buffer full)", c.id)
				}
			}
		}
	}
}
