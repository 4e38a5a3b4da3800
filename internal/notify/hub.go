package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Hub delivers envelopes to websocket clients subscribed to their topic.
type Hub struct {
	clients    map[*Client]bool
	topics     map[string]map[*Client]bool
	broadcast  chan Envelope
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.RWMutex
	log        logrus.FieldLogger
}

func NewHub(log logrus.FieldLogger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		topics:     make(map[string]map[*Client]bool),
		broadcast:  make(chan Envelope, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		log:        log,
	}
}

// Run serves registrations and deliveries until ctx is canceled, then closes
// every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			for topic := range client.topics {
				h.join(client, topic)
			}
			h.mu.Unlock()
			h.log.WithField("client_id", client.id).Debug("websocket client registered")

		case client := <-h.unregister:
			h.mu.Lock()
			h.remove(client)
			h.mu.Unlock()
			h.log.WithField("client_id", client.id).Debug("websocket client unregistered")

		case env := <-h.broadcast:
			h.deliver(env)

		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				h.remove(client)
			}
			h.mu.Unlock()
			return
		}
	}
}

// Publish queues payload for the subscribers of topic. A full queue drops it.
func (h *Hub) Publish(topic string, payload any) {
	h.enqueue(Envelope{Topic: topic, Payload: payload, Timestamp: time.Now()})
}

func (h *Hub) enqueue(env Envelope) {
	select {
	case h.broadcast <- env:
	default:
		h.log.WithField("topic", env.Topic).Warn("hub broadcast buffer full, dropping message")
	}
}

func (h *Hub) deliver(env Envelope) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	clients := h.topics[env.Topic]
	if len(clients) == 0 {
		return
	}

	data, err := json.Marshal(env)
	if err != nil {
		h.log.WithField("topic", env.Topic).Errorf("could not marshal envelope: %s", err)
		return
	}

	for client := range clients {
		select {
		case client.send <- data:
		default:
			h.log.WithFields(logrus.Fields{"client_id": client.id, "topic": env.Topic}).Warn("client send buffer full, dropping message")
		}
	}
}

// Subscribers counts the clients currently listening on topic.
func (h *Hub) Subscribers(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}

// ServeWS upgrades the request and subscribes the connection to every
// "topic" query parameter.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Errorf("failed to upgrade websocket connection: %s", err)
		return
	}

	client := newClient(h, conn, r.URL.Query()["topic"])
	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

func (h *Hub) subscribe(client *Client, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !client.closed {
		h.join(client, topic)
	}
}

func (h *Hub) unsubscribe(client *Client, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leave(client, topic)
}

// join and leave expect h.mu to be held.
func (h *Hub) join(client *Client, topic string) {
	if h.topics[topic] == nil {
		h.topics[topic] = make(map[*Client]bool)
	}
	h.topics[topic][client] = true
	client.topics[topic] = true
}

func (h *Hub) leave(client *Client, topic string) {
	if clients, ok := h.topics[topic]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.topics, topic)
		}
	}
	delete(client.topics, topic)
}

func (h *Hub) remove(client *Client) {
	if !h.clients[client] {
		return
	}
	delete(h.clients, client)
	for topic := range client.topics {
		h.leave(client, topic)
	}
	client.closed = true
	close(client.send)
}
