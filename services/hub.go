package services

import (
	"encoding/json"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Event types broadcast on the question feed.
const (
	EventQuestionCreated = "question_created"
	EventAnswerSubmitted = "answer_submitted"
	EventVoteUpdated     = "vote_updated"
	EventAnswerAccepted  = "answer_accepted"
)

// TopicAll subscribes a client to every question's events.
const TopicAll = "all"

// Hub fans out question lifecycle events to websocket subscribers. Each
// client follows a single topic: one question id, or "all" for the global
// feed.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	mutex      sync.RWMutex
}

type Client struct {
	hub    *Hub
	id     string
	socket *websocket.Conn
	send   chan []byte
	topic  string
}

type Message struct {
	Type    string      `json:"type"`
	Topic   string      `json:"topic"`
	Payload interface{} `json:"payload"`
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mutex.Unlock()
			logrus.Infof("Feed client %s subscribed to topic %s - total clients: %d", client.id, client.topic, total)

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				logrus.Infof("Feed client %s unsubscribed from topic %s", client.id, client.topic)
			}
			h.mutex.Unlock()

		case message := <-h.broadcast:
			h.mutex.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.mutex.Unlock()
		}
	}
}

// BroadcastQuestion sends an event to every client following the question
// or the global feed.
func (h *Hub) BroadcastQuestion(questionID uint, eventType string, payload interface{}) {
	topic := strconv.FormatUint(uint64(questionID), 10)
	message := Message{
		Type:    eventType,
		Topic:   topic,
		Payload: payload,
	}

	data, err := json.Marshal(message)
	if err != nil {
		logrus.Errorf("Error marshaling %s event: %v", eventType, err)
		return
	}

	h.mutex.Lock()
	sent := 0
	for client := range h.clients {
		if client.topic != topic && client.topic != TopicAll {
			continue
		}
		select {
		case client.send <- data:
			sent++
		default:
			close(client.send)
			delete(h.clients, client)
		}
	}
	h.mutex.Unlock()

	logrus.Infof("Broadcast %s for question %d to %d clients", eventType, questionID, sent)
}

// ClientCount reports subscribers for a topic; an empty topic counts all
// connected clients.
func (h *Hub) ClientCount(topic string) int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	if topic == "" {
		return len(h.clients)
	}
	count := 0
	for client := range h.clients {
		if client.topic == topic {
			count++
		}
	}
	return count
}

func (h *Hub) RegisterClient(conn *websocket.Conn, topic string) *Client {
	client := &Client{
		hub:    h,
		id:     uuid.NewString(),
		socket: conn,
		send:   make(chan []byte, 256),
		topic:  topic,
	}

	h.register <- client

	go client.writePump()
	go client.readPump()

	return client
}

func (h *Hub) UnregisterClient(client *Client) {
	h.unregister <- client
}

func (c *Client) readPump() {
	defer func() {
		c.hub.UnregisterClient(c)
		c.socket.Close()
	}()

	for {
		_, message, err := c.socket.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logrus.Warnf("Feed read error: %v", err)
			}
			break
		}

		var msg Message
		if err := json.Unmarshal(message, &msg); err != nil {
			logrus.Warnf("Error unmarshaling feed message: %v", err)
			continue
		}

		c.handleMessage(msg)
	}
}

func (c *Client) writePump() {
	defer func() {
		c.socket.Close()
	}()

	for message := range c.send {
		w, err := c.socket.NextWriter(websocket.TextMessage)
		if err != nil {
			return
		}

		w.Write(message)

		if err := w.Close(); err != nil {
			return
		}
	}
	c.socket.WriteMessage(websocket.CloseMessage, []byte{})
}

func (c *Client) handleMessage(msg Message) {
	switch msg.Type {
	case "ping":
		response := Message{Type: "pong", Topic: c.topic, Payload: "pong"}
		data, _ := json.Marshal(response)
		c.send <- data

	case "subscribe":
		// Clients may retarget their subscription without reconnecting.
		if msg.Topic != "" {
			c.hub.mutex.Lock()
			c.topic = msg.Topic
			c.hub.mutex.Unlock()
			logrus.Infof("Feed client %s switched to topic %s", c.id, msg.Topic)
		}

	default:
		logrus.Warnf("Unknown feed message type %q from client %s", msg.Type, c.id)
	}
}
