/*
Package api
File: hub.go
Description:
    The WebSocket Hub is the real-time half of the API.

    It maintains a registry of connected clients, each subscribed to one
    game session, and fans battle updates out to the subscribers of the
    session they belong to.

    Architecture:
    - Hub: one per server, run as a goroutine.
    - Client: one browser connection, bound to a session ID.
    - ServeWs: upgrades GET /ws?session={id} to a WebSocket.
*/

package api

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/websocket"
)

// Message types pushed to clients.
const (
	MsgBattleTick = "battle_tick"
	MsgBattleOver = "battle_over"
)

// Message defines the standard JSON envelope for all real-time communication.
type Message struct {
	Type    string      `json:"type"`    // battle_tick, battle_over
	Payload interface{} `json:"payload"` // The actual data (usually a BattleState)
	Sender  string      `json:"sender"`  // Session ID of the origin
}

// envelope routes a serialized message to one session's subscribers.
type envelope struct {
	session string
	data    []byte
}

// Client represents a single connected browser tab.
type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	session string      // Session the client listens to
	send    chan []byte // Buffered channel for outbound messages
}

// Hub maintains the set of active clients and routes messages to them.
type Hub struct {
	clients map[*Client]bool

	broadcast  chan envelope
	register   chan *Client
	unregister chan *Client
}

// NewHub creates a new Hub instance. Run it with `go hub.Run()`.
func NewHub() *Hub {
	return &Hub{
		broadcast:  make(chan envelope, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
	}
}

// Run is the main event loop for the Hub. It blocks.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
			log.Printf("WS: client registered for session %s", client.session)

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}

		case env := <-h.broadcast:
			for client := range h.clients {
				if client.session != env.session {
					continue
				}
				select {
				case client.send <- env.data:
				default:
					// Send buffer full: assume the client hung
					close(client.send)
					delete(h.clients, client)
				}
			}
		}
	}
}

// Publish serializes msg and queues it for every subscriber of session.
func (h *Hub) Publish(session string, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("WS: marshal %s: %v", msg.Type, err)
		return
	}
	h.broadcast <- envelope{session: session, data: data}
}

// upgrader allows any origin, matching the permissive CORS policy of the REST API.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// ServeWs upgrades the request and subscribes the connection to a session.
func ServeWs(hub *Hub, w http.ResponseWriter, r *http.Request) {
	session := r.URL.Query().Get("session")
	if session == "" {
		http.Error(w, "Missing session", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("WS Upgrade Error:", err)
		return
	}

	client := &Client{hub: hub, conn: conn, session: session, send: make(chan []byte, 256)}
	client.hub.register <- client

	go client.writePump()
	go client.readPump()
}

// readPump drains the connection until it closes. Clients never send commands
// over the socket; every action goes through the REST API.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WS Error: %v", err)
			}
			return
		}
	}
}

// writePump pumps messages from the hub to the websocket connection.
func (c *Client) writePump() {
	defer c.conn.Close()

	// Exits when the hub closes c.send
	for message := range c.send {
		w, err := c.conn.NextWriter(websocket.TextMessage)
		if err != nil {
			return
		}
		w.Write(message)

		if err := w.Close(); err != nil {
			return
		}
	}
}
