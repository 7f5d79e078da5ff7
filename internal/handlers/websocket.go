package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"wager-escrow-backend/internal/models"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebSocketHandler streams every engine event to connected clients so the
// dashboard and indexer can mirror state transitions without polling.
type WebSocketHandler struct {
	hub *WebSocketHub
	log *logrus.Logger
}

type WebSocketHub struct {
	clients    map[*websocket.Conn]string
	register   chan *Client
	unregister chan *Client
	broadcast  chan *Message
}

type Client struct {
	Address string
	Conn    *websocket.Conn
}

type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

func NewWebSocketHandler(log *logrus.Logger) *WebSocketHandler {
	hub := &WebSocketHub{
		clients:    make(map[*websocket.Conn]string),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *Message, 100),
	}

	go hub.run()

	return &WebSocketHandler{hub: hub, log: log}
}

// Publish implements services.EventSink.
func (h *WebSocketHandler) Publish(event *models.Event) {
	select {
	case h.hub.broadcast <- &Message{Type: string(event.Type), Data: event}:
	default:
		h.log.WithField("event", event.Type).Warn("event broadcast buffer full, dropping")
	}
}

func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	address := c.GetString("address")

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.WithError(err).Error("failed to upgrade to WebSocket")
		return
	}

	client := &Client{
		Address: address,
		Conn:    conn,
	}

	h.hub.register <- client

	defer func() {
		h.hub.unregister <- client
		conn.Close()
	}()

	for {
		var msg Message
		err := conn.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.log.WithError(err).Warn("WebSocket error")
			}
			break
		}

		if msg.Type == "PING" {
			conn.WriteJSON(Message{
				Type: "PONG",
				Data: gin.H{"timestamp": time.Now().Unix()},
			})
		}
	}
}

func (hub *WebSocketHub) run() {
	for {
		select {
		case client := <-hub.register:
			hub.clients[client.Conn] = client.Address

		case client := <-hub.unregister:
			delete(hub.clients, client.Conn)

		case message := <-hub.broadcast:
			for conn := range hub.clients {
				conn.WriteJSON(message)
			}
		}
	}
}
