package events

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	gorillawebsocket "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/hms/hms/internal/platform/apierr"
	"github.com/hms/hms/internal/store"
)

const (
	clientBuffer      = 64
	heartbeatInterval = 25 * time.Second
)

// ClientMessage is what a WebSocket client sends to change its topics.
type ClientMessage struct {
	Action string   `json:"action"`
	Topics []string `json:"topics"`
}

type Handler struct {
	hub       *Hub
	upgrader  gorillawebsocket.Upgrader
	heartbeat time.Duration
}

// NewHandler serves hub. allowedOrigins limits WebSocket upgrades; an empty
// list or "*" accepts any origin.
func NewHandler(hub *Hub, allowedOrigins []string) *Handler {
	return &Handler{
		hub:       hub,
		heartbeat: heartbeatInterval,
		upgrader: gorillawebsocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/events", h.Stream)
	api.GET("/ws", h.Connect)
}

// Stream serves GET /events?topics=bill,hmo_claim as text/event-stream.
func (h *Handler) Stream(c echo.Context) error {
	topics, err := parseTopics(strings.Split(c.QueryParam("topics"), ","))
	if err != nil {
		return err
	}

	client := NewClient(uuid.NewString(), clientBuffer, topics...)
	h.hub.Register(client)
	defer h.hub.Unregister(client)

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set(echo.HeaderCacheControl, "no-cache")
	res.Header().Set(echo.HeaderConnection, "keep-alive")
	res.WriteHeader(http.StatusOK)
	fmt.Fprintf(res, "event: ready\ndata: {\"client_id\":%q}\n\n", client.ID)
	res.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()
	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-client.Send:
			if !ok {
				return nil
			}
			fmt.Fprintf(res, "event: change\ndata: %s\n\n", msg)
			res.Flush()
		case <-ticker.C:
			fmt.Fprint(res, ": ping\n\n")
			res.Flush()
		}
	}
}

// Connect upgrades to a WebSocket. The client starts subscribed to every
// entity and narrows with {"action":"subscribe","topics":[...]}.
func (h *Handler) Connect(c echo.Context) error {
	ws, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return nil
	}

	client := NewClient(uuid.NewString(), clientBuffer)
	h.hub.Register(client)

	go h.writePump(client, ws)
	h.readPump(client, ws)
	return nil
}

func (h *Handler) readPump(client *Client, ws *gorillawebsocket.Conn) {
	defer func() {
		h.hub.Unregister(client)
		ws.Close()
	}()
	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			return
		}
		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		h.apply(client, msg)
	}
}

func (h *Handler) writePump(client *Client, ws *gorillawebsocket.Conn) {
	ticker := time.NewTicker(h.heartbeat)
	defer func() {
		ticker.Stop()
		ws.Close()
	}()
	for {
		select {
		case msg, ok := <-client.Send:
			if !ok {
				_ = ws.WriteMessage(gorillawebsocket.CloseMessage, []byte{})
				return
			}
			if err := ws.WriteMessage(gorillawebsocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := ws.WriteMessage(gorillawebsocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Handler) apply(client *Client, msg ClientMessage) {
	topics, err := parseTopics(msg.Topics)
	if err != nil {
		return
	}
	switch msg.Action {
	case "subscribe":
		client.Subscribe(topics...)
	case "unsubscribe":
		client.Unsubscribe(topics...)
	}
}

func parseTopics(raw []string) ([]string, error) {
	var topics []string
	for _, r := range raw {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		if _, ok := store.ParseEntity(r); !ok {
			return nil, apierr.BadRequest(fmt.Sprintf("unknown topic: %s", r))
		}
		topics = append(topics, r)
	}
	return topics, nil
}

func originChecker(allowed []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || len(allowed) == 0 {
			return true
		}
		for _, a := range allowed {
			if a == "*" || strings.EqualFold(a, origin) {
				return true
			}
		}
		return false
	}
}
