package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"

	"energy_harmonizer/internal/logger"
	"energy_harmonizer/internal/store"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Trigger starts a pipeline run in the background.
type Trigger interface {
	Trigger(ctx context.Context) error
}

// Handler manages WebSocket connections and routes messages to the runner
// and the store.
type Handler struct {
	hub     *Hub
	trigger Trigger
	store   *store.Store
	log     logger.Logger
}

func NewHandler(hub *Hub, trigger Trigger, st *store.Store) *Handler {
	return &Handler{hub: hub, trigger: trigger, store: st, log: hub.log.WithField("component", "ws")}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Errorf("WebSocket upgrade error: %v", err)
		return
	}

	client := &Client{
		hub:  h.hub,
		conn: conn,
		send: make(chan []byte, 256),
	}

	h.hub.Register(client)
	go client.writePump()

	h.sendRuns(client)

	h.readPump(client)
}

func (h *Handler) readPump(c *Client) {
	defer func() {
		h.hub.Unregister(c)
		c.conn.Close()
	}()

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Warnf("WebSocket read error: %v", err)
			}
			return
		}

		h.handleMessage(c, msg)
	}
}

func (h *Handler) handleMessage(c *Client, msg []byte) {
	var env Envelope
	if err := json.Unmarshal(msg, &env); err != nil {
		h.sendError(c, fmt.Sprintf("invalid message: %v", err))
		return
	}

	switch env.Type {
	case TypeRunStart:
		// the run outlives the connection
		if err := h.trigger.Trigger(context.Background()); err != nil {
			h.sendError(c, err.Error())
		}

	case TypeRunsList:
		h.sendRuns(c)

	case TypeRowsQuery:
		var p RowsRequestPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			h.sendError(c, fmt.Sprintf("invalid rows:query payload: %v", err))
			return
		}
		h.sendRows(c, p)

	default:
		h.sendError(c, fmt.Sprintf("unknown message type: %s", env.Type))
	}
}

func (h *Handler) sendRuns(c *Client) {
	msg, err := NewEnvelope(TypeRunsLoaded, RunsFromStore(h.store))
	if err != nil {
		h.log.Errorf("Error creating runs:loaded message: %v", err)
		return
	}
	c.trySend(msg)
}

func (h *Handler) sendRows(c *Client, p RowsRequestPayload) {
	rows, err := QueryRows(h.store, p)
	if err != nil {
		h.sendError(c, err.Error())
		return
	}
	msg, err := NewEnvelope(TypeRows, rows)
	if err != nil {
		h.log.Errorf("Error creating rows message: %v", err)
		return
	}
	c.trySend(msg)
}

func (h *Handler) sendError(c *Client, message string) {
	msg, err := NewEnvelope(TypeError, ErrorPayload{Message: message})
	if err != nil {
		return
	}
	c.trySend(msg)
}
