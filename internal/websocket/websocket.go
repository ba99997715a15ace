package websocket

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"screenshot-organizer/internal/organizer"
	"screenshot-organizer/internal/tools"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// incoming messages carry a raw payload decoded per type
type inbound struct {
	Type    string   `json:"type"`
	ID      string   `json:"id"`
	Payload ToolCall `json:"payload"`
}

type ToolCall struct {
	Name      string            `json:"name"`
	Arguments map[string]string `json:"arguments"`
}

type ProgressUpdate struct {
	ID          string `json:"id,omitempty"`
	Tool        string `json:"tool"`
	Current     int    `json:"current"`
	Total       int    `json:"total"`
	Description string `json:"description"`
}

type ToolResult struct {
	ID     string `json:"id,omitempty"`
	Tool   string `json:"tool"`
	Result string `json:"result"`
}

type Handler struct {
	tools  *tools.Service
	logger *slog.Logger
}

func NewHandler(toolService *tools.Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handler{
		tools:  toolService,
		logger: logger.With("component", "websocket"),
	}
}

// connection serializes writes; gorilla connections allow one writer.
type connection struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade error", "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	var wg sync.WaitGroup
	defer func() {
		cancel()
		wg.Wait()
	}()

	c := &connection{conn: conn}

	for {
		var msg inbound
		if err := conn.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Warn("websocket read error", "error", err)
			}
			break
		}

		switch msg.Type {
		case "call_tool":
			wg.Add(1)
			go func(msg inbound) {
				defer wg.Done()
				h.handleToolCall(ctx, c, msg)
			}(msg)
		case "list_tools":
			h.sendMessage(c, "tools", tools.Definitions())
		default:
			h.sendError(c, "unknown message type: "+msg.Type)
		}
	}
}

func (h *Handler) handleToolCall(ctx context.Context, c *connection, msg inbound) {
	call := msg.Payload
	progress := func(p organizer.Progress) {
		h.sendMessage(c, "progress", ProgressUpdate{
			ID:          msg.ID,
			Tool:        call.Name,
			Current:     p.Current,
			Total:       p.Total,
			Description: p.File.OriginalName + " -> " + p.File.NewName,
		})
	}

	result, err := h.tools.Call(ctx, call.Name, call.Arguments, progress)
	if err != nil {
		h.sendError(c, err.Error())
		return
	}
	h.sendMessage(c, "result", ToolResult{ID: msg.ID, Tool: call.Name, Result: result})
}

func (h *Handler) sendMessage(c *connection, msgType string, payload interface{}) {
	msg := Message{
		Type:    msgType,
		Payload: payload,
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.WriteJSON(msg); err != nil {
		h.logger.Warn("websocket write error", "error", err)
	}
}

func (h *Handler) sendError(c *connection, errorMsg string) {
	h.sendMessage(c, "error", map[string]string{"error": errorMsg})
}
