package api

import (
	"encoding/json"
	"io"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"uartbl/driver"
	"uartbl/logger"
	"uartbl/protocol"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type WebRequest struct {
	Command string `json:"command"` // "BOOTLOADER", "DUMP", "PROBE", "STATUS"
	All     bool   `json:"all"`     // PROBE: test every size before reporting
}

type WebResponse struct {
	Status  string      `json:"status"` // "processing", "data", "status", "success", "error"
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// client serialises writes to one websocket connection
type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) send(status, message string, data interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.WriteJSON(WebResponse{Status: status, Message: message, Data: data}); err != nil {
		logger.Debug("websocket write failed: %v", err)
	}
}

type Handler struct {
	Manager *driver.SerialManager
	mu      sync.Mutex // One driver at a time on the port

	clientsMu sync.Mutex
	clients   map[*client]struct{}
}

func NewHandler(manager *driver.SerialManager) *Handler {
	h := &Handler{
		Manager: manager,
		clients: make(map[*client]struct{}),
	}
	manager.State.SetCallback(h.broadcastStatus)
	return h
}

func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("Upgrade error: %v", err)
		return
	}
	c := &client{conn: conn}

	h.clientsMu.Lock()
	h.clients[c] = struct{}{}
	h.clientsMu.Unlock()

	defer func() {
		h.clientsMu.Lock()
		delete(h.clients, c)
		h.clientsMu.Unlock()
		conn.Close()
	}()

	c.send("status", "connected", h.Manager.State.GetStatusInfo())

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			break
		}

		var req WebRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			c.send("error", "Invalid JSON", nil)
			continue
		}

		go h.handleRequest(c, req)
	}
}

func (h *Handler) broadcastStatus(info driver.StatusInfo) {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()
	for c := range h.clients {
		c.send("status", info.Message, info)
	}
}

func (h *Handler) handleRequest(c *client, req WebRequest) {
	if req.Command == "STATUS" {
		c.send("status", "status", h.Manager.State.GetStatusInfo())
		return
	}

	// Try to lock the port
	if !h.mu.TryLock() {
		c.send("error", "Device is busy", nil)
		return
	}
	defer h.mu.Unlock()

	logger.Info("websocket command %s on %s", req.Command, h.Manager.PortName)

	switch req.Command {
	case "BOOTLOADER":
		c.send("processing", "Triggering bootloader...", nil)
		if err := h.Manager.EnterBootloader(); err != nil {
			c.send("error", err.Error(), nil)
			return
		}
		c.send("success", "success: received ACK", nil)

	case "DUMP":
		c.send("processing", "Dumping flash...", nil)
		stats, err := h.Manager.DumpFlash(io.Discard, func(line []byte) {
			c.send("data", string(line), nil)
		})
		if err != nil {
			c.send("error", err.Error(), stats)
			return
		}
		c.send("success", "Done", stats)

	case "PROBE":
		c.send("processing", "Probing receive timeout...", nil)
		report, err := h.Manager.Probe(protocol.ProbeSizes, req.All, func(res driver.ProbeResult) {
			c.send("data", res.String(), nil)
		})
		if err != nil {
			c.send("error", err.Error(), report.Results)
			return
		}
		c.send("success", "All probe sizes passed", report.Results)

	default:
		c.send("error", "Unknown Command", nil)
	}
}
