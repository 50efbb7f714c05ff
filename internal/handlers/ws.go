package handlers

import (
	"net/http"
	"sync"
	"time"

	"github.com/cas-gradtrack/gradtrack/internal/logger"
	"github.com/cas-gradtrack/gradtrack/internal/types"
	"github.com/cas-gradtrack/gradtrack/internal/utils"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var (
	adminClients   = make(map[*websocket.Conn]uint)
	adminClientsMu sync.RWMutex
	// writes to one connection must not interleave
	adminWriteMu sync.Mutex
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, allowed := range types.AllowedOrigins {
			if origin == allowed {
				return true
			}
		}
		return false
	},
}

// BroadcastRefresh tells every connected admin dashboard to reload its data.
func BroadcastRefresh() {
	adminClientsMu.RLock()
	if len(adminClients) == 0 {
		adminClientsMu.RUnlock()
		return
	}

	clients := make([]*websocket.Conn, 0, len(adminClients))
	for conn := range adminClients {
		clients = append(clients, conn)
	}
	adminClientsMu.RUnlock()

	for _, conn := range clients {
		if err := writeJSON(conn, map[string]string{
			"type":    "refresh",
			"message": "Dashboard data updated",
		}); err != nil {
			logger.LogWarn("Failed to broadcast refresh to client: " + err.Error())
			removeAdminClient(conn)
		}
	}
}

// ConnectedAdmins reports how many dashboards are listening.
func ConnectedAdmins() int {
	adminClientsMu.RLock()
	defer adminClientsMu.RUnlock()
	return len(adminClients)
}

func writeJSON(conn *websocket.Conn, payload interface{}) error {
	adminWriteMu.Lock()
	defer adminWriteMu.Unlock()

	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteJSON(payload)
}

func writePing(conn *websocket.Conn) error {
	adminWriteMu.Lock()
	defer adminWriteMu.Unlock()

	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteMessage(websocket.PingMessage, nil)
}

func removeAdminClient(conn *websocket.Conn) {
	adminClientsMu.Lock()
	_, exists := adminClients[conn]
	delete(adminClients, conn)
	adminClientsMu.Unlock()

	if exists {
		conn.Close()
	}
}

func AdminWebSocket(c *gin.Context) {
	adminID, err := utils.GetCurrentUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.LogError("WebSocket upgrade failed", err)
		return
	}

	conn.SetReadLimit(maxMessageSize)
	if err := conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		logger.LogError("Failed to set initial read deadline", err)
		conn.Close()
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	adminClientsMu.Lock()
	adminClients[conn] = adminID
	adminClientsMu.Unlock()

	defer removeAdminClient(conn)

	if err := writeJSON(conn, map[string]string{
		"type":    "connected",
		"message": "WebSocket connection established",
	}); err != nil {
		logger.LogError("Failed to send welcome message", err)
		return
	}

	done := make(chan struct{})
	defer close(done)

	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()

		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := writePing(conn); err != nil {
					return
				}
			}
		}
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.LogWarn("WebSocket error: " + err.Error())
			}
			return
		}
	}
}
