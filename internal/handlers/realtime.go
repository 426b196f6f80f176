package handlers

import (
	"net/http"
	"time"

	"github.com/collabflow/backend/internal/config"
	"github.com/collabflow/backend/internal/middleware"
	"github.com/collabflow/backend/internal/services"
	"github.com/collabflow/backend/pkg/logger"
	"github.com/collabflow/backend/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

// RealtimeHandler upgrades authenticated requests to websocket connections
// and pumps frames between the socket and the hub.
type RealtimeHandler struct {
	realtime     *services.RealtimeService
	users        middleware.UserFinder
	upgrader     websocket.Upgrader
	pingInterval time.Duration
	maxMessage   int64
}

func NewRealtimeHandler(realtime *services.RealtimeService, users middleware.UserFinder, cfg *config.RealtimeConfig, clientURL string) *RealtimeHandler {
	return &RealtimeHandler{
		realtime: realtime,
		users:    users,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(clientURL),
		},
		pingInterval: time.Duration(cfg.PingIntervalSecond) * time.Second,
		maxMessage:   int64(cfg.MaxMessageBytes),
	}
}

func originChecker(clientURL string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return clientURL == "" || origin == "" || origin == clientURL
	}
}

// Connect authenticates once and upgrades the connection
// GET /api/realtime?token=...
func (h *RealtimeHandler) Connect(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		token, _ = middleware.BearerToken(c.GetHeader("Authorization"))
	}

	user, err := middleware.Authenticate(h.users, token)
	if err != nil {
		response.Error(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warn().Err(err).Uint("user_id", user.ID).Msg("websocket upgrade failed")
		return
	}

	client := h.realtime.Connect(user)
	go h.writePump(conn, client)
	h.readPump(conn, client)
}

func (h *RealtimeHandler) readPump(conn *websocket.Conn, client *services.Client) {
	defer func() {
		h.realtime.Disconnect(client)
		conn.Close()
	}()

	pongWait := 2 * h.pingInterval
	conn.SetReadLimit(h.maxMessage)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn().Err(err).Str("conn_id", client.ID).Msg("websocket read error")
			}
			return
		}
		h.realtime.HandleMessage(client, message)
	}
}

func (h *RealtimeHandler) writePump(conn *websocket.Conn, client *services.Client) {
	ticker := time.NewTicker(h.pingInterval)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case ev, ok := <-client.Send():
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
