package chat

import (
	"net/http"
	"time"

	"QChat/logger"
	"QChat/tools/safe"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Server owns the push channel: it upgrades connections, keeps the presence
// registry current and broadcasts presence changes to every client.
type Server struct {
	registry  *Registry
	fanout    *Fanout
	sendQueue int
}

func NewServer() *Server {
	s := &Server{
		registry:  NewRegistry(),
		fanout:    NewFanout(4, 256),
		sendQueue: 32,
	}
	s.registry.OnChange(func(online []string, conns []*Client) {
		s.fanout.Broadcast(conns, BuildPresenceEvent(online))
	})
	return s
}

func (s *Server) Registry() *Registry { return s.registry }

// HandleWS GET /ws?user_id=U opens the long-lived push connection. The identity
// is the handshake parameter; validating it is the auth collaborator's job.
func (s *Server) HandleWS(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "user_id required"})
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Infof("[ws] upgrade error: %v", err)
		return
	}

	client := NewClient(uuid.NewString(), userID, ws, s.sendQueue)
	safe.Go(client.writePump)

	// Registering broadcasts the new online set to everyone, this client
	// included.
	s.registry.Register(client)
	logger.Infof("[ws] user connected user=%s conn=%s", userID, client.ConnID)

	s.readLoop(client)

	s.registry.Unregister(client)
	client.Close()
	logger.Infof("[ws] user disconnected user=%s conn=%s", userID, client.ConnID)
}

// readLoop blocks until the peer goes away. The push channel is server-to-
// client only; inbound frames are drained purely to detect disconnects and
// feed the pong handler.
func (s *Server) readLoop(c *Client) {
	_ = c.WS.SetReadDeadline(time.Now().Add(pongWait))
	c.WS.SetPongHandler(func(string) error {
		return c.WS.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.WS.ReadMessage(); err != nil {
			if websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				logger.Debug("[ws] peer closed conn=" + c.ConnID)
			} else {
				logger.Infof("[ws] read err conn=%s err=%v", c.ConnID, err)
			}
			return
		}
	}
}
