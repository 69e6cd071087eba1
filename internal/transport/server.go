package transport

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Server upgrades HTTP requests to game connections.
type Server struct {
	hub      *Hub
	router   *Router
	upgrader websocket.Upgrader
	opts     Options
	logger   *zap.Logger
}

// NewServer builds the websocket endpoint. allowOrigin decides which browser
// origins may connect; nil allows all.
func NewServer(hub *Hub, router *Router, opts Options, allowOrigin func(origin string) bool, logger *zap.Logger) *Server {
	s := &Server{
		hub:    hub,
		router: router,
		opts:   opts.withDefaults(),
		logger: logger,
	}
	s.upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || allowOrigin == nil || allowOrigin(origin)
		},
	}
	return s
}

// Handle serves GET /ws. The request goroutine runs the read pump; the
// connection is torn down when it returns.
func (s *Server) Handle(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := newClient(s.hub, conn, s.opts, s.logger)
	s.hub.register(client)
	go client.writePump()

	if err := s.hub.SendToClient(client.ID, Outbound{
		Type: TypeConnected,
		Data: map[string]string{"clientId": client.ID},
	}); err != nil {
		s.logger.Warn("greeting dropped", zap.String("conn", client.ID), zap.Error(err))
	}

	client.readPump(s.router.Dispatch)

	s.router.Disconnected(client)
	s.hub.unregister(client)
}
