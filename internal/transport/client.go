package transport

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	apperrors "github.com/ThakurMayank5/Telestrations-Server/internal/errors"
)

// Options tune every connection.
type Options struct {
	WriteWait      time.Duration
	PongWait       time.Duration
	MaxMessageSize int64
	SendBuffer     int
	// RateLimit is the sustained number of requests per second a client may
	// send; RateBurst the size of a burst above it.
	RateLimit float64
	RateBurst int
}

func DefaultOptions() Options {
	return Options{
		WriteWait:      10 * time.Second,
		PongWait:       60 * time.Second,
		MaxMessageSize: 2 << 20, // drawings arrive as data URLs
		SendBuffer:     256,
		RateLimit:      10,
		RateBurst:      20,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.WriteWait <= 0 {
		o.WriteWait = d.WriteWait
	}
	if o.PongWait <= 0 {
		o.PongWait = d.PongWait
	}
	if o.MaxMessageSize <= 0 {
		o.MaxMessageSize = d.MaxMessageSize
	}
	if o.SendBuffer <= 0 {
		o.SendBuffer = d.SendBuffer
	}
	if o.RateLimit <= 0 {
		o.RateLimit = d.RateLimit
	}
	if o.RateBurst <= 0 {
		o.RateBurst = d.RateBurst
	}
	return o
}

func (o Options) pingPeriod() time.Duration {
	return o.PongWait * 9 / 10
}

// Client is one websocket connection.
type Client struct {
	ID      string
	hub     *Hub
	conn    *websocket.Conn
	send    chan []byte
	limiter *rate.Limiter
	opts    Options
	logger  *zap.Logger
}

func newClient(hub *Hub, conn *websocket.Conn, opts Options, logger *zap.Logger) *Client {
	id := uuid.New().String()
	return &Client{
		ID:      id,
		hub:     hub,
		conn:    conn,
		send:    make(chan []byte, opts.SendBuffer),
		limiter: rate.NewLimiter(rate.Limit(opts.RateLimit), opts.RateBurst),
		opts:    opts,
		logger:  logger.With(zap.String("conn", id)),
	}
}

// readPump decodes frames and hands them to dispatch until the connection
// fails. It returns when the client is gone.
func (c *Client) readPump(dispatch func(*Client, Message)) {
	c.conn.SetReadLimit(c.opts.MaxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(c.opts.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.opts.PongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.logger.Warn("websocket read error", zap.Error(err))
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil || msg.Type == "" {
			c.reply(msg.ID, failure(apperrors.New(apperrors.ErrInvalidMessage)))
			continue
		}
		if !c.limiter.Allow() {
			c.reply(msg.ID, failure(apperrors.New(apperrors.ErrRateLimited)))
			continue
		}
		dispatch(c, msg)
	}
}

// writePump drains the send buffer and keeps the connection alive with
// pings. One message per frame.
func (c *Client) writePump() {
	ticker := time.NewTicker(c.opts.pingPeriod())
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// reply queues an ack for request id.
func (c *Client) reply(id string, ack Ack) {
	if err := c.hub.SendToClient(c.ID, Outbound{Type: TypeAck, ID: id, Data: ack}); err != nil {
		c.logger.Warn("ack dropped", zap.String("id", id), zap.Error(err))
	}
}
