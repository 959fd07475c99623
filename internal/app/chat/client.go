package chat

import (
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"bookchat/internal/pkg/logx"
)

const (
	// timeout for a single write to the websocket.
	writeWait = 10 * time.Second

	// how long the server waits for a pong before considering the peer gone.
	pongWait = 60 * time.Second

	// ping interval, shorter than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// largest inbound frame accepted from a client.
	maxMessageSize = 8192

	// capacity of a client's outbound queue.
	sendBufferSize = 256
)

// Client is one websocket connection. It implements Outbound for the Registry and
// feeds inbound frames to the Dispatcher.
type Client struct {
	id         ConnectionID
	conn       *websocket.Conn
	dispatcher *Dispatcher

	// send is closed exactly once, by Close. mu guards the closed flag against Enqueue.
	send   chan []byte
	mu     sync.Mutex
	closed bool

	logger zerolog.Logger
}

// NewClient wraps an upgraded websocket connection.
func NewClient(conn *websocket.Conn, dispatcher *Dispatcher) *Client {
	return &Client{
		conn:       conn,
		dispatcher: dispatcher,
		send:       make(chan []byte, sendBufferSize),
		logger:     logx.Component("client"),
	}
}

// ID returns the connection identifier assigned by Serve.
func (c *Client) ID() ConnectionID {
	return c.id
}

// Serve registers the connection, starts the write pump and runs the read pump until the
// connection ends. It returns after the disconnect cleanup has run.
func (c *Client) Serve() {
	c.id = c.dispatcher.Manager().Registry().OnConnect(c)
	c.logger = c.logger.With().Str("connection_id", string(c.id)).Logger()

	c.logger.Info().Str("remote_addr", c.conn.RemoteAddr().String()).Msg("Websocket connection established.")

	go c.WritePump()
	c.ReadPump()
}

// Enqueue implements Outbound.
func (c *Client) Enqueue(frame []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}

	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

// Close implements Outbound. The write pump sends a close frame and shuts the socket.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// ReadPump reads frames until the connection fails or closes, then dispatches Disconnect.
func (c *Client) ReadPump() {
	defer c.cleanupOnDisconnect()

	c.conn.SetReadLimit(maxMessageSize)

	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set read deadline")
		return
	}

	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		messageType, frame, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Info().Err(err).Msg("Connection closed unexpectedly")
			}
			return
		}

		if messageType != websocket.TextMessage {
			c.logger.Warn().Int("message_type", messageType).Msg("Ignoring non-text frame")
			continue
		}

		c.handleFrame(frame)
	}
}

// handleFrame dispatches one frame. A panic while handling it is logged and the
// connection keeps reading.
func (c *Client) handleFrame(frame []byte) {
	defer func() {
		if r := recover(); r != nil {
			logx.Error(fmt.Errorf("panic: %v", r), "Recovered from panic while handling inbound frame",
				"connection_id", string(c.id))
		}
	}()

	c.dispatcher.Handle(c.id, frame)
}

func (c *Client) cleanupOnDisconnect() {
	if err := c.dispatcher.Dispatch(c.id, Disconnect{}); err != nil {
		c.logger.Warn().Err(err).Msg("Disconnect dispatch failed")
	}

	if err := c.conn.Close(); err != nil {
		c.logger.Debug().Err(err).Msg("Connection close error")
	}

	c.logger.Info().Msg("Websocket connection cleaned up.")
}

// WritePump drains the send queue to the socket and keeps the connection alive with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()

		if err := c.conn.Close(); err != nil {
			c.logger.Debug().Err(err).Msg("Connection close error in WritePump")
		}
	}()

	for {
		select {
		case frame, ok := <-c.send:
			if !c.writeQueuedFrame(frame, ok) {
				return
			}

		case <-ticker.C:
			if !c.writePing() {
				return
			}
		}
	}
}

// writeQueuedFrame writes one queued frame, or a close frame when the queue was closed.
// It returns false when the pump should stop.
func (c *Client) writeQueuedFrame(frame []byte, ok bool) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline")
		return false
	}

	if !ok {
		if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
			c.logger.Debug().Err(err).Msg("Error writing close message")
		}
		return false
	}

	if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		c.logger.Warn().Err(err).Msg("Error writing message")
		return false
	}

	return true
}

func (c *Client) writePing() bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline on ping")
		return false
	}

	if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		c.logger.Warn().Err(err).Msg("Error writing ping")
		return false
	}

	return true
}
