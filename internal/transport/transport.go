// Package transport implements the host↔user and host↔hub connection-
// oriented channels of spec.md §6: a per-connection pair of goroutines
// reading and writing framed codec.Envelope values over a
// github.com/gorilla/websocket connection.
//
// Directly generalizes the teacher's ClientConnection/readPump/writePump
// (cmd/gameserver/main.go): the buffered outbound channel, drop-on-full
// send policy, periodic ping, and read-deadline/pong-handler liveness
// check are all kept; only the payload changes, from a raw room-protocol
// byte slice to opaque frame bytes produced by codec.Encode.
package transport

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 1 << 20
	sendBufferSize = 256
)

// Event is delivered on a Conn's Events channel, carrying the Connected,
// Disconnected and Message kinds of spec.md §4.14's event model. There is
// no separate Request kind; requests arrive as EventMessage payloads.
type Event struct {
	Kind    EventKind
	Payload []byte // raw frame bytes for EventMessage
}

type EventKind int

const (
	EventConnected EventKind = iota
	EventDisconnected
	EventMessage
)

// Conn is one live websocket connection, generalizing the teacher's
// ClientConnection to carry opaque frame bytes rather than room-protocol
// messages — callers decode frames with internal/codec.
type Conn struct {
	ws     *websocket.Conn
	log    *slog.Logger
	send   chan []byte
	done   chan struct{}
	Events chan Event
}

// NewConn wraps an already-upgraded websocket connection and starts its
// read/write pumps. Callers must drain Events until it reports
// EventDisconnected.
func NewConn(ws *websocket.Conn, logger *slog.Logger) *Conn {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Conn{
		ws:     ws,
		log:    logger,
		send:   make(chan []byte, sendBufferSize),
		done:   make(chan struct{}),
		Events: make(chan Event, sendBufferSize),
	}
	go c.writePump()
	go c.readPump()
	c.Events <- Event{Kind: EventConnected}
	return c
}

// Send queues a frame for delivery, dropping it silently if the outbound
// buffer is full — a slow client must not stall the sender (teacher's
// ClientConnection.Send, same policy).
func (c *Conn) Send(frame []byte) error {
	select {
	case c.send <- frame:
		return nil
	case <-c.done:
		return fmt.Errorf("transport: connection closed")
	default:
		c.log.Warn("transport: outbound buffer full, dropping frame")
		return nil
	}
}

// Close shuts the connection down. Safe to call more than once.
func (c *Conn) Close() error {
	select {
	case <-c.done:
		return nil
	default:
		close(c.done)
	}
	return c.ws.Close()
}

func (c *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return

		case frame := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.BinaryMessage, frame); err != nil {
				c.Close()
				return
			}

		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}
		}
	}
}

func (c *Conn) readPump() {
	defer func() {
		c.Events <- Event{Kind: EventDisconnected}
		close(c.Events)
		c.Close()
	}()

	c.ws.SetReadLimit(maxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, frame, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Warn("transport: read error", "err", err)
			}
			return
		}
		c.Events <- Event{Kind: EventMessage, Payload: frame}
	}
}
