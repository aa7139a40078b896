package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"solar-parcel-be/internal/dto"
	"solar-parcel-be/internal/pkg/logger"
	"solar-parcel-be/internal/pkg/serverutils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8 * 1024
)

// Searcher runs one streamed search turn.
type Searcher interface {
	Stream(ctx context.Context, req *dto.SearchRequest, emit func(dto.StreamEvent)) (*dto.SearchResponse, error)
}

// Client runs searches for one websocket connection. Each inbound message is a search
// request; its status, result and error events are written back in order.
type Client struct {
	Conn     *websocket.Conn
	Send     chan dto.StreamEvent
	searcher Searcher
	logger   logger.ILogger
}

// ServeWs blocks until the peer disconnects.
func ServeWs(searcher Searcher, conn *websocket.Conn, log logger.ILogger) {
	client := &Client{
		Conn:     conn,
		Send:     make(chan dto.StreamEvent, 64),
		searcher: searcher,
		logger:   log,
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		client.writePump(ctx, cancel)
	}()

	client.readPump(ctx)
	cancel()
	<-done
}

// readPump handles one request at a time. Turns on the same session are serialized anyway.
func (c *Client) readPump(ctx context.Context) {
	defer c.Conn.Close()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		_, raw, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("HTTP", "WebSocket closed unexpectedly", map[string]interface{}{"error": err.Error()})
			}
			return
		}

		var req dto.SearchRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			c.emit(ctx, dto.StreamEvent{Type: dto.StreamEventError, Error: "invalid JSON request"})
			continue
		}
		if err := serverutils.ValidateRequest(req); err != nil {
			var fe *fiber.Error
			msg := err.Error()
			if errors.As(err, &fe) {
				msg = fe.Message
			}
			c.emit(ctx, dto.StreamEvent{Type: dto.StreamEventError, Error: msg})
			continue
		}

		_, _ = c.searcher.Stream(ctx, &req, func(ev dto.StreamEvent) { c.emit(ctx, ev) })
		if ctx.Err() != nil {
			return
		}
	}
}

func (c *Client) emit(ctx context.Context, ev dto.StreamEvent) {
	select {
	case c.Send <- ev:
	case <-ctx.Done():
	}
}

// writePump owns all writes. A failed write cancels ctx so a running search stops.
func (c *Client) writePump(ctx context.Context, cancel context.CancelFunc) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		cancel()
		c.Conn.Close()
	}()

	for {
		select {
		case ev := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-ctx.Done():
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.Conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
