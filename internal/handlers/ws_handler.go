package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// wsClient implements realtime.Client by wrapping a websocket connection.
// Writes come from the hub and the countdown pump, so they are serialized.
type wsClient struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsClient) Send(message []byte) bool {
	if c == nil || c.conn == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
		return false
	}
	return true
}

func (c *wsClient) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(5*time.Second))
}

func (c *wsClient) Close() {
	if c != nil && c.conn != nil {
		_ = c.conn.Close()
	}
}

func (c *wsClient) sendEvent(ev Event) bool {
	msg, err := json.Marshal(ev)
	if err != nil {
		return false
	}
	return c.Send(msg)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// CORS is already handled at Gin level; allow upgrade from any origin here
		return true
	},
}

// Watch upgrades the connection, registers it with the hub under the tag and
// streams the tag's countdown.
// GET /ws/values/:tag
func (h *CacheHandler) Watch(c *gin.Context) {
	tag := c.Param("tag")

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade", zap.String("tag", tag), zap.Error(err))
		return
	}

	client := &wsClient{conn: conn}
	h.hub.Register(tag, client)

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		h.pumpCountdown(ctx, tag, client)
	}()

	// Heartbeat: send periodic pings; close on error
	go func() {
		defer wg.Done()
		pingTicker := time.NewTicker(30 * time.Second)
		defer pingTicker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-pingTicker.C:
				if err := client.ping(); err != nil {
					// ping failed; reader loop will exit on next error
					return
				}
			}
		}
	}()
	defer func() {
		cancel()
		h.hub.Unregister(tag, client)
		client.Close()
		wg.Wait()
	}()

	// Reader loop: drain messages and keep connection alive via pong handler
	conn.SetReadLimit(1024)
	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			// Normal close or error; exit loop
			return
		}
	}
}

// pumpCountdown forwards remaining-time values for tag until ctx ends. When
// no countdown is running it checks again every watchInterval, so a value
// cached after the client connected is picked up.
func (h *CacheHandler) pumpCountdown(ctx context.Context, tag string, client *wsClient) {
	for {
		streamed := false
		for d := range h.coordinator.RemainingTime(ctx, tag) {
			streamed = true
			ms := d.Milliseconds()
			if !client.sendEvent(Event{Type: EventRemaining, Tag: tag, RemainingMs: &ms}) {
				return
			}
		}
		if ctx.Err() != nil {
			return
		}
		if streamed {
			zero := int64(0)
			if !client.sendEvent(Event{Type: EventCountdownFinished, Tag: tag, RemainingMs: &zero}) {
				return
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(h.watchInterval):
		}
	}
}
