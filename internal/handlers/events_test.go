package handlers

import (
	"encoding/json"
	"sync"
	"testing"

	"cache-countdown-api/internal/cache"
	"cache-countdown-api/internal/realtime"

	"github.com/stretchr/testify/require"
)

type captureClient struct {
	mu     sync.Mutex
	events []Event
}

func (c *captureClient) Send(message []byte) bool {
	var ev Event
	if err := json.Unmarshal(message, &ev); err != nil {
		return false
	}
	c.mu.Lock()
	c.events = append(c.events, ev)
	c.mu.Unlock()
	return true
}

func (c *captureClient) Close() {}

func TestBroadcastEvictions(t *testing.T) {
	hub := realtime.NewHub()
	a, b := &captureClient{}, &captureClient{}
	hub.Register("a", a)
	hub.Register("b", b)

	notify := BroadcastEvictions(hub, nil)
	notify("a", cache.EvictExpired)
	notify("b", cache.EvictRemoved)
	notify("", cache.EvictCleared)

	require.Equal(t, []Event{
		{Type: EventCacheExpired, Tag: "a"},
		{Type: EventCacheCleared},
	}, a.events)
	require.Equal(t, []Event{
		{Type: EventCacheRemoved, Tag: "b"},
		{Type: EventCacheCleared},
	}, b.events)
}
