package handlers

import (
	"encoding/json"

	"cache-countdown-api/internal/cache"
	"cache-countdown-api/internal/realtime"

	"go.uber.org/zap"
)

// Event types pushed to websocket clients.
const (
	EventRemaining         = "remaining"
	EventCountdownFinished = "countdown_finished"
	EventCacheExpired      = "cache_expired"
	EventCacheRemoved      = "cache_removed"
	EventCacheCleared      = "cache_cleared"
)

// Event is the websocket message envelope.
type Event struct {
	Type        string `json:"type"`
	Tag         string `json:"tag,omitempty"`
	RemainingMs *int64 `json:"remainingMs,omitempty"`
}

func eventTypeFor(reason cache.EvictReason) string {
	switch reason {
	case cache.EvictExpired:
		return EventCacheExpired
	case cache.EvictRemoved:
		return EventCacheRemoved
	default:
		return EventCacheCleared
	}
}

// BroadcastEvictions returns an eviction listener that forwards coordinator
// evictions to the hub. Clears go to every client.
func BroadcastEvictions(hub *realtime.Hub, logger *zap.Logger) cache.EvictionListener {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(tag string, reason cache.EvictReason) {
		msg, err := json.Marshal(Event{Type: eventTypeFor(reason), Tag: tag})
		if err != nil {
			logger.Error("encode eviction event", zap.Error(err))
			return
		}
		var sent int
		if reason == cache.EvictCleared {
			sent = hub.BroadcastAll(msg)
		} else {
			sent = hub.Broadcast(tag, msg)
		}
		logger.Debug("eviction broadcast",
			zap.String("tag", tag),
			zap.String("reason", string(reason)),
			zap.Int("clients", sent))
	}
}
