package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"cache-countdown-api/internal/cache"
	"cache-countdown-api/internal/models"
	"cache-countdown-api/internal/realtime"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Query values for the ttl parameter of GET /api/values/:tag.
const (
	TTLForever = "forever"
	TTLNone    = "none"
)

var errProducerFailed = errors.New("snapshot producer failed")

// CacheHandler serves cached snapshots through a Coordinator.
type CacheHandler struct {
	coordinator *cache.Coordinator[models.Snapshot]
	hub         *realtime.Hub
	stats       *Stats
	logger      *zap.Logger

	defaultTTL time.Duration
	// watchInterval is how often a websocket with no running countdown
	// checks for a new one.
	watchInterval time.Duration

	sequence atomic.Int64
}

// NewCacheHandler builds a handler. stats should be the Metrics the
// coordinator reports to.
func NewCacheHandler(coordinator *cache.Coordinator[models.Snapshot], hub *realtime.Hub, stats *Stats, defaultTTL, watchInterval time.Duration, logger *zap.Logger) *CacheHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if stats == nil {
		stats = &Stats{}
	}
	if watchInterval <= 0 {
		watchInterval = time.Second
	}
	return &CacheHandler{
		coordinator:   coordinator,
		hub:           hub,
		stats:         stats,
		logger:        logger,
		defaultTTL:    defaultTTL,
		watchInterval: watchInterval,
	}
}

// ValueResponse is returned by GET /api/values/:tag.
type ValueResponse struct {
	Value       models.Snapshot `json:"value"`
	Cached      bool            `json:"cached"`
	RemainingMs *int64          `json:"remainingMs,omitempty"`
}

// GetValue returns the snapshot for a tag, producing a new one on a miss.
// GET /api/values/:tag?ttl=10s|forever|none&fail=true
func (h *CacheHandler) GetValue(c *gin.Context) {
	tag := c.Param("tag")
	entry, err := h.entryFor(tag, c.Query("ttl"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	fail := c.Query("fail") == "true"

	v, hit, err := h.coordinator.Fetch(c.Request.Context(), entry, func(ctx context.Context) (models.Snapshot, error) {
		if fail {
			return models.Snapshot{}, errProducerFailed
		}
		return models.Snapshot{
			Tag:         tag,
			Sequence:    h.sequence.Add(1),
			GeneratedAt: time.Now().UTC(),
		}, nil
	})
	if err != nil {
		if errors.Is(err, errProducerFailed) {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("get value", zap.String("tag", tag), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load value"})
		return
	}

	resp := ValueResponse{Value: v, Cached: hit}
	// A bypassed call is not tied to whatever countdown the tag has.
	if entry != nil {
		if d, ok := h.coordinator.TimeLeft(tag).Get(); ok {
			ms := d.Milliseconds()
			resp.RemainingMs = &ms
		}
	}
	c.JSON(http.StatusOK, resp)
}

// Exists reports whether a fresh value is cached.
// GET /api/values/:tag/exists
func (h *CacheHandler) Exists(c *gin.Context) {
	tag := c.Param("tag")
	ok, err := h.coordinator.Exists(c.Request.Context(), tag)
	if err != nil {
		h.logger.Error("exists", zap.String("tag", tag), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check value"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"tag": tag, "exists": ok})
}

// TimeLeft returns the running countdown of a tag.
// GET /api/values/:tag/ttl
func (h *CacheHandler) TimeLeft(c *gin.Context) {
	tag := c.Param("tag")
	d, ok := h.coordinator.TimeLeft(tag).Get()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "No countdown running for tag"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"tag": tag, "remainingMs": d.Milliseconds()})
}

// Delete evicts a tag.
// DELETE /api/values/:tag
func (h *CacheHandler) Delete(c *gin.Context) {
	tag := c.Param("tag")
	if err := h.coordinator.Remove(c.Request.Context(), tag); err != nil {
		h.logger.Error("remove", zap.String("tag", tag), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to remove value"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Value removed"})
}

// Clear evicts everything.
// DELETE /api/values
func (h *CacheHandler) Clear(c *gin.Context) {
	if err := h.coordinator.ClearAll(c.Request.Context()); err != nil {
		h.logger.Error("clear", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to clear cache"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Cache cleared"})
}

// GetStats returns the coordinator counters.
// GET /api/stats
func (h *CacheHandler) GetStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.stats.Snapshot())
}

// entryFor maps the ttl query value to an entry. A nil entry disables caching.
func (h *CacheHandler) entryFor(tag, ttl string) (*cache.Entry, error) {
	switch strings.ToLower(strings.TrimSpace(ttl)) {
	case "":
		if h.defaultTTL <= 0 {
			return cache.Forever(tag), nil
		}
		return cache.ExpiresIn(tag, h.defaultTTL), nil
	case TTLForever:
		return cache.Forever(tag), nil
	case TTLNone:
		return nil, nil
	}
	d, err := time.ParseDuration(ttl)
	if err != nil {
		return nil, fmt.Errorf("invalid ttl %q", ttl)
	}
	if d <= 0 {
		return nil, fmt.Errorf("ttl must be positive, got %s", d)
	}
	return cache.ExpiresIn(tag, d), nil
}
