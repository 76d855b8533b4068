package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"threadwatch/internal/logger"
	"threadwatch/internal/repository"
)

const (
	defaultRecentLimit = 20
	maxRecentLimit     = 100
)

type StatusHandler struct {
	posts    *repository.PostRepository
	channels *repository.ChannelRepository
	logger   logger.Logger
}

func NewStatusHandler(posts *repository.PostRepository, channels *repository.ChannelRepository, log logger.Logger) *StatusHandler {
	return &StatusHandler{
		posts:    posts,
		channels: channels,
		logger:   log,
	}
}

func (h *StatusHandler) QueueStats(c *gin.Context) {
	stats, err := h.posts.Stats(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to query queue stats",
			logger.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to query queue stats"})
		return
	}

	c.JSON(http.StatusOK, stats)
}

func (h *StatusHandler) ListChannels(c *gin.Context) {
	channels, err := h.channels.List(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to list channels",
			logger.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list channels"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"channels": channels,
		"count":    len(channels),
	})
}

func (h *StatusHandler) RecentPosts(c *gin.Context) {
	limit := defaultRecentLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > maxRecentLimit {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
			return
		}
		limit = parsed
	}

	posts, err := h.posts.ListRecent(c.Request.Context(), limit)
	if err != nil {
		h.logger.Error("Failed to list recent posts",
			logger.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list recent posts"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"posts": posts,
		"count": len(posts),
	})
}
