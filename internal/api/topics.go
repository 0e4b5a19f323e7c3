package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/today-red-note/rednote/internal/cache"
)

const (
	trendingTopicsLimit = 20
	trendingTopicsTTL   = 5 * time.Minute
)

// trendingTopics handles GET /api/topics/trending
func (r *Router) trendingTopics(c *gin.Context) {
	ctx := c.Request.Context()
	key := cache.HashKey("topics", "trending")

	if cached, err := r.cache.Get(ctx, key); err == nil {
		c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(cached))
		return
	}

	topics, err := r.topics.Trending(ctx, trendingTopicsLimit)
	if err != nil {
		r.logger.Error("trending topics failed", zap.Error(err))
		respondInternal(c)
		return
	}

	body, err := json.Marshal(gin.H{"topics": topics})
	if err != nil {
		respondInternal(c)
		return
	}

	if err := r.cache.Set(ctx, key, string(body), trendingTopicsTTL); err != nil && err != cache.ErrCacheDisabled {
		r.logger.Warn("trending topics cache write failed", zap.Error(err))
	}

	c.Data(http.StatusOK, "application/json; charset=utf-8", body)
}
