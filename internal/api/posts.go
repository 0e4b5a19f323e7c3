package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/today-red-note/rednote/internal/models"
	"github.com/today-red-note/rednote/internal/service"
	"github.com/today-red-note/rednote/internal/storage"
)

// trackTimeout bounds the detached behavior-tracking write.
const trackTimeout = 5 * time.Second

func (r *Router) feedLimit(c *gin.Context) int {
	limit := r.cfg.Feed.DefaultLimit
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
		}
	}
	if limit < 1 {
		limit = 1
	}
	if limit > r.cfg.Feed.MaxLimit {
		limit = r.cfg.Feed.MaxLimit
	}
	return limit
}

func postID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		respondNotFound(c)
		return 0, false
	}
	return id, true
}

// dispatchTracking hands a behavior write to a detached goroutine. The
// response never waits for it; failures feed the log and nothing else.
func (r *Router) dispatchTracking(userID, id int64, action string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), trackTimeout)
		defer cancel()
		if err := r.interests.TrackBehavior(ctx, userID, id, action); err != nil {
			r.logger.Warn("behavior tracking failed",
				zap.Int64("user_id", userID),
				zap.Int64("post_id", id),
				zap.String("action", action),
				zap.Error(err),
			)
		}
	}()
}

// listPosts handles GET /api/posts
func (r *Router) listPosts(c *gin.Context) {
	page, err := r.posts.ListPosts(c.Request.Context(), r.feedLimit(c), c.Query("cursor"))
	if err != nil {
		r.logger.Error("list posts failed", zap.Error(err))
		respondInternal(c)
		return
	}
	c.JSON(http.StatusOK, service.NewPageView(page, storage.QualityThumbnail))
}

// personalizedFeed handles GET /api/posts/feed
func (r *Router) personalizedFeed(c *gin.Context) {
	page, err := r.posts.PersonalizedFeed(c.Request.Context(), UserID(c), r.feedLimit(c), c.Query("cursor"))
	if err != nil {
		r.logger.Error("feed assembly failed", zap.Error(err))
		respondInternal(c)
		return
	}
	c.JSON(http.StatusOK, service.NewPageView(page, storage.QualityThumbnail))
}

// listMyPosts handles GET /api/posts/mine
func (r *Router) listMyPosts(c *gin.Context) {
	page, err := r.posts.ListUserPosts(c.Request.Context(), UserID(c), r.feedLimit(c), c.Query("cursor"))
	if err != nil {
		r.logger.Error("list user posts failed", zap.Error(err))
		respondInternal(c)
		return
	}
	c.JSON(http.StatusOK, service.NewPageView(page, storage.QualityThumbnail))
}

// createPost handles POST /api/posts
func (r *Router) createPost(c *gin.Context) {
	var in service.CreatePostInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	post, err := r.posts.CreatePost(c.Request.Context(), UserID(c), in)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrBodyRequired), errors.Is(err, service.ErrTooManyImages):
			respondError(c, http.StatusBadRequest, err.Error())
		default:
			r.logger.Error("create post failed", zap.Error(err))
			respondInternal(c)
		}
		return
	}
	c.JSON(http.StatusCreated, gin.H{"post": service.NewPostView(post, storage.QualityPreview, false)})
}

// getPost handles GET /api/posts/:id
func (r *Router) getPost(c *gin.Context) {
	id, ok := postID(c)
	if !ok {
		return
	}

	post, err := r.posts.GetPost(c.Request.Context(), id)
	if err != nil {
		r.logger.Error("get post failed", zap.Int64("post_id", id), zap.Error(err))
		respondInternal(c)
		return
	}
	if post == nil {
		respondNotFound(c)
		return
	}

	// A signed-in read is a view signal; never blocks the response.
	if userID := UserID(c); userID != 0 {
		r.dispatchTracking(userID, id, models.ActionView)
	}

	c.JSON(http.StatusOK, gin.H{"post": service.NewPostView(post, storage.QualityPreview, false)})
}

// relatedPosts handles GET /api/posts/:id/related
func (r *Router) relatedPosts(c *gin.Context) {
	id, ok := postID(c)
	if !ok {
		return
	}

	related, err := r.posts.RelatedPosts(c.Request.Context(), id)
	if err != nil {
		r.logger.Error("related posts failed", zap.Int64("post_id", id), zap.Error(err))
		respondInternal(c)
		return
	}
	if related == nil {
		respondNotFound(c)
		return
	}

	views := make([]service.PostView, 0, len(related))
	for i := range related {
		views = append(views, service.NewPostView(&related[i], storage.QualityThumbnail, true))
	}
	c.JSON(http.StatusOK, gin.H{"posts": views})
}

// updatePost handles PUT /api/posts/:id
func (r *Router) updatePost(c *gin.Context) {
	id, ok := postID(c)
	if !ok {
		return
	}

	var in service.UpdatePostInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	post, err := r.posts.UpdatePost(c.Request.Context(), id, UserID(c), in)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrForbidden):
			respondForbidden(c)
		case errors.Is(err, service.ErrBodyRequired), errors.Is(err, service.ErrTooManyImages):
			respondError(c, http.StatusBadRequest, err.Error())
		default:
			r.logger.Error("update post failed", zap.Int64("post_id", id), zap.Error(err))
			respondInternal(c)
		}
		return
	}
	if post == nil {
		respondNotFound(c)
		return
	}
	c.JSON(http.StatusOK, gin.H{"post": service.NewPostView(post, storage.QualityPreview, false)})
}

// deletePost handles DELETE /api/posts/:id
func (r *Router) deletePost(c *gin.Context) {
	id, ok := postID(c)
	if !ok {
		return
	}

	deleted, err := r.posts.DeletePost(c.Request.Context(), id, UserID(c))
	if err != nil {
		if errors.Is(err, service.ErrForbidden) {
			respondForbidden(c)
			return
		}
		r.logger.Error("delete post failed", zap.Int64("post_id", id), zap.Error(err))
		respondInternal(c)
		return
	}
	if !deleted {
		respondNotFound(c)
		return
	}
	c.Status(http.StatusNoContent)
}

// trackAction handles POST /api/posts/:id/actions
func (r *Router) trackAction(c *gin.Context) {
	id, ok := postID(c)
	if !ok {
		return
	}

	var in struct {
		Action string `json:"action"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	switch in.Action {
	case models.ActionView, models.ActionLike, models.ActionCollect, models.ActionShare:
	default:
		respondError(c, http.StatusBadRequest, "Unknown action")
		return
	}

	r.dispatchTracking(UserID(c), id, in.Action)
	c.Status(http.StatusNoContent)
}
