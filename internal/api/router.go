package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/today-red-note/rednote/internal/cache"
	"github.com/today-red-note/rednote/internal/db"
	"github.com/today-red-note/rednote/internal/feed"
	"github.com/today-red-note/rednote/internal/service"
	"github.com/today-red-note/rednote/pkg/config"
	"github.com/today-red-note/rednote/pkg/logging"
)

// Router sets up API routes
type Router struct {
	cfg       *config.Config
	db        *db.DB
	cache     *cache.Cache
	posts     *service.PostService
	drafts    *service.DraftService
	interests *feed.InterestModel
	topics    *db.TopicRepository
	logger    *zap.Logger
}

// NewRouter creates a new API router
func NewRouter(
	cfg *config.Config,
	database *db.DB,
	redisCache *cache.Cache,
	posts *service.PostService,
	drafts *service.DraftService,
	interests *feed.InterestModel,
	topics *db.TopicRepository,
) *Router {
	return &Router{
		cfg:       cfg,
		db:        database,
		cache:     redisCache,
		posts:     posts,
		drafts:    drafts,
		interests: interests,
		topics:    topics,
		logger:    logging.WithComponent("api-router"),
	}
}

// SetupRoutes sets up all API routes
func (r *Router) SetupRoutes(engine *gin.Engine) {
	engine.GET("/health", r.healthHandler)
	engine.GET("/.well-known/healthcheck.json", r.healthHandler)

	api := engine.Group("/api", RequestLogger(), Identity(r.cfg.Auth.JWTSecret))

	posts := api.Group("/posts")
	posts.GET("", r.listPosts)
	posts.POST("", RequireAuth(), r.createPost)
	posts.GET("/feed", r.personalizedFeed)
	posts.GET("/mine", RequireAuth(), r.listMyPosts)
	posts.GET("/:id", r.getPost)
	posts.GET("/:id/related", r.relatedPosts)
	posts.PUT("/:id", RequireAuth(), r.updatePost)
	posts.DELETE("/:id", RequireAuth(), r.deletePost)
	posts.POST("/:id/actions", RequireAuth(), r.trackAction)

	api.GET("/topics/trending", r.trendingTopics)

	drafts := api.Group("/drafts", RequireAuth())
	drafts.GET("", r.listDrafts)
	drafts.POST("", r.createDraft)
	drafts.PUT("/:id", r.updateDraft)
	drafts.DELETE("/:id", r.deleteDraft)
}

// healthHandler handles health check requests
func (r *Router) healthHandler(c *gin.Context) {
	c.JSON(200, gin.H{
		"status":  "OK",
		"service": "rednote-api",
	})
}
