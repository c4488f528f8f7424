package api

import (
	"fmt"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	_ "github.com/d60-Lab/roadmap-api/docs"
	"github.com/d60-Lab/roadmap-api/internal/api/handler"
	"github.com/d60-Lab/roadmap-api/internal/api/middleware"
	"github.com/d60-Lab/roadmap-api/internal/config"
	"github.com/d60-Lab/roadmap-api/internal/identity"
)

// NewRouter 组装中间件与 /auth 路由
func NewRouter(cfg *config.Config, h *handler.Handler, provider identity.Provider) (*gin.Engine, error) {
	if err := handler.RegisterValidators(); err != nil {
		return nil, fmt.Errorf("register validators: %w", err)
	}

	r := gin.New()
	r.Use(middleware.RequestID(), middleware.RequestLogger(), middleware.Recovery())
	if cfg.Sentry.DSN != "" {
		r.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	}
	if cfg.Tracing.Enabled {
		r.Use(otelgin.Middleware(cfg.Tracing.ServiceName))
	}
	r.Use(middleware.CORS(cfg.CORS.AllowOrigins))
	r.Use(gzip.Gzip(gzip.DefaultCompression))
	if cfg.RateLimit.Enabled {
		r.Use(middleware.RateLimit(middleware.NewIPRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)))
	}

	r.GET("/healthz", h.Healthz)
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	requireAuth := middleware.Auth(provider)
	g := r.Group("/auth")
	{
		g.POST("/createUser", h.CreateUser)
		g.POST("/saveRoadMap", h.SaveRoadmap)
		g.GET("/getRoadMap", requireAuth, h.GetRoadmap)
		g.GET("/getUserName", requireAuth, h.GetUserName)
		g.POST("/updateStatus", h.UpdateStatus)
		g.POST("/markComplete", h.MarkComplete)
		g.POST("/createCase", h.CreateCase)
	}

	qna := g.Group("", requireAuth)
	{
		qna.POST("/questions", h.CreateQuestion)
		qna.GET("/questions", h.ListQuestions)
		qna.POST("/questions/:id/replies", h.CreateReply)
		qna.GET("/questions/:id/replies", h.ListReplies)
		qna.PATCH("/question/:id/upvote", h.UpvoteQuestion)
		qna.PATCH("/replies/:id/upvote", h.UpvoteReply)
	}

	return r, nil
}
