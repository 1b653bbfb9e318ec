package http

import (
	"net/http"

	"github.com/gdugdh24/matchcore/internal/delivery/http/handler"
	"github.com/gdugdh24/matchcore/internal/delivery/http/middleware"
	"github.com/gdugdh24/matchcore/internal/infrastructure/push"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type Router struct {
	authHandler         *handler.AuthHandler
	likeHandler         *handler.LikeHandler
	notificationHandler *handler.NotificationHandler
	conversationHandler *handler.ConversationHandler
	presenceHandler     *handler.PresenceHandler
	pushHandler         *push.Handler
	authMiddleware      *middleware.AuthMiddleware
	log                 *zap.Logger
}

func NewRouter(
	authHandler *handler.AuthHandler,
	likeHandler *handler.LikeHandler,
	notificationHandler *handler.NotificationHandler,
	conversationHandler *handler.ConversationHandler,
	presenceHandler *handler.PresenceHandler,
	pushHandler *push.Handler,
	authMiddleware *middleware.AuthMiddleware,
	log *zap.Logger,
) *Router {
	return &Router{
		authHandler:         authHandler,
		likeHandler:         likeHandler,
		notificationHandler: notificationHandler,
		conversationHandler: conversationHandler,
		presenceHandler:     presenceHandler,
		pushHandler:         pushHandler,
		authMiddleware:      authMiddleware,
		log:                 log,
	}
}

func (r *Router) Setup() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(r.log))

	// Health check (supports both GET and HEAD)
	healthHandler := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
		})
	}
	router.GET("/health", healthHandler)
	router.HEAD("/health", healthHandler)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Push transport authenticates inside the upgrade so it can send the connection ack
	router.GET("/ws", r.pushHandler.ServeWS)

	// API v1
	v1 := router.Group("/api/v1")
	v1.Use(r.authMiddleware.RequireAuth())
	{
		auth := v1.Group("/auth")
		{
			auth.POST("/refresh", r.authHandler.Refresh)
			auth.GET("/me", r.authHandler.Me)
		}

		likes := v1.Group("/likes")
		{
			likes.GET("/sent", r.likeHandler.ListSent)
			likes.GET("/received", r.likeHandler.ListReceived)
			likes.GET("/mutual", r.likeHandler.ListMutual)
			likes.GET("/stats", r.likeHandler.Stats)
			likes.GET("/check/:user_id", r.likeHandler.CheckStatus)
			likes.POST("/:user_id", r.likeHandler.Like)
			likes.DELETE("/:user_id", r.likeHandler.Unlike)
			likes.POST("/:user_id/unmatch", r.likeHandler.Unmatch)
		}

		notifications := v1.Group("/notifications")
		{
			notifications.GET("", r.notificationHandler.List)
			notifications.GET("/unread-count", r.notificationHandler.UnreadCount)
			notifications.POST("/read-all", r.notificationHandler.MarkAllRead)
			notifications.POST("/:id/read", r.notificationHandler.MarkRead)
		}

		v1.POST("/conversations", r.conversationHandler.Open)
		v1.POST("/conversations/:chat_id/notify", r.conversationHandler.NotifyMessage)
		v1.GET("/users/:user_id/online", r.presenceHandler.GetOnline)
	}

	return router
}
