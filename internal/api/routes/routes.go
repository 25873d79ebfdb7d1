package routes

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"concord-gateway/internal/adapters/kafka"
	"concord-gateway/internal/api/handlers"
	"concord-gateway/internal/api/middleware"
	"concord-gateway/internal/auth"
	"concord-gateway/internal/database"
	"concord-gateway/internal/gateway"
	"concord-gateway/internal/repositories/postgres"
	"concord-gateway/internal/services"
)

type Router struct {
	engine          *gin.Engine
	wsHandler       *handlers.WSHandler
	presenceHandler *handlers.PresenceHandler
	messageHandler  *handlers.MessageHandler
	friendHandler   *handlers.FriendHandler
	voiceHandler    *handlers.VoiceHandler
	rateLimitMW     *middleware.RateLimitMiddleware
	authMW          *middleware.AuthMiddleware
	verifier        *auth.Verifier
	redisClient     *database.RedisClient
	db              *gorm.DB
}

func NewRouter(
	hub *gateway.Hub,
	redisClient *database.RedisClient,
	db *gorm.DB,
	publisher *kafka.Publisher,
	jwtSecret string,
) *Router {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	engine.Use(gin.Recovery())
	engine.Use(middleware.CORS())
	engine.Use(middleware.LogApi())

	profileRepo := postgres.NewProfileRepository(db)
	messageRepo := postgres.NewMessageRepository(db)
	friendRepo := postgres.NewFriendRepository(db)

	statusStore := services.NewStatusStore(redisClient)
	limiter := services.NewRateLimiter(redisClient)
	verifier := auth.NewVerifier(jwtSecret)

	return &Router{
		engine:          engine,
		wsHandler:       handlers.NewWSHandler(hub),
		presenceHandler: handlers.NewPresenceHandler(hub, statusStore),
		messageHandler:  handlers.NewMessageHandler(messageRepo, hub, publisher),
		friendHandler:   handlers.NewFriendHandler(friendRepo, profileRepo, hub),
		voiceHandler:    handlers.NewVoiceHandler(hub, profileRepo),
		rateLimitMW:     middleware.NewRateLimitMiddleware(limiter),
		authMW:          middleware.NewAuthMiddleware(verifier),
		verifier:        verifier,
		redisClient:     redisClient,
		db:              db,
	}
}

func (r *Router) SetupRoutes() {
	r.engine.GET("/healthz", r.healthz)

	api := r.engine.Group("/api/v1")

	// WebSocket endpoint; token travels as a query parameter.
	api.GET("/ws",
		middleware.WSAuth(r.verifier),
		r.rateLimitMW.WebSocketRateLimit(5, time.Minute),
		r.wsHandler.HandleWebSocket,
	)

	authed := api.Group("/")
	authed.Use(r.authMW.RequireAuth())
	{
		users := authed.Group("/users")
		users.Use(r.rateLimitMW.RateLimit(100, time.Minute))
		{
			users.PUT("/me/status", r.presenceHandler.UpdateStatus)
			users.GET("/presence", r.presenceHandler.GetStatuses)
		}

		channels := authed.Group("/channels")
		channels.Use(r.rateLimitMW.RateLimit(200, time.Minute))
		{
			channels.GET("/:id/messages", r.messageHandler.GetChannelMessages)
			channels.POST("/:id/messages", r.messageHandler.CreateMessage)
			channels.GET("/:id/voice", r.voiceHandler.GetRoster)
		}

		messages := authed.Group("/messages")
		messages.Use(r.rateLimitMW.RateLimit(200, time.Minute))
		{
			messages.PUT("/:id", r.messageHandler.UpdateMessage)
			messages.DELETE("/:id", r.messageHandler.DeleteMessage)
		}

		dms := authed.Group("/dms")
		dms.Use(r.rateLimitMW.RateLimit(200, time.Minute))
		{
			dms.POST("/:id", r.messageHandler.CreateDirectMessage)
		}

		friends := authed.Group("/friends")
		friends.Use(r.rateLimitMW.RateLimit(100, time.Minute))
		{
			friends.GET("/", r.friendHandler.ListFriends)
			friends.POST("/:id", r.friendHandler.SendRequest)
			friends.PUT("/:id", r.friendHandler.AcceptRequest)
		}
	}
}

func (r *Router) healthz(c *gin.Context) {
	ctx := c.Request.Context()

	if err := r.redisClient.Ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "redis": err.Error()})
		return
	}
	sqlDB, err := r.db.DB()
	if err == nil {
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "postgres": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}
