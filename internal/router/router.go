package router

import (
	"context"
	"fmt"

	"github.com/anonto42/nano-midea/messenger/internal/handlers"
	"github.com/anonto42/nano-midea/messenger/internal/middleware"
	"github.com/anonto42/nano-midea/messenger/internal/models"
	"github.com/anonto42/nano-midea/messenger/internal/push"
	"github.com/anonto42/nano-midea/messenger/internal/repositories"
	"github.com/anonto42/nano-midea/messenger/internal/services"
	"github.com/anonto42/nano-midea/messenger/internal/session"
	"github.com/anonto42/nano-midea/messenger/internal/stream"
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Dependencies are the connections and clients the routes are built from.
// Mongo, Verifier, Push and Blobs may be nil.
type Dependencies struct {
	Postgres      *gorm.DB
	Mongo         *mongo.Database
	Hub           *stream.Hub
	Tracker       *session.Tracker
	Verifier      middleware.TokenVerifier
	Push          push.Gateway
	Blobs         services.BlobStore
	JWTSecret     string
	DispatcherCfg services.DispatcherConfig
	Log           *zap.Logger
}

// App is what SetupRoutes started and the caller must stop
type App struct {
	Dispatcher *services.Dispatcher
	stopTouch  func()
}

// Close drains pending notifications and detaches tracker listeners
func (a *App) Close() {
	a.stopTouch()
	a.Dispatcher.Close()
}

// Migrate creates or updates the PostgreSQL tables
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Follow{},
		&models.Like{},
		&models.Comment{},
		&models.Notification{},
		&models.PushRegistration{},
	)
}

// SetupRoutes configures all application routes and injects dependencies
func SetupRoutes(ctx context.Context, e *echo.Echo, deps Dependencies) (*App, error) {
	log := deps.Log

	if err := Migrate(deps.Postgres); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	log.Info("PostgreSQL auto-migrations completed")

	e.GET("/health", handlers.HealthCheck)

	// --- Repositories ---
	userRepo := repositories.NewPostgresUserRepository(deps.Postgres)
	followRepo := repositories.NewPostgresFollowRepository(deps.Postgres)
	likeRepo := repositories.NewPostgresLikeRepository(deps.Postgres)
	commentRepo := repositories.NewPostgresCommentRepository(deps.Postgres)
	notificationRepo := repositories.NewPostgresNotificationRepository(deps.Postgres)
	pushRepo := repositories.NewPostgresPushRegistrationRepository(deps.Postgres)

	var (
		postRepo         repositories.PostRepository
		conversationRepo repositories.ConversationRepository
		messageRepo      repositories.MessageRepository
	)
	if deps.Mongo != nil {
		mongoConvs := repositories.NewMongoConversationRepository(deps.Mongo)
		mongoMsgs := repositories.NewMongoMessageRepository(deps.Mongo)
		if err := mongoConvs.EnsureIndexes(ctx); err != nil {
			return nil, fmt.Errorf("conversation indexes: %w", err)
		}
		if err := mongoMsgs.EnsureIndexes(ctx); err != nil {
			return nil, fmt.Errorf("message indexes: %w", err)
		}
		postRepo = repositories.NewMongoPostRepository(deps.Mongo)
		conversationRepo = mongoConvs
		messageRepo = mongoMsgs
	} else {
		postRepo = repositories.NewMemoryPostRepository()
		conversationRepo = repositories.NewMemoryConversationRepository()
		messageRepo = repositories.NewMemoryMessageRepository()
	}

	// --- Services ---
	dispatcher := services.NewDispatcher(notificationRepo, pushRepo, deps.Push, deps.Hub, log, deps.DispatcherCfg)
	dispatcher.Start()

	conversations := services.NewConversationService(conversationRepo, userRepo, deps.Hub, log)
	messages := services.NewMessageService(conversationRepo, messageRepo, deps.Hub, dispatcher, log)
	presence := services.NewPresenceService(userRepo, deps.Hub, log)
	profiles := services.NewProfileService(userRepo, followRepo, deps.Blobs, log)
	follows := services.NewFollowService(followRepo, userRepo, dispatcher, log)
	likes := services.NewLikeService(likeRepo, postRepo, dispatcher, log)
	comments := services.NewCommentService(commentRepo, postRepo, dispatcher, log)
	feed := services.NewNotificationFeed(notificationRepo, deps.Hub)

	app := &App{Dispatcher: dispatcher, stopTouch: presence.TouchOnSignIn(deps.Tracker)}

	// --- Unprotected routes for authentication ---
	authGroup := e.Group("/api/v1/auth")

	// --- Protected routes ---
	api := e.Group("/api/v1")
	api.Use(middleware.JWTAuthMiddleware(deps.JWTSecret, deps.Verifier))

	handlers.NewAuthHandler(userRepo, deps.Verifier, deps.Tracker, deps.JWTSecret, log).RegisterAuthRoutes(authGroup, api)
	handlers.NewUserHandler(profiles).RegisterProfileRoutes(api)
	handlers.NewFollowHandler(follows).RegisterFollowRoutes(api)
	handlers.NewPresenceHandler(presence).RegisterPresenceRoutes(api)
	handlers.NewConversationHandler(conversations, messages, presence, profiles, deps.Tracker, log).RegisterConversationRoutes(api)
	handlers.NewNotificationHandler(feed, dispatcher, userRepo, deps.Tracker, log).RegisterNotificationRoutes(api)
	handlers.NewPushHandler(pushRepo).RegisterPushRoutes(api)
	handlers.NewPostHandler(postRepo).RegisterPostRoutes(api)
	handlers.NewFeedHandler(postRepo, userRepo, likeRepo).RegisterFeedRoutes(api)
	handlers.NewLikeHandler(likes).RegisterLikeRoutes(api)
	handlers.NewCommentHandler(comments).RegisterCommentRoutes(api)

	log.Info("all routes configured")
	return app, nil
}
