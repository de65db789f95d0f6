package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/anonto42/nano-midea/messenger/internal/push"
	"github.com/anonto42/nano-midea/messenger/internal/router"
	"github.com/anonto42/nano-midea/messenger/internal/services"
	"github.com/anonto42/nano-midea/messenger/internal/session"
	"github.com/anonto42/nano-midea/messenger/internal/stream"
	"github.com/anonto42/nano-midea/messenger/pkg/config"
	"github.com/anonto42/nano-midea/messenger/pkg/firebase"
	"github.com/anonto42/nano-midea/messenger/pkg/logger"
	"github.com/anonto42/nano-midea/messenger/validators"
	"github.com/labstack/echo/v4"
	"github.com/valkey-io/valkey-go"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	zlog, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer zlog.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := config.InitDB(cfg, zlog)
	if err != nil {
		zlog.Fatal("failed to initialize databases", zap.Error(err))
	}
	defer db.CloseDB()

	hub := stream.NewHub(zlog.Named("stream"))
	if cfg.ValkeyAddr != "" {
		client, err := valkey.NewClient(valkey.ClientOption{InitAddress: []string{cfg.ValkeyAddr}})
		if err != nil {
			zlog.Fatal("failed to connect to valkey", zap.Error(err))
		}
		defer client.Close()

		relay := stream.NewValkeyRelay(client, hub, zlog.Named("relay"))
		hub.SetRelay(relay)
		go func() {
			if err := relay.Run(ctx); err != nil {
				zlog.Error("valkey relay stopped", zap.Error(err))
			}
		}()
	}

	deps := router.Dependencies{
		Postgres:  db.Postgres,
		Hub:       hub,
		Tracker:   session.NewTracker(),
		JWTSecret: cfg.JWTSecret,
		DispatcherCfg: services.DispatcherConfig{
			QueueSize: cfg.DispatchQueueSize,
			Workers:   cfg.DispatchWorkers,
		},
		Log: zlog,
	}
	if db.Mongo != nil {
		deps.Mongo = db.Mongo.Database(cfg.MongoDatabase)
	}

	pushRouter := &push.Router{Expo: push.NewExpoGateway(cfg.ExpoPushHost, nil)}
	if cfg.FirebaseCredentialsPath != "" {
		firebaseApp, err := firebase.InitFirebase(ctx, cfg.FirebaseCredentialsPath, cfg.FirebaseStorageBucket)
		if err != nil {
			zlog.Fatal("failed to initialize Firebase", zap.Error(err))
		}
		deps.Verifier = firebaseApp.AuthClient
		pushRouter.FCM = push.NewFCMGateway(firebaseApp.MessagingClient)
		if firebaseApp.Storage != nil {
			deps.Blobs = firebaseApp.Storage
		}
	} else {
		zlog.Warn("FIREBASE_CREDENTIALS_PATH not set, Firebase sign-in, FCM and uploads are disabled")
	}
	deps.Push = pushRouter

	e := echo.New()
	e.HideBanner = true
	e.Validator = validators.NewValidator()
	config.SetupMiddleware(e, zlog)

	app, err := router.SetupRoutes(ctx, e, deps)
	if err != nil {
		zlog.Fatal("failed to set up routes", zap.Error(err))
	}
	defer app.Close()

	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Error("server stopped", zap.Error(err))
			stop()
		}
	}()
	zlog.Info("server started", zap.String("port", cfg.Port), zap.String("env", cfg.Env))

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		zlog.Error("shutdown", zap.Error(err))
	}
}
