package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"concord-gateway/internal/adapters/kafka"
	"concord-gateway/internal/api/routes"
	"concord-gateway/internal/config"
	"concord-gateway/internal/database"
	"concord-gateway/internal/gateway"
	"concord-gateway/internal/repositories/postgres"
	"concord-gateway/internal/services"
	"concord-gateway/pkg/logger"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	lg := logger.New(cfg.LogLevel)
	lg.Info("Starting gateway")

	redisClient, err := database.NewRedisConnection(cfg.Redis.URI, lg)
	if err != nil {
		lg.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	db, err := database.NewPostgresConnection(cfg.Database.URI, lg)
	if err != nil {
		lg.Error("Failed to connect to PostgreSQL", "error", err)
		os.Exit(1)
	}

	var publisher *kafka.Publisher
	if cfg.Kafka.Enabled {
		producer, err := kafka.InitKafkaProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			lg.Error("Failed to connect to Kafka", "error", err)
			os.Exit(1)
		}
		publisher = kafka.NewPublisher(producer, cfg.Kafka.Topic)
		defer publisher.Close()
	}

	bus := services.NewEventBus(redisClient)

	hub := gateway.NewHub(gateway.Deps{
		Profiles:         postgres.NewProfileRepository(db),
		Status:           services.NewStatusStore(redisClient),
		Voice:            services.NewVoiceStore(redisClient),
		Bus:              bus,
		PresenceCacheTTL: cfg.Presence.CacheTTL,
		VoiceTTL:         cfg.Voice.MembershipTTL,
	})

	busCtx, busCancel := context.WithCancel(context.Background())
	defer busCancel()
	go bus.Listen(busCtx, hub.DeliverRemote)

	router := routes.NewRouter(hub, redisClient, db, publisher, cfg.JWT.Secret)
	router.SetupRoutes()

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.GetEngine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		lg.Info("Server starting", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			lg.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	lg.Info("Server shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Closing connections drives each one through the same cleanup as an
	// organic disconnect, marking every user offline before exit.
	hub.Stop()
	busCancel()

	if err := server.Shutdown(ctx); err != nil {
		lg.Error("Server forced to shutdown", "error", err)
	}

	lg.Info("Server stopped")
}
