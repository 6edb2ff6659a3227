package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"civicresolve/config"
	"civicresolve/middlewares"
	"civicresolve/notify"
	"civicresolve/repository"
	"civicresolve/routes"
	"civicresolve/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var repos repository.Repositories
	switch cfg.Storage {
	case "memory":
		log.Println("Using in-memory storage")
		repos = repository.NewMemory().Repositories()
	default:
		db, err := config.ConnectDB(ctx, cfg)
		if err != nil {
			log.Fatalf("Failed to connect to MongoDB: %v", err)
		}
		defer config.DisconnectDB(db)

		store := repository.NewMongo(db)
		if err := store.EnsureIndexes(ctx); err != nil {
			log.Fatalf("Failed to create indexes: %v", err)
		}
		log.Println("MongoDB connection established successfully!")
		repos = store.Repositories()
	}

	redisClient, err := config.ConnectRedis(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	opts := []service.Option{service.WithStrictArea(cfg.StrictArea)}
	var limiter gin.HandlerFunc
	if redisClient != nil {
		defer redisClient.Close()
		opts = append(opts, service.WithNotifier(notify.Fanout{
			notify.NewLog(nil),
			notify.NewRedis(redisClient, cfg.Redis.NotifyChannel),
		}))
		if cfg.RateLimit.IssuesPerDay > 0 {
			limiter = middlewares.IssueRateLimiter(redisClient, cfg.RateLimit.KeyPrefix, cfg.RateLimit.IssuesPerDay)
		}
	}

	svc := service.New(repos, opts...)

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	r.Use(cors.New(corsConfig(cfg.Server.CORSOrigins)))

	routes.Setup(r, svc, cfg.JWT.Secret, limiter)

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Printf("Server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}
}

func corsConfig(origins []string) cors.Config {
	c := cors.Config{
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Authorization"},
		MaxAge:       12 * time.Hour,
	}
	if slices.Contains(origins, "*") {
		c.AllowAllOrigins = true
		return c
	}
	c.AllowOrigins = origins
	c.AllowCredentials = true
	return c
}
