package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/yeremiapane/qrdine/config"
	"github.com/yeremiapane/qrdine/ephemeral"
	"github.com/yeremiapane/qrdine/fanout"
	"github.com/yeremiapane/qrdine/repository"
	"github.com/yeremiapane/qrdine/router"
	"github.com/yeremiapane/qrdine/services"
	"github.com/yeremiapane/qrdine/utils"
)

func main() {
	// .env opsional; di production konfigurasi datang dari environment
	_ = godotenv.Load()

	utils.InitLogger()
	cfg := config.Load()
	gin.SetMode(cfg.GinMode)

	db, err := config.InitDB(cfg)
	if err != nil {
		utils.ErrorLogger.Fatalf("failed to connect database: %v", err)
	}
	if err := repository.AutoMigrate(db); err != nil {
		utils.ErrorLogger.Fatalf("failed to migrate database: %v", err)
	}
	repos := repository.NewStore(db)

	// Redis opsional: tanpa Redis jalan single-process
	var (
		store  ephemeral.Store
		bridge *fanout.RedisBridge
		broker fanout.Broker
	)
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := client.Ping(context.Background()).Err(); err != nil {
			utils.ErrorLogger.Fatalf("failed to connect redis at %s: %v", cfg.RedisAddr, err)
		}
		store = ephemeral.NewRedisStore(client)
		bridge = fanout.NewRedisBridge(client)
		broker = bridge
		utils.InfoLogger.Printf("redis connected at %s", cfg.RedisAddr)
	} else {
		store = ephemeral.NewMemoryStore()
		utils.InfoLogger.Println("redis not configured, using in-memory ephemeral store")
	}

	// Pengiriman kode verifikasi: AMQP bila tersedia, selain itu ke log
	var sender services.CodeSender
	if cfg.AMQPURL != "" {
		amqpSender, err := services.NewAMQPCodeSender(cfg.AMQPURL, "notifications")
		if err != nil {
			utils.ErrorLogger.Fatalf("failed to connect amqp: %v", err)
		}
		defer amqpSender.Close()
		sender = amqpSender
		utils.InfoLogger.Println("amqp code sender connected")
	} else {
		sender = services.LogCodeSender{}
		utils.InfoLogger.Println("amqp not configured, verification codes go to log")
	}

	hub := fanout.NewHub(broker)

	verification := services.NewVerificationService(repos, store, sender, cfg)
	sessions := services.NewSessionService(repos, store, verification, hub, cfg)
	orders := services.NewOrderService(repos, hub)
	tables := services.NewTableService(repos, hub, cfg.PublicBaseURL)

	r := router.SetupRouter(repos, sessions, orders, tables, hub)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		utils.InfoLogger.Printf("server listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if bridge != nil {
		g.Go(func() error {
			return bridge.Run(gctx, hub)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		utils.ErrorLogger.Fatalf("server stopped: %v", err)
	}
	utils.InfoLogger.Println("server stopped gracefully")
}
