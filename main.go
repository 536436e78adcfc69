package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	auctions "live-auctions/internal/auctionService"
	bidding "live-auctions/internal/biddingService"
	"live-auctions/internal/config"
	"live-auctions/internal/fanout"
	"live-auctions/internal/lifecycle"
	model "live-auctions/internal/models"
	"live-auctions/internal/money"
	"live-auctions/internal/repository"
	"live-auctions/internal/server"
	"live-auctions/utils"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// store is what both repository implementations provide
type store interface {
	repository.AuctionDB
	repository.UserDB
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		utils.Fatal("Invalid configuration", map[string]any{"error": err.Error()})
	}
	if err := utils.SetLevel(cfg.LogLevel); err != nil {
		utils.Warn("Unknown log level, keeping default", map[string]any{"level": cfg.LogLevel})
	}

	repo, closeRepo := openStore(cfg)
	defer closeRepo()

	if cfg.SeedDemoData {
		seedDemoData(repo)
	}

	hub := fanout.NewHub(cfg.SubscriberBuffer)
	publishers := fanout.Multi{hub}

	var rdb redis.UniversalClient
	if cfg.RedisEnabled() {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
		defer rdb.Close()

		pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			utils.Fatal("Redis unreachable", map[string]any{"addr": cfg.RedisAddr, "error": err.Error()})
		}

		redisPub := fanout.NewRedisPublisher(rdb, cfg.RedisChannelPrefix, cfg.SubscriberBuffer)
		defer redisPub.Close()
		publishers = append(publishers, redisPub)
	}
	if cfg.KafkaEnabled() {
		kafkaPub := fanout.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer func() {
			if err := kafkaPub.Close(); err != nil {
				utils.Warn("Kafka writer close failed", map[string]any{"error": err.Error()})
			}
		}()
		publishers = append(publishers, kafkaPub)
	}

	notifier := fanout.NewEventNotifier(publishers)
	sweeper := lifecycle.NewSweeper(repo, notifier, cfg.LockTimeout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go sweeper.Run(ctx, cfg.SweepInterval)

	biddingSvc := bidding.NewBiddingService(repo, repo, sweeper, notifier, cfg.LockTimeout)
	auctionSvc := auctions.NewAuctionService(repo, repo, sweeper, cfg.LockTimeout)

	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := server.SetupRouter(server.Dependencies{
		Bidding:  biddingSvc,
		Auctions: auctionSvc,
		Hub:      hub,
		RateLimit: server.RateLimit{
			Client: rdb,
			Prefix: cfg.RedisChannelPrefix,
			Limit:  cfg.BidRateLimit,
			Window: cfg.BidRateWindow,
		},
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		utils.Info("Starting auction server", map[string]any{
			"addr":     cfg.HTTPAddr,
			"sqlite":   cfg.DBPath != "",
			"redis":    cfg.RedisEnabled(),
			"kafka":    cfg.KafkaEnabled(),
			"sweep_ms": cfg.SweepInterval.Milliseconds(),
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			utils.Error("HTTP server failed", map[string]any{"error": err.Error()})
			stop()
		}
	}()

	<-ctx.Done()
	utils.Info("Shutting down", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		utils.Error("Graceful shutdown failed", map[string]any{"error": err.Error()})
	}
}

// openStore selects SQLite when a path is configured, the in-memory store otherwise
func openStore(cfg config.AppConfig) (store, func()) {
	if cfg.DBPath == "" {
		return repository.NewMemoryRepo(), func() {}
	}

	repo, err := repository.OpenGormRepo(cfg.DBPath)
	if err != nil {
		utils.Fatal("Failed to open database", map[string]any{"path": cfg.DBPath, "error": err.Error()})
	}
	return repo, func() {
		if err := repo.Close(); err != nil {
			utils.Warn("Database close failed", map[string]any{"error": err.Error()})
		}
	}
}

// seedDemoData adds sample users and auctions so the API can be tried out right away
func seedDemoData(repo store) {
	users := []model.User{
		{UserID: "seller1", Username: "seller1", Email: "seller1@example.com"},
		{UserID: "user1", Username: "user1", Email: "user1@example.com"},
		{UserID: "user2", Username: "user2", Email: "user2@example.com"},
		{UserID: "user3", Username: "user3", Email: "user3@example.com"},
	}
	for _, u := range users {
		if err := repo.AddUser(u); err != nil {
			utils.Warn("Seed user skipped", map[string]any{"user_id": u.UserID, "error": err.Error()})
		}
	}

	now := time.Now().UTC()
	auctionList := []model.Auction{
		demoAuction("auction1", "Vintage lamp", 100, now.Add(-time.Minute), now.Add(time.Hour), model.StatusActive),
		demoAuction("auction2", "Oak desk", 200, now.Add(-time.Minute), now.Add(10*time.Minute), model.StatusActive),
		demoAuction("auction3", "Signed poster", 150, now.Add(5*time.Minute), now.Add(2*time.Hour), model.StatusScheduled),
	}
	for _, a := range auctionList {
		if err := repo.CreateAuction(a); err != nil {
			utils.Warn("Seed auction skipped", map[string]any{"auction_id": a.AuctionID, "error": err.Error()})
		}
	}
	utils.Info("Demo data seeded", map[string]any{"users": len(users), "auctions": len(auctionList)})
}

func demoAuction(id, title string, price float64, start, end time.Time, status model.AuctionStatus) model.Auction {
	return model.Auction{
		AuctionID:     id,
		Title:         title,
		Description:   fmt.Sprintf("Demo auction %s", id),
		SellerID:      "seller1",
		StartingPrice: money.FromFloat(price),
		CurrentPrice:  money.FromFloat(price),
		StartTime:     start,
		EndTime:       end,
		Status:        status,
		CreatedAt:     time.Now().UTC(),
	}
}
