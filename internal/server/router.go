package server

import (
	"net/http"
	"time"

	auctions "live-auctions/internal/auctionService"
	bidding "live-auctions/internal/biddingService"
	"live-auctions/internal/fanout"
	auctionhandler "live-auctions/services/auctions/handler"
	handler "live-auctions/services/bidding/handler"
	realtime "live-auctions/services/realtime/handler"
	"live-auctions/utils"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// RateLimit configures the Redis-backed limiter on bid submission; a nil
// Client disables it
type RateLimit struct {
	Client redis.UniversalClient
	Prefix string
	Limit  int
	Window time.Duration
}

// Dependencies are the services the HTTP surface delegates to
type Dependencies struct {
	Bidding   *bidding.BiddingService
	Auctions  *auctions.AuctionService
	Hub       *fanout.Hub
	RateLimit RateLimit
}

// SetupRouter configures all Gin routes for the application
func SetupRouter(deps Dependencies) *gin.Engine {
	router := gin.New() // New router without default middleware for full control over middleware and logging

	router.Use(gin.Recovery())          // recover from panics
	router.Use(RequestLoggerMiddleware) // custom request logging

	biddingHandler := handler.NewBiddingHandler(deps.Bidding)
	auctionHandler := auctionhandler.NewAuctionHandler(deps.Auctions)
	wsHandler := realtime.NewWSHandler(deps.Hub, deps.Auctions, deps.Bidding)

	router.GET("/healthz", func(c *gin.Context) {
		utils.JSONResponse(c, http.StatusOK, gin.H{"time": time.Now().UTC()}, "ok")
	})

	bids := router.Group("/bids")
	if rl := deps.RateLimit; rl.Client != nil && rl.Limit > 0 {
		bids.Use(BidRateLimitMiddleware(rl.Client, rl.Prefix, rl.Limit, rl.Window))
	}
	{
		bids.POST("", biddingHandler.PlaceBidHandler)
	}

	auctionRoutes := router.Group("/auctions")
	{
		auctionRoutes.POST("", auctionHandler.CreateAuctionHandler)
		auctionRoutes.GET("", auctionHandler.ListAuctionsHandler)
		auctionRoutes.GET("/:auction_id", auctionHandler.GetAuctionHandler)
		auctionRoutes.PUT("/:auction_id", auctionHandler.UpdateAuctionHandler)
		auctionRoutes.DELETE("/:auction_id", auctionHandler.DeleteAuctionHandler)
		auctionRoutes.GET("/:auction_id/bids", biddingHandler.GetBidHistoryHandler)
		auctionRoutes.GET("/:auction_id/highest", biddingHandler.GetHighestBidHandler)
	}

	users := router.Group("/users")
	{
		users.GET("/:user_id/auctions", biddingHandler.GetAuctionsByBidderHandler)
	}

	ws := router.Group("/ws")
	{
		ws.GET("/auctions/:auction_id", wsHandler.AuctionStreamHandler)
	}

	return router
}
