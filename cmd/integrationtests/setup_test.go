package integrationtests

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	auctions "live-auctions/internal/auctionService"
	bidding "live-auctions/internal/biddingService"
	"live-auctions/internal/fanout"
	"live-auctions/internal/lifecycle"
	model "live-auctions/internal/models"
	"live-auctions/internal/money"
	"live-auctions/internal/repository"
	"live-auctions/internal/server"

	"github.com/gin-gonic/gin"
)

// testEnv bundles the router with the pieces tests poke at directly
type testEnv struct {
	router  *gin.Engine
	repo    *repository.MemoryRepo
	hub     *fanout.Hub
	sweeper *lifecycle.Sweeper
}

// SetupTestEnv initializes the router with an in-memory repository, registers
// the given users and seeds the given auctions.
func SetupTestEnv(t *testing.T, userIDs []string, auctionList ...model.Auction) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := repository.NewMemoryRepo()
	for _, id := range userIDs {
		if err := repo.AddUser(model.User{UserID: id, Username: id}); err != nil {
			t.Fatalf("failed to add user: %v", err)
		}
	}
	for _, a := range auctionList {
		if err := repo.CreateAuction(a); err != nil {
			t.Fatalf("failed to seed auction: %v", err)
		}
	}

	hub := fanout.NewHub(64)
	notifier := fanout.NewEventNotifier(hub)
	sweeper := lifecycle.NewSweeper(repo, notifier, time.Second)

	router := server.SetupRouter(server.Dependencies{
		Bidding:  bidding.NewBiddingService(repo, repo, sweeper, notifier, time.Second),
		Auctions: auctions.NewAuctionService(repo, repo, sweeper, time.Second),
		Hub:      hub,
	})
	return &testEnv{router: router, repo: repo, hub: hub, sweeper: sweeper}
}

// activeAuction builds an auction that is open for bids right now
func activeAuction(id string, startingPrice float64) model.Auction {
	now := time.Now().UTC()
	return model.Auction{
		AuctionID:     id,
		Title:         fmt.Sprintf("title_%s", id),
		Description:   "integration test auction",
		SellerID:      "seller",
		StartingPrice: money.FromFloat(startingPrice),
		CurrentPrice:  money.FromFloat(startingPrice),
		StartTime:     now.Add(-time.Minute),
		EndTime:       now.Add(time.Hour),
		Status:        model.StatusActive,
		CreatedAt:     now,
	}
}

// ExecuteRequestAndParse executes an HTTP request on the given router and parses the response
func ExecuteRequestAndParse(t *testing.T, router *gin.Engine, method, url string, body any) (map[string]any, *httptest.ResponseRecorder) {
	t.Helper()
	var reqBody []byte
	var err error

	switch v := body.(type) {
	case nil:
	case []byte:
		reqBody = v
	default:
		reqBody, err = json.Marshal(v)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, url, bytes.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	var resp map[string]any
	if len(w.Body.Bytes()) > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to unmarshal response: %v", err)
		}
	}
	return resp, w
}
