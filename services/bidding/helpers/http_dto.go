package helpers

import (
	"time"

	model "live-auctions/internal/models"
	"live-auctions/internal/money"
)

// Request/Response DTOs
type PlaceBidRequest struct {
	AuctionID string  `json:"auction_id" binding:"required"`
	UserID    string  `json:"user_id" binding:"required"`
	Amount    float64 `json:"amount" binding:"required,gt=0"`
}

type BidResponse struct {
	BidID     string `json:"bid_id"`
	AuctionID string `json:"auction_id"`
	BidderID  string `json:"bidder_id"`
	Amount    string `json:"amount"`
	CreatedAt string `json:"created_at"`
}

type CreateAuctionRequest struct {
	Title         string    `json:"title" binding:"required,max=128"`
	Description   string    `json:"description" binding:"max=1000"`
	SellerID      string    `json:"seller_id" binding:"required"`
	StartingPrice *float64  `json:"starting_price" binding:"required,gte=0"`
	StartTime     time.Time `json:"start_time" binding:"required"`
	EndTime       time.Time `json:"end_time" binding:"required"`
}

type UpdateAuctionRequest struct {
	Title         *string    `json:"title" binding:"omitempty,max=128"`
	Description   *string    `json:"description" binding:"omitempty,max=1000"`
	StartingPrice *float64   `json:"starting_price" binding:"omitempty,gte=0"`
	StartTime     *time.Time `json:"start_time"`
	EndTime       *time.Time `json:"end_time"`
}

type AuctionResponse struct {
	AuctionID     string `json:"auction_id"`
	Title         string `json:"title"`
	Description   string `json:"description"`
	SellerID      string `json:"seller_id"`
	StartingPrice string `json:"starting_price"`
	CurrentPrice  string `json:"current_price"`
	CurrentBidder string `json:"current_bidder,omitempty"`
	StartTime     string `json:"start_time"`
	EndTime       string `json:"end_time"`
	Status        string `json:"status"`
}

// NewBidResponse renders a bid for the wire
func NewBidResponse(bid model.Bid) BidResponse {
	return BidResponse{
		BidID:     bid.BidID,
		AuctionID: bid.AuctionID,
		BidderID:  bid.BidderID,
		Amount:    money.Format(bid.Amount),
		CreatedAt: bid.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

// NewBidResponses renders a list of bids, never returning nil
func NewBidResponses(bids []model.Bid) []BidResponse {
	out := make([]BidResponse, 0, len(bids))
	for _, b := range bids {
		out = append(out, NewBidResponse(b))
	}
	return out
}

// NewAuctionResponse renders an auction for the wire
func NewAuctionResponse(a model.Auction) AuctionResponse {
	return AuctionResponse{
		AuctionID:     a.AuctionID,
		Title:         a.Title,
		Description:   a.Description,
		SellerID:      a.SellerID,
		StartingPrice: money.Format(a.StartingPrice),
		CurrentPrice:  money.Format(a.CurrentPrice),
		CurrentBidder: a.CurrentBidder,
		StartTime:     a.StartTime.UTC().Format(time.RFC3339),
		EndTime:       a.EndTime.UTC().Format(time.RFC3339),
		Status:        string(a.Status),
	}
}

// NewAuctionResponses renders a list of auctions, never returning nil
func NewAuctionResponses(auctions []model.Auction) []AuctionResponse {
	out := make([]AuctionResponse, 0, len(auctions))
	for _, a := range auctions {
		out = append(out, NewAuctionResponse(a))
	}
	return out
}
