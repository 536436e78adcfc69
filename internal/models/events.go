package models

import (
	"time"

	"live-auctions/internal/money"
)

// Event types carried on fanout topics
const (
	EventBidAccepted   = "bid-accepted"
	EventStatusChanged = "status-changed"
	EventAuctionWon    = "auction-won"
)

// BidAcceptedEvent is broadcast on the auction topic after a bid commits
type BidAcceptedEvent struct {
	AuctionID string    `json:"auction_id"`
	BidID     string    `json:"bid_id"`
	BidderID  string    `json:"bidder_id"`
	Amount    string    `json:"amount"`
	Timestamp time.Time `json:"timestamp"`
}

// StatusChangedEvent is broadcast on the auction topic after a lifecycle transition
type StatusChangedEvent struct {
	AuctionID string        `json:"auction_id"`
	NewStatus AuctionStatus `json:"new_status"`
}

// AuctionWonEvent is delivered privately to the winning bidder at close
type AuctionWonEvent struct {
	AuctionID string `json:"auction_id"`
	Title     string `json:"title"`
	Amount    string `json:"amount"`
}

// NewAuctionWonEvent builds the private payload for the winner of auction
func NewAuctionWonEvent(auction Auction, winning Bid) AuctionWonEvent {
	return AuctionWonEvent{
		AuctionID: auction.AuctionID,
		Title:     auction.Title,
		Amount:    money.Format(winning.Amount),
	}
}

// NewBidAcceptedEvent builds the broadcast payload for an accepted bid
func NewBidAcceptedEvent(bid Bid) BidAcceptedEvent {
	return BidAcceptedEvent{
		AuctionID: bid.AuctionID,
		BidID:     bid.BidID,
		BidderID:  bid.BidderID,
		Amount:    money.Format(bid.Amount),
		Timestamp: bid.CreatedAt,
	}
}
