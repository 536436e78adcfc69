package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AuctionStatus is the persisted lifecycle state of an auction
type AuctionStatus string

const (
	StatusScheduled AuctionStatus = "SCHEDULED"
	StatusActive    AuctionStatus = "ACTIVE"
	StatusClosed    AuctionStatus = "CLOSED"
)

// ParseStatus converts a case-sensitive status name into an AuctionStatus
func ParseStatus(s string) (AuctionStatus, bool) {
	switch AuctionStatus(s) {
	case StatusScheduled, StatusActive, StatusClosed:
		return AuctionStatus(s), true
	}
	return "", false
}

// User represents a participant in the auction
type User struct {
	UserID   string `json:"user_id" gorm:"primaryKey;size:64"`
	Username string `json:"username" gorm:"size:64;not null"`
	Email    string `json:"email" gorm:"size:128"`
}

func (User) TableName() string { return "users" }

// Auction represents an item on sale during a fixed time window
type Auction struct {
	AuctionID     string          `json:"auction_id" gorm:"primaryKey;size:64"`
	Title         string          `json:"title" gorm:"size:128;not null"`
	Description   string          `json:"description" gorm:"size:1000"`
	SellerID      string          `json:"seller_id" gorm:"size:64;not null;index"`
	StartingPrice decimal.Decimal `json:"starting_price" gorm:"type:varchar(32);not null"`
	CurrentPrice  decimal.Decimal `json:"current_price" gorm:"type:varchar(32);not null"`
	CurrentBidder string          `json:"current_bidder,omitempty" gorm:"size:64"`
	StartTime     time.Time       `json:"start_time" gorm:"not null"`
	EndTime       time.Time       `json:"end_time" gorm:"not null"`
	Status        AuctionStatus   `json:"status" gorm:"size:16;not null;index"`
	CreatedAt     time.Time       `json:"created_at"`
}

func (Auction) TableName() string { return "auctions" }

// IsClosed reports whether the auction reached its terminal state
func (a Auction) IsClosed() bool {
	return a.Status == StatusClosed
}

// HasLeader reports whether a bid has been accepted on the auction
func (a Auction) HasLeader() bool {
	return a.CurrentBidder != ""
}

// Bid represents a user's accepted bid on an auction
type Bid struct {
	BidID     string          `json:"bid_id" gorm:"primaryKey;size:64"`
	AuctionID string          `json:"auction_id" gorm:"size:64;not null;index"`
	BidderID  string          `json:"bidder_id" gorm:"size:64;not null;index"`
	Amount    decimal.Decimal `json:"amount" gorm:"type:varchar(32);not null"`
	CreatedAt time.Time       `json:"created_at" gorm:"not null"`
}

func (Bid) TableName() string { return "bids" }
