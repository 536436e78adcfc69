package bidding

import (
	"context"
	"fmt"
	"live-auctions/internal/biddingerrors"
	"live-auctions/internal/fanout"
	"live-auctions/internal/models"
	"live-auctions/internal/money"
	"live-auctions/internal/repository"
	"live-auctions/utils"
	"time"

	"github.com/shopspring/decimal"
)

// StatusKeeper applies due lifecycle transitions to an auction whose lock the
// caller already holds
type StatusKeeper interface {
	AdvanceLocked(auction *models.Auction, now time.Time) error
}

// BiddingService arbitrates bids: each auction accepts a strictly increasing
// sequence of amounts, decided under that auction's exclusive lock
type BiddingService struct {
	repo        repository.AuctionDB
	users       repository.UserDB
	status      StatusKeeper
	notifier    fanout.Notifier
	lockTimeout time.Duration
	now         func() time.Time
}

// NewBiddingService creates a new BiddingService instance
func NewBiddingService(repo repository.AuctionDB, users repository.UserDB, status StatusKeeper, notifier fanout.Notifier, lockTimeout time.Duration) *BiddingService {
	return &BiddingService{
		repo:        repo,
		users:       users,
		status:      status,
		notifier:    notifier,
		lockTimeout: lockTimeout,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// PlaceBid validates and records a user's bid for an auction. The bid-accepted
// event is published after the auction lock is released.
func (s *BiddingService) PlaceBid(ctx context.Context, auctionID, bidderID string, amount decimal.Decimal) (models.Bid, error) {
	if auctionID == "" || bidderID == "" {
		return models.Bid{}, fmt.Errorf("service: %w - missing auctionID or bidderID", biddingerrors.ErrInvalidBid)
	}
	if !money.IsPositive(amount) {
		return models.Bid{}, fmt.Errorf("service: %w - non-positive bid amount", biddingerrors.ErrInvalidBid)
	}
	if money.ExceedsPrecision(amount) {
		return models.Bid{}, fmt.Errorf("service: %w - amount %s has more than %d decimal places", biddingerrors.ErrInvalidBid, amount.String(), money.Precision)
	}
	if _, err := s.users.FindUser(bidderID); err != nil {
		return models.Bid{}, fmt.Errorf("service: failed to find bidder %s: %w", bidderID, err)
	}

	bid, err := s.arbitrate(ctx, auctionID, bidderID, amount.Round(money.Precision))
	if err != nil {
		return models.Bid{}, err
	}

	utils.Info("Bid accepted", map[string]any{
		"auction_id": bid.AuctionID,
		"bid_id":     bid.BidID,
		"bidder_id":  bid.BidderID,
		"amount":     money.Format(bid.Amount),
	})
	s.notifier.NotifyBidAccepted(bid)
	return bid, nil
}

// arbitrate runs the read-validate-write sequence while holding the auction lock
func (s *BiddingService) arbitrate(ctx context.Context, auctionID, bidderID string, amount decimal.Decimal) (models.Bid, error) {
	lockCtx, cancel := context.WithTimeout(ctx, s.lockTimeout)
	defer cancel()

	auction, release, err := s.repo.FindAuctionForUpdate(lockCtx, auctionID)
	if err != nil {
		return models.Bid{}, fmt.Errorf("service: failed to load auction %s: %w", auctionID, err)
	}
	defer release()

	now := s.now()
	if err := s.status.AdvanceLocked(&auction, now); err != nil {
		return models.Bid{}, fmt.Errorf("service: failed to refresh status of auction %s: %w", auctionID, err)
	}
	if err := validateBid(auction, bidderID, amount, now); err != nil {
		return models.Bid{}, err
	}

	bid := models.Bid{
		BidID:     utils.GenerateID(),
		AuctionID: auctionID,
		BidderID:  bidderID,
		Amount:    amount,
		CreatedAt: now,
	}
	auction.CurrentPrice = amount
	auction.CurrentBidder = bidderID

	if err := s.repo.SaveBid(auction, bid); err != nil {
		return models.Bid{}, fmt.Errorf("service: failed to record bid for auction %s by user %s: %w", auctionID, bidderID, err)
	}
	return bid, nil
}

// validateBid checks the business rules against the locked auction state
func validateBid(auction models.Auction, bidderID string, amount decimal.Decimal, now time.Time) error {
	if auction.IsClosed() || !now.Before(auction.EndTime) {
		return fmt.Errorf("service: %w - auction %s ended at %s", biddingerrors.ErrAuctionClosed, auction.AuctionID, auction.EndTime.Format(time.RFC3339))
	}
	if auction.Status != models.StatusActive {
		return fmt.Errorf("service: %w: %w - auction %s starts at %s", biddingerrors.ErrInvalidBid, biddingerrors.ErrAuctionNotStarted, auction.AuctionID, auction.StartTime.Format(time.RFC3339))
	}

	if !auction.HasLeader() {
		if !money.AtLeast(amount, auction.StartingPrice) {
			return fmt.Errorf("service: %w: %w - starting price is %s", biddingerrors.ErrInvalidBid, biddingerrors.ErrBidTooLow, money.Format(auction.StartingPrice))
		}
		return nil
	}

	if auction.CurrentBidder == bidderID {
		return fmt.Errorf("service: %w: %w", biddingerrors.ErrInvalidBid, biddingerrors.ErrSelfRaise)
	}
	if !money.Above(amount, auction.CurrentPrice) {
		return fmt.Errorf("service: %w: %w - current highest bid is %s", biddingerrors.ErrInvalidBid, biddingerrors.ErrBidTooLow, money.Format(auction.CurrentPrice))
	}
	return nil
}

// GetBidHistory returns all bids for an auction, highest amount first
func (s *BiddingService) GetBidHistory(auctionID string) ([]models.Bid, error) {
	if auctionID == "" {
		return nil, fmt.Errorf("service: %w - empty auction ID", biddingerrors.ErrInvalidBid)
	}

	bids, err := s.repo.GetBidsByAuction(auctionID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to get bids for auction %s: %w", auctionID, err)
	}
	if len(bids) == 0 {
		return nil, fmt.Errorf("service: %w - auction %s", biddingerrors.ErrNoBids, auctionID)
	}

	return bids, nil
}

// GetHighestBid returns the standing highest bid for an auction
func (s *BiddingService) GetHighestBid(auctionID string) (models.Bid, error) {
	if auctionID == "" {
		return models.Bid{}, fmt.Errorf("service: %w - empty auction ID", biddingerrors.ErrInvalidBid)
	}

	highest, err := s.repo.GetHighestBid(auctionID)
	if err != nil {
		return models.Bid{}, fmt.Errorf("service: failed to get highest bid for auction %s: %w", auctionID, err)
	}

	return highest, nil
}

// GetAuctionsByBidder returns all auctions a user has placed bids on
func (s *BiddingService) GetAuctionsByBidder(userID string) ([]models.Auction, error) {
	if userID == "" {
		return nil, fmt.Errorf("service: %w - empty user ID", biddingerrors.ErrInvalidBid)
	}

	auctions, err := s.repo.GetAuctionsByBidder(userID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to get auctions for user %s: %w", userID, err)
	}

	return auctions, nil
}
