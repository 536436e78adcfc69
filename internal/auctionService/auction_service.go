package auctions

import (
	"context"
	"fmt"
	"live-auctions/internal/biddingerrors"
	"live-auctions/internal/models"
	"live-auctions/internal/money"
	"live-auctions/internal/repository"
	"live-auctions/utils"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// startGrace tolerates client clock skew on a start time of "now"
const startGrace = time.Minute

// StatusKeeper keeps persisted auction status in line with the clock
type StatusKeeper interface {
	EnsureCurrentStatus(ctx context.Context, auctionID string) (models.Auction, error)
	AdvanceLocked(auction *models.Auction, now time.Time) error
}

// CreateAuctionInput carries the fields a seller provides for a new auction
type CreateAuctionInput struct {
	Title         string
	Description   string
	SellerID      string
	StartingPrice decimal.Decimal
	StartTime     time.Time
	EndTime       time.Time
}

// UpdateAuctionInput holds optional changes; nil fields are left as they are.
// Start and end time are only applied together.
type UpdateAuctionInput struct {
	Title         *string
	Description   *string
	StartingPrice *decimal.Decimal
	StartTime     *time.Time
	EndTime       *time.Time
}

// AuctionService manages auctions outside of bidding
type AuctionService struct {
	repo        repository.AuctionDB
	users       repository.UserDB
	status      StatusKeeper
	lockTimeout time.Duration
	now         func() time.Time
}

// NewAuctionService creates a new AuctionService instance
func NewAuctionService(repo repository.AuctionDB, users repository.UserDB, status StatusKeeper, lockTimeout time.Duration) *AuctionService {
	return &AuctionService{
		repo:        repo,
		users:       users,
		status:      status,
		lockTimeout: lockTimeout,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// CreateAuction validates and stores a new auction. It starts ACTIVE when its
// start time has already been reached, SCHEDULED otherwise.
func (s *AuctionService) CreateAuction(in CreateAuctionInput) (models.Auction, error) {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" || in.SellerID == "" {
		return models.Auction{}, fmt.Errorf("service: %w - missing title or sellerID", biddingerrors.ErrInvalidAuction)
	}
	if in.StartingPrice.IsNegative() || money.ExceedsPrecision(in.StartingPrice) {
		return models.Auction{}, fmt.Errorf("service: %w - starting price must be non-negative with at most %d decimal places", biddingerrors.ErrInvalidAuction, money.Precision)
	}

	now := s.now()
	if err := validateWindow(in.StartTime, in.EndTime, now); err != nil {
		return models.Auction{}, err
	}
	if _, err := s.users.FindUser(in.SellerID); err != nil {
		return models.Auction{}, fmt.Errorf("service: failed to find seller %s: %w", in.SellerID, err)
	}

	status := models.StatusScheduled
	if !now.Before(in.StartTime) {
		status = models.StatusActive
	}
	price := in.StartingPrice.Round(money.Precision)

	auction := models.Auction{
		AuctionID:     utils.GenerateID(),
		Title:         in.Title,
		Description:   in.Description,
		SellerID:      in.SellerID,
		StartingPrice: price,
		CurrentPrice:  price,
		StartTime:     in.StartTime.UTC(),
		EndTime:       in.EndTime.UTC(),
		Status:        status,
		CreatedAt:     now,
	}
	if err := s.repo.CreateAuction(auction); err != nil {
		return models.Auction{}, fmt.Errorf("service: failed to create auction: %w", err)
	}

	utils.Info("Auction created", map[string]any{
		"auction_id": auction.AuctionID,
		"seller_id":  auction.SellerID,
		"status":     auction.Status,
	})
	return auction, nil
}

// GetAuction returns an auction with its status brought up to date
func (s *AuctionService) GetAuction(ctx context.Context, auctionID string) (models.Auction, error) {
	if auctionID == "" {
		return models.Auction{}, fmt.Errorf("service: %w - empty auction ID", biddingerrors.ErrInvalidAuction)
	}

	auction, err := s.status.EnsureCurrentStatus(ctx, auctionID)
	if err != nil {
		return models.Auction{}, fmt.Errorf("service: failed to get auction %s: %w", auctionID, err)
	}
	return auction, nil
}

// ListAuctions returns auctions, optionally filtered by a status name
func (s *AuctionService) ListAuctions(ctx context.Context, status string) ([]models.Auction, error) {
	var filter models.AuctionStatus
	if status != "" {
		parsed, ok := models.ParseStatus(strings.ToUpper(status))
		if !ok {
			return nil, fmt.Errorf("service: %w - unknown status %q", biddingerrors.ErrInvalidAuction, status)
		}
		filter = parsed
	}

	candidates, err := s.repo.ListAuctions("")
	if err != nil {
		return nil, fmt.Errorf("service: failed to list auctions: %w", err)
	}

	out := make([]models.Auction, 0, len(candidates))
	for _, a := range candidates {
		current, err := s.status.EnsureCurrentStatus(ctx, a.AuctionID)
		if err != nil {
			// fall back to the snapshot; the sweeper will catch up
			utils.Warn("Failed to refresh auction status", map[string]any{
				"auction_id": a.AuctionID,
				"error":      err.Error(),
			})
			current = a
		}
		if filter == "" || current.Status == filter {
			out = append(out, current)
		}
	}
	return out, nil
}

// UpdateAuction applies changes under the auction's lock. Closed auctions are
// immutable and the starting price is fixed once a bid exists.
func (s *AuctionService) UpdateAuction(ctx context.Context, auctionID string, in UpdateAuctionInput) (models.Auction, error) {
	lockCtx, cancel := context.WithTimeout(ctx, s.lockTimeout)
	defer cancel()

	auction, release, err := s.repo.FindAuctionForUpdate(lockCtx, auctionID)
	if err != nil {
		return models.Auction{}, fmt.Errorf("service: failed to load auction %s: %w", auctionID, err)
	}
	defer release()

	now := s.now()
	if err := s.status.AdvanceLocked(&auction, now); err != nil {
		return models.Auction{}, fmt.Errorf("service: failed to refresh status of auction %s: %w", auctionID, err)
	}
	if auction.IsClosed() {
		return models.Auction{}, fmt.Errorf("service: %w - cannot update auction %s", biddingerrors.ErrAuctionClosed, auctionID)
	}

	if (in.StartTime == nil) != (in.EndTime == nil) {
		return models.Auction{}, fmt.Errorf("service: %w - start and end time must be updated together", biddingerrors.ErrInvalidAuction)
	}
	if in.StartTime != nil {
		if auction.Status != models.StatusScheduled {
			return models.Auction{}, fmt.Errorf("service: %w - auction %s already started", biddingerrors.ErrInvalidAuction, auctionID)
		}
		if err := validateWindow(*in.StartTime, *in.EndTime, now); err != nil {
			return models.Auction{}, err
		}
		auction.StartTime = in.StartTime.UTC()
		auction.EndTime = in.EndTime.UTC()
	}
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return models.Auction{}, fmt.Errorf("service: %w - empty title", biddingerrors.ErrInvalidAuction)
		}
		auction.Title = title
	}
	if in.Description != nil {
		auction.Description = *in.Description
	}
	if in.StartingPrice != nil {
		if in.StartingPrice.IsNegative() || money.ExceedsPrecision(*in.StartingPrice) {
			return models.Auction{}, fmt.Errorf("service: %w - starting price must be non-negative with at most %d decimal places", biddingerrors.ErrInvalidAuction, money.Precision)
		}
		if auction.HasLeader() {
			return models.Auction{}, fmt.Errorf("service: %w - starting price is fixed", biddingerrors.ErrAuctionHasBids)
		}
		auction.StartingPrice = in.StartingPrice.Round(money.Precision)
		auction.CurrentPrice = auction.StartingPrice
	}

	if err := s.repo.SaveAuction(auction); err != nil {
		return models.Auction{}, fmt.Errorf("service: failed to update auction %s: %w", auctionID, err)
	}
	// a new start time may already be due
	if err := s.status.AdvanceLocked(&auction, now); err != nil {
		return models.Auction{}, fmt.Errorf("service: failed to refresh status of auction %s: %w", auctionID, err)
	}

	utils.Info("Auction updated", map[string]any{"auction_id": auctionID, "status": auction.Status})
	return auction, nil
}

// DeleteAuction removes an auction that has not received any bid
func (s *AuctionService) DeleteAuction(ctx context.Context, auctionID string) error {
	lockCtx, cancel := context.WithTimeout(ctx, s.lockTimeout)
	defer cancel()

	_, release, err := s.repo.FindAuctionForUpdate(lockCtx, auctionID)
	if err != nil {
		return fmt.Errorf("service: failed to load auction %s: %w", auctionID, err)
	}
	defer release()

	if err := s.repo.DeleteAuction(auctionID); err != nil {
		return fmt.Errorf("service: failed to delete auction %s: %w", auctionID, err)
	}

	utils.Info("Auction deleted", map[string]any{"auction_id": auctionID})
	return nil
}

func validateWindow(start, end, now time.Time) error {
	if start.IsZero() || end.IsZero() {
		return fmt.Errorf("service: %w - start and end time are required", biddingerrors.ErrInvalidAuction)
	}
	if start.Before(now.Add(-startGrace)) {
		return fmt.Errorf("service: %w - start time is in the past", biddingerrors.ErrInvalidAuction)
	}
	if !end.After(start) {
		return fmt.Errorf("service: %w - end time must be after start time", biddingerrors.ErrInvalidAuction)
	}
	if !end.After(now) {
		return fmt.Errorf("service: %w - end time is in the past", biddingerrors.ErrInvalidAuction)
	}
	return nil
}
