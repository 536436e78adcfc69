package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"live-auctions/internal/biddingerrors"
	"live-auctions/internal/fanout"
	model "live-auctions/internal/models"
	"live-auctions/internal/repository"
	"live-auctions/utils"
	"time"
)

// Sweeper advances auctions SCHEDULED -> ACTIVE -> CLOSED as their start and
// end times pass, publishing a status-changed event for every transition and
// a private winner notification at close.
type Sweeper struct {
	repo        repository.AuctionDB
	notifier    fanout.Notifier
	lockTimeout time.Duration
	now         func() time.Time
}

// Option customizes a Sweeper
type Option func(*Sweeper)

// WithClock replaces the wall clock used by EnsureCurrentStatus and Run
func WithClock(now func() time.Time) Option {
	return func(s *Sweeper) { s.now = now }
}

// Result summarizes one sweep pass
type Result struct {
	Activated int
	Closed    int
	Failed    int
}

// NewSweeper creates a Sweeper. lockTimeout bounds the wait for each auction's lock.
func NewSweeper(repo repository.AuctionDB, notifier fanout.Notifier, lockTimeout time.Duration, opts ...Option) *Sweeper {
	s := &Sweeper{
		repo:        repo,
		notifier:    notifier,
		lockTimeout: lockTimeout,
		now:         func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run sweeps once immediately and then every interval until ctx is done
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logPass(s.Sweep(ctx, s.now()))
	for {
		select {
		case <-ctx.Done():
			utils.Info("Lifecycle sweeper stopped", nil)
			return
		case <-ticker.C:
			s.logPass(s.Sweep(ctx, s.now()))
		}
	}
}

// Sweep applies every transition due at now. Activation runs before closing so
// an auction whose whole window has passed still goes through ACTIVE first.
// A failure on one auction is logged and never stops the pass.
func (s *Sweeper) Sweep(ctx context.Context, now time.Time) Result {
	var res Result

	starting, err := s.repo.FindByStatusAndStartBefore(model.StatusScheduled, now)
	if err != nil {
		utils.Error("Failed to query auctions due to start", map[string]any{"error": err.Error()})
		res.Failed++
	}
	for _, a := range starting {
		s.sweepOne(ctx, a.AuctionID, now, &res)
	}

	ending, err := s.repo.FindByStatusAndEndBefore(model.StatusActive, now)
	if err != nil {
		utils.Error("Failed to query auctions due to close", map[string]any{"error": err.Error()})
		res.Failed++
	}
	for _, a := range ending {
		s.sweepOne(ctx, a.AuctionID, now, &res)
	}

	return res
}

func (s *Sweeper) sweepOne(ctx context.Context, auctionID string, now time.Time, res *Result) {
	before, after, err := s.advance(ctx, auctionID, now)
	if err != nil {
		res.Failed++
		utils.Error("Failed to transition auction", map[string]any{
			"auction_id": auctionID,
			"error":      err.Error(),
		})
		return
	}
	if before == model.StatusScheduled && after != model.StatusScheduled {
		res.Activated++
	}
	if before != model.StatusClosed && after == model.StatusClosed {
		res.Closed++
	}
}

// EnsureCurrentStatus brings one auction's persisted status up to date with
// the clock and returns it. Auctions with nothing due are returned without
// taking the lock.
func (s *Sweeper) EnsureCurrentStatus(ctx context.Context, auctionID string) (model.Auction, error) {
	a, err := s.repo.GetAuction(auctionID)
	if err != nil {
		return model.Auction{}, err
	}
	now := s.now()
	if !transitionDue(a, now) {
		return a, nil
	}

	lockCtx, cancel := context.WithTimeout(ctx, s.lockTimeout)
	defer cancel()
	locked, release, err := s.repo.FindAuctionForUpdate(lockCtx, auctionID)
	if err != nil {
		return model.Auction{}, err
	}
	defer release()

	if err := s.AdvanceLocked(&locked, now); err != nil {
		return model.Auction{}, err
	}
	return locked, nil
}

func (s *Sweeper) advance(ctx context.Context, auctionID string, now time.Time) (model.AuctionStatus, model.AuctionStatus, error) {
	lockCtx, cancel := context.WithTimeout(ctx, s.lockTimeout)
	defer cancel()

	a, release, err := s.repo.FindAuctionForUpdate(lockCtx, auctionID)
	if err != nil {
		return "", "", err
	}
	defer release()

	before := a.Status
	err = s.AdvanceLocked(&a, now)
	return before, a.Status, err
}

// AdvanceLocked applies the transitions due at now to an auction whose lock
// the caller already holds, persisting and publishing each one in order.
// On error the auction keeps the last status that was persisted.
func (s *Sweeper) AdvanceLocked(a *model.Auction, now time.Time) error {
	if a.Status == model.StatusScheduled && !now.Before(a.StartTime) {
		if err := s.transition(a, model.StatusActive); err != nil {
			return err
		}
	}

	if a.Status == model.StatusActive && !now.Before(a.EndTime) {
		if err := s.transition(a, model.StatusClosed); err != nil {
			return err
		}
		s.announceWinner(*a)
	}
	return nil
}

func (s *Sweeper) transition(a *model.Auction, next model.AuctionStatus) error {
	prev := a.Status
	a.Status = next
	if err := s.repo.SaveAuction(*a); err != nil {
		a.Status = prev
		return fmt.Errorf("lifecycle: failed to move auction %s from %s to %s: %w", a.AuctionID, prev, next, err)
	}

	utils.Info("Auction status changed", map[string]any{
		"auction_id": a.AuctionID,
		"from":       prev,
		"to":         next,
	})
	s.notifier.NotifyStatusChanged(a.AuctionID, next)
	return nil
}

func (s *Sweeper) announceWinner(a model.Auction) {
	winning, err := s.repo.GetHighestBid(a.AuctionID)
	if errors.Is(err, biddingerrors.ErrNoBids) {
		utils.Info("Auction closed without bids", map[string]any{"auction_id": a.AuctionID})
		return
	}
	if err != nil {
		utils.Error("Failed to determine auction winner", map[string]any{
			"auction_id": a.AuctionID,
			"error":      err.Error(),
		})
		return
	}

	utils.Info("Auction won", map[string]any{
		"auction_id": a.AuctionID,
		"bidder_id":  winning.BidderID,
		"amount":     winning.Amount.String(),
	})
	s.notifier.NotifyAuctionWon(a, winning)
}

func (s *Sweeper) logPass(res Result) {
	if res == (Result{}) {
		utils.Debug("Lifecycle sweep found nothing due", nil)
		return
	}
	utils.Info("Lifecycle sweep finished", map[string]any{
		"activated": res.Activated,
		"closed":    res.Closed,
		"failed":    res.Failed,
	})
}

func transitionDue(a model.Auction, now time.Time) bool {
	switch a.Status {
	case model.StatusScheduled:
		return !now.Before(a.StartTime)
	case model.StatusActive:
		return !now.Before(a.EndTime)
	}
	return false
}
