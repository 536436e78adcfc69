package repository

import (
	"context"
	"fmt"
	"live-auctions/internal/biddingerrors"
	model "live-auctions/internal/models"
	"sort"
	"sync"
	"time"
)

// AuctionDB defines the auction and bid storage interface for the auction system
type AuctionDB interface {
	CreateAuction(auction model.Auction) error
	GetAuction(auctionID string) (model.Auction, error)
	ListAuctions(status model.AuctionStatus) ([]model.Auction, error)
	DeleteAuction(auctionID string) error

	// FindAuctionForUpdate acquires the auction's exclusive lock and returns a
	// fresh copy. The caller must invoke release once its writes are done.
	FindAuctionForUpdate(ctx context.Context, auctionID string) (model.Auction, func(), error)
	SaveAuction(auction model.Auction) error
	// SaveBid persists bid and auction as a single atomic unit.
	SaveBid(auction model.Auction, bid model.Bid) error

	FindByStatusAndStartBefore(status model.AuctionStatus, t time.Time) ([]model.Auction, error)
	FindByStatusAndEndBefore(status model.AuctionStatus, t time.Time) ([]model.Auction, error)

	GetHighestBid(auctionID string) (model.Bid, error)
	GetBidsByAuction(auctionID string) ([]model.Bid, error)
	GetAuctionsByBidder(userID string) ([]model.Auction, error)
}

// UserDB is the identity lookup used to validate bidders and sellers
type UserDB interface {
	AddUser(user model.User) error
	FindUser(userID string) (model.User, error)
}

// MemoryRepo is a concurrency-safe in-memory implementation of AuctionDB and UserDB
type MemoryRepo struct {
	mu           sync.RWMutex
	auctions     map[string]model.Auction // key: auctionID -> value: auction
	bids         map[string][]model.Bid   // key: auctionID -> value: bids in arrival order
	users        map[string]model.User    // key: userID -> value: user
	userAuctions map[string][]string      // key: userID -> value: list of auctionIDs user has bid on

	locks *KeyedLocker
}

// NewMemoryRepo creates a new in-memory repository instance
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		auctions:     make(map[string]model.Auction),
		bids:         make(map[string][]model.Bid),
		users:        make(map[string]model.User),
		userAuctions: make(map[string][]string),
		locks:        NewKeyedLocker(),
	}
}

// CreateAuction stores a new auction
func (r *MemoryRepo) CreateAuction(auction model.Auction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.auctions[auction.AuctionID]; exists {
		return fmt.Errorf("create auction %s: %w - duplicate id", auction.AuctionID, biddingerrors.ErrInvalidAuction)
	}
	r.auctions[auction.AuctionID] = auction
	return nil
}

// GetAuction returns a snapshot of an auction
func (r *MemoryRepo) GetAuction(auctionID string) (model.Auction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.auctions[auctionID]
	if !ok {
		return model.Auction{}, fmt.Errorf("get auction %s: %w", auctionID, biddingerrors.ErrAuctionNotFound)
	}
	return a, nil
}

// ListAuctions returns auctions with the given status, or all when status is empty,
// ordered by start time
func (r *MemoryRepo) ListAuctions(status model.AuctionStatus) ([]model.Auction, error) {
	return r.filterAuctions(func(a model.Auction) bool {
		return status == "" || a.Status == status
	}), nil
}

// DeleteAuction removes an auction that has no bids
func (r *MemoryRepo) DeleteAuction(auctionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.auctions[auctionID]; !ok {
		return fmt.Errorf("delete auction %s: %w", auctionID, biddingerrors.ErrAuctionNotFound)
	}
	if len(r.bids[auctionID]) > 0 {
		return fmt.Errorf("delete auction %s: %w", auctionID, biddingerrors.ErrAuctionHasBids)
	}
	delete(r.auctions, auctionID)
	delete(r.bids, auctionID)
	return nil
}

// FindAuctionForUpdate locks the auction and returns its current state
func (r *MemoryRepo) FindAuctionForUpdate(ctx context.Context, auctionID string) (model.Auction, func(), error) {
	if _, err := r.GetAuction(auctionID); err != nil {
		return model.Auction{}, nil, err
	}

	release, err := r.locks.Lock(ctx, auctionID)
	if err != nil {
		return model.Auction{}, nil, fmt.Errorf("lock auction %s: %w: %v", auctionID, biddingerrors.ErrLockTimeout, err)
	}

	// re-read under the lock; the auction may have been deleted while waiting
	a, err := r.GetAuction(auctionID)
	if err != nil {
		release()
		return model.Auction{}, nil, err
	}
	return a, release, nil
}

// SaveAuction overwrites an existing auction
func (r *MemoryRepo) SaveAuction(auction model.Auction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.auctions[auction.AuctionID]; !ok {
		return fmt.Errorf("save auction %s: %w", auction.AuctionID, biddingerrors.ErrAuctionNotFound)
	}
	r.auctions[auction.AuctionID] = auction
	return nil
}

// SaveBid records a bid and the updated auction together
func (r *MemoryRepo) SaveBid(auction model.Auction, bid model.Bid) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.auctions[bid.AuctionID]; !ok || bid.AuctionID != auction.AuctionID {
		return fmt.Errorf("record bid for auction %s: %w", bid.AuctionID, biddingerrors.ErrAuctionNotFound)
	}

	r.auctions[auction.AuctionID] = auction
	r.bids[bid.AuctionID] = append(r.bids[bid.AuctionID], bid)

	for _, id := range r.userAuctions[bid.BidderID] {
		if id == bid.AuctionID {
			return nil
		}
	}
	r.userAuctions[bid.BidderID] = append(r.userAuctions[bid.BidderID], bid.AuctionID)

	return nil
}

// FindByStatusAndStartBefore returns auctions in status whose start time is at or before t
func (r *MemoryRepo) FindByStatusAndStartBefore(status model.AuctionStatus, t time.Time) ([]model.Auction, error) {
	return r.filterAuctions(func(a model.Auction) bool {
		return a.Status == status && !a.StartTime.After(t)
	}), nil
}

// FindByStatusAndEndBefore returns auctions in status whose end time is at or before t
func (r *MemoryRepo) FindByStatusAndEndBefore(status model.AuctionStatus, t time.Time) ([]model.Auction, error) {
	return r.filterAuctions(func(a model.Auction) bool {
		return a.Status == status && !a.EndTime.After(t)
	}), nil
}

// GetHighestBid returns the most recently accepted bid, which is also the highest
func (r *MemoryRepo) GetHighestBid(auctionID string) (model.Bid, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.auctions[auctionID]; !ok {
		return model.Bid{}, fmt.Errorf("get highest bid for auction %s: %w", auctionID, biddingerrors.ErrAuctionNotFound)
	}
	bids := r.bids[auctionID]
	if len(bids) == 0 {
		return model.Bid{}, fmt.Errorf("get highest bid for auction %s: %w", auctionID, biddingerrors.ErrNoBids)
	}
	return bids[len(bids)-1], nil
}

// GetBidsByAuction returns all bids for an auction ordered by amount descending
func (r *MemoryRepo) GetBidsByAuction(auctionID string) ([]model.Bid, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.auctions[auctionID]; !ok {
		return nil, fmt.Errorf("get bids for auction %s: %w", auctionID, biddingerrors.ErrAuctionNotFound)
	}
	bids := append([]model.Bid(nil), r.bids[auctionID]...)
	SortByAmountDesc(bids)
	return bids, nil
}

// GetAuctionsByBidder returns all auctions a user has bid on
func (r *MemoryRepo) GetAuctionsByBidder(userID string) ([]model.Auction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	auctionIDs, ok := r.userAuctions[userID]
	if !ok || len(auctionIDs) == 0 {
		return nil, fmt.Errorf("get auctions for user %s: %w", userID, biddingerrors.ErrUserNoBids)
	}

	auctions := make([]model.Auction, 0, len(auctionIDs))
	for _, id := range auctionIDs {
		if a, exists := r.auctions[id]; exists {
			auctions = append(auctions, a)
		}
	}
	return auctions, nil
}

// AddUser registers an identity
func (r *MemoryRepo) AddUser(user model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[user.UserID] = user
	return nil
}

// FindUser looks up an identity
func (r *MemoryRepo) FindUser(userID string) (model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[userID]
	if !ok {
		return model.User{}, fmt.Errorf("find user %s: %w", userID, biddingerrors.ErrUserNotFound)
	}
	return u, nil
}

func (r *MemoryRepo) filterAuctions(keep func(model.Auction) bool) []model.Auction {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]model.Auction, 0)
	for _, a := range r.auctions {
		if keep(a) {
			out = append(out, a)
		}
	}
	sortByStartTime(out)
	return out
}

// SortByAmountDesc orders bids by amount, highest first; equal amounts keep arrival order
func SortByAmountDesc(bids []model.Bid) {
	sort.SliceStable(bids, func(i, j int) bool {
		return bids[i].Amount.GreaterThan(bids[j].Amount)
	})
}

func sortByStartTime(auctions []model.Auction) {
	sort.Slice(auctions, func(i, j int) bool {
		if auctions[i].StartTime.Equal(auctions[j].StartTime) {
			return auctions[i].AuctionID < auctions[j].AuctionID
		}
		return auctions[i].StartTime.Before(auctions[j].StartTime)
	})
}
