package repository

import (
	"context"
	"errors"
	"fmt"
	"live-auctions/internal/biddingerrors"
	model "live-auctions/internal/models"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// GormRepo is a durable AuctionDB and UserDB backed by SQLite through gorm.
// Row-level locks are held in process: a single node owns each auction.
type GormRepo struct {
	db    *gorm.DB
	locks *KeyedLocker
}

// OpenGormRepo opens (or creates) the SQLite database at path and migrates the schema
func OpenGormRepo(path string) (*GormRepo, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("open store: %w", err)
		}
	}
	return NewGormRepo(sqlite.Open(path))
}

// NewGormRepo wraps an already selected gorm dialector
func NewGormRepo(dialector gorm.Dialector) (*GormRepo, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open store: %w: %v", biddingerrors.ErrPersistence, err)
	}
	if err := db.AutoMigrate(&model.User{}, &model.Auction{}, &model.Bid{}); err != nil {
		return nil, fmt.Errorf("migrate store: %w: %v", biddingerrors.ErrPersistence, err)
	}
	return &GormRepo{db: db, locks: NewKeyedLocker()}, nil
}

// Close releases the underlying connection pool
func (r *GormRepo) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// CreateAuction inserts a new auction row
func (r *GormRepo) CreateAuction(auction model.Auction) error {
	if err := r.db.Create(&auction).Error; err != nil {
		return persistenceErr("create auction "+auction.AuctionID, err)
	}
	return nil
}

// GetAuction returns a snapshot of an auction
func (r *GormRepo) GetAuction(auctionID string) (model.Auction, error) {
	return r.getAuction(r.db, auctionID)
}

// ListAuctions returns auctions with the given status, or all when status is empty
func (r *GormRepo) ListAuctions(status model.AuctionStatus) ([]model.Auction, error) {
	q := r.db.Order("start_time ASC, auction_id ASC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var out []model.Auction
	if err := q.Find(&out).Error; err != nil {
		return nil, persistenceErr("list auctions", err)
	}
	return out, nil
}

// DeleteAuction removes an auction that has no bids
func (r *GormRepo) DeleteAuction(auctionID string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if _, err := r.getAuction(tx, auctionID); err != nil {
			return err
		}
		var count int64
		if err := tx.Model(&model.Bid{}).Where("auction_id = ?", auctionID).Count(&count).Error; err != nil {
			return persistenceErr("count bids for auction "+auctionID, err)
		}
		if count > 0 {
			return fmt.Errorf("delete auction %s: %w", auctionID, biddingerrors.ErrAuctionHasBids)
		}
		if err := tx.Delete(&model.Auction{}, "auction_id = ?", auctionID).Error; err != nil {
			return persistenceErr("delete auction "+auctionID, err)
		}
		return nil
	})
}

// FindAuctionForUpdate locks the auction and returns its current row
func (r *GormRepo) FindAuctionForUpdate(ctx context.Context, auctionID string) (model.Auction, func(), error) {
	if _, err := r.GetAuction(auctionID); err != nil {
		return model.Auction{}, nil, err
	}

	release, err := r.locks.Lock(ctx, auctionID)
	if err != nil {
		return model.Auction{}, nil, fmt.Errorf("lock auction %s: %w: %v", auctionID, biddingerrors.ErrLockTimeout, err)
	}

	a, err := r.getAuction(r.db.WithContext(ctx), auctionID)
	if err != nil {
		release()
		return model.Auction{}, nil, err
	}
	return a, release, nil
}

// SaveAuction overwrites an existing auction row
func (r *GormRepo) SaveAuction(auction model.Auction) error {
	res := r.db.Model(&model.Auction{}).Where("auction_id = ?", auction.AuctionID).Select("*").Updates(&auction)
	if res.Error != nil {
		return persistenceErr("save auction "+auction.AuctionID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("save auction %s: %w", auction.AuctionID, biddingerrors.ErrAuctionNotFound)
	}
	return nil
}

// SaveBid inserts the bid and updates the auction in one transaction
func (r *GormRepo) SaveBid(auction model.Auction, bid model.Bid) error {
	if bid.AuctionID != auction.AuctionID {
		return fmt.Errorf("record bid for auction %s: %w", bid.AuctionID, biddingerrors.ErrAuctionNotFound)
	}
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&bid).Error; err != nil {
			return persistenceErr("record bid "+bid.BidID, err)
		}
		res := tx.Model(&model.Auction{}).Where("auction_id = ?", auction.AuctionID).Select("*").Updates(&auction)
		if res.Error != nil {
			return persistenceErr("save auction "+auction.AuctionID, res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("record bid for auction %s: %w", auction.AuctionID, biddingerrors.ErrAuctionNotFound)
		}
		return nil
	})
}

// FindByStatusAndStartBefore returns auctions in status whose start time is at or before t
func (r *GormRepo) FindByStatusAndStartBefore(status model.AuctionStatus, t time.Time) ([]model.Auction, error) {
	return r.findDue(status, func(a model.Auction) bool { return !a.StartTime.After(t) })
}

// FindByStatusAndEndBefore returns auctions in status whose end time is at or before t
func (r *GormRepo) FindByStatusAndEndBefore(status model.AuctionStatus, t time.Time) ([]model.Auction, error) {
	return r.findDue(status, func(a model.Auction) bool { return !a.EndTime.After(t) })
}

// GetHighestBid returns the highest bid on an auction
func (r *GormRepo) GetHighestBid(auctionID string) (model.Bid, error) {
	bids, err := r.GetBidsByAuction(auctionID)
	if err != nil {
		return model.Bid{}, err
	}
	if len(bids) == 0 {
		return model.Bid{}, fmt.Errorf("get highest bid for auction %s: %w", auctionID, biddingerrors.ErrNoBids)
	}
	return bids[0], nil
}

// GetBidsByAuction returns all bids for an auction ordered by amount descending
func (r *GormRepo) GetBidsByAuction(auctionID string) ([]model.Bid, error) {
	if _, err := r.GetAuction(auctionID); err != nil {
		return nil, err
	}
	var bids []model.Bid
	// amounts are stored as text, so ordering happens in Go
	if err := r.db.Where("auction_id = ?", auctionID).Order("created_at ASC").Find(&bids).Error; err != nil {
		return nil, persistenceErr("get bids for auction "+auctionID, err)
	}
	SortByAmountDesc(bids)
	return bids, nil
}

// GetAuctionsByBidder returns all auctions a user has bid on
func (r *GormRepo) GetAuctionsByBidder(userID string) ([]model.Auction, error) {
	var auctions []model.Auction
	sub := r.db.Model(&model.Bid{}).Distinct("auction_id").Where("bidder_id = ?", userID)
	if err := r.db.Where("auction_id IN (?)", sub).Order("start_time ASC").Find(&auctions).Error; err != nil {
		return nil, persistenceErr("get auctions for user "+userID, err)
	}
	if len(auctions) == 0 {
		return nil, fmt.Errorf("get auctions for user %s: %w", userID, biddingerrors.ErrUserNoBids)
	}
	return auctions, nil
}

// AddUser inserts or replaces an identity
func (r *GormRepo) AddUser(user model.User) error {
	if err := r.db.Save(&user).Error; err != nil {
		return persistenceErr("add user "+user.UserID, err)
	}
	return nil
}

// FindUser looks up an identity
func (r *GormRepo) FindUser(userID string) (model.User, error) {
	var u model.User
	err := r.db.Where("user_id = ?", userID).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.User{}, fmt.Errorf("find user %s: %w", userID, biddingerrors.ErrUserNotFound)
	}
	if err != nil {
		return model.User{}, persistenceErr("find user "+userID, err)
	}
	return u, nil
}

func (r *GormRepo) getAuction(db *gorm.DB, auctionID string) (model.Auction, error) {
	var a model.Auction
	err := db.Where("auction_id = ?", auctionID).First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Auction{}, fmt.Errorf("get auction %s: %w", auctionID, biddingerrors.ErrAuctionNotFound)
	}
	if err != nil {
		return model.Auction{}, persistenceErr("get auction "+auctionID, err)
	}
	return a, nil
}

// findDue filters by status in SQL and by time in Go; SQLite stores times as
// text whose lexical order is not reliable across offsets.
func (r *GormRepo) findDue(status model.AuctionStatus, due func(model.Auction) bool) ([]model.Auction, error) {
	var candidates []model.Auction
	if err := r.db.Where("status = ?", status).Find(&candidates).Error; err != nil {
		return nil, persistenceErr("find auctions in status "+string(status), err)
	}
	out := make([]model.Auction, 0, len(candidates))
	for _, a := range candidates {
		if due(a) {
			out = append(out, a)
		}
	}
	sortByStartTime(out)
	return out, nil
}

func persistenceErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, biddingerrors.ErrPersistence, err)
}
