package repository

import (
	"context"
	"fmt"
	"live-auctions/internal/biddingerrors"
	model "live-auctions/internal/models"
	"live-auctions/internal/money"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
)

func newGormRepo(t *testing.T) *GormRepo {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	repo, err := NewGormRepo(sqlite.Open(dsn))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestGormRepo_AuctionRoundTrip(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	repo := newGormRepo(t)

	a := newAuction("auction1", "Vintage lamp", 50, now, now.Add(time.Hour), model.StatusActive)
	require.NoError(t, repo.CreateAuction(a))
	require.Error(t, repo.CreateAuction(a))

	got, err := repo.GetAuction("auction1")
	require.NoError(t, err)
	require.Equal(t, "Vintage lamp", got.Title)
	require.True(t, got.StartingPrice.Equal(money.FromFloat(50)))
	require.True(t, got.StartTime.Equal(now))

	_, err = repo.GetAuction("missing")
	require.ErrorIs(t, err, biddingerrors.ErrAuctionNotFound)

	got.Status = model.StatusClosed
	require.NoError(t, repo.SaveAuction(got))
	closed, err := repo.ListAuctions(model.StatusClosed)
	require.NoError(t, err)
	require.Len(t, closed, 1)

	require.ErrorIs(t, repo.SaveAuction(newAuction("ghost", "x", 1, now, now, model.StatusActive)), biddingerrors.ErrAuctionNotFound)
}

func TestGormRepo_BidsAndBidders(t *testing.T) {
	now := time.Now().UTC()
	repo := newGormRepo(t)
	a := newAuction("auction1", "A", 10, now.Add(-time.Minute), now.Add(time.Hour), model.StatusActive)
	require.NoError(t, repo.CreateAuction(a))
	require.NoError(t, repo.CreateAuction(newAuction("auction2", "B", 10, now, now.Add(time.Hour), model.StatusActive)))

	for i, amount := range []float64{10, 12.5, 99.99} {
		b := newBid(fmt.Sprintf("bid%d", i), "auction1", fmt.Sprintf("user%d", i%2), amount, now.Add(time.Duration(i)*time.Second))
		require.NoError(t, repo.SaveBid(withBid(a, b), b))
	}

	bids, err := repo.GetBidsByAuction("auction1")
	require.NoError(t, err)
	require.Len(t, bids, 3)
	require.Equal(t, "99.99", money.Format(bids[0].Amount))
	require.Equal(t, "10.00", money.Format(bids[2].Amount))

	highest, err := repo.GetHighestBid("auction1")
	require.NoError(t, err)
	require.Equal(t, "bid2", highest.BidID)

	stored, err := repo.GetAuction("auction1")
	require.NoError(t, err)
	require.Equal(t, "user0", stored.CurrentBidder)
	require.Equal(t, "99.99", money.Format(stored.CurrentPrice))

	_, err = repo.GetHighestBid("auction2")
	require.ErrorIs(t, err, biddingerrors.ErrNoBids)

	auctions, err := repo.GetAuctionsByBidder("user1")
	require.NoError(t, err)
	require.Equal(t, []string{"auction1"}, ids(auctions))

	_, err = repo.GetAuctionsByBidder("nobody")
	require.ErrorIs(t, err, biddingerrors.ErrUserNoBids)

	require.ErrorIs(t, repo.DeleteAuction("auction1"), biddingerrors.ErrAuctionHasBids)
	require.NoError(t, repo.DeleteAuction("auction2"))
}

func TestGormRepo_DueQueriesAndLocking(t *testing.T) {
	now := time.Now().UTC()
	repo := newGormRepo(t)
	require.NoError(t, repo.CreateAuction(newAuction("due", "A", 10, now.Add(-time.Minute), now.Add(time.Hour), model.StatusScheduled)))
	require.NoError(t, repo.CreateAuction(newAuction("later", "B", 10, now.Add(time.Minute), now.Add(time.Hour), model.StatusScheduled)))
	require.NoError(t, repo.CreateAuction(newAuction("ending", "C", 10, now.Add(-time.Hour), now, model.StatusActive)))

	starting, err := repo.FindByStatusAndStartBefore(model.StatusScheduled, now)
	require.NoError(t, err)
	require.Equal(t, []string{"due"}, ids(starting))

	ending, err := repo.FindByStatusAndEndBefore(model.StatusActive, now)
	require.NoError(t, err)
	require.Equal(t, []string{"ending"}, ids(ending))

	_, release, err := repo.FindAuctionForUpdate(context.Background(), "due")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, _, err = repo.FindAuctionForUpdate(ctx, "due")
	require.ErrorIs(t, err, biddingerrors.ErrLockTimeout)
	release()

	_, _, err = repo.FindAuctionForUpdate(context.Background(), "missing")
	require.ErrorIs(t, err, biddingerrors.ErrAuctionNotFound)
}

func TestGormRepo_Users(t *testing.T) {
	repo := newGormRepo(t)
	require.NoError(t, repo.AddUser(model.User{UserID: "user1", Username: "alice", Email: "alice@example.com"}))

	u, err := repo.FindUser("user1")
	require.NoError(t, err)
	require.Equal(t, "alice", u.Username)

	_, err = repo.FindUser("ghost")
	require.ErrorIs(t, err, biddingerrors.ErrUserNotFound)
}
