package lifecycle

import (
	"context"
	"live-auctions/internal/biddingerrors"
	"live-auctions/internal/fanout"
	model "live-auctions/internal/models"
	"live-auctions/internal/money"
	"live-auctions/internal/repository"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"
)

func auction(id string, status model.AuctionStatus, start, end time.Time) model.Auction {
	return model.Auction{
		AuctionID:     id,
		Title:         "Auction " + id,
		SellerID:      "seller1",
		StartingPrice: money.FromFloat(100),
		CurrentPrice:  money.FromFloat(100),
		StartTime:     start,
		EndTime:       end,
		Status:        status,
	}
}

func placeBid(t *testing.T, repo *repository.MemoryRepo, auctionID, bidderID string, amount float64) model.Bid {
	t.Helper()
	a, release, err := repo.FindAuctionForUpdate(context.Background(), auctionID)
	require.NoError(t, err)
	defer release()

	bid := model.Bid{BidID: "bid-" + bidderID, AuctionID: auctionID, BidderID: bidderID, Amount: money.FromFloat(amount), CreatedAt: time.Now().UTC()}
	a.CurrentPrice = bid.Amount
	a.CurrentBidder = bidderID
	require.NoError(t, repo.SaveBid(a, bid))
	return bid
}

func status(t *testing.T, repo repository.AuctionDB, id string) model.AuctionStatus {
	t.Helper()
	a, err := repo.GetAuction(id)
	require.NoError(t, err)
	return a.Status
}

// An expired ACTIVE auction closes and its highest bidder is told privately
func TestSweeper_ClosesExpiredAuctionAndNotifiesWinner(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	now := time.Now().UTC()
	repo := repository.NewMemoryRepo()
	require.NoError(t, repo.CreateAuction(auction("a1", model.StatusActive, now.Add(-time.Hour), now.Add(-time.Second))))
	bid := placeBid(t, repo, "a1", "b1", 150)

	notifier := fanout.NewMockNotifier(ctrl)
	gomock.InOrder(
		notifier.EXPECT().NotifyStatusChanged("a1", model.StatusClosed),
		notifier.EXPECT().NotifyAuctionWon(gomock.Any(), bid).Do(func(a model.Auction, _ model.Bid) {
			require.Equal(t, model.StatusClosed, a.Status)
		}),
	)

	sweeper := NewSweeper(repo, notifier, time.Second)
	res := sweeper.Sweep(context.Background(), now)
	require.Equal(t, Result{Closed: 1}, res)
	require.Equal(t, model.StatusClosed, status(t, repo, "a1"))

	// idempotent: nothing left to do at the same instant
	require.Equal(t, Result{}, sweeper.Sweep(context.Background(), now))
}

func TestSweeper_Transitions(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()

	tests := []struct {
		name       string
		auction    model.Auction
		wantEvents []model.AuctionStatus
		wantStatus model.AuctionStatus
		wantResult Result
	}{
		{
			name:       "scheduled_start_passed",
			auction:    auction("a", model.StatusScheduled, now.Add(-time.Minute), now.Add(time.Hour)),
			wantEvents: []model.AuctionStatus{model.StatusActive},
			wantStatus: model.StatusActive,
			wantResult: Result{Activated: 1},
		},
		{
			name:       "scheduled_start_exactly_now",
			auction:    auction("a", model.StatusScheduled, now, now.Add(time.Hour)),
			wantEvents: []model.AuctionStatus{model.StatusActive},
			wantStatus: model.StatusActive,
			wantResult: Result{Activated: 1},
		},
		{
			name:       "scheduled_whole_window_passed",
			auction:    auction("a", model.StatusScheduled, now.Add(-2*time.Hour), now.Add(-time.Hour)),
			wantEvents: []model.AuctionStatus{model.StatusActive, model.StatusClosed},
			wantStatus: model.StatusClosed,
			wantResult: Result{Activated: 1, Closed: 1},
		},
		{
			name:       "scheduled_in_future",
			auction:    auction("a", model.StatusScheduled, now.Add(time.Minute), now.Add(time.Hour)),
			wantStatus: model.StatusScheduled,
		},
		{
			name:       "active_running",
			auction:    auction("a", model.StatusActive, now.Add(-time.Minute), now.Add(time.Hour)),
			wantStatus: model.StatusActive,
		},
		{
			name:       "closed_never_moves",
			auction:    auction("a", model.StatusClosed, now.Add(-2*time.Hour), now.Add(-time.Hour)),
			wantStatus: model.StatusClosed,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := repository.NewMemoryRepo()
			require.NoError(t, repo.CreateAuction(tc.auction))

			notifier := fanout.NewMockNotifier(ctrl)
			var calls []*gomock.Call
			for _, s := range tc.wantEvents {
				calls = append(calls, notifier.EXPECT().NotifyStatusChanged("a", s))
			}
			gomock.InOrder(calls...)

			sweeper := NewSweeper(repo, notifier, time.Second)
			require.Equal(t, tc.wantResult, sweeper.Sweep(context.Background(), now))
			require.Equal(t, tc.wantStatus, status(t, repo, "a"))

			require.Equal(t, Result{}, sweeper.Sweep(context.Background(), now))
		})
	}
}

// One failing auction must not stop the others in the same pass
func TestSweeper_FaultIsolation(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	now := time.Now().UTC()
	mockRepo := repository.NewMockAuctionDB(ctrl)
	notifier := fanout.NewMockNotifier(ctrl)

	broken := auction("broken", model.StatusScheduled, now.Add(-time.Minute), now.Add(time.Hour))
	unsaved := auction("unsaved", model.StatusScheduled, now.Add(-time.Minute), now.Add(time.Hour))
	healthy := auction("healthy", model.StatusScheduled, now.Add(-time.Minute), now.Add(time.Hour))

	mockRepo.EXPECT().FindByStatusAndStartBefore(model.StatusScheduled, now).Return([]model.Auction{broken, unsaved, healthy}, nil)
	mockRepo.EXPECT().FindAuctionForUpdate(gomock.Any(), "broken").Return(model.Auction{}, nil, biddingerrors.ErrPersistence)
	mockRepo.EXPECT().FindAuctionForUpdate(gomock.Any(), "unsaved").Return(unsaved, func() {}, nil)
	mockRepo.EXPECT().SaveAuction(gomock.Any()).DoAndReturn(func(a model.Auction) error {
		if a.AuctionID == "unsaved" {
			return biddingerrors.ErrPersistence
		}
		return nil
	}).Times(2)
	mockRepo.EXPECT().FindAuctionForUpdate(gomock.Any(), "healthy").Return(healthy, func() {}, nil)
	notifier.EXPECT().NotifyStatusChanged("healthy", model.StatusActive)
	mockRepo.EXPECT().FindByStatusAndEndBefore(model.StatusActive, now).Return(nil, biddingerrors.ErrPersistence)

	res := NewSweeper(mockRepo, notifier, time.Second).Sweep(context.Background(), now)
	require.Equal(t, Result{Activated: 1, Failed: 3}, res)
}

// A sweep that cannot get an auction's lock skips it and retries next pass
func TestSweeper_SkipsLockedAuction(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	now := time.Now().UTC()
	repo := repository.NewMemoryRepo()
	require.NoError(t, repo.CreateAuction(auction("a1", model.StatusActive, now.Add(-time.Hour), now.Add(-time.Second))))

	_, release, err := repo.FindAuctionForUpdate(context.Background(), "a1")
	require.NoError(t, err)

	notifier := fanout.NewMockNotifier(ctrl)
	sweeper := NewSweeper(repo, notifier, 20*time.Millisecond)
	require.Equal(t, Result{Failed: 1}, sweeper.Sweep(context.Background(), now))
	require.Equal(t, model.StatusActive, status(t, repo, "a1"))

	release()
	notifier.EXPECT().NotifyStatusChanged("a1", model.StatusClosed)
	require.Equal(t, Result{Closed: 1}, sweeper.Sweep(context.Background(), now))
}

func TestSweeper_EnsureCurrentStatus(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	start := time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := start.Add(-time.Minute)

	repo := repository.NewMemoryRepo()
	require.NoError(t, repo.CreateAuction(auction("a1", model.StatusScheduled, start, start.Add(time.Hour))))

	notifier := fanout.NewMockNotifier(ctrl)
	sweeper := NewSweeper(repo, notifier, time.Second, WithClock(func() time.Time { return clock }))

	a, err := sweeper.EnsureCurrentStatus(context.Background(), "a1")
	require.NoError(t, err)
	require.Equal(t, model.StatusScheduled, a.Status)

	clock = start
	notifier.EXPECT().NotifyStatusChanged("a1", model.StatusActive)
	a, err = sweeper.EnsureCurrentStatus(context.Background(), "a1")
	require.NoError(t, err)
	require.Equal(t, model.StatusActive, a.Status)
	require.Equal(t, model.StatusActive, status(t, repo, "a1"))

	clock = start.Add(2 * time.Hour)
	notifier.EXPECT().NotifyStatusChanged("a1", model.StatusClosed)
	a, err = sweeper.EnsureCurrentStatus(context.Background(), "a1")
	require.NoError(t, err)
	require.True(t, a.IsClosed())

	_, err = sweeper.EnsureCurrentStatus(context.Background(), "missing")
	require.ErrorIs(t, err, biddingerrors.ErrAuctionNotFound)
}

func TestSweeper_RunStopsWithContext(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	now := time.Now().UTC()
	repo := repository.NewMemoryRepo()
	require.NoError(t, repo.CreateAuction(auction("a1", model.StatusScheduled, now.Add(-time.Second), now.Add(time.Hour))))

	notifier := fanout.NewMockNotifier(ctrl)
	activated := make(chan struct{})
	notifier.EXPECT().NotifyStatusChanged("a1", model.StatusActive).Do(func(string, model.AuctionStatus) {
		close(activated)
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		NewSweeper(repo, notifier, time.Second).Run(ctx, time.Hour)
		close(done)
	}()

	select {
	case <-activated:
	case <-time.After(time.Second):
		t.Fatal("initial sweep did not run")
	}
	cancel()
	<-done
}
