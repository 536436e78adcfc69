package auctions

import (
	"context"
	"errors"
	"live-auctions/internal/biddingerrors"
	"live-auctions/internal/fanout"
	"live-auctions/internal/lifecycle"
	model "live-auctions/internal/models"
	"live-auctions/internal/money"
	"live-auctions/internal/repository"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func newService(t *testing.T) (*AuctionService, *repository.MemoryRepo, *fanout.Hub) {
	t.Helper()
	repo := repository.NewMemoryRepo()
	require.NoError(t, repo.AddUser(model.User{UserID: "seller1", Username: "seller"}))
	hub := fanout.NewHub(100)
	sweeper := lifecycle.NewSweeper(repo, fanout.NewEventNotifier(hub), time.Second)
	return NewAuctionService(repo, repo, sweeper, time.Second), repo, hub
}

func validInput(now time.Time) CreateAuctionInput {
	return CreateAuctionInput{
		Title:         "Vintage lamp",
		Description:   "brass",
		SellerID:      "seller1",
		StartingPrice: money.FromFloat(100),
		StartTime:     now.Add(time.Hour),
		EndTime:       now.Add(2 * time.Hour),
	}
}

// Tests CreateAuction
func TestAuctionService_CreateAuction(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()

	tests := []struct {
		name          string
		mutate        func(in *CreateAuctionInput)
		expectedError error
		wantStatus    model.AuctionStatus
	}{
		{name: "scheduled", mutate: func(in *CreateAuctionInput) {}, wantStatus: model.StatusScheduled},
		{name: "starts_now", mutate: func(in *CreateAuctionInput) { in.StartTime = now }, wantStatus: model.StatusActive},
		{name: "zero_starting_price", mutate: func(in *CreateAuctionInput) { in.StartingPrice = money.FromFloat(0) }, wantStatus: model.StatusScheduled},
		{name: "negative_starting_price", mutate: func(in *CreateAuctionInput) { in.StartingPrice = money.FromFloat(-1) }, expectedError: biddingerrors.ErrInvalidAuction},
		{name: "empty_title", mutate: func(in *CreateAuctionInput) { in.Title = "  " }, expectedError: biddingerrors.ErrInvalidAuction},
		{name: "start_in_past", mutate: func(in *CreateAuctionInput) { in.StartTime = now.Add(-time.Hour) }, expectedError: biddingerrors.ErrInvalidAuction},
		{name: "end_equals_start", mutate: func(in *CreateAuctionInput) { in.EndTime = in.StartTime }, expectedError: biddingerrors.ErrInvalidAuction},
		{name: "end_before_start", mutate: func(in *CreateAuctionInput) { in.EndTime = in.StartTime.Add(-time.Second) }, expectedError: biddingerrors.ErrInvalidAuction},
		{name: "missing_times", mutate: func(in *CreateAuctionInput) { in.StartTime = time.Time{} }, expectedError: biddingerrors.ErrInvalidAuction},
		{name: "unknown_seller", mutate: func(in *CreateAuctionInput) { in.SellerID = "ghost" }, expectedError: biddingerrors.ErrUserNotFound},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			service, repo, _ := newService(t)
			in := validInput(now)
			tc.mutate(&in)

			auction, err := service.CreateAuction(in)
			if tc.expectedError != nil {
				require.Error(t, err)
				require.True(t, errors.Is(err, tc.expectedError), "expected error: %v, got: %v", tc.expectedError, err)
				return
			}
			require.NoError(t, err)

			_, parseErr := uuid.Parse(auction.AuctionID)
			require.NoError(t, parseErr)
			require.Equal(t, tc.wantStatus, auction.Status)
			require.True(t, auction.CurrentPrice.Equal(auction.StartingPrice))
			require.False(t, auction.HasLeader())

			stored, err := repo.GetAuction(auction.AuctionID)
			require.NoError(t, err)
			require.Equal(t, auction.Title, stored.Title)
		})
	}
}

func TestAuctionService_GetAndListRefreshStatus(t *testing.T) {
	t.Parallel()

	service, repo, hub := newService(t)
	now := time.Now().UTC()

	overdue := model.Auction{
		AuctionID: "overdue", Title: "A", SellerID: "seller1",
		StartingPrice: money.FromFloat(1), CurrentPrice: money.FromFloat(1),
		StartTime: now.Add(-time.Minute), EndTime: now.Add(time.Hour), Status: model.StatusScheduled,
	}
	future := overdue
	future.AuctionID = "future"
	future.StartTime = now.Add(time.Hour)
	future.EndTime = now.Add(2 * time.Hour)
	require.NoError(t, repo.CreateAuction(overdue))
	require.NoError(t, repo.CreateAuction(future))

	sub := hub.Subscribe(fanout.AuctionTopic("overdue"))
	defer sub.Close()

	active, err := service.ListAuctions(context.Background(), "active")
	require.NoError(t, err)
	require.Len(t, active, 1)
	require.Equal(t, "overdue", active[0].AuctionID)

	msg := <-sub.C()
	require.Equal(t, model.StatusChangedEvent{AuctionID: "overdue", NewStatus: model.StatusActive}, msg.Payload)

	got, err := service.GetAuction(context.Background(), "future")
	require.NoError(t, err)
	require.Equal(t, model.StatusScheduled, got.Status)

	all, err := service.ListAuctions(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, all, 2)

	_, err = service.ListAuctions(context.Background(), "paused")
	require.ErrorIs(t, err, biddingerrors.ErrInvalidAuction)

	_, err = service.GetAuction(context.Background(), "missing")
	require.ErrorIs(t, err, biddingerrors.ErrAuctionNotFound)
}

func TestAuctionService_UpdateAuction(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	service, repo, _ := newService(t)

	created, err := service.CreateAuction(validInput(now))
	require.NoError(t, err)

	title := "Brass lamp"
	price := money.FromFloat(80)
	updated, err := service.UpdateAuction(context.Background(), created.AuctionID, UpdateAuctionInput{Title: &title, StartingPrice: &price})
	require.NoError(t, err)
	require.Equal(t, "Brass lamp", updated.Title)
	require.Equal(t, "80.00", money.Format(updated.CurrentPrice))

	// moving the start to now activates the auction
	start, end := now, now.Add(time.Hour)
	updated, err = service.UpdateAuction(context.Background(), created.AuctionID, UpdateAuctionInput{StartTime: &start, EndTime: &end})
	require.NoError(t, err)
	require.Equal(t, model.StatusActive, updated.Status)

	// times are fixed once running
	_, err = service.UpdateAuction(context.Background(), created.AuctionID, UpdateAuctionInput{StartTime: &start, EndTime: &end})
	require.ErrorIs(t, err, biddingerrors.ErrInvalidAuction)

	// starting price is fixed once a bid exists
	a, release, err := repo.FindAuctionForUpdate(context.Background(), created.AuctionID)
	require.NoError(t, err)
	bid := model.Bid{BidID: "b1", AuctionID: a.AuctionID, BidderID: "u1", Amount: money.FromFloat(90), CreatedAt: now}
	a.CurrentPrice, a.CurrentBidder = bid.Amount, bid.BidderID
	require.NoError(t, repo.SaveBid(a, bid))
	release()

	_, err = service.UpdateAuction(context.Background(), created.AuctionID, UpdateAuctionInput{StartingPrice: &price})
	require.ErrorIs(t, err, biddingerrors.ErrAuctionHasBids)

	_, err = service.UpdateAuction(context.Background(), "missing", UpdateAuctionInput{Title: &title})
	require.ErrorIs(t, err, biddingerrors.ErrAuctionNotFound)
}

func TestAuctionService_UpdateAuctionRejectsPartialWindow(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	service, repo, _ := newService(t)
	created, err := service.CreateAuction(validInput(now))
	require.NoError(t, err)

	start, end := now.Add(3*time.Hour), now.Add(4*time.Hour)
	tests := []struct {
		name string
		in   UpdateAuctionInput
	}{
		{name: "start_only", in: UpdateAuctionInput{StartTime: &start}},
		{name: "end_only", in: UpdateAuctionInput{EndTime: &end}},
	}
	for _, tc := range tests {
		_, err := service.UpdateAuction(context.Background(), created.AuctionID, tc.in)
		require.ErrorIs(t, err, biddingerrors.ErrInvalidAuction, tc.name)
	}

	stored, err := repo.GetAuction(created.AuctionID)
	require.NoError(t, err)
	require.True(t, stored.StartTime.Equal(created.StartTime))
	require.True(t, stored.EndTime.Equal(created.EndTime))

	// sub-cent starting prices are rejected, not rounded
	price := decimal.RequireFromString("80.005")
	_, err = service.UpdateAuction(context.Background(), created.AuctionID, UpdateAuctionInput{StartingPrice: &price})
	require.ErrorIs(t, err, biddingerrors.ErrInvalidAuction)

	in := validInput(now)
	in.StartingPrice = decimal.RequireFromString("99.999")
	_, err = service.CreateAuction(in)
	require.ErrorIs(t, err, biddingerrors.ErrInvalidAuction)
}

func TestAuctionService_UpdateClosedAuction(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := repository.NewMockAuctionDB(ctrl)
	mockUsers := repository.NewMockUserDB(ctrl)
	mockStatus := NewMockStatusKeeper(ctrl)
	service := NewAuctionService(mockRepo, mockUsers, mockStatus, time.Second)

	closed := model.Auction{AuctionID: "a1", Status: model.StatusClosed}
	released := false
	mockRepo.EXPECT().FindAuctionForUpdate(gomock.Any(), "a1").Return(closed, func() { released = true }, nil)
	mockStatus.EXPECT().AdvanceLocked(gomock.Any(), gomock.Any()).Return(nil)

	title := "new"
	_, err := service.UpdateAuction(context.Background(), "a1", UpdateAuctionInput{Title: &title})
	require.ErrorIs(t, err, biddingerrors.ErrAuctionClosed)
	require.True(t, released)
}

func TestAuctionService_DeleteAuction(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	service, repo, _ := newService(t)

	created, err := service.CreateAuction(validInput(now))
	require.NoError(t, err)
	require.NoError(t, service.DeleteAuction(context.Background(), created.AuctionID))

	_, err = repo.GetAuction(created.AuctionID)
	require.ErrorIs(t, err, biddingerrors.ErrAuctionNotFound)
	require.ErrorIs(t, service.DeleteAuction(context.Background(), created.AuctionID), biddingerrors.ErrAuctionNotFound)

	in := validInput(now)
	in.StartTime = now
	withBids, err := service.CreateAuction(in)
	require.NoError(t, err)
	a, release, err := repo.FindAuctionForUpdate(context.Background(), withBids.AuctionID)
	require.NoError(t, err)
	bid := model.Bid{BidID: "b1", AuctionID: a.AuctionID, BidderID: "u1", Amount: money.FromFloat(150), CreatedAt: now}
	a.CurrentPrice, a.CurrentBidder = bid.Amount, bid.BidderID
	require.NoError(t, repo.SaveBid(a, bid))
	release()

	require.ErrorIs(t, service.DeleteAuction(context.Background(), withBids.AuctionID), biddingerrors.ErrAuctionHasBids)
}
