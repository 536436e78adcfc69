package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	auctions "live-auctions/internal/auctionService"
	"live-auctions/internal/biddingerrors"
	model "live-auctions/internal/models"
	"live-auctions/internal/money"

	"github.com/gin-gonic/gin"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"
)

func newRouter(h *AuctionHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/auctions", h.CreateAuctionHandler)
	router.GET("/auctions", h.ListAuctionsHandler)
	router.GET("/auctions/:auction_id", h.GetAuctionHandler)
	router.PUT("/auctions/:auction_id", h.UpdateAuctionHandler)
	router.DELETE("/auctions/:auction_id", h.DeleteAuctionHandler)
	return router
}

func serve(t *testing.T, router *gin.Engine, method, path, body string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return w.Code, resp
}

func sampleAuction(now time.Time) model.Auction {
	return model.Auction{
		AuctionID:     "auction1",
		Title:         "Vintage lamp",
		SellerID:      "seller1",
		StartingPrice: money.FromFloat(100),
		CurrentPrice:  money.FromFloat(100),
		StartTime:     now.Add(time.Hour),
		EndTime:       now.Add(2 * time.Hour),
		Status:        model.StatusScheduled,
	}
}

// Test CreateAuctionHandler
func TestCreateAuctionHandler(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockService := NewMockAuctionServiceInterface(ctrl)
	router := newRouter(NewAuctionHandler(mockService))
	now := time.Now().UTC().Truncate(time.Second)
	start, end := now.Add(time.Hour), now.Add(2*time.Hour)

	validBody := func(price string) string {
		return `{"title":"Vintage lamp","seller_id":"seller1","starting_price":` + price +
			`,"start_time":"` + start.Format(time.RFC3339) + `","end_time":"` + end.Format(time.RFC3339) + `"}`
	}

	tests := []struct {
		name           string
		body           string
		mockSetup      func()
		expectedStatus int
		expectedMsg    string
	}{
		{
			name: "success",
			body: validBody("100"),
			mockSetup: func() {
				mockService.EXPECT().CreateAuction(gomock.Any()).DoAndReturn(func(in auctions.CreateAuctionInput) (model.Auction, error) {
					require.Equal(t, "seller1", in.SellerID)
					require.True(t, in.StartTime.Equal(start))
					return sampleAuction(now), nil
				})
			},
			expectedStatus: http.StatusCreated,
			expectedMsg:    "auction created successfully",
		},
		{
			name: "zero_starting_price_allowed",
			body: `{"title":"Free lamp","seller_id":"seller1","starting_price":0,"start_time":"` + start.Format(time.RFC3339) + `","end_time":"` + end.Format(time.RFC3339) + `"}`,
			mockSetup: func() {
				mockService.EXPECT().CreateAuction(gomock.Any()).DoAndReturn(func(in auctions.CreateAuctionInput) (model.Auction, error) {
					require.True(t, in.StartingPrice.IsZero())
					return sampleAuction(now), nil
				})
			},
			expectedStatus: http.StatusCreated,
			expectedMsg:    "auction created successfully",
		},
		{name: "missing_price", body: `{"title":"x","seller_id":"s","start_time":"` + start.Format(time.RFC3339) + `","end_time":"` + end.Format(time.RFC3339) + `"}`, mockSetup: func() {}, expectedStatus: http.StatusBadRequest, expectedMsg: "invalid request payload"},
		{name: "negative_price", body: validBody("-1"), mockSetup: func() {}, expectedStatus: http.StatusBadRequest, expectedMsg: "invalid request payload"},
		{name: "invalid_json", body: `{`, mockSetup: func() {}, expectedStatus: http.StatusBadRequest, expectedMsg: "invalid request payload"},
		{
			name: "service_rejects_window",
			body: validBody("5"),
			mockSetup: func() {
				mockService.EXPECT().CreateAuction(gomock.Any()).Return(model.Auction{}, biddingerrors.ErrInvalidAuction)
			},
			expectedStatus: http.StatusBadRequest,
			expectedMsg:    "invalid auction details",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			tc.mockSetup()
			status, resp := serve(t, router, http.MethodPost, "/auctions", tc.body)
			require.Equal(t, tc.expectedStatus, status)
			require.Contains(t, resp["message"], tc.expectedMsg)
			if status == http.StatusCreated {
				data := resp["data"].(map[string]any)
				require.Equal(t, "auction1", data["auction_id"])
				require.Equal(t, "100.00", data["starting_price"])
				require.Equal(t, "SCHEDULED", data["status"])
			}
		})
	}
}

func TestGetAndListAuctionsHandler(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockService := NewMockAuctionServiceInterface(ctrl)
	router := newRouter(NewAuctionHandler(mockService))
	now := time.Now().UTC()

	mockService.EXPECT().GetAuction(gomock.Any(), "auction1").Return(sampleAuction(now), nil)
	status, resp := serve(t, router, http.MethodGet, "/auctions/auction1", "")
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "Vintage lamp", resp["data"].(map[string]any)["title"])

	mockService.EXPECT().GetAuction(gomock.Any(), "missing").Return(model.Auction{}, biddingerrors.ErrAuctionNotFound)
	status, resp = serve(t, router, http.MethodGet, "/auctions/missing", "")
	require.Equal(t, http.StatusNotFound, status)
	require.Equal(t, "auction not found", resp["message"])

	mockService.EXPECT().ListAuctions(gomock.Any(), "ACTIVE").Return(nil, nil)
	status, resp = serve(t, router, http.MethodGet, "/auctions?status=ACTIVE", "")
	require.Equal(t, http.StatusOK, status)
	require.Len(t, resp["data"], 0)

	mockService.EXPECT().ListAuctions(gomock.Any(), "paused").Return(nil, biddingerrors.ErrInvalidAuction)
	status, _ = serve(t, router, http.MethodGet, "/auctions?status=paused", "")
	require.Equal(t, http.StatusBadRequest, status)
}

func TestUpdateAndDeleteAuctionHandler(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockService := NewMockAuctionServiceInterface(ctrl)
	router := newRouter(NewAuctionHandler(mockService))
	now := time.Now().UTC()

	mockService.EXPECT().UpdateAuction(gomock.Any(), "auction1", gomock.Any()).DoAndReturn(
		func(_ any, _ string, in auctions.UpdateAuctionInput) (model.Auction, error) {
			require.Equal(t, "New title", *in.Title)
			require.Equal(t, "75.50", money.Format(*in.StartingPrice))
			require.Nil(t, in.Description)
			updated := sampleAuction(now)
			updated.Title = *in.Title
			return updated, nil
		})
	status, resp := serve(t, router, http.MethodPut, "/auctions/auction1", `{"title":"New title","starting_price":75.5}`)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "New title", resp["data"].(map[string]any)["title"])

	mockService.EXPECT().UpdateAuction(gomock.Any(), "closed", gomock.Any()).Return(model.Auction{}, biddingerrors.ErrAuctionClosed)
	status, _ = serve(t, router, http.MethodPut, "/auctions/closed", `{"title":"x"}`)
	require.Equal(t, http.StatusConflict, status)

	mockService.EXPECT().DeleteAuction(gomock.Any(), "auction1").Return(nil)
	status, _ = serve(t, router, http.MethodDelete, "/auctions/auction1", "")
	require.Equal(t, http.StatusOK, status)

	mockService.EXPECT().DeleteAuction(gomock.Any(), "busy").Return(biddingerrors.ErrAuctionHasBids)
	status, resp = serve(t, router, http.MethodDelete, "/auctions/busy", "")
	require.Equal(t, http.StatusConflict, status)
	require.Equal(t, "auction already has bids", resp["message"])
}
