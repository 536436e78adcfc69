package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"live-auctions/internal/biddingerrors"
	"live-auctions/internal/fanout"
	model "live-auctions/internal/models"
	"live-auctions/services/bidding/helpers"
	"live-auctions/utils"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingPeriod   = 30 * time.Second
	maxFrameSize = 4096
	replyBuffer  = 8

	// EventSnapshot is the first message on every connection
	EventSnapshot = "snapshot"
	// EventBidPlaced answers a place_bid frame that was accepted
	EventBidPlaced = "bid-placed"
	// EventBidRejected answers a place_bid frame that was refused
	EventBidRejected = "bid-rejected"

	FramePlaceBid = "place_bid"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// browsers connect from the frontend origin
	CheckOrigin: func(r *http.Request) bool { return true },
}

type AuctionLookup interface {
	GetAuction(ctx context.Context, auctionID string) (model.Auction, error)
}

type BidPlacer interface {
	PlaceBid(ctx context.Context, auctionID, bidderID string, amount decimal.Decimal) (model.Bid, error)
}

// BidFrame is what a client sends to bid on the connection's auction
type BidFrame struct {
	Type   string          `json:"type"`
	Amount decimal.Decimal `json:"amount"`
}

// BidRejection is the payload of a bid-rejected reply
type BidRejection struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type WSHandler struct {
	hub      *fanout.Hub
	auctions AuctionLookup
	bids     BidPlacer
}

func NewWSHandler(hub *fanout.Hub, auctions AuctionLookup, bids BidPlacer) *WSHandler {
	return &WSHandler{hub: hub, auctions: auctions, bids: bids}
}

// AuctionStreamHandler handles GET /ws/auctions/:auction_id?user_id=
// It streams the auction's public events and, when user_id is given, the
// user's private events. Nothing published before the connection is replayed;
// the snapshot carries the current state instead. Clients may place bids by
// sending place_bid frames and get a bid-placed or bid-rejected reply.
func (h *WSHandler) AuctionStreamHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")
	userID := c.Query("user_id")

	// subscribe before reading the snapshot so nothing falls between the two
	public := h.hub.Subscribe(fanout.AuctionTopic(auctionID))
	defer public.Close()

	var private <-chan fanout.Message
	if userID != "" {
		sub := h.hub.Subscribe(fanout.UserTopic(userID))
		defer sub.Close()
		private = sub.C()
	}

	auction, err := h.auctions.GetAuction(c.Request.Context(), auctionID)
	if err != nil {
		helpers.RespondError(c, "AuctionStreamHandler", err, map[string]any{"auction_id": auctionID})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		utils.Warn("AuctionStreamHandler: upgrade failed", map[string]any{"auction_id": auctionID, "error": err.Error()})
		return
	}
	defer conn.Close()

	fields := map[string]any{"auction_id": auctionID, "user_id": userID}
	utils.Info("AuctionStreamHandler: subscriber connected", fields)

	snapshot := fanout.Message{
		Topic:   fanout.AuctionTopic(auctionID),
		Type:    EventSnapshot,
		Payload: helpers.NewAuctionResponse(auction),
	}
	if err := writeJSON(conn, snapshot); err != nil {
		return
	}

	replies := make(chan fanout.Message, replyBuffer)
	done := make(chan struct{})
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		h.writeLoop(conn, public.C(), private, replies, done)
	}()

	conn.SetReadLimit(maxFrameSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		reply := h.handleFrame(c.Request.Context(), auctionID, userID, data)
		select {
		case replies <- reply:
		case <-writerDone:
		}
	}
	close(done)
	utils.Info("AuctionStreamHandler: subscriber disconnected", fields)
}

// handleFrame places the bid a client frame asks for and builds the reply.
// A frame that cannot be read is rejected without dropping the connection.
func (h *WSHandler) handleFrame(ctx context.Context, auctionID, userID string, data []byte) fanout.Message {
	topic := fanout.AuctionTopic(auctionID)
	fields := map[string]any{"auction_id": auctionID, "user_id": userID}

	var frame BidFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		fields["error"] = err.Error()
		utils.Warn("AuctionStreamHandler: unreadable frame", fields)
		return rejection(topic, fmt.Errorf("%w: malformed frame", biddingerrors.ErrInvalidBid))
	}
	if frame.Type != FramePlaceBid {
		return rejection(topic, fmt.Errorf("%w: unsupported frame type %q", biddingerrors.ErrInvalidBid, frame.Type))
	}
	if userID == "" {
		return rejection(topic, fmt.Errorf("%w: connection has no user_id", biddingerrors.ErrInvalidBid))
	}

	bid, err := h.bids.PlaceBid(ctx, auctionID, userID, frame.Amount)
	if err != nil {
		fields["amount"] = frame.Amount.String()
		fields["error"] = err.Error()
		utils.Warn("AuctionStreamHandler: bid rejected", fields)
		return rejection(topic, err)
	}

	helpers.LogSuccess("AuctionStreamHandler", "bid placed", map[string]any{"bid_id": bid.BidID, "auction_id": auctionID, "user_id": userID})
	return fanout.Message{Topic: topic, Type: EventBidPlaced, Payload: helpers.NewBidResponse(bid)}
}

func rejection(topic string, err error) fanout.Message {
	return fanout.Message{Topic: topic, Type: EventBidRejected, Payload: NewBidRejection(err)}
}

// NewBidRejection classifies a bid failure for the socket. Unknown failures
// are not described to the client.
func NewBidRejection(err error) BidRejection {
	_, message := helpers.MapErrorToHTTP(err)
	switch {
	case errors.Is(err, biddingerrors.ErrAuctionClosed):
		return BidRejection{Error: "Auction Closed", Message: message}
	case biddingerrors.IsNotFound(err):
		return BidRejection{Error: "Resource Not Found", Message: message}
	case errors.Is(err, biddingerrors.ErrInvalidBid),
		errors.Is(err, biddingerrors.ErrBidTooLow),
		errors.Is(err, biddingerrors.ErrSelfRaise),
		errors.Is(err, biddingerrors.ErrAuctionNotStarted):
		return BidRejection{Error: "Invalid Bid", Message: message}
	case errors.Is(err, biddingerrors.ErrLockTimeout):
		return BidRejection{Error: "Auction Busy", Message: message}
	default:
		return BidRejection{Error: "Internal Server Error", Message: "An unexpected error occurred"}
	}
}

// writeLoop is the only writer after the snapshot. A closed channel means the
// hub evicted this subscriber, so the connection is dropped and the client
// reconnects for a fresh snapshot.
func (h *WSHandler) writeLoop(conn *websocket.Conn, public, private <-chan fanout.Message, replies <-chan fanout.Message, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	for {
		select {
		case msg, ok := <-public:
			if !ok || writeJSON(conn, msg) != nil {
				return
			}
		case msg, ok := <-private:
			if !ok || writeJSON(conn, msg) != nil {
				return
			}
		case msg := <-replies:
			if writeJSON(conn, msg) != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

func writeJSON(conn *websocket.Conn, msg fanout.Message) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(msg)
}
