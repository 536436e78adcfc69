package fanout

import (
	model "live-auctions/internal/models"
)

// Notifier turns committed state changes into fanout events
type Notifier interface {
	NotifyBidAccepted(bid model.Bid)
	NotifyStatusChanged(auctionID string, status model.AuctionStatus)
	NotifyAuctionWon(auction model.Auction, winning model.Bid)
}

// EventNotifier is the Notifier backed by a Publisher
type EventNotifier struct {
	pub Publisher
}

// NewEventNotifier creates a notifier publishing through pub
func NewEventNotifier(pub Publisher) *EventNotifier {
	return &EventNotifier{pub: pub}
}

// NotifyBidAccepted broadcasts an accepted bid on the auction topic
func (n *EventNotifier) NotifyBidAccepted(bid model.Bid) {
	n.pub.Publish(Message{
		Topic:   AuctionTopic(bid.AuctionID),
		Type:    model.EventBidAccepted,
		Payload: model.NewBidAcceptedEvent(bid),
	})
}

// NotifyStatusChanged broadcasts a lifecycle transition on the auction topic
func (n *EventNotifier) NotifyStatusChanged(auctionID string, status model.AuctionStatus) {
	n.pub.Publish(Message{
		Topic:   AuctionTopic(auctionID),
		Type:    model.EventStatusChanged,
		Payload: model.StatusChangedEvent{AuctionID: auctionID, NewStatus: status},
	})
}

// NotifyAuctionWon tells the winning bidder privately
func (n *EventNotifier) NotifyAuctionWon(auction model.Auction, winning model.Bid) {
	n.pub.Publish(Message{
		Topic:   UserTopic(winning.BidderID),
		Type:    model.EventAuctionWon,
		Payload: model.NewAuctionWonEvent(auction, winning),
	})
}
