package biddingerrors

import "errors"

// Repository-level errors
var (
	ErrAuctionNotFound = errors.New("auction not found")
	ErrUserNotFound    = errors.New("user not found")
	ErrNoBids          = errors.New("no bids found for auction")
	ErrUserNoBids      = errors.New("user has not placed any bids")
	ErrPersistence     = errors.New("persistence failure")
	ErrLockTimeout     = errors.New("timed out waiting for auction lock")
)

// business logic errors
var (
	ErrInvalidBid        = errors.New("invalid bid")
	ErrBidTooLow         = errors.New("bid amount too low")
	ErrSelfRaise         = errors.New("bidder already holds the highest bid")
	ErrAuctionNotStarted = errors.New("auction has not started")
	ErrAuctionClosed     = errors.New("auction closed")
)

// auction management errors
var (
	ErrInvalidAuction = errors.New("invalid auction")
	ErrAuctionHasBids = errors.New("auction already has bids")
)

// IsNotFound reports whether err refers to a missing auction, user or bid
func IsNotFound(err error) bool {
	return errors.Is(err, ErrAuctionNotFound) ||
		errors.Is(err, ErrUserNotFound) ||
		errors.Is(err, ErrNoBids)
}
