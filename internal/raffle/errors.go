package raffle

import (
	"errors"

	"tradeRaffle/internal/fee"
)

var (
	ErrOverflow = fee.ErrOverflow

	ErrMisconfiguredTicketCost = errors.New("misconfigured ticket cost")
	ErrInvalidDistribution     = errors.New("invalid prize distribution")
	ErrInvalidPotLimit         = errors.New("invalid pot limit")
	ErrInvalidRoundDuration    = errors.New("invalid round duration")
	ErrLengthMismatch          = errors.New("length mismatch")
	ErrPriceFeedMissing        = errors.New("price feed not configured")
	ErrUnsupported             = errors.New("operation not supported by raffle mode")
	ErrUnsupportedToken        = errors.New("token not accepted by raffle")

	ErrNotOwner        = errors.New("caller is not the owner")
	ErrNotOperator     = errors.New("caller must be the operator")
	ErrNotRouter       = errors.New("unauthorized call - not a router")
	ErrUntrustedSource = errors.New("caller is not the randomness source")

	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrNoAvailableWinnings = errors.New("no available winnings")

	ErrRoundClosed         = errors.New("round closed")
	ErrRoundStarted        = errors.New("round already started")
	ErrDuplicateRequest    = errors.New("duplicate randomness request")
	ErrUnknownRequest      = errors.New("unknown randomness request")
	ErrAlreadyFulfilled    = errors.New("randomness request already fulfilled")
	ErrAlreadyDrawn        = errors.New("round already drawn")
	ErrNotDrawn            = errors.New("round not drawn")
	ErrWinnerCountMismatch = errors.New("winner count mismatch")
	ErrWinnerMismatch      = errors.New("winner does not match drawn ticket owner")
	ErrClaimWindowExpired  = errors.New("claim window expired")
)
