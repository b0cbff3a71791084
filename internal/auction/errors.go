package auction

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrForbidden        = errors.New("forbidden")
	ErrBadRequest       = errors.New("bad request")
	ErrNotFound         = errors.New("not found")
	ErrInvalidState     = errors.New("invalid state")
	ErrOwnBid           = errors.New("no-op bid: caller already leads this lot")
	ErrBidTooLow        = errors.New("bid too low")
	ErrValidationFailed = errors.New("validation failed")

	// ErrStaleLot is returned by a Tx when the compare-and-set on the lot's
	// price pointer loses to a concurrent writer.
	ErrStaleLot = errors.New("lot changed since read")
)

// BidRejection carries the price context the UI needs to show the real minimum.
type BidRejection struct {
	Reason       error
	CurrentPrice decimal.Decimal
	MinimumBid   decimal.Decimal
}

func (e *BidRejection) Error() string {
	return fmt.Sprintf("%v: amount must exceed %s", e.Reason, e.MinimumBid.String())
}

func (e *BidRejection) Unwrap() error { return e.Reason }

// EligibilityError reports a lot-set that did not fully qualify for an auction.
type EligibilityError struct {
	Requested int
	Eligible  int
}

func (e *EligibilityError) Error() string {
	return fmt.Sprintf("validation failed: %d of %d lots are eligible", e.Eligible, e.Requested)
}

func (e *EligibilityError) Unwrap() error { return ErrValidationFailed }

type ErrorKind string

const (
	KindAuthorization ErrorKind = "authorization"
	KindValidation    ErrorKind = "validation"
	KindStateConflict ErrorKind = "state_conflict"
	KindNotFound      ErrorKind = "not_found"
	KindInternal      ErrorKind = "internal"
)

// Kind classifies err for propagation. Anything unrecognised is internal.
func Kind(err error) ErrorKind {
	switch {
	case errors.Is(err, ErrForbidden):
		return KindAuthorization
	case errors.Is(err, ErrBadRequest):
		return KindValidation
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrInvalidState), errors.Is(err, ErrOwnBid),
		errors.Is(err, ErrBidTooLow), errors.Is(err, ErrValidationFailed):
		return KindStateConflict
	default:
		return KindInternal
	}
}

func badRequest(msg string) error {
	return fmt.Errorf("%w: %s", ErrBadRequest, msg)
}
