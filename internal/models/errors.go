package models

import "errors"

// Engine error taxonomy. Handlers map these to HTTP statuses with
// errors.Is; services wrap them with fmt.Errorf("...: %w", err) so the
// kind survives through the call stack.
var (
	ErrInvalidScheduleInput      = errors.New("invalid schedule input")
	ErrGroupFull                 = errors.New("group is full")
	ErrAlreadyMember             = errors.New("already a member of this group")
	ErrBidTooLow                 = errors.New("bid below the current minimum increment")
	ErrInsufficientRemainingTerm = errors.New("bid exceeds remaining unpaid installments")
	ErrNotEligible               = errors.New("member is not eligible for this operation")
	ErrReserveFundInsufficient   = errors.New("reserve fund balance insufficient for debit")
	ErrTransientConflict         = errors.New("transient conflict, retries exhausted")
	ErrAuctionWindowExpired      = errors.New("auction window expired")
	ErrBuyerDefault              = errors.New("buyer defaulted on settlement")
	ErrInvalidTransition         = errors.New("invalid status transition")
	ErrNotFound                  = errors.New("not found")
)
