package services

import (
	"github.com/juju/errors"
)

// Error kinds shared by every service operation. NotFound and invalid input reuse the
// juju/errors kinds so repository errors and service errors classify the same way.
const (
	ErrConflictingState  = errors.ConstError("conflicting state")
	ErrDownstreamFailure = errors.ConstError("downstream failure")
)

// Error is a domain failure with a stable code for API clients.
type Error struct {
	Code    string
	Kind    error
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Is matches another *Error with the same code, or the error's kind.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return t.Code == e.Code
	}
	return target == e.Kind
}

func newError(code string, kind error, message string) *Error {
	return &Error{Code: code, Kind: kind, Message: message}
}

var (
	ErrRechargeNotFound    = newError("RECHARGE_NOT_FOUND", errors.NotFound, "recharge not found")
	ErrVendorNotFound      = newError("VENDOR_NOT_FOUND", errors.NotFound, "vendor not found")
	ErrInvalidPlan         = newError("INVALID_PLAN", errors.NotFound, "membership plan not found")
	ErrWithdrawalNotFound  = newError("WITHDRAWAL_NOT_FOUND", errors.NotFound, "withdrawal not found")
	ErrReferralCodeUnknown = newError("REFERRAL_CODE_UNKNOWN", errors.NotFound, "referral code does not match any vendor")

	ErrInvalidValidityUnit = newError("INVALID_VALIDITY_UNIT", errors.NotValid, "plan validity unit must be day, week, month or year")
	ErrInvalidAmount       = newError("INVALID_AMOUNT", errors.NotValid, "amount must be a positive number")
	ErrInvalidInput        = newError("INVALID_INPUT", errors.NotValid, "invalid input")
	ErrReferralCycle       = newError("REFERRAL_CYCLE", errors.NotValid, "referral link would create a cycle")

	ErrAlreadyApproved     = newError("ALREADY_APPROVED", ErrConflictingState, "recharge is already approved")
	ErrAlreadyCancelled    = newError("ALREADY_CANCELLED", ErrConflictingState, "recharge is already cancelled")
	ErrAlreadyReferred     = newError("ALREADY_REFERRED", ErrConflictingState, "vendor already has a referrer")
	ErrWithdrawalProcessed = newError("WITHDRAWAL_PROCESSED", ErrConflictingState, "withdrawal is no longer pending")
	ErrInsufficientBalance = newError("INSUFFICIENT_BALANCE", ErrConflictingState, "wallet balance is too low")
	ErrDuplicateVendor     = newError("DUPLICATE_VENDOR", ErrConflictingState, "a vendor with this email or phone already exists")
)

// invalidInput builds an ErrInvalidInput carrying a specific message.
func invalidInput(message string) *Error {
	return newError(ErrInvalidInput.Code, errors.NotValid, message)
}
