/*
errors.go - Centralized error types for the settlement engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Service packages wrap these errors with additional context.

ERROR CATEGORIES:
  1. Authorization errors - caller lacks rights over the event
  2. State-conflict errors - a one-time transition was already taken
  3. Capacity errors - business-rule violations with a computed shortfall
  4. Dependency errors - an external prerequisite is unmet
  5. Not-found errors - referenced entity does not exist

  None of these are retried internally: they are business-logic rejections,
  not transient infrastructure failures.

USAGE:
  Callers classify with errors.Is or the helpers below:

    if errors.Is(err, engine.ErrAlreadySettled) { ... }
    if engine.IsConflict(err) { http 409 }

SEE ALSO:
  - fees.go, settlement.go, seller.go: Producers of these errors
  - api/handlers.go: Maps categories to HTTP statuses
*/
package engine

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrUnauthorized is returned when the caller is not the event's owner.
	ErrUnauthorized = errors.New("caller is not the event owner")

	// ErrAlreadyConfigured is returned when an event already has a payment
	// model. Model selection is one-time; there is no second chance.
	ErrAlreadyConfigured = errors.New("payment model already configured")

	// ErrAlreadySettled is returned when settle is invoked on a consignment
	// event whose settlement is already final. Terminal state.
	ErrAlreadySettled = errors.New("consignment already settled")

	// ErrWrongPaymentModel is returned when a consignment-only operation is
	// invoked on an event configured with another model.
	ErrWrongPaymentModel = errors.New("operation requires consignment model")

	// ErrConfigInactive is returned when an operation requires an active
	// payment model configuration.
	ErrConfigInactive = errors.New("payment model configuration deactivated")

	// ErrInsufficientCredits is returned when a prepay selection asks for
	// more tickets than the organizer's credit balance covers.
	ErrInsufficientCredits = errors.New("insufficient prepay credits")

	// ErrCapacityExceeded is returned when a sub-seller assignment would
	// push a parent's delegated total past its own allocation.
	ErrCapacityExceeded = errors.New("allocation capacity exceeded")

	// ErrDelegationNotPermitted is returned when a node without the delegate
	// capability tries to create a sub-seller.
	ErrDelegationNotPermitted = errors.New("delegation not permitted")

	// ErrSellingNotPermitted is returned on a sale attempt by a node without
	// the sell capability.
	ErrSellingNotPermitted = errors.New("selling not permitted")

	// ErrScanningNotPermitted is returned on a scan attempt by a node without
	// the scan capability.
	ErrScanningNotPermitted = errors.New("scanning not permitted")

	// ErrPaymentSetupIncomplete is returned when credit-card selection finds
	// the organizer's processor onboarding unfinished.
	ErrPaymentSetupIncomplete = errors.New("payment processor onboarding incomplete")

	// ErrTicketNotScannable is returned when a scan targets a ticket that is
	// not in the valid state (already scanned, cancelled, refunded, pending).
	ErrTicketNotScannable = errors.New("ticket not in scannable state")

	// ErrInvalidTicketCount is returned when a selection carries a ticket
	// count outside its valid range (negative float, non-positive prepay).
	// Negative counts flow straight into credit and capacity arithmetic, so
	// they are rejected at the boundary.
	ErrInvalidTicketCount = errors.New("invalid ticket count")

	// ErrTierMissing is returned when a sold ticket references a tier that no
	// longer exists. Silently counting it as zero would understate the
	// settlement, so it surfaces as a data-integrity error.
	ErrTierMissing = errors.New("ticket references missing tier")

	// ErrEventNotFound, ErrConfigNotFound, ErrSellerNotFound, ErrTicketNotFound
	// are the engine's not-found family.
	ErrEventNotFound     = errors.New("event not found")
	ErrOrganizerNotFound = errors.New("organizer not found")
	ErrConfigNotFound    = errors.New("payment model configuration not found")
	ErrSellerNotFound    = errors.New("seller not found")
	ErrTicketNotFound    = errors.New("ticket not found")
)

// =============================================================================
// STRUCTURED ERRORS - Carry the computed shortfall
// =============================================================================

// CapacityError reports how far over the parent's allocation an assignment
// or sale would land, so the caller can adjust the request.
type CapacityError struct {
	ParentID    SellerID
	Allocated   int
	Delegated   int // sum of existing children's allocations
	SoldDirect  int // tickets the parent sold itself
	Requested   int
	Shortfall   int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("capacity exceeded for seller %s: allocated %d, delegated %d, sold %d, requested %d (short by %d)",
		e.ParentID, e.Allocated, e.Delegated, e.SoldDirect, e.Requested, e.Shortfall)
}

func (e *CapacityError) Unwrap() error { return ErrCapacityExceeded }

// InsufficientCreditsError reports the prepay credit shortfall.
type InsufficientCreditsError struct {
	OrganizerID OrganizerID
	Available   int
	Requested   int
}

func (e *InsufficientCreditsError) Error() string {
	return fmt.Sprintf("insufficient prepay credits for organizer %s: available %d, requested %d",
		e.OrganizerID, e.Available, e.Requested)
}

func (e *InsufficientCreditsError) Unwrap() error { return ErrInsufficientCredits }

// MissingTierError identifies which ticket broke settlement integrity.
type MissingTierError struct {
	EventID  EventID
	TicketID TicketID
	TierID   TierID
}

func (e *MissingTierError) Error() string {
	return fmt.Sprintf("ticket %s (event %s) references missing tier %s", e.TicketID, e.EventID, e.TierID)
}

func (e *MissingTierError) Unwrap() error { return ErrTierMissing }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsConflict returns true for state-conflict errors: the operation's
// precondition no longer holds and the caller should refresh, not retry.
func IsConflict(err error) bool {
	return errors.Is(err, ErrAlreadyConfigured) ||
		errors.Is(err, ErrAlreadySettled) ||
		errors.Is(err, ErrWrongPaymentModel) ||
		errors.Is(err, ErrConfigInactive) ||
		errors.Is(err, ErrCapacityExceeded) ||
		errors.Is(err, ErrTicketNotScannable)
}

// IsClientError returns true if the error is a business-rule rejection of the
// caller's request rather than an engine failure.
func IsClientError(err error) bool {
	return IsConflict(err) ||
		errors.Is(err, ErrInsufficientCredits) ||
		errors.Is(err, ErrInvalidTicketCount) ||
		errors.Is(err, ErrDelegationNotPermitted) ||
		errors.Is(err, ErrSellingNotPermitted) ||
		errors.Is(err, ErrScanningNotPermitted) ||
		errors.Is(err, ErrPaymentSetupIncomplete)
}

// IsNotFound returns true if the error indicates a missing entity.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrEventNotFound) ||
		errors.Is(err, ErrOrganizerNotFound) ||
		errors.Is(err, ErrConfigNotFound) ||
		errors.Is(err, ErrSellerNotFound) ||
		errors.Is(err, ErrTicketNotFound)
}

// IsUnauthorized returns true for authorization failures, including missing
// seller capabilities.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrDelegationNotPermitted) ||
		errors.Is(err, ErrSellingNotPermitted) ||
		errors.Is(err, ErrScanningNotPermitted)
}
