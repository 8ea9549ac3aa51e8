/*
store.go - Persistence interfaces for the settlement engine

PURPOSE:
  Defines the interface between the engine's services and the database.
  Different implementations can use SQLite or in-memory storage.

KEY INTERFACES:
  EventStore/OrganizerStore: Collaborator records (ownership, prerequisites)
  ConfigStore:               One payment config per event
  TicketStore:               The order ledger the engine aggregates over
  SellerStore:               Arena-style seller tree (flat rows, parent by ID)
  Store:                     All of the above
  TxStore:                   Store plus WithTx for atomic check-then-act

ATOMICITY CONTRACT:
  Every externally-triggered operation executes inside one WithTx call.
  Capacity checks and one-time transitions (model selection, settlement)
  are classic check-then-act races; the store must make the enclosed reads
  and writes serializable per event. Two concurrent settles yield exactly
  one success; two concurrent over-capacity assignments never both commit.

ONE-SHOT WRITES:
  CreateConfig fails with ErrAlreadyConfigured on a second insert for the
  same event (unique index, not query-then-insert). MarkSettled flips
  settled only from false and fails with ErrAlreadySettled otherwise.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: Production SQLite
  - engine/store/memory.go: In-memory for testing

SEE ALSO:
  - billing/, consignment/, sellers/: The services built on these
*/
package engine

import "context"

// =============================================================================
// COLLABORATOR STORES
// =============================================================================

// EventStore persists the event facts the engine reads and flips.
type EventStore interface {
	GetEvent(ctx context.Context, id EventID) (*Event, error)
	SaveEvent(ctx context.Context, ev Event) error
}

// OrganizerStore persists organizer prerequisites (credits, onboarding).
type OrganizerStore interface {
	GetOrganizer(ctx context.Context, id OrganizerID) (*Organizer, error)
	SaveOrganizer(ctx context.Context, org Organizer) error
}

// =============================================================================
// CONFIG STORE - One config per event
// =============================================================================

type ConfigStore interface {
	// GetConfig returns the event's config, or ErrConfigNotFound.
	GetConfig(ctx context.Context, eventID EventID) (*PaymentModelConfig, error)

	// CreateConfig inserts the one-and-only config for an event.
	// Returns ErrAlreadyConfigured if one exists, racing writers included.
	CreateConfig(ctx context.Context, cfg PaymentModelConfig) error

	// UpdateConfig persists mutable fields (activation, fee params, float).
	// It never touches the settled columns; MarkSettled owns those.
	UpdateConfig(ctx context.Context, cfg PaymentModelConfig) error

	// MarkSettled freezes the final settlement onto the config, flipping
	// settled exactly once. Returns ErrAlreadySettled if already frozen.
	MarkSettled(ctx context.Context, eventID EventID, final SettlementSnapshot) error

	// ConfigsByModel returns all configs running the given model.
	ConfigsByModel(ctx context.Context, model PaymentModel) ([]PaymentModelConfig, error)
}

// =============================================================================
// TICKET LEDGER STORE
// =============================================================================

type TicketStore interface {
	TicketsByEvent(ctx context.Context, eventID EventID) ([]Ticket, error)
	TicketsBySeller(ctx context.Context, sellerID SellerID) ([]Ticket, error)
	GetTicket(ctx context.Context, id TicketID) (*Ticket, error)
	SaveTicket(ctx context.Context, t Ticket) error

	GetTier(ctx context.Context, id TierID) (*TicketTier, error)
	TiersByEvent(ctx context.Context, eventID EventID) ([]TicketTier, error)
	SaveTier(ctx context.Context, tier TicketTier) error
}

// =============================================================================
// SELLER TREE STORE
// =============================================================================

type SellerStore interface {
	GetSeller(ctx context.Context, id SellerID) (*SellerNode, error)
	CreateSeller(ctx context.Context, node SellerNode) error

	// ChildrenOf returns the node's DIRECT children only. The capacity
	// invariant is local; no full-tree query exists on purpose.
	ChildrenOf(ctx context.Context, parentID SellerID) ([]SellerNode, error)

	SellersByEvent(ctx context.Context, eventID EventID) ([]SellerNode, error)
}

// =============================================================================
// COMPOSITE AND TRANSACTIONAL STORES
// =============================================================================

// Store is everything the engine persists.
type Store interface {
	EventStore
	OrganizerStore
	ConfigStore
	TicketStore
	SellerStore
}

// TxStore wraps Store with transaction support. Services run each operation
// inside WithTx; fn's error rolls the whole operation back.
type TxStore interface {
	Store
	WithTx(ctx context.Context, fn func(Store) error) error
}
