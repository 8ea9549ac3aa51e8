/*
seller.go - Staff commission hierarchy types and earnings

PURPOSE:
  The seller tree: the organizer's allocation at the root, staff below it,
  and sub-resellers recursively below them. Each node owns a slice of its
  parent's ticket allocation and a commission rule.

CAPACITY MODEL:
  The tree shares capacity strictly downward. A node's allocation covers its
  own direct sales plus everything it delegates; delegated capacity is no
  longer directly sellable by the parent, only by the subtree. The invariant
  is LOCAL: checking an assignment needs only the parent and its direct
  children, never a full-tree walk.

CAPABILITIES:
  Scan, sell, and delegate are an explicit capability set checked through one
  shared authorization function (Authorize), not ad hoc booleans at each call
  site. Checks happen at the point of sale/scan, not just at node creation.

COMMISSION:
  Per-node, from the node's own attributed sales only. No roll-up across the
  subtree: a parent earns nothing from a child's sales.

SEE ALSO:
  - sellers/: Assignment, sale/scan recording, earnings service
  - store.go: SellerStore arena-style persistence (flat rows, parent by ID)
*/
package engine

import (
	"fmt"
	"time"
)

// =============================================================================
// CAPABILITIES
// =============================================================================

// Capability is one permission a seller node holds.
type Capability string

const (
	CapScan     Capability = "scan"
	CapSell     Capability = "sell"
	CapDelegate Capability = "delegate" // may create sub-sellers
)

// Capabilities is a small set type over the three capabilities.
type Capabilities map[Capability]bool

func NewCapabilities(caps ...Capability) Capabilities {
	set := make(Capabilities, len(caps))
	for _, c := range caps {
		set[c] = true
	}
	return set
}

func (c Capabilities) Has(cap Capability) bool { return c[cap] }

// List returns the capabilities in stable order for serialization.
func (c Capabilities) List() []Capability {
	var out []Capability
	for _, cap := range []Capability{CapScan, CapSell, CapDelegate} {
		if c[cap] {
			out = append(out, cap)
		}
	}
	return out
}

// Authorize is the single authorization gate for seller actions.
func Authorize(node *SellerNode, cap Capability) error {
	if node.Capabilities.Has(cap) {
		return nil
	}
	switch cap {
	case CapScan:
		return ErrScanningNotPermitted
	case CapSell:
		return ErrSellingNotPermitted
	case CapDelegate:
		return ErrDelegationNotPermitted
	default:
		return fmt.Errorf("unknown capability %q", cap)
	}
}

// =============================================================================
// COMMISSION RULES
// =============================================================================

type CommissionKind string

const (
	CommissionFixed      CommissionKind = "fixed"      // cents per ticket sold
	CommissionPercentage CommissionKind = "percentage" // percent of ticket price
)

// Commission is the tagged union {FIXED: cents-per-ticket, PERCENTAGE:
// percent-of-ticket-price}. Exactly one arm is meaningful per kind.
type Commission struct {
	Kind       CommissionKind
	FixedCents Cents
	Percent    Percent
}

func FixedCommission(centsPerTicket Cents) Commission {
	return Commission{Kind: CommissionFixed, FixedCents: centsPerTicket}
}

func PercentageCommission(pct Percent) Commission {
	return Commission{Kind: CommissionPercentage, Percent: pct}
}

// =============================================================================
// SELLER NODE
// =============================================================================

// SellerNode is one entry in the delegation tree. ParentID is empty at the
// organizer root. Rows are stored flat (arena-style), adjacency by ParentID.
type SellerNode struct {
	ID               SellerID
	ParentID         SellerID // empty at the root
	EventID          EventID
	Name             string
	AllocatedTickets int
	Commission       Commission
	Capabilities     Capabilities
	CreatedAt        time.Time
}

// IsRoot reports whether the node is the organizer's root allocation.
func (n *SellerNode) IsRoot() bool { return n.ParentID == "" }

// =============================================================================
// CAPACITY CHECK
// =============================================================================

// CheckAssignmentCapacity validates delegating `requested` tickets from
// parent, given the sum of existing children's allocations and the parent's
// own direct sales. Local to the node: descendants never enter the check.
func CheckAssignmentCapacity(parent *SellerNode, delegated, soldDirect, requested int) error {
	if requested < 0 {
		return fmt.Errorf("allocation must be non-negative, got %d", requested)
	}
	remaining := parent.AllocatedTickets - delegated - soldDirect
	if requested > remaining {
		return &CapacityError{
			ParentID:   parent.ID,
			Allocated:  parent.AllocatedTickets,
			Delegated:  delegated,
			SoldDirect: soldDirect,
			Requested:  requested,
			Shortfall:  requested - remaining,
		}
	}
	return nil
}

// CheckSaleCapacity validates one more direct sale by the node. The node's
// effective sellable capacity is its allocation minus what it delegated and
// what it already sold.
func CheckSaleCapacity(node *SellerNode, delegated, soldDirect int) error {
	remaining := node.AllocatedTickets - delegated - soldDirect
	if remaining < 1 {
		return &CapacityError{
			ParentID:   node.ID,
			Allocated:  node.AllocatedTickets,
			Delegated:  delegated,
			SoldDirect: soldDirect,
			Requested:  1,
			Shortfall:  1 - remaining,
		}
	}
	return nil
}

// =============================================================================
// EARNINGS
// =============================================================================

// ComputeCommission returns the node's earnings from its own attributed
// sales. Fixed: ticketsSold * centsPerTicket. Percentage: the rate applied
// to the sum of the sold tickets' prices, rounded half-up once.
func ComputeCommission(node *SellerNode, tickets []Ticket, tiers map[TierID]TicketTier) (Cents, error) {
	var sold int
	var priceSum Cents

	for _, t := range tickets {
		if t.SellerID != node.ID || !t.CountsTowardRevenue() {
			continue
		}
		sold++
		if node.Commission.Kind == CommissionPercentage {
			tier, ok := tiers[t.TierID]
			if !ok {
				return 0, &MissingTierError{EventID: t.EventID, TicketID: t.ID, TierID: t.TierID}
			}
			priceSum += tier.PriceCents
		}
	}

	if node.Commission.Kind == CommissionFixed {
		return Cents(sold) * node.Commission.FixedCents, nil
	}
	return PercentOf(priceSum, node.Commission.Percent), nil
}
