/*
Package sellers implements the staff commission hierarchy.

PURPOSE:
  Manages the per-event seller tree: the organizer's root allocation, staff
  nodes under it, and sub-resellers recursively below them. Records sales
  and scans attributed to nodes, enforcing capabilities at the point of the
  attempt, and computes each node's commission from its own direct sales.

CAPACITY:
  Delegation and direct sales share one budget per node. Every assignment
  and every sale runs its capacity check and its write inside one store
  transaction, so two racing assignments against the same parent can never
  both commit past the parent's allocation.

ATTRIBUTION:
  A ticket's SellerID is set once, at sale time. Earnings never roll up:
  a parent earns nothing from its subtree's sales.

SEE ALSO:
  - engine/seller.go: Node types, capability set, capacity and earnings math
*/
package sellers

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/stepperslife/settlement-engine/engine"
	"github.com/stepperslife/settlement-engine/monitoring"
)

// Service manages the seller tree and commission computation.
type Service struct {
	store engine.TxStore
	now   func() time.Time
}

func NewService(store engine.TxStore) *Service {
	return &Service{store: store, now: func() time.Time { return time.Now().UTC() }}
}

// =============================================================================
// NODE CREATION
// =============================================================================

// CreateRoot creates the organizer's root allocation for an event. Only the
// event owner may do this.
func (s *Service) CreateRoot(ctx context.Context, caller engine.OrganizerID, eventID engine.EventID, name string, allocated int, commission engine.Commission, caps engine.Capabilities) (*engine.SellerNode, error) {
	var created *engine.SellerNode
	err := s.store.WithTx(ctx, func(tx engine.Store) error {
		ev, err := tx.GetEvent(ctx, eventID)
		if err != nil {
			return err
		}
		if ev.OrganizerID != caller {
			return engine.ErrUnauthorized
		}

		node := engine.SellerNode{
			ID:               engine.SellerID(uuid.NewString()),
			EventID:          eventID,
			Name:             name,
			AllocatedTickets: allocated,
			Commission:       commission,
			Capabilities:     caps,
			CreatedAt:        s.now(),
		}
		if err := tx.CreateSeller(ctx, node); err != nil {
			return err
		}
		created = &node
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// AssignSubSeller carves a slice of the parent's allocation out to a new
// child node. The capacity check and the insert are one atomic unit.
func (s *Service) AssignSubSeller(ctx context.Context, parentID engine.SellerID, name string, allocated int, commission engine.Commission, caps engine.Capabilities) (*engine.SellerNode, error) {
	var created *engine.SellerNode
	err := s.store.WithTx(ctx, func(tx engine.Store) error {
		parent, err := tx.GetSeller(ctx, parentID)
		if err != nil {
			return err
		}
		if err := engine.Authorize(parent, engine.CapDelegate); err != nil {
			return err
		}

		delegated, soldDirect, err := s.nodeUsage(ctx, tx, parent)
		if err != nil {
			return err
		}
		if err := engine.CheckAssignmentCapacity(parent, delegated, soldDirect, allocated); err != nil {
			return err
		}

		node := engine.SellerNode{
			ID:               engine.SellerID(uuid.NewString()),
			ParentID:         parentID,
			EventID:          parent.EventID,
			Name:             name,
			AllocatedTickets: allocated,
			Commission:       commission,
			Capabilities:     caps,
			CreatedAt:        s.now(),
		}
		if err := tx.CreateSeller(ctx, node); err != nil {
			return err
		}
		created = &node
		return nil
	})

	monitoring.RecordAssignment(err == nil)
	if err != nil {
		return nil, err
	}
	return created, nil
}

// =============================================================================
// POINT OF SALE / SCAN
// =============================================================================

// RecordSale attributes one ticket sale to the node. Capability and the
// node's effective sellable capacity (allocation minus delegated minus own
// sales) are enforced here, at the attempt, inside one transaction.
func (s *Service) RecordSale(ctx context.Context, sellerID engine.SellerID, tierID engine.TierID) (*engine.Ticket, error) {
	var sold *engine.Ticket
	err := s.store.WithTx(ctx, func(tx engine.Store) error {
		node, err := tx.GetSeller(ctx, sellerID)
		if err != nil {
			return err
		}
		if err := engine.Authorize(node, engine.CapSell); err != nil {
			return err
		}

		tier, err := tx.GetTier(ctx, tierID)
		if err != nil {
			return err
		}
		if tier.EventID != node.EventID {
			return engine.ErrTierMissing
		}

		delegated, soldDirect, err := s.nodeUsage(ctx, tx, node)
		if err != nil {
			return err
		}
		if err := engine.CheckSaleCapacity(node, delegated, soldDirect); err != nil {
			return err
		}

		ticket := engine.Ticket{
			ID:       engine.TicketID(uuid.NewString()),
			EventID:  node.EventID,
			TierID:   tierID,
			SellerID: sellerID,
			Status:   engine.TicketValid,
			SoldAt:   s.now(),
		}
		if err := tx.SaveTicket(ctx, ticket); err != nil {
			return err
		}
		sold = &ticket
		return nil
	})

	monitoring.RecordSale(err == nil)
	if err != nil {
		return nil, err
	}
	return sold, nil
}

// RecordScan marks a ticket scanned by the node. Scan-only staff (canSell
// false) pass this gate; sellers without the scan capability do not.
func (s *Service) RecordScan(ctx context.Context, sellerID engine.SellerID, ticketID engine.TicketID) error {
	return s.store.WithTx(ctx, func(tx engine.Store) error {
		node, err := tx.GetSeller(ctx, sellerID)
		if err != nil {
			return err
		}
		if err := engine.Authorize(node, engine.CapScan); err != nil {
			return err
		}

		ticket, err := tx.GetTicket(ctx, ticketID)
		if err != nil {
			return err
		}
		if ticket.EventID != node.EventID || ticket.Status != engine.TicketValid {
			return engine.ErrTicketNotScannable
		}

		ticket.Status = engine.TicketScanned
		return tx.SaveTicket(ctx, *ticket)
	})
}

// =============================================================================
// EARNINGS
// =============================================================================

// ComputeEarnings returns the node's commission from its own attributed
// sales, in cents.
func (s *Service) ComputeEarnings(ctx context.Context, sellerID engine.SellerID) (engine.Cents, error) {
	node, err := s.store.GetSeller(ctx, sellerID)
	if err != nil {
		return 0, err
	}
	tickets, err := s.store.TicketsBySeller(ctx, sellerID)
	if err != nil {
		return 0, err
	}
	tiers, err := s.tierIndex(ctx, node.EventID)
	if err != nil {
		return 0, err
	}
	return engine.ComputeCommission(node, tickets, tiers)
}

// NodeEarnings pairs a node with its computed commission for reports.
type NodeEarnings struct {
	Node          engine.SellerNode
	TicketsSold   int
	EarningsCents engine.Cents
}

// EventEarnings computes every node's earnings for an event (the organizer's
// payout report). Each node reflects only its own direct sales.
func (s *Service) EventEarnings(ctx context.Context, eventID engine.EventID) ([]NodeEarnings, error) {
	nodes, err := s.store.SellersByEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	tickets, err := s.store.TicketsByEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	tiers, err := s.tierIndex(ctx, eventID)
	if err != nil {
		return nil, err
	}

	out := make([]NodeEarnings, 0, len(nodes))
	for i := range nodes {
		node := nodes[i]
		earned, err := engine.ComputeCommission(&node, tickets, tiers)
		if err != nil {
			return nil, err
		}
		sold := 0
		for _, t := range tickets {
			if t.SellerID == node.ID && t.CountsTowardRevenue() {
				sold++
			}
		}
		out = append(out, NodeEarnings{Node: node, TicketsSold: sold, EarningsCents: earned})
	}
	return out, nil
}

// =============================================================================
// TREE LISTING
// =============================================================================

// TreeNode is one seller with its capacity aggregates and children.
type TreeNode struct {
	Node       engine.SellerNode
	Delegated  int // sum of direct children's allocations
	SoldDirect int // tickets this node sold itself
	Remaining  int // directly sellable capacity left
	Children   []*TreeNode
}

// EventTree assembles the event's seller tree from the flat rows.
func (s *Service) EventTree(ctx context.Context, eventID engine.EventID) ([]*TreeNode, error) {
	nodes, err := s.store.SellersByEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	tickets, err := s.store.TicketsByEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}

	soldBy := make(map[engine.SellerID]int)
	for _, t := range tickets {
		if t.SellerID != "" && t.CountsTowardRevenue() {
			soldBy[t.SellerID]++
		}
	}

	byID := make(map[engine.SellerID]*TreeNode, len(nodes))
	for i := range nodes {
		n := nodes[i]
		byID[n.ID] = &TreeNode{Node: n, SoldDirect: soldBy[n.ID]}
	}

	var roots []*TreeNode
	for _, tn := range byID {
		if tn.Node.ParentID == "" {
			roots = append(roots, tn)
			continue
		}
		if parent, ok := byID[tn.Node.ParentID]; ok {
			parent.Children = append(parent.Children, tn)
			parent.Delegated += tn.Node.AllocatedTickets
		}
	}
	for _, tn := range byID {
		tn.Remaining = tn.Node.AllocatedTickets - tn.Delegated - tn.SoldDirect
	}

	// Map iteration above leaves sibling order random; responses sort by ID
	// like every store listing does.
	sortSiblings(roots)
	for _, tn := range byID {
		sortSiblings(tn.Children)
	}
	return roots, nil
}

func sortSiblings(nodes []*TreeNode) {
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Node.ID < nodes[j].Node.ID })
}

// =============================================================================
// HELPERS
// =============================================================================

// nodeUsage returns the node's delegated total and its own direct sales.
// Direct children only; the capacity invariant is local to each node.
func (s *Service) nodeUsage(ctx context.Context, tx engine.Store, node *engine.SellerNode) (delegated, soldDirect int, err error) {
	children, err := tx.ChildrenOf(ctx, node.ID)
	if err != nil {
		return 0, 0, err
	}
	for _, c := range children {
		delegated += c.AllocatedTickets
	}

	tickets, err := tx.TicketsBySeller(ctx, node.ID)
	if err != nil {
		return 0, 0, err
	}
	for _, t := range tickets {
		if t.CountsTowardRevenue() {
			soldDirect++
		}
	}
	return delegated, soldDirect, nil
}

func (s *Service) tierIndex(ctx context.Context, eventID engine.EventID) (map[engine.TierID]engine.TicketTier, error) {
	tiers, err := s.store.TiersByEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	idx := make(map[engine.TierID]engine.TicketTier, len(tiers))
	for _, t := range tiers {
		idx[t.ID] = t
	}
	return idx, nil
}
