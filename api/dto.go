/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

MONEY:
  Every monetary field is integer cents with a _cents suffix. No floats.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/stepperslife/settlement-engine/consignment"
	"github.com/stepperslife/settlement-engine/engine"
	"github.com/stepperslife/settlement-engine/sellers"
)

// =============================================================================
// COLLABORATOR RECORDS
// =============================================================================

// CreateOrganizerRequest seeds an organizer record.
type CreateOrganizerRequest struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	CreditBalance      int    `json:"credit_balance"`
	ProcessorOnboarded bool   `json:"processor_onboarded"`
}

// CreateEventRequest seeds an event record.
type CreateEventRequest struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	StartsAt string `json:"starts_at"` // RFC3339
}

// CreateTierRequest adds a price class to an event.
type CreateTierRequest struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	PriceCents int64  `json:"price_cents"`
}

// =============================================================================
// PAYMENT MODEL
// =============================================================================

// SelectModelRequest selects the event's one-time payment model.
type SelectModelRequest struct {
	Model           string  `json:"model"`
	Charity         bool    `json:"charity,omitempty"`
	PrepayTickets   int     `json:"prepay_tickets,omitempty"`
	FloatedTickets  int     `json:"floated_tickets,omitempty"`
	SettlementDueAt *string `json:"settlement_due_at,omitempty"` // RFC3339
}

// ConfigDTO represents a payment model configuration.
type ConfigDTO struct {
	ID                    string `json:"id"`
	EventID               string `json:"event_id"`
	Model                 string `json:"model"`
	IsActive              bool   `json:"is_active"`
	PlatformFeePercent    string `json:"platform_fee_percent"`
	PlatformFeeFixedCents int64  `json:"platform_fee_fixed_cents"`
	ProcessingFeePercent  string `json:"processing_fee_percent"`
	CharityDiscount       bool   `json:"charity_discount"`
	LowPriceApplied       bool   `json:"low_price_applied"`
	FloatedTickets        int    `json:"floated_tickets,omitempty"`
	SettlementDueAt       string `json:"settlement_due_at,omitempty"`
	Settled               bool   `json:"settled"`
	SettledAt             string `json:"settled_at,omitempty"`
}

// FeeBreakdownDTO is the result of a fee calculation.
type FeeBreakdownDTO struct {
	Model              string `json:"model"`
	SubtotalCents      int64  `json:"subtotal_cents"`
	PlatformFeeCents   int64  `json:"platform_fee_cents"`
	ProcessingFeeCents int64  `json:"processing_fee_cents"`
	TotalCents         int64  `json:"total_cents"`
}

// =============================================================================
// CONSIGNMENT
// =============================================================================

// SetupConsignmentRequest records the float for a consignment event.
type SetupConsignmentRequest struct {
	FloatedTickets  int     `json:"floated_tickets"`
	SettlementDueAt *string `json:"settlement_due_at,omitempty"` // RFC3339
}

// SettleRequest finalizes a consignment settlement.
type SettleRequest struct {
	Notes string `json:"notes,omitempty"`
}

// SettlementDTO is a settlement snapshot (live preview or frozen final).
type SettlementDTO struct {
	EventID           string `json:"event_id"`
	FloatedTickets    int    `json:"floated_tickets"`
	SoldTickets       int    `json:"sold_tickets"`
	UnsoldTickets     int    `json:"unsold_tickets"`
	TotalRevenueCents int64  `json:"total_revenue_cents"`
	PlatformFeeCents  int64  `json:"platform_fee_cents"`
	SettlementCents   int64  `json:"settlement_cents"`
	Settled           bool   `json:"settled"`
	ComputedAt        string `json:"computed_at,omitempty"`
	Notes             string `json:"notes,omitempty"`
}

// ConsignmentEventDTO pairs a config with its settlement for listings.
type ConsignmentEventDTO struct {
	Config     ConfigDTO     `json:"config"`
	Settlement SettlementDTO `json:"settlement"`
}

// =============================================================================
// SELLER TREE
// =============================================================================

// CommissionDTO is the tagged commission union on the wire.
type CommissionDTO struct {
	Kind       string `json:"kind"` // "fixed" | "percentage"
	FixedCents int64  `json:"fixed_cents,omitempty"`
	Percent    string `json:"percent,omitempty"`
}

// CreateSellerRequest creates a root seller or a sub-seller.
type CreateSellerRequest struct {
	Name             string        `json:"name"`
	AllocatedTickets int           `json:"allocated_tickets"`
	Commission       CommissionDTO `json:"commission"`
	Capabilities     []string      `json:"capabilities"` // "scan", "sell", "delegate"
}

// SellerDTO represents one seller node.
type SellerDTO struct {
	ID               string        `json:"id"`
	ParentID         string        `json:"parent_id,omitempty"`
	EventID          string        `json:"event_id"`
	Name             string        `json:"name"`
	AllocatedTickets int           `json:"allocated_tickets"`
	Commission       CommissionDTO `json:"commission"`
	Capabilities     []string      `json:"capabilities"`
}

// TreeNodeDTO is a seller with capacity aggregates and children.
type TreeNodeDTO struct {
	Seller     SellerDTO     `json:"seller"`
	Delegated  int           `json:"delegated"`
	SoldDirect int           `json:"sold_direct"`
	Remaining  int           `json:"remaining"`
	Children   []TreeNodeDTO `json:"children,omitempty"`
}

// RecordSaleRequest attributes one ticket sale to a seller.
type RecordSaleRequest struct {
	TierID string `json:"tier_id"`
}

// RecordScanRequest marks a ticket scanned by a seller.
type RecordScanRequest struct {
	TicketID string `json:"ticket_id"`
}

// TicketDTO represents one sold ticket.
type TicketDTO struct {
	ID       string `json:"id"`
	EventID  string `json:"event_id"`
	TierID   string `json:"tier_id"`
	SellerID string `json:"seller_id,omitempty"`
	Status   string `json:"status"`
	SoldAt   string `json:"sold_at"`
}

// EarningsDTO is one node's commission report line.
type EarningsDTO struct {
	SellerID      string `json:"seller_id"`
	Name          string `json:"name"`
	TicketsSold   int    `json:"tickets_sold"`
	EarningsCents int64  `json:"earnings_cents"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toConfigDTO(cfg *engine.PaymentModelConfig) ConfigDTO {
	dto := ConfigDTO{
		ID:                    string(cfg.ID),
		EventID:               string(cfg.EventID),
		Model:                 string(cfg.Model),
		IsActive:              cfg.IsActive,
		PlatformFeePercent:    cfg.Fees.PlatformFeePercent.String(),
		PlatformFeeFixedCents: int64(cfg.Fees.PlatformFeeFixedCents),
		ProcessingFeePercent:  cfg.Fees.ProcessingFeePercent.String(),
		CharityDiscount:       cfg.CharityDiscount,
		LowPriceApplied:       cfg.LowPriceApplied,
		FloatedTickets:        cfg.FloatedTickets,
		Settled:               cfg.Settled,
	}
	if !cfg.SettlementDueAt.IsZero() {
		dto.SettlementDueAt = cfg.SettlementDueAt.Format(time.RFC3339)
	}
	if cfg.SettledAt != nil {
		dto.SettledAt = cfg.SettledAt.Format(time.RFC3339)
	}
	return dto
}

func toFeeBreakdownDTO(b engine.FeeBreakdown) FeeBreakdownDTO {
	return FeeBreakdownDTO{
		Model:              string(b.Model),
		SubtotalCents:      int64(b.SubtotalCents),
		PlatformFeeCents:   int64(b.PlatformFeeCents),
		ProcessingFeeCents: int64(b.ProcessingFeeCents),
		TotalCents:         int64(b.TotalCents),
	}
}

func toSettlementDTO(s engine.SettlementSnapshot) SettlementDTO {
	dto := SettlementDTO{
		EventID:           string(s.EventID),
		FloatedTickets:    s.FloatedTickets,
		SoldTickets:       s.SoldTickets,
		UnsoldTickets:     s.UnsoldTickets,
		TotalRevenueCents: int64(s.TotalRevenueCents),
		PlatformFeeCents:  int64(s.PlatformFeeCents),
		SettlementCents:   int64(s.SettlementCents),
		Settled:           s.Settled,
		Notes:             s.Notes,
	}
	if !s.ComputedAt.IsZero() {
		dto.ComputedAt = s.ComputedAt.Format(time.RFC3339)
	}
	return dto
}

func toConsignmentEventDTOs(list []consignment.EventSettlement) []ConsignmentEventDTO {
	out := make([]ConsignmentEventDTO, len(list))
	for i, es := range list {
		cfg := es.Config
		out[i] = ConsignmentEventDTO{
			Config:     toConfigDTO(&cfg),
			Settlement: toSettlementDTO(es.Snapshot),
		}
	}
	return out
}

func toCommissionDTO(c engine.Commission) CommissionDTO {
	dto := CommissionDTO{Kind: string(c.Kind)}
	switch c.Kind {
	case engine.CommissionFixed:
		dto.FixedCents = int64(c.FixedCents)
	case engine.CommissionPercentage:
		dto.Percent = c.Percent.String()
	}
	return dto
}

func toSellerDTO(n engine.SellerNode) SellerDTO {
	caps := make([]string, 0, 3)
	for _, c := range n.Capabilities.List() {
		caps = append(caps, string(c))
	}
	return SellerDTO{
		ID:               string(n.ID),
		ParentID:         string(n.ParentID),
		EventID:          string(n.EventID),
		Name:             n.Name,
		AllocatedTickets: n.AllocatedTickets,
		Commission:       toCommissionDTO(n.Commission),
		Capabilities:     caps,
	}
}

func toTreeNodeDTO(tn *sellers.TreeNode) TreeNodeDTO {
	dto := TreeNodeDTO{
		Seller:     toSellerDTO(tn.Node),
		Delegated:  tn.Delegated,
		SoldDirect: tn.SoldDirect,
		Remaining:  tn.Remaining,
	}
	for _, child := range tn.Children {
		dto.Children = append(dto.Children, toTreeNodeDTO(child))
	}
	return dto
}

func toTicketDTO(t *engine.Ticket) TicketDTO {
	return TicketDTO{
		ID:       string(t.ID),
		EventID:  string(t.EventID),
		TierID:   string(t.TierID),
		SellerID: string(t.SellerID),
		Status:   string(t.Status),
		SoldAt:   t.SoldAt.Format(time.RFC3339),
	}
}
