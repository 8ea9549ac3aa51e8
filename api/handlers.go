/*
handlers.go - HTTP API handlers for the settlement engine

PURPOSE:
  Exposes the payment-model and settlement engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain services.

ENDPOINTS:
  Records:
    POST   /api/organizers                    Create organizer record
    POST   /api/events                        Create event record
    POST   /api/events/{id}/tiers             Add a price tier

  Payment model:
    POST   /api/events/{id}/payment-model     Select model (one-time)
    GET    /api/events/{id}/payment-model     Get active config
    DELETE /api/events/{id}/payment-model     Deactivate config
    POST   /api/events/{id}/payment-model/low-price-discount
    GET    /api/events/{id}/fees?subtotal_cents=N

  Consignment:
    POST   /api/events/{id}/consignment       Set/adjust the float
    GET    /api/events/{id}/settlement        Preview (or frozen) settlement
    POST   /api/events/{id}/settlement        Settle (freeze)
    GET    /api/consignment                   List consignment events

  Sellers:
    POST   /api/events/{id}/sellers           Create root seller
    GET    /api/events/{id}/sellers           Seller tree with capacity
    GET    /api/events/{id}/earnings          Per-node commission report
    POST   /api/sellers/{id}/sub-sellers      Delegate an allocation
    POST   /api/sellers/{id}/sales            Record a direct sale
    POST   /api/sellers/{id}/scans            Record a ticket scan
    GET    /api/sellers/{id}/earnings         One node's earnings

IDENTITY:
  The caller's organizer identity arrives in the X-Organizer-ID header,
  resolved by the gateway in front of this service. Mutating endpoints that
  require ownership reject requests without it.

ERROR HANDLING:
  Domain errors are classified and mapped to HTTP status:
  - 400: Validation errors, invalid input
  - 403: Caller does not own the event / capability missing
  - 404: Event, config, seller, or ticket not found
  - 409: Conflict (already configured, already settled, capacity)
  - 422: Prerequisite failures (credits, processor onboarding)
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/stepperslife/settlement-engine/billing"
	"github.com/stepperslife/settlement-engine/consignment"
	"github.com/stepperslife/settlement-engine/engine"
	"github.com/stepperslife/settlement-engine/sellers"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store       engine.TxStore
	Billing     *billing.Service
	Consignment *consignment.Service
	Sellers     *sellers.Service
}

// NewHandler wires the domain services over the given store.
func NewHandler(store engine.TxStore) *Handler {
	return &Handler{
		Store:       store,
		Billing:     billing.NewService(store),
		Consignment: consignment.NewService(store),
		Sellers:     sellers.NewService(store),
	}
}

// caller extracts the resolved organizer identity from the request.
func caller(r *http.Request) engine.OrganizerID {
	return engine.OrganizerID(r.Header.Get("X-Organizer-ID"))
}

// =============================================================================
// RECORD HANDLERS
// =============================================================================

// CreateOrganizer seeds an organizer record.
func (h *Handler) CreateOrganizer(w http.ResponseWriter, r *http.Request) {
	var req CreateOrganizerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "Name is required", nil)
		return
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	org := engine.Organizer{
		ID:                 engine.OrganizerID(req.ID),
		Name:               req.Name,
		CreditBalance:      req.CreditBalance,
		ProcessorOnboarded: req.ProcessorOnboarded,
	}
	if err := h.Store.SaveOrganizer(r.Context(), org); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create organizer", err)
		return
	}

	writeJSON(w, http.StatusCreated, org)
}

// CreateEvent seeds an event record owned by the caller.
func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	who := caller(r)
	if who == "" {
		writeError(w, http.StatusForbidden, "Missing X-Organizer-ID header", nil)
		return
	}

	var req CreateEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "Name is required", nil)
		return
	}
	startsAt, err := time.Parse(time.RFC3339, req.StartsAt)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid starts_at (use RFC3339)", err)
		return
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	ev := engine.Event{
		ID:          engine.EventID(req.ID),
		OrganizerID: who,
		Name:        req.Name,
		StartsAt:    startsAt,
	}
	if err := h.Store.SaveEvent(r.Context(), ev); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create event", err)
		return
	}

	writeJSON(w, http.StatusCreated, ev)
}

// CreateTier adds a price class to an event.
func (h *Handler) CreateTier(w http.ResponseWriter, r *http.Request) {
	eventID := engine.EventID(chi.URLParam(r, "id"))

	var req CreateTierRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.PriceCents < 0 {
		writeError(w, http.StatusBadRequest, "price_cents must be non-negative", nil)
		return
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	tier := engine.TicketTier{
		ID:         engine.TierID(req.ID),
		EventID:    eventID,
		Name:       req.Name,
		PriceCents: engine.Cents(req.PriceCents),
	}
	if err := h.Store.SaveTier(r.Context(), tier); err != nil {
		writeDomainError(w, "Failed to create tier", err)
		return
	}

	writeJSON(w, http.StatusCreated, tier)
}

// =============================================================================
// PAYMENT MODEL HANDLERS
// =============================================================================

// SelectPaymentModel selects the event's payment model. One-time: a second
// selection for the same event returns 409.
func (h *Handler) SelectPaymentModel(w http.ResponseWriter, r *http.Request) {
	eventID := engine.EventID(chi.URLParam(r, "id"))

	var req SelectModelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	model := engine.PaymentModel(req.Model)
	if !model.Valid() {
		writeError(w, http.StatusBadRequest, "Unknown payment model: "+req.Model, nil)
		return
	}

	params := billing.SelectModelParams{
		Model:          model,
		Charity:        req.Charity,
		PrepayTickets:  req.PrepayTickets,
		FloatedTickets: req.FloatedTickets,
	}
	if req.SettlementDueAt != nil {
		due, err := time.Parse(time.RFC3339, *req.SettlementDueAt)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid settlement_due_at (use RFC3339)", err)
			return
		}
		params.SettlementDueAt = &due
	}

	cfg, err := h.Billing.SelectModel(r.Context(), caller(r), eventID, params)
	if err != nil {
		writeDomainError(w, "Failed to select payment model", err)
		return
	}

	writeJSON(w, http.StatusCreated, toConfigDTO(cfg))
}

// GetPaymentModel returns the event's payment model configuration.
func (h *Handler) GetPaymentModel(w http.ResponseWriter, r *http.Request) {
	eventID := engine.EventID(chi.URLParam(r, "id"))

	cfg, err := h.Billing.GetConfig(r.Context(), eventID)
	if err != nil {
		writeDomainError(w, "Failed to get payment model", err)
		return
	}

	writeJSON(w, http.StatusOK, toConfigDTO(cfg))
}

// DeactivatePaymentModel deactivates the config and hides the event's
// tickets. The configuration row is retained for audit.
func (h *Handler) DeactivatePaymentModel(w http.ResponseWriter, r *http.Request) {
	eventID := engine.EventID(chi.URLParam(r, "id"))

	if err := h.Billing.Deactivate(r.Context(), caller(r), eventID); err != nil {
		writeDomainError(w, "Failed to deactivate payment model", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"event_id":    string(eventID),
		"deactivated": true,
	})
}

// ApplyLowPriceDiscount applies the low-price fee override to a credit-card
// event. Applying it twice is a no-op.
func (h *Handler) ApplyLowPriceDiscount(w http.ResponseWriter, r *http.Request) {
	eventID := engine.EventID(chi.URLParam(r, "id"))

	cfg, err := h.Billing.ApplyLowPriceDiscount(r.Context(), caller(r), eventID)
	if err != nil {
		writeDomainError(w, "Failed to apply low-price discount", err)
		return
	}

	writeJSON(w, http.StatusOK, toConfigDTO(cfg))
}

// CalculateFees computes the fee breakdown for an order subtotal under the
// event's active configuration.
func (h *Handler) CalculateFees(w http.ResponseWriter, r *http.Request) {
	eventID := engine.EventID(chi.URLParam(r, "id"))

	raw := r.URL.Query().Get("subtotal_cents")
	subtotal, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || subtotal < 0 {
		writeError(w, http.StatusBadRequest, "subtotal_cents must be a non-negative integer", err)
		return
	}

	breakdown, err := h.Billing.CalculateOrderFees(r.Context(), eventID, engine.Cents(subtotal))
	if err != nil {
		writeDomainError(w, "Failed to calculate fees", err)
		return
	}

	writeJSON(w, http.StatusOK, toFeeBreakdownDTO(breakdown))
}

// =============================================================================
// CONSIGNMENT HANDLERS
// =============================================================================

// SetupConsignment records (or adjusts) the ticket float for a consignment
// event before settlement.
func (h *Handler) SetupConsignment(w http.ResponseWriter, r *http.Request) {
	eventID := engine.EventID(chi.URLParam(r, "id"))

	var req SetupConsignmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.FloatedTickets < 0 {
		writeError(w, http.StatusBadRequest, "floated_tickets must be non-negative", nil)
		return
	}

	var dueAt *time.Time
	if req.SettlementDueAt != nil {
		due, err := time.Parse(time.RFC3339, *req.SettlementDueAt)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid settlement_due_at (use RFC3339)", err)
			return
		}
		dueAt = &due
	}

	cfg, err := h.Consignment.Setup(r.Context(), caller(r), eventID, req.FloatedTickets, dueAt)
	if err != nil {
		writeDomainError(w, "Failed to set up consignment", err)
		return
	}

	writeJSON(w, http.StatusOK, toConfigDTO(cfg))
}

// GetSettlement returns the settlement for an event: a live preview while
// unsettled, the frozen snapshot after.
func (h *Handler) GetSettlement(w http.ResponseWriter, r *http.Request) {
	eventID := engine.EventID(chi.URLParam(r, "id"))

	snap, err := h.Consignment.Preview(r.Context(), eventID)
	if err != nil {
		writeDomainError(w, "Failed to compute settlement", err)
		return
	}

	writeJSON(w, http.StatusOK, toSettlementDTO(snap))
}

// Settle finalizes the consignment settlement and freezes the figures.
func (h *Handler) Settle(w http.ResponseWriter, r *http.Request) {
	eventID := engine.EventID(chi.URLParam(r, "id"))

	var req SettleRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body", err)
			return
		}
	}

	snap, err := h.Consignment.Settle(r.Context(), caller(r), eventID, req.Notes)
	if err != nil {
		writeDomainError(w, "Failed to settle event", err)
		return
	}

	writeJSON(w, http.StatusOK, toSettlementDTO(snap))
}

// ListConsignmentEvents returns every consignment event with its settlement
// snapshot (frozen when settled, live otherwise).
func (h *Handler) ListConsignmentEvents(w http.ResponseWriter, r *http.Request) {
	list, err := h.Consignment.ListEvents(r.Context())
	if err != nil {
		writeDomainError(w, "Failed to list consignment events", err)
		return
	}

	writeJSON(w, http.StatusOK, toConsignmentEventDTOs(list))
}

// =============================================================================
// SELLER HANDLERS
// =============================================================================

// CreateRootSeller creates the root of an event's commission tree.
func (h *Handler) CreateRootSeller(w http.ResponseWriter, r *http.Request) {
	eventID := engine.EventID(chi.URLParam(r, "id"))

	req, commission, caps, ok := decodeSellerRequest(w, r)
	if !ok {
		return
	}

	node, err := h.Sellers.CreateRoot(r.Context(), caller(r), eventID, req.Name, req.AllocatedTickets, commission, caps)
	if err != nil {
		writeDomainError(w, "Failed to create seller", err)
		return
	}

	writeJSON(w, http.StatusCreated, toSellerDTO(*node))
}

// AssignSubSeller delegates part of a seller's allocation to a new child.
func (h *Handler) AssignSubSeller(w http.ResponseWriter, r *http.Request) {
	parentID := engine.SellerID(chi.URLParam(r, "id"))

	req, commission, caps, ok := decodeSellerRequest(w, r)
	if !ok {
		return
	}

	node, err := h.Sellers.AssignSubSeller(r.Context(), parentID, req.Name, req.AllocatedTickets, commission, caps)
	if err != nil {
		writeDomainError(w, "Failed to assign sub-seller", err)
		return
	}

	writeJSON(w, http.StatusCreated, toSellerDTO(*node))
}

// GetSellerTree returns the event's seller hierarchy with capacity figures.
func (h *Handler) GetSellerTree(w http.ResponseWriter, r *http.Request) {
	eventID := engine.EventID(chi.URLParam(r, "id"))

	roots, err := h.Sellers.EventTree(r.Context(), eventID)
	if err != nil {
		writeDomainError(w, "Failed to build seller tree", err)
		return
	}

	dtos := make([]TreeNodeDTO, len(roots))
	for i, root := range roots {
		dtos[i] = toTreeNodeDTO(root)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// RecordSale records one ticket sale attributed to a seller.
func (h *Handler) RecordSale(w http.ResponseWriter, r *http.Request) {
	sellerID := engine.SellerID(chi.URLParam(r, "id"))

	var req RecordSaleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.TierID == "" {
		writeError(w, http.StatusBadRequest, "tier_id is required", nil)
		return
	}

	ticket, err := h.Sellers.RecordSale(r.Context(), sellerID, engine.TierID(req.TierID))
	if err != nil {
		writeDomainError(w, "Failed to record sale", err)
		return
	}

	writeJSON(w, http.StatusCreated, toTicketDTO(ticket))
}

// RecordScan marks a ticket scanned by a seller at the door.
func (h *Handler) RecordScan(w http.ResponseWriter, r *http.Request) {
	sellerID := engine.SellerID(chi.URLParam(r, "id"))

	var req RecordScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.TicketID == "" {
		writeError(w, http.StatusBadRequest, "ticket_id is required", nil)
		return
	}

	if err := h.Sellers.RecordScan(r.Context(), sellerID, engine.TicketID(req.TicketID)); err != nil {
		writeDomainError(w, "Failed to record scan", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ticket_id": req.TicketID,
		"scanned":   true,
	})
}

// GetSellerEarnings returns one node's earned commission.
func (h *Handler) GetSellerEarnings(w http.ResponseWriter, r *http.Request) {
	sellerID := engine.SellerID(chi.URLParam(r, "id"))

	earned, err := h.Sellers.ComputeEarnings(r.Context(), sellerID)
	if err != nil {
		writeDomainError(w, "Failed to compute earnings", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"seller_id":      string(sellerID),
		"earnings_cents": int64(earned),
	})
}

// GetEventEarnings returns the per-node commission report for an event.
func (h *Handler) GetEventEarnings(w http.ResponseWriter, r *http.Request) {
	eventID := engine.EventID(chi.URLParam(r, "id"))

	report, err := h.Sellers.EventEarnings(r.Context(), eventID)
	if err != nil {
		writeDomainError(w, "Failed to compute earnings", err)
		return
	}

	dtos := make([]EarningsDTO, len(report))
	for i, line := range report {
		dtos[i] = EarningsDTO{
			SellerID:      string(line.Node.ID),
			Name:          line.Node.Name,
			TicketsSold:   line.TicketsSold,
			EarningsCents: int64(line.EarningsCents),
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// HELPERS
// =============================================================================

// decodeSellerRequest parses and validates the shared seller creation body.
func decodeSellerRequest(w http.ResponseWriter, r *http.Request) (CreateSellerRequest, engine.Commission, engine.Capabilities, bool) {
	var req CreateSellerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return req, engine.Commission{}, nil, false
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "Name is required", nil)
		return req, engine.Commission{}, nil, false
	}
	if req.AllocatedTickets < 0 {
		writeError(w, http.StatusBadRequest, "allocated_tickets must be non-negative", nil)
		return req, engine.Commission{}, nil, false
	}

	var commission engine.Commission
	switch engine.CommissionKind(req.Commission.Kind) {
	case engine.CommissionFixed:
		if req.Commission.FixedCents < 0 {
			writeError(w, http.StatusBadRequest, "fixed_cents must be non-negative", nil)
			return req, engine.Commission{}, nil, false
		}
		commission = engine.FixedCommission(engine.Cents(req.Commission.FixedCents))
	case engine.CommissionPercentage:
		pct, err := decimal.NewFromString(req.Commission.Percent)
		if err != nil || pct.IsNegative() {
			writeError(w, http.StatusBadRequest, "percent must be a non-negative decimal string", err)
			return req, engine.Commission{}, nil, false
		}
		commission = engine.PercentageCommission(pct)
	default:
		writeError(w, http.StatusBadRequest, "Unknown commission kind: "+req.Commission.Kind, nil)
		return req, engine.Commission{}, nil, false
	}

	caps := engine.Capabilities{}
	for _, c := range req.Capabilities {
		cap := engine.Capability(c)
		switch cap {
		case engine.CapScan, engine.CapSell, engine.CapDelegate:
			caps[cap] = true
		default:
			writeError(w, http.StatusBadRequest, "Unknown capability: "+c, nil)
			return req, engine.Commission{}, nil, false
		}
	}

	return req, commission, caps, true
}

// writeDomainError classifies a domain error into an HTTP status.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	status := http.StatusInternalServerError
	switch {
	case engine.IsNotFound(err):
		status = http.StatusNotFound
	case engine.IsUnauthorized(err):
		status = http.StatusForbidden
	case engine.IsConflict(err):
		status = http.StatusConflict
	case errors.Is(err, engine.ErrInsufficientCredits),
		errors.Is(err, engine.ErrPaymentSetupIncomplete):
		status = http.StatusUnprocessableEntity
	case engine.IsClientError(err):
		status = http.StatusBadRequest
	}

	resp := ErrorResponse{Error: message, Details: err.Error()}

	var capErr *engine.CapacityError
	if errors.As(err, &capErr) {
		resp.Code = "capacity_exceeded"
	}
	var credErr *engine.InsufficientCreditsError
	if errors.As(err, &credErr) {
		resp.Code = "insufficient_credits"
	}
	var tierErr *engine.MissingTierError
	if errors.As(err, &tierErr) {
		resp.Code = "tier_missing"
	}

	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
