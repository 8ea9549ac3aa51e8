/*
handlers_test.go - HTTP tests for the settlement engine API

Runs real requests through the chi router against an in-memory SQLite
store: model selection, fee calculation, consignment settlement, and the
seller tree, plus the domain-error to HTTP-status mapping.
*/
package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stepperslife/settlement-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

type testAPI struct {
	t      *testing.T
	router http.Handler
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return &testAPI{t: t, router: NewRouter(NewHandler(store))}
}

// do runs a request as the given organizer and decodes the JSON response.
func (a *testAPI) do(method, path, organizer string, body any, out any) *httptest.ResponseRecorder {
	a.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if organizer != "" {
		req.Header.Set("X-Organizer-ID", organizer)
	}

	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)

	if out != nil && rec.Code < 300 {
		require.NoError(a.t, json.NewDecoder(rec.Body).Decode(out))
	}
	return rec
}

// seedEvent creates an organizer and an event it owns, plus one $20.00 tier.
func (a *testAPI) seedEvent(orgID, eventID string, onboarded bool, credits int) {
	a.t.Helper()

	rec := a.do(http.MethodPost, "/api/organizers", "", CreateOrganizerRequest{
		ID: orgID, Name: "Owner", CreditBalance: credits, ProcessorOnboarded: onboarded,
	}, nil)
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = a.do(http.MethodPost, "/api/events", orgID, CreateEventRequest{
		ID: eventID, Name: "Show", StartsAt: "2026-09-01T20:00:00Z",
	}, nil)
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = a.do(http.MethodPost, "/api/events/"+eventID+"/tiers", orgID, CreateTierRequest{
		ID: "tier-ga", Name: "GA", PriceCents: 2000,
	}, nil)
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())
}

// =============================================================================
// PAYMENT MODEL ENDPOINTS
// =============================================================================

func TestAPI_SelectModel_AndCalculateFees(t *testing.T) {
	// GIVEN: An onboarded organizer with an event
	// WHEN: Selecting credit card and asking fees for a $100.00 order
	// THEN: 549 platform + 306 processing on a 10855 total

	api := newTestAPI(t)
	api.seedEvent("org-1", "ev-1", true, 0)

	var cfg ConfigDTO
	rec := api.do(http.MethodPost, "/api/events/ev-1/payment-model", "org-1",
		SelectModelRequest{Model: "credit_card"}, &cfg)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "credit_card", cfg.Model)
	assert.True(t, cfg.IsActive)

	var fees FeeBreakdownDTO
	rec = api.do(http.MethodGet, "/api/events/ev-1/fees?subtotal_cents=10000", "", nil, &fees)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, int64(549), fees.PlatformFeeCents)
	assert.Equal(t, int64(306), fees.ProcessingFeeCents)
	assert.Equal(t, int64(10855), fees.TotalCents)
}

func TestAPI_SelectModel_Twice_Returns409(t *testing.T) {
	api := newTestAPI(t)
	api.seedEvent("org-1", "ev-1", true, 50)

	rec := api.do(http.MethodPost, "/api/events/ev-1/payment-model", "org-1",
		SelectModelRequest{Model: "prepay", PrepayTickets: 10}, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = api.do(http.MethodPost, "/api/events/ev-1/payment-model", "org-1",
		SelectModelRequest{Model: "consignment"}, nil)
	assert.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())
}

func TestAPI_SelectModel_NotOwner_Returns403(t *testing.T) {
	api := newTestAPI(t)
	api.seedEvent("org-1", "ev-1", true, 0)
	api.do(http.MethodPost, "/api/organizers", "", CreateOrganizerRequest{ID: "org-2", Name: "Other"}, nil)

	rec := api.do(http.MethodPost, "/api/events/ev-1/payment-model", "org-2",
		SelectModelRequest{Model: "credit_card"}, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code, rec.Body.String())
}

func TestAPI_SelectModel_InsufficientCredits_Returns422(t *testing.T) {
	api := newTestAPI(t)
	api.seedEvent("org-1", "ev-1", true, 5)

	rec := api.do(http.MethodPost, "/api/events/ev-1/payment-model", "org-1",
		SelectModelRequest{Model: "prepay", PrepayTickets: 10}, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())

	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "insufficient_credits", resp.Code)
}

func TestAPI_SelectModel_NegativePrepay_Returns400(t *testing.T) {
	api := newTestAPI(t)
	api.seedEvent("org-1", "ev-1", true, 100)

	rec := api.do(http.MethodPost, "/api/events/ev-1/payment-model", "org-1",
		SelectModelRequest{Model: "prepay", PrepayTickets: -50}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

	// The balance is untouched: 150 credits are still more than the account holds
	rec = api.do(http.MethodPost, "/api/events/ev-1/payment-model", "org-1",
		SelectModelRequest{Model: "prepay", PrepayTickets: 150}, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())
}

func TestAPI_SelectModel_UnknownModel_Returns400(t *testing.T) {
	api := newTestAPI(t)
	api.seedEvent("org-1", "ev-1", true, 0)

	rec := api.do(http.MethodPost, "/api/events/ev-1/payment-model", "org-1",
		SelectModelRequest{Model: "barter"}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPI_GetPaymentModel_Missing_Returns404(t *testing.T) {
	api := newTestAPI(t)
	api.seedEvent("org-1", "ev-1", true, 0)

	rec := api.do(http.MethodGet, "/api/events/ev-1/payment-model", "", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPI_Deactivate_ThenFees_Returns409(t *testing.T) {
	api := newTestAPI(t)
	api.seedEvent("org-1", "ev-1", true, 0)

	rec := api.do(http.MethodPost, "/api/events/ev-1/payment-model", "org-1",
		SelectModelRequest{Model: "credit_card"}, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = api.do(http.MethodDelete, "/api/events/ev-1/payment-model", "org-1", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = api.do(http.MethodGet, "/api/events/ev-1/fees?subtotal_cents=1000", "", nil, nil)
	assert.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())
}

// =============================================================================
// CONSIGNMENT ENDPOINTS
// =============================================================================

func TestAPI_ConsignmentLifecycle(t *testing.T) {
	// GIVEN: A consignment event floating 100 tickets with 5 seller sales
	// WHEN: Previewing, settling, then settling again
	// THEN: 8735¢ owed, frozen on settle, 409 on the repeat

	api := newTestAPI(t)
	api.seedEvent("org-1", "ev-1", false, 0)

	rec := api.do(http.MethodPost, "/api/events/ev-1/payment-model", "org-1",
		SelectModelRequest{Model: "consignment", FloatedTickets: 100}, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// Root seller sells 5 tickets.
	var root SellerDTO
	rec = api.do(http.MethodPost, "/api/events/ev-1/sellers", "org-1", CreateSellerRequest{
		Name: "Root", AllocatedTickets: 100,
		Commission:   CommissionDTO{Kind: "fixed", FixedCents: 0},
		Capabilities: []string{"scan", "sell", "delegate"},
	}, &root)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	for i := 0; i < 5; i++ {
		rec = api.do(http.MethodPost, "/api/sellers/"+root.ID+"/sales", "",
			RecordSaleRequest{TierID: "tier-ga"}, nil)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	var preview SettlementDTO
	rec = api.do(http.MethodGet, "/api/events/ev-1/settlement", "", nil, &preview)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 5, preview.SoldTickets)
	assert.Equal(t, 95, preview.UnsoldTickets)
	assert.Equal(t, int64(8735), preview.SettlementCents)
	assert.False(t, preview.Settled)

	var final SettlementDTO
	rec = api.do(http.MethodPost, "/api/events/ev-1/settlement", "org-1",
		SettleRequest{Notes: "paid"}, &final)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, final.Settled)
	assert.Equal(t, int64(8735), final.SettlementCents)

	rec = api.do(http.MethodPost, "/api/events/ev-1/settlement", "org-1", SettleRequest{}, nil)
	assert.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())

	var list []ConsignmentEventDTO
	rec = api.do(http.MethodGet, "/api/consignment", "", nil, &list)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, list, 1)
	assert.True(t, list[0].Settlement.Settled)
	assert.Equal(t, "paid", list[0].Settlement.Notes)
}

// =============================================================================
// SELLER ENDPOINTS
// =============================================================================

func TestAPI_SellerTree_CapacityAndEarnings(t *testing.T) {
	// GIVEN: Root 100 -> Alice 40 on 150¢ fixed commission, 2 sales
	// WHEN: Over-delegating, selling, and reading earnings and the tree
	// THEN: 409 on the over-delegation; earnings and aggregates line up

	api := newTestAPI(t)
	api.seedEvent("org-1", "ev-1", false, 0)
	rec := api.do(http.MethodPost, "/api/events/ev-1/payment-model", "org-1",
		SelectModelRequest{Model: "consignment", FloatedTickets: 100}, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	var root SellerDTO
	rec = api.do(http.MethodPost, "/api/events/ev-1/sellers", "org-1", CreateSellerRequest{
		Name: "Root", AllocatedTickets: 100,
		Commission:   CommissionDTO{Kind: "fixed", FixedCents: 0},
		Capabilities: []string{"sell", "delegate"},
	}, &root)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var alice SellerDTO
	rec = api.do(http.MethodPost, "/api/sellers/"+root.ID+"/sub-sellers", "", CreateSellerRequest{
		Name: "Alice", AllocatedTickets: 40,
		Commission:   CommissionDTO{Kind: "fixed", FixedCents: 150},
		Capabilities: []string{"sell"},
	}, &alice)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, root.ID, alice.ParentID)

	// 70 more would blow past the root's 100.
	rec = api.do(http.MethodPost, "/api/sellers/"+root.ID+"/sub-sellers", "", CreateSellerRequest{
		Name: "Bob", AllocatedTickets: 70,
		Commission:   CommissionDTO{Kind: "fixed", FixedCents: 0},
		Capabilities: []string{"sell"},
	}, nil)
	assert.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())

	// Alice cannot delegate at all.
	rec = api.do(http.MethodPost, "/api/sellers/"+alice.ID+"/sub-sellers", "", CreateSellerRequest{
		Name: "Cara", AllocatedTickets: 5,
		Commission:   CommissionDTO{Kind: "fixed", FixedCents: 0},
		Capabilities: []string{"sell"},
	}, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code, rec.Body.String())

	for i := 0; i < 2; i++ {
		rec = api.do(http.MethodPost, "/api/sellers/"+alice.ID+"/sales", "",
			RecordSaleRequest{TierID: "tier-ga"}, nil)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	var earnings map[string]any
	rec = api.do(http.MethodGet, "/api/sellers/"+alice.ID+"/earnings", "", nil, &earnings)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(300), earnings["earnings_cents"])

	var tree []TreeNodeDTO
	rec = api.do(http.MethodGet, "/api/events/ev-1/sellers", "", nil, &tree)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, tree, 1)
	assert.Equal(t, 40, tree[0].Delegated)
	assert.Equal(t, 60, tree[0].Remaining)
	require.Len(t, tree[0].Children, 1)
	assert.Equal(t, 2, tree[0].Children[0].SoldDirect)
	assert.Equal(t, 38, tree[0].Children[0].Remaining)
}

func TestAPI_RecordScan_Flow(t *testing.T) {
	api := newTestAPI(t)
	api.seedEvent("org-1", "ev-1", false, 0)
	rec := api.do(http.MethodPost, "/api/events/ev-1/payment-model", "org-1",
		SelectModelRequest{Model: "consignment", FloatedTickets: 10}, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	var root SellerDTO
	rec = api.do(http.MethodPost, "/api/events/ev-1/sellers", "org-1", CreateSellerRequest{
		Name: "Root", AllocatedTickets: 10,
		Commission:   CommissionDTO{Kind: "fixed", FixedCents: 0},
		Capabilities: []string{"scan", "sell"},
	}, &root)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var ticket TicketDTO
	rec = api.do(http.MethodPost, "/api/sellers/"+root.ID+"/sales", "",
		RecordSaleRequest{TierID: "tier-ga"}, &ticket)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = api.do(http.MethodPost, "/api/sellers/"+root.ID+"/scans", "",
		RecordScanRequest{TicketID: ticket.ID}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// Scanning the same ticket again conflicts.
	rec = api.do(http.MethodPost, "/api/sellers/"+root.ID+"/scans", "",
		RecordScanRequest{TicketID: ticket.ID}, nil)
	assert.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())
}

func TestAPI_UnknownSeller_Returns404(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(http.MethodPost, "/api/sellers/nope/sales", "", RecordSaleRequest{TierID: "t"}, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPI_Health(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(http.MethodGet, "/health", "", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAPI_EventEarningsReport(t *testing.T) {
	api := newTestAPI(t)
	api.seedEvent("org-1", "ev-1", false, 0)
	rec := api.do(http.MethodPost, "/api/events/ev-1/payment-model", "org-1",
		SelectModelRequest{Model: "consignment", FloatedTickets: 50}, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	var root SellerDTO
	rec = api.do(http.MethodPost, "/api/events/ev-1/sellers", "org-1", CreateSellerRequest{
		Name: "Root", AllocatedTickets: 50,
		Commission:   CommissionDTO{Kind: "percentage", Percent: "10"},
		Capabilities: []string{"sell", "delegate"},
	}, &root)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	for i := 0; i < 3; i++ {
		rec = api.do(http.MethodPost, "/api/sellers/"+root.ID+"/sales", "",
			RecordSaleRequest{TierID: "tier-ga"}, nil)
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	var report []EarningsDTO
	rec = api.do(http.MethodGet, "/api/events/ev-1/earnings", "", nil, &report)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Len(t, report, 1)

	// 10% of 3 x 2000¢.
	assert.Equal(t, int64(600), report[0].EarningsCents)
	assert.Equal(t, 3, report[0].TicketsSold)
}
