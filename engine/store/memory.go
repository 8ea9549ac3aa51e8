// Package store provides engine.Store implementations.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/stepperslife/settlement-engine/engine"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu         sync.RWMutex
	events     map[engine.EventID]engine.Event
	organizers map[engine.OrganizerID]engine.Organizer
	configs    map[engine.EventID]engine.PaymentModelConfig
	tickets    map[engine.TicketID]engine.Ticket
	tiers      map[engine.TierID]engine.TicketTier
	sellers    map[engine.SellerID]engine.SellerNode
}

func NewMemory() *Memory {
	return &Memory{
		events:     make(map[engine.EventID]engine.Event),
		organizers: make(map[engine.OrganizerID]engine.Organizer),
		configs:    make(map[engine.EventID]engine.PaymentModelConfig),
		tickets:    make(map[engine.TicketID]engine.Ticket),
		tiers:      make(map[engine.TierID]engine.TicketTier),
		sellers:    make(map[engine.SellerID]engine.SellerNode),
	}
}

// =============================================================================
// EVENTS / ORGANIZERS
// =============================================================================

func (m *Memory) GetEvent(_ context.Context, id engine.EventID) (*engine.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ev, ok := m.events[id]
	if !ok {
		return nil, engine.ErrEventNotFound
	}
	return &ev, nil
}

func (m *Memory) SaveEvent(_ context.Context, ev engine.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events[ev.ID] = ev
	return nil
}

func (m *Memory) GetOrganizer(_ context.Context, id engine.OrganizerID) (*engine.Organizer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	org, ok := m.organizers[id]
	if !ok {
		return nil, engine.ErrOrganizerNotFound
	}
	return &org, nil
}

func (m *Memory) SaveOrganizer(_ context.Context, org engine.Organizer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.organizers[org.ID] = org
	return nil
}

// =============================================================================
// CONFIGS
// =============================================================================

func (m *Memory) GetConfig(_ context.Context, eventID engine.EventID) (*engine.PaymentModelConfig, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cfg, ok := m.configs[eventID]
	if !ok {
		return nil, engine.ErrConfigNotFound
	}
	return &cfg, nil
}

func (m *Memory) CreateConfig(_ context.Context, cfg engine.PaymentModelConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.configs[cfg.EventID]; exists {
		return engine.ErrAlreadyConfigured
	}
	m.configs[cfg.EventID] = cfg
	return nil
}

func (m *Memory) UpdateConfig(_ context.Context, cfg engine.PaymentModelConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.configs[cfg.EventID]
	if !ok {
		return engine.ErrConfigNotFound
	}
	// Settled columns belong to MarkSettled.
	cfg.Settled = existing.Settled
	cfg.SettledAt = existing.SettledAt
	cfg.SettlementCents = existing.SettlementCents
	cfg.SettledRevenue = existing.SettledRevenue
	cfg.SettledFees = existing.SettledFees
	cfg.SettlementNotes = existing.SettlementNotes
	cfg.SoldTickets = existing.SoldTickets
	m.configs[cfg.EventID] = cfg
	return nil
}

func (m *Memory) MarkSettled(_ context.Context, eventID engine.EventID, final engine.SettlementSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cfg, ok := m.configs[eventID]
	if !ok {
		return engine.ErrConfigNotFound
	}
	if cfg.Settled {
		return engine.ErrAlreadySettled
	}
	settledAt := final.ComputedAt
	cfg.Settled = true
	cfg.SettledAt = &settledAt
	cfg.SoldTickets = final.SoldTickets
	cfg.SettlementCents = final.SettlementCents
	cfg.SettledRevenue = final.TotalRevenueCents
	cfg.SettledFees = final.PlatformFeeCents
	cfg.SettlementNotes = final.Notes
	cfg.UpdatedAt = time.Now().UTC()
	m.configs[eventID] = cfg
	return nil
}

func (m *Memory) ConfigsByModel(_ context.Context, model engine.PaymentModel) ([]engine.PaymentModelConfig, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []engine.PaymentModelConfig
	for _, cfg := range m.configs {
		if cfg.Model == model {
			out = append(out, cfg)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EventID < out[j].EventID })
	return out, nil
}

// =============================================================================
// TICKETS / TIERS
// =============================================================================

func (m *Memory) TicketsByEvent(_ context.Context, eventID engine.EventID) ([]engine.Ticket, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []engine.Ticket
	for _, t := range m.tickets {
		if t.EventID == eventID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) TicketsBySeller(_ context.Context, sellerID engine.SellerID) ([]engine.Ticket, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []engine.Ticket
	for _, t := range m.tickets {
		if t.SellerID == sellerID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) GetTicket(_ context.Context, id engine.TicketID) (*engine.Ticket, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tickets[id]
	if !ok {
		return nil, engine.ErrTicketNotFound
	}
	return &t, nil
}

func (m *Memory) SaveTicket(_ context.Context, t engine.Ticket) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tickets[t.ID] = t
	return nil
}

func (m *Memory) GetTier(_ context.Context, id engine.TierID) (*engine.TicketTier, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	tier, ok := m.tiers[id]
	if !ok {
		return nil, engine.ErrTierMissing
	}
	return &tier, nil
}

func (m *Memory) TiersByEvent(_ context.Context, eventID engine.EventID) ([]engine.TicketTier, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []engine.TicketTier
	for _, tier := range m.tiers {
		if tier.EventID == eventID {
			out = append(out, tier)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) SaveTier(_ context.Context, tier engine.TicketTier) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tiers[tier.ID] = tier
	return nil
}

// =============================================================================
// SELLERS
// =============================================================================

func (m *Memory) GetSeller(_ context.Context, id engine.SellerID) (*engine.SellerNode, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, ok := m.sellers[id]
	if !ok {
		return nil, engine.ErrSellerNotFound
	}
	return &n, nil
}

func (m *Memory) CreateSeller(_ context.Context, node engine.SellerNode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sellers[node.ID] = node
	return nil
}

func (m *Memory) ChildrenOf(_ context.Context, parentID engine.SellerID) ([]engine.SellerNode, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []engine.SellerNode
	for _, n := range m.sellers {
		if n.ParentID == parentID {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) SellersByEvent(_ context.Context, eventID engine.EventID) ([]engine.SellerNode, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []engine.SellerNode
	for _, n := range m.sellers {
		if n.EventID == eventID {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// =============================================================================
// TRANSACTIONAL MEMORY STORE
// =============================================================================

// TxMemory wraps Memory with transaction support.
type TxMemory struct {
	*Memory
	txMu sync.Mutex
}

func NewTxMemory() *TxMemory {
	return &TxMemory{Memory: NewMemory()}
}

// WithTx executes fn against the store, simulated with a snapshot + rollback
// on error. The outer mutex serializes whole operations, which is the same
// guarantee SQLite gives the production store.
func (tm *TxMemory) WithTx(_ context.Context, fn func(engine.Store) error) error {
	tm.txMu.Lock()
	defer tm.txMu.Unlock()

	snapshot := tm.snapshot()
	if err := fn(tm.Memory); err != nil {
		tm.restore(snapshot)
		return err
	}
	return nil
}

type memorySnapshot struct {
	events     map[engine.EventID]engine.Event
	organizers map[engine.OrganizerID]engine.Organizer
	configs    map[engine.EventID]engine.PaymentModelConfig
	tickets    map[engine.TicketID]engine.Ticket
	tiers      map[engine.TierID]engine.TicketTier
	sellers    map[engine.SellerID]engine.SellerNode
}

func (tm *TxMemory) snapshot() memorySnapshot {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	return memorySnapshot{
		events:     copyMap(tm.events),
		organizers: copyMap(tm.organizers),
		configs:    copyMap(tm.configs),
		tickets:    copyMap(tm.tickets),
		tiers:      copyMap(tm.tiers),
		sellers:    copyMap(tm.sellers),
	}
}

func (tm *TxMemory) restore(s memorySnapshot) {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	tm.events = s.events
	tm.organizers = s.organizers
	tm.configs = s.configs
	tm.tickets = s.tickets
	tm.tiers = s.tiers
	tm.sellers = s.sellers
}

func copyMap[K comparable, V any](src map[K]V) map[K]V {
	dst := make(map[K]V, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
