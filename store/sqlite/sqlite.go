/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements engine.Store and engine.TxStore using SQLite. In production the
  same patterns apply to PostgreSQL - only minor SQL dialect differences.

INVARIANTS AT THE STORAGE LAYER:
  - idx_configs_event UNIQUE(event_id): at most one payment config per event.
    CreateConfig never does query-then-insert; a racing second insert loses
    to the index and surfaces as ErrAlreadyConfigured.
  - MarkSettled is a conditional UPDATE ... WHERE settled = 0. Exactly one
    of two concurrent settles flips the flag; the other reads zero rows
    affected and gets ErrAlreadySettled.

CONCURRENCY:
  A mutex serializes WithTx operations; check-then-act sequences (capacity
  checks, one-time transitions) run entirely inside one transaction. Plain
  reads go straight to the pool.

WAL MODE:
  Opened with WAL so readers don't block behind the single writer.

USAGE:
  store, err := sqlite.New("./data/settlement.db")
  defer store.Close()
  svc := billing.NewService(store)

SEE ALSO:
  - engine/store.go: Interface definitions and contracts
  - engine/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/stepperslife/settlement-engine/engine"
)

// Store implements engine.TxStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.Mutex
	queries
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db, queries: queries{q: db}}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Collaborator records: the ownership and prerequisite facts the engine reads
	CREATE TABLE IF NOT EXISTS organizers (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		credit_balance INTEGER NOT NULL DEFAULT 0,
		processor_onboarded BOOLEAN NOT NULL DEFAULT FALSE
	);

	CREATE TABLE IF NOT EXISTS events (
		id TEXT PRIMARY KEY,
		organizer_id TEXT NOT NULL,
		name TEXT NOT NULL,
		starts_at TEXT NOT NULL,
		payment_model_selected BOOLEAN NOT NULL DEFAULT FALSE,
		tickets_visible BOOLEAN NOT NULL DEFAULT FALSE
	);

	CREATE INDEX IF NOT EXISTS idx_events_organizer ON events(organizer_id);

	-- Payment model configs: ONE per event, enforced here, not in application code
	CREATE TABLE IF NOT EXISTS payment_model_configs (
		id TEXT PRIMARY KEY,
		event_id TEXT NOT NULL,
		model TEXT NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		platform_fee_percent TEXT NOT NULL,
		platform_fee_fixed_cents INTEGER NOT NULL,
		processing_fee_percent TEXT NOT NULL,
		charity_discount BOOLEAN NOT NULL DEFAULT FALSE,
		low_price_applied BOOLEAN NOT NULL DEFAULT FALSE,
		floated_tickets INTEGER NOT NULL DEFAULT 0,
		sold_tickets INTEGER NOT NULL DEFAULT 0,
		settlement_due_at TEXT,
		settled BOOLEAN NOT NULL DEFAULT FALSE,
		settled_at TEXT,
		settlement_cents INTEGER NOT NULL DEFAULT 0,
		settled_revenue_cents INTEGER NOT NULL DEFAULT 0,
		settled_fees_cents INTEGER NOT NULL DEFAULT 0,
		settlement_notes TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_configs_event
		ON payment_model_configs(event_id);
	CREATE INDEX IF NOT EXISTS idx_configs_model
		ON payment_model_configs(model);

	-- Ticket ledger: append-mostly, only status mutates
	CREATE TABLE IF NOT EXISTS ticket_tiers (
		id TEXT PRIMARY KEY,
		event_id TEXT NOT NULL,
		name TEXT NOT NULL,
		price_cents INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_tiers_event ON ticket_tiers(event_id);

	CREATE TABLE IF NOT EXISTS tickets (
		id TEXT PRIMARY KEY,
		event_id TEXT NOT NULL,
		tier_id TEXT NOT NULL,
		seller_id TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		sold_at TEXT NOT NULL
	);

	-- Settlement aggregation (hot path) and commission attribution
	CREATE INDEX IF NOT EXISTS idx_tickets_event_status ON tickets(event_id, status);
	CREATE INDEX IF NOT EXISTS idx_tickets_seller ON tickets(seller_id) WHERE seller_id != '';

	-- Seller tree: flat rows, adjacency by parent_id
	CREATE TABLE IF NOT EXISTS seller_nodes (
		id TEXT PRIMARY KEY,
		parent_id TEXT NOT NULL DEFAULT '',
		event_id TEXT NOT NULL,
		name TEXT NOT NULL,
		allocated_tickets INTEGER NOT NULL,
		commission_kind TEXT NOT NULL,
		commission_fixed_cents INTEGER NOT NULL DEFAULT 0,
		commission_percent TEXT NOT NULL DEFAULT '0',
		cap_scan BOOLEAN NOT NULL DEFAULT FALSE,
		cap_sell BOOLEAN NOT NULL DEFAULT FALSE,
		cap_delegate BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TEXT NOT NULL
	);

	-- Capacity checks query direct children only
	CREATE INDEX IF NOT EXISTS idx_sellers_parent ON seller_nodes(parent_id) WHERE parent_id != '';
	CREATE INDEX IF NOT EXISTS idx_sellers_event ON seller_nodes(event_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// TRANSACTIONAL STORE (engine.TxStore interface)
// =============================================================================

// WithTx executes fn within a database transaction. The mutex serializes
// whole operations, which keeps every check-then-act sequence atomic
// relative to other operations on the same event.
func (s *Store) WithTx(ctx context.Context, fn func(engine.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(queries{q: sqlTx}); err != nil {
		return err
	}
	return sqlTx.Commit()
}

// =============================================================================
// QUERIES - Shared between the pool and an open transaction
// =============================================================================

type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// queries implements engine.Store against either *sql.DB or *sql.Tx.
type queries struct {
	q dbtx
}

var _ engine.Store = queries{}

// -----------------------------------------------------------------------------
// Events
// -----------------------------------------------------------------------------

func (s queries) GetEvent(ctx context.Context, id engine.EventID) (*engine.Event, error) {
	var ev engine.Event
	var startsAt string
	err := s.q.QueryRowContext(ctx,
		`SELECT id, organizer_id, name, starts_at, payment_model_selected, tickets_visible
		 FROM events WHERE id = ?`, id,
	).Scan(&ev.ID, &ev.OrganizerID, &ev.Name, &startsAt, &ev.PaymentModelSelected, &ev.TicketsVisible)
	if err == sql.ErrNoRows {
		return nil, engine.ErrEventNotFound
	}
	if err != nil {
		return nil, err
	}
	ev.StartsAt = parseTime(startsAt)
	return &ev, nil
}

func (s queries) SaveEvent(ctx context.Context, ev engine.Event) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO events (id, organizer_id, name, starts_at, payment_model_selected, tickets_visible)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			organizer_id = excluded.organizer_id,
			name = excluded.name,
			starts_at = excluded.starts_at,
			payment_model_selected = excluded.payment_model_selected,
			tickets_visible = excluded.tickets_visible`,
		ev.ID, ev.OrganizerID, ev.Name, formatTime(ev.StartsAt), ev.PaymentModelSelected, ev.TicketsVisible,
	)
	return err
}

// -----------------------------------------------------------------------------
// Organizers
// -----------------------------------------------------------------------------

func (s queries) GetOrganizer(ctx context.Context, id engine.OrganizerID) (*engine.Organizer, error) {
	var org engine.Organizer
	err := s.q.QueryRowContext(ctx,
		`SELECT id, name, credit_balance, processor_onboarded FROM organizers WHERE id = ?`, id,
	).Scan(&org.ID, &org.Name, &org.CreditBalance, &org.ProcessorOnboarded)
	if err == sql.ErrNoRows {
		return nil, engine.ErrOrganizerNotFound
	}
	if err != nil {
		return nil, err
	}
	return &org, nil
}

func (s queries) SaveOrganizer(ctx context.Context, org engine.Organizer) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO organizers (id, name, credit_balance, processor_onboarded)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			credit_balance = excluded.credit_balance,
			processor_onboarded = excluded.processor_onboarded`,
		org.ID, org.Name, org.CreditBalance, org.ProcessorOnboarded,
	)
	return err
}

// -----------------------------------------------------------------------------
// Payment model configs
// -----------------------------------------------------------------------------

const configColumns = `id, event_id, model, is_active,
	platform_fee_percent, platform_fee_fixed_cents, processing_fee_percent,
	charity_discount, low_price_applied,
	floated_tickets, sold_tickets, settlement_due_at,
	settled, settled_at, settlement_cents, settled_revenue_cents, settled_fees_cents, settlement_notes,
	created_at, updated_at`

func (s queries) GetConfig(ctx context.Context, eventID engine.EventID) (*engine.PaymentModelConfig, error) {
	row := s.q.QueryRowContext(ctx,
		`SELECT `+configColumns+` FROM payment_model_configs WHERE event_id = ?`, eventID)
	cfg, err := scanConfig(row)
	if err == sql.ErrNoRows {
		return nil, engine.ErrConfigNotFound
	}
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

func (s queries) CreateConfig(ctx context.Context, cfg engine.PaymentModelConfig) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO payment_model_configs
		(id, event_id, model, is_active,
		 platform_fee_percent, platform_fee_fixed_cents, processing_fee_percent,
		 charity_discount, low_price_applied,
		 floated_tickets, sold_tickets, settlement_due_at,
		 settled, settlement_notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		cfg.ID, cfg.EventID, cfg.Model, cfg.IsActive,
		cfg.Fees.PlatformFeePercent.String(), int64(cfg.Fees.PlatformFeeFixedCents), cfg.Fees.ProcessingFeePercent.String(),
		cfg.CharityDiscount, cfg.LowPriceApplied,
		cfg.FloatedTickets, cfg.SoldTickets, nullTime(cfg.SettlementDueAt),
		cfg.Settled, cfg.SettlementNotes, formatTime(cfg.CreatedAt), formatTime(cfg.UpdatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return engine.ErrAlreadyConfigured
		}
		return fmt.Errorf("failed to create config: %w", err)
	}
	return nil
}

// UpdateConfig persists the mutable, pre-settlement fields. The settled
// columns are MarkSettled's alone.
func (s queries) UpdateConfig(ctx context.Context, cfg engine.PaymentModelConfig) error {
	res, err := s.q.ExecContext(ctx, `
		UPDATE payment_model_configs SET
			is_active = ?,
			platform_fee_percent = ?,
			platform_fee_fixed_cents = ?,
			processing_fee_percent = ?,
			charity_discount = ?,
			low_price_applied = ?,
			floated_tickets = ?,
			settlement_due_at = ?,
			updated_at = ?
		WHERE event_id = ?`,
		cfg.IsActive,
		cfg.Fees.PlatformFeePercent.String(), int64(cfg.Fees.PlatformFeeFixedCents), cfg.Fees.ProcessingFeePercent.String(),
		cfg.CharityDiscount, cfg.LowPriceApplied,
		cfg.FloatedTickets, nullTime(cfg.SettlementDueAt),
		formatTime(cfg.UpdatedAt), cfg.EventID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return engine.ErrConfigNotFound
	}
	return nil
}

// MarkSettled freezes the final settlement. Conditional on settled still
// being false: the losing side of a race changes zero rows.
func (s queries) MarkSettled(ctx context.Context, eventID engine.EventID, final engine.SettlementSnapshot) error {
	res, err := s.q.ExecContext(ctx, `
		UPDATE payment_model_configs SET
			settled = 1,
			settled_at = ?,
			sold_tickets = ?,
			settlement_cents = ?,
			settled_revenue_cents = ?,
			settled_fees_cents = ?,
			settlement_notes = ?,
			updated_at = ?
		WHERE event_id = ? AND settled = 0`,
		formatTime(final.ComputedAt),
		final.SoldTickets,
		int64(final.SettlementCents),
		int64(final.TotalRevenueCents),
		int64(final.PlatformFeeCents),
		final.Notes,
		formatTime(time.Now().UTC()),
		eventID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// Either no config exists or it was settled first. Disambiguate.
		if _, gerr := s.GetConfig(ctx, eventID); gerr != nil {
			return gerr
		}
		return engine.ErrAlreadySettled
	}
	return nil
}

func (s queries) ConfigsByModel(ctx context.Context, model engine.PaymentModel) ([]engine.PaymentModelConfig, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT `+configColumns+` FROM payment_model_configs WHERE model = ? ORDER BY event_id`, model)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []engine.PaymentModelConfig
	for rows.Next() {
		cfg, err := scanConfig(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *cfg)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConfig(row rowScanner) (*engine.PaymentModelConfig, error) {
	var (
		cfg            engine.PaymentModelConfig
		platformPct    string
		platformFixed  int64
		processingPct  string
		dueAt          sql.NullString
		settledAt      sql.NullString
		settlement     int64
		settledRevenue int64
		settledFees    int64
		createdAt      string
		updatedAt      string
	)

	err := row.Scan(
		&cfg.ID, &cfg.EventID, &cfg.Model, &cfg.IsActive,
		&platformPct, &platformFixed, &processingPct,
		&cfg.CharityDiscount, &cfg.LowPriceApplied,
		&cfg.FloatedTickets, &cfg.SoldTickets, &dueAt,
		&cfg.Settled, &settledAt, &settlement, &settledRevenue, &settledFees, &cfg.SettlementNotes,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	cfg.Fees = engine.FeeParams{
		PlatformFeePercent:    mustDecimal(platformPct),
		PlatformFeeFixedCents: engine.Cents(platformFixed),
		ProcessingFeePercent:  mustDecimal(processingPct),
	}
	cfg.SettlementCents = engine.Cents(settlement)
	cfg.SettledRevenue = engine.Cents(settledRevenue)
	cfg.SettledFees = engine.Cents(settledFees)
	if dueAt.Valid && dueAt.String != "" {
		cfg.SettlementDueAt = parseTime(dueAt.String)
	}
	if settledAt.Valid && settledAt.String != "" {
		t := parseTime(settledAt.String)
		cfg.SettledAt = &t
	}
	cfg.CreatedAt = parseTime(createdAt)
	cfg.UpdatedAt = parseTime(updatedAt)
	return &cfg, nil
}

// -----------------------------------------------------------------------------
// Tickets and tiers
// -----------------------------------------------------------------------------

const ticketColumns = `id, event_id, tier_id, seller_id, status, sold_at`

func (s queries) TicketsByEvent(ctx context.Context, eventID engine.EventID) ([]engine.Ticket, error) {
	return s.queryTickets(ctx,
		`SELECT `+ticketColumns+` FROM tickets WHERE event_id = ? ORDER BY sold_at ASC, id ASC`, eventID)
}

func (s queries) TicketsBySeller(ctx context.Context, sellerID engine.SellerID) ([]engine.Ticket, error) {
	return s.queryTickets(ctx,
		`SELECT `+ticketColumns+` FROM tickets WHERE seller_id = ? ORDER BY sold_at ASC, id ASC`, sellerID)
}

func (s queries) GetTicket(ctx context.Context, id engine.TicketID) (*engine.Ticket, error) {
	var t engine.Ticket
	var soldAt string
	err := s.q.QueryRowContext(ctx,
		`SELECT `+ticketColumns+` FROM tickets WHERE id = ?`, id,
	).Scan(&t.ID, &t.EventID, &t.TierID, &t.SellerID, &t.Status, &soldAt)
	if err == sql.ErrNoRows {
		return nil, engine.ErrTicketNotFound
	}
	if err != nil {
		return nil, err
	}
	t.SoldAt = parseTime(soldAt)
	return &t, nil
}

func (s queries) SaveTicket(ctx context.Context, t engine.Ticket) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO tickets (id, event_id, tier_id, seller_id, status, sold_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET status = excluded.status`,
		t.ID, t.EventID, t.TierID, t.SellerID, t.Status, formatTime(t.SoldAt),
	)
	return err
}

func (s queries) queryTickets(ctx context.Context, query string, args ...any) ([]engine.Ticket, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []engine.Ticket
	for rows.Next() {
		var t engine.Ticket
		var soldAt string
		if err := rows.Scan(&t.ID, &t.EventID, &t.TierID, &t.SellerID, &t.Status, &soldAt); err != nil {
			return nil, err
		}
		t.SoldAt = parseTime(soldAt)
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s queries) GetTier(ctx context.Context, id engine.TierID) (*engine.TicketTier, error) {
	var tier engine.TicketTier
	var price int64
	err := s.q.QueryRowContext(ctx,
		`SELECT id, event_id, name, price_cents FROM ticket_tiers WHERE id = ?`, id,
	).Scan(&tier.ID, &tier.EventID, &tier.Name, &price)
	if err == sql.ErrNoRows {
		return nil, engine.ErrTierMissing
	}
	if err != nil {
		return nil, err
	}
	tier.PriceCents = engine.Cents(price)
	return &tier, nil
}

func (s queries) TiersByEvent(ctx context.Context, eventID engine.EventID) ([]engine.TicketTier, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT id, event_id, name, price_cents FROM ticket_tiers WHERE event_id = ? ORDER BY id`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []engine.TicketTier
	for rows.Next() {
		var tier engine.TicketTier
		var price int64
		if err := rows.Scan(&tier.ID, &tier.EventID, &tier.Name, &price); err != nil {
			return nil, err
		}
		tier.PriceCents = engine.Cents(price)
		out = append(out, tier)
	}
	return out, rows.Err()
}

func (s queries) SaveTier(ctx context.Context, tier engine.TicketTier) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO ticket_tiers (id, event_id, name, price_cents)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, price_cents = excluded.price_cents`,
		tier.ID, tier.EventID, tier.Name, int64(tier.PriceCents),
	)
	return err
}

// -----------------------------------------------------------------------------
// Seller tree
// -----------------------------------------------------------------------------

const sellerColumns = `id, parent_id, event_id, name, allocated_tickets,
	commission_kind, commission_fixed_cents, commission_percent,
	cap_scan, cap_sell, cap_delegate, created_at`

func (s queries) GetSeller(ctx context.Context, id engine.SellerID) (*engine.SellerNode, error) {
	row := s.q.QueryRowContext(ctx,
		`SELECT `+sellerColumns+` FROM seller_nodes WHERE id = ?`, id)
	node, err := scanSeller(row)
	if err == sql.ErrNoRows {
		return nil, engine.ErrSellerNotFound
	}
	if err != nil {
		return nil, err
	}
	return node, nil
}

func (s queries) CreateSeller(ctx context.Context, node engine.SellerNode) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO seller_nodes
		(id, parent_id, event_id, name, allocated_tickets,
		 commission_kind, commission_fixed_cents, commission_percent,
		 cap_scan, cap_sell, cap_delegate, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		node.ID, node.ParentID, node.EventID, node.Name, node.AllocatedTickets,
		node.Commission.Kind, int64(node.Commission.FixedCents), node.Commission.Percent.String(),
		node.Capabilities.Has(engine.CapScan), node.Capabilities.Has(engine.CapSell), node.Capabilities.Has(engine.CapDelegate),
		formatTime(node.CreatedAt),
	)
	return err
}

func (s queries) ChildrenOf(ctx context.Context, parentID engine.SellerID) ([]engine.SellerNode, error) {
	return s.querySellers(ctx,
		`SELECT `+sellerColumns+` FROM seller_nodes WHERE parent_id = ? ORDER BY id`, parentID)
}

func (s queries) SellersByEvent(ctx context.Context, eventID engine.EventID) ([]engine.SellerNode, error) {
	return s.querySellers(ctx,
		`SELECT `+sellerColumns+` FROM seller_nodes WHERE event_id = ? ORDER BY id`, eventID)
}

func (s queries) querySellers(ctx context.Context, query string, args ...any) ([]engine.SellerNode, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []engine.SellerNode
	for rows.Next() {
		node, err := scanSeller(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *node)
	}
	return out, rows.Err()
}

func scanSeller(row rowScanner) (*engine.SellerNode, error) {
	var (
		node       engine.SellerNode
		fixedCents int64
		pct        string
		canScan    bool
		canSell    bool
		canDeleg   bool
		createdAt  string
	)

	err := row.Scan(
		&node.ID, &node.ParentID, &node.EventID, &node.Name, &node.AllocatedTickets,
		&node.Commission.Kind, &fixedCents, &pct,
		&canScan, &canSell, &canDeleg, &createdAt,
	)
	if err != nil {
		return nil, err
	}

	node.Commission.FixedCents = engine.Cents(fixedCents)
	node.Commission.Percent = mustDecimal(pct)
	node.Capabilities = engine.Capabilities{}
	if canScan {
		node.Capabilities[engine.CapScan] = true
	}
	if canSell {
		node.Capabilities[engine.CapSell] = true
	}
	if canDeleg {
		node.Capabilities[engine.CapDelegate] = true
	}
	node.CreatedAt = parseTime(createdAt)
	return &node, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return formatTime(t)
}

func mustDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
