package services_test

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"server/src/clients/quotes"
	"server/src/models"
	"server/src/utils"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

// fakeLedger is an in-memory stand-in for the postgres ledger store. Its
// transactions emulate the portfolio row lock: GetByIDForUpdate blocks until
// any other transaction holding the same portfolio commits or rolls back,
// which is exactly the serialization the SELECT ... FOR UPDATE discipline
// gives the real repositories.
type fakeLedger struct {
	mu         sync.Mutex
	portfolios map[int64]*models.Portfolio
	holdings   map[int64]*models.Holding
	trades     []*models.Trade
	nextID     int64
	rowLocks   map[int64]*sync.Mutex
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		portfolios: make(map[int64]*models.Portfolio),
		holdings:   make(map[int64]*models.Holding),
		rowLocks:   make(map[int64]*sync.Mutex),
	}
}

func (l *fakeLedger) Begin(ctx context.Context) (pgx.Tx, error) {
	return &fakeTx{ledger: l}, nil
}

// BeginTx captures a point-in-time copy of the ledger, mimicking a
// repeatable-read snapshot: reads through the returned transaction never see
// writes committed after it started.
func (l *fakeLedger) BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	snap := &ledgerSnapshot{
		portfolios: make(map[int64]models.Portfolio, len(l.portfolios)),
		holdings:   make(map[int64]models.Holding, len(l.holdings)),
	}
	for id, p := range l.portfolios {
		snap.portfolios[id] = *p
	}
	for id, h := range l.holdings {
		snap.holdings[id] = *h
	}
	return &fakeTx{ledger: l, snapshot: snap}, nil
}

type ledgerSnapshot struct {
	portfolios map[int64]models.Portfolio
	holdings   map[int64]models.Holding
}

func snapshotOf(tx pgx.Tx) *ledgerSnapshot {
	if ft, ok := tx.(*fakeTx); ok && ft != nil {
		return ft.snapshot
	}
	return nil
}

func (l *fakeLedger) id() int64 {
	l.nextID++
	return l.nextID
}

func (l *fakeLedger) lockRow(tx pgx.Tx, portfolioID int64) {
	l.mu.Lock()
	lock, ok := l.rowLocks[portfolioID]
	if !ok {
		lock = &sync.Mutex{}
		l.rowLocks[portfolioID] = lock
	}
	l.mu.Unlock()

	lock.Lock()
	if ft, ok := tx.(*fakeTx); ok && ft != nil {
		ft.locks = append(ft.locks, lock)
	} else {
		// Nothing will release the lock without a transaction to end.
		lock.Unlock()
	}
}

// fakeTx satisfies pgx.Tx through embedding; only Commit and Rollback are
// implemented, which is all the services call on it.
type fakeTx struct {
	pgx.Tx
	ledger   *fakeLedger
	snapshot *ledgerSnapshot
	locks    []*sync.Mutex
	done     bool
}

func (t *fakeTx) Commit(ctx context.Context) error {
	t.release()
	return nil
}

func (t *fakeTx) Rollback(ctx context.Context) error {
	t.release()
	return nil
}

func (t *fakeTx) release() {
	if t.done {
		return
	}
	t.done = true
	for i := len(t.locks) - 1; i >= 0; i-- {
		t.locks[i].Unlock()
	}
	t.locks = nil
}

type fakePortfolioRepo struct {
	ledger *fakeLedger
}

func (r *fakePortfolioRepo) Create(ctx context.Context, p *models.Portfolio, tx pgx.Tx) error {
	r.ledger.mu.Lock()
	defer r.ledger.mu.Unlock()

	// Mirrors the partial unique index on lazily-created default portfolios.
	if p.Name == utils.DefaultPortfolioName {
		for _, existing := range r.ledger.portfolios {
			if existing.Name == p.Name && sameUser(existing.UserID, p.UserID) {
				return &pgconn.PgError{Code: "23505", ConstraintName: "uq_paper_portfolios_default_name"}
			}
		}
	}

	now := time.Now().UTC()
	p.ID = r.ledger.id()
	p.CreatedAt = now
	p.UpdatedAt = now
	stored := *p
	r.ledger.portfolios[p.ID] = &stored
	return nil
}

func (r *fakePortfolioRepo) GetByID(ctx context.Context, id int64, tx pgx.Tx) (*models.Portfolio, error) {
	if snap := snapshotOf(tx); snap != nil {
		p, ok := snap.portfolios[id]
		if !ok {
			return nil, nil
		}
		return &p, nil
	}

	r.ledger.mu.Lock()
	defer r.ledger.mu.Unlock()

	p, ok := r.ledger.portfolios[id]
	if !ok {
		return nil, nil
	}
	copied := *p
	return &copied, nil
}

func (r *fakePortfolioRepo) GetByIDForUpdate(ctx context.Context, id int64, tx pgx.Tx) (*models.Portfolio, error) {
	r.ledger.mu.Lock()
	_, ok := r.ledger.portfolios[id]
	r.ledger.mu.Unlock()
	if !ok {
		return nil, nil
	}

	r.ledger.lockRow(tx, id)
	return r.GetByID(ctx, id, tx)
}

func (r *fakePortfolioRepo) GetByUserID(ctx context.Context, userID *int64) ([]models.Portfolio, error) {
	r.ledger.mu.Lock()
	defer r.ledger.mu.Unlock()

	var out []models.Portfolio
	for _, p := range r.ledger.portfolios {
		if sameUser(p.UserID, userID) {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func sameUser(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func (r *fakePortfolioRepo) GetAll(ctx context.Context) ([]models.Portfolio, error) {
	r.ledger.mu.Lock()
	defer r.ledger.mu.Unlock()

	var out []models.Portfolio
	for _, p := range r.ledger.portfolios {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakePortfolioRepo) UpdateCurrentBalance(ctx context.Context, id int64, balance decimal.Decimal, tx pgx.Tx) error {
	r.ledger.mu.Lock()
	defer r.ledger.mu.Unlock()

	p, ok := r.ledger.portfolios[id]
	if !ok {
		return pgx.ErrNoRows
	}
	p.CurrentBalance = decimal.NewNullDecimal(balance)
	p.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *fakePortfolioRepo) UpdateInitialBalance(ctx context.Context, id int64, balance decimal.Decimal, tx pgx.Tx) error {
	r.ledger.mu.Lock()
	defer r.ledger.mu.Unlock()

	p, ok := r.ledger.portfolios[id]
	if !ok {
		return pgx.ErrNoRows
	}
	p.InitialBalance = decimal.NewNullDecimal(balance)
	p.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *fakePortfolioRepo) Delete(ctx context.Context, id int64) error {
	r.ledger.mu.Lock()
	defer r.ledger.mu.Unlock()

	delete(r.ledger.portfolios, id)
	for hid, h := range r.ledger.holdings {
		if h.PortfolioID == id {
			delete(r.ledger.holdings, hid)
		}
	}
	kept := r.ledger.trades[:0]
	for _, t := range r.ledger.trades {
		if t.PortfolioID != id {
			kept = append(kept, t)
		}
	}
	r.ledger.trades = kept
	return nil
}

type fakeHoldingRepo struct {
	ledger *fakeLedger
}

func (r *fakeHoldingRepo) GetActiveBySymbol(ctx context.Context, portfolioID int64, symbol string, tx pgx.Tx) (*models.Holding, error) {
	r.ledger.mu.Lock()
	defer r.ledger.mu.Unlock()

	for _, h := range r.ledger.holdings {
		if h.PortfolioID == portfolioID && h.Symbol == symbol && h.Active {
			copied := *h
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakeHoldingRepo) GetActiveByPortfolioID(ctx context.Context, portfolioID int64, tx pgx.Tx) ([]models.Holding, error) {
	if snap := snapshotOf(tx); snap != nil {
		var out []models.Holding
		for _, h := range snap.holdings {
			if h.PortfolioID == portfolioID && h.Active {
				out = append(out, h)
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
		return out, nil
	}

	r.ledger.mu.Lock()
	defer r.ledger.mu.Unlock()

	var out []models.Holding
	for _, h := range r.ledger.holdings {
		if h.PortfolioID == portfolioID && h.Active {
			out = append(out, *h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out, nil
}

func (r *fakeHoldingRepo) Create(ctx context.Context, h *models.Holding, tx pgx.Tx) error {
	r.ledger.mu.Lock()
	defer r.ledger.mu.Unlock()

	now := time.Now().UTC()
	h.ID = r.ledger.id()
	h.CreatedAt = now
	h.UpdatedAt = now
	stored := *h
	r.ledger.holdings[h.ID] = &stored
	return nil
}

func (r *fakeHoldingRepo) Update(ctx context.Context, h *models.Holding, tx pgx.Tx) error {
	r.ledger.mu.Lock()
	defer r.ledger.mu.Unlock()

	if _, ok := r.ledger.holdings[h.ID]; !ok {
		return pgx.ErrNoRows
	}
	h.UpdatedAt = time.Now().UTC()
	stored := *h
	r.ledger.holdings[h.ID] = &stored
	return nil
}

type fakeTradeRepo struct {
	ledger *fakeLedger
}

func (r *fakeTradeRepo) Create(ctx context.Context, t *models.Trade, tx pgx.Tx) error {
	r.ledger.mu.Lock()
	defer r.ledger.mu.Unlock()

	t.ID = r.ledger.id()
	t.CreatedAt = time.Now().UTC()
	stored := *t
	r.ledger.trades = append(r.ledger.trades, &stored)
	return nil
}

func (r *fakeTradeRepo) GetByPortfolioID(ctx context.Context, portfolioID int64) ([]models.Trade, error) {
	trades, err := r.GetForReplay(ctx, portfolioID, nil)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(trades)-1; i < j; i, j = i+1, j-1 {
		trades[i], trades[j] = trades[j], trades[i]
	}
	return trades, nil
}

func (r *fakeTradeRepo) GetForReplay(ctx context.Context, portfolioID int64, tx pgx.Tx) ([]models.Trade, error) {
	r.ledger.mu.Lock()
	defer r.ledger.mu.Unlock()

	var out []models.Trade
	for _, t := range r.ledger.trades {
		if t.PortfolioID == portfolioID {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// quoteServiceMock serves fixed prices and reports every other symbol as
// unavailable, the way a flaky market-data provider would.
type quoteServiceMock struct {
	prices map[string]decimal.Decimal
}

func (m *quoteServiceMock) GetPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	price, ok := m.prices[symbol]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: no price for %s", quotes.ErrUnavailable, symbol)
	}
	return price, nil
}
