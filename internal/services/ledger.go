package services

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"portfolio-simulator/internal/cache"
	"portfolio-simulator/internal/models"
	"portfolio-simulator/internal/storage"
)

// Ledger is the authoritative record of cash, holdings and transaction
// history. Every successful mutation updates cash, holdings and the log
// together under one lock and writes the full snapshot back to storage.
type Ledger struct {
	mu     sync.Mutex
	store  storage.Store
	prices cache.PriceCache

	account      models.Account
	holdings     map[string]models.Holding
	transactions []models.Transaction
}

// NewLedger rehydrates the ledger from storage, or initializes a fresh
// account with the given cash and goal when no prior state exists.
func NewLedger(ctx context.Context, store storage.Store, prices cache.PriceCache, initialCash, targetGoal float64) *Ledger {
	l := &Ledger{
		store:    store,
		prices:   prices,
		holdings: make(map[string]models.Holding),
	}
	l.load(ctx, initialCash, targetGoal)
	return l
}

func (l *Ledger) load(ctx context.Context, initialCash, targetGoal float64) {
	l.account = models.Account{
		Cash:              decimal.NewFromFloat(initialCash),
		InitialInvestment: decimal.NewFromFloat(initialCash),
		TargetGoal:        decimal.NewFromFloat(targetGoal),
		StartDate:         time.Now(),
	}

	if raw, err := l.store.Get(ctx, storage.KeyAccount); err == nil {
		var acc models.Account
		if err := json.Unmarshal(raw, &acc); err != nil {
			slog.Warn("discarding unreadable account snapshot", slog.String("err", err.Error()))
		} else {
			l.account = acc
		}
	} else if !errors.Is(err, storage.ErrNotFound) {
		slog.Warn("account read failed, starting fresh", slog.String("err", err.Error()))
	}

	if raw, err := l.store.Get(ctx, storage.KeyPortfolio); err == nil {
		var holdings []models.Holding
		if err := json.Unmarshal(raw, &holdings); err != nil {
			slog.Warn("discarding unreadable portfolio snapshot", slog.String("err", err.Error()))
		} else {
			for _, h := range holdings {
				l.holdings[h.Symbol] = h
			}
		}
	}

	if raw, err := l.store.Get(ctx, storage.KeyTransactions); err == nil {
		if err := json.Unmarshal(raw, &l.transactions); err != nil {
			slog.Warn("discarding unreadable transaction log", slog.String("err", err.Error()))
			l.transactions = nil
		}
	}
}

// persist writes the full ledger state. Storage failures are logged and
// swallowed: the in-memory ledger stays authoritative for the session.
func (l *Ledger) persist(ctx context.Context) {
	l.setJSON(ctx, storage.KeyAccount, l.account)
	l.setJSON(ctx, storage.KeyPortfolio, l.holdingsLocked())
	l.setJSON(ctx, storage.KeyTransactions, l.transactions)
}

func (l *Ledger) setJSON(ctx context.Context, key string, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		slog.Error("marshal ledger state", slog.String("key", key), slog.String("err", err.Error()))
		return
	}
	if err := l.store.Set(ctx, key, raw); err != nil {
		slog.Warn("ledger persist skipped", slog.String("key", key), slog.String("err", err.Error()))
	}
}

// ExecuteBuy debits cash by shares*price, upserts the holding with a
// weighted-average cost, and appends a BUY transaction. Nothing is
// mutated when the notional exceeds available cash.
func (l *Ledger) ExecuteBuy(ctx context.Context, symbol string, shares int64, price float64) (models.Transaction, error) {
	if shares < 1 {
		return models.Transaction{}, ErrInvalidShareCount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	notional := decimal.NewFromFloat(price).Mul(decimal.NewFromInt(shares))
	if notional.GreaterThan(l.account.Cash) {
		return models.Transaction{}, ErrInsufficientFunds
	}

	l.account.Cash = l.account.Cash.Sub(notional)

	h, ok := l.holdings[symbol]
	if !ok {
		h = models.Holding{
			Symbol:    symbol,
			Shares:    shares,
			AvgPrice:  decimal.NewFromFloat(price),
			TotalCost: notional,
		}
	} else {
		newShares := h.Shares + shares
		newCost := h.AvgPrice.Mul(decimal.NewFromInt(h.Shares)).Add(notional)
		h.Shares = newShares
		h.AvgPrice = newCost.Div(decimal.NewFromInt(newShares))
		h.TotalCost = newCost
	}
	l.holdings[symbol] = h

	tx := l.appendTransaction(symbol, models.SideBuy, shares, price, notional)
	l.persist(ctx)
	return tx, nil
}

// ExecuteSell credits cash by shares*price and decrements the holding,
// removing it entirely when it reaches zero. The average cost of the
// remaining shares is unchanged. Nothing is mutated when the holding is
// missing or too small.
func (l *Ledger) ExecuteSell(ctx context.Context, symbol string, shares int64, price float64) (models.Transaction, error) {
	if shares < 1 {
		return models.Transaction{}, ErrInvalidShareCount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	h, ok := l.holdings[symbol]
	if !ok || h.Shares < shares {
		return models.Transaction{}, ErrInsufficientShares
	}

	notional := decimal.NewFromFloat(price).Mul(decimal.NewFromInt(shares))
	l.account.Cash = l.account.Cash.Add(notional)

	h.Shares -= shares
	if h.Shares == 0 {
		delete(l.holdings, symbol)
	} else {
		h.TotalCost = h.AvgPrice.Mul(decimal.NewFromInt(h.Shares))
		l.holdings[symbol] = h
	}

	tx := l.appendTransaction(symbol, models.SideSell, shares, price, notional)
	l.persist(ctx)
	return tx, nil
}

func (l *Ledger) appendTransaction(symbol string, side models.TradeSide, shares int64, price float64, total decimal.Decimal) models.Transaction {
	tx := models.Transaction{
		ID:     strconv.FormatInt(time.Now().UnixNano(), 10),
		Date:   time.Now(),
		Symbol: symbol,
		Side:   side,
		Shares: shares,
		Price:  decimal.NewFromFloat(price),
		Total:  total,
	}
	l.transactions = append(l.transactions, tx)
	return tx
}

// Valuate returns cash plus the market value of all holdings at the
// cached prices. Symbols with no cached price contribute zero.
func (l *Ledger) Valuate(ctx context.Context) decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.valuateLocked(ctx)
}

func (l *Ledger) valuateLocked(ctx context.Context) decimal.Decimal {
	total := l.account.Cash
	for _, h := range l.holdings {
		q, err := l.prices.Get(ctx, h.Symbol)
		if err != nil {
			continue
		}
		total = total.Add(decimal.NewFromFloat(q.Price).Mul(decimal.NewFromInt(h.Shares)))
	}
	return total
}

// ProfitLossPercent returns the portfolio's gain relative to the initial
// investment, in percent.
func (l *Ledger) ProfitLossPercent(ctx context.Context) decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()

	initial := l.account.InitialInvestment
	if initial.IsZero() {
		return decimal.Zero
	}
	return l.valuateLocked(ctx).Sub(initial).Div(initial).Mul(decimal.NewFromInt(100))
}

func (l *Ledger) Account() models.Account {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.account
}

// Holdings returns the current positions, sorted by symbol.
func (l *Ledger) Holdings() []models.Holding {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.holdingsLocked()
}

func (l *Ledger) holdingsLocked() []models.Holding {
	out := make([]models.Holding, 0, len(l.holdings))
	for _, h := range l.holdings {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// Transactions returns the append-only trade log, oldest first.
func (l *Ledger) Transactions() []models.Transaction {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]models.Transaction, len(l.transactions))
	copy(out, l.transactions)
	return out
}
