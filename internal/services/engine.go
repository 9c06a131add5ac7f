package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"portfolio-simulator/config"
	"portfolio-simulator/internal/cache"
	"portfolio-simulator/internal/models"
	"portfolio-simulator/internal/scheduler"
)

// Engine orchestrates the dashboard: the selected instrument, the
// live/simulated mode, the catalog-wide quote refresh, the chart tick
// loop and the price stream subscription. It owns no business
// invariants itself; those live in the ledger and the chart feed.
type Engine struct {
	mu     sync.Mutex
	market config.Market

	feed   *ChartFeed
	live   DataSource
	sim    DataSource
	prices cache.PriceCache
	stream *StreamManager
	hub    *Hub
	sched  *scheduler.Scheduler

	baseCtx     context.Context
	selected    models.Instrument
	liveMode    bool
	running     bool
	tickCancel  context.CancelFunc
	unsubscribe func()
	quoteJob    uuid.UUID
	hasQuoteJob bool
}

func NewEngine(
	market config.Market,
	feed *ChartFeed,
	live DataSource,
	sim DataSource,
	prices cache.PriceCache,
	stream *StreamManager,
	hub *Hub,
	sched *scheduler.Scheduler,
) *Engine {
	return &Engine{
		market: market,
		feed:   feed,
		live:   live,
		sim:    sim,
		prices: prices,
		stream: stream,
		hub:    hub,
		sched:  sched,
	}
}

// Start selects the first catalog instrument in simulated mode and
// begins both periodic drivers. ctx bounds the engine's lifetime.
func (e *Engine) Start(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.baseCtx = ctx
	e.running = true
	e.selected = models.Catalog()[0]
	e.restartFeedLocked()
	e.scheduleQuoteRefreshLocked()
}

// Stop cancels both drivers and closes the price stream.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.running = false
	e.cancelFeedLocked()
	if e.stream != nil {
		e.stream.Close()
	}
	if e.hasQuoteJob && e.sched != nil {
		e.sched.RemoveJob(e.quoteJob)
		e.hasQuoteJob = false
	}
}

// SelectInstrument switches the chart feed to another catalog symbol,
// cancelling the previous feed's timer and subscription first.
func (e *Engine) SelectInstrument(symbol string) error {
	inst, ok := models.FindInstrument(symbol)
	if !ok {
		return ErrUnknownSymbol
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.selected = inst
	if e.running {
		e.restartFeedLocked()
	}
	return nil
}

// SetMode switches between live and simulated data. Leaving live mode
// closes the price stream; the quote refresh is rescheduled at the new
// cadence.
func (e *Engine) SetMode(live bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if live == e.liveMode {
		return
	}
	e.liveMode = live

	if !live && e.stream != nil {
		e.stream.Close()
	}
	if e.running {
		e.restartFeedLocked()
		e.scheduleQuoteRefreshLocked()
	}
}

func (e *Engine) Selected() models.Instrument {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.selected
}

func (e *Engine) LiveMode() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.liveMode
}

func (e *Engine) Feed() *ChartFeed {
	return e.feed
}

// QuoteFor returns the cached quote for symbol, asking the active data
// source (with simulated fallback) on a cache miss.
func (e *Engine) QuoteFor(ctx context.Context, symbol string) (models.Quote, error) {
	if q, err := e.prices.Get(ctx, symbol); err == nil {
		return q, nil
	}

	q, err := e.activeSource().Quote(ctx, symbol)
	if err != nil {
		q, err = e.sim.Quote(ctx, symbol)
		if err != nil {
			return models.Quote{}, err
		}
	}

	if err := e.prices.Set(ctx, q); err != nil {
		slog.Warn("price cache write failed", slog.String("symbol", symbol), slog.String("err", err.Error()))
	}
	return q, nil
}

func (e *Engine) activeSource() DataSource {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.liveMode {
		return e.live
	}
	return e.sim
}

// restartFeedLocked tears down the previous tick loop and stream
// subscription, then re-initializes the feed for the current selection.
// Old timers must be gone before the new window exists so no stale-key
// sample lands in it.
func (e *Engine) restartFeedLocked() {
	e.cancelFeedLocked()

	mode := ModeSimulated
	if e.liveMode {
		mode = ModeLive
	}
	e.feed.Initialize(e.baseCtx, e.selected, mode)

	tickCtx, cancel := context.WithCancel(e.baseCtx)
	e.tickCancel = cancel
	go e.tickLoop(tickCtx, e.selected.Symbol, e.market.ChartTickInterval(e.liveMode))

	if e.liveMode && e.stream != nil {
		symbol := e.selected.Symbol
		unsubscribe, err := e.stream.Subscribe(symbol, func(q models.Quote) {
			if err := e.prices.Set(e.baseCtx, q); err != nil {
				slog.Warn("price cache write failed", slog.String("symbol", q.Symbol), slog.String("err", err.Error()))
			}
			sample := e.feed.AppendTick(q)
			if e.hub != nil {
				e.hub.BroadcastSample(symbol, sample)
			}
		})
		if err != nil {
			// Stream faults never escalate: the periodic tick still runs.
			slog.Warn("price stream unavailable", slog.String("symbol", symbol), slog.String("err", err.Error()))
		} else {
			e.unsubscribe = unsubscribe
		}
	}
}

func (e *Engine) cancelFeedLocked() {
	if e.tickCancel != nil {
		e.tickCancel()
		e.tickCancel = nil
	}
	if e.unsubscribe != nil {
		e.unsubscribe()
		e.unsubscribe = nil
	}
}

func (e *Engine) tickLoop(ctx context.Context, symbol string, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sample := e.feed.Tick(ctx)
			if e.hub != nil {
				e.hub.BroadcastSample(symbol, sample)
			}
		}
	}
}

func (e *Engine) scheduleQuoteRefreshLocked() {
	if e.sched == nil {
		return
	}
	if e.hasQuoteJob {
		e.sched.RemoveJob(e.quoteJob)
	}
	e.quoteJob = e.sched.NewIntervalJob("quote refresh", e.refreshQuotes, e.market.QuoteRefreshInterval(e.liveMode), true)
	e.hasQuoteJob = true
}

// refreshQuotes updates the price cache for the whole catalog and
// broadcasts each quote. A live fetch failure degrades that symbol to a
// simulated quote; it never fails the sweep.
func (e *Engine) refreshQuotes(ctx context.Context) error {
	src := e.activeSource()

	for _, inst := range models.Catalog() {
		q, err := src.Quote(ctx, inst.Symbol)
		if err != nil {
			q, err = e.sim.Quote(ctx, inst.Symbol)
			if err != nil {
				continue
			}
		}
		if err := e.prices.Set(ctx, q); err != nil {
			slog.Warn("price cache write failed", slog.String("symbol", inst.Symbol), slog.String("err", err.Error()))
			continue
		}
		if e.hub != nil {
			e.hub.BroadcastQuote(q)
		}
	}
	return nil
}
