package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"portfolio-simulator/internal/cache"
	"portfolio-simulator/internal/models"
)

type FeedMode string

const (
	ModeLive      FeedMode = "live"
	ModeSimulated FeedMode = "simulated"
)

// ChartFeed maintains the fixed-length rolling sample window for the
// selected instrument. Switching instrument or mode discards the window
// and re-initializes it; a live initialization that fails falls back to
// the simulator permanently for that instrument/mode for this session.
type ChartFeed struct {
	mu     sync.Mutex
	live   DataSource
	sim    *Simulator
	prices cache.PriceCache
	length int

	instrument models.Instrument
	mode       FeedMode // requested mode
	active     FeedMode // actual source after any fallback
	window     []models.Sample
	fellBack   map[string]bool // instrument/mode pairs that failed live init
}

func NewChartFeed(live DataSource, sim *Simulator, prices cache.PriceCache, length int) *ChartFeed {
	return &ChartFeed{
		live:     live,
		sim:      sim,
		prices:   prices,
		length:   length,
		fellBack: make(map[string]bool),
	}
}

// Initialize discards the previous window and builds a fresh one for the
// instrument/mode pair.
func (f *ChartFeed) Initialize(ctx context.Context, inst models.Instrument, mode FeedMode) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.instrument = inst
	f.mode = mode
	f.window = nil

	key := feedKey(inst.Symbol, mode)
	if mode == ModeLive && !f.fellBack[key] {
		window, err := f.live.Window(ctx, inst)
		if err == nil {
			f.window = window
			f.active = ModeLive
			return
		}
		slog.Warn("candle window unavailable, falling back to simulation",
			slog.String("symbol", inst.Symbol), slog.String("err", err.Error()))
		f.fellBack[key] = true
	}

	f.window = f.sim.GenerateWindow(inst, f.length)
	f.active = ModeSimulated
}

// Tick appends exactly one new sample and evicts the oldest. In live
// mode it fetches a quote (simulating the point on failure); in
// simulated mode it random-walks off the cached price, or the last
// sample when no quote is cached yet.
func (f *ChartFeed) Tick(ctx context.Context) models.Sample {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.mode == ModeLive {
		if q, err := f.live.Quote(ctx, f.instrument.Symbol); err == nil {
			if err := f.prices.Set(ctx, q); err != nil {
				slog.Warn("price cache write failed", slog.String("symbol", q.Symbol), slog.String("err", err.Error()))
			}
			return f.pushLocked(models.NewSample(time.Now(), q.Price, q.Volume))
		}
	}
	return f.pushLocked(f.simulatedPointLocked(ctx))
}

func (f *ChartFeed) simulatedPointLocked(ctx context.Context) models.Sample {
	base := f.instrument.BasePrice
	if len(f.window) > 0 {
		base = f.window[len(f.window)-1].Price
	}
	if q, err := f.prices.Get(ctx, f.instrument.Symbol); err == nil {
		base = q.Price
	}

	return models.NewSample(
		time.Now(),
		f.sim.NextPrice(base, TickVolatility),
		f.sim.NextVolume(f.instrument.BaseVolume),
	)
}

// AppendTick folds a streamed trade into the window, subject to the same
// fixed-length eviction as the periodic tick.
func (f *ChartFeed) AppendTick(q models.Quote) models.Sample {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pushLocked(models.NewSample(q.Timestamp, q.Price, q.Volume))
}

func (f *ChartFeed) pushLocked(s models.Sample) models.Sample {
	if len(f.window) >= f.length {
		f.window = f.window[len(f.window)-f.length+1:]
	}
	f.window = append(f.window, s)
	return s
}

// Window returns a copy of the current sample window, oldest first.
func (f *ChartFeed) Window() []models.Sample {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]models.Sample, len(f.window))
	copy(out, f.window)
	return out
}

func (f *ChartFeed) Instrument() models.Instrument {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.instrument
}

// Mode is the requested data mode; Active is the mode actually feeding
// the window, which differs after a live fallback.
func (f *ChartFeed) Mode() FeedMode {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.mode
}

func (f *ChartFeed) Active() FeedMode {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.active
}

func feedKey(symbol string, mode FeedMode) string {
	return symbol + "/" + string(mode)
}
