package services

import (
	"context"
	"time"

	"portfolio-simulator/internal/cache"
	"portfolio-simulator/internal/models"
)

// DataSource is the capability shared by the two price sources. The
// chart feed and the quote refresh loop depend on this interface only;
// the live/simulated decision is made once, where the source is chosen.
type DataSource interface {
	Quote(ctx context.Context, symbol string) (models.Quote, error)
	Window(ctx context.Context, inst models.Instrument) ([]models.Sample, error)
}

type liveSource struct {
	client *MarketDataClient
}

// NewLiveSource wraps the market data client as a DataSource.
func NewLiveSource(client *MarketDataClient) DataSource {
	return &liveSource{client: client}
}

func (s *liveSource) Quote(ctx context.Context, symbol string) (models.Quote, error) {
	return s.client.FetchQuote(ctx, symbol)
}

func (s *liveSource) Window(ctx context.Context, inst models.Instrument) ([]models.Sample, error) {
	return s.client.FetchRecentCandles(ctx, inst.Symbol)
}

type simSource struct {
	sim    *Simulator
	prices cache.PriceCache
	window int
}

// NewSimSource wraps the price simulator as a DataSource. Quotes random-
// walk off the last cached price, falling back to the instrument's
// reference base price. It never fails.
func NewSimSource(sim *Simulator, prices cache.PriceCache, window int) DataSource {
	return &simSource{sim: sim, prices: prices, window: window}
}

func (s *simSource) Quote(ctx context.Context, symbol string) (models.Quote, error) {
	base := 100.0
	baseVolume := 500000.0
	if inst, ok := models.FindInstrument(symbol); ok {
		base = inst.BasePrice
		baseVolume = inst.BaseVolume
	}
	if q, err := s.prices.Get(ctx, symbol); err == nil {
		base = q.Price
	}

	return models.Quote{
		Symbol:    symbol,
		Price:     s.sim.NextPrice(base, QuoteVolatility),
		Volume:    s.sim.NextVolume(baseVolume),
		Timestamp: time.Now(),
	}, nil
}

func (s *simSource) Window(_ context.Context, inst models.Instrument) ([]models.Sample, error) {
	return s.sim.GenerateWindow(inst, s.window), nil
}
