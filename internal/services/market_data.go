package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"portfolio-simulator/internal/models"
	"portfolio-simulator/utils"
)

// MarketDataClient talks to the quote gateway and normalizes provider
// responses into domain shapes. Failures are returned as errors; callers
// absorb them into simulated fallback rather than propagating further.
type MarketDataClient struct {
	client     *resty.Client
	window     int
	lookback   time.Duration
	resolution int
}

func NewMarketDataClient(baseURL string, timeout time.Duration, debug bool, window int, lookback time.Duration, resolutionMinutes int) *MarketDataClient {
	client := resty.New().
		SetDebug(debug).
		SetTimeout(timeout).
		SetBaseURL(baseURL)
	return &MarketDataClient{
		client:     client,
		window:     window,
		lookback:   lookback,
		resolution: resolutionMinutes,
	}
}

type quoteResponse struct {
	Current float64 `json:"c"`
	Volume  float64 `json:"v"`
}

type candleResponse struct {
	Status  string    `json:"s"`
	Times   []int64   `json:"t"`
	Closes  []float64 `json:"c"`
	Volumes []float64 `json:"v"`
}

// FetchQuote requests a point quote for symbol through the gateway.
func (m *MarketDataClient) FetchQuote(ctx context.Context, symbol string) (models.Quote, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)

	resp, err := m.client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		SetQueryParams(map[string]string{
			"endpoint": "quote",
			"symbol":   symbol,
		}).
		Get("/quote-proxy")
	if err != nil {
		slog.Warn("quote fetch failed", slog.String("symbol", symbol), slog.String("err", err.Error()), slog.String("rqID", rqID))
		return models.Quote{}, err
	}
	if resp.IsError() {
		return models.Quote{}, fmt.Errorf("quote fetch for %s: status %d", symbol, resp.StatusCode())
	}

	var q quoteResponse
	if err := json.Unmarshal(resp.Body(), &q); err != nil {
		return models.Quote{}, fmt.Errorf("decode quote for %s: %w", symbol, err)
	}
	if q.Current <= 0 || q.Volume <= 0 {
		return models.Quote{}, ErrNoData
	}

	return models.Quote{
		Symbol:    symbol,
		Price:     q.Current,
		Volume:    q.Volume,
		Timestamp: time.Now(),
	}, nil
}

// FetchRecentCandles requests the recent candle history for symbol and
// maps the provider's parallel arrays into an ordered sample window of
// exactly the configured length. Short responses are padded at the old
// end by repeating the oldest real point backward in time; an empty
// response is ErrNoData so the caller can fall back to simulation.
func (m *MarketDataClient) FetchRecentCandles(ctx context.Context, symbol string) ([]models.Sample, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)

	to := time.Now().Unix()
	from := to - int64(m.lookback.Seconds())

	resp, err := m.client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		SetQueryParams(map[string]string{
			"endpoint":   "candle",
			"symbol":     symbol,
			"resolution": strconv.Itoa(m.resolution),
			"from":       strconv.FormatInt(from, 10),
			"to":         strconv.FormatInt(to, 10),
		}).
		Get("/quote-proxy")
	if err != nil {
		slog.Warn("candle fetch failed", slog.String("symbol", symbol), slog.String("err", err.Error()), slog.String("rqID", rqID))
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("candle fetch for %s: status %d", symbol, resp.StatusCode())
	}

	var c candleResponse
	if err := json.Unmarshal(resp.Body(), &c); err != nil {
		return nil, fmt.Errorf("decode candles for %s: %w", symbol, err)
	}
	if c.Status != "ok" || len(c.Times) == 0 {
		return nil, ErrNoData
	}
	if len(c.Closes) != len(c.Times) || len(c.Volumes) != len(c.Times) {
		return nil, fmt.Errorf("candles for %s: mismatched array lengths", symbol)
	}

	samples := make([]models.Sample, 0, len(c.Times))
	for i, ts := range c.Times {
		samples = append(samples, models.NewSample(time.Unix(ts, 0), c.Closes[i], c.Volumes[i]))
	}

	return padWindow(samples, m.window, time.Duration(m.resolution)*time.Minute), nil
}

// padWindow trims samples to the most recent length points, or extends a
// short history by repeating the oldest point with timestamps stepping
// back one resolution interval per slot.
func padWindow(samples []models.Sample, length int, step time.Duration) []models.Sample {
	if len(samples) >= length {
		return samples[len(samples)-length:]
	}

	oldest := samples[0]
	padded := make([]models.Sample, 0, length)
	for i := length - len(samples); i > 0; i-- {
		ts := oldest.Time.Add(-time.Duration(i) * step)
		padded = append(padded, models.NewSample(ts, oldest.Price, oldest.Volume))
	}
	return append(padded, samples...)
}
