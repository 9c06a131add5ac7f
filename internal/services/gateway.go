package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"
)

// Gateway relays quote and candle requests to the upstream market data
// provider, attaching the server-held credential. The token goes only on
// the upstream request; it never appears in anything returned to a
// browser.
type Gateway struct {
	client *resty.Client
}

func NewGateway(baseURL, token string, timeout time.Duration, debug bool) *Gateway {
	if token == "" {
		slog.Warn("no provider token configured, gateway requests will be rejected upstream")
	}

	client := resty.New().
		SetDebug(debug).
		SetTimeout(timeout).
		SetBaseURL(baseURL).
		SetHeader("X-Finnhub-Token", token)
	return &Gateway{client: client}
}

// Quote relays a point-quote request, returning the upstream status and
// raw body.
func (g *Gateway) Quote(ctx context.Context, symbol string) (int, []byte, error) {
	return g.relay(ctx, "/quote", map[string]string{"symbol": symbol})
}

// Candle relays a historical-candle request.
func (g *Gateway) Candle(ctx context.Context, symbol, resolution, from, to string) (int, []byte, error) {
	return g.relay(ctx, "/stock/candle", map[string]string{
		"symbol":     symbol,
		"resolution": resolution,
		"from":       from,
		"to":         to,
	})
}

func (g *Gateway) relay(ctx context.Context, path string, params map[string]string) (int, []byte, error) {
	resp, err := g.client.R().
		SetContext(ctx).
		SetQueryParams(params).
		Get(path)
	if err != nil {
		slog.Error("gateway upstream request failed", slog.String("path", path), slog.String("err", err.Error()))
		return 0, nil, err
	}
	return resp.StatusCode(), resp.Body(), nil
}
