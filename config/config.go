package config

import (
	"log"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	HTTP      HTTP
	Finnhub   Finnhub
	Gateway   Gateway
	Storage   Storage
	Cache     Cache
	Market    Market
	Portfolio Portfolio
}

type HTTP struct {
	Port int `env:"HTTP_PORT" envDefault:"8080"`
}

type Finnhub struct {
	BaseURL string        `env:"FINNHUB_BASE_URL" envDefault:"https://finnhub.io/api/v1"`
	WSURL   string        `env:"FINNHUB_WS_URL" envDefault:"wss://ws.finnhub.io"`
	Token   string        `env:"FINNHUB_TOKEN" envDefault:""`
	Timeout time.Duration `env:"FINNHUB_TIMEOUT" envDefault:"10s"`
	Debug   bool          `env:"FINNHUB_DEBUG" envDefault:"false"`
}

// Gateway is where the market data client sends its quote-proxy requests.
// By default it points back at this process, which serves the proxy itself.
type Gateway struct {
	BaseURL string        `env:"GATEWAY_BASE_URL" envDefault:"http://localhost:8080"`
	Timeout time.Duration `env:"GATEWAY_TIMEOUT" envDefault:"10s"`
}

type Storage struct {
	Driver   string `env:"STORAGE_DRIVER" envDefault:"file"` // file | mongo | memory
	FilePath string `env:"STORAGE_FILE" envDefault:"dashboard_state.json"`
	MongoURI string `env:"MONGODB_URI" envDefault:"mongodb://localhost:27017"`
	MongoDB  string `env:"DATABASE_NAME" envDefault:"portfolio-simulator"`
}

type Cache struct {
	Driver          string        `env:"CACHE_DRIVER" envDefault:"memory"` // memory | redis
	RedisHost       string        `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort       int           `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword   string        `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB         int           `env:"REDIS_DB" envDefault:"0"`
	QuoteExpiration time.Duration `env:"CACHE_QUOTE_EXPIRATION" envDefault:"5m"`
}

type Market struct {
	WindowLength     int           `env:"CHART_WINDOW_LENGTH" envDefault:"24"`
	CandleResolution int           `env:"CANDLE_RESOLUTION_MINUTES" envDefault:"5"`
	CandleLookback   time.Duration `env:"CANDLE_LOOKBACK" envDefault:"2h"`
	LiveQuoteRefresh time.Duration `env:"LIVE_QUOTE_REFRESH" envDefault:"60s"`
	SimQuoteRefresh  time.Duration `env:"SIM_QUOTE_REFRESH" envDefault:"5s"`
	LiveChartTick    time.Duration `env:"LIVE_CHART_TICK" envDefault:"15s"`
	SimChartTick     time.Duration `env:"SIM_CHART_TICK" envDefault:"5s"`
}

type Portfolio struct {
	InitialCash float64 `env:"INITIAL_CASH" envDefault:"10000"`
	TargetGoal  float64 `env:"TARGET_GOAL" envDefault:"15000"`
}

func MustLoad() *Config {
	_ = godotenv.Load(".env")

	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		log.Fatalf("parse config error: %s", err)
	}

	return cfg
}

func (m Market) QuoteRefreshInterval(live bool) time.Duration {
	if live {
		return m.LiveQuoteRefresh
	}
	return m.SimQuoteRefresh
}

func (m Market) ChartTickInterval(live bool) time.Duration {
	if live {
		return m.LiveChartTick
	}
	return m.SimChartTick
}
