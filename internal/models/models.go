package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Instrument is static reference data for a tradable symbol. The catalog
// is fixed for the life of the process, see catalog.go.
type Instrument struct {
	Symbol     string  `json:"symbol"`
	Name       string  `json:"name"`
	Sector     string  `json:"sector"`
	BasePrice  float64 `json:"basePrice"`
	BaseVolume float64 `json:"baseVolume"`
}

// Quote is the last-known price/volume for a symbol, produced either by
// the live feed or by the simulator.
type Quote struct {
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	Volume    float64   `json:"volume"`
	Timestamp time.Time `json:"timestamp"`
}

// Sample is one point of the rolling chart window.
type Sample struct {
	Time   time.Time `json:"time"`
	Label  string    `json:"label"`
	Price  float64   `json:"price"`
	Volume float64   `json:"volume"`
}

func NewSample(ts time.Time, price, volume float64) Sample {
	return Sample{
		Time:   ts,
		Label:  ts.Format("15:04"),
		Price:  price,
		Volume: volume,
	}
}

// Account holds the simulated cash balance. InitialInvestment and
// TargetGoal are fixed at creation.
type Account struct {
	Cash              decimal.Decimal `json:"cash"`
	InitialInvestment decimal.Decimal `json:"initialInvestment"`
	TargetGoal        decimal.Decimal `json:"targetGoal"`
	StartDate         time.Time       `json:"startDate"`
}

// Holding is a position in one instrument. Shares is always positive
// while the holding exists; a holding sold down to zero is removed.
type Holding struct {
	Symbol    string          `json:"symbol"`
	Shares    int64           `json:"shares"`
	AvgPrice  decimal.Decimal `json:"avgPrice"`
	TotalCost decimal.Decimal `json:"totalCost"`
}

type TradeSide string

const (
	SideBuy  TradeSide = "BUY"
	SideSell TradeSide = "SELL"
)

// Transaction is an append-only trade log entry. Never edited or removed.
type Transaction struct {
	ID     string          `json:"id"`
	Date   time.Time       `json:"date"`
	Symbol string          `json:"symbol"`
	Side   TradeSide       `json:"type"`
	Shares int64           `json:"shares"`
	Price  decimal.Decimal `json:"price"`
	Total  decimal.Decimal `json:"total"`
}

// Achievement is a gamified portfolio milestone badge.
type Achievement struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}
