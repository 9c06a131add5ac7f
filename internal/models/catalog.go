package models

import "strings"

var catalog = []Instrument{
	{Symbol: "AAPL", Name: "Apple Inc.", Sector: "Technology", BasePrice: 151.70, BaseVolume: 996276},
	{Symbol: "GOOGL", Name: "Alphabet Inc.", Sector: "Technology", BasePrice: 138.21, BaseVolume: 854123},
	{Symbol: "MSFT", Name: "Microsoft", Sector: "Technology", BasePrice: 328.66, BaseVolume: 723456},
	{Symbol: "AMZN", Name: "Amazon.com", Sector: "Consumer Cyclical", BasePrice: 145.24, BaseVolume: 678901},
	{Symbol: "TSLA", Name: "Tesla", Sector: "Automotive", BasePrice: 237.49, BaseVolume: 789012},
}

// Catalog returns the fixed list of tradable instruments.
func Catalog() []Instrument {
	out := make([]Instrument, len(catalog))
	copy(out, catalog)
	return out
}

// FindInstrument looks up an instrument by symbol, case-insensitively.
func FindInstrument(symbol string) (Instrument, bool) {
	symbol = strings.ToUpper(symbol)
	for _, inst := range catalog {
		if inst.Symbol == symbol {
			return inst, true
		}
	}
	return Instrument{}, false
}

const (
	AchievementFirstTrade   = "first_trade"
	AchievementProfitMaster = "profit_master"
	AchievementDiversified  = "diverse_portfolio"
	AchievementBigWinner    = "big_winner"
)

var achievements = []Achievement{
	{ID: AchievementFirstTrade, Name: "First Steps", Description: "Make your first trade", Icon: "🎯"},
	{ID: AchievementProfitMaster, Name: "Profit Master", Description: "Achieve 10% profit on a single trade", Icon: "💰"},
	{ID: AchievementDiversified, Name: "Diversification Expert", Description: "Own 5 different stocks", Icon: "🌈"},
	{ID: AchievementBigWinner, Name: "Big Winner", Description: "Reach $15,000 portfolio value", Icon: "🏆"},
}

// AchievementCatalog returns the fixed list of achievement badges.
func AchievementCatalog() []Achievement {
	out := make([]Achievement, len(achievements))
	copy(out, achievements)
	return out
}
