package services

import (
	"math/rand"
	"sync"
	"time"

	"portfolio-simulator/internal/models"
)

// The two volatility magnitudes are intentionally distinct: chart ticks
// move a fraction of a percent, while the catalog-wide quote generator
// swings harder so the stock list looks alive between refreshes.
const (
	TickVolatility  = 0.002
	QuoteVolatility = 0.02
)

// Simulator produces bounded random-walk prices and volumes for any
// instrument when live data is unavailable or disabled.
type Simulator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewSimulator() *Simulator {
	return &Simulator{rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// NextPrice perturbs base by a symmetric random fraction:
// base + U(-1,1) * base * volatility.
func (s *Simulator) NextPrice(base, volatility float64) float64 {
	return base + s.unit()*base*volatility
}

// NextVolume scales base by U(0.7, 1.3).
func (s *Simulator) NextVolume(base float64) float64 {
	return base * (0.7 + s.float64()*0.6)
}

// GenerateWindow produces length chronologically ordered samples ending
// now, walking the price from the instrument's reference base. Volume is
// boosted near market open and close hours.
func (s *Simulator) GenerateWindow(inst models.Instrument, length int) []models.Sample {
	samples := make([]models.Sample, 0, length)
	price := inst.BasePrice
	now := time.Now()

	for i := length - 1; i >= 0; i-- {
		ts := now.Add(-time.Duration(i) * time.Hour)
		price = s.NextPrice(price, TickVolatility)

		multiplier := 1.0
		if hour := ts.Hour(); hour < 2 || hour > 22 {
			multiplier = 1.5
		}

		samples = append(samples, models.NewSample(ts, price, s.NextVolume(inst.BaseVolume*multiplier)))
	}
	return samples
}

// unit returns a uniform value in (-1, 1).
func (s *Simulator) unit() float64 {
	return s.float64()*2 - 1
}

func (s *Simulator) float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()
}
