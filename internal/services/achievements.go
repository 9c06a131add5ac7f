package services

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"portfolio-simulator/internal/cache"
	"portfolio-simulator/internal/models"
	"portfolio-simulator/internal/storage"
)

var profitMasterThreshold = decimal.NewFromFloat(0.10)

// AchievementService unlocks portfolio milestone badges. Unlocks are
// monotonic: once earned, a badge survives later losses, and the set is
// persisted alongside the ledger snapshot.
type AchievementService struct {
	mu       sync.Mutex
	store    storage.Store
	ledger   *Ledger
	prices   cache.PriceCache
	unlocked map[string]bool
}

func NewAchievementService(ctx context.Context, store storage.Store, ledger *Ledger, prices cache.PriceCache) *AchievementService {
	s := &AchievementService{
		store:    store,
		ledger:   ledger,
		prices:   prices,
		unlocked: make(map[string]bool),
	}

	if raw, err := store.Get(ctx, storage.KeyAchievements); err == nil {
		var ids []string
		if err := json.Unmarshal(raw, &ids); err != nil {
			slog.Warn("discarding unreadable achievements snapshot", slog.String("err", err.Error()))
		} else {
			for _, id := range ids {
				s.unlocked[id] = true
			}
		}
	}
	return s
}

// Evaluate checks every milestone against the current ledger state and
// returns badges newly unlocked by this call.
func (s *AchievementService) Evaluate(ctx context.Context) []models.Achievement {
	earned := map[string]bool{
		models.AchievementFirstTrade:   len(s.ledger.Transactions()) > 0,
		models.AchievementProfitMaster: s.hasProfitableHolding(ctx),
		models.AchievementDiversified:  len(s.ledger.Holdings()) >= 5,
		models.AchievementBigWinner:    s.ledger.Valuate(ctx).GreaterThanOrEqual(s.ledger.Account().TargetGoal),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var fresh []models.Achievement
	for _, a := range models.AchievementCatalog() {
		if earned[a.ID] && !s.unlocked[a.ID] {
			s.unlocked[a.ID] = true
			fresh = append(fresh, a)
			slog.Info("achievement unlocked", slog.String("id", a.ID))
		}
	}

	if len(fresh) > 0 {
		s.persistLocked(ctx)
	}
	return fresh
}

// Unlocked returns the ids of all earned badges, sorted.
func (s *AchievementService) Unlocked() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(s.unlocked))
	for id := range s.unlocked {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (s *AchievementService) hasProfitableHolding(ctx context.Context) bool {
	for _, h := range s.ledger.Holdings() {
		q, err := s.prices.Get(ctx, h.Symbol)
		if err != nil || h.AvgPrice.IsZero() {
			continue
		}
		gain := decimal.NewFromFloat(q.Price).Sub(h.AvgPrice).Div(h.AvgPrice)
		if gain.GreaterThanOrEqual(profitMasterThreshold) {
			return true
		}
	}
	return false
}

func (s *AchievementService) persistLocked(ctx context.Context) {
	ids := make([]string, 0, len(s.unlocked))
	for id := range s.unlocked {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	raw, err := json.Marshal(ids)
	if err != nil {
		return
	}
	if err := s.store.Set(ctx, storage.KeyAchievements, raw); err != nil {
		slog.Warn("achievements persist skipped", slog.String("err", err.Error()))
	}
}
