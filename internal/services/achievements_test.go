package services

import (
	"context"
	"testing"
	"time"

	"portfolio-simulator/internal/cache"
	"portfolio-simulator/internal/models"
)

func cachePrice(t *testing.T, prices cache.PriceCache, symbol string, price float64) {
	t.Helper()
	err := prices.Set(context.Background(), models.Quote{
		Symbol:    symbol,
		Price:     price,
		Volume:    500000,
		Timestamp: time.Now(),
	})
	if err != nil {
		t.Fatalf("cache price for %s: %v", symbol, err)
	}
}

func containsAchievement(list []models.Achievement, id string) bool {
	for _, a := range list {
		if a.ID == id {
			return true
		}
	}
	return false
}

func TestFirstTradeUnlocksOnce(t *testing.T) {
	ctx := context.Background()
	l, store, prices := newTestLedger(t)
	svc := NewAchievementService(ctx, store, l, prices)

	if fresh := svc.Evaluate(ctx); len(fresh) != 0 {
		t.Fatalf("unlocked before any trade: %v", fresh)
	}

	if _, err := l.ExecuteBuy(ctx, "AAPL", 1, 150); err != nil {
		t.Fatal(err)
	}

	fresh := svc.Evaluate(ctx)
	if !containsAchievement(fresh, models.AchievementFirstTrade) {
		t.Fatalf("first trade not unlocked, got %v", fresh)
	}
	if fresh := svc.Evaluate(ctx); containsAchievement(fresh, models.AchievementFirstTrade) {
		t.Error("first trade unlocked twice")
	}
}

func TestProfitMasterNeedsTenPercentGain(t *testing.T) {
	ctx := context.Background()
	l, store, prices := newTestLedger(t)
	svc := NewAchievementService(ctx, store, l, prices)

	if _, err := l.ExecuteBuy(ctx, "AAPL", 10, 100); err != nil {
		t.Fatal(err)
	}

	cachePrice(t, prices, "AAPL", 109)
	if fresh := svc.Evaluate(ctx); containsAchievement(fresh, models.AchievementProfitMaster) {
		t.Fatal("unlocked below the gain threshold")
	}

	cachePrice(t, prices, "AAPL", 110)
	if fresh := svc.Evaluate(ctx); !containsAchievement(fresh, models.AchievementProfitMaster) {
		t.Fatal("not unlocked at a 10% gain")
	}
}

func TestProfitMasterSurvivesLaterLoss(t *testing.T) {
	ctx := context.Background()
	l, store, prices := newTestLedger(t)
	svc := NewAchievementService(ctx, store, l, prices)

	if _, err := l.ExecuteBuy(ctx, "AAPL", 10, 100); err != nil {
		t.Fatal(err)
	}
	cachePrice(t, prices, "AAPL", 120)
	svc.Evaluate(ctx)

	cachePrice(t, prices, "AAPL", 80)
	svc.Evaluate(ctx)

	found := false
	for _, id := range svc.Unlocked() {
		if id == models.AchievementProfitMaster {
			found = true
		}
	}
	if !found {
		t.Error("badge lost after the price fell back")
	}
}

func TestDiversifiedPortfolio(t *testing.T) {
	ctx := context.Background()
	l, store, prices := newTestLedger(t)
	svc := NewAchievementService(ctx, store, l, prices)

	symbols := []string{"AAPL", "GOOGL", "MSFT", "AMZN"}
	for _, sym := range symbols {
		if _, err := l.ExecuteBuy(ctx, sym, 1, 100); err != nil {
			t.Fatal(err)
		}
	}
	if fresh := svc.Evaluate(ctx); containsAchievement(fresh, models.AchievementDiversified) {
		t.Fatal("unlocked with four holdings")
	}

	if _, err := l.ExecuteBuy(ctx, "TSLA", 1, 100); err != nil {
		t.Fatal(err)
	}
	if fresh := svc.Evaluate(ctx); !containsAchievement(fresh, models.AchievementDiversified) {
		t.Fatal("not unlocked with five holdings")
	}
}

func TestBigWinnerAtTargetGoal(t *testing.T) {
	ctx := context.Background()
	l, store, prices := newTestLedger(t)
	svc := NewAchievementService(ctx, store, l, prices)

	// Cost 5000, leaving 5000 cash. At 250 the position is worth 12500,
	// putting the total at 17500 against a 15000 goal.
	if _, err := l.ExecuteBuy(ctx, "AAPL", 50, 100); err != nil {
		t.Fatal(err)
	}

	cachePrice(t, prices, "AAPL", 120)
	if fresh := svc.Evaluate(ctx); containsAchievement(fresh, models.AchievementBigWinner) {
		t.Fatal("unlocked below the goal")
	}

	cachePrice(t, prices, "AAPL", 250)
	if fresh := svc.Evaluate(ctx); !containsAchievement(fresh, models.AchievementBigWinner) {
		t.Fatal("not unlocked past the goal")
	}
}

func TestUnlockedBadgesPersistAcrossRestart(t *testing.T) {
	ctx := context.Background()
	l, store, prices := newTestLedger(t)
	svc := NewAchievementService(ctx, store, l, prices)

	if _, err := l.ExecuteBuy(ctx, "AAPL", 1, 150); err != nil {
		t.Fatal(err)
	}
	if fresh := svc.Evaluate(ctx); !containsAchievement(fresh, models.AchievementFirstTrade) {
		t.Fatal("first trade not unlocked")
	}

	reloaded := NewAchievementService(ctx, store, l, prices)
	if fresh := reloaded.Evaluate(ctx); containsAchievement(fresh, models.AchievementFirstTrade) {
		t.Error("persisted badge unlocked again after reload")
	}

	found := false
	for _, id := range reloaded.Unlocked() {
		if id == models.AchievementFirstTrade {
			found = true
		}
	}
	if !found {
		t.Error("persisted badge missing after reload")
	}
}
