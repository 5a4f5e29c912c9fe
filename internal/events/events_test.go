package events

import (
	"errors"
	"math"
	"testing"
	"time"

	"billionaire_empire/internal/rng"
	"billionaire_empire/internal/staking"
)

var start = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

func TestTriggerMarketCrash(t *testing.T) {
	def, _ := Lookup(MarketCrash)
	if def.Probability != 0.05 {
		t.Fatalf("market crash probability: %v", def.Probability)
	}

	for _, roll := range []float64{0, 0.5, 0.999} {
		b := NewBoard()
		e, err := b.Trigger(rng.NewScripted(roll), MarketCrash, start)
		if err != nil {
			t.Fatalf("Trigger: %v", err)
		}
		if len(b.Active(start)) != 1 {
			t.Fatalf("expected exactly one active event, got %d", len(b.Active(start)))
		}
		lo := start.AddDate(0, 0, def.MinDuration)
		hi := start.AddDate(0, 0, def.MaxDuration)
		if e.EndDate.Before(lo) || e.EndDate.After(hi) {
			t.Errorf("roll %v: end %v outside [%v, %v]", roll, e.EndDate, lo, hi)
		}
	}

	if _, err := NewBoard().Trigger(rng.NewScripted(), "ALIEN_INVASION", start); !errors.Is(err, ErrUnknownType) {
		t.Errorf("expected ErrUnknownType, got %v", err)
	}
	if _, err := Lookup("market_crash"); err != nil {
		t.Errorf("lookup should ignore case: %v", err)
	}
}

func TestExpiryIsLazy(t *testing.T) {
	b := NewBoard()
	e, _ := b.Trigger(rng.NewScripted(0), MarketCrash, start) // 7 days

	if got := b.Active(e.EndDate.Add(-time.Second)); len(got) != 1 {
		t.Fatalf("event should be active just before end, got %d", len(got))
	}
	if got := b.Active(e.EndDate); len(got) != 0 {
		t.Fatalf("event should be inactive at end date, got %d", len(got))
	}
	if len(b.Events) != 1 {
		t.Fatal("Active must not mutate the board")
	}

	expired := b.Refresh(e.EndDate)
	if len(expired) != 1 || len(b.Events) != 0 || len(b.Expired) != 1 {
		t.Errorf("refresh: expired=%d events=%d history=%d", len(expired), len(b.Events), len(b.Expired))
	}
}

func TestDailyChance(t *testing.T) {
	p := DailyChance(0.05)
	month := 1 - math.Pow(1-p, 30)
	if math.Abs(month-0.05) > 1e-12 {
		t.Errorf("30 daily rolls should reproduce monthly odds, got %v", month)
	}
	if DailyChance(0) != 0 || DailyChance(1) != 1 {
		t.Error("edge probabilities wrong")
	}
}

func TestSample(t *testing.T) {
	t.Run("AllFire", func(t *testing.T) {
		b := NewBoard()
		started := b.Sample(rng.NewScripted(0), start)
		if len(started) != len(Order) {
			t.Fatalf("independent types should all fire on a zero roll, got %d", len(started))
		}
		if again := b.Sample(rng.NewScripted(0), start); len(again) != 0 {
			t.Errorf("running types must not start twice, got %d", len(again))
		}
	})

	t.Run("NoneFire", func(t *testing.T) {
		b := NewBoard()
		if started := b.Sample(rng.NewScripted(0.99), start); len(started) != 0 {
			t.Errorf("expected no events, got %d", len(started))
		}
	})
}

func TestResolveEffects(t *testing.T) {
	crash, _ := Trigger(rng.NewScripted(0), MarketCrash, start)

	t.Run("Unstaked", func(t *testing.T) {
		eff := ResolveEffects([]Event{crash}, nil)
		if eff.Get(MetricIncome) != 0.7 || eff.Get(MetricStakingRewards) != 0.9 {
			t.Errorf("unexpected effects %v", eff)
		}
		if eff.Get(MetricExpenses) != 1 {
			t.Error("untouched metric must be neutral")
		}
	})

	t.Run("StakedOverridesMatchingMetricsOnly", func(t *testing.T) {
		eff := ResolveEffects([]Event{crash}, []staking.PoolID{staking.EconomicStability})
		if eff.Get(MetricIncome) != 0.9 || eff.Get(MetricStakingRewards) != 1.0 {
			t.Errorf("override missing: %v", eff)
		}
		if eff.Get(MetricResourcePrices) != 0.8 {
			t.Errorf("non-overridden metric should keep default, got %v", eff.Get(MetricResourcePrices))
		}
	})

	t.Run("UnrelatedPoolGivesNoHedge", func(t *testing.T) {
		eff := ResolveEffects([]Event{crash}, []staking.PoolID{staking.TechInnovation})
		if eff.Get(MetricIncome) != 0.7 {
			t.Errorf("unrelated pool should not hedge, got %v", eff.Get(MetricIncome))
		}
	})

	t.Run("ConcurrentEventsMultiply", func(t *testing.T) {
		boom, _ := Trigger(rng.NewScripted(0), TechBoom, start)
		eff := ResolveEffects([]Event{crash, boom}, nil)
		if math.Abs(eff.Get(MetricIncome)-0.7*1.3) > 1e-12 {
			t.Errorf("expected 0.91, got %v", eff.Get(MetricIncome))
		}
	})
}

func TestCloneIsolation(t *testing.T) {
	b := NewBoard()
	b.Trigger(rng.NewScripted(0), MarketCrash, start)
	c := b.Clone()
	c.Events[0].Effects.Unstaked[MetricIncome] = 5
	c.Refresh(start.AddDate(1, 0, 0))
	if b.Events[0].Effects.Unstaked[MetricIncome] != 0.7 || len(b.Events) != 1 {
		t.Error("clone shares events with original")
	}
}
