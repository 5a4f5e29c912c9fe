package market

import (
	"errors"
	"math"
	"testing"

	"billionaire_empire/internal/rng"
)

func TestCalculateResourcePrice(t *testing.T) {
	t.Run("MidpointIsBase", func(t *testing.T) {
		p, err := CalculateResourcePrice(rng.NewScripted(0.5), Steel, MarketConditions{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if p != 120 {
			t.Errorf("expected base price 120, got %v", p)
		}
	})

	t.Run("VolatilityBand", func(t *testing.T) {
		src := rng.NewSeeded(7)
		for i := 0; i < 200; i++ {
			p, _ := CalculateResourcePrice(src, Oil, MarketConditions{})
			if p < 75*0.8-1e-9 || p > 75*1.2+1e-9 {
				t.Fatalf("price %v outside ±20%% band", p)
			}
		}
	})

	t.Run("Conditions", func(t *testing.T) {
		cond := MarketConditions{
			Demand: map[ResourceID]float64{Gold: 2},
			Supply: map[ResourceID]float64{Gold: 4},
			Global: 1.5,
		}
		p, _ := CalculateResourcePrice(rng.NewScripted(0.5), Gold, cond)
		want := 1900 * 0.5 * 1.5
		if math.Abs(p-want) > 1e-9 {
			t.Errorf("expected %v, got %v", want, p)
		}
	})

	t.Run("UnknownResource", func(t *testing.T) {
		_, err := CalculateResourcePrice(rng.NewScripted(), ResourceID("unobtanium"), MarketConditions{})
		if !errors.Is(err, ErrUnknownResource) {
			t.Errorf("expected ErrUnknownResource, got %v", err)
		}
	})
}

func TestSimulateMarketFluctuationStaysInBand(t *testing.T) {
	src := rng.NewScripted(0.999)
	prices := DefaultPrices()
	for i := 0; i < 2000; i++ {
		prices = SimulateMarketFluctuation(src, prices)
	}
	for _, id := range Order {
		r, _ := Lookup(id)
		if prices[id] > r.BasePrice*2+1e-9 {
			t.Errorf("%s drifted above 2x base: %v", id, prices[id])
		}
	}

	down := rng.NewScripted(0)
	prices = DefaultPrices()
	for i := 0; i < 2000; i++ {
		prices = SimulateMarketFluctuation(down, prices)
	}
	for _, id := range Order {
		r, _ := Lookup(id)
		if prices[id] < r.BasePrice*0.5-1e-9 {
			t.Errorf("%s drifted below 0.5x base: %v", id, prices[id])
		}
	}
}

func TestSimulateMarketFluctuationFillsMissing(t *testing.T) {
	next := SimulateMarketFluctuation(rng.NewScripted(0.5), nil)
	if len(next) != len(Order) {
		t.Fatalf("expected %d prices, got %d", len(Order), len(next))
	}
	if next[Microchips] != 45 {
		t.Errorf("expected base price for missing entry, got %v", next[Microchips])
	}
}
