package market

import (
	"errors"
	"fmt"

	"billionaire_empire/internal/rng"
)

// ResourceID - идентификатор сырья
type ResourceID string

const (
	CoffeeBeans ResourceID = "coffee_beans"
	Steel       ResourceID = "steel"
	Electricity ResourceID = "electricity"
	Microchips  ResourceID = "microchips"
	Lumber      ResourceID = "lumber"
	Oil         ResourceID = "oil"
	Textiles    ResourceID = "textiles"
	Gold        ResourceID = "gold"
)

var ErrUnknownResource = errors.New("unknown resource")

// Resource - статическое описание сырья
type Resource struct {
	ID         ResourceID `json:"id" yaml:"id"`
	Name       string     `json:"name" yaml:"name"`
	BasePrice  float64    `json:"base_price" yaml:"base_price"`
	Volatility float64    `json:"volatility" yaml:"volatility"` // доля от базовой цены
	Unit       string     `json:"unit" yaml:"unit"`
}

// Order is the stable iteration order of the catalog.
var Order = []ResourceID{CoffeeBeans, Steel, Electricity, Microchips, Lumber, Oil, Textiles, Gold}

var catalog = map[ResourceID]Resource{
	CoffeeBeans: {ID: CoffeeBeans, Name: "Coffee Beans", BasePrice: 8, Volatility: 0.15, Unit: "kg"},
	Steel:       {ID: Steel, Name: "Steel", BasePrice: 120, Volatility: 0.10, Unit: "t"},
	Electricity: {ID: Electricity, Name: "Electricity", BasePrice: 0.15, Volatility: 0.05, Unit: "kWh"},
	Microchips:  {ID: Microchips, Name: "Microchips", BasePrice: 45, Volatility: 0.25, Unit: "pcs"},
	Lumber:      {ID: Lumber, Name: "Lumber", BasePrice: 60, Volatility: 0.12, Unit: "m3"},
	Oil:         {ID: Oil, Name: "Oil", BasePrice: 75, Volatility: 0.20, Unit: "bbl"},
	Textiles:    {ID: Textiles, Name: "Textiles", BasePrice: 12, Volatility: 0.08, Unit: "m"},
	Gold:        {ID: Gold, Name: "Gold", BasePrice: 1900, Volatility: 0.06, Unit: "oz"},
}

// Lookup возвращает описание сырья по идентификатору
func Lookup(id ResourceID) (Resource, bool) {
	r, ok := catalog[id]
	return r, ok
}

// MarketConditions - внешние множители спроса и предложения.
// Отсутствующий ключ означает множитель 1.
type MarketConditions struct {
	Supply map[ResourceID]float64 `json:"supply,omitempty"`
	Demand map[ResourceID]float64 `json:"demand,omitempty"`
	Global float64                `json:"global,omitempty"`
}

func factor(m map[ResourceID]float64, id ResourceID) float64 {
	if m == nil {
		return 1
	}
	if v, ok := m[id]; ok && v > 0 {
		return v
	}
	return 1
}

// CalculateResourcePrice рассчитывает текущую цену сырья.
// Цена = (база ± база*волатильность) × спрос/предложение × глобальный множитель, не ниже 0.
func CalculateResourcePrice(src rng.Source, id ResourceID, cond MarketConditions) (float64, error) {
	r, ok := catalog[id]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownResource, id)
	}

	price := r.BasePrice + rng.Symmetric(src)*r.BasePrice*r.Volatility
	price *= factor(cond.Demand, id) / factor(cond.Supply, id)
	if cond.Global > 0 {
		price *= cond.Global
	}
	if price < 0 {
		price = 0
	}
	return price, nil
}

// SimulateMarketFluctuation сдвигает каждую цену случайным блужданием ±волатильность*0.1
// и удерживает её в коридоре [0.5×база, 2×база].
func SimulateMarketFluctuation(src rng.Source, current map[ResourceID]float64) map[ResourceID]float64 {
	next := make(map[ResourceID]float64, len(catalog))
	for _, id := range Order {
		r := catalog[id]
		p, ok := current[id]
		if !ok || p <= 0 {
			p = r.BasePrice
		}
		p *= 1 + rng.Symmetric(src)*r.Volatility*0.1
		next[id] = clamp(p, r.BasePrice*0.5, r.BasePrice*2)
	}
	return next
}

// DefaultPrices returns every resource at its base price.
func DefaultPrices() map[ResourceID]float64 {
	out := make(map[ResourceID]float64, len(catalog))
	for id, r := range catalog {
		out[id] = r.BasePrice
	}
	return out
}

// ApplyMultiplier scales every price (event effects), keeping the ±100% band.
func ApplyMultiplier(prices map[ResourceID]float64, mult float64) map[ResourceID]float64 {
	out := make(map[ResourceID]float64, len(prices))
	for id, p := range prices {
		r, ok := catalog[id]
		if !ok {
			continue
		}
		out[id] = clamp(p*mult, r.BasePrice*0.5, r.BasePrice*2)
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
