package events

import (
	"errors"
	"fmt"
	"strings"

	"billionaire_empire/internal/staking"
)

// Type of economic event.
type Type string

const (
	MarketCrash      Type = "MARKET_CRASH"
	TechBoom         Type = "TECH_BOOM"
	InflationSpike   Type = "INFLATION_SPIKE"
	Recession        Type = "RECESSION"
	BullMarket       Type = "BULL_MARKET"
	SupplyShortage   Type = "SUPPLY_SHORTAGE"
	CurrencyCrisis   Type = "CURRENCY_CRISIS"
	RegulatoryChange Type = "REGULATORY_CHANGE"
)

// Metric an event can scale.
type Metric string

const (
	MetricIncome         Metric = "income"
	MetricExpenses       Metric = "expenses"
	MetricResourcePrices Metric = "resource_prices"
	MetricStakingRewards Metric = "staking_rewards"
	MetricInflation      Metric = "inflation"
	MetricReputation     Metric = "reputation"
)

var (
	ErrUnknownType  = errors.New("unknown event type")
	ErrInvalidEvent = errors.New("invalid event")
)

// Effects maps a metric to its multiplier. Missing metrics are neutral.
type Effects map[Metric]float64

// Get returns the multiplier for m, 1 when absent.
func (e Effects) Get(m Metric) float64 {
	if v, ok := e[m]; ok {
		return v
	}
	return 1
}

func (e Effects) clone() Effects {
	c := make(Effects, len(e))
	for k, v := range e {
		c[k] = v
	}
	return c
}

// Branches holds the default effects and the per-pool overrides for stakers.
type Branches struct {
	Unstaked Effects                    `json:"unstaked"`
	Staked   map[staking.PoolID]Effects `json:"staked,omitempty"`
}

func (b Branches) clone() Branches {
	c := Branches{Unstaked: b.Unstaked.clone(), Staked: map[staking.PoolID]Effects{}}
	for id, e := range b.Staked {
		c.Staked[id] = e.clone()
	}
	return c
}

// Definition describes one event type. Probability is per month.
type Definition struct {
	Type        Type     `json:"type"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Probability float64  `json:"probability"`
	MinDuration int      `json:"min_duration"`
	MaxDuration int      `json:"max_duration"`
	Effects     Branches `json:"effects"`
}

// Order is the fixed sampling order.
var Order = []Type{MarketCrash, TechBoom, InflationSpike, Recession, BullMarket, SupplyShortage, CurrencyCrisis, RegulatoryChange}

var definitions = map[Type]Definition{
	MarketCrash: {
		Type: MarketCrash, Name: "Market Crash",
		Description: "Asset prices collapse and consumer spending dries up.",
		Probability: 0.05, MinDuration: 7, MaxDuration: 30,
		Effects: Branches{
			Unstaked: Effects{MetricIncome: 0.7, MetricResourcePrices: 0.8, MetricStakingRewards: 0.9, MetricReputation: 0.95},
			Staked: map[staking.PoolID]Effects{
				staking.EconomicStability: {MetricIncome: 0.9, MetricStakingRewards: 1.0},
				staking.LiquidityReserve:  {MetricIncome: 0.85},
			},
		},
	},
	TechBoom: {
		Type: TechBoom, Name: "Tech Boom",
		Description: "A wave of innovation lifts technology businesses.",
		Probability: 0.08, MinDuration: 14, MaxDuration: 45,
		Effects: Branches{
			Unstaked: Effects{MetricIncome: 1.3, MetricResourcePrices: 1.1},
			Staked: map[staking.PoolID]Effects{
				staking.TechInnovation: {MetricIncome: 1.5, MetricStakingRewards: 1.2},
			},
		},
	},
	InflationSpike: {
		Type: InflationSpike, Name: "Inflation Spike",
		Description: "Prices jump across the board.",
		Probability: 0.06, MinDuration: 30, MaxDuration: 90,
		Effects: Branches{
			Unstaked: Effects{MetricExpenses: 1.2, MetricInflation: 1.5, MetricResourcePrices: 1.15},
			Staked: map[staking.PoolID]Effects{
				staking.EconomicStability: {MetricExpenses: 1.05, MetricInflation: 1.1},
			},
		},
	},
	Recession: {
		Type: Recession, Name: "Recession",
		Description: "Demand shrinks for months.",
		Probability: 0.03, MinDuration: 60, MaxDuration: 180,
		Effects: Branches{
			Unstaked: Effects{MetricIncome: 0.8, MetricExpenses: 0.95, MetricStakingRewards: 0.85},
			Staked: map[staking.PoolID]Effects{
				staking.EconomicStability: {MetricIncome: 0.95},
				staking.GovernanceCouncil: {MetricStakingRewards: 1.0},
			},
		},
	},
	BullMarket: {
		Type: BullMarket, Name: "Bull Market",
		Description: "Investor optimism drives growth.",
		Probability: 0.07, MinDuration: 30, MaxDuration: 120,
		Effects: Branches{
			Unstaked: Effects{MetricIncome: 1.2, MetricStakingRewards: 1.15, MetricReputation: 1.05},
			Staked: map[staking.PoolID]Effects{
				staking.GrowthFund: {MetricIncome: 1.3, MetricStakingRewards: 1.25},
			},
		},
	},
	SupplyShortage: {
		Type: SupplyShortage, Name: "Supply Shortage",
		Description: "Raw materials become scarce.",
		Probability: 0.06, MinDuration: 7, MaxDuration: 45,
		Effects: Branches{
			Unstaked: Effects{MetricResourcePrices: 1.4, MetricExpenses: 1.15, MetricIncome: 0.9},
			Staked: map[staking.PoolID]Effects{
				staking.LiquidityReserve: {MetricResourcePrices: 1.1},
			},
		},
	},
	CurrencyCrisis: {
		Type: CurrencyCrisis, Name: "Currency Crisis",
		Description: "The currency loses value fast.",
		Probability: 0.02, MinDuration: 14, MaxDuration: 60,
		Effects: Branches{
			Unstaked: Effects{MetricInflation: 2.0, MetricIncome: 0.85, MetricStakingRewards: 0.8},
			Staked: map[staking.PoolID]Effects{
				staking.LiquidityReserve:  {MetricInflation: 1.2, MetricStakingRewards: 1.0},
				staking.EconomicStability: {MetricIncome: 1.0},
			},
		},
	},
	RegulatoryChange: {
		Type: RegulatoryChange, Name: "Regulatory Change",
		Description: "New compliance rules raise operating costs.",
		Probability: 0.04, MinDuration: 30, MaxDuration: 90,
		Effects: Branches{
			Unstaked: Effects{MetricExpenses: 1.1, MetricReputation: 0.9},
			Staked: map[staking.PoolID]Effects{
				staking.GovernanceCouncil: {MetricExpenses: 1.0, MetricReputation: 1.05},
			},
		},
	},
}

// Lookup accepts any letter case.
func Lookup(t Type) (Definition, error) {
	d, ok := definitions[Type(strings.ToUpper(string(t)))]
	if !ok {
		return Definition{}, fmt.Errorf("%w: %s", ErrUnknownType, t)
	}
	return d, nil
}

// Definitions returns the catalog in sampling order.
func Definitions() []Definition {
	out := make([]Definition, 0, len(Order))
	for _, t := range Order {
		out = append(out, definitions[t])
	}
	return out
}
