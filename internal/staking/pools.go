package staking

import (
	"errors"
	"fmt"
	"strings"
)

// PoolID - идентификатор пула стейкинга
type PoolID string

const (
	EconomicStability PoolID = "economic_stability"
	LiquidityReserve  PoolID = "liquidity_reserve"
	GrowthFund        PoolID = "growth_fund"
	TechInnovation    PoolID = "tech_innovation"
	GovernanceCouncil PoolID = "governance_council"
)

// RiskTier - профиль риска пула
type RiskTier string

const (
	RiskLow        RiskTier = "low"
	RiskMedium     RiskTier = "medium"
	RiskMediumHigh RiskTier = "medium_high"
	RiskHigh       RiskTier = "high"
)

var (
	ErrUnknownPool         = errors.New("unknown staking pool")
	ErrInvalidAmount       = errors.New("amount must be positive")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrBelowMinStake       = errors.New("amount below pool minimum stake")
	ErrAboveMaxStake       = errors.New("total stake above pool maximum")
	ErrNoStake             = errors.New("no active stake in pool")
	ErrNothingToClaim      = errors.New("no rewards to claim")
	ErrAmountExceedsStake  = errors.New("amount exceeds staked amount")
	ErrInvalidLedger       = errors.New("invalid staking ledger")
)

// Pool - неизменяемое описание пула
type Pool struct {
	ID               PoolID   `json:"id" yaml:"id"`
	Name             string   `json:"name" yaml:"name"`
	APY              float64  `json:"apy" yaml:"apy"`                 // в процентах
	LockPeriod       int      `json:"lock_period" yaml:"lock_period"` // дней
	MinStake         float64  `json:"min_stake" yaml:"min_stake"`
	MaxStake         float64  `json:"max_stake" yaml:"max_stake"`
	Risk             RiskTier `json:"risk" yaml:"risk"`
	MaxPenaltyRate   float64  `json:"max_penalty_rate" yaml:"max_penalty_rate"` // доля, 0.02..0.10
	VotingMultiplier float64  `json:"voting_multiplier" yaml:"voting_multiplier"`
}

// PoolOrder - порядок пулов для детерминированных обходов
var PoolOrder = []PoolID{EconomicStability, LiquidityReserve, GrowthFund, TechInnovation, GovernanceCouncil}

var pools = map[PoolID]Pool{
	EconomicStability: {
		ID: EconomicStability, Name: "Economic Stability", APY: 12, LockPeriod: 30,
		MinStake: 100, MaxStake: 50_000, Risk: RiskMedium, MaxPenaltyRate: 0.05, VotingMultiplier: 1.0,
	},
	LiquidityReserve: {
		ID: LiquidityReserve, Name: "Liquidity Reserve", APY: 6, LockPeriod: 7,
		MinStake: 10, MaxStake: 20_000, Risk: RiskLow, MaxPenaltyRate: 0.02, VotingMultiplier: 0.5,
	},
	GrowthFund: {
		ID: GrowthFund, Name: "Growth Fund", APY: 18, LockPeriod: 60,
		MinStake: 500, MaxStake: 100_000, Risk: RiskMediumHigh, MaxPenaltyRate: 0.075, VotingMultiplier: 1.2,
	},
	TechInnovation: {
		ID: TechInnovation, Name: "Tech Innovation", APY: 25, LockPeriod: 90,
		MinStake: 1_000, MaxStake: 250_000, Risk: RiskHigh, MaxPenaltyRate: 0.10, VotingMultiplier: 1.5,
	},
	GovernanceCouncil: {
		ID: GovernanceCouncil, Name: "Governance Council", APY: 9, LockPeriod: 180,
		MinStake: 1_000, MaxStake: 500_000, Risk: RiskLow, MaxPenaltyRate: 0.03, VotingMultiplier: 2.0,
	},
}

// LookupPool ищет пул по идентификатору. Регистр не важен.
func LookupPool(id PoolID) (Pool, error) {
	p, ok := pools[PoolID(strings.ToLower(string(id)))]
	if !ok {
		return Pool{}, fmt.Errorf("%w: %s", ErrUnknownPool, id)
	}
	return p, nil
}

// Pools возвращает каталог в стабильном порядке
func Pools() []Pool {
	out := make([]Pool, 0, len(PoolOrder))
	for _, id := range PoolOrder {
		out = append(out, pools[id])
	}
	return out
}

// Tier - уровень стейкера по сумме всех стейков
type Tier string

const (
	TierNone     Tier = "none"
	TierBronze   Tier = "bronze"
	TierSilver   Tier = "silver"
	TierGold     Tier = "gold"
	TierPlatinum Tier = "platinum"
)

var tiers = []struct {
	Tier       Tier
	Threshold  float64
	Multiplier float64
}{
	{TierPlatinum, 100_000, 2.0},
	{TierGold, 10_000, 1.5},
	{TierSilver, 1_000, 1.25},
	{TierBronze, 100, 1.1},
}

// TierFor определяет уровень и множитель ежедневной награды
func TierFor(totalStaked float64) (Tier, float64) {
	for _, t := range tiers {
		if totalStaked >= t.Threshold {
			return t.Tier, t.Multiplier
		}
	}
	return TierNone, 1.0
}
