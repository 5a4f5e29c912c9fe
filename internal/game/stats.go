package game

import (
	"time"

	"billionaire_empire/internal/achievements"
	"billionaire_empire/internal/banking"
	"billionaire_empire/internal/business"
	"billionaire_empire/internal/economy"
	"billionaire_empire/internal/events"
	"billionaire_empire/internal/governance"
	"billionaire_empire/internal/market"
	"billionaire_empire/internal/staking"
)

// Getters read the published snapshot and never mutate it.

// PlayerStats - сводка по игроку
type PlayerStats struct {
	PlayerID    string              `json:"player_id"`
	Cash        float64             `json:"cash"`
	TotalEarned float64             `json:"total_earned"`
	Level       int                 `json:"level"`
	Experience  int                 `json:"experience"`
	CreditScore int                 `json:"credit_score"`
	TON         float64             `json:"ton_balance"`
	Wealth      float64             `json:"wealth"`
	Class       economy.ClassInfo   `json:"class"`
	Housing     economy.HousingTier `json:"housing"`
	Education   economy.Education   `json:"education"`
	Relations   []Relationship      `json:"relationships"`
	Time        GameTime            `json:"time"`
	Daily       Daily               `json:"daily"`
}

func (e *Engine) GetPlayerStats() PlayerStats {
	st := e.current()
	w := st.Wealth()
	return PlayerStats{
		PlayerID:    st.PlayerID,
		Cash:        st.Player.Cash,
		TotalEarned: st.Player.TotalEarned,
		Level:       st.Player.Level,
		Experience:  st.Player.Experience,
		CreditScore: st.Banking.CreditScore,
		TON:         st.Staking.Balance,
		Wealth:      w,
		Class:       economy.ClassFor(w),
		Housing:     st.Housing,
		Education:   st.Education.Clone(),
		Relations:   append([]Relationship{}, st.Relations...),
		Time:        st.Time,
		Daily:       st.Daily,
	}
}

// StakeView - позиция с производными значениями на текущую дату
type StakeView struct {
	staking.Stake
	UnlockDate      time.Time `json:"unlock_date"`
	Locked          bool      `json:"locked"`
	PenaltyRate     float64   `json:"penalty_rate"`
	DailyReward     float64   `json:"daily_reward"`
	TenureDays      int       `json:"tenure_days"`
	VotingPower     float64   `json:"voting_power"`
	DaysUntilUnlock float64   `json:"days_until_unlock"`
}

// StakingStats - сводка стейкинга
type StakingStats struct {
	Balance        float64          `json:"balance"`
	TotalStaked    float64          `json:"total_staked"`
	PendingRewards float64          `json:"pending_rewards"`
	TotalClaimed   float64          `json:"total_claimed"`
	TotalPenalties float64          `json:"total_penalties"`
	DailyRewards   float64          `json:"daily_rewards"`
	Tier           staking.Tier     `json:"tier"`
	TierMultiplier float64          `json:"tier_multiplier"`
	VotingPower    float64          `json:"voting_power"`
	Stakes         []StakeView      `json:"stakes"`
	Pools          []staking.Pool   `json:"pools"`
	History        []staking.Record `json:"history"`
}

func (e *Engine) GetStakingStats() StakingStats {
	st := e.current()
	l := st.Staking
	now := st.Now()
	tier, mult := staking.TierFor(l.TotalStaked())
	s := StakingStats{
		Balance:        l.Balance,
		TotalStaked:    l.TotalStaked(),
		PendingRewards: l.PendingRewards,
		TotalClaimed:   l.TotalClaimed,
		TotalPenalties: l.TotalPenalties,
		Tier:           tier,
		TierMultiplier: mult,
		VotingPower:    staking.VotingPower(l, e.rules.VotingBaseWeight),
		Stakes:         []StakeView{},
		Pools:          staking.Pools(),
		History:        append([]staking.Record{}, l.History...),
	}
	for _, id := range l.StakedPools() {
		stake := *l.Stakes[id]
		pool, _ := staking.LookupPool(id)
		remaining := stake.UnlockDate().Sub(now).Hours() / 24
		if remaining < 0 {
			remaining = 0
		}
		v := StakeView{
			Stake:           stake,
			UnlockDate:      stake.UnlockDate(),
			Locked:          remaining > 0,
			PenaltyRate:     staking.PenaltyRate(pool, remaining),
			DailyReward:     staking.CalculateDailyRewards(stake.Amount, stake.APY),
			TenureDays:      l.Tenure[id],
			VotingPower:     stake.Amount * e.rules.VotingBaseWeight * pool.VotingMultiplier * (1 + staking.TenureBonus(l.Tenure[id])),
			DaysUntilUnlock: remaining,
		}
		s.DailyRewards += v.DailyReward
		s.Stakes = append(s.Stakes, v)
	}
	return s
}

// BusinessStats - сводка по бизнесам
type BusinessStats struct {
	Count         int                   `json:"count"`
	TotalValue    float64               `json:"total_value"`
	TotalRevenue  float64               `json:"total_revenue"`
	TotalExpenses float64               `json:"total_expenses"`
	TotalProfit   float64               `json:"total_profit"`
	TotalStaff    int                   `json:"total_staff"`
	ByType        map[business.Type]int `json:"by_type"`
	Businesses    []business.Business   `json:"businesses"`
	Catalog       []business.Definition `json:"catalog"`
	AvgReputation float64               `json:"avg_reputation"`
	AvgEfficiency float64               `json:"avg_efficiency"`
}

func (e *Engine) GetBusinessStats() BusinessStats {
	st := e.current()
	s := BusinessStats{
		Count:      len(st.Businesses),
		ByType:     map[business.Type]int{},
		Businesses: make([]business.Business, 0, len(st.Businesses)),
		Catalog:    make([]business.Definition, 0, len(business.Types)),
	}
	for _, b := range st.Businesses {
		s.TotalValue += b.Value
		s.TotalRevenue += b.MonthlyRevenue
		s.TotalExpenses += b.MonthlyExpenses
		s.TotalProfit += b.MonthlyProfit
		s.TotalStaff += len(b.Staff)
		s.AvgReputation += b.Reputation
		s.AvgEfficiency += b.Efficiency
		s.ByType[b.Type]++
		s.Businesses = append(s.Businesses, *b.Clone())
	}
	if s.Count > 0 {
		s.AvgReputation /= float64(s.Count)
		s.AvgEfficiency /= float64(s.Count)
	}
	for _, t := range business.Types {
		d, _ := business.Lookup(t)
		s.Catalog = append(s.Catalog, d)
	}
	return s
}

// EconomicStats - макроэкономика и события
type EconomicStats struct {
	Date                   time.Time                     `json:"date"`
	DaysPassed             int                           `json:"days_passed"`
	Inflation              float64                       `json:"inflation"`
	PriceIndex             float64                       `json:"price_index"`
	MoneySupply            float64                       `json:"money_supply"`
	TargetMoneySupply      float64                       `json:"target_money_supply"`
	PriceVolatility        float64                       `json:"price_volatility"`
	Wealth                 float64                       `json:"wealth"`
	Class                  economy.ClassInfo             `json:"class"`
	ActiveEvents           []events.Event                `json:"active_events"`
	Effects                events.Effects                `json:"effects"`
	Prices                 map[market.ResourceID]float64 `json:"prices"`
	MonthlyHousingCost     float64                       `json:"monthly_housing_cost"`
	MonthlyEventsProcessed int                           `json:"monthly_events_processed"`
	EventsTriggered        int                           `json:"events_triggered"`
}

func (e *Engine) GetEconomicStats() EconomicStats {
	st := e.current()
	w := st.Wealth()
	return EconomicStats{
		Date:                   st.Now(),
		DaysPassed:             st.Time.DaysPassed,
		Inflation:              st.Economy.Inflation,
		PriceIndex:             st.Economy.PriceIndex,
		MoneySupply:            st.Economy.MoneySupply,
		TargetMoneySupply:      st.Economy.TargetMoneySupply,
		PriceVolatility:        e.models.VolatilityModel(st.Economy.PriceHistory, 6),
		Wealth:                 w,
		Class:                  economy.ClassFor(w),
		ActiveEvents:           st.Events.Active(st.Now()),
		Effects:                st.Effects(),
		Prices:                 st.EffectivePrices(),
		MonthlyHousingCost:     st.monthlyHousingCost(),
		MonthlyEventsProcessed: st.MonthlyEventsProcessed,
		EventsTriggered:        st.Events.Triggered,
	}
}

// GovernanceStats - голосования
type GovernanceStats struct {
	governance.Stats
	Params    governance.Params     `json:"params"`
	Proposals []governance.Proposal `json:"active_proposals"`
}

func (e *Engine) GetGovernanceStats() GovernanceStats {
	st := e.current()
	power := staking.VotingPower(st.Staking, e.rules.VotingBaseWeight)
	return GovernanceStats{
		Stats:     st.Governance.Stats(st.Now(), power, e.rules.Governance),
		Params:    e.rules.Governance,
		Proposals: st.Governance.Active(st.Now()),
	}
}

// AchievementStats - достижения и прогресс
type AchievementStats struct {
	achievements.AchievementStats
	Progress []achievements.AchievementProgress `json:"progress"`
}

func (e *Engine) GetAchievementStats() AchievementStats {
	st := e.current()
	return AchievementStats{
		AchievementStats: st.Awards.Stats(),
		Progress:         st.Awards.Progress(st.progress()),
	}
}

func (e *Engine) GetBankingStats() banking.Stats {
	return e.current().Banking.Stats()
}
