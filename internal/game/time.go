package game

import (
	"fmt"
	"log"
	"math"
	"time"

	"billionaire_empire/internal/achievements"
	"billionaire_empire/internal/banking"
	"billionaire_empire/internal/economy"
	"billionaire_empire/internal/events"
	"billionaire_empire/internal/governance"
	"billionaire_empire/internal/market"
	"billionaire_empire/internal/staking"
)

// MonthReport - итоги одного месячного шага
type MonthReport struct {
	Date           time.Time             `json:"date"`
	Revenue        float64               `json:"revenue"`
	Expenses       float64               `json:"expenses"`
	NetProfit      float64               `json:"net_profit"`
	HousingCost    float64               `json:"housing_cost"`
	InterestEarned float64               `json:"interest_earned"`
	Loans          banking.PaymentResult `json:"loans"`
	Inflation      float64               `json:"inflation"`
	PriceIndex     float64               `json:"price_index"`
}

// DailyResult - итоги ежедневного прохода
type DailyResult struct {
	Date         time.Time               `json:"date"`
	LoginReward  float64                 `json:"login_reward"`
	Streak       int                     `json:"streak"`
	NewEvents    []events.Event          `json:"new_events"`
	Achievements []achievements.Unlocked `json:"achievements"`
}

// AdvanceResult - итоги AdvanceTime
type AdvanceResult struct {
	Paused             bool                  `json:"paused"`
	Days               int                   `json:"days"`
	From               time.Time             `json:"from"`
	To                 time.Time             `json:"to"`
	RewardsAccrued     float64               `json:"rewards_accrued"`
	ProjectedIncome    float64               `json:"projected_income"`
	ProjectedExpenses  float64               `json:"projected_expenses"`
	Months             []MonthReport         `json:"months"`
	ExpiredEvents      []events.Event        `json:"expired_events"`
	FinalizedProposals []governance.Proposal `json:"finalized_proposals"`
	EducationCompleted bool                  `json:"education_completed"`
	Daily              DailyResult           `json:"daily"`
}

// AdvanceTime moves the game clock forward by days:
//  1. nothing happens while paused;
//  2. staking rewards accrue linearly for the elapsed days;
//  3. tenure grows in every staked pool;
//  4. expired events are dropped, due proposals finalized, study completed;
//  5. each crossed 30-day boundary runs a monthly step;
//  6. one daily pass runs at the new date.
func (e *Engine) AdvanceTime(days int) (AdvanceResult, error) {
	if days < 1 || days > e.rules.MaxAdvanceDays {
		return AdvanceResult{}, fmt.Errorf("%w: %d (allowed 1..%d)", ErrInvalidDays, days, e.rules.MaxAdvanceDays)
	}
	var out AdvanceResult
	err := e.apply("advance_time", func(st *State) error {
		out = e.advance(st, days)
		return nil
	})
	return out, err
}

// FastForward is AdvanceTime limited to Rules.MaxFastForward days. Larger
// requests are rejected, never partially processed.
func (e *Engine) FastForward(days int) (AdvanceResult, error) {
	if days < 1 || days > e.rules.MaxFastForward {
		return AdvanceResult{}, fmt.Errorf("%w: fast-forward accepts 1..%d days, got %d", ErrInvalidDays, e.rules.MaxFastForward, days)
	}
	return e.AdvanceTime(days)
}

func (e *Engine) advance(st *State, days int) AdvanceResult {
	from := st.Now()
	res := AdvanceResult{Days: days, From: from, To: from}
	if st.Time.Paused {
		res.Paused = true
		res.Days = 0
		return res
	}

	// 2. эффекты фиксируются на начало периода
	eff := st.Effects()
	res.RewardsAccrued = st.Staking.Accrue(days, eff.Get(events.MetricStakingRewards))
	for _, b := range st.Businesses {
		res.ProjectedIncome += b.MonthlyRevenue
		res.ProjectedExpenses += b.MonthlyExpenses
	}
	res.ProjectedExpenses += st.monthlyHousingCost() + st.Banking.MonthlyObligations()

	// 3.
	st.Staking.AdvanceTenure(days)

	startDay := st.Time.DaysPassed
	st.Time.CurrentDate = from.AddDate(0, 0, days)
	st.Time.DaysPassed += days
	now := st.Now()
	res.To = now

	// 4.
	res.ExpiredEvents = st.Events.Refresh(now)
	res.FinalizedProposals = st.Governance.Finalize(now)
	res.EducationCompleted = st.Education.Progress(now)
	if res.EducationCompleted {
		log.Printf("game: %s completed education level %d", st.PlayerID, st.Education.Level)
	}

	// 5.
	crossed := st.Time.DaysPassed/daysPerMonth - startDay/daysPerMonth
	for m := 1; m <= crossed; m++ {
		monthDate := from.AddDate(0, 0, (startDay/daysPerMonth+m)*daysPerMonth-startDay)
		res.Months = append(res.Months, e.month(st, eff, monthDate))
	}
	st.refreshBusinesses()

	// 6.
	res.Daily = e.daily(st)
	return res
}

// month applies one monthly step.
func (e *Engine) month(st *State, eff events.Effects, date time.Time) MonthReport {
	rep := MonthReport{Date: date}

	st.Market.Prices = market.SimulateMarketFluctuation(e.src, st.Market.Prices)

	mods := st.modifiers(eff)
	repMult := eff.Get(events.MetricReputation)
	for _, b := range st.Businesses {
		b.Reputation *= repMult
		b.MonthlyUpdate(e.src, mods)
		rep.Revenue += b.MonthlyRevenue
		rep.Expenses += b.MonthlyExpenses
	}
	rep.NetProfit = rep.Revenue - rep.Expenses
	st.Player.Cash += rep.NetProfit
	if rep.NetProfit > 0 {
		st.Player.TotalEarned += rep.NetProfit
	}

	rep.HousingCost = st.monthlyHousingCost()
	st.Player.Cash -= rep.HousingCost

	rep.InterestEarned = st.Banking.ApplyMonthlyInterest()
	rep.Loans = st.Banking.ProcessPayments(math.Max(st.Player.Cash, 0), date)
	st.Player.Cash -= rep.Loans.Paid

	ec := &st.Economy
	ec.MoneySupply = math.Max(0, ec.MoneySupply+rep.NetProfit)
	ec.Inflation = e.models.MonthlyInflation(ec.Inflation, ec.MoneySupply, ec.TargetMoneySupply, eff.Get(events.MetricInflation))
	ec.TargetMoneySupply = e.models.NextTargetSupply(ec.TargetMoneySupply)
	ec.PriceIndex *= 1 + ec.Inflation/12
	ec.PriceHistory = append(ec.PriceHistory, ec.PriceIndex)
	if len(ec.PriceHistory) > maxPriceHistory {
		ec.PriceHistory = append([]float64{}, ec.PriceHistory[len(ec.PriceHistory)-maxPriceHistory:]...)
	}
	ec.Class = economy.ClassFor(st.Wealth()).Class
	rep.Inflation = ec.Inflation
	rep.PriceIndex = ec.PriceIndex

	st.MonthlyEventsProcessed++
	log.Printf("game: month %d for %s: net %.0f, housing %.0f, loans paid %.0f (missed %d), inflation %.2f%%",
		st.MonthlyEventsProcessed, st.PlayerID, rep.NetProfit, rep.HousingCost, rep.Loans.Paid, rep.Loans.Missed, ec.Inflation*100)
	return rep
}

// daily resets the action counter, pays the login reward once per game day,
// rolls the event table and checks achievements.
func (e *Engine) daily(st *State) DailyResult {
	now := st.Now()
	res := DailyResult{Date: now}

	if !sameDay(st.Daily.Day, now) {
		st.Daily.Day = now
		st.Daily.Actions = 0
	}

	if !sameDay(st.Daily.LastLogin, now) {
		if sameDay(st.Daily.LastLogin, now.AddDate(0, 0, -1)) {
			st.Daily.Streak++
		} else {
			st.Daily.Streak = 1
		}
		st.Daily.LastLogin = now
		_, tierMult := staking.TierFor(st.Staking.TotalStaked())
		reward := (e.rules.DailyLoginBase + e.rules.DailyLoginPerBusiness*float64(len(st.Businesses))) * tierMult
		st.Staking.Credit(reward, "daily_login", now)
		st.Daily.LoginRewardsTotal += reward
		res.LoginReward = reward
	}
	res.Streak = st.Daily.Streak

	res.NewEvents = st.Events.Sample(e.src, now)
	if len(res.NewEvents) > 0 {
		st.refreshBusinesses()
	}
	res.Achievements = e.award(st)
	return res
}

func (e *Engine) award(st *State) []achievements.Unlocked {
	fresh := st.Awards.CheckAndAward(st.progress(), st.Now())
	for _, u := range fresh {
		st.Staking.Credit(u.Reward, "achievement:"+string(u.Type), st.Now())
		st.Player.addXP(u.XP)
	}
	return fresh
}

// ProcessDailyEvents runs the daily pass for the current game day.
func (e *Engine) ProcessDailyEvents() (DailyResult, error) {
	var out DailyResult
	err := e.apply("daily_events", func(st *State) error {
		out = e.daily(st)
		return nil
	})
	return out, err
}

// CheckAndAwardAchievements unlocks every newly satisfied achievement and
// credits its TON reward. A second call with unchanged state awards nothing.
func (e *Engine) CheckAndAwardAchievements() ([]achievements.Unlocked, error) {
	var out []achievements.Unlocked
	err := e.apply("check_achievements", func(st *State) error {
		out = e.award(st)
		return nil
	})
	return out, err
}

// Pause stops AdvanceTime until Resume.
func (e *Engine) Pause() error {
	return e.apply("pause", func(st *State) error {
		st.Time.Paused = true
		return nil
	})
}

func (e *Engine) Resume() error {
	return e.apply("resume", func(st *State) error {
		st.Time.Paused = false
		return nil
	})
}

// SetSpeed stores the display speed multiplier. The engine itself only moves on AdvanceTime.
func (e *Engine) SetSpeed(multiplier float64) error {
	return e.apply("set_speed", func(st *State) error {
		if multiplier <= 0 || multiplier > 100 || math.IsNaN(multiplier) {
			return fmt.Errorf("%w: speed must be in (0, 100], got %v", ErrInvalidInput, multiplier)
		}
		st.Time.Multiplier = multiplier
		return nil
	})
}
