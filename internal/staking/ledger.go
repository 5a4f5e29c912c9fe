package staking

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// Stake - агрегированная позиция игрока в одном пуле
type Stake struct {
	Pool       PoolID    `json:"pool"`
	Amount     float64   `json:"amount"`
	StartDate  time.Time `json:"start_date"`
	LockPeriod int       `json:"lock_period"`
	APY        float64   `json:"apy"`
	Earned     float64   `json:"earned"`
}

// UnlockDate - момент окончания блокировки
func (s Stake) UnlockDate() time.Time {
	return s.StartDate.AddDate(0, 0, s.LockPeriod)
}

// RecordKind - тип записи истории
type RecordKind string

const (
	RecordStake   RecordKind = "stake"
	RecordUnstake RecordKind = "unstake"
	RecordClaim   RecordKind = "claim"
	RecordReward  RecordKind = "reward"
)

// Record - запись истории операций
type Record struct {
	ID      string     `json:"id"`
	Kind    RecordKind `json:"kind"`
	Pool    PoolID     `json:"pool,omitempty"`
	Amount  float64    `json:"amount"`
	Penalty float64    `json:"penalty,omitempty"`
	Reason  string     `json:"reason,omitempty"`
	At      time.Time  `json:"at"`
}

// UnstakeResult - итог вывода
type UnstakeResult struct {
	Pool          PoolID  `json:"pool"`
	Amount        float64 `json:"amount"`
	PenaltyRate   float64 `json:"penalty_rate"`
	PenaltyAmount float64 `json:"penalty_amount"`
	NetAmount     float64 `json:"net_amount"`
	Remaining     float64 `json:"remaining"`
}

// Ledger - стейкинг-состояние одного игрока (TON-баланс, позиции, стаж, награды)
type Ledger struct {
	Balance        float64           `json:"balance"`
	Stakes         map[PoolID]*Stake `json:"stakes"`
	Tenure         map[PoolID]int    `json:"tenure"`
	PendingRewards float64           `json:"pending_rewards"`
	TotalClaimed   float64           `json:"total_claimed"`
	TotalPenalties float64           `json:"total_penalties"`
	TotalCredited  float64           `json:"total_credited"`
	History        []Record          `json:"history"`
}

// NewLedger создает пустой леджер с начальным балансом
func NewLedger(balance float64) *Ledger {
	return &Ledger{
		Balance: balance,
		Stakes:  map[PoolID]*Stake{},
		Tenure:  map[PoolID]int{},
		History: []Record{},
	}
}

// Clone возвращает глубокую копию
func (l *Ledger) Clone() *Ledger {
	c := *l
	c.Stakes = make(map[PoolID]*Stake, len(l.Stakes))
	for id, s := range l.Stakes {
		cp := *s
		c.Stakes[id] = &cp
	}
	c.Tenure = make(map[PoolID]int, len(l.Tenure))
	for id, d := range l.Tenure {
		c.Tenure[id] = d
	}
	c.History = append([]Record{}, l.History...)
	return &c
}

// Stake вносит amount в пул. Повторный стейк в тот же пул суммируется с
// существующей позицией: дата начала сохраняется, APY пересчитывается по новой сумме.
func (l *Ledger) Stake(poolID PoolID, amount float64, now time.Time) (*Stake, error) {
	pool, err := LookupPool(poolID)
	if err != nil {
		return nil, err
	}
	if amount <= 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return nil, ErrInvalidAmount
	}
	if l.Balance < amount {
		return nil, fmt.Errorf("%w: have %.2f, need %.2f", ErrInsufficientBalance, l.Balance, amount)
	}
	if amount < pool.MinStake {
		return nil, fmt.Errorf("%w: %.2f < %.2f", ErrBelowMinStake, amount, pool.MinStake)
	}

	existing := l.Stakes[pool.ID]
	total := amount
	if existing != nil {
		total += existing.Amount
	}
	if total > pool.MaxStake {
		return nil, fmt.Errorf("%w: %.2f > %.2f", ErrAboveMaxStake, total, pool.MaxStake)
	}

	if existing == nil {
		existing = &Stake{Pool: pool.ID, StartDate: now, LockPeriod: pool.LockPeriod}
		l.Stakes[pool.ID] = existing
	}
	existing.Amount = total
	existing.APY = CalculateAPY(pool, total, pool.LockPeriod)

	l.Balance -= amount
	l.record(Record{Kind: RecordStake, Pool: pool.ID, Amount: amount, At: now})
	return existing, nil
}

// Unstake выводит amount из пула. До окончания блокировки удерживается штраф.
func (l *Ledger) Unstake(poolID PoolID, amount float64, now time.Time) (UnstakeResult, error) {
	pool, err := LookupPool(poolID)
	if err != nil {
		return UnstakeResult{}, err
	}
	s := l.Stakes[pool.ID]
	if s == nil {
		return UnstakeResult{}, fmt.Errorf("%w: %s", ErrNoStake, pool.ID)
	}
	if amount <= 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return UnstakeResult{}, ErrInvalidAmount
	}
	if sameAmount(amount, s.Amount) {
		// остаток от сложения float, выводим позицию целиком
		amount = s.Amount
	}
	if amount > s.Amount {
		return UnstakeResult{}, fmt.Errorf("%w: %.2f of %.2f", ErrAmountExceedsStake, amount, s.Amount)
	}
	remaining := s.Amount - amount
	if remaining > 0 && remaining < pool.MinStake {
		return UnstakeResult{}, fmt.Errorf("%w: remaining %.2f < %.2f", ErrBelowMinStake, remaining, pool.MinStake)
	}

	daysLeft := s.UnlockDate().Sub(now).Hours() / 24
	rate := PenaltyRate(pool, daysLeft)
	penalty, net := CalculatePenalty(pool, amount, daysLeft)

	if remaining == 0 {
		delete(l.Stakes, pool.ID)
		delete(l.Tenure, pool.ID)
	} else {
		s.Amount = remaining
		s.APY = CalculateAPY(pool, remaining, pool.LockPeriod)
	}

	l.Balance += net
	l.TotalPenalties += penalty
	l.record(Record{Kind: RecordUnstake, Pool: pool.ID, Amount: amount, Penalty: penalty, At: now})

	return UnstakeResult{
		Pool:          pool.ID,
		Amount:        amount,
		PenaltyRate:   rate,
		PenaltyAmount: penalty,
		NetAmount:     net,
		Remaining:     remaining,
	}, nil
}

// amountTolerance - относительная погрешность сравнения сумм
const amountTolerance = 1e-9

func sameAmount(a, b float64) bool {
	return math.Abs(a-b) <= amountTolerance*math.Max(1, math.Abs(b))
}

// ClaimRewards переводит накопленные награды на баланс
func (l *Ledger) ClaimRewards(now time.Time) (float64, error) {
	if l.PendingRewards <= 0 {
		return 0, ErrNothingToClaim
	}
	amount := l.PendingRewards
	l.Balance += amount
	l.TotalClaimed += amount
	l.PendingRewards = 0
	l.record(Record{Kind: RecordClaim, Amount: amount, At: now})
	return amount, nil
}

// Accrue начисляет награды за days дней линейно: dailyRate * days.
// apyMultiplier приходит от активных экономических событий (1 = без эффекта).
func (l *Ledger) Accrue(days int, apyMultiplier float64) float64 {
	if days <= 0 {
		return 0
	}
	if apyMultiplier < 0 {
		apyMultiplier = 0
	}
	total := 0.0
	for _, id := range PoolOrder {
		s := l.Stakes[id]
		if s == nil {
			continue
		}
		r := CalculateDailyRewards(s.Amount, s.APY*apyMultiplier) * float64(days)
		s.Earned += r
		total += r
	}
	l.PendingRewards += total
	return total
}

// AdvanceTenure увеличивает стаж во всех пулах с активной позицией
func (l *Ledger) AdvanceTenure(days int) {
	if days <= 0 {
		return
	}
	for id := range l.Stakes {
		l.Tenure[id] += days
	}
}

// Credit зачисляет внешнюю награду (достижения, ежедневный бонус) на баланс
func (l *Ledger) Credit(amount float64, reason string, now time.Time) {
	if amount <= 0 {
		return
	}
	l.Balance += amount
	l.TotalCredited += amount
	l.record(Record{Kind: RecordReward, Amount: amount, Reason: reason, At: now})
}

// TotalStaked - сумма всех позиций
func (l *Ledger) TotalStaked() float64 {
	total := 0.0
	for _, s := range l.Stakes {
		total += s.Amount
	}
	return total
}

// Tier - текущий уровень стейкера
func (l *Ledger) Tier() Tier {
	t, _ := TierFor(l.TotalStaked())
	return t
}

// HasStake сообщает, есть ли позиция в пуле
func (l *Ledger) HasStake(id PoolID) bool {
	s, ok := l.Stakes[id]
	return ok && s.Amount > 0
}

// StakedPools - пулы с активной позицией в порядке каталога
func (l *Ledger) StakedPools() []PoolID {
	out := []PoolID{}
	for _, id := range PoolOrder {
		if l.HasStake(id) {
			out = append(out, id)
		}
	}
	return out
}

// MaxTenure - наибольший стаж по всем пулам
func (l *Ledger) MaxTenure() int {
	m := 0
	for _, d := range l.Tenure {
		if d > m {
			m = d
		}
	}
	return m
}

// VotingPower = Σ amount * baseWeight * poolMultiplier * (1 + tenureBonus)
func VotingPower(l *Ledger, baseWeight float64) float64 {
	if l == nil {
		return 0
	}
	power := 0.0
	for _, id := range PoolOrder {
		s := l.Stakes[id]
		if s == nil {
			continue
		}
		power += s.Amount * baseWeight * pools[id].VotingMultiplier * (1 + TenureBonus(l.Tenure[id]))
	}
	return power
}

const maxHistory = 500

func (l *Ledger) record(r Record) {
	r.ID = uuid.NewString()
	l.History = append(l.History, r)
	if len(l.History) > maxHistory {
		l.History = append([]Record{}, l.History[len(l.History)-maxHistory:]...)
	}
}

// Validate checks a ledger that arrived from outside the engine (restored
// snapshot): no nil positions, known pools, amounts inside pool bounds.
func (l *Ledger) Validate() error {
	if !finite(l.Balance) || l.Balance < 0 || !finite(l.PendingRewards) || l.PendingRewards < 0 {
		return fmt.Errorf("%w: negative or non-finite balance", ErrInvalidLedger)
	}
	for id, s := range l.Stakes {
		if s == nil {
			return fmt.Errorf("%w: nil stake in %s", ErrInvalidLedger, id)
		}
		pool, err := LookupPool(id)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidLedger, err)
		}
		if id != pool.ID || s.Pool != pool.ID {
			return fmt.Errorf("%w: stake %q stored under %q", ErrInvalidLedger, s.Pool, id)
		}
		if !finite(s.Amount) || (s.Amount < pool.MinStake && !sameAmount(s.Amount, pool.MinStake)) ||
			(s.Amount > pool.MaxStake && !sameAmount(s.Amount, pool.MaxStake)) {
			return fmt.Errorf("%w: %s amount %.2f outside %.2f..%.2f", ErrInvalidLedger, id, s.Amount, pool.MinStake, pool.MaxStake)
		}
		if !finite(s.APY) || s.APY < 0 || s.LockPeriod < 0 {
			return fmt.Errorf("%w: %s terms", ErrInvalidLedger, id)
		}
	}
	for id, days := range l.Tenure {
		if _, err := LookupPool(id); err != nil {
			return fmt.Errorf("%w: tenure: %w", ErrInvalidLedger, err)
		}
		if days < 0 {
			return fmt.Errorf("%w: negative tenure in %s", ErrInvalidLedger, id)
		}
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
