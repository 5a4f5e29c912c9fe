package staking

import "math"

// CalculateAPY - базовый APY + бонус за срок + бонус за сумму (в процентных пунктах).
//
//	срок:  min(5, (duration-lock)/365 * 10), если duration > lock
//	сумма: min(3, log10(amount/10000) * 1), если amount > 10000
func CalculateAPY(pool Pool, amount float64, durationDays int) float64 {
	apy := pool.APY

	if durationDays > pool.LockPeriod {
		extra := float64(durationDays-pool.LockPeriod) / 365 * 10
		apy += math.Min(5, extra)
	}

	if amount > 10_000 {
		apy += math.Min(3, math.Log10(amount/10_000))
	}

	return apy
}

// CalculateDailyRewards - линейное начисление за один день, без капитализации
func CalculateDailyRewards(amount, apy float64) float64 {
	return amount * apy / 100 / 365
}

// PenaltyRate - доля штрафа за досрочный вывод.
// Пропорциональна оставшейся части блокировки, максимум pool.MaxPenaltyRate.
func PenaltyRate(pool Pool, daysRemaining float64) float64 {
	if daysRemaining <= 0 || pool.LockPeriod <= 0 {
		return 0
	}
	ratio := math.Min(1, daysRemaining/float64(pool.LockPeriod))
	return ratio * pool.MaxPenaltyRate
}

// CalculatePenalty возвращает (штраф, чистая сумма)
func CalculatePenalty(pool Pool, amount, daysRemaining float64) (float64, float64) {
	penalty := amount * PenaltyRate(pool, daysRemaining)
	return penalty, amount - penalty
}

var tenureBonuses = []struct {
	Days  int
	Bonus float64
}{
	{365, 0.35},
	{180, 0.20},
	{90, 0.10},
	{30, 0.05},
}

// TenureBonus - бонус за стаж по наибольшему достигнутому порогу
func TenureBonus(days int) float64 {
	for _, t := range tenureBonuses {
		if days >= t.Days {
			return t.Bonus
		}
	}
	return 0
}
