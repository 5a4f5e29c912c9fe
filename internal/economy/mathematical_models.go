package economy

import "math"

// MathematicalModels - макро-модели симуляции (инфляция, волатильность)
type MathematicalModels struct {
	inflationTarget     float64 // годовая
	growthTarget        float64 // годовой рост денежной массы
	emissionCalibration float64 // λ
	reversion           float64 // скорость возврата к цели за месяц
}

// NewMathematicalModels создает модели с параметрами по умолчанию
func NewMathematicalModels(inflationTarget float64) *MathematicalModels {
	return &MathematicalModels{
		inflationTarget:     inflationTarget,
		growthTarget:        0.10,
		emissionCalibration: 0.1,
		reversion:           0.2,
	}
}

// InflationTarget - целевая годовая инфляция
func (m *MathematicalModels) InflationTarget() float64 {
	return m.inflationTarget
}

// InflationModel - модель инфляции
func (m *MathematicalModels) InflationModel(currentMoneySupply, targetMoneySupply, lastInflation float64) float64 {
	// πt = πt-1 + λ × (Mt - Mt*) / Mt*
	if targetMoneySupply <= 0 {
		return clampInflation(lastInflation)
	}
	moneyGap := (currentMoneySupply - targetMoneySupply) / targetMoneySupply
	return clampInflation(lastInflation + m.emissionCalibration*moneyGap)
}

// MonthlyInflation - шаг инфляции за месяц: λ-модель, возврат к цели,
// затем множитель активных событий. Результат в [-50%, 50%].
func (m *MathematicalModels) MonthlyInflation(lastInflation, moneySupply, targetSupply, eventMultiplier float64) float64 {
	pi := m.InflationModel(moneySupply, targetSupply, lastInflation)
	pi += (m.inflationTarget - pi) * m.reversion
	if eventMultiplier > 0 {
		pi *= eventMultiplier
	}
	return clampInflation(pi)
}

// NextTargetSupply - целевая денежная масса через месяц
func (m *MathematicalModels) NextTargetSupply(target float64) float64 {
	return target * math.Pow(1+m.growthTarget, 1.0/12)
}

// VolatilityModel - модель волатильности
func (m *MathematicalModels) VolatilityModel(prices []float64, window int) float64 {
	if window < 2 || len(prices) < window {
		return 0
	}

	// Берем последние window цен
	recent := prices[len(prices)-window:]

	var returns []float64
	for i := 1; i < len(recent); i++ {
		if recent[i-1] > 0 && recent[i] > 0 {
			returns = append(returns, math.Log(recent[i]/recent[i-1]))
		}
	}
	if len(returns) < 2 {
		return 0
	}

	var sum, sumSq float64
	for _, r := range returns {
		sum += r
		sumSq += r * r
	}
	n := float64(len(returns))
	mean := sum / n
	variance := math.Max(0, sumSq/n-mean*mean)

	// Годовая волатильность по месячным точкам
	return math.Sqrt(variance) * math.Sqrt(12)
}

func clampInflation(pi float64) float64 {
	if pi > 0.5 { // Максимум 50%
		return 0.5
	}
	if pi < -0.5 {
		return -0.5
	}
	return pi
}
