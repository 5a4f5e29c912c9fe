package economy

// WealthInputs - все слагаемые чистого капитала игрока
type WealthInputs struct {
	Cash           float64
	TotalEarned    float64
	BusinessValues []float64
	TotalStaked    float64
	BankBalances   []float64
}

// Wealth = cash + totalEarned + Σ business.value + totalStaked + Σ bank balances.
// Единственная формула капитала: ее используют классы, достижения и статистика.
func Wealth(in WealthInputs) float64 {
	w := in.Cash + in.TotalEarned + in.TotalStaked
	for _, v := range in.BusinessValues {
		w += v
	}
	for _, b := range in.BankBalances {
		w += b
	}
	return w
}

// Class - экономический класс по капиталу
type Class string

const (
	WorkingClass     Class = "Working Class"
	MiddleClass      Class = "Middle Class"
	UpperMiddleClass Class = "Upper Middle Class"
	Wealthy          Class = "Wealthy"
	UltraWealthy     Class = "Ultra Wealthy"
	Billionaire      Class = "Billionaire"
)

// ClassInfo - порог класса и его политическое влияние
type ClassInfo struct {
	Class              Class   `json:"class"`
	MinWealth          float64 `json:"min_wealth"`
	PoliticalInfluence float64 `json:"political_influence"`
}

// по убыванию порога
var classes = []ClassInfo{
	{Billionaire, 1_000_000_000, 100},
	{UltraWealthy, 10_000_000, 25},
	{Wealthy, 1_000_000, 10},
	{UpperMiddleClass, 250_000, 5},
	{MiddleClass, 50_000, 2},
	{WorkingClass, 0, 1},
}

// ClassFor классифицирует капитал
func ClassFor(wealth float64) ClassInfo {
	for _, c := range classes {
		if wealth >= c.MinWealth {
			return c
		}
	}
	return classes[len(classes)-1]
}
