package business

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"billionaire_empire/internal/market"
	"billionaire_empire/internal/rng"
)

// StaffMember is one employee of a business.
type StaffMember struct {
	ID      string    `json:"id"`
	Role    Role      `json:"role"`
	Salary  float64   `json:"salary"`
	Bonus   float64   `json:"bonus"`
	HiredAt time.Time `json:"hired_at"`
}

// SupplyDeal delivers a fixed quantity of a resource every month at a locked price.
type SupplyDeal struct {
	ID         string            `json:"id"`
	Resource   market.ResourceID `json:"resource"`
	Quantity   float64           `json:"quantity"`
	UnitPrice  float64           `json:"unit_price"`
	MonthsLeft int               `json:"months_left"`
}

// MonthlyCost of the deal at its locked price.
func (d SupplyDeal) MonthlyCost() float64 {
	return d.Quantity * d.UnitPrice
}

// Business is an owned income-producing unit.
type Business struct {
	ID              string        `json:"id"`
	Type            Type          `json:"type"`
	Level           int           `json:"level"`
	MonthlyRevenue  float64       `json:"monthly_revenue"`
	MonthlyExpenses float64       `json:"monthly_expenses"`
	MonthlyProfit   float64       `json:"monthly_profit"`
	Efficiency      float64       `json:"efficiency"` // percent, 0..200
	Reputation      float64       `json:"reputation"` // 0..100
	MarketShare     float64       `json:"market_share"`
	SupplyChain     float64       `json:"supply_chain_efficiency"`
	ClusterBonus    float64       `json:"cluster_bonus"`
	Swing           float64       `json:"swing"` // this month's revenue swing, ±0.05
	Upgrades        []UpgradeKind `json:"upgrades"`
	SupplyDeals     []SupplyDeal  `json:"supply_deals"`
	Staff           []StaffMember `json:"staff"`
	Value           float64       `json:"value"` // total invested
	PurchasedAt     time.Time     `json:"purchased_at"`
}

// Modifiers are the external multipliers applied when revenue is recomputed.
type Modifiers struct {
	Income           float64 // event income multiplier
	Expenses         float64 // event expense multiplier
	AnnualInflation  float64 // e.g. 0.03
	OwnerBonus       float64 // education
	Owned            []Type
	CommunityPlayers int
}

// NeutralModifiers applies no event, inflation or owner effects.
func NeutralModifiers() Modifiers {
	return Modifiers{Income: 1, Expenses: 1, OwnerBonus: 1}
}

// New creates a level-1 business and returns its purchase price.
func New(t Type, now time.Time) (*Business, float64, error) {
	def, err := Lookup(t)
	if err != nil {
		return nil, 0, err
	}
	cost := CalculateBusinessCost(def, 0)
	b := &Business{
		ID:          uuid.NewString(),
		Type:        t,
		Level:       1,
		Efficiency:  100,
		Reputation:  50,
		Upgrades:    []UpgradeKind{},
		SupplyDeals: []SupplyDeal{},
		Staff:       []StaffMember{},
		Value:       cost,
		PurchasedAt: now,
	}
	b.Refresh(NeutralModifiers())
	return b, cost, nil
}

// Clone returns a deep copy.
func (b *Business) Clone() *Business {
	c := *b
	c.Upgrades = append([]UpgradeKind{}, b.Upgrades...)
	c.SupplyDeals = append([]SupplyDeal{}, b.SupplyDeals...)
	c.Staff = append([]StaffMember{}, b.Staff...)
	return &c
}

// Definition of the business type. Types stored in state are always valid.
func (b *Business) Definition() Definition {
	return definitions[b.Type]
}

func (b *Business) HasUpgrade(kind UpgradeKind) bool {
	for _, u := range b.Upgrades {
		if u == kind {
			return true
		}
	}
	return false
}

// UpgradeCost prices an upgrade without applying it.
func (b *Business) UpgradeCost(kind UpgradeKind) (float64, error) {
	u, ok := upgrades[kind]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownUpgrade, kind)
	}
	if kind != UpgradeLevel && b.HasUpgrade(kind) {
		return 0, fmt.Errorf("%w: %s", ErrUpgradeApplied, kind)
	}
	return math.Floor(CalculateBusinessCost(b.Definition(), b.Level) * u.CostFactor), nil
}

// ApplyUpgrade applies the upgrade effects. The caller has already charged UpgradeCost.
func (b *Business) ApplyUpgrade(kind UpgradeKind, cost float64) error {
	u, ok := upgrades[kind]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownUpgrade, kind)
	}
	if kind == UpgradeLevel {
		b.Level++
	} else {
		if b.HasUpgrade(kind) {
			return fmt.Errorf("%w: %s", ErrUpgradeApplied, kind)
		}
		b.Upgrades = append(b.Upgrades, kind)
		b.Reputation += u.Reputation
		b.Efficiency += u.Efficiency
		b.MarketShare += u.MarketShare
	}
	b.Value += cost
	b.clamp()
	b.recomputeProfit()
	return nil
}

// MaxStaff grows with level.
func (b *Business) MaxStaff() int {
	return 5 + b.Level*2
}

// HireCost is one month of salary paid upfront.
func HireCost(role Role) (float64, error) {
	p, ok := roles[role]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownRole, role)
	}
	return p.Salary, nil
}

// Hire adds a staff member.
func (b *Business) Hire(role Role, now time.Time) (StaffMember, error) {
	p, ok := roles[role]
	if !ok {
		return StaffMember{}, fmt.Errorf("%w: %s", ErrUnknownRole, role)
	}
	if len(b.Staff) >= b.MaxStaff() {
		return StaffMember{}, ErrStaffLimit
	}
	m := StaffMember{ID: uuid.NewString(), Role: role, Salary: p.Salary, Bonus: p.Bonus, HiredAt: now}
	b.Staff = append(b.Staff, m)
	return m, nil
}

// StaffBonus is 1 + Σ role bonuses.
func (b *Business) StaffBonus() float64 {
	bonus := 1.0
	for _, s := range b.Staff {
		bonus += s.Bonus
	}
	return bonus
}

func (b *Business) payroll() float64 {
	total := 0.0
	for _, s := range b.Staff {
		total += s.Salary
	}
	return total
}

// AddSupplyDeal signs a deal for one of the business inputs. A second deal for
// the same resource extends the existing one.
func (b *Business) AddSupplyDeal(res market.ResourceID, quantity, unitPrice float64, months int) (SupplyDeal, error) {
	if quantity <= 0 || unitPrice < 0 || months <= 0 {
		return SupplyDeal{}, ErrInvalidDeal
	}
	if _, ok := b.Definition().Inputs[res]; !ok {
		return SupplyDeal{}, fmt.Errorf("%w: %s", ErrNotAnInput, res)
	}
	for i := range b.SupplyDeals {
		d := &b.SupplyDeals[i]
		if d.Resource == res {
			d.Quantity += quantity
			d.UnitPrice = unitPrice
			if months > d.MonthsLeft {
				d.MonthsLeft = months
			}
			return *d, nil
		}
	}
	d := SupplyDeal{ID: uuid.NewString(), Resource: res, Quantity: quantity, UnitPrice: unitPrice, MonthsLeft: months}
	b.SupplyDeals = append(b.SupplyDeals, d)
	return d, nil
}

// Available resources delivered by active supply deals.
func (b *Business) Available() map[market.ResourceID]float64 {
	out := map[market.ResourceID]float64{}
	for _, d := range b.SupplyDeals {
		if d.MonthsLeft > 0 {
			out[d.Resource] += d.Quantity
		}
	}
	return out
}

func (b *Business) supplyCost() float64 {
	total := 0.0
	for _, d := range b.SupplyDeals {
		if d.MonthsLeft > 0 {
			total += d.MonthlyCost()
		}
	}
	return total
}

// Refresh recomputes revenue, expenses and profit from the current state and
// the month's stored swing.
func (b *Business) Refresh(mods Modifiers) {
	def := b.Definition()
	if mods.Income <= 0 {
		mods.Income = 1
	}
	if mods.Expenses <= 0 {
		mods.Expenses = 1
	}
	if mods.OwnerBonus <= 0 {
		mods.OwnerBonus = 1
	}

	b.clamp()
	b.SupplyChain = CalculateSupplyChainEfficiency(def, b.Available())
	b.ClusterBonus, _ = BestClusterBonus(def.Industry, mods.Owned, mods.CommunityPlayers)

	gross := CalculateBusinessIncome(def, b.Level, b.StaffBonus(), mods.Income)
	revenue := gross * (b.Efficiency / 100) * b.SupplyChain * b.ClusterBonus * (1 + b.MarketShare) * mods.OwnerBonus
	revenue *= 1 + b.Swing
	b.MonthlyRevenue = math.Max(0, math.Floor(revenue))

	base := CalculateBusinessIncome(def, b.Level, 1, 1) * def.ExpenseRatio
	expenses := base*mods.Expenses*(1+mods.AnnualInflation/12) + b.payroll() + b.supplyCost()
	b.MonthlyExpenses = math.Max(0, math.Floor(expenses))

	b.recomputeProfit()
}

// MonthlyUpdate applies the ±5% revenue fluctuation, advances supply deals and
// drifts reputation with profitability.
func (b *Business) MonthlyUpdate(src rng.Source, mods Modifiers) {
	b.Swing = rng.Symmetric(src) * 0.05
	b.Refresh(mods)

	if b.MonthlyProfit > 0 {
		b.Reputation += 1
	} else {
		b.Reputation -= 2
	}

	kept := b.SupplyDeals[:0]
	for _, d := range b.SupplyDeals {
		d.MonthsLeft--
		if d.MonthsLeft > 0 {
			kept = append(kept, d)
		}
	}
	b.SupplyDeals = kept
	b.clamp()
	b.recomputeProfit()
}

// SalePrice is what the player receives on sale.
func (b *Business) SalePrice() float64 {
	return math.Floor(b.Value * (0.5 + b.Reputation/200))
}

func (b *Business) recomputeProfit() {
	b.MonthlyProfit = b.MonthlyRevenue - b.MonthlyExpenses
}

func (b *Business) clamp() {
	b.Efficiency = math.Max(0, math.Min(200, b.Efficiency))
	b.Reputation = math.Max(0, math.Min(100, b.Reputation))
	b.MarketShare = math.Max(0, math.Min(1, b.MarketShare))
}

// Validate checks a business restored from a snapshot. Monthly figures must
// already satisfy profit == revenue - expenses.
func (b *Business) Validate() error {
	if _, err := Lookup(b.Type); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if b.ID == "" || b.Level < 1 {
		return fmt.Errorf("%w: %s id %q level %d", ErrInvalid, b.Type, b.ID, b.Level)
	}
	for _, v := range []float64{b.MonthlyRevenue, b.MonthlyExpenses, b.MonthlyProfit, b.Value, b.SupplyChain, b.ClusterBonus} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s has non-finite figures", ErrInvalid, b.ID)
		}
	}
	if b.MonthlyRevenue < 0 || b.MonthlyExpenses < 0 ||
		math.Abs(b.MonthlyProfit-(b.MonthlyRevenue-b.MonthlyExpenses)) > 1e-6 {
		return fmt.Errorf("%w: %s profit %.2f != %.2f - %.2f", ErrInvalid, b.ID, b.MonthlyProfit, b.MonthlyRevenue, b.MonthlyExpenses)
	}
	if b.Efficiency < 0 || b.Efficiency > 200 || b.Reputation < 0 || b.Reputation > 100 || b.MarketShare < 0 || b.MarketShare > 1 {
		return fmt.Errorf("%w: %s efficiency/reputation/share out of range", ErrInvalid, b.ID)
	}
	for _, u := range b.Upgrades {
		if _, ok := upgrades[u]; !ok {
			return fmt.Errorf("%w: %w: %s", ErrInvalid, ErrUnknownUpgrade, u)
		}
	}
	if len(b.Staff) > b.MaxStaff() {
		return fmt.Errorf("%w: %s has %d staff, max %d", ErrInvalid, b.ID, len(b.Staff), b.MaxStaff())
	}
	for _, d := range b.SupplyDeals {
		if d.Quantity <= 0 || d.UnitPrice < 0 || d.MonthsLeft < 0 {
			return fmt.Errorf("%w: %w: %s", ErrInvalid, ErrInvalidDeal, d.ID)
		}
	}
	return nil
}
