package business

import (
	"errors"
	"fmt"

	"billionaire_empire/internal/market"
)

// Type identifies a business in the fixed catalog.
type Type string

const (
	CoffeeShop       Type = "coffee_shop"
	Restaurant       Type = "restaurant"
	RetailStore      Type = "retail_store"
	TechStartup      Type = "tech_startup"
	SoftwareCompany  Type = "software_company"
	Factory          Type = "factory"
	RealEstateAgency Type = "real_estate_agency"
	InvestmentFirm   Type = "investment_firm"
)

// Industry groups business types for cluster bonuses.
type Industry string

const (
	IndustryFood          Industry = "food"
	IndustryRetail        Industry = "retail"
	IndustryTechnology    Industry = "technology"
	IndustryManufacturing Industry = "manufacturing"
	IndustryRealEstate    Industry = "real_estate"
	IndustryFinance       Industry = "finance"
)

var (
	ErrUnknownType    = errors.New("unknown business type")
	ErrUnknownUpgrade = errors.New("unknown upgrade")
	ErrUnknownRole    = errors.New("unknown staff role")
	ErrUpgradeApplied = errors.New("upgrade already applied")
	ErrStaffLimit     = errors.New("staff limit reached")
	ErrNotAnInput     = errors.New("resource is not an input of this business")
	ErrInvalidDeal    = errors.New("invalid supply deal")
	ErrInvalid        = errors.New("invalid business")
)

// Definition is the static economic profile of a business type.
type Definition struct {
	Type             Type                          `json:"type"`
	Name             string                        `json:"name"`
	Industry         Industry                      `json:"industry"`
	BaseCost         float64                       `json:"base_cost"`
	CostMultiplier   float64                       `json:"cost_multiplier"`
	BaseIncome       float64                       `json:"base_income"`
	IncomeMultiplier float64                       `json:"income_multiplier"`
	ExpenseRatio     float64                       `json:"expense_ratio"`
	Inputs           map[market.ResourceID]float64 `json:"inputs"` // monthly units required
}

// Types is the stable catalog order.
var Types = []Type{CoffeeShop, Restaurant, RetailStore, TechStartup, SoftwareCompany, Factory, RealEstateAgency, InvestmentFirm}

var definitions = map[Type]Definition{
	CoffeeShop: {
		Type: CoffeeShop, Name: "Coffee Shop", Industry: IndustryFood,
		BaseCost: 500, CostMultiplier: 1.4, BaseIncome: 120, IncomeMultiplier: 1.25, ExpenseRatio: 0.45,
		Inputs: map[market.ResourceID]float64{market.CoffeeBeans: 50, market.Electricity: 400},
	},
	Restaurant: {
		Type: Restaurant, Name: "Restaurant", Industry: IndustryFood,
		BaseCost: 2500, CostMultiplier: 1.45, BaseIncome: 600, IncomeMultiplier: 1.25, ExpenseRatio: 0.55,
		Inputs: map[market.ResourceID]float64{market.CoffeeBeans: 30, market.Electricity: 1500},
	},
	RetailStore: {
		Type: RetailStore, Name: "Retail Store", Industry: IndustryRetail,
		BaseCost: 5000, CostMultiplier: 1.5, BaseIncome: 1100, IncomeMultiplier: 1.22, ExpenseRatio: 0.5,
		Inputs: map[market.ResourceID]float64{market.Textiles: 200, market.Electricity: 800},
	},
	TechStartup: {
		Type: TechStartup, Name: "Tech Startup", Industry: IndustryTechnology,
		BaseCost: 15000, CostMultiplier: 1.6, BaseIncome: 3500, IncomeMultiplier: 1.3, ExpenseRatio: 0.6,
		Inputs: map[market.ResourceID]float64{market.Microchips: 40, market.Electricity: 2000},
	},
	SoftwareCompany: {
		Type: SoftwareCompany, Name: "Software Company", Industry: IndustryTechnology,
		BaseCost: 50000, CostMultiplier: 1.55, BaseIncome: 11000, IncomeMultiplier: 1.28, ExpenseRatio: 0.5,
		Inputs: map[market.ResourceID]float64{market.Microchips: 80, market.Electricity: 5000},
	},
	Factory: {
		Type: Factory, Name: "Factory", Industry: IndustryManufacturing,
		BaseCost: 120000, CostMultiplier: 1.5, BaseIncome: 26000, IncomeMultiplier: 1.25, ExpenseRatio: 0.65,
		Inputs: map[market.ResourceID]float64{market.Steel: 50, market.Oil: 40, market.Electricity: 20000},
	},
	RealEstateAgency: {
		Type: RealEstateAgency, Name: "Real Estate Agency", Industry: IndustryRealEstate,
		BaseCost: 250000, CostMultiplier: 1.45, BaseIncome: 48000, IncomeMultiplier: 1.2, ExpenseRatio: 0.4,
		Inputs: map[market.ResourceID]float64{market.Lumber: 100, market.Steel: 20},
	},
	InvestmentFirm: {
		Type: InvestmentFirm, Name: "Investment Firm", Industry: IndustryFinance,
		BaseCost: 1000000, CostMultiplier: 1.6, BaseIncome: 180000, IncomeMultiplier: 1.3, ExpenseRatio: 0.35,
		Inputs: map[market.ResourceID]float64{market.Gold: 5, market.Electricity: 3000},
	},
}

// Lookup returns the definition of a business type.
func Lookup(t Type) (Definition, error) {
	d, ok := definitions[t]
	if !ok {
		return Definition{}, fmt.Errorf("%w: %s", ErrUnknownType, t)
	}
	return d, nil
}

// UpgradeKind is one of the purchasable improvements.
type UpgradeKind string

const (
	UpgradeLevel      UpgradeKind = "level"
	UpgradeMarketing  UpgradeKind = "marketing"
	UpgradeAutomation UpgradeKind = "automation"
	UpgradeExpansion  UpgradeKind = "expansion"
	UpgradeQuality    UpgradeKind = "quality"
)

// Upgrade describes the one-time effect of a non-level upgrade.
type Upgrade struct {
	Kind        UpgradeKind `json:"kind"`
	CostFactor  float64     `json:"cost_factor"` // × CalculateBusinessCost(level)
	Reputation  float64     `json:"reputation"`
	Efficiency  float64     `json:"efficiency"`
	MarketShare float64     `json:"market_share"`
}

var upgrades = map[UpgradeKind]Upgrade{
	UpgradeLevel:      {Kind: UpgradeLevel, CostFactor: 1},
	UpgradeMarketing:  {Kind: UpgradeMarketing, CostFactor: 0.5, Reputation: 15},
	UpgradeAutomation: {Kind: UpgradeAutomation, CostFactor: 0.8, Efficiency: 20},
	UpgradeExpansion:  {Kind: UpgradeExpansion, CostFactor: 1.0, MarketShare: 0.05},
	UpgradeQuality:    {Kind: UpgradeQuality, CostFactor: 0.6, Reputation: 10, Efficiency: 10},
}

// Role is a staff position.
type Role string

const (
	RoleManager    Role = "manager"
	RoleWorker     Role = "worker"
	RoleSpecialist Role = "specialist"
)

type roleProfile struct {
	Salary float64
	Bonus  float64
}

var roles = map[Role]roleProfile{
	RoleManager:    {Salary: 4000, Bonus: 0.10},
	RoleWorker:     {Salary: 1800, Bonus: 0.03},
	RoleSpecialist: {Salary: 6000, Bonus: 0.15},
}

// Cluster is a recognized grouping of industries that unlocks an income multiplier.
type Cluster struct {
	ID                  string     `json:"id"`
	Name                string     `json:"name"`
	Industries          []Industry `json:"industries"`
	MinBusinesses       int        `json:"min_businesses"`
	MinCommunityPlayers int        `json:"min_community_players"`
	MaxBonus            float64    `json:"max_bonus"`
}

var Clusters = []Cluster{
	{ID: "tech_hub", Name: "Tech Hub", Industries: []Industry{IndustryTechnology, IndustryFinance, IndustryRealEstate}, MinBusinesses: 3, MinCommunityPlayers: 10, MaxBonus: 1.0},
	{ID: "food_district", Name: "Food District", Industries: []Industry{IndustryFood, IndustryRetail}, MinBusinesses: 3, MinCommunityPlayers: 5, MaxBonus: 0.5},
	{ID: "industrial_park", Name: "Industrial Park", Industries: []Industry{IndustryManufacturing, IndustryRetail, IndustryTechnology}, MinBusinesses: 3, MinCommunityPlayers: 20, MaxBonus: 0.8},
	{ID: "financial_center", Name: "Financial Center", Industries: []Industry{IndustryFinance, IndustryRealEstate}, MinBusinesses: 2, MinCommunityPlayers: 50, MaxBonus: 1.0},
}
