package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"billionaire_empire/internal/economy"
	"billionaire_empire/internal/governance"
)

// Rules - игровой баланс. Значения по умолчанию можно переопределить YAML-файлом.
type Rules struct {
	StartingCash        float64             `yaml:"starting_cash" json:"starting_cash"`
	StartingTON         float64             `yaml:"starting_ton" json:"starting_ton"`
	StartingCreditScore int                 `yaml:"starting_credit_score" json:"starting_credit_score"`
	StartingHousing     economy.HousingTier `yaml:"starting_housing" json:"starting_housing"`
	StartDate           string              `yaml:"start_date" json:"start_date"` // YYYY-MM-DD

	Governance       governance.Params `yaml:"governance" json:"governance"`
	VotingBaseWeight float64           `yaml:"voting_base_weight" json:"voting_base_weight"`

	BaseInflation float64 `yaml:"base_inflation" json:"base_inflation"`

	DailyLoginBase        float64 `yaml:"daily_login_base" json:"daily_login_base"`
	DailyLoginPerBusiness float64 `yaml:"daily_login_per_business" json:"daily_login_per_business"`
	DailyActionLimit      int     `yaml:"daily_action_limit" json:"daily_action_limit"`

	MaxFastForward int `yaml:"max_fast_forward" json:"max_fast_forward"`
	MaxAdvanceDays int `yaml:"max_advance_days" json:"max_advance_days"`

	// размер сообщества для кластерных бонусов, пока игрок его не задал
	CommunityPlayers int `yaml:"community_players" json:"community_players"`
}

// DefaultRules - стандартный баланс
func DefaultRules() Rules {
	return Rules{
		StartingCash:          10_000,
		StartingTON:           1_000,
		StartingCreditScore:   650,
		StartingHousing:       economy.HousingApartment,
		StartDate:             "2024-01-01",
		Governance:            governance.DefaultParams(),
		VotingBaseWeight:      1,
		BaseInflation:         0.03,
		DailyLoginBase:        1,
		DailyLoginPerBusiness: 0.5,
		DailyActionLimit:      200,
		MaxFastForward:        30,
		MaxAdvanceDays:        365,
	}
}

// LoadRules читает YAML поверх значений по умолчанию. Пустой путь - только умолчания.
func LoadRules(path string) (Rules, error) {
	rules := DefaultRules()
	if path == "" {
		return rules, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return rules, fmt.Errorf("read balance file: %w", err)
	}
	if err := yaml.Unmarshal(raw, &rules); err != nil {
		return rules, fmt.Errorf("parse balance file %s: %w", path, err)
	}
	if err := rules.Validate(); err != nil {
		return rules, fmt.Errorf("balance file %s: %w", path, err)
	}
	return rules, nil
}

// Validate проверяет согласованность баланса
func (r Rules) Validate() error {
	if r.StartingCash < 0 || r.StartingTON < 0 {
		return fmt.Errorf("starting balances must be >= 0")
	}
	if r.StartingCreditScore < 300 || r.StartingCreditScore > 850 {
		return fmt.Errorf("starting_credit_score must be in [300, 850], got %d", r.StartingCreditScore)
	}
	if _, err := economy.LookupHousing(r.StartingHousing); err != nil {
		return err
	}
	if _, err := r.Start(); err != nil {
		return err
	}
	if r.Governance.ProposalThreshold < 0 || r.Governance.RequiredQuorum < 0 || r.Governance.VotingPeriodDays < 1 {
		return fmt.Errorf("governance: threshold/quorum must be >= 0 and voting_period_days >= 1")
	}
	if r.VotingBaseWeight <= 0 {
		return fmt.Errorf("voting_base_weight must be > 0")
	}
	if r.BaseInflation < -0.5 || r.BaseInflation > 0.5 {
		return fmt.Errorf("base_inflation must be in [-0.5, 0.5]")
	}
	if r.DailyLoginBase < 0 || r.DailyLoginPerBusiness < 0 || r.DailyActionLimit < 1 {
		return fmt.Errorf("daily login rewards must be >= 0 and daily_action_limit >= 1")
	}
	if r.CommunityPlayers < 0 {
		return fmt.Errorf("community_players must be >= 0")
	}
	if r.MaxFastForward < 1 || r.MaxAdvanceDays < r.MaxFastForward {
		return fmt.Errorf("max_fast_forward must be >= 1 and <= max_advance_days")
	}
	return nil
}

// Start дата начала игры
func (r Rules) Start() (time.Time, error) {
	t, err := time.Parse("2006-01-02", r.StartDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("start_date %q: %w", r.StartDate, err)
	}
	return t.UTC(), nil
}
