package game

import (
	"time"

	"billionaire_empire/internal/achievements"
	"billionaire_empire/internal/banking"
	"billionaire_empire/internal/business"
	"billionaire_empire/internal/config"
	"billionaire_empire/internal/economy"
	"billionaire_empire/internal/events"
	"billionaire_empire/internal/governance"
	"billionaire_empire/internal/market"
	"billionaire_empire/internal/staking"
)

// StateVersion is bumped on breaking changes of the persisted layout.
const StateVersion = 1

const (
	xpPerLevel      = 1000
	maxPriceHistory = 24
	daysPerMonth    = 30
)

// Player - игрок: наличные, заработок, уровень
type Player struct {
	Cash        float64 `json:"cash"`
	TotalEarned float64 `json:"total_earned"`
	Level       int     `json:"level"`
	Experience  int     `json:"experience"`
}

func (p *Player) addXP(xp int) {
	p.Experience += xp
	p.Level = 1 + p.Experience/xpPerLevel
}

// GameTime - игровые часы
type GameTime struct {
	CurrentDate time.Time `json:"current_date"`
	DaysPassed  int       `json:"days_passed"`
	Paused      bool      `json:"paused"`
	Multiplier  float64   `json:"multiplier"`
}

// Economy - макропоказатели
type Economy struct {
	Inflation         float64       `json:"inflation"` // годовая
	PriceIndex        float64       `json:"price_index"`
	MoneySupply       float64       `json:"money_supply"`
	TargetMoneySupply float64       `json:"target_money_supply"`
	PriceHistory      []float64     `json:"price_history"`
	Class             economy.Class `json:"class"`
}

// Market - текущие цены сырья без учета событий
type Market struct {
	Prices map[market.ResourceID]float64 `json:"prices"`
}

// Relationship - знакомство игрока. Количество ограничено жильем.
type Relationship struct {
	ID    string    `json:"id"`
	Name  string    `json:"name"`
	Kind  string    `json:"kind"`
	Since time.Time `json:"since"`
}

// Daily - дневные счетчики и логин-бонус
type Daily struct {
	Day               time.Time `json:"day"`
	Actions           int       `json:"actions"`
	LastLogin         time.Time `json:"last_login"`
	Streak            int       `json:"streak"`
	LoginRewardsTotal float64   `json:"login_rewards_total"`
}

// State - полный снимок игры одного игрока. Опубликованный снимок не изменяется.
type State struct {
	Version  int    `json:"version"`
	PlayerID string `json:"player_id"`

	Player     Player               `json:"player"`
	Time       GameTime             `json:"time"`
	Businesses []*business.Business `json:"businesses"`
	Staking    *staking.Ledger      `json:"staking"`
	Governance *governance.Book     `json:"governance"`
	Events     *events.Board        `json:"events"`
	Awards     *achievements.Book   `json:"achievements"`
	Banking    *banking.Bank        `json:"banking"`
	Economy    Economy              `json:"economy"`
	Market     Market               `json:"market"`
	Housing    economy.HousingTier  `json:"housing"`
	Education  economy.Education    `json:"education"`
	Relations  []Relationship       `json:"relationships"`
	Community  int                  `json:"community_players"`
	Daily      Daily                `json:"daily"`

	MonthlyEventsProcessed int `json:"monthly_events_processed"`
}

// NewState builds the opening position for a fresh game.
func NewState(playerID string, rules config.Rules) (*State, error) {
	start, err := rules.Start()
	if err != nil {
		return nil, err
	}
	st := &State{
		Version:    StateVersion,
		PlayerID:   playerID,
		Player:     Player{Cash: rules.StartingCash, Level: 1},
		Time:       GameTime{CurrentDate: start, Multiplier: 1},
		Businesses: []*business.Business{},
		Staking:    staking.NewLedger(rules.StartingTON),
		Governance: governance.NewBook(),
		Events:     events.NewBoard(),
		Awards:     achievements.NewBook(),
		Banking:    banking.NewBank(rules.StartingCreditScore),
		Economy: Economy{
			Inflation:         rules.BaseInflation,
			PriceIndex:        1,
			MoneySupply:       rules.StartingCash,
			TargetMoneySupply: rules.StartingCash,
			PriceHistory:      []float64{1},
		},
		Market:    Market{Prices: market.DefaultPrices()},
		Housing:   rules.StartingHousing,
		Relations: []Relationship{},
		Community: rules.CommunityPlayers,
		Daily:     Daily{Day: start},
	}
	st.Economy.Class = economy.ClassFor(st.Wealth()).Class
	return st, nil
}

// Clone returns a deep copy.
func (s *State) Clone() *State {
	c := *s
	c.Businesses = make([]*business.Business, len(s.Businesses))
	for i, b := range s.Businesses {
		c.Businesses[i] = b.Clone()
	}
	c.Staking = s.Staking.Clone()
	c.Governance = s.Governance.Clone()
	c.Events = s.Events.Clone()
	c.Awards = s.Awards.Clone()
	c.Banking = s.Banking.Clone()
	c.Economy.PriceHistory = append([]float64{}, s.Economy.PriceHistory...)
	c.Market.Prices = make(map[market.ResourceID]float64, len(s.Market.Prices))
	for k, v := range s.Market.Prices {
		c.Market.Prices[k] = v
	}
	c.Education = s.Education.Clone()
	c.Relations = append([]Relationship{}, s.Relations...)
	return &c
}

// Now is the game clock.
func (s *State) Now() time.Time {
	return s.Time.CurrentDate
}

// Wealth по единой формуле капитала
func (s *State) Wealth() float64 {
	values := make([]float64, 0, len(s.Businesses))
	for _, b := range s.Businesses {
		values = append(values, b.Value)
	}
	return economy.Wealth(economy.WealthInputs{
		Cash:           s.Player.Cash,
		TotalEarned:    s.Player.TotalEarned,
		BusinessValues: values,
		TotalStaked:    s.Staking.TotalStaked(),
		BankBalances:   s.Banking.Balances(),
	})
}

// Business ищет бизнес по id
func (s *State) Business(id string) (*business.Business, int) {
	for i, b := range s.Businesses {
		if b.ID == id {
			return b, i
		}
	}
	return nil, -1
}

// OwnedTypes in purchase order, with repeats.
func (s *State) OwnedTypes() []business.Type {
	out := make([]business.Type, 0, len(s.Businesses))
	for _, b := range s.Businesses {
		out = append(out, b.Type)
	}
	return out
}

// Effects of the events active at the current date for this player's stakes.
func (s *State) Effects() events.Effects {
	return events.ResolveEffects(s.Events.Active(s.Now()), s.Staking.StakedPools())
}

// EffectivePrices are market prices scaled by the resource-price event effect.
func (s *State) EffectivePrices() map[market.ResourceID]float64 {
	return market.ApplyMultiplier(s.Market.Prices, s.Effects().Get(events.MetricResourcePrices))
}

func (s *State) modifiers(eff events.Effects) business.Modifiers {
	return business.Modifiers{
		Income:           eff.Get(events.MetricIncome),
		Expenses:         eff.Get(events.MetricExpenses),
		AnnualInflation:  s.Economy.Inflation,
		OwnerBonus:       s.Education.IncomeBonus(),
		Owned:            s.OwnedTypes(),
		CommunityPlayers: s.Community,
	}
}

// refreshBusinesses recomputes every business against the current modifiers.
func (s *State) refreshBusinesses() {
	mods := s.modifiers(s.Effects())
	for _, b := range s.Businesses {
		b.Refresh(mods)
	}
}

func (s *State) progress() achievements.Progress {
	p := achievements.Progress{
		Businesses:         len(s.Businesses),
		Wealth:             s.Wealth(),
		TotalStaked:        s.Staking.TotalStaked(),
		StakedPools:        len(s.Staking.StakedPools()),
		MaxTenure:          s.Staking.MaxTenure(),
		ProposalsSubmitted: s.Governance.Submitted,
		VotesCast:          s.Governance.Cast,
		EducationLevel:     int(s.Education.Level),
		Relationships:      len(s.Relations),
		BankAccounts:       len(s.Banking.Accounts),
		LoansRepaid:        s.Banking.LoansRepaid,
		CreditScore:        s.Banking.CreditScore,
	}
	types := map[business.Type]bool{}
	for _, b := range s.Businesses {
		types[b.Type] = true
		if b.Level > p.MaxBusinessLevel {
			p.MaxBusinessLevel = b.Level
		}
	}
	p.BusinessTypes = len(types)
	return p
}

func (s *State) monthlyHousingCost() float64 {
	h, err := economy.LookupHousing(s.Housing)
	if err != nil {
		return 0
	}
	return h.MonthlyCost * s.Economy.PriceIndex
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
