package achievements

import (
	"log"
	"time"
)

// AchievementType represents different types of achievements
type AchievementType string

const (
	AchievementTypeFirstBusiness   AchievementType = "first_business"
	AchievementTypeBusinessEmpire  AchievementType = "business_empire"
	AchievementTypeBusinessTycoon  AchievementType = "business_tycoon"
	AchievementTypeDiversified     AchievementType = "diversified_portfolio"
	AchievementTypeFirstHundredK   AchievementType = "first_hundred_k"
	AchievementTypeMillionaire     AchievementType = "millionaire"
	AchievementTypeBillionaire     AchievementType = "billionaire"
	AchievementTypeFirstStake      AchievementType = "first_stake"
	AchievementTypePoolHopper      AchievementType = "pool_hopper"
	AchievementTypeWhale           AchievementType = "whale"
	AchievementTypeDiamondHands    AchievementType = "diamond_hands"
	AchievementTypeFirstProposal   AchievementType = "first_proposal"
	AchievementTypeActiveVoter     AchievementType = "active_voter"
	AchievementTypeGraduate        AchievementType = "graduate"
	AchievementTypeScholar         AchievementType = "scholar"
	AchievementTypeNetworker       AchievementType = "networker"
	AchievementTypeInfluencer      AchievementType = "influencer"
	AchievementTypeSaver           AchievementType = "saver"
	AchievementTypeDebtFree        AchievementType = "debt_free"
	AchievementTypeExcellentCredit AchievementType = "excellent_credit"
)

// Category groups achievements for stats
type Category string

const (
	CategoryBusiness   Category = "business"
	CategoryWealth     Category = "wealth"
	CategoryStaking    Category = "staking"
	CategoryGovernance Category = "governance"
	CategoryEducation  Category = "education"
	CategorySocial     Category = "social"
	CategoryBanking    Category = "banking"
)

// Progress is the aggregate player state every predicate is evaluated against
type Progress struct {
	Businesses         int     `json:"businesses"`
	BusinessTypes      int     `json:"business_types"`
	MaxBusinessLevel   int     `json:"max_business_level"`
	Wealth             float64 `json:"wealth"`
	TotalStaked        float64 `json:"total_staked"`
	StakedPools        int     `json:"staked_pools"`
	MaxTenure          int     `json:"max_tenure"`
	ProposalsSubmitted int     `json:"proposals_submitted"`
	VotesCast          int     `json:"votes_cast"`
	EducationLevel     int     `json:"education_level"`
	Relationships      int     `json:"relationships"`
	BankAccounts       int     `json:"bank_accounts"`
	LoansRepaid        int     `json:"loans_repaid"`
	CreditScore        int     `json:"credit_score"`
}

// Achievement represents a single achievement. It unlocks once Measure(progress) >= Target.
type Achievement struct {
	Type        AchievementType        `json:"type"`
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Icon        string                 `json:"icon"`
	Category    Category               `json:"category"`
	Reward      float64                `json:"reward"` // TON
	XP          int                    `json:"xp"`
	Target      float64                `json:"target"`
	Measure     func(Progress) float64 `json:"-"`
}

func count(f func(Progress) int) func(Progress) float64 {
	return func(p Progress) float64 { return float64(f(p)) }
}

var defaultAchievements = []Achievement{
	{
		Type: AchievementTypeFirstBusiness, Name: "First Venture", Description: "Open your first business",
		Icon: "🏪", Category: CategoryBusiness, Reward: 10, XP: 10, Target: 1,
		Measure: count(func(p Progress) int { return p.Businesses }),
	},
	{
		Type: AchievementTypeBusinessEmpire, Name: "Business Empire", Description: "Own 5 businesses at once",
		Icon: "🏢", Category: CategoryBusiness, Reward: 100, XP: 100, Target: 5,
		Measure: count(func(p Progress) int { return p.Businesses }),
	},
	{
		Type: AchievementTypeBusinessTycoon, Name: "Tycoon", Description: "Raise a business to level 10",
		Icon: "🏭", Category: CategoryBusiness, Reward: 250, XP: 250, Target: 10,
		Measure: count(func(p Progress) int { return p.MaxBusinessLevel }),
	},
	{
		Type: AchievementTypeDiversified, Name: "Diversified Portfolio", Description: "Own 4 different business types",
		Icon: "🧩", Category: CategoryBusiness, Reward: 150, XP: 150, Target: 4,
		Measure: count(func(p Progress) int { return p.BusinessTypes }),
	},
	{
		Type: AchievementTypeFirstHundredK, Name: "Six Figures", Description: "Reach 100,000 total wealth",
		Icon: "💵", Category: CategoryWealth, Reward: 50, XP: 50, Target: 100_000,
		Measure: func(p Progress) float64 { return p.Wealth },
	},
	{
		Type: AchievementTypeMillionaire, Name: "Millionaire", Description: "Reach 1,000,000 total wealth",
		Icon: "💰", Category: CategoryWealth, Reward: 250, XP: 250, Target: 1_000_000,
		Measure: func(p Progress) float64 { return p.Wealth },
	},
	{
		Type: AchievementTypeBillionaire, Name: "Billionaire", Description: "Reach 1,000,000,000 total wealth",
		Icon: "👑", Category: CategoryWealth, Reward: 5000, XP: 5000, Target: 1_000_000_000,
		Measure: func(p Progress) float64 { return p.Wealth },
	},
	{
		Type: AchievementTypeFirstStake, Name: "Skin in the Game", Description: "Stake into any pool",
		Icon: "🔒", Category: CategoryStaking, Reward: 20, XP: 20, Target: 1,
		Measure: count(func(p Progress) int { return p.StakedPools }),
	},
	{
		Type: AchievementTypePoolHopper, Name: "Pool Hopper", Description: "Hold stakes in 3 pools",
		Icon: "🌊", Category: CategoryStaking, Reward: 75, XP: 75, Target: 3,
		Measure: count(func(p Progress) int { return p.StakedPools }),
	},
	{
		Type: AchievementTypeWhale, Name: "Whale", Description: "Stake 100,000 TON in total",
		Icon: "🐋", Category: CategoryStaking, Reward: 1000, XP: 1000, Target: 100_000,
		Measure: func(p Progress) float64 { return p.TotalStaked },
	},
	{
		Type: AchievementTypeDiamondHands, Name: "Diamond Hands", Description: "Keep a stake for a full year",
		Icon: "💎", Category: CategoryStaking, Reward: 500, XP: 500, Target: 365,
		Measure: count(func(p Progress) int { return p.MaxTenure }),
	},
	{
		Type: AchievementTypeFirstProposal, Name: "Lawmaker", Description: "Submit a governance proposal",
		Icon: "📜", Category: CategoryGovernance, Reward: 50, XP: 50, Target: 1,
		Measure: count(func(p Progress) int { return p.ProposalsSubmitted }),
	},
	{
		Type: AchievementTypeActiveVoter, Name: "Active Voter", Description: "Vote on 10 proposals",
		Icon: "🗳️", Category: CategoryGovernance, Reward: 100, XP: 100, Target: 10,
		Measure: count(func(p Progress) int { return p.VotesCast }),
	},
	{
		Type: AchievementTypeGraduate, Name: "Graduate", Description: "Earn a bachelor's degree",
		Icon: "🎓", Category: CategoryEducation, Reward: 75, XP: 75, Target: 3,
		Measure: count(func(p Progress) int { return p.EducationLevel }),
	},
	{
		Type: AchievementTypeScholar, Name: "Scholar", Description: "Earn a doctorate",
		Icon: "📚", Category: CategoryEducation, Reward: 200, XP: 200, Target: 5,
		Measure: count(func(p Progress) int { return p.EducationLevel }),
	},
	{
		Type: AchievementTypeNetworker, Name: "Networker", Description: "Build 10 relationships",
		Icon: "🤝", Category: CategorySocial, Reward: 50, XP: 50, Target: 10,
		Measure: count(func(p Progress) int { return p.Relationships }),
	},
	{
		Type: AchievementTypeInfluencer, Name: "Influencer", Description: "Build 50 relationships",
		Icon: "🦋", Category: CategorySocial, Reward: 300, XP: 300, Target: 50,
		Measure: count(func(p Progress) int { return p.Relationships }),
	},
	{
		Type: AchievementTypeSaver, Name: "Saver", Description: "Open two bank accounts",
		Icon: "🏦", Category: CategoryBanking, Reward: 20, XP: 20, Target: 2,
		Measure: count(func(p Progress) int { return p.BankAccounts }),
	},
	{
		Type: AchievementTypeDebtFree, Name: "Debt Free", Description: "Pay off a loan",
		Icon: "🧾", Category: CategoryBanking, Reward: 60, XP: 60, Target: 1,
		Measure: count(func(p Progress) int { return p.LoansRepaid }),
	},
	{
		Type: AchievementTypeExcellentCredit, Name: "Excellent Credit", Description: "Reach a credit score of 800",
		Icon: "📈", Category: CategoryBanking, Reward: 150, XP: 150, Target: 800,
		Measure: count(func(p Progress) int { return p.CreditScore }),
	},
}

// Catalog returns the default achievement table
func Catalog() []Achievement {
	return append([]Achievement{}, defaultAchievements...)
}

// Unlocked is an achievement the player has earned
type Unlocked struct {
	Type       AchievementType `json:"type"`
	Name       string          `json:"name"`
	Category   Category        `json:"category"`
	Reward     float64         `json:"reward"`
	XP         int             `json:"xp"`
	UnlockedAt time.Time       `json:"unlocked_at"`
}

// Book tracks what a player has unlocked
type Book struct {
	Unlocked          map[AchievementType]Unlocked `json:"unlocked"`
	Order             []AchievementType            `json:"order"`
	TotalRewards      float64                      `json:"total_rewards"`
	TotalXP           int                          `json:"total_xp"`
	RewardsByCategory map[Category]float64         `json:"rewards_by_category"`
}

// NewBook creates an empty achievement book
func NewBook() *Book {
	return &Book{
		Unlocked:          map[AchievementType]Unlocked{},
		Order:             []AchievementType{},
		RewardsByCategory: map[Category]float64{},
	}
}

func (b *Book) Clone() *Book {
	c := &Book{
		Unlocked:          make(map[AchievementType]Unlocked, len(b.Unlocked)),
		Order:             append([]AchievementType{}, b.Order...),
		TotalRewards:      b.TotalRewards,
		TotalXP:           b.TotalXP,
		RewardsByCategory: make(map[Category]float64, len(b.RewardsByCategory)),
	}
	for k, v := range b.Unlocked {
		c.Unlocked[k] = v
	}
	for k, v := range b.RewardsByCategory {
		c.RewardsByCategory[k] = v
	}
	return c
}

// Has reports whether t was already unlocked
func (b *Book) Has(t AchievementType) bool {
	_, ok := b.Unlocked[t]
	return ok
}

// CheckAndAward evaluates every predicate and records the newly satisfied ones.
// The caller credits the returned rewards. A second call with unchanged
// progress returns nothing.
func (b *Book) CheckAndAward(p Progress, now time.Time) []Unlocked {
	var fresh []Unlocked
	for _, a := range defaultAchievements {
		if b.Has(a.Type) || a.Measure(p) < a.Target {
			continue
		}
		u := Unlocked{Type: a.Type, Name: a.Name, Category: a.Category, Reward: a.Reward, XP: a.XP, UnlockedAt: now}
		b.Unlocked[a.Type] = u
		b.Order = append(b.Order, a.Type)
		b.TotalRewards += a.Reward
		b.TotalXP += a.XP
		b.RewardsByCategory[a.Category] += a.Reward
		fresh = append(fresh, u)

		log.Printf("Achievement completed: %s (%s), reward: %.2f TON, XP: %d", a.Name, a.Category, a.Reward, a.XP)
	}
	return fresh
}

// AchievementProgress represents achievement progress data
type AchievementProgress struct {
	Type      AchievementType `json:"type"`
	Name      string          `json:"name"`
	Icon      string          `json:"icon"`
	Category  Category        `json:"category"`
	Current   float64         `json:"current"`
	Target    float64         `json:"target"`
	Completed bool            `json:"completed"`
}

// Progress reports how close the player is to each achievement
func (b *Book) Progress(p Progress) []AchievementProgress {
	out := make([]AchievementProgress, 0, len(defaultAchievements))
	for _, a := range defaultAchievements {
		cur := a.Measure(p)
		if cur > a.Target {
			cur = a.Target
		}
		out = append(out, AchievementProgress{
			Type: a.Type, Name: a.Name, Icon: a.Icon, Category: a.Category,
			Current: cur, Target: a.Target, Completed: b.Has(a.Type),
		})
	}
	return out
}

// CategoryStats is the per-category slice of AchievementStats
type CategoryStats struct {
	Total     int     `json:"total"`
	Completed int     `json:"completed"`
	Rewards   float64 `json:"rewards"`
}

// AchievementStats represents achievement statistics
type AchievementStats struct {
	TotalAchievements     int                        `json:"total_achievements"`
	CompletedAchievements int                        `json:"completed_achievements"`
	TotalRewards          float64                    `json:"total_rewards"`
	TotalXP               int                        `json:"total_xp"`
	CompletionPercentage  float64                    `json:"completion_percentage"`
	ByCategory            map[Category]CategoryStats `json:"by_category"`
	Recent                []Unlocked                 `json:"recent"`
}

// Stats gets achievement statistics
func (b *Book) Stats() AchievementStats {
	stats := AchievementStats{
		TotalAchievements:     len(defaultAchievements),
		CompletedAchievements: len(b.Unlocked),
		TotalRewards:          b.TotalRewards,
		TotalXP:               b.TotalXP,
		ByCategory:            map[Category]CategoryStats{},
		Recent:                []Unlocked{},
	}
	for _, a := range defaultAchievements {
		cs := stats.ByCategory[a.Category]
		cs.Total++
		if b.Has(a.Type) {
			cs.Completed++
			cs.Rewards += a.Reward
		}
		stats.ByCategory[a.Category] = cs
	}
	if stats.TotalAchievements > 0 {
		stats.CompletionPercentage = float64(stats.CompletedAchievements) / float64(stats.TotalAchievements) * 100
	}

	from := len(b.Order) - 5
	if from < 0 {
		from = 0
	}
	for i := len(b.Order) - 1; i >= from; i-- {
		stats.Recent = append(stats.Recent, b.Unlocked[b.Order[i]])
	}
	return stats
}
