package achievements

import (
	"testing"
	"time"
)

var now = time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)

func TestCheckAndAwardIsIdempotent(t *testing.T) {
	b := NewBook()
	p := Progress{Businesses: 1, StakedPools: 1, TotalStaked: 500, Wealth: 150_000, CreditScore: 650}

	first := b.CheckAndAward(p, now)
	if len(first) != 3 {
		t.Fatalf("expected first_business, first_hundred_k, first_stake; got %+v", first)
	}
	reward := 0.0
	for _, u := range first {
		reward += u.Reward
	}
	if reward != 80 || b.TotalRewards != 80 {
		t.Errorf("expected 80 TON, got %v (book %v)", reward, b.TotalRewards)
	}

	second := b.CheckAndAward(p, now.Add(time.Hour))
	if len(second) != 0 {
		t.Errorf("second check must award nothing, got %+v", second)
	}
	if b.TotalRewards != 80 {
		t.Errorf("rewards changed on second check: %v", b.TotalRewards)
	}
}

func TestThresholds(t *testing.T) {
	tests := []struct {
		name string
		p    Progress
		want AchievementType
	}{
		{"millionaire", Progress{Wealth: 1_000_000}, AchievementTypeMillionaire},
		{"diamond hands", Progress{MaxTenure: 365}, AchievementTypeDiamondHands},
		{"scholar", Progress{EducationLevel: 5}, AchievementTypeScholar},
		{"excellent credit", Progress{CreditScore: 800}, AchievementTypeExcellentCredit},
		{"tycoon", Progress{MaxBusinessLevel: 10}, AchievementTypeBusinessTycoon},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBook()
			b.CheckAndAward(tt.p, now)
			if !b.Has(tt.want) {
				t.Errorf("%s should unlock at its threshold", tt.want)
			}
		})
	}

	b := NewBook()
	b.CheckAndAward(Progress{Wealth: 999_999, MaxTenure: 364}, now)
	if b.Has(AchievementTypeMillionaire) || b.Has(AchievementTypeDiamondHands) {
		t.Error("achievement unlocked below threshold")
	}
}

func TestStats(t *testing.T) {
	b := NewBook()
	b.CheckAndAward(Progress{Businesses: 5, BusinessTypes: 1}, now)

	s := b.Stats()
	if s.TotalAchievements != len(Catalog()) {
		t.Errorf("total: %d", s.TotalAchievements)
	}
	if s.CompletedAchievements != 2 || s.TotalRewards != 110 || s.TotalXP != 110 {
		t.Errorf("unexpected stats %+v", s)
	}
	if cs := s.ByCategory[CategoryBusiness]; cs.Completed != 2 || cs.Total != 4 || cs.Rewards != 110 {
		t.Errorf("business category: %+v", cs)
	}
	want := 2.0 / float64(len(Catalog())) * 100
	if s.CompletionPercentage != want {
		t.Errorf("completion: got %v want %v", s.CompletionPercentage, want)
	}
	if len(s.Recent) != 2 || s.Recent[0].Type != AchievementTypeBusinessEmpire {
		t.Errorf("recent should list newest first: %+v", s.Recent)
	}
}

func TestProgressCapsAtTarget(t *testing.T) {
	b := NewBook()
	for _, ap := range b.Progress(Progress{Wealth: 5e9}) {
		if ap.Current > ap.Target {
			t.Errorf("%s: current %v exceeds target %v", ap.Type, ap.Current, ap.Target)
		}
	}
}

func TestCloneIsolation(t *testing.T) {
	b := NewBook()
	c := b.Clone()
	c.CheckAndAward(Progress{Businesses: 1}, now)
	if b.Has(AchievementTypeFirstBusiness) || b.TotalRewards != 0 {
		t.Error("clone shares state with original")
	}
}
