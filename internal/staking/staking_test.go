package staking

import (
	"errors"
	"math"
	"testing"
	"time"
)

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func almost(a, b float64) bool { return math.Abs(a-b) < 1e-6 }

func TestStakeScenario(t *testing.T) {
	l := NewLedger(1000)

	s, err := l.Stake(EconomicStability, 500, t0)
	if err != nil {
		t.Fatalf("Stake: %v", err)
	}
	if l.Balance != 500 {
		t.Errorf("balance: expected 500, got %v", l.Balance)
	}
	if l.Stakes[EconomicStability].Amount != 500 || s.Amount != 500 {
		t.Errorf("stake amount: expected 500, got %v", s.Amount)
	}
	if !almost(s.APY, 12) {
		t.Errorf("apy: expected 12, got %v", s.APY)
	}

	t.Run("ImmediateUnstakePaysFullPenalty", func(t *testing.T) {
		res, err := l.Unstake(EconomicStability, 500, t0)
		if err != nil {
			t.Fatalf("Unstake: %v", err)
		}
		if !almost(res.PenaltyRate, 0.05) {
			t.Errorf("penalty rate: expected 0.05, got %v", res.PenaltyRate)
		}
		if !almost(res.PenaltyAmount, 25) || !almost(res.NetAmount, 475) {
			t.Errorf("expected penalty 25 / net 475, got %v / %v", res.PenaltyAmount, res.NetAmount)
		}
		if !almost(l.Balance, 975) {
			t.Errorf("balance: expected 975, got %v", l.Balance)
		}
		if l.HasStake(EconomicStability) {
			t.Error("stake record should be removed")
		}
	})
}

func TestRoundTripLosesPenaltyInEveryPool(t *testing.T) {
	for _, p := range Pools() {
		t.Run(string(p.ID), func(t *testing.T) {
			start := p.MinStake * 2
			l := NewLedger(start)
			if _, err := l.Stake(p.ID, p.MinStake*2, t0); err != nil {
				t.Fatalf("Stake: %v", err)
			}
			res, err := l.Unstake(p.ID, p.MinStake*2, t0)
			if err != nil {
				t.Fatalf("Unstake: %v", err)
			}
			want := p.MinStake * 2 * p.MaxPenaltyRate
			if !almost(res.PenaltyAmount, want) {
				t.Errorf("penalty: expected %v, got %v", want, res.PenaltyAmount)
			}
			if l.Balance >= start {
				t.Errorf("balance should shrink after early round trip: %v >= %v", l.Balance, start)
			}
		})
	}
}

func TestStakeBoundaries(t *testing.T) {
	p, _ := LookupPool(EconomicStability)

	t.Run("ExactMinimum", func(t *testing.T) {
		l := NewLedger(1000)
		if _, err := l.Stake(p.ID, p.MinStake, t0); err != nil {
			t.Fatalf("staking exactly min should succeed: %v", err)
		}
	})

	t.Run("BelowMinimum", func(t *testing.T) {
		l := NewLedger(1000)
		_, err := l.Stake(p.ID, p.MinStake-0.01, t0)
		if !errors.Is(err, ErrBelowMinStake) {
			t.Fatalf("expected ErrBelowMinStake, got %v", err)
		}
		if l.Balance != 1000 || len(l.Stakes) != 0 || len(l.History) != 0 {
			t.Error("rejected stake must not change state")
		}
	})

	t.Run("InsufficientBalance", func(t *testing.T) {
		l := NewLedger(50)
		if _, err := l.Stake(p.ID, 100, t0); !errors.Is(err, ErrInsufficientBalance) {
			t.Fatalf("expected ErrInsufficientBalance, got %v", err)
		}
	})

	t.Run("MergedTotalAboveMaximum", func(t *testing.T) {
		l := NewLedger(100_000)
		if _, err := l.Stake(p.ID, 40_000, t0); err != nil {
			t.Fatal(err)
		}
		if _, err := l.Stake(p.ID, 10_001, t0); !errors.Is(err, ErrAboveMaxStake) {
			t.Fatalf("expected ErrAboveMaxStake, got %v", err)
		}
		if l.Stakes[p.ID].Amount != 40_000 {
			t.Errorf("stake changed after rejection: %v", l.Stakes[p.ID].Amount)
		}
	})

	t.Run("UnknownPool", func(t *testing.T) {
		l := NewLedger(1000)
		if _, err := l.Stake("moon_fund", 100, t0); !errors.Is(err, ErrUnknownPool) {
			t.Fatalf("expected ErrUnknownPool, got %v", err)
		}
	})

	t.Run("UppercaseLookup", func(t *testing.T) {
		if _, err := LookupPool("ECONOMIC_STABILITY"); err != nil {
			t.Fatalf("lookup should ignore case: %v", err)
		}
	})
}

func TestMergeKeepsStartDateAndRecomputesAPY(t *testing.T) {
	l := NewLedger(100_000)
	if _, err := l.Stake(EconomicStability, 5_000, t0); err != nil {
		t.Fatal(err)
	}
	later := t0.AddDate(0, 0, 10)
	s, err := l.Stake(EconomicStability, 15_000, later)
	if err != nil {
		t.Fatal(err)
	}
	if !s.StartDate.Equal(t0) {
		t.Errorf("start date should be preserved, got %v", s.StartDate)
	}
	if s.Amount != 20_000 {
		t.Errorf("amount: expected 20000, got %v", s.Amount)
	}
	want := 12 + math.Log10(2)
	if !almost(s.APY, want) {
		t.Errorf("apy: expected %v, got %v", want, s.APY)
	}
}

func TestUnstakeAfterLockHasNoPenalty(t *testing.T) {
	l := NewLedger(1000)
	l.Stake(EconomicStability, 500, t0)
	res, err := l.Unstake(EconomicStability, 500, t0.AddDate(0, 0, 30))
	if err != nil {
		t.Fatal(err)
	}
	if res.PenaltyAmount != 0 || res.NetAmount != 500 {
		t.Errorf("expected no penalty, got %+v", res)
	}
	if l.Balance != 1000 {
		t.Errorf("balance: expected 1000, got %v", l.Balance)
	}
}

func TestPartialUnstake(t *testing.T) {
	l := NewLedger(1000)
	l.Stake(EconomicStability, 500, t0)

	if _, err := l.Unstake(EconomicStability, 450, t0); !errors.Is(err, ErrBelowMinStake) {
		t.Fatalf("leaving 50 < min should fail, got %v", err)
	}
	if _, err := l.Unstake(EconomicStability, 600, t0); !errors.Is(err, ErrAmountExceedsStake) {
		t.Fatalf("over-withdraw should fail, got %v", err)
	}

	// halfway through the lock
	res, err := l.Unstake(EconomicStability, 200, t0.AddDate(0, 0, 15))
	if err != nil {
		t.Fatal(err)
	}
	if !almost(res.PenaltyRate, 0.025) {
		t.Errorf("half-lock penalty rate: expected 0.025, got %v", res.PenaltyRate)
	}
	if res.Remaining != 300 || l.Stakes[EconomicStability].Amount != 300 {
		t.Errorf("remaining: expected 300, got %v", res.Remaining)
	}

	if _, err := l.Unstake(LiquidityReserve, 10, t0); !errors.Is(err, ErrNoStake) {
		t.Errorf("expected ErrNoStake, got %v", err)
	}
	if _, err := l.Unstake(EconomicStability, -1, t0); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestUnstakeMergedFloatAmount(t *testing.T) {
	l := NewLedger(1000)
	l.Stake(EconomicStability, 100.1, t0)
	l.Stake(EconomicStability, 200.2, t0)

	// 100.1 + 200.2 is not exactly 300.3 in float64
	res, err := l.Unstake(EconomicStability, 300.3, t0)
	if err != nil {
		t.Fatalf("full unstake of merged stake: %v", err)
	}
	if res.Remaining != 0 || l.HasStake(EconomicStability) {
		t.Errorf("stake should be closed, remaining %v", res.Remaining)
	}

	l.Stake(EconomicStability, 300, t0)
	if _, err := l.Unstake(EconomicStability, 300.5, t0); !errors.Is(err, ErrAmountExceedsStake) {
		t.Errorf("expected ErrAmountExceedsStake, got %v", err)
	}
}

func TestLedgerValidate(t *testing.T) {
	l := NewLedger(1000)
	l.Stake(EconomicStability, 500, t0)
	if err := l.Validate(); err != nil {
		t.Fatalf("valid ledger rejected: %v", err)
	}

	tests := []struct {
		name    string
		corrupt func(l *Ledger)
	}{
		{"AboveMax", func(l *Ledger) { l.Stakes[EconomicStability].Amount = 9_000_000 }},
		{"BelowMin", func(l *Ledger) { l.Stakes[EconomicStability].Amount = 1 }},
		{"NilStake", func(l *Ledger) { l.Stakes[GrowthFund] = nil }},
		{"UnknownPool", func(l *Ledger) { l.Stakes["moon"] = &Stake{Pool: "moon", Amount: 500} }},
		{"MisfiledStake", func(l *Ledger) { l.Stakes[EconomicStability].Pool = GrowthFund }},
		{"NegativeBalance", func(l *Ledger) { l.Balance = -1 }},
		{"NaNBalance", func(l *Ledger) { l.Balance = math.NaN() }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := l.Clone()
			tt.corrupt(c)
			if err := c.Validate(); !errors.Is(err, ErrInvalidLedger) {
				t.Errorf("expected ErrInvalidLedger, got %v", err)
			}
		})
	}
}

func TestCalculateAPY(t *testing.T) {
	p, _ := LookupPool(EconomicStability)
	tests := []struct {
		name     string
		amount   float64
		duration int
		want     float64
	}{
		{"base", 500, 30, 12},
		{"shorter than lock", 500, 10, 12},
		{"duration bonus", 500, 30 + 73, 14},
		{"duration bonus capped", 500, 30 + 1000, 17},
		{"amount bonus", 100_000, 30, 13},
		{"amount bonus capped", 1e9, 30, 15},
		{"both capped", 1e9, 5000, 20},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CalculateAPY(p, tt.amount, tt.duration); !almost(got, tt.want) {
				t.Errorf("got %v want %v", got, tt.want)
			}
		})
	}
}

func TestPenaltyRate(t *testing.T) {
	p, _ := LookupPool(TechInnovation)
	if r := PenaltyRate(p, 90); !almost(r, 0.10) {
		t.Errorf("full lock: %v", r)
	}
	if r := PenaltyRate(p, 500); !almost(r, 0.10) {
		t.Errorf("ratio must cap at 1: %v", r)
	}
	if r := PenaltyRate(p, 45); !almost(r, 0.05) {
		t.Errorf("half lock: %v", r)
	}
	if r := PenaltyRate(p, 0); r != 0 {
		t.Errorf("elapsed lock: %v", r)
	}
	if r := PenaltyRate(p, -3); r != 0 {
		t.Errorf("past lock: %v", r)
	}
}

func TestAccrueAndClaim(t *testing.T) {
	l := NewLedger(10_000)
	l.Stake(EconomicStability, 3650, t0)

	if _, err := l.ClaimRewards(t0); !errors.Is(err, ErrNothingToClaim) {
		t.Fatalf("expected ErrNothingToClaim, got %v", err)
	}

	// 3650 * 12% / 365 = 1.2 per day
	got := l.Accrue(10, 1)
	if !almost(got, 12) {
		t.Errorf("10 days of rewards: expected 12, got %v", got)
	}
	if !almost(l.Accrue(10, 0.5), 6) {
		t.Error("event multiplier not applied")
	}

	before := l.Balance
	claimed, err := l.ClaimRewards(t0)
	if err != nil {
		t.Fatal(err)
	}
	if !almost(claimed, 18) || !almost(l.Balance, before+18) || l.PendingRewards != 0 {
		t.Errorf("claim: claimed=%v balance=%v pending=%v", claimed, l.Balance, l.PendingRewards)
	}
}

func TestVotingPowerAndTenure(t *testing.T) {
	l := NewLedger(100_000)
	l.Stake(EconomicStability, 1000, t0)
	l.Stake(GovernanceCouncil, 1000, t0)

	if vp := VotingPower(l, 1); !almost(vp, 3000) {
		t.Errorf("no tenure: expected 3000, got %v", vp)
	}

	l.AdvanceTenure(95)
	if vp := VotingPower(l, 1); !almost(vp, 3300) {
		t.Errorf("95-day tenure: expected 3300, got %v", vp)
	}

	tests := []struct {
		days int
		want float64
	}{
		{0, 0}, {29, 0}, {30, 0.05}, {90, 0.10}, {179, 0.10}, {180, 0.20}, {365, 0.35}, {2000, 0.35},
	}
	for _, tt := range tests {
		if got := TenureBonus(tt.days); got != tt.want {
			t.Errorf("TenureBonus(%d) = %v, want %v", tt.days, got, tt.want)
		}
	}
}

func TestTierAndClone(t *testing.T) {
	l := NewLedger(20_000)
	if l.Tier() != TierNone {
		t.Errorf("empty ledger tier: %v", l.Tier())
	}
	l.Stake(GrowthFund, 10_000, t0)
	if l.Tier() != TierGold {
		t.Errorf("expected gold, got %v", l.Tier())
	}

	c := l.Clone()
	c.Stakes[GrowthFund].Amount = 1
	c.Tenure[GrowthFund] = 99
	if l.Stakes[GrowthFund].Amount != 10_000 || l.Tenure[GrowthFund] != 0 {
		t.Error("clone shares state with original")
	}
}
