package banking

import (
	"errors"
	"math"
	"testing"
	"time"
)

var now = time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

func TestAccounts(t *testing.T) {
	b := NewBank(650)

	chk, err := b.OpenAccount(Checking, now)
	if err != nil {
		t.Fatal(err)
	}
	sav, err := b.OpenAccount(Savings, now)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := b.OpenAccount(Savings, now); !errors.Is(err, ErrAccountExists) {
		t.Errorf("expected ErrAccountExists, got %v", err)
	}
	if _, err := b.OpenAccount("crypto", now); !errors.Is(err, ErrUnknownAccountKind) {
		t.Errorf("expected ErrUnknownAccountKind, got %v", err)
	}

	b.Deposit(chk.ID, 1000)
	b.Deposit(sav.ID, 1200)
	if _, err := b.Withdraw(chk.ID, 1001); !errors.Is(err, ErrInsufficientFunds) {
		t.Errorf("expected ErrInsufficientFunds, got %v", err)
	}
	if _, err := b.Deposit(chk.ID, -5); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("expected ErrInvalidAmount, got %v", err)
	}
	if _, err := b.Withdraw("missing", 1); !errors.Is(err, ErrUnknownAccount) {
		t.Errorf("expected ErrUnknownAccount, got %v", err)
	}

	// 1200 * 2.5% / 12 = 2.5
	if got := b.ApplyMonthlyInterest(); math.Abs(got-2.5) > 1e-9 {
		t.Errorf("savings interest: expected 2.5, got %v", got)
	}
	if chk.Balance != 1000 {
		t.Error("checking accounts earn nothing")
	}
	if math.Abs(b.TotalBalance()-2202.5) > 1e-9 {
		t.Errorf("total balance: %v", b.TotalBalance())
	}
}

func TestEligibility(t *testing.T) {
	t.Run("LowScore", func(t *testing.T) {
		b := NewBank(500)
		e := b.CheckEligibility(100, 1_000_000)
		if e.IsEligible || e.Reason == "" {
			t.Errorf("score 500 should be rejected: %+v", e)
		}
		if _, err := b.TakeLoan(100, 12, 1_000_000, now); !errors.Is(err, ErrNotEligible) {
			t.Errorf("expected ErrNotEligible, got %v", err)
		}
	})

	t.Run("MaxAmountScalesWithScore", func(t *testing.T) {
		fair := NewBank(600).CheckEligibility(0, 100_000)
		great := NewBank(820).CheckEligibility(0, 100_000)
		if great.MaxAmount <= fair.MaxAmount {
			t.Errorf("better score should allow more: %v <= %v", great.MaxAmount, fair.MaxAmount)
		}
		if great.InterestRate >= fair.InterestRate {
			t.Errorf("better score should cost less: %v >= %v", great.InterestRate, fair.InterestRate)
		}
	})

	t.Run("ExistingDebtReducesLimit", func(t *testing.T) {
		b := NewBank(700)
		before := b.CheckEligibility(0, 100_000).MaxAmount
		if _, err := b.TakeLoan(5_000, 12, 100_000, now); err != nil {
			t.Fatal(err)
		}
		after := b.CheckEligibility(0, 100_000).MaxAmount
		if after != before-5_000 {
			t.Errorf("limit should drop by the debt: %v -> %v", before, after)
		}
	})

	t.Run("BadTerm", func(t *testing.T) {
		if _, err := NewBank(700).TakeLoan(100, 0, 100_000, now); !errors.Is(err, ErrInvalidTerm) {
			t.Errorf("expected ErrInvalidTerm, got %v", err)
		}
	})
}

func TestMonthlyPayment(t *testing.T) {
	if got := MonthlyPayment(1200, 0, 12); got != 100 {
		t.Errorf("zero-rate payment: %v", got)
	}
	p := MonthlyPayment(10_000, 6, 12)
	if p <= 10_000.0/12 || p > 900 {
		t.Errorf("6%% annuity payment out of range: %v", p)
	}
}

func TestProcessPayments(t *testing.T) {
	t.Run("OnTimeUntilPaidOff", func(t *testing.T) {
		b := NewBank(700)
		l, err := b.TakeLoan(1_200, 3, 100_000, now)
		if err != nil {
			t.Fatal(err)
		}
		for m := 1; m <= 3; m++ {
			res := b.ProcessPayments(1e6, now.AddDate(0, m, 0))
			if res.OnTime != 1 || res.Missed != 0 {
				t.Fatalf("month %d: %+v", m, res)
			}
		}
		if l.Status != LoanRepaid || b.LoansRepaid != 1 {
			t.Errorf("loan should be repaid after its term: %+v", l)
		}
		// 3 on-time payments + payoff
		if b.CreditScore != 700+3*5+15 {
			t.Errorf("credit score: expected 730, got %d", b.CreditScore)
		}
		if b.TotalDebt() != 0 {
			t.Errorf("debt left: %v", b.TotalDebt())
		}
	})

	t.Run("MissedPaymentsDefault", func(t *testing.T) {
		b := NewBank(700)
		l, _ := b.TakeLoan(1_000, 12, 100_000, now)
		for m := 1; m <= 3; m++ {
			b.ProcessPayments(0, now.AddDate(0, m, 0))
		}
		if l.Status != LoanDefaulted {
			t.Errorf("three misses should default the loan, got %s", l.Status)
		}
		if b.CreditScore != 700-3*30 {
			t.Errorf("credit score: expected 610, got %d", b.CreditScore)
		}
		if e := b.CheckEligibility(10, 100_000); e.IsEligible {
			t.Error("defaulted borrower must not get new loans")
		}
	})

	t.Run("ScoreBounds", func(t *testing.T) {
		b := NewBank(310)
		b.adjustScore(-100)
		if b.CreditScore != MinCreditScore {
			t.Errorf("score below floor: %d", b.CreditScore)
		}
		b.adjustScore(10_000)
		if b.CreditScore != MaxCreditScore {
			t.Errorf("score above ceiling: %d", b.CreditScore)
		}
	})
}

func TestRepay(t *testing.T) {
	b := NewBank(700)
	l, _ := b.TakeLoan(1_000, 12, 100_000, now)

	paid, err := b.Repay(l.ID, 400, now)
	if err != nil || paid != 400 || l.Remaining != 600 {
		t.Fatalf("partial repay: paid=%v remaining=%v err=%v", paid, l.Remaining, err)
	}
	paid, err = b.Repay(l.ID, 5_000, now)
	if err != nil || paid != 600 {
		t.Fatalf("repay should cap at remaining: paid=%v err=%v", paid, err)
	}
	if l.Status != LoanRepaid || b.CreditScore != 715 {
		t.Errorf("payoff: status=%s score=%d", l.Status, b.CreditScore)
	}
	if _, err := b.Repay(l.ID, 1, now); !errors.Is(err, ErrLoanClosed) {
		t.Errorf("expected ErrLoanClosed, got %v", err)
	}
	if _, err := b.Repay("nope", 1, now); !errors.Is(err, ErrUnknownLoan) {
		t.Errorf("expected ErrUnknownLoan, got %v", err)
	}
}

func TestCloneIsolation(t *testing.T) {
	b := NewBank(700)
	a, _ := b.OpenAccount(Savings, now)
	c := b.Clone()
	c.Deposit(a.ID, 100)
	c.TakeLoan(10, 12, 100_000, now)
	if a.Balance != 0 || len(b.Loans) != 0 {
		t.Error("clone shares state with original")
	}
}
