package banking

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

var (
	ErrUnknownAccountKind = errors.New("unknown account kind")
	ErrAccountExists      = errors.New("account of this kind already open")
	ErrUnknownAccount     = errors.New("unknown account")
	ErrUnknownLoan        = errors.New("unknown loan")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrInvalidAmount      = errors.New("amount must be positive")
	ErrNotEligible        = errors.New("not eligible for loan")
	ErrInvalidTerm        = errors.New("invalid loan term")
	ErrLoanClosed         = errors.New("loan is closed")
	ErrInvalidBank        = errors.New("invalid bank state")
)

const (
	MinCreditScore = 300
	MaxCreditScore = 850
)

// AccountKind тип банковского счета
type AccountKind string

const (
	Checking AccountKind = "checking"
	Savings  AccountKind = "savings"
)

var accountAPY = map[AccountKind]float64{
	Checking: 0,
	Savings:  2.5,
}

// Account банковский счет игрока
type Account struct {
	ID       string      `json:"id"`
	Kind     AccountKind `json:"kind"`
	Balance  float64     `json:"balance"`
	APY      float64     `json:"apy"` // %
	OpenedAt time.Time   `json:"opened_at"`
}

// Bank счета, кредиты и кредитная история игрока
type Bank struct {
	Accounts       []*Account `json:"accounts"`
	Loans          []*Loan    `json:"loans"`
	CreditScore    int        `json:"credit_score"`
	LoansRepaid    int        `json:"loans_repaid"`
	PaymentsMade   int        `json:"payments_made"`
	PaymentsMissed int        `json:"payments_missed"`
	InterestEarned float64    `json:"interest_earned"`
	InterestPaid   float64    `json:"interest_paid"`
}

// NewBank создает банк с начальным кредитным рейтингом
func NewBank(creditScore int) *Bank {
	b := &Bank{Accounts: []*Account{}, Loans: []*Loan{}}
	b.setScore(creditScore)
	return b
}

// Clone глубокая копия
func (b *Bank) Clone() *Bank {
	c := *b
	c.Accounts = make([]*Account, len(b.Accounts))
	for i, a := range b.Accounts {
		cp := *a
		c.Accounts[i] = &cp
	}
	c.Loans = make([]*Loan, len(b.Loans))
	for i, l := range b.Loans {
		cp := *l
		if l.ClosedAt != nil {
			at := *l.ClosedAt
			cp.ClosedAt = &at
		}
		c.Loans[i] = &cp
	}
	return &c
}

// OpenAccount открывает счет. Один счет каждого вида.
func (b *Bank) OpenAccount(kind AccountKind, now time.Time) (*Account, error) {
	apy, ok := accountAPY[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAccountKind, kind)
	}
	for _, a := range b.Accounts {
		if a.Kind == kind {
			return nil, fmt.Errorf("%w: %s", ErrAccountExists, kind)
		}
	}
	a := &Account{ID: uuid.NewString(), Kind: kind, APY: apy, OpenedAt: now}
	b.Accounts = append(b.Accounts, a)
	return a, nil
}

// Account ищет счет по id
func (b *Bank) Account(id string) (*Account, error) {
	for _, a := range b.Accounts {
		if a.ID == id {
			return a, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownAccount, id)
}

// Deposit зачисляет amount на счет. Наличные списывает вызывающий.
func (b *Bank) Deposit(id string, amount float64) (*Account, error) {
	if amount <= 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return nil, ErrInvalidAmount
	}
	a, err := b.Account(id)
	if err != nil {
		return nil, err
	}
	a.Balance += amount
	return a, nil
}

// Withdraw списывает amount со счета
func (b *Bank) Withdraw(id string, amount float64) (*Account, error) {
	if amount <= 0 || math.IsNaN(amount) {
		return nil, ErrInvalidAmount
	}
	a, err := b.Account(id)
	if err != nil {
		return nil, err
	}
	if a.Balance < amount {
		return nil, fmt.Errorf("%w: have %.2f, need %.2f", ErrInsufficientFunds, a.Balance, amount)
	}
	a.Balance -= amount
	return a, nil
}

// ApplyMonthlyInterest начисляет месячные проценты на счета
func (b *Bank) ApplyMonthlyInterest() float64 {
	total := 0.0
	for _, a := range b.Accounts {
		if a.APY <= 0 || a.Balance <= 0 {
			continue
		}
		i := a.Balance * a.APY / 100 / 12
		a.Balance += i
		total += i
	}
	b.InterestEarned += total
	return total
}

// Balances остатки всех счетов
func (b *Bank) Balances() []float64 {
	out := make([]float64, 0, len(b.Accounts))
	for _, a := range b.Accounts {
		out = append(out, a.Balance)
	}
	return out
}

// TotalBalance сумма по счетам
func (b *Bank) TotalBalance() float64 {
	total := 0.0
	for _, a := range b.Accounts {
		total += a.Balance
	}
	return total
}

func (b *Bank) adjustScore(delta int) {
	b.setScore(b.CreditScore + delta)
}

func (b *Bank) setScore(s int) {
	if s < MinCreditScore {
		s = MinCreditScore
	}
	if s > MaxCreditScore {
		s = MaxCreditScore
	}
	b.CreditScore = s
}

// CreditRating текстовая оценка рейтинга
func CreditRating(score int) string {
	switch {
	case score >= 800:
		return "excellent"
	case score >= 740:
		return "very_good"
	case score >= 670:
		return "good"
	case score >= 580:
		return "fair"
	default:
		return "poor"
	}
}

// Validate checks a bank restored from a snapshot.
func (b *Bank) Validate() error {
	if b.CreditScore < MinCreditScore || b.CreditScore > MaxCreditScore {
		return fmt.Errorf("%w: credit score %d", ErrInvalidBank, b.CreditScore)
	}
	for _, a := range b.Accounts {
		if a == nil {
			return fmt.Errorf("%w: nil account", ErrInvalidBank)
		}
		if _, ok := accountAPY[a.Kind]; !ok {
			return fmt.Errorf("%w: %w: %s", ErrInvalidBank, ErrUnknownAccountKind, a.Kind)
		}
		if a.Balance < 0 || math.IsNaN(a.Balance) || math.IsInf(a.Balance, 0) {
			return fmt.Errorf("%w: account %s balance %.2f", ErrInvalidBank, a.ID, a.Balance)
		}
	}
	for _, l := range b.Loans {
		if l == nil {
			return fmt.Errorf("%w: nil loan", ErrInvalidBank)
		}
		if l.Remaining < 0 || math.IsNaN(l.Remaining) || l.TermMonths < MinTermMonths || l.TermMonths > MaxTermMonths {
			return fmt.Errorf("%w: loan %s", ErrInvalidBank, l.ID)
		}
	}
	return nil
}
