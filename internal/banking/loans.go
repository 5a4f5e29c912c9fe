package banking

import (
	"fmt"
	"log"
	"math"
	"time"

	"github.com/google/uuid"
)

// LoanStatus статус кредита
type LoanStatus string

const (
	LoanActive    LoanStatus = "active"
	LoanRepaid    LoanStatus = "repaid"
	LoanDefaulted LoanStatus = "defaulted"
)

const (
	MinTermMonths      = 1
	MaxTermMonths      = 120
	RequiredScore      = 580
	MaxLoanAmount      = 5_000_000
	defaultAfterMisses = 3

	onTimeBonus   = 5
	missedPenalty = 30
	payoffBonus   = 15
)

// Loan банковский кредит с аннуитетным платежом
type Loan struct {
	ID             string     `json:"id"`
	Principal      float64    `json:"principal"`
	AnnualRate     float64    `json:"annual_rate"` // %
	TermMonths     int        `json:"term_months"`
	MonthlyPayment float64    `json:"monthly_payment"`
	Remaining      float64    `json:"remaining"`
	PaymentsMade   int        `json:"payments_made"`
	Missed         int        `json:"missed"` // подряд
	Status         LoanStatus `json:"status"`
	TakenAt        time.Time  `json:"taken_at"`
	ClosedAt       *time.Time `json:"closed_at,omitempty"`
}

// LoanEligibility проверка eligibility для кредита
type LoanEligibility struct {
	IsEligible    bool    `json:"is_eligible"`
	MaxAmount     float64 `json:"max_amount"`
	Reason        string  `json:"reason"`
	CreditScore   int     `json:"credit_score"`
	RequiredScore int     `json:"required_score"`
	Wealth        float64 `json:"wealth"`
	ExistingDebt  float64 `json:"existing_debt"`
	InterestRate  float64 `json:"interest_rate"`
}

// RateForScore годовая ставка по кредитному рейтингу
func RateForScore(score int) float64 {
	switch {
	case score >= 800:
		return 4
	case score >= 740:
		return 6
	case score >= 670:
		return 9
	default:
		return 14
	}
}

// MonthlyPayment аннуитет: P·r / (1 - (1+r)^-n), r = annual/12
func MonthlyPayment(principal, annualRate float64, months int) float64 {
	if months <= 0 {
		return principal
	}
	r := annualRate / 100 / 12
	if r == 0 {
		return principal / float64(months)
	}
	return principal * r / (1 - math.Pow(1+r, -float64(months)))
}

// CheckEligibility проверяет, может ли игрок взять amount
func (b *Bank) CheckEligibility(amount, wealth float64) LoanEligibility {
	debt := b.TotalDebt()
	e := LoanEligibility{
		CreditScore:   b.CreditScore,
		RequiredScore: RequiredScore,
		Wealth:        wealth,
		ExistingDebt:  debt,
		InterestRate:  RateForScore(b.CreditScore),
	}

	if b.CreditScore < RequiredScore {
		e.Reason = fmt.Sprintf("Need credit score %d+, current: %d", RequiredScore, b.CreditScore)
		return e
	}
	for _, l := range b.Loans {
		if l.Status == LoanDefaulted {
			e.Reason = "Defaulted loan outstanding"
			return e
		}
	}

	// Половина капитала, масштабированная рейтингом, минус текущий долг
	scale := float64(b.CreditScore-MinCreditScore) / float64(MaxCreditScore-MinCreditScore)
	limit := math.Min(wealth*0.5, MaxLoanAmount)*scale - debt
	e.MaxAmount = math.Max(0, math.Floor(limit))

	if amount > e.MaxAmount {
		e.Reason = fmt.Sprintf("Amount %.0f exceeds maximum %.0f", amount, e.MaxAmount)
		return e
	}
	e.IsEligible = true
	return e
}

// TakeLoan выдает кредит. Наличные зачисляет вызывающий.
func (b *Bank) TakeLoan(amount float64, termMonths int, wealth float64, now time.Time) (*Loan, error) {
	if amount <= 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return nil, ErrInvalidAmount
	}
	if termMonths < MinTermMonths || termMonths > MaxTermMonths {
		return nil, fmt.Errorf("%w: %d months", ErrInvalidTerm, termMonths)
	}
	e := b.CheckEligibility(amount, wealth)
	if !e.IsEligible {
		return nil, fmt.Errorf("%w: %s", ErrNotEligible, e.Reason)
	}

	l := &Loan{
		ID:             uuid.NewString(),
		Principal:      amount,
		AnnualRate:     e.InterestRate,
		TermMonths:     termMonths,
		MonthlyPayment: MonthlyPayment(amount, e.InterestRate, termMonths),
		Remaining:      amount,
		Status:         LoanActive,
		TakenAt:        now,
	}
	b.Loans = append(b.Loans, l)
	return l, nil
}

// Loan ищет кредит по id
func (b *Bank) Loan(id string) (*Loan, error) {
	for _, l := range b.Loans {
		if l.ID == id {
			return l, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownLoan, id)
}

// Repay досрочно гасит до amount. Возвращает фактически списанную сумму.
func (b *Bank) Repay(id string, amount float64, now time.Time) (float64, error) {
	if amount <= 0 || math.IsNaN(amount) {
		return 0, ErrInvalidAmount
	}
	l, err := b.Loan(id)
	if err != nil {
		return 0, err
	}
	if l.Status == LoanRepaid {
		return 0, ErrLoanClosed
	}
	paid := math.Min(amount, l.Remaining)
	l.Remaining -= paid
	l.Missed = 0
	if l.Status == LoanDefaulted {
		l.Status = LoanActive
	}
	b.closeIfPaid(l, now)
	return paid, nil
}

// PaymentResult итог ежемесячной обработки кредитов
type PaymentResult struct {
	Paid        float64 `json:"paid"`
	Interest    float64 `json:"interest"`
	OnTime      int     `json:"on_time"`
	Missed      int     `json:"missed"`
	Defaulted   int     `json:"defaulted"`
	ScoreChange int     `json:"score_change"`
}

// ProcessPayments начисляет проценты и списывает платежи из cash.
// Платеж, на который не хватает cash, пропускается: -30 к рейтингу,
// после трех пропусков подряд кредит считается дефолтным.
func (b *Bank) ProcessPayments(cash float64, now time.Time) PaymentResult {
	var res PaymentResult
	before := b.CreditScore

	for _, l := range b.Loans {
		if l.Status != LoanActive {
			continue
		}
		interest := l.Remaining * l.AnnualRate / 100 / 12
		l.Remaining += interest
		res.Interest += interest
		b.InterestPaid += interest

		due := math.Min(l.MonthlyPayment, l.Remaining)
		if cash >= due {
			cash -= due
			l.Remaining -= due
			l.PaymentsMade++
			l.Missed = 0
			b.PaymentsMade++
			res.Paid += due
			res.OnTime++
			b.adjustScore(onTimeBonus)
			b.closeIfPaid(l, now)
			continue
		}

		l.Missed++
		b.PaymentsMissed++
		res.Missed++
		b.adjustScore(-missedPenalty)
		if l.Missed >= defaultAfterMisses {
			l.Status = LoanDefaulted
			res.Defaulted++
			log.Printf("banking: loan %s defaulted after %d missed payments (remaining %.2f)", l.ID, l.Missed, l.Remaining)
		}
	}

	res.ScoreChange = b.CreditScore - before
	return res
}

func (b *Bank) closeIfPaid(l *Loan, now time.Time) {
	if l.Remaining > 0.01 {
		return
	}
	l.Remaining = 0
	l.Status = LoanRepaid
	at := now
	l.ClosedAt = &at
	b.LoansRepaid++
	b.adjustScore(payoffBonus)
	log.Printf("banking: loan %s repaid (principal %.2f)", l.ID, l.Principal)
}

// TotalDebt остаток по всем незакрытым кредитам
func (b *Bank) TotalDebt() float64 {
	total := 0.0
	for _, l := range b.Loans {
		if l.Status != LoanRepaid {
			total += l.Remaining
		}
	}
	return total
}

// MonthlyObligations сумма плановых платежей
func (b *Bank) MonthlyObligations() float64 {
	total := 0.0
	for _, l := range b.Loans {
		if l.Status == LoanActive {
			total += math.Min(l.MonthlyPayment, l.Remaining)
		}
	}
	return total
}

// Stats статистика банка
type Stats struct {
	Accounts           []Account `json:"accounts"`
	TotalBalance       float64   `json:"total_balance"`
	TotalDebt          float64   `json:"total_debt"`
	CreditScore        int       `json:"credit_score"`
	CreditRating       string    `json:"credit_rating"`
	ActiveLoans        int       `json:"active_loans"`
	LoansRepaid        int       `json:"loans_repaid"`
	PaymentsMade       int       `json:"payments_made"`
	PaymentsMissed     int       `json:"payments_missed"`
	MonthlyObligations float64   `json:"monthly_obligations"`
	InterestEarned     float64   `json:"interest_earned"`
	InterestPaid       float64   `json:"interest_paid"`
	NetWorth           float64   `json:"net_worth"`
}

func (b *Bank) Stats() Stats {
	s := Stats{
		Accounts:           []Account{},
		TotalBalance:       b.TotalBalance(),
		TotalDebt:          b.TotalDebt(),
		CreditScore:        b.CreditScore,
		CreditRating:       CreditRating(b.CreditScore),
		LoansRepaid:        b.LoansRepaid,
		PaymentsMade:       b.PaymentsMade,
		PaymentsMissed:     b.PaymentsMissed,
		MonthlyObligations: b.MonthlyObligations(),
		InterestEarned:     b.InterestEarned,
		InterestPaid:       b.InterestPaid,
	}
	for _, a := range b.Accounts {
		s.Accounts = append(s.Accounts, *a)
	}
	for _, l := range b.Loans {
		if l.Status == LoanActive {
			s.ActiveLoans++
		}
	}
	s.NetWorth = s.TotalBalance - s.TotalDebt
	return s
}
