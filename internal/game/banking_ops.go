package game

import (
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"

	"billionaire_empire/internal/banking"
	"billionaire_empire/internal/economy"
)

// OpenAccount opens a bank account of kind.
func (e *Engine) OpenAccount(kind banking.AccountKind) (banking.Account, error) {
	var out banking.Account
	err := e.act("open_account", func(st *State) error {
		a, err := st.Banking.OpenAccount(kind, st.Now())
		if err != nil {
			return err
		}
		out = *a
		return nil
	})
	return out, err
}

// Deposit moves cash into account id.
func (e *Engine) Deposit(id string, amount float64) (banking.Account, error) {
	var out banking.Account
	err := e.act("deposit", func(st *State) error {
		if amount <= 0 || math.IsNaN(amount) {
			return banking.ErrInvalidAmount
		}
		if err := spendCash(st, amount); err != nil {
			return err
		}
		a, err := st.Banking.Deposit(id, amount)
		if err != nil {
			return err
		}
		out = *a
		return nil
	})
	return out, err
}

// Withdraw moves money from account id to cash.
func (e *Engine) Withdraw(id string, amount float64) (banking.Account, error) {
	var out banking.Account
	err := e.act("withdraw", func(st *State) error {
		a, err := st.Banking.Withdraw(id, amount)
		if err != nil {
			return err
		}
		st.Player.Cash += amount
		out = *a
		return nil
	})
	return out, err
}

// LoanEligibility checks whether amount could be borrowed now.
func (e *Engine) LoanEligibility(amount float64) banking.LoanEligibility {
	st := e.current()
	return st.Banking.CheckEligibility(amount, st.Wealth())
}

// TakeLoan borrows amount over termMonths and credits the cash.
func (e *Engine) TakeLoan(amount float64, termMonths int) (banking.Loan, error) {
	var out banking.Loan
	err := e.act("take_loan", func(st *State) error {
		l, err := st.Banking.TakeLoan(amount, termMonths, st.Wealth(), st.Now())
		if err != nil {
			return err
		}
		st.Player.Cash += amount
		out = *l
		return nil
	})
	return out, err
}

// RepayLoan pays up to amount of loan id from cash and returns what was paid.
func (e *Engine) RepayLoan(id string, amount float64) (float64, error) {
	var out float64
	err := e.act("repay_loan", func(st *State) error {
		l, err := st.Banking.Loan(id)
		if err != nil {
			return err
		}
		due := math.Min(amount, l.Remaining)
		if st.Player.Cash < due {
			return fmt.Errorf("%w: have %.2f, need %.2f", ErrInsufficientCash, st.Player.Cash, due)
		}
		paid, err := st.Banking.Repay(id, amount, st.Now())
		if err != nil {
			return err
		}
		st.Player.Cash -= paid
		out = paid
		return nil
	})
	return out, err
}

// SetHousing moves into tier, paying its first month at current prices.
func (e *Engine) SetHousing(tier economy.HousingTier) (economy.Housing, error) {
	var out economy.Housing
	err := e.act("set_housing", func(st *State) error {
		h, err := economy.LookupHousing(tier)
		if err != nil {
			return err
		}
		if len(st.Relations) > h.MaxRelationships {
			return fmt.Errorf("%w: %s allows %d, have %d", ErrRelationshipLimit, tier, h.MaxRelationships, len(st.Relations))
		}
		if err := spendCash(st, h.MonthlyCost*st.Economy.PriceIndex); err != nil {
			return err
		}
		st.Housing = tier
		out = h
		return nil
	})
	return out, err
}

// Enroll starts the next education level.
func (e *Engine) Enroll(level economy.EducationLevel) (economy.Enrollment, error) {
	var out economy.Enrollment
	err := e.act("enroll", func(st *State) error {
		cost, err := st.Education.Enroll(level, st.Now())
		if err != nil {
			return err
		}
		if err := spendCash(st, cost*st.Economy.PriceIndex); err != nil {
			return err
		}
		out = *st.Education.Enrolled
		return nil
	})
	return out, err
}

// AddRelationship records a new acquaintance, capped by the housing tier.
func (e *Engine) AddRelationship(name, kind string) (Relationship, error) {
	var out Relationship
	err := e.act("add_relationship", func(st *State) error {
		name = strings.TrimSpace(name)
		if name == "" {
			return fmt.Errorf("%w: relationship name is required", ErrInvalidInput)
		}
		h, err := economy.LookupHousing(st.Housing)
		if err != nil {
			return err
		}
		if len(st.Relations) >= h.MaxRelationships {
			return fmt.Errorf("%w: %d", ErrRelationshipLimit, h.MaxRelationships)
		}
		r := Relationship{ID: uuid.NewString(), Name: name, Kind: strings.TrimSpace(kind), Since: st.Now()}
		st.Relations = append(st.Relations, r)
		out = r
		return nil
	})
	return out, err
}

// SetCommunityPlayers updates the community size that gates cluster bonuses.
func (e *Engine) SetCommunityPlayers(n int) error {
	return e.apply("set_community", func(st *State) error {
		if n < 0 {
			return fmt.Errorf("%w: community players must be >= 0", ErrInvalidInput)
		}
		st.Community = n
		st.refreshBusinesses()
		return nil
	})
}
