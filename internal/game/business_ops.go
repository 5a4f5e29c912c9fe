package game

import (
	"fmt"
	"log"

	"billionaire_empire/internal/business"
	"billionaire_empire/internal/market"
)

func findBusiness(st *State, id string) (*business.Business, int, error) {
	b, i := st.Business(id)
	if b == nil {
		return nil, -1, fmt.Errorf("%w: business %s", ErrUnknownEntity, id)
	}
	return b, i, nil
}

// AddBusiness buys a level-1 business of type t.
func (e *Engine) AddBusiness(t business.Type) (*business.Business, error) {
	var out *business.Business
	err := e.act("add_business", func(st *State) error {
		b, cost, err := business.New(t, st.Now())
		if err != nil {
			return err
		}
		if err := spendCash(st, cost); err != nil {
			return err
		}
		st.Businesses = append(st.Businesses, b)
		st.refreshBusinesses()
		out = b.Clone()
		log.Printf("game: %s bought %s for %.0f", st.PlayerID, t, cost)
		return nil
	})
	return out, err
}

// UpgradeBusiness buys upgrade kind for business id.
func (e *Engine) UpgradeBusiness(id string, kind business.UpgradeKind) (*business.Business, error) {
	var out *business.Business
	err := e.act("upgrade_business", func(st *State) error {
		b, _, err := findBusiness(st, id)
		if err != nil {
			return err
		}
		cost, err := b.UpgradeCost(kind)
		if err != nil {
			return err
		}
		if err := spendCash(st, cost); err != nil {
			return err
		}
		if err := b.ApplyUpgrade(kind, cost); err != nil {
			return err
		}
		st.refreshBusinesses()
		out = b.Clone()
		return nil
	})
	return out, err
}

// HireStaff hires role for business id, paying the first month upfront.
func (e *Engine) HireStaff(id string, role business.Role) (business.StaffMember, error) {
	var out business.StaffMember
	err := e.act("hire_staff", func(st *State) error {
		b, _, err := findBusiness(st, id)
		if err != nil {
			return err
		}
		cost, err := business.HireCost(role)
		if err != nil {
			return err
		}
		if err := spendCash(st, cost); err != nil {
			return err
		}
		m, err := b.Hire(role, st.Now())
		if err != nil {
			return err
		}
		st.refreshBusinesses()
		out = m
		return nil
	})
	return out, err
}

// SignSupplyDeal locks the current market price of res for months.
func (e *Engine) SignSupplyDeal(id string, res market.ResourceID, quantity float64, months int) (business.SupplyDeal, error) {
	var out business.SupplyDeal
	err := e.act("supply_deal", func(st *State) error {
		b, _, err := findBusiness(st, id)
		if err != nil {
			return err
		}
		price, ok := st.EffectivePrices()[res]
		if !ok {
			return fmt.Errorf("%w: %s", market.ErrUnknownResource, res)
		}
		d, err := b.AddSupplyDeal(res, quantity, price, months)
		if err != nil {
			return err
		}
		st.refreshBusinesses()
		out = d
		return nil
	})
	return out, err
}

// SellBusiness removes business id and pays out its sale price.
func (e *Engine) SellBusiness(id string) (float64, error) {
	var out float64
	err := e.act("sell_business", func(st *State) error {
		b, i, err := findBusiness(st, id)
		if err != nil {
			return err
		}
		price := b.SalePrice()
		st.Businesses = append(st.Businesses[:i], st.Businesses[i+1:]...)
		st.Player.Cash += price
		st.refreshBusinesses()
		out = price
		log.Printf("game: %s sold %s for %.0f", st.PlayerID, b.Type, price)
		return nil
	})
	return out, err
}
