package game

import (
	"fmt"
	"math"

	"billionaire_empire/internal/economy"
)

// Validate checks a state that came from outside the engine (request body or
// store) before it is published. Nothing is repaired: the first violation is returned.
func (s *State) Validate() error {
	if s.PlayerID == "" {
		return fmt.Errorf("%w: empty player id", ErrInvalidInput)
	}
	if s.Staking == nil || s.Governance == nil || s.Events == nil || s.Awards == nil || s.Banking == nil {
		return fmt.Errorf("%w: incomplete state", ErrInvalidInput)
	}
	if math.IsNaN(s.Player.Cash) || math.IsInf(s.Player.Cash, 0) || s.Player.Experience < 0 {
		return fmt.Errorf("%w: player", ErrInvalidInput)
	}
	if s.Time.CurrentDate.IsZero() || s.Time.DaysPassed < 0 {
		return fmt.Errorf("%w: game clock", ErrInvalidInput)
	}

	seen := make(map[string]bool, len(s.Businesses))
	for i, b := range s.Businesses {
		if b == nil {
			return fmt.Errorf("%w: business #%d is null", ErrInvalidInput, i)
		}
		if err := b.Validate(); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
		if seen[b.ID] {
			return fmt.Errorf("%w: duplicate business %s", ErrInvalidInput, b.ID)
		}
		seen[b.ID] = true
	}

	checks := []func() error{
		s.Staking.Validate,
		s.Governance.Validate,
		s.Events.Validate,
		s.Banking.Validate,
	}
	for _, check := range checks {
		if err := check(); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
	}

	if _, err := economy.LookupHousing(s.Housing); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	if _, err := economy.LookupDegree(s.Education.Level); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	if s.Education.Enrolled != nil {
		if _, err := economy.LookupDegree(s.Education.Enrolled.Target); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
	}
	return nil
}
