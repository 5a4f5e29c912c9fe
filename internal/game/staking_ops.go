package game

import (
	"billionaire_empire/internal/events"
	"billionaire_empire/internal/governance"
	"billionaire_empire/internal/staking"
)

// StakeTokens stakes amount TON into pool.
func (e *Engine) StakeTokens(pool staking.PoolID, amount float64) (staking.Stake, error) {
	var out staking.Stake
	err := e.act("stake", func(st *State) error {
		s, err := st.Staking.Stake(pool, amount, st.Now())
		if err != nil {
			return err
		}
		out = *s
		// стейк может включить защиту от событий
		st.refreshBusinesses()
		return nil
	})
	return out, err
}

// UnstakeTokens withdraws amount from pool, charging the early-withdrawal penalty.
func (e *Engine) UnstakeTokens(pool staking.PoolID, amount float64) (staking.UnstakeResult, error) {
	var out staking.UnstakeResult
	err := e.act("unstake", func(st *State) error {
		res, err := st.Staking.Unstake(pool, amount, st.Now())
		if err != nil {
			return err
		}
		out = res
		st.refreshBusinesses()
		return nil
	})
	return out, err
}

// ClaimStakingRewards moves pending rewards to the TON balance.
func (e *Engine) ClaimStakingRewards() (float64, error) {
	var out float64
	err := e.act("claim", func(st *State) error {
		amount, err := st.Staking.ClaimRewards(st.Now())
		out = amount
		return err
	})
	return out, err
}

// VotingPower of the player right now.
func (e *Engine) VotingPower() float64 {
	return staking.VotingPower(e.current().Staking, e.rules.VotingBaseWeight)
}

// SubmitProposal opens a governance proposal.
func (e *Engine) SubmitProposal(d governance.Draft) (governance.Proposal, error) {
	var out governance.Proposal
	err := e.act("submit_proposal", func(st *State) error {
		power := staking.VotingPower(st.Staking, e.rules.VotingBaseWeight)
		p, err := st.Governance.Submit(d, power, st.Now(), e.rules.Governance)
		if err != nil {
			return err
		}
		out = *p
		return nil
	})
	return out, err
}

// VoteOnProposal casts the player's full voting power for or against id.
func (e *Engine) VoteOnProposal(id string, support bool) (governance.Proposal, error) {
	var out governance.Proposal
	err := e.act("vote", func(st *State) error {
		power := staking.VotingPower(st.Staking, e.rules.VotingBaseWeight)
		p, err := st.Governance.Vote(id, support, power, st.Now())
		if err != nil {
			return err
		}
		out = *p
		return nil
	})
	return out, err
}

// TriggerEconomicEvent starts an event of type t now.
func (e *Engine) TriggerEconomicEvent(t events.Type) (events.Event, error) {
	var out events.Event
	err := e.apply("trigger_event", func(st *State) error {
		ev, err := st.Events.Trigger(e.src, t, st.Now())
		if err != nil {
			return err
		}
		out = ev
		st.refreshBusinesses()
		return nil
	})
	return out, err
}
