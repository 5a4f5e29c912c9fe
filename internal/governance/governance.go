package governance

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrInvalidBook = errors.New("invalid governance book")

// Category of a proposal.
type Category string

const (
	CategoryEconomicPolicy    Category = "economic_policy"
	CategoryStakingParameters Category = "staking_parameters"
	CategoryTreasury          Category = "treasury"
	CategoryFeature           Category = "feature"
	CategoryCommunity         Category = "community"
)

var categories = map[Category]bool{
	CategoryEconomicPolicy:    true,
	CategoryStakingParameters: true,
	CategoryTreasury:          true,
	CategoryFeature:           true,
	CategoryCommunity:         true,
}

// Status of a proposal. Passed and Failed are terminal.
type Status string

const (
	StatusActive Status = "active"
	StatusPassed Status = "passed"
	StatusFailed Status = "failed"
)

var (
	ErrInsufficientVotingPower = errors.New("voting power below proposal threshold")
	ErrNoVotingPower           = errors.New("no voting power")
	ErrUnknownProposal         = errors.New("unknown proposal")
	ErrProposalClosed          = errors.New("proposal is not active")
	ErrProposalExpired         = errors.New("voting period has ended")
	ErrAlreadyVoted            = errors.New("already voted on this proposal")
	ErrInvalidDraft            = errors.New("invalid proposal")
)

// Params are the governance balance knobs.
type Params struct {
	ProposalThreshold float64 `json:"proposal_threshold" yaml:"proposal_threshold"`
	RequiredQuorum    float64 `json:"required_quorum" yaml:"required_quorum"`
	VotingPeriodDays  int     `json:"voting_period_days" yaml:"voting_period_days"`
}

// DefaultParams returns the stock thresholds.
func DefaultParams() Params {
	return Params{ProposalThreshold: 1000, RequiredQuorum: 1000, VotingPeriodDays: 7}
}

// Draft is what a player submits.
type Draft struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Category    Category `json:"category"`
}

type Proposal struct {
	ID               string     `json:"id"`
	Title            string     `json:"title"`
	Description      string     `json:"description"`
	Category         Category   `json:"category"`
	VotesFor         float64    `json:"votes_for"`
	VotesAgainst     float64    `json:"votes_against"`
	TotalVotingPower float64    `json:"total_voting_power"`
	Status           Status     `json:"status"`
	CreatedAt        time.Time  `json:"created_at"`
	EndDate          time.Time  `json:"end_date"`
	RequiredQuorum   float64    `json:"required_quorum"`
	FinalizedAt      *time.Time `json:"finalized_at,omitempty"`
}

// VoteRecord is the single vote a player cast on a proposal.
type VoteRecord struct {
	ProposalID string    `json:"proposal_id"`
	Support    bool      `json:"support"`
	Power      float64   `json:"power"`
	At         time.Time `json:"at"`
}

// Book holds a player's proposals and vote history.
type Book struct {
	Proposals map[string]*Proposal  `json:"proposals"`
	Order     []string              `json:"order"`
	Votes     map[string]VoteRecord `json:"votes"`
	Submitted int                   `json:"submitted"`
	Cast      int                   `json:"cast"`
}

func NewBook() *Book {
	return &Book{
		Proposals: map[string]*Proposal{},
		Order:     []string{},
		Votes:     map[string]VoteRecord{},
	}
}

// Clone returns a deep copy.
func (b *Book) Clone() *Book {
	c := &Book{
		Proposals: make(map[string]*Proposal, len(b.Proposals)),
		Order:     append([]string{}, b.Order...),
		Votes:     make(map[string]VoteRecord, len(b.Votes)),
		Submitted: b.Submitted,
		Cast:      b.Cast,
	}
	for id, p := range b.Proposals {
		cp := *p
		if p.FinalizedAt != nil {
			at := *p.FinalizedAt
			cp.FinalizedAt = &at
		}
		c.Proposals[id] = &cp
	}
	for id, v := range b.Votes {
		c.Votes[id] = v
	}
	return c
}

// Submit opens a proposal. Rejected when votingPower < ProposalThreshold.
func (b *Book) Submit(d Draft, votingPower float64, now time.Time, params Params) (*Proposal, error) {
	if votingPower < params.ProposalThreshold {
		return nil, fmt.Errorf("%w: %.2f < %.2f", ErrInsufficientVotingPower, votingPower, params.ProposalThreshold)
	}
	title := strings.TrimSpace(d.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: empty title", ErrInvalidDraft)
	}
	cat := Category(strings.ToLower(string(d.Category)))
	if cat == "" {
		cat = CategoryCommunity
	}
	if !categories[cat] {
		return nil, fmt.Errorf("%w: unknown category %q", ErrInvalidDraft, d.Category)
	}

	p := &Proposal{
		ID:             uuid.NewString(),
		Title:          title,
		Description:    strings.TrimSpace(d.Description),
		Category:       cat,
		Status:         StatusActive,
		CreatedAt:      now,
		EndDate:        now.AddDate(0, 0, params.VotingPeriodDays),
		RequiredQuorum: params.RequiredQuorum,
	}
	b.Proposals[p.ID] = p
	b.Order = append(b.Order, p.ID)
	b.Submitted++
	return p, nil
}

// Vote adds the caller's current voting power to one side. One vote per proposal.
func (b *Book) Vote(id string, support bool, votingPower float64, now time.Time) (*Proposal, error) {
	if votingPower <= 0 {
		return nil, ErrNoVotingPower
	}
	p, ok := b.Proposals[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProposal, id)
	}
	if p.Status != StatusActive {
		return nil, fmt.Errorf("%w: %s", ErrProposalClosed, p.Status)
	}
	if now.After(p.EndDate) {
		return nil, ErrProposalExpired
	}
	if _, voted := b.Votes[id]; voted {
		return nil, ErrAlreadyVoted
	}

	if support {
		p.VotesFor += votingPower
	} else {
		p.VotesAgainst += votingPower
	}
	p.TotalVotingPower += votingPower
	b.Votes[id] = VoteRecord{ProposalID: id, Support: support, Power: votingPower, At: now}
	b.Cast++
	return p, nil
}

// Finalize closes every active proposal whose voting period ended.
// Terminal proposals are left alone, so repeated sweeps are no-ops.
func (b *Book) Finalize(now time.Time) []Proposal {
	var done []Proposal
	for _, id := range b.Order {
		p := b.Proposals[id]
		if p.Status != StatusActive || !now.After(p.EndDate) {
			continue
		}
		if p.TotalVotingPower >= p.RequiredQuorum && p.VotesFor > p.VotesAgainst {
			p.Status = StatusPassed
		} else {
			p.Status = StatusFailed
		}
		at := now
		p.FinalizedAt = &at
		log.Printf("governance: proposal %s %q %s (for=%.0f against=%.0f quorum=%.0f)",
			p.ID, p.Title, p.Status, p.VotesFor, p.VotesAgainst, p.RequiredQuorum)
		done = append(done, *p)
	}
	return done
}

// Active lists proposals still open for voting at now.
func (b *Book) Active(now time.Time) []Proposal {
	out := []Proposal{}
	for _, id := range b.Order {
		p := b.Proposals[id]
		if p.Status == StatusActive && !now.After(p.EndDate) {
			out = append(out, *p)
		}
	}
	return out
}

// Stats summarises the book.
type Stats struct {
	Total       int     `json:"total"`
	Active      int     `json:"active"`
	Passed      int     `json:"passed"`
	Failed      int     `json:"failed"`
	VotesCast   int     `json:"votes_cast"`
	VotingPower float64 `json:"voting_power"`
	CanPropose  bool    `json:"can_propose"`
}

func (b *Book) Stats(now time.Time, votingPower float64, params Params) Stats {
	s := Stats{
		Total:       len(b.Order),
		VotesCast:   b.Cast,
		VotingPower: votingPower,
		CanPropose:  votingPower >= params.ProposalThreshold,
	}
	for _, p := range b.Proposals {
		switch p.Status {
		case StatusPassed:
			s.Passed++
		case StatusFailed:
			s.Failed++
		default:
			if !now.After(p.EndDate) {
				s.Active++
			}
		}
	}
	return s
}

// Validate checks a book restored from a snapshot.
func (b *Book) Validate() error {
	for id, p := range b.Proposals {
		if p == nil || p.ID != id {
			return fmt.Errorf("%w: proposal %q", ErrInvalidBook, id)
		}
	}
	if len(b.Order) != len(b.Proposals) {
		return fmt.Errorf("%w: %d ordered of %d proposals", ErrInvalidBook, len(b.Order), len(b.Proposals))
	}
	for _, id := range b.Order {
		if b.Proposals[id] == nil {
			return fmt.Errorf("%w: order references missing proposal %q", ErrInvalidBook, id)
		}
	}
	for id := range b.Votes {
		if b.Proposals[id] == nil {
			return fmt.Errorf("%w: vote on missing proposal %q", ErrInvalidBook, id)
		}
	}
	return nil
}
