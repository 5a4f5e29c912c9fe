package game

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"billionaire_empire/internal/banking"
	"billionaire_empire/internal/business"
	"billionaire_empire/internal/config"
	"billionaire_empire/internal/economy"
	"billionaire_empire/internal/events"
	"billionaire_empire/internal/governance"
	"billionaire_empire/internal/market"
	"billionaire_empire/internal/rng"
	"billionaire_empire/internal/staking"
)

var (
	ErrUnknownEntity     = errors.New("unknown entity")
	ErrInsufficientCash  = errors.New("insufficient cash")
	ErrInvalidDays       = errors.New("invalid number of days")
	ErrDailyLimit        = errors.New("daily action limit reached")
	ErrInvalidInput      = errors.New("invalid input")
	ErrRelationshipLimit = errors.New("relationship limit reached for current housing")
	ErrStateVersion      = errors.New("unsupported state version")
)

// unknownEntityErrors are lookup failures of the sub-engines.
var unknownEntityErrors = []error{
	staking.ErrUnknownPool,
	business.ErrUnknownType,
	business.ErrUnknownUpgrade,
	business.ErrUnknownRole,
	events.ErrUnknownType,
	governance.ErrUnknownProposal,
	banking.ErrUnknownAccount,
	banking.ErrUnknownAccountKind,
	banking.ErrUnknownLoan,
	economy.ErrUnknownHousing,
	economy.ErrUnknownEducation,
	market.ErrUnknownResource,
}

func classify(err error) error {
	if err == nil || errors.Is(err, ErrUnknownEntity) {
		return err
	}
	for _, target := range unknownEntityErrors {
		if errors.Is(err, target) {
			return fmt.Errorf("%w: %w", ErrUnknownEntity, err)
		}
	}
	return err
}

// Observation describes one finished engine operation.
type Observation struct {
	PlayerID string
	Op       string
	Err      error
	Duration time.Duration
	State    *State // published snapshot after the operation, read-only
}

// Observer is notified after every mutating operation, outside the engine lock.
type Observer interface {
	Observe(Observation)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Observation)

func (f ObserverFunc) Observe(o Observation) { f(o) }

// Engine - единственный координатор состояния игрока. Каждая мутация
// клонирует снимок, применяет операцию и публикует новый снимок только при успехе.
type Engine struct {
	mu        sync.RWMutex
	state     *State
	rules     config.Rules
	src       rng.Source
	models    *economy.MathematicalModels
	observers []Observer
}

// New starts a fresh game. A nil src falls back to a time-seeded source.
func New(playerID string, rules config.Rules, src rng.Source) (*Engine, error) {
	if err := rules.Validate(); err != nil {
		return nil, fmt.Errorf("rules: %w", err)
	}
	st, err := NewState(playerID, rules)
	if err != nil {
		return nil, err
	}
	if src == nil {
		src = rng.NewSeeded(time.Now().UnixNano())
	}
	return &Engine{
		state:  st,
		rules:  rules,
		src:    src,
		models: economy.NewMathematicalModels(rules.BaseInflation),
	}, nil
}

// AddObserver registers o. Not safe to call concurrently with mutations.
func (e *Engine) AddObserver(o Observer) {
	e.observers = append(e.observers, o)
}

// Rules returns the balance the engine runs with.
func (e *Engine) Rules() config.Rules {
	return e.rules
}

// PlayerID of the game.
func (e *Engine) PlayerID() string {
	return e.current().PlayerID
}

func (e *Engine) current() *State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

// Snapshot returns a deep copy of the current state.
func (e *Engine) Snapshot() *State {
	return e.current().Clone()
}

// Restore replaces the whole state with st after a version check and
// State.Validate. A rejected st leaves the current game untouched.
func (e *Engine) Restore(st *State) error {
	if st == nil {
		return fmt.Errorf("%w: nil state", ErrInvalidInput)
	}
	if st.Version != StateVersion {
		return fmt.Errorf("%w: got %d, want %d", ErrStateVersion, st.Version, StateVersion)
	}
	if err := st.Validate(); err != nil {
		return err
	}
	next := st.Clone()
	if next.Market.Prices == nil {
		next.Market.Prices = market.DefaultPrices()
	}
	e.mu.Lock()
	e.state = next
	e.mu.Unlock()
	log.Printf("game: state restored for %s at %s (day %d)", next.PlayerID, next.Now().Format("2006-01-02"), next.Time.DaysPassed)
	e.notify("restore", nil, 0)
	return nil
}

// apply runs fn against a clone and publishes it only when fn succeeds.
func (e *Engine) apply(op string, fn func(st *State) error) error {
	started := time.Now()
	e.mu.Lock()
	next := e.state.Clone()
	err := classify(fn(next))
	if err == nil {
		e.state = next
	}
	e.mu.Unlock()

	e.notify(op, err, time.Since(started))
	return err
}

// act is apply for player actions, which count against the daily limit.
func (e *Engine) act(op string, fn func(st *State) error) error {
	return e.apply(op, func(st *State) error {
		if !sameDay(st.Daily.Day, st.Now()) {
			st.Daily.Day = st.Now()
			st.Daily.Actions = 0
		}
		if st.Daily.Actions >= e.rules.DailyActionLimit {
			return fmt.Errorf("%w: %d", ErrDailyLimit, e.rules.DailyActionLimit)
		}
		if err := fn(st); err != nil {
			return err
		}
		st.Daily.Actions++
		return nil
	})
}

func (e *Engine) notify(op string, err error, d time.Duration) {
	if len(e.observers) == 0 {
		return
	}
	st := e.current()
	o := Observation{PlayerID: st.PlayerID, Op: op, Err: err, Duration: d, State: st}
	for _, obs := range e.observers {
		obs.Observe(o)
	}
}

func spendCash(st *State, amount float64) error {
	if st.Player.Cash < amount {
		return fmt.Errorf("%w: have %.2f, need %.2f", ErrInsufficientCash, st.Player.Cash, amount)
	}
	st.Player.Cash -= amount
	return nil
}
