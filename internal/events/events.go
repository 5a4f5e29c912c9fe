package events

import (
	"fmt"
	"log"
	"math"
	"time"

	"github.com/google/uuid"

	"billionaire_empire/internal/rng"
	"billionaire_empire/internal/staking"
)

// Event is an active, time-boxed global modifier.
type Event struct {
	ID        string    `json:"id"`
	Type      Type      `json:"type"`
	Name      string    `json:"name"`
	Effects   Branches  `json:"effects"`
	StartDate time.Time `json:"start_date"`
	Duration  int       `json:"duration"` // days
	EndDate   time.Time `json:"end_date"`
}

// ActiveAt reports whether now < StartDate + Duration.
func (e Event) ActiveAt(now time.Time) bool {
	return now.Before(e.EndDate)
}

// Trigger creates an event of type t with a random duration in [MinDuration, MaxDuration].
func Trigger(src rng.Source, t Type, now time.Time) (Event, error) {
	def, err := Lookup(t)
	if err != nil {
		return Event{}, err
	}
	span := def.MaxDuration - def.MinDuration
	duration := def.MinDuration
	if span > 0 {
		duration += src.Intn(span + 1)
	}
	return Event{
		ID:        uuid.NewString(),
		Type:      def.Type,
		Name:      def.Name,
		Effects:   def.Effects.clone(),
		StartDate: now,
		Duration:  duration,
		EndDate:   now.AddDate(0, 0, duration),
	}, nil
}

// DailyChance converts a monthly probability into an independent per-day chance
// with the same odds of at least one occurrence over 30 days.
func DailyChance(monthly float64) float64 {
	if monthly <= 0 {
		return 0
	}
	if monthly >= 1 {
		return 1
	}
	return 1 - math.Pow(1-monthly, 1.0/30)
}

// Board is the set of events affecting one game.
type Board struct {
	Events    []Event `json:"events"`
	Expired   []Event `json:"expired"`
	Triggered int     `json:"triggered"`
}

const maxExpired = 50

func NewBoard() *Board {
	return &Board{Events: []Event{}, Expired: []Event{}}
}

// Clone returns a deep copy.
func (b *Board) Clone() *Board {
	c := &Board{Triggered: b.Triggered}
	c.Events = make([]Event, len(b.Events))
	for i, e := range b.Events {
		e.Effects = e.Effects.clone()
		c.Events[i] = e
	}
	c.Expired = append([]Event{}, b.Expired...)
	return c
}

// Trigger activates an event explicitly.
func (b *Board) Trigger(src rng.Source, t Type, now time.Time) (Event, error) {
	e, err := Trigger(src, t, now)
	if err != nil {
		return Event{}, err
	}
	b.add(e)
	return e, nil
}

// Sample rolls each event type once for the day. Types are independent, so
// several may start together; a type that is already running is skipped.
func (b *Board) Sample(src rng.Source, now time.Time) []Event {
	running := map[Type]bool{}
	for _, e := range b.Events {
		if e.ActiveAt(now) {
			running[e.Type] = true
		}
	}

	var started []Event
	for _, t := range Order {
		roll := src.Float64()
		if running[t] || roll >= DailyChance(definitions[t].Probability) {
			continue
		}
		e, _ := Trigger(src, t, now)
		b.add(e)
		started = append(started, e)
	}
	return started
}

func (b *Board) add(e Event) {
	b.Events = append(b.Events, e)
	b.Triggered++
	log.Printf("events: %s started, %d days (until %s)", e.Type, e.Duration, e.EndDate.Format("2006-01-02"))
}

// Refresh drops expired events from the active set and returns them.
func (b *Board) Refresh(now time.Time) []Event {
	var expired []Event
	kept := b.Events[:0]
	for _, e := range b.Events {
		if e.ActiveAt(now) {
			kept = append(kept, e)
			continue
		}
		expired = append(expired, e)
		log.Printf("events: %s expired", e.Type)
	}
	b.Events = kept
	if len(expired) > 0 {
		b.Expired = append(b.Expired, expired...)
		if len(b.Expired) > maxExpired {
			b.Expired = append([]Event{}, b.Expired[len(b.Expired)-maxExpired:]...)
		}
	}
	return expired
}

// Active filters without mutating, so getters stay read-only.
func (b *Board) Active(now time.Time) []Event {
	out := []Event{}
	for _, e := range b.Events {
		if e.ActiveAt(now) {
			out = append(out, e)
		}
	}
	return out
}

// ResolveEffects combines the active events into one multiplier per metric.
// For each event, a staked pool named in its staked branch overrides the
// matching unstaked metrics. Multipliers of concurrent events multiply.
// When two staked pools override the same metric, catalog pool order wins.
func ResolveEffects(active []Event, stakedPools []staking.PoolID) Effects {
	staked := map[staking.PoolID]bool{}
	for _, id := range stakedPools {
		staked[id] = true
	}

	out := Effects{}
	for _, e := range active {
		eff := e.Effects.Unstaked.clone()
		overridden := map[Metric]bool{}
		for _, id := range staking.PoolOrder {
			over, ok := e.Effects.Staked[id]
			if !ok || !staked[id] {
				continue
			}
			for m, v := range over {
				if overridden[m] {
					continue
				}
				eff[m] = v
				overridden[m] = true
			}
		}
		for m, v := range eff {
			out[m] = out.Get(m) * v
		}
	}
	return out
}

// Validate checks a board restored from a snapshot: only catalog types, sane dates.
func (b *Board) Validate() error {
	for _, e := range b.Events {
		if _, err := Lookup(e.Type); err != nil {
			return err
		}
		if e.Duration < 0 || e.EndDate.Before(e.StartDate) {
			return fmt.Errorf("%w: %s ends before it starts", ErrInvalidEvent, e.ID)
		}
	}
	return nil
}
