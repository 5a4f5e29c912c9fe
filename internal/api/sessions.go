package api

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log"
	"sort"
	"sync"
	"time"

	"billionaire_empire/internal/config"
	"billionaire_empire/internal/database"
	"billionaire_empire/internal/game"
	"billionaire_empire/internal/rng"
)

// Recorder receives session and store telemetry. monitoring.PrometheusMetrics implements it.
type Recorder interface {
	RecordStoreOp(op string, err error, duration time.Duration)
	UpdateActiveSessions(count int)
	RecordAdvance(res game.AdvanceResult)
}

type nopRecorder struct{}

func (nopRecorder) RecordStoreOp(string, error, time.Duration) {}
func (nopRecorder) UpdateActiveSessions(int) {}
func (nopRecorder) RecordAdvance(game.AdvanceResult) {}

// SessionOptions - параметры реестра сессий
type SessionOptions struct {
	Rules     config.Rules
	KeyPrefix string
	Seed      int64 // 0 - случайный источник
	Autosave  bool
	IdleTTL   time.Duration
	Recorder  Recorder
	Observers []game.Observer
}

type session struct {
	engine   *game.Engine
	lastUsed time.Time
	dirty    bool
	seq      uint64 // растет при каждом Touch

	saveMu sync.Mutex // один writer в store на игрока
}

// Sessions maps player ids to live engines. Engines are loaded from the store
// on first use and dropped after IdleTTL without requests.
type Sessions struct {
	mu      sync.Mutex
	store   database.Store
	opts    SessionOptions
	entries map[string]*session
	now     func() time.Time
}

func NewSessions(store database.Store, opts SessionOptions) *Sessions {
	if opts.Recorder == nil {
		opts.Recorder = nopRecorder{}
	}
	if opts.IdleTTL <= 0 {
		opts.IdleTTL = 30 * time.Minute
	}
	return &Sessions{
		store:   store,
		opts:    opts,
		entries: make(map[string]*session),
		now:     time.Now,
	}
}

func (s *Sessions) key(playerID string) string {
	return s.opts.KeyPrefix + playerID
}

func (s *Sessions) source(playerID string) rng.Source {
	if s.opts.Seed == 0 {
		return nil
	}
	// свой детерминированный поток на игрока
	h := fnv.New64a()
	_, _ = h.Write([]byte(playerID))
	return rng.NewSeeded(s.opts.Seed ^ int64(h.Sum64()>>1))
}

// Get returns the engine of playerID, restoring it from the store or
// starting a new game when nothing is stored. The store is read without
// holding the registry lock.
func (s *Sessions) Get(ctx context.Context, playerID string) (*game.Engine, error) {
	if eng, ok := s.lookup(playerID); ok {
		return eng, nil
	}

	eng, err := s.load(ctx, playerID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[playerID]; ok {
		// параллельный Get успел первым
		e.lastUsed = s.now()
		return e.engine, nil
	}
	s.entries[playerID] = &session{engine: eng, lastUsed: s.now()}
	s.opts.Recorder.UpdateActiveSessions(len(s.entries))
	return eng, nil
}

func (s *Sessions) lookup(playerID string) (*game.Engine, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[playerID]
	if !ok {
		return nil, false
	}
	e.lastUsed = s.now()
	return e.engine, true
}

func (s *Sessions) load(ctx context.Context, playerID string) (*game.Engine, error) {
	eng, err := game.New(playerID, s.opts.Rules, s.source(playerID))
	if err != nil {
		return nil, err
	}
	start := time.Now()
	data, err := s.store.Load(ctx, s.key(playerID))
	switch {
	case errors.Is(err, database.ErrNotFound):
		s.opts.Recorder.RecordStoreOp("load", nil, time.Since(start))
		log.Printf("sessions: new game for %s", playerID)
	case err != nil:
		s.opts.Recorder.RecordStoreOp("load", err, time.Since(start))
		return nil, fmt.Errorf("load %s: %w", playerID, err)
	default:
		s.opts.Recorder.RecordStoreOp("load", nil, time.Since(start))
		var st game.State
		if _, err := database.Decode(data, &st); err != nil {
			return nil, fmt.Errorf("decode %s: %w", playerID, err)
		}
		if err := eng.Restore(&st); err != nil {
			return nil, fmt.Errorf("restore %s: %w", playerID, err)
		}
	}
	for _, o := range s.opts.Observers {
		eng.AddObserver(o)
	}
	return eng, nil
}

// Touch records a successful mutation. With autosave the state is written
// immediately, otherwise on eviction or Close.
func (s *Sessions) Touch(ctx context.Context, playerID string) error {
	s.mu.Lock()
	e, ok := s.entries[playerID]
	if ok {
		e.dirty = true
		e.seq++
		e.lastUsed = s.now()
	}
	s.mu.Unlock()
	if !ok || !s.opts.Autosave {
		return nil
	}
	return s.Save(ctx, playerID)
}

// Save writes the current snapshot of playerID.
func (s *Sessions) Save(ctx context.Context, playerID string) error {
	s.mu.Lock()
	e, ok := s.entries[playerID]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: no session for %s", database.ErrNotFound, playerID)
	}
	return s.save(ctx, playerID, e)
}

// save holds e.saveMu from snapshot to store write, so writes of one player
// reach the store in snapshot order. dirty is cleared only when no Touch
// happened since the snapshot was taken.
func (s *Sessions) save(ctx context.Context, playerID string, e *session) error {
	e.saveMu.Lock()
	defer e.saveMu.Unlock()

	s.mu.Lock()
	seq := e.seq
	s.mu.Unlock()

	key := s.key(playerID)
	data, err := database.Encode(key, e.engine.Snapshot(), time.Now())
	if err != nil {
		return err
	}
	start := time.Now()
	err = s.store.Save(ctx, key, data)
	s.opts.Recorder.RecordStoreOp("save", err, time.Since(start))
	if err != nil {
		return fmt.Errorf("save %s: %w", playerID, err)
	}

	s.mu.Lock()
	if e.seq == seq {
		e.dirty = false
	}
	s.mu.Unlock()
	return nil
}

// Reset deletes the stored game of playerID and drops it from memory.
func (s *Sessions) Reset(ctx context.Context, playerID string) error {
	s.mu.Lock()
	e := s.entries[playerID]
	delete(s.entries, playerID)
	n := len(s.entries)
	s.mu.Unlock()
	s.opts.Recorder.UpdateActiveSessions(n)
	if e != nil {
		// не даем идущему сохранению вернуть удаленную игру
		e.saveMu.Lock()
		defer e.saveMu.Unlock()
	}

	start := time.Now()
	err := s.store.Delete(ctx, s.key(playerID))
	if errors.Is(err, database.ErrNotFound) {
		err = nil
	}
	s.opts.Recorder.RecordStoreOp("delete", err, time.Since(start))
	if err == nil {
		log.Printf("sessions: game of %s reset", playerID)
	}
	return err
}

// Evict saves and drops sessions idle for longer than IdleTTL.
func (s *Sessions) Evict(ctx context.Context) int {
	cutoff := s.now().Add(-s.opts.IdleTTL)
	s.mu.Lock()
	var idle []string
	for id, e := range s.entries {
		if e.lastUsed.Before(cutoff) {
			idle = append(idle, id)
		}
	}
	s.mu.Unlock()

	evicted := 0
	for _, id := range idle {
		s.mu.Lock()
		e, ok := s.entries[id]
		dirty := ok && e.dirty
		s.mu.Unlock()
		if !ok {
			continue
		}
		if dirty {
			if err := s.save(ctx, id, e); err != nil {
				log.Printf("sessions: keep %s in memory, save failed: %v", id, err)
				continue
			}
		}
		s.mu.Lock()
		// за время сохранения мог прийти запрос
		if cur, ok := s.entries[id]; ok && cur == e && e.lastUsed.Before(cutoff) {
			delete(s.entries, id)
			evicted++
		}
		s.mu.Unlock()
	}
	if evicted > 0 {
		s.mu.Lock()
		n := len(s.entries)
		s.mu.Unlock()
		s.opts.Recorder.UpdateActiveSessions(n)
		log.Printf("sessions: evicted %d idle games", evicted)
	}
	return evicted
}

// Run evicts idle sessions until ctx is done.
func (s *Sessions) Run(ctx context.Context) {
	interval := s.opts.IdleTTL / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Evict(ctx)
		}
	}
}

// Close saves every session with unsaved changes.
func (s *Sessions) Close(ctx context.Context) error {
	s.mu.Lock()
	ids := make([]string, 0, len(s.entries))
	for id, e := range s.entries {
		if e.dirty {
			ids = append(ids, id)
		}
	}
	s.mu.Unlock()
	sort.Strings(ids)

	var errs []error
	for _, id := range ids {
		if err := s.Save(ctx, id); err != nil {
			errs = append(errs, err)
		}
	}
	log.Printf("sessions: saved %d games on shutdown", len(ids)-len(errs))
	return errors.Join(errs...)
}

// Len returns the number of games in memory.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
