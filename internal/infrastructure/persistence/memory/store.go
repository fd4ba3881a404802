// Package memory provides an in-memory Record Store. It implements the
// same contracts as the postgres implementation, including the
// uniqueness constraints the award paths rely on, and backs the
// application-layer tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/JoodasCode/hopium-prayer-app-sub000/internal/domain/badge"
	"github.com/JoodasCode/hopium-prayer-app-sub000/internal/domain/challenge"
	"github.com/JoodasCode/hopium-prayer-app-sub000/internal/domain/prayer"
	"github.com/JoodasCode/hopium-prayer-app-sub000/internal/domain/progression"
	"github.com/JoodasCode/hopium-prayer-app-sub000/internal/domain/shared"
)

// Store holds every collection behind one mutex, which also gives the
// snapshot isolation the streak calculator asks of the Record Store.
type Store struct {
	mu sync.RWMutex

	events     map[string]*prayer.CompletionEvent
	exemptions map[string]*prayer.ExemptionWindow

	transactions []*progression.XPTransaction
	txBySource   map[string]bool // userID/source/sourceID
	totals       map[string]int64

	earned map[string]*badge.UserBadge // userID/badgeID

	challenges map[string]*challenge.UserChallenge
	periods    map[string][]string // userID/period/periodKey -> instance IDs
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		events:     make(map[string]*prayer.CompletionEvent),
		exemptions: make(map[string]*prayer.ExemptionWindow),
		txBySource: make(map[string]bool),
		totals:     make(map[string]int64),
		earned:     make(map[string]*badge.UserBadge),
		challenges: make(map[string]*challenge.UserChallenge),
		periods:    make(map[string][]string),
	}
}

var (
	_ prayer.Repository      = (*Store)(nil)
	_ progression.Repository = (*Store)(nil)
	_ badge.Repository       = (*Store)(nil)
	_ challenge.Repository   = (*Store)(nil)
)

// ═══════════════════════════════════════════════════════════════════════════
// Prayer log
// ═══════════════════════════════════════════════════════════════════════════

func (s *Store) FetchEvents(ctx context.Context, userID string, rng shared.TimeRange) ([]*prayer.CompletionEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*prayer.CompletionEvent
	for _, e := range s.events {
		if e.UserID != userID {
			continue
		}
		if !rng.IsZero() && !rng.Contains(e.ScheduledAt) {
			continue
		}
		out = append(out, copyEvent(e))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ScheduledAt.Before(out[j].ScheduledAt)
	})
	return out, nil
}

func (s *Store) FetchExemptions(ctx context.Context, userID string) ([]*prayer.ExemptionWindow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*prayer.ExemptionWindow
	for _, w := range s.exemptions {
		if w.UserID == userID {
			out = append(out, copyWindow(w))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].StartDate.Before(out[j].StartDate)
	})
	return out, nil
}

func (s *Store) GetEvent(ctx context.Context, id string) (*prayer.CompletionEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.events[id]
	if !ok {
		return nil, shared.NewDomainError("memory", "GetEvent", shared.ErrNotFound,
			"unknown event ID: "+id)
	}
	return copyEvent(e), nil
}

func (s *Store) InsertEvent(ctx context.Context, event *prayer.CompletionEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.events[event.ID]; exists {
		return shared.NewDomainError("memory", "InsertEvent", shared.ErrConflict,
			"event already exists: "+event.ID)
	}
	s.events[event.ID] = copyEvent(event)
	return nil
}

func (s *Store) UpdateEvent(ctx context.Context, event *prayer.CompletionEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.events[event.ID]; !exists {
		return shared.NewDomainError("memory", "UpdateEvent", shared.ErrNotFound,
			"unknown event ID: "+event.ID)
	}
	s.events[event.ID] = copyEvent(event)
	return nil
}

func (s *Store) AddExemption(ctx context.Context, window *prayer.ExemptionWindow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.exemptions[window.ID]; exists {
		return shared.NewDomainError("memory", "AddExemption", shared.ErrConflict,
			"exemption already exists: "+window.ID)
	}
	s.exemptions[window.ID] = copyWindow(window)
	return nil
}

func (s *Store) CloseExemption(ctx context.Context, windowID string, end time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.exemptions[windowID]
	if !ok {
		return shared.NewDomainError("memory", "CloseExemption", shared.ErrNotFound,
			"unknown exemption ID: "+windowID)
	}
	return w.Close(end)
}

// ═══════════════════════════════════════════════════════════════════════════
// XP ledger
// ═══════════════════════════════════════════════════════════════════════════

func (s *Store) AppendTransaction(ctx context.Context, tx *progression.XPTransaction) (int64, error) {
	if err := tx.Validate(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if tx.SourceID != "" {
		key := tx.UserID + "/" + string(tx.Source) + "/" + tx.SourceID
		if s.txBySource[key] {
			return 0, shared.NewDomainError("memory", "AppendTransaction", shared.ErrConflict,
				"ledger entry already exists for source "+tx.SourceID)
		}
		s.txBySource[key] = true
	}

	cp := *tx
	s.transactions = append(s.transactions, &cp)
	s.totals[tx.UserID] += int64(tx.Amount)
	return s.totals[tx.UserID], nil
}

func (s *Store) TotalXP(ctx context.Context, userID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.totals[userID], nil
}

func (s *Store) ListTransactions(ctx context.Context, userID string, limit int) ([]*progression.XPTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*progression.XPTransaction
	for i := len(s.transactions) - 1; i >= 0; i-- {
		if s.transactions[i].UserID != userID {
			continue
		}
		cp := *s.transactions[i]
		out = append(out, &cp)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// Earned badges
// ═══════════════════════════════════════════════════════════════════════════

func (s *Store) ListEarned(ctx context.Context, userID string) ([]*badge.UserBadge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*badge.UserBadge
	for _, ub := range s.earned {
		if ub.UserID == userID {
			cp := *ub
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].EarnedAt.Before(out[j].EarnedAt)
	})
	return out, nil
}

func (s *Store) InsertIfAbsent(ctx context.Context, earned *badge.UserBadge, reward *progression.XPTransaction) (bool, error) {
	if err := reward.Validate(); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := earned.UserID + "/" + earned.BadgeID
	if _, exists := s.earned[key]; exists {
		return false, nil
	}

	if reward.SourceID != "" {
		srcKey := reward.UserID + "/" + string(reward.Source) + "/" + reward.SourceID
		if s.txBySource[srcKey] {
			return false, nil
		}
		s.txBySource[srcKey] = true
	}

	cp := *earned
	s.earned[key] = &cp
	txCp := *reward
	s.transactions = append(s.transactions, &txCp)
	s.totals[reward.UserID] += int64(reward.Amount)
	return true, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// Challenges
// ═══════════════════════════════════════════════════════════════════════════

func periodIndexKey(userID string, period challenge.Period, periodKey string) string {
	return userID + "/" + string(period) + "/" + periodKey
}

func (s *Store) UpsertInstancesIfAbsent(ctx context.Context, userID string, period challenge.Period, periodKey string, instances []*challenge.UserChallenge) ([]*challenge.UserChallenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := periodIndexKey(userID, period, periodKey)
	if ids, exists := s.periods[idx]; exists {
		return s.instancesLocked(ids), nil
	}

	ids := make([]string, 0, len(instances))
	for _, c := range instances {
		cp := *c
		s.challenges[c.ID] = &cp
		ids = append(ids, c.ID)
	}
	s.periods[idx] = ids
	return s.instancesLocked(ids), nil
}

func (s *Store) GetInstance(ctx context.Context, challengeID string) (*challenge.UserChallenge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.challenges[challengeID]
	if !ok {
		return nil, shared.NewDomainError("memory", "GetInstance", shared.ErrNotFound,
			"unknown challenge ID: "+challengeID)
	}
	cp := *c
	return &cp, nil
}

func (s *Store) ListInstances(ctx context.Context, userID string, period challenge.Period, periodKey string) ([]*challenge.UserChallenge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.instancesLocked(s.periods[periodIndexKey(userID, period, periodKey)]), nil
}

func (s *Store) UpdateInstance(ctx context.Context, instance *challenge.UserChallenge) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.challenges[instance.ID]; !exists {
		return shared.NewDomainError("memory", "UpdateInstance", shared.ErrNotFound,
			"unknown challenge ID: "+instance.ID)
	}
	cp := *instance
	s.challenges[instance.ID] = &cp
	return nil
}

func (s *Store) CompleteWithReward(ctx context.Context, instance *challenge.UserChallenge, reward *progression.XPTransaction) (int64, bool, error) {
	if err := reward.Validate(); err != nil {
		return 0, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.challenges[instance.ID]; !exists {
		return 0, false, shared.NewDomainError("memory", "CompleteWithReward", shared.ErrNotFound,
			"unknown challenge ID: "+instance.ID)
	}

	if reward.SourceID != "" {
		srcKey := reward.UserID + "/" + string(reward.Source) + "/" + reward.SourceID
		if s.txBySource[srcKey] {
			return 0, false, nil
		}
		s.txBySource[srcKey] = true
	}

	cp := *instance
	s.challenges[instance.ID] = &cp
	txCp := *reward
	s.transactions = append(s.transactions, &txCp)
	s.totals[reward.UserID] += int64(reward.Amount)
	return s.totals[reward.UserID], true, nil
}

func (s *Store) ExpireOverdue(ctx context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	expired := 0
	for _, c := range s.challenges {
		if c.Expire(now) {
			expired++
		}
	}
	return expired, nil
}

// instancesLocked resolves instance IDs under the held lock, returning
// copies in insertion order.
func (s *Store) instancesLocked(ids []string) []*challenge.UserChallenge {
	out := make([]*challenge.UserChallenge, 0, len(ids))
	for _, id := range ids {
		if c, ok := s.challenges[id]; ok {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out
}

func copyEvent(e *prayer.CompletionEvent) *prayer.CompletionEvent {
	cp := *e
	if e.CompletedAt != nil {
		at := *e.CompletedAt
		cp.CompletedAt = &at
	}
	return &cp
}

func copyWindow(w *prayer.ExemptionWindow) *prayer.ExemptionWindow {
	cp := *w
	if w.EndDate != nil {
		end := *w.EndDate
		cp.EndDate = &end
	}
	return &cp
}
