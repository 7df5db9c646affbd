package main

import (
	"slices"
	"sync"
)

// Sessions holds short-lived per-user conversation state: the draft proposal
// awaiting confirmation and the accumulating multi-select preference picks.
// Entries have no TTL; a draft lives until the next one overwrites it, which
// is the intended lifecycle. State is keyed by user id and only ever touched
// by that user's own updates.
type Sessions interface {
	Draft(userID int64) (*EventProposal, bool)
	SetDraft(userID int64, p *EventProposal)
	AddInterest(userID int64, interest string)
	Interests(userID int64) []string
	AddPreferredTime(userID int64, t string)
	PreferredTimes(userID int64) []string
}

type userSession struct {
	Draft          *EventProposal `json:"draft,omitempty"`
	Interests      []string       `json:"interests,omitempty"`
	PreferredTimes []string       `json:"preferred_times,omitempty"`
}

// addUnique appends value unless already present, preserving pick order.
func addUnique(list []string, value string) []string {
	if slices.Contains(list, value) {
		return list
	}
	return append(list, value)
}

// MemorySessions is the in-process Sessions implementation, the default for
// a single-instance deployment.
type MemorySessions struct {
	mu    sync.Mutex
	users map[int64]*userSession
}

func NewMemorySessions() *MemorySessions {
	return &MemorySessions{users: make(map[int64]*userSession)}
}

func (m *MemorySessions) session(userID int64) *userSession {
	s, ok := m.users[userID]
	if !ok {
		s = &userSession{}
		m.users[userID] = s
	}
	return s
}

func (m *MemorySessions) Draft(userID int64) (*EventProposal, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.session(userID)
	if s.Draft == nil {
		return nil, false
	}
	return s.Draft, true
}

func (m *MemorySessions) SetDraft(userID int64, p *EventProposal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session(userID).Draft = p
}

func (m *MemorySessions) AddInterest(userID int64, interest string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.session(userID)
	s.Interests = addUnique(s.Interests, interest)
}

func (m *MemorySessions) Interests(userID int64) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.session(userID).Interests)
}

func (m *MemorySessions) AddPreferredTime(userID int64, t string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.session(userID)
	s.PreferredTimes = addUnique(s.PreferredTimes, t)
}

func (m *MemorySessions) PreferredTimes(userID int64) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.session(userID).PreferredTimes)
}
