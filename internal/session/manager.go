package session

import (
	"sync"

	"collabdoc/store"
)

// State is what subscribers receive whenever the auth provider's state
// changes. A nil User means inactive: no persistence, no broadcast, no
// channel join.
type State struct {
	User      *store.Identity
	IsLoading bool
}

// Provider is the external auth collaborator, specified only at its
// interface: a current state, change notification, and a login side effect
// with no return contract.
type Provider interface {
	Current() State
	OnChange(fn func(State)) (unsubscribe func())
	Login()
}

// Manager tracks the current authenticated identity and its lifecycle.
type Manager struct {
	mu       sync.Mutex
	provider Provider
	state    State
	subs     map[int]func(State)
	nextSub  int
	unsub    func()
}

func NewManager(provider Provider) *Manager {
	m := &Manager{
		provider: provider,
		state:    provider.Current(),
		subs:     make(map[int]func(State)),
	}
	m.unsub = provider.OnChange(m.onProviderChange)
	return m
}

func (m *Manager) onProviderChange(s State) {
	m.mu.Lock()
	m.state = s
	fns := make([]func(State), 0, len(m.subs))
	for _, fn := range m.subs {
		fns = append(fns, fn)
	}
	m.mu.Unlock()

	for _, fn := range fns {
		fn(s)
	}
}

// Subscribe registers fn and delivers the current state to it immediately.
// The returned function cancels the subscription.
func (m *Manager) Subscribe(fn func(State)) func() {
	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	current := m.state
	m.mu.Unlock()

	fn(current)

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subs, id)
	}
}

func (m *Manager) Current() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Manager) Login() {
	m.provider.Login()
}

// Close detaches from the provider. Subscribers receive nothing further.
func (m *Manager) Close() {
	m.mu.Lock()
	unsub := m.unsub
	m.unsub = nil
	m.subs = make(map[int]func(State))
	m.mu.Unlock()
	if unsub != nil {
		unsub()
	}
}
