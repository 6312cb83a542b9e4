package session

import (
	"sync"

	"collabdoc/middleware"
	"collabdoc/pkg/logger"
)

// TokenProvider is a Provider backed by a signed JWT. It starts in the
// loading state until the first SetToken or Clear resolves it.
type TokenProvider struct {
	mu       sync.Mutex
	secret   string
	state    State
	handlers map[int]func(State)
	next     int
	loginFn  func()
}

// NewTokenProvider creates a provider validating tokens against secret.
// loginFn, if non-nil, is invoked by Login; it is expected to obtain a
// fresh token out of band and call SetToken.
func NewTokenProvider(secret string, loginFn func()) *TokenProvider {
	return &TokenProvider{
		secret:   secret,
		state:    State{IsLoading: true},
		handlers: make(map[int]func(State)),
		loginFn:  loginFn,
	}
}

func (p *TokenProvider) Current() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *TokenProvider) OnChange(fn func(State)) func() {
	p.mu.Lock()
	id := p.next
	p.next++
	p.handlers[id] = fn
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.handlers, id)
	}
}

func (p *TokenProvider) Login() {
	if p.loginFn != nil {
		p.loginFn()
	}
}

// SetToken resolves the token into an identity. An invalid token resolves
// to no identity rather than an error state.
func (p *TokenProvider) SetToken(token string) error {
	identity, err := middleware.ParseToken(token, p.secret)
	if err != nil {
		logger.Sugar.Warnf("Token rejected: %v", err)
		p.setState(State{User: nil, IsLoading: false})
		return err
	}
	p.setState(State{User: identity, IsLoading: false})
	return nil
}

// Clear drops the current identity, e.g. on logout.
func (p *TokenProvider) Clear() {
	p.setState(State{User: nil, IsLoading: false})
}

func (p *TokenProvider) setState(s State) {
	p.mu.Lock()
	p.state = s
	fns := make([]func(State), 0, len(p.handlers))
	for _, fn := range p.handlers {
		fns = append(fns, fn)
	}
	p.mu.Unlock()

	for _, fn := range fns {
		fn(s)
	}
}
