package session

import "collabdoc/store"

// StaticProvider reports a fixed identity that never changes. Useful for
// embedding the core where the identity is resolved out of band.
type StaticProvider struct {
	state State
}

func NewStaticProvider(user *store.Identity) *StaticProvider {
	return &StaticProvider{state: State{User: user}}
}

func (p *StaticProvider) Current() State { return p.state }

func (p *StaticProvider) OnChange(fn func(State)) func() { return func() {} }

func (p *StaticProvider) Login() {}
