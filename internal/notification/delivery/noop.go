package delivery

import "context"

// Unconfigured stands in for a provider whose credentials are absent. It
// performs no I/O.
type Unconfigured struct {
	provider string
}

func NewUnconfigured(provider string) *Unconfigured {
	return &Unconfigured{provider: provider}
}

func (u *Unconfigured) Name() string { return u.provider }

func (u *Unconfigured) Send(context.Context, Message) Outcome {
	return Skipped(u.provider, ReasonNotConfigured)
}
