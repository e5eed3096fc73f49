package xumm

import (
	"context"
	"sync"

	"github.com/golang-jwt/jwt/v5"

	"github.com/xrpl-labs/xumm-universal-go/events"
	"github.com/xrpl-labs/xumm-universal-go/sdk"
)

// Environment exposes the raw per-session data sources and the
// lifecycle signals as lazily resolved accessors. Data accessors wait
// on the readiness aggregate sampled at call time; lifecycle accessors
// wait for the corresponding event of the current session lifecycle.
// Logout replaces the whole Environment with a fresh one.
type Environment struct {
	c    *Client
	life *lifecycle
}

type lifecycle struct {
	ready      chan struct{}
	success    chan struct{}
	retrieved  chan struct{}
	retrieving chan struct{}

	mu   sync.Mutex
	offs []func()
}

func newEnvironment(c *Client) *Environment {
	life := &lifecycle{
		ready:      make(chan struct{}),
		success:    make(chan struct{}),
		retrieved:  make(chan struct{}),
		retrieving: make(chan struct{}),
	}
	arm := func(t events.Type, ch chan struct{}) {
		var once sync.Once
		off := c.emitter.On(t, func(events.Event) {
			once.Do(func() { close(ch) })
		})
		life.mu.Lock()
		life.offs = append(life.offs, off)
		life.mu.Unlock()
	}
	arm(events.TypeReady, life.ready)
	arm(events.TypeSuccess, life.success)
	arm(events.TypeRetrieved, life.retrieved)
	arm(events.TypeRetrieving, life.retrieving)

	return &Environment{c: c, life: life}
}

func (e *Environment) detach() {
	e.life.mu.Lock()
	offs := e.life.offs
	e.life.offs = nil
	e.life.mu.Unlock()
	for _, off := range offs {
		off()
	}
}

func (e *Environment) wait(ctx context.Context) (sessionSnapshot, error) {
	if err := e.c.sess.gate.Wait(ctx); err != nil {
		return sessionSnapshot{}, err
	}
	return e.c.sess.snapshot(), nil
}

// JWT resolves to the decoded claims of the session token, nil when no
// token was obtained or its payload failed to decode.
func (e *Environment) JWT(ctx context.Context) (jwt.MapClaims, error) {
	s, err := e.wait(ctx)
	if err != nil {
		return nil, err
	}
	return s.claims, nil
}

// OTT resolves to the one-time-token data supplied by the bridge, nil
// outside xapp flows.
func (e *Environment) OTT(ctx context.Context) (*sdk.OttData, error) {
	s, err := e.wait(ctx)
	if err != nil {
		return nil, err
	}
	return s.ott, nil
}

// OpenID resolves to the PKCE-resolved identity, nil when no browser
// authorization completed.
func (e *Environment) OpenID(ctx context.Context) (*sdk.Profile, error) {
	s, err := e.wait(ctx)
	if err != nil {
		return nil, err
	}
	return s.me, nil
}

// Bearer resolves to the raw session token, empty when none is held.
func (e *Environment) Bearer(ctx context.Context) (string, error) {
	s, err := e.wait(ctx)
	if err != nil {
		return "", err
	}
	return s.jwt, nil
}

func waitSignal(ctx context.Context, ch <-chan struct{}) error {
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Ready blocks until the ready lifecycle event of this session
// lifecycle has fired.
func (e *Environment) Ready(ctx context.Context) error {
	return waitSignal(ctx, e.life.ready)
}

// Success blocks until the success lifecycle event has fired.
func (e *Environment) Success(ctx context.Context) error {
	return waitSignal(ctx, e.life.success)
}

// Retrieved blocks until the retrieved lifecycle event has fired.
func (e *Environment) Retrieved(ctx context.Context) error {
	return waitSignal(ctx, e.life.retrieved)
}

// Retrieving blocks until the retrieving lifecycle event has fired.
func (e *Environment) Retrieving(ctx context.Context) error {
	return waitSignal(ctx, e.life.retrieving)
}
