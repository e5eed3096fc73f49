package xumm

import (
	"context"
	"fmt"

	"github.com/xrpl-labs/xumm-universal-go/auth"
	"github.com/xrpl-labs/xumm-universal-go/events"
	"github.com/xrpl-labs/xumm-universal-go/internal/readiness"
	"github.com/xrpl-labs/xumm-universal-go/platform"
	"github.com/xrpl-labs/xumm-universal-go/sdk"
)

// bootstrap selects and drives exactly one flow for the detected
// runtime and classified credential. Collaborators are created at most
// once per session context; later constructions reuse them and re-wire
// event forwarding for the new instance.
func (c *Client) bootstrap() error {
	c.sess.beginBootstrap(c.jwtCredential, c.cred.Raw)

	switch c.flags.Active() {
	case platform.RuntimeXApp:
		return c.bootstrapXApp()
	case platform.RuntimeBrowser:
		return c.bootstrapBrowser()
	case platform.RuntimeCLI:
		return c.bootstrapCLI()
	}
	return ErrUnsupportedRuntime
}

// bootstrapXApp wires the WebView bridge and a session client seeded
// with the bridge's already-known one-time token, then registers the
// OTT/JWT fetch as a bootstrap operation.
func (c *Client) bootstrapXApp() error {
	s := c.sess

	s.mu.Lock()
	bridge := s.bridge
	s.mu.Unlock()
	if bridge == nil {
		if c.opts.newBridge == nil {
			return ErrBridgeRequired
		}
		b, err := c.opts.newBridge()
		if err != nil {
			return fmt.Errorf("create bridge: %w", err)
		}
		s.mu.Lock()
		s.bridge = b
		bridge = b
		s.mu.Unlock()
	}
	c.forwardBridgeEvents(bridge)

	return c.ensureSessionClient(func() string {
		if env := bridge.Environment(); env != nil {
			return env.OTT
		}
		return ""
	}())
}

// bootstrapBrowser takes the direct token path for a session-token
// credential and the PKCE authorize-or-resume path for an API key.
func (c *Client) bootstrapBrowser() error {
	if c.jwtCredential {
		return c.ensureSessionClient("")
	}

	s := c.sess
	s.mu.Lock()
	pkce := s.pkce
	s.mu.Unlock()
	if pkce == nil {
		if c.opts.newPKCE == nil {
			return ErrPKCERequired
		}
		p, err := c.opts.newPKCE(c.cred.Raw)
		if err != nil {
			return fmt.Errorf("create pkce handler: %w", err)
		}
		s.mu.Lock()
		s.pkce = p
		pkce = p
		s.mu.Unlock()
	}

	// The flow-complete operation gates the ready event only; it stays
	// out of the generic aggregate so simple accessors are not forced to
	// block on user interaction.
	op := readiness.NewOp("pkce-flow")
	c.mu.Lock()
	c.pkceResolved = op
	c.mu.Unlock()

	c.forwardPKCEEvents(pkce, op)

	go c.emit(events.TypeRetrieving)
	return nil
}

// bootstrapCLI constructs the direct key+secret client, or the session
// client when a raw token was supplied. No user interaction is involved.
func (c *Client) bootstrapCLI() error {
	if c.cred.Kind == auth.KindAPIKey {
		s := c.sess
		s.mu.Lock()
		existing := s.app
		s.mu.Unlock()
		if existing != nil {
			return nil
		}
		cl, err := c.opts.newClient(c.cred.Raw, c.cred.Secret)
		if err != nil {
			return fmt.Errorf("create platform client: %w", err)
		}
		s.mu.Lock()
		s.app = cl
		s.mu.Unlock()
		return nil
	}

	return c.ensureSessionClient("")
}

// ensureSessionClient creates the token-issued platform SDK once per
// session context and registers the OTT/JWT bootstrap operation
// alongside it.
func (c *Client) ensureSessionClient(ott string) error {
	s := c.sess
	s.mu.Lock()
	existing := s.session
	s.mu.Unlock()
	if existing != nil {
		return nil
	}

	sc, err := c.opts.newSessionClient(c.cred.Raw, ott)
	if err != nil {
		return fmt.Errorf("create session client: %w", err)
	}
	s.mu.Lock()
	s.session = sc
	s.mu.Unlock()

	c.sess.gate.Go("ott-jwt-bootstrap", func() error {
		return c.handleOttJwt(context.Background())
	})
	return nil
}

// handleOttJwt completes the session bootstrap exactly once per session
// client: it fetches the one-time-token data and session token unless
// either was already supplied, decodes the token's claims into the
// shared state, and fires the retrieved/success lifecycle events. The
// token paths emit them synthetically since no underlying flow produces
// them there.
func (c *Client) handleOttJwt(ctx context.Context) error {
	s := c.sess

	// Logout rewrites jwtCredential under c.mu while this op may still be
	// in flight; snapshot it once instead of reading the field directly.
	c.mu.Lock()
	jwtCredential := c.jwtCredential
	c.mu.Unlock()

	s.mu.Lock()
	sc := s.session
	if sc == nil || s.sessionBootstrapped {
		s.mu.Unlock()
		return nil
	}
	s.sessionBootstrapped = true
	knownJWT := s.jwt
	s.mu.Unlock()

	skipFetch := jwtCredential || knownJWT != ""

	var ott *sdk.OttData
	raw := knownJWT
	if !skipFetch {
		var err error
		if ott, err = sc.OttData(ctx); err != nil {
			return fmt.Errorf("fetch ott data: %w", err)
		}
		if raw, err = sc.JWT(ctx); err != nil {
			return fmt.Errorf("fetch session token: %w", err)
		}
	}

	if ott != nil {
		s.setOtt(ott)
		c.emit(events.TypeRetrieved)
		c.emit(events.TypeSuccess)
	}

	if raw != "" {
		claims, err := auth.DecodeClaims(raw)
		if err != nil {
			// Recovered locally: the claims view stays empty and the
			// bootstrap chain continues.
			c.log.Warn("error decoding session token", "err", err)
		}
		s.setJWT(raw, claims)

		if skipFetch && jwtCredential {
			c.emit(events.TypeRetrieved)
			c.emit(events.TypeSuccess)
		}
	}

	return nil
}

// forwardBridgeEvents fans the bridge's qr/payload/destination events
// into the facade emitter, tagged with this instance's ordinal. Wiring
// happens strictly once per instance per collaborator lifetime.
func (c *Client) forwardBridgeEvents(bridge sdk.Bridge) {
	c.mu.Lock()
	if c.bridgeWired {
		c.mu.Unlock()
		return
	}
	c.bridgeWired = true
	c.mu.Unlock()

	ch, cancel := bridge.Subscribe()
	c.mu.Lock()
	c.subCancels = append(c.subCancels, cancel)
	c.mu.Unlock()

	go func() {
		for ev := range ch {
			switch ev.Type {
			case events.TypeQR, events.TypePayload, events.TypeDestination:
				c.emitter.Emit(events.Event{Type: ev.Type, Data: ev.Data, Instance: c.instance})
			}
		}
	}()
}

// forwardPKCEEvents forwards the auth-flow events onto the facade
// emitter and, on retrieved/success, merges the handler's resolved
// state into the session before settling the flow-complete operation.
func (c *Client) forwardPKCEEvents(pkce sdk.PKCE, op *readiness.Op) {
	c.mu.Lock()
	if c.pkceWired {
		c.mu.Unlock()
		op.Settle(nil)
		return
	}
	c.pkceWired = true
	c.mu.Unlock()

	ch, cancel := pkce.Subscribe()
	c.mu.Lock()
	c.subCancels = append(c.subCancels, cancel)
	c.mu.Unlock()

	go func() {
		for ev := range ch {
			switch ev.Type {
			case events.TypeRetrieved, events.TypeSuccess:
				c.emitter.Emit(events.Event{Type: ev.Type, Data: ev.Data})
				c.handlePKCEState(context.Background(), pkce, op)
			case events.TypeError:
				c.emitter.Emit(events.Event{Type: events.TypeError, Err: ev.Err})
			case events.TypeLoggedOut:
				// The stored session went away; unblock ready.
				op.Settle(nil)
			}
		}
	}()
}

// handlePKCEState merges a resolved flow into the shared session state.
// Each slot honors an only-if-still-empty guard: the profile and the
// issued session SDK are adopted only when absent, the token only when
// the shared token slot is still empty.
func (c *Client) handlePKCEState(ctx context.Context, pkce sdk.PKCE, op *readiness.Op) {
	state, err := pkce.State(ctx)
	if err != nil {
		c.log.Warn("pkce state lookup failed", "err", err)
		op.Settle(err)
		return
	}

	if state != nil {
		if state.SDK != nil {
			c.sess.adoptSessionClient(state.SDK)
		}
		if state.Me != nil {
			c.sess.adoptProfile(state.Me)
		}

		c.sess.mu.Lock()
		tokenEmpty := c.sess.jwt == ""
		c.sess.mu.Unlock()
		if state.JWT != "" && tokenEmpty {
			c.sess.setJWT(state.JWT, nil)
			if err := c.handleOttJwt(ctx); err != nil {
				c.log.Warn("session bootstrap after pkce resolution failed", "err", err)
			}
		}
	}

	op.Settle(nil)
}
