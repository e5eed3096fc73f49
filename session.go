package xumm

import (
	"sync"

	"github.com/golang-jwt/jwt/v5"

	"github.com/xrpl-labs/xumm-universal-go/internal/readiness"
	"github.com/xrpl-labs/xumm-universal-go/sdk"
)

// SessionContext owns the authenticated-session state and the
// collaborator registry shared by every facade instance bound to it.
// One process normally carries exactly one authenticated session, so
// instances default to DefaultSessionContext; this is deliberate policy,
// not an accident of implementation. Tests and multi-tenant embedders
// construct their own contexts via NewSessionContext and pass them with
// WithSessionContext.
//
// Mutation discipline is last-writer-wins with a handful of
// only-if-still-empty guards applied during flow merging. All access is
// serialized by an internal mutex.
type SessionContext struct {
	mu        sync.Mutex
	gate      *readiness.Gate
	instances int

	// Session state. At most one of the OTT-sourced data and the
	// PKCE-resolved profile is authoritative at a time, but both may be
	// partially populated.
	ott    *sdk.OttData
	jwt    string
	claims jwt.MapClaims
	me     *sdk.Profile

	// Collaborator registry: lazily created, at most one live instance
	// of each kind, torn down as a whole on logout.
	app     sdk.Client
	session sdk.SessionClient
	pkce    sdk.PKCE
	bridge  sdk.Bridge

	// sessionBootstrapped marks the OTT/JWT bootstrap as consumed for
	// the current session client.
	sessionBootstrapped bool
}

// NewSessionContext returns an empty, independent session context.
func NewSessionContext() *SessionContext {
	return &SessionContext{gate: readiness.NewGate()}
}

var defaultSession = NewSessionContext()

// DefaultSessionContext returns the process-wide shared session context
// used by instances constructed without WithSessionContext.
func DefaultSessionContext() *SessionContext {
	return defaultSession
}

// Reset clears all session state and the collaborator registry. It is
// intended for test teardown; in-flight bootstrap operations keep
// running but no longer gate anything.
func (s *SessionContext) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearLocked()
}

func (s *SessionContext) clearLocked() {
	s.ott = nil
	s.jwt = ""
	s.claims = nil
	s.me = nil
	s.app = nil
	s.session = nil
	s.pkce = nil
	s.bridge = nil
	s.sessionBootstrapped = false
	s.gate.Clear()
}

// Gate returns the readiness aggregate for this session.
func (s *SessionContext) Gate() *readiness.Gate { return s.gate }

func (s *SessionContext) nextInstance() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.instances++
	return s.instances
}

// publishJWT places an unexpired constructor-supplied token into the
// shared token slot, making it visible to every instance in the session.
func (s *SessionContext) publishJWT(raw string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jwt = raw
}

// beginBootstrap resets per-bootstrap state. The token slot survives
// only when the instance was constructed with that exact token.
func (s *SessionContext) beginBootstrap(tokenCredential bool, raw string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ott = nil
	if !(tokenCredential && s.jwt == raw) {
		s.jwt = ""
		s.claims = nil
	}
	s.me = nil
	s.sessionBootstrapped = false
}

type sessionSnapshot struct {
	ott    *sdk.OttData
	jwt    string
	claims jwt.MapClaims
	me     *sdk.Profile
}

func (s *SessionContext) snapshot() sessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sessionSnapshot{ott: s.ott, jwt: s.jwt, claims: s.claims, me: s.me}
}

func (s *SessionContext) setOtt(ott *sdk.OttData) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ott = ott
}

func (s *SessionContext) setJWT(raw string, claims jwt.MapClaims) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jwt = raw
	if claims != nil {
		s.claims = claims
	}
}

// adoptProfile stores the PKCE-resolved identity unless one is already
// present.
func (s *SessionContext) adoptProfile(me *sdk.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.me == nil {
		s.me = me
	}
}

// adoptSessionClient stores the PKCE-issued session SDK unless one is
// already present. It reports whether the client was adopted.
func (s *SessionContext) adoptSessionClient(sc sdk.SessionClient) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session != nil {
		return false
	}
	s.session = sc
	return true
}

// activeClient returns the operative platform SDK: the token-issued
// variant when present, the key+secret client otherwise, nil when
// neither exists yet.
func (s *SessionContext) activeClient() sdk.Client {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session != nil {
		return s.session
	}
	if s.app != nil {
		return s.app
	}
	return nil
}

func (s *SessionContext) sessionClient() sdk.SessionClient {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session
}

func (s *SessionContext) pkceHandler() sdk.PKCE {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pkce
}

func (s *SessionContext) bridgeHandler() sdk.Bridge {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bridge
}

func (s *SessionContext) claimString(key string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.claims[key].(string); ok {
		return v
	}
	return ""
}

func (s *SessionContext) profileSub() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.me == nil {
		return ""
	}
	return s.me.Sub
}
