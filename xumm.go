package xumm

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/xrpl-labs/xumm-universal-go/auth"
	"github.com/xrpl-labs/xumm-universal-go/events"
	"github.com/xrpl-labs/xumm-universal-go/internal/readiness"
	"github.com/xrpl-labs/xumm-universal-go/platform"
	"github.com/xrpl-labs/xumm-universal-go/sdk"
	"github.com/xrpl-labs/xumm-universal-go/sdk/rest"
)

var (
	// ErrUnsupportedRuntime indicates no supported execution context was
	// detected.
	ErrUnsupportedRuntime = errors.New("xumm: unsupported runtime, expected cli, browser or xapp")

	// ErrNoActiveClient indicates no platform SDK is available yet for a
	// delegated call.
	ErrNoActiveClient = errors.New("xumm: no active platform client")

	// ErrPKCERequired indicates a browser flow needs a PKCE handler but
	// no factory was configured.
	ErrPKCERequired = errors.New("xumm: browser runtime requires a pkce handler factory")

	// ErrBridgeRequired indicates an xapp flow needs a WebView bridge but
	// no factory was configured.
	ErrBridgeRequired = errors.New("xumm: xapp runtime requires a bridge factory")
)

type options struct {
	secret     string
	session    *SessionContext
	flags      *platform.Flags
	logHandler slog.Handler
	now        func() time.Time

	newClient        func(apiKey, apiSecret string) (sdk.Client, error)
	newSessionClient func(credential, ott string) (sdk.SessionClient, error)
	newPKCE          func(appID string) (sdk.PKCE, error)
	newBridge        func() (sdk.Bridge, error)
}

// Option configures a Client at construction time.
type Option func(*options)

// WithAPISecret supplies the API secret companion to a UUID-v4 API key.
// Mandatory in cli runtime, ignored in browser and xapp runtimes where
// secrets are never exposed client-side.
func WithAPISecret(secret string) Option {
	return func(o *options) { o.secret = secret }
}

// WithSessionContext binds the instance to an explicit session context
// instead of the process-wide default.
func WithSessionContext(s *SessionContext) Option {
	return func(o *options) { o.session = s }
}

// WithPlatform overrides ambient runtime detection.
func WithPlatform(flags platform.Flags) Option {
	return func(o *options) { o.flags = &flags }
}

// WithLogHandler sets an optional slog.Handler for diagnostics. If nil,
// logging is discarded.
func WithLogHandler(h slog.Handler) Option {
	return func(o *options) { o.logHandler = h }
}

// WithClock overrides the time source used for token expiry checks.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithClientFactory overrides construction of the key+secret platform
// SDK.
func WithClientFactory(fn func(apiKey, apiSecret string) (sdk.Client, error)) Option {
	return func(o *options) { o.newClient = fn }
}

// WithSessionClientFactory overrides construction of the token-issued
// platform SDK. The credential is either a raw session token or an API
// key; ott is the bridge-known one-time token value, empty when absent.
func WithSessionClientFactory(fn func(credential, ott string) (sdk.SessionClient, error)) Option {
	return func(o *options) { o.newSessionClient = fn }
}

// WithPKCEFactory supplies the browser authorization-flow handler.
func WithPKCEFactory(fn func(appID string) (sdk.PKCE, error)) Option {
	return func(o *options) { o.newPKCE = fn }
}

// WithBridgeFactory supplies the embedded-WebView bridge.
func WithBridgeFactory(fn func() (sdk.Bridge, error)) Option {
	return func(o *options) { o.newBridge = fn }
}

// Client is the runtime-adaptive facade over the platform SDKs. One
// line of construction, then identity, environment and payload data
// resolve uniformly regardless of which underlying flow produced them.
//
// Instances are cheap views over one shared backend session (see
// SessionContext); constructing several in one process reuses the same
// collaborators.
type Client struct {
	log      *slog.Logger
	sess     *SessionContext
	flags    platform.Flags
	emitter  *events.Emitter
	opts     options
	instance int

	mu            sync.Mutex
	cred          *auth.Credential
	jwtCredential bool
	env           *Environment
	user          *User
	pkceResolved  *readiness.Op
	subCancels    []func()
	bridgeWired   bool
	pkceWired     bool

	payloads     *Payloads
	push         *Push
	userStore    *UserStore
	backendStore *BackendStore
	helpers      *Helpers
}

// New constructs a facade for the given credential. The first argument
// is either a UUID-v4 API key or a raw session token; in cli runtime an
// API key additionally requires WithAPISecret. New fails synchronously
// for malformed credentials, runtime/credential mismatches and expired
// tokens in runtimes without a re-authorization fallback.
func New(apiKeyOrJWT string, opts ...Option) (*Client, error) {
	o := options{
		session:          DefaultSessionContext(),
		now:              time.Now,
		newClient:        func(key, secret string) (sdk.Client, error) { return rest.New(key, secret) },
		newSessionClient: func(cred, ott string) (sdk.SessionClient, error) { return rest.NewSessionClient(cred, ott) },
	}
	for _, opt := range opts {
		opt(&o)
	}

	var logHandler slog.Handler = slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.Level(math.MaxInt)})
	if o.logHandler != nil {
		logHandler = o.logHandler
	}

	flags := platform.Current()
	if o.flags != nil {
		flags = *o.flags
	}

	c := &Client{
		log:     slog.New(logHandler),
		sess:    o.session,
		flags:   flags,
		emitter: events.NewEmitter(),
		opts:    o,
	}
	c.instance = c.sess.nextInstance()
	c.payloads = &Payloads{c: c}
	c.push = &Push{c: c}
	c.userStore = &UserStore{c: c}
	c.backendStore = &BackendStore{c: c}
	c.helpers = &Helpers{c: c}

	cred, err := auth.Classify(apiKeyOrJWT, o.secret, flags, o.now(), c.log)
	if err != nil {
		return nil, err
	}
	c.cred = cred
	c.jwtCredential = cred.IsToken()
	if c.jwtCredential {
		c.sess.publishJWT(cred.Raw)
	}

	c.env = newEnvironment(c)
	c.user = &User{c: c}

	if err := c.bootstrap(); err != nil {
		return nil, err
	}
	c.armReady()

	return c, nil
}

// Instance returns this instance's ordinal within its session context.
// Bridge events forwarded by this instance carry the ordinal so
// multi-instance consumers can disambiguate.
func (c *Client) Instance() int { return c.instance }

// Runtime returns the detection flags the instance was constructed
// under.
func (c *Client) Runtime() platform.Flags { return c.flags }

// On registers an event handler. Registration is synchronous and never
// waits on readiness. The returned function removes the handler.
func (c *Client) On(t events.Type, h events.Handler) (off func()) {
	return c.emitter.On(t, h)
}

// Subscribe returns a channel of matching events; with no types, all
// events are delivered. The cancel function releases the subscription.
func (c *Client) Subscribe(types ...events.Type) (<-chan events.Event, func()) {
	return c.emitter.Subscribe(types...)
}

// Environment returns the environment view for the current session
// lifecycle. Logout replaces it with a fresh one.
func (c *Client) Environment() *Environment {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.env
}

// User returns the unified identity view for the current session
// lifecycle.
func (c *Client) User() *User {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.user
}

// Bridge returns the live WebView bridge, nil outside xapp runtime.
func (c *Client) Bridge() sdk.Bridge {
	return c.sess.bridgeHandler()
}

// Payloads returns the readiness-gated payload sub-API.
func (c *Client) Payloads() *Payloads { return c.payloads }

// Push returns the readiness-gated push sub-API.
func (c *Client) Push() *Push { return c.push }

// UserStore returns the readiness-gated per-user key/value store.
func (c *Client) UserStore() *UserStore { return c.userStore }

// BackendStore returns the readiness-gated application storage.
func (c *Client) BackendStore() *BackendStore { return c.backendStore }

// Helpers returns the readiness-gated helper methods of the platform
// SDK.
func (c *Client) Helpers() *Helpers { return c.helpers }

// Ping waits for the full readiness aggregate, then delegates to
// whichever platform SDK is active.
func (c *Client) Ping(ctx context.Context) (*sdk.Pong, error) {
	if err := c.sess.gate.Wait(ctx); err != nil {
		return nil, err
	}
	cl := c.sess.activeClient()
	if cl == nil {
		return nil, ErrNoActiveClient
	}
	return cl.Ping(ctx)
}

// Authorize delegates to the PKCE handler when one is active. Without a
// handler it resolves to nothing.
func (c *Client) Authorize(ctx context.Context) (*sdk.ResolvedFlow, error) {
	p := c.sess.pkceHandler()
	if p == nil {
		return nil, nil
	}
	return p.Authorize(ctx)
}

// Logout ends the authenticated session. In xapp runtime it is a no-op:
// bridge sessions are not user-revocable from this layer. Otherwise, a
// token-derived credential is downgraded to its embedded application
// identifier and, if a session was actually established, the whole
// collaborator registry is torn down, state is cleared and the
// bootstrap re-runs from scratch. The environment and user views are
// replaced with fresh ones and a logout event fires.
func (c *Client) Logout(ctx context.Context) error {
	if c.flags.XApp {
		return nil
	}

	downgraded := false
	c.mu.Lock()
	if c.cred.IsToken() && c.jwtCredential {
		if appID := c.sess.claimString("app_uuidv4"); appID != "" {
			// The embedded identifier is deliberately not re-validated
			// against the UUID shape, matching the expiry fallback.
			c.cred.Downgrade(appID)
			c.jwtCredential = false
			downgraded = true
		}
	}
	c.mu.Unlock()

	if !c.flags.Browser || (c.sess.profileSub() == "" && !downgraded) {
		return nil
	}

	if p := c.sess.pkceHandler(); p != nil {
		if err := p.Logout(ctx); err != nil {
			c.log.Warn("pkce logout failed", "err", err)
		}
	}

	c.detach()
	c.sess.Reset()
	c.mu.Lock()
	c.jwtCredential = c.cred.IsToken()
	c.mu.Unlock()

	c.mu.Lock()
	c.env = newEnvironment(c)
	c.user = &User{c: c}
	c.mu.Unlock()

	if err := c.bootstrap(); err != nil {
		return err
	}
	c.armReady()

	c.emitter.Emit(events.Event{Type: events.TypeLogout})
	return nil
}

// detach cancels all collaborator event subscriptions for the current
// lifecycle.
func (c *Client) detach() {
	c.mu.Lock()
	cancels := c.subCancels
	c.subCancels = nil
	c.bridgeWired = false
	c.pkceWired = false
	if c.env != nil {
		c.env.detach()
	}
	c.mu.Unlock()
	for _, cancel := range cancels {
		cancel()
	}
}

func (c *Client) emit(t events.Type) {
	c.emitter.Emit(events.Event{Type: t})
}

// armReady emits ready once all currently pending bootstrap operations
// have settled. In a PKCE browser flow, ready additionally waits for
// the flow-complete operation, which is deliberately excluded from the
// generic aggregate so plain accessors stay usable before the user
// interacts.
func (c *Client) armReady() {
	c.mu.Lock()
	pkceOp := c.pkceResolved
	c.mu.Unlock()

	go func() {
		_ = c.sess.gate.Wait(context.Background())
		if pkceOp != nil {
			<-pkceOp.Done()
		}
		c.emit(events.TypeReady)
	}()
}
