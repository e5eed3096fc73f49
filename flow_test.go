package xumm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/xrpl-labs/xumm-universal-go/events"
	"github.com/xrpl-labs/xumm-universal-go/sdk"
	"github.com/xrpl-labs/xumm-universal-go/sdk/sdktest"
)

func TestXAppBridgeFlow(t *testing.T) {
	sc := NewSessionContext()
	bridge := &sdktest.Bridge{Env: &sdk.BridgeEnvironment{OTT: "ott-123", Version: "2.3.0"}}
	tok := makeToken(t, map[string]any{
		"exp": time.Now().Add(time.Hour).Unix(),
		"sub": "rXAPP",
	})
	session := &sdktest.SessionClient{
		Ott: &sdk.OttData{
			Account:  "rXAPP",
			Nodetype: "MAINNET",
			AccountInfo: &sdk.AccountInfo{
				Account: "rXAPP",
				Name:    "xApp User",
			},
		},
		Token: tok,
	}

	bridgeCalls := 0
	var gotOtt string
	opts := []Option{
		WithPlatform(xappFlags),
		WithSessionContext(sc),
		WithBridgeFactory(func() (sdk.Bridge, error) {
			bridgeCalls++
			return bridge, nil
		}),
		WithSessionClientFactory(func(cred, ott string) (sdk.SessionClient, error) {
			gotOtt = ott
			return session, nil
		}),
	}

	c1, err := New(testKey, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx := testCtx(t)
	env := c1.Environment()
	if err := env.Retrieved(ctx); err != nil {
		t.Fatalf("Retrieved: %v", err)
	}
	if err := env.Success(ctx); err != nil {
		t.Fatalf("Success: %v", err)
	}
	if gotOtt != "ott-123" {
		t.Fatalf("session client seeded with ott %q", gotOtt)
	}

	ott, err := env.OTT(ctx)
	if err != nil || ott == nil || ott.Account != "rXAPP" {
		t.Fatalf("OTT = %+v, %v", ott, err)
	}
	if session.OttCalls != 1 || session.JwtCalls != 1 {
		t.Fatalf("fetches = %d/%d, want 1/1", session.OttCalls, session.JwtCalls)
	}

	user := c1.User()
	if got, _ := user.Account(ctx); got != "rXAPP" {
		t.Errorf("Account = %q", got)
	}
	// No profile and no name claim, the account info provides the name.
	if got, _ := user.Name(ctx); got != "xApp User" {
		t.Errorf("Name = %q", got)
	}
	if got, _ := user.NetworkType(ctx); got != "MAINNET" {
		t.Errorf("NetworkType = %q", got)
	}

	if c1.Bridge() == nil {
		t.Fatal("Bridge() returned nil in xapp runtime")
	}

	c2, err := New(testKey, opts...)
	if err != nil {
		t.Fatalf("second New: %v", err)
	}
	if bridgeCalls != 1 {
		t.Fatalf("bridge factory called %d times, want 1", bridgeCalls)
	}

	// Bridge events fan out to every instance, tagged with the ordinal of
	// the instance that forwarded them.
	ch1, cancel1 := c1.Subscribe(events.TypeQR, events.TypePayload, events.TypeDestination)
	defer cancel1()
	ch2, cancel2 := c2.Subscribe(events.TypeQR, events.TypePayload, events.TypeDestination)
	defer cancel2()

	bridge.Emit(events.Event{Type: events.TypeQR, Data: "qr-data"})
	ev1 := recv(t, ch1)
	if ev1.Type != events.TypeQR || ev1.Instance != c1.Instance() {
		t.Fatalf("instance 1 event = %+v", ev1)
	}
	ev2 := recv(t, ch2)
	if ev2.Type != events.TypeQR || ev2.Instance != c2.Instance() {
		t.Fatalf("instance 2 event = %+v", ev2)
	}

	bridge.Emit(events.Event{Type: events.TypeDestination, Data: "rDEST"})
	if ev := recv(t, ch1); ev.Type != events.TypeDestination {
		t.Fatalf("event = %+v", ev)
	}
}

func TestXAppAccessorsWaitForBootstrap(t *testing.T) {
	sc := NewSessionContext()
	bridge := &sdktest.Bridge{Env: &sdk.BridgeEnvironment{OTT: "ott-123"}}
	session := &sdktest.SessionClient{
		Ott:     &sdk.OttData{Account: "rHELD"},
		Token:   makeToken(t, map[string]any{"sub": "rHELD"}),
		Release: make(chan struct{}),
	}

	c, err := New(testKey,
		WithPlatform(xappFlags),
		WithSessionContext(sc),
		WithBridgeFactory(func() (sdk.Bridge, error) { return bridge, nil }),
		WithSessionClientFactory(func(string, string) (sdk.SessionClient, error) { return session, nil }))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx := testCtx(t)
	type pingResult struct {
		pong *sdk.Pong
		err  error
	}
	done := make(chan pingResult, 1)
	go func() {
		pong, err := c.Helpers().Ping(ctx)
		done <- pingResult{pong, err}
	}()

	select {
	case r := <-done:
		t.Fatalf("Ping resolved before bootstrap settled: %+v", r)
	case <-time.After(50 * time.Millisecond):
	}

	close(session.Release)
	r := <-done
	if r.err != nil {
		t.Fatalf("Ping: %v", r.err)
	}
	if !r.pong.Pong {
		t.Fatal("pong not set")
	}
}

func TestBootstrapSettlesDespiteFetchFailure(t *testing.T) {
	sc := NewSessionContext()
	bridge := &sdktest.Bridge{Env: &sdk.BridgeEnvironment{OTT: "ott-bad"}}
	session := &sdktest.SessionClient{OttErr: errors.New("ott exchange failed")}

	c, err := New(testKey,
		WithPlatform(xappFlags),
		WithSessionContext(sc),
		WithBridgeFactory(func() (sdk.Bridge, error) { return bridge, nil }),
		WithSessionClientFactory(func(string, string) (sdk.SessionClient, error) { return session, nil }))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	// A failed bootstrap op settles rather than wedging readiness: the
	// ready event still fires and accessors resolve to empty data.
	ctx := testCtx(t)
	if err := c.Environment().Ready(ctx); err != nil {
		t.Fatalf("Ready: %v", err)
	}
	ott, err := c.Environment().OTT(ctx)
	if err != nil {
		t.Fatalf("OTT: %v", err)
	}
	if ott != nil {
		t.Fatalf("OTT = %+v, want nil", ott)
	}
}

func TestBrowserPKCEFlow(t *testing.T) {
	sc := NewSessionContext()
	pkce := &sdktest.PKCE{}
	session := &sdktest.SessionClient{}
	tok := makeToken(t, map[string]any{
		"exp": time.Now().Add(time.Hour).Unix(),
		"sub": "rCLAIMS",
	})

	var gotAppID string
	c, err := New(testKey,
		WithPlatform(browserFlags),
		WithSessionContext(sc),
		WithPKCEFactory(func(appID string) (sdk.PKCE, error) {
			gotAppID = appID
			return pkce, nil
		}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if gotAppID != testKey {
		t.Fatalf("pkce factory got app id %q", gotAppID)
	}

	ctx := testCtx(t)
	env := c.Environment()
	if err := env.Retrieving(ctx); err != nil {
		t.Fatalf("Retrieving: %v", err)
	}

	// Ready is gated on flow completion; plain accessors are not.
	shortCtx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if err := env.Ready(shortCtx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Ready before authorization: %v, want deadline exceeded", err)
	}
	if bearer, err := env.Bearer(ctx); err != nil || bearer != "" {
		t.Fatalf("Bearer before authorization = %q, %v", bearer, err)
	}

	pkce.SetResolved(&sdk.ResolvedFlow{
		JWT: tok,
		Me:  &sdk.Profile{Sub: "rPKCE", Name: "Alice"},
		SDK: session,
	})
	pkce.Emit(events.Event{Type: events.TypeSuccess})

	if err := env.Success(ctx); err != nil {
		t.Fatalf("Success: %v", err)
	}
	if err := env.Ready(ctx); err != nil {
		t.Fatalf("Ready: %v", err)
	}

	if bearer, err := env.Bearer(ctx); err != nil || bearer != tok {
		t.Fatalf("Bearer = %q, %v", bearer, err)
	}
	me, err := env.OpenID(ctx)
	if err != nil || me == nil || me.Sub != "rPKCE" {
		t.Fatalf("OpenID = %+v, %v", me, err)
	}
	claims, err := env.JWT(ctx)
	if err != nil {
		t.Fatalf("JWT: %v", err)
	}
	if sub, _ := claims["sub"].(string); sub != "rCLAIMS" {
		t.Fatalf("claims sub = %q", sub)
	}

	// The profile wins over the decoded claims.
	user := c.User()
	if got, _ := user.Account(ctx); got != "rPKCE" {
		t.Errorf("Account = %q", got)
	}
	if got, _ := user.Name(ctx); got != "Alice" {
		t.Errorf("Name = %q", got)
	}
	if got, _ := user.Picture(ctx); got != "https://xumm.app/avatar/rPKCE.png" {
		t.Errorf("Picture = %q", got)
	}

	// The flow-issued SDK was adopted as the active client.
	if _, err := c.Helpers().Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	if session.PingCalls != 1 {
		t.Fatalf("PingCalls = %d", session.PingCalls)
	}
	if pkce.StateCalls == 0 {
		t.Fatal("State never consulted")
	}
}

func TestBrowserSessionTokenSkipsPKCE(t *testing.T) {
	sc := NewSessionContext()
	tok := makeToken(t, map[string]any{
		"exp": time.Now().Add(time.Hour).Unix(),
		"sub": "rDIRECT",
	})
	session := &sdktest.SessionClient{}
	pkceCalls := 0

	c, err := New(tok,
		WithPlatform(browserFlags),
		WithSessionContext(sc),
		WithPKCEFactory(func(string) (sdk.PKCE, error) {
			pkceCalls++
			return &sdktest.PKCE{}, nil
		}),
		WithSessionClientFactory(func(cred, ott string) (sdk.SessionClient, error) {
			if cred != tok {
				t.Errorf("credential = %q", cred)
			}
			return session, nil
		}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx := testCtx(t)
	if err := c.Environment().Ready(ctx); err != nil {
		t.Fatalf("Ready: %v", err)
	}
	if pkceCalls != 0 {
		t.Fatalf("pkce factory called %d times, want 0", pkceCalls)
	}
	if got, _ := c.User().Account(ctx); got != "rDIRECT" {
		t.Errorf("Account = %q", got)
	}
	if session.OttCalls != 0 || session.JwtCalls != 0 {
		t.Fatalf("fetches = %d/%d, want none", session.OttCalls, session.JwtCalls)
	}
}

func TestReadinessMonotonicAfterReady(t *testing.T) {
	sc := NewSessionContext()
	bridge := &sdktest.Bridge{Env: &sdk.BridgeEnvironment{OTT: "ott-123"}}
	session := &sdktest.SessionClient{
		Ott:   &sdk.OttData{Account: "rMONO"},
		Token: makeToken(t, map[string]any{"sub": "rMONO"}),
	}

	c, err := New(testKey,
		WithPlatform(xappFlags),
		WithSessionContext(sc),
		WithBridgeFactory(func() (sdk.Bridge, error) { return bridge, nil }),
		WithSessionClientFactory(func(string, string) (sdk.SessionClient, error) { return session, nil }))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx := testCtx(t)
	if err := c.Environment().Ready(ctx); err != nil {
		t.Fatalf("Ready: %v", err)
	}

	ops := sc.Gate().Len()
	for i := 0; i < 3; i++ {
		if _, err := c.User().Account(ctx); err != nil {
			t.Fatalf("Account: %v", err)
		}
		if _, err := c.Environment().OTT(ctx); err != nil {
			t.Fatalf("OTT: %v", err)
		}
	}
	if got := sc.Gate().Len(); got != ops {
		t.Fatalf("pending ops grew from %d to %d", ops, got)
	}
	if session.OttCalls != 1 || session.JwtCalls != 1 {
		t.Fatalf("fetches = %d/%d, want 1/1", session.OttCalls, session.JwtCalls)
	}
}
