package xumm

import (
	"testing"
	"time"

	"github.com/xrpl-labs/xumm-universal-go/auth"
	"github.com/xrpl-labs/xumm-universal-go/events"
	"github.com/xrpl-labs/xumm-universal-go/sdk"
	"github.com/xrpl-labs/xumm-universal-go/sdk/sdktest"
)

func TestLogoutDowngradesTokenCredential(t *testing.T) {
	sc := NewSessionContext()
	tok := makeToken(t, map[string]any{
		"exp":        time.Now().Add(time.Hour).Unix(),
		"sub":        "rLOGOUT",
		"app_uuidv4": "app-123",
	})
	session := &sdktest.SessionClient{}
	var pkceAppIDs []string

	c, err := New(tok,
		WithPlatform(browserFlags),
		WithSessionContext(sc),
		WithSessionClientFactory(func(string, string) (sdk.SessionClient, error) { return session, nil }),
		WithPKCEFactory(func(appID string) (sdk.PKCE, error) {
			pkceAppIDs = append(pkceAppIDs, appID)
			return &sdktest.PKCE{}, nil
		}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx := testCtx(t)
	env1 := c.Environment()
	if err := env1.Ready(ctx); err != nil {
		t.Fatalf("Ready: %v", err)
	}

	logoutCh, cancel := c.Subscribe(events.TypeLogout)
	defer cancel()

	if err := c.Logout(ctx); err != nil {
		t.Fatalf("Logout: %v", err)
	}

	if ev := recv(t, logoutCh); ev.Type != events.TypeLogout {
		t.Fatalf("event = %+v", ev)
	}

	// The credential fell back to the application identifier embedded in
	// the token and the bootstrap re-ran as a browser PKCE flow.
	c.mu.Lock()
	kind, raw := c.cred.Kind, c.cred.Raw
	c.mu.Unlock()
	if kind != auth.KindAPIKey || raw != "app-123" {
		t.Fatalf("credential after logout = %v %q", kind, raw)
	}
	if len(pkceAppIDs) != 1 || pkceAppIDs[0] != "app-123" {
		t.Fatalf("pkce factory calls = %v", pkceAppIDs)
	}

	env2 := c.Environment()
	if env2 == env1 {
		t.Fatal("environment identity survived logout")
	}
	if err := env2.Retrieving(ctx); err != nil {
		t.Fatalf("Retrieving on new lifecycle: %v", err)
	}
	if bearer, err := env2.Bearer(ctx); err != nil || bearer != "" {
		t.Fatalf("Bearer after logout = %q, %v", bearer, err)
	}
}

func TestLogoutTearsDownResolvedPKCESession(t *testing.T) {
	sc := NewSessionContext()
	pkce := &sdktest.PKCE{}
	session := &sdktest.SessionClient{}
	tok := makeToken(t, map[string]any{
		"exp": time.Now().Add(time.Hour).Unix(),
		"sub": "rPKCE",
	})

	c, err := New(testKey,
		WithPlatform(browserFlags),
		WithSessionContext(sc),
		WithPKCEFactory(func(string) (sdk.PKCE, error) { return pkce, nil }))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx := testCtx(t)
	pkce.SetResolved(&sdk.ResolvedFlow{
		JWT: tok,
		Me:  &sdk.Profile{Sub: "rPKCE"},
		SDK: session,
	})
	pkce.Emit(events.Event{Type: events.TypeSuccess})
	if err := c.Environment().Ready(ctx); err != nil {
		t.Fatalf("Ready: %v", err)
	}

	if err := c.Logout(ctx); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if pkce.LogoutCalls != 1 {
		t.Fatalf("LogoutCalls = %d", pkce.LogoutCalls)
	}
	if bearer, err := c.Environment().Bearer(ctx); err != nil || bearer != "" {
		t.Fatalf("Bearer after logout = %q, %v", bearer, err)
	}
	if got := sc.profileSub(); got != "" {
		t.Fatalf("profile survived logout: %q", got)
	}
}

func TestLogoutDuringBootstrap(t *testing.T) {
	// Logout issued right after construction overlaps the credential
	// downgrade with the still-running ott-jwt bootstrap op. Meaningful
	// under the race detector.
	tok := makeToken(t, map[string]any{
		"exp":        time.Now().Add(time.Hour).Unix(),
		"sub":        "rRACE",
		"app_uuidv4": "app-123",
	})
	ctx := testCtx(t)
	for i := 0; i < 200; i++ {
		sc := NewSessionContext()
		c, err := New(tok,
			WithPlatform(browserFlags),
			WithSessionContext(sc),
			WithSessionClientFactory(func(string, string) (sdk.SessionClient, error) {
				return &sdktest.SessionClient{}, nil
			}),
			WithPKCEFactory(func(string) (sdk.PKCE, error) { return &sdktest.PKCE{}, nil }))
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		if err := c.Logout(ctx); err != nil {
			t.Fatalf("Logout: %v", err)
		}
	}
}

func TestLogoutNoOpInXApp(t *testing.T) {
	sc := NewSessionContext()
	bridge := &sdktest.Bridge{Env: &sdk.BridgeEnvironment{OTT: "ott-123"}}
	session := &sdktest.SessionClient{
		Ott:   &sdk.OttData{Account: "rXAPP"},
		Token: makeToken(t, map[string]any{"sub": "rXAPP"}),
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
	if err := c.Environment().Success(ctx); err != nil {
		t.Fatalf("Success: %v", err)
	}
	env := c.Environment()
	if err := c.Logout(ctx); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if c.Environment() != env {
		t.Fatal("xapp logout replaced the environment")
	}
	if ott, _ := c.Environment().OTT(ctx); ott == nil {
		t.Fatal("xapp logout dropped session data")
	}
}

func TestLogoutNoOpWithoutEstablishedSession(t *testing.T) {
	sc := NewSessionContext()
	c, err := New(testKey,
		WithPlatform(browserFlags),
		WithSessionContext(sc),
		WithPKCEFactory(func(string) (sdk.PKCE, error) { return &sdktest.PKCE{}, nil }))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	env := c.Environment()
	if err := c.Logout(testCtx(t)); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if c.Environment() != env {
		t.Fatal("logout without a session replaced the environment")
	}
}
