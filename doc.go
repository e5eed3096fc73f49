// Package xumm is a runtime-adaptive facade over the Xumm platform
// SDKs. One constructor call adapts to the context the code runs in —
// a regular process (cli), a browser page, or the embedded mobile
// WebView (xApp) — classifies the supplied credential as an API key or
// a session token, drives the matching authentication flow to
// completion, and exposes a single unified view of the resulting
// identity and session.
//
// # Construction
//
//	client, err := xumm.New("00000000-0000-4839-af2f-f794874a80b0",
//	    xumm.WithAPISecret("00000000-0000-4e34-8112-c32a23903d8c"),
//	)
//	if err != nil { log.Fatal(err) }
//
//	account, err := client.User().Account(ctx)
//
// In cli runtime an API key requires its secret; a raw session token
// needs no second argument in any runtime. Browser and xapp runtimes
// additionally need the host-specific collaborators supplied through
// WithPKCEFactory and WithBridgeFactory; the sdk package documents
// their contracts and sdk/sdktest ships in-memory fakes.
//
// # Readiness
//
// Accessors on User, Environment and the sub-API surfaces first wait
// for every bootstrap operation pending at call time, so a read issued
// before the underlying flow completes blocks until the data exists
// rather than returning a stale snapshot. The ready event additionally
// waits for a browser authorization to resolve.
//
// # Shared session
//
// All instances constructed in one process observe the same
// authenticated session by default: collaborators are created at most
// once per SessionContext and later constructions reuse them. Pass
// WithSessionContext to isolate sessions, and SessionContext.Reset to
// tear one down in tests.
package xumm
