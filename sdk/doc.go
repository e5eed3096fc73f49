// Package sdk declares the contracts the facade consumes from its three
// external collaborators: the key+secret platform SDK, the token-issued
// session SDK variant, the browser PKCE handler and the embedded-WebView
// bridge. The facade drives whichever subset of these the detected
// runtime requires; it never implements their transport or cryptography
// itself.
//
// The rest subpackage ships a REST-backed implementation of Client and
// SessionClient. PKCE and Bridge are inherently host-specific (they wrap
// a browser redirect flow and a WebView message channel) and must be
// supplied by the embedding application; sdktest provides in-memory
// fakes for all four contracts.
package sdk
