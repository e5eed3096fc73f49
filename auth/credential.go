// Package auth classifies the credential pair handed to the facade
// constructor. A primary credential is either a three-segment session
// token (a signed bearer credential with a base64 JSON claims payload),
// a UUID-v4 shaped API key, or invalid. Classification rules depend on
// the detected runtime: an expired token is fatal in cli and xapp
// contexts but silently downgrades to the token's embedded application
// identifier in a browser, where re-authorization is possible.
//
// The package never verifies token signatures; tokens are treated as
// opaque bearer credentials with a convenience-decoded claims view.
package auth

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/xrpl-labs/xumm-universal-go/platform"
)

// Kind discriminates the classified credential.
type Kind int

const (
	KindInvalid Kind = iota
	KindAPIKey
	KindSessionToken
)

func (k Kind) String() string {
	switch k {
	case KindAPIKey:
		return "apiKey"
	case KindSessionToken:
		return "sessionToken"
	}
	return "invalid"
}

var (
	// ErrInvalidCredential indicates the primary credential is neither a
	// three-segment session token nor a UUID-v4 shaped API key.
	ErrInvalidCredential = errors.New("auth: not a valid credential")

	// ErrMissingSecret indicates an API key was supplied in a cli runtime
	// without a UUID-v4 shaped API secret.
	ErrMissingSecret = errors.New("auth: api key requires a valid api secret in cli runtime")

	// ErrExpiredToken indicates the session token's exp claim is in the
	// past in a runtime with no re-authorization fallback.
	ErrExpiredToken = errors.New("auth: session token expired")
)

// Credential is the classified credential pair. It is mutated in place
// by Downgrade on logout; it is not safe for unsynchronized concurrent
// mutation.
type Credential struct {
	Kind   Kind
	Raw    string // API key or raw session token
	Secret string // API secret, cli runtime only

	// Claims is the decoded claims view of a session token. Nil for API
	// keys and for tokens whose payload failed to decode.
	Claims jwt.MapClaims

	// Downgraded reports that an expired token was replaced by its
	// embedded application identifier at classification time.
	Downgraded bool
}

// IsToken reports whether the credential is a session token.
func (c *Credential) IsToken() bool {
	return c.Kind == KindSessionToken
}

// Downgrade rewrites a token-derived credential to the given application
// identifier so it can drive a fresh authorization flow. This mirrors
// the classification-time expiry fallback: the identifier is not
// re-validated against the UUID shape.
func (c *Credential) Downgrade(appID string) {
	c.Kind = KindAPIKey
	c.Raw = appID
	c.Claims = nil
	c.Downgraded = true
}

// Classify validates and classifies the credential pair under the given
// runtime flags. log may be nil.
func Classify(primary, secondary string, flags platform.Flags, now time.Time, log *slog.Logger) (*Credential, error) {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.Level(math.MaxInt)}))
	}

	if strings.Count(primary, ".") == 2 {
		return classifyToken(primary, flags, now, log)
	}

	if IsUUIDv4(primary) {
		if flags.Active() == platform.RuntimeCLI && !IsUUIDv4(secondary) {
			return nil, ErrMissingSecret
		}
		return &Credential{Kind: KindAPIKey, Raw: primary, Secret: secondary}, nil
	}

	return nil, ErrInvalidCredential
}

func classifyToken(raw string, flags platform.Flags, now time.Time, log *slog.Logger) (*Credential, error) {
	claims, err := DecodeClaims(raw)
	if err != nil {
		// An undecodable payload leaves the claims view empty; the token
		// is still usable as an opaque bearer credential.
		log.Warn("session token claims failed to decode", "err", err)
		return &Credential{Kind: KindSessionToken, Raw: raw}, nil
	}

	exp, err := claims.GetExpirationTime()
	if err == nil && exp != nil && !now.Before(exp.Time) {
		appID := EmbeddedAppID(claims)
		if flags.Active() != platform.RuntimeBrowser {
			return nil, fmt.Errorf("%w: cannot fall back to an api credential outside a browser", ErrExpiredToken)
		}
		log.Info("session token expired, falling back to api key", "appID", appID)
		return &Credential{Kind: KindAPIKey, Raw: appID, Downgraded: true}, nil
	}

	return &Credential{Kind: KindSessionToken, Raw: raw, Claims: claims}, nil
}

// DecodeClaims decodes the claims payload of a three-segment token
// without verifying its signature.
func DecodeClaims(token string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("decode token claims: %w", err)
	}
	return claims, nil
}

// EmbeddedAppID extracts the application identifier carried inside a
// token's claims, trying app_uuidv4, then client_id, then aud.
func EmbeddedAppID(claims jwt.MapClaims) string {
	for _, key := range []string{"app_uuidv4", "client_id"} {
		if v, ok := claims[key].(string); ok && v != "" {
			return v
		}
	}
	if aud, err := claims.GetAudience(); err == nil && len(aud) > 0 {
		return aud[0]
	}
	return ""
}

// IsUUIDv4 reports whether s is a canonically formatted version-4 UUID.
func IsUUIDv4(s string) bool {
	if len(s) != 36 || strings.Count(s, "-") != 4 {
		return false
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return false
	}
	return u.Version() == 4 && u.Variant() == uuid.RFC4122
}
