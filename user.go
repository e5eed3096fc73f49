package xumm

import (
	"context"
	"fmt"

	"github.com/xrpl-labs/xumm-universal-go/sdk"
)

// User is the unified, lazily resolved identity view merged over the
// three possible data sources: the PKCE-resolved profile, the decoded
// session-token claims and the one-time-token account info. Merge
// precedence per field, highest first: profile, claims, account info.
// Every field is independently optional; a missing source never fails
// resolution of fields another source can provide.
type User struct {
	c *Client
}

func (u *User) wait(ctx context.Context) (sessionSnapshot, error) {
	if err := u.c.sess.gate.Wait(ctx); err != nil {
		return sessionSnapshot{}, err
	}
	return u.c.sess.snapshot(), nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func (s sessionSnapshot) claimString(key string) string {
	if v, ok := s.claims[key].(string); ok {
		return v
	}
	return ""
}

func (s sessionSnapshot) accountInfo() *sdk.AccountInfo {
	if s.ott == nil {
		return nil
	}
	return s.ott.AccountInfo
}

func (s sessionSnapshot) account() string {
	var me, ott string
	if s.me != nil {
		me = firstNonEmpty(s.me.Sub, s.me.Account)
	}
	if info := s.accountInfo(); info != nil {
		ott = info.Account
	}
	return firstNonEmpty(me, s.claimString("sub"), ott)
}

// Account resolves to the account identifier, empty when no source
// provides one.
func (u *User) Account(ctx context.Context) (string, error) {
	s, err := u.wait(ctx)
	if err != nil {
		return "", err
	}
	return s.account(), nil
}

// Picture resolves to the avatar URL: the profile picture when present,
// otherwise synthesized from the account identifier, empty when no
// account resolves at all.
func (u *User) Picture(ctx context.Context) (string, error) {
	s, err := u.wait(ctx)
	if err != nil {
		return "", err
	}
	if s.me != nil && s.me.Picture != "" {
		return s.me.Picture, nil
	}
	if account := s.account(); account != "" {
		return fmt.Sprintf("https://xumm.app/avatar/%s.png", account), nil
	}
	return "", nil
}

func (u *User) merged(ctx context.Context, fromMe func(*sdk.Profile) string, claim string, fromInfo func(*sdk.AccountInfo) string) (string, error) {
	s, err := u.wait(ctx)
	if err != nil {
		return "", err
	}
	var me, info string
	if s.me != nil {
		me = fromMe(s.me)
	}
	if ai := s.accountInfo(); ai != nil {
		info = fromInfo(ai)
	}
	return firstNonEmpty(me, s.claimString(claim), info), nil
}

// Name resolves to the account display name.
func (u *User) Name(ctx context.Context) (string, error) {
	return u.merged(ctx,
		func(me *sdk.Profile) string { return me.Name },
		"name",
		func(ai *sdk.AccountInfo) string { return ai.Name })
}

// Domain resolves to the account's verified domain.
func (u *User) Domain(ctx context.Context) (string, error) {
	return u.merged(ctx,
		func(me *sdk.Profile) string { return me.Domain },
		"domain",
		func(ai *sdk.AccountInfo) string { return ai.Domain })
}

// Source resolves to the account data source.
func (u *User) Source(ctx context.Context) (string, error) {
	return u.merged(ctx,
		func(me *sdk.Profile) string { return me.Source },
		"source",
		func(ai *sdk.AccountInfo) string { return ai.Source })
}

// NetworkType resolves to the network type of the session.
func (u *User) NetworkType(ctx context.Context) (string, error) {
	s, err := u.wait(ctx)
	if err != nil {
		return "", err
	}
	var me, ott string
	if s.me != nil {
		me = s.me.NetworkType
	}
	if s.ott != nil {
		ott = s.ott.Nodetype
	}
	return firstNonEmpty(me, s.claimString("network_type"), ott), nil
}

// NetworkEndpoint resolves to the network endpoint of the session.
func (u *User) NetworkEndpoint(ctx context.Context) (string, error) {
	s, err := u.wait(ctx)
	if err != nil {
		return "", err
	}
	var me, ott string
	if s.me != nil {
		me = s.me.NetworkEndpoint
	}
	if s.ott != nil {
		ott = s.ott.Nodewss
	}
	return firstNonEmpty(me, s.claimString("network_endpoint"), ott), nil
}

func (u *User) mergedBool(ctx context.Context, fromMe func(*sdk.Profile) bool, fromInfo func(*sdk.AccountInfo) bool) (bool, error) {
	s, err := u.wait(ctx)
	if err != nil {
		return false, err
	}
	if s.me != nil {
		return fromMe(s.me), nil
	}
	if ai := s.accountInfo(); ai != nil {
		return fromInfo(ai), nil
	}
	return false, nil
}

// Blocked resolves to the account's blocked flag.
func (u *User) Blocked(ctx context.Context) (bool, error) {
	return u.mergedBool(ctx,
		func(me *sdk.Profile) bool { return me.Blocked },
		func(ai *sdk.AccountInfo) bool { return ai.Blocked })
}

// KycApproved resolves to the account's KYC approval flag.
func (u *User) KycApproved(ctx context.Context) (bool, error) {
	return u.mergedBool(ctx,
		func(me *sdk.Profile) bool { return me.KycApproved },
		func(ai *sdk.AccountInfo) bool { return ai.KycApproved })
}

// ProSubscription resolves to the account's pro subscription flag.
func (u *User) ProSubscription(ctx context.Context) (bool, error) {
	return u.mergedBool(ctx,
		func(me *sdk.Profile) bool { return me.ProSubscription },
		func(ai *sdk.AccountInfo) bool { return ai.ProSubscription })
}

// Profile resolves to the public profile card, nil when neither source
// carries one.
func (u *User) Profile(ctx context.Context) (*sdk.ProfileCard, error) {
	s, err := u.wait(ctx)
	if err != nil {
		return nil, err
	}
	if s.me != nil && s.me.Profile != nil {
		return s.me.Profile, nil
	}
	if ai := s.accountInfo(); ai != nil && ai.Profile != nil && ai.Profile.Slug != "" {
		return ai.Profile, nil
	}
	return nil, nil
}

// Token resolves to the opaque per-user token carried in the session
// token claims, empty when absent.
func (u *User) Token(ctx context.Context) (string, error) {
	s, err := u.wait(ctx)
	if err != nil {
		return "", err
	}
	return s.claimString("usertoken_uuidv4"), nil
}
