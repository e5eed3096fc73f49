package xumm

import (
	"testing"

	"github.com/golang-jwt/jwt/v5"

	"github.com/xrpl-labs/xumm-universal-go/sdk"
)

func TestSnapshotAccountPrecedence(t *testing.T) {
	full := sessionSnapshot{
		me:     &sdk.Profile{Sub: "rME"},
		claims: jwt.MapClaims{"sub": "rCLAIMS"},
		ott:    &sdk.OttData{AccountInfo: &sdk.AccountInfo{Account: "rOTT"}},
	}
	if got := full.account(); got != "rME" {
		t.Errorf("account = %q, want rME", got)
	}

	noProfile := full
	noProfile.me = nil
	if got := noProfile.account(); got != "rCLAIMS" {
		t.Errorf("account = %q, want rCLAIMS", got)
	}

	ottOnly := noProfile
	ottOnly.claims = nil
	if got := ottOnly.account(); got != "rOTT" {
		t.Errorf("account = %q, want rOTT", got)
	}

	if got := (sessionSnapshot{}).account(); got != "" {
		t.Errorf("account = %q, want empty", got)
	}
}

func TestSnapshotProfileAccountFallback(t *testing.T) {
	s := sessionSnapshot{me: &sdk.Profile{Account: "rACCT"}}
	if got := s.account(); got != "rACCT" {
		t.Errorf("account = %q, want rACCT", got)
	}
	s.me.Sub = "rSUB"
	if got := s.account(); got != "rSUB" {
		t.Errorf("account = %q, want rSUB", got)
	}
}

func TestSnapshotClaimStringIgnoresNonStrings(t *testing.T) {
	s := sessionSnapshot{claims: jwt.MapClaims{"sub": 42}}
	if got := s.claimString("sub"); got != "" {
		t.Errorf("claimString = %q, want empty", got)
	}
	if got := s.claimString("missing"); got != "" {
		t.Errorf("claimString = %q, want empty", got)
	}
}
