package sdk

import (
	"context"
	"encoding/json"

	"github.com/xrpl-labs/xumm-universal-go/events"
)

// ProfileCard is the public profile reference attached to an account.
type ProfileCard struct {
	Slug        string `json:"slug"`
	ProfileURL  string `json:"profileUrl,omitempty"`
	AccountSlug string `json:"accountSlug,omitempty"`
}

// AccountInfo is the account detail block carried by a one-time token.
type AccountInfo struct {
	Account         string       `json:"account"`
	Name            string       `json:"name,omitempty"`
	Domain          string       `json:"domain,omitempty"`
	Source          string       `json:"source,omitempty"`
	Blocked         bool         `json:"blocked"`
	KycApproved     bool         `json:"kycApproved"`
	ProSubscription bool         `json:"proSubscription"`
	Profile         *ProfileCard `json:"profile,omitempty"`
}

// OttData is the transient environment and account data supplied by the
// bridge at xApp launch, exchanged for a session token.
type OttData struct {
	Locale      string       `json:"locale,omitempty"`
	Version     string       `json:"version,omitempty"`
	Account     string       `json:"account,omitempty"`
	AccountType string       `json:"accounttype,omitempty"`
	Style       string       `json:"style,omitempty"`
	Nodetype    string       `json:"nodetype,omitempty"`
	Nodewss     string       `json:"nodewss,omitempty"`
	AccountInfo *AccountInfo `json:"account_info,omitempty"`
}

// Profile is the resolved identity produced by a completed PKCE flow.
type Profile struct {
	Sub             string       `json:"sub"`
	Email           string       `json:"email,omitempty"`
	Picture         string       `json:"picture,omitempty"`
	Account         string       `json:"account,omitempty"`
	Name            string       `json:"name,omitempty"`
	Domain          string       `json:"domain,omitempty"`
	Source          string       `json:"source,omitempty"`
	Blocked         bool         `json:"blocked"`
	KycApproved     bool         `json:"kycApproved"`
	ProSubscription bool         `json:"proSubscription"`
	NetworkType     string       `json:"networkType,omitempty"`
	NetworkEndpoint string       `json:"networkEndpoint,omitempty"`
	Profile         *ProfileCard `json:"profile,omitempty"`
}

// ResolvedFlow is the outcome of a PKCE authorization: a session token,
// the resolved identity, and an authenticated session SDK instance.
type ResolvedFlow struct {
	JWT string
	Me  *Profile
	SDK SessionClient
}

// BridgeEnvironment is the launch context reported by the bridge,
// including the one-time token the session SDK can be seeded with.
type BridgeEnvironment struct {
	OTT     string `json:"ott,omitempty"`
	Version string `json:"version,omitempty"`
	Style   string `json:"style,omitempty"`
}

// Application identifies the API application a credential belongs to.
type Application struct {
	UUIDv4 string `json:"uuidv4"`
	Name   string `json:"name"`
}

// Pong is the platform liveness response.
type Pong struct {
	Pong        bool        `json:"pong"`
	Application Application `json:"auth,omitempty"`
}

// CuratedAssets lists the platform's curated currencies and issuers.
type CuratedAssets struct {
	Currencies []string        `json:"currencies"`
	Issuers    []string        `json:"issuers"`
	Details    json.RawMessage `json:"details,omitempty"`
}

// Transaction is a ledger transaction lookup result.
type Transaction struct {
	TxID        string          `json:"txid"`
	Node        string          `json:"node,omitempty"`
	Transaction json.RawMessage `json:"transaction,omitempty"`
}

// NftokenDetail is an XLS-20 token lookup result.
type NftokenDetail struct {
	TokenID  string          `json:"tokenid"`
	Issuer   string          `json:"issuer,omitempty"`
	Owner    string          `json:"owner,omitempty"`
	Name     string          `json:"name,omitempty"`
	Image    string          `json:"image,omitempty"`
	URI      string          `json:"uri,omitempty"`
	Metadata json.RawMessage `json:"metadata,omitempty"`
}

// TokenValidity reports whether a per-user push token is still active.
type TokenValidity struct {
	UserToken string `json:"user_token"`
	Active    bool   `json:"active"`
}

// Rates maps currency codes to exchange rates.
type Rates map[string]json.RawMessage

// ReturnURL configures post-resolution redirection for a payload.
type ReturnURL struct {
	App string `json:"app,omitempty"`
	Web string `json:"web,omitempty"`
}

// PayloadOptions tune payload lifetime and submission behavior.
type PayloadOptions struct {
	Submit    bool       `json:"submit"`
	Expire    int        `json:"expire,omitempty"`
	ReturnURL *ReturnURL `json:"return_url,omitempty"`
}

// PayloadRequest describes a sign request to create.
type PayloadRequest struct {
	TxJSON     json.RawMessage `json:"txjson"`
	UserToken  string          `json:"user_token,omitempty"`
	Options    *PayloadOptions `json:"options,omitempty"`
	CustomMeta json.RawMessage `json:"custom_meta,omitempty"`
}

// CreatedPayload is the creation result, with the URLs and references a
// caller needs to hand the request to a user.
type CreatedPayload struct {
	UUID string `json:"uuid"`
	Next struct {
		Always                string `json:"always"`
		NoPushMessageReceived string `json:"no_push_msg_received,omitempty"`
	} `json:"next"`
	Refs struct {
		QRPNG           string `json:"qr_png"`
		WebsocketStatus string `json:"websocket_status"`
	} `json:"refs"`
	Pushed bool `json:"pushed"`
}

// PayloadMeta carries the resolution state of a payload.
type PayloadMeta struct {
	UUID      string `json:"uuid"`
	Exists    bool   `json:"exists"`
	Resolved  bool   `json:"resolved"`
	Signed    bool   `json:"signed"`
	Cancelled bool   `json:"cancelled"`
	Expired   bool   `json:"expired"`
	Pushed    bool   `json:"pushed"`
}

// PayloadResponse carries the signing outcome of a resolved payload.
type PayloadResponse struct {
	Account string `json:"account,omitempty"`
	TxID    string `json:"txid,omitempty"`
}

// Payload is a full payload lookup result.
type Payload struct {
	Meta        PayloadMeta     `json:"meta"`
	Application Application     `json:"application"`
	Response    PayloadResponse `json:"response"`
}

// CancelledPayload is the result of cancelling a pending payload.
type CancelledPayload struct {
	Result struct {
		Cancelled bool   `json:"cancelled"`
		Reason    string `json:"reason,omitempty"`
	} `json:"result"`
}

// PushBody is a push notification or silent event addressed to a
// per-user token.
type PushBody struct {
	UserToken string          `json:"user_token"`
	Subtitle  string          `json:"subtitle,omitempty"`
	Body      string          `json:"body,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// PushResult reports delivery of a push notification or event.
type PushResult struct {
	Pushed bool `json:"pushed"`
}

// Payloads is the payload CRUD sub-API.
type Payloads interface {
	Create(ctx context.Context, req *PayloadRequest) (*CreatedPayload, error)
	Get(ctx context.Context, uuid string) (*Payload, error)
	Cancel(ctx context.Context, uuid string) (*CancelledPayload, error)
}

// Push is the push notification sub-API.
type Push interface {
	Notification(ctx context.Context, body *PushBody) (*PushResult, error)
	Event(ctx context.Context, body *PushBody) (*PushResult, error)
}

// UserStore is the per-user key/value store available to token-issued
// sessions.
type UserStore interface {
	Get(ctx context.Context, keys ...string) (map[string]json.RawMessage, error)
	Set(ctx context.Context, key string, value json.RawMessage) (bool, error)
	Delete(ctx context.Context, key string) (bool, error)
}

// BackendStore is the single-document application storage.
type BackendStore interface {
	Get(ctx context.Context) (json.RawMessage, error)
	Set(ctx context.Context, value json.RawMessage) (bool, error)
	Delete(ctx context.Context) (bool, error)
}

// Client is the platform SDK surface shared by the key+secret and
// token-issued variants.
type Client interface {
	Ping(ctx context.Context) (*Pong, error)
	CuratedAssets(ctx context.Context) (*CuratedAssets, error)
	KycStatus(ctx context.Context, account string) (string, error)
	Transaction(ctx context.Context, txid string) (*Transaction, error)
	VerifyUserTokens(ctx context.Context, tokens []string) ([]TokenValidity, error)
	Rates(ctx context.Context, currency string) (Rates, error)
	NftokenDetail(ctx context.Context, tokenID string) (*NftokenDetail, error)

	Payloads() Payloads
	Push() Push
	UserStore() UserStore
	BackendStore() BackendStore
}

// SessionClient is the token-issued SDK variant. On top of the shared
// surface it exposes the one-time-token data and session token obtained
// during the xApp exchange.
type SessionClient interface {
	Client

	OttData(ctx context.Context) (*OttData, error)
	JWT(ctx context.Context) (string, error)
}

// EventSource exposes a collaborator's event stream. Each Subscribe
// call returns an independent channel; the cancel function releases it.
type EventSource interface {
	Subscribe() (<-chan events.Event, func())
}

// PKCE is the browser authorization-flow handler. It emits retrieved,
// success, error and loggedout events.
type PKCE interface {
	EventSource

	// Authorize starts or resumes the redirect/popup flow and blocks
	// until it resolves.
	Authorize(ctx context.Context) (*ResolvedFlow, error)

	// State returns the currently resolved flow, if any.
	State(ctx context.Context) (*ResolvedFlow, error)

	Logout(ctx context.Context) error
}

// Bridge is the embedded-WebView message bridge. It emits qr, payload
// and destination events.
type Bridge interface {
	EventSource

	// Environment returns the launch context, nil if not yet known.
	Environment() *BridgeEnvironment

	// SelectDestination asks the host app to open its destination picker.
	SelectDestination(ctx context.Context) error
}
