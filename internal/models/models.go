// package models defines the data model for the telephony sync client
package models

import (
	"encoding/json"
	"strings"
	"time"
)

// Record is implemented by every normalized resource record.
type Record interface {
	RecordID() string // RecordID returns a stable identifier, synthesized when the platform omits one
}

// Credential is the persisted session state.
//
// An empty AccessToken means unauthenticated regardless of the other fields.
// A zero ExpiresAt means no expiry was recorded (legacy credentials).
type Credential struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// IsZero reports whether no access token is held.
func (c Credential) IsZero() bool {
	return strings.TrimSpace(c.AccessToken) == ""
}

// ValidAt reports whether the credential can be used at now.
func (c Credential) ValidAt(now time.Time) bool {
	if c.IsZero() {
		return false
	}
	if c.ExpiresAt.IsZero() {
		return true
	}
	return now.Before(c.ExpiresAt)
}

// CanRefresh reports whether a refresh token is held.
func (c Credential) CanRefresh() bool {
	return strings.TrimSpace(c.RefreshToken) != ""
}

// IdentityClaims are decoded from the access token without signature verification.
//
// Display and bootstrap fallback only. Never use them for authorization.
type IdentityClaims struct {
	UserID    string
	AccountID int64
	Email     string
}

// Direction of a call record.
type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
	DirectionMissed   Direction = "missed"
	DirectionUnknown  Direction = "unknown"
)

// CallRecord is one normalized call history entry.
type CallRecord struct {
	ID              string    `json:"id"`
	ContactName     string    `json:"contact_name"`
	Number          string    `json:"number"`
	Direction       Direction `json:"direction"`
	StartedAt       time.Time `json:"started_at"`
	DurationSeconds int       `json:"duration_seconds"`
	Status          string    `json:"status,omitempty"`
	RecordingURL    string    `json:"recording_url,omitempty"`
}

func (c CallRecord) RecordID() string { return c.ID }

// DisplayName returns the contact name, falling back to the number.
func (c CallRecord) DisplayName() string {
	if c.ContactName != "" {
		return c.ContactName
	}
	return c.Number
}

// Recording is a stored call recording.
type Recording struct {
	ID              string    `json:"id"`
	CallID          string    `json:"call_id,omitempty"`
	Number          string    `json:"number"`
	URL             string    `json:"url"`
	CreatedAt       time.Time `json:"created_at"`
	DurationSeconds int       `json:"duration_seconds"`
}

func (r Recording) RecordID() string { return r.ID }

// NumberKind distinguishes numbers owned by the user from numbers offered by the platform.
type NumberKind string

const (
	NumberPersonal NumberKind = "personal"
	NumberPlatform NumberKind = "platform"
)

// PhoneNumber is a normalized phone number.
type PhoneNumber struct {
	ID       string     `json:"id"`
	Number   string     `json:"number"`
	Country  string     `json:"country"`
	Label    string     `json:"label"`
	Location string     `json:"location,omitempty"`
	Kind     NumberKind `json:"kind"`
}

func (p PhoneNumber) RecordID() string { return p.ID }

// AccountSource records where an [Account] came from.
type AccountSource string

const (
	AccountFromAPI    AccountSource = "api"
	AccountFromClaims AccountSource = "token"
)

// Account is the normalized account profile.
type Account struct {
	UserID    string        `json:"user_id"`
	AccountID int64         `json:"account_id"`
	Email     string        `json:"email,omitempty"`
	Name      string        `json:"name,omitempty"`
	Balance   float64       `json:"balance,omitempty"`
	Currency  string        `json:"currency,omitempty"`
	Source    AccountSource `json:"source"`
}

func (a Account) RecordID() string { return a.UserID }

// AccountFromIdentity builds an [Account] from decoded claims.
func AccountFromIdentity(c IdentityClaims) Account {
	return Account{
		UserID:    c.UserID,
		AccountID: c.AccountID,
		Email:     c.Email,
		Source:    AccountFromClaims,
	}
}

// Snapshot is the persisted last good collection of one resource type.
type Snapshot struct {
	Resource    string
	Items       json.RawMessage
	ItemCount   int
	RefreshedAt time.Time
}
