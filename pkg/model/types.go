// Package model holds the shared types of the TrueFriend core. It sits at
// the bottom of the dependency graph so that store, flow, relay and router
// can exchange values without importing each other.
package model

import (
	"database/sql"
	"time"
)

// Platform identifies one of the supported messaging transports.
type Platform string

const (
	PlatformWhatsApp Platform = "whatsapp"
	PlatformTelegram Platform = "telegram"
)

// Valid reports whether p is one of the supported platforms.
func (p Platform) Valid() bool {
	return p == PlatformWhatsApp || p == PlatformTelegram
}

// Other returns the alternate platform, used for delivery fallback and for
// routing one-time passwords to a user's second device.
func (p Platform) Other() Platform {
	if p == PlatformWhatsApp {
		return PlatformTelegram
	}
	return PlatformWhatsApp
}

// StateTag names a step in a multi-turn conversation flow. The empty tag
// means no flow is active; absence of a row is equivalent to StateNone.
type StateTag string

const (
	StateNone        StateTag = ""
	StateRegUsername StateTag = "REG_USERNAME"
	StateRegEmail    StateTag = "REG_EMAIL"
	StateRegPassword StateTag = "REG_PASSWORD"
	StateRegGender   StateTag = "REG_GENDER"
	StateRegAvatar   StateTag = "REG_AVATAR"
	StateRegPersona  StateTag = "REG_PERSONA"
	StateOTPWait     StateTag = "OTP_WAIT"
)

// Gender is the binary enum used for both the user and the agent persona.
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

// Mood selects the tone of the agent persona.
type Mood string

const (
	MoodSupportive Mood = "supportive"
	MoodSarcastic  Mood = "sarcastic"
	MoodFormal     Mood = "formal"
	MoodMystical   Mood = "mystical"
)

// KnownMoods lists the accepted /mood arguments in display order.
var KnownMoods = []Mood{MoodSupportive, MoodSarcastic, MoodFormal, MoodMystical}

// Identity is the platform-independent account record for a user.
// PasswordHash is a bcrypt digest and must never be surfaced to callers
// outside the store.
type Identity struct {
	ID                int64          `db:"id"`
	Username          string         `db:"username"`
	Email             sql.NullString `db:"email"`
	PasswordHash      string         `db:"password_hash"`
	WhatsAppID        sql.NullString `db:"whatsapp_id"`
	TelegramID        sql.NullString `db:"telegram_id"`
	PreferredPlatform sql.NullString `db:"preferred_platform"`
	RecoveryKey       sql.NullString `db:"recovery_key"`
	Mood              sql.NullString `db:"mood"`
	SelfGender        sql.NullString `db:"self_gender"`
	AgentGender       sql.NullString `db:"agent_gender"`
	AvatarURL         sql.NullString `db:"avatar_url"`
	Bio               sql.NullString `db:"bio"`
	SystemPrompt      sql.NullString `db:"system_prompt"`
	Verified          bool           `db:"verified"`
	Professional      bool           `db:"professional"`
	ChatTarget        sql.NullInt64  `db:"chat_target"`
	LastSeen          time.Time      `db:"last_seen"`
	CreatedAt         time.Time      `db:"created_at"`
}

// AddressFor returns the identity's linked address on the given platform,
// or false when no address is bound there.
func (u *Identity) AddressFor(p Platform) (string, bool) {
	switch p {
	case PlatformWhatsApp:
		return u.WhatsAppID.String, u.WhatsAppID.Valid && u.WhatsAppID.String != ""
	case PlatformTelegram:
		return u.TelegramID.String, u.TelegramID.Valid && u.TelegramID.String != ""
	}
	return "", false
}

// MoodTag returns the identity's mood, defaulting to supportive.
func (u *Identity) MoodTag() Mood {
	if u.Mood.Valid && u.Mood.String != "" {
		return Mood(u.Mood.String)
	}
	return MoodSupportive
}

// OutboundEnvelope is a single deliverable message for a platform worker.
// Envelopes are immutable after creation and consumed exactly once.
type OutboundEnvelope struct {
	ID             string   `json:"id"`
	Platform       Platform `json:"platform"`
	Address        string   `json:"address"`
	Text           string   `json:"text"`
	AttachmentPath string   `json:"attachment_path,omitempty"`
}

// FriendStatus is the lifecycle of a friendship edge: directed while
// pending, undirected once accepted.
type FriendStatus string

const (
	FriendPending  FriendStatus = "pending"
	FriendAccepted FriendStatus = "accepted"
)

// ConversationTurn is one logged chat exchange with the completion service.
type ConversationTurn struct {
	ID        int64     `db:"id"`
	UserID    int64     `db:"user_id"`
	Message   string    `db:"message"`
	Response  string    `db:"response"`
	CreatedAt time.Time `db:"created_at"`
}
