package domain

import "time"

// Kind names a canonical event exactly as it appears on the wire. Overlays
// key their handlers off these strings, so the values must never change.
type Kind string

const (
	KindChat         Kind = "tiktok_chat"
	KindPlayerJoin   Kind = "player_join"
	KindPlayerAttack Kind = "player_attack"
	KindLike         Kind = "tiktok_like"
	KindShare        Kind = "tiktok_share"
	KindGift         Kind = "tiktok_gift"
	KindGiftLegacy   Kind = "gift_received"
	KindConnected    Kind = "tiktok_connected"
	KindDisconnected Kind = "tiktok_disconnected"
	KindError        Kind = "tiktok_error"
)

// User identifies the viewer that triggered an event. Zero value means the
// event has no originating viewer (connection state changes, errors).
type User struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	AvatarURL   string `json:"avatarUrl"`
}

// Event is the canonical representation of one upstream occurrence,
// tagged with the tenant it belongs to. Events are immutable once built.
type Event struct {
	Kind      Kind
	TenantID  string
	User      User
	Timestamp time.Time
	Payload   Payload
}

// Payload carries the kind-specific fields of an Event.
type Payload interface {
	isPayload()
}

// ChatPayload carries the original comment text, untouched. Command
// matching happens on a lowered copy during normalization.
type ChatPayload struct {
	Comment string `json:"comment"`
}

// JoinPayload marks a viewer joining the game via chat command.
type JoinPayload struct{}

// AttackPayload carries the damage rolled for an attack command.
type AttackPayload struct {
	Damage int `json:"damage"`
}

// LikePayload carries the burst size and the running total for the room.
type LikePayload struct {
	Count int `json:"likeCount"`
	Total int `json:"totalLikeCount"`
}

// SharePayload carries the upstream display type that was matched as a share.
type SharePayload struct {
	DisplayType string `json:"displayType"`
}

// GiftClass buckets a gift by its resolved coin value.
type GiftClass string

const (
	GiftSmall  GiftClass = "small"
	GiftMedium GiftClass = "medium"
	GiftLarge  GiftClass = "large"
)

// GiftPayload describes one gift with its resolved value and class.
type GiftPayload struct {
	Name        string    `json:"giftName"`
	Value       int       `json:"giftValue"`
	Class       GiftClass `json:"giftType"`
	RepeatCount int       `json:"repeatCount"`
}

// ConnectedPayload announces an established upstream feed.
type ConnectedPayload struct {
	RoomID string `json:"roomId"`
}

// DisconnectedPayload announces an upstream feed that went away.
type DisconnectedPayload struct{}

// ErrorPayload surfaces a non-fatal upstream error to subscribers.
type ErrorPayload struct {
	Message string `json:"message"`
}

func (ChatPayload) isPayload()         {}
func (JoinPayload) isPayload()         {}
func (AttackPayload) isPayload()       {}
func (LikePayload) isPayload()         {}
func (SharePayload) isPayload()        {}
func (GiftPayload) isPayload()         {}
func (ConnectedPayload) isPayload()    {}
func (DisconnectedPayload) isPayload() {}
func (ErrorPayload) isPayload()        {}
