package normalize

import (
	"math/rand"
	"strings"

	"github.com/jonboulle/clockwork"
	"github.com/vamnguyen/tiktok-live-games/internal/domain"
)

// commandAliases maps lowered, trimmed chat comments to the derived event
// they trigger. Vietnamese aliases stay for the original audience.
var commandAliases = map[string]domain.Kind{
	"join":    domain.KindPlayerJoin,
	"thamgia": domain.KindPlayerJoin,
	"hit":     domain.KindPlayerAttack,
	"danh":    domain.KindPlayerAttack,
	"attack":  domain.KindPlayerAttack,
}

const (
	giftMediumFloor = 10
	giftLargeFloor  = 100

	attackDamageBase   = 5
	attackDamageSpread = 10
)

// shareDisplayType is the only social subcode forwarded to overlays. All
// other social subtypes (follow prompts, profile visits) are dropped.
const shareDisplayType = "share"

// Normalizer maps raw upstream payloads onto the canonical vocabulary.
type Normalizer struct {
	clock  clockwork.Clock
	damage func() int
}

// New creates a Normalizer stamping events with the given clock.
func New(clock clockwork.Clock) *Normalizer {
	return &Normalizer{
		clock: clock,
		damage: func() int {
			return attackDamageBase + rand.Intn(attackDamageSpread)
		},
	}
}

// FromRaw converts one upstream payload into its canonical events, in
// emission order. A single raw event may fan out into several canonical
// events; dropped events yield an empty result.
func (n *Normalizer) FromRaw(tenantID string, raw domain.RawEvent) []domain.Event {
	switch raw.Type {
	case domain.RawChat:
		return n.chat(tenantID, raw)
	case domain.RawLike:
		payload := domain.LikePayload{Count: raw.LikeCount, Total: raw.TotalLikeCount}
		return []domain.Event{n.event(tenantID, domain.KindLike, raw.User, payload)}
	case domain.RawSocial:
		return n.social(tenantID, raw)
	case domain.RawGift:
		return n.gift(tenantID, raw)
	default:
		return nil
	}
}

// Connected builds the canonical event announcing an established feed.
func (n *Normalizer) Connected(tenantID, roomID string) domain.Event {
	return n.event(tenantID, domain.KindConnected, domain.User{}, domain.ConnectedPayload{RoomID: roomID})
}

// Disconnected builds the canonical event for an upstream feed going away.
func (n *Normalizer) Disconnected(tenantID string) domain.Event {
	return n.event(tenantID, domain.KindDisconnected, domain.User{}, domain.DisconnectedPayload{})
}

// Error builds the canonical event surfacing a non-fatal upstream error.
func (n *Normalizer) Error(tenantID string, err error) domain.Event {
	return n.event(tenantID, domain.KindError, domain.User{}, domain.ErrorPayload{Message: err.Error()})
}

// chat always forwards the comment untouched; a recognized command alias
// additionally derives a game event from the same comment.
func (n *Normalizer) chat(tenantID string, raw domain.RawEvent) []domain.Event {
	events := []domain.Event{
		n.event(tenantID, domain.KindChat, raw.User, domain.ChatPayload{Comment: raw.Comment}),
	}

	command := strings.ToLower(strings.TrimSpace(raw.Comment))
	switch commandAliases[command] {
	case domain.KindPlayerJoin:
		events = append(events, n.event(tenantID, domain.KindPlayerJoin, raw.User, domain.JoinPayload{}))
	case domain.KindPlayerAttack:
		payload := domain.AttackPayload{Damage: n.damage()}
		events = append(events, n.event(tenantID, domain.KindPlayerAttack, raw.User, payload))
	}
	return events
}

func (n *Normalizer) social(tenantID string, raw domain.RawEvent) []domain.Event {
	if !strings.Contains(strings.ToLower(raw.DisplayType), shareDisplayType) {
		return nil
	}
	payload := domain.SharePayload{DisplayType: raw.DisplayType}
	return []domain.Event{n.event(tenantID, domain.KindShare, raw.User, payload)}
}

// gift emits every gift twice: once as tiktok_gift and once under the
// legacy gift_received name older overlays still listen for.
func (n *Normalizer) gift(tenantID string, raw domain.RawEvent) []domain.Event {
	value := raw.GiftAmount()
	payload := domain.GiftPayload{
		Name:        raw.GiftName,
		Value:       value,
		Class:       Classify(value),
		RepeatCount: raw.RepeatCount,
	}
	return []domain.Event{
		n.event(tenantID, domain.KindGift, raw.User, payload),
		n.event(tenantID, domain.KindGiftLegacy, raw.User, payload),
	}
}

// Classify buckets a resolved gift value: small below 10, medium below
// 100, large from 100 up.
func Classify(value int) domain.GiftClass {
	switch {
	case value >= giftLargeFloor:
		return domain.GiftLarge
	case value >= giftMediumFloor:
		return domain.GiftMedium
	default:
		return domain.GiftSmall
	}
}

func (n *Normalizer) event(tenantID string, kind domain.Kind, user domain.User, payload domain.Payload) domain.Event {
	return domain.Event{
		Kind:      kind,
		TenantID:  tenantID,
		User:      user,
		Timestamp: n.clock.Now(),
		Payload:   payload,
	}
}
