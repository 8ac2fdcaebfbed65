package domain

import "context"

// RawEventType discriminates the upstream payload families.
type RawEventType string

const (
	RawChat   RawEventType = "chat"
	RawLike   RawEventType = "like"
	RawSocial RawEventType = "social"
	RawGift   RawEventType = "gift"
)

// RawEvent is an upstream payload as the live client delivers it. Which
// fields are populated depends on Type; the value fields use pointers
// where upstream payloads legitimately omit them.
type RawEvent struct {
	Type RawEventType
	User User

	// chat
	Comment string

	// like
	LikeCount      int
	TotalLikeCount int

	// social
	DisplayType string

	// gift
	DiamondCount *int
	GiftValue    *int
	GiftName     string
	RepeatCount  int
}

// GiftAmount resolves the coin value of a gift. Upstream payloads carry it
// in one of several alternative fields; the first present field wins, in
// the order DiamondCount, GiftValue. Absent, zero, and negative values all
// resolve to 1 coin.
func (e RawEvent) GiftAmount() int {
	var value int
	switch {
	case e.DiamondCount != nil:
		value = *e.DiamondCount
	case e.GiftValue != nil:
		value = *e.GiftValue
	}
	if value <= 0 {
		return 1
	}
	return value
}

// LiveHandlers receives the callbacks for one tenant's upstream feed.
// Implementations of LiveSource invoke them from a single goroutine, in
// upstream emission order. Nil handlers are skipped.
type LiveHandlers struct {
	Event        func(RawEvent)
	Connected    func(roomID string)
	Disconnected func()
	Error        func(err error)
}

// LiveStream is one established upstream feed.
type LiveStream interface {
	// Disconnect tears the feed down. Best effort: it never reports an
	// error and is safe to call more than once.
	Disconnect()
}

// LiveSource dials upstream live feeds, one per tenant.
type LiveSource interface {
	// Connect resolves the tenant's live room and establishes the feed.
	// On success the returned stream is already delivering callbacks.
	Connect(ctx context.Context, tenantID string, handlers LiveHandlers) (LiveStream, error)
}
