package tiktok

import (
	"encoding/json"
	"fmt"

	"github.com/vamnguyen/tiktok-live-games/internal/domain"
)

// Webcast frame types this pipeline consumes. Everything else on the
// socket (member joins, room stats, control acks) is skipped.
const (
	frameChat   = "chat"
	frameLike   = "like"
	frameSocial = "social"
	frameGift   = "gift"
)

// frame is the JSON envelope carried on the webcast socket.
type frame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type wireUser struct {
	UserID            string `json:"userId"`
	UniqueID          string `json:"uniqueId"`
	Nickname          string `json:"nickname"`
	ProfilePictureURL string `json:"profilePictureUrl"`
}

func (u wireUser) toDomain() domain.User {
	id := u.UniqueID
	if id == "" {
		id = u.UserID
	}
	return domain.User{ID: id, DisplayName: u.Nickname, AvatarURL: u.ProfilePictureURL}
}

type chatFrame struct {
	wireUser
	Comment string `json:"comment"`
}

type likeFrame struct {
	wireUser
	LikeCount      int `json:"likeCount"`
	TotalLikeCount int `json:"totalLikeCount"`
}

type socialFrame struct {
	wireUser
	DisplayType string `json:"displayType"`
}

type giftFrame struct {
	wireUser
	GiftName     string `json:"giftName"`
	DiamondCount *int   `json:"diamondCount"`
	GiftValue    *int   `json:"giftValue"`
	RepeatCount  int    `json:"repeatCount"`
}

// decodeFrame parses one webcast message into a RawEvent. ok reports
// whether the frame belongs to a consumed family.
func decodeFrame(data []byte) (domain.RawEvent, bool, error) {
	var f frame
	if err := json.Unmarshal(data, &f); err != nil {
		return domain.RawEvent{}, false, fmt.Errorf("webcast frame: %w", err)
	}

	switch f.Type {
	case frameChat:
		var p chatFrame
		if err := json.Unmarshal(f.Data, &p); err != nil {
			return domain.RawEvent{}, false, fmt.Errorf("chat frame: %w", err)
		}
		return domain.RawEvent{Type: domain.RawChat, User: p.toDomain(), Comment: p.Comment}, true, nil

	case frameLike:
		var p likeFrame
		if err := json.Unmarshal(f.Data, &p); err != nil {
			return domain.RawEvent{}, false, fmt.Errorf("like frame: %w", err)
		}
		return domain.RawEvent{
			Type:           domain.RawLike,
			User:           p.toDomain(),
			LikeCount:      p.LikeCount,
			TotalLikeCount: p.TotalLikeCount,
		}, true, nil

	case frameSocial:
		var p socialFrame
		if err := json.Unmarshal(f.Data, &p); err != nil {
			return domain.RawEvent{}, false, fmt.Errorf("social frame: %w", err)
		}
		return domain.RawEvent{Type: domain.RawSocial, User: p.toDomain(), DisplayType: p.DisplayType}, true, nil

	case frameGift:
		var p giftFrame
		if err := json.Unmarshal(f.Data, &p); err != nil {
			return domain.RawEvent{}, false, fmt.Errorf("gift frame: %w", err)
		}
		return domain.RawEvent{
			Type:         domain.RawGift,
			User:         p.toDomain(),
			GiftName:     p.GiftName,
			DiamondCount: p.DiamondCount,
			GiftValue:    p.GiftValue,
			RepeatCount:  p.RepeatCount,
		}, true, nil
	}

	return domain.RawEvent{}, false, nil
}
