// Package event normalizes raw Telegram messages into typed activity events.
package event

import "time"

// Kind is the closed set of activity kinds a message can classify to.
type Kind string

const (
	KindText    Kind = "text"
	KindSticker Kind = "sticker"
	KindMedia   Kind = "media"
	KindSystem  Kind = "system"
	KindOther   Kind = "other"
)

// SkipReason explains why a message was not converted into an event.
type SkipReason string

const (
	SkipNone         SkipReason = ""
	SkipNoSender     SkipReason = "no_sender"
	SkipBotSender    SkipReason = "bot_sender"
	SkipNonGroupChat SkipReason = "non_group_chat"
	SkipCommand      SkipReason = "command"
)

// Event is an immutable, classified activity notification.
type Event struct {
	UserID     int64
	ChatID     int64
	MessageID  int
	Kind       Kind
	OccurredAt time.Time

	// LeftMemberID is set for system notices announcing a member departure.
	LeftMemberID int64
}
