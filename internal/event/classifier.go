package event

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Classify converts a raw Telegram message into an Event, or reports why it
// must be skipped. It is a pure function of the message: no I/O, no clock.
// Skip conditions are evaluated in a fixed order, then kind precedence picks
// exactly one kind per message.
func Classify(msg *tgbotapi.Message) (Event, SkipReason) {
	if msg == nil || msg.From == nil {
		return Event{}, SkipNoSender
	}
	if msg.From.IsBot {
		return Event{}, SkipBotSender
	}
	if msg.Chat == nil || !(msg.Chat.IsGroup() || msg.Chat.IsSuperGroup()) {
		return Event{}, SkipNonGroupChat
	}
	if msg.IsCommand() {
		return Event{}, SkipCommand
	}

	ev := Event{
		UserID:     msg.From.ID,
		ChatID:     msg.Chat.ID,
		MessageID:  msg.MessageID,
		Kind:       kindOf(msg),
		OccurredAt: msg.Time().UTC(),
	}
	if msg.LeftChatMember != nil {
		ev.LeftMemberID = msg.LeftChatMember.ID
	}
	return ev, SkipNone
}

// kindOf assigns the single kind for a message. Precedence is total and
// first-match-wins: sticker, then rich media, then interactive payloads,
// then chat-management notices, then plain text.
func kindOf(msg *tgbotapi.Message) Kind {
	switch {
	case msg.Sticker != nil:
		return KindSticker
	case len(msg.Photo) > 0,
		msg.Video != nil,
		msg.Audio != nil,
		msg.Document != nil,
		msg.Voice != nil,
		msg.VideoNote != nil:
		return KindMedia
	case msg.Location != nil,
		msg.Contact != nil,
		msg.Animation != nil,
		msg.Poll != nil,
		msg.Dice != nil,
		msg.Game != nil,
		msg.Venue != nil:
		return KindOther
	case len(msg.NewChatMembers) > 0,
		msg.LeftChatMember != nil,
		msg.NewChatTitle != "",
		len(msg.NewChatPhoto) > 0,
		msg.DeleteChatPhoto,
		msg.GroupChatCreated,
		msg.SuperGroupChatCreated,
		msg.ChannelChatCreated,
		msg.PinnedMessage != nil:
		return KindSystem
	case msg.Text != "":
		return KindText
	default:
		return KindOther
	}
}
