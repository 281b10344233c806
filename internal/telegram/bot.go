// Package telegram runs the long-polling bot surface.
package telegram

import (
	"context"
	"errors"
	"strings"

	"github.com/chatrank/chatrank/internal/config"
	"github.com/chatrank/chatrank/internal/ingest"
	leaderboarddomain "github.com/chatrank/chatrank/internal/leaderboard/domain"
	scoringdomain "github.com/chatrank/chatrank/internal/scoring/domain"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type BotParam struct {
	fx.In

	Config config.Config
	Log    *zap.Logger
	Ingest *ingest.Service
	Board  leaderboarddomain.Service
}

type Bot struct {
	api    *tgbotapi.BotAPI
	log    *zap.Logger
	cfg    config.Config
	ingest *ingest.Service
	board  leaderboarddomain.Service

	done chan struct{}
}

// NewBot wires the bot into the application lifecycle. Without a token
// the bot stays disabled and only the HTTP surface serves traffic.
func NewBot(lc fx.Lifecycle, p BotParam) (*Bot, error) {
	log := p.Log.Named("telegram")

	if p.Config.BotToken == "" {
		log.Warn("no bot token configured, telegram surface disabled")
		return nil, nil
	}

	api, err := tgbotapi.NewBotAPI(p.Config.BotToken)
	if err != nil {
		return nil, err
	}
	api.Debug = p.Config.BotDebug

	bot := &Bot{
		api:    api,
		log:    log,
		cfg:    p.Config,
		ingest: p.Ingest,
		board:  p.Board,
		done:   make(chan struct{}),
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("bot authorized", zap.String("username", api.Self.UserName))
			go bot.run()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			api.StopReceivingUpdates()
			select {
			case <-bot.done:
			case <-ctx.Done():
				return ctx.Err()
			}
			return nil
		},
	})

	return bot, nil
}

func (b *Bot) run() {
	defer close(b.done)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.cfg.BotPollTimeout

	for update := range b.api.GetUpdatesChan(u) {
		if update.Message == nil {
			continue
		}
		b.handleMessage(context.Background(), update.Message)
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.IsCommand() {
		b.handleCommand(ctx, msg)
		return
	}

	result, err := b.ingest.Process(ctx, msg)
	if err != nil {
		b.log.Error("ingest failed",
			zap.Int64("chat_id", msg.Chat.ID),
			zap.Int("message_id", msg.MessageID),
			zap.Error(err),
		)
		return
	}
	b.log.Debug("message ingested",
		zap.Int64("chat_id", msg.Chat.ID),
		zap.Int("message_id", msg.MessageID),
		zap.String("status", string(result.Status)),
	)
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	switch msg.Command() {
	case "start":
		// Greetings belong in the groups the bot tracks, not in DMs.
		if isGroupChat(msg.Chat) {
			b.reply(msg.Chat.ID, welcomeMessage)
		}
	case "help":
		if isGroupChat(msg.Chat) {
			b.reply(msg.Chat.ID, helpMessage)
		}
	case "leaderboard":
		b.handleLeaderboard(ctx, msg)
	case "mystats", "rank":
		b.handleMyStats(ctx, msg)
	}
}

func (b *Bot) handleLeaderboard(ctx context.Context, msg *tgbotapi.Message) {
	period, err := parsePeriodArg(msg.CommandArguments())
	if err != nil {
		b.reply(msg.Chat.ID, "Unknown period. Use daily, weekly, monthly or all.")
		return
	}

	entries, err := b.board.Rank(ctx, leaderboarddomain.RankRequest{Period: period})
	if err != nil {
		b.log.Error("leaderboard query failed", zap.String("period", string(period)), zap.Error(err))
		b.reply(msg.Chat.ID, "Sorry, the leaderboard is unavailable right now. Please try again later.")
		return
	}

	b.reply(msg.Chat.ID, formatLeaderboard(entries, period))
}

func (b *Bot) handleMyStats(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}

	period, err := parsePeriodArg(msg.CommandArguments())
	if err != nil {
		b.reply(msg.Chat.ID, "Unknown period. Use daily, weekly, monthly or all.")
		return
	}

	stats, err := b.board.UserStats(ctx, msg.From.ID, period, msg.Time().UTC())
	if err != nil {
		if errors.Is(err, leaderboarddomain.ErrUserNotFound) {
			b.reply(msg.Chat.ID, "I haven't seen any activity from you yet. Send a message first!")
			return
		}
		b.log.Error("user stats query failed", zap.Int64("user_id", msg.From.ID), zap.Error(err))
		b.reply(msg.Chat.ID, "Sorry, stats are unavailable right now. Please try again later.")
		return
	}

	b.reply(msg.Chat.ID, formatUserStats(stats, period))
}

func (b *Bot) reply(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.DisableWebPagePreview = true
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func isGroupChat(chat *tgbotapi.Chat) bool {
	return chat != nil && (chat.IsGroup() || chat.IsSuperGroup())
}

func parsePeriodArg(args string) (scoringdomain.PeriodType, error) {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return scoringdomain.PeriodAllTime, nil
	}
	return scoringdomain.ParsePeriod(fields[0])
}

var Module = fx.Module("telegram",
	fx.Provide(NewBot),
	fx.Invoke(func(*Bot) {}),
)
