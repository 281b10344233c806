package telegram

import (
	"fmt"
	"strings"

	leaderboarddomain "github.com/chatrank/chatrank/internal/leaderboard/domain"
	scoringdomain "github.com/chatrank/chatrank/internal/scoring/domain"
)

var markdownEscaper = strings.NewReplacer(
	"_", "\\_",
	"*", "\\*",
	"[", "\\[",
	"]", "\\]",
	"(", "\\(",
	")", "\\)",
	"~", "\\~",
	"`", "\\`",
	">", "\\>",
	"#", "\\#",
	"+", "\\+",
	"=", "\\=",
	"|", "\\|",
	"{", "\\{",
	"}", "\\}",
	".", "\\.",
	"!", "\\!",
	"-", "\\-",
)

func escapeMarkdown(text string) string {
	return markdownEscaper.Replace(text)
}

func medal(rank int) string {
	switch rank {
	case 1:
		return "🥇"
	case 2:
		return "🥈"
	case 3:
		return "🥉"
	default:
		return fmt.Sprintf("%d.", rank)
	}
}

func periodTitle(period scoringdomain.PeriodType) string {
	switch period {
	case scoringdomain.PeriodDay:
		return "DAILY"
	case scoringdomain.PeriodWeek:
		return "WEEKLY"
	case scoringdomain.PeriodMonth:
		return "MONTHLY"
	default:
		return "ALL-TIME"
	}
}

func displayName(username, name string) string {
	if username != "" {
		return "@" + escapeMarkdown(username)
	}
	return escapeMarkdown(name)
}

func formatLeaderboard(entries []leaderboarddomain.Entry, period scoringdomain.PeriodType) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🏆 *%s LEADERBOARD* 🏆\n\n", periodTitle(period))

	if len(entries) == 0 {
		b.WriteString("No activity recorded yet! Start chatting to see the leaderboard!")
		return b.String()
	}

	for _, entry := range entries {
		fmt.Fprintf(&b, "%s *%s*\n", medal(entry.Rank), displayName(entry.Username, entry.DisplayName))
		fmt.Fprintf(&b, "   📨 %d messages", entry.MessageCount)
		if entry.StickerCount > 0 {
			fmt.Fprintf(&b, " | 🎭 %d stickers", entry.StickerCount)
		}
		fmt.Fprintf(&b, " | ⭐ %d points\n\n", entry.Points)
	}

	b.WriteString("_Use /leaderboard [daily|weekly|monthly|all] to see different periods_")
	return b.String()
}

func formatUserStats(stats *leaderboarddomain.UserStats, period scoringdomain.PeriodType) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📊 *%s stats for %s*\n\n", periodTitle(period), displayName(stats.Username, stats.DisplayName))
	fmt.Fprintf(&b, "📨 Messages: %d\n", stats.MessageCount)
	fmt.Fprintf(&b, "🎭 Stickers: %d\n", stats.StickerCount)
	fmt.Fprintf(&b, "⭐ Points: %d\n", stats.Points)

	if stats.Rank > 0 {
		fmt.Fprintf(&b, "🏅 Rank: %d of %d tracked members\n", stats.Rank, stats.TotalTracked)
	} else {
		b.WriteString("🏅 Not ranked yet, send a message to get on the board!\n")
	}
	return b.String()
}

const welcomeMessage = `🤖 *ChatRank is now active!* 🤖

I'm monitoring this group to track activity and build leaderboards.

*Available Commands:*
• /leaderboard - Show all-time leaderboard
• /leaderboard daily - Show today's leaderboard
• /leaderboard weekly - Show this week's leaderboard
• /leaderboard monthly - Show this month's leaderboard
• /mystats [period] - Show your own standing

*Point System:*
• 📨 1 point per message
• 🎭 2 points per sticker

Let's see who's the most active! 🏆`

const helpMessage = `🆘 *Help - ChatRank* 🆘

*What I Do:*
• Track messages and stickers in this group
• Calculate daily, weekly, and monthly statistics
• Maintain leaderboards with a durable activity ledger

*Commands:*
• /start - Welcome message and setup
• /help - Show this help message
• /leaderboard [period] - Show leaderboards
  - No period = all-time leaderboard
  - daily = today's activity
  - weekly = this week's activity
  - monthly = this month's activity
• /mystats [period] - Your own counts, points and rank
• /rank [period] - Alias for /mystats

*Point System:*
• Regular messages: 1 point each
• Stickers: 2 points each`
