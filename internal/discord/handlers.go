package discord

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const (
	maxMessageLen = 2000
	runTimeout    = 5 * time.Minute
)

func (b *Bot) onMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	prompt, ok := extractPrompt(s.State.User.ID, m)
	if !ok {
		return
	}

	if m.GuildID == "" {
		b.mu.Lock()
		if b.ownerID == "" {
			b.ownerID = m.Author.ID
		}
		b.mu.Unlock()
	}

	s.ChannelTyping(m.ChannelID)

	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	// Each message is an independent run.
	res := b.agent.Run(ctx, prompt, func(status string) {
		if _, err := s.ChannelMessageSend(m.ChannelID, "_"+status+"_"); err != nil {
			b.logger.Debug("progress send failed", zap.Error(err))
		}
	})
	if res.Err != nil {
		b.logger.Warn("agent run failed", zap.String("run", res.RunID), zap.Error(res.Err))
	}

	for _, chunk := range splitMessage(res.Text, maxMessageLen) {
		if _, err := s.ChannelMessageSend(m.ChannelID, chunk); err != nil {
			b.logger.Warn("reply send failed", zap.String("channel", m.ChannelID), zap.Error(err))
			return
		}
	}
}

// extractPrompt returns the text to answer, or false when the message is
// not for the bot: its own messages, and guild messages without a mention.
func extractPrompt(botID string, m *discordgo.MessageCreate) (string, bool) {
	if m.Author == nil || m.Author.ID == botID {
		return "", false
	}
	isDM := m.GuildID == ""
	isMentioned := false
	for _, u := range m.Mentions {
		if u.ID == botID {
			isMentioned = true
			break
		}
	}
	if !isDM && !isMentioned {
		return "", false
	}
	content := strings.TrimSpace(stripMention(m.Content, botID))
	return content, content != ""
}

func stripMention(s, userID string) string {
	s = strings.ReplaceAll(s, "<@"+userID+">", "")
	s = strings.ReplaceAll(s, "<@!"+userID+">", "")
	return s
}

func splitMessage(s string, maxLen int) []string {
	if len(s) <= maxLen {
		return []string{s}
	}
	var chunks []string
	for len(s) > 0 {
		end := maxLen
		if end > len(s) {
			end = len(s)
		}
		// Try to split at a newline
		if idx := strings.LastIndex(s[:end], "\n"); idx > 0 {
			end = idx + 1
		}
		chunks = append(chunks, s[:end])
		s = s[end:]
	}
	return chunks
}
