// Package discord exposes the agent as a Discord bot that answers DMs and
// mentions.
package discord

import (
	"context"
	"fmt"
	"sync"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/chris/researchhub/internal/agent"
)

// Runner is the agent surface the bot needs. *agent.Agent satisfies it.
type Runner interface {
	Run(ctx context.Context, userMessage string, progress agent.ProgressFunc) *agent.Result
}

type Bot struct {
	session *discordgo.Session
	agent   Runner
	logger  *zap.Logger

	mu      sync.Mutex
	ownerID string // DM recipient for scheduled deliveries
}

// NewBot connects to Discord. ownerID may be empty; the first user to DM
// the bot then becomes the delivery target.
func NewBot(token, ownerID string, ag Runner, logger *zap.Logger) (*Bot, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("creating Discord session: %w", err)
	}

	bot := &Bot{session: s, agent: ag, logger: logger, ownerID: ownerID}
	s.AddHandler(bot.onMessage)
	s.Identify.Intents = discordgo.IntentsDirectMessages | discordgo.IntentsGuildMessages | discordgo.IntentsMessageContent

	if err := s.Open(); err != nil {
		return nil, fmt.Errorf("opening Discord connection: %w", err)
	}

	logger.Info("discord bot connected", zap.String("user", s.State.User.Username))
	return bot, nil
}

// SendToOwner delivers content to the owner's DMs.
func (b *Bot) SendToOwner(content string) error {
	b.mu.Lock()
	owner := b.ownerID
	b.mu.Unlock()
	if owner == "" {
		return fmt.Errorf("no discord owner known yet")
	}
	ch, err := b.session.UserChannelCreate(owner)
	if err != nil {
		return fmt.Errorf("opening DM channel: %w", err)
	}
	for _, chunk := range splitMessage(content, maxMessageLen) {
		if _, err := b.session.ChannelMessageSend(ch.ID, chunk); err != nil {
			return fmt.Errorf("sending DM: %w", err)
		}
	}
	return nil
}

func (b *Bot) Close() error {
	return b.session.Close()
}
