// Package discord implements the Discord delivery channel using discordgo.
// The heartbeat only sends: incoming guild traffic is not consumed, so the
// session runs with no message intents and no handlers.
package discord

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/bwmarrin/discordgo"

	"github.com/avelis/wakeclaw/pkg/wakeclaw/channels"
)

// maxMessageLen is Discord's per-message character limit.
const maxMessageLen = 2000

// Config holds Discord channel configuration.
type Config struct {
	// Token is the Discord bot token. Resolved through the secret chain
	// (env → keyring → config) before the channel is constructed.
	Token string `yaml:"token"`
}

// Discord implements channels.Channel.
type Discord struct {
	cfg       Config
	logger    *slog.Logger
	session   *discordgo.Session
	connected atomic.Bool
}

// New creates a new Discord channel instance.
func New(cfg Config, logger *slog.Logger) *Discord {
	if logger == nil {
		logger = slog.Default()
	}
	return &Discord{
		cfg:    cfg,
		logger: logger.With("component", "discord"),
	}
}

// Name returns "discord".
func (d *Discord) Name() string { return "discord" }

// Connect opens the Discord gateway WebSocket connection.
func (d *Discord) Connect(ctx context.Context) error {
	if d.cfg.Token == "" {
		return fmt.Errorf("discord: bot token is required")
	}

	session, err := discordgo.New("Bot " + d.cfg.Token)
	if err != nil {
		return fmt.Errorf("discord: creating session: %w", err)
	}

	// Outbound only: the gateway connection is kept just for presence and
	// send authorization.
	session.Identify.Intents = discordgo.IntentsNone

	if err := session.Open(); err != nil {
		return fmt.Errorf("discord: opening gateway: %w", err)
	}

	d.session = session
	d.connected.Store(true)

	user := session.State.User
	d.logger.Info("discord: connected", "bot", user.Username, "id", user.ID)
	return nil
}

// Disconnect closes the Discord gateway connection.
func (d *Discord) Disconnect() error {
	if d.session != nil {
		d.session.Close()
	}
	d.connected.Store(false)
	d.logger.Info("discord: disconnected")
	return nil
}

// IsConnected returns true if the bot is connected.
func (d *Discord) IsConnected() bool { return d.connected.Load() }

// Send sends a text message to the specified channel, splitting messages
// that exceed Discord's 2000 character limit.
func (d *Discord) Send(ctx context.Context, chatID, content string) error {
	if d.session == nil {
		return channels.ErrChannelDisconnected
	}

	for _, chunk := range splitMessage(content, maxMessageLen) {
		if _, err := d.session.ChannelMessageSend(chatID, chunk); err != nil {
			return fmt.Errorf("discord: send to %s: %w", chatID, err)
		}
	}
	return nil
}

// splitMessage splits text into chunks respecting maxLen, preferring to cut
// at a newline past the halfway point.
func splitMessage(text string, maxLen int) []string {
	if len(text) <= maxLen {
		return []string{text}
	}
	var chunks []string
	for len(text) > 0 {
		if len(text) <= maxLen {
			chunks = append(chunks, text)
			break
		}
		cutAt := maxLen
		if idx := strings.LastIndex(text[:maxLen], "\n"); idx > maxLen/2 {
			cutAt = idx + 1
		}
		chunks = append(chunks, text[:cutAt])
		text = text[cutAt:]
	}
	return chunks
}

// Compile-time interface verification.
var _ channels.Channel = (*Discord)(nil)
