// Package channels defines the outbound delivery surface for proactive
// messages. Each channel (Discord, console) implements the Channel interface
// and registers with the Manager, which routes by channel name.
package channels

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Channel is a destination for proactive messages.
type Channel interface {
	// Name returns the channel identifier (e.g. "discord").
	Name() string

	// Connect establishes the connection to the platform.
	Connect(ctx context.Context) error

	// Disconnect gracefully closes the connection.
	Disconnect() error

	// Send delivers a message to the given chat.
	Send(ctx context.Context, chatID, content string) error

	// IsConnected reports whether the channel is usable.
	IsConnected() bool
}

// Errors.
var (
	ErrChannelNotFound     = fmt.Errorf("channel not registered")
	ErrChannelDisconnected = fmt.Errorf("channel is not connected")
)

// Manager holds registered channels and routes outgoing messages.
type Manager struct {
	mu       sync.RWMutex
	channels map[string]Channel
	logger   *slog.Logger
}

// NewManager creates an empty channel registry.
func NewManager(logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		channels: make(map[string]Channel),
		logger:   logger.With("component", "channels"),
	}
}

// Register adds a channel. Registering the same name twice is an error.
func (m *Manager) Register(ch Channel) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.channels[ch.Name()]; exists {
		return fmt.Errorf("channel %q already registered", ch.Name())
	}
	m.channels[ch.Name()] = ch
	return nil
}

// Get returns a registered channel by name.
func (m *Manager) Get(name string) (Channel, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ch, ok := m.channels[name]
	return ch, ok
}

// Send routes a message to the named channel.
func (m *Manager) Send(ctx context.Context, channel, chatID, content string) error {
	ch, ok := m.Get(channel)
	if !ok {
		return fmt.Errorf("%w: %q", ErrChannelNotFound, channel)
	}
	if !ch.IsConnected() {
		return fmt.Errorf("%w: %q", ErrChannelDisconnected, channel)
	}
	return ch.Send(ctx, chatID, content)
}

// ConnectAll connects every registered channel concurrently, logging
// failures without aborting the rest.
func (m *Manager) ConnectAll(ctx context.Context) {
	m.mu.RLock()
	chans := make([]Channel, 0, len(m.channels))
	for _, ch := range m.channels {
		chans = append(chans, ch)
	}
	m.mu.RUnlock()

	var g errgroup.Group
	for _, ch := range chans {
		g.Go(func() error {
			if err := ch.Connect(ctx); err != nil {
				m.logger.Error("channel connect failed", "channel", ch.Name(), "error", err)
				return nil
			}
			m.logger.Info("channel connected", "channel", ch.Name())
			return nil
		})
	}
	_ = g.Wait()
}

// DisconnectAll closes every registered channel.
func (m *Manager) DisconnectAll() {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for name, ch := range m.channels {
		if err := ch.Disconnect(); err != nil {
			m.logger.Warn("channel disconnect failed", "channel", name, "error", err)
		}
	}
}
