package channels

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
)

// Console is a stdout delivery channel, used when no messaging platform is
// configured and by the CLI one-shot commands.
type Console struct {
	mu  sync.Mutex
	out io.Writer
}

// NewConsole creates a console channel writing to stdout.
func NewConsole() *Console {
	return &Console{out: os.Stdout}
}

// NewConsoleWriter creates a console channel writing to w. Used in tests.
func NewConsoleWriter(w io.Writer) *Console {
	return &Console{out: w}
}

func (c *Console) Name() string { return "console" }

func (c *Console) Connect(context.Context) error { return nil }

func (c *Console) Disconnect() error { return nil }

func (c *Console) IsConnected() bool { return true }

// Send writes the message with a chat prefix.
func (c *Console) Send(_ context.Context, chatID, content string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := fmt.Fprintf(c.out, "[%s] %s\n", chatID, content)
	return err
}
