// Package preview holds dry-run platform clients that print instead of post.
package preview

import (
	"context"
	"fmt"
	"io"
	"strings"

	"miuinotify/internal/chat"
)

// Chat prints messages instead of sending them. Channels come from the wrapped
// client when there is one, otherwise a lone fallback channel is reported so
// every update has somewhere to go.
type Chat struct {
	w        io.Writer
	inner    chat.Client
	category string
	names    map[string]string
}

// NewChat wraps inner, which may be nil.
func NewChat(w io.Writer, inner chat.Client, category string) *Chat {
	return &Chat{w: w, inner: inner, category: category, names: map[string]string{}}
}

func (c *Chat) Open(ctx context.Context) error {
	if c.inner == nil {
		return nil
	}
	return c.inner.Open(ctx)
}

func (c *Chat) Channels(ctx context.Context) ([]chat.Channel, error) {
	channels := []chat.Channel{{ID: "preview", Name: chat.FallbackChannel, Category: c.category}}
	if c.inner != nil {
		var err error
		if channels, err = c.inner.Channels(ctx); err != nil {
			return nil, err
		}
	}
	for _, ch := range channels {
		c.names[ch.ID] = ch.Name
	}
	return channels, nil
}

func (c *Chat) Send(_ context.Context, channelID string, msg chat.Message) error {
	name := c.names[channelID]
	if name == "" {
		name = channelID
	}
	var b strings.Builder
	fmt.Fprintf(&b, "== #%s: %s\n%s\n", name, msg.Title, msg.Description)
	for _, f := range msg.Fields {
		fmt.Fprintf(&b, "  %s: %s <%s>\n", f.Name, f.Label, f.URL)
	}
	b.WriteString("\n")
	_, err := io.WriteString(c.w, b.String())
	return err
}

func (c *Chat) Close() error {
	if c.inner == nil {
		return nil
	}
	return c.inner.Close()
}

// Microblog prints posts and hands out sequential ids.
type Microblog struct {
	w    io.Writer
	next int
}

func NewMicroblog(w io.Writer) *Microblog {
	return &Microblog{w: w}
}

func (m *Microblog) Post(_ context.Context, text, replyTo string) (string, error) {
	m.next++
	id := fmt.Sprintf("preview-%d", m.next)
	header := "== post " + id
	if replyTo != "" {
		header += " (reply to " + replyTo + ")"
	}
	if _, err := fmt.Fprintf(m.w, "%s\n%s\n\n", header, text); err != nil {
		return "", err
	}
	return id, nil
}
