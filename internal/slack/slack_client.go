package slack

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/slack-go/slack"
	"go.uber.org/zap"

	"miuinotify/internal/chat"
)

// Client adapts the Slack Web API to chat.Client.
//
// Slack has no channel categories, so a channel named "miui-redmi_series"
// is reported as channel "redmi_series" in category "miui".
type Client struct {
	api       *slack.Client
	logger    *zap.Logger
	pagePause time.Duration
}

// New builds a client for a bot token. opts are passed to slack.New (tests set
// slack.OptionAPIURL).
func New(token string, logger *zap.Logger, opts ...slack.Option) *Client {
	return &Client{
		api:       slack.New(token, opts...),
		logger:    logger,
		pagePause: 500 * time.Millisecond,
	}
}

// Open verifies the token.
func (c *Client) Open(ctx context.Context) error {
	auth, err := c.api.AuthTestContext(ctx)
	if err != nil {
		return fmt.Errorf("slack auth test failed: %w", err)
	}
	c.logger.Info("Connected to Slack",
		zap.String("team", auth.Team),
		zap.String("user", auth.User))
	return nil
}

// Channels pages through every public and private channel the bot can see.
func (c *Client) Channels(ctx context.Context) ([]chat.Channel, error) {
	params := &slack.GetConversationsParameters{
		ExcludeArchived: true,
		Limit:           1000,
		Types:           []string{"public_channel", "private_channel"},
	}

	var channels []chat.Channel
	cursor := ""
	for {
		params.Cursor = cursor
		page, nextCursor, err := c.api.GetConversationsContext(ctx, params)
		if err != nil {
			return nil, fmt.Errorf("error getting conversations from Slack: %w", err)
		}
		for _, ch := range page {
			category, name := splitCategory(ch.Name)
			channels = append(channels, chat.Channel{ID: ch.ID, Name: name, Category: category})
		}
		c.logger.Debug("Received channel page",
			zap.Int("count", len(page)),
			zap.Bool("has_more", nextCursor != ""))

		if nextCursor == "" {
			break
		}
		cursor = nextCursor

		// Be nice to the API
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.pagePause):
		}
	}
	return channels, nil
}

// Send posts msg as a colored attachment.
func (c *Client) Send(ctx context.Context, channelID string, msg chat.Message) error {
	_, ts, err := c.api.PostMessageContext(ctx, channelID, slack.MsgOptionAttachments(attachment(msg)))
	if err != nil {
		return fmt.Errorf("error posting to Slack channel %s: %w", channelID, err)
	}
	c.logger.Debug("Posted Slack message", zap.String("channel_id", channelID), zap.String("ts", ts))
	return nil
}

// Close is a no-op; the Web API is stateless.
func (c *Client) Close() error {
	return nil
}

func attachment(msg chat.Message) slack.Attachment {
	fields := make([]slack.AttachmentField, 0, len(msg.Fields))
	for _, f := range msg.Fields {
		fields = append(fields, slack.AttachmentField{
			Title: f.Name,
			Value: fmt.Sprintf("<%s|%s>", f.URL, f.Label),
			Short: true,
		})
	}
	return slack.Attachment{
		Color:      fmt.Sprintf("#%06x", msg.Color),
		Title:      msg.Title,
		Text:       toMrkdwn(msg.Description),
		Fields:     fields,
		MarkdownIn: []string{"text", "fields"},
	}
}

// toMrkdwn converts **bold** to Slack's *bold*.
func toMrkdwn(s string) string {
	return strings.ReplaceAll(s, "**", "*")
}

func splitCategory(name string) (category, rest string) {
	category, rest, ok := strings.Cut(name, "-")
	if !ok {
		return "", name
	}
	return category, rest
}
