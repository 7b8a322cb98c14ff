package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"miuinotify/internal/chat"
)

// Client adapts a discordgo bot session to chat.Client.
type Client struct {
	session *discordgo.Session
	guildID string
	logger  *zap.Logger
}

// New prepares a bot session for guildID. Nothing is dialed until Open.
func New(token, guildID string, logger *zap.Logger) (*Client, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("error creating discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds
	return &Client{session: session, guildID: guildID, logger: logger}, nil
}

func (c *Client) Open(ctx context.Context) error {
	if err := c.session.Open(); err != nil {
		return fmt.Errorf("error connecting to discord gateway: %w", err)
	}
	c.logger.Info("Connected to Discord", zap.String("guild_id", c.guildID))
	return nil
}

// Channels lists the guild's text channels with their parent category id.
func (c *Client) Channels(ctx context.Context) ([]chat.Channel, error) {
	raw, err := c.session.GuildChannels(c.guildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("error listing channels of guild %s: %w", c.guildID, err)
	}
	return textChannels(raw), nil
}

func (c *Client) Send(ctx context.Context, channelID string, msg chat.Message) error {
	sent, err := c.session.ChannelMessageSendEmbed(channelID, Embed(msg), discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("error sending embed to channel %s: %w", channelID, err)
	}
	c.logger.Debug("Sent embed", zap.String("channel_id", channelID), zap.String("message_id", sent.ID))
	return nil
}

func (c *Client) Close() error {
	return c.session.Close()
}

// Embed renders msg as a Discord embed with inline link fields.
func Embed(msg chat.Message) *discordgo.MessageEmbed {
	fields := make([]*discordgo.MessageEmbedField, 0, len(msg.Fields))
	for _, f := range msg.Fields {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:   f.Name,
			Value:  fmt.Sprintf("[%s](%s)", f.Label, f.URL),
			Inline: true,
		})
	}
	return &discordgo.MessageEmbed{
		Title:       msg.Title,
		Description: msg.Description,
		Color:       msg.Color,
		Fields:      fields,
	}
}

func textChannels(raw []*discordgo.Channel) []chat.Channel {
	channels := make([]chat.Channel, 0, len(raw))
	for _, ch := range raw {
		if ch.Type != discordgo.ChannelTypeGuildText {
			continue
		}
		channels = append(channels, chat.Channel{ID: ch.ID, Name: ch.Name, Category: ch.ParentID})
	}
	return channels
}
