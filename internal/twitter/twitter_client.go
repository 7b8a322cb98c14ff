package twitter

import (
	"context"
	"fmt"
	"net/http"

	"github.com/dghubble/oauth1"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// DefaultBaseURL is the Twitter API v2 host.
const DefaultBaseURL = "https://api.twitter.com"

// Credentials are the OAuth 1.0a user-context keys of the posting account.
type Credentials struct {
	ConsumerKey       string
	ConsumerSecret    string
	AccessToken       string
	AccessTokenSecret string
}

type createTweetRequest struct {
	Text  string      `json:"text"`
	Reply *replyField `json:"reply,omitempty"`
}

type replyField struct {
	InReplyToTweetID string `json:"in_reply_to_tweet_id"`
}

type createTweetResponse struct {
	Data struct {
		ID   string `json:"id"`
		Text string `json:"text"`
	} `json:"data"`
}

type apiError struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
	Status int    `json:"status"`
}

// Client posts tweets through the v2 API.
type Client struct {
	rest   *resty.Client
	logger *zap.Logger
}

// New signs every request with creds.
func New(creds Credentials, logger *zap.Logger) *Client {
	config := oauth1.NewConfig(creds.ConsumerKey, creds.ConsumerSecret)
	token := oauth1.NewToken(creds.AccessToken, creds.AccessTokenSecret)
	return NewWithHTTPClient(config.Client(oauth1.NoContext, token), DefaultBaseURL, logger)
}

// NewWithHTTPClient uses an already authenticated HTTP client.
func NewWithHTTPClient(httpClient *http.Client, baseURL string, logger *zap.Logger) *Client {
	rest := resty.NewWithClient(httpClient).
		SetHostURL(baseURL).
		SetHeader("Content-Type", "application/json")
	return &Client{rest: rest, logger: logger}
}

// Post publishes text, as a reply when replyTo is set, and returns the tweet id.
func (c *Client) Post(ctx context.Context, text, replyTo string) (string, error) {
	body := createTweetRequest{Text: text}
	if replyTo != "" {
		body.Reply = &replyField{InReplyToTweetID: replyTo}
	}

	var out createTweetResponse
	var apiErr apiError
	resp, err := c.rest.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&out).
		SetError(&apiErr).
		Post("/2/tweets")
	if err != nil {
		return "", fmt.Errorf("error posting tweet: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("twitter api status %d: %s %s", resp.StatusCode(), apiErr.Title, apiErr.Detail)
	}
	if out.Data.ID == "" {
		return "", fmt.Errorf("twitter api returned no tweet id: %s", resp.String())
	}

	c.logger.Debug("Tweet created",
		zap.String("id", out.Data.ID),
		zap.String("reply_to", replyTo),
		zap.Int("length", len(text)))
	return out.Data.ID, nil
}
