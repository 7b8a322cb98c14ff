package chat

import (
	"context"
	"fmt"

	"github.com/m-mizutani/goerr/v2"
	"go.uber.org/zap"

	"miuinotify/internal/commontypes"
)

// DefaultCategory is the channel category holding the device channels on the
// Xiaomi community server.
const DefaultCategory = "699991467560534136"

var (
	ErrDeliveryFailed = goerr.New("chat delivery failed")
	ErrLookupFailed   = goerr.New("device lookup failed")
)

// Client is the part of a chat platform SDK the notifier drives.
type Client interface {
	Open(ctx context.Context) error
	Channels(ctx context.Context) ([]Channel, error)
	Send(ctx context.Context, channelID string, msg Message) error
	Close() error
}

// Catalog resolves device names and incremental packages.
type Catalog interface {
	FullName(ctx context.Context, codename string) (string, error)
	DeviceName(ctx context.Context, codename string) (string, error)
	Incremental(ctx context.Context, version string) (*commontypes.Update, error)
}

// Status is the outcome of a single update.
type Status int

const (
	StatusSent Status = iota
	StatusNoDestination
	StatusLookupFailed
	StatusDeliveryFailed
)

func (s Status) String() string {
	switch s {
	case StatusSent:
		return "sent"
	case StatusNoDestination:
		return "no_destination"
	case StatusLookupFailed:
		return "lookup_failed"
	case StatusDeliveryFailed:
		return "delivery_failed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Result reports what happened to one update. Err is nil only for StatusSent.
type Result struct {
	Update  commontypes.Update
	Status  Status
	Channel Channel
	Err     error
}

// Notifier posts one rich message per update to device channels.
type Notifier struct {
	client   Client
	catalog  Catalog
	category string
	website  string
	logger   *zap.Logger
}

// NewNotifier builds a notifier routing into the channels of category.
func NewNotifier(client Client, catalog Catalog, category, website string, logger *zap.Logger) *Notifier {
	return &Notifier{
		client:   client,
		catalog:  catalog,
		category: category,
		website:  website,
		logger:   logger,
	}
}

// PostUpdates opens a session, delivers every update and closes the session.
// The returned error covers session failures only; per-update failures are in
// the results.
func (n *Notifier) PostUpdates(ctx context.Context, updates []commontypes.Update) ([]Result, error) {
	if err := n.client.Open(ctx); err != nil {
		return nil, fmt.Errorf("error opening chat session: %w", err)
	}
	defer func() {
		if err := n.client.Close(); err != nil {
			n.logger.Warn("Failed to close chat session", zap.Error(err))
		}
	}()

	destinations, err := n.Destinations(ctx)
	if err != nil {
		return nil, err
	}
	n.logger.Info("Resolved chat destinations",
		zap.Int("count", destinations.Len()),
		zap.Strings("keys", destinations.Keys()))

	results := make([]Result, 0, len(updates))
	for _, update := range updates {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res := n.post(ctx, destinations, update)
		if res.Err != nil {
			n.logger.Warn("Can't send chat message for update",
				zap.String("codename", update.Codename),
				zap.String("version", update.Version),
				zap.Stringer("status", res.Status),
				zap.Error(res.Err))
		} else {
			n.logger.Info("Sent chat message",
				zap.String("codename", update.Codename),
				zap.String("version", update.Version),
				zap.String("channel", res.Channel.Name))
		}
		results = append(results, res)
	}
	return results, nil
}

// Destinations lists the platform channels and builds the routing table.
func (n *Notifier) Destinations(ctx context.Context) (*Destinations, error) {
	channels, err := n.client.Channels(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing chat channels: %w", err)
	}
	return NewDestinations(channels, n.category), nil
}

// Message renders the message for update using the catalog.
func (n *Notifier) Message(ctx context.Context, update commontypes.Update) (Message, error) {
	fullName, err := n.catalog.FullName(ctx, update.Codename)
	if err != nil {
		return Message{}, fmt.Errorf("%w: full name of %s: %w", ErrLookupFailed, update.Codename, err)
	}

	var incremental *commontypes.Update
	if update.Method == "Recovery" {
		incremental, err = n.catalog.Incremental(ctx, update.Version)
		if err != nil {
			return Message{}, fmt.Errorf("%w: incremental of %s: %w", ErrLookupFailed, update.Version, err)
		}
	}
	return BuildMessage(update, fullName, incremental, n.website), nil
}

func (n *Notifier) post(ctx context.Context, destinations *Destinations, update commontypes.Update) Result {
	res := Result{Update: update}

	msg, err := n.Message(ctx, update)
	if err != nil {
		res.Status, res.Err = StatusLookupFailed, err
		return res
	}

	device, err := n.catalog.DeviceName(ctx, update.Codename)
	if err != nil {
		res.Status = StatusLookupFailed
		res.Err = fmt.Errorf("%w: device name of %s: %w", ErrLookupFailed, update.Codename, err)
		return res
	}

	channel, err := destinations.Resolve(device)
	if err != nil {
		res.Status, res.Err = StatusNoDestination, err
		return res
	}
	res.Channel = channel

	if err := n.client.Send(ctx, channel.ID, msg); err != nil {
		res.Status = StatusDeliveryFailed
		res.Err = fmt.Errorf("%w: channel %s: %w", ErrDeliveryFailed, channel.Name, err)
		return res
	}
	res.Status = StatusSent
	return res
}
