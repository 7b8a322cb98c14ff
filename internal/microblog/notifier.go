package microblog

import (
	"context"
	"fmt"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"go.uber.org/zap"

	"miuinotify/internal/commontypes"
)

// DefaultDelay is the pause after every post.
const DefaultDelay = 60 * time.Second

var ErrPostFailed = goerr.New("microblog post failed")

// Client publishes a post and returns its id. replyTo is empty for a thread
// head.
type Client interface {
	Post(ctx context.Context, text, replyTo string) (string, error)
}

// Catalog resolves device names.
type Catalog interface {
	FullName(ctx context.Context, codename string) (string, error)
	DeviceName(ctx context.Context, codename string) (string, error)
}

// Result summarizes the thread sent for one update.
type Result struct {
	Update  commontypes.Update
	IDs     []string // ids of the posts that went out, in order
	Posts   int      // posts generated
	Skipped int      // replies not sent because their parent failed
	Errs    []error
}

// OK reports whether every generated post was published.
func (r Result) OK() bool {
	return len(r.Errs) == 0 && r.Skipped == 0 && len(r.IDs) == r.Posts
}

// Option configures a Notifier.
type Option func(*Notifier)

// WithDelay overrides DefaultDelay.
func WithDelay(d time.Duration) Option {
	return func(n *Notifier) { n.delay = d }
}

// WithSleep replaces the pacing wait, mainly for tests.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(n *Notifier) { n.sleep = sleep }
}

// Notifier publishes updates as short reply threads.
type Notifier struct {
	client  Client
	catalog Catalog
	website string
	delay   time.Duration
	sleep   func(ctx context.Context, d time.Duration) error
	logger  *zap.Logger
}

func NewNotifier(client Client, catalog Catalog, website string, logger *zap.Logger, opts ...Option) *Notifier {
	n := &Notifier{
		client:  client,
		catalog: catalog,
		website: website,
		delay:   DefaultDelay,
		sleep:   sleep,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Posts renders the posts of update using the catalog.
func (n *Notifier) Posts(ctx context.Context, update commontypes.Update) ([]string, error) {
	fullName, err := n.catalog.FullName(ctx, update.Codename)
	if err != nil {
		return nil, fmt.Errorf("error looking up full name of %s: %w", update.Codename, err)
	}
	family, err := n.catalog.DeviceName(ctx, update.Codename)
	if err != nil {
		return nil, fmt.Errorf("error looking up device name of %s: %w", update.Codename, err)
	}
	return GeneratePosts(update, commontypes.Device{FullName: fullName, Family: family}, n.website), nil
}

// PostUpdates sends every update strictly in order, pausing after each post.
// It stops early only when ctx is done.
func (n *Notifier) PostUpdates(ctx context.Context, updates []commontypes.Update) ([]Result, error) {
	results := make([]Result, 0, len(updates))
	for _, update := range updates {
		res, err := n.postUpdate(ctx, update)
		results = append(results, res)
		if err != nil {
			return results, err
		}
	}
	return results, nil
}

func (n *Notifier) postUpdate(ctx context.Context, update commontypes.Update) (Result, error) {
	res := Result{Update: update}

	posts, err := n.Posts(ctx, update)
	if err != nil {
		n.logger.Warn("Can't generate posts for update",
			zap.String("codename", update.Codename),
			zap.Error(err))
		res.Errs = append(res.Errs, err)
		return res, nil
	}
	res.Posts = len(posts)

	previous := ""
	for i, post := range posts {
		if i > 0 && previous == "" {
			n.logger.Warn("Skipping reply, parent post was not published",
				zap.String("codename", update.Codename),
				zap.Int("post", i+1))
			res.Skipped++
			continue
		}

		id, err := n.client.Post(ctx, post, previous)
		if err != nil {
			err = fmt.Errorf("%w: %w", ErrPostFailed, err)
			n.logger.Warn("Can't send post",
				zap.String("codename", update.Codename),
				zap.Int("post", i+1),
				zap.String("text", post),
				zap.Error(err))
			res.Errs = append(res.Errs, err)
			previous = ""
		} else {
			n.logger.Info("Sent post",
				zap.String("codename", update.Codename),
				zap.Int("post", i+1),
				zap.String("id", id))
			res.IDs = append(res.IDs, id)
			previous = id
		}

		if err := n.sleep(ctx, n.delay); err != nil {
			return res, err
		}
	}
	return res, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
