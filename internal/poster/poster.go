// Package poster fans a batch of updates out to every configured platform.
package poster

import (
	"context"

	"go.uber.org/zap"

	"miuinotify/internal/chat"
	"miuinotify/internal/commontypes"
	"miuinotify/internal/microblog"
)

type ChatNotifier interface {
	PostUpdates(ctx context.Context, updates []commontypes.Update) ([]chat.Result, error)
}

type MicroblogNotifier interface {
	PostUpdates(ctx context.Context, updates []commontypes.Update) ([]microblog.Result, error)
}

// LinkFilter drops updates whose download link does not work.
type LinkFilter interface {
	Filter(ctx context.Context, updates []commontypes.Update) []commontypes.Update
}

// PlatformReport counts the updates one platform delivered. Err is set when
// the platform failed as a whole, e.g. it could not open a session.
type PlatformReport struct {
	Name   string
	Sent   int
	Failed int
	Err    error
}

type Report struct {
	Received  int
	Dropped   int
	Platforms []PlatformReport
}

type platform struct {
	name string
	post func(ctx context.Context, updates []commontypes.Update) PlatformReport
}

type Option func(*Poster)

func WithLinkFilter(f LinkFilter) Option {
	return func(p *Poster) { p.filter = f }
}

// WithChat appends a chat platform. Platforms run in the order they are added.
func WithChat(name string, n ChatNotifier) Option {
	return func(p *Poster) {
		p.platforms = append(p.platforms, platform{name: name, post: func(ctx context.Context, updates []commontypes.Update) PlatformReport {
			rep := PlatformReport{Name: name}
			results, err := n.PostUpdates(ctx, updates)
			for _, r := range results {
				if r.Status == chat.StatusSent {
					rep.Sent++
				} else {
					rep.Failed++
				}
			}
			rep.Err = err
			return rep
		}})
	}
}

// WithMicroblog appends a microblog platform. An update whose thread went out
// only partially counts as failed.
func WithMicroblog(name string, n MicroblogNotifier) Option {
	return func(p *Poster) {
		p.platforms = append(p.platforms, platform{name: name, post: func(ctx context.Context, updates []commontypes.Update) PlatformReport {
			rep := PlatformReport{Name: name}
			results, err := n.PostUpdates(ctx, updates)
			for _, r := range results {
				if r.OK() {
					rep.Sent++
				} else {
					rep.Failed++
				}
			}
			rep.Err = err
			return rep
		}})
	}
}

type Poster struct {
	filter    LinkFilter
	platforms []platform
	logger    *zap.Logger
}

func New(logger *zap.Logger, opts ...Option) *Poster {
	p := &Poster{logger: logger}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Post delivers updates to each platform in turn. A failing platform does not
// stop the others; only a done ctx ends the run early, with ctx.Err().
func (p *Poster) Post(ctx context.Context, updates []commontypes.Update) (Report, error) {
	report := Report{Received: len(updates)}

	if p.filter != nil {
		updates = p.filter.Filter(ctx, updates)
		report.Dropped = report.Received - len(updates)
	}
	if len(updates) == 0 {
		p.logger.Info("Nothing to post")
		return report, nil
	}

	for _, pl := range p.platforms {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		p.logger.Info("Posting updates", zap.String("platform", pl.name), zap.Int("updates", len(updates)))

		rep := pl.post(ctx, updates)
		report.Platforms = append(report.Platforms, rep)
		if rep.Err != nil {
			p.logger.Error("Platform failed",
				zap.String("platform", pl.name),
				zap.Error(rep.Err))
			continue
		}
		p.logger.Info("Finished platform",
			zap.String("platform", pl.name),
			zap.Int("sent", rep.Sent),
			zap.Int("failed", rep.Failed))
	}
	return report, ctx.Err()
}
