package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"miuinotify/internal/batch"
	"miuinotify/internal/catalog"
	"miuinotify/internal/chat"
	"miuinotify/internal/config"
	"miuinotify/internal/discord"
	"miuinotify/internal/linkcheck"
	"miuinotify/internal/microblog"
	"miuinotify/internal/poster"
	"miuinotify/internal/preview"
	"miuinotify/internal/slack"
	"miuinotify/internal/twitter"
)

const linkTimeout = 15 * time.Second

// app carries what every command needs once Before has run.
type app struct {
	debug   bool
	envFile string
	logger  *zap.Logger
	config  *config.Config
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{}
	cmd := &cli.Command{
		Name:  "miuinotify",
		Usage: "Announce MIUI ROM updates on Discord, Slack and Twitter",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "debug",
				Usage:       "Verbose development logging",
				Destination: &a.debug,
				Sources:     cli.EnvVars("MIUINOTIFY_DEBUG"),
			},
			&cli.StringFlag{
				Name:        "env-file",
				Usage:       "Load environment from this file instead of .env",
				Destination: &a.envFile,
			},
		},
		Before: a.setup,
		After: func(ctx context.Context, c *cli.Command) error {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
			return nil
		},
		Commands: []*cli.Command{
			a.cmdPost(),
			a.cmdChannels(),
			a.cmdMigrate(),
		},
	}

	if err := cmd.Run(ctx, os.Args); err != nil {
		if a.logger == nil {
			log.Fatalf("miuinotify: %v", err)
		}
		a.logger.Fatal("Command failed", zap.Error(err))
	}
}

func (a *app) setup(ctx context.Context, c *cli.Command) (context.Context, error) {
	var err error
	if a.debug {
		a.logger, err = zap.NewDevelopment()
	} else {
		a.logger, err = zap.NewProduction()
	}
	if err != nil {
		return ctx, fmt.Errorf("failed to initialize logger: %w", err)
	}

	var files []string
	if a.envFile != "" {
		files = append(files, a.envFile)
	}
	a.config, err = config.Load(files...)
	if err != nil {
		return ctx, fmt.Errorf("failed to load configuration: %w", err)
	}
	return ctx, nil
}

func (a *app) cmdPost() *cli.Command {
	var (
		updatesPath   string
		dryRun        bool
		skipLinkCheck bool
	)
	return &cli.Command{
		Name:  "post",
		Usage: "Announce a batch of updates",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "updates",
				Aliases:     []string{"u"},
				Usage:       "YAML or JSON file with the updates, - for stdin",
				Required:    true,
				Destination: &updatesPath,
			},
			&cli.BoolFlag{
				Name:        "dry-run",
				Usage:       "Print messages and posts instead of sending them",
				Destination: &dryRun,
			},
			&cli.BoolFlag{
				Name:        "skip-link-check",
				Usage:       "Do not probe download links before posting",
				Destination: &skipLinkCheck,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			updates, err := batch.ReadFile(updatesPath)
			if err != nil {
				return err
			}
			a.logger.Info("Loaded updates", zap.String("file", updatesPath), zap.Int("count", len(updates)))

			store, err := catalog.Open(a.config.Catalog.Driver, a.config.Catalog.DSN, a.logger)
			if err != nil {
				return err
			}
			defer store.Close()

			opts, err := a.platforms(store, dryRun, os.Stdout)
			if err != nil {
				return err
			}
			if len(opts) == 0 {
				return fmt.Errorf("no platform is configured")
			}
			if !skipLinkCheck {
				opts = append(opts, poster.WithLinkFilter(linkcheck.New(linkTimeout, a.logger)))
			}

			report, err := poster.New(a.logger, opts...).Post(ctx, updates)
			printReport(os.Stdout, report)
			return err
		},
	}
}

// platforms builds the enabled platforms in delivery order: Discord, Slack,
// Twitter. A dry run prints instead of sending and always previews Discord
// and Twitter, reading real channel lists where credentials exist.
func (a *app) platforms(store *catalog.Store, dryRun bool, out io.Writer) ([]poster.Option, error) {
	cfg := a.config
	var opts []poster.Option

	if cfg.Discord.Enabled() || dryRun {
		var client chat.Client
		if cfg.Discord.Enabled() {
			dc, err := discord.New(cfg.Discord.Token, cfg.Discord.GuildID, a.logger)
			if err != nil {
				return nil, err
			}
			client = dc
		}
		if dryRun {
			client = preview.NewChat(out, client, cfg.Discord.Category)
		}
		n := chat.NewNotifier(client, store, cfg.Discord.Category, cfg.Website, a.logger.Named("discord"))
		opts = append(opts, poster.WithChat("discord", n))
	}

	if cfg.Slack.Enabled() {
		var client chat.Client = slack.New(cfg.Slack.Token, a.logger)
		if dryRun {
			client = preview.NewChat(out, client, cfg.Slack.Category)
		}
		n := chat.NewNotifier(client, store, cfg.Slack.Category, cfg.Website, a.logger.Named("slack"))
		opts = append(opts, poster.WithChat("slack", n))
	}

	if cfg.Twitter.Enabled() || dryRun {
		var client microblog.Client
		delay := cfg.Delay
		if dryRun {
			client, delay = preview.NewMicroblog(out), 0
		} else {
			client = twitter.New(cfg.Twitter.Credentials, a.logger)
		}
		n := microblog.NewNotifier(client, store, cfg.Website, a.logger.Named("twitter"), microblog.WithDelay(delay))
		opts = append(opts, poster.WithMicroblog("twitter", n))
	}
	return opts, nil
}

func (a *app) cmdChannels() *cli.Command {
	return &cli.Command{
		Name:  "channels",
		Usage: "List the chat channels and the routing keys built from them",
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg := a.config
			listed := 0
			if cfg.Discord.Enabled() {
				dc, err := discord.New(cfg.Discord.Token, cfg.Discord.GuildID, a.logger)
				if err != nil {
					return err
				}
				if err := listChannels(ctx, os.Stdout, "Discord", dc, cfg.Discord.Category); err != nil {
					return err
				}
				listed++
			}
			if cfg.Slack.Enabled() {
				if err := listChannels(ctx, os.Stdout, "Slack", slack.New(cfg.Slack.Token, a.logger), cfg.Slack.Category); err != nil {
					return err
				}
				listed++
			}
			if listed == 0 {
				return fmt.Errorf("no chat platform is configured")
			}
			return nil
		},
	}
}

func (a *app) cmdMigrate() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Create the catalog tables",
		Action: func(ctx context.Context, c *cli.Command) error {
			store, err := catalog.Open(a.config.Catalog.Driver, a.config.Catalog.DSN, a.logger)
			if err != nil {
				return err
			}
			defer store.Close()
			return store.Migrate(ctx)
		},
	}
}

func listChannels(ctx context.Context, w io.Writer, platform string, client chat.Client, category string) error {
	if err := client.Open(ctx); err != nil {
		return err
	}
	defer client.Close()

	channels, err := client.Channels(ctx)
	if err != nil {
		return err
	}
	sort.SliceStable(channels, func(i, j int) bool { return channels[i].Name < channels[j].Name })

	fmt.Fprintf(w, "\n%s channels:\n", platform)
	for _, ch := range channels {
		marker := ""
		if ch.Category == category {
			marker = " (routed)"
		}
		fmt.Fprintf(w, "- %s (ID: %s)%s\n", ch.Name, ch.ID, marker)
	}

	dest := chat.NewDestinations(channels, category)
	fmt.Fprintf(w, "Routing keys: %v\n", dest.Keys())
	return nil
}

func printReport(w io.Writer, report poster.Report) {
	fmt.Fprintf(w, "\nUpdates: %d received, %d dropped by link check\n", report.Received, report.Dropped)
	for _, p := range report.Platforms {
		if p.Err != nil {
			fmt.Fprintf(w, "- %s: failed: %v\n", p.Name, p.Err)
			continue
		}
		fmt.Fprintf(w, "- %s: %d sent, %d failed\n", p.Name, p.Sent, p.Failed)
	}
}
