package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/m-mizutani/goerr/v2"

	"miuinotify/internal/chat"
	"miuinotify/internal/microblog"
	"miuinotify/internal/twitter"
)

const (
	DefaultWebsite       = "https://xiaomifirmwareupdater.com"
	DefaultSlackCategory = "miui"
	DefaultCatalogDriver = "postgres"
)

var (
	ErrMissing = goerr.New("missing configuration")
	ErrInvalid = goerr.New("invalid configuration")
)

type Config struct {
	Discord Discord
	Slack   Slack
	Twitter Twitter
	Catalog Catalog

	Website string
	Delay   time.Duration
}

type Discord struct {
	Token    string
	GuildID  string
	Category string
}

func (d Discord) Enabled() bool { return d.Token != "" && d.GuildID != "" }

type Slack struct {
	Token    string
	Category string
}

func (s Slack) Enabled() bool { return s.Token != "" }

type Twitter struct {
	twitter.Credentials
}

func (t Twitter) Enabled() bool {
	return t.ConsumerKey != "" && t.ConsumerSecret != "" &&
		t.AccessToken != "" && t.AccessTokenSecret != ""
}

// Catalog points at the device database. When DSN is empty for postgres it is
// assembled from the DB_* variables.
type Catalog struct {
	Driver string
	DSN    string
}

// Load reads the given env files, or .env when none are given, and then the
// process environment. A missing default .env is not an error.
func Load(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil {
		if len(files) > 0 || !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("error loading env file: %w", err)
		}
	}

	config := &Config{
		Discord: Discord{
			Token:    os.Getenv("DISCORD_BOT_TOKEN"),
			GuildID:  os.Getenv("DISCORD_GUILD_ID"),
			Category: getenv("DISCORD_CATEGORY_ID", chat.DefaultCategory),
		},
		Slack: Slack{
			Token:    os.Getenv("SLACK_BOT_TOKEN"),
			Category: getenv("SLACK_CATEGORY", DefaultSlackCategory),
		},
		Twitter: Twitter{twitter.Credentials{
			ConsumerKey:       os.Getenv("TWITTER_CONSUMER_KEY"),
			ConsumerSecret:    os.Getenv("TWITTER_CONSUMER_SECRET"),
			AccessToken:       os.Getenv("TWITTER_ACCESS_TOKEN"),
			AccessTokenSecret: os.Getenv("TWITTER_ACCESS_TOKEN_SECRET"),
		}},
		Catalog: Catalog{
			Driver: getenv("CATALOG_DRIVER", DefaultCatalogDriver),
			DSN:    os.Getenv("CATALOG_DSN"),
		},
		Website: getenv("WEBSITE", DefaultWebsite),
		Delay:   microblog.DefaultDelay,
	}

	if v := os.Getenv("POST_DELAY"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			return nil, goerr.Wrap(ErrInvalid, "POST_DELAY must be a non-negative duration", goerr.V("value", v))
		}
		config.Delay = d
	}

	if config.Catalog.DSN == "" && config.Catalog.Driver == "postgres" {
		dsn, err := postgresDSN()
		if err != nil {
			return nil, err
		}
		config.Catalog.DSN = dsn
	}
	if config.Catalog.DSN == "" {
		return nil, goerr.Wrap(ErrMissing, "CATALOG_DSN is required", goerr.V("driver", config.Catalog.Driver))
	}

	return config, nil
}

// postgresDSN builds a lib/pq connection string from DB_HOST and friends.
func postgresDSN() (string, error) {
	keys := []string{"DB_HOST", "DB_PORT", "DB_NAME", "DB_USER", "DB_PASSWORD"}
	values := make(map[string]string, len(keys))
	for _, k := range keys {
		v := os.Getenv(k)
		if v == "" {
			return "", goerr.Wrap(ErrMissing, "CATALOG_DSN or DB_* variables are required", goerr.V("key", k))
		}
		values[k] = v
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		values["DB_HOST"], values["DB_PORT"], values["DB_USER"], values["DB_PASSWORD"], values["DB_NAME"]), nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
