package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/lib/pq"
	"github.com/m-mizutani/goerr/v2"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"miuinotify/internal/commontypes"
)

var ErrDeviceNotFound = goerr.New("device not found in catalog")

const schema = `
CREATE TABLE IF NOT EXISTS devices (
	codename TEXT PRIMARY KEY,
	name     TEXT NOT NULL,
	family   TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS updates (
	codename  TEXT NOT NULL,
	version   TEXT NOT NULL,
	android   TEXT NOT NULL DEFAULT '',
	branch    TEXT NOT NULL DEFAULT '',
	method    TEXT NOT NULL DEFAULT '',
	type      TEXT NOT NULL DEFAULT 'Full',
	size      BIGINT NOT NULL DEFAULT 0,
	md5       TEXT NOT NULL DEFAULT '',
	changelog TEXT NOT NULL DEFAULT '',
	link      TEXT NOT NULL,
	filename  TEXT NOT NULL DEFAULT '',
	date      TEXT NOT NULL DEFAULT ''
);`

// Store answers device and incremental lookups from the tracker database.
type Store struct {
	db     *sql.DB
	driver string
	logger *zap.Logger
}

// Open connects to the catalog database. driver is "postgres" or "sqlite".
func Open(driver, dsn string, logger *zap.Logger) (*Store, error) {
	switch driver {
	case "postgres", "sqlite":
	default:
		return nil, goerr.New("unsupported catalog driver", goerr.V("driver", driver))
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("error connecting to database: %w", err)
	}
	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("error pinging database: %w", err)
	}
	return New(db, driver, logger), nil
}

// New wraps an already opened database.
func New(db *sql.DB, driver string, logger *zap.Logger) *Store {
	return &Store{db: db, driver: driver, logger: logger}
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate creates the catalog tables when they are missing.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("error creating catalog schema: %w", err)
	}
	return nil
}

// UpsertDevice inserts or renames a device.
func (s *Store) UpsertDevice(ctx context.Context, codename string, dev commontypes.Device) error {
	query := s.rebind(`
		INSERT INTO devices (codename, name, family)
		VALUES (?, ?, ?)
		ON CONFLICT (codename)
		DO UPDATE SET name = EXCLUDED.name, family = EXCLUDED.family`)

	s.logger.Debug("Upserting device",
		zap.String("codename", codename),
		zap.String("name", dev.FullName))

	if _, err := s.db.ExecContext(ctx, query, codename, dev.FullName, dev.Family); err != nil {
		return fmt.Errorf("error upserting device '%s': %w", codename, err)
	}
	return nil
}

// AddUpdate records a release; used to seed incrementals.
func (s *Store) AddUpdate(ctx context.Context, u commontypes.Update) error {
	query := s.rebind(`
		INSERT INTO updates (codename, version, android, branch, method, type, size, md5, changelog, link, filename, date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)

	kind := u.Type
	if kind == "" {
		kind = "Full"
	}
	_, err := s.db.ExecContext(ctx, query, u.Codename, u.Version, u.Android, u.Branch, u.Method,
		kind, u.Size, u.MD5, u.Changelog, u.Link, u.Filename, u.Date)
	if err != nil {
		return fmt.Errorf("error saving update %s %s: %w", u.Codename, u.Version, err)
	}
	return nil
}

// Device returns the full and family names of a codename.
func (s *Store) Device(ctx context.Context, codename string) (commontypes.Device, error) {
	var dev commontypes.Device
	query := s.rebind(`SELECT name, family FROM devices WHERE codename = ?`)
	err := s.db.QueryRowContext(ctx, query, codename).Scan(&dev.FullName, &dev.Family)
	if errors.Is(err, sql.ErrNoRows) {
		return dev, goerr.Wrap(ErrDeviceNotFound, "lookup device", goerr.V("codename", codename))
	}
	if err != nil {
		return dev, fmt.Errorf("error querying device '%s': %w", codename, err)
	}
	return dev, nil
}

// FullName returns the marketing name of a codename, region included.
func (s *Store) FullName(ctx context.Context, codename string) (string, error) {
	dev, err := s.Device(ctx, codename)
	return dev.FullName, err
}

// DeviceName returns the device family name used for channel routing and hashtags.
func (s *Store) DeviceName(ctx context.Context, codename string) (string, error) {
	dev, err := s.Device(ctx, codename)
	return dev.Family, err
}

// Incremental returns the incremental package built for version, or nil when
// there is none.
func (s *Store) Incremental(ctx context.Context, version string) (*commontypes.Update, error) {
	query := s.rebind(`
		SELECT codename, version, android, branch, method, type, size, md5, changelog, link, filename, date
		FROM updates
		WHERE version = ? AND type = 'Incremental'
		LIMIT 1`)

	var u commontypes.Update
	err := s.db.QueryRowContext(ctx, query, version).Scan(&u.Codename, &u.Version, &u.Android, &u.Branch,
		&u.Method, &u.Type, &u.Size, &u.MD5, &u.Changelog, &u.Link, &u.Filename, &u.Date)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error querying incremental for %s: %w", version, err)
	}
	return &u, nil
}

// rebind rewrites ? placeholders into the $n form lib/pq expects.
func (s *Store) rebind(query string) string {
	if s.driver != "postgres" {
		return query
	}
	var sb strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			sb.WriteString("$" + strconv.Itoa(n))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
