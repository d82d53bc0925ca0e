package sqlite3

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

var (
	defaultConnTimeout     = 10 * time.Second
	defaultMaxOpenConns    = 1
	defaultConnMaxLifetime = time.Hour
)

type config struct {
	DSN             string
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	ConnTimeout     time.Duration
}

type Option func(*config)

func WithDSN(dsn string) Option {
	return func(c *config) {
		c.DSN = dsn
	}
}

func WithMaxOpenConns(maxOpen int) Option {
	return func(c *config) {
		c.MaxOpenConns = maxOpen
	}
}

func WithConnMaxLifetime(lifetime time.Duration) Option {
	return func(c *config) {
		c.ConnMaxLifetime = lifetime
	}
}

func WithConnTimeout(timeout time.Duration) Option {
	return func(c *config) {
		c.ConnTimeout = timeout
	}
}

// New opens and pings the database. The default DSN is a private in-memory
// database, which only survives while its single connection stays open.
func New(ctx context.Context, opts ...Option) (*sqlx.DB, error) {
	cfg := &config{
		DSN:             ":memory:",
		MaxOpenConns:    defaultMaxOpenConns,
		ConnMaxLifetime: defaultConnMaxLifetime,
		ConnTimeout:     defaultConnTimeout,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	dsn, err := prepareDSN(cfg.DSN)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite3 database")
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxOpenConns)
	if cfg.DSN != ":memory:" {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.ConnTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "ping sqlite3 database")
	}

	return db, nil
}

// prepareDSN creates the parent directory of a file database and turns on WAL
// with a busy timeout unless the DSN already carries parameters.
func prepareDSN(dsn string) (string, error) {
	if dsn == ":memory:" || strings.HasPrefix(dsn, "file::memory:") {
		return dsn, nil
	}

	path := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", errors.Wrapf(err, "create database directory %s", dir)
		}
	}

	if strings.Contains(dsn, "?") {
		return dsn, nil
	}
	return dsn + "?_busy_timeout=5000&_journal_mode=WAL", nil
}
