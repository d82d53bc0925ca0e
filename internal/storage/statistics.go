package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"kitsura-miniapp/internal/infra/sqlite3"
	"kitsura-miniapp/internal/stories/vendor"
)

const (
	statsTable = "stats"

	statSteamTopups = "steam_topups"
)

func (s *storageImpl) GetStats(ctx context.Context) (*vendor.Stats, error) {
	topups, err := s.getStat(ctx, s.db, statSteamTopups, vendor.DefaultSteamTopups)
	if err != nil {
		return nil, err
	}
	return &vendor.Stats{SteamTopups: topups}, nil
}

// IncrementSteamTopups bumps the counter, seeding it with the default first,
// and returns the new value.
func (s *storageImpl) IncrementSteamTopups(ctx context.Context) (int64, error) {
	var value int64
	err := sqlite3.InTx(ctx, s.db, nil, func(tx *sqlx.Tx) error {
		current, err := s.getStat(ctx, tx, statSteamTopups, vendor.DefaultSteamTopups)
		if err != nil {
			return err
		}
		value = current + 1

		q, args, err := s.stmpBuilder().
			Insert(statsTable).
			Columns("name", "value", "updated_at").
			Values(statSteamTopups, value, s.now()).
			Suffix("ON CONFLICT(name) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at").
			ToSql()
		if err != nil {
			return fmt.Errorf("build sql query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("tx.ExecContext: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return value, nil
}

func (s *storageImpl) getStat(ctx context.Context, db sqlx.QueryerContext, key string, fallback int64) (int64, error) {
	q, args, err := s.stmpBuilder().
		Select("value").
		From(statsTable).
		Where(sq.Eq{"name": key}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build sql query: %w", err)
	}

	var value int64
	if err := sqlx.GetContext(ctx, db, &value, q, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fallback, nil
		}
		return 0, fmt.Errorf("sqlx.GetContext: %w", err)
	}
	return value, nil
}
