package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"kitsura-miniapp/internal/payload"
	"kitsura-miniapp/internal/stories/vendor"
)

const vouchersCataloguesTable = "voucher_catalogues"

type catalogueRow struct {
	ServiceID string    `db:"service_id"`
	Body      string    `db:"body"`
	FetchedAt time.Time `db:"fetched_at"`
}

func (s *storageImpl) SaveCatalogue(ctx context.Context, c vendor.Catalogue) error {
	q, args, err := s.stmpBuilder().
		Insert(vouchersCataloguesTable).
		Columns("service_id", "body", "fetched_at").
		Values(c.ServiceID, string(payload.Encode(c.Body)), c.FetchedAt).
		Suffix("ON CONFLICT(service_id) DO UPDATE SET body = excluded.body, fetched_at = excluded.fetched_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build sql query: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("db.ExecContext: %w", err)
	}
	return nil
}

// GetCatalogue returns nil without an error when nothing is cached.
func (s *storageImpl) GetCatalogue(ctx context.Context, serviceID string) (*vendor.Catalogue, error) {
	q, args, err := s.stmpBuilder().
		Select(fields(catalogueRow{})).
		From(vouchersCataloguesTable).
		Where(sq.Eq{"service_id": serviceID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build sql query: %w", err)
	}

	var row catalogueRow
	if err := s.db.GetContext(ctx, &row, q, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("db.GetContext: %w", err)
	}

	body, err := payload.Parse([]byte(row.Body))
	if err != nil {
		return nil, fmt.Errorf("decode cached catalogue: %w", err)
	}

	return &vendor.Catalogue{
		ServiceID: row.ServiceID,
		Body:      body,
		FetchedAt: row.FetchedAt,
	}, nil
}
