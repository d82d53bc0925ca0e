package storage

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"kitsura-miniapp/internal/stories/vendor"
)

const vendorOrdersTable = "vendor_orders"

var vendorOrderRowFields = fields(vendorOrderRow{})

type vendorOrderRow struct {
	ID        string    `db:"id"`
	Kind      string    `db:"kind"`
	Account   string    `db:"account"`
	VoucherID string    `db:"voucher_id"`
	NetAmount string    `db:"net_amount"`
	Amount    string    `db:"amount"`
	Count     string    `db:"quantity"`
	Status    string    `db:"status"`
	Error     string    `db:"error"`
	CreatedAt time.Time `db:"created_at"`
}

func (r vendorOrderRow) ToModel() vendor.Order {
	return vendor.Order{
		ID:        r.ID,
		Kind:      vendor.Kind(r.Kind),
		Account:   r.Account,
		VoucherID: r.VoucherID,
		NetAmount: r.NetAmount,
		Amount:    r.Amount,
		Count:     r.Count,
		Status:    vendor.Status(r.Status),
		Error:     r.Error,
		CreatedAt: r.CreatedAt,
	}
}

func (s *storageImpl) SaveVendorOrder(ctx context.Context, order vendor.Order) error {
	createdAt := order.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.now()
	}

	q, args, err := s.stmpBuilder().
		Insert(vendorOrdersTable).
		SetMap(map[string]interface{}{
			"id":         order.ID,
			"kind":       string(order.Kind),
			"account":    order.Account,
			"voucher_id": order.VoucherID,
			"net_amount": order.NetAmount,
			"amount":     order.Amount,
			"quantity":   order.Count,
			"status":     string(order.Status),
			"error":      order.Error,
			"created_at": createdAt,
		}).
		Suffix("ON CONFLICT(id) DO UPDATE SET status = excluded.status, amount = excluded.amount, error = excluded.error").
		ToSql()
	if err != nil {
		return fmt.Errorf("build sql query: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("db.ExecContext: %w", err)
	}
	return nil
}

// ListVendorOrders returns orders newest first.
func (s *storageImpl) ListVendorOrders(ctx context.Context, criteria vendor.OrderCriteria) ([]vendor.Order, error) {
	query := s.stmpBuilder().
		Select(vendorOrderRowFields).
		From(vendorOrdersTable).
		OrderBy("created_at DESC", "id")

	if criteria.Kind != "" {
		query = query.Where(sq.Eq{"kind": string(criteria.Kind)})
	}
	if criteria.Status != "" {
		query = query.Where(sq.Eq{"status": string(criteria.Status)})
	}
	if criteria.Limit > 0 {
		query = query.Limit(criteria.Limit)
	}

	q, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build sql query: %w", err)
	}

	var rows []vendorOrderRow
	if err := s.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, fmt.Errorf("db.SelectContext: %w", err)
	}

	orders := make([]vendor.Order, 0, len(rows))
	for _, row := range rows {
		orders = append(orders, row.ToModel())
	}
	return orders, nil
}
