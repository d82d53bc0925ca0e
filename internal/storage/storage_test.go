package storage

import (
	"context"
	"testing"
	"time"

	"kitsura-miniapp/internal/infra/sqlite3"
	"kitsura-miniapp/internal/payload"
	"kitsura-miniapp/internal/stories/vendor"
)

func newTestStorage(t *testing.T) *storageImpl {
	t.Helper()
	db, err := sqlite3.New(context.Background())
	if err != nil {
		t.Fatalf("sqlite3.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	s := New(db)
	if err := s.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	if err := s.Migrate(context.Background()); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}
	return s
}

func TestSteamTopupsCounter(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	stats, err := s.GetStats(ctx)
	if err != nil {
		t.Fatalf("GetStats: %v", err)
	}
	if stats.SteamTopups != vendor.DefaultSteamTopups {
		t.Errorf("initial SteamTopups = %d, want %d", stats.SteamTopups, vendor.DefaultSteamTopups)
	}

	for i := int64(1); i <= 3; i++ {
		got, err := s.IncrementSteamTopups(ctx)
		if err != nil {
			t.Fatalf("IncrementSteamTopups: %v", err)
		}
		if want := vendor.DefaultSteamTopups + i; got != want {
			t.Errorf("increment %d = %d, want %d", i, got, want)
		}
	}

	stats, err = s.GetStats(ctx)
	if err != nil {
		t.Fatalf("GetStats: %v", err)
	}
	if stats.SteamTopups != vendor.DefaultSteamTopups+3 {
		t.Errorf("SteamTopups = %d", stats.SteamTopups)
	}
}

func TestVendorOrders(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	orders := []vendor.Order{
		{ID: "a", Kind: vendor.KindSteam, Account: "gaben", NetAmount: "500", Status: vendor.StatusMock, CreatedAt: base},
		{ID: "b", Kind: vendor.KindVoucher, Account: "a@b.c", VoucherID: "7", Count: "2", Status: vendor.StatusCreated, CreatedAt: base.Add(time.Minute)},
		{ID: "c", Kind: vendor.KindSteam, Account: "gaben", Status: vendor.StatusFailed, Error: "boom", CreatedAt: base.Add(2 * time.Minute)},
	}
	for _, o := range orders {
		if err := s.SaveVendorOrder(ctx, o); err != nil {
			t.Fatalf("SaveVendorOrder(%s): %v", o.ID, err)
		}
	}

	all, err := s.ListVendorOrders(ctx, vendor.OrderCriteria{})
	if err != nil {
		t.Fatalf("ListVendorOrders: %v", err)
	}
	if len(all) != 3 || all[0].ID != "c" || all[2].ID != "a" {
		t.Fatalf("orders = %+v", all)
	}
	if !all[2].CreatedAt.Equal(base) {
		t.Errorf("CreatedAt = %v, want %v", all[2].CreatedAt, base)
	}

	steam, err := s.ListVendorOrders(ctx, vendor.OrderCriteria{Kind: vendor.KindSteam, Limit: 1})
	if err != nil {
		t.Fatalf("ListVendorOrders: %v", err)
	}
	if len(steam) != 1 || steam[0].Error != "boom" {
		t.Errorf("steam orders = %+v", steam)
	}

	retried := orders[2]
	retried.Status, retried.Error = vendor.StatusCreated, ""
	if err := s.SaveVendorOrder(ctx, retried); err != nil {
		t.Fatalf("SaveVendorOrder: %v", err)
	}
	created, err := s.ListVendorOrders(ctx, vendor.OrderCriteria{Status: vendor.StatusCreated})
	if err != nil {
		t.Fatalf("ListVendorOrders: %v", err)
	}
	if len(created) != 2 {
		t.Errorf("created orders = %+v", created)
	}
}

func TestCatalogues(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	got, err := s.GetCatalogue(ctx, "42")
	if err != nil || got != nil {
		t.Fatalf("GetCatalogue on empty table = %+v, %v", got, err)
	}

	fetched := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	body := payload.Object{"items": []any{payload.Object{"id": payload.Number("1"), "name": "Netflix"}}}
	if err := s.SaveCatalogue(ctx, vendor.Catalogue{ServiceID: "42", Body: body, FetchedAt: fetched}); err != nil {
		t.Fatalf("SaveCatalogue: %v", err)
	}
	if err := s.SaveCatalogue(ctx, vendor.Catalogue{ServiceID: "42", Body: body, FetchedAt: fetched.Add(time.Hour)}); err != nil {
		t.Fatalf("SaveCatalogue: %v", err)
	}

	got, err = s.GetCatalogue(ctx, "42")
	if err != nil {
		t.Fatalf("GetCatalogue: %v", err)
	}
	if !got.FetchedAt.Equal(fetched.Add(time.Hour)) {
		t.Errorf("FetchedAt = %v", got.FetchedAt)
	}
	items := payload.AsList(payload.AsObject(got.Body).Get("items"))
	if len(items) != 1 || payload.AsObject(items[0]).Get("name") != "Netflix" {
		t.Errorf("body = %#v", got.Body)
	}
}
