package sqlite3

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

func TestPrepareDSN(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name string
		dsn  string
		want string
	}{
		{name: "memory", dsn: ":memory:", want: ":memory:"},
		{name: "shared memory", dsn: "file::memory:?cache=shared", want: "file::memory:?cache=shared"},
		{name: "file gets pragmas", dsn: filepath.Join(dir, "a", "db.sqlite"), want: filepath.Join(dir, "a", "db.sqlite") + "?_busy_timeout=5000&_journal_mode=WAL"},
		{name: "explicit params kept", dsn: filepath.Join(dir, "b", "db.sqlite") + "?mode=ro", want: filepath.Join(dir, "b", "db.sqlite") + "?mode=ro"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := prepareDSN(tt.dsn)
			if err != nil {
				t.Fatalf("prepareDSN: %v", err)
			}
			if got != tt.want {
				t.Errorf("prepareDSN(%q) = %q, want %q", tt.dsn, got, tt.want)
			}
		})
	}
}

func TestInTxRollsBack(t *testing.T) {
	ctx := context.Background()
	db, err := New(ctx, WithDSN(filepath.Join(t.TempDir(), "tx.db")))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, "CREATE TABLE items (name TEXT)"); err != nil {
		t.Fatalf("create table: %v", err)
	}

	boom := errors.New("boom")
	err = InTx(ctx, db, nil, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, "INSERT INTO items (name) VALUES ('a')"); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("InTx err = %v, want boom", err)
	}

	var count int
	if err := db.GetContext(ctx, &count, "SELECT COUNT(*) FROM items"); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Errorf("count = %d, want 0 after rollback", count)
	}

	err = InTx(ctx, db, nil, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, "INSERT INTO items (name) VALUES ('b')")
		return err
	})
	if err != nil {
		t.Fatalf("InTx: %v", err)
	}
	if err := db.GetContext(ctx, &count, "SELECT COUNT(*) FROM items"); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Errorf("count = %d, want 1 after commit", count)
	}
}
