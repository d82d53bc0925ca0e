package storage

import (
	"context"
	_ "embed"
	"fmt"
	"reflect"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
)

//go:embed schema.sql
var schema string

type storageImpl struct {
	db  *sqlx.DB
	now func() time.Time
}

func New(db *sqlx.DB) *storageImpl {
	return &storageImpl{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// Migrate creates missing tables. It is safe to run on every start.
func (s *storageImpl) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Ping reports whether the database answers.
func (s *storageImpl) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *storageImpl) stmpBuilder() sq.StatementBuilderType {
	return sq.StatementBuilder.PlaceholderFormat(sq.Question)
}

// fields lists the db-tagged columns of a row struct.
func fields(data any) string {
	var s string
	r := reflect.TypeOf(data)
	for i := 0; i < r.NumField(); i++ {
		tag := r.Field(i).Tag.Get("db")
		if tag != "" {
			s += tag + ","
		}
	}
	return s[:len(s)-1]
}
