package handlers

import (
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// rowFunc adapts a scan closure to pgx.Row. The nil func behaves like a
// query that matched nothing.
type rowFunc func(dest ...any) error

func (f rowFunc) Scan(dest ...any) error {
	if f == nil {
		return pgx.ErrNoRows
	}
	return f(dest...)
}

// stubRowsDefaults fills in the pgx.Rows methods the stub iterators never
// exercise.
type stubRowsDefaults struct{}

func (stubRowsDefaults) FieldDescriptions() []pgconn.FieldDescription { return nil }

func (stubRowsDefaults) CommandTag() pgconn.CommandTag { return pgconn.CommandTag{} }

func (stubRowsDefaults) RawValues() [][]byte { return nil }

func (stubRowsDefaults) Values() ([]any, error) {
	return nil, fmt.Errorf("stub rows carry no raw values")
}

func (stubRowsDefaults) Conn() *pgx.Conn { return nil }
