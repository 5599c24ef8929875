package logic

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type MockPgPool struct {
	QueryFunc    func(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRowFunc func(ctx context.Context, sql string, args ...any) pgx.Row
	ExecFunc     func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	BeginFunc    func(ctx context.Context) (pgx.Tx, error)
}

func (m *MockPgPool) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if m.QueryFunc != nil {
		return m.QueryFunc(ctx, sql, args...)
	}
	return &MockPgRows{}, nil
}

func (m *MockPgPool) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if m.QueryRowFunc != nil {
		return m.QueryRowFunc(ctx, sql, args...)
	}
	return &MockPgRow{err: pgx.ErrNoRows}
}

func (m *MockPgPool) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if m.ExecFunc != nil {
		return m.ExecFunc(ctx, sql, args...)
	}
	return pgconn.CommandTag{}, nil
}

func (m *MockPgPool) Begin(ctx context.Context) (pgx.Tx, error) {
	if m.BeginFunc != nil {
		return m.BeginFunc(ctx)
	}
	return nil, errors.New("transactions not mocked")
}

// MockPgTx records the statements a transaction runs, in order.
type MockPgTx struct {
	pgx.Tx

	CopyErr    map[string]error
	Statements []string
	Committed  bool
	RolledBack bool
}

func (m *MockPgTx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	m.Statements = append(m.Statements, strings.Fields(sql)[0])
	return pgconn.CommandTag{}, nil
}

func (m *MockPgTx) CopyFrom(ctx context.Context, table pgx.Identifier, columns []string, src pgx.CopyFromSource) (int64, error) {
	name := table.Sanitize()
	m.Statements = append(m.Statements, "COPY "+name)
	if err := m.CopyErr[name]; err != nil {
		return 0, err
	}
	var n int64
	for src.Next() {
		n++
	}
	return n, nil
}

func (m *MockPgTx) Commit(ctx context.Context) error {
	m.Committed = true
	return nil
}

func (m *MockPgTx) Rollback(ctx context.Context) error {
	if !m.Committed {
		m.RolledBack = true
	}
	return nil
}

// MockPgRow scans values positionally.
type MockPgRow struct {
	values []any
	err    error
}

func (r *MockPgRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	for i := range dest {
		assign(dest[i], r.values[i])
	}
	return nil
}

// MockPgRows iterates over rows of positional values.
type MockPgRows struct {
	rows [][]any
	curr int
}

func (r *MockPgRows) Close()                                       {}
func (r *MockPgRows) Err() error                                   { return nil }
func (r *MockPgRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *MockPgRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *MockPgRows) Next() bool {
	r.curr++
	return r.curr <= len(r.rows)
}
func (r *MockPgRows) Scan(dest ...any) error {
	row := r.rows[r.curr-1]
	for i := range dest {
		assign(dest[i], row[i])
	}
	return nil
}
func (r *MockPgRows) Values() ([]any, error) { return r.rows[r.curr-1], nil }
func (r *MockPgRows) RawValues() [][]byte    { return nil }
func (r *MockPgRows) Conn() *pgx.Conn        { return nil }
