package worker

import (
	"context"
	"errors"
	"sync"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

// MockClickHouseConn implements driver.Conn for testing
type MockClickHouseConn struct {
	driver.Conn

	mu        sync.Mutex
	Sent      [][]interface{}
	Batches   int
	FailSends int
	AppendFn  func(v ...interface{}) error
}

func (m *MockClickHouseConn) PrepareBatch(ctx context.Context, query string, opts ...driver.PrepareBatchOption) (driver.Batch, error) {
	return &MockBatch{conn: m}, nil
}

func (m *MockClickHouseConn) rows() [][]interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]interface{}, len(m.Sent))
	copy(out, m.Sent)
	return out
}

type MockBatch struct {
	driver.Batch
	conn    *MockClickHouseConn
	pending [][]interface{}
	sent    bool
}

func (m *MockBatch) IsSent() bool {
	return m.sent
}

func (m *MockBatch) Rows() int {
	return len(m.pending)
}

func (m *MockBatch) Append(v ...interface{}) error {
	if m.conn.AppendFn != nil {
		if err := m.conn.AppendFn(v...); err != nil {
			return err
		}
	}
	m.pending = append(m.pending, v)
	return nil
}

func (m *MockBatch) Send() error {
	m.conn.mu.Lock()
	defer m.conn.mu.Unlock()
	if m.conn.FailSends > 0 {
		m.conn.FailSends--
		return errors.New("code: 252, too many parts")
	}
	m.conn.Sent = append(m.conn.Sent, m.pending...)
	m.conn.Batches++
	m.sent = true
	return nil
}

func (m *MockBatch) Flush() error {
	return nil
}

func (m *MockBatch) Abort() error {
	if m.sent {
		return errors.New("batch already sent")
	}
	return nil
}
