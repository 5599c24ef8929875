package logic

import (
	"context"
	"reflect"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/diamondline/props-api/internal/models"
)

// MockConn serves plate appearances from memory.
type MockConn struct {
	driver.Conn
	Events        []models.PlateAppearance
	LatestDate    time.Time
	LatestCount   uint64
	QueryCalls    int
	QueryRowCalls int
	LastArgs      []interface{}
}

func (m *MockConn) Query(ctx context.Context, query string, args ...interface{}) (driver.Rows, error) {
	m.QueryCalls++
	return &MockRows{events: m.Events}, nil
}

func (m *MockConn) QueryRow(ctx context.Context, query string, args ...interface{}) driver.Row {
	m.QueryRowCalls++
	m.LastArgs = args
	return &MockRow{values: []interface{}{m.LatestDate, m.LatestCount}}
}

type MockRows struct {
	driver.Rows
	events   []models.PlateAppearance
	rowIndex int
}

func (m *MockRows) Next() bool {
	m.rowIndex++
	return m.rowIndex <= len(m.events)
}

func (m *MockRows) Scan(dest ...interface{}) error {
	e := m.events[m.rowIndex-1]
	// game_date, game_pk, at_bat_number, batter, pitcher, events, des,
	// stand, p_throws, home_team, away_team, inning_topbot
	assign(dest[0], e.GameDate)
	assign(dest[1], e.GamePK)
	assign(dest[2], int32(e.AtBatNumber))
	assign(dest[3], e.BatterID)
	assign(dest[4], e.PitcherID)
	assign(dest[5], e.Outcome)
	assign(dest[6], e.Description)
	assign(dest[7], e.Stand)
	assign(dest[8], e.PThrows)
	assign(dest[9], e.HomeTeam)
	assign(dest[10], e.AwayTeam)
	assign(dest[11], e.InningHalf)
	return nil
}

func (m *MockRows) Close() error {
	return nil
}

func (m *MockRows) Err() error {
	return nil
}

type MockRow struct {
	driver.Row
	values []interface{}
	err    error
}

func (m *MockRow) Scan(dest ...interface{}) error {
	if m.err != nil {
		return m.err
	}
	for i := range dest {
		assign(dest[i], m.values[i])
	}
	return nil
}

func (m *MockRow) Err() error {
	return m.err
}

func assign(dest interface{}, val interface{}) {
	// Simple reflection to assign value to pointer
	v := reflect.ValueOf(dest).Elem()
	if val == nil {
		v.Set(reflect.Zero(v.Type()))
		return
	}
	v.Set(reflect.ValueOf(val))
}
