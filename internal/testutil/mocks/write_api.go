package mocks

import (
	"context"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/stretchr/testify/mock"
)

// WriteAPIBlocking is a mock of the InfluxDB blocking write API.
type WriteAPIBlocking struct {
	mock.Mock
}

func (m *WriteAPIBlocking) WriteRecord(ctx context.Context, line ...string) error {
	args := m.Called(ctx, line)
	return args.Error(0)
}

func (m *WriteAPIBlocking) WritePoint(ctx context.Context, point ...*write.Point) error {
	args := m.Called(ctx, point)
	return args.Error(0)
}

func (m *WriteAPIBlocking) EnableBatching() {
	m.Called()
}

func (m *WriteAPIBlocking) Flush(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// NewWriteAPIBlocking creates a WriteAPIBlocking whose expectations are asserted on cleanup.
func NewWriteAPIBlocking(t interface {
	mock.TestingT
	Cleanup(func())
}) *WriteAPIBlocking {
	m := &WriteAPIBlocking{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}
