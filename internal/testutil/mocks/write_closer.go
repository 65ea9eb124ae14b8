// Package mocks holds testify mocks and fakes of the data logger's collaborators.
package mocks

import (
	"github.com/stretchr/testify/mock"
)

// WriteCloser is a mock io.WriteCloser.
type WriteCloser struct {
	mock.Mock
}

// Write accepts either plain return values or func([]byte) int / func([]byte) error.
func (m *WriteCloser) Write(p []byte) (int, error) {
	ret := m.Called(p)

	var n int
	if rf, ok := ret.Get(0).(func([]byte) int); ok {
		n = rf(p)
	} else {
		n = ret.Int(0)
	}

	var err error
	if rf, ok := ret.Get(1).(func([]byte) error); ok {
		err = rf(p)
	} else {
		err = ret.Error(1)
	}
	return n, err
}

func (m *WriteCloser) Close() error {
	args := m.Called()
	return args.Error(0)
}

// NewWriteCloser creates a WriteCloser whose expectations are asserted on cleanup.
func NewWriteCloser(t interface {
	mock.TestingT
	Cleanup(func())
}) *WriteCloser {
	m := &WriteCloser{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}
