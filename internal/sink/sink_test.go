package sink

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GabrielNunesIT/data-logger/internal/model"
)

type stubSink struct {
	name   string
	err    error
	calls  int
	closed bool
}

func (s *stubSink) Name() string { return s.name }

func (s *stubSink) Write(context.Context, *Snapshot) error {
	s.calls++
	return s.err
}

func (s *stubSink) Close() error {
	s.closed = true
	return nil
}

func TestNewSnapshot(t *testing.T) {
	snap := NewSnapshot("w", "s", time.Time{}, []string{"a", "b", "c"}, [][]model.Value{
		{model.Scalar(1)},
		{model.Scalar(2), model.Scalar(3)},
	})

	require.Len(t, snap.Channels, 3)
	assert.Equal(t, "c", snap.Channels[2].Name)
	assert.Empty(t, snap.Channels[2].Records)
	assert.Equal(t, 3, snap.Records())
}

func TestMulti_AttemptsEverySink(t *testing.T) {
	failing := &stubSink{name: "a", err: &ChannelError{Sink: "a", Channel: "x", Err: errors.New("boom")}}
	ok := &stubSink{name: "b"}

	m := NewMulti(failing, ok)
	err := m.Write(context.Background(), NewSnapshot("w", "s", time.Now(), nil, nil))

	require.Error(t, err)
	assert.Equal(t, 1, failing.calls)
	assert.Equal(t, 1, ok.calls)
	assert.Equal(t, []string{"x"}, FailedChannels(err))
	assert.Equal(t, "multi", m.Name())

	require.NoError(t, m.Close())
	assert.True(t, failing.closed)
	assert.True(t, ok.closed)
}

func TestChannelError_Unwrap(t *testing.T) {
	base := errors.New("denied")
	err := error(&ChannelError{Sink: "file", Channel: "fx", Err: base})

	assert.ErrorIs(t, err, base)
	assert.Equal(t, "sink file: channel fx: denied", err.Error())
}
