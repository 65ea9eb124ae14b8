package sink

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/GabrielNunesIT/data-logger/internal/config"
	"github.com/GabrielNunesIT/data-logger/internal/testutil"
	"github.com/GabrielNunesIT/data-logger/internal/testutil/mocks"
)

func TestInfluxSink_PointShape(t *testing.T) {
	writeAPI := mocks.NewWriteAPIBlocking(t)

	var got [][]*write.Point
	writeAPI.On("WritePoint", mock.Anything, mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		got = append(got, args.Get(1).([]*write.Point))
	})

	s := NewInfluxSink(config.InfluxSinkConfig{Measurement: "ft"}, testutil.NewTestLogger(), WithWriteAPI(writeAPI))
	snap := testSnapshot()
	require.NoError(t, s.Write(context.Background(), snap))
	require.NoError(t, s.Close())

	require.Len(t, got, 2, "one write per channel")

	scalar := got[0][1]
	assert.Equal(t, "ft", scalar.Name())
	assert.True(t, snap.Start.Add(time.Nanosecond).Equal(scalar.Time()))

	tags := map[string]string{}
	for _, tag := range scalar.TagList() {
		tags[tag.Key] = tag.Value
	}
	assert.Equal(t, map[string]string{"worker": "bench", "session": "session-1", "channel": "time"}, tags)

	fields := map[string]any{}
	for _, f := range scalar.FieldList() {
		fields[f.Key] = f.Value
	}
	assert.Equal(t, 1.5, fields["value"])
	assert.Equal(t, int64(1), fields["seq"])

	vector := got[1][1]
	fields = map[string]any{}
	for _, f := range vector.FieldList() {
		fields[f.Key] = f.Value
	}
	assert.Equal(t, 3.0, fields["v0"])
	assert.Equal(t, 4.25, fields["v1"])
	assert.NotContains(t, fields, "value")
}

func TestInfluxSink_ChannelFailureContinues(t *testing.T) {
	writeAPI := mocks.NewWriteAPIBlocking(t)
	writeAPI.On("WritePoint", mock.Anything, mock.MatchedBy(func(p []*write.Point) bool {
		return len(p) > 0 && p[0].TagList()[0].Value == "actual"
	})).Return(errors.New("unauthorized")).Once()
	writeAPI.On("WritePoint", mock.Anything, mock.Anything).Return(nil).Once()

	s := NewInfluxSink(config.InfluxSinkConfig{}, testutil.NewTestLogger(), WithWriteAPI(writeAPI))
	err := s.Write(context.Background(), testSnapshot())

	assert.Equal(t, []string{"actual"}, FailedChannels(err))
	assert.Contains(t, err.Error(), "unauthorized")
}
