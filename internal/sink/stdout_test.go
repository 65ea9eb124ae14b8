package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GabrielNunesIT/data-logger/internal/config"
	"github.com/GabrielNunesIT/data-logger/internal/testutil"
)

func TestStdoutSink_Write(t *testing.T) {
	tests := []struct {
		name   string
		format string
		check  func(t *testing.T, output string)
	}{
		{
			name:   "text format",
			format: "text",
			check: func(t *testing.T, output string) {
				assert.Equal(t, "time\t0.5\ntime\t1.5\nactual\t[1, 2]\nactual\t[3, 4.25]\n", output)
			},
		},
		{
			name:   "json format",
			format: "json",
			check: func(t *testing.T, output string) {
				lines := strings.Split(strings.TrimSpace(output), "\n")
				require.Len(t, lines, 4)

				var first map[string]any
				require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
				assert.Equal(t, "bench", first["worker"])
				assert.Equal(t, "session-1", first["session"])
				assert.Equal(t, "time", first["channel"])
				assert.Equal(t, 0.5, first["value"])

				var last map[string]any
				require.NoError(t, json.Unmarshal([]byte(lines[3]), &last))
				assert.Equal(t, float64(1), last["seq"])
				assert.Equal(t, []any{3.0, 4.25}, last["value"])
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			s := NewStdoutSinkWithWriter(config.StdoutSinkConfig{Format: tt.format}, &buf, testutil.NewTestLogger())

			require.NoError(t, s.Write(context.Background(), testSnapshot()))
			tt.check(t, buf.String())
		})
	}
}

func TestStdoutSink_Name(t *testing.T) {
	s := NewStdoutSink(config.StdoutSinkConfig{}, testutil.NewTestLogger())
	assert.Equal(t, "stdout", s.Name())
}
