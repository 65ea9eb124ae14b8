package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/GabrielNunesIT/data-logger/internal/config"
	"github.com/GabrielNunesIT/data-logger/internal/testutil"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(origDir) })
	return dir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestParseLevel(t *testing.T) {
	tests := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"TRACE":   zapcore.DebugLevel,
		"warning": zapcore.WarnLevel,
		"warn":    zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"info":    zapcore.InfoLevel,
		"bogus":   zapcore.InfoLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestApplyCLIOverrides(t *testing.T) {
	cmd := NewRunCmd(new(string), new(string))
	require.NoError(t, cmd.ParseFlags([]string{
		"--mode", "joint-angles",
		"--name", "bench",
		"--channel", "t", "--channel", "a,c",
		"--duration", "2s",
		"--source", "mqtt",
		"--output-dir", "/tmp/run",
		"--stdout",
		"--stdout-format", "json",
	}))

	cfg := &config.Config{}
	applyCLIOverrides(cmd, cfg)

	assert.Equal(t, config.ModeJointAngles, cfg.Worker.Mode)
	assert.Equal(t, "bench", cfg.Worker.Name)
	assert.Equal(t, []string{"t", "a", "c"}, cfg.Worker.Channels)
	assert.Equal(t, 2*time.Second, cfg.Worker.Duration)
	assert.Equal(t, config.SourceMQTT, cfg.Source.Kind)
	assert.True(t, cfg.Sinks.File.Enabled)
	assert.Equal(t, "/tmp/run", cfg.Sinks.File.Dir)
	assert.True(t, cfg.Sinks.Stdout.Enabled)
	assert.Equal(t, "json", cfg.Sinks.Stdout.Format)
}

func TestApplyCLIOverrides_NoFlagsKeepsConfig(t *testing.T) {
	cmd := NewRunCmd(new(string), new(string))
	require.NoError(t, cmd.ParseFlags(nil))

	cfg := &config.Config{Worker: config.WorkerConfig{Mode: "x", Duration: time.Minute}}
	applyCLIOverrides(cmd, cfg)

	assert.Equal(t, "x", cfg.Worker.Mode)
	assert.Equal(t, time.Minute, cfg.Worker.Duration)
	assert.False(t, cfg.Sinks.Stdout.Enabled)
}

func TestBuildSinks(t *testing.T) {
	cfg := config.SinkConfig{
		File:   config.FileSinkConfig{Enabled: true, Dir: t.TempDir()},
		Stdout: config.StdoutSinkConfig{Enabled: true},
	}
	m, err := buildSinks(cfg, testutil.NewTestLogger())
	require.NoError(t, err)

	var names []string
	for _, s := range m.Sinks() {
		names = append(names, s.Name())
	}
	assert.Equal(t, []string{"file", "stdout"}, names)

	_, err = buildSinks(config.SinkConfig{}, testutil.NewTestLogger())
	assert.Error(t, err)
}

func TestValidateCmd(t *testing.T) {
	dir := chdirTemp(t)

	out, err := execute(t, "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration valid")
	assert.Contains(t, out, "mode ft-sensor")

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("worker:\n  mode: laser\n"), 0o644))
	_, err = execute(t, "validate", "--config", bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "laser")
	assert.Contains(t, err.Error(), "joint-angles")

	short := filepath.Join(dir, "short.yaml")
	require.NoError(t, os.WriteFile(short, []byte("worker:\n  channels: [a, b]\n"), 0o644))
	_, err = execute(t, "validate", "--config", short)
	assert.Error(t, err)
}

func TestVersionCmd(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "data-logger dev\n", out)
}

func TestRunCmd_PollSessionWritesChannelFiles(t *testing.T) {
	chdirTemp(t)
	outDir := filepath.Join(t.TempDir(), "session")

	channels := []string{"i0", "i1", "i2", "fx", "fy", "fz", "tx", "ty", "tz", "elapsed"}
	_, err := execute(t, "run",
		"--log-level", "error",
		"--source", "sim",
		"--mode", "ft-sensor",
		"--channel", strings.Join(channels, ","),
		"--duration", "400ms",
		"--output-dir", outDir,
		"--hot-reload=false",
	)
	require.NoError(t, err)

	var lines []int
	for _, ch := range channels {
		data, err := os.ReadFile(filepath.Join(outDir, ch+".txt"))
		require.NoError(t, err, "missing output for %s", ch)
		lines = append(lines, strings.Count(string(data), "\n"))
	}
	assert.Greater(t, lines[0], 0)
	for _, n := range lines {
		assert.Equal(t, lines[0], n)
	}
}

func TestRunCmd_RejectsUnknownMode(t *testing.T) {
	chdirTemp(t)

	_, err := execute(t, "run", "--log-level", "error", "--mode", "laser", "--output-dir", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "laser")
}
