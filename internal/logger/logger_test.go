package logger

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"syscall"
	"testing"

	"github.com/stretchr/testify/require"
)

func capture(t *testing.T, fn func()) string {
	origOut := os.Stdout
	defer func() { os.Stdout = origOut }()

	// Redirect at the fd level too, so loggers that captured the
	// original os.Stdout file before this call are also redirected
	stdoutFd := int(origOut.Fd())
	savedFd, err := syscall.Dup(stdoutFd)
	require.NoError(t, err, "failed to dup stdout fd")

	rOut, wOut, err := os.Pipe()
	require.NoError(t, err, "failed to create stdout pipe")

	err = syscall.Dup2(int(wOut.Fd()), stdoutFd)
	require.NoError(t, err, "failed to redirect stdout fd")
	os.Stdout = wOut

	fn()

	err = syscall.Dup2(savedFd, stdoutFd)
	require.NoError(t, err, "failed to restore stdout fd")
	err = syscall.Close(savedFd)
	require.NoError(t, err, "failed to close saved stdout fd")

	err = wOut.Close()
	require.NoError(t, err, "failed to close stdout pipe")

	outBytes, err := io.ReadAll(rOut)
	require.NoError(t, err, "failed to read stdout pipe")

	return string(outBytes)
}

func TestLogger_parseLevel(t *testing.T) {
	t.Run("valid value", func(t *testing.T) {
		tests := []struct {
			name     string
			input    string
			expected slog.Level
		}{
			{"Debug level", "DEBUG", slog.LevelDebug},
			{"Debug level lowercase", "debug", slog.LevelDebug},
			{"Info level", "INFO", slog.LevelInfo},
			{"Info level lowercase", "info", slog.LevelInfo},
			{"Warn level", "WARN", slog.LevelWarn},
			{"Warn level lowercase", "warn", slog.LevelWarn},
			{"Error level", "ERROR", slog.LevelError},
			{"Error level lowercase", "error", slog.LevelError},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				got, err := parseLevel(tt.input)

				require.NoError(t, err, "parseLevel(%q) should not return an error", tt.input)
				require.Equal(t, tt.expected, got, "parseLevel(%q) should return %v", tt.input, tt.expected)
			})
		}
	})

	t.Run("invalid value", func(t *testing.T) {
		_, err := parseLevel("nope")

		require.Error(t, err, "unknown level should not be accepted")
	})
}

func TestLogger_New(t *testing.T) {
	t.Run("prod logger writes JSON", func(t *testing.T) {
		logger, err := New(EnvProduction, LevelInfo)
		require.NoError(t, err)

		out := capture(t, func() {
			logger.Info("hello", "key", "value")
		})

		var record map[string]any
		err = json.Unmarshal([]byte(out), &record)
		require.NoError(t, err, "prod log output should be valid JSON")
		require.Equal(t, "hello", record["msg"])
		require.Equal(t, "value", record["key"])
	})

	t.Run("dev logger writes text", func(t *testing.T) {
		logger, err := New(EnvDevelopment, LevelInfo)
		require.NoError(t, err)

		out := capture(t, func() {
			logger.Info("hello")
		})

		require.Contains(t, out, "msg=hello")
	})

	t.Run("level filters messages", func(t *testing.T) {
		logger, err := New(EnvDevelopment, LevelWarn)
		require.NoError(t, err)

		out := capture(t, func() {
			logger.Info("should not appear")
			logger.Warn("should appear")
		})

		require.NotContains(t, out, "should not appear")
		require.Contains(t, out, "should appear")
	})

	t.Run("unknown environment fails", func(t *testing.T) {
		_, err := New("staging", LevelInfo)

		require.Error(t, err)
	})

	t.Run("source points at the caller", func(t *testing.T) {
		logger, err := New(EnvDevelopment, LevelInfo)
		require.NoError(t, err)

		out := capture(t, func() {
			logger.Info("with source")
		})

		require.Contains(t, out, "logger_test.go", "source should name the calling file, not the wrapper")
	})
}
