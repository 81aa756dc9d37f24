package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kozaktomas/player-portraits/internal/manifest"
	"github.com/kozaktomas/player-portraits/internal/report"
)

func withLogSettings(t *testing.T, level, file string) {
	t.Helper()
	oldLevel, oldFile := logLevel, logFile
	logLevel, logFile = level, file
	t.Cleanup(func() { logLevel, logFile = oldLevel, oldFile })
}

func TestNewLogger_LogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")
	withLogSettings(t, "debug", path)

	logger, closeLog, err := newLogger("crop")
	require.NoError(t, err)
	logger.Debug("hello from test")
	closeLog()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, "hello from test")
	assert.Contains(t, out, "command=crop")
	assert.Contains(t, out, "run_id=")
}

func TestNewLogger_Level(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")
	withLogSettings(t, "WARN", path)

	logger, closeLog, err := newLogger("crop")
	require.NoError(t, err)
	logger.Info("quiet")
	logger.Warn("loud")
	closeLog()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "quiet")
	assert.Contains(t, string(data), "loud")
}

func TestNewLogger_InvalidLevel(t *testing.T) {
	withLogSettings(t, "chatty", "")

	_, _, err := newLogger("crop")
	assert.ErrorContains(t, err, "invalid --log-level")
}

func TestNewProgress_Disabled(t *testing.T) {
	assert.Nil(t, newProgress(false, 10, "x", "items"))
	assert.NotNil(t, newProgress(true, 10, "x", "items"))
}

func TestStrictCheck(t *testing.T) {
	newCmd := func(strict bool) *cobra.Command {
		c := &cobra.Command{Use: "test"}
		c.Flags().Bool("strict", false, "")
		if strict {
			require.NoError(t, c.Flags().Set("strict", "true"))
		}
		return c
	}

	failed := report.Summary{Successful: 2, Failed: 1}
	assert.NoError(t, strictCheck(newCmd(false), failed))
	assert.ErrorContains(t, strictCheck(newCmd(true), failed), "1 of 3 players failed")
	assert.NoError(t, strictCheck(newCmd(true), report.Summary{Successful: 3}))
}

func TestVersionCmd(t *testing.T) {
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetArgs([]string{"version"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	require.NoError(t, rootCmd.Execute())
	assert.True(t, strings.HasPrefix(buf.String(), "player-portraits dev"))
}

func TestCropCmd_MissingPlayerList(t *testing.T) {
	withLogSettings(t, "error", "")
	missing := filepath.Join(t.TempDir(), "missing.json")
	rootCmd.SetArgs([]string{"crop", "--list", missing, "--output", filepath.Join(t.TempDir(), "out")})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	err := rootCmd.Execute()
	assert.ErrorIs(t, err, manifest.ErrNotFound)
}

func TestDownloadCmds_MissingPlayerList(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"portraits", []string{"download-portraits", "--output"}},
		{"flags", []string{"download-flags", "--dir"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withLogSettings(t, "error", "")
			missing := filepath.Join(t.TempDir(), "missing.json")
			args := append(tt.args, filepath.Join(t.TempDir(), "out"), "--list", missing)
			rootCmd.SetArgs(args)
			t.Cleanup(func() { rootCmd.SetArgs(nil) })

			err := rootCmd.Execute()
			assert.ErrorIs(t, err, manifest.ErrNotFound)
		})
	}
}
