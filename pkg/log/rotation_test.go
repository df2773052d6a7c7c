// Log rotation tests
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package log

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRotatingFileWriter(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "panel.log")

	w, err := NewRotatingFileWriter(RotationConfig{Filename: logFile, MaxBackups: 3})
	require.NoError(t, err)
	defer w.Close()

	msg := "G28 X0 sent\n"
	n, err := w.Write([]byte(msg))
	require.NoError(t, err)
	assert.Equal(t, len(msg), n)
	assert.Equal(t, int64(len(msg)), w.Size())

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Equal(t, msg, string(data))
}

func TestRotatingFileWriterRotation(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "panel.log")

	w, err := NewRotatingFileWriter(RotationConfig{Filename: logFile, MaxBackups: 2})
	require.NoError(t, err)
	defer w.Close()

	w.maxSize = 32
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	w.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}

	line := []byte(strings.Repeat("x", 20) + "\n")
	for i := 0; i < 6; i++ {
		_, err := w.Write(line)
		require.NoError(t, err)
	}

	backups := w.Backups()
	assert.Len(t, backups, 2)
	for _, b := range backups {
		assert.True(t, strings.HasPrefix(filepath.Base(b), "panel.2026"), b)
	}
	assert.Equal(t, int64(len(line)), w.Size())
}

func TestIsRotatedFile(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"panel.20260301-120000.log", true},
		{"panel.log", false},
		{"panel.2026-bad.log", false},
		{"other.20260301-120000.log", false},
		{"panel.20260301-120000.txt", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, isRotatedFile(tt.name, "panel", ".log"), tt.name)
	}
}

func TestRotationConfigEmptyFilename(t *testing.T) {
	_, err := NewRotatingFileWriter(RotationConfig{})
	assert.Error(t, err)
}

func TestAttachFile(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "logs", "panel.log")
	logger := New("panel")

	w, err := AttachFile(logger, RotationConfig{Filename: logFile})
	require.NoError(t, err)
	defer w.Close()

	logger.Info("connected to %s", "/dev/ttyUSB0")

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "connected to /dev/ttyUSB0")
	assert.NotContains(t, string(data), "\x1b[")
}
