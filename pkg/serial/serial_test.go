package serial

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chunkReader returns its chunks one Read at a time, then err.
type chunkReader struct {
	chunks []string
	err    error
}

func (c *chunkReader) Read(p []byte) (int, error) {
	if len(c.chunks) == 0 {
		return 0, c.err
	}
	n := copy(p, c.chunks[0])
	c.chunks = c.chunks[1:]
	return n, nil
}

func TestReadLinesSplitsAcrossReads(t *testing.T) {
	r := &chunkReader{
		chunks: []string{"ok T:20", "1.5 /210.0 B:5", "9.8 /60.0\r\nok\n", "\nwait\n"},
		err:    io.EOF,
	}
	var got []string
	err := ReadLines(context.Background(), r, func(line string) {
		got = append(got, line)
	})
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, []string{"ok T:201.5 /210.0 B:59.8 /60.0", "ok", "wait"}, got)
}

func TestReadLinesIgnoresTimeouts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	r := readerFunc(func(p []byte) (int, error) {
		calls++
		if calls == 3 {
			cancel()
			return copy(p, "ok\n"), nil
		}
		return 0, ErrTimeout
	})

	var got []string
	err := ReadLines(ctx, r, func(line string) { got = append(got, line) })
	assert.NoError(t, err)
	assert.Equal(t, []string{"ok"}, got)
}

type readerFunc func(p []byte) (int, error)

func (f readerFunc) Read(p []byte) (int, error) { return f(p) }

func TestWriteLine(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteLine(&buf, "G28"))
	assert.Equal(t, "G28\n", buf.String())
}

func TestBaudRateToSpeed(t *testing.T) {
	_, err := baudRateToSpeed(115200)
	assert.NoError(t, err)
	_, err = baudRateToSpeed(12345)
	assert.Error(t, err)
	if runtime.GOOS == "linux" {
		s, err := baudRateToSpeed(250000)
		require.NoError(t, err)
		assert.Equal(t, uint32(0x1003), s)
	}
}

func TestOpenErrors(t *testing.T) {
	_, err := Open(Config{})
	assert.Error(t, err)

	_, err = Open(Config{Device: filepath.Join(t.TempDir(), "missing")})
	assert.Error(t, err)
}

func TestIsDeviceAvailable(t *testing.T) {
	dir := t.TempDir()
	f := filepath.Join(dir, "tty")
	require.NoError(t, os.WriteFile(f, nil, 0644))

	assert.True(t, IsDeviceAvailable(f))
	assert.False(t, IsDeviceAvailable(dir))
	assert.False(t, IsDeviceAvailable(filepath.Join(dir, "nope")))
}
