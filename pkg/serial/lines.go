package serial

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
)

// ReadLines reads r until ctx is done or r fails, calling fn for every
// complete line with the line ending stripped. Read timeouts are not
// errors. The returned error is nil when ctx ended the loop.
func ReadLines(ctx context.Context, r io.Reader, fn func(line string)) error {
	buf := make([]byte, 256)
	var pending bytes.Buffer
	for {
		if ctx.Err() != nil {
			return nil
		}
		n, err := r.Read(buf)
		if n > 0 {
			pending.Write(buf[:n])
			for {
				idx := bytes.IndexByte(pending.Bytes(), '\n')
				if idx < 0 {
					break
				}
				line := strings.TrimRight(string(pending.Next(idx+1)), "\r\n")
				if line != "" {
					fn(line)
				}
			}
		}
		if err != nil {
			if errors.Is(err, ErrTimeout) {
				continue
			}
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
}

// WriteLine writes line terminated by '\n'.
func WriteLine(w io.Writer, line string) error {
	_, err := io.WriteString(w, line+"\n")
	return err
}
