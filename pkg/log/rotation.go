// Log file output with size-based rotation
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package log

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

const rotationStamp = "20060102-150405"

// RotationConfig configures log file rotation.
type RotationConfig struct {
	// Filename is the path to the log file.
	Filename string

	// MaxSizeMB is the size in megabytes that triggers rotation. Default 10.
	MaxSizeMB int

	// MaxBackups is the number of rotated files kept. Default 5.
	MaxBackups int
}

// RotatingFileWriter is an io.Writer that renames the active file to
// <base>.<stamp><ext> once it grows past the size limit.
type RotatingFileWriter struct {
	mu         sync.Mutex
	filename   string
	maxSize    int64
	maxBackups int
	size       int64
	file       *os.File
	now        func() time.Time
}

// NewRotatingFileWriter opens (or creates) cfg.Filename for appending.
func NewRotatingFileWriter(cfg RotationConfig) (*RotatingFileWriter, error) {
	if cfg.Filename == "" {
		return nil, fmt.Errorf("log filename is required")
	}
	if cfg.MaxSizeMB <= 0 {
		cfg.MaxSizeMB = 10
	}
	if cfg.MaxBackups <= 0 {
		cfg.MaxBackups = 5
	}
	w := &RotatingFileWriter{
		filename:   cfg.Filename,
		maxSize:    int64(cfg.MaxSizeMB) * 1024 * 1024,
		maxBackups: cfg.MaxBackups,
		now:        time.Now,
	}
	if err := w.open(); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *RotatingFileWriter) open() error {
	if err := os.MkdirAll(filepath.Dir(w.filename), 0755); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(w.filename, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("stat log file: %w", err)
	}
	w.file = f
	w.size = info.Size()
	return nil
}

// Write implements io.Writer.
func (w *RotatingFileWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.size > 0 && w.size+int64(len(p)) > w.maxSize {
		if err := w.rotate(); err != nil {
			return 0, fmt.Errorf("rotate log file: %w", err)
		}
	}
	n, err := w.file.Write(p)
	w.size += int64(n)
	return n, err
}

func (w *RotatingFileWriter) rotate() error {
	if err := w.file.Close(); err != nil {
		return err
	}
	ext := filepath.Ext(w.filename)
	base := strings.TrimSuffix(w.filename, ext)
	rotated := fmt.Sprintf("%s.%s%s", base, w.now().Format(rotationStamp), ext)
	if err := os.Rename(w.filename, rotated); err != nil {
		_ = w.open()
		return err
	}
	w.prune()
	return w.open()
}

// prune removes the oldest rotated files beyond maxBackups. Stamps sort
// lexically in time order.
func (w *RotatingFileWriter) prune() {
	backups := w.Backups()
	for len(backups) > w.maxBackups {
		os.Remove(backups[0])
		backups = backups[1:]
	}
}

// Backups lists rotated files, oldest first.
func (w *RotatingFileWriter) Backups() []string {
	dir := filepath.Dir(w.filename)
	name := filepath.Base(w.filename)
	ext := filepath.Ext(name)
	prefix := strings.TrimSuffix(name, ext)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		if isRotatedFile(e.Name(), prefix, ext) {
			out = append(out, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(out)
	return out
}

// isRotatedFile matches prefix.YYYYMMDD-HHMMSS.ext
func isRotatedFile(name, prefix, ext string) bool {
	if !strings.HasPrefix(name, prefix+".") || !strings.HasSuffix(name, ext) {
		return false
	}
	stamp := strings.TrimSuffix(strings.TrimPrefix(name, prefix+"."), ext)
	_, err := time.Parse(rotationStamp, stamp)
	return err == nil
}

// Close closes the active file.
func (w *RotatingFileWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}

// Size returns the size of the active file.
func (w *RotatingFileWriter) Size() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.size
}

// AttachFile makes l write to stderr and a rotating file. Colors are
// turned off since they end up in the file too.
func AttachFile(l *Logger, cfg RotationConfig) (*RotatingFileWriter, error) {
	w, err := NewRotatingFileWriter(cfg)
	if err != nil {
		return nil, err
	}
	l.SetWriter(io.MultiWriter(os.Stderr, w))
	l.SetColorize(false)
	return w, nil
}
