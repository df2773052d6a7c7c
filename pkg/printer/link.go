// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package printer

import (
	"context"
	"sync"
	"time"

	"printpanel-go/pkg/errors"
	"printpanel-go/pkg/log"
	"printpanel-go/pkg/serial"
)

// Link is the byte transport under a Printer.
type Link interface {
	WriteLine(line string) error
	Close() error
}

// SerialLink drives a firmware over a tty. Responses are handed to the
// printer from a reader goroutine.
type SerialLink struct {
	port   *serial.Port
	logger *log.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
}

// OpenSerial opens device and starts reading responses into p. A read
// failure disconnects p.
func OpenSerial(p *Printer, device string, baud int) (*SerialLink, error) {
	port, err := serial.Open(serial.Config{
		Device:      device,
		BaudRate:    baud,
		ReadTimeout: 200 * time.Millisecond,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrSerialOpen, "open serial port").SetField(device)
	}
	ctx, cancel := context.WithCancel(context.Background())
	l := &SerialLink{
		port:   port,
		logger: p.logger.WithPrefix("serial"),
		cancel: cancel,
	}
	go func() {
		err := serial.ReadLines(ctx, port, p.HandleResponse)
		if err != nil {
			l.logger.WithError(err).WithField("device", device).Error("read failed")
			p.Disconnect()
		}
	}()
	return l, nil
}

// WriteLine implements Link.
func (l *SerialLink) WriteLine(line string) error {
	return serial.WriteLine(l.port, line)
}

// Close stops the reader and closes the port.
func (l *SerialLink) Close() error {
	l.mu.Lock()
	cancel := l.cancel
	l.cancel = nil
	l.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()
	return l.port.Close()
}

// VirtualLink accepts every line. Paired with Printer.Simulate it stands
// in for a real machine.
type VirtualLink struct {
	mu     sync.Mutex
	lines  []string
	closed bool
}

// NewVirtualLink returns an open virtual link.
func NewVirtualLink() *VirtualLink {
	return &VirtualLink{}
}

// WriteLine implements Link.
func (v *VirtualLink) WriteLine(line string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return serial.ErrClosed
	}
	v.lines = append(v.lines, line)
	return nil
}

// Lines returns everything written so far.
func (v *VirtualLink) Lines() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]string(nil), v.lines...)
}

// Close implements Link.
func (v *VirtualLink) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.closed = true
	return nil
}
