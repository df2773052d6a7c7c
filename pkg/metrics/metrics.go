// Metrics collection for the print panel
//
// Counters and gauges with label sets, rendered in the Prometheus text
// exposition format.
//
// Copyright (C) 2026 Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package metrics

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// MetricType represents the type of metric
type MetricType int

const (
	TypeCounter MetricType = iota
	TypeGauge
)

func (t MetricType) String() string {
	switch t {
	case TypeCounter:
		return "counter"
	case TypeGauge:
		return "gauge"
	default:
		return "unknown"
	}
}

// Labels represents metric labels as key-value pairs
type Labels map[string]string

// Key generates a unique key for a label set
func (l Labels) Key() string {
	if len(l) == 0 {
		return ""
	}
	keys := sortedKeys(l)
	var sb strings.Builder
	for i, k := range keys {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(l[k])
	}
	return sb.String()
}

// String returns labels in Prometheus format
func (l Labels) String() string {
	if len(l) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteByte('{')
	for i, k := range sortedKeys(l) {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(k)
		sb.WriteString("=\"")
		sb.WriteString(escapeLabel(l[k]))
		sb.WriteByte('"')
	}
	sb.WriteByte('}')
	return sb.String()
}

func sortedKeys(l Labels) []string {
	keys := make([]string, 0, len(l))
	for k := range l {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func escapeLabel(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "\"", "\\\"")
	s = strings.ReplaceAll(s, "\n", "\\n")
	return s
}

// Metric is the interface for all metric types
type Metric interface {
	Name() string
	Help() string
	Type() MetricType
	Write(sb *strings.Builder)
}

type sample struct {
	labels Labels
	value  float64
}

// vec is a set of samples keyed by label set.
type vec struct {
	name string
	help string
	typ  MetricType

	mu      sync.Mutex
	samples map[string]*sample
}

func newVec(name, help string, typ MetricType) *vec {
	return &vec{name: name, help: help, typ: typ, samples: map[string]*sample{}}
}

func (v *vec) Name() string     { return v.name }
func (v *vec) Help() string     { return v.help }
func (v *vec) Type() MetricType { return v.typ }

func (v *vec) update(labels Labels, fn func(float64) float64) {
	key := labels.Key()
	v.mu.Lock()
	defer v.mu.Unlock()
	s, ok := v.samples[key]
	if !ok {
		cp := make(Labels, len(labels))
		for k, val := range labels {
			cp[k] = val
		}
		s = &sample{labels: cp}
		v.samples[key] = s
	}
	s.value = fn(s.value)
}

func (v *vec) get(labels Labels) float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	if s, ok := v.samples[labels.Key()]; ok {
		return s.value
	}
	return 0
}

// Write renders HELP, TYPE and every sample ordered by label key.
func (v *vec) Write(sb *strings.Builder) {
	fmt.Fprintf(sb, "# HELP %s %s\n# TYPE %s %s\n", v.name, v.help, v.name, v.typ)

	v.mu.Lock()
	defer v.mu.Unlock()
	keys := make([]string, 0, len(v.samples))
	for k := range v.samples {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		s := v.samples[k]
		sb.WriteString(v.name)
		sb.WriteString(s.labels.String())
		sb.WriteByte(' ')
		sb.WriteString(strconv.FormatFloat(s.value, 'g', -1, 64))
		sb.WriteByte('\n')
	}
}

// Counter is a monotonically increasing metric
type Counter struct {
	*vec
}

// NewCounter creates a new counter metric
func NewCounter(name, help string) *Counter {
	return &Counter{newVec(name, help, TypeCounter)}
}

// Inc increments the counter by 1
func (c *Counter) Inc(labels Labels) {
	c.Add(labels, 1)
}

// Add increments the counter by delta
func (c *Counter) Add(labels Labels, delta uint64) {
	c.update(labels, func(v float64) float64 { return v + float64(delta) })
}

// Get returns the current counter value for labels
func (c *Counter) Get(labels Labels) uint64 {
	return uint64(c.get(labels))
}

// Gauge is a metric that can go up and down
type Gauge struct {
	*vec
}

// NewGauge creates a new gauge metric
func NewGauge(name, help string) *Gauge {
	return &Gauge{newVec(name, help, TypeGauge)}
}

// Set sets the gauge to the given value
func (g *Gauge) Set(labels Labels, value float64) {
	g.update(labels, func(float64) float64 { return value })
}

// Add adds delta to the gauge
func (g *Gauge) Add(labels Labels, delta float64) {
	g.update(labels, func(v float64) float64 { return v + delta })
}

// Get returns the current gauge value for labels
func (g *Gauge) Get(labels Labels) float64 {
	return g.get(labels)
}

// Registry holds all registered metrics
type Registry struct {
	mu      sync.RWMutex
	metrics map[string]Metric
}

// NewRegistry creates a new metrics registry
func NewRegistry() *Registry {
	return &Registry{metrics: map[string]Metric{}}
}

// Register adds a metric; names must be unique.
func (r *Registry) Register(m Metric) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.metrics[m.Name()]; exists {
		return fmt.Errorf("metric %s already registered", m.Name())
	}
	r.metrics[m.Name()] = m
	return nil
}

// MustRegister registers m and panics on duplicates.
func (r *Registry) MustRegister(m Metric) {
	if err := r.Register(m); err != nil {
		panic(err)
	}
}

// Get returns a registered metric by name.
func (r *Registry) Get(name string) Metric {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.metrics[name]
}

// Gather renders every metric, ordered by name.
func (r *Registry) Gather() string {
	r.mu.RLock()
	names := make([]string, 0, len(r.metrics))
	for n := range r.metrics {
		names = append(names, n)
	}
	r.mu.RUnlock()
	sort.Strings(names)

	var sb strings.Builder
	for _, n := range names {
		if m := r.Get(n); m != nil {
			m.Write(&sb)
		}
	}
	return sb.String()
}
