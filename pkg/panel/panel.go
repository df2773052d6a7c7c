// Package panel is the operator-facing core: it arbitrates the status
// caption, injects commands through the gate and keeps the manual
// command history.
package panel

import (
	"context"
	"strings"
	"sync"
	"time"

	"printpanel-go/pkg/errors"
	"printpanel-go/pkg/gate"
	"printpanel-go/pkg/gcode"
	"printpanel-go/pkg/history"
	"printpanel-go/pkg/jog"
	"printpanel-go/pkg/log"
	"printpanel-go/pkg/machine"
	"printpanel-go/pkg/metrics"
	"printpanel-go/pkg/status"
)

// DefaultTickInterval is the status re-evaluation cadence.
const DefaultTickInterval = 250 * time.Millisecond

// minCommandLength is the shortest line accepted from the operator.
const minCommandLength = 2

// Config tunes a Panel. Zero values select the defaults.
type Config struct {
	TickInterval   time.Duration
	StatusDwell    time.Duration
	HistorySize    int
	NoPowerControl bool
	XYPresets      []float64
	ZPresets       []float64
}

// DebugFlags are the firmware debug bits sent with M111.
type DebugFlags struct {
	Echo   bool `json:"echo"`
	Info   bool `json:"info"`
	Errors bool `json:"errors"`
	DryRun bool `json:"dry_run"`
}

// Mask returns the M111 value for f.
func (f DebugFlags) Mask() int {
	return gcode.DebugMask(f.Echo, f.Info, f.Errors, f.DryRun)
}

// Panel ties the collaborator connection to the status arbiter, the
// injection gate, the jog planner and the command history. Its methods
// are safe for concurrent use.
type Panel struct {
	conn    machine.Connection
	cfg     Config
	gate    *gate.Gate
	arbiter *status.Arbiter
	history *history.History
	jogger  *jog.Planner
	metrics *metrics.PanelMetrics
	logger  *log.Logger

	mu    sync.Mutex
	debug DebugFlags
}

// Option configures a Panel.
type Option func(*options)

type options struct {
	logger  *log.Logger
	clock   func() time.Time
	metrics *metrics.PanelMetrics
}

// WithLogger sets the root logger; components log under sub-prefixes.
func WithLogger(l *log.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithClock replaces time.Now for status dwell accounting.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.clock = now }
}

// WithMetrics records gate, jog, status and manual command activity in m.
func WithMetrics(m *metrics.PanelMetrics) Option {
	return func(o *options) { o.metrics = m }
}

// New builds a panel over conn.
func New(conn machine.Connection, cfg Config, opts ...Option) *Panel {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = log.GetLogger("panel")
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = DefaultTickInterval
	}
	if cfg.StatusDwell <= 0 {
		cfg.StatusDwell = status.DefaultDecay
	}

	arbOpts := []status.Option{
		status.WithDecay(cfg.StatusDwell),
		status.WithLogger(o.logger.WithPrefix("status")),
	}
	if o.clock != nil {
		arbOpts = append(arbOpts, status.WithClock(o.clock))
	}

	g := gate.New(o.logger.WithPrefix("gate"))
	p := &Panel{
		conn:    conn,
		cfg:     cfg,
		gate:    g,
		arbiter: status.NewArbiter(arbOpts...),
		history: history.New(cfg.HistorySize),
		jogger:  jog.NewPlanner(conn, g, o.logger.WithPrefix("jog")),
		metrics: o.metrics,
		logger:  o.logger,
	}
	if p.metrics != nil {
		g.SetObserver(p.metrics)
		p.jogger.SetObserver(p.metrics)
		p.arbiter.Subscribe(p.metrics.Transition)
	}
	return p
}

// Tick re-evaluates the status against the current signals.
func (p *Panel) Tick() status.Entry {
	return p.arbiter.Evaluate(p.conn.Snapshot().Signals)
}

// HandleEvent feeds a connection or job event to the arbiter. When the
// printer connects the configured debug flags are sent first.
func (p *Panel) HandleEvent(ctx context.Context, ev machine.Event) status.Entry {
	if ev.Kind == machine.EventConnectionChanged && p.conn.Snapshot().Connected {
		if err := p.sendDebugFlags(ctx); err != nil {
			p.logger.WithError(err).Warn("sending debug flags on connect")
		}
	}
	return p.arbiter.Notify(ev.Kind, p.conn.Snapshot().Signals)
}

// CurrentStatusCaption renders the current status.
func (p *Panel) CurrentStatusCaption() string {
	return p.arbiter.Caption(p.conn.Snapshot().Signals)
}

// Status returns the current status entry.
func (p *Panel) Status() status.Entry {
	return p.arbiter.Current()
}

// OnStatusChange registers l for status transitions.
func (p *Panel) OnStatusChange(l status.Listener) {
	p.arbiter.Subscribe(l)
}

// Snapshot returns the connection's current view of the machine.
func (p *Panel) Snapshot() machine.Snapshot {
	return p.conn.Snapshot()
}

// Config returns the effective configuration.
func (p *Panel) Config() Config {
	return p.cfg
}

// SubmitManualCommand sends an operator-typed line. Lines shorter than
// two characters after trimming are rejected. The line enters the
// history only once it reached the connection.
func (p *Panel) SubmitManualCommand(ctx context.Context, text string) (err error) {
	defer func() {
		if p.metrics != nil {
			p.metrics.ManualCommand(err)
		}
	}()

	line := strings.TrimSpace(text)
	if len(line) < minCommandLength {
		return errors.EmptyCommand(text)
	}
	if !p.conn.Snapshot().Connected {
		return errors.TransportUnavailable("manual command")
	}
	err = p.gate.Do(ctx, "manual", p.conn, func(seq *gate.Sequence) error {
		return seq.Send(line)
	})
	if err != nil {
		return err
	}
	p.history.Append(line)
	p.logger.WithField("line", line).Info("manual command")
	return nil
}

// RecallPrevious steps back through the history. ok is false when there
// is nothing to recall.
func (p *Panel) RecallPrevious() (string, bool) {
	return p.history.RecallPrevious()
}

// RecallNext steps forward through the history. Past the newest line it
// returns the empty line.
func (p *Panel) RecallNext() (string, bool) {
	return p.history.RecallNext()
}

// History returns the stored manual lines, oldest first.
func (p *Panel) History() []string {
	return p.history.Lines()
}

// RequestJog moves axis by distance, clamped to the travel limits of
// homed axes.
func (p *Panel) RequestJog(ctx context.Context, axis machine.Axis, distance float64) (jog.Result, error) {
	return p.jogger.Jog(ctx, jog.Request{Axis: axis, Distance: distance})
}

// Run ticks the arbiter and consumes connection events until ctx is done.
func (p *Panel) Run(ctx context.Context) error {
	events, cancel := p.conn.Subscribe()
	defer cancel()

	ticker := time.NewTicker(p.cfg.TickInterval)
	defer ticker.Stop()

	p.logger.WithField("interval", p.cfg.TickInterval.String()).Info("panel loop started")
	p.Tick()
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("panel loop stopped")
			return ctx.Err()
		case <-ticker.C:
			p.Tick()
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			p.HandleEvent(ctx, ev)
		}
	}
}

// State is everything a front end renders in one poll.
type State struct {
	Status    status.Status    `json:"status"`
	Caption   string           `json:"caption"`
	EnteredAt int64            `json:"entered_at"`
	Machine   machine.Snapshot `json:"machine"`
	Positions []AxisLabel      `json:"positions"`
	FanOutput string           `json:"fan_output"`
	Debug     DebugFlags       `json:"debug"`
}

// State returns the current status, caption and machine view.
func (p *Panel) State() State {
	snap := p.conn.Snapshot()
	entry := p.arbiter.Current()
	return State{
		Status:    entry.Status,
		Caption:   status.Caption(entry.Status, snap.Signals),
		EnteredAt: entry.EnteredAt,
		Machine:   snap,
		Positions: PositionLabels(snap),
		FanOutput: FanOutputLabel(snap.FanValue),
		Debug:     p.DebugFlags(),
	}
}
