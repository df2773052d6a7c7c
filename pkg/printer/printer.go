// Package printer owns the link to the machine and implements
// machine.Connection on top of it.
package printer

import (
	"sync"
	"time"

	"printpanel-go/pkg/errors"
	"printpanel-go/pkg/log"
	"printpanel-go/pkg/machine"
)

const (
	subscriberBuffer = 64

	// AmbientTemp is where idle heaters settle in simulation.
	AmbientTemp = 20.0
	// heatRate is the simulated heating/cooling rate in degrees per second.
	heatRate = 10.0
)

// Printer tracks one machine. All exported methods are safe for
// concurrent use.
type Printer struct {
	mu       sync.Mutex
	link     Link
	analyzer *Analyzer
	firmware machine.Firmware
	profile  machine.Profile
	job      machine.JobMode
	paused   bool
	upload   bool
	eta      string
	logger   *log.Logger
	now      func() time.Time

	subMu   sync.Mutex
	subs    map[int]chan machine.Event
	nextSub int
	dropped uint64
}

// Option configures a Printer.
type Option func(*Printer)

// WithFirmware sets the firmware flavour.
func WithFirmware(fw machine.Firmware) Option {
	return func(p *Printer) { p.firmware = fw }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(p *Printer) { p.logger = l }
}

// WithClock overrides the event timestamp source.
func WithClock(now func() time.Time) Option {
	return func(p *Printer) { p.now = now }
}

// New returns a disconnected printer with the given motion profile.
func New(profile machine.Profile, opts ...Option) *Printer {
	p := &Printer{
		analyzer: NewAnalyzer(),
		profile:  profile,
		logger:   log.GetLogger("printer"),
		now:      time.Now,
		subs:     make(map[int]chan machine.Event),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.analyzer.SetMeasured(AmbientTemp, AmbientTemp)
	return p
}

// Connect attaches link, replacing and closing any previous one.
func (p *Printer) Connect(link Link) {
	p.mu.Lock()
	old := p.link
	p.link = link
	p.mu.Unlock()
	if old != nil {
		_ = old.Close()
	}
	p.logger.Info("connected")
	p.publish(machine.EventConnectionChanged)
}

// Disconnect drops the link. A running job is abandoned.
func (p *Printer) Disconnect() {
	p.mu.Lock()
	old := p.link
	p.link = nil
	p.job = machine.JobNone
	p.paused = false
	p.mu.Unlock()
	if old == nil {
		return
	}
	if err := old.Close(); err != nil {
		p.logger.WithError(err).Warn("closing link")
	}
	p.logger.Info("disconnected")
	p.publish(machine.EventConnectionChanged)
}

// Connected reports whether a link is attached.
func (p *Printer) Connected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.link != nil
}

// Snapshot implements machine.Connection.
func (p *Printer) Snapshot() machine.Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	st := p.analyzer.State()
	snap := machine.Snapshot{
		Signals: machine.Signals{
			Connected:        p.link != nil,
			Paused:           p.paused,
			ExtruderMeasured: st.ExtruderMeasured,
			ExtruderTarget:   st.ExtruderTarget,
			HasHeatedBed:     p.profile.HasHeatedBed,
			BedMeasured:      st.BedMeasured,
			BedTarget:        st.BedTarget,
			JobMode:          p.job,
			Uploading:        p.upload,
			ETA:              p.eta,
		},
		Axes:        st.Axes,
		Relative:    st.Relative,
		FanOn:       st.FanOn,
		FanValue:    st.FanValue,
		PowerOn:     st.PowerOn,
		SpeedFactor: st.SpeedFactor,
		Firmware:    p.firmware,
		Profile:     p.profile,
	}
	return snap
}

// SendLine implements machine.Connection. The analyzer only sees lines
// the link accepted.
func (p *Printer) SendLine(line string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.link == nil {
		return errors.TransportUnavailable("send")
	}
	if err := p.link.WriteLine(line); err != nil {
		return errors.Wrap(err, errors.ErrSerialIO, "write failed").SetContext("line", line)
	}
	p.analyzer.Apply(line)
	return nil
}

// HandleResponse feeds a firmware reply line to the analyzer.
func (p *Printer) HandleResponse(line string) {
	p.mu.Lock()
	changed := p.analyzer.ApplyResponse(line)
	p.mu.Unlock()
	if changed {
		p.logger.WithField("line", line).Debug("temperature report")
	}
}

// StartJob marks a print as running.
func (p *Printer) StartJob() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.job = machine.JobPrinting
	p.paused = false
}

// SetETA sets the remaining-time string shown while printing.
func (p *Printer) SetETA(eta string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.eta = eta
}

// SetUploading flags a file transfer in progress.
func (p *Printer) SetUploading(on bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.upload = on
}

// SetPaused pauses or resumes the running job.
func (p *Printer) SetPaused(paused bool) {
	p.mu.Lock()
	if p.paused == paused {
		p.mu.Unlock()
		return
	}
	p.paused = paused
	p.mu.Unlock()
	p.publish(machine.EventJobPausedChanged)
}

// Kill aborts the running job.
func (p *Printer) Kill() {
	p.endJob(machine.EventJobKilled)
}

// Finish marks the running job complete.
func (p *Printer) Finish() {
	p.endJob(machine.EventJobFinished)
}

func (p *Printer) endJob(kind machine.EventKind) {
	p.mu.Lock()
	p.job = machine.JobNone
	p.paused = false
	p.eta = ""
	p.mu.Unlock()
	p.publish(kind)
}

// MotorsStopped reports that the steppers were disabled.
func (p *Printer) MotorsStopped() {
	p.publish(machine.EventMotorStopped)
}

// Simulate moves the measured temperatures toward their targets by dt.
// Heaters with a zero target cool toward ambient.
func (p *Printer) Simulate(dt time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.link == nil {
		return
	}
	st := p.analyzer.State()
	step := heatRate * dt.Seconds()
	p.analyzer.SetMeasured(approach(st.ExtruderMeasured, st.ExtruderTarget, step),
		approach(st.BedMeasured, st.BedTarget, step))
}

func approach(cur, target, step float64) float64 {
	if target <= 0 {
		target = AmbientTemp
	}
	switch {
	case cur < target:
		cur += step
		if cur > target {
			cur = target
		}
	case cur > target:
		cur -= step
		if cur < target {
			cur = target
		}
	}
	return cur
}

// Subscribe implements machine.Connection. Slow subscribers miss events
// rather than block the printer.
func (p *Printer) Subscribe() (<-chan machine.Event, func()) {
	ch := make(chan machine.Event, subscriberBuffer)
	p.subMu.Lock()
	id := p.nextSub
	p.nextSub++
	p.subs[id] = ch
	p.subMu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			p.subMu.Lock()
			delete(p.subs, id)
			close(ch)
			p.subMu.Unlock()
		})
	}
	return ch, cancel
}

// Dropped returns how many events were discarded for full subscribers.
func (p *Printer) Dropped() uint64 {
	p.subMu.Lock()
	defer p.subMu.Unlock()
	return p.dropped
}

func (p *Printer) publish(kind machine.EventKind) {
	ev := machine.Event{Kind: kind, At: p.now()}
	p.subMu.Lock()
	defer p.subMu.Unlock()
	for _, ch := range p.subs {
		select {
		case ch <- ev:
		default:
			p.dropped++
			p.logger.WithField("event", kind.String()).Warn("subscriber full, event dropped")
		}
	}
}
