// Print panel metrics
//
// Copyright (C) 2026 Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package metrics

import (
	"net/http"
	"strconv"

	"printpanel-go/pkg/errors"
	"printpanel-go/pkg/jog"
	"printpanel-go/pkg/status"
)

// PanelMetrics groups the metrics exported by the panel core. It
// implements gate.Observer and jog.Observer, and Transition can be
// subscribed to a status.Arbiter.
type PanelMetrics struct {
	Registry *Registry

	Sequences         *Counter
	LinesSent         *Counter
	Jogs              *Counter
	StatusTransitions *Counter
	StatusCurrent     *Gauge
	ManualCommands    *Counter
}

// NewPanelMetrics creates and registers the panel metrics in a fresh registry.
func NewPanelMetrics() *PanelMetrics {
	pm := &PanelMetrics{
		Registry:          NewRegistry(),
		Sequences:         NewCounter("printpanel_sequences_total", "Gated command sequences by name and result"),
		LinesSent:         NewCounter("printpanel_lines_sent_total", "Command lines delivered to the connection"),
		Jogs:              NewCounter("printpanel_jogs_total", "Jog requests by axis and outcome"),
		StatusTransitions: NewCounter("printpanel_status_transitions_total", "Status transitions by target status"),
		StatusCurrent:     NewGauge("printpanel_status", "1 for the current status, 0 otherwise"),
		ManualCommands:    NewCounter("printpanel_manual_commands_total", "Operator typed commands by result"),
	}
	for _, m := range []Metric{pm.Sequences, pm.LinesSent, pm.Jogs, pm.StatusTransitions, pm.StatusCurrent, pm.ManualCommands} {
		pm.Registry.MustRegister(m)
	}
	for _, s := range status.All() {
		pm.StatusCurrent.Set(Labels{"status": s.String()}, 0)
	}
	pm.StatusCurrent.Set(Labels{"status": status.Disconnected.String()}, 1)
	return pm
}

// SequenceDone implements gate.Observer.
func (pm *PanelMetrics) SequenceDone(name string, lines int, err error) {
	pm.Sequences.Inc(Labels{"name": name, "result": result(err)})
	pm.LinesSent.Add(nil, uint64(lines))
}

// Jogged implements jog.Observer.
func (pm *PanelMetrics) Jogged(r jog.Result) {
	outcome := "moved"
	switch {
	case r.Skipped:
		outcome = "skipped"
	case r.Clamped:
		outcome = "clamped"
	}
	pm.Jogs.Inc(Labels{"axis": r.Axis.String(), "outcome": outcome})
}

// Transition is a status.Listener.
func (pm *PanelMetrics) Transition(prev, next status.Entry) {
	if prev.Status == next.Status {
		return
	}
	pm.StatusTransitions.Inc(Labels{"to": next.Status.String()})
	pm.StatusCurrent.Set(Labels{"status": prev.Status.String()}, 0)
	pm.StatusCurrent.Set(Labels{"status": next.Status.String()}, 1)
}

// ManualCommand records the outcome of a typed command.
func (pm *PanelMetrics) ManualCommand(err error) {
	pm.ManualCommands.Inc(Labels{"result": result(err)})
}

func result(err error) string {
	if err == nil {
		return "ok"
	}
	if code := errors.CodeOf(err); code != "" {
		return string(code)
	}
	return "error"
}

// Handler serves the registry in Prometheus text format.
func Handler(r *Registry) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet && req.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		body := r.Gather()
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		w.Header().Set("Content-Length", strconv.Itoa(len(body)))
		if req.Method == http.MethodHead {
			return
		}
		_, _ = w.Write([]byte(body))
	})
}
