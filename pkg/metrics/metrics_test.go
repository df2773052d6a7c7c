// Unit tests for metrics
//
// Copyright (C) 2026 Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package metrics

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"printpanel-go/pkg/errors"
	"printpanel-go/pkg/jog"
	"printpanel-go/pkg/machine"
	"printpanel-go/pkg/status"
)

func TestCounterBasic(t *testing.T) {
	c := NewCounter("test_counter", "A test counter")
	assert.Equal(t, uint64(0), c.Get(nil))

	c.Inc(nil)
	c.Add(nil, 10)
	assert.Equal(t, uint64(11), c.Get(nil))
	assert.Equal(t, TypeCounter, c.Type())
	assert.Equal(t, "test_counter", c.Name())
}

func TestCounterWithLabels(t *testing.T) {
	c := NewCounter("jogs", "jogs")
	c.Inc(Labels{"axis": "X"})
	c.Inc(Labels{"axis": "X"})
	c.Inc(Labels{"axis": "Z"})

	assert.Equal(t, uint64(2), c.Get(Labels{"axis": "X"}))
	assert.Equal(t, uint64(1), c.Get(Labels{"axis": "Z"}))
	assert.Equal(t, uint64(0), c.Get(Labels{"axis": "Y"}))
}

func TestCounterConcurrency(t *testing.T) {
	c := NewCounter("concurrent", "concurrent")
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Inc(nil)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, uint64(5000), c.Get(nil))
}

func TestGauge(t *testing.T) {
	g := NewGauge("temp", "temperature")
	g.Set(Labels{"heater": "bed"}, 60)
	g.Add(Labels{"heater": "bed"}, -0.5)
	assert.Equal(t, 59.5, g.Get(Labels{"heater": "bed"}))
	assert.Equal(t, TypeGauge, g.Type())
}

func TestRegistryGather(t *testing.T) {
	r := NewRegistry()
	c := NewCounter("b_total", "second")
	g := NewGauge("a_value", "first")
	r.MustRegister(c)
	r.MustRegister(g)
	assert.Error(t, r.Register(NewCounter("b_total", "dup")))

	c.Inc(Labels{"x": "2"})
	c.Inc(Labels{"x": "1"})
	g.Set(nil, 1.5)

	want := "# HELP a_value first\n# TYPE a_value gauge\na_value 1.5\n" +
		"# HELP b_total second\n# TYPE b_total counter\n" +
		"b_total{x=\"1\"} 1\nb_total{x=\"2\"} 1\n"
	assert.Equal(t, want, r.Gather())
}

func TestLabels(t *testing.T) {
	l := Labels{"b": "2", "a": "1"}
	assert.Equal(t, "a=1,b=2", l.Key())
	assert.Equal(t, `{a="1",b="2"}`, l.String())
	assert.Equal(t, "", Labels(nil).String())
	assert.Equal(t, `{v="a\"b\\c\n"}`, Labels{"v": "a\"b\\c\n"}.String())
}

func TestPanelMetricsObservers(t *testing.T) {
	pm := NewPanelMetrics()

	pm.SequenceDone("jog", 3, nil)
	pm.SequenceDone("jog", 1, errors.SequenceInterrupted("id", "G1", 1, io.EOF))
	assert.Equal(t, uint64(1), pm.Sequences.Get(Labels{"name": "jog", "result": "ok"}))
	assert.Equal(t, uint64(1), pm.Sequences.Get(Labels{"name": "jog", "result": "SEQUENCE_INTERRUPTED"}))
	assert.Equal(t, uint64(4), pm.LinesSent.Get(nil))

	pm.Jogged(jog.Result{Axis: machine.X, Clamped: true})
	pm.Jogged(jog.Result{Axis: machine.Z, Skipped: true})
	assert.Equal(t, uint64(1), pm.Jogs.Get(Labels{"axis": "X", "outcome": "clamped"}))
	assert.Equal(t, uint64(1), pm.Jogs.Get(Labels{"axis": "Z", "outcome": "skipped"}))

	pm.Transition(status.Entry{Status: status.Disconnected}, status.Entry{Status: status.Idle, EnteredAt: 5})
	assert.Equal(t, uint64(1), pm.StatusTransitions.Get(Labels{"to": "idle"}))
	assert.Equal(t, 1.0, pm.StatusCurrent.Get(Labels{"status": "idle"}))
	assert.Equal(t, 0.0, pm.StatusCurrent.Get(Labels{"status": "disconnected"}))

	pm.ManualCommand(errors.TransportUnavailable("send"))
	assert.Equal(t, uint64(1), pm.ManualCommands.Get(Labels{"result": "TRANSPORT_UNAVAILABLE"}))
	pm.ManualCommand(fmt.Errorf("plain"))
	assert.Equal(t, uint64(1), pm.ManualCommands.Get(Labels{"result": "error"}))
}

func TestHandler(t *testing.T) {
	pm := NewPanelMetrics()
	pm.SequenceDone("home", 1, nil)
	srv := httptest.NewServer(Handler(pm.Registry))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/plain")
	assert.Contains(t, string(body), `printpanel_sequences_total{name="home",result="ok"} 1`)

	resp, err = http.Post(srv.URL, "text/plain", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}
