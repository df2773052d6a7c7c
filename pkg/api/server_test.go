package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"printpanel-go/pkg/log"
	"printpanel-go/pkg/machine"
	"printpanel-go/pkg/machine/machinetest"
	"printpanel-go/pkg/metrics"
	"printpanel-go/pkg/panel"
)

type testEnv struct {
	conn   *machinetest.Conn
	panel  *panel.Panel
	server *Server
	http   *httptest.Server
}

func newTestEnv(t *testing.T, cfg panel.Config) *testEnv {
	t.Helper()
	conn := machinetest.New()
	m := metrics.NewPanelMetrics()
	p := panel.New(conn, cfg, panel.WithLogger(log.Discard()), panel.WithMetrics(m))
	s := New(Config{Panel: p, Metrics: m.Registry, Logger: log.Discard()})
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return &testEnv{conn: conn, panel: p, server: s, http: ts}
}

func (e *testEnv) post(t *testing.T, path string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(data)
	}
	resp, err := http.Post(e.http.URL+path, "application/json", rd)
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func errorCode(t *testing.T, body map[string]any) string {
	t.Helper()
	e, ok := body["error"].(map[string]any)
	require.True(t, ok, "no error object in %v", body)
	return e["code"].(string)
}

func TestStatus(t *testing.T) {
	env := newTestEnv(t, panel.Config{})
	resp, err := http.Get(env.http.URL + "/api/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))

	var st map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&st))
	assert.Equal(t, "disconnected", st["status"])
	assert.Equal(t, "Disconnected", st["caption"])
}

func TestGCodeAndHistory(t *testing.T) {
	env := newTestEnv(t, panel.Config{})
	resp, body := env.post(t, "/api/gcode", GCodeRequest{Command: "G28"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, []string{"G28"}, env.conn.Lines())

	getResp, err := http.Get(env.http.URL + "/api/history")
	require.NoError(t, err)
	defer getResp.Body.Close()
	var hist struct{ Lines []string }
	require.NoError(t, json.NewDecoder(getResp.Body).Decode(&hist))
	assert.Equal(t, []string{"G28"}, hist.Lines)

	_, body = env.post(t, "/api/history/previous", nil)
	assert.Equal(t, "G28", body["line"])
	assert.Equal(t, true, body["found"])
	_, body = env.post(t, "/api/history/next", nil)
	assert.Equal(t, "", body["line"])
}

func TestGCodeErrors(t *testing.T) {
	env := newTestEnv(t, panel.Config{})

	resp, body := env.post(t, "/api/gcode", GCodeRequest{Command: "G"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "EMPTY_COMMAND", errorCode(t, body))

	env.conn.FailAt(1)
	resp, body = env.post(t, "/api/gcode", GCodeRequest{Command: "G28"})
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, "SEQUENCE_INTERRUPTED", errorCode(t, body))

	env.conn.Update(func(s *machine.Snapshot) { s.Connected = false })
	resp, body = env.post(t, "/api/gcode", GCodeRequest{Command: "G28"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "TRANSPORT_UNAVAILABLE", errorCode(t, body))

	r, err := http.Post(env.http.URL+"/api/gcode", "application/json", strings.NewReader("{"))
	require.NoError(t, err)
	r.Body.Close()
	assert.Equal(t, http.StatusBadRequest, r.StatusCode)

	r, err = http.Get(env.http.URL + "/api/gcode")
	require.NoError(t, err)
	r.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, r.StatusCode)
}

func TestJog(t *testing.T) {
	env := newTestEnv(t, panel.Config{})
	env.conn.Update(func(s *machine.Snapshot) {
		s.Axes[machine.X] = machine.AxisState{Position: 195, Homed: true}
	})
	resp, body := env.post(t, "/api/jog", JogRequest{Axis: "x", Distance: 10})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["clamped"])
	assert.Equal(t, 5.0, body["distance"])
	assert.Equal(t, []string{"G91", "G1 X5 F4800", "G90"}, env.conn.Lines())

	resp, body = env.post(t, "/api/jog", JogRequest{Axis: "e", Distance: 10})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "BAD_REQUEST", errorCode(t, body))
}

func TestControls(t *testing.T) {
	env := newTestEnv(t, panel.Config{NoPowerControl: true})
	env.conn.Update(func(s *machine.Snapshot) { s.Firmware = machine.FirmwareMarlin })

	resp, _ := env.post(t, "/api/home", HomeRequest{Axes: []string{"y"}})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = env.post(t, "/api/temperature/bed", TemperatureRequest{Target: 60})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = env.post(t, "/api/temperature/extruder", TemperatureRequest{Target: 200})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp, body := env.post(t, "/api/fan", FanRequest{On: true, Value: 255})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Output 100.0%", body["output"])
	resp, _ = env.post(t, "/api/speed", SpeedRequest{Percent: "120"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp, body = env.post(t, "/api/debug", panel.DebugFlags{Echo: true, DryRun: true})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 9.0, body["mask"])
	resp, _ = env.post(t, "/api/retract", ExtrudeRequest{Amount: "2", Speed: "300"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = env.post(t, "/api/motors/off", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, []string{
		"G28 Y0",
		"M140 S60",
		"M104 S200",
		"M106 S255",
		"M220 S120",
		"M111 S9",
		"G91", "G1 E-2 F300", "G90",
		"M84",
	}, env.conn.Lines())
	assert.Equal(t, "Motors stopped", env.panel.CurrentStatusCaption())

	resp, body = env.post(t, "/api/power", PowerRequest{On: true})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "CONTROL_DISABLED", errorCode(t, body))
}

func TestExtrudeFieldErrors(t *testing.T) {
	env := newTestEnv(t, panel.Config{})
	resp, body := env.post(t, "/api/extrude", ExtrudeRequest{Amount: "lots", Speed: "0"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "INVALID_NUMERIC_INPUT", errorCode(t, body))
	fields := body["error"].(map[string]any)["fields"].(map[string]any)
	assert.Equal(t, panel.MsgNotNumber, fields["amount"])
	assert.Equal(t, panel.MsgNotPositive, fields["speed"])
	assert.Empty(t, env.conn.Lines())
}

func TestSpeedNotAnInteger(t *testing.T) {
	env := newTestEnv(t, panel.Config{})
	env.conn.Update(func(s *machine.Snapshot) { s.Firmware = machine.FirmwareMarlin })
	resp, body := env.post(t, "/api/speed", SpeedRequest{Percent: "12.5"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "INVALID_NUMERIC_INPUT", errorCode(t, body))
	fields := body["error"].(map[string]any)["fields"].(map[string]any)
	assert.Equal(t, panel.MsgNotInteger, fields["percent"])
	assert.Empty(t, env.conn.Lines())
}

func TestUnknownHeater(t *testing.T) {
	env := newTestEnv(t, panel.Config{})
	r, err := http.Post(env.http.URL+"/api/temperature/chamber", "application/json", strings.NewReader(`{"target":40}`))
	require.NoError(t, err)
	r.Body.Close()
	assert.Equal(t, http.StatusNotFound, r.StatusCode)
}

func TestMetricsRoute(t *testing.T) {
	env := newTestEnv(t, panel.Config{})
	env.post(t, "/api/gcode", GCodeRequest{Command: "M105"})

	resp, err := http.Get(env.http.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(data), `printpanel_manual_commands_total{result="ok"} 1`)
}

func readJSON(t *testing.T, ws *websocket.Conn) map[string]any {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg map[string]any
	require.NoError(t, ws.ReadJSON(&msg))
	return msg
}

func TestWebSocket(t *testing.T) {
	env := newTestEnv(t, panel.Config{})
	url := "ws" + strings.TrimPrefix(env.http.URL, "http") + "/websocket"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer ws.Close()

	msg := readJSON(t, ws)
	assert.Equal(t, "notify_status_update", msg["method"])

	require.NoError(t, ws.WriteJSON(map[string]any{
		"jsonrpc": "2.0", "method": "panel.gcode", "id": 1,
		"params": map[string]any{"command": "M105"},
	}))
	msg = readJSON(t, ws)
	assert.Equal(t, 1.0, msg["id"])
	assert.Nil(t, msg["error"])
	assert.Equal(t, []string{"M105"}, env.conn.Lines())

	require.NoError(t, ws.WriteJSON(map[string]any{"jsonrpc": "2.0", "method": "nope", "id": 2}))
	msg = readJSON(t, ws)
	require.NotNil(t, msg["error"])
	assert.EqualValues(t, -32601, msg["error"].(map[string]any)["code"])

	assert.Eventually(t, func() bool { return env.server.ClientCount() == 1 }, time.Second, 10*time.Millisecond)
	env.panel.Tick()
	require.True(t, env.server.broadcastIfChanged())
	msg = readJSON(t, ws)
	assert.Equal(t, "notify_status_update", msg["method"])
	params := msg["params"].([]any)
	assert.Equal(t, "Idle", params[0].(map[string]any)["caption"])
	assert.False(t, env.server.broadcastIfChanged(), "unchanged caption is not re-sent")
}

func TestWebSocketContextEndsWithClient(t *testing.T) {
	env := newTestEnv(t, panel.Config{})
	url := "ws" + strings.TrimPrefix(env.http.URL, "http") + "/websocket"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer ws.Close()
	readJSON(t, ws)

	require.Eventually(t, func() bool { return env.server.ClientCount() == 1 }, time.Second, 10*time.Millisecond)
	env.server.clientMu.RLock()
	var c *wsClient
	for _, v := range env.server.clients {
		c = v
	}
	env.server.clientMu.RUnlock()
	require.NoError(t, c.ctx.Err())

	env.server.closeClients()
	assert.ErrorIs(t, c.ctx.Err(), context.Canceled)
	_, err = env.server.dispatch(c.ctx, rpcRequest{Method: "nope"})
	assert.Error(t, err)
}
