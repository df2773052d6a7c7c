// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"printpanel-go/pkg/log"
	"printpanel-go/pkg/panel"
)

const (
	wsWriteWait    = 10 * time.Second
	wsPongWait     = 60 * time.Second
	wsPingInterval = 30 * time.Second
	wsMaxMessage   = 64 * 1024
	wsSendBuffer   = 64
)

// JSON-RPC 2.0 structures

type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
	ID      any             `json:"id,omitempty"`
}

type rpcResponse struct {
	JSONRPC string    `json:"jsonrpc"`
	Result  any       `json:"result,omitempty"`
	Error   *rpcError `json:"error,omitempty"`
	ID      any       `json:"id"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type notification struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  []any  `json:"params,omitempty"`
}

type wsClient struct {
	id     string
	conn   *websocket.Conn
	server *Server
	logger *log.Logger
	sendCh chan any
	done   chan struct{}
	once   sync.Once

	// ctx is cancelled when the client goes away, releasing requests
	// still queued on the gate.
	ctx    context.Context
	cancel context.CancelFunc
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.WithError(err).Warn("websocket upgrade failed")
		return
	}
	c := &wsClient{
		id:     uuid.NewString(),
		conn:   conn,
		server: s,
		logger: s.logger,
		sendCh: make(chan any, wsSendBuffer),
		done:   make(chan struct{}),
	}
	c.ctx, c.cancel = context.WithCancel(context.Background())
	s.clientMu.Lock()
	s.clients[c.id] = c
	s.clientMu.Unlock()
	s.logger.WithField("client", c.id).Info("websocket client connected")

	go c.writePump()
	c.Send(s.statusNotification(s.panel.State()))
	c.readPump()
}

// Send queues msg; a full queue drops it.
func (c *wsClient) Send(msg any) {
	select {
	case <-c.done:
	case c.sendCh <- msg:
	default:
		c.logger.WithField("client", c.id).Warn("websocket send queue full, message dropped")
	}
}

func (c *wsClient) Close() {
	c.once.Do(func() {
		c.cancel()
		close(c.done)
		_ = c.conn.Close()
	})
}

func (c *wsClient) readPump() {
	defer func() {
		c.server.removeClient(c)
		c.Close()
	}()

	c.conn.SetReadLimit(wsMaxMessage)
	_ = c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.WithError(err).Warn("websocket read failed")
			}
			return
		}
		c.handleMessage(data)
	}
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(wsPingInterval)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case msg := <-c.sendCh:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteJSON(msg); err != nil {
				c.logger.WithError(err).Debug("websocket write failed")
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

func (c *wsClient) handleMessage(data []byte) {
	var req rpcRequest
	if err := json.Unmarshal(data, &req); err != nil {
		c.Send(rpcResponse{JSONRPC: "2.0", Error: &rpcError{Code: -32700, Message: "Parse error"}})
		return
	}
	result, err := c.server.dispatch(c.ctx, req)
	if err != nil {
		code := -32000
		if _, ok := err.(rpcNotFound); ok {
			code = -32601
		}
		c.Send(rpcResponse{JSONRPC: "2.0", Error: &rpcError{Code: code, Message: err.Error()}, ID: req.ID})
		return
	}
	c.Send(rpcResponse{JSONRPC: "2.0", Result: result, ID: req.ID})
}

type rpcNotFound string

func (e rpcNotFound) Error() string { return "method not found: " + string(e) }

func (s *Server) dispatch(ctx context.Context, req rpcRequest) (any, error) {
	switch req.Method {
	case "panel.status":
		return s.panel.State(), nil
	case "panel.gcode":
		var p GCodeRequest
		if len(req.Params) > 0 {
			if err := json.Unmarshal(req.Params, &p); err != nil {
				return nil, err
			}
		}
		if err := s.panel.SubmitManualCommand(ctx, p.Command); err != nil {
			return nil, err
		}
		return okBody, nil
	}
	return nil, rpcNotFound(req.Method)
}

func (s *Server) removeClient(c *wsClient) {
	s.clientMu.Lock()
	delete(s.clients, c.id)
	s.clientMu.Unlock()
	s.logger.WithField("client", c.id).Info("websocket client disconnected")
}

func (s *Server) closeClients() {
	s.clientMu.Lock()
	clients := s.clients
	s.clients = make(map[string]*wsClient)
	s.clientMu.Unlock()
	for _, c := range clients {
		c.Close()
	}
}

// ClientCount returns the number of connected websocket clients.
func (s *Server) ClientCount() int {
	s.clientMu.RLock()
	defer s.clientMu.RUnlock()
	return len(s.clients)
}

func (s *Server) statusNotification(st panel.State) notification {
	eventtime := float64(time.Since(s.startTime).Milliseconds()) / 1000.0
	return notification{
		JSONRPC: "2.0",
		Method:  "notify_status_update",
		Params:  []any{st, eventtime},
	}
}

func (s *Server) statusBroadcastLoop(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.broadcastIfChanged()
		}
	}
}

// broadcastIfChanged pushes the state to every client when the caption
// differs from the last one pushed. It reports whether it pushed.
func (s *Server) broadcastIfChanged() bool {
	st := s.panel.State()
	s.lastMu.Lock()
	if st.Caption == s.lastCaption {
		s.lastMu.Unlock()
		return false
	}
	s.lastCaption = st.Caption
	s.lastMu.Unlock()

	msg := s.statusNotification(st)
	s.clientMu.RLock()
	defer s.clientMu.RUnlock()
	for _, c := range s.clients {
		c.Send(msg)
	}
	return true
}
