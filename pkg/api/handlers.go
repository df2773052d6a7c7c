// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package api

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"printpanel-go/pkg/errors"
	"printpanel-go/pkg/machine"
	"printpanel-go/pkg/panel"
)

type okResponse struct {
	OK bool `json:"ok"`
}

var okBody = okResponse{OK: true}

// GCodeRequest is the body of POST /api/gcode.
type GCodeRequest struct {
	Command string `json:"command"`
}

// RecallResponse is returned by the history navigation routes.
type RecallResponse struct {
	Line  string `json:"line"`
	Found bool   `json:"found"`
}

// JogRequest is the body of POST /api/jog.
type JogRequest struct {
	Axis     string  `json:"axis"`
	Distance float64 `json:"distance"`
}

// HomeRequest is the body of POST /api/home. No axes homes all of them.
type HomeRequest struct {
	Axes []string `json:"axes"`
}

// TemperatureRequest sets a heater target; 0 turns it off.
type TemperatureRequest struct {
	Target float64 `json:"target"`
}

// FanRequest is the body of POST /api/fan.
type FanRequest struct {
	On    bool `json:"on"`
	Value int  `json:"value"`
}

// PowerRequest is the body of POST /api/power.
type PowerRequest struct {
	On bool `json:"on"`
}

// SpeedRequest is the body of POST /api/speed. Percent is the raw field text.
type SpeedRequest struct {
	Percent string `json:"percent"`
}

// ExtrudeRequest carries the raw text of the amount and speed fields.
type ExtrudeRequest struct {
	Amount string `json:"amount"`
	Speed  string `json:"speed"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.panel.State())
}

func (s *Server) handleGCode(w http.ResponseWriter, r *http.Request) {
	var req GCodeRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.panel.SubmitManualCommand(r.Context(), req.Command); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, okBody)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"lines": s.panel.History()})
}

func (s *Server) handleRecall(w http.ResponseWriter, r *http.Request) {
	var resp RecallResponse
	if mux.Vars(r)["direction"] == "previous" {
		resp.Line, resp.Found = s.panel.RecallPrevious()
	} else {
		resp.Line, resp.Found = s.panel.RecallNext()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleJog(w http.ResponseWriter, r *http.Request) {
	var req JogRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	axis, err := machine.ParseAxis(req.Axis)
	if err != nil {
		s.writeError(w, errors.Wrap(err, errors.ErrBadRequest, "invalid axis"))
		return
	}
	res, err := s.panel.RequestJog(r.Context(), axis, req.Distance)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	var req HomeRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	axes := make([]machine.Axis, 0, len(req.Axes))
	for _, name := range req.Axes {
		a, err := machine.ParseAxis(name)
		if err != nil {
			s.writeError(w, errors.Wrap(err, errors.ErrBadRequest, "invalid axis"))
			return
		}
		axes = append(axes, a)
	}
	if err := s.panel.Home(r.Context(), axes...); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, okBody)
}

func (s *Server) handleTemperature(w http.ResponseWriter, r *http.Request) {
	var req TemperatureRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	var err error
	if mux.Vars(r)["heater"] == "bed" {
		err = s.panel.SetBedTemp(r.Context(), req.Target)
	} else {
		err = s.panel.SetExtruderTemp(r.Context(), req.Target)
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, okBody)
}

func (s *Server) handleFan(w http.ResponseWriter, r *http.Request) {
	var req FanRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.panel.SetFan(r.Context(), req.On, req.Value); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "output": panel.FanOutputLabel(req.Value)})
}

func (s *Server) handlePower(w http.ResponseWriter, r *http.Request) {
	var req PowerRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.panel.SetPower(r.Context(), req.On); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, okBody)
}

func (s *Server) handleMotorsOff(w http.ResponseWriter, r *http.Request) {
	if err := s.panel.StopMotors(r.Context()); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, okBody)
}

func (s *Server) handleSpeed(w http.ResponseWriter, r *http.Request) {
	var req SpeedRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.panel.SetSpeedFactorText(r.Context(), req.Percent); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, okBody)
}

func (s *Server) handleExtrude(w http.ResponseWriter, r *http.Request) {
	s.extrude(w, r, s.panel.Extrude)
}

func (s *Server) handleRetract(w http.ResponseWriter, r *http.Request) {
	s.extrude(w, r, s.panel.Retract)
}

func (s *Server) extrude(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, amount, speed string) error) {
	var req ExtrudeRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if err := fn(r.Context(), req.Amount, req.Speed); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, okBody)
}

func (s *Server) handleDebug(w http.ResponseWriter, r *http.Request) {
	var req panel.DebugFlags
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.panel.SetDebug(r.Context(), req); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "mask": req.Mask()})
}
