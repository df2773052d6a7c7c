// Package api exposes the panel over HTTP and pushes status changes to
// websocket clients.
package api

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"printpanel-go/pkg/errors"
	"printpanel-go/pkg/log"
	"printpanel-go/pkg/metrics"
	"printpanel-go/pkg/panel"
)

// Config holds server configuration.
type Config struct {
	// Addr to listen on, e.g. ":7130".
	Addr string

	// StatusInterval is how often websocket clients are checked for a
	// changed status caption.
	StatusInterval time.Duration

	Panel   *panel.Panel
	Metrics *metrics.Registry
	Logger  *log.Logger
}

// Server serves the REST routes and the websocket.
type Server struct {
	panel    *panel.Panel
	registry *metrics.Registry
	logger   *log.Logger
	addr     string
	interval time.Duration

	router     *mux.Router
	httpServer *http.Server

	wsUpgrader websocket.Upgrader
	clientMu   sync.RWMutex
	clients    map[string]*wsClient

	lastMu      sync.Mutex
	lastCaption string
	startTime   time.Time
}

// New creates a server and registers its routes.
func New(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = log.GetLogger("api")
	}
	if cfg.StatusInterval <= 0 {
		cfg.StatusInterval = 250 * time.Millisecond
	}
	s := &Server{
		panel:     cfg.Panel,
		registry:  cfg.Metrics,
		logger:    cfg.Logger,
		addr:      cfg.Addr,
		interval:  cfg.StatusInterval,
		clients:   make(map[string]*wsClient),
		startTime: time.Now(),
	}
	s.wsUpgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(corsMiddleware)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	api.HandleFunc("/gcode", s.handleGCode).Methods(http.MethodPost)
	api.HandleFunc("/history", s.handleHistory).Methods(http.MethodGet)
	api.HandleFunc("/history/{direction:previous|next}", s.handleRecall).Methods(http.MethodPost)
	api.HandleFunc("/jog", s.handleJog).Methods(http.MethodPost)
	api.HandleFunc("/home", s.handleHome).Methods(http.MethodPost)
	api.HandleFunc("/temperature/{heater:extruder|bed}", s.handleTemperature).Methods(http.MethodPost)
	api.HandleFunc("/fan", s.handleFan).Methods(http.MethodPost)
	api.HandleFunc("/power", s.handlePower).Methods(http.MethodPost)
	api.HandleFunc("/motors/off", s.handleMotorsOff).Methods(http.MethodPost)
	api.HandleFunc("/speed", s.handleSpeed).Methods(http.MethodPost)
	api.HandleFunc("/extrude", s.handleExtrude).Methods(http.MethodPost)
	api.HandleFunc("/retract", s.handleRetract).Methods(http.MethodPost)
	api.HandleFunc("/debug", s.handleDebug).Methods(http.MethodPost)

	if s.registry != nil {
		r.Handle("/metrics", metrics.Handler(s.registry))
	}
	r.HandleFunc("/websocket", s.handleWebSocket)
	return r
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is done, then shuts down and disconnects all
// websocket clients.
func (s *Server) Run(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", s.addr).Info("api server listening")
		errCh <- s.httpServer.ListenAndServe()
	}()
	go s.statusBroadcastLoop(ctx)

	select {
	case err := <-errCh:
		s.closeClients()
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.closeClients()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.logger.Info("api server stopped")
	return nil
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// JSON response helpers

func writeJSON(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(data)
}

type errorBody struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// statusFor maps an error code to the HTTP status returned for it.
func statusFor(code errors.ErrorCode) int {
	switch code {
	case errors.ErrInvalidNumericInput, errors.ErrEmptyCommand, errors.ErrBadRequest, errors.ErrInvalidAxis:
		return http.StatusBadRequest
	case errors.ErrTransportUnavailable:
		return http.StatusConflict
	case errors.ErrSequenceInterrupted:
		return http.StatusBadGateway
	case errors.ErrControlDisabled:
		return http.StatusForbidden
	case errors.ErrUnsupportedFirmware:
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	code := errors.CodeOf(err)
	body := errorBody{Code: string(code), Message: err.Error()}

	var fe errors.FieldErrors
	var herr *errors.HostError
	switch {
	case stderrors.As(err, &fe):
		body.Fields = fe.Messages()
		code = errors.ErrInvalidNumericInput
		body.Code = string(code)
	case stderrors.As(err, &herr) && herr.Field != "":
		body.Fields = map[string]string{herr.Field: herr.Message}
	}

	status := statusFor(code)
	if status >= http.StatusInternalServerError {
		s.logger.WithError(err).Error("request failed")
	}
	writeJSON(w, status, map[string]any{"error": body})
}

func decodeBody(r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.Wrap(err, errors.ErrBadRequest, "invalid request body")
	}
	return nil
}
