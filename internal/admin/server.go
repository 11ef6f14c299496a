package admin

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"flightops-sim/internal/flights"
	"flightops-sim/internal/logging"
	"flightops-sim/internal/sim"
	"flightops-sim/internal/simclock"
	"flightops-sim/internal/telemetry"
)

// Server is the HTTP control surface of a running simulator.
type Server struct {
	Sim     *sim.Simulator
	metrics *Metrics
	router  chi.Router
	now     func() time.Time
}

// NewServer builds the router. m may be nil to leave out /metrics.
func NewServer(s *sim.Simulator, m *Metrics) *Server {
	srv := &Server{Sim: s, metrics: m, now: time.Now}
	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/clock", srv.handleClock)
	r.Post("/clock/start", srv.handleStart)
	r.Post("/clock/pause", srv.handlePause)
	r.Post("/clock/resume", srv.handleResume)
	r.Post("/clock/stop", srv.handleStop)
	r.Post("/clock/speed", srv.handleSpeed)
	r.Post("/clock/time", srv.handleSetTime)
	r.Post("/clock/advance", srv.handleAdvance)
	r.Post("/clock/retrigger", srv.handleRetrigger)
	r.Post("/orders", srv.handleOrder)
	r.Get("/flights", srv.handleFlights)
	r.Get("/flights/{code}/route", srv.handleRoute)
	r.Get("/roamers", srv.handleRoamers)
	r.Get("/triggers", srv.handleTriggers)
	if m != nil {
		r.Method(http.MethodGet, "/metrics", m.Handler())
	}

	srv.router = r
	return srv
}

// Handler returns the router.
func (s *Server) Handler() http.Handler { return s.router }

// Start serves on addr until ctx is done.
func (s *Server) Start(ctx context.Context, addr string) error {
	hs := &http.Server{Addr: addr, Handler: s.router, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		_ = hs.Shutdown(shutdownCtx)
	}()
	logging.FromContext(ctx).Info("admin API listening", "addr", addr)
	if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type clockView struct {
	State        string     `json:"state"`
	SimulatedNow *time.Time `json:"simulated_now"`
	Speed        float64    `json:"speed"`
	LastTrigger  *time.Time `json:"last_trigger"`
	NextTrigger  *time.Time `json:"next_trigger"`
	UntilTrigger *float64   `json:"until_trigger_s"`
}

func optTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func (s *Server) clockView() clockView {
	c := s.Sim.Clock()
	snap := c.Snapshot()
	v := clockView{
		State:        snap.State.String(),
		SimulatedNow: optTime(snap.Now),
		Speed:        snap.Speed,
		LastTrigger:  optTime(snap.LastTrigger),
		NextTrigger:  optTime(snap.NextTrigger),
	}
	if d, ok := c.UntilTrigger(); ok {
		secs := d.Seconds()
		v.UntilTrigger = &secs
	}
	return v
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeClockError maps clock errors to status codes.
func writeClockError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, simclock.ErrStopped), errors.Is(err, simclock.ErrAlreadyStarted):
		writeJSONError(w, http.StatusConflict, err.Error())
	case errors.Is(err, simclock.ErrInvalidSpeed),
		errors.Is(err, simclock.ErrNegativeElapsed),
		errors.Is(err, simclock.ErrZeroTime):
		writeJSONError(w, http.StatusBadRequest, err.Error())
	default:
		writeJSONError(w, http.StatusInternalServerError, err.Error())
	}
}

// decode reads an optional JSON body. An empty body leaves v untouched.
func decode(r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	return json.NewDecoder(r.Body).Decode(v)
}

func (s *Server) handleClock(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.clockView())
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Start time.Time `json:"start"`
		Speed float64   `json:"speed"`
	}
	if err := decode(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "bad request")
		return
	}
	if req.Start.IsZero() {
		req.Start = s.now().UTC()
	}
	if req.Speed == 0 {
		req.Speed = 1
	}
	if err := s.Sim.Start(req.Start, req.Speed); err != nil {
		writeClockError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.clockView())
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	if err := s.Sim.Clock().Pause(); err != nil {
		writeClockError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.clockView())
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	if err := s.Sim.Clock().Resume(); err != nil {
		writeClockError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.clockView())
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	s.Sim.Clock().Stop()
	writeJSON(w, http.StatusOK, s.clockView())
}

func (s *Server) handleSpeed(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Speed float64 `json:"speed"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "bad request")
		return
	}
	if err := s.Sim.Clock().SetSpeed(req.Speed); err != nil {
		writeClockError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.clockView())
}

func (s *Server) handleSetTime(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Time time.Time `json:"time"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Time.IsZero() {
		writeJSONError(w, http.StatusBadRequest, "time must be an RFC3339 timestamp")
		return
	}
	if err := s.Sim.Clock().SetTime(req.Time); err != nil {
		writeClockError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.clockView())
}

func (s *Server) handleAdvance(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Duration string `json:"duration"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "bad request")
		return
	}
	d, err := time.ParseDuration(req.Duration)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "duration: "+err.Error())
		return
	}
	if err := s.Sim.Clock().AdvanceTime(d); err != nil {
		writeClockError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.clockView())
}

func (s *Server) handleRetrigger(w http.ResponseWriter, r *http.Request) {
	row, err := s.Sim.Trigger(r.Context(), telemetry.TriggerManual)
	switch {
	case errors.Is(err, simclock.ErrStopped):
		writeClockError(w, err)
	case err != nil:
		// The window rolled; only the planner call failed.
		writeJSON(w, http.StatusBadGateway, row)
	default:
		writeJSON(w, http.StatusOK, row)
	}
}

func (s *Server) handleOrder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OrderID   string    `json:"order_id"`
		OrderTime time.Time `json:"order_time"`
	}
	if err := decode(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "bad request")
		return
	}
	rc, err := s.Sim.OrderArrived(req.OrderID, req.OrderTime)
	if err != nil {
		writeClockError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, rc)
}

func (s *Server) handleFlights(w http.ResponseWriter, r *http.Request) {
	positions := s.Sim.FlightPositions()
	if r.URL.Query().Get("phase") != "" {
		phase := flights.Phase(r.URL.Query().Get("phase"))
		filtered := positions[:0]
		for _, p := range positions {
			if p.Phase == phase {
				filtered = append(filtered, p)
			}
		}
		positions = filtered
	}
	writeJSON(w, http.StatusOK, positions)
}

func (s *Server) handleRoute(w http.ResponseWriter, r *http.Request) {
	segments := 0
	if v := r.URL.Query().Get("segments"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeJSONError(w, http.StatusBadRequest, "segments must be a positive integer")
			return
		}
		segments = n
	}
	pts, err := s.Sim.FlightRoute(chi.URLParam(r, "code"), segments)
	if errors.Is(err, flights.ErrUnknownFlight) {
		writeJSONError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, pts)
}

func (s *Server) handleRoamers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Sim.Roamers())
}

func (s *Server) handleTriggers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Sim.RecentTriggers())
}
