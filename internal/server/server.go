// Package server exposes the HTTP API and the live event stream used by
// the map dashboard and the terminal clients.
package server

import (
	"encoding/json"
	"net"
	"net/http"
	"os/exec"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/ki9ng/PawPrint/internal/dwconf"
	"github.com/ki9ng/PawPrint/internal/engine"
	"github.com/ki9ng/PawPrint/pkg/config"
)

// Server wires the engine to HTTP handlers.
type Server struct {
	cfg    *config.Config
	eng    *engine.Engine
	logger *log.Logger

	// restartDirewolf is swappable for tests.
	restartDirewolf func() error
}

func New(cfg *config.Config, eng *engine.Engine, logger *log.Logger) *Server {
	return &Server{
		cfg:    cfg,
		eng:    eng,
		logger: logger,
		restartDirewolf: func() error {
			return exec.Command("systemctl", "restart", "direwolf").Run()
		},
	}
}

// Router builds the chi handler tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/stations", s.handleStations)
		r.Get("/messages", s.handleMessages)
		r.Get("/tracks", s.handleTracks)
		r.Post("/send_message", s.handleSendMessage)
		r.Post("/cull_all", s.handleCullAll)
		r.Get("/config", s.handleGetConfig)
		r.Post("/config", s.handlePostConfig)
		r.Post("/beacon_now", s.handleBeaconNow)
		r.Post("/restart_direwolf", s.handleRestartDirewolf)
		r.Get("/stream", s.handleStream)
	})

	return r
}

// Run serves until ctx-style shutdown via the returned http.Server.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:        net.JoinHostPort(s.cfg.Server.Host, s.cfg.Server.Port),
		Handler:     s.Router(),
		ReadTimeout: 10 * time.Second,
		// No WriteTimeout: /api/stream connections are long-lived.
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.eng.State().Status())
}

func (s *Server) handleStations(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.eng.State().Stations())
}

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.eng.State().Messages())
}

// handleTracks serves track history. max_age is seconds; it defaults to
// the station retention window.
func (s *Server) handleTracks(w http.ResponseWriter, r *http.Request) {
	maxAge := time.Duration(s.eng.State().MaxAgeHours()) * time.Hour
	if q := r.URL.Query().Get("max_age"); q != "" {
		secs, err := strconv.ParseFloat(q, 64)
		if err != nil || secs <= 0 {
			writeError(w, http.StatusBadRequest, "max_age must be a positive number of seconds")
			return
		}
		maxAge = time.Duration(secs * float64(time.Second))
	}
	writeJSON(w, http.StatusOK, s.eng.State().Tracks(maxAge, time.Now()))
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		To   string `json:"to_call"`
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	m, err := s.eng.SendMessage(req.To, req.Text)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleCullAll(w http.ResponseWriter, r *http.Request) {
	removed := s.eng.ClearStations()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"removed": removed,
		"count":   len(removed),
	})
}

// configPayload is the operator-editable settings surface: the Direwolf
// beacon identity plus the runtime knobs.
type configPayload struct {
	MyCall         string                 `json:"mycall,omitempty"`
	Symbol         string                 `json:"symbol,omitempty"`
	Comment        string                 `json:"comment,omitempty"`
	SmartBeaconing *dwconf.SmartBeaconing `json:"smart_beaconing,omitempty"`
	FilterRadiusKM *float64               `json:"filter_radius_km,omitempty"`
	MaxAgeHours    *int                   `json:"station_max_age_hours,omitempty"`
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	payload := configPayload{}
	if dw, err := dwconf.Read(s.cfg.Direwolf.ConfPath); err == nil {
		payload.MyCall = dw.MyCall
		payload.Symbol = dw.Symbol
		payload.Comment = dw.Comment
		payload.SmartBeaconing = dw.SmartBeaconing
	} else {
		s.logger.Warn("Direwolf config unreadable", "path", s.cfg.Direwolf.ConfPath, "err", err)
	}
	radius := s.eng.State().FilterRadius()
	hours := s.eng.State().MaxAgeHours()
	payload.FilterRadiusKM = &radius
	payload.MaxAgeHours = &hours
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handlePostConfig(w http.ResponseWriter, r *http.Request) {
	var req configPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	resp := map[string]interface{}{}

	if req.MyCall != "" || req.Symbol != "" || req.Comment != "" || req.SmartBeaconing != nil {
		changed, err := dwconf.Write(s.cfg.Direwolf.ConfPath, &dwconf.Settings{
			MyCall:         req.MyCall,
			Symbol:         req.Symbol,
			Comment:        req.Comment,
			SmartBeaconing: req.SmartBeaconing,
		})
		if err != nil {
			writeError(w, http.StatusInternalServerError, "direwolf config update failed: "+err.Error())
			return
		}
		resp["direwolf_changed"] = changed
		if changed {
			if err := s.restartDirewolf(); err != nil {
				s.logger.Warn("Direwolf restart failed", "err", err)
				resp["restart_error"] = err.Error()
			}
		}
	}

	if req.FilterRadiusKM != nil {
		resp["filter_radius_km"] = s.eng.SetFilterRadius(*req.FilterRadiusKM)
	}
	if req.MaxAgeHours != nil {
		resp["station_max_age_hours"] = s.eng.SetMaxAgeHours(*req.MaxAgeHours)
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleBeaconNow(w http.ResponseWriter, r *http.Request) {
	if err := s.eng.BeaconNow(""); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "sent"})
}

func (s *Server) handleRestartDirewolf(w http.ResponseWriter, r *http.Request) {
	if err := s.restartDirewolf(); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "restarting"})
}
