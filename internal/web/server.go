package web

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"pulse/internal/db"
	"pulse/internal/models"
	"pulse/internal/notifier"
)

type Server struct {
	repo     *db.Repository
	telegram *notifier.Telegram
	window   time.Duration
	log      *slog.Logger
	now      func() time.Time
}

func NewServer(repo *db.Repository, telegram *notifier.Telegram, window time.Duration, logger *slog.Logger) *Server {
	if window <= 0 {
		window = 24 * time.Hour
	}
	return &Server{repo: repo, telegram: telegram, window: window, log: logger, now: time.Now}
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/data", s.handleData)
	mux.HandleFunc("/api/latest", s.handleLatest)
	mux.HandleFunc("/api/settings", s.handleSettings)
	mux.HandleFunc("/api/alerts/test-telegram", s.handleTestTelegram)
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/readyz", s.handleReadyz)
	mux.Handle("/metrics", promhttp.Handler())
	return accessLog(mux, s.log)
}

// handleData serves the retained series as parallel arrays, ascending by
// timestamp. Samples without a temperature reading come through as null.
func (s *Server) handleData(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	now := s.now().UTC()
	samples, err := s.repo.SamplesInRange(r.Context(), now.Add(-s.window), now)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	settings, err := s.repo.LoadSettings(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	timestamps := make([]string, 0, len(samples))
	cpuUsage := make([]float64, 0, len(samples))
	ram := make([]float64, 0, len(samples))
	diskUsage := make([]float64, 0, len(samples))
	netSent := make([]float64, 0, len(samples))
	netRecv := make([]float64, 0, len(samples))
	temperature := make([]*float64, 0, len(samples))
	for _, m := range samples {
		timestamps = append(timestamps, m.TS.Format(time.RFC3339))
		cpuUsage = append(cpuUsage, m.CPUPct)
		ram = append(ram, m.RAMPct)
		diskUsage = append(diskUsage, m.DiskPct)
		netSent = append(netSent, m.NetSentMB)
		netRecv = append(netRecv, m.NetRecvMB)
		temperature = append(temperature, m.CPUTempC)
	}
	writeJSON(w, map[string]any{
		"timestamps":             timestamps,
		"cpu_usage":              cpuUsage,
		"ram":                    ram,
		"disk":                   diskUsage,
		"net_sent":               netSent,
		"net_recv":               netRecv,
		"temperature":            temperature,
		"temperature_limit":      settings.CPUTempLimit,
		"alert_cooldown_seconds": int64(settings.AlertCooldown / time.Second),
	})
}

func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	m, err := s.repo.LatestSample(r.Context())
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, "no samples yet")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, map[string]any{
		"timestamp":   m.TS.Format(time.RFC3339),
		"cpu_usage":   m.CPUPct,
		"ram":         m.RAMPct,
		"disk":        m.DiskPct,
		"net_sent":    m.NetSentMB,
		"net_recv":    m.NetRecvMB,
		"temperature": m.CPUTempC,
	})
}

type settingsPayload struct {
	TemperatureLimit     float64 `json:"temperature_limit"`
	AlertCooldownSeconds int64   `json:"alert_cooldown_seconds"`
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		settings, err := s.repo.LoadSettings(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, settingsPayload{
			TemperatureLimit:     settings.CPUTempLimit,
			AlertCooldownSeconds: int64(settings.AlertCooldown / time.Second),
		})
	case http.MethodPost:
		var p settingsPayload
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json: "+err.Error())
			return
		}
		if p.TemperatureLimit <= 0 {
			writeError(w, http.StatusBadRequest, "temperature_limit must be positive")
			return
		}
		if p.AlertCooldownSeconds < 0 {
			writeError(w, http.StatusBadRequest, "alert_cooldown_seconds must not be negative")
			return
		}
		err := s.repo.UpdateSettings(r.Context(), models.Settings{
			CPUTempLimit:  p.TemperatureLimit,
			AlertCooldown: time.Duration(p.AlertCooldownSeconds) * time.Second,
		})
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, map[string]string{"status": "ok"})
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleTestTelegram(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var p struct {
		ChatID string `json:"chat_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json: "+err.Error())
		return
	}
	if p.ChatID == "" {
		writeError(w, http.StatusBadRequest, "chat_id required")
		return
	}
	msg := "Pulse test alert: Telegram integration is working"
	if err := s.telegram.Send(r.Context(), p.ChatID, msg); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, map[string]string{"status": "ok"})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if err := s.repo.DB().PingContext(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "db not ready")
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
