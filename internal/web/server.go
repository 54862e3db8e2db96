// Package web exposes the alerting JSON API and the two server-push streams.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"dockwatch/internal/docker"
	"dockwatch/internal/models"
	"dockwatch/internal/monitor"
	"dockwatch/internal/store"
)

// Runtime is the slice of the workload runtime the HTTP surface consumes.
type Runtime interface {
	Ping(ctx context.Context) error
	InspectContainer(ctx context.Context, id string) (docker.ContainerInspect, error)
	StatsStream(ctx context.Context, id string) (io.ReadCloser, error)
	Logs(ctx context.Context, id string, since float64, tail int, follow bool) (io.ReadCloser, error)
}

type Server struct {
	repo     *store.Repository
	runtime  Runtime
	alerter  *monitor.Alerter
	log      *slog.Logger
	validate *validator.Validate
	now      func() time.Time
}

func NewServer(repo *store.Repository, runtime Runtime, alerter *monitor.Alerter, logger *slog.Logger) *Server {
	return &Server{
		repo:     repo,
		runtime:  runtime,
		alerter:  alerter,
		log:      logger,
		validate: validator.New(),
		now:      time.Now,
	}
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/alerts/config", s.handleAlertConfig)
	mux.HandleFunc("/api/alerts/history", s.handleAlertHistory)
	mux.HandleFunc("/api/alerts/test", s.handleAlertTest)
	mux.HandleFunc("/api/stats/", s.handleStatsStream)
	mux.HandleFunc("/api/logs/", s.handleLogStream)
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/readyz", s.handleReadyz)
	return logMiddleware(mux, s.log)
}

func (s *Server) handleAlertConfig(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		cfg, err := s.repo.AlertConfig(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, cfg)
	case http.MethodPost:
		var cfg models.AlertConfig
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&cfg); err != nil {
			writeError(w, http.StatusBadRequest, "invalid config payload: "+err.Error())
			return
		}
		if err := s.validate.Struct(cfg); err != nil {
			var verrs validator.ValidationErrors
			if errors.As(err, &verrs) {
				writeError(w, http.StatusBadRequest, "invalid config: "+verrs.Error())
				return
			}
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := s.repo.UpdateAlertConfig(r.Context(), cfg); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, map[string]string{"status": "success"})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleAlertHistory(w http.ResponseWriter, r *http.Request) {
	alerts, err := s.repo.RecentAlerts(r.Context(), store.MaxHistory)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, alerts)
}

func (s *Server) handleAlertTest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.alerter.Fire(r.Context(), models.LevelInfo, models.SubjectSystem, "Test notification from DockWatch")
	writeJSON(w, map[string]string{"status": "success"})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if err := s.repo.DB().PingContext(r.Context()); err != nil {
		http.Error(w, "db not ready", http.StatusServiceUnavailable)
		return
	}
	if err := s.runtime.Ping(r.Context()); err != nil {
		http.Error(w, "docker not ready", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// streamTarget pulls the container id out of /api/{stats,logs}/{id}.
func streamTarget(r *http.Request) string {
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) != 3 || parts[2] == "" {
		return ""
	}
	return parts[2]
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
