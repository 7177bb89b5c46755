package web

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/trousev/mealcontrol/internal/detection"
	"github.com/trousev/mealcontrol/internal/photostore"
	"github.com/trousev/mealcontrol/internal/service"
	"github.com/trousev/mealcontrol/internal/store"
)

type Server struct {
	session  *detection.Session
	meals    *service.MealService
	settings *store.SettingsStore
	photos   photostore.PhotoStore
	mux      *http.ServeMux
	logger   *slog.Logger

	mu       sync.Mutex
	photoKey string // storage key of the photo backing the active detection session
}

func NewServer(session *detection.Session, meals *service.MealService, settings *store.SettingsStore, photos photostore.PhotoStore, logger *slog.Logger) *Server {
	s := &Server{
		session:  session,
		meals:    meals,
		settings: settings,
		photos:   photos,
		mux:      http.NewServeMux(),
		logger:   logger,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("POST /detection/photo", s.handleStartDetection)
	s.mux.HandleFunc("GET /detection", s.handleDetectionState)
	s.mux.HandleFunc("POST /detection/message", s.handleFollowUp)
	s.mux.HandleFunc("POST /detection/retake", s.handleRetake)
	s.mux.HandleFunc("POST /detection/confirm", s.handleConfirm)

	s.mux.HandleFunc("GET /meals", s.handleListMeals)
	s.mux.HandleFunc("GET /meals/{id}", s.handleGetMeal)
	s.mux.HandleFunc("DELETE /meals/{id}", s.handleDeleteMeal)
	s.mux.HandleFunc("GET /summary/today", s.handleTodaySummary)

	s.mux.HandleFunc("GET /settings", s.handleGetSettings)
	s.mux.HandleFunc("PUT /settings", s.handlePutSettings)

	s.mux.HandleFunc("GET /photos/{key}", s.handleGetPhoto)
}

// securityHeaders adds defensive HTTP response headers to every response.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// statusRecorder wraps http.ResponseWriter to capture the written status code.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func requestLogger(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestLogger(s.logger, securityHeaders(s.mux)).ServeHTTP(w, r)
}

func (s *Server) ListenAndServe(addr string) error {
	s.logger.Info("starting server", "addr", addr)
	srv := &http.Server{
		Addr:         addr,
		Handler:      s,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 180 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return srv.ListenAndServe()
}

func (s *Server) currentPhotoKey() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.photoKey
}

func (s *Server) setPhotoKey(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.photoKey = key
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, errorResponse{Error: msg})
}

func readJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
