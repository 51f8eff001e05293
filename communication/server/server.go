package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"reversi/communication"
	"reversi/telemetry"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

var errUnknownLogType = errors.New("unknown log type")

// Server receives telemetry posted by communication/client and persists it.
type Server struct {
	store *telemetry.Store
}

// NewServer initializes a receiver writing into an initialized store.
func NewServer(store *telemetry.Store) *Server {
	return &Server{store: store}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	})
	r.Post("/log", s.handleLog)
	r.Get("/individuals", s.handleIndividuals)
	r.Get("/fitness", s.handleFitness)
	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("elapsed", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("request")
	})
}

func (s *Server) handleLog(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	err := s.save(r)
	var status int
	switch {
	case err == nil:
		fmt.Fprint(w, "Received, thanks!")
		return
	case errors.Is(err, errUnknownLogType), errors.As(err, new(*badRequest)):
		status = http.StatusBadRequest
	default:
		status = http.StatusInternalServerError
	}
	log.Warn().Err(err).Str("logtype", r.PostForm.Get(communication.FieldLogType)).Msg("telemetry rejected")
	http.Error(w, err.Error(), status)
}

type badRequest struct {
	err error
}

func (e *badRequest) Error() string { return e.err.Error() }

func (e *badRequest) Unwrap() error { return e.err }

func (s *Server) save(r *http.Request) error {
	form := r.PostForm
	ctx := r.Context()
	logType := form.Get(communication.FieldLogType)
	if logType == communication.LogTypeNew {
		return s.store.Reset(ctx)
	}

	generation, err := communication.Generation(form)
	if err != nil {
		return &badRequest{err}
	}
	switch logType {
	case communication.LogTypeBorn:
		born, err := communication.ParseBirths(form.Get(logType))
		if err != nil {
			return &badRequest{err}
		}
		return s.store.SaveBirths(ctx, generation, born)
	case communication.LogTypeKilled:
		dead, err := communication.ParseDeaths(form.Get(logType))
		if err != nil {
			return &badRequest{err}
		}
		return s.store.SaveDeaths(ctx, generation, dead)
	case communication.LogTypeFitness:
		fitness, err := communication.ParseFitness(form.Get(logType))
		if err != nil {
			return &badRequest{err}
		}
		return s.store.SaveFitness(ctx, generation, fitness)
	default:
		return fmt.Errorf("%w %q", errUnknownLogType, logType)
	}
}

func (s *Server) handleIndividuals(w http.ResponseWriter, r *http.Request) {
	individuals, err := s.store.Individuals(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, individuals)
}

func (s *Server) handleFitness(w http.ResponseWriter, r *http.Request) {
	history, err := s.store.FitnessHistory(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, history)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("failed to encode response")
	}
}
