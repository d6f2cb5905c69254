package advisor

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/aluque/mma-planner/internal/telemetry/metrics"
	"github.com/aluque/mma-planner/internal/telemetry/tracing"
	"github.com/aluque/mma-planner/internal/training"
	"github.com/aluque/mma-planner/pkg"
)

type sessionsRepo interface {
	List(ctx context.Context) ([]training.Session, error)
}

type Handler struct {
	repo    sessionsRepo
	service *Service
	metrics *metrics.Manager
}

func NewHandler(repo sessionsRepo, service *Service, metrics *metrics.Manager) *Handler {
	return &Handler{
		repo:    repo,
		service: service,
		metrics: metrics,
	}
}

func (handler *Handler) SetupRoutes(router *mux.Router) {
	router.HandleFunc("/api/ai-advice", handler.HandleAdvice).Methods("POST", "OPTIONS").Name("ai-advice")
	router.HandleFunc("/api/ai-suggestions", handler.HandleSuggestions).Methods("POST", "OPTIONS").Name("ai-suggestions")
}

type adviceRequest struct {
	Sessions []training.Session `json:"sessions"`
}

// sessionsFromRequest takes the sessions from the request body when the
// caller sent them, otherwise loads the stored ones.
func (handler *Handler) sessionsFromRequest(ctx context.Context, r *http.Request) ([]training.Session, error) {
	var req adviceRequest
	if r.Body != nil {
		if err := json.NewDecoder(r.Body).Decode(&req); err == nil && len(req.Sessions) > 0 {
			return req.Sessions, nil
		}
	}
	return handler.repo.List(ctx)
}

func (handler *Handler) HandleAdvice(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.advisor.advice")
	defer span.End()

	sessions, err := handler.sessionsFromRequest(ctx, r)
	if err != nil {
		log.Errorf("ai advice, get sessions: %s", err)
		http.Error(w, "failed to get sessions", http.StatusInternalServerError)
		return
	}

	advice := handler.service.Advise(ctx, sessions)
	handler.metrics.CounterAdvice.WithLabelValues(advice.Origin).Inc()

	adviceJson, err := json.Marshal(advice)
	if err != nil {
		log.Errorf("marshal advice error: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, adviceJson)
}

func (handler *Handler) HandleSuggestions(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.advisor.suggestions")
	defer span.End()

	sessions, err := handler.sessionsFromRequest(ctx, r)
	if err != nil {
		log.Errorf("ai suggestions, get sessions: %s", err)
		http.Error(w, "failed to get sessions", http.StatusInternalServerError)
		return
	}

	suggestion := handler.service.Suggest(ctx, sessions)
	handler.metrics.CounterAdvice.WithLabelValues(suggestion.Origin).Inc()

	suggestionJson, err := json.Marshal(suggestion)
	if err != nil {
		log.Errorf("marshal suggestion error: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, suggestionJson)
}
