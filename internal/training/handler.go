package training

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/aluque/mma-planner/internal/telemetry/metrics"
	"github.com/aluque/mma-planner/internal/telemetry/tracing"
	"github.com/aluque/mma-planner/pkg"
)

type sessionsRepo interface {
	List(ctx context.Context) ([]Session, error)
	Get(ctx context.Context, id int) (*Session, error)
	Add(ctx context.Context, session *Session) (*Session, error)
	Update(ctx context.Context, session *Session) (*Session, error)
	Delete(ctx context.Context, id int) error
}

type SessionsListResponse struct {
	Data  []Session `json:"data"`
	Total int       `json:"total"`
}

type DeleteSessionResponse struct {
	DeletedID int `json:"deleted"`
}

type errorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

type Handler struct {
	repo    sessionsRepo
	metrics *metrics.Manager
}

func NewHandler(repo sessionsRepo, metrics *metrics.Manager) *Handler {
	return &Handler{
		repo:    repo,
		metrics: metrics,
	}
}

func (handler *Handler) SetupRoutes(router *mux.Router) {
	router.HandleFunc("/api/health", handler.HandleHealth).Methods("GET").Name("health")
	router.HandleFunc("/api/sessions", handler.HandleAdd).Methods("POST", "OPTIONS").Name("new-session")
	router.HandleFunc("/api/sessions", handler.HandleList).Methods("GET", "OPTIONS").Name("list-sessions")
	router.HandleFunc("/api/sessions/search", handler.HandleSearch).Methods("GET", "OPTIONS").Name("search-sessions")
	router.HandleFunc("/api/sessions/{id}", handler.HandleGet).Methods("GET", "OPTIONS").Name("get-session")
	router.HandleFunc("/api/sessions/{id}", handler.HandleUpdate).Methods("PUT", "OPTIONS").Name("update-session")
	router.HandleFunc("/api/sessions/{id}", handler.HandleDelete).Methods("DELETE", "OPTIONS").Name("delete-session")
}

func (handler *Handler) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	pkg.WriteJSONResponseOK(w, fmt.Sprintf(
		`{"status":"ok","timestamp":"%s"}`,
		time.Now().Format(time.RFC3339),
	))
}

func (handler *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.training.add")
	defer span.End()

	if r.Header.Get("Content-Type") != "application/json" {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return
	}

	var input SessionInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		log.Errorf("new session, unmarshal json params: %s", err)
		http.Error(w, "add session failed", http.StatusBadRequest)
		return
	}

	session, err := ValidateSessionInput(input)
	if err != nil {
		writeValidationError(w, err)
		return
	}

	addedSession, err := handler.repo.Add(ctx, session)
	if err != nil {
		log.Errorf("failed to add new session [%s] [%s]: %s", session.Tipo, session.Fecha, err)
		http.Error(w, "error, failed to add new session", http.StatusInternalServerError)
		return
	}

	handler.metrics.CounterSessionsAdded.Inc()
	log.Debugf("new session added: [%s] [%s]: %d", addedSession.Tipo, addedSession.Fecha, addedSession.ID)

	sessionJson, err := json.Marshal(addedSession)
	if err != nil {
		log.Errorf("failed to marshal new session: %s", err)
		http.Error(w, "error, failed to add new session", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, sessionJson, http.StatusCreated)
}

func (handler *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.training.list")
	defer span.End()

	sessions, err := handler.repo.List(ctx)
	if err != nil {
		log.Errorf("list sessions error: %s", err)
		http.Error(w, "failed to get sessions", http.StatusInternalServerError)
		return
	}

	writeSessionsList(w, sessions)
}

func (handler *Handler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.training.search")
	defer span.End()

	params := SearchParams{
		Tipo:       r.URL.Query().Get("tipo"),
		FechaDesde: r.URL.Query().Get("fecha_desde"),
		FechaHasta: r.URL.Query().Get("fecha_hasta"),
	}
	if tiempoMinStr := r.URL.Query().Get("tiempo_min"); tiempoMinStr != "" {
		tiempoMin, err := strconv.Atoi(tiempoMinStr)
		if err != nil {
			http.Error(w, "error, tiempo_min NaN", http.StatusBadRequest)
			return
		}
		params.TiempoMin = tiempoMin
	}

	sessions, err := handler.repo.List(ctx)
	if err != nil {
		log.Errorf("search sessions error: %s", err)
		http.Error(w, "failed to get sessions", http.StatusInternalServerError)
		return
	}

	writeSessionsList(w, FilterSessions(sessions, params))
}

func (handler *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.training.get")
	defer span.End()

	id, ok := idFromRequest(w, r)
	if !ok {
		return
	}

	session, err := handler.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}
		log.Errorf("failed to get session %d: %s", id, err)
		http.Error(w, "failed to get session", http.StatusInternalServerError)
		return
	}

	sessionJson, err := json.Marshal(session)
	if err != nil {
		log.Errorf("failed to marshal session: %s", err)
		http.Error(w, "failed to marshal session", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, sessionJson)
}

func (handler *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.training.update")
	defer span.End()

	id, ok := idFromRequest(w, r)
	if !ok {
		return
	}

	var input SessionInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		log.Errorf("update session, unmarshal json params: %s", err)
		http.Error(w, "update session failed", http.StatusBadRequest)
		return
	}

	session, err := ValidateSessionInput(input)
	if err != nil {
		writeValidationError(w, err)
		return
	}
	session.ID = id

	updatedSession, err := handler.repo.Update(ctx, session)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}
		log.Errorf("failed to update session %d: %s", id, err)
		http.Error(w, "error, failed to update session", http.StatusInternalServerError)
		return
	}

	sessionJson, err := json.Marshal(updatedSession)
	if err != nil {
		log.Errorf("failed to marshal updated session: %s", err)
		http.Error(w, "error, failed to update session", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, sessionJson)
}

func (handler *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.training.delete")
	defer span.End()

	id, ok := idFromRequest(w, r)
	if !ok {
		return
	}

	if err := handler.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}
		log.Errorf("failed to delete session %d: %s", id, err)
		http.Error(w, "session not deleted", http.StatusInternalServerError)
		return
	}

	handler.metrics.CounterSessionsDeleted.Inc()

	deleteRespJson, err := json.Marshal(DeleteSessionResponse{DeletedID: id})
	if err != nil {
		log.Errorf("failed to marshal delete response: %s", err)
		http.Error(w, "failed to marshal delete response", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, deleteRespJson)
}

func idFromRequest(w http.ResponseWriter, r *http.Request) (int, bool) {
	idStr := mux.Vars(r)["id"]
	if idStr == "" {
		http.Error(w, "error, id empty", http.StatusBadRequest)
		return 0, false
	}
	id, err := strconv.Atoi(idStr)
	if err != nil {
		http.Error(w, "error, id NaN", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func writeSessionsList(w http.ResponseWriter, sessions []Session) {
	if sessions == nil {
		sessions = []Session{}
	}
	respJson, err := json.Marshal(SessionsListResponse{
		Data:  sessions,
		Total: len(sessions),
	})
	if err != nil {
		log.Errorf("marshal sessions error: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, respJson)
}

func writeValidationError(w http.ResponseWriter, err error) {
	var vErr *ValidationError
	resp := errorResponse{Status: "error", Message: err.Error()}
	if errors.As(err, &vErr) {
		resp.Field = vErr.Field
	}
	respJson, mErr := json.Marshal(resp)
	if mErr != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, respJson, http.StatusBadRequest)
}
