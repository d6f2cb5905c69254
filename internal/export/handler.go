package export

import (
	"context"
	"errors"
	"fmt"
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
	repo     sessionsRepo
	renderer *Renderer
	metrics  *metrics.Manager
}

func NewHandler(repo sessionsRepo, renderer *Renderer, metrics *metrics.Manager) *Handler {
	return &Handler{
		repo:     repo,
		renderer: renderer,
		metrics:  metrics,
	}
}

func (handler *Handler) SetupRoutes(router *mux.Router) {
	router.HandleFunc("/api/export/csv", handler.HandleCSV).Methods("GET", "OPTIONS").Name("export-csv")
	router.HandleFunc("/api/export/excel", handler.HandleXLSX).Methods("GET", "OPTIONS").Name("export-excel")
	router.HandleFunc("/api/export/pdf", handler.HandlePDF).Methods("GET", "OPTIONS").Name("export-pdf")
}

func (handler *Handler) HandleCSV(w http.ResponseWriter, r *http.Request) {
	handler.handleExport(w, r, "csv", pkg.ContentType.CSV, handler.renderer.ToCSV)
}

func (handler *Handler) HandleXLSX(w http.ResponseWriter, r *http.Request) {
	handler.handleExport(w, r, "xlsx", pkg.ContentType.XLSX, handler.renderer.ToXLSX)
}

func (handler *Handler) HandlePDF(w http.ResponseWriter, r *http.Request) {
	handler.handleExport(w, r, "pdf", pkg.ContentType.PDF, handler.renderer.ToPDF)
}

func (handler *Handler) handleExport(
	w http.ResponseWriter,
	r *http.Request,
	format, contentType string,
	render func([]training.Session) ([]byte, error),
) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.export."+format)
	defer span.End()

	sessions, err := handler.repo.List(ctx)
	if err != nil {
		log.Errorf("export %s, list sessions: %s", format, err)
		http.Error(w, "failed to get sessions", http.StatusInternalServerError)
		return
	}

	document, err := render(sessions)
	if err != nil {
		if errors.Is(err, ErrNoSessions) {
			http.Error(w, "no sessions to export", http.StatusBadRequest)
			return
		}
		log.Errorf("export %s failed: %s", format, err)
		http.Error(w, "export failed", http.StatusInternalServerError)
		return
	}

	handler.metrics.CounterExports.WithLabelValues(format).Inc()

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", handler.renderer.Filename(format)))
	pkg.WriteResponseBytesOK(w, contentType, document)
}
