package training

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/aluque/mma-planner/internal/telemetry/tracing"
	"github.com/aluque/mma-planner/pkg"
)

type StatsHandler struct {
	repo     sessionsRepo
	analyzer *Analyzer
}

func NewStatsHandler(repo sessionsRepo, analyzer *Analyzer) *StatsHandler {
	return &StatsHandler{
		repo:     repo,
		analyzer: analyzer,
	}
}

func (handler *StatsHandler) SetupRoutes(router *mux.Router) {
	router.HandleFunc("/api/stats/summary", handler.HandleSummary).Methods("GET", "OPTIONS").Name("stats-summary")
	router.HandleFunc("/api/stats/by-type", handler.HandleByType).Methods("GET", "OPTIONS").Name("stats-by-type")
	router.HandleFunc("/api/stats/monthly", handler.HandleMonthly).Methods("GET", "OPTIONS").Name("stats-monthly")
	router.HandleFunc("/api/stats/trends", handler.HandleTrends).Methods("GET", "OPTIONS").Name("stats-trends")
}

func (handler *StatsHandler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.stats.summary")
	defer span.End()

	sessions, err := handler.repo.List(ctx)
	if err != nil {
		log.Errorf("stats summary, list sessions: %s", err)
		http.Error(w, "failed to get stats", http.StatusInternalServerError)
		return
	}

	writeStats(w, handler.analyzer.ComprehensiveStats(sessions))
}

func (handler *StatsHandler) HandleByType(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.stats.byType")
	defer span.End()

	sessions, err := handler.repo.List(ctx)
	if err != nil {
		log.Errorf("stats by type, list sessions: %s", err)
		http.Error(w, "failed to get stats", http.StatusInternalServerError)
		return
	}

	writeStats(w, handler.analyzer.StatsByType(sessions))
}

func (handler *StatsHandler) HandleMonthly(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.stats.monthly")
	defer span.End()

	sessions, err := handler.repo.List(ctx)
	if err != nil {
		log.Errorf("stats monthly, list sessions: %s", err)
		http.Error(w, "failed to get stats", http.StatusInternalServerError)
		return
	}

	writeStats(w, handler.analyzer.MonthlyStats(sessions))
}

func (handler *StatsHandler) HandleTrends(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.stats.trends")
	defer span.End()

	days := 30
	if daysStr := r.URL.Query().Get("days"); daysStr != "" {
		parsedDays, err := strconv.Atoi(daysStr)
		if err != nil || parsedDays <= 0 {
			http.Error(w, "error, days must be a positive number", http.StatusBadRequest)
			return
		}
		days = parsedDays
	}

	sessions, err := handler.repo.List(ctx)
	if err != nil {
		log.Errorf("stats trends, list sessions: %s", err)
		http.Error(w, "failed to get stats", http.StatusInternalServerError)
		return
	}

	writeStats(w, handler.analyzer.PerformanceTrends(sessions, days))
}

func writeStats(w http.ResponseWriter, stats interface{}) {
	statsJson, err := json.Marshal(stats)
	if err != nil {
		log.Errorf("marshal stats error: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, statsJson)
}
