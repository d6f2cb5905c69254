package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/aluque/mma-planner/internal/telemetry/metrics"
	"github.com/aluque/mma-planner/internal/training"
)

type repoStub struct {
	sessions []training.Session
	err      error
}

func (r *repoStub) List(_ context.Context) ([]training.Session, error) {
	return r.sessions, r.err
}

func testRenderer() *Renderer {
	renderer := NewRenderer(training.NewAnalyzer())
	renderer.NowFunc = func() time.Time {
		return time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC)
	}
	return renderer
}

func testSessions() []training.Session {
	return []training.Session{
		{
			ID: 1, Fecha: "2025-03-14", Tipo: "Grappling", Tiempo: 90,
			Peso: 80, Calorias: 1200, Intensidad: "Alta", Notas: "open mat",
		},
		{
			ID: 2, Fecha: "2025-03-15", Tipo: "Cardio", Tiempo: 30,
			Calorias: 280, Intensidad: "Baja",
		},
	}
}

func TestRenderer_ToCSV(t *testing.T) {
	renderer := testRenderer()

	out, err := renderer.ToCSV(testSessions())
	require.NoError(t, err)

	records, err := csv.NewReader(bytes.NewReader(out)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, csvHeader, records[0])
	assert.Equal(t,
		[]string{"1", "2025-03-14", "Grappling", "90", "80", "1200", "Alta", "open mat"},
		records[1],
	)
	// peso 0 renders as empty
	assert.Equal(t, "", records[2][4])
}

func TestRenderer_ToCSV_Empty(t *testing.T) {
	renderer := testRenderer()
	_, err := renderer.ToCSV(nil)
	assert.ErrorIs(t, err, ErrNoSessions)
}

func TestRenderer_ToXLSX(t *testing.T) {
	renderer := testRenderer()

	out, err := renderer.ToXLSX(testSessions())
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer func() { require.NoError(t, f.Close()) }()

	sheets := f.GetSheetList()
	assert.Contains(t, sheets, "Sesiones")
	assert.Contains(t, sheets, "Resumen")

	rows, err := f.GetRows("Sesiones")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "fecha", rows[0][1])
	assert.Equal(t, "Grappling", rows[1][2])

	summary, err := f.GetRows("Resumen")
	require.NoError(t, err)
	require.NotEmpty(t, summary)
	assert.Equal(t, "Total de sesiones", summary[0][0])
	assert.Equal(t, "2", summary[0][1])
}

func TestRenderer_ToXLSX_Empty(t *testing.T) {
	renderer := testRenderer()
	_, err := renderer.ToXLSX([]training.Session{})
	assert.ErrorIs(t, err, ErrNoSessions)
}

func TestRenderer_ToPDF(t *testing.T) {
	renderer := testRenderer()

	out, err := renderer.ToPDF(testSessions())
	require.NoError(t, err)
	require.NotEmpty(t, out)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestRenderer_ToPDF_Empty(t *testing.T) {
	renderer := testRenderer()
	_, err := renderer.ToPDF(nil)
	assert.ErrorIs(t, err, ErrNoSessions)
}

func TestRenderer_Filename(t *testing.T) {
	renderer := testRenderer()
	assert.Equal(t, "entrenamientos_2025-03-15.csv", renderer.Filename("csv"))
	assert.Equal(t, "entrenamientos_2025-03-15.pdf", renderer.Filename("pdf"))
}

func testExportRouter(repo *repoStub) *mux.Router {
	handler := NewHandler(repo, testRenderer(), metrics.NewTestManager())
	router := mux.NewRouter()
	handler.SetupRoutes(router)
	return router
}

func TestHandler_HandleCSV(t *testing.T) {
	router := testExportRouter(&repoStub{sessions: testSessions()})

	req := httptest.NewRequest("GET", "/api/export/csv", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Equal(t,
		`attachment; filename="entrenamientos_2025-03-15.csv"`,
		rec.Header().Get("Content-Disposition"),
	)
	assert.True(t, strings.HasPrefix(rec.Body.String(), "id,fecha,tipo"))
}

func TestHandler_HandleXLSX(t *testing.T) {
	router := testExportRouter(&repoStub{sessions: testSessions()})

	req := httptest.NewRequest("GET", "/api/export/excel", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		rec.Header().Get("Content-Type"),
	)
}

func TestHandler_HandlePDF(t *testing.T) {
	router := testExportRouter(&repoStub{sessions: testSessions()})

	req := httptest.NewRequest("GET", "/api/export/pdf", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")))
}

func TestHandler_NoSessions(t *testing.T) {
	router := testExportRouter(&repoStub{})

	for _, format := range []string{"csv", "excel", "pdf"} {
		req := httptest.NewRequest("GET", "/api/export/"+format, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code, format)
	}
}

func TestHandler_RepoError(t *testing.T) {
	router := testExportRouter(&repoStub{err: errors.New("boom")})

	req := httptest.NewRequest("GET", "/api/export/csv", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
