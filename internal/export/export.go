package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/xuri/excelize/v2"

	"github.com/aluque/mma-planner/internal/training"
)

var ErrNoSessions = errors.New("no sessions to export")

var csvHeader = []string{
	"id", "fecha", "tipo", "tiempo_min", "peso_kg",
	"calorias", "intensidad", "notas",
}

// Renderer turns a session list into downloadable documents. The clock is
// injectable so generated timestamps are stable in tests.
type Renderer struct {
	analyzer *training.Analyzer
	NowFunc  func() time.Time
}

func NewRenderer(analyzer *training.Analyzer) *Renderer {
	return &Renderer{
		analyzer: analyzer,
		NowFunc:  time.Now,
	}
}

// Filename builds the attachment name for the given format extension.
func (r *Renderer) Filename(ext string) string {
	return fmt.Sprintf("entrenamientos_%s.%s", r.NowFunc().Format(training.DateLayout), ext)
}

func (r *Renderer) ToCSV(sessions []training.Session) ([]byte, error) {
	if len(sessions) == 0 {
		return nil, ErrNoSessions
	}

	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(csvHeader); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	for _, s := range sessions {
		record := []string{
			strconv.Itoa(s.ID),
			s.Fecha,
			s.Tipo,
			strconv.Itoa(s.Tiempo),
			formatPeso(s.Peso),
			strconv.Itoa(s.Calorias),
			s.Intensidad,
			s.Notas,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("write csv record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *Renderer) ToXLSX(sessions []training.Session) ([]byte, error) {
	if len(sessions) == 0 {
		return nil, ErrNoSessions
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	const dataSheet = "Sesiones"
	const summarySheet = "Resumen"

	index, err := f.NewSheet(dataSheet)
	if err != nil {
		return nil, fmt.Errorf("new data sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("delete default sheet: %w", err)
	}

	for col, title := range csvHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(dataSheet, cell, title); err != nil {
			return nil, err
		}
	}
	for row, s := range sessions {
		values := []interface{}{
			s.ID, s.Fecha, s.Tipo, s.Tiempo, s.Peso,
			s.Calorias, s.Intensidad, s.Notas,
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row+2)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(dataSheet, cell, v); err != nil {
				return nil, err
			}
		}
	}

	if _, err := f.NewSheet(summarySheet); err != nil {
		return nil, fmt.Errorf("new summary sheet: %w", err)
	}
	stats := r.analyzer.ComprehensiveStats(sessions)
	summaryRows := [][]interface{}{
		{"Total de sesiones", stats.TotalSessions},
		{"Tiempo total (min)", stats.TotalTime},
		{"Tiempo total (h)", stats.TotalTimeHours},
		{"Calorías totales", stats.TotalCalories},
		{"Duración media (min)", stats.AvgSessionTime},
		{"Tipo más frecuente", stats.MostFrequentType},
		{"Racha actual (días)", stats.CurrentStreak},
		{"Racha más larga (días)", stats.LongestStreak},
	}
	for row, pair := range summaryRows {
		labelCell, err := excelize.CoordinatesToCellName(1, row+1)
		if err != nil {
			return nil, err
		}
		valueCell, err := excelize.CoordinatesToCellName(2, row+1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(summarySheet, labelCell, pair[0]); err != nil {
			return nil, err
		}
		if err := f.SetCellValue(summarySheet, valueCell, pair[1]); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *Renderer) ToPDF(sessions []training.Session) ([]byte, error) {
	if len(sessions) == 0 {
		return nil, ErrNoSessions
	}

	stats := r.analyzer.ComprehensiveStats(sessions)

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Registro de Entrenamientos", false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, "Registro de Entrenamientos MMA", "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf("Generado: %s", r.NowFunc().Format(training.DateLayout)), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 8, "Resumen", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	summaryLines := []string{
		fmt.Sprintf("Total de sesiones: %d", stats.TotalSessions),
		fmt.Sprintf("Tiempo total: %d min (%.1f h)", stats.TotalTime, stats.TotalTimeHours),
		fmt.Sprintf("Calorias totales: %d", stats.TotalCalories),
		fmt.Sprintf("Duracion media: %.1f min", stats.AvgSessionTime),
		fmt.Sprintf("Tipo mas frecuente: %s", stats.MostFrequentType),
		fmt.Sprintf("Racha actual: %d dias, racha mas larga: %d dias", stats.CurrentStreak, stats.LongestStreak),
	}
	for _, line := range summaryLines {
		pdf.CellFormat(0, 6, line, "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 8, "Sesiones", "", 1, "L", false, 0, "")

	colWidths := []float64{22, 28, 18, 18, 20, 22, 62}
	headers := []string{"Fecha", "Tipo", "Min", "Peso", "Calorias", "Intensidad", "Notas"}

	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(230, 230, 230)
	for i, h := range headers {
		pdf.CellFormat(colWidths[i], 7, h, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	for _, s := range sessions {
		cells := []string{
			s.Fecha,
			s.Tipo,
			strconv.Itoa(s.Tiempo),
			formatPeso(s.Peso),
			strconv.Itoa(s.Calorias),
			s.Intensidad,
			truncateNotas(s.Notas, 40),
		}
		for i, c := range cells {
			pdf.CellFormat(colWidths[i], 6, c, "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func formatPeso(peso float64) string {
	if peso == 0 {
		return ""
	}
	return strconv.FormatFloat(peso, 'f', -1, 64)
}

func truncateNotas(notas string, maxLen int) string {
	runes := []rune(notas)
	if len(runes) <= maxLen {
		return notas
	}
	return string(runes[:maxLen-3]) + "..."
}
