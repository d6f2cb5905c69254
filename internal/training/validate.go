package training

import (
	"fmt"
	"strings"
	"time"
)

const maxNotasLen = 500

// SessionInput is the raw client payload for creating or updating a session.
// Calorias is never taken from the client, it is always recomputed.
type SessionInput struct {
	Fecha      string  `json:"fecha"`
	Tipo       string  `json:"tipo"`
	Tiempo     int     `json:"tiempo"`
	Peso       float64 `json:"peso"`
	Intensidad string  `json:"intensidad"`
	Notas      string  `json:"notas"`
}

// ValidationError names the offending input field, surfaced as a 400.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Msg)
}

// ValidateSessionInput normalizes and validates raw input into a canonical
// session record with a derived calorie estimate.
func ValidateSessionInput(in SessionInput) (*Session, error) {
	fecha := strings.TrimSpace(in.Fecha)
	if fecha == "" {
		return nil, &ValidationError{Field: "fecha", Msg: "date is required"}
	}
	if _, err := time.Parse(DateLayout, fecha); err != nil {
		return nil, &ValidationError{Field: "fecha", Msg: "invalid date format, use YYYY-MM-DD"}
	}

	tipo := strings.TrimSpace(in.Tipo)
	if tipo == "" {
		return nil, &ValidationError{Field: "tipo", Msg: "training type is required"}
	}
	if !ValidTrainingType(tipo) {
		return nil, &ValidationError{
			Field: "tipo",
			Msg:   fmt.Sprintf("invalid type, valid types: %s", strings.Join(TrainingTypes, ", ")),
		}
	}

	if in.Tiempo <= 0 {
		return nil, &ValidationError{Field: "tiempo", Msg: "duration must be greater than 0 minutes"}
	}
	if in.Tiempo > 480 {
		return nil, &ValidationError{Field: "tiempo", Msg: "duration cannot exceed 480 minutes (8 hours)"}
	}

	peso := in.Peso
	if peso != 0 && (peso < 30 || peso > 200) {
		return nil, &ValidationError{Field: "peso", Msg: "weight must be between 30 and 200 kg"}
	}

	intensidad := strings.TrimSpace(in.Intensidad)
	if intensidad == "" {
		intensidad = IntensityMedium
	}

	notas := strings.TrimSpace(in.Notas)
	if runes := []rune(notas); len(runes) > maxNotasLen {
		notas = string(runes[:maxNotasLen])
	}

	return &Session{
		Fecha:      fecha,
		Tipo:       tipo,
		Tiempo:     in.Tiempo,
		Peso:       peso,
		Calorias:   CalculateCalories(tipo, in.Tiempo, peso),
		Intensidad: intensidad,
		Notas:      notas,
	}, nil
}
