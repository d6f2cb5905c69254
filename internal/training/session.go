package training

import (
	"math"
	"time"
)

// Session is a single logged training session. Field names on the wire
// (and in the sessions file) are the Spanish ones the frontend uses.
type Session struct {
	ID         int       `json:"id"`
	Fecha      string    `json:"fecha"` // YYYY-MM-DD
	Tipo       string    `json:"tipo"`
	Tiempo     int       `json:"tiempo"` // minutes
	Peso       float64   `json:"peso,omitempty"`
	Calorias   int       `json:"calorias"`
	Intensidad string    `json:"intensidad"`
	Notas      string    `json:"notas,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at,omitzero"`
}

const DateLayout = "2006-01-02"

// Date parses the session date. The bool is false for unparseable dates,
// which date-based aggregations silently skip.
func (s Session) Date() (time.Time, bool) {
	d, err := time.Parse(DateLayout, s.Fecha)
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}

var TrainingTypes = []string{
	"Cardio", "Fuerza", "Judo", "MMA", "Striking", "Grappling", "Técnico",
}

func ValidTrainingType(tipo string) bool {
	for _, t := range TrainingTypes {
		if t == tipo {
			return true
		}
	}
	return false
}

const (
	IntensityLow    = "Baja"
	IntensityMedium = "Media"
	IntensityHigh   = "Alta"
)

var Intensities = []string{IntensityLow, IntensityMedium, IntensityHigh}

// metValues holds the Metabolic Equivalent of Task per training type,
// used for the calorie estimate.
var metValues = map[string]float64{
	"Cardio":    8.0,
	"Fuerza":    6.0,
	"Judo":      10.0,
	"MMA":       12.0,
	"Striking":  9.0,
	"Grappling": 10.0,
	"Técnico":   4.0,
}

const (
	defaultMET      = 7.0
	defaultWeightKg = 70.0
)

// CalculateCalories estimates burned calories:
// MET x weight(kg) x time(hours), rounded to the nearest integer.
func CalculateCalories(tipo string, tiempoMinutes int, pesoKg float64) int {
	if pesoKg <= 0 {
		pesoKg = defaultWeightKg
	}
	met, ok := metValues[tipo]
	if !ok {
		met = defaultMET
	}
	calories := met * pesoKg * (float64(tiempoMinutes) / 60)
	return int(math.Round(calories))
}
