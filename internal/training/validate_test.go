package training

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateSessionInput(t *testing.T) {
	session, err := ValidateSessionInput(SessionInput{
		Fecha:  "  2025-03-15 ",
		Tipo:   "Grappling",
		Tiempo: 90,
		Peso:   80,
		Notas:  "  open mat  ",
	})
	require.NoError(t, err)

	assert.Equal(t, "2025-03-15", session.Fecha)
	assert.Equal(t, "Grappling", session.Tipo)
	assert.Equal(t, 1200, session.Calorias)
	assert.Equal(t, IntensityMedium, session.Intensidad)
	assert.Equal(t, "open mat", session.Notas)
}

func TestValidateSessionInput_Errors(t *testing.T) {
	testCases := []struct {
		name  string
		input SessionInput
		field string
	}{
		{
			name:  "missing fecha",
			input: SessionInput{Tipo: "Judo", Tiempo: 60},
			field: "fecha",
		},
		{
			name:  "bad fecha format",
			input: SessionInput{Fecha: "15-03-2025", Tipo: "Judo", Tiempo: 60},
			field: "fecha",
		},
		{
			name:  "missing tipo",
			input: SessionInput{Fecha: "2025-03-15", Tiempo: 60},
			field: "tipo",
		},
		{
			name:  "unknown tipo",
			input: SessionInput{Fecha: "2025-03-15", Tipo: "Crossfit", Tiempo: 60},
			field: "tipo",
		},
		{
			name:  "zero tiempo",
			input: SessionInput{Fecha: "2025-03-15", Tipo: "Judo"},
			field: "tiempo",
		},
		{
			name:  "tiempo over eight hours",
			input: SessionInput{Fecha: "2025-03-15", Tipo: "Judo", Tiempo: 481},
			field: "tiempo",
		},
		{
			name:  "peso below range",
			input: SessionInput{Fecha: "2025-03-15", Tipo: "Judo", Tiempo: 60, Peso: 29},
			field: "peso",
		},
		{
			name:  "peso above range",
			input: SessionInput{Fecha: "2025-03-15", Tipo: "Judo", Tiempo: 60, Peso: 201},
			field: "peso",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			session, err := ValidateSessionInput(tc.input)
			require.Error(t, err)
			assert.Nil(t, session)

			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tc.field, vErr.Field)
		})
	}
}

func TestValidateSessionInput_ZeroPesoMeansDefault(t *testing.T) {
	session, err := ValidateSessionInput(SessionInput{
		Fecha:  "2025-03-15",
		Tipo:   "MMA",
		Tiempo: 60,
	})
	require.NoError(t, err)
	assert.Zero(t, session.Peso)
	// default bodyweight of 70kg for the calorie estimate
	assert.Equal(t, 840, session.Calorias)
}

func TestValidateSessionInput_NotasTruncated(t *testing.T) {
	session, err := ValidateSessionInput(SessionInput{
		Fecha:  "2025-03-15",
		Tipo:   "MMA",
		Tiempo: 60,
		Notas:  strings.Repeat("ñ", 600),
	})
	require.NoError(t, err)
	assert.Equal(t, 500, len([]rune(session.Notas)))
}

func TestValidateSessionInput_IntensityKeptVerbatim(t *testing.T) {
	session, err := ValidateSessionInput(SessionInput{
		Fecha:      "2025-03-15",
		Tipo:       "MMA",
		Tiempo:     60,
		Intensidad: "Brutal",
	})
	require.NoError(t, err)
	assert.Equal(t, "Brutal", session.Intensidad)
}
