package advisor

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aluque/mma-planner/internal/telemetry/metrics"
	"github.com/aluque/mma-planner/internal/training"
)

type repoStub struct {
	sessions []training.Session
}

func (r *repoStub) List(_ context.Context) ([]training.Session, error) {
	return r.sessions, nil
}

func makeSession(fecha, tipo string, tiempo int, intensidad string) training.Session {
	return training.Session{
		Fecha:      fecha,
		Tipo:       tipo,
		Tiempo:     tiempo,
		Intensidad: intensidad,
	}
}

func varied() []training.Session {
	return []training.Session{
		makeSession("2025-03-15", "Grappling", 90, training.IntensityHigh),
		makeSession("2025-03-14", "Striking", 60, training.IntensityMedium),
		makeSession("2025-03-13", "Cardio", 60, training.IntensityLow),
	}
}

func TestFallbackAdvice(t *testing.T) {
	t.Run("fewer than two sessions", func(t *testing.T) {
		advice := FallbackAdvice(nil)
		assert.Contains(t, advice, "Estas empezando")
		advice = FallbackAdvice(varied()[:1])
		assert.Contains(t, advice, "Estas empezando")
	})

	t.Run("short sessions", func(t *testing.T) {
		sessions := []training.Session{
			makeSession("2025-03-15", "Grappling", 30, training.IntensityHigh),
			makeSession("2025-03-14", "Striking", 40, training.IntensityMedium),
		}
		assert.Contains(t, FallbackAdvice(sessions), "cortas")
	})

	t.Run("no grappling", func(t *testing.T) {
		sessions := []training.Session{
			makeSession("2025-03-15", "Striking", 60, training.IntensityHigh),
			makeSession("2025-03-14", "Cardio", 60, training.IntensityMedium),
		}
		assert.Contains(t, FallbackAdvice(sessions), "grappling")
	})

	t.Run("no striking", func(t *testing.T) {
		sessions := []training.Session{
			makeSession("2025-03-15", "Grappling", 60, training.IntensityHigh),
			makeSession("2025-03-14", "Judo", 60, training.IntensityMedium),
		}
		assert.Contains(t, FallbackAdvice(sessions), "golpeo")
	})

	t.Run("all low intensity", func(t *testing.T) {
		sessions := []training.Session{
			makeSession("2025-03-15", "Grappling", 60, training.IntensityLow),
			makeSession("2025-03-14", "Striking", 60, training.IntensityLow),
		}
		assert.Contains(t, FallbackAdvice(sessions), "intensidad baja")
	})

	t.Run("varied training", func(t *testing.T) {
		assert.Contains(t, FallbackAdvice(varied()), "Buen trabajo")
	})
}

func TestService_Advise_NoSessionsReturnsInfo(t *testing.T) {
	service := NewService("some-key", "", http.DefaultClient)

	advice := service.Advise(context.Background(), nil)
	require.NotNil(t, advice)
	assert.Equal(t, OriginInfo, advice.Origin)
	assert.Contains(t, advice.Text, "Comienza agregando")
}

func TestService_Advise_NoKeyUsesFallback(t *testing.T) {
	service := NewService("", "", http.DefaultClient)

	advice := service.Advise(context.Background(), varied())
	require.NotNil(t, advice)
	assert.Equal(t, OriginFallback, advice.Origin)
	assert.NotEmpty(t, advice.Text)
}

func TestService_Advise_GeminiSuccess(t *testing.T) {
	var gotPath string
	aiServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path + "?" + r.URL.RawQuery

		var req geminiRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Contents, 1)
		assert.Contains(t, req.Contents[0].Parts[0].Text, "Grappling")

		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"  mas sparring  "}]}}]}`))
	}))
	defer aiServer.Close()

	service := NewService("test-key", "", aiServer.Client())
	service.geminiApiUrl = aiServer.URL

	advice := service.Advise(context.Background(), varied())
	assert.Equal(t, OriginAI, advice.Origin)
	assert.Equal(t, "mas sparring", advice.Text)
	assert.True(t, strings.HasSuffix(gotPath, "key=test-key"))
}

func TestService_Advise_CachesAIResponse(t *testing.T) {
	calls := 0
	aiServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"descansa mas"}]}}]}`))
	}))
	defer aiServer.Close()

	service := NewService("test-key", "", aiServer.Client())
	service.geminiApiUrl = aiServer.URL

	sessions := varied()
	first := service.Advise(context.Background(), sessions)
	second := service.Advise(context.Background(), sessions)

	assert.Equal(t, 1, calls)
	assert.Equal(t, first.Text, second.Text)
	assert.Equal(t, OriginAI, second.Origin)
}

func TestService_Advise_GeminiErrorFallsBack(t *testing.T) {
	aiServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer aiServer.Close()

	service := NewService("test-key", "", aiServer.Client())
	service.geminiApiUrl = aiServer.URL

	advice := service.Advise(context.Background(), varied())
	assert.Equal(t, OriginFallback, advice.Origin)
	assert.NotEmpty(t, advice.Text)
}

func TestService_Suggest(t *testing.T) {
	t.Run("no key returns info message", func(t *testing.T) {
		service := NewService("", "", http.DefaultClient)
		suggestion := service.Suggest(context.Background(), varied())
		assert.Equal(t, OriginInfo, suggestion.Origin)
		assert.Contains(t, suggestion.Sugerencia, "OpenAI")
	})

	t.Run("openai success", func(t *testing.T) {
		aiServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Bearer openai-key", r.Header.Get("Authorization"))

			var req openAIRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			require.Len(t, req.Messages, 1)

			_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"una sesion de judo de 60 min"}}]}`))
		}))
		defer aiServer.Close()

		service := NewService("", "openai-key", aiServer.Client())
		service.openAIApiUrl = aiServer.URL

		suggestion := service.Suggest(context.Background(), varied())
		assert.Equal(t, OriginAI, suggestion.Origin)
		assert.Equal(t, "una sesion de judo de 60 min", suggestion.Sugerencia)
	})

	t.Run("openai error returns info message", func(t *testing.T) {
		aiServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "nope", http.StatusInternalServerError)
		}))
		defer aiServer.Close()

		service := NewService("", "openai-key", aiServer.Client())
		service.openAIApiUrl = aiServer.URL

		suggestion := service.Suggest(context.Background(), varied())
		assert.Equal(t, OriginInfo, suggestion.Origin)
	})
}

func TestHandler_HandleAdvice(t *testing.T) {
	handler := NewHandler(
		&repoStub{sessions: varied()},
		NewService("", "", http.DefaultClient),
		metrics.NewTestManager(),
	)
	router := mux.NewRouter()
	handler.SetupRoutes(router)

	req := httptest.NewRequest("POST", "/api/ai-advice", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var advice Advice
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &advice))
	assert.Equal(t, OriginFallback, advice.Origin)
	assert.NotEmpty(t, advice.Text)
}

func TestHandler_HandleAdvice_SessionsFromBody(t *testing.T) {
	handler := NewHandler(
		&repoStub{},
		NewService("", "", http.DefaultClient),
		metrics.NewTestManager(),
	)
	router := mux.NewRouter()
	handler.SetupRoutes(router)

	body, err := json.Marshal(adviceRequest{Sessions: varied()})
	require.NoError(t, err)

	req := httptest.NewRequest("POST", "/api/ai-advice", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var advice Advice
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &advice))
	// repo is empty, so fallback origin proves the body sessions were used
	assert.Equal(t, OriginFallback, advice.Origin)
}

func TestHandler_HandleSuggestions(t *testing.T) {
	handler := NewHandler(
		&repoStub{sessions: varied()},
		NewService("", "", http.DefaultClient),
		metrics.NewTestManager(),
	)
	router := mux.NewRouter()
	handler.SetupRoutes(router)

	req := httptest.NewRequest("POST", "/api/ai-suggestions", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var suggestion Suggestion
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &suggestion))
	assert.Equal(t, OriginInfo, suggestion.Origin)
	assert.NotEmpty(t, suggestion.Sugerencia)
}
