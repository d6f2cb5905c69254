package advisor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/coocood/freecache"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/codes"

	"github.com/aluque/mma-planner/internal/telemetry/tracing"
	"github.com/aluque/mma-planner/internal/training"
)

const (
	OriginAI       = "ai"
	OriginFallback = "fallback"
	OriginInfo     = "info"

	oneHour           = 60 * 60
	adviceCacheExpire = oneHour * 6

	defaultGeminiApiUrl = "https://generativelanguage.googleapis.com/v1beta/models/gemini-1.5-flash:generateContent"
	defaultOpenAIApiUrl = "https://api.openai.com/v1/chat/completions"
)

type Advice struct {
	Text   string `json:"advice"`
	Origin string `json:"type"`
}

type Suggestion struct {
	Sugerencia string `json:"sugerencia"`
	Origin     string `json:"type"`
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

type openAIRequest struct {
	Model    string          `json:"model"`
	Messages []openAIMessage `json:"messages"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIResponse struct {
	Choices []struct {
		Message openAIMessage `json:"message"`
	} `json:"choices"`
}

// Service produces training advice, preferring the Gemini API and falling
// back to built-in heuristics when the API is unreachable or not configured.
type Service struct {
	cache        *freecache.Cache
	geminiApiUrl string
	geminiApiKey string
	openAIApiUrl string
	openAIApiKey string
	httpClient   *http.Client
}

func NewService(geminiApiKey, openAIApiKey string, httpClient *http.Client) *Service {
	megabyte := 1024 * 1024
	return &Service{
		cache:        freecache.NewCache(10 * megabyte),
		geminiApiUrl: defaultGeminiApiUrl,
		geminiApiKey: geminiApiKey,
		openAIApiUrl: defaultOpenAIApiUrl,
		openAIApiKey: openAIApiKey,
		httpClient:   httpClient,
	}
}

// Advise never fails: when the AI call cannot be made or errors out, the
// heuristic fallback advice is returned instead.
func (s *Service) Advise(ctx context.Context, sessions []training.Session) (advice *Advice) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "advisor.advise")
	defer span.End()
	defer func() {
		span.SetStatus(codes.Ok, fmt.Sprintf("advice origin: %s", advice.Origin))
	}()

	if len(sessions) == 0 {
		return &Advice{
			Text: "Comienza agregando algunas sesiones de entrenamiento " +
				"para recibir consejos personalizados.",
			Origin: OriginInfo,
		}
	}

	if s.geminiApiKey == "" {
		log.Debugln("gemini api key not set, using fallback advice")
		return &Advice{Text: FallbackAdvice(sessions), Origin: OriginFallback}
	}

	cacheKey := adviceCacheKey(sessions)
	if cachedAdvice, err := s.cache.Get(cacheKey); err == nil {
		log.Tracef("found advice in cache for %d sessions", len(sessions))
		return &Advice{Text: string(cachedAdvice), Origin: OriginAI}
	}

	aiAdvice, err := s.geminiAdvice(ctx, sessions)
	if err != nil {
		log.Errorf("gemini advice failed, using fallback: %s", err)
		span.RecordError(err)
		return &Advice{Text: FallbackAdvice(sessions), Origin: OriginFallback}
	}

	if err := s.cache.Set(cacheKey, []byte(aiAdvice), adviceCacheExpire); err != nil {
		log.Errorf("failed to cache advice: %s", err)
	}

	return &Advice{Text: aiAdvice, Origin: OriginAI}
}

// Suggest asks OpenAI for a concrete next-session suggestion based on the
// last trainings. Without an API key an informational message is returned.
func (s *Service) Suggest(ctx context.Context, sessions []training.Session) *Suggestion {
	ctx, span := tracing.GlobalTracer.Start(ctx, "advisor.suggest")
	defer span.End()

	if s.openAIApiKey == "" {
		return &Suggestion{
			Sugerencia: "Configura la clave de OpenAI para recibir sugerencias personalizadas.",
			Origin:     OriginInfo,
		}
	}

	if len(sessions) > 10 {
		sessions = sessions[:10]
	}

	suggestion, err := s.openAISuggestion(ctx, sessions)
	if err != nil {
		log.Errorf("openai suggestion failed: %s", err)
		span.RecordError(err)
		return &Suggestion{
			Sugerencia: "No se pudo generar una sugerencia ahora mismo, intenta de nuevo mas tarde.",
			Origin:     OriginInfo,
		}
	}

	return &Suggestion{Sugerencia: suggestion, Origin: OriginAI}
}

func (s *Service) geminiAdvice(ctx context.Context, sessions []training.Session) (string, error) {
	reqPayload := geminiRequest{
		Contents: []geminiContent{{
			Parts: []geminiPart{{Text: advicePrompt(sessions)}},
		}},
	}
	reqBytes, err := json.Marshal(reqPayload)
	if err != nil {
		return "", fmt.Errorf("marshal gemini request: %w", err)
	}

	url := fmt.Sprintf("%s?key=%s", s.geminiApiUrl, s.geminiApiKey)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(reqBytes))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("http client do: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read gemini response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("gemini response status %d: %s", resp.StatusCode, respBytes)
	}

	var geminiResp geminiResponse
	if err := json.Unmarshal(respBytes, &geminiResp); err != nil {
		return "", fmt.Errorf("unmarshal gemini response: %w", err)
	}
	if len(geminiResp.Candidates) == 0 || len(geminiResp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini response contains no candidates")
	}

	advice := strings.TrimSpace(geminiResp.Candidates[0].Content.Parts[0].Text)
	if advice == "" {
		return "", fmt.Errorf("gemini response candidate is empty")
	}
	return advice, nil
}

func (s *Service) openAISuggestion(ctx context.Context, sessions []training.Session) (string, error) {
	reqPayload := openAIRequest{
		Model: "gpt-4o-mini",
		Messages: []openAIMessage{{
			Role:    "user",
			Content: suggestionPrompt(sessions),
		}},
	}
	reqBytes, err := json.Marshal(reqPayload)
	if err != nil {
		return "", fmt.Errorf("marshal openai request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.openAIApiUrl, bytes.NewReader(reqBytes))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.openAIApiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("http client do: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read openai response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("openai response status %d: %s", resp.StatusCode, respBytes)
	}

	var openAIResp openAIResponse
	if err := json.Unmarshal(respBytes, &openAIResp); err != nil {
		return "", fmt.Errorf("unmarshal openai response: %w", err)
	}
	if len(openAIResp.Choices) == 0 {
		return "", fmt.Errorf("openai response contains no choices")
	}

	suggestion := strings.TrimSpace(openAIResp.Choices[0].Message.Content)
	if suggestion == "" {
		return "", fmt.Errorf("openai response choice is empty")
	}
	return suggestion, nil
}

func advicePrompt(sessions []training.Session) string {
	// most recent 8, list comes sorted newest first
	if len(sessions) > 8 {
		sessions = sessions[:8]
	}

	var sb strings.Builder
	sb.WriteString("Eres un entrenador de MMA. Analiza estas sesiones de entrenamiento ")
	sb.WriteString("y da un consejo breve y concreto en español (maximo 4 frases):\n")
	writeSessionsSummary(&sb, sessions)
	return sb.String()
}

func suggestionPrompt(sessions []training.Session) string {
	var sb strings.Builder
	sb.WriteString("Eres un entrenador de MMA. Basandote en las ultimas sesiones, ")
	sb.WriteString("sugiere el proximo entrenamiento (tipo, duracion e intensidad) en una frase:\n")
	writeSessionsSummary(&sb, sessions)
	return sb.String()
}

func writeSessionsSummary(sb *strings.Builder, sessions []training.Session) {
	if len(sessions) == 0 {
		sb.WriteString("- sin sesiones registradas\n")
		return
	}
	for _, s := range sessions {
		fmt.Fprintf(sb, "- %s: %s, %d min, intensidad %s\n", s.Fecha, s.Tipo, s.Tiempo, s.Intensidad)
	}
}

func adviceCacheKey(sessions []training.Session) []byte {
	latest := ""
	if len(sessions) > 0 {
		latest = sessions[0].Fecha
	}
	return []byte(fmt.Sprintf("advice::%d::%s", len(sessions), latest))
}

// FallbackAdvice applies the built-in heuristics, first matching rule wins.
func FallbackAdvice(sessions []training.Session) string {
	if len(sessions) < 2 {
		return "Estas empezando, registra al menos dos sesiones para recibir un analisis. " +
			"Empieza con sesiones cortas de tecnica y cardio para construir una base."
	}

	var totalTime int
	types := map[string]bool{}
	allLowIntensity := true
	for _, s := range sessions {
		totalTime += s.Tiempo
		types[s.Tipo] = true
		if s.Intensidad != training.IntensityLow {
			allLowIntensity = false
		}
	}
	avgTime := float64(totalTime) / float64(len(sessions))

	switch {
	case avgTime < 45:
		return "Tus sesiones son cortas, intenta alargarlas hacia 60 minutos " +
			"para mejorar la resistencia especifica."
	case !types["Grappling"] && !types["Judo"]:
		return "No has entrenado grappling ultimamente, añade sesiones de " +
			"Grappling o Judo para equilibrar tu juego de suelo."
	case !types["Striking"]:
		return "Te falta trabajo de golpeo, incluye sesiones de Striking " +
			"para mantener la distancia y el timing."
	case allLowIntensity:
		return "Todas tus sesiones son de intensidad baja, añade una o dos " +
			"sesiones de alta intensidad por semana para progresar."
	default:
		return "Buen trabajo, tu entrenamiento es variado y constante. " +
			"Manten el ritmo y no olvides el descanso y la recuperacion."
	}
}
