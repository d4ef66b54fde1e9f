package ai

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"

	"basin-research-platform/internal/config"
	"basin-research-platform/internal/telemetry"

	genai "github.com/google/generative-ai-go/genai"
)

// ErrUnavailable is returned when the completion service cannot be reached
// (circuit open or transport failure). Callers surface this as a query-level
// failure rather than answering from nothing.
var ErrUnavailable = errors.New("completion service unavailable")

type GeminiClient struct {
	apiKey          string
	model           string
	temperature     float32
	maxOutputTokens int32
	breaker         *gobreaker.CircuitBreaker
	rateLimiter     *rate.Limiter
	tokenCounter    *TokenCounter
	client          *genai.Client
	tier            string
	metrics         *telemetry.Metrics
}

type TokenCounter struct {
	mu              sync.Mutex
	minuteTokens    int
	dailyTokens     int
	minuteRequests  int
	dailyRequests   int
	lastMinuteReset time.Time
	lastDayReset    time.Time
	limits          RateLimits
}

type RateLimits struct {
	RPM int // Requests per minute
	TPM int // Tokens per minute
	RPD int // Requests per day
}

func NewGeminiClient(cfg *config.Config, metrics *telemetry.Metrics) (*GeminiClient, error) {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.GeminiAPIKey))
	if err != nil {
		return nil, err
	}

	// Configure rate limits based on tier
	limits := getRateLimits(cfg.GeminiTier)

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "GeminiAPI",
		MaxRequests: 5,
		Interval:    10 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Printf("Circuit breaker %s: %s -> %s", name, from, to)
			if to == gobreaker.StateOpen {
				alertOps("Gemini API circuit breaker opened - service degraded")
			}
		},
	})

	// RPM limit with some buffer
	rateLimiter := rate.NewLimiter(rate.Limit(float64(limits.RPM)*0.9/60.0), limits.RPM/10)

	return &GeminiClient{
		apiKey:          cfg.GeminiAPIKey,
		model:           cfg.GeminiModel,
		temperature:     float32(cfg.Temperature),
		maxOutputTokens: int32(cfg.MaxOutputTokens),
		breaker:         breaker,
		rateLimiter:     rateLimiter,
		tokenCounter:    &TokenCounter{limits: limits},
		client:          client,
		tier:            cfg.GeminiTier,
		metrics:         metrics,
	}, nil
}

func getRateLimits(tier string) RateLimits {
	switch tier {
	case "free":
		return RateLimits{RPM: 10, TPM: 250000, RPD: 250}
	case "tier1":
		return RateLimits{RPM: 1000, TPM: 1000000, RPD: 10000}
	case "tier2":
		return RateLimits{RPM: 2000, TPM: 4000000, RPD: 50000}
	default:
		return RateLimits{RPM: 10, TPM: 250000, RPD: 250}
	}
}

// Complete sends a fully assembled prompt and returns the generated text.
// A tripped breaker or transport failure comes back as ErrUnavailable so
// the query layer can answer with a clear "system unavailable" instead of
// a fabricated response.
func (gc *GeminiClient) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := gc.generate(ctx, prompt)
	if err != nil {
		return "", err
	}

	text := collectText(resp)
	if text == "" {
		return "", fmt.Errorf("%w: empty completion", ErrUnavailable)
	}
	return text, nil
}

func (gc *GeminiClient) generate(ctx context.Context, prompt string) (*genai.GenerateContentResponse, error) {
	// Create tracing span
	tracer := otel.Tracer("gemini-client")
	ctx, span := tracer.Start(ctx, "gemini.generate_content")
	defer span.End()

	// Estimate tokens BEFORE making request
	estimatedTokens := estimateTokens(prompt)
	span.SetAttributes(
		attribute.Int("gemini.estimated_tokens", estimatedTokens),
		attribute.String("gemini.model", gc.model),
	)

	// Check token limits
	if !gc.tokenCounter.CanConsume(estimatedTokens, 1) {
		span.SetAttributes(attribute.Bool("gemini.rate_limited", true))
		return nil, errors.New("rate limit exceeded: wait before retry")
	}

	// Rate limiter wait
	if err := gc.rateLimiter.Wait(ctx); err != nil {
		span.SetAttributes(attribute.Bool("gemini.rate_limited", true))
		return nil, err
	}

	// Circuit breaker execution
	result, err := gc.breaker.Execute(func() (interface{}, error) {
		model := gc.client.GenerativeModel(gc.model)
		model.SetTemperature(gc.temperature)
		model.SetMaxOutputTokens(gc.maxOutputTokens)

		resp, err := model.GenerateContent(ctx, genai.Text(prompt))
		if err != nil {
			span.SetAttributes(attribute.Bool("gemini.error", true))
			span.SetAttributes(attribute.String("gemini.error_message", err.Error()))
			return nil, err
		}

		// Get ACTUAL token usage from response
		actualTokens := extractTokenUsage(resp)
		gc.tokenCounter.RecordUsage(actualTokens, 1)
		if gc.metrics != nil {
			gc.metrics.RecordTokensUsed(int64(actualTokens), gc.model)
		}

		span.SetAttributes(attribute.Int("gemini.actual_tokens", actualTokens))

		return resp, nil
	})

	if err != nil {
		if err == gobreaker.ErrOpenState {
			span.SetAttributes(attribute.Bool("gemini.circuit_breaker_open", true))
			return nil, fmt.Errorf("%w: circuit open", ErrUnavailable)
		}
		span.SetAttributes(attribute.Bool("gemini.error", true))
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	span.SetAttributes(attribute.Bool("gemini.success", true))
	return result.(*genai.GenerateContentResponse), nil
}

func (tc *TokenCounter) CanConsume(tokens, requests int) bool {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	now := time.Now()

	// Reset counters if time windows expired
	if now.Sub(tc.lastMinuteReset) >= time.Minute {
		tc.minuteTokens = 0
		tc.minuteRequests = 0
		tc.lastMinuteReset = now
	}

	if now.Sub(tc.lastDayReset) >= 24*time.Hour {
		tc.dailyTokens = 0
		tc.dailyRequests = 0
		tc.lastDayReset = now
	}

	limits := tc.limits
	if limits.RPM == 0 {
		limits = getRateLimits("free")
	}

	if tc.minuteRequests+requests > limits.RPM {
		return false
	}
	if tc.minuteTokens+tokens > limits.TPM {
		return false
	}
	if tc.dailyRequests+requests > limits.RPD {
		return false
	}

	return true
}

func (tc *TokenCounter) RecordUsage(tokens, requests int) {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	tc.minuteTokens += tokens
	tc.minuteRequests += requests
	tc.dailyTokens += tokens
	tc.dailyRequests += requests
}

// TokensUsedToday reports daily token consumption for the stats surface
func (tc *TokenCounter) TokensUsedToday() int {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	return tc.dailyTokens
}

// Usage returns the token counter for reporting
func (gc *GeminiClient) Usage() *TokenCounter {
	return gc.tokenCounter
}

// Rough estimation: 1 token ≈ 4 characters
func estimateTokens(prompt string) int {
	return len(prompt) / 4
}

// Extract token usage from Gemini response
func extractTokenUsage(resp *genai.GenerateContentResponse) int {
	// Try to extract actual usage from response metadata
	if resp.UsageMetadata != nil {
		return int(resp.UsageMetadata.TotalTokenCount)
	}

	// Fallback: estimate from response text at ~4 characters per token
	estimated := len(collectText(resp)) / 4
	if estimated < 1 {
		estimated = 1 // Minimum 1 token
	}

	return estimated
}

func collectText(resp *genai.GenerateContentResponse) string {
	totalText := ""
	for _, candidate := range resp.Candidates {
		if candidate.Content != nil {
			for _, part := range candidate.Content.Parts {
				if text, ok := part.(genai.Text); ok {
					totalText += string(text)
				}
			}
		}
	}
	return totalText
}

// Alert operations team
func alertOps(message string) {
	log.Printf("🚨 ALERT: %s", message)
	// In production, send to monitoring service (PagerDuty, Slack, etc.)
}

// Close the client
func (gc *GeminiClient) Close() error {
	if gc.client != nil {
		return gc.client.Close()
	}
	return nil
}
