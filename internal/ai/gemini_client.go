package ai

import (
	"context"
	"log"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	genai "github.com/google/generative-ai-go/genai"

	"homeowner-assistant-platform/models"
)

// GeminiClient drives answer generation. Calls go through a client-side rate
// limiter and a circuit breaker so a degraded upstream fails fast instead of
// queueing requests against the host deadline.
type GeminiClient struct {
	apiKey      string
	modelName   string
	breaker     *gobreaker.CircuitBreaker
	rateLimiter *rate.Limiter
	client      *genai.Client
}

func NewGeminiClient(apiKey, modelName string) (*GeminiClient, error) {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}

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
		},
	})

	// Free tier is 10 RPM; leave some headroom
	rateLimiter := rate.NewLimiter(rate.Limit(9.0/60.0), 2)

	return &GeminiClient{
		apiKey:      apiKey,
		modelName:   modelName,
		breaker:     breaker,
		rateLimiter: rateLimiter,
		client:      client,
	}, nil
}

func (gc *GeminiClient) chatSession(system string, history []models.ConversationTurn) *genai.ChatSession {
	model := gc.client.GenerativeModel(gc.modelName)
	model.SetTemperature(0.4)
	model.SetMaxOutputTokens(2048)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(system)},
	}

	cs := model.StartChat()
	for _, turn := range history {
		cs.History = append(cs.History,
			&genai.Content{Role: "user", Parts: []genai.Part{genai.Text(turn.UserMessage)}},
			&genai.Content{Role: "model", Parts: []genai.Part{genai.Text(turn.AIMessage)}},
		)
	}
	return cs
}

// Generate produces a complete answer in one call (test/automation mode).
func (gc *GeminiClient) Generate(ctx context.Context, system string, history []models.ConversationTurn, question string) (string, error) {
	tracer := otel.Tracer("gemini-client")
	ctx, span := tracer.Start(ctx, "gemini.generate")
	defer span.End()

	span.SetAttributes(
		attribute.String("gemini.model", gc.modelName),
		attribute.Int("gemini.history_turns", len(history)),
	)

	if err := gc.rateLimiter.Wait(ctx); err != nil {
		span.SetAttributes(attribute.Bool("gemini.rate_limited", true))
		return "", err
	}

	result, err := gc.breaker.Execute(func() (interface{}, error) {
		cs := gc.chatSession(system, history)
		resp, err := cs.SendMessage(ctx, genai.Text(question))
		if err != nil {
			return nil, err
		}
		return responseText(resp), nil
	})

	if err != nil {
		if err == gobreaker.ErrOpenState {
			span.SetAttributes(attribute.Bool("gemini.circuit_breaker_open", true))
		}
		span.SetAttributes(attribute.Bool("gemini.error", true))
		return "", err
	}

	span.SetAttributes(attribute.Bool("gemini.success", true))
	return result.(string), nil
}

// GenerateStream produces an answer incrementally, invoking onToken for each
// decoded fragment. The full raw text is returned once the stream drains.
// A non-nil error from onToken (client gone) stops consumption early.
func (gc *GeminiClient) GenerateStream(ctx context.Context, system string, history []models.ConversationTurn, question string, onToken func(string) error) (string, error) {
	tracer := otel.Tracer("gemini-client")
	ctx, span := tracer.Start(ctx, "gemini.generate_stream")
	defer span.End()

	span.SetAttributes(
		attribute.String("gemini.model", gc.modelName),
		attribute.Int("gemini.history_turns", len(history)),
	)

	if err := gc.rateLimiter.Wait(ctx); err != nil {
		span.SetAttributes(attribute.Bool("gemini.rate_limited", true))
		return "", err
	}

	result, err := gc.breaker.Execute(func() (interface{}, error) {
		cs := gc.chatSession(system, history)
		iter := cs.SendMessageStream(ctx, genai.Text(question))

		var full string
		for {
			resp, err := iter.Next()
			if err == iterator.Done {
				break
			}
			if err != nil {
				return full, err
			}
			token := responseText(resp)
			if token == "" {
				continue
			}
			full += token
			if onToken != nil {
				if err := onToken(token); err != nil {
					return full, err
				}
			}
		}
		return full, nil
	})

	var full string
	if result != nil {
		full = result.(string)
	}
	if err != nil {
		if err == gobreaker.ErrOpenState {
			span.SetAttributes(attribute.Bool("gemini.circuit_breaker_open", true))
		}
		span.SetAttributes(attribute.Bool("gemini.error", true))
		return full, err
	}

	span.SetAttributes(
		attribute.Bool("gemini.success", true),
		attribute.Int("gemini.answer_chars", len(full)),
	)
	return full, nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var text string
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				text += string(t)
			}
		}
	}
	return text
}

// Close the client
func (gc *GeminiClient) Close() error {
	if gc.client != nil {
		return gc.client.Close()
	}
	return nil
}
