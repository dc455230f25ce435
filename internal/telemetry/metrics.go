package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds all application metrics
type Metrics struct {
	RequestCounter   metric.Int64Counter
	RequestDuration  metric.Float64Histogram
	QuestionsAsked   metric.Int64Counter
	QuestionDuration metric.Float64Histogram
	PolicyIntercepts metric.Int64Counter
	ChunksSelected   metric.Int64Counter
	GenerationErrors metric.Int64Counter
}

// InitMetrics initializes all application metrics
func InitMetrics() (*Metrics, error) {
	meter := otel.Meter("homeowner-assistant-platform")

	requestCounter, err := meter.Int64Counter(
		"http.requests.total",
		metric.WithDescription("Total HTTP requests"),
	)
	if err != nil {
		return nil, err
	}

	requestDuration, err := meter.Float64Histogram(
		"http.request.duration",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	questionsAsked, err := meter.Int64Counter(
		"chat.questions.total",
		metric.WithDescription("Total homeowner questions handled"),
	)
	if err != nil {
		return nil, err
	}

	questionDuration, err := meter.Float64Histogram(
		"chat.question.duration",
		metric.WithDescription("End-to-end question handling duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	policyIntercepts, err := meter.Int64Counter(
		"chat.policy_intercepts.total",
		metric.WithDescription("Questions answered by a policy short-circuit"),
	)
	if err != nil {
		return nil, err
	}

	chunksSelected, err := meter.Int64Counter(
		"retrieval.chunks.selected",
		metric.WithDescription("Passages selected into the generation context"),
	)
	if err != nil {
		return nil, err
	}

	generationErrors, err := meter.Int64Counter(
		"generation.errors.total",
		metric.WithDescription("Generation calls that ended in an error"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		RequestCounter:   requestCounter,
		RequestDuration:  requestDuration,
		QuestionsAsked:   questionsAsked,
		QuestionDuration: questionDuration,
		PolicyIntercepts: policyIntercepts,
		ChunksSelected:   chunksSelected,
		GenerationErrors: generationErrors,
	}, nil
}

// RecordRequest records HTTP request metrics
func (m *Metrics) RecordRequest(method, path, status string, duration float64) {
	attrs := []attribute.KeyValue{
		attribute.String("http.method", method),
		attribute.String("http.path", path),
		attribute.String("http.status", status),
	}

	m.RequestCounter.Add(context.Background(), 1, metric.WithAttributes(attrs...))
	m.RequestDuration.Record(context.Background(), duration, metric.WithAttributes(attrs...))
}

// RecordQuestion records a handled question with its outcome topic
func (m *Metrics) RecordQuestion(topic string, durationSeconds float64) {
	attrs := []attribute.KeyValue{
		attribute.String("chat.topic", topic),
	}

	m.QuestionsAsked.Add(context.Background(), 1, metric.WithAttributes(attrs...))
	m.QuestionDuration.Record(context.Background(), durationSeconds, metric.WithAttributes(attrs...))
}

// RecordIntercept records a policy short-circuit (safety, privacy, clarification, liability)
func (m *Metrics) RecordIntercept(kind string) {
	m.PolicyIntercepts.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("intercept.kind", kind),
	))
}

// RecordChunks records how many passages were fed to generation
func (m *Metrics) RecordChunks(count int) {
	m.ChunksSelected.Add(context.Background(), int64(count))
}

// RecordGenerationError records a failed generation call
func (m *Metrics) RecordGenerationError(kind string) {
	m.GenerationErrors.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("error.kind", kind),
	))
}
