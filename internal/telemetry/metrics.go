package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds all application metrics
type Metrics struct {
	RequestCounter    metric.Int64Counter
	RequestDuration   metric.Float64Histogram
	QueryCounter      metric.Int64Counter
	RetrievalDuration metric.Float64Histogram
	TokensUsed        metric.Int64Counter
	IngestDuration    metric.Float64Histogram
	RerankerCalls     metric.Int64Counter
	GraphLookups      metric.Int64Counter
}

// InitMetrics initializes all application metrics
func InitMetrics() (*Metrics, error) {
	meter := otel.Meter("basin-research-platform")

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

	queryCounter, err := meter.Int64Counter(
		"rag.queries.total",
		metric.WithDescription("Total answered queries by type"),
	)
	if err != nil {
		return nil, err
	}

	retrievalDuration, err := meter.Float64Histogram(
		"rag.retrieval.duration",
		metric.WithDescription("Hybrid retrieval duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	tokensUsed, err := meter.Int64Counter(
		"gemini.tokens.used",
		metric.WithDescription("Total Gemini tokens used"),
	)
	if err != nil {
		return nil, err
	}

	ingestDuration, err := meter.Float64Histogram(
		"ingest.duration",
		metric.WithDescription("Document ingestion duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	rerankerCalls, err := meter.Int64Counter(
		"rag.reranker.calls",
		metric.WithDescription("Cross-encoder scoring requests"),
	)
	if err != nil {
		return nil, err
	}

	graphLookups, err := meter.Int64Counter(
		"rag.graph.lookups",
		metric.WithDescription("Property graph candidate lookups"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		RequestCounter:    requestCounter,
		RequestDuration:   requestDuration,
		QueryCounter:      queryCounter,
		RetrievalDuration: retrievalDuration,
		TokensUsed:        tokensUsed,
		IngestDuration:    ingestDuration,
		RerankerCalls:     rerankerCalls,
		GraphLookups:      graphLookups,
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

// RecordQuery records an answered query
func (m *Metrics) RecordQuery(queryType string, reliability int) {
	attrs := []attribute.KeyValue{
		attribute.String("query.type", queryType),
		attribute.Int("query.reliability", reliability),
	}

	m.QueryCounter.Add(context.Background(), 1, metric.WithAttributes(attrs...))
}

// RecordRetrieval records hybrid retrieval metrics
func (m *Metrics) RecordRetrieval(duration float64, evidenceCount int, status string) {
	attrs := []attribute.KeyValue{
		attribute.Int("retrieval.evidence_count", evidenceCount),
		attribute.String("retrieval.status", status),
	}

	m.RetrievalDuration.Record(context.Background(), duration, metric.WithAttributes(attrs...))
}

// RecordTokensUsed records Gemini token usage
func (m *Metrics) RecordTokensUsed(tokens int64, model string) {
	attrs := []attribute.KeyValue{
		attribute.String("gemini.model", model),
		attribute.String("service", "gemini"),
	}

	m.TokensUsed.Add(context.Background(), tokens, metric.WithAttributes(attrs...))
}

// RecordIngest records document ingestion metrics
func (m *Metrics) RecordIngest(duration float64, status string) {
	attrs := []attribute.KeyValue{
		attribute.String("ingest.status", status),
		attribute.String("service", "ingest"),
	}

	m.IngestDuration.Record(context.Background(), duration, metric.WithAttributes(attrs...))
}

// RecordRerankerCall records a cross-encoder scoring request
func (m *Metrics) RecordRerankerCall(pairCount int, success bool) {
	attrs := []attribute.KeyValue{
		attribute.Int("reranker.pairs", pairCount),
		attribute.Bool("reranker.success", success),
	}

	m.RerankerCalls.Add(context.Background(), 1, metric.WithAttributes(attrs...))
}

// RecordGraphLookup records a property graph candidate lookup
func (m *Metrics) RecordGraphLookup(candidates int, success bool) {
	attrs := []attribute.KeyValue{
		attribute.Int("graph.candidates", candidates),
		attribute.Bool("graph.success", success),
	}

	m.GraphLookups.Add(context.Background(), 1, metric.WithAttributes(attrs...))
}
