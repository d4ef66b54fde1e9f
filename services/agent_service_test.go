package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"basin-research-platform/models"
)

type stubAnswerer struct {
	mu    sync.Mutex
	resp  *models.ProcessedResponse
	err   error
	calls int
}

func (f *stubAnswerer) Answer(ctx context.Context, query string, topK int) (*models.ProcessedResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

type stubAnalyzer struct {
	mu           sync.Mutex
	result       *models.DataAnalysisResult
	err          error
	calls        int
	lastPath     string
	lastFilename string
	lastQuery    string
}

func (f *stubAnalyzer) Analyze(ctx context.Context, filePath, filename, query string) (*models.DataAnalysisResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastPath = filePath
	f.lastFilename = filename
	f.lastQuery = query
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type stubDatasets struct {
	mu     sync.Mutex
	ds     *models.Dataset
	err    error
	calls  int
	lastID string
}

func (f *stubDatasets) Get(ctx context.Context, datasetID string) (*models.Dataset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastID = datasetID
	if f.err != nil {
		return nil, f.err
	}
	return f.ds, nil
}

type recordingSessions struct {
	mu        sync.Mutex
	ensureErr error
	appendErr error
	cacheErr  error
	appended  []models.SessionQuery
	cached    []*models.QueryResult
}

func (f *recordingSessions) EnsureSession(ctx context.Context, sessionID string) (string, error) {
	if f.ensureErr != nil {
		return "", f.ensureErr
	}
	if sessionID == "" {
		return "generated-session", nil
	}
	return sessionID, nil
}

func (f *recordingSessions) AppendQuery(ctx context.Context, sessionID string, entry models.SessionQuery) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.appendErr != nil {
		return f.appendErr
	}
	f.appended = append(f.appended, entry)
	return nil
}

func (f *recordingSessions) CacheAnswer(ctx context.Context, sessionID string, result *models.QueryResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cacheErr != nil {
		return f.cacheErr
	}
	f.cached = append(f.cached, result)
	return nil
}

func newTestAgent(rag *stubAnswerer, analysis *stubAnalyzer, datasets *stubDatasets, sessions *recordingSessions) *AgentService {
	return NewAgentService(rag, analysis, datasets, sessions, nil)
}

func TestHandleQueryRoutesDocumentSearch(t *testing.T) {
	rag := &stubAnswerer{resp: &models.ProcessedResponse{
		Answer:     "Restoration shifted toward process-based goals [1].",
		NumSources: 1,
		Traceability: models.TraceabilityReport{
			ReliabilityScore: 80,
		},
	}}
	analysis := &stubAnalyzer{}
	sessions := &recordingSessions{}
	agent := newTestAgent(rag, analysis, &stubDatasets{}, sessions)

	result, err := agent.HandleQuery(context.Background(), models.QueryRequest{
		Query:     "who wrote the paper on river restoration",
		SessionID: "s-1",
	})

	require.NoError(t, err)
	assert.Equal(t, models.QueryTypeDocumentSearch, result.Type)
	assert.Equal(t, "s-1", result.SessionID)
	require.NotNil(t, result.DocumentSearch)
	assert.Nil(t, result.DataAnalysis)
	assert.Equal(t, 1, rag.calls)
	assert.Equal(t, 0, analysis.calls)

	require.Len(t, sessions.appended, 1)
	entry := sessions.appended[0]
	assert.Equal(t, "who wrote the paper on river restoration", entry.Query)
	assert.Equal(t, models.QueryTypeDocumentSearch, entry.QueryType)
	assert.Equal(t, rag.resp.Answer, entry.Answer)
	assert.Equal(t, 1, entry.NumSources)
	assert.Equal(t, 80, entry.ReliabilityScore)
	require.Len(t, sessions.cached, 1)
	assert.Same(t, result, sessions.cached[0])
}

func TestHandleQueryDataAnalysisNeedsFile(t *testing.T) {
	analysis := &stubAnalyzer{}
	sessions := &recordingSessions{}
	agent := newTestAgent(&stubAnswerer{}, analysis, &stubDatasets{}, sessions)

	_, err := agent.HandleQuery(context.Background(), models.QueryRequest{
		Query: "calculate the average temperature",
	})

	require.ErrorIs(t, err, ErrAnalysisNeedsFile)
	assert.Equal(t, 0, analysis.calls)
	assert.Empty(t, sessions.appended)
}

func TestHandleQueryAnalyzesUploadedDataset(t *testing.T) {
	datasets := &stubDatasets{ds: &models.Dataset{
		DatasetID: "ds-1",
		Filename:  "stations.csv",
		FilePath:  "/storage/tables/stations.csv",
	}}
	analysis := &stubAnalyzer{result: &models.DataAnalysisResult{
		Summary:  "pH is stable",
		Filename: "stations.csv",
	}}
	rag := &stubAnswerer{}
	sessions := &recordingSessions{}
	agent := newTestAgent(rag, analysis, datasets, sessions)

	result, err := agent.HandleQuery(context.Background(), models.QueryRequest{
		Query:  "tell me about these measurements",
		FileID: "ds-1",
	})

	require.NoError(t, err)
	assert.Equal(t, models.QueryTypeDataAnalysis, result.Type)
	assert.Nil(t, result.DocumentSearch)
	require.NotNil(t, result.DataAnalysis)
	assert.Equal(t, 0, rag.calls)

	assert.Equal(t, "ds-1", datasets.lastID)
	assert.Equal(t, "/storage/tables/stations.csv", analysis.lastPath)
	assert.Equal(t, "stations.csv", analysis.lastFilename)
	assert.Equal(t, "tell me about these measurements", analysis.lastQuery)

	require.Len(t, sessions.appended, 1)
	assert.Equal(t, "pH is stable", sessions.appended[0].Answer)
}

func TestHandleQueryHybridRunsDocumentSearch(t *testing.T) {
	rag := &stubAnswerer{resp: &models.ProcessedResponse{Answer: "combined view"}}
	analysis := &stubAnalyzer{}
	agent := newTestAgent(rag, analysis, &stubDatasets{}, &recordingSessions{})

	result, err := agent.HandleQuery(context.Background(), models.QueryRequest{
		Query: "compare contamination",
	})

	require.NoError(t, err)
	assert.Equal(t, models.QueryTypeHybrid, result.Type)
	require.NotNil(t, result.DocumentSearch)
	assert.Nil(t, result.DataAnalysis)
	assert.Equal(t, 0, analysis.calls)
}

func TestHandleQuerySessionEntriesAppendInAskOrder(t *testing.T) {
	rag := &stubAnswerer{resp: &models.ProcessedResponse{Answer: "first answer [1]", NumSources: 1}}
	sessions := &recordingSessions{}
	agent := newTestAgent(rag, &stubAnalyzer{}, &stubDatasets{}, sessions)

	_, err := agent.HandleQuery(context.Background(), models.QueryRequest{
		Query:     "what did the macroinvertebrate study find",
		SessionID: "s-9",
	})
	require.NoError(t, err)

	rag.resp = &models.ProcessedResponse{Answer: "second answer"}
	_, err = agent.HandleQuery(context.Background(), models.QueryRequest{
		Query:     "which rivers were sampled",
		SessionID: "s-9",
	})
	require.NoError(t, err)

	require.Len(t, sessions.appended, 2)
	assert.Equal(t, "what did the macroinvertebrate study find", sessions.appended[0].Query)
	assert.Equal(t, "which rivers were sampled", sessions.appended[1].Query)
	assert.False(t, sessions.appended[0].AskedAt.After(sessions.appended[1].AskedAt))
}

func TestHandleQueryDatasetLookupFailurePropagates(t *testing.T) {
	datasets := &stubDatasets{err: ErrDatasetNotFound}
	analysis := &stubAnalyzer{}
	agent := newTestAgent(&stubAnswerer{}, analysis, datasets, &recordingSessions{})

	_, err := agent.HandleQuery(context.Background(), models.QueryRequest{
		Query:  "summarize",
		FileID: "missing",
	})

	require.ErrorIs(t, err, ErrDatasetNotFound)
	assert.Equal(t, 0, analysis.calls)
}

func TestHandleQuerySessionSetupFailureIsFatal(t *testing.T) {
	rag := &stubAnswerer{}
	sessions := &recordingSessions{ensureErr: errors.New("mongo down")}
	agent := newTestAgent(rag, &stubAnalyzer{}, &stubDatasets{}, sessions)

	_, err := agent.HandleQuery(context.Background(), models.QueryRequest{Query: "anything"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "session setup failed")
	assert.Equal(t, 0, rag.calls)
}

func TestHandleQueryBookkeepingFailureDoesNotFailQuery(t *testing.T) {
	rag := &stubAnswerer{resp: &models.ProcessedResponse{Answer: "fine"}}
	sessions := &recordingSessions{
		appendErr: errors.New("mongo hiccup"),
		cacheErr:  errors.New("redis hiccup"),
	}
	agent := newTestAgent(rag, &stubAnalyzer{}, &stubDatasets{}, sessions)

	result, err := agent.HandleQuery(context.Background(), models.QueryRequest{Query: "anything"})

	require.NoError(t, err)
	assert.Equal(t, "generated-session", result.SessionID)
	require.NotNil(t, result.DocumentSearch)
}
