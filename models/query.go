package models

// QueryType selects the processing branch for a query
type QueryType string

const (
	QueryTypeDocumentSearch QueryType = "document_search"
	QueryTypeDataAnalysis   QueryType = "data_analysis"
	QueryTypeHybrid         QueryType = "hybrid"
)

// QueryRequest is the payload accepted by the query endpoint
type QueryRequest struct {
	Query     string `json:"query" binding:"required"`
	SessionID string `json:"session_id,omitempty"`
	TopK      int    `json:"top_k,omitempty"`
	FileID    string `json:"file_id,omitempty"`
}

// QueryResult is the tagged result returned by the unified agent. The
// branch fields matching Type are set, the others are nil: document_search
// sets DocumentSearch, data_analysis sets DataAnalysis, hybrid sets both.
type QueryResult struct {
	Type           QueryType           `json:"query_type"`
	SessionID      string              `json:"session_id,omitempty"`
	DocumentSearch *ProcessedResponse  `json:"document_search,omitempty"`
	DataAnalysis   *DataAnalysisResult `json:"data_analysis,omitempty"`
}
