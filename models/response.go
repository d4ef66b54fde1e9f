package models

// Source is a deduplicated, numbered reference to exactly one document.
// Numbers are contiguous starting at 1; each filename appears in at most
// one Source.
type Source struct {
	Number   int    `json:"number"`
	Filename string `json:"filename"`
	Title    string `json:"title"`
	Preview  string `json:"preview"`
}

// TraceabilityReport summarizes how well one answer text is grounded in
// its sources. Derived per answer, never persisted.
type TraceabilityReport struct {
	TotalReferences  int   `json:"total_references"`
	ValidReferences  []int `json:"valid_references"`
	ReliabilityScore int   `json:"reliability_score"`
	HasTraceability  bool  `json:"has_traceability"`
}

// ProcessedResponse is the final answer payload after citation repair
type ProcessedResponse struct {
	Answer       string             `json:"answer"`
	Sources      []Source           `json:"sources"`
	Citations    []string           `json:"citations"`
	NumSources   int                `json:"num_sources"`
	Traceability TraceabilityReport `json:"traceability_report"`
}
