package models

// Chunk is the read-only view of an indexed passage used by the retrieval
// pipeline. Populated from the vector store, never written back.
type Chunk struct {
	ChunkID  string `json:"chunk_id"`
	PaperID  string `json:"paper_id"`
	Filename string `json:"filename"`
	Title    string `json:"title"`
	Text     string `json:"text"`
	Position int    `json:"position"`
}

// ScoreOrigin tags which stage produced a ScoredChunk's score
type ScoreOrigin string

const (
	ScoreOriginVector ScoreOrigin = "vector"
	ScoreOriginRerank ScoreOrigin = "rerank"
)

// ScoredChunk pairs a chunk with a relevance score. Transient, it exists
// only within one retrieval call.
type ScoredChunk struct {
	Chunk
	Score  float64     `json:"score"`
	Origin ScoreOrigin `json:"origin"`
}

// EntitySet is the transient bag of entities extracted from one query.
// Never persisted.
type EntitySet struct {
	Authors  []string `json:"authors"`
	Concepts []string `json:"concepts"`
	Keywords []string `json:"keywords"`
}

// IsEmpty reports whether no entities were extracted
func (e EntitySet) IsEmpty() bool {
	return len(e.Authors) == 0 && len(e.Concepts) == 0 && len(e.Keywords) == 0
}
