package models

import "time"

// CorpusStats summarizes the indexed corpus across both stores
type CorpusStats struct {
	Papers          int64     `json:"papers"`
	Chunks          int64     `json:"chunks"`
	Authors         int64     `json:"authors"`
	Concepts        int64     `json:"concepts"`
	Authorships     int64     `json:"authorships"`
	Topics          int64     `json:"topics"`
	TokensUsedToday int       `json:"tokens_used_today"`
	RefreshedAt     time.Time `json:"refreshed_at"`
}
