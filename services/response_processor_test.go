package services

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"basin-research-platform/models"
)

func scoredChunk(filename, title, text string) models.ScoredChunk {
	return models.ScoredChunk{
		Chunk: models.Chunk{
			ChunkID:  filename + "-chunk",
			PaperID:  filename + "-paper",
			Filename: filename,
			Title:    title,
			Text:     text,
		},
		Score:  0.5,
		Origin: models.ScoreOriginRerank,
	}
}

func TestProcessResponseDropsOutOfRangeMarkers(t *testing.T) {
	p := NewResponseProcessor()
	chunks := []models.ScoredChunk{
		scoredChunk("a.pdf", "Paper A", "chlorophyll and turbidity"),
		scoredChunk("b.pdf", "Paper B", "spectral index design"),
		scoredChunk("c.pdf", "Paper C", "lake water sampling"),
	}

	answer := "NDCI measures chlorophyll [1]. It was defined by Mishra [7]."
	resp := p.ProcessResponse(answer, chunks)

	assert.NotContains(t, resp.Answer, "[7]")
	assert.Contains(t, resp.Answer, "[1]")
	assert.Equal(t, 3, resp.NumSources)
	assert.Equal(t, 2, resp.Traceability.TotalReferences)
	assert.Equal(t, []int{1}, resp.Traceability.ValidReferences)
	assert.Equal(t, 80, resp.Traceability.ReliabilityScore)
	assert.True(t, resp.Traceability.HasTraceability)
}

func TestProcessResponseEmptyEvidence(t *testing.T) {
	p := NewResponseProcessor()

	resp := p.ProcessResponse("No relevant sources were found.", nil)

	assert.Equal(t, 0, resp.NumSources)
	assert.Empty(t, resp.Sources)
	assert.Empty(t, resp.Citations)
	assert.Equal(t, 20, resp.Traceability.ReliabilityScore)
	assert.False(t, resp.Traceability.HasTraceability)
	assert.Zero(t, resp.Traceability.TotalReferences)
}

func TestProcessResponseKnownBadTitleOverride(t *testing.T) {
	p := NewResponseProcessor()
	chunks := []models.ScoredChunk{
		scoredChunk("v17s1a3.pdf", "", "texto del documento"),
	}

	resp := p.ProcessResponse("answer [1]", chunks)

	require.Len(t, resp.Sources, 1)
	assert.Equal(t, "Análisis multimétrico para evaluar contaminación en el río Lerma y lago de Chapala, México",
		resp.Sources[0].Title)
}

func TestProcessResponseBrokenTitleFallsBackToFilename(t *testing.T) {
	p := NewResponseProcessor()

	cases := map[string]string{
		"empty":     "",
		"sin":       "Sin título",
		"indd":      "cuenca_maqueta.indd",
		"formados":  "12 formados finales",
		"untouched": "A Real Title",
	}

	for name, title := range cases {
		t.Run(name, func(t *testing.T) {
			chunks := []models.ScoredChunk{scoredChunk("gestion_del_agua.pdf", title, "texto")}
			resp := p.ProcessResponse("x", chunks)

			require.Len(t, resp.Sources, 1)
			if name == "untouched" {
				assert.Equal(t, "A Real Title", resp.Sources[0].Title)
			} else {
				assert.Equal(t, "Gestion Del Agua", resp.Sources[0].Title)
			}
		})
	}
}

func TestProcessResponseNumberingContiguous(t *testing.T) {
	p := NewResponseProcessor()
	chunks := []models.ScoredChunk{
		scoredChunk("a.pdf", "A", "one"),
		scoredChunk("b.pdf", "B", "two"),
		scoredChunk("a.pdf", "A", "one again"),
		scoredChunk("c.pdf", "C", "three"),
	}

	resp := p.ProcessResponse("x", chunks)

	require.Len(t, resp.Sources, 3)
	for i, source := range resp.Sources {
		assert.Equal(t, i+1, source.Number)
	}
	assert.Equal(t, []string{"a.pdf", "b.pdf", "c.pdf"},
		[]string{resp.Sources[0].Filename, resp.Sources[1].Filename, resp.Sources[2].Filename})
	assert.Len(t, resp.Citations, 3)
	assert.Contains(t, resp.Citations[0], "[1]")
}

func TestRepairIdempotent(t *testing.T) {
	p := NewResponseProcessor()
	answer := "claims [0] and [1] and [2] and [9] and [notanumber]"

	once := p.repairReferences(answer, 2)
	twice := p.repairReferences(once, 2)

	assert.Equal(t, once, twice)
	assert.NotContains(t, once, "[0]")
	assert.NotContains(t, once, "[9]")
	assert.Contains(t, once, "[1]")
	assert.Contains(t, once, "[2]")
	// Non-numeric brackets are not reference markers and stay put.
	assert.Contains(t, once, "[notanumber]")
}

func TestReliabilityBounds(t *testing.T) {
	p := NewResponseProcessor()

	chunks := make([]models.ScoredChunk, 0, 5)
	for i := 0; i < 5; i++ {
		chunks = append(chunks, scoredChunk(fmt.Sprintf("f%d.pdf", i), "T", "text"))
	}

	// 1 distinct valid marker -> 80, 2 -> 100, more stays capped.
	for distinct, want := range map[int]int{1: 80, 2: 100, 3: 100, 5: 100} {
		var b strings.Builder
		for n := 1; n <= distinct; n++ {
			fmt.Fprintf(&b, "claim [%d]. ", n)
		}
		resp := p.ProcessResponse(b.String(), chunks)
		assert.Equal(t, want, resp.Traceability.ReliabilityScore, "distinct=%d", distinct)
	}

	// No valid markers at all -> floor of 20.
	resp := p.ProcessResponse("nothing cited here", chunks)
	assert.Equal(t, 20, resp.Traceability.ReliabilityScore)
}

func TestPreviewTruncation(t *testing.T) {
	p := NewResponseProcessor()

	long := strings.Repeat("á", 400)
	resp := p.ProcessResponse("x", []models.ScoredChunk{scoredChunk("a.pdf", "A", long)})
	require.Len(t, resp.Sources, 1)
	preview := resp.Sources[0].Preview
	assert.True(t, strings.HasSuffix(preview, "..."))
	assert.Equal(t, 150, len([]rune(strings.TrimSuffix(preview, "..."))))

	short := "short text"
	resp = p.ProcessResponse("x", []models.ScoredChunk{scoredChunk("b.pdf", "B", short)})
	assert.Equal(t, "short text...", resp.Sources[0].Preview)
}
