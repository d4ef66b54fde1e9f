package services

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"basin-research-platform/models"
)

// Inline reference markers like [3]
var refMarkerPattern = regexp.MustCompile(`\[(\d+)\]`)

// Extracted titles for these files are garbage in the source PDFs, the
// corrected strings come from the publishers.
var knownBadTitles = map[string]string{
	"v17s1a3.pdf":                       "Análisis multimétrico para evaluar contaminación en el río Lerma y lago de Chapala, México",
	"v70n1a3.pdf":                       "Gestión integrada del agua en la cuenca Lerma-Chapala-Santiago",
	"annurev-ecolsys-120213-091935.pdf": "Ecological Restoration of Streams and Rivers: Shifting Strategies and Shifting Goals",
}

const previewLength = 150

var filenameTitleCaser = cases.Title(language.Und)

// titleFromFilename turns "cuenca_lerma_2019.pdf" into "Cuenca Lerma 2019".
func titleFromFilename(filename string) string {
	base := strings.TrimSuffix(filename, ".pdf")
	base = strings.ReplaceAll(base, "_", " ")
	return filenameTitleCaser.String(base)
}

// ResponseProcessor validates and repairs LLM answers against the evidence
// they were generated from: it numbers deduplicated sources, deletes
// reference markers pointing outside the evidence, and scores how well the
// answer is grounded.
type ResponseProcessor struct{}

func NewResponseProcessor() *ResponseProcessor {
	return &ResponseProcessor{}
}

// ProcessResponse turns a raw LLM answer plus the retrieved evidence into
// the final answer payload. The chunk list is deduplicated per filename
// here even though retrieval usually already did that; some call paths
// bypass the diversity filter and double numbering would corrupt citations.
func (p *ResponseProcessor) ProcessResponse(answer string, chunks []models.ScoredChunk) models.ProcessedResponse {
	sources := p.buildSources(chunks)

	// Reference totals are counted before repair: an answer that cited
	// anything at all, even wrongly, still attempted traceability.
	totalRefs := len(refMarkerPattern.FindAllString(answer, -1))

	cleaned := p.repairReferences(answer, len(sources))
	validRefs := p.validReferences(cleaned, len(sources))

	reliability := 20
	if len(validRefs) > 0 {
		reliability = 60 + 20*len(validRefs)
		if reliability > 100 {
			reliability = 100
		}
	}

	citations := make([]string, 0, len(sources))
	for _, source := range sources {
		citations = append(citations, fmt.Sprintf("[%d] %s (%s)", source.Number, source.Title, source.Filename))
	}

	return models.ProcessedResponse{
		Answer:     cleaned,
		Sources:    sources,
		Citations:  citations,
		NumSources: len(sources),
		Traceability: models.TraceabilityReport{
			TotalReferences:  totalRefs,
			ValidReferences:  validRefs,
			ReliabilityScore: reliability,
			HasTraceability:  totalRefs > 0,
		},
	}
}

// buildSources keeps the first chunk per distinct filename, in order, and
// numbers the survivors contiguously from 1
func (p *ResponseProcessor) buildSources(chunks []models.ScoredChunk) []models.Source {
	sources := make([]models.Source, 0, len(chunks))
	seen := make(map[string]struct{}, len(chunks))

	for _, chunk := range chunks {
		if _, dup := seen[chunk.Filename]; dup {
			continue
		}
		seen[chunk.Filename] = struct{}{}

		sources = append(sources, models.Source{
			Number:   len(sources) + 1,
			Filename: chunk.Filename,
			Title:    p.displayTitle(chunk.Filename, chunk.Title),
			Preview:  preview(chunk.Text),
		})
	}

	return sources
}

// displayTitle resolves the title shown for a source: the override table
// wins, otherwise the extracted title unless it looks broken, otherwise a
// title-cased filename.
func (p *ResponseProcessor) displayTitle(filename, extracted string) string {
	if fixed, ok := knownBadTitles[filename]; ok {
		return fixed
	}
	if isBadTitle(extracted) {
		return titleFromFilename(filename)
	}
	return extracted
}

func isBadTitle(title string) bool {
	title = strings.TrimSpace(title)
	return title == "" ||
		title == "Sin título" ||
		strings.HasSuffix(title, ".indd") ||
		strings.Contains(title, "formados")
}

func preview(text string) string {
	runes := []rune(text)
	if len(runes) > previewLength {
		runes = runes[:previewLength]
	}
	return string(runes) + "..."
}

// repairReferences deletes every marker whose number falls outside
// 1..numSources. In-range markers are untouched, so the repair is
// idempotent: cleaning already-clean text changes nothing.
func (p *ResponseProcessor) repairReferences(answer string, numSources int) string {
	return refMarkerPattern.ReplaceAllStringFunc(answer, func(marker string) string {
		digits := marker[1 : len(marker)-1]
		n, err := strconv.Atoi(digits)
		if err != nil || n < 1 || n > numSources {
			// Overflowing or out-of-range numbers are model noise, drop them.
			return ""
		}
		return marker
	})
}

// validReferences returns the distinct in-range markers present in cleaned
// text, ascending
func (p *ResponseProcessor) validReferences(cleaned string, numSources int) []int {
	found := make(map[int]struct{})
	for _, match := range refMarkerPattern.FindAllStringSubmatch(cleaned, -1) {
		n, err := strconv.Atoi(match[1])
		if err != nil {
			continue
		}
		if n >= 1 && n <= numSources {
			found[n] = struct{}{}
		}
	}

	valid := make([]int, 0, len(found))
	for n := range found {
		valid = append(valid, n)
	}
	sort.Ints(valid)
	return valid
}
