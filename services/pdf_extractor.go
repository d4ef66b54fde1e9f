package services

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/ledongthuc/pdf"

	"basin-research-platform/internal/logger"
	"basin-research-platform/models"
)

var yearPattern = regexp.MustCompile(`\b(19|20)\d{2}\b`)

// PDFExtractor pulls text out of research PDFs. The native Go reader is
// the primary method; pdftotext is the fallback when the native result
// looks corrupted, since scanned journal PDFs often defeat it.
type PDFExtractor struct{}

func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{}
}

// ExtractionResult carries extracted text plus extraction diagnostics.
type ExtractionResult struct {
	Text    string
	Pages   int
	Method  string
	Quality float64
}

// ExtractText extracts text from the PDF at filePath, trying methods in
// order until one produces acceptable quality.
func (e *PDFExtractor) ExtractText(ctx context.Context, filePath string) (*ExtractionResult, error) {
	stat, err := os.Stat(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat PDF file: %w", err)
	}
	if stat.Size() > 200<<20 {
		return nil, fmt.Errorf("pdf too large for in-memory extraction")
	}

	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read PDF file: %w", err)
	}

	methods := []struct {
		name    string
		extract func(context.Context, []byte) (*ExtractionResult, error)
	}{
		{"go-pdf", e.extractWithGoPDF},
		{"poppler", e.extractWithPoppler},
	}

	var lastErr error
	var best *ExtractionResult

	for _, method := range methods {
		result, err := method.extract(ctx, content)
		if err != nil {
			logger.Debug("Extraction method failed", "method", method.name, "error", err)
			lastErr = err
			continue
		}

		result.Method = method.name
		result.Quality = evaluateTextQuality(result.Text)

		if result.Quality >= 0.7 {
			return result, nil
		}
		if best == nil || result.Quality > best.Quality {
			best = result
		}
	}

	if best != nil && best.Quality >= 0.3 {
		logger.Warn("Using degraded extraction result", "method", best.Method, "quality", best.Quality)
		return best, nil
	}
	return nil, fmt.Errorf("all extraction methods failed: %v", lastErr)
}

func (e *PDFExtractor) extractWithGoPDF(_ context.Context, content []byte) (*ExtractionResult, error) {
	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("failed to create PDF reader: %w", err)
	}

	var textBuilder strings.Builder
	pages := reader.NumPage()

	for i := 1; i <= pages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		fonts := make(map[string]*pdf.Font)
		text, err := page.GetPlainText(fonts)
		if err != nil {
			continue
		}
		if i > 1 {
			textBuilder.WriteString("\f")
		}
		textBuilder.WriteString(text)
	}

	extracted := textBuilder.String()
	if len(strings.TrimSpace(extracted)) == 0 {
		return nil, fmt.Errorf("no text extracted by go-pdf")
	}
	return &ExtractionResult{Text: extracted, Pages: pages}, nil
}

func (e *PDFExtractor) extractWithPoppler(ctx context.Context, content []byte) (*ExtractionResult, error) {
	if _, err := exec.LookPath("pdftotext"); err != nil {
		return nil, fmt.Errorf("pdftotext not available")
	}

	extractCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	cmd := exec.CommandContext(extractCtx, "pdftotext", "-layout", "-", "-")
	cmd.Stdin = bytes.NewReader(content)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("pdftotext failed: %v, stderr: %s", err, stderr.String())
	}

	extracted := stdout.String()
	if len(strings.TrimSpace(extracted)) == 0 {
		return nil, fmt.Errorf("no text extracted by pdftotext")
	}
	// pdftotext separates pages with form feeds
	return &ExtractionResult{Text: extracted, Pages: strings.Count(extracted, "\f") + 1}, nil
}

// evaluateTextQuality scores extracted text by how much of it is readable
// versus replacement runes and control noise.
func evaluateTextQuality(text string) float64 {
	text = strings.TrimSpace(text)
	if len(text) < 10 {
		return 0.1
	}

	var printable, alphanumeric, corrupted int
	total := 0
	for _, r := range text {
		total++
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			alphanumeric++
			printable++
		case unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsSymbol(r):
			printable++
		case r == '�':
			corrupted++
		default:
			corrupted++
		}
	}

	score := 0.4 * float64(printable) / float64(total)
	if ratio := float64(alphanumeric) / float64(total); ratio >= 0.3 {
		score += 0.4
	} else {
		score += ratio
	}
	score -= 2.0 * float64(corrupted) / float64(total)
	if len(text) > 100 {
		score += 0.2
	}

	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// PaperMetadata is what ingestion can recover from the document text
// without a bibliography database.
type PaperMetadata struct {
	Title   string
	Year    int
	Authors []string
}

// DeriveMetadata guesses title, publication year and author names from the
// extracted text. Journal PDFs front-load all three on the first page.
func DeriveMetadata(text, filename string) PaperMetadata {
	meta := PaperMetadata{
		Title: titleFromFilename(filename),
	}

	for _, line := range strings.SplitN(text, "\n", 40) {
		if candidate := strings.TrimSpace(line); plausibleTitle(candidate) {
			meta.Title = candidate
			break
		}
	}

	if match := yearPattern.FindString(text); match != "" {
		fmt.Sscanf(match, "%d", &meta.Year)
	}

	meta.Authors = ExtractEntities(firstPage(text)).Authors
	return meta
}

// plausibleTitle rejects the typesetting artifacts that show up as first
// lines in this corpus: page headers, ".indd" file stamps, print-shop
// notes and bare numbers.
func plausibleTitle(line string) bool {
	if len(line) < 16 {
		return false
	}
	lower := strings.ToLower(line)
	if strings.HasSuffix(lower, ".indd") || strings.Contains(lower, "formados") {
		return false
	}
	if line[0] >= '0' && line[0] <= '9' {
		return false
	}
	return true
}

func firstPage(text string) string {
	if i := strings.IndexByte(text, '\f'); i > 0 {
		return text[:i]
	}
	if len(text) > 3000 {
		return text[:3000]
	}
	return text
}

// CreateChunks splits text into word windows of chunkSize words with the
// given overlap, positions numbered from 0.
func (e *PDFExtractor) CreateChunks(text string, chunkSize, overlap int) []models.PaperChunk {
	if chunkSize <= 0 {
		chunkSize = 512
	}
	if overlap < 0 || overlap >= chunkSize {
		overlap = 50
	}

	words := strings.Fields(text)
	var chunks []models.PaperChunk

	for i := 0; i < len(words); {
		end := i + chunkSize
		if end > len(words) {
			end = len(words)
		}

		chunks = append(chunks, models.PaperChunk{
			ChunkID:  uuid.NewString(),
			Text:     strings.Join(words[i:end], " "),
			Position: len(chunks),
		})

		if end >= len(words) {
			break
		}
		next := end - overlap
		if next <= i {
			next = i + 1
		}
		i = next
	}

	return chunks
}
