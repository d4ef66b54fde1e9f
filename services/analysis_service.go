package services

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/montanaflynn/stats"
	"github.com/xuri/excelize/v2"

	"basin-research-platform/internal/ai"
	"basin-research-platform/models"
)

// ErrBadTable marks tables that parsed but cannot be analyzed, as opposed
// to infrastructure failures.
var ErrBadTable = errors.New("table cannot be analyzed")

// AnalysisService computes descriptive statistics over uploaded tabular
// files and summarizes them through the completion model. Non-numeric
// columns are skipped, not errors.
type AnalysisService struct {
	llm completionClient
}

func NewAnalysisService(llm completionClient) *AnalysisService {
	return &AnalysisService{llm: llm}
}

// Analyze loads a .csv or .xlsx file, computes per-column statistics and
// pairwise correlations when the query asks for them, and returns the
// tagged data-analysis result with a model-written summary.
func (s *AnalysisService) Analyze(ctx context.Context, filePath, filename, query string) (*models.DataAnalysisResult, error) {
	header, rows, err := loadTable(filePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadTable, err)
	}
	if len(header) == 0 {
		return nil, fmt.Errorf("%w: %s has no header row", ErrBadTable, filename)
	}

	columns, skipped := parseNumericColumns(header, rows)
	if len(columns) == 0 {
		return nil, fmt.Errorf("%w: %s has no numeric columns", ErrBadTable, filename)
	}

	result := &models.DataAnalysisResult{
		Filename:       filename,
		RowCount:       len(rows),
		SkippedColumns: skipped,
	}

	for _, col := range columns {
		colStats, err := describeColumn(col)
		if err != nil {
			result.SkippedColumns = append(result.SkippedColumns, col.name)
			continue
		}
		result.Columns = append(result.Columns, colStats)
	}

	if wantsCorrelation(query) {
		result.Correlations = correlate(columns)
	}

	summary, err := s.llm.Complete(ctx, ai.BuildAnalysisPrompt(query, filename, formatStatsTable(result)))
	if err != nil {
		return nil, fmt.Errorf("analysis summary failed: %w", err)
	}
	result.Summary = strings.TrimSpace(summary)

	return result, nil
}

// numericColumn keeps values row-aligned, NaN marks cells that did not
// parse, so correlations can pair rows across columns.
type numericColumn struct {
	name   string
	values []float64
}

func loadTable(filePath string) ([]string, [][]string, error) {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".csv":
		return loadCSV(filePath)
	case ".xlsx":
		return loadExcel(filePath)
	default:
		return nil, nil, fmt.Errorf("unsupported table format: %s", filepath.Ext(filePath))
	}
}

func loadCSV(filePath string) ([]string, [][]string, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(records) == 0 {
		return nil, nil, nil
	}
	return records[0], records[1:], nil
}

func loadExcel(filePath string) ([]string, [][]string, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, fmt.Errorf("workbook has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, nil, err
	}
	if len(rows) == 0 {
		return nil, nil, nil
	}
	return rows[0], rows[1:], nil
}

// parseNumericColumns keeps columns where at least half of the non-empty
// cells parse as numbers
func parseNumericColumns(header []string, rows [][]string) ([]numericColumn, []string) {
	columns := make([]numericColumn, 0, len(header))
	skipped := []string{}

	for j, name := range header {
		name = strings.TrimSpace(name)
		if name == "" {
			name = fmt.Sprintf("column_%d", j+1)
		}

		values := make([]float64, len(rows))
		parsed, nonEmpty := 0, 0
		for i, row := range rows {
			values[i] = math.NaN()
			if j >= len(row) {
				continue
			}
			cell := strings.TrimSpace(row[j])
			if cell == "" {
				continue
			}
			nonEmpty++
			if v, err := strconv.ParseFloat(strings.ReplaceAll(cell, ",", "."), 64); err == nil {
				values[i] = v
				parsed++
			}
		}

		if parsed == 0 || parsed*2 < nonEmpty {
			skipped = append(skipped, name)
			continue
		}
		columns = append(columns, numericColumn{name: name, values: values})
	}

	return columns, skipped
}

func describeColumn(col numericColumn) (models.ColumnStats, error) {
	data := stats.Float64Data{}
	for _, v := range col.values {
		if !math.IsNaN(v) {
			data = append(data, v)
		}
	}
	if len(data) == 0 {
		return models.ColumnStats{}, fmt.Errorf("column %s is empty", col.name)
	}

	mean, err := stats.Mean(data)
	if err != nil {
		return models.ColumnStats{}, err
	}
	median, err := stats.Median(data)
	if err != nil {
		return models.ColumnStats{}, err
	}
	stdDev, _ := stats.StandardDeviation(data)
	min, _ := stats.Min(data)
	max, _ := stats.Max(data)
	q1, _ := stats.Percentile(data, 25)
	q3, _ := stats.Percentile(data, 75)

	return models.ColumnStats{
		Name:   col.name,
		Count:  len(data),
		Mean:   mean,
		Median: median,
		StdDev: stdDev,
		Min:    min,
		Max:    max,
		Q1:     q1,
		Q3:     q3,
	}, nil
}

func wantsCorrelation(query string) bool {
	q := strings.ToLower(query)
	return strings.Contains(q, "correlat") || strings.Contains(q, "relationship")
}

// correlate computes Pearson coefficients for every column pair over the
// rows where both cells parsed
func correlate(columns []numericColumn) []models.Correlation {
	correlations := []models.Correlation{}

	for a := 0; a < len(columns); a++ {
		for b := a + 1; b < len(columns); b++ {
			var xs, ys stats.Float64Data
			for i := range columns[a].values {
				x, y := columns[a].values[i], columns[b].values[i]
				if math.IsNaN(x) || math.IsNaN(y) {
					continue
				}
				xs = append(xs, x)
				ys = append(ys, y)
			}
			if len(xs) < 3 {
				continue
			}

			coefficient, err := stats.Pearson(xs, ys)
			if err != nil || math.IsNaN(coefficient) {
				continue
			}
			correlations = append(correlations, models.Correlation{
				ColumnA:     columns[a].name,
				ColumnB:     columns[b].name,
				Coefficient: coefficient,
			})
		}
	}

	return correlations
}

func formatStatsTable(result *models.DataAnalysisResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Rows: %d\n\n", result.RowCount)
	for _, col := range result.Columns {
		fmt.Fprintf(&b, "%s: count=%d mean=%.3f median=%.3f std=%.3f min=%.3f max=%.3f q1=%.3f q3=%.3f\n",
			col.Name, col.Count, col.Mean, col.Median, col.StdDev, col.Min, col.Max, col.Q1, col.Q3)
	}
	for _, corr := range result.Correlations {
		fmt.Fprintf(&b, "correlation(%s, %s)=%.3f\n", corr.ColumnA, corr.ColumnB, corr.Coefficient)
	}
	return b.String()
}
