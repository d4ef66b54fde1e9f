package models

// ColumnStats holds descriptive statistics for one numeric column
type ColumnStats struct {
	Name   string  `json:"name"`
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	StdDev float64 `json:"std_dev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Q1     float64 `json:"q1"`
	Q3     float64 `json:"q3"`
}

// Correlation is the Pearson correlation between two numeric columns
type Correlation struct {
	ColumnA     string  `json:"column_a"`
	ColumnB     string  `json:"column_b"`
	Coefficient float64 `json:"coefficient"`
}

// DataAnalysisResult is the data_analysis branch payload
type DataAnalysisResult struct {
	Summary        string        `json:"summary"`
	Filename       string        `json:"filename"`
	RowCount       int           `json:"row_count"`
	Columns        []ColumnStats `json:"columns"`
	Correlations   []Correlation `json:"correlations,omitempty"`
	SkippedColumns []string      `json:"skipped_columns,omitempty"`
}
