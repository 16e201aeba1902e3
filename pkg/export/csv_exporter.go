package export

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"github.com/edulearn/report-gateway/internal/models"
)

// Dataset defines tabular export content.
type Dataset struct {
	Headers []string
	Rows    []map[string]string
}

// CSVExporter renders Dataset records into CSV bytes.
type CSVExporter struct{}

// NewCSVExporter builds a CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// Render produces CSV encoded bytes for the dataset.
func (e *CSVExporter) Render(data Dataset) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("csv requires at least one header")
	}
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	if err := writer.Write(data.Headers); err != nil {
		return nil, fmt.Errorf("write csv headers: %w", err)
	}
	for _, row := range data.Rows {
		record := make([]string, len(data.Headers))
		for i, header := range data.Headers {
			record[i] = row[header]
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

// RequestDataset flattens normalized report requests into a Dataset for the
// approver list export.
func RequestDataset(requests []models.ReportRequest) Dataset {
	headers := []string{"ID", "Student ID", "Student", "Course ID", "Course", "Status", "Decided By", "Decided Role", "Created At", "Updated At"}
	rows := make([]map[string]string, 0, len(requests))
	for _, req := range requests {
		rows = append(rows, map[string]string{
			"ID":           req.ID,
			"Student ID":   req.StudentID,
			"Student":      req.StudentName,
			"Course ID":    req.CourseID,
			"Course":       req.CourseName,
			"Status":       string(req.Status),
			"Decided By":   derefOr(req.ApprovedByName, ""),
			"Decided Role": roleOr(req.ApprovedByRole, ""),
			"Created At":   derefOr(req.CreatedAt, ""),
			"Updated At":   derefOr(req.UpdatedAt, ""),
		})
	}
	return Dataset{Headers: headers, Rows: rows}
}

func derefOr(value *string, fallback string) string {
	if value == nil {
		return fallback
	}
	return *value
}

func roleOr(value *models.ApproverRole, fallback string) string {
	if value == nil {
		return fallback
	}
	return string(*value)
}
