package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"github.com/edulearn/report-gateway/internal/models"
)

// ReportCardRenderer renders a learner report summary into a printable PDF.
type ReportCardRenderer struct {
	schoolName string
}

// NewReportCardRenderer constructs a renderer branded with the school name.
func NewReportCardRenderer(schoolName string) *ReportCardRenderer {
	if schoolName == "" {
		schoolName = "EduLearn"
	}
	return &ReportCardRenderer{schoolName: schoolName}
}

// RenderReportCard produces the report-card PDF: a branded header, the
// subject table, and the overall result block with feedback.
func (r *ReportCardRenderer) RenderReportCard(summary models.LearnerReportSummary) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, strings.ToUpper(r.schoolName)+" ACADEMIC REPORT", "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf("School Year %s", summary.SchoolYear), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(95, 7, "Learner: "+summary.StudentName, "", 0, "", false, 0, "")
	pdf.CellFormat(95, 7, "Course: "+summary.CourseName, "", 1, "", false, 0, "")
	if summary.ClassLevel != "" {
		pdf.CellFormat(95, 7, "Class Level: "+summary.ClassLevel, "", 1, "", false, 0, "")
	}
	pdf.Ln(4)

	headers := []string{"Subject", "Term 1", "Term 2", "Term 3", "Total", "Grade"}
	widths := []float64{70, 24, 24, 24, 24, 24}

	pdf.SetFont("Arial", "B", 10)
	for i, header := range headers {
		pdf.CellFormat(widths[i], 8, header, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	for _, row := range summary.Subjects {
		cells := []string{
			row.Subject,
			fmt.Sprintf("%d", row.FirstTerm),
			fmt.Sprintf("%d", row.SecondTerm),
			fmt.Sprintf("%d", row.ThirdTerm),
			fmt.Sprintf("%d", row.Total),
			row.Grade,
		}
		for i, cell := range cells {
			align := "C"
			if i == 0 {
				align = ""
			}
			pdf.CellFormat(widths[i], 7, cell, "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}
	pdf.Ln(5)

	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(0, 8, fmt.Sprintf("Overall Average: %d  -  %s", summary.OverallAverage, summary.PerformanceLevel), "", 1, "", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.MultiCell(0, 6, summary.Feedback, "", "", false)
	pdf.Ln(4)
	pdf.SetFont("Arial", "I", 8)
	pdf.CellFormat(0, 6, "Generated "+summary.GeneratedAt, "", 1, "", false, 0, "")

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render report card: %w", err)
	}
	return buf.Bytes(), nil
}
