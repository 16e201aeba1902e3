package models

// ReportSubjectRow is one derived line of a report card: a subject's three
// term scores, their average, and the mapped letter grade. Rows are derived
// from quiz analytics on demand and never persisted.
type ReportSubjectRow struct {
	Subject    string `json:"subject"`
	FirstTerm  int    `json:"firstTerm"`
	SecondTerm int    `json:"secondTerm"`
	ThirdTerm  int    `json:"thirdTerm"`
	Total      int    `json:"total"`
	Grade      string `json:"grade"`
}

// LearnerReportSummary aggregates everything the report-card view renders.
type LearnerReportSummary struct {
	ReportID         string             `json:"reportId"`
	StudentName      string             `json:"studentName"`
	CourseName       string             `json:"courseName"`
	ClassLevel       string             `json:"classLevel"`
	SchoolYear       string             `json:"schoolYear"`
	GeneratedAt      string             `json:"generatedAt"`
	OverallAverage   int                `json:"overallAverage"`
	PerformanceLevel string             `json:"performanceLevel"`
	Feedback         string             `json:"feedback"`
	Subjects         []ReportSubjectRow `json:"subjects"`
	Request          *ReportRequest     `json:"request"`
}
