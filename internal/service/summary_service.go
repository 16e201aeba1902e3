package service

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/edulearn/report-gateway/internal/models"
	"github.com/edulearn/report-gateway/internal/normalize"
)

// The summary builder is a pure transformation from raw quiz analytics to
// report-card rows. Identical input must always produce identical output so
// learner and approver views render the same report.

var subjectNameKeys = []string{"subject", "module", "lessonTitle", "quizTitle", "courseName", "title", "name"}

var baseScoreKeys = []string{"averageScore", "avgScore", "overallAverage", "percentage", "percent", "score", "total", "mean"}

type termScores struct {
	first  int
	second int
	third  int
}

// ClampScore rounds and clamps a raw value into the 0-100 score range.
func ClampScore(value float64) int {
	rounded := int(math.Round(value))
	if rounded < 0 {
		return 0
	}
	if rounded > 100 {
		return 100
	}
	return rounded
}

// GetGradeFromScore maps a 0-100 total to a letter grade.
func GetGradeFromScore(score int) string {
	switch {
	case score >= 85:
		return "A"
	case score >= 70:
		return "B"
	case score >= 55:
		return "C"
	default:
		return "D"
	}
}

// GetPerformanceLevel maps the overall average to a human performance label.
func GetPerformanceLevel(score int) string {
	switch {
	case score >= 85:
		return "Excellent"
	case score >= 70:
		return "Very Good"
	case score >= 55:
		return "Good"
	default:
		return "Needs Improvement"
	}
}

func resolveSubjectName(item map[string]any, index int) string {
	for _, key := range subjectNameKeys {
		if s := normalize.String(item[key]); s != "" {
			return s
		}
	}
	return fmt.Sprintf("Subject %d", index+1)
}

// resolveBaseScore picks a 0-100 score: an explicit percentage-like field
// first, else pass rate, else points ratio, else zero.
func resolveBaseScore(item map[string]any) int {
	for _, key := range baseScoreKeys {
		if value, ok := normalize.Number(item[key]); ok {
			return ClampScore(value)
		}
	}

	if passed, ok := normalize.Number(item["passed"]); ok {
		if attempts, ok := normalize.Number(item["attempts"]); ok && attempts > 0 {
			return ClampScore(passed / attempts * 100)
		}
	}

	if totalScore, ok := normalize.Number(item["totalScore"]); ok {
		if totalPossible, ok := normalize.Number(item["totalPossible"]); ok && totalPossible > 0 {
			return ClampScore(totalScore / totalPossible * 100)
		}
	}

	return 0
}

func explicitTerm(item map[string]any, keys ...string) (float64, bool) {
	for _, key := range keys {
		if value, ok := normalize.Number(item[key]); ok {
			return value, true
		}
	}
	return 0, false
}

// resolveTermScores uses explicit term fields when all three are present;
// otherwise three terms are synthesized from the base score with a small
// positional drift so generated reports do not look uniform. The drift is a
// display heuristic, not a measurement.
func resolveTermScores(item map[string]any, index int) termScores {
	first, okFirst := explicitTerm(item, "firstTerm", "term1", "first", "semester1")
	second, okSecond := explicitTerm(item, "secondTerm", "term2", "second", "semester2")
	third, okThird := explicitTerm(item, "thirdTerm", "term3", "third", "semester3")

	if okFirst && okSecond && okThird {
		return termScores{ClampScore(first), ClampScore(second), ClampScore(third)}
	}

	base := float64(resolveBaseScore(item))
	drift := float64(index%3 - 1)
	return termScores{
		first:  ClampScore(base - 4 + drift),
		second: ClampScore(base + drift),
		third:  ClampScore(base + 4 + drift),
	}
}

// BuildSubjectRows groups analytics entries by resolved subject, averages
// each term independently per subject, and maps totals to grades. When no
// analytics resolve at all, fallback subjects produce zeroed rows so the
// report still has a body. Rows come back sorted by subject name.
func BuildSubjectRows(analytics []any, fallbackSubjects []string) []models.ReportSubjectRow {
	grouped := map[string][]termScores{}

	for index, entry := range analytics {
		item := normalize.Record(entry)
		subject := resolveSubjectName(item, index)
		grouped[subject] = append(grouped[subject], resolveTermScores(item, index))
	}

	if len(grouped) == 0 {
		for index, subject := range fallbackSubjects {
			safe := strings.TrimSpace(subject)
			if safe == "" {
				safe = fmt.Sprintf("Subject %d", index+1)
			}
			grouped[safe] = []termScores{{}}
		}
	}

	rows := make([]models.ReportSubjectRow, 0, len(grouped))
	for subject, values := range grouped {
		firstTerm := ClampScore(averageOf(values, func(t termScores) int { return t.first }))
		secondTerm := ClampScore(averageOf(values, func(t termScores) int { return t.second }))
		thirdTerm := ClampScore(averageOf(values, func(t termScores) int { return t.third }))
		total := ClampScore(float64(firstTerm+secondTerm+thirdTerm) / 3)

		rows = append(rows, models.ReportSubjectRow{
			Subject:    subject,
			FirstTerm:  firstTerm,
			SecondTerm: secondTerm,
			ThirdTerm:  thirdTerm,
			Total:      total,
			Grade:      GetGradeFromScore(total),
		})
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].Subject < rows[j].Subject })
	return rows
}

// CalculateOverallAverage is the mean of the subject totals, clamped.
func CalculateOverallAverage(subjects []models.ReportSubjectRow) int {
	if len(subjects) == 0 {
		return 0
	}
	sum := 0
	for _, subject := range subjects {
		sum += subject.Total
	}
	return ClampScore(float64(sum) / float64(len(subjects)))
}

// BuildFeedbackComment produces the report-card feedback sentence, naming
// the strongest and weakest subject according to the performance level.
func BuildFeedbackComment(subjects []models.ReportSubjectRow, performanceLevel string) string {
	if len(subjects) == 0 {
		return "No assessment data is available yet. Complete quizzes to generate your academic feedback."
	}

	strongest := subjects[0]
	weakest := subjects[0]
	for _, subject := range subjects[1:] {
		if subject.Total > strongest.Total {
			strongest = subject
		}
		if subject.Total < weakest.Total {
			weakest = subject
		}
	}

	switch performanceLevel {
	case "Excellent":
		return fmt.Sprintf("The learner has shown strong progress in %s and maintains outstanding consistency across subjects.", strongest.Subject)
	case "Very Good":
		return fmt.Sprintf("The learner performs very well overall, especially in %s. More revision in %s can raise performance further.", strongest.Subject, weakest.Subject)
	case "Good":
		return fmt.Sprintf("The learner demonstrates steady progress. Targeted practice in %s will help move from good to very good performance.", weakest.Subject)
	default:
		return fmt.Sprintf("The learner needs additional support, particularly in %s. Focused weekly practice and instructor guidance are recommended.", weakest.Subject)
	}
}

// FormatReportDate renders an ISO-ish timestamp for display, with N/A for
// anything unparseable.
func FormatReportDate(value *string) string {
	if value == nil || *value == "" {
		return "N/A"
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, *value); err == nil {
			return t.Format("1/2/2006")
		}
	}
	return "N/A"
}

// SchoolYearLabel renders the academic year containing the reference date;
// the school year rolls over in August.
func SchoolYearLabel(reference time.Time) string {
	year := reference.Year()
	if reference.Month() >= time.August {
		return fmt.Sprintf("%d/%d", year, year+1)
	}
	return fmt.Sprintf("%d/%d", year-1, year)
}

func averageOf(values []termScores, pick func(termScores) int) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0
	for _, value := range values {
		sum += pick(value)
	}
	return float64(sum) / float64(len(values))
}
