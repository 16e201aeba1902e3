// Package normalize coerces the legacy backend's many report-request payload
// shapes into the canonical models.ReportRequest. Field names and nesting
// differ across backend versions, so every field is resolved through an
// ordered rule table with explicit sentinel fallbacks. All functions are pure:
// no I/O, no mutation of the input, deterministic output.
package normalize

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/edulearn/report-gateway/internal/models"
)

// Per-field key tables, tried in priority order. Kept separate from the
// workflow logic so a new backend shape only touches this file.
var (
	idKeys        = []string{"id", "_id", "requestId", "request_id"}
	studentIDKeys = []string{"studentId", "student_id", "learnerId", "learner_id"}
	nestedIDKeys  = []string{"id", "_id", "studentId", "student_id", "learnerId", "learner_id"}

	studentNameKeys = []string{"studentName", "student_name", "learnerName", "learner_name"}
	personNameKeys  = []string{"name", "fullName", "full_name", "displayName", "display_name"}

	courseIDKeys       = []string{"courseId", "course_id"}
	nestedCourseIDKeys = []string{"id", "_id", "courseId", "course_id"}
	lessonIDKeys       = []string{"lessonId", "lesson_id"}
	nestedLessonIDKeys = []string{"id", "_id", "lessonId", "lesson_id"}

	courseNameKeys       = []string{"courseName", "course_name"}
	nestedCourseNameKeys = []string{"name", "title", "courseName", "course_name"}
	lessonTitleKeys      = []string{"lessonTitle", "lesson_title"}
	nestedLessonTitles   = []string{"name", "title", "lessonTitle", "lesson_title"}
	quizTitleKeys        = []string{"title", "quizTitle", "quiz_title"}

	approvedByKeys     = []string{"approvedBy", "approved_by", "actionBy", "action_by"}
	approvedByNameKeys = []string{"approvedByName", "approved_by_name", "actionByName", "action_by_name", "reviewedByName", "reviewed_by_name"}
	approverRoleKeys   = []string{"approvedByRole", "approved_by_role", "actionByRole", "action_by_role", "reviewedByRole", "reviewed_by_role"}

	createdAtKeys = []string{"createdAt", "created_at", "requestedAt", "requested_at"}
	updatedAtKeys = []string{"updatedAt", "updated_at", "reviewedAt", "reviewed_at"}
)

// Record views an arbitrary JSON value as a string-keyed object, yielding an
// empty map for anything else.
func Record(value any) map[string]any {
	if m, ok := value.(map[string]any); ok {
		return m
	}
	return map[string]any{}
}

// String coerces strings and finite numbers to a trimmed non-empty string.
func String(value any) string {
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return ""
		}
		if v == math.Trunc(v) {
			return fmt.Sprintf("%d", int64(v))
		}
		return fmt.Sprintf("%v", v)
	case int:
		return fmt.Sprintf("%d", v)
	case int64:
		return fmt.Sprintf("%d", v)
	default:
		return ""
	}
}

// Number extracts a finite numeric value, accepting numeric strings.
func Number(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, false
		}
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil || math.IsNaN(parsed) || math.IsInf(parsed, 0) {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}

func pickString(record map[string]any, keys []string) string {
	for _, key := range keys {
		if s := String(record[key]); s != "" {
			return s
		}
	}
	return ""
}

// buildName resolves a display name from a nested person object: explicit
// name fields first, else firstName + lastName.
func buildName(record map[string]any) string {
	if direct := pickString(record, personNameKeys); direct != "" {
		return direct
	}
	first := pickString(record, []string{"firstName", "first_name"})
	last := pickString(record, []string{"lastName", "last_name"})
	return strings.TrimSpace(first + " " + last)
}

// Status uppercases and restricts the value to the three lifecycle states.
// Anything else, including absence, defaults to PENDING.
func Status(value any) models.ReportRequestStatus {
	s := models.ReportRequestStatus(strings.ToUpper(String(value)))
	if models.ValidStatus(s) {
		return s
	}
	return models.ReportStatusPending
}

func approverRole(value any) *models.ApproverRole {
	switch strings.ToUpper(String(value)) {
	case string(models.ApproverRoleAdmin):
		role := models.ApproverRoleAdmin
		return &role
	case string(models.ApproverRoleInstructor):
		role := models.ApproverRoleInstructor
		return &role
	default:
		return nil
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// either returns the first key in record whose value is non-nil.
func either(record map[string]any, keys ...string) any {
	for _, key := range keys {
		if v, ok := record[key]; ok && v != nil {
			return v
		}
	}
	return nil
}

// Request normalizes an arbitrary JSON value into a fully-populated
// ReportRequest. No field is ever missing: unresolved strings fall back to
// sentinel values and the status defaults to PENDING.
func Request(value any) models.ReportRequest {
	record := Record(value)

	student := Record(record["student"])
	learner := Record(record["learner"])
	course := Record(record["course"])
	approver := Record(record["approver"])
	user := Record(record["user"])
	requestedBy := Record(either(record, "requestedBy", "requested_by"))
	createdBy := Record(either(record, "createdBy", "created_by"))
	studentFromID := Record(either(record, "studentId", "student_id"))
	learnerFromID := Record(either(record, "learnerId", "learner_id"))
	courseFromID := Record(either(record, "courseId", "course_id"))
	lesson := Record(record["lesson"])
	lessonFromID := Record(either(record, "lessonId", "lesson_id"))
	quiz := Record(record["quiz"])
	quizLesson := Record(quiz["lesson"])
	quizCourse := Record(quiz["course"])

	id := pickString(record, idKeys)

	studentID := firstNonEmpty(
		pickString(record, studentIDKeys),
		pickString(student, nestedIDKeys),
		pickString(learner, nestedIDKeys),
		pickString(studentFromID, nestedIDKeys),
		pickString(learnerFromID, nestedIDKeys),
		pickString(user, []string{"id", "_id"}),
		pickString(requestedBy, []string{"id", "_id"}),
		pickString(createdBy, []string{"id", "_id"}),
	)

	studentName := firstNonEmpty(
		pickString(record, studentNameKeys),
		buildName(student),
		buildName(learner),
		buildName(studentFromID),
		buildName(learnerFromID),
		buildName(user),
		buildName(requestedBy),
		buildName(createdBy),
		studentID,
		models.UnknownLearnerName,
	)

	courseID := firstNonEmpty(
		pickString(record, courseIDKeys),
		pickString(course, nestedCourseIDKeys),
		pickString(courseFromID, nestedCourseIDKeys),
		pickString(record, lessonIDKeys),
		pickString(lesson, nestedLessonIDKeys),
		pickString(lessonFromID, nestedLessonIDKeys),
		pickString(quizLesson, nestedLessonIDKeys),
		pickString(quizCourse, nestedCourseIDKeys),
	)

	courseName := firstNonEmpty(
		pickString(record, courseNameKeys),
		pickString(course, nestedCourseNameKeys),
		pickString(courseFromID, nestedCourseNameKeys),
		pickString(record, lessonTitleKeys),
		pickString(lesson, nestedLessonTitles),
		pickString(lessonFromID, nestedLessonTitles),
		pickString(quizLesson, nestedLessonTitles),
		pickString(quizCourse, nestedCourseNameKeys),
		pickString(quiz, quizTitleKeys),
		courseID,
		models.GeneralCourseName,
	)

	approvedBy := firstNonEmpty(
		pickString(record, approvedByKeys),
		pickString(approver, []string{"id", "_id"}),
	)
	approvedByName := firstNonEmpty(
		pickString(record, approvedByNameKeys),
		pickString(approver, []string{"name", "fullName", "full_name"}),
	)

	roleValue := either(record, approverRoleKeys...)
	if roleValue == nil {
		roleValue = approver["role"]
	}

	return models.ReportRequest{
		ID:             id,
		StudentID:      studentID,
		StudentName:    studentName,
		CourseID:       courseID,
		CourseName:     courseName,
		Status:         Status(record["status"]),
		ApprovedBy:     optional(approvedBy),
		ApprovedByName: optional(approvedByName),
		ApprovedByRole: approverRole(roleValue),
		CreatedAt:      optional(pickString(record, createdAtKeys)),
		UpdatedAt:      optional(pickString(record, updatedAtKeys)),
	}
}

// Collection normalizes an array of unknown items, dropping entries with no
// identifying information so empty placeholder responses do not become
// phantom rows.
func Collection(raw any) []models.ReportRequest {
	items, ok := raw.([]any)
	if !ok {
		return nil
	}
	result := make([]models.ReportRequest, 0, len(items))
	for _, item := range items {
		req := Request(item)
		if req.Identified() {
			result = append(result, req)
		}
	}
	return result
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
