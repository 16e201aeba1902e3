package dto

import "github.com/edulearn/report-gateway/internal/models"

// DownloadRequestPayload captures POST /reports/requests.
type DownloadRequestPayload struct {
	CourseID   string `json:"courseId" validate:"required"`
	CourseName string `json:"courseName" validate:"required"`
	ClassLevel string `json:"classLevel,omitempty"`
	QuizID     string `json:"quizId,omitempty"`
	QuizTitle  string `json:"quizTitle,omitempty"`
}

// DecisionPayload captures PATCH /reports/requests/:id/decision.
type DecisionPayload struct {
	Status models.ReportDecision `json:"status" validate:"required,oneof=APPROVED REJECTED"`
}

// ListRequestsQuery captures the approver list filters.
type ListRequestsQuery struct {
	Status   models.ReportRequestStatus `form:"status"`
	CourseID string                     `form:"courseId"`
}

// DownloadURLResponse is returned when the upstream resolves the artifact to
// a redirect-style URL instead of file bytes.
type DownloadURLResponse struct {
	URL      string `json:"url"`
	FileName string `json:"fileName"`
}
