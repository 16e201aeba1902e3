package models

import "time"

// ReportRequestStatus captures the approval lifecycle of a download request.
type ReportRequestStatus string

const (
	ReportStatusPending  ReportRequestStatus = "PENDING"
	ReportStatusApproved ReportRequestStatus = "APPROVED"
	ReportStatusRejected ReportRequestStatus = "REJECTED"
)

// ReportStatusFilter additionally admits ALL for list queries.
const ReportStatusAll ReportRequestStatus = "ALL"

// ApproverRole identifies who may move a request out of PENDING.
type ApproverRole string

const (
	ApproverRoleAdmin      ApproverRole = "ADMIN"
	ApproverRoleInstructor ApproverRole = "INSTRUCTOR"
)

// ReportDecision is the outcome an approver records on a pending request.
type ReportDecision = ReportRequestStatus

// Sentinel values used when the upstream payload carries no usable field.
const (
	UnknownLearnerName = "Unknown Learner"
	GeneralCourseName  = "General Course"
)

// ReportRequest is the canonical record of a learner's ask to download a
// formatted academic report. Upstream payload shapes vary; the normalize
// package coerces them into this form.
type ReportRequest struct {
	ID             string              `json:"id"`
	StudentID      string              `json:"studentId"`
	StudentName    string              `json:"studentName"`
	CourseID       string              `json:"courseId"`
	CourseName     string              `json:"courseName"`
	Status         ReportRequestStatus `json:"status"`
	ApprovedBy     *string             `json:"approvedBy"`
	ApprovedByName *string             `json:"approvedByName"`
	ApprovedByRole *ApproverRole       `json:"approvedByRole"`
	CreatedAt      *string             `json:"createdAt"`
	UpdatedAt      *string             `json:"updatedAt"`
}

// Approver is the acting admin or instructor recorded on a decision.
type Approver struct {
	ID   string
	Name string
	Role ApproverRole
}

// ValidStatus reports whether s is one of the three lifecycle states.
func ValidStatus(s ReportRequestStatus) bool {
	switch s {
	case ReportStatusPending, ReportStatusApproved, ReportStatusRejected:
		return true
	default:
		return false
	}
}

// ValidDecision restricts decisions to the two terminal states.
func ValidDecision(d ReportDecision) bool {
	return d == ReportStatusApproved || d == ReportStatusRejected
}

// CanDownload is the learner-facing download gate. PENDING and REJECTED both
// block download.
func CanDownload(status ReportRequestStatus) bool {
	return status == ReportStatusApproved
}

// ApplyDecision transitions a PENDING request to the given terminal state,
// recording the actor and timestamp. APPROVED and REJECTED are terminal: a
// decision applied to a finalized request is a no-op returning the request
// unchanged, so the first persisted decision wins.
func (r ReportRequest) ApplyDecision(actor Approver, decision ReportDecision, now time.Time) ReportRequest {
	if r.Status != ReportStatusPending || !ValidDecision(decision) {
		return r
	}

	ts := now.UTC().Format(time.RFC3339)
	actorID := actor.ID
	actorName := actor.Name
	actorRole := actor.Role

	r.Status = decision
	r.ApprovedBy = &actorID
	r.ApprovedByName = &actorName
	r.ApprovedByRole = &actorRole
	r.UpdatedAt = &ts
	return r
}

// Identified reports whether the record carries any identifying information.
// A request with neither id, student id, nor a resolved student name is a
// phantom produced by normalizing an empty payload.
func (r ReportRequest) Identified() bool {
	return r.ID != "" || r.StudentID != "" || r.StudentName != UnknownLearnerName
}
