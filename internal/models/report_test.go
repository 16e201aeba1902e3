package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyDecisionApprovesPending(t *testing.T) {
	now := time.Date(2026, 2, 10, 9, 30, 0, 0, time.UTC)
	request := ReportRequest{
		ID:          "req-1",
		StudentID:   "s-1",
		StudentName: "Ada",
		CourseName:  "Algebra",
		Status:      ReportStatusPending,
	}
	actor := Approver{ID: "u-100", Name: "Jane Tutor", Role: ApproverRoleInstructor}

	decided := request.ApplyDecision(actor, ReportStatusApproved, now)

	assert.Equal(t, ReportStatusApproved, decided.Status)
	require.NotNil(t, decided.ApprovedBy)
	assert.Equal(t, "u-100", *decided.ApprovedBy)
	require.NotNil(t, decided.ApprovedByName)
	assert.Equal(t, "Jane Tutor", *decided.ApprovedByName)
	require.NotNil(t, decided.ApprovedByRole)
	assert.Equal(t, ApproverRoleInstructor, *decided.ApprovedByRole)
	require.NotNil(t, decided.UpdatedAt)
	assert.Equal(t, "2026-02-10T09:30:00Z", *decided.UpdatedAt)

	// The input value stays untouched.
	assert.Equal(t, ReportStatusPending, request.Status)
	assert.Nil(t, request.ApprovedBy)
}

func TestApplyDecisionTerminalStatesAreFinal(t *testing.T) {
	now := time.Now()
	firstApprover := "u-100"
	approved := ReportRequest{
		ID:         "req-1",
		Status:     ReportStatusApproved,
		ApprovedBy: &firstApprover,
	}

	after := approved.ApplyDecision(Approver{ID: "u-200", Name: "Other", Role: ApproverRoleAdmin}, ReportStatusRejected, now)

	assert.Equal(t, ReportStatusApproved, after.Status)
	require.NotNil(t, after.ApprovedBy)
	assert.Equal(t, "u-100", *after.ApprovedBy, "first decision wins")

	rejected := ReportRequest{ID: "req-2", Status: ReportStatusRejected}
	assert.Equal(t, rejected, rejected.ApplyDecision(Approver{ID: "u-1"}, ReportStatusApproved, now))
}

func TestApplyDecisionRejectsInvalidDecision(t *testing.T) {
	pending := ReportRequest{ID: "req-1", Status: ReportStatusPending}

	after := pending.ApplyDecision(Approver{ID: "u-1"}, ReportStatusPending, time.Now())

	assert.Equal(t, pending, after)
}

func TestCanDownload(t *testing.T) {
	assert.True(t, CanDownload(ReportStatusApproved))
	assert.False(t, CanDownload(ReportStatusPending))
	assert.False(t, CanDownload(ReportStatusRejected))
	assert.False(t, CanDownload("APPROVED "))
}

func TestValidStatusAndDecision(t *testing.T) {
	assert.True(t, ValidStatus(ReportStatusPending))
	assert.True(t, ValidStatus(ReportStatusApproved))
	assert.True(t, ValidStatus(ReportStatusRejected))
	assert.False(t, ValidStatus(ReportStatusAll))
	assert.False(t, ValidStatus("approved"))

	assert.True(t, ValidDecision(ReportStatusApproved))
	assert.True(t, ValidDecision(ReportStatusRejected))
	assert.False(t, ValidDecision(ReportStatusPending))
}

func TestIdentified(t *testing.T) {
	assert.True(t, ReportRequest{ID: "r-1", StudentName: UnknownLearnerName}.Identified())
	assert.True(t, ReportRequest{StudentID: "s-1", StudentName: UnknownLearnerName}.Identified())
	assert.True(t, ReportRequest{StudentName: "Ada"}.Identified())
	assert.False(t, ReportRequest{StudentName: UnknownLearnerName}.Identified())
}

func TestApproverRoleFor(t *testing.T) {
	role, ok := ApproverRoleFor(RoleAdmin)
	assert.True(t, ok)
	assert.Equal(t, ApproverRoleAdmin, role)

	role, ok = ApproverRoleFor(RoleInstructor)
	assert.True(t, ok)
	assert.Equal(t, ApproverRoleInstructor, role)

	_, ok = ApproverRoleFor(RoleLearner)
	assert.False(t, ok)
}
