package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/edulearn/report-gateway/internal/dto"
	"github.com/edulearn/report-gateway/internal/service"
	"github.com/edulearn/report-gateway/internal/upstream"
	appErrors "github.com/edulearn/report-gateway/pkg/errors"
	"github.com/edulearn/report-gateway/pkg/export"
	"github.com/edulearn/report-gateway/pkg/response"
)

// ReportHandler exposes the report request workflow endpoints.
type ReportHandler struct {
	reports  *service.ReportService
	exporter *export.CSVExporter
}

// NewReportHandler constructs handler.
func NewReportHandler(reports *service.ReportService) *ReportHandler {
	return &ReportHandler{
		reports:  reports,
		exporter: export.NewCSVExporter(),
	}
}

// RequestDownload godoc
// @Summary Submit a report download request
// @Tags Reports
// @Accept json
// @Produce json
// @Param payload body dto.DownloadRequestPayload true "Request payload"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /reports/requests [post]
func (h *ReportHandler) RequestDownload(c *gin.Context) {
	var payload dto.DownloadRequestPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}

	request, err := h.reports.RequestDownload(c.Request.Context(), tokenFromContext(c), payload)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, request)
}

// MyRequest godoc
// @Summary Current learner's report request
// @Tags Reports
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /reports/requests/me [get]
func (h *ReportHandler) MyRequest(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	request, err := h.reports.LearnerRequest(c.Request.Context(), tokenFromContext(c), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request)
}

// ListRequests godoc
// @Summary List report requests for review
// @Tags Reports
// @Produce json
// @Param status query string false "PENDING, APPROVED, REJECTED or ALL"
// @Param courseId query string false "Filter by course"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /reports/requests [get]
func (h *ReportHandler) ListRequests(c *gin.Context) {
	var query dto.ListRequestsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}

	requests, err := h.reports.ListRequests(c.Request.Context(), tokenFromContext(c), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, requests, map[string]interface{}{"count": len(requests)})
}

// ExportRequests godoc
// @Summary Export report requests as CSV
// @Tags Reports
// @Produce text/csv
// @Param status query string false "PENDING, APPROVED, REJECTED or ALL"
// @Param courseId query string false "Filter by course"
// @Success 200 {string} string "CSV payload"
// @Security BearerAuth
// @Router /reports/requests/export [get]
func (h *ReportHandler) ExportRequests(c *gin.Context) {
	var query dto.ListRequestsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}

	requests, err := h.reports.ListRequests(c.Request.Context(), tokenFromContext(c), query)
	if err != nil {
		response.Error(c, err)
		return
	}

	payload, err := h.exporter.Render(export.RequestDataset(requests))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="report-requests.csv"`)
	c.Data(http.StatusOK, "text/csv", payload)
}

// Decide godoc
// @Summary Approve or reject a report request
// @Tags Reports
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body dto.DecisionPayload true "Decision payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /reports/requests/{id}/decision [patch]
func (h *ReportHandler) Decide(c *gin.Context) {
	var payload dto.DecisionPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}

	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	request, err := h.reports.DecideRequest(c.Request.Context(), tokenFromContext(c), claims, c.Param("id"), payload)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request)
}

// Download godoc
// @Summary Download the approved report artifact
// @Tags Reports
// @Produce application/pdf
// @Param requestId query string false "Request ID"
// @Param courseId query string false "Course ID"
// @Param quizId query string false "Quiz ID"
// @Success 200 {file} binary "Report file"
// @Security BearerAuth
// @Router /reports/download [get]
func (h *ReportHandler) Download(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	params := upstream.DownloadParams{
		RequestID: c.Query("requestId"),
		CourseID:  c.Query("courseId"),
		QuizID:    c.Query("quizId"),
	}

	result, err := h.reports.Download(c.Request.Context(), tokenFromContext(c), claims, params)
	if err != nil {
		response.Error(c, err)
		return
	}

	if result.Kind == upstream.DownloadKindURL {
		response.JSON(c, http.StatusOK, dto.DownloadURLResponse{URL: result.URL, FileName: result.FileName})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.FileName))
	c.Data(http.StatusOK, result.ContentType, result.Data)
}

// Summary godoc
// @Summary Learner performance summary
// @Tags Reports
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /reports/summary [get]
func (h *ReportHandler) Summary(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	summary, err := h.reports.Summary(c.Request.Context(), tokenFromContext(c), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary)
}

// SummaryPDF godoc
// @Summary Learner report card as PDF
// @Tags Reports
// @Produce application/pdf
// @Success 200 {file} binary "Report card"
// @Security BearerAuth
// @Router /reports/summary/pdf [get]
func (h *ReportHandler) SummaryPDF(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	payload, filename, err := h.reports.SummaryPDF(c.Request.Context(), tokenFromContext(c), claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/pdf", payload)
}
