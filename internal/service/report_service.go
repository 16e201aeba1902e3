package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/edulearn/report-gateway/internal/dto"
	"github.com/edulearn/report-gateway/internal/models"
	"github.com/edulearn/report-gateway/internal/upstream"
	apperrors "github.com/edulearn/report-gateway/pkg/errors"
)

type reportUpstream interface {
	RequestDownload(ctx context.Context, token string, input upstream.DownloadRequestInput) (models.ReportRequest, error)
	LearnerRequest(ctx context.Context, token, studentID string) (*models.ReportRequest, error)
	ListRequests(ctx context.Context, token string, filters upstream.ListFilters) ([]models.ReportRequest, error)
	DecideRequest(ctx context.Context, token, requestID string, decision models.ReportDecision) (models.ReportRequest, error)
	DownloadReport(ctx context.Context, token string, params upstream.DownloadParams, limit int64) (*upstream.DownloadResult, error)
	QuizAnalytics(ctx context.Context, token string) ([]any, error)
	QuizSubjects(ctx context.Context, token string) ([]string, error)
}

type reportCardRenderer interface {
	RenderReportCard(summary models.LearnerReportSummary) ([]byte, error)
}

type requestSnapshot interface {
	Snapshot() ([]models.ReportRequest, time.Time)
}

const (
	requestListCachePrefix = "reports:requests:"
	summaryCachePrefix     = "reports:summary:"
)

// ReportServiceConfig tunes orchestration behaviour.
type ReportServiceConfig struct {
	SchoolName string
	SummaryTTL time.Duration
	// SnapshotMaxAge bounds how old a poller snapshot may be before list
	// reads fall back to cache and upstream.
	SnapshotMaxAge time.Duration
	DownloadLimit  int64
}

// ReportService orchestrates the report-request workflow: it bridges the
// canonical gateway API to the probing upstream client and enforces the
// workflow rules the legacy backend cannot be trusted to enforce.
type ReportService struct {
	upstream  reportUpstream
	cache     *CacheService
	snapshot  requestSnapshot
	renderer  reportCardRenderer
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
	cfg       ReportServiceConfig
}

// NewReportService constructs the report service.
func NewReportService(client reportUpstream, cache *CacheService, renderer reportCardRenderer, validate *validator.Validate, logger *zap.Logger, cfg ReportServiceConfig) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if cfg.SchoolName == "" {
		cfg.SchoolName = "EduLearn"
	}
	if cfg.SummaryTTL <= 0 {
		cfg.SummaryTTL = 5 * time.Minute
	}
	if cfg.SnapshotMaxAge <= 0 {
		cfg.SnapshotMaxAge = 24 * time.Second
	}
	return &ReportService{
		upstream:  client,
		cache:     cache,
		renderer:  renderer,
		validator: validate,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
		cfg:       cfg,
	}
}

// RequestDownload submits or refreshes the learner's pending request.
func (s *ReportService) RequestDownload(ctx context.Context, token string, payload dto.DownloadRequestPayload) (models.ReportRequest, error) {
	if err := s.validator.Struct(payload); err != nil {
		return models.ReportRequest{}, apperrors.Wrap(err, apperrors.ErrValidation.Code, apperrors.ErrValidation.Status, "invalid download request payload")
	}

	request, err := s.upstream.RequestDownload(ctx, token, upstream.DownloadRequestInput{
		CourseID:   payload.CourseID,
		CourseName: payload.CourseName,
		ClassLevel: payload.ClassLevel,
		QuizID:     payload.QuizID,
		QuizTitle:  payload.QuizTitle,
	})
	if err != nil {
		return models.ReportRequest{}, err
	}

	s.invalidateListCache(ctx)
	return request, nil
}

// LearnerRequest returns the caller's own most recent request, or nil when
// none exists.
func (s *ReportService) LearnerRequest(ctx context.Context, token string, claims *models.JWTClaims) (*models.ReportRequest, error) {
	studentID := ""
	if claims != nil {
		studentID = claims.UserID
	}
	return s.upstream.LearnerRequest(ctx, token, studentID)
}

// UseSnapshot attaches the background poller's snapshot so list reads can
// be served from the warm copy while it is fresh.
func (s *ReportService) UseSnapshot(src requestSnapshot) {
	s.snapshot = src
}

// ListRequests serves the approver views. A fresh poller snapshot wins,
// then the cached copy, then a direct upstream fetch.
func (s *ReportService) ListRequests(ctx context.Context, token string, query dto.ListRequestsQuery) ([]models.ReportRequest, error) {
	status := query.Status
	if status != "" && status != models.ReportStatusAll && !models.ValidStatus(status) {
		return nil, apperrors.Clone(apperrors.ErrValidation, "status must be PENDING, APPROVED, REJECTED or ALL")
	}

	if snapshot, ok := s.freshSnapshot(); ok {
		return filterRequests(snapshot, status, query.CourseID), nil
	}

	cacheKey := fmt.Sprintf("%s%s:%s", requestListCachePrefix, status, query.CourseID)
	var cached []models.ReportRequest
	if hit, _ := s.cache.Get(ctx, cacheKey, &cached); hit {
		return cached, nil
	}

	requests, err := s.upstream.ListRequests(ctx, token, upstream.ListFilters{
		Status:   status,
		CourseID: query.CourseID,
	})
	if err != nil {
		return nil, err
	}

	_ = s.cache.Set(ctx, cacheKey, requests, 0)
	return requests, nil
}

// DecideRequest records an approver decision. A request already out of
// PENDING stays as the first decision left it. When the upstream response
// shape is unrecognizable the decision is echoed back from what the caller
// asked for, so local state stays consistent, and the contract drift is
// logged.
func (s *ReportService) DecideRequest(ctx context.Context, token string, claims *models.JWTClaims, requestID string, payload dto.DecisionPayload) (models.ReportRequest, error) {
	if err := s.validator.Struct(payload); err != nil {
		return models.ReportRequest{}, apperrors.Wrap(err, apperrors.ErrValidation.Code, apperrors.ErrValidation.Status, "decision must be APPROVED or REJECTED")
	}
	if requestID == "" {
		return models.ReportRequest{}, apperrors.Clone(apperrors.ErrValidation, "request id is required")
	}

	actor, err := approverFromClaims(claims)
	if err != nil {
		return models.ReportRequest{}, err
	}

	decided, err := s.upstream.DecideRequest(ctx, token, requestID, payload.Status)
	if err != nil {
		var appErr *apperrors.Error
		if errors.As(err, &appErr) && appErr.Code == apperrors.ErrUnknownShape.Code {
			s.logger.Warn("upstream decision response shape unknown, echoing requested decision",
				zap.String("request_id", requestID),
				zap.String("decision", string(payload.Status)))
			decided = s.echoDecision(requestID, actor, payload.Status)
		} else {
			return models.ReportRequest{}, err
		}
	}

	if decided.Status == models.ReportStatusPending {
		// Upstream acknowledged but did not reflect the transition; apply it
		// locally so the caller sees the decided state.
		decided = decided.ApplyDecision(actor, payload.Status, s.now())
	}

	s.invalidateListCache(ctx)
	return decided, nil
}

// Download resolves the approved report artifact. For learners the gate is
// enforced against their own request state before the upstream is asked for
// the file.
func (s *ReportService) Download(ctx context.Context, token string, claims *models.JWTClaims, params upstream.DownloadParams) (*upstream.DownloadResult, error) {
	if claims != nil && claims.Role == models.RoleLearner {
		request, err := s.upstream.LearnerRequest(ctx, token, claims.UserID)
		if err != nil {
			return nil, err
		}
		if request != nil && !models.CanDownload(request.Status) {
			return nil, apperrors.Clone(apperrors.ErrApprovalRequired,
				fmt.Sprintf("Report is %s. Approval is required before download.", request.Status))
		}
	}

	return s.upstream.DownloadReport(ctx, token, params, s.cfg.DownloadLimit)
}

// Summary assembles the learner report card. Analytics, quiz subjects and
// the request state are fetched fan-out; each failure degrades independently
// so one failing upstream call does not blank the whole report.
func (s *ReportService) Summary(ctx context.Context, token string, claims *models.JWTClaims) (*models.LearnerReportSummary, error) {
	studentID := ""
	if claims != nil {
		studentID = claims.UserID
	}

	cacheKey := summaryCachePrefix + studentID
	var cached models.LearnerReportSummary
	if hit, _ := s.cache.Get(ctx, cacheKey, &cached); hit {
		return &cached, nil
	}

	var (
		wg        sync.WaitGroup
		analytics []any
		subjects  []string
		request   *models.ReportRequest
	)

	wg.Add(3)
	go func() {
		defer wg.Done()
		result, err := s.upstream.QuizAnalytics(ctx, token)
		if err != nil {
			s.logger.Warn("quiz analytics fetch failed", zap.Error(err))
			return
		}
		analytics = result
	}()
	go func() {
		defer wg.Done()
		result, err := s.upstream.QuizSubjects(ctx, token)
		if err != nil {
			s.logger.Warn("quiz subjects fetch failed", zap.Error(err))
			return
		}
		subjects = result
	}()
	go func() {
		defer wg.Done()
		result, err := s.upstream.LearnerRequest(ctx, token, studentID)
		if err != nil {
			s.logger.Warn("learner request fetch failed", zap.Error(err))
			return
		}
		request = result
	}()
	wg.Wait()

	rows := BuildSubjectRows(analytics, subjects)
	overall := CalculateOverallAverage(rows)
	level := GetPerformanceLevel(overall)
	now := s.now()

	summary := &models.LearnerReportSummary{
		ReportID:         uuid.NewString(),
		StudentName:      models.UnknownLearnerName,
		CourseName:       models.GeneralCourseName,
		SchoolYear:       SchoolYearLabel(now),
		GeneratedAt:      now.Format(time.RFC3339),
		OverallAverage:   overall,
		PerformanceLevel: level,
		Feedback:         BuildFeedbackComment(rows, level),
		Subjects:         rows,
		Request:          request,
	}

	if claims != nil && claims.FullName != "" {
		summary.StudentName = claims.FullName
	}
	if request != nil {
		if request.ID != "" {
			summary.ReportID = request.ID
		}
		if request.StudentName != models.UnknownLearnerName {
			summary.StudentName = request.StudentName
		}
		if request.CourseName != models.GeneralCourseName {
			summary.CourseName = request.CourseName
		}
	}

	_ = s.cache.Set(ctx, cacheKey, summary, s.cfg.SummaryTTL)
	return summary, nil
}

// SummaryPDF renders the learner report card locally. Download gating
// applies exactly as for the upstream artifact.
func (s *ReportService) SummaryPDF(ctx context.Context, token string, claims *models.JWTClaims) ([]byte, string, error) {
	summary, err := s.Summary(ctx, token, claims)
	if err != nil {
		return nil, "", err
	}

	status := models.ReportStatusPending
	if summary.Request != nil {
		status = summary.Request.Status
	}
	if !models.CanDownload(status) {
		return nil, "", apperrors.Clone(apperrors.ErrApprovalRequired,
			fmt.Sprintf("Report is %s. Approval is required before download.", status))
	}

	if s.renderer == nil {
		return nil, "", apperrors.Clone(apperrors.ErrInternal, "report renderer unavailable")
	}
	data, err := s.renderer.RenderReportCard(*summary)
	if err != nil {
		return nil, "", apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "failed to render report card")
	}

	fileName := fmt.Sprintf("edulearn-report-%d.pdf", s.now().UnixMilli())
	return data, fileName, nil
}

// echoDecision fabricates the minimal decided record from what the caller
// asked for. It exists only for upstream responses whose shape cannot be
// matched to a request.
func (s *ReportService) echoDecision(requestID string, actor models.Approver, decision models.ReportDecision) models.ReportRequest {
	skeleton := models.ReportRequest{
		ID:          requestID,
		StudentName: models.UnknownLearnerName,
		CourseName:  models.GeneralCourseName,
		Status:      models.ReportStatusPending,
	}
	return skeleton.ApplyDecision(actor, decision, s.now())
}

// invalidateListCache drops both the list snapshots and cached summaries:
// a new request or a decision changes what either view renders.
func (s *ReportService) invalidateListCache(ctx context.Context) {
	for _, prefix := range []string{requestListCachePrefix, summaryCachePrefix} {
		if err := s.cache.Invalidate(ctx, prefix+"*"); err != nil {
			s.logger.Warn("report cache invalidation failed", zap.Error(err))
		}
	}
}

// freshSnapshot returns the poller's copy of the request list when one is
// attached and its fetch time is within SnapshotMaxAge.
func (s *ReportService) freshSnapshot() ([]models.ReportRequest, bool) {
	if s.snapshot == nil {
		return nil, false
	}
	requests, fetched := s.snapshot.Snapshot()
	if fetched.IsZero() || s.now().Sub(fetched) > s.cfg.SnapshotMaxAge {
		return nil, false
	}
	return requests, true
}

// filterRequests narrows the unfiltered snapshot to the caller's query.
func filterRequests(requests []models.ReportRequest, status models.ReportRequestStatus, courseID string) []models.ReportRequest {
	filtered := make([]models.ReportRequest, 0, len(requests))
	for _, request := range requests {
		if status != "" && status != models.ReportStatusAll && request.Status != status {
			continue
		}
		if courseID != "" && request.CourseID != courseID {
			continue
		}
		filtered = append(filtered, request)
	}
	return filtered
}

func approverFromClaims(claims *models.JWTClaims) (models.Approver, error) {
	if claims == nil {
		return models.Approver{}, apperrors.ErrUnauthorized
	}
	role, ok := models.ApproverRoleFor(claims.Role)
	if !ok {
		return models.Approver{}, apperrors.Clone(apperrors.ErrForbidden, "only admins and instructors may decide requests")
	}
	return models.Approver{ID: claims.UserID, Name: claims.FullName, Role: role}, nil
}
