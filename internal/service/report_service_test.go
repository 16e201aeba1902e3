package service

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edulearn/report-gateway/internal/dto"
	"github.com/edulearn/report-gateway/internal/models"
	"github.com/edulearn/report-gateway/internal/upstream"
	apperrors "github.com/edulearn/report-gateway/pkg/errors"
)

type stubUpstream struct {
	mu sync.Mutex

	requestDownloadFn func(input upstream.DownloadRequestInput) (models.ReportRequest, error)
	learnerRequestFn  func(studentID string) (*models.ReportRequest, error)
	listRequestsFn    func(filters upstream.ListFilters) ([]models.ReportRequest, error)
	decideRequestFn   func(requestID string, decision models.ReportDecision) (models.ReportRequest, error)
	downloadReportFn  func(params upstream.DownloadParams) (*upstream.DownloadResult, error)
	quizAnalyticsFn   func() ([]any, error)
	quizSubjectsFn    func() ([]string, error)

	listCalls int
}

func (s *stubUpstream) RequestDownload(ctx context.Context, token string, input upstream.DownloadRequestInput) (models.ReportRequest, error) {
	if s.requestDownloadFn != nil {
		return s.requestDownloadFn(input)
	}
	return models.ReportRequest{}, nil
}

func (s *stubUpstream) LearnerRequest(ctx context.Context, token, studentID string) (*models.ReportRequest, error) {
	if s.learnerRequestFn != nil {
		return s.learnerRequestFn(studentID)
	}
	return nil, nil
}

func (s *stubUpstream) ListRequests(ctx context.Context, token string, filters upstream.ListFilters) ([]models.ReportRequest, error) {
	s.mu.Lock()
	s.listCalls++
	s.mu.Unlock()
	if s.listRequestsFn != nil {
		return s.listRequestsFn(filters)
	}
	return nil, nil
}

func (s *stubUpstream) DecideRequest(ctx context.Context, token, requestID string, decision models.ReportDecision) (models.ReportRequest, error) {
	if s.decideRequestFn != nil {
		return s.decideRequestFn(requestID, decision)
	}
	return models.ReportRequest{}, nil
}

func (s *stubUpstream) DownloadReport(ctx context.Context, token string, params upstream.DownloadParams, limit int64) (*upstream.DownloadResult, error) {
	if s.downloadReportFn != nil {
		return s.downloadReportFn(params)
	}
	return nil, apperrors.ErrNoReportFile
}

func (s *stubUpstream) QuizAnalytics(ctx context.Context, token string) ([]any, error) {
	if s.quizAnalyticsFn != nil {
		return s.quizAnalyticsFn()
	}
	return nil, nil
}

func (s *stubUpstream) QuizSubjects(ctx context.Context, token string) ([]string, error) {
	if s.quizSubjectsFn != nil {
		return s.quizSubjectsFn()
	}
	return nil, nil
}

type stubRenderer struct {
	rendered *models.LearnerReportSummary
}

func (r *stubRenderer) RenderReportCard(summary models.LearnerReportSummary) ([]byte, error) {
	r.rendered = &summary
	return []byte("%PDF-stub"), nil
}

type memoryCacheRepo struct {
	mu      sync.Mutex
	entries map[string][]byte
}

func (m *memoryCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.entries[key]
	if !ok {
		return apperrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.entries == nil {
		m.entries = map[string][]byte{}
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.entries[key] = raw
	return nil
}

func (m *memoryCacheRepo) DeleteByPattern(ctx context.Context, pattern string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range m.entries {
		if strings.HasPrefix(key, prefix) {
			delete(m.entries, key)
		}
	}
	return nil
}

func newTestReportService(client reportUpstream, cache *CacheService) *ReportService {
	svc := NewReportService(client, cache, &stubRenderer{}, nil, nil, ReportServiceConfig{})
	svc.now = func() time.Time { return time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC) }
	return svc
}

func instructorClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "u-100", Role: models.RoleInstructor, FullName: "Jane Tutor"}
}

func learnerClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "s-1", Role: models.RoleLearner, FullName: "Ada Lovelace"}
}

func TestDecideRequestReturnsUpstreamRecord(t *testing.T) {
	up := &stubUpstream{
		decideRequestFn: func(requestID string, decision models.ReportDecision) (models.ReportRequest, error) {
			return models.ReportRequest{ID: requestID, StudentID: "s-1", Status: decision}, nil
		},
	}
	svc := newTestReportService(up, nil)

	decided, err := svc.DecideRequest(context.Background(), "tok", instructorClaims(), "req-1", dto.DecisionPayload{Status: models.ReportStatusApproved})

	require.NoError(t, err)
	assert.Equal(t, "req-1", decided.ID)
	assert.Equal(t, models.ReportStatusApproved, decided.Status)
}

func TestDecideRequestEchoesOnUnknownShape(t *testing.T) {
	up := &stubUpstream{
		decideRequestFn: func(requestID string, decision models.ReportDecision) (models.ReportRequest, error) {
			return models.ReportRequest{}, apperrors.Clone(apperrors.ErrUnknownShape, "unmatched response")
		},
	}
	svc := newTestReportService(up, nil)

	decided, err := svc.DecideRequest(context.Background(), "tok", instructorClaims(), "req-1", dto.DecisionPayload{Status: models.ReportStatusRejected})

	require.NoError(t, err)
	assert.Equal(t, "req-1", decided.ID)
	assert.Equal(t, models.ReportStatusRejected, decided.Status)
	require.NotNil(t, decided.ApprovedBy)
	assert.Equal(t, "u-100", *decided.ApprovedBy)
	require.NotNil(t, decided.ApprovedByName)
	assert.Equal(t, "Jane Tutor", *decided.ApprovedByName)
	require.NotNil(t, decided.ApprovedByRole)
	assert.Equal(t, models.ApproverRoleInstructor, *decided.ApprovedByRole)
}

func TestDecideRequestAppliesDecisionWhenUpstreamStaysPending(t *testing.T) {
	up := &stubUpstream{
		decideRequestFn: func(requestID string, decision models.ReportDecision) (models.ReportRequest, error) {
			return models.ReportRequest{ID: requestID, StudentID: "s-1", Status: models.ReportStatusPending}, nil
		},
	}
	svc := newTestReportService(up, nil)

	decided, err := svc.DecideRequest(context.Background(), "tok", instructorClaims(), "req-1", dto.DecisionPayload{Status: models.ReportStatusApproved})

	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusApproved, decided.Status)
	require.NotNil(t, decided.ApprovedBy)
	assert.Equal(t, "u-100", *decided.ApprovedBy)
}

func TestDecideRequestRejectsLearners(t *testing.T) {
	svc := newTestReportService(&stubUpstream{}, nil)

	_, err := svc.DecideRequest(context.Background(), "tok", learnerClaims(), "req-1", dto.DecisionPayload{Status: models.ReportStatusApproved})

	require.Error(t, err)
	appErr := apperrors.FromError(err)
	assert.Equal(t, apperrors.ErrForbidden.Code, appErr.Code)
}

func TestDecideRequestValidatesPayload(t *testing.T) {
	svc := newTestReportService(&stubUpstream{}, nil)

	_, err := svc.DecideRequest(context.Background(), "tok", instructorClaims(), "req-1", dto.DecisionPayload{Status: "MAYBE"})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrValidation.Code, apperrors.FromError(err).Code)

	_, err = svc.DecideRequest(context.Background(), "tok", instructorClaims(), "", dto.DecisionPayload{Status: models.ReportStatusApproved})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrValidation.Code, apperrors.FromError(err).Code)
}

func TestListRequestsValidatesStatus(t *testing.T) {
	svc := newTestReportService(&stubUpstream{}, nil)

	_, err := svc.ListRequests(context.Background(), "tok", dto.ListRequestsQuery{Status: "WAITING"})

	require.Error(t, err)
	assert.Equal(t, apperrors.ErrValidation.Code, apperrors.FromError(err).Code)
}

func TestListRequestsUsesCache(t *testing.T) {
	up := &stubUpstream{
		listRequestsFn: func(filters upstream.ListFilters) ([]models.ReportRequest, error) {
			return []models.ReportRequest{{ID: "r-1", StudentID: "s-1", Status: models.ReportStatusPending}}, nil
		},
	}
	cache := NewCacheService(&memoryCacheRepo{}, nil, time.Minute, nil, true)
	svc := newTestReportService(up, cache)

	first, err := svc.ListRequests(context.Background(), "tok", dto.ListRequestsQuery{Status: models.ReportStatusPending})
	require.NoError(t, err)
	second, err := svc.ListRequests(context.Background(), "tok", dto.ListRequestsQuery{Status: models.ReportStatusPending})
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, up.listCalls, "second read served from cache")
}

type stubSnapshot struct {
	items   []models.ReportRequest
	fetched time.Time
}

func (s *stubSnapshot) Snapshot() ([]models.ReportRequest, time.Time) {
	return s.items, s.fetched
}

func TestListRequestsServesFreshSnapshot(t *testing.T) {
	up := &stubUpstream{}
	svc := newTestReportService(up, nil)
	svc.UseSnapshot(&stubSnapshot{
		items: []models.ReportRequest{
			{ID: "r-1", CourseID: "c-1", Status: models.ReportStatusPending},
			{ID: "r-2", CourseID: "c-2", Status: models.ReportStatusApproved},
			{ID: "r-3", CourseID: "c-1", Status: models.ReportStatusApproved},
		},
		fetched: svc.now().Add(-5 * time.Second),
	})

	requests, err := svc.ListRequests(context.Background(), "tok",
		dto.ListRequestsQuery{Status: models.ReportStatusApproved, CourseID: "c-1"})

	require.NoError(t, err)
	require.Len(t, requests, 1)
	assert.Equal(t, "r-3", requests[0].ID)
	assert.Equal(t, 0, up.listCalls, "fresh snapshot served without an upstream fetch")

	all, err := svc.ListRequests(context.Background(), "tok", dto.ListRequestsQuery{Status: models.ReportStatusAll})
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestListRequestsFallsBackOnStaleSnapshot(t *testing.T) {
	up := &stubUpstream{
		listRequestsFn: func(filters upstream.ListFilters) ([]models.ReportRequest, error) {
			return []models.ReportRequest{{ID: "r-9", Status: models.ReportStatusPending}}, nil
		},
	}
	svc := newTestReportService(up, nil)
	svc.UseSnapshot(&stubSnapshot{
		items:   []models.ReportRequest{{ID: "old", Status: models.ReportStatusPending}},
		fetched: svc.now().Add(-time.Minute),
	})

	requests, err := svc.ListRequests(context.Background(), "tok", dto.ListRequestsQuery{})

	require.NoError(t, err)
	require.Len(t, requests, 1)
	assert.Equal(t, "r-9", requests[0].ID)
	assert.Equal(t, 1, up.listCalls, "stale snapshot triggers an upstream fetch")
}

func TestDecideRequestInvalidatesListCache(t *testing.T) {
	up := &stubUpstream{
		listRequestsFn: func(filters upstream.ListFilters) ([]models.ReportRequest, error) {
			return []models.ReportRequest{{ID: "r-1", StudentID: "s-1"}}, nil
		},
		decideRequestFn: func(requestID string, decision models.ReportDecision) (models.ReportRequest, error) {
			return models.ReportRequest{ID: requestID, StudentID: "s-1", Status: decision}, nil
		},
	}
	cache := NewCacheService(&memoryCacheRepo{}, nil, time.Minute, nil, true)
	svc := newTestReportService(up, cache)

	_, err := svc.ListRequests(context.Background(), "tok", dto.ListRequestsQuery{})
	require.NoError(t, err)

	_, err = svc.DecideRequest(context.Background(), "tok", instructorClaims(), "r-1", dto.DecisionPayload{Status: models.ReportStatusApproved})
	require.NoError(t, err)

	_, err = svc.ListRequests(context.Background(), "tok", dto.ListRequestsQuery{})
	require.NoError(t, err)
	assert.Equal(t, 2, up.listCalls, "cache invalidated by the decision")
}

func TestDownloadGatesLearnerOnOwnRequestState(t *testing.T) {
	pending := &models.ReportRequest{ID: "r-1", StudentID: "s-1", Status: models.ReportStatusPending}
	up := &stubUpstream{
		learnerRequestFn: func(studentID string) (*models.ReportRequest, error) {
			return pending, nil
		},
	}
	svc := newTestReportService(up, nil)

	_, err := svc.Download(context.Background(), "tok", learnerClaims(), upstream.DownloadParams{})

	require.Error(t, err)
	appErr := apperrors.FromError(err)
	assert.Equal(t, apperrors.ErrApprovalRequired.Code, appErr.Code)
	assert.Equal(t, "Report is PENDING. Approval is required before download.", appErr.Message)
}

func TestDownloadPassesThroughWhenApproved(t *testing.T) {
	approved := &models.ReportRequest{ID: "r-1", StudentID: "s-1", Status: models.ReportStatusApproved}
	up := &stubUpstream{
		learnerRequestFn: func(studentID string) (*models.ReportRequest, error) {
			return approved, nil
		},
		downloadReportFn: func(params upstream.DownloadParams) (*upstream.DownloadResult, error) {
			return &upstream.DownloadResult{Kind: upstream.DownloadKindFile, Data: []byte("%PDF"), FileName: "report.pdf"}, nil
		},
	}
	svc := newTestReportService(up, nil)

	result, err := svc.Download(context.Background(), "tok", learnerClaims(), upstream.DownloadParams{RequestID: "r-1"})

	require.NoError(t, err)
	assert.Equal(t, upstream.DownloadKindFile, result.Kind)
	assert.Equal(t, "report.pdf", result.FileName)
}

func TestSummaryDegradesPerSource(t *testing.T) {
	request := &models.ReportRequest{
		ID:          "r-1",
		StudentID:   "s-1",
		StudentName: "Ada Lovelace",
		CourseName:  "Algebra",
		Status:      models.ReportStatusApproved,
	}
	up := &stubUpstream{
		quizAnalyticsFn: func() ([]any, error) {
			return nil, apperrors.ErrNoEndpoint
		},
		quizSubjectsFn: func() ([]string, error) {
			return []string{"Algebra", "Geometry"}, nil
		},
		learnerRequestFn: func(studentID string) (*models.ReportRequest, error) {
			return request, nil
		},
	}
	svc := newTestReportService(up, nil)

	summary, err := svc.Summary(context.Background(), "tok", learnerClaims())

	require.NoError(t, err, "a failing analytics source must not fail the summary")
	assert.Equal(t, "r-1", summary.ReportID)
	assert.Equal(t, "Ada Lovelace", summary.StudentName)
	assert.Equal(t, "Algebra", summary.CourseName)
	require.Len(t, summary.Subjects, 2, "fallback subjects fill in for missing analytics")
	assert.Equal(t, 0, summary.OverallAverage)
	assert.Equal(t, "Needs Improvement", summary.PerformanceLevel)
}

func TestSummaryWithoutRequestUsesClaims(t *testing.T) {
	up := &stubUpstream{
		quizAnalyticsFn: func() ([]any, error) {
			return []any{map[string]any{"subject": "Math", "averageScore": 90.0}}, nil
		},
	}
	svc := newTestReportService(up, nil)

	summary, err := svc.Summary(context.Background(), "tok", learnerClaims())

	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", summary.StudentName)
	assert.Equal(t, models.GeneralCourseName, summary.CourseName)
	assert.NotEmpty(t, summary.ReportID)
	assert.Nil(t, summary.Request)
}

func TestSummaryUsesCachePerLearner(t *testing.T) {
	calls := 0
	up := &stubUpstream{
		quizAnalyticsFn: func() ([]any, error) {
			calls++
			return []any{map[string]any{"subject": "Math", "averageScore": 90.0}}, nil
		},
	}
	cache := NewCacheService(&memoryCacheRepo{}, nil, time.Minute, nil, true)
	svc := newTestReportService(up, cache)

	first, err := svc.Summary(context.Background(), "tok", learnerClaims())
	require.NoError(t, err)
	second, err := svc.Summary(context.Background(), "tok", learnerClaims())
	require.NoError(t, err)

	assert.Equal(t, first.ReportID, second.ReportID)
	assert.Equal(t, 1, calls, "second summary served from cache")

	other := &models.JWTClaims{UserID: "s-2", Role: models.RoleLearner, FullName: "Lin"}
	_, err = svc.Summary(context.Background(), "tok", other)
	require.NoError(t, err)
	assert.Equal(t, 2, calls, "summaries are cached per learner")
}

func TestSummaryPDFRequiresApproval(t *testing.T) {
	pending := &models.ReportRequest{ID: "r-1", StudentID: "s-1", Status: models.ReportStatusPending}
	up := &stubUpstream{
		learnerRequestFn: func(studentID string) (*models.ReportRequest, error) {
			return pending, nil
		},
	}
	svc := newTestReportService(up, nil)

	_, _, err := svc.SummaryPDF(context.Background(), "tok", learnerClaims())

	require.Error(t, err)
	appErr := apperrors.FromError(err)
	assert.Equal(t, apperrors.ErrApprovalRequired.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "PENDING")
}

func TestSummaryPDFRendersWhenApproved(t *testing.T) {
	approved := &models.ReportRequest{ID: "r-1", StudentID: "s-1", Status: models.ReportStatusApproved}
	up := &stubUpstream{
		learnerRequestFn: func(studentID string) (*models.ReportRequest, error) {
			return approved, nil
		},
	}
	renderer := &stubRenderer{}
	svc := NewReportService(up, nil, renderer, nil, nil, ReportServiceConfig{})

	data, fileName, err := svc.SummaryPDF(context.Background(), "tok", learnerClaims())

	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-stub"), data)
	assert.True(t, strings.HasPrefix(fileName, "edulearn-report-"))
	assert.True(t, strings.HasSuffix(fileName, ".pdf"))
	require.NotNil(t, renderer.rendered)
	assert.Equal(t, "r-1", renderer.rendered.ReportID)
}

func TestRequestDownloadValidatesPayload(t *testing.T) {
	svc := newTestReportService(&stubUpstream{}, nil)

	_, err := svc.RequestDownload(context.Background(), "tok", dto.DownloadRequestPayload{CourseID: "c-1"})

	require.Error(t, err)
	assert.Equal(t, apperrors.ErrValidation.Code, apperrors.FromError(err).Code)
}

func TestRequestDownloadForwardsPayload(t *testing.T) {
	var got upstream.DownloadRequestInput
	up := &stubUpstream{
		requestDownloadFn: func(input upstream.DownloadRequestInput) (models.ReportRequest, error) {
			got = input
			return models.ReportRequest{ID: "r-1", StudentID: "s-1", Status: models.ReportStatusPending}, nil
		},
	}
	svc := newTestReportService(up, nil)

	request, err := svc.RequestDownload(context.Background(), "tok", dto.DownloadRequestPayload{
		CourseID:   "c-1",
		CourseName: "Algebra",
		QuizID:     "q-1",
	})

	require.NoError(t, err)
	assert.Equal(t, "r-1", request.ID)
	assert.Equal(t, "c-1", got.CourseID)
	assert.Equal(t, "Algebra", got.CourseName)
	assert.Equal(t, "q-1", got.QuizID)
}
