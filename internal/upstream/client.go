// Package upstream bridges the gateway to the legacy EduLearn REST backend.
// The backend's route shape for the report workflow varies by deployment, so
// every logical operation tries a prioritized list of endpoint candidates:
// HTTP 404 and 405 mean "wrong endpoint guess, try the next one", while any
// other failure is a meaningful application or auth error and propagates
// immediately.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/edulearn/report-gateway/internal/models"
	"github.com/edulearn/report-gateway/internal/normalize"
	apperrors "github.com/edulearn/report-gateway/pkg/errors"
)

// probeObserver receives instrumentation for candidate probing.
type probeObserver interface {
	ObserveUpstreamProbe(operation string, attempts int, success bool, duration time.Duration)
}

// Client performs report-workflow operations against the legacy backend.
type Client struct {
	baseURL       string
	httpClient    *http.Client
	logger        *zap.Logger
	metrics       probeObserver
	maxCandidates int
}

// Config tunes the upstream client.
type Config struct {
	BaseURL       string
	Timeout       time.Duration
	MaxCandidates int
}

// NewClient constructs an upstream client.
func NewClient(cfg Config, metrics probeObserver, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &Client{
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		httpClient:    &http.Client{Timeout: cfg.Timeout},
		logger:        logger,
		metrics:       metrics,
		maxCandidates: cfg.MaxCandidates,
	}
}

// DownloadRequestInput scopes a learner's download request to a course or
// quiz context.
type DownloadRequestInput struct {
	CourseID   string `json:"courseId,omitempty"`
	CourseName string `json:"courseName,omitempty"`
	ClassLevel string `json:"classLevel,omitempty"`
	QuizID     string `json:"quizId,omitempty"`
	QuizTitle  string `json:"quizTitle,omitempty"`
}

// ListFilters narrow a request listing. Status ALL (or empty) means no
// status constraint.
type ListFilters struct {
	Status   models.ReportRequestStatus
	CourseID string
}

type candidate struct {
	method string
	path   string
	body   any
}

// RequestDownload creates or refreshes the learner's pending request.
func (c *Client) RequestDownload(ctx context.Context, token string, input DownloadRequestInput) (models.ReportRequest, error) {
	payload, err := c.probe(ctx, token, "request_download", []candidate{
		{http.MethodPatch, "/reports", input},
		{http.MethodPatch, "/reports/", input},
		{http.MethodPatch, "/reports/request-download", input},
	})
	if err != nil {
		return models.ReportRequest{}, err
	}

	if single := normalize.SingleRequest(payload); single != nil {
		return *single, nil
	}
	return normalize.Request(normalize.RequestLike(payload)), nil
}

// LearnerRequest fetches the calling learner's most recent request. When the
// caller's identity is known, list results are filtered down to that learner
// and nil is returned rather than another learner's record. Exhausting all
// candidates on routing errors also yields nil: the learner simply has no
// request yet.
func (c *Client) LearnerRequest(ctx context.Context, token, studentID string) (*models.ReportRequest, error) {
	payload, err := c.probe(ctx, token, "learner_request", []candidate{
		{http.MethodGet, "/reports/request-download", nil},
		{http.MethodGet, "/reports/request-download/status", nil},
		{http.MethodGet, "/reports/requests/me", nil},
		{http.MethodGet, "/reports", nil},
		{http.MethodGet, "/reports/", nil},
	})
	if err != nil {
		appErr := apperrors.FromError(err)
		if apperrors.IsRoutingStatus(appErr.Status) {
			return nil, nil
		}
		return nil, err
	}

	items := normalize.RequestList(payload)
	if studentID != "" {
		items = filterByStudent(items, studentID)
	}
	if recent := normalize.MostRecent(items); recent != nil {
		return recent, nil
	}

	single := normalize.SingleRequest(payload)
	if single == nil {
		return nil, nil
	}
	if studentID != "" && single.StudentID != "" && single.StudentID != studentID {
		return nil, nil
	}
	return single, nil
}

// ListRequests fetches all requests for the approver views. Whatever the
// server claims to have filtered, the status and course filters are
// re-applied here after normalization as a safety net.
func (c *Client) ListRequests(ctx context.Context, token string, filters ListFilters) ([]models.ReportRequest, error) {
	query := listQuery(filters)
	payload, err := c.probe(ctx, token, "list_requests", []candidate{
		{http.MethodGet, "/reports" + query, nil},
		{http.MethodGet, "/reports/" + query, nil},
		{http.MethodGet, "/reports/requests" + query, nil},
		{http.MethodGet, "/reports/request-download/requests" + query, nil},
		{http.MethodGet, "/reports/request-download" + scopeAllQuery(query), nil},
	})
	if err != nil {
		return nil, err
	}

	return applyFilters(normalize.RequestList(payload), filters), nil
}

// DecideRequest records an approver decision. When the upstream response
// cannot be normalized into an identifiable request the typed
// ErrUnknownShape is returned; the caller knows the id and decision it asked
// for and decides whether to echo them optimistically.
func (c *Client) DecideRequest(ctx context.Context, token, requestID string, decision models.ReportDecision) (models.ReportRequest, error) {
	body := map[string]any{"status": string(decision)}
	withID := map[string]any{"requestId": requestID, "status": string(decision)}

	payload, err := c.probe(ctx, token, "decide_request", []candidate{
		{http.MethodPatch, "/reports/" + requestID + "/decision", body},
		{http.MethodPatch, "/reports/" + requestID, body},
		{http.MethodPatch, "/reports", withID},
		{http.MethodPatch, "/reports/", withID},
		{http.MethodPatch, "/reports/requests/" + requestID + "/decision", body},
		{http.MethodPatch, "/reports/requests/" + requestID, body},
		{http.MethodPatch, "/reports/request-download/" + requestID, body},
		{http.MethodPatch, "/reports/request-download", withID},
	})
	if err != nil {
		return models.ReportRequest{}, err
	}

	decided := normalize.Request(normalize.RequestLike(payload))
	if decided.ID == "" && decided.StudentID == "" {
		return models.ReportRequest{}, apperrors.Clone(apperrors.ErrUnknownShape,
			"decision response could not be matched to a request")
	}
	return decided, nil
}

// probe walks the candidate list in order, returning the first response that
// is not a routing-shape failure. The last routing error surfaces when every
// candidate is exhausted.
func (c *Client) probe(ctx context.Context, token, operation string, candidates []candidate) (any, error) {
	if c.maxCandidates > 0 && len(candidates) > c.maxCandidates {
		candidates = candidates[:c.maxCandidates]
	}

	start := time.Now()
	var lastSoft *apperrors.Error

	for attempt, cand := range candidates {
		payload, err := c.do(ctx, token, cand)
		if err == nil {
			c.observe(operation, attempt+1, true, time.Since(start))
			return payload, nil
		}

		appErr := apperrors.FromError(err)
		if !apperrors.IsRoutingStatus(appErr.Status) {
			c.observe(operation, attempt+1, false, time.Since(start))
			return nil, err
		}

		c.logger.Debug("upstream candidate missed",
			zap.String("operation", operation),
			zap.String("method", cand.method),
			zap.String("path", cand.path),
			zap.Int("status", appErr.Status))
		lastSoft = appErr
	}

	c.observe(operation, len(candidates), false, time.Since(start))
	if lastSoft != nil {
		return nil, lastSoft
	}
	return nil, apperrors.ErrNoEndpoint
}

func (c *Client) do(ctx context.Context, token string, cand candidate) (any, error) {
	var reqBody io.Reader
	if cand.body != nil {
		encoded, err := json.Marshal(cand.body)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "failed to encode upstream request")
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, cand.method, c.baseURL+cand.path, reqBody)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "failed to build upstream request")
	}
	if cand.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrInternal.Code, http.StatusBadGateway, "upstream request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrInternal.Code, http.StatusBadGateway, "failed to read upstream response")
	}

	var payload any
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &payload); err != nil {
			payload = nil
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, statusError(resp.StatusCode, payload)
	}
	return payload, nil
}

func (c *Client) observe(operation string, attempts int, success bool, duration time.Duration) {
	if c.metrics != nil {
		c.metrics.ObserveUpstreamProbe(operation, attempts, success, duration)
	}
}

// statusError converts a non-2xx upstream response into a typed error,
// preferring the backend's own message/error text.
func statusError(status int, payload any) *apperrors.Error {
	body := normalize.Record(payload)
	message := normalize.String(body["message"])
	if message == "" {
		message = normalize.String(body["error"])
	}
	if message == "" {
		message = fmt.Sprintf("upstream returned status %d", status)
	}
	return apperrors.New(fmt.Sprintf("UPSTREAM_%d", status), status, message)
}

func listQuery(filters ListFilters) string {
	params := url.Values{}
	if filters.Status != "" && filters.Status != models.ReportStatusAll {
		params.Set("status", string(filters.Status))
	}
	if filters.CourseID != "" {
		params.Set("courseId", filters.CourseID)
	}
	if encoded := params.Encode(); encoded != "" {
		return "?" + encoded
	}
	return ""
}

func scopeAllQuery(query string) string {
	if query == "" {
		return "?scope=all"
	}
	return query + "&scope=all"
}

func filterByStudent(items []models.ReportRequest, studentID string) []models.ReportRequest {
	filtered := make([]models.ReportRequest, 0, len(items))
	for _, item := range items {
		if item.StudentID == studentID {
			filtered = append(filtered, item)
		}
	}
	return filtered
}

// applyFilters is the authoritative list filter; the server-side query is
// treated as an optimization hint only.
func applyFilters(items []models.ReportRequest, filters ListFilters) []models.ReportRequest {
	result := make([]models.ReportRequest, 0, len(items))
	for _, item := range items {
		if filters.Status != "" && filters.Status != models.ReportStatusAll && item.Status != filters.Status {
			continue
		}
		if filters.CourseID != "" && item.CourseID != filters.CourseID {
			continue
		}
		result = append(result, item)
	}
	return result
}
