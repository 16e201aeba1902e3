package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/edulearn/report-gateway/internal/models"
	"github.com/edulearn/report-gateway/internal/normalize"
	apperrors "github.com/edulearn/report-gateway/pkg/errors"
)

// DownloadResultKind distinguishes the two shapes an approved report
// download can take.
type DownloadResultKind string

const (
	DownloadKindFile DownloadResultKind = "file"
	DownloadKindURL  DownloadResultKind = "url"
)

// DownloadResult is either the report bytes themselves or a redirect-style
// URL the client should fetch instead.
type DownloadResult struct {
	Kind        DownloadResultKind
	Data        []byte
	ContentType string
	URL         string
	FileName    string
}

// DownloadParams scope the artifact fetch.
type DownloadParams struct {
	RequestID string
	CourseID  string
	QuizID    string
}

// DownloadReport fetches the rendered report artifact. Candidate URLs are
// tried in order; a binary content type yields the file bytes with a
// filename resolved from Content-Disposition, a JSON body carrying a
// url/downloadUrl/reportUrl/fileUrl field yields a URL result, and a JSON
// body echoing a non-APPROVED request is a fatal workflow error rather than
// a wrong-endpoint signal.
func (c *Client) DownloadReport(ctx context.Context, token string, params DownloadParams, limit int64) (*DownloadResult, error) {
	query := downloadQuery(params)
	withSlash := "/"
	if query != "" {
		withSlash = "/" + query
	}
	paths := []string{
		"/reports/download" + query,
		"/reports/",
		"/reports",
		"/reports" + query,
		"/reports" + withSlash,
	}

	var lastErr error

	for _, path := range paths {
		result, err := c.fetchArtifact(ctx, token, path, limit)
		if err == nil {
			return result, nil
		}

		appErr := apperrors.FromError(err)
		switch {
		case appErr.Code == apperrors.ErrApprovalRequired.Code:
			return nil, err
		case appErr.Status == http.StatusUnauthorized || appErr.Status == http.StatusForbidden:
			return nil, err
		default:
			c.logger.Debug("report download candidate missed",
				zap.String("path", path), zap.Int("status", appErr.Status))
			lastErr = err
		}
	}

	if lastErr != nil {
		return nil, lastErr
	}
	return nil, apperrors.ErrNoReportFile
}

func (c *Client) fetchArtifact(ctx context.Context, token, path string, limit int64) (*DownloadResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "failed to build download request")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrInternal.Code, http.StatusBadGateway, "report download request failed")
	}
	defer resp.Body.Close()

	contentType := resp.Header.Get("Content-Type")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var payload any
		if strings.Contains(contentType, "application/json") {
			payload = decodeJSONBody(resp.Body, limit)
		}
		return nil, statusError(resp.StatusCode, payload)
	}

	fileName := ParseContentDisposition(resp.Header.Get("Content-Disposition"))
	if fileName == "" {
		fileName = fmt.Sprintf("edulearn-report-%d.pdf", time.Now().UnixMilli())
	}

	if strings.Contains(contentType, "application/json") {
		payload := decodeJSONBody(resp.Body, limit)
		body := normalize.Record(payload)
		data := normalize.Record(body["data"])

		for _, key := range []string{"url", "downloadUrl", "reportUrl", "fileUrl"} {
			if urlValue := normalize.String(data[key]); urlValue != "" {
				return &DownloadResult{Kind: DownloadKindURL, URL: urlValue, FileName: fileName}, nil
			}
		}
		if urlValue := normalize.String(body["url"]); urlValue != "" {
			return &DownloadResult{Kind: DownloadKindURL, URL: urlValue, FileName: fileName}, nil
		}

		// A request echo in any state but APPROVED means the caller hit the
		// right endpoint in the wrong workflow state.
		if echoed := normalize.SingleRequest(payload); echoed != nil && echoed.Status != models.ReportStatusApproved {
			return nil, apperrors.Clone(apperrors.ErrApprovalRequired,
				fmt.Sprintf("Report is %s. Approval is required before download.", echoed.Status))
		}

		return nil, apperrors.ErrNoReportFile
	}

	reader := io.Reader(resp.Body)
	if limit > 0 {
		reader = io.LimitReader(resp.Body, limit)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrInternal.Code, http.StatusBadGateway, "failed to read report file")
	}

	return &DownloadResult{
		Kind:        DownloadKindFile,
		Data:        data,
		ContentType: contentType,
		FileName:    fileName,
	}, nil
}

var (
	utf8FileNameRe  = regexp.MustCompile(`(?i)filename\*=UTF-8''([^;]+)`)
	plainFileNameRe = regexp.MustCompile(`(?i)filename="?([^";]+)"?`)
)

// ParseContentDisposition extracts a filename from a Content-Disposition
// header, supporting both the plain filename="..." form and the RFC 5987
// filename* form. Returns empty when no filename is present.
func ParseContentDisposition(header string) string {
	if header == "" {
		return ""
	}

	if match := utf8FileNameRe.FindStringSubmatch(header); len(match) == 2 {
		decoded, err := url.QueryUnescape(match[1])
		if err != nil {
			decoded = match[1]
		}
		return strings.NewReplacer(`"`, "", "'", "").Replace(decoded)
	}

	if match := plainFileNameRe.FindStringSubmatch(header); len(match) == 2 {
		return strings.TrimSpace(match[1])
	}
	return ""
}

func decodeJSONBody(body io.Reader, limit int64) any {
	if limit > 0 {
		body = io.LimitReader(body, limit)
	}
	raw, err := io.ReadAll(body)
	if err != nil || len(raw) == 0 {
		return nil
	}
	var payload any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil
	}
	return payload
}

func downloadQuery(params DownloadParams) string {
	values := url.Values{}
	if params.RequestID != "" {
		values.Set("requestId", params.RequestID)
	}
	if params.CourseID != "" {
		values.Set("courseId", params.CourseID)
	}
	if params.QuizID != "" {
		values.Set("quizId", params.QuizID)
	}
	if encoded := values.Encode(); encoded != "" {
		return "?" + encoded
	}
	return ""
}
