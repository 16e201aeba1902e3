package normalize

import (
	"time"

	"github.com/edulearn/report-gateway/internal/models"
)

// RequestLike unwraps envelope shapes (`data.request`, `body.report`, ...)
// down to the object most likely to be a single report request. Falls back to
// the payload itself.
func RequestLike(payload any) any {
	body := Record(payload)
	data := Record(body["data"])
	for _, candidate := range []any{
		data["request"], data["reportRequest"], data["report"],
		body["request"], body["reportRequest"], body["report"],
	} {
		if candidate != nil {
			return candidate
		}
	}
	return payload
}

// RequestList probes the usual envelope keys for a request collection and
// returns the first candidate that normalizes to at least one identified row.
func RequestList(payload any) []models.ReportRequest {
	body := Record(payload)
	data := Record(body["data"])
	candidates := []any{
		data["reports"], data["requests"], data["reportRequests"], data["items"],
		body["reports"], body["requests"], body["reportRequests"], body["items"],
		payload,
	}

	for _, candidate := range candidates {
		if normalized := Collection(candidate); len(normalized) > 0 {
			return normalized
		}
	}
	return nil
}

// MostRecent picks the request with the latest updatedAt (falling back to
// createdAt). When multiple requests exist for a learner this is "the" active
// one for display purposes.
func MostRecent(items []models.ReportRequest) *models.ReportRequest {
	if len(items) == 0 {
		return nil
	}
	best := items[0]
	bestTime := requestTime(best)
	for _, item := range items[1:] {
		if t := requestTime(item); t.After(bestTime) {
			best = item
			bestTime = t
		}
	}
	return &best
}

// SingleRequest resolves a payload expected to describe one request: most
// recent entry of any embedded list, else the request-like object when it
// carries identity. Returns nil for unidentifiable payloads.
func SingleRequest(payload any) *models.ReportRequest {
	if fromList := MostRecent(RequestList(payload)); fromList != nil {
		return fromList
	}

	req := Request(RequestLike(payload))
	if req.ID != "" || req.StudentID != "" {
		return &req
	}
	return nil
}

func requestTime(r models.ReportRequest) time.Time {
	for _, raw := range []*string{r.UpdatedAt, r.CreatedAt} {
		if raw == nil {
			continue
		}
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
			if t, err := time.Parse(layout, *raw); err == nil {
				return t
			}
		}
	}
	return time.Time{}
}
