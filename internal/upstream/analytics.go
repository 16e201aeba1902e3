package upstream

import (
	"context"
	"net/http"

	"github.com/edulearn/report-gateway/internal/normalize"
)

// QuizAnalytics fetches the learner's raw quiz analytics entries. The shape
// of each entry is left untyped; the summary builder resolves scores field
// by field.
func (c *Client) QuizAnalytics(ctx context.Context, token string) ([]any, error) {
	payload, err := c.probe(ctx, token, "quiz_analytics", []candidate{
		{http.MethodGet, "/quizzes/analytics", nil},
		{http.MethodGet, "/quizzes/analytics/", nil},
		{http.MethodGet, "/analytics/quizzes", nil},
	})
	if err != nil {
		return nil, err
	}

	body := normalize.Record(payload)
	data := normalize.Record(body["data"])
	for _, candidate := range []any{data["analytics"], body["analytics"], data["items"], payload} {
		if items, ok := candidate.([]any); ok {
			return items, nil
		}
	}
	return nil, nil
}

// QuizSubjects fetches the learner's quizzes and extracts lesson titles for
// use as fallback subjects when no analytics resolve.
func (c *Client) QuizSubjects(ctx context.Context, token string) ([]string, error) {
	payload, err := c.probe(ctx, token, "quiz_subjects", []candidate{
		{http.MethodGet, "/quizzes", nil},
		{http.MethodGet, "/quizzes/", nil},
	})
	if err != nil {
		return nil, err
	}

	body := normalize.Record(payload)
	data := normalize.Record(body["data"])
	var items []any
	for _, candidate := range []any{data["quizzes"], body["quizzes"], data["items"], payload} {
		if list, ok := candidate.([]any); ok {
			items = list
			break
		}
	}

	seen := map[string]struct{}{}
	subjects := make([]string, 0, len(items))
	for _, item := range items {
		record := normalize.Record(item)
		lesson := normalize.Record(record["lesson"])
		title := normalize.String(lesson["title"])
		if title == "" {
			title = normalize.String(lesson["name"])
		}
		if title == "" {
			title = normalize.String(record["title"])
		}
		if title == "" {
			continue
		}
		if _, dup := seen[title]; dup {
			continue
		}
		seen[title] = struct{}{}
		subjects = append(subjects, title)
	}
	return subjects, nil
}
