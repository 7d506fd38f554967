package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"quiz-session-service/internal/domain"
)

// Client talks to the platform REST API that owns exams and attempts.
// It serves as a question loader and as response persistence.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func NewClient(baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: timeout},
	}
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Code, e.Body)
}

// LoadQuestions fetches GET /api/Question/exam/{examId}?sectionId={sectionId}.
func (c *Client) LoadQuestions(ctx context.Context, examID, sectionID int) ([]domain.Question, error) {
	path := "/api/Question/exam/" + strconv.Itoa(examID) + "?" + url.Values{
		"sectionId": {strconv.Itoa(sectionID)},
	}.Encode()

	var questions []domain.Question
	if err := c.do(ctx, http.MethodGet, path, nil, &questions); err != nil {
		var se *StatusError
		if errors.As(err, &se) && se.Code == http.StatusNotFound {
			return nil, domain.ErrExamNotFound
		}
		return nil, fmt.Errorf("load questions: %w", err)
	}
	return questions, nil
}

// SaveProgress posts the full answer snapshot to /api/UserExamResponse.
func (c *Client) SaveProgress(ctx context.Context, update domain.ProgressUpdate) error {
	if err := c.do(ctx, http.MethodPost, "/api/UserExamResponse", update, nil); err != nil {
		return fmt.Errorf("save progress: %w", err)
	}
	return nil
}

// SubmitExam puts the final record to /api/UserExamProgress/{id}.
func (c *Client) SubmitExam(ctx context.Context, submission domain.Submission) error {
	path := "/api/UserExamProgress/" + strconv.Itoa(submission.ID)
	if err := c.do(ctx, http.MethodPut, path, submission, nil); err != nil {
		return fmt.Errorf("submit exam: %w", err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{Method: method, Path: path, Code: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
