// Package client is the candidate-side of the platform: a thin JSON client
// for the gateway API and the countdown/auto-submit loop that drives a timed
// attempt.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/haseebafeef/mock-verse/internal/billing"
	"github.com/haseebafeef/mock-verse/internal/exam"
)

type Client struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		HTTP:    &http.Client{Timeout: 30 * time.Second},
	}
}

type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

type session struct {
	AccessToken string `json:"access_token"`
	User        User   `json:"user"`
}

func (c *Client) Login(ctx context.Context, email, password string) (User, error) {
	var s session
	err := c.do(ctx, http.MethodPost, "/auth/login", map[string]string{
		"email": email, "password": password,
	}, &s)
	if err != nil {
		return User{}, err
	}
	c.Token = s.AccessToken
	return s.User, nil
}

func (c *Client) Signup(ctx context.Context, email, password, name string) (User, error) {
	var s session
	err := c.do(ctx, http.MethodPost, "/auth/signup", map[string]string{
		"email": email, "password": password, "name": name,
	}, &s)
	if err != nil {
		return User{}, err
	}
	c.Token = s.AccessToken
	return s.User, nil
}

func (c *Client) Plans(ctx context.Context) ([]billing.Plan, error) {
	var plans []billing.Plan
	err := c.do(ctx, http.MethodGet, "/plans", nil, &plans)
	return plans, err
}

func (c *Client) Exams(ctx context.Context, purchasedOnly bool) ([]exam.ExamSummary, error) {
	path := "/exams"
	if purchasedOnly {
		path += "?purchased=true"
	}
	var list []exam.ExamSummary
	err := c.do(ctx, http.MethodGet, path, nil, &list)
	return list, err
}

func (c *Client) Exam(ctx context.Context, examID string) (exam.ExamView, error) {
	var view exam.ExamView
	err := c.do(ctx, http.MethodGet, "/exams/"+url.PathEscape(examID), nil, &view)
	return view, err
}

func (c *Client) StartAttempt(ctx context.Context, examID string) (exam.StartReceipt, error) {
	var receipt exam.StartReceipt
	err := c.do(ctx, http.MethodPost, "/exams/"+url.PathEscape(examID)+"/start", struct{}{}, &receipt)
	return receipt, err
}

func (c *Client) SubmitAttempt(ctx context.Context, examID, attemptID string, answers map[string]exam.Option, timeSpentSec int) (exam.Result, error) {
	var res exam.Result
	err := c.do(ctx, http.MethodPost, "/exams/"+url.PathEscape(examID)+"/submit", map[string]any{
		"attempt_id": attemptID,
		"answers":    answers,
		"time_spent": timeSpentSec,
	}, &res)
	return res, err
}

func (c *Client) Result(ctx context.Context, attemptID string) (exam.AttemptReview, error) {
	var review exam.AttemptReview
	err := c.do(ctx, http.MethodGet, "/attempts/"+url.PathEscape(attemptID)+"/result", nil, &review)
	return review, err
}

func (c *Client) Checkout(ctx context.Context, planID string) (billing.CheckoutIntent, error) {
	var intent billing.CheckoutIntent
	err := c.do(ctx, http.MethodPost, "/checkout", map[string]string{"plan_id": planID}, &intent)
	return intent, err
}

func (c *Client) ConfirmCheckout(ctx context.Context, orderID, sessionID string) (billing.Order, error) {
	var order billing.Order
	path := fmt.Sprintf("/checkout/confirm?order_id=%s&session_id=%s",
		url.QueryEscape(orderID), url.QueryEscape(sessionID))
	err := c.do(ctx, http.MethodGet, path, nil, &order)
	return order, err
}

// APIError carries the HTTP status so callers can branch on Conflict
// ("already submitted", route to result) vs Forbidden (route to pricing).
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: %d: %s", e.Status, e.Message)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		msg := readErrMessage(resp.Body)
		return &APIError{Status: resp.StatusCode, Message: msg}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func readErrMessage(r io.Reader) string {
	buf, _ := io.ReadAll(io.LimitReader(r, 4096))
	var payload struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(buf, &payload) == nil && payload.Error != "" {
		return payload.Error
	}
	return string(bytes.TrimSpace(buf))
}
