// Package client provides a typed Go client for the review service HTTP
// API, plus stateful helpers for rendering a review feed.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/khoitriso/review-service/pkg/httpclient"
)

// HTTPDoer is the interface for executing HTTP requests.
// Both httpclient.Client and httpclient.CircuitBreakerClient satisfy this.
type HTTPDoer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// ReviewDraft is the payload for creating or editing a review.
type ReviewDraft struct {
	Rating  int    `json:"rating"`
	Title   string `json:"title,omitempty"`
	Content string `json:"content"`
}

// ListOptions narrows and orders a review listing.
type ListOptions struct {
	Page      int
	PerPage   int
	SortBy    string // createdAt, rating, helpfulCount
	SortOrder string // asc, desc
	Rating    *int   // exact star match
}

// ReviewPage is one page of reviews with the aggregate summary.
type ReviewPage struct {
	Reviews    []Review       `json:"data"`
	Summary    *ReviewSummary `json:"summary"`
	TotalCount int            `json:"total_count"`
	Page       int            `json:"page"`
	PerPage    int            `json:"per_page"`
	TotalPages int            `json:"total_pages"`
}

// Client is a typed client for the review service API. It is safe for
// concurrent use.
type Client struct {
	http    HTTPDoer
	baseURL string
	userID  string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPDoer replaces the default circuit-breaker-wrapped HTTP client.
func WithHTTPDoer(d HTTPDoer) Option {
	return func(c *Client) { c.http = d }
}

// WithUserID sets the identity sent on authenticated requests.
func WithUserID(userID string) Option {
	return func(c *Client) { c.userID = userID }
}

// New creates a review service client. By default requests go through a
// retrying HTTP client wrapped in a circuit breaker.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{baseURL: baseURL}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		inner := httpclient.New(httpclient.DefaultConfig())
		c.http = httpclient.NewCircuitBreakerClient(inner, httpclient.DefaultCircuitBreakerConfig("review-service"))
	}
	return c
}

// ListReviews fetches a page of reviews for an item.
func (c *Client) ListReviews(ctx context.Context, itemType ItemType, itemID int64, opts ListOptions) (*ReviewPage, error) {
	q := url.Values{}
	if opts.Page > 0 {
		q.Set("page", strconv.Itoa(opts.Page))
	}
	if opts.PerPage > 0 {
		q.Set("per_page", strconv.Itoa(opts.PerPage))
	}
	if opts.SortBy != "" {
		q.Set("sort_by", opts.SortBy)
	}
	if opts.SortOrder != "" {
		q.Set("sort_order", opts.SortOrder)
	}
	if opts.Rating != nil {
		q.Set("rating", strconv.Itoa(*opts.Rating))
	}

	u := fmt.Sprintf("%s/api/v1/items/%s/%d/reviews", c.baseURL, itemType, itemID)
	if encoded := q.Encode(); encoded != "" {
		u += "?" + encoded
	}

	var page ReviewPage
	if err := c.do(ctx, http.MethodGet, u, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// GetSummary fetches the aggregate rating summary for an item.
func (c *Client) GetSummary(ctx context.Context, itemType ItemType, itemID int64) (*ReviewSummary, error) {
	u := fmt.Sprintf("%s/api/v1/items/%s/%d/reviews/summary", c.baseURL, itemType, itemID)

	var envelope struct {
		Data *ReviewSummary `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, u, nil, &envelope); err != nil {
		return nil, err
	}
	return envelope.Data, nil
}

// GetMyReview fetches the authenticated user's review for an item. Returns
// a NOT_FOUND error when the user has not reviewed it yet.
func (c *Client) GetMyReview(ctx context.Context, itemType ItemType, itemID int64) (*Review, error) {
	u := fmt.Sprintf("%s/api/v1/items/%s/%d/reviews/me", c.baseURL, itemType, itemID)

	var envelope struct {
		Data *Review `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, u, nil, &envelope); err != nil {
		return nil, err
	}
	return envelope.Data, nil
}

// CreateReview submits a new review for an item.
func (c *Client) CreateReview(ctx context.Context, itemType ItemType, itemID int64, draft ReviewDraft) (*Review, error) {
	u := fmt.Sprintf("%s/api/v1/items/%s/%d/reviews", c.baseURL, itemType, itemID)

	var envelope struct {
		Data *Review `json:"data"`
	}
	if err := c.do(ctx, http.MethodPost, u, draft, &envelope); err != nil {
		return nil, err
	}
	return envelope.Data, nil
}

// UpdateReview edits an existing review owned by the authenticated user.
func (c *Client) UpdateReview(ctx context.Context, reviewID string, draft ReviewDraft) (*Review, error) {
	u := fmt.Sprintf("%s/api/v1/reviews/%s", c.baseURL, reviewID)

	var envelope struct {
		Data *Review `json:"data"`
	}
	if err := c.do(ctx, http.MethodPut, u, draft, &envelope); err != nil {
		return nil, err
	}
	return envelope.Data, nil
}

// DeleteReview removes a review owned by the authenticated user.
func (c *Client) DeleteReview(ctx context.Context, reviewID string) error {
	u := fmt.Sprintf("%s/api/v1/reviews/%s", c.baseURL, reviewID)
	return c.do(ctx, http.MethodDelete, u, nil, nil)
}

// MarkHelpful votes a review as helpful and returns the new helpful count.
// A repeat vote fails with a CONFLICT error.
func (c *Client) MarkHelpful(ctx context.Context, reviewID string) (int, error) {
	u := fmt.Sprintf("%s/api/v1/reviews/%s/helpful", c.baseURL, reviewID)

	var envelope struct {
		Data struct {
			HelpfulCount int `json:"helpful_count"`
		} `json:"data"`
	}
	if err := c.do(ctx, http.MethodPost, u, nil, &envelope); err != nil {
		return 0, err
	}
	return envelope.Data.HelpfulCount, nil
}

// do executes a request, decoding the response into out when non-nil.
// Non-2xx responses are turned into AppErrors carrying the remote code.
func (c *Client) do(ctx context.Context, method, url string, body any, out any) error {
	var reqBody *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(payload)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.userID != "" {
		req.Header.Set("X-User-ID", c.userID)
	}

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return fmt.Errorf("call review service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return httpclient.ParseResponseError(resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
