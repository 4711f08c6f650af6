package httpclient

import (
	"context"
	"golang-jobrunner/pkg/ratelimit"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
)

type RestyClient struct {
	client   *resty.Client
	limiters *ratelimit.LimiterStore
}

type Option func(*RestyClient)

// WithLimiter throttles outbound requests per target host.
func WithLimiter(store *ratelimit.LimiterStore) Option {
	return func(rc *RestyClient) {
		rc.limiters = store
	}
}

func New(baseURL string, timeout time.Duration, bearerToken string, opts ...Option) HTTPClient {
	client := resty.New().
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	if baseURL != "" {
		client.SetBaseURL(baseURL)
	}
	if bearerToken != "" {
		client.SetAuthToken(bearerToken)
	}

	rc := &RestyClient{client: client}
	for _, opt := range opts {
		opt(rc)
	}
	return rc
}

func (rc *RestyClient) wait(ctx context.Context, endpoint string) error {
	if rc.limiters == nil {
		return nil
	}
	key := rc.client.BaseURL
	if u, err := url.Parse(endpoint); err == nil && u.Host != "" {
		key = u.Host
	}
	return rc.limiters.Wait(ctx, key)
}

func toBaseResponse(resp *resty.Response) *BaseResponse {
	if resp == nil {
		return &BaseResponse{}
	}
	return &BaseResponse{
		StatusCode: resp.StatusCode(),
		Body:       resp.Body(),
		Headers:    resp.Header(),
	}
}

// GET request with optional query params
func (rc *RestyClient) Get(ctx context.Context, endpoint string, queryParams map[string]string, headers map[string]string, result interface{}) (*BaseResponse, error) {
	if err := rc.wait(ctx, endpoint); err != nil {
		return &BaseResponse{}, err
	}
	req := rc.client.R().SetContext(ctx)
	if result != nil {
		req.SetResult(result)
	}

	if queryParams != nil {
		req.SetQueryParams(queryParams)
	}

	if headers != nil {
		req.SetHeaders(headers)
	}

	resp, err := req.Get(endpoint)
	return toBaseResponse(resp), err
}

// POST request with body
func (rc *RestyClient) Post(ctx context.Context, endpoint string, body interface{}, headers map[string]string, result interface{}) (*BaseResponse, error) {
	if err := rc.wait(ctx, endpoint); err != nil {
		return &BaseResponse{}, err
	}
	req := rc.client.R().
		SetContext(ctx).
		SetBody(body)
	if result != nil {
		req.SetResult(result)
	}

	if headers != nil {
		req.SetHeaders(headers)
	}

	resp, err := req.Post(endpoint)
	return toBaseResponse(resp), err
}

// PUT request
func (rc *RestyClient) Put(ctx context.Context, endpoint string, body interface{}, headers map[string]string, result interface{}) (*BaseResponse, error) {
	if err := rc.wait(ctx, endpoint); err != nil {
		return &BaseResponse{}, err
	}
	req := rc.client.R().
		SetContext(ctx).
		SetBody(body)
	if result != nil {
		req.SetResult(result)
	}

	if headers != nil {
		req.SetHeaders(headers)
	}

	resp, err := req.Put(endpoint)
	return toBaseResponse(resp), err
}

// DELETE request
func (rc *RestyClient) Delete(ctx context.Context, endpoint string, headers map[string]string, result interface{}) (*BaseResponse, error) {
	if err := rc.wait(ctx, endpoint); err != nil {
		return &BaseResponse{}, err
	}
	req := rc.client.R().
		SetContext(ctx)
	if result != nil {
		req.SetResult(result)
	}

	if headers != nil {
		req.SetHeaders(headers)
	}

	resp, err := req.Delete(endpoint)
	return toBaseResponse(resp), err
}
