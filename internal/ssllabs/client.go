package ssllabs

import (
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

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"sslingest/internal/config"
	"sslingest/pkg/apierrors"
	"sslingest/pkg/logger"
)

// Client issues GET requests against the SSL Labs v3 API with retry and
// backoff. All responses are returned both decoded and as verbatim bytes.
type Client struct {
	baseURL    string
	userAgent  string
	maxRetries int
	httpClient *http.Client
	log        *logger.Logger
}

func NewClient(cfg *config.APIConfig) *Client {
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		userAgent:  cfg.UserAgent,
		maxRetries: cfg.MaxRetries,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		log:        logger.NewLogger(logrus.InfoLevel),
	}
}

// Info calls /info
func (c *Client) Info(ctx context.Context) (*InfoResult, error) {
	body, err := c.get(ctx, "info", nil)
	if err != nil {
		return nil, err
	}

	result := &InfoResult{Body: body}
	if err := json.Unmarshal(body, &result.Report); err != nil {
		return nil, apierrors.NewAPIError("info", 0, err)
	}
	return result, nil
}

// Analyze calls /analyze for the given host. The assessment is
// asynchronous; the returned report carries whatever status the API had
// at call time.
func (c *Client) Analyze(ctx context.Context, host string, opts AnalyzeOptions) (*AnalyzeResult, error) {
	if host == "" {
		return nil, apierrors.ErrMissingHost
	}

	params := url.Values{}
	params.Set("host", host)
	if opts.StartNew {
		params.Set("startNew", "on")
	} else if opts.FromCache {
		// startNew and fromCache are mutually exclusive on the API side
		params.Set("fromCache", "on")
	}

	body, err := c.get(ctx, "analyze", params)
	if err != nil {
		return nil, err
	}

	result := &AnalyzeResult{Body: body}
	if err := json.Unmarshal(body, &result.Report); err != nil {
		return nil, apierrors.NewAPIError("analyze", 0, err)
	}

	// Lift the verbatim endpoint objects so per-endpoint summaries can be
	// stored without re-encoding them.
	var raw struct {
		Endpoints []json.RawMessage `json:"endpoints"`
	}
	if err := json.Unmarshal(body, &raw); err == nil {
		result.EndpointRaws = raw.Endpoints
	}

	return result, nil
}

// EndpointData calls /getEndpointData for one endpoint of a host
func (c *Client) EndpointData(ctx context.Context, host, ip string) (*EndpointResult, error) {
	if host == "" {
		return nil, apierrors.ErrMissingHost
	}
	if ip == "" {
		return nil, apierrors.ErrMissingIP
	}

	params := url.Values{}
	params.Set("host", host)
	params.Set("ip", ip)

	body, err := c.get(ctx, "getEndpointData", params)
	if err != nil {
		return nil, err
	}

	result := &EndpointResult{Body: body}
	if err := json.Unmarshal(body, &result.Report); err != nil {
		return nil, apierrors.NewAPIError("getEndpointData", 0, err)
	}
	return result, nil
}

// get performs a GET with exponential backoff. Network errors, throttling
// and any status >= 400 are retried up to maxRetries attempts; /analyze in
// particular returns 503/529 while an assessment is running.
func (c *Client) get(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	reqURL := fmt.Sprintf("%s/%s", c.baseURL, endpoint)
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	var body []byte

	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return backoff.Permanent(apierrors.NewAPIError(endpoint, 0, err))
		}
		req.Header.Set("User-Agent", c.userAgent)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			c.log.WithEndpoint(endpoint, "").WithError(err).Warn("Request failed")
			return apierrors.NewAPIError(endpoint, 0, err)
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return apierrors.NewAPIError(endpoint, resp.StatusCode, err)
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			wait := retryAfter(resp)
			c.log.WithEndpoint(endpoint, "").Warnf("Rate limited, sleeping %s before retry", wait)
			if err := sleepCtx(ctx, wait); err != nil {
				return backoff.Permanent(err)
			}
			return apierrors.NewAPIError(endpoint, resp.StatusCode, apierrors.ErrRateLimited)
		}

		if resp.StatusCode >= 400 {
			c.log.WithEndpoint(endpoint, "").Warnf("Status %d, body: %s", resp.StatusCode, truncate(data, 200))
			return apierrors.NewAPIError(endpoint, resp.StatusCode,
				errors.New(http.StatusText(resp.StatusCode)))
		}

		if !json.Valid(data) {
			return apierrors.NewAPIError(endpoint, resp.StatusCode, apierrors.ErrInvalidJSON)
		}

		body = data
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 1 * time.Second
	bo.MaxInterval = 60 * time.Second
	bo.MaxElapsedTime = 0

	err := backoff.Retry(operation,
		backoff.WithContext(backoff.WithMaxRetries(bo, uint64(c.maxRetries-1)), ctx))
	if err != nil {
		return nil, err
	}
	return body, nil
}

// retryAfter honors the Retry-After header with a 10s fallback
func retryAfter(resp *http.Response) time.Duration {
	if ra := resp.Header.Get("Retry-After"); ra != "" {
		if secs, err := strconv.Atoi(ra); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return 10 * time.Second
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n])
}
