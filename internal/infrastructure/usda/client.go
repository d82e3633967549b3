package usda

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/macrolens/foodrecon/internal/domain"
)

const maxAttempts = 3

// Client handles communication with the USDA FoodData Central API
type Client struct {
	httpClient  *http.Client
	apiKey      string
	baseURL     string
	rateLimiter *rate.Limiter
	backoff     func(attempt int) time.Duration
	debug       bool
	log         *zap.Logger
}

// NewClient creates a new USDA API client.
// requestsPerHour is the account quota; 1000/hour is the FDC default.
func NewClient(apiKey, baseURL string, requestsPerHour int) *Client {
	if requestsPerHour <= 0 {
		requestsPerHour = 1000
	}
	// rate.Limit is requests per second
	limiter := rate.NewLimiter(rate.Limit(float64(requestsPerHour)/3600.0), 10)

	return &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		apiKey:      apiKey,
		baseURL:     baseURL,
		rateLimiter: limiter,
		backoff:     exponentialBackoff,
		log:         zap.L().Named("usda"),
	}
}

// SetDebug toggles request/response debug logging
func (c *Client) SetDebug(debug bool) {
	c.debug = debug
}

// exponentialBackoff returns 500ms, 1s, 2s, ... for attempts 1, 2, 3, ...
func exponentialBackoff(attempt int) time.Duration {
	return time.Duration(500*(1<<(attempt-1))) * time.Millisecond
}

// retryable reports whether a status code is worth another attempt
func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= http.StatusInternalServerError
}

// get executes a GET with rate limiting and the retry policy, returning the body of a 200 response
func (c *Client) get(ctx context.Context, reqURL string) ([]byte, error) {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "usda: rate limiter")
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, eris.Wrap(err, "usda: create request")
		}
		req.Header.Set("User-Agent", "MacroLens/1.0")
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			c.log.Warn("request failed", zap.Int("attempt", attempt), zap.Error(err))
			lastErr = fmt.Errorf("%w: %v", domain.ErrUSDAAPIFailure, err)
			if !c.sleep(ctx, attempt) {
				return nil, lastErr
			}
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()

		if c.debug {
			c.log.Debug("response", zap.Int("status", resp.StatusCode), zap.Int("bytes", len(body)))
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			if readErr != nil {
				return nil, eris.Wrap(readErr, "usda: read body")
			}
			return body, nil
		case resp.StatusCode == http.StatusNotFound:
			return nil, domain.ErrProductNotFound
		case retryable(resp.StatusCode):
			c.log.Warn("api error", zap.Int("attempt", attempt), zap.Int("status", resp.StatusCode))
			lastErr = fmt.Errorf("%w: status %d", domain.ErrUSDAAPIFailure, resp.StatusCode)
			if !c.sleep(ctx, attempt) {
				return nil, lastErr
			}
		default:
			return nil, fmt.Errorf("%w: status %d, body: %s", domain.ErrUSDAAPIFailure, resp.StatusCode, string(body))
		}
	}
	return nil, lastErr
}

// sleep waits before the next attempt; false means stop retrying
func (c *Client) sleep(ctx context.Context, attempt int) bool {
	if attempt >= maxAttempts {
		return false
	}
	timer := time.NewTimer(c.backoff(attempt))
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// SearchFoods searches for foods in the USDA database
func (c *Client) SearchFoods(ctx context.Context, query string) (*domain.USDASearchResponse, error) {
	params := url.Values{}
	params.Add("query", query)
	params.Add("api_key", c.apiKey)
	params.Add("dataType", "Foundation,SR Legacy,Survey (FNDDS),Branded")
	params.Add("pageSize", "10")

	reqURL := fmt.Sprintf("%s/v1/foods/search?%s", c.baseURL, params.Encode())

	body, err := c.get(ctx, reqURL)
	if err != nil {
		return nil, err
	}

	var searchResp domain.USDASearchResponse
	if err := json.Unmarshal(body, &searchResp); err != nil {
		return nil, eris.Wrap(err, "usda: decode search response")
	}

	if len(searchResp.Foods) == 0 {
		c.log.Debug("no foods found", zap.String("query", query))
		return nil, domain.ErrProductNotFound
	}

	c.log.Debug("search complete", zap.String("query", query), zap.Int("foods", len(searchResp.Foods)))
	return &searchResp, nil
}

// GetFoodDetails fetches the raw detail payload for a food.
// Decoding is left to the normalizer so that format drift degrades instead of failing.
func (c *Client) GetFoodDetails(ctx context.Context, fdcID int64) ([]byte, error) {
	params := url.Values{}
	params.Add("api_key", c.apiKey)

	reqURL := fmt.Sprintf("%s/v1/food/%d?%s", c.baseURL, fdcID, params.Encode())
	return c.get(ctx, reqURL)
}
