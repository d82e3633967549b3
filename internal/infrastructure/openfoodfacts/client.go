package openfoodfacts

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/macrolens/foodrecon/internal/domain"
)

// searchFields limits the search payload to what the normalizer reads
const searchFields = "code,product_name,product_name_en,generic_name,brands,image_url,image_front_url," +
	"ingredients_text,ingredients_text_en,serving_size,serving_quantity,serving_quantity_unit," +
	"nutrition_data_per,categories_tags,nutriments"

// Client talks to the Open Food Facts read API
type Client struct {
	httpClient  *http.Client
	baseURL     string
	userAgent   string
	rateLimiter *rate.Limiter
	log         *zap.Logger
}

// NewClient creates an Open Food Facts client. The API asks callers to identify
// themselves with a descriptive User-Agent and to stay around 10 searches a minute.
func NewClient(baseURL, userAgent string) *Client {
	if userAgent == "" {
		userAgent = "MacroLens/1.0"
	}
	return &Client{
		httpClient:  &http.Client{Timeout: 20 * time.Second},
		baseURL:     strings.TrimRight(baseURL, "/"),
		userAgent:   userAgent,
		rateLimiter: rate.NewLimiter(rate.Every(6*time.Second), 10),
		log:         zap.L().Named("openfoodfacts"),
	}
}

func (c *Client) get(ctx context.Context, reqURL string) ([]byte, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "openfoodfacts: rate limiter")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "openfoodfacts: create request")
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrOpenFoodFactsFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, domain.ErrProductNotFound
	}
	if resp.StatusCode != http.StatusOK {
		c.log.Warn("api error", zap.Int("status", resp.StatusCode), zap.String("url", req.URL.Path))
		return nil, fmt.Errorf("%w: status %d", domain.ErrOpenFoodFactsFailure, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "openfoodfacts: read body")
	}
	return body, nil
}

// GetProduct fetches the raw product envelope for a barcode
func (c *Client) GetProduct(ctx context.Context, barcode string) ([]byte, error) {
	barcode = strings.TrimSpace(barcode)
	if barcode == "" {
		return nil, domain.ErrInvalidRequest
	}

	body, err := c.get(ctx, fmt.Sprintf("%s/api/v2/product/%s.json", c.baseURL, url.PathEscape(barcode)))
	if err != nil {
		return nil, err
	}

	// status 0 is the API's "product not found" even with a 200
	var probe struct {
		Status *int `json:"status"`
	}
	if err := json.Unmarshal(body, &probe); err == nil && probe.Status != nil && *probe.Status == 0 {
		return nil, domain.ErrProductNotFound
	}
	return body, nil
}

// SearchProducts runs a full-text search and returns each product undecoded
func (c *Client) SearchProducts(ctx context.Context, query string) ([]json.RawMessage, error) {
	params := url.Values{}
	params.Add("search_terms", query)
	params.Add("search_simple", "1")
	params.Add("action", "process")
	params.Add("json", "1")
	params.Add("page_size", "10")
	params.Add("fields", searchFields)

	body, err := c.get(ctx, fmt.Sprintf("%s/cgi/search.pl?%s", c.baseURL, params.Encode()))
	if err != nil {
		return nil, err
	}

	var resp domain.OFFSearchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, eris.Wrap(err, "openfoodfacts: decode search response")
	}
	if len(resp.Products) == 0 {
		return nil, domain.ErrProductNotFound
	}

	c.log.Debug("search complete", zap.String("query", query), zap.Int("products", len(resp.Products)))
	return resp.Products, nil
}
