package commercetools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/nikhilrc-dev/ct-vertex-sync/internal/logger"
)

// ErrNotFound is returned when a product id does not exist in the source
// catalog.
var ErrNotFound = errors.New("product not found")

// Client talks to the commercetools REST API. Pagination is cursor-based on
// the last seen product id; a page smaller than the page size terminates the
// loop.
type Client struct {
	baseURL    string
	projectKey string
	tokens     TokenSource
	pageSize   int
	httpClient *http.Client
	logger     *logger.Logger
}

func NewClient(apiHost, projectKey string, tokens TokenSource, pageSize int, logger *logger.Logger) *Client {
	if pageSize <= 0 || pageSize > 500 {
		pageSize = 500
	}
	return &Client{
		baseURL:    "https://" + apiHost,
		projectKey: projectKey,
		tokens:     tokens,
		pageSize:   pageSize,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

// FetchAll pages through every current product projection. Any failure aborts
// the whole fetch; a partial page list is not usable for a full sync.
func (c *Client) FetchAll(ctx context.Context) ([]*Product, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to authenticate: %w", err)
	}

	var all []*Product
	lastID := ""

	for {
		query := url.Values{}
		query.Set("limit", fmt.Sprintf("%d", c.pageSize))
		query.Set("sort", "id asc")
		query.Set("staged", "false")
		if lastID != "" {
			query.Set("where", fmt.Sprintf("id > %q", lastID))
		}

		var page struct {
			Count   int       `json:"count"`
			Results []Product `json:"results"`
		}
		path := fmt.Sprintf("/%s/product-projections", c.projectKey)
		if err := c.get(ctx, token, path, query, &page); err != nil {
			return nil, fmt.Errorf("failed to fetch product page after id %q: %w", lastID, err)
		}

		for i := range page.Results {
			all = append(all, &page.Results[i])
		}
		if len(page.Results) > 0 {
			lastID = page.Results[len(page.Results)-1].ID
		}

		c.logger.Debug("Fetched %d products (total %d)", len(page.Results), len(all))

		if len(page.Results) < c.pageSize {
			break
		}
	}

	return all, nil
}

// FetchByID fetches a single current product projection.
func (c *Client) FetchByID(ctx context.Context, id string) (*Product, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to authenticate: %w", err)
	}

	query := url.Values{}
	query.Set("staged", "false")

	var product Product
	path := fmt.Sprintf("/%s/product-projections/%s", c.projectKey, url.PathEscape(id))
	if err := c.get(ctx, token, path, query, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

// FetchAvailability looks up live stock for one product. Used by the hybrid
// reader to supplement GraphQL results that lack availability.
func (c *Client) FetchAvailability(ctx context.Context, id string) (*Availability, error) {
	product, err := c.FetchByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if product.MasterVariant.Availability != nil {
		return product.MasterVariant.Availability, nil
	}
	for i := range product.Variants {
		if product.Variants[i].Availability != nil {
			return product.Variants[i].Availability, nil
		}
	}
	return nil, nil
}

// ProductCounts reports catalog totals by publication status.
func (c *Client) ProductCounts(ctx context.Context) (*ProductCounts, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to authenticate: %w", err)
	}

	counts := &ProductCounts{}
	queries := []struct {
		where  string
		target *int
	}{
		{"", &counts.Total},
		{"masterData(published=true)", &counts.Published},
		{"masterData(hasStagedChanges=true)", &counts.Staged},
		{"masterData(published=false)", &counts.Draft},
	}

	path := fmt.Sprintf("/%s/products", c.projectKey)
	for _, q := range queries {
		query := url.Values{}
		query.Set("limit", "0")
		if q.where != "" {
			query.Set("where", q.where)
		}

		var page pagedResponse
		if err := c.get(ctx, token, path, query, &page); err != nil {
			return nil, fmt.Errorf("failed to count products: %w", err)
		}
		*q.target = page.Total
	}

	return counts, nil
}

func (c *Client) get(ctx context.Context, token, path string, query url.Values, target interface{}) error {
	u := c.baseURL + path

	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	req.URL.RawQuery = query.Encode()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API request failed: %d - %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
