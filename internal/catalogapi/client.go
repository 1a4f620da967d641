// Package catalogapi is the HTTP client for a remote catalog backend that
// serves product lists and facets.
package catalogapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"storefront-catalog/internal/domain"
	"storefront-catalog/internal/urlcodec"

	"go.uber.org/zap"
)

const (
	productsPath = "/api/products"
	facetsPath   = "/api/facets"

	defaultTimeout = 10 * time.Second
	maxErrorBody   = 4 << 10
)

var (
	ErrCatalogUnavailable = errors.New("catalog backend unavailable")
	ErrUnexpectedStatus   = errors.New("unexpected status from catalog backend")
)

// Client fetches product lists and facets over HTTP.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *zap.Logger
}

// NewClient creates a client for baseURL. A nil httpClient gets a default
// one with the given timeout.
func NewClient(httpClient *http.Client, baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		logger:     logger,
	}
}

// FetchProducts requests one page of products for f. The query always
// carries page and limit.
func (c *Client) FetchProducts(ctx context.Context, f domain.FilterSet) (domain.ProductList, error) {
	endpoint := c.baseURL + productsPath + "?" + urlcodec.EncodeRequest(f)

	var list domain.ProductList
	if err := c.getJSON(ctx, endpoint, &list); err != nil {
		return domain.ProductList{}, fmt.Errorf("failed to fetch products: %w", err)
	}
	if list.Items == nil {
		list.Items = []domain.Product{}
	}
	return list, nil
}

// FetchFacets requests the category tree and brand list.
func (c *Client) FetchFacets(ctx context.Context) (domain.FacetCatalog, error) {
	var catalog domain.FacetCatalog
	if err := c.getJSON(ctx, c.baseURL+facetsPath, &catalog); err != nil {
		return domain.FacetCatalog{}, fmt.Errorf("failed to fetch facets: %w", err)
	}
	return catalog, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("Catalog request completed",
		zap.String("url", endpoint),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("%w: %s: %s", ErrUnexpectedStatus, resp.Status, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
