package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"inventory-sync-service/internal/models"
	"inventory-sync-service/internal/util"

	"go.uber.org/zap"
)

// BulkInventoryResult is one supplier feed fetch, keyed by SKU.
type BulkInventoryResult struct {
	SupplierName string
	Items        map[string]models.SupplierInventoryData
}

// InventoryProvider exposes a supplier's bulk-fetch capability. Retries,
// pagination, and credentials live behind this boundary.
type InventoryProvider interface {
	FetchInventory(ctx context.Context, supplierID string) (*BulkInventoryResult, error)
}

// HTTPProvider fetches supplier feeds over HTTP.
type HTTPProvider struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// NewHTTPProvider creates a provider against the given feed gateway base URL.
func NewHTTPProvider(baseURL string, timeout time.Duration) *HTTPProvider {
	return &HTTPProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		logger:  util.GetLogger(),
	}
}

type inventoryFeed struct {
	SupplierName string                         `json:"supplier_name"`
	Items        []models.SupplierInventoryData `json:"items"`
}

// FetchInventory performs the bulk fetch and validates the payload. Any
// transport, auth, or malformed-record problem is returned as an error; the
// orchestrator treats all of them as fatal to the run.
func (p *HTTPProvider) FetchInventory(ctx context.Context, supplierID string) (*BulkInventoryResult, error) {
	ctx, span := util.StartSpan(ctx, "HTTPProvider.FetchInventory")
	defer span.End()

	endpoint := fmt.Sprintf("%s/suppliers/%s/inventory", p.baseURL, url.PathEscape(supplierID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build feed request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch feed for supplier %s: %w", supplierID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed for supplier %s returned status %d", supplierID, resp.StatusCode)
	}

	var feed inventoryFeed
	if err := json.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("decode feed for supplier %s: %w", supplierID, err)
	}

	items := make(map[string]models.SupplierInventoryData, len(feed.Items))
	for _, item := range feed.Items {
		if err := validateItem(item); err != nil {
			return nil, fmt.Errorf("malformed feed for supplier %s: %w", supplierID, err)
		}
		if _, dup := items[item.SKU]; dup {
			p.logger.Warn("Duplicate SKU in feed, keeping last occurrence",
				zap.String("supplier_id", supplierID),
				zap.String("sku", item.SKU))
		}
		items[item.SKU] = item
	}

	return &BulkInventoryResult{SupplierName: feed.SupplierName, Items: items}, nil
}

func validateItem(item models.SupplierInventoryData) error {
	if item.SKU == "" {
		return fmt.Errorf("item with empty sku")
	}
	if item.Quantity < 0 {
		return fmt.Errorf("sku %s: negative quantity %d", item.SKU, item.Quantity)
	}
	if item.Price < 0 {
		return fmt.Errorf("sku %s: negative price %v", item.SKU, item.Price)
	}
	if item.LeadTimeDays != nil && *item.LeadTimeDays < 0 {
		return fmt.Errorf("sku %s: negative lead time %d", item.SKU, *item.LeadTimeDays)
	}
	return nil
}
