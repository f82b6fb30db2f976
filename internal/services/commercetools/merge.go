package commercetools

import (
	"context"
	"strconv"
	"sync"

	"github.com/nikhilrc-dev/ct-vertex-sync/internal/logger"
)

// Attribute names recognized as stock counts when no availability block is
// present. Checked in this order, first match wins.
var stockAttributeKeys = []string{
	"stock",
	"quantity",
	"availableQuantity",
	"inventory",
	"stockLevel",
	"qty",
	"qtyAvailable",
}

// HybridReader combines the GraphQL reader, which resolves display names but
// lacks live stock, with per-product REST availability lookups.
type HybridReader struct {
	gql    *GraphQLClient
	rest   *Client
	logger *logger.Logger
}

func NewHybridReader(gql *GraphQLClient, rest *Client, logger *logger.Logger) *HybridReader {
	return &HybridReader{
		gql:    gql,
		rest:   rest,
		logger: logger,
	}
}

// FetchAll pages through the GraphQL catalog, issuing availability lookups
// concurrently within each page. Concurrency is bounded by the page size,
// which is why GraphQL pages are kept small.
func (r *HybridReader) FetchAll(ctx context.Context) ([]*Product, error) {
	var all []*Product
	offset := 0

	for {
		page, err := r.gql.FetchPage(ctx, offset)
		if err != nil {
			return nil, err
		}

		var wg sync.WaitGroup
		for _, product := range page {
			wg.Add(1)
			go func(p *Product) {
				defer wg.Done()
				r.overlayAvailability(ctx, p)
			}(product)
		}
		wg.Wait()

		all = append(all, page...)
		if len(page) < r.gql.PageSize() {
			break
		}
		offset += r.gql.PageSize()
	}

	return all, nil
}

// FetchByID fetches one product and overlays its live availability.
func (r *HybridReader) FetchByID(ctx context.Context, id string) (*Product, error) {
	product, err := r.gql.FetchByID(ctx, id)
	if err != nil {
		return nil, err
	}
	r.overlayAvailability(ctx, product)
	return product, nil
}

// overlayAvailability fills in the master variant's availability from a REST
// lookup. A failed lookup logs and leaves a zero-availability product; one
// flaky lookup must not fail a whole sync run.
func (r *HybridReader) overlayAvailability(ctx context.Context, product *Product) {
	availability, err := r.rest.FetchAvailability(ctx, product.ID)
	if err != nil {
		r.logger.Error("Availability lookup failed for product %s: %v", product.ID, err)
	}
	MergeAvailability(product, availability)
}

// MergeAvailability overlays a live stock view onto a product that lacks one.
// The master variant's availability takes precedence; when the lookup yielded
// nothing, recognized stock-like attributes are scanned as a fallback. A
// product with no stock signal at all ends up with zero availability.
func MergeAvailability(product *Product, availability *Availability) {
	if availability == nil {
		qty, ok := stockFromAttributes(product)
		availability = &Availability{IsOnStock: qty > 0, AvailableQuantity: qty}
		if !ok {
			availability.AvailableQuantity = 0
			availability.IsOnStock = false
		}
	}
	product.MasterVariant.Availability = availability
}

func stockFromAttributes(product *Product) (int, bool) {
	for _, key := range stockAttributeKeys {
		for _, variant := range product.AllVariants() {
			for _, attr := range variant.Attributes {
				if attr.Name != key {
					continue
				}
				if qty, ok := attributeAsInt(attr.Value); ok {
					return qty, true
				}
			}
		}
	}
	return 0, false
}

func attributeAsInt(value interface{}) (int, bool) {
	switch v := value.(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return n, true
		}
	}
	return 0, false
}
