package transform

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/nikhilrc-dev/ct-vertex-sync/internal/services/commercetools"
	"github.com/nikhilrc-dev/ct-vertex-sync/internal/services/vertex"
)

const (
	titlePlaceholder = "Untitled Product"

	// Stock thresholds gating fulfillment options.
	sameDayDeliveryMinQuantity = 10

	defaultPlaceID = "default"
)

// Transformer maps a commercetools product into a retail catalog item. It is
// a pure function of its inputs: no I/O, no clock, no randomness, so
// transforming the same product twice yields identical items.
type Transformer struct {
	locales          []string
	currencyFallback string
	regionTag        string
	productPageBase  string
}

func NewTransformer(locales []string, currencyFallback, regionTag, productPageBase string) *Transformer {
	if len(locales) == 0 {
		locales = []string{"en-US", "en"}
	}
	if currencyFallback == "" {
		currencyFallback = "USD"
	}
	return &Transformer{
		locales:          locales,
		currencyFallback: currencyFallback,
		regionTag:        regionTag,
		productPageBase:  strings.TrimRight(productPageBase, "/"),
	}
}

// Transform builds the destination item for one source product.
func (t *Transformer) Transform(p *commercetools.Product) *vertex.Product {
	primary := p.PrimaryVariant()
	quantity := availableQuantity(p)

	item := &vertex.Product{
		ID:                p.ID,
		Title:             t.resolveLocalized(p.Name, titlePlaceholder),
		Description:       t.resolveLocalized(p.Description, ""),
		Categories:        categoryNames(p.Categories),
		URI:               t.productURI(p),
		Availability:      availability(quantity),
		AvailableQuantity: quantity,
		PriceInfo:         t.priceInfo(primary),
		Images:            images(primary),
		Attributes:        t.attributes(p, primary),
		FulfillmentInfo:   fulfillment(quantity),
	}

	return item
}

// resolveLocalized walks the locale preference list, then remaining locales
// in sorted order, then the fallback. Sorted order keeps the output stable
// for products that only carry unpreferred locales.
func (t *Transformer) resolveLocalized(value commercetools.LocalizedString, fallback string) string {
	for _, locale := range t.locales {
		if text := value[locale]; text != "" {
			return text
		}
	}
	locales := make([]string, 0, len(value))
	for locale := range value {
		locales = append(locales, locale)
	}
	sort.Strings(locales)
	for _, locale := range locales {
		if text := value[locale]; text != "" {
			return text
		}
	}
	return fallback
}

// priceInfo takes only the first price of the primary variant. No price block
// is emitted when the variant carries no prices; a zero price must never be
// synthesized for an unpriced product.
func (t *Transformer) priceInfo(variant *commercetools.Variant) *vertex.PriceInfo {
	if len(variant.Prices) == 0 {
		return nil
	}

	price := variant.Prices[0]
	currency := price.Value.CurrencyCode
	if currency == "" {
		currency = t.currencyFallback
	}

	base := float64(price.Value.CentAmount) / 100
	info := &vertex.PriceInfo{
		CurrencyCode:  currency,
		Price:         base,
		OriginalPrice: base,
	}
	if price.Discounted != nil {
		info.Price = float64(price.Discounted.Value.CentAmount) / 100
	}
	return info
}

func (t *Transformer) attributes(p *commercetools.Product, primary *commercetools.Variant) map[string]vertex.Attribute {
	attrs := make(map[string]vertex.Attribute)

	for _, variant := range p.AllVariants() {
		for _, attr := range variant.Attributes {
			if attr.Name == "" {
				continue
			}
			if converted, ok := convertAttribute(attr.Value); ok {
				attrs[attr.Name] = converted
			}
		}
	}

	// Identity attributes are always present regardless of source content.
	attrs["sku"] = vertex.Attribute{Text: []string{skuOf(p, primary)}}
	attrs["productType"] = vertex.Attribute{Text: []string{productTypeName(p)}}
	attrs["region"] = vertex.Attribute{Text: []string{t.regionTag}}

	return attrs
}

func (t *Transformer) productURI(p *commercetools.Product) string {
	if t.productPageBase == "" {
		return ""
	}
	slug := t.resolveLocalized(p.Slug, "")
	if slug == "" {
		if p.Key != "" {
			slug = p.Key
		} else {
			slug = p.ID
		}
	}
	return t.productPageBase + "/" + slug
}

// skuOf falls back to the product's own identity as a synthetic SKU when no
// variant carries one.
func skuOf(p *commercetools.Product, primary *commercetools.Variant) string {
	if primary.SKU != "" {
		return primary.SKU
	}
	for _, variant := range p.AllVariants() {
		if variant.SKU != "" {
			return variant.SKU
		}
	}
	if p.Key != "" {
		return p.Key
	}
	return p.ID
}

func productTypeName(p *commercetools.Product) string {
	if p.ProductType == nil {
		return "unknown"
	}
	if p.ProductType.Name != "" {
		return p.ProductType.Name
	}
	return p.ProductType.ID
}

// categoryNames flattens references to display names, falling back to slug
// and finally the raw id. An empty list is valid.
func categoryNames(refs []commercetools.CategoryReference) []string {
	if len(refs) == 0 {
		return nil
	}
	names := make([]string, 0, len(refs))
	for _, ref := range refs {
		switch {
		case ref.Name != "":
			names = append(names, ref.Name)
		case ref.Slug != "":
			names = append(names, ref.Slug)
		default:
			names = append(names, ref.ID)
		}
	}
	return names
}

func availableQuantity(p *commercetools.Product) int {
	if p.MasterVariant.Availability != nil {
		return p.MasterVariant.Availability.AvailableQuantity
	}
	for i := range p.Variants {
		if p.Variants[i].Availability != nil {
			return p.Variants[i].Availability.AvailableQuantity
		}
	}
	return 0
}

func availability(quantity int) string {
	if quantity > 0 {
		return vertex.AvailabilityInStock
	}
	return vertex.AvailabilityOutOfStock
}

// fulfillment always offers generic delivery; pickup requires stock and
// same-day delivery requires quantity above the threshold.
func fulfillment(quantity int) []vertex.FulfillmentInfo {
	options := []vertex.FulfillmentInfo{
		{Type: vertex.FulfillmentDelivery, PlaceIDs: []string{defaultPlaceID}},
	}
	if quantity > 0 {
		options = append(options, vertex.FulfillmentInfo{
			Type:     vertex.FulfillmentPickupInStore,
			PlaceIDs: []string{defaultPlaceID},
		})
	}
	if quantity > sameDayDeliveryMinQuantity {
		options = append(options, vertex.FulfillmentInfo{
			Type:     vertex.FulfillmentSameDayDelivery,
			PlaceIDs: []string{defaultPlaceID},
		})
	}
	return options
}

func images(variant *commercetools.Variant) []vertex.Image {
	if len(variant.Images) == 0 {
		return nil
	}
	out := make([]vertex.Image, 0, len(variant.Images))
	for _, img := range variant.Images {
		out = append(out, vertex.Image{
			URI:    img.URL,
			Width:  img.Dimensions.Width,
			Height: img.Dimensions.Height,
		})
	}
	return out
}

// convertAttribute copies a source attribute value verbatim: numbers stay
// numeric, everything else is stringified. Empty values are dropped.
func convertAttribute(value interface{}) (vertex.Attribute, bool) {
	switch v := value.(type) {
	case nil:
		return vertex.Attribute{}, false
	case string:
		if v == "" {
			return vertex.Attribute{}, false
		}
		return vertex.Attribute{Text: []string{v}}, true
	case float64:
		return vertex.Attribute{Numbers: []float64{v}}, true
	case int:
		return vertex.Attribute{Numbers: []float64{float64(v)}}, true
	case bool:
		return vertex.Attribute{Text: []string{strconv.FormatBool(v)}}, true
	default:
		raw, err := json.Marshal(v)
		if err != nil || len(raw) == 0 {
			return vertex.Attribute{Text: []string{fmt.Sprintf("%v", v)}}, true
		}
		return vertex.Attribute{Text: []string{string(raw)}}, true
	}
}
