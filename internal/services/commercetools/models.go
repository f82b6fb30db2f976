package commercetools

import "encoding/json"

// LocalizedString maps a locale code ("en-US") to text.
type LocalizedString map[string]string

// Product is the de-duplicated view of a commercetools product used by the
// sync pipeline. Both the REST and GraphQL clients populate this shape; the
// GraphQL client additionally resolves category and product type names.
type Product struct {
	ID          string          `json:"id"`
	Key         string          `json:"key,omitempty"`
	Version     int64           `json:"version"`
	Name        LocalizedString `json:"name"`
	Description LocalizedString `json:"description,omitempty"`
	Slug        LocalizedString `json:"slug,omitempty"`

	MasterVariant Variant   `json:"masterVariant"`
	Variants      []Variant `json:"variants,omitempty"`

	Categories  []CategoryReference   `json:"categories,omitempty"`
	ProductType *ProductTypeReference `json:"productType,omitempty"`

	Published bool `json:"published,omitempty"`
}

// PrimaryVariant returns the master variant when it carries a SKU or price,
// otherwise the first additional variant, otherwise the master variant as-is.
func (p *Product) PrimaryVariant() *Variant {
	if p.MasterVariant.SKU != "" || len(p.MasterVariant.Prices) > 0 {
		return &p.MasterVariant
	}
	if len(p.Variants) > 0 {
		return &p.Variants[0]
	}
	return &p.MasterVariant
}

// AllVariants returns the master variant followed by the additional variants.
func (p *Product) AllVariants() []*Variant {
	out := make([]*Variant, 0, len(p.Variants)+1)
	out = append(out, &p.MasterVariant)
	for i := range p.Variants {
		out = append(out, &p.Variants[i])
	}
	return out
}

type Variant struct {
	ID           int           `json:"id"`
	SKU          string        `json:"sku,omitempty"`
	Prices       []Price       `json:"prices,omitempty"`
	Images       []Image       `json:"images,omitempty"`
	Attributes   []Attribute   `json:"attributes,omitempty"`
	Availability *Availability `json:"availability,omitempty"`
}

type Price struct {
	Value      Money            `json:"value"`
	Discounted *DiscountedPrice `json:"discounted,omitempty"`
}

type DiscountedPrice struct {
	Value Money `json:"value"`
}

type Money struct {
	CurrencyCode string `json:"currencyCode"`
	CentAmount   int64  `json:"centAmount"`
}

type Image struct {
	URL        string          `json:"url"`
	Dimensions ImageDimensions `json:"dimensions"`
}

type ImageDimensions struct {
	Width  int `json:"w"`
	Height int `json:"h"`
}

// Attribute is a free-form name/value pair. Value keeps the raw JSON type
// (string, number, bool, object) and is stringified by the transformer.
type Attribute struct {
	Name  string      `json:"name"`
	Value interface{} `json:"value"`
}

type Availability struct {
	IsOnStock         bool `json:"isOnStock"`
	AvailableQuantity int  `json:"availableQuantity"`
}

type CategoryReference struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
	Slug string `json:"slug,omitempty"`
}

type ProductTypeReference struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// ProductCounts summarizes the source catalog by publication status.
type ProductCounts struct {
	Total     int `json:"total"`
	Published int `json:"published"`
	Staged    int `json:"staged"`
	Draft     int `json:"draft"`
}

// tokenResponse is the OAuth client-credentials grant response.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	Scope       string `json:"scope"`
}

// pagedResponse is the envelope of commercetools query endpoints.
type pagedResponse struct {
	Limit   int               `json:"limit"`
	Offset  int               `json:"offset"`
	Count   int               `json:"count"`
	Total   int               `json:"total"`
	Results []json.RawMessage `json:"results"`
}
