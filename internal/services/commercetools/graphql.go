package commercetools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/nikhilrc-dev/ct-vertex-sync/internal/logger"
)

// productsQuery resolves category and product-type names server side so the
// transformer never needs a second lookup pass. GraphQL pages are kept small
// (default 100) because of the higher per-item query cost.
const productsQuery = `
query Products($limit: Int!, $offset: Int!) {
  products(limit: $limit, offset: $offset, sort: "id asc") {
    count
    results {
      ...productFields
    }
  }
}
` + productFragment

const productByIDQuery = `
query Product($id: String!) {
  product(id: $id) {
    ...productFields
  }
}
` + productFragment

const productFragment = `
fragment productFields on Product {
  id
  key
  version
  productType {
    id
    name
  }
  masterData {
    published
    current {
      nameAllLocales { locale value }
      descriptionAllLocales { locale value }
      slugAllLocales { locale value }
      categories {
        id
        name(acceptLanguage: ["en-US", "en"])
        slug(acceptLanguage: ["en-US", "en"])
      }
      masterVariant { ...variantFields }
      variants { ...variantFields }
    }
  }
}

fragment variantFields on ProductVariant {
  id
  sku
  prices {
    value { currencyCode centAmount }
    discounted { value { currencyCode centAmount } }
  }
  images {
    url
    dimensions { width height }
  }
  attributesRaw { name value }
}
`

// GraphQLClient reads products through the commercetools GraphQL endpoint.
// It produces the same Product shape as the REST client, with category and
// product-type names already resolved, but without live availability.
type GraphQLClient struct {
	baseURL    string
	projectKey string
	tokens     TokenSource
	pageSize   int
	httpClient *http.Client
	logger     *logger.Logger
}

func NewGraphQLClient(apiHost, projectKey string, tokens TokenSource, pageSize int, logger *logger.Logger) *GraphQLClient {
	if pageSize <= 0 || pageSize > 500 {
		pageSize = 100
	}
	return &GraphQLClient{
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

func (c *GraphQLClient) PageSize() int {
	return c.pageSize
}

// FetchPage fetches one page of products at the given offset.
func (c *GraphQLClient) FetchPage(ctx context.Context, offset int) ([]*Product, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to authenticate: %w", err)
	}

	var result struct {
		Products struct {
			Count   int          `json:"count"`
			Results []gqlProduct `json:"results"`
		} `json:"products"`
	}
	vars := map[string]interface{}{"limit": c.pageSize, "offset": offset}
	if err := c.query(ctx, token, productsQuery, vars, &result); err != nil {
		return nil, fmt.Errorf("failed to fetch product page at offset %d: %w", offset, err)
	}

	products := make([]*Product, 0, len(result.Products.Results))
	for i := range result.Products.Results {
		products = append(products, result.Products.Results[i].toProduct())
	}
	return products, nil
}

// FetchByID fetches a single product.
func (c *GraphQLClient) FetchByID(ctx context.Context, id string) (*Product, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to authenticate: %w", err)
	}

	var result struct {
		Product *gqlProduct `json:"product"`
	}
	vars := map[string]interface{}{"id": id}
	if err := c.query(ctx, token, productByIDQuery, vars, &result); err != nil {
		return nil, err
	}
	if result.Product == nil {
		return nil, ErrNotFound
	}
	return result.Product.toProduct(), nil
}

func (c *GraphQLClient) query(ctx context.Context, token, query string, vars map[string]interface{}, target interface{}) error {
	u := fmt.Sprintf("%s/%s/graphql", c.baseURL, c.projectKey)

	payload, err := json.Marshal(map[string]interface{}{
		"query":     query,
		"variables": vars,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", u, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("GraphQL request failed: %d - %s", resp.StatusCode, string(body))
	}

	var envelope struct {
		Data   json.RawMessage `json:"data"`
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if len(envelope.Errors) > 0 {
		return fmt.Errorf("GraphQL query failed: %s", envelope.Errors[0].Message)
	}

	if err := json.Unmarshal(envelope.Data, target); err != nil {
		return fmt.Errorf("failed to decode GraphQL data: %w", err)
	}
	return nil
}

// gqlProduct mirrors the GraphQL response shape before mapping into Product.
type gqlProduct struct {
	ID          string `json:"id"`
	Key         string `json:"key"`
	Version     int64  `json:"version"`
	ProductType *struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"productType"`
	MasterData struct {
		Published bool `json:"published"`
		Current   struct {
			NameAllLocales        []gqlLocalized `json:"nameAllLocales"`
			DescriptionAllLocales []gqlLocalized `json:"descriptionAllLocales"`
			SlugAllLocales        []gqlLocalized `json:"slugAllLocales"`
			Categories            []struct {
				ID   string `json:"id"`
				Name string `json:"name"`
				Slug string `json:"slug"`
			} `json:"categories"`
			MasterVariant gqlVariant   `json:"masterVariant"`
			Variants      []gqlVariant `json:"variants"`
		} `json:"current"`
	} `json:"masterData"`
}

type gqlLocalized struct {
	Locale string `json:"locale"`
	Value  string `json:"value"`
}

type gqlVariant struct {
	ID     int    `json:"id"`
	SKU    string `json:"sku"`
	Prices []struct {
		Value      Money `json:"value"`
		Discounted *struct {
			Value Money `json:"value"`
		} `json:"discounted"`
	} `json:"prices"`
	Images []struct {
		URL        string `json:"url"`
		Dimensions struct {
			Width  int `json:"width"`
			Height int `json:"height"`
		} `json:"dimensions"`
	} `json:"images"`
	AttributesRaw []Attribute `json:"attributesRaw"`
}

func (g *gqlProduct) toProduct() *Product {
	current := g.MasterData.Current

	product := &Product{
		ID:          g.ID,
		Key:         g.Key,
		Version:     g.Version,
		Name:        localizedMap(current.NameAllLocales),
		Description: localizedMap(current.DescriptionAllLocales),
		Slug:        localizedMap(current.SlugAllLocales),
		Published:   g.MasterData.Published,
	}

	if g.ProductType != nil {
		product.ProductType = &ProductTypeReference{ID: g.ProductType.ID, Name: g.ProductType.Name}
	}
	for _, cat := range current.Categories {
		product.Categories = append(product.Categories, CategoryReference{
			ID:   cat.ID,
			Name: cat.Name,
			Slug: cat.Slug,
		})
	}

	product.MasterVariant = current.MasterVariant.toVariant()
	for i := range current.Variants {
		product.Variants = append(product.Variants, current.Variants[i].toVariant())
	}

	return product
}

func (g *gqlVariant) toVariant() Variant {
	variant := Variant{
		ID:         g.ID,
		SKU:        g.SKU,
		Attributes: g.AttributesRaw,
	}
	for _, p := range g.Prices {
		price := Price{Value: p.Value}
		if p.Discounted != nil {
			price.Discounted = &DiscountedPrice{Value: p.Discounted.Value}
		}
		variant.Prices = append(variant.Prices, price)
	}
	for _, img := range g.Images {
		variant.Images = append(variant.Images, Image{
			URL: img.URL,
			Dimensions: ImageDimensions{
				Width:  img.Dimensions.Width,
				Height: img.Dimensions.Height,
			},
		})
	}
	return variant
}

func localizedMap(entries []gqlLocalized) LocalizedString {
	if len(entries) == 0 {
		return nil
	}
	out := make(LocalizedString, len(entries))
	for _, e := range entries {
		out[e.Locale] = e.Value
	}
	return out
}
