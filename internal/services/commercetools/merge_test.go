package commercetools

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHybridReader(t *testing.T, gqlHandler, restHandler http.HandlerFunc) *HybridReader {
	t.Helper()
	gqlSrv := httptest.NewServer(gqlHandler)
	t.Cleanup(gqlSrv.Close)
	restSrv := httptest.NewServer(restHandler)
	t.Cleanup(restSrv.Close)

	gql := NewGraphQLClient("example.com", "test-proj", staticToken("ct-token"), 0, testLogger())
	gql.baseURL = gqlSrv.URL
	rest := NewClient("example.com", "test-proj", staticToken("ct-token"), 0, testLogger())
	rest.baseURL = restSrv.URL
	return NewHybridReader(gql, rest, testLogger())
}

func TestHybridReaderOverlaysAvailability(t *testing.T) {
	gqlHandler := func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data": {"products": {"count": 2, "results": [
			{"id": "p-1", "masterData": {"current": {"masterVariant": {"id": 1, "sku": "S1"}}}},
			{"id": "p-2", "masterData": {"current": {"masterVariant": {"id": 1, "sku": "S2"}}}}
		]}}}`)
	}
	restHandler := func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]
		fmt.Fprintf(w, `{"id": %q, "masterVariant": {"id": 1, "availability": {"isOnStock": true, "availableQuantity": 7}}}`, id)
	}
	reader := newTestHybridReader(t, gqlHandler, restHandler)

	products, err := reader.FetchAll(context.Background())

	require.NoError(t, err)
	require.Len(t, products, 2)
	for _, p := range products {
		require.NotNil(t, p.MasterVariant.Availability, p.ID)
		assert.Equal(t, 7, p.MasterVariant.Availability.AvailableQuantity, p.ID)
	}
}

func TestHybridReaderToleratesFailedAvailabilityLookup(t *testing.T) {
	gqlHandler := func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data": {"products": {"count": 2, "results": [
			{"id": "p-1", "masterData": {"current": {"masterVariant": {"id": 1, "sku": "S1"}}}},
			{"id": "p-2", "masterData": {"current": {"masterVariant": {"id": 1, "sku": "S2"}}}}
		]}}}`)
	}
	restHandler := func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/p-2") {
			http.Error(w, `{"message": "internal"}`, http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, `{"id": "p-1", "masterVariant": {"id": 1, "availability": {"isOnStock": true, "availableQuantity": 7}}}`)
	}
	reader := newTestHybridReader(t, gqlHandler, restHandler)

	products, err := reader.FetchAll(context.Background())

	// One flaky lookup must not fail the page.
	require.NoError(t, err)
	require.Len(t, products, 2)

	byID := map[string]*Product{}
	for _, p := range products {
		byID[p.ID] = p
	}
	require.NotNil(t, byID["p-1"].MasterVariant.Availability)
	assert.Equal(t, 7, byID["p-1"].MasterVariant.Availability.AvailableQuantity)

	// The failed lookup degrades to explicit zero availability.
	require.NotNil(t, byID["p-2"].MasterVariant.Availability)
	assert.Equal(t, 0, byID["p-2"].MasterVariant.Availability.AvailableQuantity)
	assert.False(t, byID["p-2"].MasterVariant.Availability.IsOnStock)
}

func TestHybridReaderFetchByIDOverlaysAvailability(t *testing.T) {
	gqlHandler := func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data": {"product": {"id": "p-1", "masterData": {"current": {"masterVariant": {"id": 1, "sku": "S1"}}}}}}`)
	}
	restHandler := func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id": "p-1", "masterVariant": {"id": 1, "availability": {"isOnStock": true, "availableQuantity": 3}}}`)
	}
	reader := newTestHybridReader(t, gqlHandler, restHandler)

	product, err := reader.FetchByID(context.Background(), "p-1")

	require.NoError(t, err)
	require.NotNil(t, product.MasterVariant.Availability)
	assert.Equal(t, 3, product.MasterVariant.Availability.AvailableQuantity)
}

func TestMergeAvailabilityPrefersLiveStock(t *testing.T) {
	product := &Product{
		MasterVariant: Variant{
			Attributes: []Attribute{{Name: "stock", Value: float64(99)}},
		},
	}

	MergeAvailability(product, &Availability{IsOnStock: true, AvailableQuantity: 4})

	require.NotNil(t, product.MasterVariant.Availability)
	assert.Equal(t, 4, product.MasterVariant.Availability.AvailableQuantity)
	assert.True(t, product.MasterVariant.Availability.IsOnStock)
}

func TestMergeAvailabilityFallsBackToAttributes(t *testing.T) {
	product := &Product{
		MasterVariant: Variant{
			Attributes: []Attribute{{Name: "inventory", Value: float64(7)}},
		},
	}

	MergeAvailability(product, nil)

	require.NotNil(t, product.MasterVariant.Availability)
	assert.Equal(t, 7, product.MasterVariant.Availability.AvailableQuantity)
	assert.True(t, product.MasterVariant.Availability.IsOnStock)
}

func TestMergeAvailabilityAttributeKeyPriority(t *testing.T) {
	// "stock" outranks "qty" regardless of attribute order on the variant.
	product := &Product{
		MasterVariant: Variant{
			Attributes: []Attribute{
				{Name: "qty", Value: float64(9)},
				{Name: "stock", Value: float64(3)},
			},
		},
	}

	MergeAvailability(product, nil)

	assert.Equal(t, 3, product.MasterVariant.Availability.AvailableQuantity)
}

func TestMergeAvailabilityScansAllVariants(t *testing.T) {
	product := &Product{
		MasterVariant: Variant{ID: 1},
		Variants: []Variant{
			{ID: 2, Attributes: []Attribute{{Name: "quantity", Value: "12"}}},
		},
	}

	MergeAvailability(product, nil)

	assert.Equal(t, 12, product.MasterVariant.Availability.AvailableQuantity)
}

func TestMergeAvailabilityNoSignalMeansZero(t *testing.T) {
	product := &Product{
		MasterVariant: Variant{
			Attributes: []Attribute{{Name: "color", Value: "blue"}},
		},
	}

	MergeAvailability(product, nil)

	require.NotNil(t, product.MasterVariant.Availability)
	assert.Equal(t, 0, product.MasterVariant.Availability.AvailableQuantity)
	assert.False(t, product.MasterVariant.Availability.IsOnStock)
}

func TestAttributeAsInt(t *testing.T) {
	tests := []struct {
		value interface{}
		want  int
		ok    bool
	}{
		{float64(5), 5, true},
		{3, 3, true},
		{"17", 17, true},
		{"many", 0, false},
		{true, 0, false},
		{nil, 0, false},
	}
	for _, tt := range tests {
		got, ok := attributeAsInt(tt.value)
		assert.Equal(t, tt.ok, ok, "%v", tt.value)
		assert.Equal(t, tt.want, got, "%v", tt.value)
	}
}
