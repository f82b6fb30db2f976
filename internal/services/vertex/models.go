package vertex

// Availability values accepted by the retail catalog.
const (
	AvailabilityInStock    = "IN_STOCK"
	AvailabilityOutOfStock = "OUT_OF_STOCK"
)

// Fulfillment option types offered on items.
const (
	FulfillmentSameDayDelivery = "same-day-delivery"
	FulfillmentPickupInStore   = "pickup-in-store"
	FulfillmentDelivery        = "custom-type-1"
)

// Product is a retail catalog item in the shape the import endpoint accepts.
type Product struct {
	ID                string               `json:"id"`
	Title             string               `json:"title"`
	Description       string               `json:"description,omitempty"`
	Categories        []string             `json:"categories,omitempty"`
	URI               string               `json:"uri,omitempty"`
	Availability      string               `json:"availability"`
	AvailableQuantity int                  `json:"availableQuantity"`
	PriceInfo         *PriceInfo           `json:"priceInfo,omitempty"`
	Images            []Image              `json:"images,omitempty"`
	Attributes        map[string]Attribute `json:"attributes,omitempty"`
	FulfillmentInfo   []FulfillmentInfo    `json:"fulfillmentInfo,omitempty"`
}

// PriceInfo carries the current price and, when a discount applies, the
// undiscounted original. Amounts are in major currency units.
type PriceInfo struct {
	CurrencyCode  string  `json:"currencyCode"`
	Price         float64 `json:"price"`
	OriginalPrice float64 `json:"originalPrice"`
}

type Image struct {
	URI    string `json:"uri"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

// Attribute is a free-form item attribute; exactly one of Text or Numbers is
// set.
type Attribute struct {
	Text    []string  `json:"text,omitempty"`
	Numbers []float64 `json:"numbers,omitempty"`
}

type FulfillmentInfo struct {
	Type     string   `json:"type"`
	PlaceIDs []string `json:"placeIds,omitempty"`
}

// operation is a long-running operation handle as returned by the import and
// operations endpoints. Counts arrive as decimal strings.
type operation struct {
	Name     string `json:"name"`
	Done     bool   `json:"done"`
	Error    *status `json:"error,omitempty"`
	Metadata struct {
		SuccessCount int64 `json:"successCount,string"`
		FailureCount int64 `json:"failureCount,string"`
	} `json:"metadata"`
	Response struct {
		ErrorSamples []status `json:"errorSamples,omitempty"`
	} `json:"response"`
}

type status struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// ImportResult reports a completed, fully successful import operation.
type ImportResult struct {
	OperationName string
	SuccessCount  int64
}

type importRequest struct {
	InputConfig        importInputConfig `json:"inputConfig"`
	ReconciliationMode string            `json:"reconciliationMode"`
}

type importInputConfig struct {
	ProductInlineSource productInlineSource `json:"productInlineSource"`
}

type productInlineSource struct {
	Products []*Product `json:"products"`
}
