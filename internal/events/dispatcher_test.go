package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikhilrc-dev/ct-vertex-sync/internal/logger"
	"github.com/nikhilrc-dev/ct-vertex-sync/internal/services/commercetools"
	"github.com/nikhilrc-dev/ct-vertex-sync/internal/services/vertex"
	"github.com/nikhilrc-dev/ct-vertex-sync/internal/transform"
)

type fakeFetcher struct {
	product *commercetools.Product
	err     error
	calls   int
}

func (f *fakeFetcher) FetchByID(ctx context.Context, id string) (*commercetools.Product, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.product, nil
}

type fakeItemWriter struct {
	imported  []*vertex.Product
	deleted   []string
	importErr error
	deleteErr error
}

func (f *fakeItemWriter) Import(ctx context.Context, product *vertex.Product) (*vertex.ImportResult, error) {
	if f.importErr != nil {
		return nil, f.importErr
	}
	f.imported = append(f.imported, product)
	return &vertex.ImportResult{SuccessCount: 1}, nil
}

func (f *fakeItemWriter) Delete(ctx context.Context, productID string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, productID)
	return nil
}

type fakeGuard struct {
	apply   bool
	checks  int
	applied map[string]int64
}

func (f *fakeGuard) ShouldApply(resourceID string, version int64) (bool, error) {
	f.checks++
	return f.apply, nil
}

func (f *fakeGuard) MarkApplied(resourceID string, version int64) error {
	if f.applied == nil {
		f.applied = make(map[string]int64)
	}
	f.applied[resourceID] = version
	return nil
}

func newTestDispatcher(fetcher ProductFetcher, writer ItemWriter, guard VersionGuard) *Dispatcher {
	transformer := transform.NewTransformer([]string{"en-US"}, "USD", "us", "")
	return NewDispatcher(fetcher, writer, transformer, guard, logger.New("error"))
}

func productNotification(eventType string) *Notification {
	return &Notification{
		ResourceTypeID: "product",
		ResourceID:     "prod-1",
		EventType:      eventType,
	}
}

func fetchedProduct(version int64) *commercetools.Product {
	return &commercetools.Product{
		ID:            "prod-1",
		Version:       version,
		Name:          commercetools.LocalizedString{"en-US": "Blue Shirt"},
		MasterVariant: commercetools.Variant{ID: 1, SKU: "SHIRT-1"},
	}
}

func TestDispatchDelete(t *testing.T) {
	fetcher := &fakeFetcher{}
	writer := &fakeItemWriter{}
	d := newTestDispatcher(fetcher, writer, nil)

	outcome, err := d.Dispatch(context.Background(), productNotification("ProductDeleted"))

	require.NoError(t, err)
	assert.Equal(t, ActionDelete, outcome.Action)
	assert.Equal(t, []string{"prod-1"}, writer.deleted)
	// Deletes never refetch the source product.
	assert.Zero(t, fetcher.calls)
}

func TestDispatchUnpublishedDeletes(t *testing.T) {
	writer := &fakeItemWriter{}
	d := newTestDispatcher(&fakeFetcher{}, writer, nil)

	outcome, err := d.Dispatch(context.Background(), productNotification("ProductUnpublished"))

	require.NoError(t, err)
	assert.Equal(t, ActionDelete, outcome.Action)
	assert.Equal(t, []string{"prod-1"}, writer.deleted)
}

func TestDispatchUpsert(t *testing.T) {
	fetcher := &fakeFetcher{product: fetchedProduct(12)}
	writer := &fakeItemWriter{}
	d := newTestDispatcher(fetcher, writer, nil)

	outcome, err := d.Dispatch(context.Background(), productNotification("ProductPriceChanged"))

	require.NoError(t, err)
	assert.Equal(t, ActionUpsert, outcome.Action)
	assert.Equal(t, "prod-1", outcome.ProductID)
	assert.Equal(t, 1, fetcher.calls)
	require.Len(t, writer.imported, 1)
	assert.Equal(t, "prod-1", writer.imported[0].ID)
}

func TestDispatchUnrecognizedEventIgnored(t *testing.T) {
	fetcher := &fakeFetcher{}
	writer := &fakeItemWriter{}
	d := newTestDispatcher(fetcher, writer, nil)

	outcome, err := d.Dispatch(context.Background(), productNotification("CategoryRenamed"))

	require.NoError(t, err)
	assert.Equal(t, ActionIgnore, outcome.Action)
	assert.Zero(t, fetcher.calls)
	assert.Empty(t, writer.imported)
	assert.Empty(t, writer.deleted)
}

func TestDispatchNonProductIgnored(t *testing.T) {
	writer := &fakeItemWriter{}
	d := newTestDispatcher(&fakeFetcher{}, writer, nil)

	outcome, err := d.Dispatch(context.Background(), &Notification{
		ResourceTypeID: "order",
		ResourceID:     "ord-1",
		EventType:      "OrderCreated",
	})

	require.NoError(t, err)
	assert.Equal(t, ActionIgnore, outcome.Action)
	assert.Empty(t, writer.deleted)
}

func TestDispatchNilNotificationIgnored(t *testing.T) {
	d := newTestDispatcher(&fakeFetcher{}, &fakeItemWriter{}, nil)

	outcome, err := d.Dispatch(context.Background(), nil)

	require.NoError(t, err)
	assert.Equal(t, ActionIgnore, outcome.Action)
	assert.Contains(t, outcome.Reason, "could not parse")
}

func TestDispatchVanishedProductIgnored(t *testing.T) {
	fetcher := &fakeFetcher{err: commercetools.ErrNotFound}
	writer := &fakeItemWriter{}
	d := newTestDispatcher(fetcher, writer, nil)

	outcome, err := d.Dispatch(context.Background(), productNotification("ProductPublished"))

	require.NoError(t, err)
	assert.Equal(t, ActionIgnore, outcome.Action)
	assert.Empty(t, writer.imported)
}

func TestDispatchFetchFailurePropagates(t *testing.T) {
	fetcher := &fakeFetcher{err: errors.New("upstream down")}
	d := newTestDispatcher(fetcher, &fakeItemWriter{}, nil)

	outcome, err := d.Dispatch(context.Background(), productNotification("ProductPublished"))

	assert.Error(t, err)
	assert.Nil(t, outcome)
}

func TestDispatchStaleVersionIgnored(t *testing.T) {
	fetcher := &fakeFetcher{product: fetchedProduct(3)}
	writer := &fakeItemWriter{}
	guard := &fakeGuard{apply: false}
	d := newTestDispatcher(fetcher, writer, guard)

	outcome, err := d.Dispatch(context.Background(), productNotification("ProductPublished"))

	require.NoError(t, err)
	assert.Equal(t, ActionIgnore, outcome.Action)
	assert.Contains(t, outcome.Reason, "stale")
	assert.Empty(t, writer.imported)
	assert.Empty(t, guard.applied)
}

func TestDispatchUpsertMarksVersionApplied(t *testing.T) {
	fetcher := &fakeFetcher{product: fetchedProduct(12)}
	writer := &fakeItemWriter{}
	guard := &fakeGuard{apply: true}
	d := newTestDispatcher(fetcher, writer, guard)

	_, err := d.Dispatch(context.Background(), productNotification("ProductPublished"))

	require.NoError(t, err)
	assert.Equal(t, int64(12), guard.applied["prod-1"])
}

func TestDispatchDeleteBumpsVersionGuard(t *testing.T) {
	writer := &fakeItemWriter{}
	guard := &fakeGuard{apply: false}
	d := newTestDispatcher(&fakeFetcher{}, writer, guard)

	n := productNotification("ProductDeleted")
	n.ResourceVersion = 9
	_, err := d.Dispatch(context.Background(), n)

	require.NoError(t, err)
	assert.Equal(t, []string{"prod-1"}, writer.deleted)
	assert.Equal(t, int64(9), guard.applied["prod-1"])
	// Deletes apply unconditionally; the guard is only written, never asked.
	assert.Zero(t, guard.checks)
}

func TestDispatchDeleteWithoutVersionLeavesGuardAlone(t *testing.T) {
	guard := &fakeGuard{apply: true}
	d := newTestDispatcher(&fakeFetcher{}, &fakeItemWriter{}, guard)

	_, err := d.Dispatch(context.Background(), productNotification("ProductDeleted"))

	require.NoError(t, err)
	assert.Empty(t, guard.applied)
}

func TestDispatchDeleteFailurePropagates(t *testing.T) {
	writer := &fakeItemWriter{deleteErr: errors.New("destination unavailable")}
	d := newTestDispatcher(&fakeFetcher{}, writer, nil)

	outcome, err := d.Dispatch(context.Background(), productNotification("ProductDeleted"))

	assert.Error(t, err)
	assert.Nil(t, outcome)
}

func TestEventKindActionsAreTotal(t *testing.T) {
	upserts := []string{
		"ProductCreated", "ProductPublished", "ProductVariantAdded", "ProductVariantDeleted",
		"ProductPriceChanged", "ProductPriceDiscountsSet", "ProductSlugChanged", "ProductImageAdded",
		"ResourceCreated", "ResourceUpdated",
	}
	for _, name := range upserts {
		assert.Equal(t, ActionUpsert, ParseEventKind(name).Action(), name)
	}

	deletes := []string{"ProductDeleted", "ProductUnpublished", "ResourceDeleted"}
	for _, name := range deletes {
		assert.Equal(t, ActionDelete, ParseEventKind(name).Action(), name)
	}

	assert.Equal(t, ActionIgnore, ParseEventKind("SomethingElse").Action())
	assert.Equal(t, ActionIgnore, KindUnknown.Action())
}

func TestParseEventKindIsCaseInsensitive(t *testing.T) {
	assert.Equal(t, KindProductPublished, ParseEventKind("productPublished"))
	assert.Equal(t, KindProductDeleted, ParseEventKind(" PRODUCTDELETED "))
}
