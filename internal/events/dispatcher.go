package events

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nikhilrc-dev/ct-vertex-sync/internal/logger"
	"github.com/nikhilrc-dev/ct-vertex-sync/internal/services/commercetools"
	"github.com/nikhilrc-dev/ct-vertex-sync/internal/services/vertex"
	"github.com/nikhilrc-dev/ct-vertex-sync/internal/transform"
)

// Action is what a classified event does to the destination catalog.
type Action string

const (
	ActionUpsert Action = "upsert"
	ActionDelete Action = "delete"
	ActionIgnore Action = "ignored"
)

// EventKind is the closed set of recognized source events. Unrecognized event
// names parse to KindUnknown, which maps to ActionIgnore; nothing falls
// through silently.
type EventKind int

const (
	KindUnknown EventKind = iota
	KindProductCreated
	KindProductPublished
	KindProductVariantAdded
	KindProductVariantDeleted
	KindProductPriceChanged
	KindProductPriceDiscountsSet
	KindProductSlugChanged
	KindProductImageAdded
	KindProductDeleted
	KindProductUnpublished
	KindResourceCreated
	KindResourceUpdated
	KindResourceDeleted
)

var eventKindNames = map[string]EventKind{
	"productcreated":           KindProductCreated,
	"productpublished":         KindProductPublished,
	"productvariantadded":      KindProductVariantAdded,
	"productvariantdeleted":    KindProductVariantDeleted,
	"productpricechanged":      KindProductPriceChanged,
	"productpricediscountsset": KindProductPriceDiscountsSet,
	"productslugchanged":       KindProductSlugChanged,
	"productimageadded":        KindProductImageAdded,
	"productdeleted":           KindProductDeleted,
	"productunpublished":       KindProductUnpublished,
	"resourcecreated":          KindResourceCreated,
	"resourceupdated":          KindResourceUpdated,
	"resourcedeleted":          KindResourceDeleted,
}

func ParseEventKind(raw string) EventKind {
	if kind, ok := eventKindNames[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return kind
	}
	return KindUnknown
}

// Action maps every kind to exactly one action.
func (k EventKind) Action() Action {
	switch k {
	case KindProductCreated, KindProductPublished, KindProductVariantAdded,
		KindProductVariantDeleted, KindProductPriceChanged, KindProductPriceDiscountsSet,
		KindProductSlugChanged, KindProductImageAdded,
		KindResourceCreated, KindResourceUpdated:
		return ActionUpsert
	case KindProductDeleted, KindProductUnpublished, KindResourceDeleted:
		return ActionDelete
	default:
		return ActionIgnore
	}
}

// ProductFetcher reads single products from the source catalog.
type ProductFetcher interface {
	FetchByID(ctx context.Context, id string) (*commercetools.Product, error)
}

// ItemWriter applies single-item writes to the destination catalog.
type ItemWriter interface {
	Import(ctx context.Context, product *vertex.Product) (*vertex.ImportResult, error)
	Delete(ctx context.Context, productID string) error
}

// VersionGuard tracks the last applied source version per resource so a stale
// delivery cannot overwrite a newer state. Nil guard disables the check.
type VersionGuard interface {
	ShouldApply(resourceID string, version int64) (bool, error)
	MarkApplied(resourceID string, version int64) error
}

// Outcome reports what one delivery did.
type Outcome struct {
	Action    Action `json:"action"`
	ProductID string `json:"productId,omitempty"`
	EventType string `json:"eventType,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

// Dispatcher maps a normalized notification to an upsert or delete against
// the destination catalog.
type Dispatcher struct {
	fetcher     ProductFetcher
	writer      ItemWriter
	transformer *transform.Transformer
	guard       VersionGuard
	logger      *logger.Logger
}

func NewDispatcher(fetcher ProductFetcher, writer ItemWriter, transformer *transform.Transformer, guard VersionGuard, logger *logger.Logger) *Dispatcher {
	return &Dispatcher{
		fetcher:     fetcher,
		writer:      writer,
		transformer: transformer,
		guard:       guard,
		logger:      logger,
	}
}

// Dispatch applies one notification. Unparsable, non-product, unrecognized
// and stale deliveries are acknowledged as ignored; only upstream failures
// return an error.
func (d *Dispatcher) Dispatch(ctx context.Context, n *Notification) (*Outcome, error) {
	if n == nil {
		return &Outcome{Action: ActionIgnore, Reason: "could not parse payload"}, nil
	}
	if n.ResourceTypeID != "product" {
		return &Outcome{
			Action:    ActionIgnore,
			EventType: n.EventType,
			Reason:    fmt.Sprintf("resource type %q is not actionable", n.ResourceTypeID),
		}, nil
	}

	kind := ParseEventKind(n.EventType)
	switch kind.Action() {
	case ActionDelete:
		return d.delete(ctx, n)
	case ActionUpsert:
		return d.upsert(ctx, n)
	default:
		return &Outcome{
			Action:    ActionIgnore,
			ProductID: n.ResourceID,
			EventType: n.EventType,
			Reason:    fmt.Sprintf("unrecognized event type %q", n.EventType),
		}, nil
	}
}

// delete always applies; the guard is never consulted for deletes, but the
// delivery's version is recorded so a stale upsert arriving later is skipped.
func (d *Dispatcher) delete(ctx context.Context, n *Notification) (*Outcome, error) {
	if err := d.writer.Delete(ctx, n.ResourceID); err != nil {
		return nil, err
	}

	if d.guard != nil && n.ResourceVersion > 0 {
		if err := d.guard.MarkApplied(n.ResourceID, n.ResourceVersion); err != nil {
			d.logger.Error("Version guard update failed for %s: %v", n.ResourceID, err)
		}
	}

	d.logger.Info("Deleted product %s (%s)", n.ResourceID, n.EventType)
	return &Outcome{Action: ActionDelete, ProductID: n.ResourceID, EventType: n.EventType}, nil
}

func (d *Dispatcher) upsert(ctx context.Context, n *Notification) (*Outcome, error) {
	product, err := d.fetcher.FetchByID(ctx, n.ResourceID)
	if err != nil {
		if errors.Is(err, commercetools.ErrNotFound) {
			return &Outcome{
				Action:    ActionIgnore,
				ProductID: n.ResourceID,
				EventType: n.EventType,
				Reason:    "product no longer exists in source catalog",
			}, nil
		}
		return nil, err
	}

	if d.guard != nil {
		apply, err := d.guard.ShouldApply(n.ResourceID, product.Version)
		if err != nil {
			d.logger.Error("Version guard lookup failed for %s: %v", n.ResourceID, err)
		} else if !apply {
			return &Outcome{
				Action:    ActionIgnore,
				ProductID: n.ResourceID,
				EventType: n.EventType,
				Reason:    fmt.Sprintf("stale delivery: version %d already superseded", product.Version),
			}, nil
		}
	}

	item := d.transformer.Transform(product)
	if _, err := d.writer.Import(ctx, item); err != nil {
		return nil, err
	}

	if d.guard != nil {
		if err := d.guard.MarkApplied(n.ResourceID, product.Version); err != nil {
			d.logger.Error("Version guard update failed for %s: %v", n.ResourceID, err)
		}
	}

	d.logger.Info("Upserted product %s at version %d (%s)", n.ResourceID, product.Version, n.EventType)
	return &Outcome{Action: ActionUpsert, ProductID: n.ResourceID, EventType: n.EventType}, nil
}
