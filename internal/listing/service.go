package listing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/Nanyonga-Rahmah/crm-landing-pages/internal/crmapi"
	"github.com/Nanyonga-Rahmah/crm-landing-pages/internal/events"
	"github.com/Nanyonga-Rahmah/crm-landing-pages/internal/observability/metrics"
	"github.com/Nanyonga-Rahmah/crm-landing-pages/internal/session"
	"github.com/Nanyonga-Rahmah/crm-landing-pages/internal/tenancy"
	"github.com/Nanyonga-Rahmah/crm-landing-pages/pkg/logging"
)

// sharedFetchTimeout bounds an upstream fetch shared by collapsed callers.
const sharedFetchTimeout = 30 * time.Second

// Cache holds baselines for every page kind and collapses concurrent loads
// of the same snapshot into one upstream fetch.
type Cache struct {
	store   SnapshotStore
	ttl     time.Duration
	group   singleflight.Group
	metrics *metrics.ListingMetrics
	tracer  trace.Tracer
	logger  *logging.Logger
}

func NewCache(store SnapshotStore, ttl time.Duration, m *metrics.ListingMetrics, logger *logging.Logger) *Cache {
	if logger == nil {
		logger = logging.Default()
	}
	return &Cache{
		store:   store,
		ttl:     ttl,
		metrics: m,
		tracer:  otel.Tracer("crm.internal.listing"),
		logger:  logger,
	}
}

// InvalidateOrg drops every baseline of the organization so the next view
// of any page re-fetches.
func (c *Cache) InvalidateOrg(ctx context.Context, orgID string) error {
	removed, err := c.store.InvalidateOrg(ctx, orgID)
	if err != nil {
		return err
	}
	c.metrics.ObserveInvalidation()
	c.logger.Debug("snapshots invalidated", "org_id", orgID, "removed", removed)
	return nil
}

// Subscriber invalidates the organization's snapshots on every lead
// lifecycle event.
func (c *Cache) Subscriber() events.Handler {
	return func(ctx context.Context, e events.Event) error {
		if e.OrgID == "" {
			return nil
		}
		return c.InvalidateOrg(ctx, e.OrgID)
	}
}

func loadBaseline[T any](ctx context.Context, c *Cache, v Variant[T], id tenancy.Identity, refresh bool) ([]T, error) {
	ctx, span := c.tracer.Start(ctx, "listing.load_baseline", trace.WithAttributes(
		attribute.String("listing.kind", string(v.Kind)),
		attribute.Bool("listing.refresh", refresh),
	))
	defer span.End()

	key := SnapshotKey(v.Kind, id)
	if !refresh {
		if rows, ok := cached[T](ctx, c, key); ok {
			c.metrics.ObserveSnapshot(string(v.Kind), true)
			return rows, nil
		}
	}

	// The shared fetch outlives any single caller; each caller still stops
	// waiting when its own request ends.
	ch := c.group.DoChan(key, func() (any, error) {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedFetchTimeout)
		defer cancel()
		if !refresh {
			if rows, ok := cached[T](ctx, c, key); ok {
				return rows, nil
			}
		}
		c.metrics.ObserveSnapshot(string(v.Kind), false)
		fetched, err := v.Fetch(ctx, id)
		if err != nil {
			return nil, err
		}
		baseline := make([]T, 0, len(fetched))
		for _, row := range fetched {
			if v.Baseline == nil || v.Baseline(row) {
				baseline = append(baseline, row)
			}
		}
		if raw, err := json.Marshal(baseline); err != nil {
			c.logger.Warn("failed to encode snapshot", "kind", v.Kind, "error", err)
		} else if err := c.store.Set(ctx, key, raw, c.ttl); err != nil {
			c.logger.Warn("failed to store snapshot", "kind", v.Kind, "error", err)
		}
		return baseline, nil
	})
	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		span.RecordError(ctx.Err())
		return nil, ctx.Err()
	}
	if res.Err != nil {
		span.RecordError(res.Err)
		return nil, res.Err
	}
	return res.Val.([]T), nil
}

func cached[T any](ctx context.Context, c *Cache, key string) ([]T, bool) {
	raw, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.logger.Warn("failed to read snapshot", "key", key, "error", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var rows []T
	if err := json.Unmarshal(raw, &rows); err != nil {
		c.logger.Warn("discarding unreadable snapshot", "key", key, "error", err)
		return nil, false
	}
	return rows, true
}

// Lister serves one page kind.
type Lister interface {
	Kind() Kind
	List(ctx context.Context, id tenancy.Identity, view session.ViewState, refresh bool) Listing
}

// Listing is a rendered page of any row type.
type Listing interface {
	PageState() State
}

func (p Page[T]) PageState() State { return p.State }

// Service serves the pages of one variant.
type Service[T any] struct {
	variant  Variant[T]
	cache    *Cache
	pageSize int
}

func NewService[T any](v Variant[T], cache *Cache, pageSize int) *Service[T] {
	if pageSize < 1 {
		pageSize = 5
	}
	return &Service[T]{variant: v, cache: cache, pageSize: pageSize}
}

func (s *Service[T]) Kind() Kind { return s.variant.Kind }

// Baseline returns the page's unfiltered set, fetching at most once per
// identity until invalidated or refreshed.
func (s *Service[T]) Baseline(ctx context.Context, id tenancy.Identity, refresh bool) ([]T, error) {
	return loadBaseline(ctx, s.cache, s.variant, id, refresh)
}

// Page renders the view. An incomplete identity yields a loading page and
// no upstream request.
func (s *Service[T]) Page(ctx context.Context, id tenancy.Identity, view session.ViewState, refresh bool) Page[T] {
	if !id.Complete() {
		return Page[T]{
			Kind: s.variant.Kind, State: StateLoading, Rows: []T{}, Page: 1, PageSize: s.pageSize,
			Search: view.Search, Category: view.Category, Actions: s.variant.Actions, Columns: s.variant.Columns,
		}
	}
	baseline, err := s.Baseline(ctx, id, refresh)
	if err != nil {
		s.cache.logger.Warn("list fetch failed", "kind", s.variant.Kind, "org_id", id.OrganizationID, "error", err)
		return Page[T]{
			Kind: s.variant.Kind, State: StateError, Rows: []T{}, Page: 1, PageSize: s.pageSize,
			Search: view.Search, Category: view.Category, Actions: s.variant.Actions, Columns: s.variant.Columns,
			Error:    crmapi.UserMessage(err),
			RetryURL: retryURL(s.variant.Kind),
		}
	}
	return Render(s.variant, baseline, view, s.pageSize)
}

func (s *Service[T]) List(ctx context.Context, id tenancy.Identity, view session.ViewState, refresh bool) Listing {
	return s.Page(ctx, id, view, refresh)
}

func retryURL(kind Kind) string {
	q := url.Values{}
	q.Set("refresh", "1")
	return fmt.Sprintf("/api/lists/%s?%s", kind, q.Encode())
}
