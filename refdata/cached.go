package refdata

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	repositorycache "github.com/goliatone/go-repository-cache/cache"

	"github.com/goliatone/go-erp-gateway/core"
	"github.com/goliatone/go-erp-gateway/odata"
)

const catalogCacheKeyPrefix = "go-erp-gateway::refdata::v1"

// CachedCatalog wraps a Catalog with read-through caching. Reference
// data changes rarely, so list pages are cached by their full request
// shape and invalidated per entity on demand.
type CachedCatalog struct {
	base  *Catalog
	cache repositorycache.CacheService
}

func NewCachedCatalog(base *Catalog, cacheService repositorycache.CacheService) (*CachedCatalog, error) {
	if base == nil {
		return nil, fmt.Errorf("refdata: base catalog is required")
	}
	if cacheService == nil {
		return nil, fmt.Errorf("refdata: cache service is required")
	}
	return &CachedCatalog{base: base, cache: cacheService}, nil
}

// CatalogCacheKey returns the deterministic cache key contract for
// reference list reads:
// go-erp-gateway::refdata::v1::<entity>::<company>::<filter>::<page>::<page_size>
// with each segment URL-path escaped after normalization.
func CatalogCacheKey(req ListRequest) (string, error) {
	entity, ok := LookupEntity(req.Entity)
	if !ok {
		return "", fmt.Errorf("refdata: unknown reference entity %q", req.Entity)
	}
	page, pageSize, _ := req.Page.Normalize()
	segments := []string{
		entity.Name,
		strings.ToUpper(strings.TrimSpace(req.Company)),
		strings.TrimSpace(req.Filter),
		strconv.Itoa(page),
		strconv.Itoa(pageSize),
	}
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	return strings.Join(append([]string{catalogCacheKeyPrefix}, segments...), "::"), nil
}

func (c *CachedCatalog) List(ctx context.Context, owner core.OwnerContext, req ListRequest) (odata.Page, error) {
	if c == nil || c.base == nil || c.cache == nil {
		return odata.Page{}, fmt.Errorf("refdata: cached catalog is not configured")
	}
	cacheKey, err := CatalogCacheKey(req)
	if err != nil {
		return odata.Page{}, err
	}

	page, err := repositorycache.GetOrFetch(ctx, c.cache, cacheKey, func(ctx context.Context) (odata.Page, error) {
		fetched, fetchErr := c.base.List(ctx, owner, req)
		if fetchErr != nil {
			return odata.Page{}, fetchErr
		}
		return clonePage(fetched), nil
	})
	if err != nil {
		return odata.Page{}, err
	}
	return clonePage(page), nil
}

func (c *CachedCatalog) GetReleasedProduct(ctx context.Context, owner core.OwnerContext, company, itemNumber string) (map[string]any, error) {
	if c == nil || c.base == nil {
		return nil, fmt.Errorf("refdata: cached catalog is not configured")
	}
	return c.base.GetReleasedProduct(ctx, owner, company, itemNumber)
}

func (c *CachedCatalog) GetTransferOrder(ctx context.Context, owner core.OwnerContext, company, transferOrderNumber string) (map[string]any, error) {
	if c == nil || c.base == nil {
		return nil, fmt.Errorf("refdata: cached catalog is not configured")
	}
	return c.base.GetTransferOrder(ctx, owner, company, transferOrderNumber)
}

// Invalidate drops the cached page for one request shape.
func (c *CachedCatalog) Invalidate(ctx context.Context, req ListRequest) error {
	if c == nil || c.cache == nil {
		return fmt.Errorf("refdata: cached catalog is not configured")
	}
	cacheKey, err := CatalogCacheKey(req)
	if err != nil {
		return err
	}
	return c.cache.Delete(ctx, cacheKey)
}

func clonePage(page odata.Page) odata.Page {
	cloned := page
	if page.Items != nil {
		cloned.Items = make([]map[string]any, len(page.Items))
		for i, item := range page.Items {
			cloned.Items[i] = copyAnyMap(item)
		}
	}
	return cloned
}

func copyAnyMap(input map[string]any) map[string]any {
	if input == nil {
		return nil
	}
	out := make(map[string]any, len(input))
	for key, value := range input {
		out[key] = value
	}
	return out
}
