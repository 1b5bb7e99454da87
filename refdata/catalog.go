package refdata

import (
	"context"
	"strings"

	glog "github.com/goliatone/go-logger/glog"

	"github.com/goliatone/go-erp-gateway/core"
	"github.com/goliatone/go-erp-gateway/odata"
)

// Entity describes one ERP reference entity set: how it sorts and
// whether it is scoped to a company or global across legal entities.
type Entity struct {
	Name    string
	Set     string
	OrderBy string
	Global  bool
}

const (
	EntityVendors             = "vendors"
	EntityReleasedProducts    = "released_products"
	EntityProductVariants     = "product_variants"
	EntityOperationalSites    = "operational_sites"
	EntityWarehouses          = "warehouses"
	EntityCurrencies          = "currencies"
	EntityDeliveryModes       = "delivery_modes"
	EntityDeliveryTerms       = "delivery_terms"
	EntityPaymentTerms        = "payment_terms"
	EntityLegalEntities       = "legal_entities"
	EntityDimensionAttributes = "dimension_attributes"
	EntityTransferOrders      = "transfer_orders"
)

var catalogEntities = map[string]Entity{
	EntityVendors:             {Name: EntityVendors, Set: "VendorsV2", OrderBy: "VendorAccountNumber"},
	EntityReleasedProducts:    {Name: EntityReleasedProducts, Set: "ReleasedProductsV2", OrderBy: "ItemNumber"},
	EntityProductVariants:     {Name: EntityProductVariants, Set: "ProductVariantsV2", OrderBy: "ItemNumber"},
	EntityOperationalSites:    {Name: EntityOperationalSites, Set: "OperationalSitesV2", OrderBy: "SiteId"},
	EntityWarehouses:          {Name: EntityWarehouses, Set: "Warehouses", OrderBy: "WarehouseId"},
	EntityCurrencies:          {Name: EntityCurrencies, Set: "Currencies", OrderBy: "CurrencyCode", Global: true},
	EntityDeliveryModes:       {Name: EntityDeliveryModes, Set: "DeliveryModesV2", OrderBy: "Code", Global: true},
	EntityDeliveryTerms:       {Name: EntityDeliveryTerms, Set: "DeliveryTerms", OrderBy: "Code", Global: true},
	EntityPaymentTerms:        {Name: EntityPaymentTerms, Set: "PaymentTerms", OrderBy: "Name"},
	EntityLegalEntities:       {Name: EntityLegalEntities, Set: "LegalEntities", OrderBy: "LegalEntityId", Global: true},
	EntityDimensionAttributes: {Name: EntityDimensionAttributes, Set: "DimensionAttributes", OrderBy: "Name", Global: true},
	EntityTransferOrders:      {Name: EntityTransferOrders, Set: "TransferOrderHeaders", OrderBy: "TransferOrderNumber desc"},
}

// Entities returns the catalog's known entity descriptors keyed by
// their public names.
func Entities() map[string]Entity {
	out := make(map[string]Entity, len(catalogEntities))
	for name, entity := range catalogEntities {
		out[name] = entity
	}
	return out
}

// LookupEntity resolves a public entity name to its descriptor.
func LookupEntity(name string) (Entity, bool) {
	entity, ok := catalogEntities[strings.TrimSpace(strings.ToLower(name))]
	return entity, ok
}

// TokenBroker is the credential surface the catalog depends on.
type TokenBroker interface {
	Token(ctx context.Context, owner core.OwnerContext) (core.CredentialRecord, error)
}

// ListRequest selects one page of a reference entity, optionally
// narrowed to a company and an extra OData filter.
type ListRequest struct {
	Entity  string
	Company string
	Filter  string
	Page    odata.PageRequest
}

type Catalog struct {
	broker  TokenBroker
	client  *odata.Client
	company string
	logger  core.Logger
}

type CatalogConfig struct {
	Broker         TokenBroker
	Client         *odata.Client
	DefaultCompany string
	Logger         core.Logger
}

func NewCatalog(cfg CatalogConfig) (*Catalog, error) {
	if cfg.Broker == nil {
		return nil, core.ConfigurationError("refdata: token broker is required")
	}
	if cfg.Client == nil {
		return nil, core.ConfigurationError("refdata: odata client is required")
	}
	company := strings.TrimSpace(cfg.DefaultCompany)
	if company == "" {
		company = strings.ToUpper(odata.FallbackCompany)
	}
	return &Catalog{
		broker:  cfg.Broker,
		client:  cfg.Client,
		company: company,
		logger:  glog.Ensure(cfg.Logger),
	}, nil
}

// List fetches one page of a reference entity.
func (c *Catalog) List(ctx context.Context, owner core.OwnerContext, req ListRequest) (odata.Page, error) {
	if c == nil || c.client == nil {
		return odata.Page{}, core.ConfigurationError("refdata: catalog is not configured")
	}
	entity, ok := LookupEntity(req.Entity)
	if !ok {
		return odata.Page{}, core.NotFoundError("refdata: unknown reference entity " + strings.TrimSpace(req.Entity))
	}

	credential, err := c.broker.Token(ctx, owner)
	if err != nil {
		return odata.Page{}, err
	}

	opts := odata.QueryOptions{
		CrossCompany: true,
		Filter:       strings.TrimSpace(req.Filter),
		OrderBy:      entity.OrderBy,
	}
	if !entity.Global {
		opts.Company = c.resolveCompany(req.Company)
	}

	page, err := c.client.List(ctx, credential.AccessToken, entity.Set, opts, req.Page)
	if err != nil {
		return odata.Page{}, err
	}
	c.logger.Debug("reference entity listed",
		"entity", entity.Name,
		"company", opts.Company,
		"page", page.Page,
		"items", len(page.Items),
	)
	return page, nil
}

// GetReleasedProduct finds one released product by item number.
func (c *Catalog) GetReleasedProduct(ctx context.Context, owner core.OwnerContext, company, itemNumber string) (map[string]any, error) {
	trimmed := strings.TrimSpace(itemNumber)
	if trimmed == "" {
		return nil, core.BadInputError("refdata: item number is required")
	}
	return c.findOne(ctx, owner, EntityReleasedProducts, company,
		"ItemNumber eq "+odata.QuoteLiteral(trimmed),
		"released product "+trimmed,
	)
}

// GetTransferOrder finds one transfer order header by its number.
func (c *Catalog) GetTransferOrder(ctx context.Context, owner core.OwnerContext, company, transferOrderNumber string) (map[string]any, error) {
	trimmed := strings.TrimSpace(transferOrderNumber)
	if trimmed == "" {
		return nil, core.BadInputError("refdata: transfer order number is required")
	}
	return c.findOne(ctx, owner, EntityTransferOrders, company,
		"TransferOrderNumber eq "+odata.QuoteLiteral(trimmed),
		"transfer order "+trimmed,
	)
}

func (c *Catalog) findOne(ctx context.Context, owner core.OwnerContext, entityName, company, filter, label string) (map[string]any, error) {
	page, err := c.List(ctx, owner, ListRequest{
		Entity:  entityName,
		Company: company,
		Filter:  filter,
		Page:    odata.PageRequest{Page: 1, PageSize: 1},
	})
	if err != nil {
		return nil, err
	}
	if len(page.Items) == 0 {
		return nil, core.NotFoundError("refdata: " + label + " not found")
	}
	return page.Items[0], nil
}

func (c *Catalog) resolveCompany(company string) string {
	trimmed := strings.TrimSpace(company)
	if trimmed == "" {
		return c.company
	}
	return strings.ToUpper(trimmed)
}
