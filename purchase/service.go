package purchase

import (
	"context"
	"fmt"
	"strings"
	"time"

	glog "github.com/goliatone/go-logger/glog"

	"github.com/goliatone/go-erp-gateway/core"
	"github.com/goliatone/go-erp-gateway/odata"
)

const (
	headerEntitySet = "PurchaseOrderHeadersV2"
	lineEntitySet   = "PurchaseOrderLinesV2"
)

// requiredHeaderFields must be present on a normalized header before it
// reaches the ERP; the create endpoint rejects partial headers with an
// opaque error otherwise.
var requiredHeaderFields = []string{
	"OrderVendorAccountNumber",
	"InvoiceVendorAccountNumber",
	"PurchaseOrderName",
	"RequestedDeliveryDate",
	"CurrencyCode",
	"DefaultReceivingSiteId",
	"CreatedUser",
}

var requiredLineFields = []string{
	"PurchaseOrderNumber",
	"LineNumber",
	"OrderedPurchaseQuantity",
	"ItemNumber",
	"LineDescription",
	"RequestedDeliveryDate",
	"ReceivingWarehouseId",
	"ReceivingSiteId",
	"PurchasePrice",
	"PurchaseUnitSymbol",
	"LineAmount",
}

// TokenBroker is the credential surface the service depends on.
type TokenBroker interface {
	Token(ctx context.Context, owner core.OwnerContext) (core.CredentialRecord, error)
}

// BatchResult reports an accepted line batch. The aggregate multipart
// response stays opaque; callers that need per-record outcomes parse
// Raw themselves.
type BatchResult struct {
	Processed int    `json:"processed"`
	Raw       string `json:"raw"`
}

type Service struct {
	broker  TokenBroker
	client  *odata.Client
	company string
	logger  core.Logger
	now     func() time.Time
}

type ServiceConfig struct {
	Broker         TokenBroker
	Client         *odata.Client
	DefaultCompany string
	Logger         core.Logger
}

func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Broker == nil {
		return nil, core.ConfigurationError("purchase: token broker is required")
	}
	if cfg.Client == nil {
		return nil, core.ConfigurationError("purchase: odata client is required")
	}
	company := strings.TrimSpace(cfg.DefaultCompany)
	if company == "" {
		company = strings.ToUpper(odata.FallbackCompany)
	}
	return &Service{
		broker:  cfg.Broker,
		client:  cfg.Client,
		company: company,
		logger:  glog.Ensure(cfg.Logger),
		now:     func() time.Time { return time.Now().UTC() },
	}, nil
}

// CreateOrder normalizes and submits a purchase-order header. The
// audit CreatedUser falls back to the caller's identity when the
// payload leaves it blank.
func (s *Service) CreateOrder(ctx context.Context, owner core.OwnerContext, payload map[string]any) (map[string]any, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	header := odata.BuildHeader(payload, odata.HeaderOptions{DefaultCompany: s.company})
	if createdUser, _ := header["CreatedUser"].(string); strings.TrimSpace(createdUser) == "" {
		if identity := core.OwnerDisplayName(owner); identity != "" {
			header["CreatedUser"] = identity
		}
	}
	if missing := missingFields(header, requiredHeaderFields); len(missing) > 0 {
		return nil, core.ValidationError("purchase: purchase order header is missing required fields", missing, header)
	}

	credential, err := s.broker.Token(ctx, owner)
	if err != nil {
		return nil, err
	}
	created, err := s.client.Create(ctx, credential.AccessToken, headerEntitySet, header)
	if err != nil {
		return nil, err
	}
	s.logger.Info("purchase order created",
		"company", header["dataAreaId"],
		"purchase_order", created["PurchaseOrderNumber"],
	)
	return created, nil
}

// CreateLine normalizes and submits a single purchase-order line.
func (s *Service) CreateLine(ctx context.Context, owner core.OwnerContext, payload map[string]any) (map[string]any, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	line := odata.BuildLine(payload, s.company)
	if missing := missingFields(line, requiredLineFields); len(missing) > 0 {
		return nil, core.ValidationError("purchase: purchase order line is missing required fields", missing, line)
	}

	credential, err := s.broker.Token(ctx, owner)
	if err != nil {
		return nil, err
	}
	created, err := s.client.Create(ctx, credential.AccessToken, lineEntitySet, line)
	if err != nil {
		return nil, err
	}
	s.logger.Info("purchase order line created",
		"purchase_order", line["PurchaseOrderNumber"],
		"line_number", line["LineNumber"],
	)
	return created, nil
}

// CreateLines submits every line in one changeset so the ERP applies
// them atomically. Validation runs before any network call; a single
// invalid line fails the whole batch with its index in the field name.
func (s *Service) CreateLines(ctx context.Context, owner core.OwnerContext, payloads []map[string]any) (BatchResult, error) {
	if err := s.ready(); err != nil {
		return BatchResult{}, err
	}
	if len(payloads) == 0 {
		return BatchResult{}, core.BadInputError("purchase: line batch requires at least one line")
	}

	lines := make([]map[string]any, 0, len(payloads))
	var missing []string
	for index, payload := range payloads {
		line := odata.BuildLine(payload, s.company)
		for _, field := range missingFields(line, requiredLineFields) {
			missing = append(missing, fmt.Sprintf("lines[%d].%s", index, field))
		}
		lines = append(lines, line)
	}
	if len(missing) > 0 {
		return BatchResult{}, core.ValidationError("purchase: line batch is missing required fields", missing, map[string]any{
			"line_count": len(payloads),
		})
	}

	batch, err := odata.BuildBatch(lines, s.client.EntityURL(lineEntitySet), s.now())
	if err != nil {
		return BatchResult{}, core.BadInputError("purchase: " + err.Error())
	}

	credential, err := s.broker.Token(ctx, owner)
	if err != nil {
		return BatchResult{}, err
	}
	raw, err := s.client.SubmitBatch(ctx, credential.AccessToken, batch)
	if err != nil {
		return BatchResult{}, err
	}
	s.logger.Info("purchase order line batch submitted", "lines", batch.Records)
	return BatchResult{Processed: batch.Records, Raw: raw}, nil
}

// UpdateOrder patches a header by its composite key. Key fields are
// stripped from the payload; the ERP answers 204 on success.
func (s *Service) UpdateOrder(ctx context.Context, owner core.OwnerContext, purchaseOrderNumber, company string, payload map[string]any) (map[string]any, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	orderNumber := strings.TrimSpace(purchaseOrderNumber)
	if orderNumber == "" {
		return nil, core.BadInputError("purchase: purchase order number is required")
	}

	patch := odata.CleanPatch(payload, odata.HeaderDateFields(), []string{"PurchaseOrderNumber", "dataAreaId"})
	if len(patch) == 0 {
		return nil, core.BadInputError("purchase: update payload is empty")
	}

	credential, err := s.broker.Token(ctx, owner)
	if err != nil {
		return nil, err
	}
	key := odata.EntityKey{
		odata.StringKey("PurchaseOrderNumber", orderNumber),
		odata.StringKey("dataAreaId", s.resolveCompany(company)),
	}
	updated, err := s.client.Update(ctx, credential.AccessToken, headerEntitySet, key, patch)
	if err != nil {
		return nil, err
	}
	s.logger.Info("purchase order updated", "purchase_order", orderNumber)
	return updated, nil
}

// UpdateLine patches one line by order number, company and line number.
func (s *Service) UpdateLine(ctx context.Context, owner core.OwnerContext, purchaseOrderNumber, company string, lineNumber int, payload map[string]any) (map[string]any, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	orderNumber := strings.TrimSpace(purchaseOrderNumber)
	if orderNumber == "" {
		return nil, core.BadInputError("purchase: purchase order number is required")
	}
	if lineNumber <= 0 {
		return nil, core.BadInputError("purchase: line number must be positive")
	}

	patch := odata.CleanPatch(payload, odata.LineDateFields(), []string{"PurchaseOrderNumber", "dataAreaId", "LineNumber"})
	if len(patch) == 0 {
		return nil, core.BadInputError("purchase: update payload is empty")
	}

	credential, err := s.broker.Token(ctx, owner)
	if err != nil {
		return nil, err
	}
	key := odata.EntityKey{
		odata.StringKey("PurchaseOrderNumber", orderNumber),
		odata.StringKey("dataAreaId", s.resolveCompany(company)),
		odata.NumberKey("LineNumber", lineNumber),
	}
	updated, err := s.client.Update(ctx, credential.AccessToken, lineEntitySet, key, patch)
	if err != nil {
		return nil, err
	}
	s.logger.Info("purchase order line updated",
		"purchase_order", orderNumber,
		"line_number", lineNumber,
	)
	return updated, nil
}

// GetOrder fetches one header by purchase-order number.
func (s *Service) GetOrder(ctx context.Context, owner core.OwnerContext, purchaseOrderNumber, company string) (map[string]any, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	orderNumber := strings.TrimSpace(purchaseOrderNumber)
	if orderNumber == "" {
		return nil, core.BadInputError("purchase: purchase order number is required")
	}

	credential, err := s.broker.Token(ctx, owner)
	if err != nil {
		return nil, err
	}
	page, err := s.client.Query(ctx, credential.AccessToken, headerEntitySet, odata.QueryOptions{
		CrossCompany: true,
		Company:      s.resolveCompany(company),
		Filter:       "PurchaseOrderNumber eq " + odata.QuoteLiteral(orderNumber),
		Top:          1,
	})
	if err != nil {
		return nil, err
	}
	if len(page.Items) == 0 {
		return nil, core.NotFoundError("purchase: purchase order " + orderNumber + " not found")
	}
	return page.Items[0], nil
}

// ListOrders returns one page of headers, newest order numbers first.
func (s *Service) ListOrders(ctx context.Context, owner core.OwnerContext, company, filter string, pageReq odata.PageRequest) (odata.Page, error) {
	if err := s.ready(); err != nil {
		return odata.Page{}, err
	}
	credential, err := s.broker.Token(ctx, owner)
	if err != nil {
		return odata.Page{}, err
	}
	return s.client.List(ctx, credential.AccessToken, headerEntitySet, odata.QueryOptions{
		CrossCompany: true,
		Company:      s.resolveCompany(company),
		Filter:       strings.TrimSpace(filter),
		OrderBy:      "PurchaseOrderNumber desc",
	}, pageReq)
}

// ListLines returns one page of lines for an order.
func (s *Service) ListLines(ctx context.Context, owner core.OwnerContext, purchaseOrderNumber, company string, pageReq odata.PageRequest) (odata.Page, error) {
	if err := s.ready(); err != nil {
		return odata.Page{}, err
	}
	orderNumber := strings.TrimSpace(purchaseOrderNumber)
	if orderNumber == "" {
		return odata.Page{}, core.BadInputError("purchase: purchase order number is required")
	}
	credential, err := s.broker.Token(ctx, owner)
	if err != nil {
		return odata.Page{}, err
	}
	return s.client.List(ctx, credential.AccessToken, lineEntitySet, odata.QueryOptions{
		CrossCompany: true,
		Company:      s.resolveCompany(company),
		Filter:       "PurchaseOrderNumber eq " + odata.QuoteLiteral(orderNumber),
		OrderBy:      "LineNumber",
	}, pageReq)
}

// DeleteOrder removes a header by its composite key.
func (s *Service) DeleteOrder(ctx context.Context, owner core.OwnerContext, purchaseOrderNumber, company string) error {
	if err := s.ready(); err != nil {
		return err
	}
	orderNumber := strings.TrimSpace(purchaseOrderNumber)
	if orderNumber == "" {
		return core.BadInputError("purchase: purchase order number is required")
	}
	credential, err := s.broker.Token(ctx, owner)
	if err != nil {
		return err
	}
	key := odata.EntityKey{
		odata.StringKey("PurchaseOrderNumber", orderNumber),
		odata.StringKey("dataAreaId", s.resolveCompany(company)),
	}
	if err := s.client.Delete(ctx, credential.AccessToken, headerEntitySet, key); err != nil {
		return err
	}
	s.logger.Info("purchase order deleted", "purchase_order", orderNumber)
	return nil
}

func (s *Service) ready() error {
	if s == nil || s.broker == nil || s.client == nil {
		return core.ConfigurationError("purchase: service is not configured")
	}
	return nil
}

func (s *Service) resolveCompany(company string) string {
	trimmed := strings.TrimSpace(company)
	if trimmed == "" {
		return s.company
	}
	return strings.ToUpper(trimmed)
}

func missingFields(payload map[string]any, required []string) []string {
	var missing []string
	for _, field := range required {
		value, present := payload[field]
		if !present || isBlankValue(value) {
			missing = append(missing, field)
		}
	}
	return missing
}

// isBlankValue reports values the upstream treats as absent: nil, blank
// strings, and zero quantities or amounts.
func isBlankValue(value any) bool {
	switch typed := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(typed) == ""
	case float64:
		return typed == 0
	case float32:
		return typed == 0
	case int:
		return typed == 0
	case int64:
		return typed == 0
	}
	return false
}
