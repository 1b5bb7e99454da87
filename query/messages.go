package query

import (
	"strings"

	"github.com/goliatone/go-erp-gateway/core"
	"github.com/goliatone/go-erp-gateway/odata"
)

const (
	TypeGetOrder      = "gateway.query.purchase_order.get"
	TypeListOrders    = "gateway.query.purchase_order.list"
	TypeGetOrderLines = "gateway.query.purchase_order_line.list"
	TypeGetToken      = "gateway.query.token.get"
	TypeListReference = "gateway.query.reference.list"
)

type GetOrderMessage struct {
	Owner               core.OwnerContext
	PurchaseOrderNumber string
	Company             string
}

func (GetOrderMessage) Type() string { return TypeGetOrder }

func (m GetOrderMessage) Validate() error {
	if strings.TrimSpace(m.PurchaseOrderNumber) == "" {
		return queryInvalidInputError("query: purchase order number is required")
	}
	return nil
}

type ListOrdersMessage struct {
	Owner   core.OwnerContext
	Company string
	Filter  string
	Page    odata.PageRequest
}

func (ListOrdersMessage) Type() string { return TypeListOrders }

func (m ListOrdersMessage) Validate() error {
	if m.Page.Page < 0 {
		return queryInvalidInputError("query: page must be >= 0")
	}
	if m.Page.PageSize < 0 {
		return queryInvalidInputError("query: page size must be >= 0")
	}
	return nil
}

type GetOrderLinesMessage struct {
	Owner               core.OwnerContext
	PurchaseOrderNumber string
	Company             string
	Page                odata.PageRequest
}

func (GetOrderLinesMessage) Type() string { return TypeGetOrderLines }

func (m GetOrderLinesMessage) Validate() error {
	if strings.TrimSpace(m.PurchaseOrderNumber) == "" {
		return queryInvalidInputError("query: purchase order number is required")
	}
	return nil
}

// GetTokenMessage reads the caller's cached credential, refreshing it
// upstream when stale.
type GetTokenMessage struct {
	Owner core.OwnerContext
}

func (GetTokenMessage) Type() string { return TypeGetToken }

func (GetTokenMessage) Validate() error { return nil }

type ListReferenceMessage struct {
	Owner   core.OwnerContext
	Entity  string
	Company string
	Filter  string
	Page    odata.PageRequest
}

func (ListReferenceMessage) Type() string { return TypeListReference }

func (m ListReferenceMessage) Validate() error {
	if strings.TrimSpace(m.Entity) == "" {
		return queryInvalidInputError("query: reference entity is required")
	}
	return nil
}
