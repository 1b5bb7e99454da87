package query

import (
	"context"

	"github.com/goliatone/go-erp-gateway/core"
	"github.com/goliatone/go-erp-gateway/odata"
	"github.com/goliatone/go-erp-gateway/refdata"
)

type PurchaseReader interface {
	GetOrder(ctx context.Context, owner core.OwnerContext, purchaseOrderNumber, company string) (map[string]any, error)
	ListOrders(ctx context.Context, owner core.OwnerContext, company, filter string, page odata.PageRequest) (odata.Page, error)
	ListLines(ctx context.Context, owner core.OwnerContext, purchaseOrderNumber, company string, page odata.PageRequest) (odata.Page, error)
}

type TokenReader interface {
	Token(ctx context.Context, owner core.OwnerContext) (core.CredentialRecord, error)
}

type ReferenceReader interface {
	List(ctx context.Context, owner core.OwnerContext, req refdata.ListRequest) (odata.Page, error)
}

type GetOrderQuery struct {
	reader PurchaseReader
}

func NewGetOrderQuery(reader PurchaseReader) *GetOrderQuery {
	return &GetOrderQuery{reader: reader}
}

func (q *GetOrderQuery) Query(ctx context.Context, msg GetOrderMessage) (map[string]any, error) {
	if q == nil || q.reader == nil {
		return nil, queryDependencyError("query: purchase reader is required")
	}
	return q.reader.GetOrder(ctx, msg.Owner, msg.PurchaseOrderNumber, msg.Company)
}

type ListOrdersQuery struct {
	reader PurchaseReader
}

func NewListOrdersQuery(reader PurchaseReader) *ListOrdersQuery {
	return &ListOrdersQuery{reader: reader}
}

func (q *ListOrdersQuery) Query(ctx context.Context, msg ListOrdersMessage) (odata.Page, error) {
	if q == nil || q.reader == nil {
		return odata.Page{}, queryDependencyError("query: purchase reader is required")
	}
	return q.reader.ListOrders(ctx, msg.Owner, msg.Company, msg.Filter, msg.Page)
}

type GetOrderLinesQuery struct {
	reader PurchaseReader
}

func NewGetOrderLinesQuery(reader PurchaseReader) *GetOrderLinesQuery {
	return &GetOrderLinesQuery{reader: reader}
}

func (q *GetOrderLinesQuery) Query(ctx context.Context, msg GetOrderLinesMessage) (odata.Page, error) {
	if q == nil || q.reader == nil {
		return odata.Page{}, queryDependencyError("query: purchase reader is required")
	}
	return q.reader.ListLines(ctx, msg.Owner, msg.PurchaseOrderNumber, msg.Company, msg.Page)
}

type GetTokenQuery struct {
	reader TokenReader
}

func NewGetTokenQuery(reader TokenReader) *GetTokenQuery {
	return &GetTokenQuery{reader: reader}
}

func (q *GetTokenQuery) Query(ctx context.Context, msg GetTokenMessage) (core.CredentialRecord, error) {
	if q == nil || q.reader == nil {
		return core.CredentialRecord{}, queryDependencyError("query: token reader is required")
	}
	return q.reader.Token(ctx, msg.Owner)
}

type ListReferenceQuery struct {
	reader ReferenceReader
}

func NewListReferenceQuery(reader ReferenceReader) *ListReferenceQuery {
	return &ListReferenceQuery{reader: reader}
}

func (q *ListReferenceQuery) Query(ctx context.Context, msg ListReferenceMessage) (odata.Page, error) {
	if q == nil || q.reader == nil {
		return odata.Page{}, queryDependencyError("query: reference reader is required")
	}
	return q.reader.List(ctx, msg.Owner, refdata.ListRequest{
		Entity:  msg.Entity,
		Company: msg.Company,
		Filter:  msg.Filter,
		Page:    msg.Page,
	})
}
