package erpgateway

import (
	"fmt"

	gatewaycommand "github.com/goliatone/go-erp-gateway/command"
	gatewayquery "github.com/goliatone/go-erp-gateway/query"
)

// PurchaseService is the combined command/query surface the facade
// wires handlers over; *purchase.Service satisfies it.
type PurchaseService interface {
	gatewaycommand.PurchaseMutatingService
	gatewayquery.PurchaseReader
}

// TokenService is the credential surface the facade exposes through
// commands and queries; *core.Broker satisfies it.
type TokenService interface {
	gatewaycommand.TokenMutatingService
	gatewayquery.TokenReader
}

type Commands struct {
	CreateOrder     *gatewaycommand.CreateOrderCommand
	CreateLine      *gatewaycommand.CreateLineCommand
	SubmitLineBatch *gatewaycommand.SubmitLineBatchCommand
	UpdateOrder     *gatewaycommand.UpdateOrderCommand
	UpdateLine      *gatewaycommand.UpdateLineCommand
	DeleteOrder     *gatewaycommand.DeleteOrderCommand
	RefreshToken    *gatewaycommand.RefreshTokenCommand
}

type Queries struct {
	GetOrder      *gatewayquery.GetOrderQuery
	ListOrders    *gatewayquery.ListOrdersQuery
	GetOrderLines *gatewayquery.GetOrderLinesQuery
	GetToken      *gatewayquery.GetTokenQuery
	ListReference *gatewayquery.ListReferenceQuery
}

type Facade struct {
	purchase PurchaseService
	tokens   TokenService
	commands Commands
	queries  Queries
}

type FacadeOption func(*facadeOptions)

type facadeOptions struct {
	referenceReader gatewayquery.ReferenceReader
}

// WithReferenceReader wires the reference-catalog query; pass a
// *refdata.Catalog or *refdata.CachedCatalog.
func WithReferenceReader(reader gatewayquery.ReferenceReader) FacadeOption {
	return func(options *facadeOptions) {
		options.referenceReader = reader
	}
}

func NewFacade(purchase PurchaseService, tokens TokenService, opts ...FacadeOption) (*Facade, error) {
	if purchase == nil {
		return nil, fmt.Errorf("erpgateway: purchase service is required")
	}
	if tokens == nil {
		return nil, fmt.Errorf("erpgateway: token service is required")
	}
	cfg := facadeOptions{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}

	facade := &Facade{purchase: purchase, tokens: tokens}
	facade.commands = Commands{
		CreateOrder:     gatewaycommand.NewCreateOrderCommand(purchase),
		CreateLine:      gatewaycommand.NewCreateLineCommand(purchase),
		SubmitLineBatch: gatewaycommand.NewSubmitLineBatchCommand(purchase),
		UpdateOrder:     gatewaycommand.NewUpdateOrderCommand(purchase),
		UpdateLine:      gatewaycommand.NewUpdateLineCommand(purchase),
		DeleteOrder:     gatewaycommand.NewDeleteOrderCommand(purchase),
		RefreshToken:    gatewaycommand.NewRefreshTokenCommand(tokens),
	}
	facade.queries = Queries{
		GetOrder:      gatewayquery.NewGetOrderQuery(purchase),
		ListOrders:    gatewayquery.NewListOrdersQuery(purchase),
		GetOrderLines: gatewayquery.NewGetOrderLinesQuery(purchase),
		GetToken:      gatewayquery.NewGetTokenQuery(tokens),
		ListReference: gatewayquery.NewListReferenceQuery(cfg.referenceReader),
	}

	return facade, nil
}

func (f *Facade) Commands() Commands {
	if f == nil {
		return Commands{}
	}
	return f.commands
}

func (f *Facade) Queries() Queries {
	if f == nil {
		return Queries{}
	}
	return f.queries
}

func (f *Facade) PurchaseService() PurchaseService {
	if f == nil {
		return nil
	}
	return f.purchase
}

func (f *Facade) TokenService() TokenService {
	if f == nil {
		return nil
	}
	return f.tokens
}
