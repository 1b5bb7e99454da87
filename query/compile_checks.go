package query

import (
	gocmd "github.com/goliatone/go-command"

	"github.com/goliatone/go-erp-gateway/core"
	"github.com/goliatone/go-erp-gateway/odata"
)

var (
	_ gocmd.Querier[GetOrderMessage, map[string]any]        = (*GetOrderQuery)(nil)
	_ gocmd.Querier[ListOrdersMessage, odata.Page]          = (*ListOrdersQuery)(nil)
	_ gocmd.Querier[GetOrderLinesMessage, odata.Page]       = (*GetOrderLinesQuery)(nil)
	_ gocmd.Querier[GetTokenMessage, core.CredentialRecord] = (*GetTokenQuery)(nil)
	_ gocmd.Querier[ListReferenceMessage, odata.Page]       = (*ListReferenceQuery)(nil)
)
