package command

import gocmd "github.com/goliatone/go-command"

var (
	_ gocmd.Commander[CreateOrderMessage]     = (*CreateOrderCommand)(nil)
	_ gocmd.Commander[CreateLineMessage]      = (*CreateLineCommand)(nil)
	_ gocmd.Commander[SubmitLineBatchMessage] = (*SubmitLineBatchCommand)(nil)
	_ gocmd.Commander[UpdateOrderMessage]     = (*UpdateOrderCommand)(nil)
	_ gocmd.Commander[UpdateLineMessage]      = (*UpdateLineCommand)(nil)
	_ gocmd.Commander[DeleteOrderMessage]     = (*DeleteOrderCommand)(nil)
	_ gocmd.Commander[RefreshTokenMessage]    = (*RefreshTokenCommand)(nil)
)
