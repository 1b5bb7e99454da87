package command

import (
	"strings"

	"github.com/goliatone/go-erp-gateway/core"
)

const (
	TypeCreateOrder     = "gateway.command.purchase_order.create"
	TypeCreateLine      = "gateway.command.purchase_order_line.create"
	TypeSubmitLineBatch = "gateway.command.purchase_order_line.batch"
	TypeUpdateOrder     = "gateway.command.purchase_order.update"
	TypeUpdateLine      = "gateway.command.purchase_order_line.update"
	TypeDeleteOrder     = "gateway.command.purchase_order.delete"
	TypeRefreshToken    = "gateway.command.token.refresh"
)

type CreateOrderMessage struct {
	Owner   core.OwnerContext
	Payload map[string]any
}

func (CreateOrderMessage) Type() string { return TypeCreateOrder }

func (m CreateOrderMessage) Validate() error {
	if len(m.Payload) == 0 {
		return commandInvalidInputError("command: purchase order payload is required")
	}
	return nil
}

type CreateLineMessage struct {
	Owner   core.OwnerContext
	Payload map[string]any
}

func (CreateLineMessage) Type() string { return TypeCreateLine }

func (m CreateLineMessage) Validate() error {
	if len(m.Payload) == 0 {
		return commandInvalidInputError("command: purchase order line payload is required")
	}
	return nil
}

type SubmitLineBatchMessage struct {
	Owner core.OwnerContext
	Lines []map[string]any
}

func (SubmitLineBatchMessage) Type() string { return TypeSubmitLineBatch }

func (m SubmitLineBatchMessage) Validate() error {
	if len(m.Lines) == 0 {
		return commandInvalidInputError("command: line batch requires at least one line")
	}
	return nil
}

type UpdateOrderMessage struct {
	Owner               core.OwnerContext
	PurchaseOrderNumber string
	Company             string
	Payload             map[string]any
}

func (UpdateOrderMessage) Type() string { return TypeUpdateOrder }

func (m UpdateOrderMessage) Validate() error {
	if strings.TrimSpace(m.PurchaseOrderNumber) == "" {
		return commandInvalidInputError("command: purchase order number is required")
	}
	if len(m.Payload) == 0 {
		return commandInvalidInputError("command: update payload is required")
	}
	return nil
}

type UpdateLineMessage struct {
	Owner               core.OwnerContext
	PurchaseOrderNumber string
	Company             string
	LineNumber          int
	Payload             map[string]any
}

func (UpdateLineMessage) Type() string { return TypeUpdateLine }

func (m UpdateLineMessage) Validate() error {
	if strings.TrimSpace(m.PurchaseOrderNumber) == "" {
		return commandInvalidInputError("command: purchase order number is required")
	}
	if m.LineNumber <= 0 {
		return commandInvalidInputError("command: line number must be positive")
	}
	if len(m.Payload) == 0 {
		return commandInvalidInputError("command: update payload is required")
	}
	return nil
}

type DeleteOrderMessage struct {
	Owner               core.OwnerContext
	PurchaseOrderNumber string
	Company             string
}

func (DeleteOrderMessage) Type() string { return TypeDeleteOrder }

func (m DeleteOrderMessage) Validate() error {
	if strings.TrimSpace(m.PurchaseOrderNumber) == "" {
		return commandInvalidInputError("command: purchase order number is required")
	}
	return nil
}

// RefreshTokenMessage forces an upstream credential refresh for the
// owner; a nil owner refreshes the shared service credential.
type RefreshTokenMessage struct {
	Owner core.OwnerContext
}

func (RefreshTokenMessage) Type() string { return TypeRefreshToken }

func (RefreshTokenMessage) Validate() error { return nil }
