package command

import (
	"context"

	gocmd "github.com/goliatone/go-command"

	"github.com/goliatone/go-erp-gateway/core"
	"github.com/goliatone/go-erp-gateway/purchase"
)

type PurchaseMutatingService interface {
	CreateOrder(ctx context.Context, owner core.OwnerContext, payload map[string]any) (map[string]any, error)
	CreateLine(ctx context.Context, owner core.OwnerContext, payload map[string]any) (map[string]any, error)
	CreateLines(ctx context.Context, owner core.OwnerContext, payloads []map[string]any) (purchase.BatchResult, error)
	UpdateOrder(ctx context.Context, owner core.OwnerContext, purchaseOrderNumber, company string, payload map[string]any) (map[string]any, error)
	UpdateLine(ctx context.Context, owner core.OwnerContext, purchaseOrderNumber, company string, lineNumber int, payload map[string]any) (map[string]any, error)
	DeleteOrder(ctx context.Context, owner core.OwnerContext, purchaseOrderNumber, company string) error
}

type TokenMutatingService interface {
	Refresh(ctx context.Context, owner core.OwnerContext) (core.CredentialRecord, error)
}

type CreateOrderCommand struct {
	service PurchaseMutatingService
}

func NewCreateOrderCommand(service PurchaseMutatingService) *CreateOrderCommand {
	return &CreateOrderCommand{service: service}
}

func (c *CreateOrderCommand) Execute(ctx context.Context, msg CreateOrderMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: purchase service is required")
	}
	out, err := c.service.CreateOrder(ctx, msg.Owner, msg.Payload)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type CreateLineCommand struct {
	service PurchaseMutatingService
}

func NewCreateLineCommand(service PurchaseMutatingService) *CreateLineCommand {
	return &CreateLineCommand{service: service}
}

func (c *CreateLineCommand) Execute(ctx context.Context, msg CreateLineMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: purchase service is required")
	}
	out, err := c.service.CreateLine(ctx, msg.Owner, msg.Payload)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type SubmitLineBatchCommand struct {
	service PurchaseMutatingService
}

func NewSubmitLineBatchCommand(service PurchaseMutatingService) *SubmitLineBatchCommand {
	return &SubmitLineBatchCommand{service: service}
}

func (c *SubmitLineBatchCommand) Execute(ctx context.Context, msg SubmitLineBatchMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: purchase service is required")
	}
	out, err := c.service.CreateLines(ctx, msg.Owner, msg.Lines)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type UpdateOrderCommand struct {
	service PurchaseMutatingService
}

func NewUpdateOrderCommand(service PurchaseMutatingService) *UpdateOrderCommand {
	return &UpdateOrderCommand{service: service}
}

func (c *UpdateOrderCommand) Execute(ctx context.Context, msg UpdateOrderMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: purchase service is required")
	}
	out, err := c.service.UpdateOrder(ctx, msg.Owner, msg.PurchaseOrderNumber, msg.Company, msg.Payload)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type UpdateLineCommand struct {
	service PurchaseMutatingService
}

func NewUpdateLineCommand(service PurchaseMutatingService) *UpdateLineCommand {
	return &UpdateLineCommand{service: service}
}

func (c *UpdateLineCommand) Execute(ctx context.Context, msg UpdateLineMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: purchase service is required")
	}
	out, err := c.service.UpdateLine(ctx, msg.Owner, msg.PurchaseOrderNumber, msg.Company, msg.LineNumber, msg.Payload)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type DeleteOrderCommand struct {
	service PurchaseMutatingService
}

func NewDeleteOrderCommand(service PurchaseMutatingService) *DeleteOrderCommand {
	return &DeleteOrderCommand{service: service}
}

func (c *DeleteOrderCommand) Execute(ctx context.Context, msg DeleteOrderMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: purchase service is required")
	}
	return c.service.DeleteOrder(ctx, msg.Owner, msg.PurchaseOrderNumber, msg.Company)
}

type RefreshTokenCommand struct {
	service TokenMutatingService
}

func NewRefreshTokenCommand(service TokenMutatingService) *RefreshTokenCommand {
	return &RefreshTokenCommand{service: service}
}

func (c *RefreshTokenCommand) Execute(ctx context.Context, msg RefreshTokenMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: token service is required")
	}
	out, err := c.service.Refresh(ctx, msg.Owner)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
