package command

import (
	"context"
	"fmt"
	"testing"

	gocmd "github.com/goliatone/go-command"

	"github.com/goliatone/go-erp-gateway/core"
	"github.com/goliatone/go-erp-gateway/purchase"
)

func TestCreateOrderCommand_ExecuteDelegatesAndStoresResult(t *testing.T) {
	expected := map[string]any{"PurchaseOrderNumber": "PO-1"}
	called := false

	svc := stubPurchaseService{
		createOrderFn: func(_ context.Context, owner core.OwnerContext, payload map[string]any) (map[string]any, error) {
			called = true
			if payload["PurchaseOrderName"] != "Fall restock" {
				t.Fatalf("unexpected payload: %#v", payload)
			}
			if resolved := core.ResolveOwner(owner); resolved.ID != "user_1" {
				t.Fatalf("unexpected owner %#v", resolved)
			}
			return expected, nil
		},
	}

	cmd := NewCreateOrderCommand(svc)
	collector := gocmd.NewResult[map[string]any]()
	ctx := gocmd.ContextWithResult(context.Background(), collector)

	err := cmd.Execute(ctx, CreateOrderMessage{
		Owner:   core.LocalUser{ID: "user_1"},
		Payload: map[string]any{"PurchaseOrderName": "Fall restock"},
	})
	if err != nil {
		t.Fatalf("execute create order: %v", err)
	}
	if !called {
		t.Fatalf("expected create order invocation")
	}
	result, ok := collector.Load()
	if !ok {
		t.Fatalf("expected result to be stored")
	}
	if result["PurchaseOrderNumber"] != "PO-1" {
		t.Fatalf("unexpected result: %#v", result)
	}
}

func TestMutationCommands_DelegateToService(t *testing.T) {
	t.Run("submit line batch", func(t *testing.T) {
		called := false
		svc := stubPurchaseService{
			createLinesFn: func(_ context.Context, _ core.OwnerContext, lines []map[string]any) (purchase.BatchResult, error) {
				called = true
				if len(lines) != 2 {
					t.Fatalf("expected 2 lines, got %d", len(lines))
				}
				return purchase.BatchResult{Processed: 2, Raw: "--batchresponse--"}, nil
			},
		}
		cmd := NewSubmitLineBatchCommand(svc)
		collector := gocmd.NewResult[purchase.BatchResult]()
		ctx := gocmd.ContextWithResult(context.Background(), collector)
		if err := cmd.Execute(ctx, SubmitLineBatchMessage{Lines: []map[string]any{{"a": 1}, {"a": 2}}}); err != nil {
			t.Fatalf("execute submit line batch: %v", err)
		}
		if !called {
			t.Fatalf("expected batch invocation")
		}
		stored, ok := collector.Load()
		if !ok {
			t.Fatalf("expected batch result")
		}
		if stored.Processed != 2 {
			t.Fatalf("unexpected batch result: %#v", stored)
		}
	})

	t.Run("update order", func(t *testing.T) {
		called := false
		svc := stubPurchaseService{
			updateOrderFn: func(_ context.Context, _ core.OwnerContext, orderNumber, company string, payload map[string]any) (map[string]any, error) {
				called = true
				if orderNumber != "PO-1" || company != "DEMF" {
					t.Fatalf("unexpected update target: %q %q", orderNumber, company)
				}
				return map[string]any{}, nil
			},
		}
		cmd := NewUpdateOrderCommand(svc)
		if err := cmd.Execute(context.Background(), UpdateOrderMessage{
			PurchaseOrderNumber: "PO-1",
			Company:             "DEMF",
			Payload:             map[string]any{"PurchaseOrderName": "Renamed"},
		}); err != nil {
			t.Fatalf("execute update order: %v", err)
		}
		if !called {
			t.Fatalf("expected update invocation")
		}
	})

	t.Run("update line", func(t *testing.T) {
		called := false
		svc := stubPurchaseService{
			updateLineFn: func(_ context.Context, _ core.OwnerContext, orderNumber, _ string, lineNumber int, _ map[string]any) (map[string]any, error) {
				called = true
				if orderNumber != "PO-1" || lineNumber != 2 {
					t.Fatalf("unexpected line target: %q %d", orderNumber, lineNumber)
				}
				return map[string]any{}, nil
			},
		}
		cmd := NewUpdateLineCommand(svc)
		if err := cmd.Execute(context.Background(), UpdateLineMessage{
			PurchaseOrderNumber: "PO-1",
			LineNumber:          2,
			Payload:             map[string]any{"LineDescription": "Bigger widget"},
		}); err != nil {
			t.Fatalf("execute update line: %v", err)
		}
		if !called {
			t.Fatalf("expected update line invocation")
		}
	})

	t.Run("delete order", func(t *testing.T) {
		called := false
		svc := stubPurchaseService{
			deleteOrderFn: func(_ context.Context, _ core.OwnerContext, orderNumber, _ string) error {
				called = true
				if orderNumber != "PO-1" {
					t.Fatalf("unexpected delete target %q", orderNumber)
				}
				return nil
			},
		}
		cmd := NewDeleteOrderCommand(svc)
		if err := cmd.Execute(context.Background(), DeleteOrderMessage{PurchaseOrderNumber: "PO-1"}); err != nil {
			t.Fatalf("execute delete order: %v", err)
		}
		if !called {
			t.Fatalf("expected delete invocation")
		}
	})

	t.Run("refresh token", func(t *testing.T) {
		called := false
		svc := stubTokenService{
			refreshFn: func(_ context.Context, owner core.OwnerContext) (core.CredentialRecord, error) {
				called = true
				if resolved := core.ResolveOwner(owner); !resolved.IsService() {
					t.Fatalf("expected service owner, got %#v", resolved)
				}
				return core.CredentialRecord{AccessToken: "fresh"}, nil
			},
		}
		cmd := NewRefreshTokenCommand(svc)
		collector := gocmd.NewResult[core.CredentialRecord]()
		ctx := gocmd.ContextWithResult(context.Background(), collector)
		if err := cmd.Execute(ctx, RefreshTokenMessage{}); err != nil {
			t.Fatalf("execute refresh token: %v", err)
		}
		if !called {
			t.Fatalf("expected refresh invocation")
		}
		stored, ok := collector.Load()
		if !ok {
			t.Fatalf("expected credential result")
		}
		if stored.AccessToken != "fresh" {
			t.Fatalf("unexpected credential: %#v", stored)
		}
	})
}

func TestCommands_RequireService(t *testing.T) {
	if err := NewCreateOrderCommand(nil).Execute(context.Background(), CreateOrderMessage{Payload: map[string]any{"a": 1}}); err == nil {
		t.Fatalf("expected dependency error for nil purchase service")
	}
	if err := NewRefreshTokenCommand(nil).Execute(context.Background(), RefreshTokenMessage{}); err == nil {
		t.Fatalf("expected dependency error for nil token service")
	}
}

func TestMessageValidation(t *testing.T) {
	tests := []struct {
		name    string
		msg     interface{ Validate() error }
		wantErr bool
	}{
		{
			name:    "create order valid",
			msg:     CreateOrderMessage{Payload: map[string]any{"PurchaseOrderName": "Fall restock"}},
			wantErr: false,
		},
		{
			name:    "create order empty payload",
			msg:     CreateOrderMessage{},
			wantErr: true,
		},
		{
			name:    "create line empty payload",
			msg:     CreateLineMessage{},
			wantErr: true,
		},
		{
			name:    "line batch valid",
			msg:     SubmitLineBatchMessage{Lines: []map[string]any{{"a": 1}}},
			wantErr: false,
		},
		{
			name:    "line batch empty",
			msg:     SubmitLineBatchMessage{},
			wantErr: true,
		},
		{
			name:    "update order missing number",
			msg:     UpdateOrderMessage{Payload: map[string]any{"a": 1}},
			wantErr: true,
		},
		{
			name:    "update order empty payload",
			msg:     UpdateOrderMessage{PurchaseOrderNumber: "PO-1"},
			wantErr: true,
		},
		{
			name: "update line valid",
			msg: UpdateLineMessage{
				PurchaseOrderNumber: "PO-1",
				LineNumber:          1,
				Payload:             map[string]any{"a": 1},
			},
			wantErr: false,
		},
		{
			name: "update line non-positive number",
			msg: UpdateLineMessage{
				PurchaseOrderNumber: "PO-1",
				Payload:             map[string]any{"a": 1},
			},
			wantErr: true,
		},
		{
			name:    "delete order missing number",
			msg:     DeleteOrderMessage{},
			wantErr: true,
		},
		{
			name:    "refresh token always valid",
			msg:     RefreshTokenMessage{},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.msg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

type stubPurchaseService struct {
	createOrderFn func(ctx context.Context, owner core.OwnerContext, payload map[string]any) (map[string]any, error)
	createLineFn  func(ctx context.Context, owner core.OwnerContext, payload map[string]any) (map[string]any, error)
	createLinesFn func(ctx context.Context, owner core.OwnerContext, payloads []map[string]any) (purchase.BatchResult, error)
	updateOrderFn func(ctx context.Context, owner core.OwnerContext, purchaseOrderNumber, company string, payload map[string]any) (map[string]any, error)
	updateLineFn  func(ctx context.Context, owner core.OwnerContext, purchaseOrderNumber, company string, lineNumber int, payload map[string]any) (map[string]any, error)
	deleteOrderFn func(ctx context.Context, owner core.OwnerContext, purchaseOrderNumber, company string) error
}

func (s stubPurchaseService) CreateOrder(ctx context.Context, owner core.OwnerContext, payload map[string]any) (map[string]any, error) {
	if s.createOrderFn == nil {
		return nil, fmt.Errorf("create order not configured")
	}
	return s.createOrderFn(ctx, owner, payload)
}

func (s stubPurchaseService) CreateLine(ctx context.Context, owner core.OwnerContext, payload map[string]any) (map[string]any, error) {
	if s.createLineFn == nil {
		return nil, fmt.Errorf("create line not configured")
	}
	return s.createLineFn(ctx, owner, payload)
}

func (s stubPurchaseService) CreateLines(ctx context.Context, owner core.OwnerContext, payloads []map[string]any) (purchase.BatchResult, error) {
	if s.createLinesFn == nil {
		return purchase.BatchResult{}, fmt.Errorf("create lines not configured")
	}
	return s.createLinesFn(ctx, owner, payloads)
}

func (s stubPurchaseService) UpdateOrder(ctx context.Context, owner core.OwnerContext, purchaseOrderNumber, company string, payload map[string]any) (map[string]any, error) {
	if s.updateOrderFn == nil {
		return nil, fmt.Errorf("update order not configured")
	}
	return s.updateOrderFn(ctx, owner, purchaseOrderNumber, company, payload)
}

func (s stubPurchaseService) UpdateLine(ctx context.Context, owner core.OwnerContext, purchaseOrderNumber, company string, lineNumber int, payload map[string]any) (map[string]any, error) {
	if s.updateLineFn == nil {
		return nil, fmt.Errorf("update line not configured")
	}
	return s.updateLineFn(ctx, owner, purchaseOrderNumber, company, lineNumber, payload)
}

func (s stubPurchaseService) DeleteOrder(ctx context.Context, owner core.OwnerContext, purchaseOrderNumber, company string) error {
	if s.deleteOrderFn == nil {
		return fmt.Errorf("delete order not configured")
	}
	return s.deleteOrderFn(ctx, owner, purchaseOrderNumber, company)
}

type stubTokenService struct {
	refreshFn func(ctx context.Context, owner core.OwnerContext) (core.CredentialRecord, error)
}

func (s stubTokenService) Refresh(ctx context.Context, owner core.OwnerContext) (core.CredentialRecord, error) {
	if s.refreshFn == nil {
		return core.CredentialRecord{}, fmt.Errorf("refresh not configured")
	}
	return s.refreshFn(ctx, owner)
}

var _ PurchaseMutatingService = stubPurchaseService{}
var _ TokenMutatingService = stubTokenService{}
