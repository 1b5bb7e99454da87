package command

import (
	"context"
	"testing"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-erp-gateway/core"
)

func TestCreateOrderMessage_ValidateReturnsRichError(t *testing.T) {
	err := (CreateOrderMessage{}).Validate()
	if err == nil {
		t.Fatalf("expected validation error")
	}

	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected go-errors envelope, got %T", err)
	}
	if rich.Category != goerrors.CategoryBadInput {
		t.Fatalf("expected bad input category, got %q", rich.Category)
	}
	if rich.TextCode != core.GatewayErrorBadInput {
		t.Fatalf("expected %q text code, got %q", core.GatewayErrorBadInput, rich.TextCode)
	}
}

func TestCreateOrderCommand_NilServiceReturnsRichError(t *testing.T) {
	var cmd *CreateOrderCommand
	err := cmd.Execute(context.Background(), CreateOrderMessage{})
	if err == nil {
		t.Fatalf("expected command dependency error")
	}

	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected go-errors envelope, got %T", err)
	}
	if rich.Category != goerrors.CategoryInternal {
		t.Fatalf("expected internal category, got %q", rich.Category)
	}
	if rich.TextCode != core.GatewayErrorInternal {
		t.Fatalf("expected %q text code, got %q", core.GatewayErrorInternal, rich.TextCode)
	}
}
