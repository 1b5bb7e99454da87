package core

import (
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	GatewayErrorBadInput      = "GATEWAY_BAD_INPUT"
	GatewayErrorValidation    = "GATEWAY_VALIDATION_ERROR"
	GatewayErrorConfiguration = "GATEWAY_CONFIGURATION_ERROR"
	GatewayErrorUpstreamAuth  = "GATEWAY_UPSTREAM_AUTH_ERROR"
	GatewayErrorUpstream      = "GATEWAY_UPSTREAM_ERROR"
	GatewayErrorPersistence   = "GATEWAY_PERSISTENCE_ERROR"
	GatewayErrorNotFound      = "GATEWAY_NOT_FOUND"
	GatewayErrorInternal      = "GATEWAY_INTERNAL_ERROR"
)

// ConfigurationError reports missing or unusable gateway configuration.
func ConfigurationError(message string) *goerrors.Error {
	return newGatewayError(message, goerrors.CategoryInternal, GatewayErrorConfiguration, nil)
}

// UpstreamAuthError reports a failed or malformed token-endpoint
// exchange. Status and body travel as metadata so callers can surface
// the upstream failure verbatim.
func UpstreamAuthError(message string, status int, body string) *goerrors.Error {
	metadata := map[string]any{}
	if status > 0 {
		metadata["upstream_status"] = status
	}
	if strings.TrimSpace(body) != "" {
		metadata["upstream_body"] = body
	}
	return newGatewayError(message, goerrors.CategoryAuth, GatewayErrorUpstreamAuth, metadata).
		WithCode(http.StatusBadGateway)
}

// UpstreamError reports a failed ERP data-plane call.
func UpstreamError(message string, status int, body string) *goerrors.Error {
	metadata := map[string]any{}
	if status > 0 {
		metadata["upstream_status"] = status
	}
	if strings.TrimSpace(body) != "" {
		metadata["upstream_body"] = body
	}
	return newGatewayError(message, goerrors.CategoryExternal, GatewayErrorUpstream, metadata).
		WithCode(http.StatusBadGateway)
}

// PersistenceError wraps a token-store failure.
func PersistenceError(err error, message string) *goerrors.Error {
	if err == nil {
		return newGatewayError(message, goerrors.CategoryInternal, GatewayErrorPersistence, nil)
	}
	return ensureGatewayErrorEnvelope(
		goerrors.Wrap(err, goerrors.CategoryInternal, message).
			WithTextCode(GatewayErrorPersistence),
	)
}

// ValidationError reports missing required fields along with a preview
// of the normalized payload that failed validation.
func ValidationError(message string, missing []string, preview map[string]any) *goerrors.Error {
	fields := make([]goerrors.FieldError, 0, len(missing))
	for _, name := range missing {
		fields = append(fields, goerrors.FieldError{
			Field:   name,
			Message: "required field is missing or blank",
		})
	}
	err := goerrors.NewValidation(message, fields...).
		WithCode(http.StatusBadRequest).
		WithTextCode(GatewayErrorValidation)
	metadata := map[string]any{"missing": append([]string(nil), missing...)}
	if len(preview) > 0 {
		metadata["payload_preview"] = preview
	}
	return err.WithMetadata(metadata)
}

func BadInputError(message string) *goerrors.Error {
	return newGatewayError(message, goerrors.CategoryBadInput, GatewayErrorBadInput, nil)
}

func NotFoundError(message string) *goerrors.Error {
	return newGatewayError(message, goerrors.CategoryNotFound, GatewayErrorNotFound, nil)
}

func newGatewayError(message string, category goerrors.Category, textCode string, metadata map[string]any) *goerrors.Error {
	err := goerrors.New(message, category).WithTextCode(textCode)
	if len(metadata) > 0 {
		err = err.WithMetadata(metadata)
	}
	return ensureGatewayErrorEnvelope(err)
}

func gatewayErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureGatewayErrorEnvelope(richErr)
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "not configured"), strings.Contains(msg, "is not set"):
		return newGatewayError(err.Error(), goerrors.CategoryInternal, GatewayErrorConfiguration, nil)
	case strings.Contains(msg, "access token"), strings.Contains(msg, "token endpoint"):
		return newGatewayError(err.Error(), goerrors.CategoryAuth, GatewayErrorUpstreamAuth, nil)
	case strings.Contains(msg, "not found"):
		return newGatewayError(err.Error(), goerrors.CategoryNotFound, GatewayErrorNotFound, nil)
	case strings.Contains(msg, "required"), strings.Contains(msg, "invalid"):
		return newGatewayError(err.Error(), goerrors.CategoryBadInput, GatewayErrorBadInput, nil)
	}

	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureGatewayErrorEnvelope(mapped)
}

func ensureGatewayErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = gatewayHTTPStatus(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultGatewayTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultGatewayTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput:
		return GatewayErrorBadInput
	case goerrors.CategoryValidation:
		return GatewayErrorValidation
	case goerrors.CategoryNotFound:
		return GatewayErrorNotFound
	case goerrors.CategoryAuth, goerrors.CategoryAuthz:
		return GatewayErrorUpstreamAuth
	case goerrors.CategoryExternal:
		return GatewayErrorUpstream
	default:
		return GatewayErrorInternal
	}
}

func gatewayHTTPStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
