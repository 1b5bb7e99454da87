package odata

import (
	"bytes"
	"encoding/json"
	"fmt"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-erp-gateway/core"
)

func marshalPayload(payload map[string]any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, core.BadInputError(fmt.Sprintf("odata: encode payload: %v", err))
	}
	return body, nil
}

func decodeEntity(body []byte) (map[string]any, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return map[string]any{}, nil
	}
	var entity map[string]any
	if err := json.Unmarshal(body, &entity); err != nil {
		return nil, core.UpstreamError(fmt.Sprintf("odata: decode entity response: %v", err), 0, "")
	}
	return entity, nil
}

// upstreamFailure attaches the ERP error body to the envelope; the
// service answers with JSON or plain text depending on the failure.
func upstreamFailure(message string, status int, body []byte) *goerrors.Error {
	return core.UpstreamError(fmt.Sprintf("%s: status %d", message, status), status, string(body))
}
