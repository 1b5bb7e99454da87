package purchase

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-erp-gateway/core"
	"github.com/goliatone/go-erp-gateway/odata"
)

type fakeBroker struct {
	record    core.CredentialRecord
	err       error
	calls     int
	lastOwner core.OwnerContext
}

func (b *fakeBroker) Token(_ context.Context, owner core.OwnerContext) (core.CredentialRecord, error) {
	b.calls++
	b.lastOwner = owner
	if b.err != nil {
		return core.CredentialRecord{}, b.err
	}
	return b.record, nil
}

type fakeERPDoer struct {
	lastRequest *http.Request
	lastBody    []byte
	status      int
	body        string
}

func (d *fakeERPDoer) Do(req *http.Request) (*http.Response, error) {
	d.lastRequest = req
	if req.Body != nil {
		d.lastBody, _ = io.ReadAll(req.Body)
	}
	status := d.status
	if status == 0 {
		status = http.StatusOK
	}
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewReader([]byte(d.body))),
		Header:     http.Header{},
	}, nil
}

func newTestService(t *testing.T, doer *fakeERPDoer) (*Service, *fakeBroker) {
	t.Helper()
	client, err := odata.NewClient(odata.ClientConfig{
		BaseURL:    "https://erp.example.com",
		HTTPClient: doer,
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	broker := &fakeBroker{record: core.CredentialRecord{AccessToken: "tok"}}
	service, err := NewService(ServiceConfig{
		Broker: broker,
		Client: client,
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return service, broker
}

func validHeaderPayload() map[string]any {
	return map[string]any{
		"dataAreaId":                 "usmf",
		"OrderVendorAccountNumber":   "V-100",
		"InvoiceVendorAccountNumber": "V-100",
		"PurchaseOrderName":          "Fall restock",
		"RequestedDeliveryDate":      "2026-09-01",
		"CurrencyCode":               "USD",
		"DefaultReceivingSiteId":     "SITE-1",
		"CreatedUser":                "buyer@example.com",
	}
}

func validLinePayload() map[string]any {
	return map[string]any{
		"PurchaseOrderNumber":     "PO-1",
		"LineNumber":              1,
		"OrderedPurchaseQuantity": 5,
		"ItemNumber":              "A0001",
		"LineDescription":         "Widget",
		"RequestedDeliveryDate":   "2026-09-01",
		"ReceivingWarehouseId":    "WH-1",
		"ReceivingSiteId":         "SITE-1",
		"PurchasePrice":           9.5,
		"PurchaseUnitSymbol":      "ea",
		"LineAmount":              47.5,
	}
}

func TestService_CreateOrder_RejectsIncompleteHeader(t *testing.T) {
	doer := &fakeERPDoer{}
	service, broker := newTestService(t, doer)

	_, err := service.CreateOrder(context.Background(), nil, map[string]any{
		"PurchaseOrderName": "Fall restock",
	})
	if err == nil {
		t.Fatalf("expected validation failure")
	}
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		t.Fatalf("expected rich error, got %T", err)
	}
	if richErr.TextCode != core.GatewayErrorValidation {
		t.Fatalf("expected text code %q, got %q", core.GatewayErrorValidation, richErr.TextCode)
	}
	missing, _ := richErr.Metadata["missing"].([]string)
	for _, field := range []string{"OrderVendorAccountNumber", "CurrencyCode", "CreatedUser"} {
		found := false
		for _, name := range missing {
			if name == field {
				found = true
			}
		}
		if !found {
			t.Fatalf("expected %s in missing fields, got %v", field, missing)
		}
	}

	if broker.calls != 0 {
		t.Fatalf("expected no token fetch for invalid payload, got %d", broker.calls)
	}
	if doer.lastRequest != nil {
		t.Fatalf("expected no upstream call for invalid payload")
	}
}

func TestService_CreateOrder_SubmitsNormalizedHeader(t *testing.T) {
	doer := &fakeERPDoer{status: http.StatusCreated, body: `{"PurchaseOrderNumber":"PO-1"}`}
	service, broker := newTestService(t, doer)

	created, err := service.CreateOrder(context.Background(), core.LocalUser{ID: "user_1"}, validHeaderPayload())
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if created["PurchaseOrderNumber"] != "PO-1" {
		t.Fatalf("expected created representation, got %v", created)
	}
	if broker.calls != 1 {
		t.Fatalf("expected one token fetch, got %d", broker.calls)
	}
	if got := doer.lastRequest.Header.Get("Authorization"); got != "Bearer tok" {
		t.Fatalf("expected bearer token, got %q", got)
	}

	var sent map[string]any
	if err := json.Unmarshal(doer.lastBody, &sent); err != nil {
		t.Fatalf("decode sent header: %v", err)
	}
	if sent["dataAreaId"] != "USMF" {
		t.Fatalf("expected upper-cased company, got %v", sent["dataAreaId"])
	}
	if sent["RequestedDeliveryDate"] != "2026-09-01T00:00:00Z" {
		t.Fatalf("expected widened date, got %v", sent["RequestedDeliveryDate"])
	}
	if sent["AccountingDate"] != "2026-09-01T00:00:00Z" {
		t.Fatalf("expected derived accounting date, got %v", sent["AccountingDate"])
	}
}

func TestService_CreateOrder_CreatedUserFallsBackToCaller(t *testing.T) {
	doer := &fakeERPDoer{status: http.StatusCreated, body: `{}`}
	service, _ := newTestService(t, doer)

	payload := validHeaderPayload()
	delete(payload, "CreatedUser")

	owner := core.Claims{"_id": "user_1", "name": "Ada Buyer"}
	if _, err := service.CreateOrder(context.Background(), owner, payload); err != nil {
		t.Fatalf("create order: %v", err)
	}

	var sent map[string]any
	if err := json.Unmarshal(doer.lastBody, &sent); err != nil {
		t.Fatalf("decode sent header: %v", err)
	}
	if sent["CreatedUser"] != "Ada Buyer" {
		t.Fatalf("expected caller identity fallback, got %v", sent["CreatedUser"])
	}
}

func TestService_CreateLine_SubmitsNormalizedLine(t *testing.T) {
	doer := &fakeERPDoer{status: http.StatusCreated, body: `{"LineNumber":1}`}
	service, _ := newTestService(t, doer)

	if _, err := service.CreateLine(context.Background(), nil, validLinePayload()); err != nil {
		t.Fatalf("create line: %v", err)
	}
	if doer.lastRequest.URL.Path != "/data/PurchaseOrderLinesV2" {
		t.Fatalf("unexpected path %q", doer.lastRequest.URL.Path)
	}

	var sent map[string]any
	if err := json.Unmarshal(doer.lastBody, &sent); err != nil {
		t.Fatalf("decode sent line: %v", err)
	}
	if sent["FixedAssetTransactionType"] != "Acquisition" {
		t.Fatalf("expected line defaults applied, got %v", sent["FixedAssetTransactionType"])
	}
}

func TestService_CreateLine_RejectsZeroQuantityAndAmount(t *testing.T) {
	doer := &fakeERPDoer{}
	service, broker := newTestService(t, doer)

	payload := validLinePayload()
	payload["OrderedPurchaseQuantity"] = 0
	payload["LineAmount"] = 0.0

	_, err := service.CreateLine(context.Background(), nil, payload)
	if err == nil {
		t.Fatalf("expected validation failure for zero quantity and amount")
	}
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		t.Fatalf("expected rich error, got %T", err)
	}
	if richErr.TextCode != core.GatewayErrorValidation {
		t.Fatalf("expected text code %q, got %q", core.GatewayErrorValidation, richErr.TextCode)
	}
	missing, _ := richErr.Metadata["missing"].([]string)
	for _, field := range []string{"OrderedPurchaseQuantity", "LineAmount"} {
		found := false
		for _, name := range missing {
			if name == field {
				found = true
			}
		}
		if !found {
			t.Fatalf("expected %s in missing fields, got %v", field, missing)
		}
	}

	if broker.calls != 0 {
		t.Fatalf("expected no token fetch for invalid payload, got %d", broker.calls)
	}
	if doer.lastRequest != nil {
		t.Fatalf("expected no upstream call for invalid payload")
	}
}

func TestService_CreateLines_ReportsIndexedMissingFields(t *testing.T) {
	service, broker := newTestService(t, &fakeERPDoer{})

	_, err := service.CreateLines(context.Background(), nil, []map[string]any{
		validLinePayload(),
		{"PurchaseOrderNumber": "PO-1"},
	})
	if err == nil {
		t.Fatalf("expected validation failure")
	}
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		t.Fatalf("expected rich error, got %T", err)
	}
	missing, _ := richErr.Metadata["missing"].([]string)
	wantField := "lines[1].ItemNumber"
	found := false
	for _, name := range missing {
		if name == wantField {
			found = true
		}
		if strings.HasPrefix(name, "lines[0].") {
			t.Fatalf("expected no failures for valid line, got %v", missing)
		}
	}
	if !found {
		t.Fatalf("expected %s in missing fields, got %v", wantField, missing)
	}
	if broker.calls != 0 {
		t.Fatalf("expected validation before token fetch, got %d calls", broker.calls)
	}
}

func TestService_CreateLines_SubmitsSingleChangeset(t *testing.T) {
	doer := &fakeERPDoer{status: http.StatusAccepted, body: "--batchresponse--"}
	service, _ := newTestService(t, doer)

	result, err := service.CreateLines(context.Background(), nil, []map[string]any{
		validLinePayload(),
		validLinePayload(),
	})
	if err != nil {
		t.Fatalf("create lines: %v", err)
	}
	if result.Processed != 2 {
		t.Fatalf("expected 2 processed lines, got %d", result.Processed)
	}
	if result.Raw != "--batchresponse--" {
		t.Fatalf("expected opaque batch response, got %q", result.Raw)
	}
	if doer.lastRequest.URL.Path != "/data/$batch" {
		t.Fatalf("expected $batch submission, got %q", doer.lastRequest.URL.Path)
	}
	if got := doer.lastRequest.Header.Get("Content-Type"); !strings.HasPrefix(got, "multipart/mixed;boundary=batch_") {
		t.Fatalf("expected multipart content type, got %q", got)
	}
	body := string(doer.lastBody)
	if got := strings.Count(body, "POST https://erp.example.com/data/PurchaseOrderLinesV2 HTTP/1.1"); got != 2 {
		t.Fatalf("expected 2 sub-requests, got %d", got)
	}

	if _, err := service.CreateLines(context.Background(), nil, nil); err == nil {
		t.Fatalf("expected error for empty batch")
	}
}

func TestService_UpdateOrder_StripsKeyFields(t *testing.T) {
	doer := &fakeERPDoer{status: http.StatusNoContent}
	service, _ := newTestService(t, doer)

	updated, err := service.UpdateOrder(context.Background(), nil, "PO-1", "demf", map[string]any{
		"PurchaseOrderNumber":   "PO-1",
		"dataAreaId":            "DEMF",
		"PurchaseOrderName":     "Renamed",
		"RequestedDeliveryDate": "2026-10-01",
	})
	if err != nil {
		t.Fatalf("update order: %v", err)
	}
	if len(updated) != 0 {
		t.Fatalf("expected empty representation for 204, got %v", updated)
	}

	wantPath := "/data/PurchaseOrderHeadersV2(PurchaseOrderNumber='PO-1',dataAreaId='DEMF')"
	if doer.lastRequest.URL.Path != wantPath {
		t.Fatalf("expected path %q, got %q", wantPath, doer.lastRequest.URL.Path)
	}

	var sent map[string]any
	if err := json.Unmarshal(doer.lastBody, &sent); err != nil {
		t.Fatalf("decode patch: %v", err)
	}
	if _, present := sent["PurchaseOrderNumber"]; present {
		t.Fatalf("expected key fields stripped from patch, got %v", sent)
	}
	if _, present := sent["dataAreaId"]; present {
		t.Fatalf("expected company stripped from patch, got %v", sent)
	}
	if sent["RequestedDeliveryDate"] != "2026-10-01T00:00:00Z" {
		t.Fatalf("expected widened patch date, got %v", sent["RequestedDeliveryDate"])
	}

	if _, err := service.UpdateOrder(context.Background(), nil, "PO-1", "", map[string]any{}); err == nil {
		t.Fatalf("expected error for empty patch")
	}
	if _, err := service.UpdateOrder(context.Background(), nil, "  ", "", map[string]any{"a": 1}); err == nil {
		t.Fatalf("expected error for blank order number")
	}
}

func TestService_UpdateLine_KeyIncludesLineNumber(t *testing.T) {
	doer := &fakeERPDoer{status: http.StatusNoContent}
	service, _ := newTestService(t, doer)

	_, err := service.UpdateLine(context.Background(), nil, "PO-1", "", 2, map[string]any{
		"LineDescription": "Bigger widget",
	})
	if err != nil {
		t.Fatalf("update line: %v", err)
	}
	wantPath := "/data/PurchaseOrderLinesV2(PurchaseOrderNumber='PO-1',dataAreaId='USMF',LineNumber=2)"
	if doer.lastRequest.URL.Path != wantPath {
		t.Fatalf("expected path %q, got %q", wantPath, doer.lastRequest.URL.Path)
	}

	if _, err := service.UpdateLine(context.Background(), nil, "PO-1", "", 0, map[string]any{"a": 1}); err == nil {
		t.Fatalf("expected error for non-positive line number")
	}
}

func TestService_GetOrder(t *testing.T) {
	doer := &fakeERPDoer{body: `{"value":[{"PurchaseOrderNumber":"PO-1"}]}`}
	service, _ := newTestService(t, doer)

	order, err := service.GetOrder(context.Background(), nil, "PO-1", "")
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if order["PurchaseOrderNumber"] != "PO-1" {
		t.Fatalf("expected matched order, got %v", order)
	}
	query := doer.lastRequest.URL.Query()
	if got := query.Get("$filter"); got != "dataAreaId eq 'USMF' and PurchaseOrderNumber eq 'PO-1'" {
		t.Fatalf("unexpected filter %q", got)
	}
	if query.Get("$top") != "1" {
		t.Fatalf("expected $top=1, got %q", query.Get("$top"))
	}
}

func TestService_GetOrder_NotFound(t *testing.T) {
	doer := &fakeERPDoer{body: `{"value":[]}`}
	service, _ := newTestService(t, doer)

	_, err := service.GetOrder(context.Background(), nil, "PO-404", "")
	if err == nil {
		t.Fatalf("expected not-found failure")
	}
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		t.Fatalf("expected rich error, got %T", err)
	}
	if richErr.TextCode != core.GatewayErrorNotFound {
		t.Fatalf("expected text code %q, got %q", core.GatewayErrorNotFound, richErr.TextCode)
	}
}

func TestService_ListOrders(t *testing.T) {
	doer := &fakeERPDoer{body: `{"value":[{"PurchaseOrderNumber":"PO-2"}],"@odata.count":150}`}
	service, _ := newTestService(t, doer)

	page, err := service.ListOrders(context.Background(), nil, "", "", odata.PageRequest{Page: 1, PageSize: 100})
	if err != nil {
		t.Fatalf("list orders: %v", err)
	}
	if !page.HasMore || page.NextPage != 2 {
		t.Fatalf("expected more pages, got hasMore=%v nextPage=%d", page.HasMore, page.NextPage)
	}
	query := doer.lastRequest.URL.Query()
	if got := query.Get("$orderby"); got != "PurchaseOrderNumber desc" {
		t.Fatalf("expected newest-first ordering, got %q", got)
	}
	if got := query.Get("$filter"); got != "dataAreaId eq 'USMF'" {
		t.Fatalf("expected default company filter, got %q", got)
	}
}

func TestService_ListLines(t *testing.T) {
	doer := &fakeERPDoer{body: `{"value":[]}`}
	service, _ := newTestService(t, doer)

	if _, err := service.ListLines(context.Background(), nil, "PO-1", "demf", odata.PageRequest{}); err != nil {
		t.Fatalf("list lines: %v", err)
	}
	query := doer.lastRequest.URL.Query()
	if got := query.Get("$filter"); got != "dataAreaId eq 'DEMF' and PurchaseOrderNumber eq 'PO-1'" {
		t.Fatalf("unexpected filter %q", got)
	}
	if got := query.Get("$orderby"); got != "LineNumber" {
		t.Fatalf("expected line-number ordering, got %q", got)
	}

	if _, err := service.ListLines(context.Background(), nil, " ", "", odata.PageRequest{}); err == nil {
		t.Fatalf("expected error for blank order number")
	}
}

func TestService_DeleteOrder(t *testing.T) {
	doer := &fakeERPDoer{status: http.StatusNoContent}
	service, _ := newTestService(t, doer)

	if err := service.DeleteOrder(context.Background(), nil, "PO-1", ""); err != nil {
		t.Fatalf("delete order: %v", err)
	}
	if doer.lastRequest.Method != http.MethodDelete {
		t.Fatalf("expected DELETE, got %s", doer.lastRequest.Method)
	}
	wantPath := "/data/PurchaseOrderHeadersV2(PurchaseOrderNumber='PO-1',dataAreaId='USMF')"
	if doer.lastRequest.URL.Path != wantPath {
		t.Fatalf("expected path %q, got %q", wantPath, doer.lastRequest.URL.Path)
	}
}

func TestService_TokenFailurePropagates(t *testing.T) {
	service, broker := newTestService(t, &fakeERPDoer{})
	broker.err = core.UpstreamAuthError("core: token endpoint returned status 401", 401, "")

	_, err := service.GetOrder(context.Background(), nil, "PO-1", "")
	if err == nil {
		t.Fatalf("expected token failure to propagate")
	}
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		t.Fatalf("expected rich error, got %T", err)
	}
	if richErr.TextCode != core.GatewayErrorUpstreamAuth {
		t.Fatalf("expected text code %q, got %q", core.GatewayErrorUpstreamAuth, richErr.TextCode)
	}
}
