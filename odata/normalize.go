package odata

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// FallbackCompany is used when neither the payload nor the caller
// supplies a company.
const FallbackCompany = "usmf"

var isoDatePrefix = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T`)

// dateFields are entity properties that accept bare dates from callers
// and must be widened to midnight-UTC timestamps.
var dateFields = map[string]struct{}{
	"AccountingDate":                  {},
	"ConfirmedDeliveryDate":           {},
	"ConfirmedShipDate":               {},
	"ConfirmedShippingDate":           {},
	"ExpectedCrossDockingDate":        {},
	"ExpectedStoreAvailableSalesDate": {},
	"ExpectedStoreReceiptDate":        {},
	"FixedDueDate":                    {},
	"RequestedDeliveryDate":           {},
	"RequestedShipDate":               {},
	"RequestedShippingDate":           {},
}

// headerBlankables are optional header properties the ERP rejects when
// absent; they are forced to empty strings.
var headerBlankables = []string{
	"DeliveryModeId",
	"DeliveryTermsId",
	"PaymentTermsName",
	"DeliveryAddressLocationId",
	"DeliveryAddressStreet",
	"DeliveryAddressCity",
	"DeliveryAddressCountryRegionId",
	"DeliveryAddressCountyId",
	"DeliveryAddressZipCode",
	"FormattedDeliveryAddress",
	"DeliveryAddressStateId",
	"DeliveryAddressName",
	"InvoiceAddressStreet",
	"InvoiceAddressCity",
	"InvoiceAddressState",
	"InvoiceAddressCountryRegionId",
	"InvoiceAddressZipCode",
	"DefaultReceivingWarehouseId",
}

// CanonicalKey maps a caller field name onto the entity schema casing:
// dataAreaId keeps its lower-camel spelling, everything else is
// first-character upper-cased.
func CanonicalKey(key string) string {
	if strings.EqualFold(key, "dataareaid") {
		return "dataAreaId"
	}
	if key == "" {
		return key
	}
	return strings.ToUpper(key[:1]) + key[1:]
}

// ToISODate widens a bare YYYY-MM-DD date to a midnight-UTC timestamp.
// Values already carrying a time component pass through unchanged.
func ToISODate(value string) string {
	if value == "" {
		return value
	}
	if isoDatePrefix.MatchString(value) {
		return value
	}
	return value + "T00:00:00Z"
}

type HeaderOptions struct {
	DefaultCompany string
}

// BuildHeader canonicalizes a raw purchase-order header payload:
// company resolution (upper-cased), key casing, nil-to-blank, date
// widening, AccountingDate derivation, blankable defaults, string
// trimming, and coordinate coercion. The result is idempotent under
// re-application.
func BuildHeader(src map[string]any, opts HeaderOptions) map[string]any {
	normalized := map[string]any{}

	company := readCompany(src)
	if company == "" {
		company = strings.TrimSpace(opts.DefaultCompany)
	}
	if company == "" {
		company = FallbackCompany
	}
	normalized["dataAreaId"] = strings.ToUpper(company)

	for rawKey, rawValue := range src {
		if strings.EqualFold(rawKey, "dataareaid") {
			continue
		}
		key := CanonicalKey(rawKey)
		value := rawValue
		if value == nil {
			value = ""
		}
		if _, isDate := dateFields[key]; isDate {
			if text, ok := value.(string); ok && text != "" {
				value = ToISODate(text)
			}
		}
		normalized[key] = value
	}

	if isBlank(normalized["AccountingDate"]) {
		if requested, ok := normalized["RequestedDeliveryDate"].(string); ok && requested != "" {
			normalized["AccountingDate"] = requested
		}
	}

	for _, key := range headerBlankables {
		if _, present := normalized[key]; !present {
			normalized[key] = ""
		}
	}
	if _, present := normalized["DeliveryAddressLongitude"]; !present {
		normalized["DeliveryAddressLongitude"] = float64(0)
	}

	for key, value := range normalized {
		if text, ok := value.(string); ok {
			normalized[key] = strings.TrimSpace(text)
		}
	}

	normalized["DeliveryAddressLongitude"] = coerceFloat(normalized["DeliveryAddressLongitude"], 0)
	if latitude, present := normalized["DeliveryAddressLatitude"]; present {
		if parsed, ok := tryCoerceFloat(latitude); ok {
			normalized["DeliveryAddressLatitude"] = parsed
		} else {
			delete(normalized, "DeliveryAddressLatitude")
		}
	}

	return normalized
}

// lineFields is the fixed projection a purchase-order line submits;
// keys outside this list never reach the ERP.
var lineDateFields = []string{
	"RequestedDeliveryDate",
	"ConfirmedDeliveryDate",
	"ConfirmedShippingDate",
	"RequestedShippingDate",
}

var lineCopyFields = []string{
	"PurchaseOrderNumber",
	"OrderedPurchaseQuantity",
	"ItemNumber",
	"LineDescription",
	"DeliveryAddressLocationId",
	"DeliveryAddressStreet",
	"DeliveryAddressCity",
	"DeliveryAddressZipCode",
	"DeliveryAddressCountyId",
	"DeliveryAddressCountryRegionISOCode",
	"DeliveryAddressName",
	"DeliveryAddressDescription",
	"ReceivingWarehouseId",
	"ReceivingSiteId",
	"PurchasePrice",
	"PurchaseUnitSymbol",
	"SalesTaxItemGroupCode",
	"LineAmount",
}

// BuildLine canonicalizes a purchase-order line payload. Unlike
// headers, caller company casing is preserved and blank values are
// stripped rather than kept.
func BuildLine(src map[string]any, defaultCompany string) map[string]any {
	line := map[string]any{}

	company := strings.TrimSpace(readString(src["dataAreaId"]))
	if company == "" {
		company = strings.TrimSpace(defaultCompany)
	}
	if company == "" {
		company = FallbackCompany
	}
	line["dataAreaId"] = company

	for _, key := range lineCopyFields {
		line[key] = src[key]
	}
	for _, key := range lineDateFields {
		if text := readString(src[key]); text != "" {
			line[key] = ToISODate(text)
		}
	}

	line["LineNumber"] = defaultLineNumber(src["LineNumber"])
	line["FixedAssetTransactionType"] = defaultString(src["FixedAssetTransactionType"], "Acquisition")
	line["CalculateLineAmount"] = defaultString(src["CalculateLineAmount"], "Yes")
	line["IsDeliveryAddressPrivate"] = defaultString(src["IsDeliveryAddressPrivate"], "No")
	line["IsDeliveryAddressOrderSpecific"] = defaultString(src["IsDeliveryAddressOrderSpecific"], "No")
	line["DeliveryAddressCountryRegionId"] = defaultString(src["DeliveryAddressCountryRegionId"], "")

	// The entity schema itself misspells this property.
	formatted := src["FormattedDelveryAddress"]
	if isBlank(formatted) {
		formatted = src["FormattedDeliveryAddress"]
	}
	line["FormattedDelveryAddress"] = formatted

	for key, value := range line {
		if value == nil || value == "" {
			delete(line, key)
		}
	}
	return line
}

// HeaderDateFields lists the header properties that carry dates, in a
// stable order for patch coercion.
func HeaderDateFields() []string {
	out := make([]string, 0, len(dateFields))
	for field := range dateFields {
		out = append(out, field)
	}
	sort.Strings(out)
	return out
}

// LineDateFields lists the line properties that carry dates.
func LineDateFields() []string {
	out := make([]string, len(lineDateFields))
	copy(out, lineDateFields)
	return out
}

// CleanPatch drops nil and blank entries and widens the named date
// fields, mirroring how update payloads are prepared.
func CleanPatch(src map[string]any, dates []string, stripKeys []string) map[string]any {
	patch := map[string]any{}
	for key, value := range src {
		if value == nil || value == "" {
			continue
		}
		patch[key] = value
	}
	for _, field := range dates {
		if text := readString(patch[field]); text != "" {
			patch[field] = ToISODate(text)
		}
	}
	for _, key := range stripKeys {
		delete(patch, key)
	}
	return patch
}

func readCompany(src map[string]any) string {
	for key, value := range src {
		if !strings.EqualFold(key, "dataareaid") {
			continue
		}
		if text, ok := value.(string); ok && strings.TrimSpace(text) != "" {
			return strings.TrimSpace(text)
		}
	}
	return ""
}

func readString(value any) string {
	text, _ := value.(string)
	return text
}

func isBlank(value any) bool {
	if value == nil {
		return true
	}
	if text, ok := value.(string); ok {
		return strings.TrimSpace(text) == ""
	}
	return false
}

func defaultString(value any, fallback string) any {
	if isBlank(value) {
		return fallback
	}
	return value
}

func defaultLineNumber(value any) any {
	switch typed := value.(type) {
	case nil:
		return 1
	case int:
		if typed == 0 {
			return 1
		}
		return typed
	case int64:
		if typed == 0 {
			return 1
		}
		return typed
	case float64:
		if typed == 0 {
			return 1
		}
		return typed
	case string:
		if strings.TrimSpace(typed) == "" {
			return 1
		}
		return typed
	default:
		return typed
	}
}

func coerceFloat(value any, fallback float64) float64 {
	if parsed, ok := tryCoerceFloat(value); ok {
		return parsed
	}
	return fallback
}

func tryCoerceFloat(value any) (float64, bool) {
	switch typed := value.(type) {
	case float64:
		return typed, true
	case float32:
		return float64(typed), true
	case int:
		return float64(typed), true
	case int64:
		return float64(typed), true
	case string:
		trimmed := strings.TrimSpace(typed)
		if trimmed == "" {
			return 0, true
		}
		parsed, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}
