package odata

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

const (
	DefaultPageSize = 100
	MaxPageSize     = 500
)

// PageRequest is caller-facing 1-based pagination.
type PageRequest struct {
	Page     int
	PageSize int
}

// Normalize clamps the request to the supported window and returns the
// resolved page, page size, and row offset.
func (r PageRequest) Normalize() (page int, pageSize int, skip int) {
	page = r.Page
	if page < 1 {
		page = 1
	}
	pageSize = r.PageSize
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return page, pageSize, (page - 1) * pageSize
}

// QueryOptions renders OData system query options. Company filtering
// uses the cross-company flag plus a dataAreaId equality predicate.
type QueryOptions struct {
	CrossCompany bool
	Company      string
	Filter       string
	OrderBy      string
	Top          int
	Skip         int
	Count        bool
}

// Values flattens the options into request query parameters.
func (o QueryOptions) Values() map[string]string {
	values := map[string]string{}
	if o.CrossCompany {
		values["cross-company"] = "true"
	}

	predicates := make([]string, 0, 2)
	if company := strings.TrimSpace(o.Company); company != "" {
		predicates = append(predicates, fmt.Sprintf("dataAreaId eq %s", QuoteLiteral(company)))
	}
	if filter := strings.TrimSpace(o.Filter); filter != "" {
		predicates = append(predicates, filter)
	}
	if len(predicates) > 0 {
		values["$filter"] = strings.Join(predicates, " and ")
	}

	if orderBy := strings.TrimSpace(o.OrderBy); orderBy != "" {
		values["$orderby"] = orderBy
	}
	if o.Top > 0 {
		values["$top"] = strconv.Itoa(o.Top)
	}
	if o.Skip > 0 {
		values["$skip"] = strconv.Itoa(o.Skip)
	}
	if o.Count {
		values["$count"] = "true"
	}
	return values
}

// QuoteLiteral renders a string literal for an OData predicate,
// doubling embedded quotes.
func QuoteLiteral(value string) string {
	return "'" + strings.ReplaceAll(value, "'", "''") + "'"
}

// Page is a parsed list envelope.
type Page struct {
	Items      []map[string]any `json:"items"`
	Count      int              `json:"count"`
	Page       int              `json:"page"`
	PageSize   int              `json:"pageSize"`
	TotalCount int64            `json:"totalCount,omitempty"`
	HasTotal   bool             `json:"-"`
	HasMore    bool             `json:"hasMore"`
	NextPage   int              `json:"nextPage,omitempty"`
	NextLink   string           `json:"nextLink,omitempty"`
}

type listEnvelope struct {
	Value    []map[string]any `json:"value"`
	Count    *int64           `json:"@odata.count"`
	NextLink string           `json:"@odata.nextLink"`
}

// ParsePage decodes an OData list envelope and derives paging flags:
// more rows exist when the service returned a next link or the total
// count extends past the current window.
func ParsePage(body []byte, page int, pageSize int) (Page, error) {
	var envelope listEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return Page{}, fmt.Errorf("odata: decode list envelope: %w", err)
	}

	result := Page{
		Items:    envelope.Value,
		Count:    len(envelope.Value),
		Page:     page,
		PageSize: pageSize,
		NextLink: strings.TrimSpace(envelope.NextLink),
	}
	if result.Items == nil {
		result.Items = []map[string]any{}
	}
	if envelope.Count != nil {
		result.TotalCount = *envelope.Count
		result.HasTotal = true
	}
	result.HasMore = result.NextLink != "" ||
		(result.HasTotal && int64(page)*int64(pageSize) < result.TotalCount)
	if result.HasMore {
		result.NextPage = page + 1
	}
	return result, nil
}
