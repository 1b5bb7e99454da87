package odata

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Batch is an assembled $batch request: one outer multipart boundary
// wrapping a single changeset so the ERP applies all records
// atomically.
type Batch struct {
	Boundary    string
	ChangesetID string
	Body        []byte
	Records     int
}

// ContentType returns the multipart content type for the batch POST.
func (b Batch) ContentType() string {
	return "multipart/mixed;boundary=" + b.Boundary
}

// BuildBatch renders records as sequential POST sub-requests against
// targetURL inside a single changeset. Boundary ids are unix-second
// suffixed; they only need to be unique within the request.
func BuildBatch(records []map[string]any, targetURL string, now time.Time) (Batch, error) {
	if len(records) == 0 {
		return Batch{}, fmt.Errorf("odata: batch requires at least one record")
	}
	if strings.TrimSpace(targetURL) == "" {
		return Batch{}, fmt.Errorf("odata: batch target url is required")
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	boundary := fmt.Sprintf("batch_%d", now.Unix())
	changeset := fmt.Sprintf("changeset_%d", now.Unix())

	var body strings.Builder
	fmt.Fprintf(&body, "--%s\n", boundary)
	fmt.Fprintf(&body, "Content-Type: multipart/mixed; boundary=%s\n\n", changeset)

	for index, record := range records {
		payload, err := json.Marshal(record)
		if err != nil {
			return Batch{}, fmt.Errorf("odata: encode batch record %d: %w", index+1, err)
		}
		fmt.Fprintf(&body, "--%s\n", changeset)
		body.WriteString("Content-Type: application/http\n")
		body.WriteString("Content-Transfer-Encoding: binary\n")
		fmt.Fprintf(&body, "Content-ID: %d\n\n", index+1)
		fmt.Fprintf(&body, "POST %s HTTP/1.1\n", strings.TrimSpace(targetURL))
		body.WriteString("Content-Type: application/json\n\n")
		body.Write(payload)
		body.WriteString("\n\n")
	}

	fmt.Fprintf(&body, "--%s--\n", changeset)
	fmt.Fprintf(&body, "--%s--", boundary)

	return Batch{
		Boundary:    boundary,
		ChangesetID: changeset,
		Body:        []byte(body.String()),
		Records:     len(records),
	}, nil
}
