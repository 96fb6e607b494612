// Package har parses HTTP Archive captures and flattens them into the
// parameter shape consumed by script templates: one Request per capture
// entry plus the set of headers common to every request, so generated
// scripts declare shared headers once and per-request overrides only where
// they differ.
package har

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/perfcanvas/scriptstore/internal/common"
	"github.com/perfcanvas/scriptstore/internal/server/models"
)

// IgnoredHeaders are stripped from the common set and every per-request
// set; they are supplied by the HTTP engine at run time.
var IgnoredHeaders = []string{"Host"}

// Parse decodes a HAR document.
func Parse(data []byte) (*models.HAR, error) {
	var h models.HAR
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorMalformedHAR, err)
	}
	return &h, nil
}

// PrettyPrint renders the HAR back as indented JSON.
func PrettyPrint(h *models.HAR) (string, error) {
	out, err := json.MarshalIndent(h, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode HAR: %w", err)
	}
	return string(out), nil
}

// CleanStaticResources drops entries that are not text or application
// responses (images, fonts, media). The match is a case-sensitive prefix
// check on the response Content-Type header.
func CleanStaticResources(h *models.HAR) *models.HAR {
	kept := make([]models.HAREntry, 0, len(h.Log.Entries))
	for _, entry := range h.Log.Entries {
		for _, header := range entry.Response.Headers {
			if header.Name != "Content-Type" {
				continue
			}
			if strings.HasPrefix(header.Value, "text") || strings.HasPrefix(header.Value, "application") {
				kept = append(kept, entry)
				break
			}
		}
	}
	return &models.HAR{Log: models.HARLog{Entries: kept}}
}

// headerMap deduplicates an ordered header list; later values win.
func headerMap(headers []models.HARHeader) map[string]string {
	m := make(map[string]string, len(headers))
	for _, h := range headers {
		m[h.Name] = h.Value
	}
	return m
}

func dropIgnored(headers map[string]string) map[string]string {
	for _, name := range IgnoredHeaders {
		delete(headers, name)
	}
	return headers
}

// ExtractCommonHeader returns the name/value pairs present in every
// request of the capture. Seeded with the first entry's headers, then each
// subsequent entry removes pairs it does not carry with the same value.
// An empty capture yields an empty map.
func ExtractCommonHeader(h *models.HAR) map[string]string {
	commonHeaders := map[string]string{}
	for i, entry := range h.Log.Entries {
		headers := headerMap(entry.Request.Headers)
		if i == 0 {
			commonHeaders = headers
			continue
		}
		for name, value := range commonHeaders {
			if other, ok := headers[name]; !ok || other != value {
				delete(commonHeaders, name)
			}
		}
	}
	return commonHeaders
}

// BuildRequests flattens each entry into a Request with deduplicated
// headers (ignore list applied) and the POST parameter map when present.
func BuildRequests(h *models.HAR) []models.Request {
	requests := make([]models.Request, 0, len(h.Log.Entries))
	for _, entry := range h.Log.Entries {
		req := models.Request{
			Method:  entry.Request.Method,
			URL:     entry.Request.URL,
			Status:  entry.Response.Status,
			Headers: dropIgnored(headerMap(entry.Request.Headers)),
		}
		if entry.Request.PostData != nil && len(entry.Request.PostData.Params) > 0 {
			postData := make(map[string]string, len(entry.Request.PostData.Params))
			for _, p := range entry.Request.PostData.Params {
				postData[p.Name] = p.Value
			}
			req.PostData = postData
		}
		requests = append(requests, req)
	}
	return requests
}

// TemplateParams builds the parameter map handed to script templates.
func TemplateParams(h *models.HAR) map[string]any {
	return map[string]any{
		"requests":     BuildRequests(h),
		"commonHeader": dropIgnored(ExtractCommonHeader(h)),
	}
}
