package har

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perfcanvas/scriptstore/internal/common"
	"github.com/perfcanvas/scriptstore/internal/server/models"
)

func entryWithHeaders(headers map[string]string) models.HAREntry {
	e := models.HAREntry{}
	for name, value := range headers {
		e.Request.Headers = append(e.Request.Headers, models.HARHeader{Name: name, Value: value})
	}
	return e
}

func TestParse(t *testing.T) {
	raw := `{
		"log": {
			"entries": [
				{
					"request": {
						"method": "POST",
						"url": "http://a.b.com/login",
						"headers": [{"name": "Accept", "value": "text/html"}],
						"postData": {"params": [{"name": "user", "value": "alice"}]}
					},
					"response": {
						"status": 200,
						"headers": [{"name": "Content-Type", "value": "text/html"}]
					}
				}
			]
		}
	}`
	h, err := Parse([]byte(raw))
	require.NoError(t, err)
	require.Len(t, h.Log.Entries, 1)
	assert.Equal(t, "POST", h.Log.Entries[0].Request.Method)
	require.NotNil(t, h.Log.Entries[0].Request.PostData)
	assert.Equal(t, "user", h.Log.Entries[0].Request.PostData.Params[0].Name)
}

func TestParseMalformed(t *testing.T) {
	_, err := Parse([]byte(`{"log": [`))
	assert.ErrorIs(t, err, common.ErrorMalformedHAR)
}

func TestCleanStaticResources(t *testing.T) {
	h := &models.HAR{}
	page := models.HAREntry{}
	page.Response.Headers = []models.HARHeader{{Name: "Content-Type", Value: "text/html"}}
	img := models.HAREntry{}
	img.Response.Headers = []models.HARHeader{{Name: "Content-Type", Value: "image/png"}}
	api := models.HAREntry{}
	api.Response.Headers = []models.HARHeader{{Name: "Content-Type", Value: "application/json"}}
	h.Log.Entries = []models.HAREntry{page, img, api}

	cleaned := CleanStaticResources(h)
	require.Len(t, cleaned.Log.Entries, 2)
	assert.Equal(t, "text/html", cleaned.Log.Entries[0].Response.Headers[0].Value)
	assert.Equal(t, "application/json", cleaned.Log.Entries[1].Response.Headers[0].Value)
}

func TestExtractCommonHeader(t *testing.T) {
	h := &models.HAR{Log: models.HARLog{Entries: []models.HAREntry{
		entryWithHeaders(map[string]string{"A": "1", "B": "2"}),
		entryWithHeaders(map[string]string{"A": "1", "B": "3"}),
		entryWithHeaders(map[string]string{"A": "1"}),
	}}}

	// B's value differs across entries, so it is dropped entirely.
	assert.Equal(t, map[string]string{"A": "1"}, ExtractCommonHeader(h))
}

func TestExtractCommonHeaderEmpty(t *testing.T) {
	assert.Equal(t, map[string]string{}, ExtractCommonHeader(&models.HAR{}))
}

func TestBuildRequests(t *testing.T) {
	e := entryWithHeaders(map[string]string{"Host": "a.b.com", "Accept": "text/html"})
	e.Request.Method = "POST"
	e.Request.URL = "http://a.b.com/login"
	e.Request.PostData = &models.HARPostData{Params: []models.HARParam{{Name: "user", Value: "alice"}}}
	e.Response.Status = 302

	requests := BuildRequests(&models.HAR{Log: models.HARLog{Entries: []models.HAREntry{e}}})
	require.Len(t, requests, 1)

	req := requests[0]
	assert.Equal(t, "POST", req.Method)
	assert.Equal(t, "http://a.b.com/login", req.URL)
	assert.Equal(t, 302, req.Status)
	assert.Equal(t, map[string]string{"Accept": "text/html"}, req.Headers, "Host must be ignored")
	assert.Equal(t, map[string]string{"user": "alice"}, req.PostData)
}

func TestTemplateParams(t *testing.T) {
	h := &models.HAR{Log: models.HARLog{Entries: []models.HAREntry{
		entryWithHeaders(map[string]string{"Host": "a.b.com", "A": "1"}),
		entryWithHeaders(map[string]string{"Host": "a.b.com", "A": "1"}),
	}}}

	params := TemplateParams(h)
	assert.Equal(t, map[string]string{"A": "1"}, params["commonHeader"], "Host is stripped from the common set")
	assert.Len(t, params["requests"], 2)
}

func TestPrettyPrint(t *testing.T) {
	h := &models.HAR{}
	out, err := PrettyPrint(h)
	require.NoError(t, err)
	assert.Contains(t, out, "\"log\"")
}
