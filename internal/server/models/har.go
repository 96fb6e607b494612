package models

// HAR models the subset of the HTTP Archive format consumed by the script
// converter. Header lists keep the source ordering and are not
// deduplicated; deduplication happens when building Request values.
type HAR struct {
	Log HARLog `json:"log"`
}

type HARLog struct {
	Entries []HAREntry `json:"entries"`
}

type HAREntry struct {
	Request  HARRequest  `json:"request"`
	Response HARResponse `json:"response"`
}

type HARRequest struct {
	Method   string       `json:"method"`
	URL      string       `json:"url"`
	Headers  []HARHeader  `json:"headers"`
	PostData *HARPostData `json:"postData,omitempty"`
}

type HARResponse struct {
	Status  int         `json:"status"`
	Headers []HARHeader `json:"headers"`
}

type HARHeader struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type HARPostData struct {
	Params []HARParam `json:"params,omitempty"`
}

type HARParam struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Request is the flattened, deduplicated form of one HAR entry used as
// template input. Transient; never persisted.
type Request struct {
	Method   string            `json:"method"`
	URL      string            `json:"url"`
	Status   int               `json:"status"`
	Headers  map[string]string `json:"headers"`
	PostData map[string]string `json:"postData,omitempty"`
}
