package common

// APIResponse represents the structure of a standard API response.
type APIResponse struct {
	TraceID string `json:"traceId"` // unique identifier for the API request
	Data    any    `json:"data"`
}

// PageResponse wraps one page of a list endpoint.
type PageResponse struct {
	Page  int `json:"page"`
	Size  int `json:"size"`
	Items any `json:"items"`
}
