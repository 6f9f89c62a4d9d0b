package model

// ErrorResponse wraps every API error.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries the status code again so clients that only see the
// body can branch on it.
type ErrorDetail struct {
	Code      int                    `json:"code"`
	Message   string                 `json:"message"`
	RequestID string                 `json:"request_id,omitempty"`
	Context   map[string]interface{} `json:"context,omitempty"`
}

// ListResponse is the envelope for list endpoints.
type ListResponse struct {
	Resource interface{} `json:"resource"`
	Count    int         `json:"count"`
}
