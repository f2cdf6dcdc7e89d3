package dto

// ErrorBody describes a failed request.
type ErrorBody struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// ErrorResponse is the envelope of every error reply.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}
