package common

// SuccessResponse is the body returned for accepted submissions.
type SuccessResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	MessageID string `json:"messageId,omitempty"`
	Remaining *int   `json:"remaining,omitempty"`
}

// ErrorResponse is the body returned for every failure.
type ErrorResponse struct {
	Error     string      `json:"error"`
	Details   interface{} `json:"details,omitempty"`
	Remaining *int        `json:"remaining,omitempty"`
}

// NewSuccessResponse creates a success body with just a message
func NewSuccessResponse(message string) SuccessResponse {
	return SuccessResponse{
		Success: true,
		Message: message,
	}
}

// NewErrorResponse creates an error body
func NewErrorResponse(message string, details interface{}) ErrorResponse {
	return ErrorResponse{
		Error:   message,
		Details: details,
	}
}

// Remaining wraps a quota count for the optional remaining field
func Remaining(n int) *int {
	return &n
}
