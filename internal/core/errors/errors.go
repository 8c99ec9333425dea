package errors

const (
	HttpInternalError           = "internal_error"
	HttpInvalidJsonError        = "invalid_json"
	HttpValidationError         = "validation_failed"
	HttpDuplicateHeartbeatError = "duplicate_heartbeat"
	HttpInvalidQueryError       = "invalid_query"
)

// ErrorResponse is the error response body for HTTP errors.
type ErrorResponse struct {
	ErrorType string      `json:"error_type"`
	Message   string      `json:"message"`
	Details   interface{} `json:"details,omitempty"`
}
