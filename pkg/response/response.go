package response

// Response represents the standard API response envelope.
type Response struct {
	Status     string              `json:"status"`      // "success" or "error"
	StatusCode int                 `json:"status_code"` // HTTP status code
	Data       interface{}         `json:"data,omitempty"`
	Error      string              `json:"error,omitempty"`
	Fields     map[string][]string `json:"fields,omitempty"` // field -> validation messages
}

// Success returns a standard success response wrapping the data.
func Success(statusCode int, data interface{}) Response {
	return Response{
		Status:     "success",
		StatusCode: statusCode,
		Data:       data,
	}
}

// Error returns a standard error response wrapping the error message.
func Error(statusCode int, err string) Response {
	return Response{
		Status:     "error",
		StatusCode: statusCode,
		Error:      err,
	}
}

// ValidationError returns an error response carrying the collected
// field-level messages.
func ValidationError(statusCode int, fields map[string][]string) Response {
	return Response{
		Status:     "error",
		StatusCode: statusCode,
		Error:      "validation failed",
		Fields:     fields,
	}
}
