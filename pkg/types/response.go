package types

// SuccessEnvelope wraps every successful response body under "data".
type SuccessEnvelope struct {
	Data any `json:"data"`
}

// APIError is the wire shape of a failed request. Code carries the
// machine-readable error code, Details optional validation metadata.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorEnvelope wraps an APIError under "error".
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}
