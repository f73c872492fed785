package models

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// SubmitResult is the payload returned for a successful wipe submission.
type SubmitResult struct {
	Certificate     *Certificate `json:"certificate"`
	VerificationURL string       `json:"verificationUrl"`
}

// ValidationErrorResponse reports every violated field of a rejected
// wipe record in one response.
type ValidationErrorResponse struct {
	Error  string   `json:"error"`
	Fields []string `json:"fields"`
}
