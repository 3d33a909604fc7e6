package models

// ErrorResponse is the body of every failed JSON response.
type ErrorResponse struct {
	Error string `json:"error"`
}
