// Package handlers holds the echo handlers behind the admin API. Each
// handler registers its own routes; the server wires them together.
package handlers

// ErrorResponse is the JSON error body shared by all handlers.
type ErrorResponse struct {
	Error string `json:"error"`
}
