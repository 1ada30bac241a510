package models

// Response is the uniform API envelope.
// Code 0 means success; non-zero mirrors the HTTP status.
type Response struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}
