package webhook

import "net/http"

// Response is the body a webhook receiver sends back to Verifly
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	// Status is the HTTP status to respond with
	Status int `json:"-"`
}

// Success acknowledges an event. An empty message defaults to "OK".
func Success(message string) Response {
	if message == "" {
		message = "OK"
	}
	return Response{Success: true, Message: message, Status: http.StatusOK}
}

// Failure rejects an event with the given status, 400 when status is zero
func Failure(message string, status int) Response {
	if status == 0 {
		status = http.StatusBadRequest
	}
	return Response{Success: false, Message: message, Status: status}
}

// Unauthorized rejects an event whose signature did not verify
func Unauthorized(message string) Response {
	if message == "" {
		message = "Unauthorized"
	}
	return Response{Success: false, Message: message, Status: http.StatusUnauthorized}
}
