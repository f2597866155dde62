package httpx

import (
	"encoding/json"
	"net/http"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

// StatusResponse is a status envelope, used for empty collections and health.
type StatusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

func JSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	var body []byte
	var err error
	if payload != nil {
		body, err = json.Marshal(payload)
		if err != nil {
			// best-effort error response; avoid writing partial JSON
			http.Error(w, `{"error":"encode_error"}`, http.StatusInternalServerError)
			return
		}
	} else {
		body = []byte("null")
	}
	w.WriteHeader(status)
	// a 204 over a real connection rejects the body with http.ErrBodyNotAllowed
	_, _ = w.Write(body)
}

func JSONError(w http.ResponseWriter, status int, msg string, details any) {
	JSON(w, status, ErrorResponse{Error: msg, Details: details})
}

func JSONMessage(w http.ResponseWriter, status int, msg string) {
	JSON(w, status, MessageResponse{Message: msg})
}

// JSONField writes a single field-keyed message, e.g. {"customer": "Customer field is required."}.
func JSONField(w http.ResponseWriter, status int, field, msg string) {
	JSON(w, status, map[string]string{field: msg})
}
