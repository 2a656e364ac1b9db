package dto

import (
	"ticket2ics/internal/models"
)

// UploadResponse acknowledges an asynchronous submission.
type UploadResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// ResultResponse is the polling shape for both /result and /process.
type ResultResponse struct {
	ID     string             `json:"id"`
	Status string             `json:"status"`
	Data   *models.TicketData `json:"data,omitempty"`
	ICSURL string             `json:"ics_url,omitempty"`
	Error  string             `json:"error,omitempty"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
}
