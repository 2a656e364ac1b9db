package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"ticket2ics/internal/dto"
	"ticket2ics/internal/middleware"
	"ticket2ics/internal/models"
	"ticket2ics/internal/pipeline"
	"ticket2ics/internal/storage"
	"ticket2ics/internal/validation"
)

// TicketService is the slice of the pipeline the HTTP layer needs.
type TicketService interface {
	Submit(ctx context.Context, filename string, image []byte) (string, error)
	Run(ctx context.Context, filename string, image []byte) (string, pipeline.Outcome, error)
	Result(ctx context.Context, id string) (*models.TaskRecord, error)
	CalendarPath(ctx context.Context, id string) (string, error)
}

type TicketHandler struct {
	service     TicketService
	maxFileSize int64
	logger      *zap.Logger
}

func NewTicketHandler(service TicketService, maxFileSize int64, logger *zap.Logger) *TicketHandler {
	return &TicketHandler{
		service:     service,
		maxFileSize: maxFileSize,
		logger:      logger,
	}
}

// Upload accepts a multipart ticket image and submits it for
// asynchronous processing. The response carries only the task id;
// callers poll /result/{id} for progress.
func (h *TicketHandler) Upload(w http.ResponseWriter, r *http.Request) {
	traceID := middleware.GetTraceID(r.Context())

	filename, content, err := h.readImage(w, r)
	if err != nil {
		h.handleError(w, "Invalid upload", err, traceID, http.StatusBadRequest)
		return
	}

	id, err := h.service.Submit(r.Context(), filename, content)
	if err != nil {
		h.handleError(w, "Failed to create task", err, traceID, http.StatusInternalServerError)
		return
	}

	h.logger.Info("Ticket submitted",
		zap.String("trace_id", traceID),
		zap.String("task_id", id),
		zap.String("filename", filename),
	)

	h.respondJSON(w, http.StatusOK, dto.UploadResponse{
		ID:     id,
		Status: string(models.StatusProcessing),
	})
}

// Process accepts a multipart ticket image and runs the pipeline
// inline, returning the terminal result in the response. No status
// record is persisted for tasks created this way.
func (h *TicketHandler) Process(w http.ResponseWriter, r *http.Request) {
	traceID := middleware.GetTraceID(r.Context())

	filename, content, err := h.readImage(w, r)
	if err != nil {
		h.handleError(w, "Invalid upload", err, traceID, http.StatusBadRequest)
		return
	}

	id, outcome, err := h.service.Run(r.Context(), filename, content)
	if err != nil {
		h.handleError(w, "Failed to create task", err, traceID, http.StatusInternalServerError)
		return
	}

	resp := dto.ResultResponse{ID: id, Status: string(outcome.Status)}
	switch outcome.Status {
	case models.StatusCompleted:
		resp.Data = outcome.Ticket
		resp.ICSURL = "/ics/" + id
	case models.StatusFailed:
		resp.Error = outcome.Err.Error()
	}

	h.logger.Info("Ticket processed inline",
		zap.String("trace_id", traceID),
		zap.String("task_id", id),
		zap.String("status", string(outcome.Status)),
	)

	h.respondJSON(w, http.StatusOK, resp)
}

// Result reports the durable state of an asynchronous task.
func (h *TicketHandler) Result(w http.ResponseWriter, r *http.Request) {
	traceID := middleware.GetTraceID(r.Context())

	id := strings.TrimPrefix(r.URL.Path, "/result/")
	if id == "" {
		h.handleError(w, "Task ID is required", nil, traceID, http.StatusBadRequest)
		return
	}

	record, err := h.service.Result(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrTaskNotFound) {
			h.handleError(w, "Task not found", err, traceID, http.StatusNotFound)
			return
		}
		h.handleError(w, "Failed to read task status", err, traceID, http.StatusInternalServerError)
		return
	}

	resp := dto.ResultResponse{ID: id, Status: string(record.Status)}
	switch record.Status {
	case models.StatusCompleted:
		resp.Data = record.Ticket
		resp.ICSURL = "/ics/" + id
	case models.StatusFailed:
		resp.Error = record.Error
		if resp.Error == "" {
			resp.Error = "processing failed"
		}
	}

	h.respondJSON(w, http.StatusOK, resp)
}

// Calendar serves the generated ICS artifact.
func (h *TicketHandler) Calendar(w http.ResponseWriter, r *http.Request) {
	traceID := middleware.GetTraceID(r.Context())

	id := strings.TrimPrefix(r.URL.Path, "/ics/")
	if id == "" {
		h.handleError(w, "Task ID is required", nil, traceID, http.StatusBadRequest)
		return
	}

	path, err := h.service.CalendarPath(r.Context(), id)
	if err != nil {
		h.handleError(w, "Calendar file not found", err, traceID, http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "text/calendar")
	w.Header().Set("Content-Disposition", `attachment; filename="calendar.ics"`)
	http.ServeFile(w, r, path)
}

// Root serves the service-info document. The "/" mux pattern matches
// every otherwise-unrouted path, so anything but the root itself is a
// 404 here.
func (h *TicketHandler) Root(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		h.handleError(w, "Not found", nil, middleware.GetTraceID(r.Context()), http.StatusNotFound)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"service": "ticket2ics",
		"version": "1.0.0",
		"status":  "running",
		"endpoints": map[string]string{
			"upload":  "/upload",
			"process": "/process",
			"result":  "/result/{id}",
			"ics":     "/ics/{id}",
			"storage": "/storage/{id}/{file}",
			"health":  "/health",
		},
	})
}

func (h *TicketHandler) Health(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// readImage pulls the uploaded file out of the multipart form and
// rejects anything that is not an image before a task is allocated.
func (h *TicketHandler) readImage(w http.ResponseWriter, r *http.Request) (string, []byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxFileSize)

	if err := r.ParseMultipartForm(h.maxFileSize); err != nil {
		return "", nil, err
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return "", nil, err
	}
	defer file.Close()

	if header.Size > h.maxFileSize {
		return "", nil, validation.ErrFileTooLarge
	}
	if declared := header.Header.Get("Content-Type"); declared != "" &&
		!strings.HasPrefix(declared, "image/") && declared != "application/octet-stream" {
		return "", nil, validation.ErrNotAnImage
	}

	content, err := io.ReadAll(file)
	if err != nil {
		return "", nil, err
	}

	fileType, err := validation.DetectImageType(content)
	if err != nil {
		return "", nil, err
	}
	if !validation.IsAllowedImageType(fileType) {
		return "", nil, validation.ErrInvalidFileType
	}

	return header.Filename, content, nil
}

func (h *TicketHandler) handleError(w http.ResponseWriter, message string, err error, traceID string, status int) {
	h.logger.Error(message,
		zap.String("trace_id", traceID),
		zap.Error(err),
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(dto.ErrorResponse{
		Error:   message,
		TraceID: traceID,
	})
}

func (h *TicketHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
