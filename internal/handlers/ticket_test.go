package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap/zaptest"

	"ticket2ics/internal/dto"
	"ticket2ics/internal/middleware"
	"ticket2ics/internal/models"
	"ticket2ics/internal/pipeline"
	"ticket2ics/internal/storage"
)

type mockTicketService struct {
	submitFunc       func(ctx context.Context, filename string, image []byte) (string, error)
	runFunc          func(ctx context.Context, filename string, image []byte) (string, pipeline.Outcome, error)
	resultFunc       func(ctx context.Context, id string) (*models.TaskRecord, error)
	calendarPathFunc func(ctx context.Context, id string) (string, error)
	submitted        bool
}

func (m *mockTicketService) Submit(ctx context.Context, filename string, image []byte) (string, error) {
	m.submitted = true
	if m.submitFunc != nil {
		return m.submitFunc(ctx, filename, image)
	}
	return "2025_01_01_10_00_00_" + strings.TrimSuffix(filename, filepath.Ext(filename)), nil
}

func (m *mockTicketService) Run(ctx context.Context, filename string, image []byte) (string, pipeline.Outcome, error) {
	if m.runFunc != nil {
		return m.runFunc(ctx, filename, image)
	}
	return "2025_01_01_10_00_00_sync", pipeline.Outcome{Status: models.StatusCompleted, Ticket: &models.TicketData{}}, nil
}

func (m *mockTicketService) Result(ctx context.Context, id string) (*models.TaskRecord, error) {
	if m.resultFunc != nil {
		return m.resultFunc(ctx, id)
	}
	return &models.TaskRecord{ID: id, Status: models.StatusProcessing}, nil
}

func (m *mockTicketService) CalendarPath(ctx context.Context, id string) (string, error) {
	if m.calendarPathFunc != nil {
		return m.calendarPathFunc(ctx, id)
	}
	return "", storage.ErrTaskNotFound
}

func newTestHandler(t *testing.T, service TicketService) *TicketHandler {
	t.Helper()
	return NewTicketHandler(service, 20*1024*1024, zaptest.NewLogger(t))
}

// jpegBytes begins with the JPEG magic so content sniffing accepts it.
func jpegBytes() []byte {
	content := make([]byte, 1024)
	copy(content, []byte{0xFF, 0xD8, 0xFF, 0xE0})
	return content
}

func multipartRequest(t *testing.T, target, filename string, content []byte) *http.Request {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("Failed to create form file: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("Failed to write form file: %v", err)
	}
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, target, body)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	traceID := uuid.New().String()
	ctx := context.WithValue(req.Context(), middleware.TraceIDKey, traceID)
	return req.WithContext(ctx)
}

func TestTicketHandler_Upload_Success(t *testing.T) {
	service := &mockTicketService{}
	handler := newTestHandler(t, service)

	req := multipartRequest(t, "/upload", "boarding pass.jpg", jpegBytes())
	rec := httptest.NewRecorder()

	handler.Upload(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}

	var resp dto.UploadResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.ID == "" {
		t.Error("Expected a task id")
	}
	if resp.Status != string(models.StatusProcessing) {
		t.Errorf("Expected processing status, got %s", resp.Status)
	}
}

func TestTicketHandler_Upload_NonImageRejectedBeforeTaskCreation(t *testing.T) {
	service := &mockTicketService{}
	handler := newTestHandler(t, service)

	req := multipartRequest(t, "/upload", "notes.txt", []byte("just some text, not an image"))
	rec := httptest.NewRecorder()

	handler.Upload(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Expected status 400, got %d", rec.Code)
	}
	if service.submitted {
		t.Error("Expected no task to be created for a non-image upload")
	}
}

func TestTicketHandler_Upload_NoFile(t *testing.T) {
	handler := newTestHandler(t, &mockTicketService{})

	req := httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader(""))
	req.Header.Set("Content-Type", "multipart/form-data")
	rec := httptest.NewRecorder()

	handler.Upload(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rec.Code)
	}
}

func TestTicketHandler_Process_Completed(t *testing.T) {
	ticket := &models.TicketData{
		ID:    "2025_01_01_10_00_00_sync",
		Type:  models.TypeConcert,
		Title: "Arena Show",
	}
	service := &mockTicketService{
		runFunc: func(ctx context.Context, filename string, image []byte) (string, pipeline.Outcome, error) {
			return ticket.ID, pipeline.Outcome{Status: models.StatusCompleted, Ticket: ticket}, nil
		},
	}
	handler := newTestHandler(t, service)

	req := multipartRequest(t, "/process", "stub.jpg", jpegBytes())
	rec := httptest.NewRecorder()

	handler.Process(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}

	var resp dto.ResultResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Status != string(models.StatusCompleted) {
		t.Errorf("Expected completed, got %s", resp.Status)
	}
	if resp.Data == nil || resp.Data.Title != "Arena Show" {
		t.Error("Expected ticket data in response")
	}
	if resp.ICSURL != "/ics/"+ticket.ID {
		t.Errorf("Expected ics_url for completed task, got %q", resp.ICSURL)
	}
}

func TestTicketHandler_Process_FailedOutcomeStillOK(t *testing.T) {
	service := &mockTicketService{
		runFunc: func(ctx context.Context, filename string, image []byte) (string, pipeline.Outcome, error) {
			return "2025_01_01_10_00_00_sync", pipeline.Outcome{
				Status: models.StatusFailed,
				Err:    errors.New("recognition returned malformed output"),
			}, nil
		},
	}
	handler := newTestHandler(t, service)

	req := multipartRequest(t, "/process", "stub.jpg", jpegBytes())
	rec := httptest.NewRecorder()

	handler.Process(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200 for a failed pipeline outcome, got %d", rec.Code)
	}

	var resp dto.ResultResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Status != string(models.StatusFailed) {
		t.Errorf("Expected failed, got %s", resp.Status)
	}
	if resp.Error == "" {
		t.Error("Expected an error message")
	}
	if resp.ICSURL != "" {
		t.Error("Expected no ics_url for a failed task")
	}
}

func TestTicketHandler_Result_NotFound(t *testing.T) {
	service := &mockTicketService{
		resultFunc: func(ctx context.Context, id string) (*models.TaskRecord, error) {
			return nil, storage.ErrTaskNotFound
		},
	}
	handler := newTestHandler(t, service)

	req := httptest.NewRequest(http.MethodGet, "/result/2025_01_01_00_00_00_missing", nil)
	rec := httptest.NewRecorder()

	handler.Result(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", rec.Code)
	}
}

func TestTicketHandler_Result_Completed(t *testing.T) {
	id := "2025_01_01_10_00_00_flight"
	service := &mockTicketService{
		resultFunc: func(ctx context.Context, reqID string) (*models.TaskRecord, error) {
			return &models.TaskRecord{
				ID:     reqID,
				Status: models.StatusCompleted,
				Ticket: &models.TicketData{ID: reqID, Type: models.TypeFlight, Title: "Flight"},
			}, nil
		},
	}
	handler := newTestHandler(t, service)

	req := httptest.NewRequest(http.MethodGet, "/result/"+id, nil)
	rec := httptest.NewRecorder()

	handler.Result(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}

	var resp dto.ResultResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.ICSURL != "/ics/"+id {
		t.Errorf("Expected ics_url, got %q", resp.ICSURL)
	}
	if resp.Data == nil || resp.Data.Type != models.TypeFlight {
		t.Error("Expected flight ticket data")
	}
}

func TestTicketHandler_Result_EmptyID(t *testing.T) {
	handler := newTestHandler(t, &mockTicketService{})

	req := httptest.NewRequest(http.MethodGet, "/result/", nil)
	rec := httptest.NewRecorder()

	handler.Result(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rec.Code)
	}
}

func TestTicketHandler_Calendar_NotFound(t *testing.T) {
	handler := newTestHandler(t, &mockTicketService{})

	req := httptest.NewRequest(http.MethodGet, "/ics/2025_01_01_00_00_00_missing", nil)
	rec := httptest.NewRecorder()

	handler.Calendar(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", rec.Code)
	}
}

func TestTicketHandler_Calendar_ServesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calendar.ics")
	content := "BEGIN:VCALENDAR\r\nEND:VCALENDAR\r\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write calendar fixture: %v", err)
	}

	service := &mockTicketService{
		calendarPathFunc: func(ctx context.Context, id string) (string, error) {
			return path, nil
		},
	}
	handler := newTestHandler(t, service)

	req := httptest.NewRequest(http.MethodGet, "/ics/2025_01_01_10_00_00_flight", nil)
	rec := httptest.NewRecorder()

	handler.Calendar(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "text/calendar" {
		t.Errorf("Expected text/calendar, got %s", got)
	}
	if rec.Body.String() != content {
		t.Error("Expected calendar bytes in response body")
	}
}

func TestTicketHandler_Root_ServiceInfo(t *testing.T) {
	handler := newTestHandler(t, &mockTicketService{})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()

	handler.Root(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}

	var info struct {
		Service   string            `json:"service"`
		Status    string            `json:"status"`
		Endpoints map[string]string `json:"endpoints"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&info); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if info.Service != "ticket2ics" || info.Status != "running" {
		t.Errorf("Unexpected service info: %+v", info)
	}
	if info.Endpoints["upload"] != "/upload" {
		t.Errorf("Expected endpoint map in service info, got %+v", info.Endpoints)
	}
}

func TestTicketHandler_Root_UnknownPathIs404(t *testing.T) {
	handler := newTestHandler(t, &mockTicketService{})

	req := httptest.NewRequest(http.MethodGet, "/no/such/route", nil)
	rec := httptest.NewRecorder()

	handler.Root(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 for unknown path, got %d", rec.Code)
	}
}

func TestTicketHandler_Health(t *testing.T) {
	handler := newTestHandler(t, &mockTicketService{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	handler.Health(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rec.Code)
	}
}
