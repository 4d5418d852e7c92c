package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/prosupplyhq/prosupply-backend/internal/authz"
	"github.com/prosupplyhq/prosupply-backend/internal/importer"
	"github.com/prosupplyhq/prosupply-backend/pkg/enums"
	pkgerrors "github.com/prosupplyhq/prosupply-backend/pkg/errors"
)

type stubImportService struct {
	job *importer.ImportJobDTO
	err error
}

func (s stubImportService) Submit(ctx context.Context, actor authz.Actor, input importer.SubmitImportInput) (*importer.ImportJobDTO, error) {
	return s.job, s.err
}

func (s stubImportService) Status(ctx context.Context, actor authz.Actor, jobID uuid.UUID) (*importer.ImportJobDTO, error) {
	return s.job, s.err
}

func TestImportSubmitAccepted(t *testing.T) {
	job := &importer.ImportJobDTO{
		ID:        uuid.New(),
		Status:    enums.ImportJobStatusQueued,
		SourceURL: "https://supplier.example.com/catalog.yaml",
	}
	handler := ImportSubmit(stubImportService{job: job}, nil)

	body := `{"url":"https://supplier.example.com/catalog.yaml"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/imports", bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	req = withActor(req, enums.UserRoleSupplier)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusAccepted {
		t.Fatalf("expected 202 got %d", resp.Code)
	}

	var envelope struct {
		Data importer.ImportJobDTO `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.ID != job.ID {
		t.Fatalf("unexpected job id: %s", envelope.Data.ID)
	}
	if envelope.Data.Status != enums.ImportJobStatusQueued {
		t.Fatalf("unexpected status: %s", envelope.Data.Status)
	}
}

func TestImportSubmitMissingURL(t *testing.T) {
	handler := ImportSubmit(stubImportService{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/imports", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")
	req = withActor(req, enums.UserRoleSupplier)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestImportStatusUnknownJob(t *testing.T) {
	handler := ImportStatus(stubImportService{err: pkgerrors.New(pkgerrors.CodeNotFound, "import job not found")}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/imports/"+uuid.NewString(), nil)
	req = withActor(req, enums.UserRoleSupplier)
	req = withRouteParam(req, "jobID", uuid.NewString())

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}

	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Error.Code != "NOT_FOUND" {
		t.Fatalf("unexpected error code: %s", envelope.Error.Code)
	}
}
