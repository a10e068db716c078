package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vta-hub/vta-training-hub/internal/application/command"
	"github.com/vta-hub/vta-training-hub/internal/application/query"
	"github.com/vta-hub/vta-training-hub/internal/domain/request"
	"github.com/vta-hub/vta-training-hub/internal/domain/schedule"
	"github.com/vta-hub/vta-training-hub/internal/domain/shared"
)

// memRequestRepo is an in-memory request store for API tests.
type memRequestRepo struct {
	byID map[shared.RequestID]*request.Request
}

func newMemRequestRepo() *memRequestRepo {
	return &memRequestRepo{byID: make(map[shared.RequestID]*request.Request)}
}

func (r *memRequestRepo) Create(_ context.Context, req *request.Request) error {
	cp := *req
	r.byID[req.ID] = &cp
	return nil
}

func (r *memRequestRepo) GetByID(_ context.Context, id shared.RequestID) (*request.Request, error) {
	req, ok := r.byID[id]
	if !ok {
		return nil, shared.ErrRequestNotFound
	}
	cp := *req
	return &cp, nil
}

func (r *memRequestRepo) Update(_ context.Context, req *request.Request) error {
	cp := *req
	r.byID[req.ID] = &cp
	return nil
}

func (r *memRequestRepo) ListPending(_ context.Context, limit int) ([]request.Request, error) {
	out := make([]request.Request, 0, len(r.byID))
	for _, req := range r.byID {
		if req.Status == shared.RequestPending {
			out = append(out, *req)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func newTestServer(t *testing.T, deps Dependencies) *Server {
	t.Helper()
	cfg := DefaultConfig()
	cfg.RateLimitPerMinute = 0
	return NewServer(cfg, deps)
}

func doJSON(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) JSONResponse {
	t.Helper()
	var resp JSONResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestServer_Health(t *testing.T) {
	srv := newTestServer(t, Dependencies{})

	rec := doJSON(t, srv, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decodeResponse(t, rec).Success)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestServer_UnknownEndpoint(t *testing.T) {
	srv := newTestServer(t, Dependencies{})

	rec := doJSON(t, srv, http.MethodGet, "/api/v1/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_UnconfiguredHandler(t *testing.T) {
	srv := newTestServer(t, Dependencies{})

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/grades", `{}`)
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "not_implemented", resp.Error.Code)
}

func TestServer_SubmitAndListRequests(t *testing.T) {
	repo := newMemRequestRepo()
	srv := newTestServer(t, Dependencies{
		SubmitRequest:   command.NewSubmitRequestHandler(repo, nil),
		PendingRequests: query.NewPendingRequestsHandler(repo),
	})

	body := `{
		"kind": "create",
		"target": "course",
		"payload": {"name": "Initial Avionics Maintenance"},
		"requested_by": "` + uuid.NewString() + `"
	}`
	rec := doJSON(t, srv, http.MethodPost, "/api/v1/requests", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.True(t, decodeResponse(t, rec).Success)

	rec = doJSON(t, srv, http.MethodGet, "/api/v1/requests/pending", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var listed struct {
		Data query.PendingRequestsResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	assert.Equal(t, 1, listed.Data.Total)
	require.Len(t, listed.Data.Requests, 1)
	assert.Equal(t, "create", listed.Data.Requests[0].Kind)
}

func TestServer_SubmitRequest_InvalidBody(t *testing.T) {
	repo := newMemRequestRepo()
	srv := newTestServer(t, Dependencies{
		SubmitRequest: command.NewSubmitRequestHandler(repo, nil),
	})

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/requests", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Known shape but failing command validation.
	rec = doJSON(t, srv, http.MethodPost, "/api/v1/requests", `{"kind":"noop","target":"course","requested_by":"x"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "invalid_request", resp.Error.Code)
}

func TestServer_RateLimit(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RateLimitPerMinute = 2
	srv := NewServer(cfg, Dependencies{})

	assert.Equal(t, http.StatusOK, doJSON(t, srv, http.MethodGet, "/health", "").Code)
	assert.Equal(t, http.StatusOK, doJSON(t, srv, http.MethodGet, "/health", "").Code)

	rec := doJSON(t, srv, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
}

func TestStatusForError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"not found", shared.ErrCertificateNotFound, http.StatusNotFound, "not_found"},
		{"duplicate", shared.ErrCertificateDuplicate, http.StatusConflict, "already_exists"},
		{"resolved request", shared.ErrRequestNotPending, http.StatusConflict, "invalid_state"},
		{"unapproved course", shared.ErrCourseNotApproved, http.StatusConflict, "invalid_state"},
		{"revoked", shared.ErrCertificateRevoked, http.StatusConflict, "invalid_state"},
		{"score range", shared.ErrScoreOutOfRange, http.StatusBadRequest, "invalid_request"},
		{"unknown", assert.AnError, http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, code := statusForError(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, code)
		})
	}
}

func TestWriteDomainError_ScheduleConflict(t *testing.T) {
	rec := httptest.NewRecorder()
	writeDomainError(rec, &schedule.ValidationError{
		Rule:                  "room_conflict",
		Reason:                "room is occupied in the requested slot",
		ConflictingScheduleID: shared.ScheduleID(uuid.NewString()),
	})

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "schedule_conflict", resp.Error.Code)
	assert.Equal(t, "room_conflict", resp.Error.Details)
}
