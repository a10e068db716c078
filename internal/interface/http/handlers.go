// Package http exposes the training hub's commands and queries as a
// REST API.
package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/vta-hub/vta-training-hub/internal/application/command"
	"github.com/vta-hub/vta-training-hub/internal/application/query"
	"github.com/vta-hub/vta-training-hub/internal/domain/request"
)

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH & STATUS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleRoot serves the root endpoint with basic API information.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeJSONError(w, http.StatusNotFound, "not_found", "Unknown endpoint")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "Training Hub API",
		"version": "v1",
		"endpoints": map[string]string{
			"health":       "/health",
			"schedules":    "/api/v1/schedules",
			"grades":       "/api/v1/grades",
			"requests":     "/api/v1/requests",
			"certificates": "/api/v1/certificates/expiring",
		},
	})
}

// handleHealth handles the health check endpoint.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "healthy",
		"uptime": s.Uptime().String(),
	})
}

// handleLive handles the liveness probe endpoint.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// ══════════════════════════════════════════════════════════════════════════════
// COMMAND HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// createScheduleRequest is the body of POST /api/v1/schedules.
type createScheduleRequest struct {
	ClassSubjectID  string    `json:"class_subject_id"`
	InstructorID    string    `json:"instructor_id"`
	Location        string    `json:"location"`
	Room            string    `json:"room"`
	StartDate       time.Time `json:"start_date"`
	EndDate         time.Time `json:"end_date"`
	Days            []int     `json:"days"`
	ClassTime       string    `json:"class_time"`
	DurationMinutes int       `json:"duration_minutes"`
}

// handleCreateSchedule handles POST /api/v1/schedules.
func (s *Server) handleCreateSchedule(w http.ResponseWriter, r *http.Request) {
	if s.deps.CreateSchedule == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Schedule handler not configured")
		return
	}

	var body createScheduleRequest
	if err := decodeBody(w, r, s.config.MaxBodyBytes, &body); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}

	days := make([]time.Weekday, 0, len(body.Days))
	for _, d := range body.Days {
		days = append(days, time.Weekday(d))
	}

	cmd := command.CreateScheduleCommand{
		ClassSubjectID:  body.ClassSubjectID,
		InstructorID:    body.InstructorID,
		Location:        body.Location,
		Room:            body.Room,
		StartDate:       body.StartDate,
		EndDate:         body.EndDate,
		Days:            days,
		ClassTime:       body.ClassTime,
		DurationMinutes: body.DurationMinutes,
		CorrelationID:   getRequestID(r.Context()),
	}
	if err := cmd.Validate(); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	result, err := s.deps.CreateSchedule.Handle(r.Context(), cmd)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"schedule_id": result.ScheduleID,
		"replaced":    result.Replaced,
		"created_at":  result.CreatedAt,
	})
}

// enrollTraineeRequest is the body of POST /api/v1/class-subjects/{id}/trainees.
type enrollTraineeRequest struct {
	TraineeID string `json:"trainee_id"`
}

// handleEnrollTrainee handles POST /api/v1/class-subjects/{id}/trainees.
func (s *Server) handleEnrollTrainee(w http.ResponseWriter, r *http.Request) {
	if s.deps.EnrollTrainee == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Enrollment handler not configured")
		return
	}

	var body enrollTraineeRequest
	if err := decodeBody(w, r, s.config.MaxBodyBytes, &body); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}

	cmd := command.EnrollTraineeCommand{
		ClassSubjectID: r.PathValue("id"),
		TraineeID:      body.TraineeID,
	}
	if err := cmd.Validate(); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	result, err := s.deps.EnrollTrainee.Handle(r.Context(), cmd)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"trainee_assign_id": result.TraineeAssignID,
	})
}

// recordGradeRequest is the body of POST /api/v1/grades. A negative
// final exam or resit means that component was not taken yet.
type recordGradeRequest struct {
	TraineeAssignID string  `json:"trainee_assign_id"`
	TraineeID       string  `json:"trainee_id"`
	SubjectID       string  `json:"subject_id"`
	Participation   float64 `json:"participation"`
	Assignment      float64 `json:"assignment"`
	FinalExam       float64 `json:"final_exam"`
	Resit           float64 `json:"resit"`
	GradedBy        string  `json:"graded_by"`
}

// handleRecordGrade handles POST /api/v1/grades.
func (s *Server) handleRecordGrade(w http.ResponseWriter, r *http.Request) {
	if s.deps.RecordGrade == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Grade handler not configured")
		return
	}

	var body recordGradeRequest
	if err := decodeBody(w, r, s.config.MaxBodyBytes, &body); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}

	cmd := command.RecordGradeCommand{
		TraineeAssignID: body.TraineeAssignID,
		TraineeID:       body.TraineeID,
		SubjectID:       body.SubjectID,
		Participation:   body.Participation,
		Assignment:      body.Assignment,
		FinalExam:       body.FinalExam,
		Resit:           body.Resit,
		GradedBy:        body.GradedBy,
		CorrelationID:   getRequestID(r.Context()),
	}
	if err := cmd.Validate(); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	result, err := s.deps.RecordGrade.Handle(r.Context(), cmd)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

// issueCertificatesRequest is the body of POST /api/v1/courses/{id}/certificates.
type issueCertificatesRequest struct {
	IssuedBy       string   `json:"issued_by"`
	SignOffUserIDs []string `json:"sign_off_user_ids"`
}

// handleIssueCertificates handles POST /api/v1/courses/{id}/certificates.
func (s *Server) handleIssueCertificates(w http.ResponseWriter, r *http.Request) {
	if s.deps.IssueCertificates == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Certificate handler not configured")
		return
	}

	var body issueCertificatesRequest
	if err := decodeBody(w, r, s.config.MaxBodyBytes, &body); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}

	cmd := command.IssueCertificatesCommand{
		CourseID:       r.PathValue("id"),
		IssuedBy:       body.IssuedBy,
		SignOffUserIDs: body.SignOffUserIDs,
		CorrelationID:  getRequestID(r.Context()),
	}
	if err := cmd.Validate(); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	result, err := s.deps.IssueCertificates.Handle(r.Context(), cmd)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// issueDecisionRequest is the body of POST /api/v1/courses/{id}/decision.
type issueDecisionRequest struct {
	Number       string `json:"number"`
	TraineeCount int    `json:"trainee_count"`
	IssuedBy     string `json:"issued_by"`
}

// handleIssueDecision handles POST /api/v1/courses/{id}/decision.
func (s *Server) handleIssueDecision(w http.ResponseWriter, r *http.Request) {
	if s.deps.IssueDecision == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Decision handler not configured")
		return
	}

	var body issueDecisionRequest
	if err := decodeBody(w, r, s.config.MaxBodyBytes, &body); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}

	cmd := command.IssueDecisionCommand{
		CourseID:      r.PathValue("id"),
		Number:        body.Number,
		TraineeCount:  body.TraineeCount,
		IssuedBy:      body.IssuedBy,
		CorrelationID: getRequestID(r.Context()),
	}
	if err := cmd.Validate(); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	result, err := s.deps.IssueDecision.Handle(r.Context(), cmd)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

// submitRequestRequest is the body of POST /api/v1/requests.
type submitRequestRequest struct {
	Kind        string          `json:"kind"`
	Target      string          `json:"target"`
	TargetID    string          `json:"target_id"`
	Payload     json.RawMessage `json:"payload"`
	RequestedBy string          `json:"requested_by"`
}

// handleSubmitRequest handles POST /api/v1/requests.
func (s *Server) handleSubmitRequest(w http.ResponseWriter, r *http.Request) {
	if s.deps.SubmitRequest == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Request handler not configured")
		return
	}

	var body submitRequestRequest
	if err := decodeBody(w, r, s.config.MaxBodyBytes, &body); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}

	cmd := command.SubmitRequestCommand{
		Kind:        request.Kind(body.Kind),
		Target:      request.TargetKind(body.Target),
		TargetID:    body.TargetID,
		Payload:     body.Payload,
		RequestedBy: body.RequestedBy,
	}
	if err := cmd.Validate(); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	created, err := s.deps.SubmitRequest.Handle(r.Context(), cmd)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"request_id":   created.ID,
		"status":       created.Status,
		"requested_at": created.RequestedAt,
	})
}

// reviewRequestRequest is the body of POST /api/v1/requests/{id}/review.
type reviewRequestRequest struct {
	Verdict    string `json:"verdict"`
	Note       string `json:"note"`
	ReviewedBy string `json:"reviewed_by"`
}

// handleReviewRequest handles POST /api/v1/requests/{id}/review.
func (s *Server) handleReviewRequest(w http.ResponseWriter, r *http.Request) {
	if s.deps.ReviewRequest == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Review handler not configured")
		return
	}

	var body reviewRequestRequest
	if err := decodeBody(w, r, s.config.MaxBodyBytes, &body); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}

	cmd := command.ReviewRequestCommand{
		RequestID:     r.PathValue("id"),
		Verdict:       command.ReviewVerdict(body.Verdict),
		Note:          body.Note,
		ReviewedBy:    body.ReviewedBy,
		CorrelationID: getRequestID(r.Context()),
	}
	if err := cmd.Validate(); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	result, err := s.deps.ReviewRequest.Handle(r.Context(), cmd)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"request_id":  result.Request.ID,
		"status":      result.Request.Status,
		"resolved_at": result.Request.ResolvedAt,
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// QUERY HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleRenewalHistory handles GET /api/v1/certificates/{id}/history.
func (s *Server) handleRenewalHistory(w http.ResponseWriter, r *http.Request) {
	if s.deps.RenewalHistory == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "History handler not configured")
		return
	}

	q := query.RenewalHistoryQuery{
		CertificateID: r.PathValue("id"),
		SkipCache:     getQueryParamBool(r, "skip_cache"),
	}
	if err := q.Validate(); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	result, err := s.deps.RenewalHistory.Handle(r.Context(), q)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleExpiringCertificates handles GET /api/v1/certificates/expiring.
func (s *Server) handleExpiringCertificates(w http.ResponseWriter, r *http.Request) {
	if s.deps.ExpiringCertificates == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Expiring handler not configured")
		return
	}

	q := query.ExpiringCertificatesQuery{
		WithinDays: getQueryParamInt(r, "within_days", 0),
		Limit:      getQueryParamInt(r, "limit", 0),
	}
	if err := q.Validate(); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	result, err := s.deps.ExpiringCertificates.Handle(r.Context(), q)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handlePendingRequests handles GET /api/v1/requests/pending.
func (s *Server) handlePendingRequests(w http.ResponseWriter, r *http.Request) {
	if s.deps.PendingRequests == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Pending handler not configured")
		return
	}

	q := query.PendingRequestsQuery{
		Limit: getQueryParamInt(r, "limit", 0),
	}
	if err := q.Validate(); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	result, err := s.deps.PendingRequests.Handle(r.Context(), q)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// ══════════════════════════════════════════════════════════════════════════════
// QUERY PARAM HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// getQueryParamInt extracts an integer query parameter with a default value.
func getQueryParamInt(r *http.Request, key string, defaultValue int) int {
	value := r.URL.Query().Get(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}

// getQueryParamBool extracts a boolean query parameter.
func getQueryParamBool(r *http.Request, key string) bool {
	value := strings.ToLower(r.URL.Query().Get(key))
	return value == "true" || value == "1" || value == "yes"
}
