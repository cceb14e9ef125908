package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/agrikit/rsbsa-validator/internal/core"
	"github.com/agrikit/rsbsa-validator/internal/logging"
	"github.com/agrikit/rsbsa-validator/internal/mailer"
	"github.com/agrikit/rsbsa-validator/internal/spreadsheet"
)

// handleHealth reports liveness and matching capacity.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"matching": s.service.LimiterStatus(),
	})
}

// handleCreateRun ingests an uploaded spreadsheet and opens a new run.
func (s *Server) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	logger := logging.FromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Security.MaxUploadSize)
	if err := r.ParseMultipartForm(s.cfg.Security.MaxUploadSize); err != nil {
		s.respondError(w, r, fmt.Errorf("file too large or malformed form: %w", err), http.StatusRequestEntityTooLarge)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, r, errors.New("no file provided"), http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		s.respondError(w, r, fmt.Errorf("read upload: %w", err), http.StatusBadRequest)
		return
	}

	headers, rows, err := spreadsheet.Parse(data)
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}

	info, err := s.service.CreateRun(header.Filename, headers, rows)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	logger.Info("upload accepted", "run_id", info.ID, "file", header.Filename, "rows", info.TotalRows)
	writeJSON(w, http.StatusCreated, info)
}

// handleListRuns returns persisted run summaries, newest first.
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.respondError(w, r, fmt.Errorf("invalid limit %q", v), http.StatusBadRequest)
			return
		}
		limit = n
	}

	summaries, err := s.service.ListRuns(r.Context(), limit)
	if err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	if summaries == nil {
		summaries = []core.RunSummary{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": summaries})
}

// handleGetRun returns one run's snapshot.
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	info, err := s.service.GetRun(chi.URLParam(r, "runID"))
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// handleStartMatch launches registry matching for a run.
func (s *Server) handleStartMatch(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")
	if err := s.service.StartMatch(r.Context(), runID); err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{
		"runId": runID,
		"state": string(core.MatchRunning),
	})
}

// handleMatchStatus reports the current state and cumulative result of a
// matching run. Callable while matching is still in progress.
func (s *Server) handleMatchStatus(w http.ResponseWriter, r *http.Request) {
	state, result, err := s.service.MatchStatus(chi.URLParam(r, "runID"))
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	resp := map[string]any{"state": state}
	if result != nil {
		resp["matched"] = result.Matched
		resp["unmatched"] = result.Unmatched
		resp["totalMatched"] = result.TotalMatched()
		resp["totalUnmatched"] = result.TotalUnmatched()
		resp["total"] = result.Total()
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleCancelMatch requests cancellation of an in-flight matching run.
func (s *Server) handleCancelMatch(w http.ResponseWriter, r *http.Request) {
	if err := s.service.CancelMatch(chi.URLParam(r, "runID")); err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"state": string(core.MatchCancelled)})
}

// validateRequest is the body of POST /api/runs/{runID}/validate.
type validateRequest struct {
	AutoFix     core.AutoFixOptions `json:"autoFix"`
	MatchedOnly bool                `json:"matchedOnly"`
}

// handleValidate runs the validation engine over a run's rows.
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}

	result, err := s.service.Validate(chi.URLParam(r, "runID"), req.AutoFix, req.MatchedOnly)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"validRows":    result.ValidRows,
		"invalidRows":  result.InvalidRows,
		"errors":       result.Errors,
		"warnings":     result.Warnings,
		"totalValid":   len(result.ValidRows),
		"totalInvalid": len(result.InvalidRows),
	})
}

// applyFixesRequest is the body of POST /api/runs/{runID}/fixes.
type applyFixesRequest struct {
	IncludeBarangayCertificate bool `json:"includeBarangayCertificate"`
}

// handleApplyFixes rewrites the run's table with corrected values.
func (s *Server) handleApplyFixes(w http.ResponseWriter, r *http.Request) {
	var req applyFixesRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}

	info, err := s.service.ApplyFixes(chi.URLParam(r, "runID"), req.IncludeBarangayCertificate)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// handleDuplicates runs duplicate detection over a run's records.
func (s *Server) handleDuplicates(w http.ResponseWriter, r *http.Request) {
	result, err := s.service.DetectDuplicates(chi.URLParam(r, "runID"))
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"validRows":    result.ValidRows,
		"invalidRows":  result.InvalidRows,
		"totalValid":   len(result.ValidRows),
		"totalFlagged": len(result.InvalidRows),
	})
}

// handleExport streams an export partition as a CSV download.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	kind, ok := core.ParseExportKind(chi.URLParam(r, "kind"))
	if !ok {
		s.respondError(w, r, fmt.Errorf("unknown export kind %q", chi.URLParam(r, "kind")), http.StatusBadRequest)
		return
	}

	runID := chi.URLParam(r, "runID")
	table, err := s.service.Export(r.Context(), runID, kind)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	payload, err := spreadsheet.Write(table.Headers, table.Rows)
	if err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}

	filename := fmt.Sprintf("%s_%s_%s.csv", runID, kind, time.Now().Format("2006-01-02"))
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Write(payload)
}

// emailRequest is the body of POST /api/runs/{runID}/email.
type emailRequest struct {
	Recipient   string `json:"recipient"`
	Subject     string `json:"subject"`
	Message     string `json:"message"`
	SendValid   bool   `json:"sendValid"`
	SendInvalid bool   `json:"sendInvalid"`
}

// handleEmail sends the selected export partitions as attachments.
func (s *Server) handleEmail(w http.ResponseWriter, r *http.Request) {
	if s.mailer == nil {
		s.respondError(w, r, errors.New("smtp delivery is not configured"), http.StatusServiceUnavailable)
		return
	}

	var req emailRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}
	if req.Recipient == "" || !strings.Contains(req.Recipient, "@") {
		s.respondError(w, r, fmt.Errorf("invalid recipient %q", req.Recipient), http.StatusBadRequest)
		return
	}
	if !req.SendValid && !req.SendInvalid {
		s.respondError(w, r, mailer.ErrNoAttachments, http.StatusBadRequest)
		return
	}

	runID := chi.URLParam(r, "runID")
	currentDate := time.Now().Format("2006-01-02")

	var attachments []mailer.Attachment
	partitions := []struct {
		enabled bool
		kind    core.ExportKind
	}{
		{req.SendValid, core.ExportValid},
		{req.SendInvalid, core.ExportInvalid},
	}
	for _, p := range partitions {
		if !p.enabled {
			continue
		}
		table, err := s.service.Export(r.Context(), runID, p.kind)
		if err != nil {
			s.respondError(w, r, err, statusFor(err))
			return
		}
		if len(table.Rows) == 0 {
			continue
		}
		payload, err := spreadsheet.Write(table.Headers, table.Rows)
		if err != nil {
			s.respondError(w, r, err, http.StatusInternalServerError)
			return
		}
		attachments = append(attachments, mailer.Attachment{
			Name: fmt.Sprintf("%s_%s_%s.csv", runID, p.kind, currentDate),
			Data: payload,
		})
	}

	if len(attachments) == 0 {
		s.respondError(w, r, mailer.ErrNoAttachments, http.StatusBadRequest)
		return
	}

	err := s.mailer.Send(r.Context(), mailer.Message{
		Recipient:   req.Recipient,
		Subject:     req.Subject,
		Body:        req.Message,
		Attachments: attachments,
	})
	if err != nil {
		s.respondError(w, r, err, http.StatusBadGateway)
		return
	}

	logging.FromContext(r.Context()).Info("validation report sent",
		"run_id", runID,
		"recipient", req.Recipient,
		"attachments", len(attachments),
	)
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// handleTotals sums the numeric columns of a run's table.
func (s *Server) handleTotals(w http.ResponseWriter, r *http.Request) {
	totals, err := s.service.ColumnTotals(chi.URLParam(r, "runID"))
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"totals": totals})
}

// decodeJSON reads a JSON request body. An empty body decodes into the
// zero value so optional bodies stay optional.
func decodeJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(v)
	if err == io.EOF {
		return nil
	}
	if err != nil {
		return fmt.Errorf("parse request body: %w", err)
	}
	return nil
}
