package web

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/agrikit/rsbsa-validator/internal/config"
	"github.com/agrikit/rsbsa-validator/internal/core"
	"github.com/agrikit/rsbsa-validator/internal/mailer"
)

// fakeMatcher matches every record so handler tests can exercise the
// full run lifecycle without a registry.
type fakeMatcher struct{}

func (fakeMatcher) Run(ctx context.Context, records []core.Record, onBatch core.MatchProgressFunc) (*core.MatchRunResult, error) {
	result := &core.MatchRunResult{}
	for _, rec := range records {
		result.Matched = append(result.Matched, core.MatchResult{
			Record:     rec,
			Status:     core.MatchMatched,
			Identifier: rec.Fields[core.FieldIdentifier],
		})
	}
	return result, nil
}

func (fakeMatcher) CleanedRecords(ctx context.Context, ids []string) (map[string]core.StandardizedRow, error) {
	return map[string]core.StandardizedRow{}, nil
}

// fakeMailer records the last message instead of talking SMTP.
type fakeMailer struct {
	sent []mailer.Message
	err  error
}

func (m *fakeMailer) Send(_ context.Context, msg mailer.Message) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Server.RequestTimeout = time.Minute
	cfg.Security.MaxUploadSize = 1 << 20
	return cfg
}

func newTestServer(t *testing.T, mail mailer.Mailer) *Server {
	t.Helper()
	service := core.NewService(nil, fakeMatcher{}, core.IdentifierStandard, nil)
	return NewServer(service, mail, testConfig())
}

const sampleCSV = "RSBSASYSTEMGENERATEDNUMBER,FIRSTNAME,LASTNAME,SEX,BIRTHDATE\n" +
	"12-34-56-789-123451,JUAN,DELA CRUZ,MALE,1990-06-15\n" +
	"12-34-56-789-123452,,SANTOS,OTHER,1985-01-20\n"

// uploadCSV posts a multipart upload and returns the created run ID.
func uploadCSV(t *testing.T, srv *Server, csv string) string {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "upload.csv")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	part.Write([]byte(csv))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/runs", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("upload status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var info core.RunInfo
	if err := json.Unmarshal(rec.Body.Bytes(), &info); err != nil {
		t.Fatalf("decode run info: %v", err)
	}
	return info.ID
}

func doJSON(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := doJSON(t, srv, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp map[string]any
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp["status"] != "ok" {
		t.Errorf("status field = %v", resp["status"])
	}
	if _, ok := resp["matching"]; !ok {
		t.Error("matching capacity missing from health response")
	}
}

func TestCreateRun(t *testing.T) {
	srv := newTestServer(t, nil)
	runID := uploadCSV(t, srv, sampleCSV)
	if runID == "" {
		t.Fatal("no run ID returned")
	}

	rec := doJSON(t, srv, http.MethodGet, "/api/runs/"+runID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get run status = %d", rec.Code)
	}
	var info core.RunInfo
	json.Unmarshal(rec.Body.Bytes(), &info)
	if info.TotalRows != 2 || info.MatchState != core.MatchIdle {
		t.Errorf("info = %+v", info)
	}
}

func TestCreateRunNoFile(t *testing.T) {
	srv := newTestServer(t, nil)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.WriteField("note", "no file here")
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/runs", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp ErrorResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Code != "FILE004" {
		t.Errorf("code = %s, want FILE004", resp.Code)
	}
}

func TestCreateRunMissingColumns(t *testing.T) {
	srv := newTestServer(t, nil)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, _ := mw.CreateFormFile("file", "bad.csv")
	part.Write([]byte("FIRSTNAME,SEX\nJUAN,MALE\n"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/runs", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp ErrorResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Code != "VAL001" {
		t.Errorf("code = %s, want VAL001", resp.Code)
	}
}

func TestGetRunNotFound(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := doJSON(t, srv, http.MethodGet, "/api/runs/nope", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp ErrorResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Code != "REG005" {
		t.Errorf("code = %s, want REG005", resp.Code)
	}
}

func TestValidateEndpoint(t *testing.T) {
	srv := newTestServer(t, nil)
	runID := uploadCSV(t, srv, sampleCSV)

	rec := doJSON(t, srv, http.MethodPost, "/api/runs/"+runID+"/validate", `{"autoFix":{}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		TotalValid   int `json:"totalValid"`
		TotalInvalid int `json:"totalInvalid"`
	}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.TotalValid != 1 || resp.TotalInvalid != 1 {
		t.Errorf("valid/invalid = %d/%d, want 1/1", resp.TotalValid, resp.TotalInvalid)
	}
}

func TestValidateEmptyBody(t *testing.T) {
	srv := newTestServer(t, nil)
	runID := uploadCSV(t, srv, sampleCSV)

	// The body is optional; defaults apply.
	rec := doJSON(t, srv, http.MethodPost, "/api/runs/"+runID+"/validate", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestMatchLifecycle(t *testing.T) {
	srv := newTestServer(t, nil)
	runID := uploadCSV(t, srv, sampleCSV)

	rec := doJSON(t, srv, http.MethodPost, "/api/runs/"+runID+"/match", "")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("start status = %d, body = %s", rec.Code, rec.Body.String())
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		rec = doJSON(t, srv, http.MethodGet, "/api/runs/"+runID+"/match", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("status status = %d", rec.Code)
		}
		var resp struct {
			State        core.MatchState `json:"state"`
			TotalMatched int             `json:"totalMatched"`
			Total        int             `json:"total"`
		}
		json.Unmarshal(rec.Body.Bytes(), &resp)
		if resp.State == core.MatchCompleted {
			if resp.TotalMatched != 2 || resp.Total != 2 {
				t.Errorf("matched/total = %d/%d, want 2/2", resp.TotalMatched, resp.Total)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("matching never completed, state = %s", resp.State)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestCancelWithoutMatch(t *testing.T) {
	srv := newTestServer(t, nil)
	runID := uploadCSV(t, srv, sampleCSV)

	rec := doJSON(t, srv, http.MethodPost, "/api/runs/"+runID+"/match/cancel", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestExportEndpoint(t *testing.T) {
	srv := newTestServer(t, nil)
	runID := uploadCSV(t, srv, sampleCSV)

	doJSON(t, srv, http.MethodPost, "/api/runs/"+runID+"/validate", "")

	rec := doJSON(t, srv, http.MethodGet, "/api/runs/"+runID+"/export/valid", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/csv" {
		t.Errorf("Content-Type = %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, runID) || !strings.Contains(cd, ".csv") {
		t.Errorf("Content-Disposition = %q", cd)
	}
	if !strings.Contains(rec.Body.String(), "ISINVALID") {
		t.Error("export payload missing derived columns")
	}
}

func TestExportBeforeValidation(t *testing.T) {
	srv := newTestServer(t, nil)
	runID := uploadCSV(t, srv, sampleCSV)

	rec := doJSON(t, srv, http.MethodGet, "/api/runs/"+runID+"/export/valid", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	var resp ErrorResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Code != "VAL002" {
		t.Errorf("code = %s, want VAL002", resp.Code)
	}
}

func TestExportUnknownKind(t *testing.T) {
	srv := newTestServer(t, nil)
	runID := uploadCSV(t, srv, sampleCSV)

	rec := doJSON(t, srv, http.MethodGet, "/api/runs/"+runID+"/export/everything", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestDuplicatesEndpoint(t *testing.T) {
	srv := newTestServer(t, nil)
	dupCSV := "RSBSASYSTEMGENERATEDNUMBER,FIRSTNAME,LASTNAME,SEX,BIRTHDATE\n" +
		"12-34-56-789-123451,JUAN,DELA CRUZ,MALE,1990-06-15\n" +
		"12-34-56-789-123451,MARIA,SANTOS,FEMALE,1985-01-20\n"
	runID := uploadCSV(t, srv, dupCSV)

	rec := doJSON(t, srv, http.MethodPost, "/api/runs/"+runID+"/duplicates", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		TotalFlagged int `json:"totalFlagged"`
	}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.TotalFlagged != 2 {
		t.Errorf("totalFlagged = %d, want 2", resp.TotalFlagged)
	}
}

func TestTotalsEndpoint(t *testing.T) {
	srv := newTestServer(t, nil)
	csv := "RSBSASYSTEMGENERATEDNUMBER,FIRSTNAME,LASTNAME,NOOFFARMPARCEL\n" +
		"12-34-56-789-123451,JUAN,DELA CRUZ,2\n" +
		"12-34-56-789-123452,MARIA,SANTOS,3\n"
	runID := uploadCSV(t, srv, csv)

	rec := doJSON(t, srv, http.MethodGet, "/api/runs/"+runID+"/totals", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp struct {
		Totals map[string]float64 `json:"totals"`
	}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Totals["NOOFFARMPARCEL"] != 5 {
		t.Errorf("NOOFFARMPARCEL = %v, want 5", resp.Totals["NOOFFARMPARCEL"])
	}
}

func TestEmailWithoutMailer(t *testing.T) {
	srv := newTestServer(t, nil)
	runID := uploadCSV(t, srv, sampleCSV)

	rec := doJSON(t, srv, http.MethodPost, "/api/runs/"+runID+"/email",
		`{"recipient":"a@b.ph","sendValid":true}`)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestEmailSendsAttachments(t *testing.T) {
	mail := &fakeMailer{}
	srv := newTestServer(t, mail)
	runID := uploadCSV(t, srv, sampleCSV)

	doJSON(t, srv, http.MethodPost, "/api/runs/"+runID+"/validate", "")

	rec := doJSON(t, srv, http.MethodPost, "/api/runs/"+runID+"/email",
		`{"recipient":"reports@agrikit.ph","sendValid":true,"sendInvalid":true}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	if len(mail.sent) != 1 {
		t.Fatalf("messages sent = %d, want 1", len(mail.sent))
	}
	msg := mail.sent[0]
	if msg.Recipient != "reports@agrikit.ph" {
		t.Errorf("recipient = %q", msg.Recipient)
	}
	if len(msg.Attachments) != 2 {
		t.Fatalf("attachments = %d, want 2", len(msg.Attachments))
	}
	for _, att := range msg.Attachments {
		if !strings.Contains(att.Name, runID) || !strings.HasSuffix(att.Name, ".csv") {
			t.Errorf("attachment name = %q", att.Name)
		}
		if len(att.Data) == 0 {
			t.Errorf("attachment %q is empty", att.Name)
		}
	}
}

func TestEmailRejectsBadRecipient(t *testing.T) {
	mail := &fakeMailer{}
	srv := newTestServer(t, mail)
	runID := uploadCSV(t, srv, sampleCSV)

	rec := doJSON(t, srv, http.MethodPost, "/api/runs/"+runID+"/email",
		`{"recipient":"not-an-address","sendValid":true}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestEmailNoPartitionsSelected(t *testing.T) {
	mail := &fakeMailer{}
	srv := newTestServer(t, mail)
	runID := uploadCSV(t, srv, sampleCSV)

	rec := doJSON(t, srv, http.MethodPost, "/api/runs/"+runID+"/email",
		`{"recipient":"a@b.ph"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestRequireAPIKey(t *testing.T) {
	cfg := testConfig()
	cfg.Security.RequireAPIKey = true
	cfg.Security.APIKeys = []string{"valid-key"}
	service := core.NewService(nil, fakeMatcher{}, core.IdentifierStandard, nil)
	srv := NewServer(service, nil, cfg)

	// The health endpoint stays open.
	rec := doJSON(t, srv, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Errorf("healthz status = %d, want 200", rec.Code)
	}

	rec = doJSON(t, srv, http.MethodGet, "/api/runs", "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status without key = %d, want 401", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/runs", nil)
	req.Header.Set("X-Api-Key", "valid-key")
	recorder := httptest.NewRecorder()
	srv.Router().ServeHTTP(recorder, req)
	if recorder.Code != http.StatusOK {
		t.Errorf("status with key = %d, want 200", recorder.Code)
	}
}

func TestSecurityHeaders(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := doJSON(t, srv, http.MethodGet, "/healthz", "")
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("nosniff header missing")
	}
	if rec.Header().Get("X-Frame-Options") != "DENY" {
		t.Error("frame options header missing")
	}
}

func TestRateLimiterAllow(t *testing.T) {
	rl := newRateLimiter(2, time.Minute)

	if !rl.allow("1.2.3.4") || !rl.allow("1.2.3.4") {
		t.Fatal("first two requests denied")
	}
	if rl.allow("1.2.3.4") {
		t.Error("third request allowed past the limit")
	}
	// Other IPs have their own bucket.
	if !rl.allow("5.6.7.8") {
		t.Error("fresh IP denied")
	}
}
