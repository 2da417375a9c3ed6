// internal/stub/handler_test.go
package stub

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/signalnine/deskmate/internal/config"
	"github.com/signalnine/deskmate/internal/protocol"
)

func newTestServer(t *testing.T, maxPayload int64) *Server {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.StubConfig{
		ListenAddr:      "127.0.0.1:0",
		DBPath:          filepath.Join(dir, "test.db"),
		MaxPayloadBytes: maxPayload,
		UploadDir:       filepath.Join(dir, "uploads"),
	}
	srv, err := NewServer(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	t.Cleanup(func() { srv.db.Close() })
	return srv
}

func postQuery(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("POST", "/api/v1/agent/query", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, 1<<20)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("Status = %d, want %d", rec.Code, http.StatusOK)
	}
	if !strings.Contains(rec.Body.String(), "healthy") {
		t.Errorf("Body = %q", rec.Body.String())
	}
}

func TestQueryPayloadLimit(t *testing.T) {
	// 100 byte limit
	srv := newTestServer(t, 100)

	big := `{"command": "` + strings.Repeat("a", 200) + `"}`
	rec := postQuery(t, srv.Handler(), big)

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("Status = %d, want %d", rec.Code, http.StatusRequestEntityTooLarge)
	}
}

func TestQueryValidation(t *testing.T) {
	srv := newTestServer(t, 1<<20)

	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{not json`},
		{"missing command", `{}`},
		{"blank command", `{"command": "   "}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postQuery(t, srv.Handler(), tt.body)
			if rec.Code != http.StatusUnprocessableEntity {
				t.Errorf("Status = %d, want %d", rec.Code, http.StatusUnprocessableEntity)
			}
			var body protocol.ErrorBody
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if len(body.Detail) == 0 || body.Detail[0] != '[' {
				t.Errorf("detail = %s, want a structured list", body.Detail)
			}
		})
	}
}

func TestQueryTimeAndJobHistory(t *testing.T) {
	srv := newTestServer(t, 1<<20)
	h := srv.Handler()

	rec := postQuery(t, h, `{"command": "what time is it"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("Status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp protocol.Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Success || resp.Intent == nil || resp.Intent.Intent != "get_time" {
		t.Fatalf("resp = %+v", resp)
	}
	if len(resp.Steps) != 1 || resp.Steps[0].Action != "get_time" || !resp.Steps[0].Result.Success {
		t.Fatalf("steps = %+v", resp.Steps)
	}
	if resp.JobID == "" || resp.Status != "completed" {
		t.Errorf("job fields = %q %q", resp.JobID, resp.Status)
	}

	// Listed in history
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/jobs/", nil))
	var jobs []protocol.JobSummary
	if err := json.Unmarshal(rec.Body.Bytes(), &jobs); err != nil {
		t.Fatalf("decode jobs: %v", err)
	}
	if len(jobs) != 1 || jobs[0].JobID != resp.JobID || jobs[0].Command != "what time is it" {
		t.Errorf("jobs = %+v", jobs)
	}

	// Fetched by id, with the stored response
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/jobs/"+resp.JobID, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("job Status = %d", rec.Code)
	}
	var job protocol.Job
	if err := json.Unmarshal(rec.Body.Bytes(), &job); err != nil {
		t.Fatalf("decode job: %v", err)
	}
	stored := job.DecodeResult()
	if stored == nil || len(stored.Steps) != 1 || stored.Steps[0].Action != "get_time" {
		t.Errorf("stored result = %+v", stored)
	}
}

func TestJobNotFound(t *testing.T) {
	srv := newTestServer(t, 1<<20)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/jobs/missing", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("Status = %d, want %d", rec.Code, http.StatusNotFound)
	}
	var body protocol.ErrorBody
	json.Unmarshal(rec.Body.Bytes(), &body)
	if string(body.Detail) != `"Job not found"` {
		t.Errorf("detail = %s", body.Detail)
	}
}

func TestIntentPreview(t *testing.T) {
	srv := newTestServer(t, 1<<20)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/agent/intent/system%20info", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("Status = %d", rec.Code)
	}
	var intent protocol.Intent
	if err := json.Unmarshal(rec.Body.Bytes(), &intent); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if intent.Intent != "get_system_info" {
		t.Errorf("Intent = %q, want get_system_info", intent.Intent)
	}

	// Preview does not create jobs
	jobs, _ := srv.db.RecentJobs(10)
	if len(jobs) != 0 {
		t.Errorf("intent preview stored %d jobs", len(jobs))
	}
}

func TestQueryRejectsWrongMethod(t *testing.T) {
	srv := newTestServer(t, 1<<20)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/agent/query", bytes.NewReader(nil)))

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("Status = %d, want %d", rec.Code, http.StatusMethodNotAllowed)
	}
}

func postUpload(t *testing.T, h http.Handler, filename, content string) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	part.Write([]byte(content))
	mw.Close()

	req := httptest.NewRequest("POST", "/api/v1/files/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestUploadAndListFiles(t *testing.T) {
	srv := newTestServer(t, 1<<20)

	rec := postUpload(t, srv.Handler(), "notes.txt", "hello")
	if rec.Code != http.StatusOK {
		t.Fatalf("Status = %d, body %s", rec.Code, rec.Body.String())
	}
	var info protocol.FileInfo
	if err := json.Unmarshal(rec.Body.Bytes(), &info); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if info.Filename != "notes.txt" || info.Message != "File uploaded successfully" {
		t.Errorf("FileInfo = %+v", info)
	}
	data, err := os.ReadFile(info.FilePath)
	if err != nil || string(data) != "hello" {
		t.Errorf("stored file = %q, %v", data, err)
	}

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/files/list", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("list Status = %d", rec.Code)
	}
	var files []protocol.FileInfo
	if err := json.Unmarshal(rec.Body.Bytes(), &files); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(files) != 1 || files[0].Filename != "notes.txt" || files[0].UploadedAt == "" {
		t.Errorf("files = %+v", files)
	}
}

func TestUploadRejects(t *testing.T) {
	srv := newTestServer(t, 1<<20)

	rec := postUpload(t, srv.Handler(), "script.sh", "echo hi")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unsupported type Status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	if !strings.Contains(rec.Body.String(), "Only PDF and TXT") {
		t.Errorf("Body = %q", rec.Body.String())
	}

	// Path components in the name are dropped
	rec = postUpload(t, srv.Handler(), "../../escape.txt", "x")
	if rec.Code != http.StatusOK {
		t.Fatalf("Status = %d", rec.Code)
	}
	var info protocol.FileInfo
	json.Unmarshal(rec.Body.Bytes(), &info)
	if info.Filename != "escape.txt" || filepath.Dir(info.FilePath) != srv.cfg.UploadDir {
		t.Errorf("FileInfo = %+v", info)
	}

	req := httptest.NewRequest("POST", "/api/v1/files/upload", strings.NewReader("not multipart"))
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("missing file Status = %d, want %d", rec.Code, http.StatusUnprocessableEntity)
	}
}
