// internal/stub/handler.go
package stub

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/signalnine/deskmate/internal/protocol"
)

// recentJobsLimit bounds GET /api/v1/jobs/
const recentJobsLimit = 50

// uploadTypes are the extensions POST /api/v1/files/upload accepts
var uploadTypes = map[string]bool{".pdf": true, ".txt": true}

// Handler serves the agent endpoints backed by a planner and the job store
type Handler struct {
	db              *DB
	planner         *Planner
	maxPayloadBytes int64
	uploadDir       string
	logger          *slog.Logger
}

// NewHandler creates a new handler
func NewHandler(db *DB, planner *Planner, maxPayloadBytes int64, uploadDir string, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		db:              db,
		planner:         planner,
		maxPayloadBytes: maxPayloadBytes,
		uploadDir:       uploadDir,
		logger:          logger,
	}
}

// writeJSON writes v with the given status
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeDetail writes a {"detail": ...} error body
func writeDetail(w http.ResponseWriter, status int, detail any) {
	writeJSON(w, status, map[string]any{"detail": detail})
}

// Health handles GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.db.Ping(); err != nil {
		writeDetail(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// Query handles POST /api/v1/agent/query
func (h *Handler) Query(w http.ResponseWriter, r *http.Request) {
	// Check content length
	if r.ContentLength > h.maxPayloadBytes {
		writeDetail(w, http.StatusRequestEntityTooLarge, "Request Entity Too Large")
		return
	}

	// Read body with limit
	body, err := io.ReadAll(io.LimitReader(r.Body, h.maxPayloadBytes+1))
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "Failed to read body")
		return
	}
	if int64(len(body)) > h.maxPayloadBytes {
		writeDetail(w, http.StatusRequestEntityTooLarge, "Request Entity Too Large")
		return
	}

	var req protocol.QueryRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, []map[string]any{{
			"loc":  []string{"body"},
			"msg":  "Invalid JSON",
			"type": "value_error.jsondecode",
		}})
		return
	}
	if strings.TrimSpace(req.Command) == "" {
		writeDetail(w, http.StatusUnprocessableEntity, []map[string]any{{
			"loc":  []string{"body", "command"},
			"msg":  "field required",
			"type": "value_error.missing",
		}})
		return
	}

	start := time.Now()
	intent := h.planner.Plan(req.Command)
	steps, ok := h.planner.Execute(intent)

	resp := protocol.Response{
		Command:              req.Command,
		Intent:               &intent,
		Steps:                steps,
		Success:              ok,
		RequiresConfirmation: intent.ConfirmationRequired,
		JobID:                uuid.New().String(),
		Status:               "completed",
		FriendlyResponse:     friendlyResponse(steps, ok),
		ExecutionTime:        time.Since(start).Seconds(),
	}

	created := time.Now().UTC()
	resp.CreatedAt = created.Format(time.RFC3339)

	stored, err := json.Marshal(resp)
	if err != nil {
		h.logger.Error("encode response", "error", err)
		writeDetail(w, http.StatusInternalServerError, "Internal error")
		return
	}

	if err := h.db.InsertJob(&JobRecord{
		JobID:     resp.JobID,
		Command:   req.Command,
		Intent:    intent.Intent,
		Status:    resp.Status,
		Result:    string(stored),
		CreatedAt: created,
	}); err != nil {
		h.logger.Error("store job", "job_id", resp.JobID, "error", err)
		writeDetail(w, http.StatusInternalServerError, "Internal error")
		return
	}

	h.logger.Info("command processed", "job_id", resp.JobID, "intent", intent.Intent, "success", ok)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(stored)
}

// Intent handles GET /api/v1/agent/intent/{command}
func (h *Handler) Intent(w http.ResponseWriter, r *http.Request) {
	command := r.PathValue("command")
	if strings.TrimSpace(command) == "" {
		writeDetail(w, http.StatusNotFound, "Not Found")
		return
	}
	writeJSON(w, http.StatusOK, h.planner.Plan(command))
}

// Jobs handles GET /api/v1/jobs/
func (h *Handler) Jobs(w http.ResponseWriter, r *http.Request) {
	records, err := h.db.RecentJobs(recentJobsLimit)
	if err != nil {
		h.logger.Error("list jobs", "error", err)
		writeDetail(w, http.StatusInternalServerError, "Internal error")
		return
	}

	jobs := make([]protocol.JobSummary, 0, len(records))
	for _, rec := range records {
		jobs = append(jobs, protocol.JobSummary{
			JobID:     rec.JobID,
			Command:   rec.Command,
			Status:    rec.Status,
			CreatedAt: rec.CreatedAt.Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, jobs)
}

// Job handles GET /api/v1/jobs/{id}
func (h *Handler) Job(w http.ResponseWriter, r *http.Request) {
	rec, err := h.db.GetJob(r.PathValue("id"))
	if errors.Is(err, ErrJobNotFound) {
		writeDetail(w, http.StatusNotFound, "Job not found")
		return
	}
	if err != nil {
		h.logger.Error("get job", "error", err)
		writeDetail(w, http.StatusInternalServerError, "Internal error")
		return
	}

	writeJSON(w, http.StatusOK, protocol.Job{
		JobID:     rec.JobID,
		Status:    rec.Status,
		Result:    rec.Result,
		CreatedAt: rec.CreatedAt.Format(time.RFC3339),
	})
}

// Upload handles POST /api/v1/files/upload
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxPayloadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeDetail(w, http.StatusRequestEntityTooLarge, "Request Entity Too Large")
			return
		}
		writeDetail(w, http.StatusUnprocessableEntity, []map[string]any{{
			"loc":  []string{"body", "file"},
			"msg":  "field required",
			"type": "value_error.missing",
		}})
		return
	}
	defer file.Close()

	name := filepath.Base(header.Filename)
	ext := strings.ToLower(filepath.Ext(name))
	if !uploadTypes[ext] {
		writeDetail(w, http.StatusBadRequest, "File type not supported. Only PDF and TXT files are supported.")
		return
	}

	path := filepath.Join(h.uploadDir, name)
	dst, err := os.Create(path)
	if err != nil {
		h.logger.Error("create upload", "path", path, "error", err)
		writeDetail(w, http.StatusInternalServerError, "Internal error")
		return
	}
	_, err = io.Copy(dst, file)
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeDetail(w, http.StatusRequestEntityTooLarge, "Request Entity Too Large")
			return
		}
		h.logger.Error("write upload", "path", path, "error", err)
		writeDetail(w, http.StatusInternalServerError, "Internal error")
		return
	}

	if err := h.db.InsertFile(&FileRecord{Filename: name, FilePath: path, FileType: ext}); err != nil {
		h.logger.Error("store file", "path", path, "error", err)
		writeDetail(w, http.StatusInternalServerError, "Internal error")
		return
	}

	h.logger.Info("file uploaded", "filename", name, "bytes", header.Size)
	writeJSON(w, http.StatusOK, protocol.FileInfo{
		Filename: name,
		FilePath: path,
		Message:  "File uploaded successfully",
	})
}

// Files handles GET /api/v1/files/list
func (h *Handler) Files(w http.ResponseWriter, r *http.Request) {
	records, err := h.db.Files()
	if err != nil {
		h.logger.Error("list files", "error", err)
		writeDetail(w, http.StatusInternalServerError, "Internal error")
		return
	}

	files := make([]protocol.FileInfo, 0, len(records))
	for _, rec := range records {
		files = append(files, protocol.FileInfo{
			Filename:   rec.Filename,
			FilePath:   rec.FilePath,
			UploadedAt: rec.UploadedAt.Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, files)
}

func friendlyResponse(steps []protocol.Step, ok bool) string {
	var msgs []string
	for _, s := range steps {
		var out struct {
			FriendlyMessage string `json:"friendly_message"`
			Message         string `json:"message"`
		}
		if json.Unmarshal(s.Result.Output, &out) != nil {
			continue
		}
		if out.FriendlyMessage != "" {
			msgs = append(msgs, out.FriendlyMessage)
		} else if out.Message != "" {
			msgs = append(msgs, out.Message)
		}
	}
	switch {
	case len(msgs) > 0:
		return strings.Join(msgs, "\n")
	case ok:
		return "Command executed successfully."
	default:
		return "Command failed to execute completely."
	}
}
