// internal/protocol/types.go
package protocol

import (
	"encoding/json"
)

// QueryRequest is sent from the client to the agent service
type QueryRequest struct {
	Command string `json:"command"`
}

// Intent is the agent's reading of a command
type Intent struct {
	Intent                string           `json:"intent"`
	Target                string           `json:"target,omitempty"`
	Steps                 []map[string]any `json:"steps,omitempty"`
	ConfirmationRequired  bool             `json:"confirmation_required"`
	Assumptions           []string         `json:"assumptions,omitempty"`
	ClarificationQuestion string           `json:"clarification_question,omitempty"`
}

// Outcome is the execution result of a single step.
// Output is left raw; its shape depends on the step's action.
type Outcome struct {
	Success bool            `json:"success"`
	Output  json.RawMessage `json:"output,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// Step is one executed action within a response
type Step struct {
	Action string         `json:"action"`
	Params map[string]any `json:"params,omitempty"`
	Result Outcome        `json:"result"`
}

// Response is the decoded result of one submitted command
type Response struct {
	Intent               *Intent `json:"intent,omitempty"`
	Success              bool    `json:"success"`
	Steps                []Step  `json:"results"`
	Command              string  `json:"command,omitempty"`
	JobID                string  `json:"job_id,omitempty"`
	Status               string  `json:"status,omitempty"`
	CreatedAt            string  `json:"created_at,omitempty"`
	FriendlyResponse     string  `json:"friendly_response,omitempty"`
	ExecutionTime        float64 `json:"execution_time,omitempty"`
	RequiresConfirmation bool    `json:"requires_confirmation,omitempty"`
}

// UnmarshalJSON accepts "steps" as an alias for "results".
func (r *Response) UnmarshalJSON(data []byte) error {
	type plain Response
	var aux struct {
		plain
		AltSteps []Step `json:"steps"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*r = Response(aux.plain)
	if r.Steps == nil && aux.AltSteps != nil {
		r.Steps = aux.AltSteps
	}
	return nil
}

// ErrorBody is the structured error payload returned with non-2xx statuses
type ErrorBody struct {
	Detail json.RawMessage `json:"detail,omitempty"`
}

// JobSummary is one row of GET /api/v1/jobs/
type JobSummary struct {
	JobID     string `json:"job_id"`
	Command   string `json:"command"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
}

// Job is returned by GET /api/v1/jobs/{id}. Result holds the stored
// response as JSON text.
type Job struct {
	JobID     string `json:"job_id"`
	Status    string `json:"status"`
	Result    string `json:"result,omitempty"`
	CreatedAt string `json:"created_at"`
}

// FileInfo describes an uploaded file
type FileInfo struct {
	Filename   string `json:"filename"`
	FilePath   string `json:"file_path"`
	UploadedAt string `json:"uploaded_at,omitempty"`
	Message    string `json:"message,omitempty"`
}

// DecodeResult parses the stored response. It returns nil when the job has
// no result or the result is not a JSON response.
func (j *Job) DecodeResult() *Response {
	if j.Result == "" {
		return nil
	}
	var resp Response
	if err := json.Unmarshal([]byte(j.Result), &resp); err != nil {
		return nil
	}
	return &resp
}
