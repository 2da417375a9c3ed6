package interpret

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Text is an optional output field. Absent, null and empty values all read
// as "". Non-string scalars keep their JSON text, so a backend that sends a
// number where a string is expected still decodes.
type Text string

func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0, bytes.Equal(data, []byte("null")):
		*t = ""
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Text(s)
	default:
		var buf bytes.Buffer
		if err := json.Compact(&buf, data); err != nil {
			return err
		}
		*t = Text(buf.String())
	}
	return nil
}

// Number is an optional numeric field. Strings holding a number are accepted.
type Number struct {
	Value float64
	Valid bool
}

func (n *Number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*n = Number{}
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			*n = Number{}
			return nil
		}
		*n = Number{Value: v, Valid: true}
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		*n = Number{}
		return nil
	}
	*n = Number{Value: v, Valid: true}
	return nil
}

// String formats the number without a trailing ".0" for integral values.
func (n Number) String() string {
	if !n.Valid {
		return ""
	}
	return strconv.FormatFloat(n.Value, 'f', -1, 64)
}

// firstOf returns the first non-empty value.
func firstOf(values ...Text) string {
	for _, v := range values {
		if v != "" {
			return string(v)
		}
	}
	return ""
}

// or returns s, or fallback when s is empty.
func or(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

// messagePayload covers the actions whose outcome is a single sentence.
type messagePayload struct {
	FriendlyMessage Text `json:"friendly_message"`
	Message         Text `json:"message"`
	URL             Text `json:"url"`
	AppName         Text `json:"app_name"`
	Path            Text `json:"path"`
	Output          Text `json:"output"`
}

type answerPayload struct {
	Answer     Text `json:"answer"`
	Question   Text `json:"question"`
	AnswerType Text `json:"answer_type"`
}

type emailPayload struct {
	Subject       Text `json:"subject"`
	Recipient     Text `json:"recipient"`
	EmailDraft    Text `json:"email_draft"`
	Body          Text `json:"body"`
	GeneratedWith Text `json:"generated_with"`
}

type filePayload struct {
	Content   Text   `json:"content"`
	Error     Text   `json:"error"`
	FileType  Text   `json:"file_type"`
	PageCount Number `json:"page_count"`
}

type shellPayload struct {
	FriendlyMessage Text   `json:"friendly_message"`
	Output          Text   `json:"output"`
	Error           Text   `json:"error"`
	ReturnCode      Number `json:"return_code"`
}

type summaryPayload struct {
	Summary        Text   `json:"summary"`
	OriginalLength Number `json:"original_length"`
	SummaryLength  Number `json:"summary_length"`
}

type searchMatch struct {
	Name Text `json:"name"`
	Path Text `json:"path"`
	Type Text `json:"type"`
}

type searchPayload struct {
	FriendlyMessage Text          `json:"friendly_message"`
	Message         Text          `json:"message"`
	Query           Text          `json:"query"`
	Results         matchList `json:"results"`
	ResultCount     Number    `json:"result_count"`
}

// matchList keeps the well-formed entries of a results array. Anything that
// is not an array reads as no results.
type matchList []searchMatch

func (l *matchList) UnmarshalJSON(data []byte) error {
	*l = nil
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil
	}
	for _, item := range items {
		if !isObject(item) {
			continue
		}
		var m searchMatch
		if err := json.Unmarshal(item, &m); err == nil {
			*l = append(*l, m)
		}
	}
	return nil
}

type cpuPayload struct {
	Cores           Number `json:"cores"`
	LogicalCores    Number `json:"logical_cores"`
	FrequencyMHz    Number `json:"frequency_mhz"`
	MaxFrequencyMHz Number `json:"max_frequency_mhz"`
	UsagePercent    Number `json:"usage_percent"`
}

type ramPayload struct {
	TotalGB     Number `json:"total_gb"`
	UsedGB      Number `json:"used_gb"`
	AvailableGB Number `json:"available_gb"`
	Percent     Number `json:"percent"`
}

type storagePayload struct {
	Drive   Text   `json:"drive"`
	TotalGB Number `json:"total_gb"`
	UsedGB  Number `json:"used_gb"`
	FreeGB  Number `json:"free_gb"`
	Percent Number `json:"percent"`
}

type systemPayload struct {
	System          Text `json:"system"`
	Release         Text `json:"release"`
	Architecture    Text `json:"architecture"`
	Machine         Text `json:"machine"`
	Processor       Text `json:"processor"`
	PythonVersion   Text `json:"python_version"`
	RuntimeVersion  Text `json:"runtime_version"`
	Note            Text `json:"note"`
	FriendlyMessage Text `json:"friendly_message"`

	// Cards decode on their own so a malformed one drops only itself.
	CPU     jsonObject `json:"cpu"`
	RAM     jsonObject `json:"ram"`
	Storage jsonObject `json:"storage"`
}

// decode fills v from raw. Anything that does not decode leaves v at its
// zero value, which every handler treats as "all fields absent".
func decode[T any](raw json.RawMessage) T {
	var v T
	if len(raw) == 0 {
		return v
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		var zero T
		return zero
	}
	return v
}

// isObject reports whether raw is a JSON object.
func isObject(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '{'
}

// dump renders raw as indented JSON for the default arm.
func dump(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "{}"
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return string(raw)
	}
	return buf.String()
}
