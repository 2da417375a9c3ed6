// internal/agent/errors.go
package agent

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"syscall"

	"github.com/signalnine/deskmate/internal/protocol"
)

// Kind classifies a failed call
type Kind int

const (
	// KindUnknown is any failure that is neither of the others
	KindUnknown Kind = iota
	// KindConnectivity means no response was received at all
	KindConnectivity
	// KindService means the service answered with a non-success status
	KindService
)

func (k Kind) String() string {
	switch k {
	case KindConnectivity:
		return "connectivity"
	case KindService:
		return "service"
	default:
		return "unknown"
	}
}

// Error is the only error type returned by Client calls.
// Message is suitable for showing to the user as is.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the classification of err, KindUnknown for foreign errors
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindUnknown
}

// IsConnectivity reports whether err means the service could not be reached
func IsConnectivity(err error) bool {
	return KindOf(err) == KindConnectivity
}

const noResponseMessage = "No response from server. Check if backend is running."

func cannotConnectMessage(baseURL string) string {
	return fmt.Sprintf("Cannot connect to DeskMate backend. Make sure the server is running on %s", baseURL)
}

// classifyTransport turns an error from http.Client.Do into an *Error.
func classifyTransport(baseURL string, err error) *Error {
	// Caller gave up; the service may be perfectly healthy.
	if errors.Is(err, context.Canceled) {
		return &Error{Kind: KindUnknown, Message: err.Error(), Err: err}
	}

	if errors.Is(err, syscall.ECONNREFUSED) {
		return &Error{Kind: KindConnectivity, Message: cannotConnectMessage(baseURL), Err: err}
	}

	if isNoResponse(err) {
		return &Error{Kind: KindConnectivity, Message: noResponseMessage, Err: err}
	}

	return &Error{Kind: KindUnknown, Message: err.Error(), Err: err}
}

func isNoResponse(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	// Server closed the connection before answering
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, syscall.ECONNRESET) {
		return true
	}

	return isHandshakeFailure(err)
}

// isHandshakeFailure reports a TLS failure before any HTTP exchange
func isHandshakeFailure(err error) bool {
	if errors.Is(err, http.ErrSchemeMismatch) {
		return true
	}

	var verifyErr *tls.CertificateVerificationError
	var recordErr tls.RecordHeaderError
	var alertErr tls.AlertError
	var authorityErr x509.UnknownAuthorityError
	var hostErr x509.HostnameError
	var invalidErr x509.CertificateInvalidError
	return errors.As(err, &verifyErr) ||
		errors.As(err, &recordErr) ||
		errors.As(err, &alertErr) ||
		errors.As(err, &authorityErr) ||
		errors.As(err, &hostErr) ||
		errors.As(err, &invalidErr)
}

// serviceError builds a KindService error from a non-2xx reply body.
func serviceError(status int, body []byte) *Error {
	msg := detailMessage(body)
	if msg == "" {
		msg = fmt.Sprintf("Server error: %d", status)
	}
	return &Error{Kind: KindService, Status: status, Message: msg}
}

// detailMessage extracts the "detail" field. String details are used as is;
// structured ones (validation errors) are shown as compact JSON.
func detailMessage(body []byte) string {
	var eb protocol.ErrorBody
	if err := json.Unmarshal(body, &eb); err != nil || len(eb.Detail) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(eb.Detail, &s); err == nil {
		return strings.TrimSpace(s)
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, eb.Detail); err != nil || buf.String() == "null" {
		return ""
	}
	return buf.String()
}
