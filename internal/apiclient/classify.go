package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"regexp"
	"strings"
	"syscall"

	jmespath "github.com/jmespath-community/go-jmespath"
	apperrors "github.com/target/mmk-admin-console/internal/errors"
)

const (
	// MsgSessionExpired is surfaced when the backend rejects an expired token.
	MsgSessionExpired = "Session expired. Please login again."
	// MsgRequestFailed is the generic fallback message.
	MsgRequestFailed = "API request failed"

	messageExpr     = "message || error || data.message || data.error"
	textsExpr       = "[error, message, data.error, data.message]"
	maxPlainMessage = 200
)

// Transport error codes recognized as connectivity failures.
const (
	CodeConnRefused = "ECONNREFUSED"
	CodeNotFound    = "ENOTFOUND"
	CodeTimedOut    = "ETIMEDOUT"
	CodeNetUnreach  = "ENETUNREACH"
)

var (
	expiredTokenPattern = regexp.MustCompile(`(?i)token.*expired|expired.*token|invalid.*claims`)
	connectivityPattern = regexp.MustCompile(`(?i)connection|network|timeout|refused|unavailable`)
)

// Failure is the raw outcome of a failed call, before classification.
type Failure struct {
	// Status is the HTTP status, zero when no response arrived.
	Status int
	// Message is the server-provided message, if any.
	Message string
	// Texts holds every string the body carried in its error and message
	// fields; expiry detection looks at all of them.
	Texts []string
	// Err is the transport error, if any.
	Err error
}

// Classify maps a failure onto the closed set of error kinds.
func Classify(f Failure) *apperrors.AppError {
	if f.Status == http.StatusUnauthorized && f.tokenExpired() {
		return &apperrors.AppError{
			Code:       apperrors.ErrCodeAuthExpired,
			Message:    MsgSessionExpired,
			StatusCode: f.Status,
		}
	}

	if f.Err != nil && f.Status == 0 {
		if errors.Is(f.Err, context.Canceled) {
			return apperrors.Wrap(f.Err, apperrors.ErrCodeUnknown, "request canceled")
		}
		code := TransportCode(f.Err)
		return &apperrors.AppError{
			Code:    apperrors.ErrCodeConnectivity,
			Message: ConnectivityMessage(code, 0),
			Cause:   &transportError{code: code, err: f.Err},
		}
	}

	msg := strings.TrimSpace(f.Message)
	if f.Status >= http.StatusInternalServerError {
		if msg == "" {
			msg = ConnectivityMessage("", f.Status)
		}
		return &apperrors.AppError{Code: apperrors.ErrCodeConnectivity, Message: msg, StatusCode: f.Status}
	}

	// Keyword matching only applies when no HTTP status is known; a 4xx
	// whose text mentions "network" is still a 4xx.
	if f.Status == 0 && msg != "" && connectivityPattern.MatchString(msg) {
		return &apperrors.AppError{Code: apperrors.ErrCodeConnectivity, Message: msg}
	}

	if msg == "" {
		msg = MsgRequestFailed
	}
	appErr := &apperrors.AppError{Message: msg, StatusCode: f.Status, Cause: f.Err}
	switch f.Status {
	case http.StatusUnauthorized:
		appErr.Code = apperrors.ErrCodeUnauthorized
	case http.StatusForbidden:
		appErr.Code = apperrors.ErrCodeForbidden
	case http.StatusNotFound:
		appErr.Code = apperrors.ErrCodeNotFound
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		appErr.Code = apperrors.ErrCodeValidation
	default:
		appErr.Code = apperrors.ErrCodeUnknown
	}
	return appErr
}

func (f Failure) tokenExpired() bool {
	if expiredTokenPattern.MatchString(f.Message) {
		return true
	}
	for _, text := range f.Texts {
		if expiredTokenPattern.MatchString(text) {
			return true
		}
	}
	return false
}

// transportError tags a network failure with its error code.
type transportError struct {
	code string
	err  error
}

func (e *transportError) Error() string {
	if e.code == "" {
		return e.err.Error()
	}
	return e.code + ": " + e.err.Error()
}

func (e *transportError) Unwrap() error { return e.err }

// TransportCode returns the connection error code carried by err, or "".
func TransportCode(err error) string {
	if err == nil {
		return ""
	}
	var te *transportError
	if errors.As(err, &te) && te.code != "" {
		return te.code
	}

	var dnsErr *net.DNSError
	var netErr net.Error
	switch {
	case errors.Is(err, syscall.ECONNREFUSED):
		return CodeConnRefused
	case errors.As(err, &dnsErr) && (dnsErr.IsNotFound || !dnsErr.IsTimeout):
		return CodeNotFound
	case errors.Is(err, syscall.ENETUNREACH), errors.Is(err, syscall.EHOSTUNREACH):
		return CodeNetUnreach
	case errors.Is(err, syscall.ETIMEDOUT), errors.Is(err, context.DeadlineExceeded):
		return CodeTimedOut
	case errors.As(err, &netErr) && netErr.Timeout():
		return CodeTimedOut
	}
	return ""
}

// ConnectivityMessage is the operator-facing text for a connectivity failure.
func ConnectivityMessage(code string, status int) string {
	switch {
	case code == CodeConnRefused:
		return "Cannot connect to server - Connection refused"
	case code == CodeNotFound:
		return "Cannot connect to server - Server not found"
	case code == CodeTimedOut:
		return "Connection timeout - Server is not responding"
	case code == CodeNetUnreach:
		return "Cannot connect to server - Network unreachable"
	case status == http.StatusInternalServerError:
		return "Server internal error"
	case status == http.StatusServiceUnavailable:
		return "Service temporarily unavailable"
	default:
		return "API communication error"
	}
}

// parseErrorBody builds the Failure fields carried by an error body.
func parseErrorBody(status int, body []byte) Failure {
	return Failure{Status: status, Message: extractMessage(body), Texts: extractTexts(body)}
}

// extractMessage pulls the server's message out of a JSON error body.
func extractMessage(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	var data any
	if err := json.Unmarshal(body, &data); err != nil {
		// Plain text bodies usually come from proxies.
		msg := strings.TrimSpace(string(body))
		if len(msg) > maxPlainMessage || strings.HasPrefix(msg, "<") {
			return ""
		}
		return msg
	}
	v, err := jmespath.Search(messageExpr, data)
	if err != nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

// extractTexts returns the non-empty error and message strings of a JSON
// body, top level first.
func extractTexts(body []byte) []string {
	var data any
	if len(body) == 0 || json.Unmarshal(body, &data) != nil {
		return nil
	}
	v, err := jmespath.Search(textsExpr, data)
	if err != nil {
		return nil
	}
	items, _ := v.([]any)
	var out []string
	for _, item := range items {
		if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
			out = append(out, strings.TrimSpace(s))
		}
	}
	return out
}
