package apierr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"syscall"
)

// Kind is the failure category of a request.
type Kind int

const (
	Generic Kind = iota
	Auth
	CloudFlare
	ServerDown
	RateLimited
	NotFound
	Timeout
	NoInternet
	DNS
	ConnectionRefused
)

var kindNames = map[Kind]string{
	Generic:           "GENERIC",
	Auth:              "AUTH",
	CloudFlare:        "CLOUDFLARE",
	ServerDown:        "SERVER_DOWN",
	RateLimited:       "RATE_LIMITED",
	NotFound:          "NOT_FOUND",
	Timeout:           "TIMEOUT",
	NoInternet:        "NO_INTERNET",
	DNS:               "DNS",
	ConnectionRefused: "CONNECTION_REFUSED",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return kindNames[Generic]
}

// Retryable reports whether a later attempt may succeed without user action.
func (k Kind) Retryable() bool {
	switch k {
	case Timeout, NoInternet, DNS, ConnectionRefused, ServerDown, RateLimited:
		return true
	}
	return false
}

// Network reports whether the failure happened before any response arrived.
func (k Kind) Network() bool {
	switch k {
	case Timeout, NoInternet, DNS, ConnectionRefused:
		return true
	}
	return false
}

// Sentinels for errors.Is checks against a classified *Error.
var (
	ErrAuth              = errors.New("authentication failed")
	ErrCloudFlare        = errors.New("blocked by cloudflare")
	ErrServerDown        = errors.New("server down")
	ErrRateLimited       = errors.New("rate limited")
	ErrNotFound          = errors.New("not found")
	ErrTimeout           = errors.New("timed out")
	ErrNoInternet        = errors.New("no internet connection")
	ErrDNS               = errors.New("host lookup failed")
	ErrConnectionRefused = errors.New("connection refused")
	ErrGeneric           = errors.New("request failed")
)

var kindSentinels = map[Kind]error{
	Generic:           ErrGeneric,
	Auth:              ErrAuth,
	CloudFlare:        ErrCloudFlare,
	ServerDown:        ErrServerDown,
	RateLimited:       ErrRateLimited,
	NotFound:          ErrNotFound,
	Timeout:           ErrTimeout,
	NoInternet:        ErrNoInternet,
	DNS:               ErrDNS,
	ConnectionRefused: ErrConnectionRefused,
}

// Error is a classified request failure.
type Error struct {
	Kind   Kind
	Status int
	Path   string
	Reason string
	Err    error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(strings.ToLower(strings.ReplaceAll(e.Kind.String(), "_", " ")))
	if e.Path != "" {
		b.WriteString(" ")
		b.WriteString(e.Path)
	}
	if e.Status > 0 {
		fmt.Fprintf(&b, " (status %d)", e.Status)
	}
	if e.Reason != "" {
		b.WriteString(": ")
		b.WriteString(e.Reason)
	} else if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for the error's kind.
func (e *Error) Is(target error) bool {
	return kindSentinels[e.Kind] == target
}

// New builds an *Error of the given kind without a response.
func New(kind Kind, path, reason string) *Error {
	return &Error{Kind: kind, Path: path, Reason: reason}
}

// Classify maps a response or a transport error to a classified *Error.
// It returns nil for successful responses.
func Classify(resp *http.Response, body []byte, err error) *Error {
	if err != nil {
		return classifyTransport(err)
	}
	if resp == nil {
		return &Error{Kind: Generic, Err: errors.New("no response")}
	}
	if resp.StatusCode < 400 {
		return nil
	}
	out := &Error{
		Status: resp.StatusCode,
		Reason: extractReason(body),
	}
	if resp.Request != nil && resp.Request.URL != nil {
		out.Path = resp.Request.URL.Path
	}
	out.Kind = classifyStatus(resp.StatusCode, resp.Header, body)
	return out
}

func classifyStatus(status int, header http.Header, body []byte) Kind {
	switch status {
	case http.StatusForbidden, http.StatusServiceUnavailable:
		if isCloudFlare(header, body) {
			return CloudFlare
		}
	}
	switch {
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return Auth
	case status == http.StatusNotFound:
		return NotFound
	case status == http.StatusTooManyRequests, status == http.StatusMisdirectedRequest:
		return RateLimited
	case status >= 520 && status <= 526:
		if hasChallengeMarker(body) {
			return CloudFlare
		}
		return ServerDown
	case status == http.StatusInternalServerError,
		status == http.StatusBadGateway,
		status == http.StatusServiceUnavailable,
		status == http.StatusGatewayTimeout:
		return ServerDown
	}
	return Generic
}

// isCloudFlare reports whether a 403 or 503 came from the edge rather than
// the site. Any one of the edge headers or a challenge page is enough.
func isCloudFlare(header http.Header, body []byte) bool {
	if header.Get("cf-mitigated") != "" || header.Get("cf-ray") != "" {
		return true
	}
	if strings.Contains(strings.ToLower(header.Get("Server")), "cloudflare") {
		return true
	}
	return hasChallengeMarker(body)
}

var challengeMarkers = []string{
	"cf-browser-verification",
	"challenge-platform",
	"cf_chl_",
	"attention required! | cloudflare",
	"just a moment...",
}

func hasChallengeMarker(body []byte) bool {
	if len(body) == 0 {
		return false
	}
	lower := strings.ToLower(string(body))
	for _, marker := range challengeMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

func extractReason(body []byte) string {
	trimmed := strings.TrimSpace(string(body))
	if !strings.HasPrefix(trimmed, "{") {
		return ""
	}
	var payload struct {
		Reason  string `json:"reason"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal([]byte(trimmed), &payload); err != nil {
		return ""
	}
	if payload.Reason != "" {
		return payload.Reason
	}
	return payload.Message
}

func classifyTransport(err error) *Error {
	var classified *Error
	if errors.As(err, &classified) {
		return classified
	}
	out := &Error{Kind: Generic, Err: err}

	var dnsErr *net.DNSError
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		out.Kind = Timeout
	case errors.As(err, &dnsErr):
		if dnsErr.IsTimeout {
			out.Kind = Timeout
		} else {
			out.Kind = DNS
		}
	case errors.Is(err, syscall.ECONNREFUSED):
		out.Kind = ConnectionRefused
	case errors.Is(err, syscall.ENETUNREACH), errors.Is(err, syscall.EHOSTUNREACH), errors.Is(err, syscall.ENETDOWN):
		out.Kind = NoInternet
	case errors.As(err, &netErr) && netErr.Timeout():
		out.Kind = Timeout
	}
	return out
}

// IsConnectionFailure reports whether err broke the connection before a
// response arrived in a way that a single retry may fix.
func IsConnectionFailure(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, io.EOF)
}

// KindOf returns the kind of a classified error anywhere in err's chain.
func KindOf(err error) Kind {
	var classified *Error
	if errors.As(err, &classified) {
		return classified.Kind
	}
	if err == nil {
		return Generic
	}
	return classifyTransport(err).Kind
}

// Message returns the user-facing text for err.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var classified *Error
	if !errors.As(err, &classified) {
		classified = classifyTransport(err)
	}
	switch classified.Kind {
	case Auth:
		return "Login failed. Check your username and API key."
	case CloudFlare:
		return "Blocked by CloudFlare. Try again later or from another network."
	case ServerDown:
		return "The server is down or overloaded. Try again later."
	case RateLimited:
		return "Too many requests. Slow down and try again shortly."
	case NotFound:
		if classified.Reason != "" {
			return "Not found: " + classified.Reason
		}
		return "Not found."
	case Timeout:
		return "The request timed out."
	case NoInternet:
		return "No internet connection."
	case DNS:
		return "Could not resolve the host. Check your connection."
	case ConnectionRefused:
		return "Connection refused by the server."
	}
	if classified.Reason != "" {
		return "Request failed: " + classified.Reason
	}
	if classified.Status > 0 {
		return fmt.Sprintf("Request failed with status %d.", classified.Status)
	}
	return "Request failed."
}
