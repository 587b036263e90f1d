package llm

import (
	"fmt"

	"github.com/pkg/errors"
)

type Kind int

const (
	KindSuccess Kind = iota
	KindOversizedInput
	KindMissingAPIKey
	KindInvalidRequest
	KindUnauthorized
	KindHTTPError
	KindNoChoices
	KindEmptyResponse
	KindMalformedResponse
	KindTimeout
	KindTransport
	KindCanceled
)

var kindNames = map[Kind]string{
	KindSuccess:           "success",
	KindOversizedInput:    "oversized_input",
	KindMissingAPIKey:     "missing_api_key",
	KindInvalidRequest:    "invalid_request",
	KindUnauthorized:      "unauthorized",
	KindHTTPError:         "http_error",
	KindNoChoices:         "no_choices",
	KindEmptyResponse:     "empty_response",
	KindMalformedResponse: "malformed_response",
	KindTimeout:           "timeout",
	KindTransport:         "transport_error",
	KindCanceled:          "canceled",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Precondition reports whether the kind was detected before any request was sent.
func (k Kind) Precondition() bool {
	return k == KindOversizedInput || k == KindMissingAPIKey || k == KindInvalidRequest
}

// Result is the outcome of GenerateCompletion. Text is only set for KindSuccess,
// StatusCode only for KindUnauthorized and KindHTTPError.
type Result struct {
	Kind       Kind   `json:"kind" yaml:"kind"`
	Text       string `json:"text,omitempty" yaml:"text,omitempty"`
	StatusCode int    `json:"statusCode,omitempty" yaml:"statusCode,omitempty"`
	Message    string `json:"message,omitempty" yaml:"message,omitempty"`
}

func (r Result) OK() bool {
	return r.Kind == KindSuccess
}

// String renders the result the way it is shown to the user: the generated
// text on success, a readable description otherwise.
func (r Result) String() string {
	switch r.Kind {
	case KindSuccess:
		return r.Text
	case KindOversizedInput:
		return "File is too large to generate documentation. Please split the file and try again."
	case KindMissingAPIKey:
		return "API Key is missing. Please configure your OpenAI API key."
	case KindInvalidRequest:
		return fmt.Sprintf("Invalid request: %s", r.Message)
	case KindUnauthorized:
		return "Unauthorized: Invalid API Key. Please check your API key in the settings."
	case KindHTTPError:
		return fmt.Sprintf("API request failed with code: %d and message: %s", r.StatusCode, r.Message)
	case KindNoChoices:
		return "No documentation generated."
	case KindEmptyResponse:
		return "Empty response from API."
	case KindMalformedResponse:
		return fmt.Sprintf("An error occurred: malformed response: %s", r.Message)
	case KindTimeout:
		return "Request timed out. Please check your internet connection and try again."
	case KindTransport:
		return fmt.Sprintf("An error occurred: %s", r.Message)
	case KindCanceled:
		return "Request was canceled."
	default:
		return fmt.Sprintf("An error occurred: %s", r.Message)
	}
}

// Err returns nil for a successful result and an *Error otherwise.
func (r Result) Err() error {
	if r.OK() {
		return nil
	}
	return &Error{Kind: r.Kind, StatusCode: r.StatusCode, Message: r.String()}
}

type Error struct {
	Kind       Kind
	StatusCode int
	Message    string
	Cause      error
}

func (e *Error) Error() string {
	if e.Cause != nil && e.Message == "" {
		return e.Cause.Error()
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// KindOf extracts the Kind carried by err, KindTransport if err carries none.
func KindOf(err error) Kind {
	if err == nil {
		return KindSuccess
	}
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr.Kind
	}
	return KindTransport
}

func newError(kind Kind, status int, cause error, format string, args ...any) *Error {
	return &Error{
		Kind:       kind,
		StatusCode: status,
		Message:    fmt.Sprintf(format, args...),
		Cause:      cause,
	}
}
