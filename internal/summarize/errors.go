package summarize

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// ConfigurationError reports a missing or unusable local setting, such as
// an empty API key. It is raised before any network call.
type ConfigurationError struct {
	Msg string
}

func (e *ConfigurationError) Error() string { return e.Msg }

// APIError is a non-success reply from the model endpoint. Message carries
// the upstream error text when the endpoint supplied one.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("API Error %d", e.StatusCode)
}

// TransportError wraps network failures and timeouts.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return "model request timed out"
	}
	return fmt.Sprintf("model request failed: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ErrMissingAPIKey is the ConfigurationError for an empty credential.
var ErrMissingAPIKey = &ConfigurationError{Msg: "No API key set. Add your OpenAI API key to the settings."}

// classify maps a go-openai client error onto APIError or TransportError.
func classify(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &APIError{StatusCode: apiErr.HTTPStatusCode, Message: apiErr.Message}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &APIError{StatusCode: reqErr.HTTPStatusCode}
	}
	return &TransportError{Err: err}
}
