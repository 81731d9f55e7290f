package ai

import (
	"errors"
	"fmt"
	"time"
)

// AuthError indicates a rejected or invalid API key.
type AuthError struct{ *APIError }

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication failed, check GEMINI_API_KEY: %s", e.APIError.Error())
}

// RateLimitError indicates 429 responses and may include a Retry-After.
type RateLimitError struct {
	*APIError
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited: wait about %ds before retrying: %s", int(e.RetryAfter.Seconds()), e.APIError.Error())
	}
	return fmt.Sprintf("rate limited: %s", e.APIError.Error())
}

// ModelNotFoundError indicates the configured model is not available.
type ModelNotFoundError struct{ *APIError }

func (e *ModelNotFoundError) Error() string {
	return fmt.Sprintf("model not found: %s", e.APIError.Error())
}

// BadRequestError indicates a rejected request (400).
type BadRequestError struct{ *APIError }

func (e *BadRequestError) Error() string { return fmt.Sprintf("bad request: %s", e.APIError.Error()) }

// QuotaExceededError indicates billing or quota problems.
type QuotaExceededError struct{ *APIError }

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("quota exceeded: %s", e.APIError.Error())
}

// ServerError indicates 5xx errors from the provider.
type ServerError struct{ *APIError }

func (e *ServerError) Error() string { return fmt.Sprintf("provider error: %s", e.APIError.Error()) }

// UnreachableError indicates the target runtime is not reachable (e.g., local Ollama down).
type UnreachableError struct {
	Host string
	Err  error
}

func (e *UnreachableError) Error() string {
	if e == nil {
		return "unreachable"
	}
	if e.Host != "" {
		return fmt.Sprintf("endpoint unreachable at %s: %v", e.Host, e.Err)
	}
	return fmt.Sprintf("endpoint unreachable: %v", e.Err)
}

func (e *UnreachableError) Unwrap() error { return e.Err }

func (e *AuthError) Unwrap() error          { return e.APIError }
func (e *RateLimitError) Unwrap() error     { return e.APIError }
func (e *ModelNotFoundError) Unwrap() error { return e.APIError }
func (e *BadRequestError) Unwrap() error    { return e.APIError }
func (e *QuotaExceededError) Unwrap() error { return e.APIError }
func (e *ServerError) Unwrap() error        { return e.APIError }

// StatusCode returns the HTTP status carried by err, or 0 when err did not
// come from a provider response.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// Kind names the error category for logs: auth, rate_limit, model_not_found,
// bad_request, quota, server, unreachable, api or other.
func Kind(err error) string {
	var (
		auth  *AuthError
		rl    *RateLimitError
		mnf   *ModelNotFoundError
		br    *BadRequestError
		quota *QuotaExceededError
		srv   *ServerError
		unr   *UnreachableError
		api   *APIError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &auth):
		return "auth"
	case errors.As(err, &rl):
		return "rate_limit"
	case errors.As(err, &mnf):
		return "model_not_found"
	case errors.As(err, &br):
		return "bad_request"
	case errors.As(err, &quota):
		return "quota"
	case errors.As(err, &srv):
		return "server"
	case errors.As(err, &unr):
		return "unreachable"
	case errors.As(err, &api):
		return "api"
	}
	return "other"
}
